// Package engine evaluates device scripts. A script is Lisp source run in a
// sandboxed zygomys interpreter; its builtins construct device parameter
// records and build them into a scene.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/tocloak/pkg/device"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// SceneName is the name of the root collection of every evaluation.
const SceneName = "scene"

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning reports a face that was built with a placeholder surface.
type EvalWarning struct {
	Device  string
	Face    string
	Message string
}

func (w EvalWarning) String() string {
	return fmt.Sprintf("%s: face %q: %s", w.Device, w.Face, w.Message)
}

// Result is the output of a successful evaluation.
type Result struct {
	// Scene holds one sub-collection per built device, in build order.
	Scene    *scene.Collection
	Devices  []*device.Editable
	Warnings []EvalWarning
}

// Device returns the built device with the given collection name.
func (r *Result) Device(name string) *device.Editable {
	for _, d := range r.Devices {
		if d.Scene.Name == name {
			return d
		}
	}
	return nil
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger  *slog.Logger
	Seed    int64
	Timeout time.Duration
	// Coating is applied to every optical face; the zero value selects
	// optics.DefaultCoating.
	Coating optics.Coating
	// Tolerance overrides device.DefaultTolerance when positive.
	Tolerance float64
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment, so equal
// sources give equal scenes.
type Engine struct {
	opts Options

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = EvalTimeout
	}
	if opts.Coating == (optics.Coating{}) {
		opts.Coating = optics.DefaultCoating
	}
	return &Engine{opts: opts}
}

// Evaluate runs source and builds every device it asks for.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate with cancellation. A cancelled ctx returns
// ctx.Err().
//
// zygomys cannot be interrupted mid-run. Once EvaluateContext returns
// without a result, the next builtin the script calls fails with
// ErrAbandoned and the interpreter unwinds; a script that loops without
// calling builtins keeps its goroutine until the loop ends.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	run, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs, err := e.evaluate(run, source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	return e.wait(run, ch, gen)
}

func (e *Engine) newContext() *device.Context {
	ctx := device.NewContext(e.opts.Logger, e.opts.Seed)
	ctx.Coating = e.opts.Coating
	if e.opts.Tolerance > 0 {
		ctx.Tolerance = e.opts.Tolerance
	}
	return ctx
}

func (e *Engine) evaluate(run context.Context, source string) (*Result, []EvalError, error) {
	b := &builder{
		run:    run,
		ctx:    e.newContext(),
		result: &Result{Scene: scene.NewCollection(SceneName)},
	}
	if strings.TrimSpace(source) == "" {
		return b.result, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	e.opts.Logger.Info("script evaluated", "devices", len(b.result.Devices), "warnings", len(b.result.Warnings))
	return b.result, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
