package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/tocloak/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		res, evalErrs, err := NewEngine(Options{}).Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if res == nil || res.Scene == nil {
			t.Fatal("expected a result with a scene")
		}
		if res.Scene.Name != SceneName || res.Scene.Len() != 0 {
			t.Errorf("expected empty scene %q, got %q with %d entries", SceneName, res.Scene.Name, res.Scene.Len())
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	source := `
(def x 10)
(def y 20)
(+ x y)
`
	res, evalErrs, err := NewEngine(Options{}).Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if len(res.Devices) != 0 {
		t.Errorf("expected no devices, got %d", len(res.Devices))
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	res, evalErrs, err := NewEngine(Options{}).Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	res, evalErrs, err := NewEngine(Options{}).Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	e := NewEngine(Options{})
	e.generation = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := e.wait(ctx, ch, 1)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took %s", time.Since(start))
	}
}

func TestEvaluateCancelled(t *testing.T) {
	e := NewEngine(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.wait(ctx, make(chan evalResult), 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation reported as timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	e := NewEngine(Options{})
	e.generation = 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := e.wait(context.Background(), ch, 1)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got %v", err)
	}
}

func TestEvaluateContext(t *testing.T) {
	res, evalErrs, err := NewEngine(Options{}).EvaluateContext(context.Background(), `(build (tetra-cloak))`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("err = %v, eval errors = %v", err, evalErrs)
	}
	if len(res.Devices) != 1 {
		t.Errorf("expected one device, got %d", len(res.Devices))
	}
}

func TestBuiltinsFailOnceAbandoned(t *testing.T) {
	run, cancel := context.WithCancel(context.Background())
	b := &builder{run: run, ctx: NewEngine(Options{}).newContext(), result: &Result{Scene: scene.NewCollection(SceneName)}}
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)
	if err := env.LoadString(preprocessSource(`(build (tetra-cloak))`)); err != nil {
		t.Fatal(err)
	}
	cancel()

	_, err := env.Run()
	if err == nil || !strings.Contains(err.Error(), "abandoned") {
		t.Fatalf("expected an abandoned evaluation, got %v", err)
	}
	if len(b.result.Devices) != 0 {
		t.Errorf("built %d devices after cancellation", len(b.result.Devices))
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad keyword", 3, "bad keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %d", len(errs))
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
