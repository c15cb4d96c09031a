package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/tocloak/pkg/device"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//  2. kebab-case identifiers become snake_case (pyramid-cloak ->
//     pyramid_cloak); zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied unchanged.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j

		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j

		case b[i] == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, b[i])
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Go values passed through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpDevice carries a device parameter record from its constructor to
// build.
type sexpDevice struct {
	d device.Device
}

func (d *sexpDevice) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", d.d.Name())
}
func (d *sexpDevice) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name if s is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword and positional arguments. A keyword at the
// end of the list gets the value nil.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// fields reads keyword arguments into a parameter record. The first error
// sticks; check reports it, or any keyword that was never read.
type fields struct {
	fn   string
	args kwArgs
	used map[string]bool
	err  error
}

func newFields(fn string, args []zygo.Sexp) *fields {
	return &fields{fn: fn, args: parseArgs(args), used: make(map[string]bool)}
}

func (f *fields) get(key string) (zygo.Sexp, bool) {
	if f.err != nil {
		return nil, false
	}
	v, ok := f.args.kw[key]
	if ok {
		f.used[key] = true
	}
	return v, ok
}

func (f *fields) fail(key string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("%s: %s: %w", f.fn, key, err)
	}
}

func (f *fields) number(key string, dst *float64) {
	if v, ok := f.get(key); ok {
		x, err := toFloat64(v)
		if err != nil {
			f.fail(key, err)
			return
		}
		*dst = x
	}
}

func (f *fields) integer(key string, dst *int) {
	if v, ok := f.get(key); ok {
		x, err := toInt(v)
		if err != nil {
			f.fail(key, err)
			return
		}
		*dst = x
	}
}

func (f *fields) flag(key string, dst *bool) {
	if v, ok := f.get(key); ok {
		b, ok := v.(*zygo.SexpBool)
		if !ok {
			f.fail(key, fmt.Errorf("expected true or false, got %s", v.SexpString(nil)))
			return
		}
		*dst = b.Val
	}
}

func (f *fields) vec(key string, dst *r3.Vec) {
	if v, ok := f.get(key); ok {
		x, err := toVec3(v)
		if err != nil {
			f.fail(key, err)
			return
		}
		*dst = x
	}
}

func (f *fields) word(key string, dst *string) {
	if v, ok := f.get(key); ok {
		s, err := toKeywordString(v)
		if err != nil {
			f.fail(key, err)
			return
		}
		*dst = s
	}
}

// display reads the presentation options shared by all devices.
func (f *fields) display(d *device.Display) {
	var rep string
	f.word("representation", &rep)
	if rep != "" {
		r, ok := optics.ParseLensRepresentation(rep)
		if !ok {
			f.fail("representation", fmt.Errorf("unknown representation %q", rep))
		}
		d.Representation = r
	}
	f.flag("show-faces", &d.ShowFaces)
	f.flag("show-frames", &d.ShowFrames)
	f.number("frame-radius", &d.FrameRadius)
	f.word("frame-colour", &d.FrameColour)
}

func (f *fields) check() error {
	if f.err != nil {
		return f.err
	}
	var unknown []string
	for k := range f.args.kw {
		if !f.used[k] {
			unknown = append(unknown, ":"+k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s: unknown keywords %s", f.fn, strings.Join(unknown, " "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :keyword and "string".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return strings.TrimPrefix(str, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// ErrAbandoned is returned by builtins called after their evaluation timed
// out or was cancelled.
var ErrAbandoned = errors.New("engine: evaluation abandoned")

// builder collects the devices built by one evaluation. run is cancelled
// once nobody waits for the result.
type builder struct {
	run    context.Context
	ctx    *device.Context
	result *Result
}

// build populates d into a new sub-collection of the scene.
func (b *builder) build(name string, d device.Device) error {
	if b.result.Scene.Sub(name) != nil {
		return fmt.Errorf("build: a device named %q already exists", name)
	}
	e := &device.Editable{Device: d, Ctx: b.ctx, Scene: scene.NewCollection(name)}
	if err := e.Populate(); err != nil {
		return fmt.Errorf("build %q: %w", name, err)
	}
	b.result.Scene.Add(e.Scene, true)
	b.result.Devices = append(b.result.Devices, e)
	for _, f := range e.Report().Failed() {
		b.result.Warnings = append(b.result.Warnings, EvalWarning{Device: name, Face: f.Name, Message: f.Err.Error()})
	}
	return nil
}

type builtin func(args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the device builtins. Source must be run through
// preprocessSource so that keywords and kebab-case names are recognised.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			if b.run != nil && b.run.Err() != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w: %v", name, ErrAbandoned, b.run.Err())
			}
			return fn(args)
		})
	}

	// (vec3 1 2 3)
	add("vec3", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			x, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = x
		}
		return &sexpVec3{vec: r3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (pyramid-cloak :sides 4 :radius 1 :height 1 :lower 0.33 :upper 0.67
	//                :focal-length -1 :centre (vec3 0 0 0) :axis ... :dir ...)
	add("pyramid_cloak", func(args []zygo.Sexp) (zygo.Sexp, error) {
		p := device.DefaultPyramidCloak()
		f := newFields("pyramid-cloak", args)
		f.vec("centre", &p.Centre)
		f.vec("axis", &p.Axis)
		f.vec("dir", &p.Dir)
		f.integer("sides", &p.Sides)
		f.number("radius", &p.Radius)
		f.number("height", &p.Height)
		f.number("lower", &p.LowerFraction)
		f.number("upper", &p.UpperFraction)
		f.number("focal-length", &p.OuterFocalLength)
		f.display(&p.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: p}, nil
	})

	// (cubic-shifty-cloak :outer 1 :inner 0.5 :shift (vec3 0.25 0 0)
	//                     :apertures false :centre ... :u ... :v ...)
	add("cubic_shifty_cloak", func(args []zygo.Sexp) (zygo.Sexp, error) {
		c := device.DefaultCubicShiftyCloak()
		f := newFields("cubic-shifty-cloak", args)
		f.vec("centre", &c.Centre)
		f.vec("u", &c.U)
		f.vec("v", &c.V)
		f.number("outer", &c.OuterSide)
		f.number("inner", &c.InnerSide)
		f.vec("shift", &c.Shift)
		f.flag("apertures", &c.Apertures)
		f.display(&c.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: c}, nil
	})

	// (tetra-cloak :size 1 :inner 0.5 :inner-em 0.2 :centre ...)
	add("tetra_cloak", func(args []zygo.Sexp) (zygo.Sexp, error) {
		c := device.DefaultTetraCloak()
		f := newFields("tetra-cloak", args)
		f.vec("centre", &c.Centre)
		f.number("size", &c.Size)
		f.number("inner", &c.InnerFraction)
		f.number("inner-em", &c.InnerEMFraction)
		f.display(&c.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: c}, nil
	})

	// (omnidirectional-lens)
	add("omnidirectional_lens", func(args []zygo.Sexp) (zygo.Sexp, error) {
		c := device.OmnidirectionalLens()
		f := newFields("omnidirectional-lens", args)
		f.display(&c.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: c}, nil
	})

	// (lens-complex :vertices (list (vec3 ...) ...) :em (list ...)
	//               :edges (list [0 1] [1 2] ...) :names (list "A" ...))
	add("lens_complex", lensComplex)

	// (space-cancelling-wedge :angle 1.0 :length 1 :width 1
	//                         :gluing :perfect-teleportation ...)
	add("space_cancelling_wedge", func(args []zygo.Sexp) (zygo.Sexp, error) {
		w := device.DefaultSpaceCancellingWedge()
		f := newFields("space-cancelling-wedge", args)
		f.vec("apex", &w.Apex)
		f.vec("edge", &w.EdgeDir)
		f.vec("bisector", &w.Bisector)
		f.number("angle", &w.Angle)
		f.number("length", &w.Length)
		f.number("width", &w.Width)
		var gluing string
		f.word("gluing", &gluing)
		if gluing != "" {
			g, ok := device.ParseGluing(gluing)
			if !ok {
				f.fail("gluing", fmt.Errorf("unknown gluing %q", gluing))
			}
			w.Gluing = g
		}
		f.display(&w.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: w}, nil
	})

	// (pinch-window :sides 4 :radius 1 :depth 0.5 :pinch 0.4
	//               :centre ... :axis ... :dir ...)
	add("pinch_window", func(args []zygo.Sexp) (zygo.Sexp, error) {
		w := device.DefaultPinchWindow()
		f := newFields("pinch-window", args)
		f.vec("centre", &w.Centre)
		f.vec("axis", &w.Axis)
		f.vec("dir", &w.Dir)
		f.integer("sides", &w.Sides)
		f.number("radius", &w.Radius)
		f.number("depth", &w.Depth)
		f.number("pinch", &w.Pinch)
		f.display(&w.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: w}, nil
	})

	// (hypercube-net :side 1 :centre ... :u ... :v ... :w ...)
	add("hypercube_net", func(args []zygo.Sexp) (zygo.Sexp, error) {
		n := device.DefaultHypercubeNet()
		f := newFields("hypercube-net", args)
		f.vec("centre", &n.Centre)
		f.vec("u", &n.U)
		f.vec("v", &n.V)
		f.vec("w", &n.W)
		f.number("side", &n.Side)
		f.display(&n.Display)
		if err := f.check(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDevice{d: n}, nil
	})

	// (build "name" (pyramid-cloak ...)) or (build (pyramid-cloak ...))
	add("build", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("build requires a device and an optional name")
		}
		d, ok := args[len(args)-1].(*sexpDevice)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("build: expected device, got %s", args[len(args)-1].SexpString(nil))
		}
		name := d.d.Name()
		if len(args) == 2 {
			s, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("build: name: %w", err)
			}
			name = s
		}
		if err := b.build(name, d.d); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: name}, nil
	})
}

func lensComplex(args []zygo.Sexp) (zygo.Sexp, error) {
	f := newFields("lens-complex", args)
	var (
		names        []string
		vertices, em []r3.Vec
		edges        [][2]int
	)
	display := device.DefaultDisplay()
	vecs := func(key string, dst *[]r3.Vec) {
		v, ok := f.get(key)
		if !ok {
			return
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			f.fail(key, err)
			return
		}
		for _, item := range items {
			p, err := toVec3(item)
			if err != nil {
				f.fail(key, err)
				return
			}
			*dst = append(*dst, p)
		}
	}
	vecs("vertices", &vertices)
	vecs("em", &em)

	if v, ok := f.get("names"); ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			f.fail("names", err)
		}
		for _, item := range items {
			s, err := toString(item)
			if err != nil {
				f.fail("names", err)
				break
			}
			names = append(names, s)
		}
	}
	if v, ok := f.get("edges"); ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			f.fail("edges", err)
		}
		for _, item := range items {
			pair, err := sexpListToSlice(item)
			if err == nil && len(pair) != 2 {
				err = fmt.Errorf("edge needs two vertex indices, got %d", len(pair))
			}
			var a, b int
			if err == nil {
				a, err = toInt(pair[0])
			}
			if err == nil {
				b, err = toInt(pair[1])
			}
			if err != nil {
				f.fail("edges", err)
				break
			}
			edges = append(edges, [2]int{a, b})
		}
	}
	f.display(&display)
	if err := f.check(); err != nil {
		return zygo.SexpNull, err
	}

	c, err := device.NewSimplicialComplex(names, vertices, em, edges)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("lens-complex: %w", err)
	}
	c.Display = display
	return &sexpDevice{d: c}, nil
}
