package device

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTooFewSides is returned for pyramid bases with fewer than three sides.
var ErrTooFewSides = errors.New("device: pyramid base needs at least 3 sides")

// PyramidCloak is an ideal-lens cloak in the shape of a right pyramid over a
// regular N-gon. Two inner vertices on the axis, at fractions of the height,
// split the pyramid into an upper, a middle and a lower layer. Every face is
// an ideal thin lens; the focal lengths of all inner faces follow from the
// outer focal length.
type PyramidCloak struct {
	Centre r3.Vec // centre of the base
	Axis   r3.Vec // from the base towards the apex
	Dir    r3.Vec // from the centre towards base vertex 0
	Sides  int
	Radius float64 // circumradius of the base
	Height float64

	LowerFraction float64 // height of the lower inner vertex over Height
	UpperFraction float64 // height of the upper inner vertex over Height

	OuterFocalLength float64

	Display
}

// DefaultPyramidCloak returns a square-based cloak.
func DefaultPyramidCloak() *PyramidCloak {
	return &PyramidCloak{
		Axis:             r3.Vec{Z: 1},
		Dir:              r3.Vec{X: 1},
		Sides:            4,
		Radius:           1,
		Height:           1,
		LowerFraction:    1.0 / 3,
		UpperFraction:    2.0 / 3,
		OuterFocalLength: -1,
		Display:          DefaultDisplay(),
	}
}

func (p *PyramidCloak) Name() string    { return "pyramid-cloak" }
func (p *PyramidCloak) Options() Display { return p.Display }

// PyramidVertices are the computed vertices of a pyramid cloak.
type PyramidVertices struct {
	Frame   geom.Frame // U is the axis, V points at base vertex 0
	Apex    r3.Vec
	Upper   r3.Vec
	Lower   r3.Vec
	UpperEM r3.Vec
	LowerEM r3.Vec
	Base    []r3.Vec
}

// PyramidFocalLengths are the focal lengths of the four lens layers. Each
// is the focal length seen by light leaving the cloak through that layer.
type PyramidFocalLengths struct {
	Outer      float64
	UpperInner float64
	LowerInner float64
	Base       float64
	// UpperVertical is seen by light crossing an upper vertical face from
	// sector i-1 into sector i.
	UpperVertical float64
}

// axisPowers holds the on-axis powers μ = (axis·normal)/f of each layer.
type axisPowers struct {
	outer, upper, lower, base float64
}

func (p *PyramidCloak) heights() (h, h1, h2 float64) {
	return p.Height, p.LowerFraction * p.Height, p.UpperFraction * p.Height
}

// inradius is the distance from the axis to the middle of a base edge.
func (p *PyramidCloak) inradius() float64 {
	return p.Radius * math.Cos(math.Pi/float64(p.Sides))
}

// powers solves the loop-imaging condition on the axis: the outer, upper
// and lower lenses in sequence must act like the base lens.
func (p *PyramidCloak) powers() axisPowers {
	h, h1, h2 := p.heights()
	r := p.inradius()
	mo := r / math.Hypot(r, h) / p.OuterFocalLength
	d := mo*h*(h-h2) - h2
	return axisPowers{
		outer: mo,
		upper: mo * h * (h - h1) / ((h2 - h1) * d),
		lower: mo * h * (h - h2) / ((h2 - h1) * h1),
		base:  -mo * (h - h1) * (h - h2) / (h1 * d),
	}
}

// FocalLengths returns the closed-form focal lengths of all layers.
func (p *PyramidCloak) FocalLengths() (PyramidFocalLengths, error) {
	if p.Sides < 3 {
		return PyramidFocalLengths{}, ErrTooFewSides
	}
	h, h1, h2 := p.heights()
	r := p.inradius()
	mu := p.powers()
	return PyramidFocalLengths{
		Outer:         p.OuterFocalLength,
		UpperInner:    r / math.Hypot(r, h2) / mu.upper,
		LowerInner:    r / math.Hypot(r, h1) / mu.lower,
		Base:          -1 / mu.base,
		UpperVertical: -p.OuterFocalLength * math.Hypot(h, r) / (2 * h * math.Sin(math.Pi/float64(p.Sides))),
	}, nil
}

// onAxis images height z through a lens at height zk with on-axis power mu.
func onAxis(z, zk, mu float64) (float64, error) {
	den := 1 + mu*(z-zk)
	if geom.NearlyZero(den, 1e-12) {
		return 0, optics.ErrImageAtInfinity
	}
	return zk + (z-zk)/den, nil
}

// Vertices computes the physical and EM vertices.
func (p *PyramidCloak) Vertices() (PyramidVertices, error) {
	if p.Sides < 3 {
		return PyramidVertices{}, ErrTooFewSides
	}
	f, err := geom.NewFrame(p.Centre, p.Axis, p.Dir)
	if err != nil {
		return PyramidVertices{}, err
	}
	h, h1, h2 := p.heights()
	mu := p.powers()

	upperEM, err := onAxis(h2, h, mu.outer)
	if err != nil {
		return PyramidVertices{}, fmt.Errorf("upper inner vertex: %w", err)
	}
	lowerMid, err := onAxis(h1, h2, mu.upper)
	if err != nil {
		return PyramidVertices{}, fmt.Errorf("lower inner vertex: %w", err)
	}
	lowerEM, err := onAxis(lowerMid, h, mu.outer)
	if err != nil {
		return PyramidVertices{}, fmt.Errorf("lower inner vertex: %w", err)
	}

	at := func(z float64) r3.Vec { return f.ToWorld(z, 0, 0) }
	return PyramidVertices{
		Frame:   f,
		Apex:    at(h),
		Upper:   at(h2),
		Lower:   at(h1),
		UpperEM: at(upperEM),
		LowerEM: at(lowerEM),
		Base:    geom.RegularPolygon(p.Centre, f.V, f.W, p.Radius, p.Sides),
	}, nil
}

func baseName(i int) string { return fmt.Sprintf("B%d", i) }

// Topology lays out N upper and N middle cells, one per base edge, and a
// single lower cell above the base.
func (p *PyramidCloak) Topology() (*Topology, error) {
	v, err := p.Vertices()
	if err != nil {
		return nil, err
	}
	n := p.Sides
	t := &Topology{Name: p.Name()}
	t.Vertices = []Vertex{
		{Name: "T", Pos: v.Apex, EM: v.Apex},
		{Name: "U", Pos: v.Upper, EM: v.UpperEM},
		{Name: "L", Pos: v.Lower, EM: v.LowerEM},
	}
	base := make([]string, n)
	for i, b := range v.Base {
		base[i] = baseName(i)
		t.Vertices = append(t.Vertices, Vertex{Name: base[i], Pos: b, EM: b})
	}

	top := func(i int) string { return fmt.Sprintf("upper %d", (i+n)%n) }
	mid := func(i int) string { return fmt.Sprintf("middle %d", (i+n)%n) }
	for i := 0; i < n; i++ {
		b0, b1 := base[i], base[(i+1)%n]
		t.Cells = append(t.Cells,
			Cell{Name: top(i), Vertices: []string{"T", "U", b0, b1}},
			Cell{Name: mid(i), Vertices: []string{"U", "L", b0, b1}},
		)
	}
	t.Cells = append(t.Cells, Cell{Name: "lower", Vertices: append([]string{"L"}, base...)})

	for i := 0; i < n; i++ {
		b0, b1 := base[i], base[(i+1)%n]
		t.Faces = append(t.Faces,
			Face{Name: fmt.Sprintf("outer %d", i), Vertices: []string{"T", b0, b1}, Inner: top(i), Outer: Outside},
			Face{Name: fmt.Sprintf("upper inner %d", i), Vertices: []string{"U", b0, b1}, Inner: mid(i), Outer: top(i)},
			Face{Name: fmt.Sprintf("lower inner %d", i), Vertices: []string{"L", b0, b1}, Inner: "lower", Outer: mid(i)},
		)
	}
	t.Faces = append(t.Faces, Face{Name: "base", Vertices: base, Inner: "lower", Outer: Outside})
	for i := 0; i < n; i++ {
		t.Faces = append(t.Faces,
			Face{Name: fmt.Sprintf("upper vertical %d", i), Vertices: []string{"T", "U", base[i]}, Inner: top(i - 1), Outer: top(i)},
			Face{Name: fmt.Sprintf("middle vertical %d", i), Vertices: []string{"U", "L", base[i]}, Inner: mid(i - 1), Outer: mid(i)},
		)
	}

	maps, err := p.cellMaps(t, v)
	if err != nil {
		return nil, err
	}
	t.Maps = maps
	return t, nil
}

// cellMaps composes the closed-form lenses into cell maps. Each layer's
// lens has its principal point on the axis and the face normal as its
// optical axis, with f = (axis·normal)/μ.
func (p *PyramidCloak) cellMaps(t *Topology, v PyramidVertices) (map[string]optics.Collineation, error) {
	mu := p.powers()
	axis := v.Frame.U
	lens := func(face string, principal r3.Vec, power float64) (optics.Collineation, error) {
		var f Face
		for _, x := range t.Faces {
			if x.Name == face {
				f = x
			}
		}
		pl, _, err := t.FacePlane(f)
		if err != nil {
			return optics.Collineation{}, err
		}
		return optics.NewIdealLens(principal, pl.Normal, r3.Dot(pl.Normal, axis)/power).Collineation(), nil
	}

	maps := make(map[string]optics.Collineation)
	for i := 0; i < p.Sides; i++ {
		out, err := lens(fmt.Sprintf("outer %d", i), v.Apex, mu.outer)
		if err != nil {
			return nil, err
		}
		upper, err := lens(fmt.Sprintf("upper inner %d", i), v.Upper, mu.upper)
		if err != nil {
			return nil, err
		}
		maps[fmt.Sprintf("upper %d", i)] = out
		maps[fmt.Sprintf("middle %d", i)] = upper.Then(out)
	}
	base, err := lens("base", v.Frame.Origin, mu.base)
	if err != nil {
		return nil, err
	}
	maps["lower"] = base
	return maps, nil
}
