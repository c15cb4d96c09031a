package device

import (
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// PinchWindow is a bipyramid over a regular N-gon whose centre appears
// pulled towards the front apex. Space around the centre is funnelled
// towards the viewer on the front side while every outer vertex stays put.
//
// All cell maps are glenses with their nodal point at the front apex, so
// the faces meeting at the front apex and the radial faces are ideal lenses
// and the back and base faces glenses.
type PinchWindow struct {
	Centre r3.Vec
	Axis   r3.Vec // from the centre towards the front apex
	Dir    r3.Vec // from the centre towards ring vertex 0
	Sides  int
	Radius float64 // circumradius of the ring
	Depth  float64 // distance of either apex from the centre
	// Pinch is the fraction of the way from the centre to the front apex
	// at which the centre appears, in [0, 1).
	Pinch float64

	Display
}

// DefaultPinchWindow returns a square window pinched four tenths of the way
// to its front apex.
func DefaultPinchWindow() *PinchWindow {
	return &PinchWindow{
		Axis:    r3.Vec{Z: 1},
		Dir:     r3.Vec{X: 1},
		Sides:   4,
		Radius:  1,
		Depth:   0.5,
		Pinch:   0.4,
		Display: DefaultDisplay(),
	}
}

func (w *PinchWindow) Name() string     { return "pinch-window" }
func (w *PinchWindow) Options() Display { return w.Display }

// Topology returns a front and a back cell for every ring edge.
func (w *PinchWindow) Topology() (*Topology, error) {
	switch {
	case w.Sides < 3:
		return nil, ErrTooFewSides
	case w.Radius <= 0 || w.Depth <= 0:
		return nil, fmt.Errorf("pinch window radius %v and depth %v must be positive", w.Radius, w.Depth)
	case w.Pinch < 0 || w.Pinch >= 1:
		return nil, fmt.Errorf("pinch %v outside [0, 1)", w.Pinch)
	}
	f, err := geom.NewFrame(w.Centre, w.Axis, w.Dir)
	if err != nil {
		return nil, err
	}

	front := f.ToWorld(w.Depth, 0, 0)
	back := f.ToWorld(-w.Depth, 0, 0)
	t := &Topology{Name: w.Name()}
	t.Vertices = []Vertex{
		{Name: "F", Pos: front, EM: front},
		{Name: "K", Pos: back, EM: back},
		{Name: "O", Pos: w.Centre, EM: geom.Lerp(w.Centre, front, w.Pinch)},
	}
	ring := make([]string, w.Sides)
	for i, p := range geom.RegularPolygon(w.Centre, f.V, f.W, w.Radius, w.Sides) {
		ring[i] = fmt.Sprintf("R%d", i)
		t.Vertices = append(t.Vertices, Vertex{Name: ring[i], Pos: p, EM: p})
	}

	n := w.Sides
	cell := func(side string, i int) string { return fmt.Sprintf("%s %d", side, (i+n)%n) }
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		t.Cells = append(t.Cells,
			Cell{Name: cell("front", i), Vertices: []string{"F", "O", a, b}},
			Cell{Name: cell("back", i), Vertices: []string{"K", "O", a, b}},
		)
		t.Faces = append(t.Faces,
			Face{Name: fmt.Sprintf("front outer %d", i), Vertices: []string{"F", a, b}, Inner: cell("front", i), Outer: Outside},
			Face{Name: fmt.Sprintf("back outer %d", i), Vertices: []string{"K", a, b}, Inner: cell("back", i), Outer: Outside},
			Face{Name: fmt.Sprintf("front radial %d", i), Vertices: []string{"F", "O", a}, Inner: cell("front", i), Outer: cell("front", i-1)},
			Face{Name: fmt.Sprintf("back radial %d", i), Vertices: []string{"K", "O", a}, Inner: cell("back", i), Outer: cell("back", i-1)},
			Face{Name: fmt.Sprintf("base %d", i), Vertices: []string{"O", a, b}, Inner: cell("front", i), Outer: cell("back", i)},
		)
	}

	maps, err := w.cellMaps(t, front)
	if err != nil {
		return nil, err
	}
	t.Maps = maps
	return t, nil
}

// cellMaps gives every cell the glens in its outer face, with its nodal
// point at the front apex, that images the centre onto its EM position.
// Two cells sharing a face through the front apex agree on that face, and
// so do the front and back cell over one ring edge, since both map the base
// plane by central projection from the front apex.
func (w *PinchWindow) cellMaps(t *Topology, front r3.Vec) (map[string]optics.Collineation, error) {
	o, err := t.Vertex("O")
	if err != nil {
		return nil, err
	}
	maps := make(map[string]optics.Collineation, len(t.Cells))
	for _, f := range t.Faces {
		if f.Outer != Outside {
			continue
		}
		pl, _, err := t.FacePlane(f)
		if err != nil {
			return nil, err
		}
		g, err := optics.GlensFromConjugatePair(pl, front, o.Pos, o.EM)
		if err != nil {
			return nil, fmt.Errorf("face %q: %w", f.Name, err)
		}
		maps[f.Inner] = g.Collineation()
	}
	return maps, nil
}
