package device

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrGluingNotSupported is returned for unknown gluings.
var ErrGluingNotSupported = errors.New("device: wedge gluing not supported")

// Gluing selects how the two faces of a space-cancelling wedge are joined.
type Gluing int

const (
	NegativeSpaceWedges Gluing = iota
	NegativeSpaceWedgesSymmetric
	NegativeSpaceWedgesWithContainmentMirrors
	PerfectTeleportation
)

func (g Gluing) String() string {
	switch g {
	case NegativeSpaceWedges:
		return "negative-space-wedges"
	case NegativeSpaceWedgesSymmetric:
		return "negative-space-wedges-symmetric"
	case NegativeSpaceWedgesWithContainmentMirrors:
		return "negative-space-wedges-with-containment-mirrors"
	case PerfectTeleportation:
		return "perfect-teleportation"
	default:
		return fmt.Sprintf("Gluing(%d)", int(g))
	}
}

// ParseGluing is the inverse of Gluing.String.
func ParseGluing(s string) (Gluing, bool) {
	for g := NegativeSpaceWedges; g <= PerfectTeleportation; g++ {
		if g.String() == s {
			return g, true
		}
	}
	return 0, false
}

// SpaceCancellingWedge removes a wedge of space: light entering one face is
// handed on to the other face as if the wedge between them did not exist.
// The faces are rectangles of Length along the edge and Width away from it,
// meeting at the edge through Apex at an angle Angle, symmetric about
// Bisector.
type SpaceCancellingWedge struct {
	Apex     r3.Vec // centre of the wedge edge
	EdgeDir  r3.Vec
	Bisector r3.Vec // from the edge into the wedge
	Angle    float64
	Length   float64
	Width    float64
	Gluing   Gluing

	Display
}

// DefaultSpaceCancellingWedge returns a 60 degree wedge with teleporting
// faces.
func DefaultSpaceCancellingWedge() *SpaceCancellingWedge {
	return &SpaceCancellingWedge{
		EdgeDir:  r3.Vec{Z: 1},
		Bisector: r3.Vec{X: 1},
		Angle:    math.Pi / 3,
		Length:   1,
		Width:    1,
		Gluing:   PerfectTeleportation,
		Display:  DefaultDisplay(),
	}
}

func (w *SpaceCancellingWedge) Name() string     { return "space-cancelling-wedge" }
func (w *SpaceCancellingWedge) Options() Display { return w.Display }

// Frames returns the right-handed frames of the two faces. U runs along the
// edge, V away from it within the face. Face 1's W points out of the wedge;
// face 2's frame is face 1's rotated by -Angle about the edge, so its W
// points into the wedge.
func (w *SpaceCancellingWedge) Frames() (geom.Frame, geom.Frame, error) {
	f, err := geom.NewFrame(w.Apex, w.EdgeDir, w.Bisector)
	if err != nil {
		return geom.Frame{}, geom.Frame{}, err
	}
	v1 := r3.Rotate(f.V, w.Angle/2, f.U)
	f1 := geom.Frame{Origin: w.Apex, U: f.U, V: v1, W: r3.Cross(f.U, v1)}
	rot := func(v r3.Vec) r3.Vec { return r3.Rotate(v, -w.Angle, f.U) }
	f2 := geom.Frame{Origin: w.Apex, U: f1.U, V: rot(f1.V), W: rot(f1.W)}
	return f1, f2, nil
}

// Beyond is the cell on the far side of face 2 in the negative-space
// gluings. Its map rotates it by Angle about the edge, which is where it
// appears when looking through face 1.
const Beyond = "beyond"

// Topology returns the faces of the chosen gluing. Perfect teleportation
// needs no cells. The negative-space gluings fill the wedge with cells
// bounded by planes through the edge, solved by image chasing.
func (w *SpaceCancellingWedge) Topology() (*Topology, error) {
	if w.Angle <= 0 || w.Angle >= math.Pi {
		return nil, fmt.Errorf("wedge angle %v outside (0, π)", w.Angle)
	}
	switch w.Gluing {
	case PerfectTeleportation:
		return w.teleporting()
	case NegativeSpaceWedges, NegativeSpaceWedgesWithContainmentMirrors:
		// One fold cell cancels the whole angle next to face 1.
		return w.negativeSpace([]wedgePlane{
			{w.Angle / 2, 0},
			{0, w.Angle},
			{-w.Angle / 2, w.Angle},
		})
	case NegativeSpaceWedgesSymmetric:
		// A fold cell next to each face cancels half the angle; the cell
		// between them is rotated by half the angle.
		return w.negativeSpace([]wedgePlane{
			{w.Angle / 2, 0},
			{w.Angle / 4, w.Angle / 2},
			{-w.Angle / 4, w.Angle / 2},
			{-w.Angle / 2, w.Angle},
		})
	default:
		return nil, fmt.Errorf("%s: %w", w.Gluing, ErrGluingNotSupported)
	}
}

// wedgePlane is a half plane through the edge at angle theta from the
// bisector, whose points appear rotated by turn about the edge.
type wedgePlane struct {
	theta, turn float64
}

func (w *SpaceCancellingWedge) teleporting() (*Topology, error) {
	f1, f2, err := w.Frames()
	if err != nil {
		return nil, err
	}
	h := w.Length / 2
	t := &Topology{Name: w.Name()}
	t.Vertices = []Vertex{
		{Name: "E0", Pos: f1.ToWorld(-h, 0, 0)},
		{Name: "E1", Pos: f1.ToWorld(h, 0, 0)},
		{Name: "F1a", Pos: f1.ToWorld(-h, w.Width, 0)},
		{Name: "F1b", Pos: f1.ToWorld(h, w.Width, 0)},
		{Name: "F2a", Pos: f2.ToWorld(-h, w.Width, 0)},
		{Name: "F2b", Pos: f2.ToWorld(h, w.Width, 0)},
	}
	for i := range t.Vertices {
		t.Vertices[i].EM = t.Vertices[i].Pos
	}
	t.Faces = []Face{
		{
			Name:     "face 1",
			Vertices: []string{"E0", "E1", "F1b", "F1a"},
			Outward:  f1.W,
			Surface:  &optics.Teleporting{From: f1, To: f2},
		},
		{
			Name:     "face 2",
			Vertices: []string{"E0", "E1", "F2b", "F2a"},
			Outward:  r3.Scale(-1, f2.W),
			Surface:  &optics.Teleporting{From: f2, To: f1},
		},
	}
	return t, nil
}

// negativeSpace builds cells between consecutive planes, from face 1 to
// face 2. Each cell maps affinely onto the region between the rotated
// images of its planes; where the rotation grows faster than the physical
// angle shrinks the cell is folded over face 1 into negative space.
func (w *SpaceCancellingWedge) negativeSpace(planes []wedgePlane) (*Topology, error) {
	f, err := geom.NewFrame(w.Apex, w.EdgeDir, w.Bisector)
	if err != nil {
		return nil, err
	}
	h := w.Length / 2
	t := &Topology{Name: w.Name()}
	t.Vertices = []Vertex{
		{Name: "E0", Pos: f.ToWorld(-h, 0, 0), EM: f.ToWorld(-h, 0, 0)},
		{Name: "E1", Pos: f.ToWorld(h, 0, 0), EM: f.ToWorld(h, 0, 0)},
	}

	last := len(planes) - 1
	label := func(j int) string {
		switch j {
		case 0:
			return "F1"
		case last:
			return "F2"
		default:
			return fmt.Sprintf("W%d", j)
		}
	}
	dirs := make([]r3.Vec, len(planes))
	for j, p := range planes {
		dirs[j] = r3.Rotate(f.V, p.theta, f.U)
		turn := rotationAbout(w.Apex, f.U, p.turn)
		for _, end := range []struct {
			suffix string
			u      float64
		}{{"a", -h}, {"b", h}} {
			pos := r3.Add(f.ToWorld(end.u, 0, 0), r3.Scale(w.Width, dirs[j]))
			em, err := turn.Apply(pos)
			if err != nil {
				return nil, err
			}
			t.Vertices = append(t.Vertices, Vertex{Name: label(j) + end.suffix, Pos: pos, EM: em})
		}
	}

	cell := func(j int) string { return fmt.Sprintf("wedge %d", j+1) }
	side := func(j int) []string { return []string{"E0", "E1", label(j) + "b", label(j) + "a"} }
	for j := 0; j < last; j++ {
		t.Cells = append(t.Cells, Cell{
			Name:     cell(j),
			Vertices: []string{"E0", "E1", label(j) + "a", label(j) + "b", label(j+1) + "a", label(j+1) + "b"},
		})
	}
	t.Cells = append(t.Cells, Cell{Name: Beyond, Vertices: side(last)})

	f1 := r3.Cross(f.U, dirs[0])
	f2 := r3.Cross(f.U, dirs[last])
	t.Faces = append(t.Faces, Face{
		Name: "face 1", Vertices: side(0), Inner: cell(0), Outer: Outside,
		Outward: f1, Solve: SolveGCLA,
	})
	for j := 1; j < last; j++ {
		t.Faces = append(t.Faces, Face{
			Name: fmt.Sprintf("wedge face %d", j), Vertices: side(j), Inner: cell(j - 1), Outer: cell(j),
			Outward: r3.Scale(-1, r3.Cross(f.U, dirs[j])), Solve: SolveGCLA,
		})
	}
	t.Faces = append(t.Faces, Face{
		Name: "face 2", Vertices: side(last), Inner: cell(last - 1), Outer: Beyond,
		Outward: r3.Scale(-1, f2), Solve: SolveGCLA,
	})

	if w.Gluing == NegativeSpaceWedgesWithContainmentMirrors {
		mirrors, err := w.containment(t, f, dirs, cell)
		if err != nil {
			return nil, err
		}
		t.Faces = append(t.Faces, mirrors...)
	}

	t.Maps = map[string]optics.Collineation{Beyond: rotationAbout(w.Apex, f.U, planes[last].turn)}
	return t, nil
}

// containment closes every cell with mirrors on its rim and its two ends,
// so that light entering through face 1 can only leave through face 2.
func (w *SpaceCancellingWedge) containment(t *Topology, f geom.Frame, dirs []r3.Vec, cell func(int) string) ([]Face, error) {
	var faces []Face
	add := func(name, inner string, vertices []string, out r3.Vec) error {
		pts, err := t.Positions(vertices)
		if err != nil {
			return err
		}
		pl := geom.NewPlane(pts[0], geom.Normal(pts, out))
		faces = append(faces, Face{
			Name: name, Vertices: vertices, Inner: inner, Outer: Outside,
			Outward: out, Surface: &optics.Mirror{Surf: pl, Coat: optics.DefaultCoating},
		})
		return nil
	}
	// Plane j has vertices 2+2j (a end) and 3+2j (b end).
	name := func(i int) string { return t.Vertices[i].Name }
	for j := 0; j+1 < len(dirs); j++ {
		a0, b0, a1, b1 := name(2+2*j), name(3+2*j), name(4+2*j), name(5+2*j)
		rim := geom.Unit(r3.Add(dirs[j], dirs[j+1]))
		if err := add(fmt.Sprintf("rim %d", j+1), cell(j), []string{a0, b0, b1, a1}, rim); err != nil {
			return nil, err
		}
		if err := add(fmt.Sprintf("end %da", j+1), cell(j), []string{"E0", a0, a1}, r3.Scale(-1, f.U)); err != nil {
			return nil, err
		}
		if err := add(fmt.Sprintf("end %db", j+1), cell(j), []string{"E1", b0, b1}, f.U); err != nil {
			return nil, err
		}
	}
	return faces, nil
}

// rotationAbout returns the rotation by angle about the line through p
// along axis.
func rotationAbout(p, axis r3.Vec, angle float64) optics.Collineation {
	a := mat.NewDense(3, 3, nil)
	for j, e := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		r := r3.Rotate(e, angle, axis)
		a.Set(0, j, r.X)
		a.Set(1, j, r.Y)
		a.Set(2, j, r.Z)
	}
	return optics.Affine(a, r3.Sub(p, r3.Rotate(p, angle, axis)))
}
