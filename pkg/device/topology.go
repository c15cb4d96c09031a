package device

import (
	"errors"
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// Outside names the region surrounding a device. Its map is the identity.
const Outside = ""

var (
	// ErrUnknownVertex is returned when a cell or face names a vertex that
	// the topology does not define.
	ErrUnknownVertex = errors.New("device: unknown vertex")

	// ErrUnknownCell is returned when a face names an undefined cell.
	ErrUnknownCell = errors.New("device: unknown cell")
)

// Vertex is a named device vertex. EM is where the vertex appears to an
// outside observer; for vertices on the outer surface it equals Pos.
type Vertex struct {
	Name string
	Pos  r3.Vec
	EM   r3.Vec
}

// Cell is a convex region of the device bounded by faces.
type Cell struct {
	Name     string
	Vertices []string
}

// Strategy selects the surface type used when a face is solved from a
// conjugate pair during sequential image chasing.
type Strategy int

const (
	SolveIdealLens Strategy = iota
	SolveGCLA
)

// Face is a flat polygon between two cells. Light travelling from Inner to
// Outer moves along the face normal.
type Face struct {
	Name     string
	Vertices []string
	Inner    string
	Outer    string
	// Outward overrides the reference direction for the normal. When zero
	// the direction from the inner cell's centroid to the face centroid is
	// used.
	Outward r3.Vec
	// Solve is the surface type used if this face is solved sequentially.
	Solve Strategy
	// Surface, when set, is used as is instead of being realised from the
	// cell maps.
	Surface optics.Surface
	// Hidden faces are built but not marked visible.
	Hidden bool
}

// Topology describes a device as vertices, cells and faces.
type Topology struct {
	Name     string
	Vertices []Vertex
	Cells    []Cell
	Faces    []Face
	// Maps holds closed-form cell maps. Cells without an entry are solved
	// by SolveSequential.
	Maps map[string]optics.Collineation
	// ExtraEdges are framed in addition to the face edges.
	ExtraEdges [][2]string

	index map[string]int
}

// Vertex returns the named vertex.
func (t *Topology) Vertex(name string) (Vertex, error) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Vertices))
		for i, v := range t.Vertices {
			t.index[v.Name] = i
		}
	}
	i, ok := t.index[name]
	if !ok {
		return Vertex{}, fmt.Errorf("%q: %w", name, ErrUnknownVertex)
	}
	return t.Vertices[i], nil
}

// Positions returns the physical positions of the named vertices.
func (t *Topology) Positions(names []string) ([]r3.Vec, error) {
	pts := make([]r3.Vec, len(names))
	for i, n := range names {
		v, err := t.Vertex(n)
		if err != nil {
			return nil, err
		}
		pts[i] = v.Pos
	}
	return pts, nil
}

// Cell returns the named cell, or false.
func (t *Topology) Cell(name string) (Cell, bool) {
	for _, c := range t.Cells {
		if c.Name == name {
			return c, true
		}
	}
	return Cell{}, false
}

// Check verifies that every referenced vertex and cell exists and that
// faces are flat.
func (t *Topology) Check(tol float64) error {
	for _, c := range t.Cells {
		if _, err := t.Positions(c.Vertices); err != nil {
			return fmt.Errorf("cell %q: %w", c.Name, err)
		}
	}
	for _, f := range t.Faces {
		pts, err := t.Positions(f.Vertices)
		if err != nil {
			return fmt.Errorf("face %q: %w", f.Name, err)
		}
		for _, cn := range []string{f.Inner, f.Outer} {
			if cn == Outside {
				continue
			}
			if _, ok := t.Cell(cn); !ok {
				return fmt.Errorf("face %q: %q: %w", f.Name, cn, ErrUnknownCell)
			}
		}
		if !geom.Coplanar(pts, tol*scale(pts)) {
			return fmt.Errorf("face %q is not flat", f.Name)
		}
	}
	return nil
}

// FacePlane returns the oriented plane of f. The normal is the cross
// product of the first two edges, flipped to agree with the outward
// reference direction.
func (t *Topology) FacePlane(f Face) (geom.Plane, []r3.Vec, error) {
	pts, err := t.Positions(f.Vertices)
	if err != nil {
		return geom.Plane{}, nil, err
	}
	if len(pts) < 3 {
		return geom.Plane{}, nil, fmt.Errorf("face %q has %d vertices", f.Name, len(pts))
	}
	out := f.Outward
	if out == (r3.Vec{}) {
		out, err = t.outward(f, pts)
		if err != nil {
			return geom.Plane{}, nil, err
		}
	}
	return geom.NewPlane(pts[0], geom.Normal(pts, out)), pts, nil
}

func (t *Topology) outward(f Face, pts []r3.Vec) (r3.Vec, error) {
	centre := geom.Centroid(pts...)
	if f.Inner != Outside {
		c, ok := t.Cell(f.Inner)
		if !ok {
			return r3.Vec{}, fmt.Errorf("face %q: %q: %w", f.Name, f.Inner, ErrUnknownCell)
		}
		cp, err := t.Positions(c.Vertices)
		if err != nil {
			return r3.Vec{}, err
		}
		return r3.Sub(centre, geom.Centroid(cp...)), nil
	}
	c, ok := t.Cell(f.Outer)
	if !ok {
		return r3.Vec{}, fmt.Errorf("face %q has no cells", f.Name)
	}
	cp, err := t.Positions(c.Vertices)
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Sub(geom.Centroid(cp...), centre), nil
}

// Edges returns the distinct edges of all faces plus ExtraEdges, in order of
// first appearance.
func (t *Topology) Edges() [][2]string {
	seen := make(map[[2]string]bool)
	var edges [][2]string
	add := func(a, b string) {
		k := [2]string{a, b}
		if b < a {
			k = [2]string{b, a}
		}
		if a == b || seen[k] {
			return
		}
		seen[k] = true
		edges = append(edges, [2]string{a, b})
	}
	for _, f := range t.Faces {
		for i, v := range f.Vertices {
			add(v, f.Vertices[(i+1)%len(f.Vertices)])
		}
	}
	for _, e := range t.ExtraEdges {
		add(e[0], e[1])
	}
	return edges
}

// adjacent returns the faces touching cell, with the cell on the other side.
func (t *Topology) adjacent(cell string) []faceLink {
	var out []faceLink
	for i, f := range t.Faces {
		switch cell {
		case f.Inner:
			out = append(out, faceLink{face: i, other: f.Outer})
		case f.Outer:
			out = append(out, faceLink{face: i, other: f.Inner})
		}
	}
	return out
}

type faceLink struct {
	face  int
	other string
}

// scale returns a length characteristic of the points.
func scale(pts []r3.Vec) float64 {
	c := geom.Centroid(pts...)
	s := 1.0
	for _, p := range pts {
		if d := r3.Norm(r3.Sub(p, c)); d > s {
			s = d
		}
	}
	return s
}
