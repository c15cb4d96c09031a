package device

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInconsistentComplex is returned when vertices and edges cannot form a
// lens simplicial complex.
var ErrInconsistentComplex = errors.New("device: inconsistent simplicial complex")

// LensSimplicialComplex is a device given by vertices, their EM positions
// and edges. Triangles are the 3-cliques of the edge graph, cells the
// 4-cliques that contain no other vertex. Every face is an ideal lens,
// solved by image chasing from the outside.
//
// The fields may be edited between builds; triangles and cells are derived
// from them again every time.
type LensSimplicialComplex struct {
	// Names may be nil, in which case vertices are called V0, V1, and so on.
	Names    []string
	Vertices []r3.Vec
	// VerticesEM may be nil, in which case every vertex images to itself.
	VerticesEM []r3.Vec
	Edges      [][2]int

	Display
}

// simplices is a consistent reading of a complex's current fields.
type simplices struct {
	names     []string
	vertices  []r3.Vec
	em        []r3.Vec
	triangles [][3]int
	cells     [][4]int
}

// NewSimplicialComplex returns the complex after checking that it is
// consistent.
func NewSimplicialComplex(names []string, vertices, verticesEM []r3.Vec, edges [][2]int) (*LensSimplicialComplex, error) {
	c := &LensSimplicialComplex{
		Names:      names,
		Vertices:   vertices,
		VerticesEM: verticesEM,
		Edges:      edges,
		Display:    DefaultDisplay(),
	}
	s, err := c.derive()
	if err != nil {
		return nil, err
	}
	c.Names, c.VerticesEM = s.names, s.em
	return c, nil
}

// derive checks the edges against the vertices and finds triangles and
// cells.
func (c *LensSimplicialComplex) derive() (*simplices, error) {
	n := len(c.Vertices)
	s := &simplices{names: c.Names, vertices: c.Vertices, em: c.VerticesEM}
	if s.names == nil {
		s.names = make([]string, n)
		for i := range s.names {
			s.names[i] = fmt.Sprintf("V%d", i)
		}
	}
	if s.em == nil {
		s.em = append([]r3.Vec(nil), c.Vertices...)
	}
	if len(s.names) != n || len(s.em) != n {
		return nil, fmt.Errorf("%d vertices, %d names, %d EM positions: %w", n, len(s.names), len(s.em), ErrInconsistentComplex)
	}
	seen := make(map[string]bool, n)
	for _, name := range s.names {
		if seen[name] {
			return nil, fmt.Errorf("vertex name %q used twice: %w", name, ErrInconsistentComplex)
		}
		seen[name] = true
	}

	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for _, e := range c.Edges {
		a, b := e[0], e[1]
		switch {
		case a < 0 || a >= n || b < 0 || b >= n:
			return nil, fmt.Errorf("edge %v references a vertex outside 0..%d: %w", e, n-1, ErrInconsistentComplex)
		case a == b:
			return nil, fmt.Errorf("edge %v joins a vertex to itself: %w", e, ErrInconsistentComplex)
		case adj[a][b]:
			return nil, fmt.Errorf("edge %v given twice: %w", e, ErrInconsistentComplex)
		}
		adj[a][b], adj[b][a] = true, true
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !adj[i][j] {
				continue
			}
			for k := j + 1; k < n; k++ {
				if !adj[i][k] || !adj[j][k] {
					continue
				}
				s.triangles = append(s.triangles, [3]int{i, j, k})
				for l := k + 1; l < n; l++ {
					if adj[i][l] && adj[j][l] && adj[k][l] && s.isCell(i, j, k, l) {
						s.cells = append(s.cells, [4]int{i, j, k, l})
					}
				}
			}
		}
	}
	if len(s.cells) == 0 {
		return nil, fmt.Errorf("no tetrahedral cells: %w", ErrInconsistentComplex)
	}
	for _, tri := range s.triangles {
		if m := len(s.cellsOf(tri)); m > 2 {
			return nil, fmt.Errorf("triangle %s bounds %d cells: %w", s.label(tri[:]), m, ErrInconsistentComplex)
		}
	}
	return s, nil
}

// MustSimplicialComplex is like NewSimplicialComplex but panics on error.
func MustSimplicialComplex(names []string, vertices, verticesEM []r3.Vec, edges [][2]int) *LensSimplicialComplex {
	c, err := NewSimplicialComplex(names, vertices, verticesEM, edges)
	if err != nil {
		panic(err)
	}
	return c
}

// OmnidirectionalLens returns the built-in six-vertex, fourteen-edge
// complex: a triangular-based pyramid with two inner vertices on its axis.
// The EM positions of the inner vertices are those of the matching
// three-sided pyramid cloak, which makes every face an ideal lens.
func OmnidirectionalLens() *LensSimplicialComplex {
	p := DefaultPyramidCloak()
	p.Sides = 3
	v, err := p.Vertices()
	if err != nil {
		panic(err)
	}
	names := []string{"T", "U", "L", "B0", "B1", "B2"}
	pos := []r3.Vec{v.Apex, v.Upper, v.Lower, v.Base[0], v.Base[1], v.Base[2]}
	em := []r3.Vec{v.Apex, v.UpperEM, v.LowerEM, v.Base[0], v.Base[1], v.Base[2]}
	edges := [][2]int{
		{3, 4}, {4, 5}, {5, 3}, // base
		{0, 3}, {0, 4}, {0, 5}, // apex
		{1, 3}, {1, 4}, {1, 5}, // upper inner vertex
		{2, 3}, {2, 4}, {2, 5}, // lower inner vertex
		{0, 1}, {1, 2}, // axis
	}
	return MustSimplicialComplex(names, pos, em, edges)
}

func (c *LensSimplicialComplex) Name() string     { return "lens-simplicial-complex" }
func (c *LensSimplicialComplex) Options() Display { return c.Display }

// Triangles returns the 3-cliques of the edge graph, or nil if the complex
// is inconsistent.
func (c *LensSimplicialComplex) Triangles() [][3]int {
	s, err := c.derive()
	if err != nil {
		return nil
	}
	return s.triangles
}

// Cells returns the tetrahedral cells, or nil if the complex is
// inconsistent.
func (c *LensSimplicialComplex) Cells() [][4]int {
	s, err := c.derive()
	if err != nil {
		return nil
	}
	return s.cells
}

// isCell reports whether the tetrahedron ijkl has volume and no other vertex
// strictly inside.
func (s *simplices) isCell(i, j, k, l int) bool {
	p := s.vertices
	e1, e2, e3 := r3.Sub(p[j], p[i]), r3.Sub(p[k], p[i]), r3.Sub(p[l], p[i])
	vol := r3.Dot(e1, r3.Cross(e2, e3))
	size := math.Max(r3.Norm(e1), math.Max(r3.Norm(e2), r3.Norm(e3)))
	if math.Abs(vol) <= geom.Eps*size*size*size {
		return false
	}
	m := mat.NewDense(3, 3, []float64{
		e1.X, e2.X, e3.X,
		e1.Y, e2.Y, e3.Y,
		e1.Z, e2.Z, e3.Z,
	})
	var lu mat.LU
	lu.Factorize(m)
	for q := range p {
		if q == i || q == j || q == k || q == l {
			continue
		}
		d := r3.Sub(p[q], p[i])
		var x mat.VecDense
		if err := lu.SolveVecTo(&x, false, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z})); err != nil {
			continue
		}
		b1, b2, b3 := x.AtVec(0), x.AtVec(1), x.AtVec(2)
		const eps = 1e-9
		if b1 > eps && b2 > eps && b3 > eps && b1+b2+b3 < 1-eps {
			return false
		}
	}
	return true
}

func (s *simplices) cellsOf(tri [3]int) []int {
	var out []int
	for ci, cell := range s.cells {
		n := 0
		for _, v := range cell {
			if v == tri[0] || v == tri[1] || v == tri[2] {
				n++
			}
		}
		if n == 3 {
			out = append(out, ci)
		}
	}
	return out
}

func (s *simplices) label(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = s.names[v]
	}
	return strings.Join(parts, "-")
}

// Topology turns every cell into a device cell and every triangle bounding
// at least one cell into a face. Boundary triangles face the outside.
func (c *LensSimplicialComplex) Topology() (*Topology, error) {
	s, err := c.derive()
	if err != nil {
		return nil, err
	}
	t := &Topology{Name: c.Name()}
	for i, p := range s.vertices {
		t.Vertices = append(t.Vertices, Vertex{Name: s.names[i], Pos: p, EM: s.em[i]})
	}
	cellName := func(ci int) string { return "cell " + s.label(s.cells[ci][:]) }
	for ci, cell := range s.cells {
		vs := make([]string, 4)
		for i, v := range cell {
			vs[i] = s.names[v]
		}
		t.Cells = append(t.Cells, Cell{Name: cellName(ci), Vertices: vs})
	}
	for _, tri := range s.triangles {
		cells := s.cellsOf(tri)
		if len(cells) == 0 {
			continue
		}
		f := Face{
			Name:     "face " + s.label(tri[:]),
			Vertices: []string{s.names[tri[0]], s.names[tri[1]], s.names[tri[2]]},
			Inner:    cellName(cells[0]),
			Outer:    Outside,
		}
		if len(cells) == 2 {
			f.Outer = cellName(cells[1])
		}
		t.Faces = append(t.Faces, f)
	}
	for _, e := range c.Edges {
		t.ExtraEdges = append(t.ExtraEdges, [2]string{s.names[e[0]], s.names[e[1]]})
	}
	return t, nil
}
