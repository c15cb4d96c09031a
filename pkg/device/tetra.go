package device

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// TetraCloak is a cloak shaped like a regular tetrahedron whose corners are
// alternating corners of a cube of side Size. The inner tetrahedron,
// scaled by InnerFraction about the centre, appears scaled by
// InnerEMFraction instead. Outer and inner faces are glenses, the diagonal
// faces between the four frustums are ideal lenses.
type TetraCloak struct {
	Centre          r3.Vec
	Size            float64
	InnerFraction   float64
	InnerEMFraction float64

	Display
}

// DefaultTetraCloak returns a cloak in a unit cube whose inner tetrahedron
// appears at two fifths of its physical size.
func DefaultTetraCloak() *TetraCloak {
	return &TetraCloak{
		Size:            1,
		InnerFraction:   0.5,
		InnerEMFraction: 0.2,
		Display:         DefaultDisplay(),
	}
}

func (c *TetraCloak) Name() string     { return "tetra-cloak" }
func (c *TetraCloak) Options() Display { return c.Display }

var tetraCorners = [4]struct {
	name string
	dir  r3.Vec
}{
	{"A", r3.Vec{X: 1, Y: 1, Z: 1}},
	{"B", r3.Vec{X: 1, Y: -1, Z: -1}},
	{"C", r3.Vec{X: -1, Y: 1, Z: -1}},
	{"D", r3.Vec{X: -1, Y: -1, Z: 1}},
}

// Topology returns the corners, one inner cell and four frustum cells. All
// cell maps are closed form: the inner cell is a homothety about the centre
// and each frustum the glens in its outer face that images the inner
// vertices onto their EM positions.
func (c *TetraCloak) Topology() (*Topology, error) {
	t := &Topology{Name: c.Name()}
	outer := make([]string, 4)
	inner := make([]string, 4)
	for i, k := range tetraCorners {
		p := r3.Add(c.Centre, r3.Scale(c.Size/2, k.dir))
		outer[i] = k.name
		inner[i] = strings.ToLower(k.name)
		t.Vertices = append(t.Vertices,
			Vertex{Name: outer[i], Pos: p, EM: p},
		)
	}
	for i, k := range tetraCorners {
		d := r3.Scale(c.Size/2, k.dir)
		t.Vertices = append(t.Vertices, Vertex{
			Name: inner[i],
			Pos:  r3.Add(c.Centre, r3.Scale(c.InnerFraction, d)),
			EM:   r3.Add(c.Centre, r3.Scale(c.InnerEMFraction, d)),
		})
	}

	// Face k is opposite corner k.
	others := func(k int) []int {
		var o []int
		for i := 0; i < 4; i++ {
			if i != k {
				o = append(o, i)
			}
		}
		return o
	}
	pick := func(names []string, idx []int) []string {
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = names[j]
		}
		return out
	}
	frustum := func(k int) string { return "frustum " + outer[k] }

	t.Cells = append(t.Cells, Cell{Name: "inner", Vertices: inner})
	for k := 0; k < 4; k++ {
		o := others(k)
		t.Cells = append(t.Cells, Cell{Name: frustum(k), Vertices: append(pick(outer, o), pick(inner, o)...)})
	}
	for k := 0; k < 4; k++ {
		o := others(k)
		t.Faces = append(t.Faces,
			Face{Name: "outer " + strings.Join(pick(outer, o), ""), Vertices: pick(outer, o), Inner: frustum(k), Outer: Outside},
			Face{Name: "inner " + strings.Join(pick(inner, o), ""), Vertices: pick(inner, o), Inner: "inner", Outer: frustum(k)},
		)
	}
	// The edge between corners i and j is shared by the faces opposite the
	// two remaining corners.
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			var rest []int
			for k := 0; k < 4; k++ {
				if k != i && k != j {
					rest = append(rest, k)
				}
			}
			t.Faces = append(t.Faces, Face{
				Name:     fmt.Sprintf("diagonal %s%s", outer[i], outer[j]),
				Vertices: []string{outer[i], outer[j], inner[j], inner[i]},
				Inner:    frustum(rest[0]),
				Outer:    frustum(rest[1]),
			})
		}
	}

	maps, err := c.cellMaps(t)
	if err != nil {
		return nil, err
	}
	t.Maps = maps
	return t, nil
}

func (c *TetraCloak) cellMaps(t *Topology) (map[string]optics.Collineation, error) {
	rho := c.InnerEMFraction / c.InnerFraction

	a := mat.NewDense(3, 3, []float64{rho, 0, 0, 0, rho, 0, 0, 0, rho})
	maps := map[string]optics.Collineation{
		"inner": optics.Affine(a, r3.Scale(1-rho, c.Centre)),
	}
	// Each frustum map is the glens in the outer face that takes two of the
	// frustum's inner vertices to their EM positions. Along every ray from
	// the centre it moves the inner face onto its EM position, so the third
	// inner vertex must follow.
	tol := 1e-9 * math.Max(1, c.Size)
	for _, f := range t.Faces[:8] {
		if f.Outer != Outside {
			continue
		}
		pl, _, err := t.FacePlane(f)
		if err != nil {
			return nil, err
		}
		cell, ok := t.Cell(f.Inner)
		if !ok {
			return nil, fmt.Errorf("%q: %w", f.Inner, ErrUnknownCell)
		}
		var pos, em [3]r3.Vec
		for i, name := range cell.Vertices[3:] {
			v, err := t.Vertex(name)
			if err != nil {
				return nil, err
			}
			pos[i], em[i] = v.Pos, v.EM
		}
		g, err := optics.GlensFromConjugatePairs(pl, [2]r3.Vec{pos[0], pos[1]}, [2]r3.Vec{em[0], em[1]})
		if err != nil {
			return nil, fmt.Errorf("face %q: %w", f.Name, err)
		}
		m := g.Collineation()
		got, err := m.Apply(pos[2])
		if err != nil {
			return nil, fmt.Errorf("face %q: %w", f.Name, err)
		}
		if !geom.Near(got, em[2], tol) {
			return nil, fmt.Errorf("face %q images %v to %v, not %v: %w", f.Name, pos[2], got, em[2], optics.ErrNotRealizable)
		}
		maps[f.Inner] = m
	}
	return maps, nil
}
