package device

import (
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// CubicShiftyCloak makes the inner cube, and anything in it, appear shifted
// by Shift. The shell between the inner and outer cube is split into six
// frustums, one per cube face. The outer and inner faces are GCLAs solved by
// image chasing; the diagonal faces between neighbouring frustums are GCLAs
// realised from the solved frustum maps.
type CubicShiftyCloak struct {
	Centre    r3.Vec
	U, V      r3.Vec // cube edge directions; the third is U x V
	OuterSide float64
	InnerSide float64
	Shift     r3.Vec
	// Apertures marks the GCLAs as having lenslets of finite size.
	Apertures bool

	Display
}

// DefaultCubicShiftyCloak returns a unit cloak shifting by a quarter side.
func DefaultCubicShiftyCloak() *CubicShiftyCloak {
	return &CubicShiftyCloak{
		U:         r3.Vec{X: 1},
		V:         r3.Vec{Y: 1},
		OuterSide: 1,
		InnerSide: 0.5,
		Shift:     r3.Vec{X: 0.25},
		Display:   DefaultDisplay(),
	}
}

func (c *CubicShiftyCloak) Name() string     { return "cubic-shifty-cloak" }
func (c *CubicShiftyCloak) Options() Display { return c.Display }

// cubeSide names one face of a cube: axis 0..2 and sign ±1.
type cubeSide struct {
	axis int
	sign float64
}

func (s cubeSide) String() string {
	sym := "+"
	if s.sign < 0 {
		sym = "-"
	}
	return sym + [3]string{"u", "v", "w"}[s.axis]
}

var cubeSides = []cubeSide{{0, 1}, {0, -1}, {1, 1}, {1, -1}, {2, 1}, {2, -1}}

// corner names a cube corner by the signs of its coordinates.
func corner(prefix string, s [3]float64) string {
	b := []byte(prefix)
	for _, x := range s {
		if x > 0 {
			b = append(b, '+')
		} else {
			b = append(b, '-')
		}
	}
	return string(b)
}

// sideCorners returns the corner signs of one cube face in cyclic order.
func sideCorners(s cubeSide) [][3]float64 {
	a1, a2 := (s.axis+1)%3, (s.axis+2)%3
	var out [][3]float64
	for _, q := range [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		var c [3]float64
		c[s.axis] = s.sign
		c[a1], c[a2] = q[0], q[1]
		out = append(out, c)
	}
	return out
}

func names(prefix string, corners [][3]float64) []string {
	out := make([]string, len(corners))
	for i, c := range corners {
		out[i] = corner(prefix, c)
	}
	return out
}

// Topology returns the outer and inner cube corners, the inner cell and
// six frustum cells. Only the outside map is known up front.
func (c *CubicShiftyCloak) Topology() (*Topology, error) {
	f, err := geom.NewFrame(c.Centre, c.U, c.V)
	if err != nil {
		return nil, err
	}
	t := &Topology{Name: c.Name()}

	var all [][3]float64
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{-1, 1} {
				all = append(all, [3]float64{x, y, z})
			}
		}
	}
	for _, s := range all {
		h := c.OuterSide / 2
		p := f.ToWorld(h*s[0], h*s[1], h*s[2])
		t.Vertices = append(t.Vertices, Vertex{Name: corner("o", s), Pos: p, EM: p})
	}
	for _, s := range all {
		h := c.InnerSide / 2
		p := f.ToWorld(h*s[0], h*s[1], h*s[2])
		t.Vertices = append(t.Vertices, Vertex{Name: corner("i", s), Pos: p, EM: r3.Add(p, c.Shift)})
	}

	t.Cells = append(t.Cells, Cell{Name: "inner", Vertices: names("i", all)})
	for _, s := range cubeSides {
		sc := sideCorners(s)
		t.Cells = append(t.Cells, Cell{
			Name:     "frustum " + s.String(),
			Vertices: append(names("o", sc), names("i", sc)...),
		})
	}

	for _, s := range cubeSides {
		sc := sideCorners(s)
		t.Faces = append(t.Faces,
			Face{Name: "outer " + s.String(), Vertices: names("o", sc), Inner: "frustum " + s.String(), Outer: Outside, Solve: SolveGCLA},
			Face{Name: "inner " + s.String(), Vertices: names("i", sc), Inner: "inner", Outer: "frustum " + s.String(), Solve: SolveGCLA},
		)
	}

	// Diagonal faces join an outer edge to the matching inner edge.
	for i, a := range cubeSides {
		for _, b := range cubeSides[i+1:] {
			if a.axis == b.axis {
				continue
			}
			var e1, e2 [3]float64
			free := 3 - a.axis - b.axis
			e1[a.axis], e1[b.axis], e1[free] = a.sign, b.sign, -1
			e2 = e1
			e2[free] = 1
			t.Faces = append(t.Faces, Face{
				Name:     fmt.Sprintf("diagonal %s%s", a, b),
				Vertices: []string{corner("o", e1), corner("o", e2), corner("i", e2), corner("i", e1)},
				Inner:    "frustum " + a.String(),
				Outer:    "frustum " + b.String(),
			})
		}
	}
	return t, nil
}

// finish marks the GCLAs built for this cloak with the aperture flag.
func (c *CubicShiftyCloak) finish(res *Result) {
	for _, s := range res.Surfaces {
		if g, ok := s.(*optics.GCLA); ok {
			g.Apertures = c.Apertures
		}
	}
}
