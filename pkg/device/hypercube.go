package device

import (
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// HypercubeNet is the net of a tesseract unfolded into eight cubes: a
// column of four along W with four more around the second. Faces that meet
// when the net is folded up in four dimensions are glued by teleportation,
// so light leaving the net through one face continues from its partner.
type HypercubeNet struct {
	Centre  r3.Vec // centre of the second cube of the column
	U, V, W r3.Vec // W runs up the column; the net is mirrored if W opposes U x V
	Side    float64

	Display
}

// DefaultHypercubeNet returns a net of unit cubes with the column along z.
func DefaultHypercubeNet() *HypercubeNet {
	return &HypercubeNet{
		U:       r3.Vec{X: 1},
		V:       r3.Vec{Y: 1},
		W:       r3.Vec{Z: 1},
		Side:    1,
		Display: DefaultDisplay(),
	}
}

func (n *HypercubeNet) Name() string     { return "hypercube-net" }
func (n *HypercubeNet) Options() Display { return n.Display }

// facet is one cube of the net: the cell of the tesseract [-1, 1]^4 where
// coordinate axis equals sign. place maps its points to net coordinates,
// in which the cubes have side 2.
type facet struct {
	name  string
	axis  int
	sign  int
	place func(q [4]int) [3]int
}

// hypercubeFacets folds the net: the -w cube sits at the centre, one cube
// on each of its faces, and the +w cube on top of the +z cube.
var hypercubeFacets = []facet{
	{"-w", 3, -1, func(q [4]int) [3]int { return [3]int{q[0], q[1], q[2]} }},
	{"+x", 0, 1, func(q [4]int) [3]int { return [3]int{2 + q[3], q[1], q[2]} }},
	{"-x", 0, -1, func(q [4]int) [3]int { return [3]int{-2 - q[3], q[1], q[2]} }},
	{"+y", 1, 1, func(q [4]int) [3]int { return [3]int{q[0], 2 + q[3], q[2]} }},
	{"-y", 1, -1, func(q [4]int) [3]int { return [3]int{q[0], -2 - q[3], q[2]} }},
	{"+z", 2, 1, func(q [4]int) [3]int { return [3]int{q[0], q[1], 2 + q[3]} }},
	{"-z", 2, -1, func(q [4]int) [3]int { return [3]int{q[0], q[1], -2 - q[3]} }},
	{"+w", 3, 1, func(q [4]int) [3]int { return [3]int{q[0], q[1], 4 - q[2]} }},
}

// hypercubeFolds are the pairs of cubes that share a face in the net.
var hypercubeFolds = map[[2]string]bool{
	{"-w", "+x"}: true, {"-w", "-x"}: true,
	{"-w", "+y"}: true, {"-w", "-y"}: true,
	{"-w", "+z"}: true, {"-w", "-z"}: true,
	{"+z", "+w"}: true,
}

func folded(a, b string) bool {
	return hypercubeFolds[[2]string{a, b}] || hypercubeFolds[[2]string{b, a}]
}

// step returns the net direction in which f's place moves as coordinate i
// grows.
func (f facet) step(i int) [3]int {
	var q [4]int
	q[f.axis] = f.sign
	from := f.place(q)
	q[i]++
	to := f.place(q)
	return [3]int{to[0] - from[0], to[1] - from[1], to[2] - from[2]}
}

// Topology returns a cell for every cube and a teleporting face for every
// face of the net that is not shared by two cubes.
func (n *HypercubeNet) Topology() (*Topology, error) {
	if n.Side <= 0 {
		return nil, fmt.Errorf("hypercube side %v must be positive", n.Side)
	}
	fr, err := geom.NewFrame3(n.Centre, n.U, n.V, n.W)
	if err != nil {
		return nil, err
	}
	half := n.Side / 2
	world := func(p [3]int) r3.Vec {
		return fr.ToWorld(half*float64(p[0]), half*float64(p[1]), half*float64(p[2]))
	}
	dir := func(d [3]int) r3.Vec {
		return r3.Sub(fr.ToWorld(float64(d[0]), float64(d[1]), float64(d[2])), fr.Origin)
	}

	t := &Topology{Name: n.Name(), Maps: make(map[string]optics.Collineation)}
	seen := make(map[[3]int]string)
	vertex := func(p [3]int) string {
		if name, ok := seen[p]; ok {
			return name
		}
		name := fmt.Sprintf("%d,%d,%d", p[0], p[1], p[2])
		seen[p] = name
		pos := world(p)
		t.Vertices = append(t.Vertices, Vertex{Name: name, Pos: pos, EM: pos})
		return name
	}

	byName := make(map[string]facet, len(hypercubeFacets))
	for _, f := range hypercubeFacets {
		byName[f.name] = f
		cell := "cube " + f.name
		var corners []string
		for _, c := range cubeCorners(f) {
			corners = append(corners, vertex(f.place(c)))
		}
		t.Cells = append(t.Cells, Cell{Name: cell, Vertices: corners})
		t.Maps[cell] = optics.Identity()
	}

	for _, a := range hypercubeFacets {
		for ib := 0; ib < 4; ib++ {
			if ib == a.axis {
				continue
			}
			for _, sb := range []int{-1, 1} {
				b := facetOf(ib, sb)
				if folded(a.name, b) {
					continue
				}
				face, err := n.glue(a, byName[b], vertex, world, dir)
				if err != nil {
					return nil, err
				}
				t.Faces = append(t.Faces, face)
			}
		}
	}
	return t, nil
}

// glue returns the face of cube a towards the tesseract cell b, teleporting
// onto the face of cube b towards a.
func (n *HypercubeNet) glue(a, b facet, vertex func([3]int) string, world func([3]int) r3.Vec, dir func([3]int) r3.Vec) (Face, error) {
	var free []int
	for i := 0; i < 4; i++ {
		if i != a.axis && i != b.axis {
			free = append(free, i)
		}
	}
	var q [4]int
	q[a.axis], q[b.axis] = a.sign, b.sign

	var names []string
	for _, c := range [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		p := q
		p[free[0]], p[free[1]] = c[0], c[1]
		names = append(names, vertex(a.place(p)))
	}

	out := dir(scale3(a.step(b.axis), b.sign))
	from, err := geom.NewFrame3(world(a.place(q)), dir(a.step(free[0])), dir(a.step(free[1])), out)
	if err != nil {
		return Face{}, err
	}
	into := dir(scale3(b.step(a.axis), -a.sign))
	to, err := geom.NewFrame3(world(b.place(q)), dir(b.step(free[0])), dir(b.step(free[1])), into)
	if err != nil {
		return Face{}, err
	}
	return Face{
		Name:     fmt.Sprintf("%s face %s", a.name, b.name),
		Vertices: names,
		Inner:    "cube " + a.name,
		Outer:    Outside,
		Outward:  out,
		Surface:  &optics.Teleporting{From: from, To: to},
	}, nil
}

// cubeCorners returns the eight corners of facet f in tesseract
// coordinates.
func cubeCorners(f facet) [][4]int {
	var out [][4]int
	for m := 0; m < 8; m++ {
		var q [4]int
		q[f.axis] = f.sign
		bit := 0
		for i := 0; i < 4; i++ {
			if i == f.axis {
				continue
			}
			q[i] = -1 + 2*((m>>bit)&1)
			bit++
		}
		out = append(out, q)
	}
	return out
}

func facetOf(axis, sign int) string {
	s := "+"
	if sign < 0 {
		s = "-"
	}
	return s + string("xyzw"[axis])
}

func scale3(d [3]int, k int) [3]int {
	return [3]int{k * d[0], k * d[1], k * d[2]}
}
