package device

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxPerturbations bounds the number of times the sequential solver nudges
// an EM position whose pre-image lies at infinity before giving up.
const MaxPerturbations = 100

// ErrUnreachableCell is returned when a cell cannot be reached from the
// outside through faces.
var ErrUnreachableCell = errors.New("device: cell not reachable from outside")

// SolveSequential completes the cell maps of t by chasing images inward
// from the outside. A cell X reached from a solved cell Y through face F gets
// M_X = M_Y ∘ S, where S is the surface in F that images the vertex of X
// opposite F onto the pre-image, under M_Y, of that vertex's EM position.
// Closed-form maps in t.Maps are kept and act as additional seeds.
func SolveSequential(t *Topology, ctx *Context) (map[string]optics.Collineation, error) {
	if ctx == nil {
		ctx = NewContext(nil, 1)
	}
	ctx.reseed()
	maps := map[string]optics.Collineation{Outside: optics.Identity()}
	queue := []string{Outside}
	for _, c := range t.Cells {
		if m, ok := t.Maps[c.Name]; ok {
			maps[c.Name] = m
			queue = append(queue, c.Name)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range t.adjacent(cur) {
			f := t.Faces[l.face]
			if f.Surface != nil {
				continue
			}
			if _, ok := maps[l.other]; ok {
				continue
			}
			m, err := solveCell(t, f, l.other, maps[cur], ctx)
			if err != nil {
				return nil, fmt.Errorf("cell %q via face %q: %w", l.other, f.Name, err)
			}
			ctx.logger().Debug("solved cell", "cell", l.other, "face", f.Name, "from", cur)
			maps[l.other] = m
			queue = append(queue, l.other)
		}
	}

	for _, c := range t.Cells {
		if _, ok := maps[c.Name]; !ok {
			return nil, fmt.Errorf("%q: %w", c.Name, ErrUnreachableCell)
		}
	}
	return maps, nil
}

func solveCell(t *Topology, f Face, cell string, solved optics.Collineation, ctx *Context) (optics.Collineation, error) {
	pl, pts, err := t.FacePlane(f)
	if err != nil {
		return optics.Collineation{}, err
	}
	if cell == f.Outer {
		pl = pl.Flipped()
	}

	c, ok := t.Cell(cell)
	if !ok {
		return optics.Collineation{}, fmt.Errorf("%q: %w", cell, ErrUnknownCell)
	}
	v, err := opposite(t, c, f, pl, scale(pts)*ctx.tol())
	if err != nil {
		return optics.Collineation{}, err
	}

	inv, err := solved.Inverse()
	if err != nil {
		return optics.Collineation{}, err
	}
	img, err := preImage(inv, v.EM, ctx)
	if err != nil {
		return optics.Collineation{}, fmt.Errorf("vertex %q: %w", v.Name, err)
	}

	var s optics.Imaging
	switch f.Solve {
	case SolveGCLA:
		s, err = optics.GCLAFromConjugatePair(pl, v.Pos, img)
	default:
		s, err = optics.IdealLensFromConjugatePair(pl, v.Pos, img)
	}
	if err != nil {
		return optics.Collineation{}, err
	}
	return s.Collineation().Then(solved), nil
}

// opposite returns the first vertex of c that does not lie in the plane of f.
func opposite(t *Topology, c Cell, f Face, pl geom.Plane, tol float64) (Vertex, error) {
	for _, name := range c.Vertices {
		v, err := t.Vertex(name)
		if err != nil {
			return Vertex{}, err
		}
		if !pl.Contains(v.Pos, tol) {
			return v, nil
		}
	}
	return Vertex{}, fmt.Errorf("cell %q is flat against face %q", c.Name, f.Name)
}

// preImage maps target through inv. If the result lies at infinity the
// target is perturbed by a small random offset and the mapping retried.
func preImage(inv optics.Collineation, target r3.Vec, ctx *Context) (r3.Vec, error) {
	size := 1e-6 * math.Max(1, r3.Norm(target))
	p := target
	for attempt := 0; ; attempt++ {
		img, err := inv.Apply(p)
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, optics.ErrImageAtInfinity) || attempt == MaxPerturbations {
			return r3.Vec{}, err
		}
		rng := ctx.rand()
		offset := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		p = r3.Add(target, r3.Scale(size, offset))
		ctx.logger().Debug("image at infinity, perturbing", "attempt", attempt+1, "target", target)
	}
}
