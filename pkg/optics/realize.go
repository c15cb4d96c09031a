package optics

import (
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Realize returns the simplest surface in pl whose imaging, for light
// travelling along the plane normal, is s. An identity map gives a
// Transparent surface, the reflection in pl a 180° RayRotation, any other
// central collineation with its centre at infinity a GCLA, one with its centre in the plane an ideal lens in the given
// representation, and anything else a glens. Maps that do not fix the plane
// fail with ErrNotRealizable.
func Realize(s Collineation, pl geom.Plane, rep LensRepresentation, tol float64) (Surface, error) {
	pl = geom.NewPlane(pl.Point, pl.Normal)
	if s.IsIdentity(tol) {
		return Transparent{Coat: DefaultCoating}, nil
	}
	c, err := s.Central(pl, tol)
	if err != nil {
		return nil, err
	}
	spatial := r3.Norm(c.Vec())
	scale := math.Max(spatial, math.Abs(c[3]))
	if scale <= tol {
		return Transparent{Coat: DefaultCoating}, nil
	}
	if math.Abs(c[3]) <= tol*spatial {
		if geom.Near(c.Vec(), r3.Scale(-2, pl.Normal), tol) {
			return &RayRotation{Surf: pl, Coat: DefaultCoating}, nil
		}
		return &GCLA{Surf: pl, Shift: c.Vec(), Coat: DefaultCoating}, nil
	}
	nodal, _ := c.Finite()
	if math.Abs(pl.SignedDistance(nodal)) <= tol*math.Max(1, r3.Norm(r3.Sub(nodal, pl.Point))) {
		lens := NewIdealLens(pl.Project(nodal), pl.Normal, 1/c[3])
		switch rep {
		case PhaseHologram:
			lens.Hologram = true
		case GlassPane:
			return Transparent{Coat: DefaultCoating}, nil
		}
		return lens, nil
	}
	return &Glens{Surf: pl, Centre: c, Coat: DefaultCoating}, nil
}
