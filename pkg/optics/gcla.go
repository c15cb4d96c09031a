package optics

import (
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// GCLA is a homogeneous planar imaging surface of the generalised confocal
// lenslet array type. It images x to x + Shift·d(x), where d is the signed
// distance from its plane, so that straight lines map to straight lines and
// the centre of the projection lies at infinity.
type GCLA struct {
	Surf  geom.Plane
	Shift r3.Vec
	// Apertures marks lenslets of finite size, which adds field-of-view
	// clipping when rendered. The imaging is unchanged.
	Apertures bool
	Coat      Coating
}

// GCLAFromConjugatePair returns the GCLA in pl that images object to image.
func GCLAFromConjugatePair(pl geom.Plane, object, image r3.Vec) (*GCLA, error) {
	d := pl.SignedDistance(object)
	if geom.NearlyZero(d, geom.Eps) {
		if geom.Near(object, image, geom.Eps) {
			return &GCLA{Surf: pl, Coat: DefaultCoating}, nil
		}
		return nil, fmt.Errorf("object %v in GCLA plane: %w", object, ErrNotRealizable)
	}
	shift := r3.Scale(1/d, r3.Sub(image, object))
	if geom.NearlyZero(1+r3.Dot(pl.Normal, shift), geom.Eps) {
		return nil, fmt.Errorf("GCLA imaging %v -> %v flattens space: %w", object, image, ErrNotRealizable)
	}
	return &GCLA{Surf: pl, Shift: shift, Coat: DefaultCoating}, nil
}

func (g *GCLA) Kind() Kind { return KindGCLA }

func (g *GCLA) Coating() Coating { return g.Coat }

func (g *GCLA) Plane() geom.Plane { return g.Surf }

func (g *GCLA) Collineation() Collineation {
	return CentralCollineation(g.Surf, Direction(g.Shift))
}

func (g *GCLA) ImagePosition(q, dir r3.Vec) (r3.Vec, error) { return imageThrough(g, q, dir) }
