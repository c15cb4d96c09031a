package optics

import (
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// IdealLens is an ideal thin lens. Light travelling along Axis sees focal
// length F, light travelling the other way sees -F. F may be ±Inf, in which
// case the lens does nothing.
type IdealLens struct {
	Principal r3.Vec
	Axis      r3.Vec
	F         float64
	// Hologram renders the lens as a phase hologram rather than an ideal
	// thin lens. The imaging is the same.
	Hologram bool
	Coat     Coating
}

// NewIdealLens returns a lens with a normalised axis and the default coating.
func NewIdealLens(principal, axis r3.Vec, f float64) *IdealLens {
	return &IdealLens{Principal: principal, Axis: geom.Unit(axis), F: f, Coat: DefaultCoating}
}

// IdealLensFromConjugatePair returns the ideal lens in pl that images object
// to image for light travelling along the plane normal.
func IdealLensFromConjugatePair(pl geom.Plane, object, image r3.Vec) (*IdealLens, error) {
	o := pl.SignedDistance(object)
	i := pl.SignedDistance(image)
	if geom.Near(object, image, geom.Eps) {
		return NewIdealLens(pl.Project(object), pl.Normal, math.Inf(1)), nil
	}
	if geom.NearlyZero(o, geom.Eps) || geom.NearlyZero(i, geom.Eps) {
		return nil, fmt.Errorf("conjugate pair %v -> %v touches the lens plane: %w", object, image, ErrNotRealizable)
	}
	principal, ok := pl.IntersectLine(object, image)
	if !ok {
		return nil, fmt.Errorf("conjugate pair %v -> %v parallel to lens plane: %w", object, image, ErrNotRealizable)
	}
	f := math.Inf(1)
	if !geom.NearlyZero(o-i, geom.Eps) {
		f = o * i / (o - i)
	}
	return NewIdealLens(principal, pl.Normal, f), nil
}

func (l *IdealLens) Kind() Kind {
	if l.Hologram {
		return KindPhaseHologram
	}
	return KindIdealLens
}

func (l *IdealLens) Coating() Coating { return l.Coat }

func (l *IdealLens) Plane() geom.Plane { return geom.NewPlane(l.Principal, l.Axis) }

// Power returns 1/F.
func (l *IdealLens) Power() float64 {
	if math.IsInf(l.F, 0) {
		return 0
	}
	return 1 / l.F
}

func (l *IdealLens) Collineation() Collineation {
	p := l.Power()
	c := Point(l.Principal)
	for i := range c {
		c[i] *= p
	}
	return CentralCollineation(l.Plane(), c)
}

// ImagePosition uses the lens equation rather than the matrix so that the
// result stays exact for points on the axis.
func (l *IdealLens) ImagePosition(q, dir r3.Vec) (r3.Vec, error) {
	p := l.Power()
	if r3.Dot(dir, l.Axis) < 0 {
		p = -p
	}
	o := r3.Dot(l.Axis, r3.Sub(q, l.Principal))
	den := 1 + p*o
	if geom.NearlyZero(den, 1e-12) {
		return r3.Vec{}, fmt.Errorf("image of %v: %w", q, ErrImageAtInfinity)
	}
	return r3.Add(l.Principal, r3.Scale(1/den, r3.Sub(q, l.Principal))), nil
}
