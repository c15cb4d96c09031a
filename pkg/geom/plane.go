package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is an oriented plane through Point with unit Normal.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// NewPlane returns a plane with the normal normalised.
func NewPlane(point, normal r3.Vec) Plane {
	return Plane{Point: point, Normal: Unit(normal)}
}

// PlaneThrough returns the plane through a, b and c, oriented by the right-hand
// rule.
func PlaneThrough(a, b, c r3.Vec) Plane {
	return NewPlane(a, r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// SignedDistance returns the distance of p from the plane, positive on the
// side the normal points to.
func (pl Plane) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(pl.Normal, r3.Sub(p, pl.Point))
}

// Project returns the foot of the perpendicular from p onto the plane.
func (pl Plane) Project(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(pl.SignedDistance(p), pl.Normal))
}

// Flipped returns the same plane with the opposite orientation.
func (pl Plane) Flipped() Plane {
	return Plane{Point: pl.Point, Normal: r3.Scale(-1, pl.Normal)}
}

// Contains reports whether p lies within tol of the plane.
func (pl Plane) Contains(p r3.Vec, tol float64) bool {
	return math.Abs(pl.SignedDistance(p)) <= tol
}

// IntersectLine returns the intersection of the line through a and b with
// the plane. ok is false if the line is parallel to the plane.
func (pl Plane) IntersectLine(a, b r3.Vec) (p r3.Vec, ok bool) {
	d := r3.Sub(b, a)
	den := r3.Dot(pl.Normal, d)
	if math.Abs(den) < Eps*math.Max(1, r3.Norm(d)) {
		return r3.Vec{}, false
	}
	t := -pl.SignedDistance(a) / den
	return r3.Add(a, r3.Scale(t, d)), true
}

// Covector returns the homogeneous plane covector (n, -n·P).
func (pl Plane) Covector() [4]float64 {
	n := pl.Normal
	return [4]float64{n.X, n.Y, n.Z, -r3.Dot(n, pl.Point)}
}
