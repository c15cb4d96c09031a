// Package geom provides the vector, plane and frame helpers shared by the
// device generators. Vectors are gonum r3.Vec values throughout.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Eps is the default tolerance for geometric comparisons.
const Eps = 1e-9

// ErrDegenerateFrame is returned when frame directions are zero or parallel.
var ErrDegenerateFrame = errors.New("geom: degenerate frame directions")

// PartParallelTo returns the component of v along dir.
func PartParallelTo(v, dir r3.Vec) r3.Vec {
	n2 := r3.Norm2(dir)
	if n2 == 0 {
		return r3.Vec{}
	}
	return r3.Scale(r3.Dot(v, dir)/n2, dir)
}

// PartPerpendicularTo returns the component of v perpendicular to dir.
func PartPerpendicularTo(v, dir r3.Vec) r3.Vec {
	return r3.Sub(v, PartParallelTo(v, dir))
}

// Unit returns v normalised, or the zero vector if v has zero length.
func Unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// Lerp returns a + t(b-a).
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Centroid returns the arithmetic mean of the points.
func Centroid(points ...r3.Vec) r3.Vec {
	var c r3.Vec
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(points)), c)
}

// Near reports whether a and b are within tol of each other.
func Near(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

// NearlyZero reports whether |x| <= tol.
func NearlyZero(x, tol float64) bool {
	return scalar.EqualWithinAbs(x, 0, tol)
}

// Finite reports whether all components of v are finite numbers.
func Finite(v r3.Vec) bool {
	for _, x := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// RegularPolygon returns n points of a regular polygon centred on centre.
// Vertex i sits at angle i*2π/n, measured from dir1 towards dir2, at the
// given radius. dir1 and dir2 are expected to be orthonormal.
func RegularPolygon(centre, dir1, dir2 r3.Vec, radius float64, n int) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		phi := float64(i) * 2 * math.Pi / float64(n)
		d := r3.Add(r3.Scale(math.Cos(phi), dir1), r3.Scale(math.Sin(phi), dir2))
		pts[i] = r3.Add(centre, r3.Scale(radius, d))
	}
	return pts
}

// Normal returns the unit normal of the polygon spanned by the first three
// points, flipped if necessary so that its dot product with outward is not
// negative. Every face built by the device generators goes through here.
func Normal(points []r3.Vec, outward r3.Vec) r3.Vec {
	if len(points) < 3 {
		return r3.Vec{}
	}
	n := Unit(r3.Cross(r3.Sub(points[1], points[0]), r3.Sub(points[2], points[0])))
	if r3.Dot(n, outward) < 0 {
		n = r3.Scale(-1, n)
	}
	return n
}

// Coplanar reports whether all points lie within tol of the plane through the
// first three.
func Coplanar(points []r3.Vec, tol float64) bool {
	if len(points) <= 3 {
		return true
	}
	pl := PlaneThrough(points[0], points[1], points[2])
	for _, p := range points[3:] {
		if math.Abs(pl.SignedDistance(p)) > tol {
			return false
		}
	}
	return true
}
