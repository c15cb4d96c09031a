// Package optics models the imaging surfaces that decorate device faces.
//
// Every imaging surface is described by a projective collineation of
// space that fixes the surface plane pointwise. Light travelling along the
// surface axis is imaged by the collineation, light travelling against it by
// the inverse.
package optics

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrImageAtInfinity is returned when an image lies at infinity.
	ErrImageAtInfinity = errors.New("optics: image at infinity")

	// ErrNotRealizable is returned when a requested imaging cannot be
	// performed by the requested kind of surface.
	ErrNotRealizable = errors.New("optics: imaging not realizable")

	// ErrNotImaging is returned by surfaces that do not form images.
	ErrNotImaging = errors.New("optics: surface does not image")
)

// Homogeneous is a point in homogeneous coordinates (x, y, z, w).
type Homogeneous [4]float64

// Point lifts p to homogeneous coordinates with w = 1.
func Point(p r3.Vec) Homogeneous {
	return Homogeneous{p.X, p.Y, p.Z, 1}
}

// Direction lifts d to a point at infinity.
func Direction(d r3.Vec) Homogeneous {
	return Homogeneous{d.X, d.Y, d.Z, 0}
}

// Vec returns the spatial part of h.
func (h Homogeneous) Vec() r3.Vec {
	return r3.Vec{X: h[0], Y: h[1], Z: h[2]}
}

// Dot returns the contraction of a covector with h.
func (h Homogeneous) Dot(p [4]float64) float64 {
	return h[0]*p[0] + h[1]*p[1] + h[2]*p[2] + h[3]*p[3]
}

// Finite reports whether h is a finite point, and returns it.
func (h Homogeneous) Finite() (r3.Vec, bool) {
	scale := math.Max(1, math.Max(math.Abs(h[0]), math.Max(math.Abs(h[1]), math.Abs(h[2]))))
	if math.Abs(h[3]) <= 1e-12*scale {
		return r3.Vec{}, false
	}
	return r3.Scale(1/h[3], h.Vec()), true
}

// Collineation is a projective map of space, stored as a 4x4 homogeneous
// matrix.
type Collineation struct {
	m *mat.Dense
}

// Identity returns the identity collineation.
func Identity() Collineation {
	return NewCollineation([16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// NewCollineation builds a collineation from row-major matrix entries.
func NewCollineation(rows [16]float64) Collineation {
	return Collineation{m: mat.NewDense(4, 4, rows[:])}
}

// CentralCollineation returns I + c pᵀ where p is the covector of pl. It fixes
// pl pointwise and maps every line through the centre c onto itself.
func CentralCollineation(pl geom.Plane, c Homogeneous) Collineation {
	p := pl.Covector()
	s := Identity()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			s.m.Set(i, j, s.m.At(i, j)+c[i]*p[j])
		}
	}
	return s
}

// Affine returns the collineation x -> A x + b.
func Affine(a *mat.Dense, b r3.Vec) Collineation {
	s := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s.m.Set(i, j, a.At(i, j))
		}
	}
	s.m.Set(0, 3, b.X)
	s.m.Set(1, 3, b.Y)
	s.m.Set(2, 3, b.Z)
	return s
}

// At returns matrix entry (i, j).
func (c Collineation) At(i, j int) float64 {
	return c.m.At(i, j)
}

// Transform applies the collineation to a homogeneous point.
func (c Collineation) Transform(h Homogeneous) Homogeneous {
	var out Homogeneous
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i] += c.m.At(i, j) * h[j]
		}
	}
	return out
}

// Apply maps the finite point p.
func (c Collineation) Apply(p r3.Vec) (r3.Vec, error) {
	q, ok := c.Transform(Point(p)).Finite()
	if !ok {
		return r3.Vec{}, fmt.Errorf("image of %v: %w", p, ErrImageAtInfinity)
	}
	return q, nil
}

// Then returns the collineation that applies c first and then next.
func (c Collineation) Then(next Collineation) Collineation {
	var m mat.Dense
	m.Mul(next.m, c.m)
	return Collineation{m: &m}
}

// Inverse returns the inverse collineation.
func (c Collineation) Inverse() (Collineation, error) {
	var m mat.Dense
	if err := m.Inverse(c.m); err != nil {
		return Collineation{}, fmt.Errorf("optics: singular collineation: %w", err)
	}
	return Collineation{m: &m}, nil
}

// IsIdentity reports whether c is a multiple of the identity within tol.
func (c Collineation) IsIdentity(tol float64) bool {
	s := c.m.At(3, 3)
	if s == 0 {
		return false
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(c.m.At(i, j)/s-want) > tol {
				return false
			}
		}
	}
	return true
}

// Central decomposes a collineation that fixes pl pointwise as
// λ(I + c pᵀ) and returns c. It fails with ErrNotRealizable if the
// collineation does not fix the plane.
func (c Collineation) Central(pl geom.Plane, tol float64) (Homogeneous, error) {
	e1, e2 := inPlaneBasis(pl.Normal)
	probes := []Homogeneous{
		Point(pl.Point),
		Point(r3.Add(pl.Point, e1)),
		Point(r3.Add(pl.Point, e2)),
	}

	// Common eigenvalue of the plane points.
	var lambda float64
	for k, q := range probes {
		img := c.Transform(q)
		l := img.Dot(q) / q.Dot(q)
		if k == 0 {
			lambda = l
		}
		for i := 0; i < 4; i++ {
			if math.Abs(img[i]-lambda*q[i]) > tol*math.Max(1, math.Abs(lambda)) {
				return Homogeneous{}, fmt.Errorf("collineation moves plane point %v: %w", q.Vec(), ErrNotRealizable)
			}
		}
	}
	if lambda == 0 {
		return Homogeneous{}, fmt.Errorf("collineation collapses plane: %w", ErrNotRealizable)
	}

	// N = S/λ - I must be the rank-one matrix c pᵀ.
	p := pl.Covector()
	w := Point(r3.Add(pl.Point, pl.Normal))
	var ch Homogeneous
	sw := c.Transform(w)
	for i := 0; i < 4; i++ {
		ch[i] = sw[i]/lambda - w[i]
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			id := 0.0
			if i == j {
				id = 1
			}
			n := c.m.At(i, j)/lambda - id
			if math.Abs(n-ch[i]*p[j]) > tol*math.Max(1, math.Abs(n)) {
				return Homogeneous{}, fmt.Errorf("collineation is not central for plane: %w", ErrNotRealizable)
			}
		}
	}
	return ch, nil
}

// inPlaneBasis returns two unit vectors perpendicular to n and each other.
func inPlaneBasis(n r3.Vec) (r3.Vec, r3.Vec) {
	ref := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	e1 := geom.Unit(geom.PartPerpendicularTo(ref, n))
	e2 := geom.Unit(r3.Cross(n, e1))
	return e1, e2
}
