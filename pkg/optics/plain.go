package optics

import (
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transparent passes light through unchanged apart from its coating.
type Transparent struct {
	Coat Coating
}

func (t Transparent) Kind() Kind { return KindTransparent }

func (t Transparent) Coating() Coating { return t.Coat }

func (t Transparent) ImagePosition(q, _ r3.Vec) (r3.Vec, error) { return q, nil }

// Coloured is an opaque surface of a single colour, used for frames.
type Coloured struct {
	Colour string
	Coat   Coating
}

func (c Coloured) Kind() Kind { return KindColoured }

func (c Coloured) Coating() Coating { return c.Coat }

func (c Coloured) ImagePosition(q, _ r3.Vec) (r3.Vec, error) {
	return r3.Vec{}, fmt.Errorf("coloured surface %q: %w", c.Colour, ErrNotImaging)
}

// Mirror is a plane mirror. It images by reflection whichever side light
// arrives from.
type Mirror struct {
	Surf geom.Plane
	Coat Coating
}

func (m *Mirror) Kind() Kind { return KindMirror }

func (m *Mirror) Coating() Coating { return m.Coat }

func (m *Mirror) Plane() geom.Plane { return m.Surf }

func (m *Mirror) Collineation() Collineation { return reflection(m.Surf) }

func (m *Mirror) ImagePosition(q, _ r3.Vec) (r3.Vec, error) {
	return reflect(m.Surf, q), nil
}

// RayRotation turns every transmitted ray by 180° about the surface normal.
// Points are imaged onto their reflection in the plane, from either side.
type RayRotation struct {
	Surf geom.Plane
	Coat Coating
}

func (r *RayRotation) Kind() Kind { return KindRayRotation }

func (r *RayRotation) Coating() Coating { return r.Coat }

func (r *RayRotation) Plane() geom.Plane { return r.Surf }

func (r *RayRotation) Collineation() Collineation { return reflection(r.Surf) }

func (r *RayRotation) ImagePosition(q, _ r3.Vec) (r3.Vec, error) {
	return reflect(r.Surf, q), nil
}

// Teleporting hands light arriving at the surface on to a linked surface.
// A point at local coordinates (u, v, w) of From is imaged to the point with
// the same coordinates in To.
type Teleporting struct {
	From, To geom.Frame
	Coat     Coating
}

func (t *Teleporting) Kind() Kind { return KindTeleporting }

func (t *Teleporting) Coating() Coating { return t.Coat }

func (t *Teleporting) Plane() geom.Plane { return geom.NewPlane(t.From.Origin, t.From.W) }

func (t *Teleporting) Collineation() Collineation {
	a := mat.NewDense(3, 3, nil)
	from := [3]r3.Vec{t.From.U, t.From.V, t.From.W}
	to := [3]r3.Vec{t.To.U, t.To.V, t.To.W}
	for k := 0; k < 3; k++ {
		var outer mat.Dense
		outer.Outer(1, vec(to[k]), vec(from[k]))
		a.Add(a, &outer)
	}
	var shift mat.VecDense
	shift.MulVec(a, vec(t.From.Origin))
	b := r3.Sub(t.To.Origin, r3.Vec{X: shift.AtVec(0), Y: shift.AtVec(1), Z: shift.AtVec(2)})
	return Affine(a, b)
}

func (t *Teleporting) ImagePosition(q, _ r3.Vec) (r3.Vec, error) {
	l := t.From.ToLocal(q)
	return t.To.ToWorld(l.X, l.Y, l.Z), nil
}

func vec(v r3.Vec) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}

func reflect(pl geom.Plane, q r3.Vec) r3.Vec {
	return r3.Sub(q, r3.Scale(2*pl.SignedDistance(q), pl.Normal))
}

func reflection(pl geom.Plane) Collineation {
	// Householder reflection through pl.
	n := pl.Normal
	a := mat.NewDense(3, 3, nil)
	a.Outer(-2, vec(n), vec(n))
	for i := 0; i < 3; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	return Affine(a, r3.Scale(2*r3.Dot(n, pl.Point), n))
}
