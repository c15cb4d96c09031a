package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is an orthonormal basis U, V, W attached to Origin. Frames built by
// NewFrame are right handed (W = U x V).
type Frame struct {
	Origin  r3.Vec
	U, V, W r3.Vec
}

// NewFrame builds a right-handed frame from two possibly non-orthogonal
// directions: U is a normalised, V is the part of b perpendicular to U.
func NewFrame(origin, a, b r3.Vec) (Frame, error) {
	u := Unit(a)
	if u == (r3.Vec{}) {
		return Frame{}, fmt.Errorf("first direction is zero: %w", ErrDegenerateFrame)
	}
	perp := PartPerpendicularTo(b, u)
	if r3.Norm(perp) < Eps*r3.Norm(b) || r3.Norm(b) == 0 {
		return Frame{}, fmt.Errorf("second direction %v parallel to %v: %w", b, a, ErrDegenerateFrame)
	}
	v := Unit(perp)
	return Frame{Origin: origin, U: u, V: v, W: r3.Cross(u, v)}, nil
}

// NewFrame3 builds a frame from three directions, orthogonalising each against
// the earlier ones. Unlike NewFrame, W keeps the sense of c, so the frame is
// left handed when c points against U x V.
func NewFrame3(origin, a, b, c r3.Vec) (Frame, error) {
	f, err := NewFrame(origin, a, b)
	if err != nil {
		return Frame{}, err
	}
	w := PartPerpendicularTo(PartPerpendicularTo(c, f.U), f.V)
	if r3.Norm(w) < Eps*r3.Norm(c) || r3.Norm(c) == 0 {
		return Frame{}, fmt.Errorf("third direction %v lies in the plane of the first two: %w", c, ErrDegenerateFrame)
	}
	f.W = Unit(w)
	return f, nil
}

// RightHanded reports whether U x V points along W.
func (f Frame) RightHanded() bool {
	return r3.Dot(r3.Cross(f.U, f.V), f.W) > 0
}

// ToWorld maps frame coordinates (u, v, w) to a world point.
func (f Frame) ToWorld(u, v, w float64) r3.Vec {
	p := r3.Add(f.Origin, r3.Scale(u, f.U))
	p = r3.Add(p, r3.Scale(v, f.V))
	return r3.Add(p, r3.Scale(w, f.W))
}

// ToLocal returns the frame coordinates of world point p.
func (f Frame) ToLocal(p r3.Vec) r3.Vec {
	d := r3.Sub(p, f.Origin)
	return r3.Vec{X: r3.Dot(d, f.U), Y: r3.Dot(d, f.V), Z: r3.Dot(d, f.W)}
}
