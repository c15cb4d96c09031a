// Package kernel defines the solid kernel used to mesh frame decorations.
// A backend (sdfx) builds spheres and struts and turns them into triangle
// meshes; the rest of the system only sees the Kernel interface.
package kernel

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateSolid is returned for solids with a non-positive radius or a
// zero-length strut.
var ErrDegenerateSolid = errors.New("kernel: degenerate solid")

// Solid is an opaque handle to a backend solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max r3.Vec)
}

// Kernel builds frame solids and meshes them.
type Kernel interface {
	// Sphere returns a ball around centre, used for frame vertices.
	Sphere(centre r3.Vec, radius float64) (Solid, error)
	// Strut returns a round bar from start to end, used for frame edges.
	Strut(start, end r3.Vec, radius float64) (Solid, error)

	Union(a, b Solid) Solid

	ToMesh(s Solid) (*Mesh, error)
}
