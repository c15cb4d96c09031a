// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx SDF
// library. Solids are meshed with uniform marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest side
// of a solid's bounding box.
const DefaultMeshCells = 24

// sdfxSolid is a solid in world coordinates. Struts also carry a template
// of unit proportions and the map placing template points in the world, so
// thin struts mesh at the same quality as fat ones.
type sdfxSolid struct {
	s        sdf.SDF3
	template sdf.SDF3
	place    func(r3.Vec) r3.Vec
}

func (s *sdfxSolid) BoundingBox() (min, max r3.Vec) {
	bb := s.s.BoundingBox()
	return fromV3(bb.Min), fromV3(bb.Max)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a kernel meshing with the given resolution. cells <= 0 selects
// DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Cells returns the marching cubes resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func toV3(v r3.Vec) v3.Vec   { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func fromV3(v v3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Sphere returns a ball of the given radius around centre.
func (k *SdfxKernel) Sphere(centre r3.Vec, radius float64) (kernel.Solid, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius %g: %w", radius, kernel.ErrDegenerateSolid)
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(toV3(centre)))), nil
}

// Strut returns a cylinder of the given radius whose axis runs from start to
// end. sdf.Cylinder3D is centred on the origin along Z, so it is turned onto
// the strut direction and moved to the midpoint.
func (k *SdfxKernel) Strut(start, end r3.Vec, radius float64) (kernel.Solid, error) {
	d := r3.Sub(end, start)
	length := r3.Norm(d)
	if radius <= 0 || length == 0 {
		return nil, fmt.Errorf("strut %v-%v radius %g: %w", start, end, radius, kernel.ErrDegenerateSolid)
	}
	s, err := sdf.Cylinder3D(length, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	template, err := sdf.Cylinder3D(2, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	// The cylinder is symmetric, so only the line matters, not its sense.
	if d.Z < 0 {
		d = r3.Scale(-1, d)
	}
	mid := r3.Scale(0.5, r3.Add(start, end))
	m := sdf.Translate3d(toV3(mid)).Mul(sdf.RotateToVector(v3.Vec{Z: 1}, toV3(d)))

	w := r3.Scale(1/length, d)
	u := perpendicular(w)
	v := r3.Cross(w, u)
	place := func(p r3.Vec) r3.Vec {
		q := r3.Add(mid, r3.Scale(radius*p.X, u))
		q = r3.Add(q, r3.Scale(radius*p.Y, v))
		return r3.Add(q, r3.Scale(length/2*p.Z, w))
	}
	return &sdfxSolid{s: sdf.Transform3D(s, m), template: template, place: place}, nil
}

// perpendicular returns a unit vector perpendicular to the unit vector w.
func perpendicular(w r3.Vec) r3.Vec {
	ref := r3.Vec{X: 1}
	if math.Abs(w.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	p := r3.Sub(ref, r3.Scale(r3.Dot(ref, w), w))
	return r3.Scale(1/r3.Norm(p), p)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// ToMesh converts a solid to a triangle mesh using marching cubes. Struts
// are meshed from their template and placed afterwards; the face normals
// are recomputed since the placement does not preserve angles.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	solid := s.(*sdfxSolid)
	src, place := solid.s, func(p r3.Vec) r3.Vec { return p }
	if solid.template != nil {
		src, place = solid.template, solid.place
	}

	triangles := render.ToTriangles(src, render.NewMarchingCubesUniform(k.cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("marching cubes produced no triangles at %d cells", k.cells)
	}

	m := &kernel.Mesh{}
	for _, tri := range triangles {
		p0, p1, p2 := place(fromV3(tri[0])), place(fromV3(tri[1])), place(fromV3(tri[2]))
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}
		a := m.AddVertex(p0, n)
		b := m.AddVertex(p1, n)
		c := m.AddVertex(p2, n)
		m.AddTriangle(a, b, c)
	}
	return m, nil
}
