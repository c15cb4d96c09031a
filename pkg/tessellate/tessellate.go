// Package tessellate walks a scene collection and produces triangle meshes
// using a solid kernel. One mesh is produced per primitive.
package tessellate

import (
	"fmt"
	"strings"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/kernel"
	"github.com/chazu/tocloak/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Stats summarises a set of meshes.
type Stats struct {
	Meshes    int
	Vertices  int
	Triangles int
}

// Summarize counts the meshes, vertices and triangles.
func Summarize(meshes []*kernel.Mesh) Stats {
	s := Stats{Meshes: len(meshes)}
	for _, m := range meshes {
		s.Vertices += m.VertexCount()
		s.Triangles += m.TriangleCount()
	}
	return s
}

// Tessellate walks c and returns one mesh per primitive. Polygons are fan
// triangulated with their stored normal; frame spheres and cylinders are
// built and meshed by k. With visibleOnly, hidden objects and the contents
// of hidden collections are skipped. The collection is never modified.
func Tessellate(c *scene.Collection, k kernel.Kernel, visibleOnly bool) ([]*kernel.Mesh, error) {
	if c == nil {
		return nil, nil
	}
	var meshes []*kernel.Mesh
	err := c.Walk(func(path []string, obj scene.Object, visible bool) error {
		if visibleOnly && !visible {
			return nil
		}
		m, err := meshObject(k, obj)
		if err != nil {
			return fmt.Errorf("tessellate: %s: %w", obj.ObjectName(), err)
		}
		if m == nil {
			return nil
		}
		m.Name = strings.Join(append(append([]string(nil), path...), obj.ObjectName()), "/")
		meshes = append(meshes, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meshes, nil
}

// meshObject returns the mesh of a primitive, or nil for collections.
func meshObject(k kernel.Kernel, obj scene.Object) (*kernel.Mesh, error) {
	var (
		solid kernel.Solid
		err   error
	)
	switch o := obj.(type) {
	case *scene.Polygon:
		return fan(o)
	case *scene.Sphere:
		solid, err = k.Sphere(o.Centre, o.Radius)
	case *scene.Cylinder:
		solid, err = k.Strut(o.Start, o.End, o.Radius)
	case *scene.Collection:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported object type %T", obj)
	}
	if err != nil {
		return nil, err
	}
	return k.ToMesh(solid)
}

// fan triangulates a convex polygon from its first vertex, winding the
// triangles counter-clockwise about the polygon normal.
func fan(p *scene.Polygon) (*kernel.Mesh, error) {
	if len(p.Vertices) < 3 {
		return nil, fmt.Errorf("polygon with %d vertices", len(p.Vertices))
	}
	n := p.Normal
	if n == (r3.Vec{}) {
		n = geom.Normal(p.Vertices, r3.Vec{})
	}
	v := p.Vertices
	flip := r3.Dot(r3.Cross(r3.Sub(v[1], v[0]), r3.Sub(v[2], v[0])), n) < 0

	m := &kernel.Mesh{}
	idx := make([]uint32, len(v))
	for i, q := range v {
		idx[i] = m.AddVertex(q, n)
	}
	for i := 1; i+1 < len(v); i++ {
		if flip {
			m.AddTriangle(idx[0], idx[i+1], idx[i])
		} else {
			m.AddTriangle(idx[0], idx[i], idx[i+1])
		}
	}
	return m, nil
}
