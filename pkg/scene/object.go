package scene

import (
	"github.com/chazu/tocloak/pkg/optics"
	"gonum.org/v1/gonum/spatial/r3"
)

// ObjectKind enumerates the types of scene objects.
type ObjectKind int

const (
	KindPolygon    ObjectKind = iota // flat convex polygon carrying a surface
	KindSphere                       // frame vertex decoration
	KindCylinder                     // frame edge decoration
	KindCollection                   // nested collection
)

func (k ObjectKind) String() string {
	switch k {
	case KindPolygon:
		return "polygon"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Object is anything that can be stored in a Collection.
type Object interface {
	Kind() ObjectKind
	ObjectName() string
}

// Polygon is a flat polygon. Vertices are stored in construction order and
// Normal is the (sign-corrected) outward normal.
type Polygon struct {
	Name     string
	Vertices []r3.Vec
	Normal   r3.Vec
	Surface  optics.Surface
}

func (p *Polygon) Kind() ObjectKind   { return KindPolygon }
func (p *Polygon) ObjectName() string { return p.Name }

// Sphere marks a frame vertex.
type Sphere struct {
	Name    string
	Centre  r3.Vec
	Radius  float64
	Surface optics.Surface
}

func (s *Sphere) Kind() ObjectKind   { return KindSphere }
func (s *Sphere) ObjectName() string { return s.Name }

// Cylinder marks a frame edge between Start and End.
type Cylinder struct {
	Name       string
	Start, End r3.Vec
	Radius     float64
	Surface    optics.Surface
}

func (c *Cylinder) Kind() ObjectKind   { return KindCylinder }
func (c *Cylinder) ObjectName() string { return c.Name }

// Length returns the distance between the end points.
func (c *Cylinder) Length() float64 {
	return r3.Norm(r3.Sub(c.End, c.Start))
}
