package optics

import (
	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind identifies the type of a surface.
type Kind int

const (
	KindTransparent Kind = iota
	KindIdealLens
	KindPhaseHologram
	KindGlens
	KindGCLA
	KindMirror
	KindRayRotation
	KindTeleporting
	KindColoured
)

func (k Kind) String() string {
	switch k {
	case KindTransparent:
		return "transparent"
	case KindIdealLens:
		return "ideal-lens"
	case KindPhaseHologram:
		return "phase-hologram"
	case KindGlens:
		return "glens"
	case KindGCLA:
		return "gcla"
	case KindMirror:
		return "mirror"
	case KindRayRotation:
		return "ray-rotation"
	case KindTeleporting:
		return "teleporting"
	case KindColoured:
		return "coloured"
	default:
		return "unknown"
	}
}

// Coating holds the transmission properties shared by all surfaces.
type Coating struct {
	// Transmission is the fraction of light intensity passed on, in [0, 1].
	Transmission float64
	// Shadows controls whether the surface throws shadows.
	Shadows bool
}

// DefaultCoating is used by the device generators unless configured otherwise.
var DefaultCoating = Coating{Transmission: 0.96}

// Surface is the optical behaviour attached to a scene object.
type Surface interface {
	Kind() Kind
	Coating() Coating
	// ImagePosition returns the image of q seen by light that reached q
	// travelling in direction dir.
	ImagePosition(q, dir r3.Vec) (r3.Vec, error)
}

// Imaging is a surface whose action is a collineation fixing its plane.
type Imaging interface {
	Surface
	Plane() geom.Plane
	// Collineation is the map seen by light travelling along the plane
	// normal.
	Collineation() Collineation
}

// LensRepresentation selects how ideal-lens faces are rendered.
type LensRepresentation int

const (
	IdealThinLens LensRepresentation = iota
	PhaseHologram
	GlassPane
)

func (r LensRepresentation) String() string {
	switch r {
	case IdealThinLens:
		return "ideal-thin-lens"
	case PhaseHologram:
		return "phase-hologram"
	case GlassPane:
		return "glass-pane"
	default:
		return "unknown"
	}
}

// ParseLensRepresentation is the inverse of LensRepresentation.String.
func ParseLensRepresentation(s string) (LensRepresentation, bool) {
	for _, r := range []LensRepresentation{IdealThinLens, PhaseHologram, GlassPane} {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}

// imageThrough images q with s, or with its inverse when dir points against
// the plane normal.
func imageThrough(s Imaging, q, dir r3.Vec) (r3.Vec, error) {
	c := s.Collineation()
	if r3.Dot(dir, s.Plane().Normal) < 0 {
		inv, err := c.Inverse()
		if err != nil {
			return r3.Vec{}, err
		}
		c = inv
	}
	return c.Apply(q)
}
