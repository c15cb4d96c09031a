package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ValidationSeverity indicates whether a finding makes the scene unusable or
// is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // unusable geometry
	SeverityWarning                           // degenerate but accepted
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string // slash-separated path of the object
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Path, e.Message)
}

// Validate checks every primitive in the tree and returns the findings.
// Zero or negative radii and empty names are accepted by the generators and
// only reported as warnings. Validate never mutates the collection.
func Validate(c *Collection, tol float64) []ValidationError {
	var errs []ValidationError
	_ = c.Walk(func(path []string, obj Object, _ bool) error {
		p := strings.Join(append(append([]string(nil), path...), obj.ObjectName()), "/")
		switch o := obj.(type) {
		case *Polygon:
			errs = append(errs, validatePolygon(p, o, tol)...)
		case *Sphere:
			errs = append(errs, validatePoints(p, o.Centre)...)
			errs = append(errs, validateRadius(p, o.Radius)...)
		case *Cylinder:
			errs = append(errs, validatePoints(p, o.Start, o.End)...)
			errs = append(errs, validateRadius(p, o.Radius)...)
			if o.Length() == 0 {
				errs = append(errs, ValidationError{Path: p, Message: "cylinder has zero length", Severity: SeverityWarning})
			}
		}
		if obj.ObjectName() == "" {
			errs = append(errs, ValidationError{Path: p, Message: obj.Kind().String() + " has no name", Severity: SeverityWarning})
		}
		return nil
	})
	return errs
}

func validatePolygon(path string, p *Polygon, tol float64) []ValidationError {
	var errs []ValidationError
	if len(p.Vertices) < 3 {
		return append(errs, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("polygon has %d vertices, need at least 3", len(p.Vertices)),
			Severity: SeverityError,
		})
	}
	errs = append(errs, validatePoints(path, p.Vertices...)...)
	if !geom.Coplanar(p.Vertices, tol) {
		errs = append(errs, ValidationError{Path: path, Message: "polygon vertices are not coplanar", Severity: SeverityError})
	}
	if math.Abs(r3.Norm(p.Normal)-1) > tol {
		errs = append(errs, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("normal %v is not a unit vector", p.Normal),
			Severity: SeverityError,
		})
	} else if pl := geom.PlaneThrough(p.Vertices[0], p.Vertices[1], p.Vertices[2]); math.Abs(math.Abs(r3.Dot(pl.Normal, p.Normal))-1) > tol {
		errs = append(errs, ValidationError{Path: path, Message: "normal is not perpendicular to the polygon", Severity: SeverityError})
	}
	if p.Surface == nil {
		errs = append(errs, ValidationError{Path: path, Message: "polygon has no surface", Severity: SeverityWarning})
	}
	return errs
}

func validatePoints(path string, points ...r3.Vec) []ValidationError {
	for _, v := range points {
		if !geom.Finite(v) {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("non-finite point %v", v), Severity: SeverityError}}
		}
	}
	return nil
}

func validateRadius(path string, r float64) []ValidationError {
	if r <= 0 {
		return []ValidationError{{Path: path, Message: fmt.Sprintf("radius %.4g is not positive", r), Severity: SeverityWarning}}
	}
	return nil
}

// HasErrors reports whether errs contains an error-severity finding.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
