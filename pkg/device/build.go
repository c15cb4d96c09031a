package device

import (
	"errors"
	"fmt"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Names of the sub-collections created by Populate.
const (
	FacesCollection  = "faces"
	FramesCollection = "frames"
)

// DefaultFrameRadius is used when Display.FrameRadius is zero.
const DefaultFrameRadius = 0.01

// DefaultFrameColour is used when Display.FrameColour is empty.
const DefaultFrameColour = "#8C8C8C"

// Device is a parameter record that can describe itself as a topology.
type Device interface {
	Name() string
	Topology() (*Topology, error)
	Options() Display
}

// finisher is implemented by devices that adjust their surfaces after
// realisation.
type finisher interface {
	finish(res *Result)
}

// Display holds the presentation options shared by all devices.
type Display struct {
	Representation optics.LensRepresentation
	ShowFaces      bool
	ShowFrames     bool
	FrameRadius    float64
	FrameColour    string
}

// DefaultDisplay shows faces and frames with ideal thin lenses.
func DefaultDisplay() Display {
	return Display{
		Representation: optics.IdealThinLens,
		ShowFaces:      true,
		ShowFrames:     true,
		FrameRadius:    DefaultFrameRadius,
		FrameColour:    DefaultFrameColour,
	}
}

func (d *Display) display() *Display { return d }

// EditDisplay calls fn with the display options of d, which must embed
// Display. It reports whether d had any.
func EditDisplay(d Device, fn func(*Display)) bool {
	o, ok := d.(interface{ display() *Display })
	if !ok {
		return false
	}
	fn(o.display())
	return true
}

func (d Display) withDefaults() Display {
	if d.FrameRadius == 0 {
		d.FrameRadius = DefaultFrameRadius
	}
	if d.FrameColour == "" {
		d.FrameColour = DefaultFrameColour
	}
	return d
}

// FaceResult records how one face was realised.
type FaceResult struct {
	Name string
	Kind optics.Kind
	Err  error
}

// Report lists the outcome for every face of a build. Faces that could not
// be realised are built with a transparent placeholder and carry an error.
type Report struct {
	Device string
	Faces  []FaceResult
}

// Failed returns the faces that could not be realised.
func (r *Report) Failed() []FaceResult {
	var out []FaceResult
	for _, f := range r.Faces {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the errors of all failed faces, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		errs = append(errs, fmt.Errorf("face %q: %w", f.Name, f.Err))
	}
	return errors.Join(errs...)
}

// Face returns the result for the named face.
func (r *Report) Face(name string) (FaceResult, bool) {
	for _, f := range r.Faces {
		if f.Name == name {
			return f, true
		}
	}
	return FaceResult{}, false
}

// Counts returns the number of faces per surface kind.
func (r *Report) Counts() map[optics.Kind]int {
	m := make(map[optics.Kind]int)
	for _, f := range r.Faces {
		m[f.Kind]++
	}
	return m
}

// Result is everything produced by a build besides the scene objects.
type Result struct {
	Topology *Topology
	Maps     map[string]optics.Collineation
	Surfaces map[string]optics.Surface
	Report   *Report
}

// Populate builds d into dst. dst is cleared and rebuilt with a faces and a
// frames sub-collection. If the device cannot be solved dst is left
// untouched and the error returned.
func Populate(dst *scene.Collection, d Device, ctx *Context) (*Result, error) {
	if ctx == nil {
		ctx = NewContext(nil, 1)
	}
	topo, err := d.Topology()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	if err := topo.Check(ctx.tol()); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	maps, err := SolveSequential(topo, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	opts := d.Options().withDefaults()
	res := &Result{
		Topology: topo,
		Maps:     maps,
		Surfaces: make(map[string]optics.Surface, len(topo.Faces)),
		Report:   &Report{Device: d.Name()},
	}

	var polygons []*scene.Polygon
	for _, f := range topo.Faces {
		pl, pts, err := topo.FacePlane(f)
		if err != nil {
			return nil, fmt.Errorf("%s: face %q: %w", d.Name(), f.Name, err)
		}
		surf, err := realiseFace(f, pl, maps, opts.Representation, ctx)
		if err != nil {
			ctx.logger().Warn("face not realizable, using placeholder",
				"device", d.Name(), "face", f.Name, "err", err)
			surf = optics.Transparent{}
		}
		surf = withCoating(surf, ctx.Coating)
		res.Surfaces[f.Name] = surf
		res.Report.Faces = append(res.Report.Faces, FaceResult{Name: f.Name, Kind: surf.Kind(), Err: err})
		polygons = append(polygons, &scene.Polygon{
			Name:     f.Name,
			Vertices: pts,
			Normal:   pl.Normal,
			Surface:  surf,
		})
	}

	if fin, ok := d.(finisher); ok {
		fin.finish(res)
	}

	decorations, err := frameObjects(topo, opts, ctx.Coating)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	dst.Clear()
	faces := dst.AddCollection(FacesCollection, opts.ShowFaces)
	for i, p := range polygons {
		faces.Add(p, !topo.Faces[i].Hidden)
	}
	frames := dst.AddCollection(FramesCollection, opts.ShowFrames)
	for _, o := range decorations {
		frames.Add(o, true)
	}

	ctx.logger().Info("device populated",
		"device", d.Name(), "faces", len(polygons), "frames", frames.Len(),
		"failed", len(res.Report.Failed()))
	return res, nil
}

// realiseFace returns the surface of f. Light travelling from the inner to
// the outer cell sees M_outer⁻¹ M_inner.
func realiseFace(f Face, pl geom.Plane, maps map[string]optics.Collineation, rep optics.LensRepresentation, ctx *Context) (optics.Surface, error) {
	if f.Surface != nil {
		return f.Surface, nil
	}
	inner, ok := maps[f.Inner]
	if !ok {
		return nil, fmt.Errorf("%q: %w", f.Inner, ErrUnknownCell)
	}
	outer, ok := maps[f.Outer]
	if !ok {
		return nil, fmt.Errorf("%q: %w", f.Outer, ErrUnknownCell)
	}
	inv, err := outer.Inverse()
	if err != nil {
		return nil, err
	}
	return optics.Realize(inner.Then(inv), pl, rep, ctx.tol())
}

// frameObjects returns a sphere for every vertex and a cylinder for every
// edge, all sharing one radius and one coloured surface.
func frameObjects(t *Topology, opts Display, coat optics.Coating) ([]scene.Object, error) {
	surf := optics.Coloured{Colour: opts.FrameColour, Coat: coat}
	var out []scene.Object
	for _, v := range t.Vertices {
		out = append(out, &scene.Sphere{
			Name:    "vertex " + v.Name,
			Centre:  v.Pos,
			Radius:  opts.FrameRadius,
			Surface: surf,
		})
	}
	for _, e := range t.Edges() {
		a, err := t.Vertex(e[0])
		if err != nil {
			return nil, err
		}
		b, err := t.Vertex(e[1])
		if err != nil {
			return nil, err
		}
		out = append(out, &scene.Cylinder{
			Name:    "edge " + e[0] + "-" + e[1],
			Start:   a.Pos,
			End:     b.Pos,
			Radius:  opts.FrameRadius,
			Surface: surf,
		})
	}
	return out, nil
}

// withCoating returns s with its coating replaced by c.
func withCoating(s optics.Surface, c optics.Coating) optics.Surface {
	switch v := s.(type) {
	case optics.Transparent:
		v.Coat = c
		return v
	case *optics.IdealLens:
		v.Coat = c
	case *optics.Glens:
		v.Coat = c
	case *optics.GCLA:
		v.Coat = c
	case *optics.Mirror:
		v.Coat = c
	case *optics.RayRotation:
		v.Coat = c
	case *optics.Teleporting:
		v.Coat = c
	}
	return s
}

// Trace images q through the named faces in order. dir is the direction of
// travel, used to decide which way each face is crossed.
func (r *Result) Trace(q, dir r3.Vec, faces ...string) (r3.Vec, error) {
	for _, name := range faces {
		s, ok := r.Surfaces[name]
		if !ok {
			return r3.Vec{}, fmt.Errorf("no face %q", name)
		}
		img, err := s.ImagePosition(q, dir)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("face %q: %w", name, err)
		}
		q = img
	}
	return q, nil
}

// EMPosition maps a physical point in the named cell to EM space.
func (r *Result) EMPosition(cell string, q r3.Vec) (r3.Vec, error) {
	m, ok := r.Maps[cell]
	if !ok {
		return r3.Vec{}, fmt.Errorf("%q: %w", cell, ErrUnknownCell)
	}
	return m.Apply(q)
}
