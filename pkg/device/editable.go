package device

import (
	"errors"
	"fmt"

	"github.com/chazu/tocloak/pkg/scene"
)

// ErrUnknownDevice is returned by New for unregistered device names.
var ErrUnknownDevice = errors.New("device: unknown device")

// Editable owns the scene collection of one device and rebuilds it whenever
// the parameters change.
type Editable struct {
	Device Device
	Ctx    *Context
	Scene  *scene.Collection
	Result *Result
}

// NewEditable returns an editable device with an empty collection named
// after the device. Call Populate to build it.
func NewEditable(d Device, ctx *Context) *Editable {
	return &Editable{Device: d, Ctx: ctx, Scene: scene.NewCollection(d.Name())}
}

// Populate clears and rebuilds the collection from the current parameters.
// On error the previous contents are kept.
func (e *Editable) Populate() error {
	res, err := Populate(e.Scene, e.Device, e.Ctx)
	if err != nil {
		return err
	}
	e.Result = res
	return nil
}

// SetDevice replaces the parameter record and repopulates.
func (e *Editable) SetDevice(d Device) error {
	prev := e.Device
	e.Device = d
	if err := e.Populate(); err != nil {
		e.Device = prev
		return err
	}
	return nil
}

// Faces returns the faces sub-collection, or nil before the first populate.
func (e *Editable) Faces() *scene.Collection {
	return e.Scene.Sub(FacesCollection)
}

// Frames returns the frames sub-collection, or nil before the first populate.
func (e *Editable) Frames() *scene.Collection {
	return e.Scene.Sub(FramesCollection)
}

// Report returns the report of the last successful populate.
func (e *Editable) Report() *Report {
	if e.Result == nil {
		return nil
	}
	return e.Result.Report
}

// New returns the named device with its default parameters.
func New(name string) (Device, error) {
	switch name {
	case "pyramid-cloak":
		return DefaultPyramidCloak(), nil
	case "cubic-shifty-cloak":
		return DefaultCubicShiftyCloak(), nil
	case "tetra-cloak":
		return DefaultTetraCloak(), nil
	case "omnidirectional-lens":
		return OmnidirectionalLens(), nil
	case "space-cancelling-wedge":
		return DefaultSpaceCancellingWedge(), nil
	case "pinch-window":
		return DefaultPinchWindow(), nil
	case "hypercube-net":
		return DefaultHypercubeNet(), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownDevice)
	}
}

// Names lists the devices known to New.
func Names() []string {
	return []string{
		"pyramid-cloak",
		"cubic-shifty-cloak",
		"tetra-cloak",
		"omnidirectional-lens",
		"space-cancelling-wedge",
		"pinch-window",
		"hypercube-net",
	}
}
