// Package config reads tocloak settings from gcfg (INI style) files.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/chazu/tocloak/pkg/device"
	"github.com/chazu/tocloak/pkg/optics"
	"gopkg.in/gcfg.v1"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// ExampleFile documents every setting with its default value.
const ExampleFile = `[Kernel]
# Marching cubes cells along the longest side of a frame template.
Cells = 24

[Frame]
# Radius of frame spheres and cylinders.
Radius = 0.01
# Hex colour of the frames, quoted because # starts a comment.
Colour = "#8C8C8C"

[Surface]
# Fraction of light intensity passed by every optical face.
Transmission = 0.96
Shadows = false
# One of ideal-thin-lens, phase-hologram or glass-pane.
Representation = ideal-thin-lens

[Engine]
# Wall-clock limit of one script evaluation.
Timeout = 5s
# Seed of the perturbation retry of the sequential solver.
Seed = 1
# Tolerance of plane-fixing and realisability checks.
Tolerance = 1e-7`

// Kernel configures meshing.
type Kernel struct {
	Cells int
}

// Frame configures frame presentation.
type Frame struct {
	Radius float64
	Colour string
}

// Surface configures the optical faces.
type Surface struct {
	Transmission   float64
	Shadows        bool
	Representation string
}

// Engine configures script evaluation.
type Engine struct {
	Timeout   string
	Seed      int64
	Tolerance float64
}

// Config is the top level gcfg wrapper. Section names match the field names.
type Config struct {
	Kernel  Kernel
	Frame   Frame
	Surface Surface
	Engine  Engine
}

// Default returns the settings of ExampleFile.
func Default() *Config {
	return &Config{
		Kernel: Kernel{Cells: 24},
		Frame: Frame{
			Radius: device.DefaultFrameRadius,
			Colour: device.DefaultFrameColour,
		},
		Surface: Surface{
			Transmission:   optics.DefaultCoating.Transmission,
			Shadows:        optics.DefaultCoating.Shadows,
			Representation: optics.IdealThinLens.String(),
		},
		Engine: Engine{
			Timeout:   "5s",
			Seed:      1,
			Tolerance: device.DefaultTolerance,
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return c, c.Validate()
}

// Parse reads settings from a string on top of the defaults.
func Parse(s string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(c, s); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, c.Validate()
}

var colourPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	bad := func(key string, v any) {
		errs = append(errs, fmt.Errorf("%s = %v: %w", key, v, ErrInvalid))
	}
	if c.Kernel.Cells < 4 {
		bad("Kernel.Cells", c.Kernel.Cells)
	}
	if c.Frame.Radius <= 0 {
		bad("Frame.Radius", c.Frame.Radius)
	}
	if !colourPattern.MatchString(c.Frame.Colour) {
		bad("Frame.Colour", c.Frame.Colour)
	}
	if c.Surface.Transmission < 0 || c.Surface.Transmission > 1 {
		bad("Surface.Transmission", c.Surface.Transmission)
	}
	if _, ok := optics.ParseLensRepresentation(c.Surface.Representation); !ok {
		bad("Surface.Representation", c.Surface.Representation)
	}
	if d, err := time.ParseDuration(c.Engine.Timeout); err != nil || d <= 0 {
		bad("Engine.Timeout", c.Engine.Timeout)
	}
	if c.Engine.Tolerance <= 0 {
		bad("Engine.Tolerance", c.Engine.Tolerance)
	}
	return errors.Join(errs...)
}

// Timeout returns the parsed evaluation timeout.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.Engine.Timeout)
	return d
}

// Coating returns the coating applied to optical faces.
func (c *Config) Coating() optics.Coating {
	return optics.Coating{Transmission: c.Surface.Transmission, Shadows: c.Surface.Shadows}
}

// Representation returns the configured lens representation.
func (c *Config) Representation() optics.LensRepresentation {
	r, _ := optics.ParseLensRepresentation(c.Surface.Representation)
	return r
}

// Context returns a build context carrying the configured tolerance, seed
// and coating.
func (c *Config) Context() *device.Context {
	ctx := device.NewContext(nil, c.Engine.Seed)
	ctx.Tolerance = c.Engine.Tolerance
	ctx.Coating = c.Coating()
	return ctx
}

// Apply overrides the display options of d that the configuration covers.
// It reports false for devices without display options.
func (c *Config) Apply(d device.Device) bool {
	return device.EditDisplay(d, func(o *device.Display) {
		o.Representation = c.Representation()
		o.FrameRadius = c.Frame.Radius
		o.FrameColour = c.Frame.Colour
	})
}
