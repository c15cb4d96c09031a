package device

import (
	"io"
	"log/slog"
	"math/rand"

	"github.com/chazu/tocloak/pkg/optics"
)

// DefaultTolerance is used when a Context leaves Tolerance at zero.
const DefaultTolerance = 1e-7

// Context carries everything a build needs besides the device parameters.
type Context struct {
	Logger *slog.Logger
	// Seed drives the perturbation retry of the sequential solver. Every
	// solve restarts from it, so repeated builds of one device agree.
	Seed int64
	// Tolerance for plane-fixing and realisability checks.
	Tolerance float64
	// Coating is applied to every optical face.
	Coating optics.Coating

	rng *rand.Rand
}

// NewContext returns a context with a seeded random source and the default
// coating. A nil logger discards output.
func NewContext(logger *slog.Logger, seed int64) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Context{
		Logger:    logger,
		Seed:      seed,
		Tolerance: DefaultTolerance,
		Coating:   optics.DefaultCoating,
	}
}

func (c *Context) tol() float64 {
	if c == nil || c.Tolerance <= 0 {
		return DefaultTolerance
	}
	return c.Tolerance
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// reseed restarts the random source from Seed.
func (c *Context) reseed() {
	c.rng = rand.New(rand.NewSource(c.Seed))
}

func (c *Context) rand() *rand.Rand {
	if c.rng == nil {
		c.reseed()
	}
	return c.rng
}
