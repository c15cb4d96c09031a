package main

import (
	"log/slog"
	"strings"

	"github.com/chazu/tocloak/pkg/config"
	"github.com/chazu/tocloak/pkg/device"
	"github.com/chazu/tocloak/pkg/engine"
	"github.com/chazu/tocloak/pkg/kernel"
	"github.com/chazu/tocloak/pkg/kernel/sdfx"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	"github.com/chazu/tocloak/pkg/tessellate"
)

// kindPalette colours optical faces by surface kind.
var kindPalette = map[optics.Kind]string{
	optics.KindTransparent:   "#D0E4F0",
	optics.KindIdealLens:     "#4A90D9",
	optics.KindPhaseHologram: "#9B59B6",
	optics.KindGlens:         "#2ECC71",
	optics.KindGCLA:          "#E67E22",
	optics.KindMirror:        "#BDC3C7",
	optics.KindRayRotation:   "#F1C40F",
	optics.KindTeleporting:   "#E74C3C",
}

// App runs scripts and device builds through to meshes.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON form of one mesh.
type MeshData struct {
	Vertices     []float32 `json:"vertices"`
	Normals      []float32 `json:"normals"`
	Indices      []uint32  `json:"indices"`
	Name         string    `json:"name"`
	Surface      string    `json:"surface"`
	Color        string    `json:"color"`
	Transmission float64   `json:"transmission"`
}

// EvalErrorData is the JSON form of a script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// WarningData is the JSON form of a face that could not be realised.
type WarningData struct {
	Device  string `json:"device"`
	Face    string `json:"face"`
	Message string `json:"message"`
}

// EvalResult is everything produced by one run.
type EvalResult struct {
	Meshes   []MeshData       `json:"meshes"`
	Errors   []EvalErrorData  `json:"errors"`
	Warnings []WarningData    `json:"warnings"`
	Stats    tessellate.Stats `json:"stats"`
}

// NewApp creates an App from cfg. A nil cfg selects the defaults.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		engine: engine.NewEngine(engine.Options{
			Logger:    logger,
			Seed:      cfg.Engine.Seed,
			Timeout:   cfg.Timeout(),
			Coating:   cfg.Coating(),
			Tolerance: cfg.Engine.Tolerance,
		}),
		kernel: sdfx.New(cfg.Kernel.Cells),
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []WarningData{},
	}
}

// Evaluate runs a script and meshes the devices it builds.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	res, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, WarningData{Device: w.Device, Face: w.Face, Message: w.Message})
	}
	a.mesh(res.Scene, &result)
	return result
}

// BuildDevice builds the named device with its default parameters and the
// configured display options.
func (a *App) BuildDevice(name string) EvalResult {
	result := newResult()

	d, err := device.New(name)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	a.cfg.Apply(d)
	ctx := a.cfg.Context()
	ctx.Logger = a.logger

	e := device.NewEditable(d, ctx)
	if err := e.Populate(); err != nil {
		a.logger.Error("build failed", "device", name, "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, f := range e.Report().Failed() {
		result.Warnings = append(result.Warnings, WarningData{Device: name, Face: f.Name, Message: f.Err.Error()})
	}
	a.mesh(e.Scene, &result)
	return result
}

// validateTolerance bounds coplanarity and normal errors of scene polygons.
const validateTolerance = 1e-6

func (a *App) mesh(c *scene.Collection, result *EvalResult) {
	findings := scene.Validate(c, validateTolerance)
	for _, f := range findings {
		if f.Severity == scene.SeverityWarning {
			a.logger.Warn("scene", "path", f.Path, "msg", f.Message)
		}
	}
	if scene.HasErrors(findings) {
		for _, f := range findings {
			if f.Severity == scene.SeverityError {
				result.Errors = append(result.Errors, EvalErrorData{Message: f.Error()})
			}
		}
		return
	}

	meshes, err := tessellate.Tessellate(c, a.kernel, true)
	if err != nil {
		a.logger.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return
	}
	surfaces := surfacesByName(c)
	for _, m := range meshes {
		md := MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
		}
		if s := surfaces[m.Name]; s != nil {
			md.Surface = s.Kind().String()
			md.Color = colour(s)
			md.Transmission = s.Coating().Transmission
		}
		result.Meshes = append(result.Meshes, md)
	}
	result.Stats = tessellate.Summarize(meshes)
	a.logger.Debug("meshed", "meshes", result.Stats.Meshes, "triangles", result.Stats.Triangles)
}

// surfacesByName keys the surface of every primitive by the mesh name
// tessellate gives it.
func surfacesByName(c *scene.Collection) map[string]optics.Surface {
	out := make(map[string]optics.Surface)
	_ = c.Walk(func(path []string, obj scene.Object, _ bool) error {
		name := strings.Join(append(append([]string(nil), path...), obj.ObjectName()), "/")
		switch o := obj.(type) {
		case *scene.Polygon:
			out[name] = o.Surface
		case *scene.Sphere:
			out[name] = o.Surface
		case *scene.Cylinder:
			out[name] = o.Surface
		}
		return nil
	})
	return out
}

func colour(s optics.Surface) string {
	if c, ok := s.(optics.Coloured); ok {
		return c.Colour
	}
	return kindPalette[s.Kind()]
}
