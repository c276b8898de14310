package main

import (
	"context"
	"fmt"

	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/engine"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/monitoring"
	"github.com/chazu/isosurf/pkg/surface"
	"github.com/chazu/isosurf/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to surfaces.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App ties the script engine to the surface pipeline.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	kernel kernel.Kernel
}

// SurfaceData is the JSON-serializable form of one computed surface.
type SurfaceData struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Header   string    `json:"header"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Color    string    `json:"color"`
	Warnings int       `json:"warnings"`

	surface *surface.Surface
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a script.
type EvalResult struct {
	Surfaces []SurfaceData   `json:"surfaces"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App from cfg. A nil cfg means defaults.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	k, err := surface.NewKernel(cfg.GetKernel())
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, engine: engine.NewEngine(cfg), kernel: k}, nil
}

// Evaluate runs a surface script and computes every surface it declares.
// A surface that fails is reported in Errors; the others are still
// returned.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Surfaces: []SurfaceData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a program.
	prog, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		monitoring.Logf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Compute the surfaces.
	outcomes, err := tessellate.Tessellate(ctx, prog, tessellate.Options{Config: a.cfg, Kernel: a.kernel})
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}

	// Step 3: Convert to the serializable form.
	for _, o := range outcomes {
		if o.Err != nil {
			if err == nil {
				result.Errors = append(result.Errors, EvalErrorData{Message: o.Err.Error()})
			}
			continue
		}
		s := o.Surface
		if n := s.Warnings(); n > 0 {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Message: fmt.Sprintf("surface %q: skipped %d cells with undefined field values", o.Name, n),
			})
		}
		result.Surfaces = append(result.Surfaces, SurfaceData{
			Name:     o.Name,
			Kind:     s.Params.Kind.String(),
			Header:   s.Params.Header,
			Vertices: s.Mesh.Vertices,
			Normals:  s.Mesh.Normals,
			Indices:  s.Mesh.Indices,
			Color:    colorPalette[len(result.Surfaces)%len(colorPalette)],
			Warnings: s.Warnings(),
			surface:  s,
		})
	}

	return result
}
