package surface

import (
	"context"
	"fmt"

	"github.com/chazu/isosurf/pkg/atoms"
	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/jvxl"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/kernel/march"
	"github.com/chazu/isosurf/pkg/kernel/sdfx"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/chazu/isosurf/pkg/monitoring"
)

// NewKernel returns the extraction backend with the given config name.
func NewKernel(name string) (kernel.Kernel, error) {
	switch name {
	case "march", "":
		return march.New(), nil
	case "sdfx":
		return sdfx.New(), nil
	}
	return nil, configErr("kernel", "unknown kernel %q", name)
}

// Generator holds everything one surface computation reads: the
// configuration, the atoms, the extraction kernel and the initial
// parameters. The atom set is shared read-only and may be used by several
// generators at once.
type Generator struct {
	cfg    *config.Config
	atoms  *atoms.Set
	kernel kernel.Kernel
	params Params
}

// NewGenerator builds a generator. A nil cfg means defaults; a nil kernel
// means the one cfg names; a nil set means no atoms.
func NewGenerator(cfg *config.Config, set *atoms.Set, k kernel.Kernel, p Params) (*Generator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if set == nil {
		set = atoms.NewSet()
	}
	if k == nil {
		var err error
		if k, err = NewKernel(cfg.GetKernel()); err != nil {
			return nil, err
		}
	}
	return &Generator{cfg: cfg, atoms: set, kernel: k, params: p}, nil
}

func (g *Generator) Config() *config.Config { return g.cfg }
func (g *Generator) Atoms() *atoms.Set       { return g.atoms }
func (g *Generator) Kernel() kernel.Kernel   { return g.kernel }

// Params returns a copy of the initial parameters.
func (g *Generator) Params() Params { return g.params }

// Generate runs a fresh reader for the parameters' kind through its
// lifecycle and returns the surface. Configuration and data errors abort
// before anything is sampled; sampling faults are attached to the surface.
func (g *Generator) Generate(ctx context.Context) (*Surface, error) {
	r, err := NewReader(g.params.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.Init(g); err != nil {
		return nil, err
	}
	p, err := r.Setup(false)
	if err != nil {
		return nil, err
	}
	s, err := r.Extract(ctx)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("surface: %s %q: %d triangles on %v lattice (%s)",
		p.Kind, p.DisplayLabel(), s.Mesh.TriangleCount(), s.Grid.Counts, g.extractedBy(p.Kind))
	if n := s.Warnings(); n > 0 {
		monitoring.Logf("surface: %s %q: skipped %d cells with undefined field values", p.Kind, p.DisplayLabel(), n)
	}
	return s, nil
}

// extractedBy names what produced the mesh of a surface of kind k. Planes
// are triangulated directly and never reach the kernel.
func (g *Generator) extractedBy(k Kind) string {
	if k == KindPlane {
		return "direct polygon"
	}
	return g.kernel.Name() + " kernel"
}

// Map samples this generator's field at the vertices of an existing mesh,
// using Params.Grid as the lattice.
func (g *Generator) Map(ctx context.Context, mesh *kernel.Mesh) ([]float32, error) {
	r, err := NewReader(g.params.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.Init(g); err != nil {
		return nil, err
	}
	if _, err := r.Setup(true); err != nil {
		return nil, err
	}
	return r.MapValues(ctx, mesh)
}

// Surface is the outcome of one computation.
type Surface struct {
	Params Params
	Grid   lattice.Grid
	// Region is the part of Grid extraction covered.
	Region lattice.Region
	// Volume holds the samples when they were precalculated.
	Volume *lattice.Volume
	Mesh   *kernel.Mesh
	Faults []kernel.SamplingError
}

// Warnings returns the number of cells skipped for undefined field values.
func (s *Surface) Warnings() int { return len(s.Faults) }

// Document converts the surface for JVXL encoding.
func (s *Surface) Document() *jvxl.Document {
	doc := &jvxl.Document{
		Kind:   s.Params.Kind.String(),
		Label:  s.Params.DisplayLabel(),
		Cutoff: s.Params.Cutoff,
		Plane:  s.Params.Plane,
		Grid:   s.Grid,
		Mesh:   s.Mesh,
	}
	if s.Volume != nil {
		doc.Values = s.Volume.Values
	}
	return doc
}

// Encode renders the surface as JVXL.
func (s *Surface) Encode() ([]byte, error) {
	data, err := jvxl.Encode(s.Document())
	if err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	return data, nil
}
