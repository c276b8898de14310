package surface

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Reader builds one kind of surface.
type Reader interface {
	Kind() Kind
	// Init binds the reader to its generator. Binding the same generator
	// again is a no-op; binding a different one fails.
	Init(g *Generator) error
	// Setup validates the parameters, builds the lattice and the field,
	// and returns the parameters as the reader will use them. isMapData
	// selects map mode, which reuses Params.Grid instead of building a
	// lattice around the atoms.
	Setup(isMapData bool) (Params, error)
	// Extract produces the surface. Setup must have succeeded.
	Extract(ctx context.Context) (*Surface, error)
	// MapValues samples the reader's field at each vertex of mesh.
	MapValues(ctx context.Context, mesh *kernel.Mesh) ([]float32, error)
}

// NewReader returns a fresh reader for kind.
func NewReader(kind Kind) (Reader, error) {
	switch kind {
	case KindPlane:
		return &PlaneReader{}, nil
	case KindDensity:
		return &DensityReader{}, nil
	case KindPotential:
		return &PotentialReader{}, nil
	case KindOrbital:
		return &OrbitalReader{}, nil
	case KindFunction:
		return &FunctionReader{}, nil
	}
	return nil, configErr("kind", "no reader for %v", kind)
}

// AtomDataReader is the shared base of every reader: it binds the
// generator, validates the configuration and atoms, and builds the lattice.
// Concrete readers embed it and add their field in Setup.
type AtomDataReader struct {
	gen    *Generator
	params Params
	grid   lattice.Grid
	region *lattice.Region
	field  field.Field
	volume *lattice.Volume
	ready  bool
}

// Init binds the reader to g and takes a copy of its parameters. No lattice
// is allocated here.
func (r *AtomDataReader) Init(g *Generator) error {
	if g == nil {
		return configErr("generator", "nil generator")
	}
	if r.gen != nil {
		if r.gen != g {
			return configErr("generator", "reader is already bound to another generator")
		}
		return nil
	}
	r.gen = g
	r.params = g.Params()
	return nil
}

// Params returns the reader's current parameters.
func (r *AtomDataReader) Params() Params { return r.params }

// Grid returns the lattice built by Setup.
func (r *AtomDataReader) Grid() lattice.Grid { return r.grid }

func (r *AtomDataReader) bound() error {
	if r.gen == nil {
		return &ConfigurationError{Param: "reader", Err: errNotInitialized}
	}
	return nil
}

// setupBase does the checks and lattice construction every reader shares.
// hint, when set, bounds the lattice in the absence of explicit bounds.
//
// Default lattice: the atom centres' bounding box padded on every side by
// Margin plus the largest atom radius, sampled at 1/Resolution spacing with
// ceil(extent*Resolution)+1 points per axis. With no atoms, no bounds and
// no hint the lattice is a single point at the origin.
func (r *AtomDataReader) setupBase(isMapData bool, hint *sdf.Box3) error {
	r.ready = false
	if err := r.bound(); err != nil {
		return err
	}
	cfg := r.gen.Config()
	if err := cfg.Validate(); err != nil {
		return &ConfigurationError{Param: "config", Err: err}
	}
	p := r.params
	if !(p.Resolution > 0) || math.IsInf(p.Resolution, 0) {
		return configErr("resolution", "%g must be positive and finite", p.Resolution)
	}
	if !(p.Margin >= 0) || math.IsInf(p.Margin, 0) {
		return configErr("margin", "%g must be non-negative and finite", p.Margin)
	}
	if math.IsNaN(p.Cutoff) || math.IsInf(p.Cutoff, 0) {
		return configErr("cutoff", "%g must be finite", p.Cutoff)
	}
	if err := r.gen.Atoms().Validate(); err != nil {
		return &DataError{Err: err}
	}

	var g lattice.Grid
	var err error
	switch {
	case isMapData && p.Grid == nil:
		return configErr("grid", "map mode needs the lattice of an existing surface")
	case p.Grid != nil:
		g = *p.Grid
		err = g.Validate()
	default:
		g, err = r.defaultGrid(hint)
	}
	if err != nil {
		return &ConfigurationError{Param: "grid", Err: err}
	}
	c := g.Counts
	if n := float64(c[0]) * float64(c[1]) * float64(c[2]); n > float64(cfg.GetMaxPoints()) {
		return configErr("resolution", "lattice of %v points exceeds max_points %d", c, cfg.GetMaxPoints())
	}

	r.grid = g
	r.region = nil
	r.volume = nil
	r.ready = true
	return nil
}

func (r *AtomDataReader) defaultGrid(hint *sdf.Box3) (lattice.Grid, error) {
	p := r.params
	set := r.gen.Atoms()
	switch {
	case p.Bounds != nil:
		return lattice.FromBox(*p.Bounds, p.Resolution)
	case hint != nil:
		return lattice.FromBox(*hint, p.Resolution)
	}
	if box, ok := set.Bounds(); ok {
		pad := p.Margin + set.MaxRadius(r.gen.Config().GetDefaultRadius())
		d := v3.Vec{X: pad, Y: pad, Z: pad}
		return lattice.FromBox(sdf.Box3{Min: box.Min.Sub(d), Max: box.Max.Add(d)}, p.Resolution)
	}
	s := 1 / p.Resolution
	return lattice.NewGrid(v3.Vec{}, [3]v3.Vec{{X: s}, {Y: s}, {Z: s}}, [3]int{1, 1, 1})
}

// extractVolume runs the generator's kernel over the reader's field.
func (r *AtomDataReader) extractVolume(ctx context.Context) (*Surface, error) {
	if !r.ready {
		return nil, &ConfigurationError{Param: "reader", Err: errNotSetUp}
	}
	p := r.params
	in := kernel.Input{
		Grid:      r.grid,
		Region:    r.region,
		Field:     r.field,
		Threshold: p.Cutoff,
		Label:     p.DisplayLabel(),
	}
	if p.PrecalculateVoxelData {
		vol, err := field.Sample(ctx, r.grid, r.field)
		if err != nil {
			return nil, fmt.Errorf("surface: %v: %w", p.Kind, err)
		}
		r.volume = vol
		in.Volume = vol
	}
	res, err := r.gen.Kernel().Polygonize(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("surface: %v: %w", p.Kind, err)
	}
	return r.surface(res.Mesh, res.Faults), nil
}

func (r *AtomDataReader) surface(mesh *kernel.Mesh, faults []kernel.SamplingError) *Surface {
	region := lattice.Full(r.grid)
	if r.region != nil {
		region = *r.region
	}
	return &Surface{
		Params: r.params,
		Grid:   r.grid,
		Region: region,
		Volume: r.volume,
		Mesh:   mesh,
		Faults: faults,
	}
}

// mapChunk is how many vertices MapValues samples between cancellation
// checks.
const mapChunk = 4096

// MapValues samples the field at each vertex of mesh.
func (r *AtomDataReader) MapValues(ctx context.Context, mesh *kernel.Mesh) ([]float32, error) {
	if !r.ready {
		return nil, &ConfigurationError{Param: "reader", Err: errNotSetUp}
	}
	if mesh == nil {
		return nil, errors.New("surface: map values: nil mesh")
	}
	out := make([]float32, mesh.VertexCount())
	for i := range out {
		if i%mapChunk == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("surface: map values: %w", err)
			}
		}
		out[i] = float32(r.field.Evaluate(mesh.Vertex(i)))
	}
	return out, nil
}
