package surface

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// planeTol is the clipping tolerance relative to the lattice diagonal.
const planeTol = 1e-9

// PlaneReader contours a single infinite plane. Its field is the signed
// distance to the plane, so the zero isosurface is the plane itself and the
// surface is emitted directly as the plane's polygon inside the lattice.
type PlaneReader struct {
	AtomDataReader
	footprint []v3.Vec
}

var _ Reader = (*PlaneReader)(nil)

func (r *PlaneReader) Kind() Kind { return KindPlane }

// Setup always sets the cutoff to 0 and disables precalculation, whatever
// the caller passed in.
func (r *PlaneReader) Setup(isMapData bool) (Params, error) {
	if err := r.setupBase(isMapData, nil); err != nil {
		return Params{}, err
	}
	p := r.params
	if p.Plane == nil {
		r.ready = false
		return Params{}, configErr("plane", "plane surface has no plane")
	}
	pl, err := geom.NewPlane(p.Plane.Normal, p.Plane.Offset)
	if err != nil {
		r.ready = false
		return Params{}, &ConfigurationError{Param: "plane", Err: err}
	}
	p.Plane = &pl
	p.Header = "PLANE " + pl.String()
	p.Cutoff = 0
	p.PrecalculateVoxelData = false
	r.params = p
	r.field = field.NewPlane(pl, r.grid.Box())
	if err := r.setVolumeForPlane(); err != nil {
		r.ready = false
		return Params{}, err
	}
	return p, nil
}

// setVolumeForPlane clips the plane to the lattice and restricts the
// reader to the cells the resulting polygon passes through.
func (r *PlaneReader) setVolumeForPlane() error {
	g := r.grid
	b := g.Box()
	center := b.Min.Add(b.Max).MulScalar(0.5)
	diag := g.Diagonal()
	tol := planeTol * math.Max(1, diag)

	r.footprint = geom.ClipPolygon(r.params.Plane.Quad(center, diag+1), g.Slabs(), tol)
	region, err := lattice.RegionAround(g, r.footprint, 1e-9)
	if err != nil {
		return &ConfigurationError{Param: "grid", Err: err}
	}
	r.region = &region
	return nil
}

// Footprint returns the plane's polygon inside the lattice, wound
// counter-clockwise about the plane normal. It is empty when the plane
// misses the lattice.
func (r *PlaneReader) Footprint() []v3.Vec { return r.footprint }

// Extract triangulates the footprint; no field sampling is needed.
func (r *PlaneReader) Extract(ctx context.Context) (*Surface, error) {
	if !r.ready {
		return nil, &ConfigurationError{Param: "reader", Err: errNotSetUp}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("surface: plane: %w", err)
	}
	b := kernel.NewBuilder(r.params.DisplayLabel())
	idx := make([]uint32, len(r.footprint))
	for i, p := range r.footprint {
		idx[i] = b.AddVertex(p)
	}
	for _, tri := range geom.Fan(r.footprint) {
		b.AddTriangle(idx[tri[0]], idx[tri[1]], idx[tri[2]])
	}
	return r.surface(b.Mesh(), nil), nil
}
