// Package field provides the scalar fields an isosurface is extracted from.
//
// Every field satisfies sdf.SDF3, so it can be handed straight to the sdfx
// renderer as well as to the native marching-cubes kernel. Fields are
// configured once and hold no mutable state; they are safe for concurrent
// evaluation.
package field

import (
	"context"
	"fmt"

	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Field maps a point to a scalar. Evaluate may return NaN or ±Inf where the
// field is undefined; extraction reports such points as sampling faults.
type Field interface {
	Evaluate(p v3.Vec) float64
	BoundingBox() sdf.Box3
}

var (
	_ sdf.SDF3 = (Field)(nil)
	_ Field    = (*Plane)(nil)
	_ Field    = (*Func)(nil)
)

// Plane is the signed distance to a plane, limited to a box for rendering.
type Plane struct {
	Plane geom.Plane
	Box   sdf.Box3
}

// NewPlane returns the distance field of pl over box.
func NewPlane(pl geom.Plane, box sdf.Box3) *Plane {
	return &Plane{Plane: pl, Box: box}
}

func (f *Plane) Evaluate(p v3.Vec) float64 { return f.Plane.Distance(p) }
func (f *Plane) BoundingBox() sdf.Box3     { return f.Box }

// Func adapts an externally supplied function.
type Func struct {
	F   func(v3.Vec) float64
	Box sdf.Box3
}

func (f *Func) Evaluate(p v3.Vec) float64 { return f.F(p) }
func (f *Func) BoundingBox() sdf.Box3     { return f.Box }

// Sample evaluates f at every point of g. Cancellation is checked once per
// z-slab.
func Sample(ctx context.Context, g lattice.Grid, f Field) (*lattice.Volume, error) {
	vol := lattice.NewVolume(g)
	for k := 0; k < g.Counts[2]; k++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("field: sampling slab %d: %w", k, err)
		}
		for j := 0; j < g.Counts[1]; j++ {
			for i := 0; i < g.Counts[0]; i++ {
				vol.Set(i, j, k, float32(f.Evaluate(g.Point(i, j, k))))
			}
		}
	}
	return vol, nil
}
