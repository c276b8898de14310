// Package kernel defines the isosurface extraction backend interface.
// Implementations (march, sdfx) turn a scalar field sampled on a lattice
// into a triangle mesh behind this interface. The abstraction allows
// swapping backends without changing the readers that drive them.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNonFinite is wrapped by every SamplingError.
var ErrNonFinite = errors.New("non-finite field value")

// SamplingError records a cell that was skipped because the field was
// undefined at one of its corners.
type SamplingError struct {
	Cell  [3]int  // lattice index of the cell's lowest corner
	Point v3.Vec  // world position of the offending sample
	Value float64 // the non-finite value
}

func (e SamplingError) Error() string {
	return fmt.Sprintf("cell %v: field is %g at %v", e.Cell, e.Value, e.Point)
}

func (e SamplingError) Unwrap() error { return ErrNonFinite }

// Input describes one extraction.
type Input struct {
	Grid lattice.Grid
	// Region limits extraction to a sub-block of Grid; nil means all of it.
	Region *lattice.Region
	// Field is evaluated on demand unless Volume holds precalculated
	// samples over Grid.
	Field     field.Field
	Volume    *lattice.Volume
	Threshold float64
	Label     string
}

// Validate checks that the input has something to sample.
func (in Input) Validate() error {
	if in.Field == nil && in.Volume == nil {
		return errors.New("kernel: input has neither field nor volume")
	}
	if in.Volume != nil {
		if in.Volume.Grid != in.Grid {
			return errors.New("kernel: volume was sampled on a different grid")
		}
		if len(in.Volume.Values) != in.Grid.Len() {
			return fmt.Errorf("kernel: volume holds %d samples, grid has %d points", len(in.Volume.Values), in.Grid.Len())
		}
	}
	if math.IsNaN(in.Threshold) || math.IsInf(in.Threshold, 0) {
		return fmt.Errorf("kernel: threshold %g is not finite", in.Threshold)
	}
	return nil
}

// Bounds returns the region to extract, clamped to the grid.
func (in Input) Bounds() lattice.Region {
	if in.Region == nil {
		return lattice.Full(in.Grid)
	}
	return in.Region.Clamp(in.Grid)
}

// Value returns the sample at lattice point (i, j, k).
func (in Input) Value(i, j, k int) float64 {
	if in.Volume != nil {
		return float64(in.Volume.At(i, j, k))
	}
	return in.Field.Evaluate(in.Grid.Point(i, j, k))
}

// Result is an extracted mesh plus the cells skipped while building it.
type Result struct {
	Mesh   *Mesh
	Faults []SamplingError
}

// Warnings returns the number of skipped cells.
func (r *Result) Warnings() int {
	return len(r.Faults)
}

// Kernel is the extraction backend interface.
type Kernel interface {
	// Name identifies the backend in logs and configuration.
	Name() string
	// Polygonize extracts the isosurface of in at in.Threshold. Sampling
	// faults are collected in the result; only invalid input or
	// cancellation is returned as an error.
	Polygonize(ctx context.Context, in Input) (*Result, error)
}
