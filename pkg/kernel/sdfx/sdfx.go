// Package sdfx implements the kernel.Kernel interface using the
// marching-cubes renderer of the github.com/deadsy/sdfx SDF-based CAD
// library.
package sdfx

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// outsideValue replaces non-finite samples so the renderer treats the
// point as empty space.
const outsideValue = 1e30

// shifted presents a field to sdfx, which treats negative values as inside:
// threshold - f is negative exactly where f > threshold.
type shifted struct {
	f         field.Field
	threshold float64
	box       sdf.Box3
	mapper    lattice.Mapper

	mu     sync.Mutex
	seen   map[[3]int]bool
	faults []kernel.SamplingError
}

// Evaluate returns threshold - f(p), recording non-finite samples.
func (s *shifted) Evaluate(p v3.Vec) float64 {
	v := s.f.Evaluate(p)
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		return s.threshold - v
	}
	fp := s.mapper.Fractional(p)
	cell := [3]int{int(math.Floor(fp.X)), int(math.Floor(fp.Y)), int(math.Floor(fp.Z))}
	s.mu.Lock()
	if !s.seen[cell] {
		s.seen[cell] = true
		s.faults = append(s.faults, kernel.SamplingError{Cell: cell, Point: p, Value: v})
	}
	s.mu.Unlock()
	return outsideValue
}

// BoundingBox returns the extraction box.
func (s *shifted) BoundingBox() sdf.Box3 {
	return s.box
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// Name returns "sdfx".
func (k *SdfxKernel) Name() string { return "sdfx" }

// Polygonize renders the input region with sdfx's uniform marching cubes.
// The renderer picks its own cubic cells, as many along the longest side
// as the lattice has cells there, so vertices do not lie on lattice edges.
// Sampling faults are reported per lattice cell. The renderer cannot be
// interrupted; cancellation is only observed before and after it runs.
func (k *SdfxKernel) Polygonize(ctx context.Context, in kernel.Input) (*kernel.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sdfx: %w", err)
	}
	res := &kernel.Result{}
	r := in.Bounds()
	sub := in.Grid
	if !r.Empty() {
		sub = in.Grid.Sub(r)
	}
	if r.Empty() || !sub.HasCells() {
		res.Mesh = kernel.NewBuilder(in.Label).Mesh()
		return res, nil
	}

	f := in.Field
	if in.Volume != nil {
		sampled, err := field.NewSampled(in.Volume)
		if err != nil {
			return nil, fmt.Errorf("sdfx: %w", err)
		}
		sampled.Clamp = true
		f = sampled
	}
	mapper, err := in.Grid.Mapper()
	if err != nil {
		return nil, fmt.Errorf("sdfx: %w", err)
	}
	s := &shifted{
		f:         f,
		threshold: in.Threshold,
		box:       sub.Box(),
		mapper:    mapper,
		seen:      make(map[[3]int]bool),
	}

	cells := sub.Cells()
	meshCells := max(cells[0], cells[1], cells[2])

	renderer := render.NewMarchingCubesUniform(meshCells)
	triangles := render.ToTriangles(s, renderer)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sdfx: %w", err)
	}

	b := kernel.NewBuilder(in.Label)
	for _, tri := range triangles {
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			idx[j] = b.AddVertex(tri[j])
		}
		b.AddTriangle(idx[0], idx[1], idx[2])
	}
	res.Mesh = b.Mesh()
	res.Faults = s.faults
	slices.SortFunc(res.Faults, func(a, b kernel.SamplingError) int {
		for i := 2; i >= 0; i-- {
			if c := cmp.Compare(a.Cell[i], b.Cell[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return res, nil
}
