// Package march implements kernel.Kernel with a native marching-cubes
// extractor.
//
// A lattice point is inside the surface when its value is strictly greater
// than the threshold; a value equal to the threshold counts as outside.
// Vertices are shared between the cells that meet at a lattice edge, and
// output order depends only on the input, so repeated runs are identical.
package march

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// Kernel is the native marching-cubes backend.
type Kernel struct{}

// New returns a marching-cubes kernel.
func New() *Kernel {
	return &Kernel{}
}

// Name returns "march".
func (k *Kernel) Name() string { return "march" }

// Polygonize walks every cell of the input region. Cells with a non-finite
// corner are skipped and reported as faults.
func (k *Kernel) Polygonize(ctx context.Context, in kernel.Input) (*kernel.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	res := &kernel.Result{}
	r := in.Bounds()
	if r.Empty() || r.Max[0] == r.Min[0] || r.Max[1] == r.Min[1] || r.Max[2] == r.Min[2] {
		res.Mesh = kernel.NewBuilder(in.Label).Mesh()
		return res, nil
	}

	w := walker{
		in:    in,
		b:     kernel.NewBuilder(in.Label),
		verts: make(map[int]uint32),
		flip:  !in.Grid.RightHanded(),
		nx:    r.Max[0] - r.Min[0] + 1,
		ny:    r.Max[1] - r.Min[1] + 1,
	}
	w.lo = w.slab(r, r.Min[2])
	for k := r.Min[2]; k < r.Max[2]; k++ {
		w.hi = w.slab(r, k+1)
		for j := r.Min[1]; j < r.Max[1]; j++ {
			for i := r.Min[0]; i < r.Max[0]; i++ {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("march: cell (%d,%d,%d): %w", i, j, k, ctx.Err())
				default:
				}
				if f, ok := w.cell(r, i, j, k); !ok {
					res.Faults = append(res.Faults, f)
				}
			}
		}
		w.lo = w.hi
	}
	res.Mesh = w.b.Mesh()
	return res, nil
}

// walker holds the state of one extraction. Samples are cached one z-slab
// pair at a time.
type walker struct {
	in     kernel.Input
	b      *kernel.Builder
	verts  map[int]uint32
	flip   bool
	nx, ny int
	lo, hi []float64
}

func (w *walker) slab(r lattice.Region, k int) []float64 {
	vals := make([]float64, w.nx*w.ny)
	for j := 0; j < w.ny; j++ {
		for i := 0; i < w.nx; i++ {
			vals[j*w.nx+i] = w.in.Value(r.Min[0]+i, r.Min[1]+j, k)
		}
	}
	return vals
}

func (w *walker) value(r lattice.Region, i, j int, upper bool) float64 {
	s := w.lo
	if upper {
		s = w.hi
	}
	return s[(j-r.Min[1])*w.nx+(i-r.Min[0])]
}

// cell emits the triangles of the cell whose lowest corner is (i, j, k).
func (w *walker) cell(r lattice.Region, i, j, k int) (kernel.SamplingError, bool) {
	var vals [8]float64
	mask := 0
	for c := 0; c < 8; c++ {
		ci, cj, ck := i+c&1, j+c>>1&1, k+c>>2&1
		v := w.value(r, ci, cj, ck != k)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return kernel.SamplingError{
				Cell:  [3]int{i, j, k},
				Point: w.in.Grid.Point(ci, cj, ck),
				Value: v,
			}, false
		}
		vals[c] = v
		if v > w.in.Threshold {
			mask |= 1 << c
		}
	}

	tris := cases[mask]
	for t := 0; t+2 < len(tris); t += 3 {
		var idx [3]uint32
		for n := 0; n < 3; n++ {
			idx[n] = w.vertex(i, j, k, int(tris[t+n]), &vals)
		}
		if w.flip {
			idx[1], idx[2] = idx[2], idx[1]
		}
		w.b.AddTriangle(idx[0], idx[1], idx[2])
	}
	return kernel.SamplingError{}, true
}

// vertex returns the mesh vertex on cell edge e, creating it on first use.
// Vertices are keyed by the lattice edge, not the cell, so neighbouring
// cells share them.
func (w *walker) vertex(i, j, k, e int, vals *[8]float64) uint32 {
	c0, c1 := edgeCorners[e][0], edgeCorners[e][1]
	pi, pj, pk := i+c0&1, j+c0>>1&1, k+c0>>2&1
	key := w.in.Grid.Index(pi, pj, pk)*3 + edgeAxis[e]
	if idx, ok := w.verts[key]; ok {
		return idx
	}

	p0 := w.in.Grid.Point(pi, pj, pk)
	p1 := p0.Add(w.in.Grid.Axes[edgeAxis[e]])
	idx := w.b.AddVertex(Interpolate(p0, p1, vals[c0], vals[c1], w.in.Threshold))
	w.verts[key] = idx
	return idx
}

// Interpolate returns the point on segment p0-p1 where a linear field with
// end values v0, v1 crosses threshold. Equal end values snap to p0.
func Interpolate(p0, p1 v3.Vec, v0, v1, threshold float64) v3.Vec {
	if v1 == v0 {
		return p0
	}
	t := math.Min(math.Max((threshold-v0)/(v1-v0), 0), 1)
	return p0.Add(p1.Sub(p0).MulScalar(t))
}
