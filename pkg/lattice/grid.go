// Package lattice defines the voxel lattice the isosurface pipeline samples:
// an origin, three axis vectors and per-axis point counts. It knows nothing
// about what is sampled on it.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned for lattices whose axes do not span a volume.
var ErrDegenerate = errors.New("degenerate lattice")

// independenceTol bounds |det(axes)| relative to the product of axis lengths.
const independenceTol = 1e-10

// maxAxisPoints bounds the per-axis count FromBox will produce.
const maxAxisPoints = 1 << 30

// Grid is a lattice of Counts[0]*Counts[1]*Counts[2] points at
// Origin + i*Axes[0] + j*Axes[1] + k*Axes[2].
//
// A count of 1 along an axis is allowed; such a grid is flat (or a line, or a
// single point) but its axes must still be independent.
type Grid struct {
	Origin v3.Vec    `json:"origin"`
	Axes   [3]v3.Vec `json:"axes"`
	Counts [3]int    `json:"counts"`
}

// NewGrid validates and returns a grid.
func NewGrid(origin v3.Vec, axes [3]v3.Vec, counts [3]int) (Grid, error) {
	g := Grid{Origin: origin, Axes: axes, Counts: counts}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// FromBox returns an axis-aligned grid with spacing 1/resolution whose first
// point is box.Min and which covers box.Max. Axes of zero extent get a single
// point.
func FromBox(box sdf.Box3, resolution float64) (Grid, error) {
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return Grid{}, fmt.Errorf("lattice: resolution %g must be positive and finite", resolution)
	}
	if !geom.Finite(box.Min) || !geom.Finite(box.Max) {
		return Grid{}, fmt.Errorf("lattice: box %v is not finite", box)
	}
	spacing := 1 / resolution
	ext := [3]float64{box.Max.X - box.Min.X, box.Max.Y - box.Min.Y, box.Max.Z - box.Min.Z}
	var counts [3]int
	for a, e := range ext {
		if e < 0 {
			return Grid{}, fmt.Errorf("lattice: box %v has negative extent on axis %d", box, a)
		}
		if e*resolution >= maxAxisPoints {
			return Grid{}, fmt.Errorf("lattice: box %v at resolution %g needs too many points on axis %d", box, resolution, a)
		}
		counts[a] = 1
		if e > 0 {
			counts[a] = int(math.Ceil(e*resolution-1e-9)) + 1
		}
	}
	return NewGrid(box.Min, [3]v3.Vec{{X: spacing}, {Y: spacing}, {Z: spacing}}, counts)
}

// Validate checks counts, finiteness and axis independence.
func (g Grid) Validate() error {
	for a, n := range g.Counts {
		if n < 1 {
			return fmt.Errorf("lattice: axis %d count %d must be at least 1", a, n)
		}
	}
	if c := g.Counts; c[1] > math.MaxInt/c[0] || c[2] > math.MaxInt/(c[0]*c[1]) {
		return fmt.Errorf("lattice: counts %v overflow the point count", c)
	}
	if !geom.Finite(g.Origin) {
		return fmt.Errorf("lattice: origin %v is not finite", g.Origin)
	}
	scale := 1.0
	for a, ax := range g.Axes {
		if !geom.Finite(ax) {
			return fmt.Errorf("lattice: axis %d %v is not finite", a, ax)
		}
		l := ax.Length()
		if l == 0 {
			return fmt.Errorf("lattice: axis %d is zero: %w", a, ErrDegenerate)
		}
		scale *= l
	}
	if det := mat.Det(g.matrix()); math.Abs(det) <= independenceTol*scale {
		return fmt.Errorf("lattice: axes %v are not independent (det %g): %w", g.Axes, det, ErrDegenerate)
	}
	return nil
}

// matrix returns the 3x3 matrix whose columns are the axis vectors.
func (g Grid) matrix() *mat.Dense {
	a, b, c := g.Axes[0], g.Axes[1], g.Axes[2]
	return mat.NewDense(3, 3, []float64{
		a.X, b.X, c.X,
		a.Y, b.Y, c.Y,
		a.Z, b.Z, c.Z,
	})
}

// RightHanded reports whether (A0, A1, A2) is a right-handed frame.
func (g Grid) RightHanded() bool {
	return mat.Det(g.matrix()) > 0
}

// Len returns the number of lattice points.
func (g Grid) Len() int {
	return g.Counts[0] * g.Counts[1] * g.Counts[2]
}

// Cells returns the number of cells along each axis.
func (g Grid) Cells() [3]int {
	var c [3]int
	for a, n := range g.Counts {
		if n > 1 {
			c[a] = n - 1
		}
	}
	return c
}

// HasCells reports whether the grid has at least one full 3-D cell.
func (g Grid) HasCells() bool {
	c := g.Cells()
	return c[0] > 0 && c[1] > 0 && c[2] > 0
}

// Index returns the linear index of point (i, j, k); x varies fastest.
func (g Grid) Index(i, j, k int) int {
	return (k*g.Counts[1]+j)*g.Counts[0] + i
}

// Point returns the world position of lattice point (i, j, k).
func (g Grid) Point(i, j, k int) v3.Vec {
	return g.Origin.
		Add(g.Axes[0].MulScalar(float64(i))).
		Add(g.Axes[1].MulScalar(float64(j))).
		Add(g.Axes[2].MulScalar(float64(k)))
}

// Extent returns the edge vector spanned by axis a.
func (g Grid) Extent(a int) v3.Vec {
	return g.Axes[a].MulScalar(float64(g.Counts[a] - 1))
}

// Corners returns the eight corners of the parallelepiped the grid spans.
func (g Grid) Corners() [8]v3.Vec {
	var out [8]v3.Vec
	for c := 0; c < 8; c++ {
		p := g.Origin
		for a := 0; a < 3; a++ {
			if c&(1<<a) != 0 {
				p = p.Add(g.Extent(a))
			}
		}
		out[c] = p
	}
	return out
}

// Box returns the world-space axis-aligned bounding box of the grid.
func (g Grid) Box() sdf.Box3 {
	corners := g.Corners()
	lo, hi := corners[0], corners[0]
	for _, p := range corners[1:] {
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// Diagonal returns the length of the grid's longest corner-to-corner span.
func (g Grid) Diagonal() float64 {
	b := g.Box()
	return b.Max.Sub(b.Min).Length()
}

// Slabs returns the three pairs of bounding planes of the grid's
// parallelepiped, suitable for geom.ClipPolygon.
func (g Grid) Slabs() []geom.Slab {
	slabs := make([]geom.Slab, 3)
	for a := 0; a < 3; a++ {
		b, c := g.Axes[(a+1)%3], g.Axes[(a+2)%3]
		n := b.Cross(c).Normalize()
		if n.Dot(g.Axes[a]) < 0 {
			n = n.MulScalar(-1)
		}
		base := n.Dot(g.Origin)
		slabs[a] = geom.Slab{Normal: n, Min: base, Max: base + n.Dot(g.Extent(a))}
	}
	return slabs
}

// Sub returns the grid restricted to region r. The region must be non-empty
// and lie within the grid.
func (g Grid) Sub(r Region) Grid {
	return Grid{
		Origin: g.Point(r.Min[0], r.Min[1], r.Min[2]),
		Axes:   g.Axes,
		Counts: [3]int{r.Max[0] - r.Min[0] + 1, r.Max[1] - r.Min[1] + 1, r.Max[2] - r.Min[2] + 1},
	}
}

// Mapper converts world coordinates to fractional lattice coordinates.
type Mapper struct {
	origin v3.Vec
	inv    [9]float64
}

// Mapper inverts the axis matrix once so repeated conversions are cheap.
func (g Grid) Mapper() (Mapper, error) {
	var inv mat.Dense
	if err := inv.Inverse(g.matrix()); err != nil {
		return Mapper{}, fmt.Errorf("lattice: invert axes: %w", err)
	}
	m := Mapper{origin: g.Origin}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.inv[r*3+c] = inv.At(r, c)
		}
	}
	return m, nil
}

// Fractional returns (i, j, k) such that p = Origin + i*A0 + j*A1 + k*A2.
func (m Mapper) Fractional(p v3.Vec) v3.Vec {
	d := p.Sub(m.origin)
	return v3.Vec{
		X: m.inv[0]*d.X + m.inv[1]*d.Y + m.inv[2]*d.Z,
		Y: m.inv[3]*d.X + m.inv[4]*d.Y + m.inv[5]*d.Z,
		Z: m.inv[6]*d.X + m.inv[7]*d.Y + m.inv[8]*d.Z,
	}
}
