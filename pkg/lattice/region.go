package lattice

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Region is an inclusive range of lattice point indices.
type Region struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

// Full returns the region covering every point of g.
func Full(g Grid) Region {
	return Region{Max: [3]int{g.Counts[0] - 1, g.Counts[1] - 1, g.Counts[2] - 1}}
}

// Empty reports whether the region holds no points.
func (r Region) Empty() bool {
	for a := 0; a < 3; a++ {
		if r.Min[a] > r.Max[a] {
			return true
		}
	}
	return false
}

// Len returns the number of points in the region.
func (r Region) Len() int {
	if r.Empty() {
		return 0
	}
	return (r.Max[0] - r.Min[0] + 1) * (r.Max[1] - r.Min[1] + 1) * (r.Max[2] - r.Min[2] + 1)
}

// Clamp restricts r to the points of g.
func (r Region) Clamp(g Grid) Region {
	for a := 0; a < 3; a++ {
		r.Min[a] = max(r.Min[a], 0)
		r.Max[a] = min(r.Max[a], g.Counts[a]-1)
	}
	return r
}

// RegionAround returns the smallest region of g whose cells contain every
// point in pts, clamped to the grid. Points within tol (in index units) of a
// lattice plane are treated as lying on it.
func RegionAround(g Grid, pts []v3.Vec, tol float64) (Region, error) {
	if len(pts) == 0 {
		return Region{Min: [3]int{0, 0, 0}, Max: [3]int{-1, -1, -1}}, nil
	}
	m, err := g.Mapper()
	if err != nil {
		return Region{}, err
	}
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		f := m.Fractional(p)
		for a, v := range [3]float64{f.X, f.Y, f.Z} {
			lo[a] = math.Min(lo[a], v)
			hi[a] = math.Max(hi[a], v)
		}
	}
	var r Region
	for a := 0; a < 3; a++ {
		r.Min[a] = int(math.Floor(lo[a] + tol))
		r.Max[a] = int(math.Ceil(hi[a] - tol))
		// Widen to a full cell where the grid allows it so the footprint
		// keeps its cells.
		if r.Max[a] == r.Min[a] {
			if r.Max[a] < g.Counts[a]-1 {
				r.Max[a]++
			} else if r.Min[a] > 0 {
				r.Min[a]--
			}
		}
	}
	return r.Clamp(g), nil
}
