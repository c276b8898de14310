package field

import (
	"math"

	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sampledTol is how far outside the lattice, in index units, a point may lie
// and still be clamped onto it.
const sampledTol = 1e-6

// Sampled trilinearly interpolates a precomputed volume. Points outside the
// lattice evaluate to NaN unless Clamp is set, in which case they take the
// value of the nearest point on the lattice boundary.
type Sampled struct {
	Clamp bool

	vol    *lattice.Volume
	mapper lattice.Mapper
}

// NewSampled wraps vol.
func NewSampled(vol *lattice.Volume) (*Sampled, error) {
	m, err := vol.Grid.Mapper()
	if err != nil {
		return nil, err
	}
	return &Sampled{vol: vol, mapper: m}, nil
}

func (s *Sampled) Evaluate(p v3.Vec) float64 {
	f := s.mapper.Fractional(p)
	var idx [3]int
	var frac [3]float64
	for a, x := range [3]float64{f.X, f.Y, f.Z} {
		hi := float64(s.vol.Grid.Counts[a] - 1)
		if math.IsNaN(x) || (!s.Clamp && (x < -sampledTol || x > hi+sampledTol)) {
			return math.NaN()
		}
		x = math.Min(math.Max(x, 0), hi)
		i := int(math.Floor(x))
		if i >= s.vol.Grid.Counts[a]-1 {
			i = max(s.vol.Grid.Counts[a]-2, 0)
		}
		idx[a] = i
		frac[a] = x - float64(i)
	}
	sum := 0.0
	for c := 0; c < 8; c++ {
		w := 1.0
		var at [3]int
		for a := 0; a < 3; a++ {
			if c&(1<<a) != 0 {
				w *= frac[a]
				at[a] = idx[a] + 1
			} else {
				w *= 1 - frac[a]
				at[a] = idx[a]
			}
		}
		if w == 0 {
			continue
		}
		sum += w * float64(s.vol.At(at[0], at[1], at[2]))
	}
	return sum
}

func (s *Sampled) BoundingBox() sdf.Box3 { return s.vol.Grid.Box() }
