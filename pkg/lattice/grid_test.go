package lattice

import (
	"errors"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitAxes() [3]v3.Vec {
	return [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
}

func TestNewGridValid(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 24, g.Len())
	assert.Equal(t, [3]int{1, 2, 3}, g.Cells())
	assert.True(t, g.HasCells())
}

func TestNewGridRejects(t *testing.T) {
	tests := []struct {
		name   string
		origin v3.Vec
		axes   [3]v3.Vec
		counts [3]int
		degen  bool
	}{
		{"zero count", v3.Vec{}, unitAxes(), [3]int{0, 2, 2}, false},
		{"negative count", v3.Vec{}, unitAxes(), [3]int{2, -1, 2}, false},
		{"nan origin", v3.Vec{X: math.NaN()}, unitAxes(), [3]int{2, 2, 2}, false},
		{"inf axis", v3.Vec{}, [3]v3.Vec{{X: math.Inf(1)}, {Y: 1}, {Z: 1}}, [3]int{2, 2, 2}, false},
		{"zero axis", v3.Vec{}, [3]v3.Vec{{X: 1}, {}, {Z: 1}}, [3]int{2, 2, 2}, true},
		{"coplanar axes", v3.Vec{}, [3]v3.Vec{{X: 1}, {Y: 1}, {X: 1, Y: 1}}, [3]int{2, 2, 2}, true},
		{"parallel axes", v3.Vec{}, [3]v3.Vec{{X: 1}, {X: 2}, {Z: 1}}, [3]int{2, 2, 2}, true},
		{"point count overflows", v3.Vec{}, unitAxes(), [3]int{1 << 32, 1 << 32, 1}, false},
		{"point count overflows on z", v3.Vec{}, unitAxes(), [3]int{1 << 31, 2, 1 << 31}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.origin, tt.axes, tt.counts)
			require.Error(t, err)
			assert.Equal(t, tt.degen, errors.Is(err, ErrDegenerate))
		})
	}
}

func TestSinglePointGridIsValid(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.False(t, g.HasCells())
	assert.Equal(t, [3]int{0, 0, 0}, g.Cells())
}

func TestIndexXFastest(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Index(0, 0, 0))
	assert.Equal(t, 1, g.Index(1, 0, 0))
	assert.Equal(t, 3, g.Index(0, 1, 0))
	assert.Equal(t, 12, g.Index(0, 0, 1))
	assert.Equal(t, g.Len()-1, g.Index(2, 3, 4))
}

func TestPointSkewedAxes(t *testing.T) {
	axes := [3]v3.Vec{{X: 1}, {X: 0.5, Y: 1}, {Z: 2}}
	g, err := NewGrid(v3.Vec{X: 1, Y: 2, Z: 3}, axes, [3]int{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, v3.Vec{X: 2.5, Y: 3, Z: 5}, g.Point(1, 1, 1))
}

func TestMapperInvertsPoint(t *testing.T) {
	axes := [3]v3.Vec{{X: 0.5}, {X: 0.25, Y: 0.5}, {Y: 0.1, Z: 0.5}}
	g, err := NewGrid(v3.Vec{X: -1, Y: -1, Z: -1}, axes, [3]int{5, 5, 5})
	require.NoError(t, err)
	m, err := g.Mapper()
	require.NoError(t, err)

	f := m.Fractional(g.Point(2, 3, 4))
	assert.InDelta(t, 2, f.X, 1e-12)
	assert.InDelta(t, 3, f.Y, 1e-12)
	assert.InDelta(t, 4, f.Z, 1e-12)
}

func TestFromBox(t *testing.T) {
	box := sdf.Box3{Min: v3.Vec{X: -1, Y: -1, Z: 0}, Max: v3.Vec{X: 1, Y: 1.1, Z: 0}}
	g, err := FromBox(box, 2)
	require.NoError(t, err)
	assert.Equal(t, box.Min, g.Origin)
	// x: 2 units at 0.5 spacing, y: 2.1 rounds up to 5 cells, z is flat.
	assert.Equal(t, [3]int{5, 6, 1}, g.Counts)
	assert.Equal(t, v3.Vec{X: 0.5}, g.Axes[0])
}

func TestFromBoxRejectsBadResolution(t *testing.T) {
	box := sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}}
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := FromBox(box, r)
		assert.Error(t, err, "resolution %g", r)
	}
}

func TestBoxAndDiagonal(t *testing.T) {
	g, err := NewGrid(v3.Vec{X: 1}, unitAxes(), [3]int{3, 3, 3})
	require.NoError(t, err)
	b := g.Box()
	assert.Equal(t, v3.Vec{X: 1}, b.Min)
	assert.Equal(t, v3.Vec{X: 3, Y: 2, Z: 2}, b.Max)
	assert.InDelta(t, math.Sqrt(12), g.Diagonal(), 1e-12)
}

func TestSlabsCoverGrid(t *testing.T) {
	g, err := NewGrid(v3.Vec{X: 1, Y: 2, Z: 3}, unitAxes(), [3]int{2, 3, 4})
	require.NoError(t, err)
	slabs := g.Slabs()
	require.Len(t, slabs, 3)
	assert.InDelta(t, 1, slabs[0].Min, 1e-12)
	assert.InDelta(t, 2, slabs[0].Max, 1e-12)
	assert.InDelta(t, 2, slabs[1].Min, 1e-12)
	assert.InDelta(t, 4, slabs[1].Max, 1e-12)
	assert.InDelta(t, 3, slabs[2].Min, 1e-12)
	assert.InDelta(t, 6, slabs[2].Max, 1e-12)
}

func TestSub(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{5, 5, 5})
	require.NoError(t, err)
	s := g.Sub(Region{Min: [3]int{1, 2, 3}, Max: [3]int{2, 4, 3}})
	assert.Equal(t, v3.Vec{X: 1, Y: 2, Z: 3}, s.Origin)
	assert.Equal(t, [3]int{2, 3, 1}, s.Counts)
}

func TestRightHanded(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{2, 2, 2})
	require.NoError(t, err)
	assert.True(t, g.RightHanded())

	g.Axes[2] = v3.Vec{Z: -1}
	assert.False(t, g.RightHanded())
}
