package lattice

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionFullAndLen(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{2, 3, 4})
	require.NoError(t, err)
	r := Full(g)
	assert.Equal(t, g.Len(), r.Len())
	assert.False(t, r.Empty())
}

func TestRegionClamp(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{3, 3, 3})
	require.NoError(t, err)
	r := Region{Min: [3]int{-2, 1, 0}, Max: [3]int{9, 1, 5}}.Clamp(g)
	assert.Equal(t, Region{Min: [3]int{0, 1, 0}, Max: [3]int{2, 1, 2}}, r)

	outside := Region{Min: [3]int{5, 0, 0}, Max: [3]int{9, 2, 2}}.Clamp(g)
	assert.True(t, outside.Empty())
	assert.Equal(t, 0, outside.Len())
}

func TestRegionAroundPlaneFootprint(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{5, 5, 5})
	require.NoError(t, err)

	// A quad in the plane x = 2 spanning the whole grid.
	pts := []v3.Vec{{X: 2}, {X: 2, Y: 4}, {X: 2, Y: 4, Z: 4}, {X: 2, Z: 4}}
	r, err := RegionAround(g, pts, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 0, 0}, r.Min)
	assert.Equal(t, [3]int{3, 4, 4}, r.Max)
}

func TestRegionAroundAtUpperFace(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{3, 3, 3})
	require.NoError(t, err)
	pts := []v3.Vec{{X: 2}, {X: 2, Y: 2}, {X: 2, Y: 2, Z: 2}}
	r, err := RegionAround(g, pts, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Min[0])
	assert.Equal(t, 2, r.Max[0])
}

func TestRegionAroundNoPoints(t *testing.T) {
	g, err := NewGrid(v3.Vec{}, unitAxes(), [3]int{3, 3, 3})
	require.NoError(t, err)
	r, err := RegionAround(g, nil, 0)
	require.NoError(t, err)
	assert.True(t, r.Empty())
}
