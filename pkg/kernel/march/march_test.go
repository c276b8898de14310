package march

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(t *testing.T, origin v3.Vec, spacing float64, n int) lattice.Grid {
	t.Helper()
	g, err := lattice.NewGrid(origin,
		[3]v3.Vec{{X: spacing}, {Y: spacing}, {Z: spacing}},
		[3]int{n, n, n})
	require.NoError(t, err)
	return g
}

func sphere(center v3.Vec, r float64) field.Field {
	return &field.Func{F: func(p v3.Vec) float64 { return r - p.Sub(center).Length() }}
}

func signedVolume(m *kernel.Mesh) float64 {
	vol := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := m.Vertex(int(tri[0])), m.Vertex(int(tri[1])), m.Vertex(int(tri[2]))
		vol += a.Dot(b.Cross(c)) / 6
	}
	return vol
}

// directedEdges counts how often each directed triangle edge occurs.
func directedEdges(m *kernel.Mesh) map[[2]uint32]int {
	out := make(map[[2]uint32]int)
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		for i := 0; i < 3; i++ {
			out[[2]uint32{tri[i], tri[(i+1)%3]}]++
		}
	}
	return out
}

func TestTableTrivialCases(t *testing.T) {
	assert.Empty(t, cases[0])
	assert.Empty(t, cases[255])
	assert.Len(t, cases[1], 3, "single corner cuts one triangle")
	assert.Len(t, cases[3], 6, "one inside edge cuts a quad")
}

func TestTableUsesExactlyTheCrossingEdges(t *testing.T) {
	for mask := 0; mask < 256; mask++ {
		want := map[int8]bool{}
		for e := 0; e < 12; e++ {
			a, b := edgeCorners[e][0], edgeCorners[e][1]
			if (mask>>a&1 == 1) != (mask>>b&1 == 1) {
				want[int8(e)] = true
			}
		}
		got := map[int8]bool{}
		for _, e := range cases[mask] {
			got[e] = true
		}
		assert.Equal(t, want, got, "mask %08b", mask)
	}
}

func TestSphereIsClosedAndOutward(t *testing.T) {
	center := v3.Vec{X: 0.13, Y: -0.07, Z: 0.21}
	const r = 2.7
	in := kernel.Input{
		Grid:  grid(t, v3.Vec{X: -4, Y: -4, Z: -4}, 0.5, 17),
		Field: sphere(center, r),
		Label: "sphere",
	}
	res, err := New().Polygonize(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, res.Faults)
	m := res.Mesh
	require.False(t, m.IsEmpty())
	assert.Equal(t, "sphere", m.Label)

	// Closed and consistently wound: every directed edge appears once and
	// its reverse appears once.
	edges := directedEdges(m)
	for e, n := range edges {
		assert.Equal(t, 1, n, "edge %v", e)
		assert.Equal(t, 1, edges[[2]uint32{e[1], e[0]}], "edge %v has no twin", e)
	}

	want := 4.0 / 3 * math.Pi * r * r * r
	assert.InEpsilon(t, want, signedVolume(m), 0.05)

	for i := 0; i < m.VertexCount(); i++ {
		d := m.Vertex(i).Sub(center).Length()
		assert.InDelta(t, r, d, 0.1)
	}
}

func TestLeftHandedGridStaysOutward(t *testing.T) {
	g, err := lattice.NewGrid(v3.Vec{X: -4, Y: -4, Z: 4},
		[3]v3.Vec{{X: 0.5}, {Y: 0.5}, {Z: -0.5}}, [3]int{17, 17, 17})
	require.NoError(t, err)
	require.False(t, g.RightHanded())

	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: sphere(v3.Vec{}, 2.6)})
	require.NoError(t, err)
	assert.Greater(t, signedVolume(res.Mesh), 0.0)
}

func TestDeterministic(t *testing.T) {
	in := kernel.Input{
		Grid:  grid(t, v3.Vec{X: -2, Y: -2, Z: -2}, 0.25, 17),
		Field: sphere(v3.Vec{X: 0.3}, 1.3),
	}
	a, err := New().Polygonize(context.Background(), in)
	require.NoError(t, err)
	b, err := New().Polygonize(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(a, b), cmp.Diff(a, b))
}

func TestVolumeMatchesField(t *testing.T) {
	g := grid(t, v3.Vec{X: -2, Y: -2, Z: -2}, 0.5, 9)
	f := sphere(v3.Vec{}, 1.2)
	vol, err := field.Sample(context.Background(), g, f)
	require.NoError(t, err)

	fromField, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: f, Threshold: 0.1})
	require.NoError(t, err)
	fromVolume, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Volume: vol, Threshold: 0.1})
	require.NoError(t, err)

	assert.Equal(t, fromField.Mesh.Indices, fromVolume.Mesh.Indices)
	require.Len(t, fromVolume.Mesh.Vertices, len(fromField.Mesh.Vertices))
	for i := range fromField.Mesh.Vertices {
		assert.InDelta(t, fromField.Mesh.Vertices[i], fromVolume.Mesh.Vertices[i], 1e-5)
	}
}

func TestEmptyAndDegenerateGrids(t *testing.T) {
	f := sphere(v3.Vec{}, 1)
	point, err := lattice.NewGrid(v3.Vec{}, [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}, [3]int{1, 1, 1})
	require.NoError(t, err)
	flat, err := lattice.NewGrid(v3.Vec{X: -1, Y: -1}, [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}, [3]int{3, 3, 1})
	require.NoError(t, err)

	for name, g := range map[string]lattice.Grid{"point": point, "flat": flat} {
		t.Run(name, func(t *testing.T) {
			res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: f})
			require.NoError(t, err)
			assert.True(t, res.Mesh.IsEmpty())
			assert.Zero(t, res.Warnings())
		})
	}

	t.Run("empty region", func(t *testing.T) {
		g := grid(t, v3.Vec{}, 1, 3)
		r := lattice.Region{Min: [3]int{2, 0, 0}, Max: [3]int{1, 2, 2}}
		res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Region: &r, Field: f})
		require.NoError(t, err)
		assert.True(t, res.Mesh.IsEmpty())
	})
}

func TestNonFiniteSkipsOnlyAffectedCells(t *testing.T) {
	g := grid(t, v3.Vec{}, 1, 4)
	f := &field.Func{F: func(p v3.Vec) float64 {
		if p == (v3.Vec{X: 1, Y: 1, Z: 1}) {
			return math.NaN()
		}
		return p.X - 1.5
	}}
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: f})
	require.NoError(t, err)

	// The NaN point is a corner of 8 cells; the plane crosses 9 cells of
	// which 4 touch it.
	assert.Len(t, res.Faults, 8)
	assert.Equal(t, 10, res.Mesh.TriangleCount())
	for _, fault := range res.Faults {
		assert.ErrorIs(t, fault, kernel.ErrNonFinite)
		assert.True(t, math.IsNaN(fault.Value))
		assert.Equal(t, v3.Vec{X: 1, Y: 1, Z: 1}, fault.Point)
	}
}

func TestThresholdTieCountsAsOutside(t *testing.T) {
	g := grid(t, v3.Vec{}, 1, 3)
	f := &field.Func{F: func(p v3.Vec) float64 { return p.X - 1 }}
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: f})
	require.NoError(t, err)

	// Points at x=1 sit exactly on the threshold and are outside, so only
	// the cells between x=1 and x=2 cross, and their vertices snap to x=1.
	m := res.Mesh
	assert.Equal(t, 8, m.TriangleCount())
	assert.Equal(t, 9, m.VertexCount())
	for i := 0; i < m.VertexCount(); i++ {
		assert.Equal(t, 1.0, m.Vertex(i).X)
	}
}

func TestRegionRestrictsExtraction(t *testing.T) {
	g := grid(t, v3.Vec{}, 1, 5)
	f := &field.Func{F: func(p v3.Vec) float64 { return p.X - 1.5 }}
	r := lattice.Region{Min: [3]int{1, 0, 0}, Max: [3]int{2, 2, 4}}
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Region: &r, Field: f})
	require.NoError(t, err)
	assert.Equal(t, 2*2*4, res.Mesh.TriangleCount())
	for i := 0; i < res.Mesh.VertexCount(); i++ {
		assert.LessOrEqual(t, res.Mesh.Vertex(i).Y, 2.0)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Polygonize(ctx, kernel.Input{Grid: grid(t, v3.Vec{}, 1, 3), Field: sphere(v3.Vec{X: 1, Y: 1, Z: 1}, 0.5)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidInput(t *testing.T) {
	_, err := New().Polygonize(context.Background(), kernel.Input{Grid: grid(t, v3.Vec{}, 1, 2)})
	assert.Error(t, err)
}

func TestInterpolate(t *testing.T) {
	p0, p1 := v3.Vec{}, v3.Vec{X: 2}
	assert.Equal(t, v3.Vec{X: 0.5}, Interpolate(p0, p1, -1, 3, 0))
	assert.Equal(t, p0, Interpolate(p0, p1, 1, 1, 1))
	assert.Equal(t, p1, Interpolate(p0, p1, -1, 0, 0))
}
