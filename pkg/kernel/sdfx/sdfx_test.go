package sdfx

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func cube(t *testing.T, lo, spacing float64, n int) lattice.Grid {
	t.Helper()
	g, err := lattice.NewGrid(v3.Vec{X: lo, Y: lo, Z: lo},
		[3]v3.Vec{{X: spacing}, {Y: spacing}, {Z: spacing}}, [3]int{n, n, n})
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	return g
}

func TestSphere(t *testing.T) {
	k := New()
	s, err := field.Sphere(2)
	if err != nil {
		t.Fatal(err)
	}
	res, err := k.Polygonize(context.Background(), kernel.Input{Grid: cube(t, -3, 0.25, 25), Field: s, Label: "ball"})
	if err != nil {
		t.Fatalf("Polygonize failed: %v", err)
	}
	mesh := res.Mesh
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.Label != "ball" {
		t.Errorf("label = %q", mesh.Label)
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		if d := mesh.Vertex(i).Length(); math.Abs(d-2) > 0.1 {
			t.Fatalf("vertex %d at radius %f, want ~2", i, d)
		}
	}
	if len(res.Faults) != 0 {
		t.Errorf("unexpected faults: %v", res.Faults)
	}
}

func TestThresholdShift(t *testing.T) {
	k := New()
	// Density-like field, high in the middle: the 0.5 level set is the
	// sphere of radius 1.5.
	f := &field.Func{F: func(p v3.Vec) float64 { return 2 - p.Length() }}
	res, err := k.Polygonize(context.Background(), kernel.Input{Grid: cube(t, -2, 0.2, 21), Field: f, Threshold: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	for i := 0; i < res.Mesh.VertexCount(); i++ {
		if d := res.Mesh.Vertex(i).Length(); math.Abs(d-1.5) > 0.1 {
			t.Fatalf("vertex %d at radius %f, want ~1.5", i, d)
		}
	}
}

func TestVolumeInput(t *testing.T) {
	g := cube(t, -2, 0.25, 17)
	s, err := field.Sphere(1)
	if err != nil {
		t.Fatal(err)
	}
	vol, err := field.Sample(context.Background(), g, s)
	if err != nil {
		t.Fatal(err)
	}
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Volume: vol})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(res.Faults) != 0 {
		t.Errorf("clamped volume sampling should not fault, got %d", len(res.Faults))
	}
}

func TestSingularFieldFaults(t *testing.T) {
	f := &field.Func{F: func(p v3.Vec) float64 {
		if p.X > 0.5 {
			return math.NaN()
		}
		return 1 - p.Length()
	}}
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: cube(t, -2, 0.5, 9), Field: f})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Faults) == 0 {
		t.Fatal("expected sampling faults")
	}
	for i := 1; i < len(res.Faults); i++ {
		if res.Faults[i].Cell == res.Faults[i-1].Cell {
			t.Errorf("duplicate fault for cell %v", res.Faults[i].Cell)
		}
	}
}

func TestFlatGridIsEmpty(t *testing.T) {
	g, err := lattice.NewGrid(v3.Vec{}, [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}, [3]int{4, 4, 1})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := field.Sphere(1)
	res, err := New().Polygonize(context.Background(), kernel.Input{Grid: g, Field: s})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Mesh.IsEmpty() {
		t.Errorf("flat grid produced %d triangles", res.Mesh.TriangleCount())
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := field.Sphere(1)
	if _, err := New().Polygonize(ctx, kernel.Input{Grid: cube(t, -2, 0.5, 9), Field: s}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
