package field

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestSphereSign(t *testing.T) {
	s, err := Sphere(2)
	if err != nil {
		t.Fatalf("Sphere() error = %v", err)
	}
	if v := s.Evaluate(v3.Vec{}); math.Abs(v-2) > 1e-9 {
		t.Errorf("centre = %f, want 2", v)
	}
	if v := s.Evaluate(v3.Vec{X: 3}); math.Abs(v+1) > 1e-9 {
		t.Errorf("outside = %f, want -1", v)
	}
}

func TestSolidBoundingBox(t *testing.T) {
	box, err := Box(100, 50, 25)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	bb := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}
	got := [2][3]float64{{bb.Min.X, bb.Min.Y, bb.Min.Z}, {bb.Max.X, bb.Max.Y, bb.Max.Z}}
	for i := 0; i < 3; i++ {
		if math.Abs(got[0][i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, got[0][i], expectMin[i])
		}
		if math.Abs(got[1][i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, got[1][i], expectMax[i])
		}
	}
}

func TestTranslateSolid(t *testing.T) {
	box, err := Box(10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	moved := Translate(box, v3.Vec{X: 100, Y: 200, Z: 300})
	if v := moved.Evaluate(v3.Vec{X: 100, Y: 200, Z: 300}); v <= 0 {
		t.Errorf("translated centre = %f, want inside", v)
	}
	if v := moved.Evaluate(v3.Vec{}); v >= 0 {
		t.Errorf("origin = %f, want outside", v)
	}
}

func TestCSG(t *testing.T) {
	box, err := Box(10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	cyl, err := Cylinder(20, 2)
	if err != nil {
		t.Fatal(err)
	}
	centre := v3.Vec{}
	corner := v3.Vec{X: 4, Y: 4}
	tip := v3.Vec{Z: 8}

	if v := Difference(box, cyl).Evaluate(centre); v >= 0 {
		t.Errorf("difference at drilled centre = %f, want outside", v)
	}
	if v := Difference(box, cyl).Evaluate(corner); v <= 0 {
		t.Errorf("difference at corner = %f, want inside", v)
	}
	if v := Union(box, cyl).Evaluate(tip); v <= 0 {
		t.Errorf("union at cylinder tip = %f, want inside", v)
	}
	if v := Intersection(box, cyl).Evaluate(corner); v >= 0 {
		t.Errorf("intersection at corner = %f, want outside", v)
	}
}

func TestRotateSolid(t *testing.T) {
	box, err := Box(100, 10, 10)
	if err != nil {
		t.Fatal(err)
	}

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := Rotate(box, 0, 0, 90)
	bb := rotated.BoundingBox()
	xExtent := bb.Max.X - bb.Min.X
	yExtent := bb.Max.Y - bb.Min.Y

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}
