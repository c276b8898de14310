package field

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ Field = (*Solid)(nil)

// Solid adapts an sdfx signed distance function, negative inside, into a
// field that is positive inside so its zero isosurface is the solid's
// boundary.
type Solid struct {
	s sdf.SDF3
}

// NewSolid wraps an sdfx SDF.
func NewSolid(s sdf.SDF3) *Solid {
	return &Solid{s: s}
}

func (f *Solid) Evaluate(p v3.Vec) float64 { return -f.s.Evaluate(p) }
func (f *Solid) BoundingBox() sdf.Box3     { return f.s.BoundingBox() }

// SDF returns the underlying sdfx function.
func (f *Solid) SDF() sdf.SDF3 { return f.s }

// Box creates a box with the given dimensions centred on the origin.
func Box(x, y, z float64) (*Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("field: box: %w", err)
	}
	return NewSolid(s), nil
}

// Sphere creates a sphere centred on the origin.
func Sphere(radius float64) (*Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("field: sphere: %w", err)
	}
	return NewSolid(s), nil
}

// Cylinder creates a cylinder along Z centred on the origin.
func Cylinder(height, radius float64) (*Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("field: cylinder: %w", err)
	}
	return NewSolid(s), nil
}

// Union returns the union of two solids.
func Union(a, b *Solid) *Solid {
	return NewSolid(sdf.Union3D(a.s, b.s))
}

// Difference returns the difference a - b.
func Difference(a, b *Solid) *Solid {
	return NewSolid(sdf.Difference3D(a.s, b.s))
}

// Intersection returns the intersection of two solids.
func Intersection(a, b *Solid) *Solid {
	return NewSolid(sdf.Intersect3D(a.s, b.s))
}

// Translate moves a solid by d.
func Translate(s *Solid, d v3.Vec) *Solid {
	return NewSolid(sdf.Transform3D(s.s, sdf.Translate3d(d)))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func Rotate(s *Solid, x, y, z float64) *Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return NewSolid(sdf.Transform3D(s.s, m))
}
