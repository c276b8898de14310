// Package geom holds the small amount of plane and polygon math the surface
// readers share. Vectors are sdfx v3.Vec values throughout.
package geom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrDegeneratePlane is returned when a plane normal is zero or not finite.
var ErrDegeneratePlane = errors.New("degenerate plane normal")

// Plane is the set of points p with Normal·p + Offset = 0. Normal is unit
// length for planes built with NewPlane.
type Plane struct {
	Normal v3.Vec  `json:"normal"`
	Offset float64 `json:"offset"`
}

// NewPlane builds a plane from a possibly unnormalised equation
// a*x + b*y + c*z + d = 0. The normal and offset are scaled together so the
// zero set is unchanged.
func NewPlane(normal v3.Vec, offset float64) (Plane, error) {
	if !Finite(normal) || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return Plane{}, fmt.Errorf("geom: plane (%v, %g): %w", normal, offset, ErrDegeneratePlane)
	}
	l := normal.Length()
	if l == 0 || math.IsInf(l, 0) {
		return Plane{}, fmt.Errorf("geom: plane (%v, %g): %w", normal, offset, ErrDegeneratePlane)
	}
	n := normal.MulScalar(1 / l)
	return Plane{
		Normal: v3.Vec{X: n.X + 0, Y: n.Y + 0, Z: n.Z + 0},
		Offset: offset/l + 0,
	}, nil
}

// ParsePlane parses the four-number form produced by String. The numbers are
// taken as given so a formatted plane parses back to identical values; only
// degenerate normals are rejected.
func ParsePlane(s string) (Plane, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Plane{}, fmt.Errorf("geom: plane %q: want 4 numbers, got %d", s, len(fields))
	}
	var f [4]float64
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Plane{}, fmt.Errorf("geom: plane %q: %w", s, err)
		}
		f[i] = v
	}
	n := v3.Vec{X: f[0], Y: f[1], Z: f[2]}
	if !Finite(n) || n.Length() == 0 || math.IsNaN(f[3]) || math.IsInf(f[3], 0) {
		return Plane{}, fmt.Errorf("geom: plane %q: %w", s, ErrDegeneratePlane)
	}
	return Plane{Normal: n, Offset: f[3]}, nil
}

// Distance returns the signed distance from p to the plane, positive on the
// side the normal points to.
func (pl Plane) Distance(p v3.Vec) float64 {
	return pl.Normal.Dot(p) + pl.Offset
}

// Project returns the point on the plane closest to p.
func (pl Plane) Project(p v3.Vec) v3.Vec {
	return p.Sub(pl.Normal.MulScalar(pl.Distance(p)))
}

// Basis returns an orthonormal pair (u, v) spanning the plane with u×v
// equal to the normal.
func (pl Plane) Basis() (u, v v3.Vec) {
	h := v3.Vec{X: 1}
	if math.Abs(pl.Normal.X) > 0.9 {
		h = v3.Vec{Y: 1}
	}
	u = h.Sub(pl.Normal.MulScalar(h.Dot(pl.Normal))).Normalize()
	v = pl.Normal.Cross(u)
	return u, v
}

// Quad returns a square on the plane centred on the projection of center,
// with the given half-width, wound counter-clockwise about the normal.
func (pl Plane) Quad(center v3.Vec, half float64) []v3.Vec {
	c := pl.Project(center)
	u, v := pl.Basis()
	u = u.MulScalar(half)
	v = v.MulScalar(half)
	return []v3.Vec{
		c.Sub(u).Sub(v),
		c.Add(u).Sub(v),
		c.Add(u).Add(v),
		c.Sub(u).Add(v),
	}
}

// String formats the plane as "nx ny nz d" with the shortest representation
// that parses back to the same values.
func (pl Plane) String() string {
	parts := []float64{pl.Normal.X, pl.Normal.Y, pl.Normal.Z, pl.Offset}
	out := make([]string, len(parts))
	for i, f := range parts {
		out[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(out, " ")
}

// Finite reports whether every component of v is a finite number.
func Finite(v v3.Vec) bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
