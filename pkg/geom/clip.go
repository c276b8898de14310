package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Slab is the closed region Min <= Normal·p <= Max. Normal should be unit
// length so tolerances are in world units.
type Slab struct {
	Normal   v3.Vec
	Min, Max float64
}

// ClipPolygon clips a convex polygon against every slab in turn
// (Sutherland-Hodgman). Points within tol of a boundary count as inside, so
// a polygon lying on a face of the clipping volume is kept. Consecutive
// vertices closer than tol are merged; fewer than three survivors yields nil.
func ClipPolygon(poly []v3.Vec, slabs []Slab, tol float64) []v3.Vec {
	out := poly
	for _, s := range slabs {
		out = clipHalf(out, s.Normal, s.Max, tol)
		out = clipHalf(out, s.Normal.MulScalar(-1), -s.Min, tol)
		if len(out) == 0 {
			return nil
		}
	}
	out = dedupe(out, tol)
	if len(out) < 3 {
		return nil
	}
	return out
}

// clipHalf keeps the part of poly with n·p <= limit.
func clipHalf(poly []v3.Vec, n v3.Vec, limit, tol float64) []v3.Vec {
	if len(poly) == 0 {
		return nil
	}
	out := make([]v3.Vec, 0, len(poly)+1)
	prev := poly[len(poly)-1]
	dp := n.Dot(prev) - limit
	for _, cur := range poly {
		dc := n.Dot(cur) - limit
		curIn := dc <= tol
		prevIn := dp <= tol
		switch {
		case curIn && !prevIn:
			out = append(out, crossing(prev, cur, dp, dc), cur)
		case curIn:
			out = append(out, cur)
		case prevIn:
			out = append(out, crossing(prev, cur, dp, dc))
		}
		prev, dp = cur, dc
	}
	return out
}

// crossing interpolates the point where the signed distance goes to zero
// between a and b. Callers guarantee da and db straddle the boundary.
func crossing(a, b v3.Vec, da, db float64) v3.Vec {
	t := da / (da - db)
	return a.Add(b.Sub(a).MulScalar(t))
}

func dedupe(poly []v3.Vec, tol float64) []v3.Vec {
	out := make([]v3.Vec, 0, len(poly))
	for _, p := range poly {
		if len(out) > 0 && out[len(out)-1].Sub(p).Length() <= tol {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].Sub(out[len(out)-1]).Length() <= tol {
		out = out[:len(out)-1]
	}
	return out
}

// Fan triangulates a convex polygon from its first vertex, preserving the
// polygon's winding. Triangles are returned as indices into poly.
func Fan(poly []v3.Vec) [][3]int {
	if len(poly) < 3 {
		return nil
	}
	tris := make([][3]int, 0, len(poly)-2)
	for i := 1; i+1 < len(poly); i++ {
		tris = append(tris, [3]int{0, i, i + 1})
	}
	return tris
}
