package march

// Cube numbering: corner c sits at offset (c&1, c>>1&1, c>>2&1) from the
// cell's lowest lattice point. Edge e joins edgeCorners[e][0] to
// edgeCorners[e][1] along axis edgeAxis[e], lower corner first.
var (
	edgeCorners [12][2]int
	edgeAxis    [12]int
	edgeOf      [8][8]int
	faces       [6][4]int

	// cases[mask] lists triangles as triples of edge indices, wound so that
	// face normals point from inside (bit set) to outside corners.
	cases [256][]int8
)

func init() {
	for a := range edgeOf {
		for b := range edgeOf[a] {
			edgeOf[a][b] = -1
		}
	}
	e := 0
	for axis := 0; axis < 3; axis++ {
		for c := 0; c < 8; c++ {
			if c&(1<<axis) != 0 {
				continue
			}
			d := c | 1<<axis
			edgeCorners[e] = [2]int{c, d}
			edgeAxis[e] = axis
			edgeOf[c][d], edgeOf[d][c] = e, e
			e++
		}
	}

	f := 0
	for axis := 0; axis < 3; axis++ {
		b, c := 1<<((axis+1)%3), 1<<((axis+2)%3)
		for side := 0; side < 2; side++ {
			base := side << axis
			faces[f] = [4]int{base, base | b, base | b | c, base | c}
			f++
		}
	}

	for mask := range cases {
		cases[mask] = buildCase(mask)
	}
}

func cornerOffset(c int) [3]float64 {
	return [3]float64{float64(c & 1), float64(c >> 1 & 1), float64(c >> 2 & 1)}
}

// buildCase derives the triangulation for one inside/outside pattern.
//
// Each face contributes segments joining its crossing edges. A face with
// four crossings is ambiguous; it is resolved by cutting off its inside
// corners. The resolution depends only on the face's own corners, so the two
// cells sharing a face always agree and the surface stays closed. The
// segments chain into closed loops around the surface, which are then fanned
// into triangles.
func buildCase(mask int) []int8 {
	inside := func(c int) bool { return mask&(1<<c) != 0 }

	var adj [12][]int
	link := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, q := range faces {
		var cross []int
		for i := 0; i < 4; i++ {
			if inside(q[i]) != inside(q[(i+1)%4]) {
				cross = append(cross, i)
			}
		}
		switch len(cross) {
		case 2:
			i, j := cross[0], cross[1]
			link(edgeOf[q[i]][q[(i+1)%4]], edgeOf[q[j]][q[(j+1)%4]])
		case 4:
			for i := 0; i < 4; i++ {
				if inside(q[i]) {
					link(edgeOf[q[(i+3)%4]][q[i]], edgeOf[q[i]][q[(i+1)%4]])
				}
			}
		}
	}

	var tris []int8
	var seen [12]bool
	for start := 0; start < 12; start++ {
		if seen[start] || len(adj[start]) == 0 {
			continue
		}
		loop := []int{start}
		seen[start] = true
		prev, cur := -1, start
		for {
			next := adj[cur][0]
			if next == prev {
				next = adj[cur][1]
			}
			if next == start {
				break
			}
			loop = append(loop, next)
			seen[next] = true
			prev, cur = cur, next
		}
		if !outward(loop, inside) {
			for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
				loop[i], loop[j] = loop[j], loop[i]
			}
		}
		for i := 1; i+1 < len(loop); i++ {
			tris = append(tris, int8(loop[0]), int8(loop[i]), int8(loop[i+1]))
		}
	}
	return tris
}

// outward reports whether the loop's winding (by Newell's method over edge
// midpoints) agrees with the inside-to-outside direction of its edges.
func outward(loop []int, inside func(int) bool) bool {
	var n, want [3]float64
	for i, e := range loop {
		p := midpoint(e)
		q := midpoint(loop[(i+1)%len(loop)])
		n[0] += (p[1] - q[1]) * (p[2] + q[2])
		n[1] += (p[2] - q[2]) * (p[0] + q[0])
		n[2] += (p[0] - q[0]) * (p[1] + q[1])

		lo, hi := cornerOffset(edgeCorners[e][0]), cornerOffset(edgeCorners[e][1])
		sign := 1.0
		if inside(edgeCorners[e][1]) {
			sign = -1
		}
		for a := 0; a < 3; a++ {
			want[a] += sign * (hi[a] - lo[a])
		}
	}
	return n[0]*want[0]+n[1]*want[1]+n[2]*want[2] > 0
}

func midpoint(e int) [3]float64 {
	a, b := cornerOffset(edgeCorners[e][0]), cornerOffset(edgeCorners[e][1])
	return [3]float64{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2, (a[2] + b[2]) / 2}
}
