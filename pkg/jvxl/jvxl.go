// Package jvxl encodes voxel lattices and isosurface meshes in a compact,
// versioned format.
//
// A document is a short text header followed by a binary payload:
//
//	JVXL-GO 2
//	kind density
//	label "water"
//	cutoff 0.05
//	plane 1 0 0 -1              (optional)
//	origin x y z
//	axis x y z                  (three lines)
//	counts nx ny nz
//	values n                    (0 or nx*ny*nz)
//	mesh vertices triangles
//	mesh-label "text"           (when it differs from label)
//	bounds lx ly lz hx hy hz    (non-empty meshes only)
//	precision px py pz          (non-empty meshes only)
//	payload bytes crc32
//	end
//
// The payload holds the voxel values as XOR-deltas of their float32 bits in
// uvarint form, which is exact, then each vertex coordinate quantised to 16
// bits across the mesh bounds, then triangle indices as zigzag varint
// deltas. Normals are not stored; they are recomputed on decode.
package jvxl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Revision is the format revision written and read by this package.
const Revision = 2

const (
	magic     = "JVXL-GO"
	headerEnd = "end\n"
	quantum   = math.MaxUint16
)

// Document is a lattice, its optional samples, and an optional mesh.
type Document struct {
	Kind   string
	Label  string
	Cutoff float64
	Plane  *geom.Plane
	Grid   lattice.Grid
	// Values is empty or holds one sample per lattice point.
	Values []float32
	Mesh   *kernel.Mesh
	// Precision is the declared per-axis vertex precision. Decode sets it;
	// Encode computes its own.
	Precision [3]float64
}

// Precision returns the largest per-axis position error that encoding m
// introduces: half a quantisation step plus float32 rounding.
func Precision(m *kernel.Mesh) [3]float64 {
	var p [3]float64
	if m == nil || m.IsEmpty() {
		return p
	}
	lo, hi := m.Bounds()
	for a := 0; a < 3; a++ {
		mag := math.Max(math.Abs(float64(lo[a])), math.Abs(float64(hi[a])))
		p[a] = float64(hi[a]-lo[a])/quantum/2 + mag*0x1p-23
	}
	return p
}

// Encode renders doc.
func Encode(doc *Document) ([]byte, error) {
	if err := doc.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("jvxl: encode: %w", err)
	}
	if n := len(doc.Values); n != 0 && n != doc.Grid.Len() {
		return nil, fmt.Errorf("jvxl: encode: %d values for %d lattice points", n, doc.Grid.Len())
	}
	if strings.ContainsAny(doc.Kind, " \n") || doc.Kind == "" {
		return nil, fmt.Errorf("jvxl: encode: invalid kind %q", doc.Kind)
	}
	mesh := doc.Mesh
	if mesh == nil {
		mesh = &kernel.Mesh{}
	}
	nv := mesh.VertexCount()
	for _, idx := range mesh.Indices {
		if int(idx) >= nv {
			return nil, fmt.Errorf("jvxl: encode: index %d out of range (%d vertices)", idx, nv)
		}
	}

	payload := encodePayload(doc.Values, mesh)

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %d\n", magic, Revision)
	fmt.Fprintf(&b, "kind %s\n", doc.Kind)
	fmt.Fprintf(&b, "label %s\n", strconv.Quote(doc.Label))
	fmt.Fprintf(&b, "cutoff %s\n", f64(doc.Cutoff))
	if doc.Plane != nil {
		fmt.Fprintf(&b, "plane %s\n", doc.Plane.String())
	}
	fmt.Fprintf(&b, "origin %s\n", vec(doc.Grid.Origin))
	for _, a := range doc.Grid.Axes {
		fmt.Fprintf(&b, "axis %s\n", vec(a))
	}
	c := doc.Grid.Counts
	fmt.Fprintf(&b, "counts %d %d %d\n", c[0], c[1], c[2])
	fmt.Fprintf(&b, "values %d\n", len(doc.Values))
	fmt.Fprintf(&b, "mesh %d %d\n", nv, mesh.TriangleCount())
	if mesh.Label != doc.Label {
		fmt.Fprintf(&b, "mesh-label %s\n", strconv.Quote(mesh.Label))
	}
	if nv > 0 {
		lo, hi := mesh.Bounds()
		fmt.Fprintf(&b, "bounds %s %s %s %s %s %s\n",
			f32(lo[0]), f32(lo[1]), f32(lo[2]), f32(hi[0]), f32(hi[1]), f32(hi[2]))
		p := Precision(mesh)
		fmt.Fprintf(&b, "precision %s %s %s\n", f64(p[0]), f64(p[1]), f64(p[2]))
	}
	fmt.Fprintf(&b, "payload %d %08x\n", len(payload), crc32.ChecksumIEEE(payload))
	b.WriteString(headerEnd)
	b.Write(payload)
	return b.Bytes(), nil
}

func encodePayload(values []float32, m *kernel.Mesh) []byte {
	out := make([]byte, 0, len(values)+len(m.Vertices)*2+len(m.Indices))
	var prev uint32
	for _, v := range values {
		bits := math.Float32bits(v)
		out = binary.AppendUvarint(out, uint64(bits^prev))
		prev = bits
	}

	lo, hi := m.Bounds()
	for i, v := range m.Vertices {
		a := i % 3
		var q uint16
		if span := float64(hi[a] - lo[a]); span > 0 {
			q = uint16(math.Round((float64(v) - float64(lo[a])) / span * quantum))
		}
		out = binary.LittleEndian.AppendUint16(out, q)
	}

	var last int64
	for _, idx := range m.Indices {
		out = binary.AppendVarint(out, int64(idx)-last)
		last = int64(idx)
	}
	return out
}

func f64(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
func f32(f float32) string { return strconv.FormatFloat(float64(f), 'g', -1, 32) }

func vec(v v3.Vec) string {
	return f64(v.X) + " " + f64(v.Y) + " " + f64(v.Z)
}
