package jvxl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// header is the parsed text part of a document.
type header struct {
	doc     Document
	nvalues int
	nverts  int
	ntris   int
	lo, hi  [3]float32
	size    int
	crc     uint32
	// meshLabel is used when the mesh is labelled apart from the document.
	meshLabel    string
	hasMeshLabel bool
}

// Decode parses a document produced by Encode. Any inconsistency fails the
// whole decode; a document of another revision is rejected before its
// header is read.
func Decode(data []byte) (*Document, error) {
	end := bytes.Index(data, []byte("\n"+headerEnd))
	if end < 0 {
		if err := checkRevision(data); err != nil {
			return nil, err
		}
		return nil, formatErr(0, nil, "header is not terminated")
	}
	text := string(data[:end+1])
	payload := data[end+1+len(headerEnd):]

	h, err := parseHeader(strings.Split(strings.TrimSuffix(text, "\n"), "\n"))
	if err != nil {
		return nil, err
	}
	if len(payload) != h.size {
		return nil, formatErr(0, nil, "payload is %d bytes, header declares %d", len(payload), h.size)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != h.crc {
		return nil, formatErr(0, nil, "payload checksum %08x, header declares %08x", sum, h.crc)
	}
	if err := h.decodePayload(payload); err != nil {
		return nil, err
	}
	return &h.doc, nil
}

func checkRevision(data []byte) error {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	_, err := parseRevision(string(first))
	return err
}

func parseRevision(line string) (int, error) {
	f := strings.Fields(line)
	if len(f) != 2 || f[0] != magic {
		return 0, formatErr(1, nil, "missing %s signature", magic)
	}
	rev, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, formatErr(1, err, "bad revision %q", f[1])
	}
	if rev != Revision {
		return 0, &VersionError{Got: rev}
	}
	return rev, nil
}

func parseHeader(lines []string) (*header, error) {
	if _, err := parseRevision(lines[0]); err != nil {
		return nil, err
	}
	h := &header{}
	seen := map[string]bool{}
	axes := 0
	for n, line := range lines[1:] {
		lineNo := n + 2
		key, rest, _ := strings.Cut(line, " ")
		if seen[key] && key != "axis" {
			return nil, formatErr(lineNo, nil, "duplicate %q", key)
		}
		seen[key] = true

		var err error
		switch key {
		case "kind":
			if rest == "" || strings.Contains(rest, " ") {
				err = errors.New("kind must be a single word")
			}
			h.doc.Kind = rest
		case "label":
			h.doc.Label, err = strconv.Unquote(rest)
		case "mesh-label":
			h.meshLabel, err = strconv.Unquote(rest)
		case "cutoff":
			h.doc.Cutoff, err = strconv.ParseFloat(rest, 64)
		case "plane":
			var pl geom.Plane
			pl, err = geom.ParsePlane(rest)
			h.doc.Plane = &pl
		case "origin":
			h.doc.Grid.Origin, err = parseVec(rest)
		case "axis":
			if axes == 3 {
				return nil, formatErr(lineNo, nil, "more than three axes")
			}
			h.doc.Grid.Axes[axes], err = parseVec(rest)
			axes++
		case "counts":
			c := &h.doc.Grid.Counts
			err = parseInts(rest, &c[0], &c[1], &c[2])
		case "values":
			err = parseInts(rest, &h.nvalues)
		case "mesh":
			err = parseInts(rest, &h.nverts, &h.ntris)
		case "bounds":
			var f []float64
			if f, err = parseFloats(rest, 6, 32); err == nil {
				for a := 0; a < 3; a++ {
					h.lo[a], h.hi[a] = float32(f[a]), float32(f[a+3])
				}
			}
		case "precision":
			var f []float64
			if f, err = parseFloats(rest, 3, 64); err == nil {
				copy(h.doc.Precision[:], f)
			}
		case "payload":
			size, crc, ok := strings.Cut(rest, " ")
			if !ok {
				err = errors.New("want size and checksum")
				break
			}
			if h.size, err = strconv.Atoi(size); err == nil && h.size < 0 {
				err = errors.New("negative size")
			}
			if err == nil {
				var c uint64
				c, err = strconv.ParseUint(crc, 16, 32)
				h.crc = uint32(c)
			}
		default:
			return nil, formatErr(lineNo, nil, "unknown key %q", key)
		}
		if err != nil {
			return nil, formatErr(lineNo, err, "bad %s", key)
		}
	}

	for _, key := range []string{"kind", "label", "cutoff", "origin", "counts", "values", "mesh", "payload"} {
		if !seen[key] {
			return nil, formatErr(0, nil, "header has no %q", key)
		}
	}
	if axes != 3 {
		return nil, formatErr(0, nil, "header has %d axes, want 3", axes)
	}
	if err := h.doc.Grid.Validate(); err != nil {
		return nil, formatErr(0, err, "invalid lattice")
	}
	if h.nvalues != 0 && h.nvalues != h.doc.Grid.Len() {
		return nil, formatErr(0, nil, "%d values for %d lattice points", h.nvalues, h.doc.Grid.Len())
	}
	if h.nverts < 0 || h.ntris < 0 {
		return nil, formatErr(0, nil, "negative mesh size")
	}
	if h.nverts > 0 && !seen["bounds"] {
		return nil, formatErr(0, nil, "mesh has no bounds")
	}
	h.hasMeshLabel = seen["mesh-label"]
	return h, nil
}

func (h *header) decodePayload(p []byte) error {
	// Every value takes at least one byte, every vertex six and every
	// triangle three, so impossible sizes are rejected before allocating.
	// Each count is bounded alone first so the sum cannot overflow.
	if h.nvalues > len(p) || h.nverts > len(p)/6 || h.ntris > len(p)/3 ||
		h.nvalues+6*h.nverts+3*h.ntris > len(p) {
		return formatErr(0, nil, "payload of %d bytes cannot hold the declared contents", len(p))
	}

	if h.nvalues > 0 {
		h.doc.Values = make([]float32, h.nvalues)
	}
	var prev uint32
	for i := range h.doc.Values {
		x, n := binary.Uvarint(p)
		if n <= 0 || x > math.MaxUint32 {
			return formatErr(0, nil, "bad value %d", i)
		}
		p = p[n:]
		prev ^= uint32(x)
		h.doc.Values[i] = math.Float32frombits(prev)
	}

	m := &kernel.Mesh{
		Vertices: make([]float32, 3*h.nverts),
		Indices:  make([]uint32, 3*h.ntris),
	}
	if len(p) < 6*h.nverts {
		return formatErr(0, nil, "payload truncated in vertices")
	}
	for i := range m.Vertices {
		a := i % 3
		q := binary.LittleEndian.Uint16(p[2*i:])
		span := float64(h.hi[a] - h.lo[a])
		m.Vertices[i] = float32(float64(h.lo[a]) + float64(q)/quantum*span)
	}
	p = p[6*h.nverts:]

	var last int64
	for i := range m.Indices {
		d, n := binary.Varint(p)
		if n <= 0 {
			return formatErr(0, nil, "bad index %d", i)
		}
		p = p[n:]
		last += d
		if last < 0 || last >= int64(h.nverts) {
			return formatErr(0, nil, "index %d is %d, out of range (%d vertices)", i, last, h.nverts)
		}
		m.Indices[i] = uint32(last)
	}
	if len(p) != 0 {
		return formatErr(0, nil, "%d trailing payload bytes", len(p))
	}
	m.Label = h.doc.Label
	if h.hasMeshLabel {
		m.Label = h.meshLabel
	}
	m.ComputeNormals()
	h.doc.Mesh = m
	return nil
}

func parseVec(s string) (v3.Vec, error) {
	f, err := parseFloats(s, 3, 64)
	if err != nil {
		return v3.Vec{}, err
	}
	return v3.Vec{X: f[0], Y: f[1], Z: f[2]}, nil
}

func parseFloats(s string, n, bits int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, errors.New("wrong number of fields")
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, bits)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string, dst ...*int) error {
	fields := strings.Fields(s)
	if len(fields) != len(dst) {
		return errors.New("wrong number of fields")
	}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return err
		}
		*dst[i] = v
	}
	return nil
}
