package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/isosurf/pkg/atoms"
	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/chazu/isosurf/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpAtom is returned by `atom` so scripts can centre orbitals on it.
type sexpAtom struct {
	index int
	atom  atoms.Atom
}

func (a *sexpAtom) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(atom %q #%d)", a.atom.Element, a.index)
}
func (a *sexpAtom) Type() *zygo.RegisteredType { return nil }

type sexpPlane struct {
	plane geom.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(plane %s)", p.plane)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

type sexpOrbital struct {
	spec field.OrbitalSpec
}

func (o *sexpOrbital) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(orbital %d %d %d)", o.spec.N, o.spec.L, o.spec.M)
}
func (o *sexpOrbital) Type() *zygo.RegisteredType { return nil }

type sexpGrid struct {
	grid lattice.Grid
}

func (g *sexpGrid) SexpString(ps *zygo.PrintState) string {
	c := g.grid.Counts
	return fmt.Sprintf("(grid %dx%dx%d)", c[0], c[1], c[2])
}
func (g *sexpGrid) Type() *zygo.RegisteredType { return nil }

type sexpBounds struct {
	box sdf.Box3
}

func (b *sexpBounds) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(bounds %v %v)", b.box.Min, b.box.Max)
}
func (b *sexpBounds) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a CSG shape usable as the field of a function surface.
type sexpSolid struct {
	solid *field.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string { return "(" + s.desc + ")" }
func (s *sexpSolid) Type() *zygo.RegisteredType           { return nil }

type sexpSurfaceRef struct {
	name string
}

func (r *sexpSurfaceRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(isosurface %q)", r.name)
}
func (r *sexpSurfaceRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// only rejects keywords outside allowed.
func (a kwArgs) only(allowed ...string) error {
	var bad []string
	for k := range a.kw {
		found := false
		for _, ok := range allowed {
			found = found || k == ok
		}
		if !found {
			bad = append(bad, ":"+k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("unknown keyword %s", strings.Join(bad, ", "))
	}
	return nil
}

// float stores keyword key into dst when present.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_plane) and plain strings ("plane").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toVec3 accepts a vec3 or an atom, which stands for its position.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return v.vec, nil
	case *sexpAtom:
		return v.atom.Pos, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func floats(args []zygo.Sexp, what string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", what, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Program builder
// ---------------------------------------------------------------------------

// builder accumulates what a script declares.
type builder struct {
	cfg      *config.Config
	atoms    []atoms.Atom
	requests []Request
	names    map[string]bool
}

func newBuilder(cfg *config.Config) *builder {
	return &builder{cfg: cfg, names: make(map[string]bool)}
}

func (b *builder) program() *Program {
	return &Program{Atoms: atoms.NewSet(b.atoms...), Requests: b.requests}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(b *builder, pa kwArgs) (zygo.Sexp, error)

// builtins maps script names to their implementations.
var builtins = map[string]builtin{
	"vec3":         vec3Builtin,
	"atom":         atomBuiltin,
	"plane":        planeBuiltin,
	"orbital":      orbitalBuiltin,
	"grid":         gridBuiltin,
	"bounds":       boundsBuiltin,
	"box":          boxBuiltin,
	"sphere":       sphereBuiltin,
	"cylinder":     cylinderBuiltin,
	"union":        csgBuiltin("union", field.Union),
	"difference":   csgBuiltin("difference", field.Difference),
	"intersection": csgBuiltin("intersection", field.Intersection),
	"translate":    translateBuiltin,
	"rotate":       rotateBuiltin,
	"isosurface":   isosurfaceBuiltin,
}

// registerBuiltins installs the surface script builtins into a zygomys
// environment. They record atoms and isosurface requests in b.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	for name, fn := range builtins {
		name, fn := name, fn
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			out, err := fn(b, parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return out, nil
		})
	}
}

// (vec3 1 2 3)
func vec3Builtin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 3 || len(pa.kw) > 0 {
		return nil, fmt.Errorf("requires exactly 3 numbers, got %d", len(pa.positional))
	}
	f, err := floats(pa.positional, "component")
	if err != nil {
		return nil, err
	}
	return &sexpVec3{vec: v3.Vec{X: f[0], Y: f[1], Z: f[2]}}, nil
}

// (atom "O" (vec3 0 0 0) :radius 1.5 :charge -0.8)
func atomBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	if err := pa.only("radius", "charge"); err != nil {
		return nil, err
	}
	if len(pa.positional) != 2 {
		return nil, fmt.Errorf("requires an element and a position")
	}
	el, err := toString(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	pos, err := toVec3(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	a := atoms.Atom{Element: el, Pos: pos}
	if err := pa.float("radius", &a.Radius); err != nil {
		return nil, err
	}
	if err := pa.float("charge", &a.Charge); err != nil {
		return nil, err
	}
	if err := atoms.NewSet(a).Validate(); err != nil {
		return nil, err
	}
	b.atoms = append(b.atoms, a)
	return &sexpAtom{index: len(b.atoms) - 1, atom: a}, nil
}

// (plane 1 0 0 -1) is the plane x - 1 = 0.
func planeBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 4 || len(pa.kw) > 0 {
		return nil, fmt.Errorf("requires 4 coefficients a b c d")
	}
	f, err := floats(pa.positional, "coefficient")
	if err != nil {
		return nil, err
	}
	pl, err := geom.NewPlane(v3.Vec{X: f[0], Y: f[1], Z: f[2]}, f[3])
	if err != nil {
		return nil, err
	}
	return &sexpPlane{plane: pl}, nil
}

// (orbital 2 1 0 :zeff 1 :center o :squared true)
func orbitalBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if err := pa.only("zeff", "center", "squared"); err != nil {
		return nil, err
	}
	if len(pa.positional) != 3 {
		return nil, fmt.Errorf("requires quantum numbers n l m")
	}
	var q [3]int
	for i, s := range pa.positional {
		n, err := toInt(s)
		if err != nil {
			return nil, fmt.Errorf("quantum number %d: %w", i, err)
		}
		q[i] = n
	}
	spec := field.OrbitalSpec{N: q[0], L: q[1], M: q[2]}
	if err := pa.float("zeff", &spec.Zeff); err != nil {
		return nil, err
	}
	if v, ok := pa.kw["center"]; ok {
		c, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("center: %w", err)
		}
		spec.Center = c
	}
	if v, ok := pa.kw["squared"]; ok {
		sq, err := toBool(v)
		if err != nil {
			return nil, fmt.Errorf("squared: %w", err)
		}
		spec.Squared = sq
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &sexpOrbital{spec: spec}, nil
}

// (grid :origin (vec3 0 0 0) :axes (list (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1))
//       :counts (list 2 2 2))
func gridBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if err := pa.only("origin", "axes", "counts"); err != nil {
		return nil, err
	}
	var origin v3.Vec
	if v, ok := pa.kw["origin"]; ok {
		o, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("origin: %w", err)
		}
		origin = o
	}
	axes := [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	if v, ok := pa.kw["axes"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, fmt.Errorf("axes: %w", err)
		}
		if len(items) != 3 {
			return nil, fmt.Errorf("axes: want 3 vectors, got %d", len(items))
		}
		for i, item := range items {
			if axes[i], err = toVec3(item); err != nil {
				return nil, fmt.Errorf("axis %d: %w", i, err)
			}
		}
	}
	v, ok := pa.kw["counts"]
	if !ok {
		return nil, fmt.Errorf("requires :counts")
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	if len(items) != 3 {
		return nil, fmt.Errorf("counts: want 3 integers, got %d", len(items))
	}
	var counts [3]int
	for i, item := range items {
		if counts[i], err = toInt(item); err != nil {
			return nil, fmt.Errorf("count %d: %w", i, err)
		}
	}
	g, err := lattice.NewGrid(origin, axes, counts)
	if err != nil {
		return nil, err
	}
	return &sexpGrid{grid: g}, nil
}

// (bounds (vec3 -2 -2 -2) (vec3 2 2 2))
func boundsBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 || len(pa.kw) > 0 {
		return nil, fmt.Errorf("requires two corners")
	}
	lo, err := toVec3(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("min: %w", err)
	}
	hi, err := toVec3(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("max: %w", err)
	}
	if !geom.Finite(lo) || !geom.Finite(hi) || lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
		return nil, fmt.Errorf("corners %v and %v do not form a box", lo, hi)
	}
	return &sexpBounds{box: sdf.Box3{Min: lo, Max: hi}}, nil
}

// (box 2 1 1) centred on the origin.
func boxBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 3 {
		return nil, fmt.Errorf("requires 3 side lengths")
	}
	f, err := floats(pa.positional, "side")
	if err != nil {
		return nil, err
	}
	s, err := field.Box(f[0], f[1], f[2])
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("box %g %g %g", f[0], f[1], f[2])}, nil
}

// (sphere 1.5)
func sphereBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 1 {
		return nil, fmt.Errorf("requires a radius")
	}
	r, err := toFloat64(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("radius: %w", err)
	}
	s, err := field.Sphere(r)
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("sphere %g", r)}, nil
}

// (cylinder 4 1) is a cylinder of height 4 and radius 1 along z.
func cylinderBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 {
		return nil, fmt.Errorf("requires a height and a radius")
	}
	f, err := floats(pa.positional, "dimension")
	if err != nil {
		return nil, err
	}
	s, err := field.Cylinder(f[0], f[1])
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("cylinder %g %g", f[0], f[1])}, nil
}

// csgBuiltin folds op over two or more shapes: (union a b c).
func csgBuiltin(name string, op func(a, b *field.Solid) *field.Solid) builtin {
	return func(_ *builder, pa kwArgs) (zygo.Sexp, error) {
		if len(pa.positional) < 2 {
			return nil, fmt.Errorf("requires at least two shapes")
		}
		first, err := toSolid(pa.positional[0])
		if err != nil {
			return nil, err
		}
		acc := first.solid
		for _, s := range pa.positional[1:] {
			next, err := toSolid(s)
			if err != nil {
				return nil, err
			}
			acc = op(acc, next.solid)
		}
		return &sexpSolid{solid: acc, desc: fmt.Sprintf("%s of %d", name, len(pa.positional))}, nil
	}
}

// (translate shape (vec3 1 0 0))
func translateBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 {
		return nil, fmt.Errorf("requires a shape and an offset")
	}
	s, err := toSolid(pa.positional[0])
	if err != nil {
		return nil, err
	}
	d, err := toVec3(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	return &sexpSolid{solid: field.Translate(s.solid, d), desc: "translate " + s.desc}, nil
}

// (rotate shape :x 90 :z 45), angles in degrees applied x, then y, then z.
func rotateBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if err := pa.only("x", "y", "z"); err != nil {
		return nil, err
	}
	if len(pa.positional) != 1 {
		return nil, fmt.Errorf("requires a shape")
	}
	s, err := toSolid(pa.positional[0])
	if err != nil {
		return nil, err
	}
	var x, y, z float64
	for key, dst := range map[string]*float64{"x": &x, "y": &y, "z": &z} {
		if err := pa.float(key, dst); err != nil {
			return nil, err
		}
	}
	return &sexpSolid{solid: field.Rotate(s.solid, x, y, z), desc: "rotate " + s.desc}, nil
}

// (isosurface "name" :kind :density :cutoff 0.1 :resolution 8 :margin 1
//             :plane p :orbital o :field shape :grid g :bounds b
//             :label "text" :precalculate false)
//
// Without :kind the kind follows from :plane, :orbital or :field, and is
// density otherwise.
func isosurfaceBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	if err := pa.only("kind", "cutoff", "resolution", "margin", "plane", "orbital",
		"field", "grid", "bounds", "label", "precalculate"); err != nil {
		return nil, err
	}
	if len(pa.positional) != 1 {
		return nil, fmt.Errorf("requires a name")
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if b.names[name] {
		return nil, fmt.Errorf("duplicate surface %q", name)
	}

	kind := surface.KindDensity
	switch {
	case pa.kw["plane"] != nil:
		kind = surface.KindPlane
	case pa.kw["orbital"] != nil:
		kind = surface.KindOrbital
	case pa.kw["field"] != nil:
		kind = surface.KindFunction
	}
	if v, ok := pa.kw["kind"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return nil, fmt.Errorf("kind: %w", err)
		}
		if kind, err = surface.ParseKind(s); err != nil {
			return nil, err
		}
	}

	p := surface.DefaultParams(b.cfg, kind)
	for key, dst := range map[string]*float64{"cutoff": &p.Cutoff, "resolution": &p.Resolution, "margin": &p.Margin} {
		if err := pa.float(key, dst); err != nil {
			return nil, err
		}
	}
	if v, ok := pa.kw["label"]; ok {
		if p.Label, err = toString(v); err != nil {
			return nil, fmt.Errorf("label: %w", err)
		}
	}
	if v, ok := pa.kw["precalculate"]; ok {
		if p.PrecalculateVoxelData, err = toBool(v); err != nil {
			return nil, fmt.Errorf("precalculate: %w", err)
		}
	}
	if v, ok := pa.kw["plane"]; ok {
		pl, ok := v.(*sexpPlane)
		if !ok {
			return nil, fmt.Errorf("plane: expected plane, got %T", v)
		}
		plane := pl.plane
		p.Plane = &plane
	}
	if v, ok := pa.kw["orbital"]; ok {
		o, ok := v.(*sexpOrbital)
		if !ok {
			return nil, fmt.Errorf("orbital: expected orbital, got %T", v)
		}
		spec := o.spec
		p.Orbital = &spec
	}
	if v, ok := pa.kw["field"]; ok {
		s, err := toSolid(v)
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
		p.Field = s.solid
	}
	if v, ok := pa.kw["grid"]; ok {
		g, ok := v.(*sexpGrid)
		if !ok {
			return nil, fmt.Errorf("grid: expected grid, got %T", v)
		}
		grid := g.grid
		p.Grid = &grid
	}
	if v, ok := pa.kw["bounds"]; ok {
		bb, ok := v.(*sexpBounds)
		if !ok {
			return nil, fmt.Errorf("bounds: expected bounds, got %T", v)
		}
		box := bb.box
		p.Bounds = &box
	}

	b.names[name] = true
	b.requests = append(b.requests, Request{Name: name, Params: p})
	return &sexpSurfaceRef{name: name}, nil
}
