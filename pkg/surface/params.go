// Package surface turns atoms and surface parameters into isosurfaces.
//
// A Generator owns the inputs of one surface computation. It selects a
// Reader for the requested Kind and drives it through Init, Setup and
// Extract. Readers share the lifecycle and lattice construction of
// AtomDataReader and differ in the field they sample: the distance to a
// plane, a Gaussian atom density, the Coulomb potential of the atom charges,
// a hydrogen-like orbital, or an externally supplied function.
package surface

import (
	"fmt"
	"strings"

	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/field"
	"github.com/chazu/isosurf/pkg/geom"
	"github.com/chazu/isosurf/pkg/lattice"
	"github.com/deadsy/sdfx/sdf"
)

// Kind selects the surface reader.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlane
	KindDensity
	KindPotential
	KindOrbital
	KindFunction
)

var kindNames = map[Kind]string{
	KindPlane:     "plane",
	KindDensity:   "density",
	KindPotential: "potential",
	KindOrbital:   "orbital",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the names produced by String, case-insensitively.
// "mep" is accepted for the potential.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "mep" {
		return KindPotential, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, configErr("kind", "unknown surface kind %q", s)
}

// Params are the parameters of one surface computation. They are passed by
// value: readers return an updated copy from Setup rather than changing the
// caller's.
type Params struct {
	Kind  Kind
	Label string
	// Header describes the surface; readers fill it in during Setup.
	Header string
	// Cutoff is the isosurface threshold.
	Cutoff float64
	// Plane is required for KindPlane.
	Plane *geom.Plane
	// PrecalculateVoxelData samples the whole lattice before extraction.
	PrecalculateVoxelData bool
	// Resolution is lattice points per unit length.
	Resolution float64
	// Margin pads the atom bounding box, on top of the largest atom radius.
	Margin float64
	// Bounds overrides the box the lattice is built over.
	Bounds *sdf.Box3
	// Grid supplies the lattice outright. Map mode requires it.
	Grid *lattice.Grid
	// Orbital is required for KindOrbital.
	Orbital *field.OrbitalSpec
	// Field is required for KindFunction.
	Field field.Field
}

// DefaultParams returns parameters of the given kind with the configured
// defaults.
func DefaultParams(cfg *config.Config, kind Kind) Params {
	if cfg == nil {
		cfg = config.Default()
	}
	return Params{
		Kind:                  kind,
		Cutoff:                cfg.GetCutoff(),
		PrecalculateVoxelData: cfg.GetPrecalculate(),
		Resolution:            cfg.GetResolution(),
		Margin:                cfg.GetMargin(),
	}
}

// DisplayLabel returns Label, falling back to Header.
func (p Params) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Header
}
