package surface

import (
	"context"
	"fmt"

	"github.com/chazu/isosurf/pkg/field"
	"github.com/deadsy/sdfx/sdf"
)

// DensityReader contours the sum of per-atom Gaussians.
type DensityReader struct {
	AtomDataReader
}

var _ Reader = (*DensityReader)(nil)

func (r *DensityReader) Kind() Kind { return KindDensity }

func (r *DensityReader) Setup(isMapData bool) (Params, error) {
	if err := r.setupBase(isMapData, nil); err != nil {
		return Params{}, err
	}
	cfg := r.gen.Config()
	set := r.gen.Atoms()
	r.field = field.NewDensity(set, cfg.GetSigmaScale(), cfg.GetDefaultRadius())
	r.params.Header = fmt.Sprintf("DENSITY %d atoms cutoff %g", set.Len(), r.params.Cutoff)
	return r.params, nil
}

func (r *DensityReader) Extract(ctx context.Context) (*Surface, error) {
	return r.extractVolume(ctx)
}

// PotentialReader contours the molecular electrostatic potential of the
// atom charges. Lattice points that land on an atom centre are singular
// and are reported as sampling faults.
type PotentialReader struct {
	AtomDataReader
}

var _ Reader = (*PotentialReader)(nil)

func (r *PotentialReader) Kind() Kind { return KindPotential }

func (r *PotentialReader) Setup(isMapData bool) (Params, error) {
	if err := r.setupBase(isMapData, nil); err != nil {
		return Params{}, err
	}
	set := r.gen.Atoms()
	pad := r.params.Margin + set.MaxRadius(r.gen.Config().GetDefaultRadius())
	r.field = field.NewPotential(set, pad)
	r.params.Header = fmt.Sprintf("MEP %d atoms cutoff %g", set.Len(), r.params.Cutoff)
	return r.params, nil
}

func (r *PotentialReader) Extract(ctx context.Context) (*Surface, error) {
	return r.extractVolume(ctx)
}

// OrbitalReader contours a hydrogen-like atomic orbital. Without explicit
// bounds the lattice covers the orbital's own extent.
type OrbitalReader struct {
	AtomDataReader
}

var _ Reader = (*OrbitalReader)(nil)

func (r *OrbitalReader) Kind() Kind { return KindOrbital }

func (r *OrbitalReader) Setup(isMapData bool) (Params, error) {
	if err := r.bound(); err != nil {
		return Params{}, err
	}
	spec := r.params.Orbital
	if spec == nil {
		return Params{}, configErr("orbital", "orbital surface has no orbital")
	}
	o, err := field.NewOrbital(*spec)
	if err != nil {
		return Params{}, &ConfigurationError{Param: "orbital", Err: err}
	}
	box := o.BoundingBox()
	if err := r.setupBase(isMapData, &box); err != nil {
		return Params{}, err
	}
	r.field = o
	r.params.Header = fmt.Sprintf("ORBITAL n=%d l=%d m=%d cutoff %g", spec.N, spec.L, spec.M, r.params.Cutoff)
	return r.params, nil
}

func (r *OrbitalReader) Extract(ctx context.Context) (*Surface, error) {
	return r.extractVolume(ctx)
}

// FunctionReader contours an externally supplied field. Without explicit
// bounds the lattice covers the field's bounding box when it has volume.
type FunctionReader struct {
	AtomDataReader
}

var _ Reader = (*FunctionReader)(nil)

func (r *FunctionReader) Kind() Kind { return KindFunction }

func (r *FunctionReader) Setup(isMapData bool) (Params, error) {
	if err := r.bound(); err != nil {
		return Params{}, err
	}
	f := r.params.Field
	if f == nil {
		return Params{}, configErr("field", "function surface has no field")
	}
	var hint *sdf.Box3
	if box := f.BoundingBox(); box.Max.X > box.Min.X && box.Max.Y > box.Min.Y && box.Max.Z > box.Min.Z {
		hint = &box
	}
	if err := r.setupBase(isMapData, hint); err != nil {
		return Params{}, err
	}
	r.field = f
	r.params.Header = fmt.Sprintf("FUNCTION cutoff %g", r.params.Cutoff)
	return r.params, nil
}

func (r *FunctionReader) Extract(ctx context.Context) (*Surface, error) {
	return r.extractVolume(ctx)
}
