package field

import (
	"math"

	"github.com/chazu/isosurf/pkg/atoms"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// gaussianCutoff is the truncation radius of each atom's Gaussian in units
// of its sigma.
const gaussianCutoff = 4.0

// Density is a sum of per-atom Gaussians of height 1 and width
// radius*SigmaScale.
type Density struct {
	atoms         *atoms.Set
	sigmaScale    float64
	defaultRadius float64
	box           sdf.Box3
}

// NewDensity builds a density field over set. The set must already be valid.
func NewDensity(set *atoms.Set, sigmaScale, defaultRadius float64) *Density {
	d := &Density{atoms: set, sigmaScale: sigmaScale, defaultRadius: defaultRadius}
	d.box = padBounds(set, gaussianCutoff*sigmaScale*set.MaxRadius(defaultRadius))
	return d
}

func (d *Density) Evaluate(p v3.Vec) float64 {
	sum := 0.0
	for i := 0; i < d.atoms.Len(); i++ {
		a := d.atoms.At(i)
		sigma := a.RadiusOr(d.defaultRadius) * d.sigmaScale
		if sigma <= 0 {
			continue
		}
		d := p.Sub(a.Pos)
		r2 := d.Dot(d)
		if r2 > gaussianCutoff*gaussianCutoff*sigma*sigma {
			continue
		}
		sum += math.Exp(-r2 / (2 * sigma * sigma))
	}
	return sum
}

func (d *Density) BoundingBox() sdf.Box3 { return d.box }

// Potential is the Coulomb potential sum(q/r) of the atom charges, in
// atomic units. It is infinite (or NaN for a neutral atom) at atom centres.
type Potential struct {
	atoms *atoms.Set
	box   sdf.Box3
}

// NewPotential builds a potential field over set, reported as extending pad
// beyond the atom centres.
func NewPotential(set *atoms.Set, pad float64) *Potential {
	return &Potential{atoms: set, box: padBounds(set, pad)}
}

func (f *Potential) Evaluate(p v3.Vec) float64 {
	sum := 0.0
	for i := 0; i < f.atoms.Len(); i++ {
		a := f.atoms.At(i)
		sum += a.Charge / p.Sub(a.Pos).Length()
	}
	return sum
}

func (f *Potential) BoundingBox() sdf.Box3 { return f.box }

func padBounds(set *atoms.Set, pad float64) sdf.Box3 {
	box, ok := set.Bounds()
	if !ok {
		return sdf.Box3{}
	}
	d := v3.Vec{X: pad, Y: pad, Z: pad}
	return sdf.Box3{Min: box.Min.Sub(d), Max: box.Max.Add(d)}
}
