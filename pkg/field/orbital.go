package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrQuantumNumbers is returned for orbitals with impossible n, l, m.
var ErrQuantumNumbers = errors.New("invalid quantum numbers")

// OrbitalSpec selects a real hydrogen-like orbital.
type OrbitalSpec struct {
	N, L, M int
	Zeff    float64 // effective nuclear charge, 1 when zero
	Center  v3.Vec
	Squared bool // evaluate |psi|^2 instead of psi
}

// Validate checks 1 <= n, 0 <= l < n, |m| <= l and a positive Zeff.
func (s OrbitalSpec) Validate() error {
	switch {
	case s.N < 1:
		return fmt.Errorf("orbital n=%d: %w", s.N, ErrQuantumNumbers)
	case s.L < 0 || s.L >= s.N:
		return fmt.Errorf("orbital n=%d l=%d: %w", s.N, s.L, ErrQuantumNumbers)
	case s.M < -s.L || s.M > s.L:
		return fmt.Errorf("orbital l=%d m=%d: %w", s.L, s.M, ErrQuantumNumbers)
	case s.Zeff < 0 || math.IsNaN(s.Zeff) || math.IsInf(s.Zeff, 0):
		return fmt.Errorf("orbital zeff=%g must be positive", s.Zeff)
	}
	return nil
}

func (s OrbitalSpec) z() float64 {
	if s.Zeff == 0 {
		return 1
	}
	return s.Zeff
}

// Extent is the radius beyond which the orbital is treated as negligible.
func (s OrbitalSpec) Extent() float64 {
	return float64(2*s.N*(s.N+3)) / s.z()
}

// Orbital evaluates a real hydrogen-like wavefunction in atomic units.
type Orbital struct {
	spec  OrbitalSpec
	norm  float64 // radial normalisation
	ynorm float64 // angular normalisation
}

// NewOrbital validates spec and precomputes its normalisation constants.
func NewOrbital(spec OrbitalSpec) (*Orbital, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	n, l := spec.N, spec.L
	am := abs(spec.M)
	z := spec.z()
	o := &Orbital{spec: spec}
	o.norm = math.Sqrt(math.Pow(2*z/float64(n), 3) * factorial(n-l-1) / (2 * float64(n) * factorial(n+l)))
	o.ynorm = math.Sqrt(float64(2*l+1) / (4 * math.Pi) * factorial(l-am) / factorial(l+am))
	if spec.M != 0 {
		o.ynorm *= math.Sqrt2
	}
	return o, nil
}

// Spec returns the orbital's parameters.
func (o *Orbital) Spec() OrbitalSpec { return o.spec }

func (o *Orbital) Evaluate(p v3.Vec) float64 {
	d := p.Sub(o.spec.Center)
	r := d.Length()
	n, l, m := o.spec.N, o.spec.L, o.spec.M
	rho := 2 * o.spec.z() * r / float64(n)
	radial := o.norm * math.Exp(-rho/2) * math.Pow(rho, float64(l)) * laguerre(n-l-1, float64(2*l+1), rho)

	cosTheta, phi := 1.0, 0.0
	if r > 0 {
		cosTheta = d.Z / r
		phi = math.Atan2(d.Y, d.X)
	}
	angular := o.ynorm * legendre(l, abs(m), cosTheta)
	switch {
	case m > 0:
		angular *= math.Cos(float64(m) * phi)
	case m < 0:
		angular *= math.Sin(float64(-m) * phi)
	}
	psi := radial * angular
	if o.spec.Squared {
		return psi * psi
	}
	return psi
}

func (o *Orbital) BoundingBox() sdf.Box3 {
	e := o.spec.Extent()
	d := v3.Vec{X: e, Y: e, Z: e}
	return sdf.Box3{Min: o.spec.Center.Sub(d), Max: o.spec.Center.Add(d)}
}

// laguerre evaluates the generalised Laguerre polynomial L_k^alpha(x).
func laguerre(k int, alpha, x float64) float64 {
	if k == 0 {
		return 1
	}
	prev, cur := 1.0, 1+alpha-x
	for i := 1; i < k; i++ {
		fi := float64(i)
		prev, cur = cur, ((2*fi+1+alpha-x)*cur-(fi+alpha)*prev)/(fi+1)
	}
	return cur
}

// legendre evaluates the associated Legendre function P_l^m(x) for m >= 0,
// without the Condon-Shortley phase.
func legendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		s := math.Sqrt(math.Max(0, 1-x*x))
		f := 1.0
		for i := 0; i < m; i++ {
			pmm *= f * s
			f += 2
		}
	}
	if l == m {
		return pmm
	}
	pm1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pm1
	}
	for ll := m + 2; ll <= l; ll++ {
		pll := (x*float64(2*ll-1)*pm1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pm1 = pm1, pll
	}
	return pm1
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
