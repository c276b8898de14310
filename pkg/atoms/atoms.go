// Package atoms holds the immutable atom sets that density-style fields are
// computed from.
package atoms

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/isosurf/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrMalformed is wrapped by every validation failure.
var ErrMalformed = errors.New("malformed atom")

// Atom is a single centre with optional per-atom attributes. A zero Radius
// means "use the configured default".
type Atom struct {
	Element string  `json:"element"`
	Pos     v3.Vec  `json:"pos"`
	Radius  float64 `json:"radius,omitempty"`
	Charge  float64 `json:"charge,omitempty"`
}

// Set is an ordered, read-only collection of atoms. It is safe to share
// between goroutines once built.
type Set struct {
	atoms []Atom
}

// NewSet copies atoms into a new set.
func NewSet(atoms ...Atom) *Set {
	s := &Set{atoms: make([]Atom, len(atoms))}
	copy(s.atoms, atoms)
	return s
}

// Len returns the number of atoms. A nil set is empty.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.atoms)
}

// At returns atom i.
func (s *Set) At(i int) Atom {
	return s.atoms[i]
}

// All returns a copy of the atoms.
func (s *Set) All() []Atom {
	if s == nil {
		return nil
	}
	out := make([]Atom, len(s.atoms))
	copy(out, s.atoms)
	return out
}

// Validate reports the first atom with a non-finite position or a negative
// or non-finite radius or charge.
func (s *Set) Validate() error {
	for i := 0; i < s.Len(); i++ {
		a := s.atoms[i]
		switch {
		case !geom.Finite(a.Pos):
			return fmt.Errorf("atom %d (%s): position %v: %w", i, a.Element, a.Pos, ErrMalformed)
		case math.IsNaN(a.Radius) || math.IsInf(a.Radius, 0) || a.Radius < 0:
			return fmt.Errorf("atom %d (%s): radius %g: %w", i, a.Element, a.Radius, ErrMalformed)
		case math.IsNaN(a.Charge) || math.IsInf(a.Charge, 0):
			return fmt.Errorf("atom %d (%s): charge %g: %w", i, a.Element, a.Charge, ErrMalformed)
		}
	}
	return nil
}

// Bounds returns the bounding box of the atom centres. ok is false for an
// empty set.
func (s *Set) Bounds() (box sdf.Box3, ok bool) {
	if s.Len() == 0 {
		return sdf.Box3{}, false
	}
	lo, hi := s.atoms[0].Pos, s.atoms[0].Pos
	for _, a := range s.atoms[1:] {
		p := a.Pos
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return sdf.Box3{Min: lo, Max: hi}, true
}

// MaxRadius returns the largest effective radius, substituting def for
// atoms without one.
func (s *Set) MaxRadius(def float64) float64 {
	r := 0.0
	for i := 0; i < s.Len(); i++ {
		r = math.Max(r, s.atoms[i].RadiusOr(def))
	}
	return r
}

// RadiusOr returns the atom's radius, or def when unset.
func (a Atom) RadiusOr(def float64) float64 {
	if a.Radius > 0 {
		return a.Radius
	}
	return def
}
