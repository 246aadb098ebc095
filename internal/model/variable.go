package model

import "math"

// VarType classifies a variable by which of its bounds are finite.
type VarType int

const (
	// Free has no finite bound.
	Free VarType = iota
	// Fixed has equal finite bounds.
	Fixed
	// Bounded has two distinct finite bounds.
	Bounded
	// Plus has only a finite lower bound.
	Plus
	// Minus has only a finite upper bound.
	Minus
)

// String returns a human-readable representation of the variable type.
func (t VarType) String() string {
	switch t {
	case Free:
		return "Free"
	case Fixed:
		return "Fixed"
	case Bounded:
		return "Bounded"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	default:
		return "Unknown"
	}
}

// Classify returns the type implied by a pair of bounds.
func Classify(lower, upper float64) VarType {
	lo, up := !math.IsInf(lower, -1), !math.IsInf(upper, 1)
	switch {
	case lo && up && lower == upper:
		return Fixed
	case lo && up:
		return Bounded
	case lo:
		return Plus
	case up:
		return Minus
	default:
		return Free
	}
}

// Variable is one column of the computational form. Structural variables
// come first, followed by one logical variable per row.
type Variable struct {
	Name    string
	Index   int
	Logical bool
	Type    VarType
	Lower   float64
	Upper   float64

	origLower float64
	origUpper float64
}

// HasLower reports whether the lower bound is finite.
func (v *Variable) HasLower() bool { return !math.IsInf(v.Lower, -1) }

// HasUpper reports whether the upper bound is finite.
func (v *Variable) HasUpper() bool { return !math.IsInf(v.Upper, 1) }

// Range returns Upper-Lower, which is +Inf unless both bounds are finite.
func (v *Variable) Range() float64 { return v.Upper - v.Lower }

// OriginalBounds returns the bounds the variable was built with.
func (v *Variable) OriginalBounds() (lower, upper float64) {
	return v.origLower, v.origUpper
}

// Perturbed reports whether the working bounds differ from the originals.
func (v *Variable) Perturbed() bool {
	return v.Lower != v.origLower || v.Upper != v.origUpper
}

func (v *Variable) setBounds(lower, upper float64) {
	v.Lower, v.Upper = lower, upper
	v.Type = Classify(lower, upper)
}
