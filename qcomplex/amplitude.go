// Package qcomplex implements the complex-scalar arithmetic the state
// vector is built from: a dense (real, imag) pair rather than a wrapper
// around the standard library's complex128, so the 16-byte footprint and
// the in-place arithmetic are explicit rather than incidental.
package qcomplex

import (
	"math"

	"github.com/Yogirajpp/qvm/core"
)

// Amplitude is a single complex probability amplitude.
type Amplitude struct {
	Re float64
	Im float64
}

// Zero is the additive identity.
var Zero = Amplitude{}

// One is the multiplicative identity.
var One = Amplitude{Re: 1}

func New(re, im float64) Amplitude { return Amplitude{Re: re, Im: im} }

// Polar builds an amplitude from magnitude r and phase theta.
func Polar(r, theta float64) Amplitude {
	return Amplitude{Re: r * math.Cos(theta), Im: r * math.Sin(theta)}
}

func (a Amplitude) Add(b Amplitude) Amplitude {
	return Amplitude{Re: a.Re + b.Re, Im: a.Im + b.Im}
}

func (a Amplitude) Sub(b Amplitude) Amplitude {
	return Amplitude{Re: a.Re - b.Re, Im: a.Im - b.Im}
}

func (a Amplitude) Mul(b Amplitude) Amplitude {
	return Amplitude{
		Re: a.Re*b.Re - a.Im*b.Im,
		Im: a.Re*b.Im + a.Im*b.Re,
	}
}

// Scale multiplies by a real scalar; cheaper than Mul(New(s, 0)).
func (a Amplitude) Scale(s float64) Amplitude {
	return Amplitude{Re: a.Re * s, Im: a.Im * s}
}

func (a Amplitude) Conj() Amplitude {
	return Amplitude{Re: a.Re, Im: -a.Im}
}

// MagnitudeSquared is the hot path: no Sqrt.
func (a Amplitude) MagnitudeSquared() float64 {
	return a.Re*a.Re + a.Im*a.Im
}

func (a Amplitude) Magnitude() float64 {
	return math.Sqrt(a.MagnitudeSquared())
}

func (a Amplitude) Phase() float64 {
	return math.Atan2(a.Im, a.Re)
}

// DivScalar divides by a real scalar.
func (a Amplitude) DivScalar(s float64) Amplitude {
	return Amplitude{Re: a.Re / s, Im: a.Im / s}
}

// Div divides by another amplitude; fails with core.KindNumericFailure
// when b's squared magnitude is zero, per spec.md §4.A.
func (a Amplitude) Div(b Amplitude) (Amplitude, error) {
	denom := b.MagnitudeSquared()
	if denom == 0 {
		return Zero, core.New(core.KindNumericFailure, "division by zero amplitude", nil)
	}
	num := a.Mul(b.Conj())
	return num.DivScalar(denom), nil
}

// ApproxEqual compares two amplitudes to within eps on each component's
// contribution to the squared distance.
func ApproxEqual(a, b Amplitude, eps float64) bool {
	d := a.Sub(b)
	return d.MagnitudeSquared() <= eps*eps
}
