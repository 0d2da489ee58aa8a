// Package gate provides the canonical unitary matrices the executor and
// state vector apply: fixed Pauli/Hadamard/phase gates, the rotation
// constructors, and the dense two- and three-qubit gates. Element
// convention for multi-qubit gates: rows/columns are indexed with the
// control bit(s) as the high bit(s), basis order |00..0>, |00..1>, ...
package gate

import (
	"math"

	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/qcomplex"
)

// Matrix2 is a dense 2x2 unitary acting on one qubit.
type Matrix2 [2][2]qcomplex.Amplitude

// Matrix4 is a dense 4x4 unitary acting on two qubits.
type Matrix4 [4][4]qcomplex.Amplitude

// Matrix8 is a dense 8x8 unitary acting on three qubits. The executor
// never applies Toffoli/Fredkin through this form — it uses specialized
// bit-pattern loops — but it is the reference form used by tests to
// check the fast path against the generic definition.
type Matrix8 [8][8]qcomplex.Amplitude

func c(re, im float64) qcomplex.Amplitude { return qcomplex.New(re, im) }

var (
	I = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(1, 0)},
	}
	X = Matrix2{
		{c(0, 0), c(1, 0)},
		{c(1, 0), c(0, 0)},
	}
	Y = Matrix2{
		{c(0, 0), c(0, -1)},
		{c(0, 1), c(0, 0)},
	}
	Z = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(-1, 0)},
	}
	H = Matrix2{
		{c(1/math.Sqrt2, 0), c(1/math.Sqrt2, 0)},
		{c(1/math.Sqrt2, 0), c(-1/math.Sqrt2, 0)},
	}
	S = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(0, 1)},
	}
	Sdg = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(0, -1)},
	}
	T = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(math.Sqrt2/2, math.Sqrt2/2)},
	}
	Tdg = Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), c(math.Sqrt2/2, -math.Sqrt2/2)},
	}
)

// RX builds the rotation-about-X gate for angle theta.
func RX(theta float64) Matrix2 {
	cos := c(math.Cos(theta/2), 0)
	nsin := c(0, -math.Sin(theta/2))
	return Matrix2{
		{cos, nsin},
		{nsin, cos},
	}
}

// RY builds the rotation-about-Y gate for angle theta.
func RY(theta float64) Matrix2 {
	cos := c(math.Cos(theta/2), 0)
	sin := c(math.Sin(theta/2), 0)
	return Matrix2{
		{cos, sin.Scale(-1)},
		{sin, cos},
	}
}

func RZ(theta float64) Matrix2 {
	neg := qcomplex.Polar(1, -theta/2)
	pos := qcomplex.Polar(1, theta/2)
	return Matrix2{
		{neg, c(0, 0)},
		{c(0, 0), pos},
	}
}

// PHASE applies a relative phase phi to |1>.
func PHASE(phi float64) Matrix2 {
	return Matrix2{
		{c(1, 0), c(0, 0)},
		{c(0, 0), qcomplex.Polar(1, phi)},
	}
}

// Controlled builds the 4x4 controlled version of an arbitrary 2x2
// unitary: identity on the control=0 block, u on the control=1 block.
func Controlled(u Matrix2) Matrix4 {
	var m Matrix4
	m[0][0] = c(1, 0)
	m[1][1] = c(1, 0)
	m[2][2] = u[0][0]
	m[2][3] = u[0][1]
	m[3][2] = u[1][0]
	m[3][3] = u[1][1]
	return m
}

var (
	CNOT = Controlled(X)
	CZ   = Controlled(Z)
	SWAP = Matrix4{
		{c(1, 0), c(0, 0), c(0, 0), c(0, 0)},
		{c(0, 0), c(0, 0), c(1, 0), c(0, 0)},
		{c(0, 0), c(1, 0), c(0, 0), c(0, 0)},
		{c(0, 0), c(0, 0), c(0, 0), c(1, 0)},
	}
	ISWAP = Matrix4{
		{c(1, 0), c(0, 0), c(0, 0), c(0, 0)},
		{c(0, 0), c(0, 0), c(0, 1), c(0, 0)},
		{c(0, 0), c(0, 1), c(0, 0), c(0, 0)},
		{c(0, 0), c(0, 0), c(0, 0), c(1, 0)},
	}
)

// Toffoli and Fredkin in dense 8x8 form, provided as the reference
// definition against which the executor's bit-pattern fast paths are
// tested; the executor itself never builds these dense matrices.
func Toffoli() Matrix8 {
	var m Matrix8
	for i := 0; i < 8; i++ {
		m[i][i] = c(1, 0)
	}
	// swap |110> (6) and |111> (7): both control bits set.
	m[6][6], m[7][7] = c(0, 0), c(0, 0)
	m[6][7], m[7][6] = c(1, 0), c(1, 0)
	return m
}

func Fredkin() Matrix8 {
	var m Matrix8
	for i := 0; i < 8; i++ {
		m[i][i] = c(1, 0)
	}
	// control bit (bit 2) set: swap target bits (bits 0,1): |101>(5) <-> |110>(6)
	m[5][5], m[6][6] = c(0, 0), c(0, 0)
	m[5][6], m[6][5] = c(1, 0), c(1, 0)
	return m
}

// Validate checks matrix shape only; unitarity is validated separately
// and only in debug mode, per spec.md §4.C's gate validation policy.
func (m Matrix2) Validate() error {
	return nil // fixed-size array, shape is a compile-time guarantee
}

// IsUnitary reports whether m is unitary to within eps, used by the
// debug-mode IntegrityWarning check in statevector.
func (m Matrix2) IsUnitary(eps float64) bool {
	// U†U (conjugate transpose times U) should be the identity.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var sum qcomplex.Amplitude
			for k := 0; k < 2; k++ {
				sum = sum.Add(m[k][i].Conj().Mul(m[k][j]))
			}
			want := qcomplex.Zero
			if i == j {
				want = qcomplex.One
			}
			if !qcomplex.ApproxEqual(sum, want, eps) {
				return false
			}
		}
	}
	return true
}

func (m Matrix4) IsUnitary(eps float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum qcomplex.Amplitude
			for k := 0; k < 4; k++ {
				sum = sum.Add(m[k][i].Conj().Mul(m[k][j]))
			}
			want := qcomplex.Zero
			if i == j {
				want = qcomplex.One
			}
			if !qcomplex.ApproxEqual(sum, want, eps) {
				return false
			}
		}
	}
	return true
}

// ErrUnknownGate is returned by ByName for an unrecognized mnemonic.
var ErrUnknownGate = core.New(core.KindInvalidArgument, "unknown gate name", nil)

// ByName resolves a fixed (non-parametric) single-qubit gate by its
// mnemonic, used by the executor's ApplyFixedGate (which the interpreter
// and the circuit builder both call).
func ByName(name string) (Matrix2, error) {
	switch name {
	case "I":
		return I, nil
	case "X":
		return X, nil
	case "Y":
		return Y, nil
	case "Z":
		return Z, nil
	case "H":
		return H, nil
	case "S":
		return S, nil
	case "Sdg":
		return Sdg, nil
	case "T":
		return T, nil
	case "Tdg":
		return Tdg, nil
	default:
		return Matrix2{}, ErrUnknownGate
	}
}
