package statevector

import (
	"github.com/Yogirajpp/qvm/gate"
	"github.com/Yogirajpp/qvm/qcomplex"
)

// Backend is the capability set spec.md §9's "polymorphic state backend"
// design note asks for: the interpreter and the gate executor depend
// only on this interface, never on Dense directly, so a density-matrix,
// stabilizer or MPS backend could be substituted without touching either
// caller. Dense is the only production implementation this module ships.
type Backend interface {
	Allocate() error
	ApplySingleQubitGate(bit int, u gate.Matrix2) error
	ApplyControlledSingleQubitGate(control, target int, u gate.Matrix2) error
	ApplyTwoQubitGate(c, t int, u gate.Matrix4) error
	ApplyCNOT(c, t int) error
	ApplySWAP(a, b int) error
	ApplyToffoli(c1, c2, t int) error
	ApplyFredkin(ctrl, a, b int) error
	MeasureQubit(bit int, u float64) (int, error)
	Normalize()
	SetStateVector(v []qcomplex.Amplitude) error
	Probability(i int) float64
	Snapshot() []qcomplex.Amplitude
	NumQubits() int
}
