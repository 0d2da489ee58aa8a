//go:build unit
// +build unit

package executor

import (
	"github.com/Yogirajpp/qvm/gate"
	"github.com/Yogirajpp/qvm/qcomplex"
)

// mockBackend is a hand-rolled double for statevector.Backend: it
// records every call so executor tests can assert exact dispatch
// sequences (which kernel was invoked, with which bit positions)
// without a real amplitude vector, per spec.md §9's polymorphic-backend
// design note.
type mockBackend struct {
	numQubits int

	allocateCalls               int
	singleQubitCalls            []singleQubitCall
	controlledSingleQubitCalls  []controlledCall
	twoQubitCalls               []twoQubitCall
	cnotCalls                   []pairCall
	swapCalls                   []pairCall
	toffoliCalls                []tripleCall
	fredkinCalls                []tripleCall
}

type singleQubitCall struct {
	bit int
	u   gate.Matrix2
}

type controlledCall struct {
	control, target int
	u                gate.Matrix2
}

type twoQubitCall struct {
	c, t int
	u    gate.Matrix4
}

type pairCall struct{ a, b int }

type tripleCall struct{ a, b, c int }

func newMockBackend(numQubits int) *mockBackend {
	return &mockBackend{numQubits: numQubits}
}

func (m *mockBackend) Allocate() error {
	m.allocateCalls++
	m.numQubits++
	return nil
}

func (m *mockBackend) ApplySingleQubitGate(bit int, u gate.Matrix2) error {
	m.singleQubitCalls = append(m.singleQubitCalls, singleQubitCall{bit, u})
	return nil
}

func (m *mockBackend) ApplyControlledSingleQubitGate(control, target int, u gate.Matrix2) error {
	m.controlledSingleQubitCalls = append(m.controlledSingleQubitCalls, controlledCall{control, target, u})
	return nil
}

func (m *mockBackend) ApplyTwoQubitGate(c, t int, u gate.Matrix4) error {
	m.twoQubitCalls = append(m.twoQubitCalls, twoQubitCall{c, t, u})
	return nil
}

func (m *mockBackend) ApplyCNOT(c, t int) error {
	m.cnotCalls = append(m.cnotCalls, pairCall{c, t})
	return nil
}

func (m *mockBackend) ApplySWAP(a, b int) error {
	m.swapCalls = append(m.swapCalls, pairCall{a, b})
	return nil
}

func (m *mockBackend) ApplyToffoli(c1, c2, t int) error {
	m.toffoliCalls = append(m.toffoliCalls, tripleCall{c1, c2, t})
	return nil
}

func (m *mockBackend) ApplyFredkin(ctrl, a, b int) error {
	m.fredkinCalls = append(m.fredkinCalls, tripleCall{ctrl, a, b})
	return nil
}

func (m *mockBackend) MeasureQubit(bit int, u float64) (int, error) { return 0, nil }

func (m *mockBackend) Normalize() {}

func (m *mockBackend) SetStateVector(v []qcomplex.Amplitude) error { return nil }

func (m *mockBackend) Probability(i int) float64 { return 0 }

func (m *mockBackend) Snapshot() []qcomplex.Amplitude { return nil }

func (m *mockBackend) NumQubits() int { return m.numQubits }
