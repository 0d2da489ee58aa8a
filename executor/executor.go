// Package executor is the thin translation layer between qubit handles
// and state-vector bit positions: it resolves handles via the registry,
// records entanglement for every multi-qubit gate before dispatch, and
// routes each gate mnemonic to the appropriate statevector.Backend
// kernel. Toffoli, Fredkin and "controlled arbitrary" gates bypass the
// generic two-qubit kernel entirely, per spec.md §4.E.
package executor

import (
	"context"
	"sync"

	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/gate"
	"github.com/Yogirajpp/qvm/log"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/Yogirajpp/qvm/statevector"
)

// Executor owns no state of its own beyond gate-count metrics; the
// registry and backend it is constructed with remain the sources of
// truth for qubit positions and amplitudes.
type Executor struct {
	reg      *registry.Registry
	backend  statevector.Backend
	recorder *log.Recorder

	mu     sync.Mutex
	total  uint64
	byName map[string]uint64
}

// New builds an Executor. recorder may be nil, which disables the
// per-gate otel/metric counter without affecting gate application.
func New(reg *registry.Registry, backend statevector.Backend, recorder *log.Recorder) *Executor {
	return &Executor{
		reg:      reg,
		backend:  backend,
		recorder: recorder,
		byName:   make(map[string]uint64),
	}
}

func (e *Executor) count(name string) {
	e.mu.Lock()
	e.total++
	e.byName[name]++
	e.mu.Unlock()
	if e.recorder != nil {
		e.recorder.RecordGate(context.Background(), name)
	}
}

// Totals returns the overall gate-application count since construction
// or the last Reset.
func (e *Executor) Totals() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// ByName returns the per-gate-name counters, keyed by mnemonic.
func (e *Executor) ByName() map[string]uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]uint64, len(e.byName))
	for k, v := range e.byName {
		out[k] = v
	}
	return out
}

// Reset zeroes the gate counters; it does not touch the registry or
// backend, which the VM resets separately.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total = 0
	e.byName = make(map[string]uint64)
}

func (e *Executor) bit(h registry.Handle) (int, error) {
	return e.reg.IndexOf(h)
}

// ApplyFixedGate applies one of the non-parametric single-qubit gates
// (I, X, Y, Z, H, S, Sdg, T, Tdg) by mnemonic.
func (e *Executor) ApplyFixedGate(name string, h registry.Handle) error {
	u, err := gate.ByName(name)
	if err != nil {
		return err
	}
	k, err := e.bit(h)
	if err != nil {
		return err
	}
	if err := e.backend.ApplySingleQubitGate(k, u); err != nil {
		return err
	}
	e.count(name)
	return nil
}

// ApplyRX/RY/RZ/PHASE build the rotation matrix on the fly from theta
// and apply it, per spec.md §4.E.
func (e *Executor) ApplyRX(h registry.Handle, theta float64) error { return e.applyRotation("RX", h, gate.RX(theta)) }
func (e *Executor) ApplyRY(h registry.Handle, theta float64) error { return e.applyRotation("RY", h, gate.RY(theta)) }
func (e *Executor) ApplyRZ(h registry.Handle, theta float64) error { return e.applyRotation("RZ", h, gate.RZ(theta)) }
func (e *Executor) ApplyPHASE(h registry.Handle, phi float64) error {
	return e.applyRotation("PHASE", h, gate.PHASE(phi))
}

func (e *Executor) applyRotation(name string, h registry.Handle, u gate.Matrix2) error {
	k, err := e.bit(h)
	if err != nil {
		return err
	}
	if err := e.backend.ApplySingleQubitGate(k, u); err != nil {
		return err
	}
	e.count(name)
	return nil
}

// ApplyCNOT, ApplyCZ, ApplySWAP and ApplyISWAP are the two-qubit fixed
// gates. CNOT and SWAP dispatch to the backend's dedicated fast paths;
// CZ and iSWAP, having no bit-swap shortcut, go through the generic
// two-qubit kernel.
func (e *Executor) ApplyCNOT(control, target registry.Handle) error {
	c, t, err := e.resolvePair(control, target)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(control, target); err != nil {
		return err
	}
	if err := e.backend.ApplyCNOT(c, t); err != nil {
		return err
	}
	e.count("CNOT")
	return nil
}

func (e *Executor) ApplyCZ(a, b registry.Handle) error { return e.applyTwoQubit("CZ", a, b, gate.CZ) }

func (e *Executor) ApplySWAP(a, b registry.Handle) error {
	pa, pb, err := e.resolvePair(a, b)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(a, b); err != nil {
		return err
	}
	if err := e.backend.ApplySWAP(pa, pb); err != nil {
		return err
	}
	e.count("SWAP")
	return nil
}

func (e *Executor) ApplyISWAP(a, b registry.Handle) error { return e.applyTwoQubit("iSWAP", a, b, gate.ISWAP) }

func (e *Executor) applyTwoQubit(name string, a, b registry.Handle, u gate.Matrix4) error {
	pa, pb, err := e.resolvePair(a, b)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(a, b); err != nil {
		return err
	}
	if err := e.backend.ApplyTwoQubitGate(pa, pb, u); err != nil {
		return err
	}
	e.count(name)
	return nil
}

// ApplyControlled applies an arbitrary 2x2 unitary to target conditioned
// on control, bypassing the generic kernel via the backend's dedicated
// fast path, per spec.md §4.E.
func (e *Executor) ApplyControlled(control, target registry.Handle, u gate.Matrix2) error {
	c, t, err := e.resolvePair(control, target)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(control, target); err != nil {
		return err
	}
	if err := e.backend.ApplyControlledSingleQubitGate(c, t, u); err != nil {
		return err
	}
	e.count("CONTROLLED")
	return nil
}

// ApplyToffoli and ApplyFredkin route to the backend's specialized
// bit-pattern loops; the dense 8x8 matrices in package gate exist only
// as the reference definition tests check the fast path against.
func (e *Executor) ApplyToffoli(c1, c2, target registry.Handle) error {
	p1, err := e.bit(c1)
	if err != nil {
		return err
	}
	p2, err := e.bit(c2)
	if err != nil {
		return err
	}
	pt, err := e.bit(target)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(c1, c2); err != nil {
		return err
	}
	if err := e.recordEntanglement(c1, target); err != nil {
		return err
	}
	if err := e.backend.ApplyToffoli(p1, p2, pt); err != nil {
		return err
	}
	e.count("TOFFOLI")
	return nil
}

func (e *Executor) ApplyFredkin(ctrl, a, b registry.Handle) error {
	pc, err := e.bit(ctrl)
	if err != nil {
		return err
	}
	pa, err := e.bit(a)
	if err != nil {
		return err
	}
	pb, err := e.bit(b)
	if err != nil {
		return err
	}
	if err := e.recordEntanglement(ctrl, a); err != nil {
		return err
	}
	if err := e.recordEntanglement(ctrl, b); err != nil {
		return err
	}
	if err := e.backend.ApplyFredkin(pc, pa, pb); err != nil {
		return err
	}
	e.count("FREDKIN")
	return nil
}

func (e *Executor) resolvePair(a, b registry.Handle) (int, int, error) {
	if a == b {
		return 0, 0, core.New(core.KindInvalidArgument, "gate requires two distinct qubits", nil)
	}
	pa, err := e.bit(a)
	if err != nil {
		return 0, 0, err
	}
	pb, err := e.bit(b)
	if err != nil {
		return 0, 0, err
	}
	return pa, pb, nil
}

func (e *Executor) recordEntanglement(a, b registry.Handle) error {
	return e.reg.RecordEntanglement(a, b)
}
