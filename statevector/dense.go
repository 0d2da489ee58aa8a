package statevector

import (
	"fmt"
	"math"

	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/gate"
	"github.com/Yogirajpp/qvm/qcomplex"
	"go.uber.org/zap"
)

// Dense is the production state-backend: a flat amplitude array of
// length 2^n, index i encoding basis state |b_{n-1}...b_0> where
// b_k = (i >> k) & 1. Qubit index 0 is the least-significant bit; this
// convention is fixed and observable through measurement bit-string
// order, per spec.md §3.
type Dense struct {
	amps      []qcomplex.Amplitude
	n         int
	maxQubits int
	eps       float64
	debug     bool

	cache *probabilityCache
}

// New builds an empty (zero-qubit) Dense backend. A zero-qubit vector
// has exactly one amplitude, 1+0i, representing the empty tensor
// product's single basis state.
func New(maxQubits int, eps float64, debug bool) *Dense {
	d := &Dense{
		amps:      []qcomplex.Amplitude{qcomplex.One},
		n:         0,
		maxQubits: maxQubits,
		eps:       eps,
		debug:     debug,
		cache:     newProbabilityCache(64),
	}
	return d
}

func (d *Dense) NumQubits() int { return d.n }

func (d *Dense) Len() int { return len(d.amps) }

// Allocate doubles the vector length and fills the new upper half with
// zero amplitudes (the fresh qubit starts in |0>), per spec.md §4.C.
func (d *Dense) Allocate() error {
	if d.n >= d.maxQubits {
		return core.New(core.KindCapacityExceeded, fmt.Sprintf("qubit count would exceed maxQubits=%d", d.maxQubits), nil)
	}
	next := make([]qcomplex.Amplitude, len(d.amps)*2)
	copy(next, d.amps)
	d.amps = next
	d.n++
	d.invalidate()
	return nil
}

func (d *Dense) invalidate() { d.cache.clear() }

func bitMask(k int) int { return 1 << k }

// ApplySingleQubitGate applies the 2x2 unitary u to bit position k,
// in place, one pass, two temporaries per pair, per spec.md §4.C.
func (d *Dense) ApplySingleQubitGate(k int, u gate.Matrix2) error {
	if k < 0 || k >= d.n {
		return core.New(core.KindInvalidQubitReference, fmt.Sprintf("bit position %d out of range", k), nil)
	}
	if d.debug && !u.IsUnitary(d.eps) {
		zap.L().Warn("non-unitary single-qubit matrix applied", zap.Int("bit", k))
	}
	bit := bitMask(k)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := d.amps[i], d.amps[j]
		d.amps[i] = u[0][0].Mul(a0).Add(u[0][1].Mul(a1))
		d.amps[j] = u[1][0].Mul(a0).Add(u[1][1].Mul(a1))
	}
	d.invalidate()
	return nil
}

// ApplyTwoQubitGate applies the 4x4 unitary u to the pair (c, t), with
// c treated as the high bit of the 2-bit local index, per spec.md §4.B's
// element convention.
func (d *Dense) ApplyTwoQubitGate(c, t int, u gate.Matrix4) error {
	if c == t {
		return core.New(core.KindInvalidArgument, "control and target must differ", nil)
	}
	if err := d.checkBits(c, t); err != nil {
		return err
	}
	if d.debug && !u.IsUnitary(d.eps) {
		zap.L().Warn("non-unitary two-qubit matrix applied", zap.Int("control", c), zap.Int("target", t))
	}
	cb, tb := bitMask(c), bitMask(t)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&cb != 0 || i&tb != 0 {
			continue
		}
		idx := [4]int{i, i | tb, i | cb, i | cb | tb}
		var a [4]qcomplex.Amplitude
		for r := range idx {
			a[r] = d.amps[idx[r]]
		}
		for r := 0; r < 4; r++ {
			var sum qcomplex.Amplitude
			for col := 0; col < 4; col++ {
				sum = sum.Add(u[r][col].Mul(a[col]))
			}
			d.amps[idx[r]] = sum
		}
	}
	d.invalidate()
	return nil
}

// ApplyControlledSingleQubitGate applies the 2x2 unitary u to the target
// bit only among the indices where the control bit is set, bypassing
// the generic two-qubit kernel per spec.md §4.E.
func (d *Dense) ApplyControlledSingleQubitGate(control, target int, u gate.Matrix2) error {
	if control == target {
		return core.New(core.KindInvalidArgument, "control and target must differ", nil)
	}
	if err := d.checkBits(control, target); err != nil {
		return err
	}
	if d.debug && !u.IsUnitary(d.eps) {
		zap.L().Warn("non-unitary controlled matrix applied", zap.Int("control", control), zap.Int("target", target))
	}
	cb, tb := bitMask(control), bitMask(target)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&cb == 0 || i&tb != 0 {
			continue
		}
		j := i | tb
		a0, a1 := d.amps[i], d.amps[j]
		d.amps[i] = u[0][0].Mul(a0).Add(u[0][1].Mul(a1))
		d.amps[j] = u[1][0].Mul(a0).Add(u[1][1].Mul(a1))
	}
	d.invalidate()
	return nil
}

// ApplyCNOT is the fast path: for every index with bit c set, swap
// amplitudes at i and i^2^t. No multiplications, per spec.md §4.C.
func (d *Dense) ApplyCNOT(c, t int) error {
	if c == t {
		return core.New(core.KindInvalidArgument, "control and target must differ", nil)
	}
	if err := d.checkBits(c, t); err != nil {
		return err
	}
	cb, tb := bitMask(c), bitMask(t)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&cb == 0 {
			continue
		}
		if i&tb != 0 {
			continue // only swap once per pair; handle when target bit is 0
		}
		j := i | tb
		d.amps[i], d.amps[j] = d.amps[j], d.amps[i]
	}
	d.invalidate()
	return nil
}

// ApplySWAP swaps amplitudes wherever bit a != bit b, iterating only
// indices where bit a = 0 and bit b = 1 to halve the workload, per
// spec.md §4.C.
func (d *Dense) ApplySWAP(a, b int) error {
	if a == b {
		return core.New(core.KindInvalidArgument, "swap requires two distinct qubits", nil)
	}
	if err := d.checkBits(a, b); err != nil {
		return err
	}
	ab, bb := bitMask(a), bitMask(b)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&ab != 0 || i&bb == 0 {
			continue
		}
		j := (i &^ bb) | ab
		d.amps[i], d.amps[j] = d.amps[j], d.amps[i]
	}
	d.invalidate()
	return nil
}

// ApplyToffoli swaps amplitudes at i and i^2^t for every i with both c1
// and c2 set, halving work by iterating only the target=0 half, per
// spec.md §4.C.
func (d *Dense) ApplyToffoli(c1, c2, t int) error {
	if c1 == c2 || c1 == t || c2 == t {
		return core.New(core.KindInvalidArgument, "toffoli requires three distinct qubits", nil)
	}
	if err := d.checkBits(c1, c2, t); err != nil {
		return err
	}
	c1b, c2b, tb := bitMask(c1), bitMask(c2), bitMask(t)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&c1b == 0 || i&c2b == 0 || i&tb != 0 {
			continue
		}
		j := i | tb
		d.amps[i], d.amps[j] = d.amps[j], d.amps[i]
	}
	d.invalidate()
	return nil
}

// ApplyFredkin swaps the a/b target bits wherever the control bit is
// set, using the same halved-iteration trick as ApplyToffoli.
func (d *Dense) ApplyFredkin(ctrl, a, b int) error {
	if ctrl == a || ctrl == b || a == b {
		return core.New(core.KindInvalidArgument, "fredkin requires three distinct qubits", nil)
	}
	if err := d.checkBits(ctrl, a, b); err != nil {
		return err
	}
	cb, ab, bb := bitMask(ctrl), bitMask(a), bitMask(b)
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&cb == 0 {
			continue
		}
		if i&ab != 0 || i&bb == 0 {
			continue
		}
		j := (i &^ bb) | ab
		d.amps[i], d.amps[j] = d.amps[j], d.amps[i]
	}
	d.invalidate()
	return nil
}

// MeasureQubit collapses bit k using the caller-supplied uniform draw u
// in [0,1): outcome 0 iff u < p0. Zeroes the non-selected half and
// renormalizes the survivors by dividing by sqrt(p_chosen), per
// spec.md §4.C. Must not be called when p_chosen < eps.
func (d *Dense) MeasureQubit(k int, u float64) (int, error) {
	if k < 0 || k >= d.n {
		return 0, core.New(core.KindInvalidQubitReference, fmt.Sprintf("bit position %d out of range", k), nil)
	}
	bit := bitMask(k)
	p0 := 0.0
	n := len(d.amps)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			p0 += d.amps[i].MagnitudeSquared()
		}
	}
	outcome := 1
	pChosen := 1 - p0
	if u < p0 {
		outcome = 0
		pChosen = p0
	}
	if pChosen < d.eps {
		zap.L().Warn("measurement collapse on near-null branch", zap.Int("bit", k), zap.Float64("probability", pChosen))
	}
	norm := math.Sqrt(pChosen)
	for i := 0; i < n; i++ {
		bitVal := 0
		if i&bit != 0 {
			bitVal = 1
		}
		if bitVal != outcome {
			d.amps[i] = qcomplex.Zero
		} else if norm > 0 {
			d.amps[i] = d.amps[i].DivScalar(norm)
		}
	}
	d.invalidate()
	return outcome, nil
}

// Normalize divides every amplitude by the vector norm when it departs
// from 1 by more than eps, per spec.md §4.C.
func (d *Dense) Normalize() {
	sum := 0.0
	for _, a := range d.amps {
		sum += a.MagnitudeSquared()
	}
	norm := math.Sqrt(sum)
	if math.Abs(norm-1) <= d.eps {
		return
	}
	if norm == 0 {
		return
	}
	for i := range d.amps {
		d.amps[i] = d.amps[i].DivScalar(norm)
	}
	d.invalidate()
}

// SetStateVector replaces the vector wholesale; length must match 2^n.
// The replacement is renormalized.
func (d *Dense) SetStateVector(v []qcomplex.Amplitude) error {
	if len(v) != len(d.amps) {
		return core.New(core.KindInvalidArgument, fmt.Sprintf("length %d does not match 2^%d", len(v), d.n), nil)
	}
	copy(d.amps, v)
	d.invalidate()
	d.Normalize()
	return nil
}

// Probability returns |a_i|^2, consulting (and populating) the small
// LRU probability cache that every mutation invalidates.
func (d *Dense) Probability(i int) float64 {
	if p, ok := d.cache.get(i); ok {
		return p
	}
	if i < 0 || i >= len(d.amps) {
		return 0
	}
	p := d.amps[i].MagnitudeSquared()
	d.cache.put(i, p)
	return p
}

// Snapshot returns a read-only copy of the amplitude array, for tests
// and vm.GetStateVector.
func (d *Dense) Snapshot() []qcomplex.Amplitude {
	out := make([]qcomplex.Amplitude, len(d.amps))
	copy(out, d.amps)
	return out
}

func (d *Dense) checkBits(bits ...int) error {
	for _, b := range bits {
		if b < 0 || b >= d.n {
			return core.New(core.KindInvalidQubitReference, fmt.Sprintf("bit position %d out of range", b), nil)
		}
	}
	return nil
}
