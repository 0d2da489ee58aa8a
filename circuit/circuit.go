// Package circuit is the high-level builder (component J): it lets a
// caller assemble a sequence of gate/measurement/classical calls against
// live qubits on a vm.VM, executing each one immediately, while mirroring
// the same sequence into a qbc.Image a caller can serialize, replay, or
// hand to the scheduler.
package circuit

import (
	"math"
	"strconv"

	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/Yogirajpp/qvm/qcomplex"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/Yogirajpp/qvm/vm"
	"github.com/go-faster/jx"
)

// Label marks a position in the instruction stream for Jmp/CJmp to
// target. The zero value is unresolved; Mark must be called on it
// before Compile.
type Label struct {
	index int
}

func newUnresolvedLabel() *Label { return &Label{index: -1} }

type jumpFixup struct {
	instrIndex int
	label      *Label
}

// Builder accumulates a program against one vm.VM: every call both runs
// against the VM's live components and records the equivalent
// qbc.Instruction, so the same sequence can be re-emitted as a QBC image.
type Builder struct {
	v *vm.VM

	nextSlot uint8
	nextAddr uint8

	slots map[uint8]registry.Handle

	instrs []qbc.Instruction
	jumps  []jumpFixup
}

// New creates a Builder that allocates qubits and runs gates against v.
func New(v *vm.VM) *Builder {
	return &Builder{v: v, slots: make(map[uint8]registry.Handle)}
}

func (b *Builder) append(instr qbc.Instruction) {
	b.instrs = append(b.instrs, instr)
}

// Allocate requests one fresh qubit from the VM and returns the slot
// number the rest of the Builder's calls use to address it.
func (b *Builder) Allocate() (uint8, error) {
	h, err := b.v.Registry().AllocateQubit()
	if err != nil {
		return 0, err
	}
	slot := b.nextSlot
	b.nextSlot++
	b.slots[slot] = h
	b.append(qbc.Instruction{Op: qbc.OpAlloc, Q1: slot})
	return slot, nil
}

// AllocateN allocates n fresh qubits and returns their slots in order.
func (b *Builder) AllocateN(n int) ([]uint8, error) {
	out := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		s, err := b.Allocate()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Deallocate releases the qubit bound to slot.
func (b *Builder) Deallocate(slot uint8) error {
	h, ok := b.slots[slot]
	if !ok {
		return core.New(core.KindInvalidQubitReference, "deallocate of unbound slot", nil)
	}
	b.v.Registry().DeallocateQubit(h)
	delete(b.slots, slot)
	b.append(qbc.Instruction{Op: qbc.OpDealloc, Q1: slot})
	return nil
}

func (b *Builder) handle(slot uint8) (registry.Handle, error) {
	h, ok := b.slots[slot]
	if !ok {
		return registry.Handle{}, core.New(core.KindInvalidQubitReference, "unbound qubit slot", nil)
	}
	return h, nil
}

func (b *Builder) fixedGate(op qbc.Opcode, slot uint8) error {
	h, err := b.handle(slot)
	if err != nil {
		return err
	}
	if err := b.v.Executor().ApplyFixedGate(qbc.Mnemonic(op), h); err != nil {
		return err
	}
	b.append(qbc.Instruction{Op: op, Q1: slot})
	return nil
}

func (b *Builder) X(slot uint8) error { return b.fixedGate(qbc.OpX, slot) }
func (b *Builder) Y(slot uint8) error { return b.fixedGate(qbc.OpY, slot) }
func (b *Builder) Z(slot uint8) error { return b.fixedGate(qbc.OpZ, slot) }
func (b *Builder) H(slot uint8) error { return b.fixedGate(qbc.OpH, slot) }
func (b *Builder) S(slot uint8) error { return b.fixedGate(qbc.OpS, slot) }
func (b *Builder) T(slot uint8) error { return b.fixedGate(qbc.OpT, slot) }

func (b *Builder) rotation(op qbc.Opcode, slot uint8, theta float64) error {
	h, err := b.handle(slot)
	if err != nil {
		return err
	}
	var err2 error
	switch op {
	case qbc.OpRX:
		err2 = b.v.Executor().ApplyRX(h, theta)
	case qbc.OpRY:
		err2 = b.v.Executor().ApplyRY(h, theta)
	case qbc.OpRZ:
		err2 = b.v.Executor().ApplyRZ(h, theta)
	case qbc.OpPHASE:
		err2 = b.v.Executor().ApplyPHASE(h, theta)
	}
	if err2 != nil {
		return err2
	}
	b.append(qbc.Instruction{Op: op, Q1: slot, Angle: float32(theta)})
	return nil
}

func (b *Builder) RX(slot uint8, theta float64) error    { return b.rotation(qbc.OpRX, slot, theta) }
func (b *Builder) RY(slot uint8, theta float64) error    { return b.rotation(qbc.OpRY, slot, theta) }
func (b *Builder) RZ(slot uint8, theta float64) error    { return b.rotation(qbc.OpRZ, slot, theta) }
func (b *Builder) PHASE(slot uint8, phi float64) error   { return b.rotation(qbc.OpPHASE, slot, phi) }

func (b *Builder) twoQubitGate(op qbc.Opcode, a, c uint8) error {
	h1, err := b.handle(a)
	if err != nil {
		return err
	}
	h2, err := b.handle(c)
	if err != nil {
		return err
	}
	var err2 error
	switch op {
	case qbc.OpCNOT:
		err2 = b.v.Executor().ApplyCNOT(h1, h2)
	case qbc.OpCZ:
		err2 = b.v.Executor().ApplyCZ(h1, h2)
	case qbc.OpSWAP:
		err2 = b.v.Executor().ApplySWAP(h1, h2)
	case qbc.OpISWAP:
		err2 = b.v.Executor().ApplyISWAP(h1, h2)
	}
	if err2 != nil {
		return err2
	}
	b.append(qbc.Instruction{Op: op, Q1: a, Q2: c})
	return nil
}

func (b *Builder) CNOT(control, target uint8) error { return b.twoQubitGate(qbc.OpCNOT, control, target) }
func (b *Builder) CZ(a, c uint8) error               { return b.twoQubitGate(qbc.OpCZ, a, c) }
func (b *Builder) SWAP(a, c uint8) error             { return b.twoQubitGate(qbc.OpSWAP, a, c) }
func (b *Builder) ISWAP(a, c uint8) error            { return b.twoQubitGate(qbc.OpISWAP, a, c) }

func (b *Builder) threeQubitGate(op qbc.Opcode, q1, q2, q3 uint8) error {
	h1, err := b.handle(q1)
	if err != nil {
		return err
	}
	h2, err := b.handle(q2)
	if err != nil {
		return err
	}
	h3, err := b.handle(q3)
	if err != nil {
		return err
	}
	var err2 error
	if op == qbc.OpTOFFOLI {
		err2 = b.v.Executor().ApplyToffoli(h1, h2, h3)
	} else {
		err2 = b.v.Executor().ApplyFredkin(h1, h2, h3)
	}
	if err2 != nil {
		return err2
	}
	b.append(qbc.Instruction{Op: op, Q1: q1, Q2: q2, Q3: q3})
	return nil
}

func (b *Builder) Toffoli(c1, c2, target uint8) error { return b.threeQubitGate(qbc.OpTOFFOLI, c1, c2, target) }
func (b *Builder) Fredkin(ctrl, a, c uint8) error     { return b.threeQubitGate(qbc.OpFREDKIN, ctrl, a, c) }

// Measure allocates the next free classical address, measures slot
// collapsingly on the live VM, records a MEASURE instruction that writes
// the outcome to that address when the compiled image runs, and returns
// the address. The live call itself writes no classical memory.
func (b *Builder) Measure(slot uint8) (uint8, error) {
	h, err := b.handle(slot)
	if err != nil {
		return 0, err
	}
	if _, err := b.v.Measurement().MeasureQubit(h, false); err != nil {
		return 0, err
	}
	dst := b.nextAddr
	b.nextAddr++
	b.append(qbc.Instruction{Op: qbc.OpMEASURE, Q1: slot, Dst: dst})
	return dst, nil
}

// MeasureAll collapses every currently allocated qubit.
func (b *Builder) MeasureAll() error {
	handles := make([]registry.Handle, 0, len(b.slots))
	for _, h := range b.slots {
		handles = append(handles, h)
	}
	if _, err := b.v.Measurement().MeasureQubits(handles, false); err != nil {
		return err
	}
	b.append(qbc.Instruction{Op: qbc.OpMEASUREALL})
	return nil
}

// Sample draws shots i.i.d. samples from the live state's sub-bitstring
// projected onto slots (every currently bound slot, if none are given)
// and returns a value->count histogram, mirroring measurement.Engine.Sample
// without recording history or collapsing state, per spec.md §1's
// "allocate, apply-gate, measure, sample, compile-to-QBC" interface list.
func (b *Builder) Sample(shots int, slots ...uint8) (map[int]uint64, error) {
	var handles []registry.Handle
	if len(slots) > 0 {
		handles = make([]registry.Handle, 0, len(slots))
		for _, slot := range slots {
			h, err := b.handle(slot)
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
		}
	}
	hist, err := b.v.Measurement().Sample(shots, handles)
	if err != nil {
		return nil, err
	}
	out := make(map[int]uint64, len(hist))
	for bits, count := range hist {
		v, err := strconv.ParseUint(bits, 2, 64)
		if err != nil {
			return nil, err
		}
		out[int(v)] = count
	}
	return out, nil
}

// AllocAddr reserves and returns the next free classical address
// without writing to it, for callers building their own Store/Load
// sequences.
func (b *Builder) AllocAddr() uint8 {
	a := b.nextAddr
	b.nextAddr++
	return a
}

// Store writes a constant into a classical address (recorded only; the
// interpreter performs the actual write at run time, so Store has no
// live effect on the VM here).
func (b *Builder) Store(addr uint8, value int32) {
	b.append(qbc.Instruction{Op: qbc.OpSTORE, Addr: addr, Value: value})
}

// Load copies one classical address into another.
func (b *Builder) Load(dst, src uint8) {
	b.append(qbc.Instruction{Op: qbc.OpLOAD, Dst: dst, Src: src})
}

func (b *Builder) binary(op qbc.Opcode, a, c, r uint8) {
	b.append(qbc.Instruction{Op: op, A: a, B: c, R: r})
}

func (b *Builder) Add(a, c, r uint8) { b.binary(qbc.OpADD, a, c, r) }
func (b *Builder) Sub(a, c, r uint8) { b.binary(qbc.OpSUB, a, c, r) }
func (b *Builder) Mul(a, c, r uint8) { b.binary(qbc.OpMUL, a, c, r) }
func (b *Builder) Div(a, c, r uint8) { b.binary(qbc.OpDIV, a, c, r) }
func (b *Builder) And(a, c, r uint8) { b.binary(qbc.OpAND, a, c, r) }
func (b *Builder) Or(a, c, r uint8)  { b.binary(qbc.OpOR, a, c, r) }
func (b *Builder) Xor(a, c, r uint8) { b.binary(qbc.OpXOR, a, c, r) }
func (b *Builder) Eq(a, c, r uint8)  { b.binary(qbc.OpEQ, a, c, r) }
func (b *Builder) Neq(a, c, r uint8) { b.binary(qbc.OpNEQ, a, c, r) }
func (b *Builder) Lt(a, c, r uint8)  { b.binary(qbc.OpLT, a, c, r) }
func (b *Builder) Gt(a, c, r uint8)  { b.binary(qbc.OpGT, a, c, r) }

func (b *Builder) Not(a, r uint8) {
	b.append(qbc.Instruction{Op: qbc.OpNOT, A: a, R: r})
}

// NewLabel returns an unresolved jump target; Mark it before Compile.
func (b *Builder) NewLabel() *Label { return newUnresolvedLabel() }

// Mark binds l to the position the next appended instruction will
// occupy.
func (b *Builder) Mark(l *Label) { l.index = len(b.instrs) }

// Jmp appends an unconditional jump to l, resolved at Compile time.
func (b *Builder) Jmp(l *Label) {
	b.append(qbc.Instruction{Op: qbc.OpJMP})
	b.jumps = append(b.jumps, jumpFixup{instrIndex: len(b.instrs) - 1, label: l})
}

// CJmp appends a jump to l taken when the classical value at cond is
// nonzero.
func (b *Builder) CJmp(cond uint8, l *Label) {
	b.append(qbc.Instruction{Op: qbc.OpCJMP, Cond: cond})
	b.jumps = append(b.jumps, jumpFixup{instrIndex: len(b.instrs) - 1, label: l})
}

// End terminates the program explicitly; Compile appends one
// automatically if the caller never does.
func (b *Builder) End() { b.append(qbc.Instruction{Op: qbc.OpEND}) }

// PrepareCustomState drives slot, assumed to be in |0>, into
// alpha|0> + beta|1> treating beta as a real magnitude: the relative
// phase is fixed at zero regardless of beta's imaginary part. Callers
// that need the complex phase should use PrepareCustomStateComplex.
func (b *Builder) PrepareCustomState(slot uint8, alpha, beta qcomplex.Amplitude) error {
	return b.prepareCustomState(slot, alpha, beta, 0)
}

// PrepareCustomStateComplex drives slot into alpha|0> + beta|1>, honoring
// beta's phase via atan2(beta.Imag(), beta.Real()).
func (b *Builder) PrepareCustomStateComplex(slot uint8, alpha, beta qcomplex.Amplitude) error {
	return b.prepareCustomState(slot, alpha, beta, beta.Phase())
}

func (b *Builder) prepareCustomState(slot uint8, alpha, beta qcomplex.Amplitude, phase float64) error {
	theta := 2 * math.Atan2(beta.Magnitude(), alpha.Magnitude())
	if err := b.RY(slot, theta); err != nil {
		return err
	}
	if phase == 0 {
		return nil
	}
	return b.PHASE(slot, phase)
}

// Metadata carries caller-supplied bookkeeping into the compiled
// image's JSON blob. BuildTimestamp is the caller's responsibility:
// the builder never reads the clock itself.
type Metadata struct {
	BuildTimestamp string
	Name           string
}

// Compile resolves every pending jump target and encodes the recorded
// instruction sequence, plus a JSON metadata blob, into a qbc.Image.
// It appends an End whenever the recorded sequence does not already
// finish with one, including when the sequence is empty.
func (b *Builder) Compile(meta Metadata) (qbc.Image, error) {
	instrs := make([]qbc.Instruction, len(b.instrs))
	copy(instrs, b.instrs)
	if len(instrs) == 0 || instrs[len(instrs)-1].Op != qbc.OpEND {
		instrs = append(instrs, qbc.Instruction{Op: qbc.OpEND})
	}

	offsets := make([]uint32, len(instrs)+1)
	var cursor uint32
	for i, instr := range instrs {
		offsets[i] = cursor
		cursor += uint32(qbc.InstructionLength(instr.Op))
	}
	offsets[len(instrs)] = cursor

	for _, fx := range b.jumps {
		if fx.label.index < 0 || fx.label.index > len(b.instrs) {
			return qbc.Image{}, core.New(core.KindInvalidArgument, "jump to unmarked label", nil)
		}
		instrs[fx.instrIndex].Target = offsets[fx.label.index]
	}

	blob, err := b.metadataJSON(meta)
	if err != nil {
		return qbc.Image{}, err
	}

	return qbc.Image{
		Qubits:       uint16(b.nextSlot), // declared count tracks slots ever allocated, not currently-live ones
		Instructions: instrs,
		Metadata:     blob,
	}, nil
}

func (b *Builder) metadataJSON(meta Metadata) ([]byte, error) {
	var w jx.Writer
	w.ObjStart()

	w.FieldStart("name")
	w.Str(meta.Name)

	w.FieldStart("buildTimestamp")
	w.Str(meta.BuildTimestamp)

	w.FieldStart("qubitCount")
	w.UInt32(uint32(b.nextSlot))

	w.FieldStart("instructionCount")
	w.Int(len(b.instrs))

	w.FieldStart("gates")
	w.ArrStart()
	for _, instr := range b.instrs {
		w.ObjStart()
		w.FieldStart("op")
		w.Str(qbc.Mnemonic(instr.Op))
		switch instr.Op {
		case qbc.OpRX, qbc.OpRY, qbc.OpRZ, qbc.OpPHASE:
			w.FieldStart("q1")
			w.UInt8(instr.Q1)
			w.FieldStart("angle")
			w.Float64(float64(instr.Angle))
		case qbc.OpCNOT, qbc.OpCZ, qbc.OpSWAP, qbc.OpISWAP:
			w.FieldStart("q1")
			w.UInt8(instr.Q1)
			w.FieldStart("q2")
			w.UInt8(instr.Q2)
		case qbc.OpTOFFOLI, qbc.OpFREDKIN:
			w.FieldStart("q1")
			w.UInt8(instr.Q1)
			w.FieldStart("q2")
			w.UInt8(instr.Q2)
			w.FieldStart("q3")
			w.UInt8(instr.Q3)
		case qbc.OpX, qbc.OpY, qbc.OpZ, qbc.OpH, qbc.OpS, qbc.OpT, qbc.OpAlloc, qbc.OpDealloc:
			w.FieldStart("q1")
			w.UInt8(instr.Q1)
		case qbc.OpMEASURE:
			w.FieldStart("q1")
			w.UInt8(instr.Q1)
			w.FieldStart("dst")
			w.UInt8(instr.Dst)
		}
		w.ObjEnd()
	}
	w.ArrEnd()

	w.ObjEnd()
	return w.Buf, nil
}
