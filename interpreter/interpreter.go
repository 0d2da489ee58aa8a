// Package interpreter is component H: the fetch-decode-execute loop
// that drives a decoded qbc.Image against an executor, a measurement
// engine, a qubit registry, and a classical memory/ALU, per spec.md §4.H.
package interpreter

import (
	"context"
	"time"

	"github.com/Yogirajpp/qvm/common"
	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/executor"
	"github.com/Yogirajpp/qvm/log"
	"github.com/Yogirajpp/qvm/measurement"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/Yogirajpp/qvm/registry"
	"go.uber.org/zap"
)

// Hooks are the three optional lifecycle callbacks spec.md §4.H names.
// Any may be nil.
type Hooks struct {
	BeforeInstruction func(pc int, in qbc.Instruction)
	AfterInstruction  func(pc int, in qbc.Instruction, err error)
	OnError           func(err error)
}

// Metrics accumulates per-run counters.
type Metrics struct {
	Instructions uint64
	ClassicalOps uint64
	QuantumOps   uint64
	JumpOps      uint64
	WallClockMs  float64
}

// Result is the outcome of one ExecuteQBC call: success flag, optional
// error message, the measurement handle->outcome mapping, a deep-copied
// snapshot of classical memory, and the run's metrics.
type Result struct {
	Success        bool
	ErrorMessage   string
	Outcomes       map[registry.Handle]int
	ClassicalMemory map[uint8]int32
	Metrics        Metrics

	// StoppedOnInstructionLimit / StoppedOnTimeout record which bound
	// fired when execution was cut short, per spec.md §5's cancellation
	// contract.
	StoppedOnInstructionLimit bool
	StoppedOnTimeout          bool
}

// Options bounds one ExecuteQBC call: 0 means "no bound" for either.
type Options struct {
	MaxInstructions uint64
	TimeoutMs       uint64
}

// Interpreter owns the classical memory and the qubit-slot->handle
// table; it delegates quantum operations to Executor/Measurement and
// holds no amplitude state of its own.
type Interpreter struct {
	exec     *executor.Executor
	measure  *measurement.Engine
	reg      *registry.Registry
	recorder *log.Recorder

	memory map[uint8]int32
	slots  map[uint8]registry.Handle

	hooks Hooks
}

// New builds an Interpreter. recorder may be nil, which disables the
// per-run otel/metric counter without affecting execution.
func New(exec *executor.Executor, measure *measurement.Engine, reg *registry.Registry, recorder *log.Recorder) *Interpreter {
	return &Interpreter{
		exec:     exec,
		measure:  measure,
		reg:      reg,
		recorder: recorder,
		memory:   make(map[uint8]int32),
		slots:    make(map[uint8]registry.Handle),
	}
}

func (in *Interpreter) recordRun(success bool) {
	if in.recorder != nil {
		in.recorder.RecordRun(context.Background(), success)
	}
}

// SetHooks installs the before/after/on-error callbacks. Any zero-value
// field leaves that hook unset.
func (in *Interpreter) SetHooks(h Hooks) { in.hooks = h }

// PreScan records the set of offsets that any JMP/CJMP in data targets.
// Useful for debugging and validation; not required for correctness,
// per spec.md §4.H.
func PreScan(data []byte) (map[uint32]struct{}, error) {
	targets := make(map[uint32]struct{})
	pos := 0
	for pos < len(data) {
		in, n, err := qbc.DecodeInstruction(data[pos:])
		if err != nil {
			return targets, err
		}
		if in.Op == qbc.OpJMP || in.Op == qbc.OpCJMP {
			targets[in.Target] = struct{}{}
		}
		pos += n
	}
	return targets, nil
}

// ExecuteQBC runs the decoded image to completion or until a bound
// fires. Errors abort the run, are captured (not re-raised) in the
// Result, and fire OnError if installed.
func (in *Interpreter) ExecuteQBC(img qbc.Image, opts Options) Result {
	start := time.Now()
	data, err := rebuildInstructionStream(img)
	if err != nil {
		return in.fail(err, Metrics{})
	}

	running := true
	var metrics Metrics
	var runErr error

	pc := 0
	for running && pc < len(data) {
		if opts.MaxInstructions > 0 && metrics.Instructions >= opts.MaxInstructions {
			return in.stop(metrics, start, true, false)
		}
		if opts.TimeoutMs > 0 && float64(time.Since(start).Milliseconds()) >= float64(opts.TimeoutMs) {
			return in.stop(metrics, start, false, true)
		}

		instr, n, derr := qbc.DecodeInstruction(data[pc:])
		if derr != nil {
			runErr = derr
			break
		}

		if in.hooks.BeforeInstruction != nil {
			in.hooks.BeforeInstruction(pc, instr)
		}

		execErr := in.step(instr, &metrics)

		if in.hooks.AfterInstruction != nil {
			in.hooks.AfterInstruction(pc, instr, execErr)
		}

		metrics.Instructions++
		if execErr != nil {
			runErr = execErr
			break
		}

		if instr.Op == qbc.OpEND {
			running = false
			break
		}
		if instr.Op == qbc.OpJMP || instr.Op == qbc.OpCJMP {
			metrics.JumpOps++
			took, target := in.jumpDecision(instr)
			if took {
				if int(target) < 0 || int(target) >= len(data) {
					runErr = core.New(core.KindInvalidBytecode, "jump target out of range", nil)
					break
				}
				pc = int(target)
				continue
			}
		}
		pc += n
	}

	if runErr != nil {
		if in.hooks.OnError != nil {
			in.hooks.OnError(runErr)
		}
		return in.fail(runErr, metrics)
	}

	metrics.WallClockMs = float64(time.Since(start).Microseconds()) / 1000.0
	in.recordRun(true)
	return Result{
		Success:         true,
		Outcomes:        in.outcomeSnapshot(),
		ClassicalMemory: in.memorySnapshot(),
		Metrics:         metrics,
	}
}

func (in *Interpreter) stop(metrics Metrics, start time.Time, instrLimit, timeout bool) Result {
	metrics.WallClockMs = float64(time.Since(start).Microseconds()) / 1000.0
	in.recordRun(true)
	return Result{
		Success:                   true,
		Outcomes:                  in.outcomeSnapshot(),
		ClassicalMemory:           in.memorySnapshot(),
		Metrics:                   metrics,
		StoppedOnInstructionLimit: instrLimit,
		StoppedOnTimeout:          timeout,
	}
}

func (in *Interpreter) fail(err error, metrics Metrics) Result {
	zap.L().Warn("interpreter run aborted", zap.Error(err))
	in.recordRun(false)
	return Result{
		Success:         false,
		ErrorMessage:    err.Error(),
		Outcomes:        in.outcomeSnapshot(),
		ClassicalMemory: in.memorySnapshot(),
		Metrics:         metrics,
	}
}

func (in *Interpreter) outcomeSnapshot() map[registry.Handle]int {
	out := make(map[registry.Handle]int)
	for _, o := range in.measure.History() {
		out[o.Handle] = o.Value
	}
	return out
}

// memorySnapshot deep-copies classical memory so the Result is safe to
// retain across further interpreter mutation.
func (in *Interpreter) memorySnapshot() map[uint8]int32 {
	copied := common.DeepCopySnapshot(in.memory)
	snap, ok := copied.(map[uint8]int32)
	if !ok {
		snap = make(map[uint8]int32)
	}
	return snap
}

func (in *Interpreter) jumpDecision(instr qbc.Instruction) (bool, uint32) {
	if instr.Op == qbc.OpJMP {
		return true, instr.Target
	}
	v, ok := in.memory[instr.Cond]
	if !ok {
		return false, 0
	}
	return v != 0, instr.Target
}

// rebuildInstructionStream re-encodes img's instructions into the raw
// byte stream the fetch loop walks by offset; qbc.Image carries decoded
// instructions, but jump targets are byte offsets, so the interpreter
// must operate on the wire form.
func rebuildInstructionStream(img qbc.Image) ([]byte, error) {
	raw, err := qbc.Encode(qbc.Image{Qubits: img.Qubits, Instructions: img.Instructions})
	if err != nil {
		return nil, err
	}
	// strip the 20-byte header qbc.Encode prepends; the interpreter's
	// PC space is the instruction stream alone. The image above was
	// encoded without metadata, so everything after the header is code.
	const headerSize = 20
	dataSize := len(raw) - headerSize
	if dataSize < 0 {
		return nil, core.New(core.KindInvalidBytecode, "encode produced inconsistent sizes", nil)
	}
	return raw[headerSize : headerSize+dataSize], nil
}

func (in *Interpreter) step(instr qbc.Instruction, metrics *Metrics) error {
	switch instr.Op {
	case qbc.OpAlloc:
		h, err := in.reg.AllocateQubit()
		if err != nil {
			return err
		}
		in.slots[instr.Q1] = h
		metrics.QuantumOps++
		return nil
	case qbc.OpDealloc:
		h, ok := in.slots[instr.Q1]
		if !ok {
			return core.New(core.KindInvalidQubitReference, "dealloc of unbound slot", nil)
		}
		if _, warnEntangled := in.reg.DeallocateQubit(h); warnEntangled {
			zap.L().Warn("deallocating qubit still entangled with others", zap.Uint8("slot", instr.Q1))
		}
		delete(in.slots, instr.Q1)
		metrics.QuantumOps++
		return nil
	case qbc.OpX, qbc.OpY, qbc.OpZ, qbc.OpH, qbc.OpS, qbc.OpT:
		h, err := in.handle(instr.Q1)
		if err != nil {
			return err
		}
		if err := in.exec.ApplyFixedGate(qbc.Mnemonic(instr.Op), h); err != nil {
			return err
		}
		metrics.QuantumOps++
		return nil
	case qbc.OpRX, qbc.OpRY, qbc.OpRZ, qbc.OpPHASE:
		h, err := in.handle(instr.Q1)
		if err != nil {
			return err
		}
		theta := float64(instr.Angle)
		switch instr.Op {
		case qbc.OpRX:
			err = in.exec.ApplyRX(h, theta)
		case qbc.OpRY:
			err = in.exec.ApplyRY(h, theta)
		case qbc.OpRZ:
			err = in.exec.ApplyRZ(h, theta)
		case qbc.OpPHASE:
			err = in.exec.ApplyPHASE(h, theta)
		}
		if err != nil {
			return err
		}
		metrics.QuantumOps++
		return nil
	case qbc.OpCNOT, qbc.OpCZ, qbc.OpSWAP, qbc.OpISWAP:
		h1, err := in.handle(instr.Q1)
		if err != nil {
			return err
		}
		h2, err := in.handle(instr.Q2)
		if err != nil {
			return err
		}
		switch instr.Op {
		case qbc.OpCNOT:
			err = in.exec.ApplyCNOT(h1, h2)
		case qbc.OpCZ:
			err = in.exec.ApplyCZ(h1, h2)
		case qbc.OpSWAP:
			err = in.exec.ApplySWAP(h1, h2)
		case qbc.OpISWAP:
			err = in.exec.ApplyISWAP(h1, h2)
		}
		if err != nil {
			return err
		}
		metrics.QuantumOps++
		return nil
	case qbc.OpTOFFOLI, qbc.OpFREDKIN:
		h1, err := in.handle(instr.Q1)
		if err != nil {
			return err
		}
		h2, err := in.handle(instr.Q2)
		if err != nil {
			return err
		}
		h3, err := in.handle(instr.Q3)
		if err != nil {
			return err
		}
		if instr.Op == qbc.OpTOFFOLI {
			err = in.exec.ApplyToffoli(h1, h2, h3)
		} else {
			err = in.exec.ApplyFredkin(h1, h2, h3)
		}
		if err != nil {
			return err
		}
		metrics.QuantumOps++
		return nil
	case qbc.OpMEASURE:
		h, err := in.handle(instr.Q1)
		if err != nil {
			return err
		}
		v, err := in.measure.MeasureQubit(h, false)
		if err != nil {
			return err
		}
		in.memory[instr.Dst] = int32(v)
		metrics.QuantumOps++
		return nil
	case qbc.OpMEASUREALL:
		handles := make([]registry.Handle, 0, len(in.slots))
		for _, h := range in.slots {
			handles = append(handles, h)
		}
		if _, err := in.measure.MeasureQubits(handles, false); err != nil {
			return err
		}
		metrics.QuantumOps++
		return nil
	case qbc.OpSTORE:
		in.memory[instr.Addr] = instr.Value
		metrics.ClassicalOps++
		return nil
	case qbc.OpLOAD:
		v, ok := in.memory[instr.Src]
		if !ok {
			return core.New(core.KindUnsetAddress, "load from unset address", nil)
		}
		in.memory[instr.Dst] = v
		metrics.ClassicalOps++
		return nil
	case qbc.OpADD, qbc.OpSUB, qbc.OpMUL, qbc.OpDIV, qbc.OpAND, qbc.OpOR, qbc.OpXOR,
		qbc.OpEQ, qbc.OpNEQ, qbc.OpLT, qbc.OpGT:
		a, ok := in.memory[instr.A]
		if !ok {
			return core.New(core.KindUnsetAddress, "operand a unset", nil)
		}
		b, ok := in.memory[instr.B]
		if !ok {
			return core.New(core.KindUnsetAddress, "operand b unset", nil)
		}
		result, err := classicalBinary(instr.Op, a, b)
		if err != nil {
			return err
		}
		in.memory[instr.R] = result
		metrics.ClassicalOps++
		return nil
	case qbc.OpNOT:
		a, ok := in.memory[instr.A]
		if !ok {
			return core.New(core.KindUnsetAddress, "operand a unset", nil)
		}
		in.memory[instr.R] = ^a
		metrics.ClassicalOps++
		return nil
	case qbc.OpEND:
		return nil
	case qbc.OpJMP, qbc.OpCJMP:
		if instr.Op == qbc.OpCJMP {
			if _, ok := in.memory[instr.Cond]; !ok {
				return core.New(core.KindUnsetAddress, "unset jump condition", nil)
			}
		}
		return nil
	default:
		return core.New(core.KindInvalidBytecode, "unknown opcode", nil)
	}
}

func (in *Interpreter) handle(slot uint8) (registry.Handle, error) {
	h, ok := in.slots[slot]
	if !ok {
		return registry.Handle{}, core.New(core.KindInvalidQubitReference, "unbound qubit slot", nil)
	}
	return h, nil
}

// classicalBinary implements the 32-bit signed ALU: DIV truncates
// toward zero, divide-by-zero is an error, bitwise operators act on
// two's-complement, comparisons yield 1 or 0, per spec.md §4.H.
func classicalBinary(op qbc.Opcode, a, b int32) (int32, error) {
	switch op {
	case qbc.OpADD:
		return a + b, nil
	case qbc.OpSUB:
		return a - b, nil
	case qbc.OpMUL:
		return a * b, nil
	case qbc.OpDIV:
		if b == 0 {
			return 0, core.New(core.KindNumericFailure, "division by zero", nil)
		}
		return a / b, nil // Go's / truncates toward zero for ints, matching spec
	case qbc.OpAND:
		return a & b, nil
	case qbc.OpOR:
		return a | b, nil
	case qbc.OpXOR:
		return a ^ b, nil
	case qbc.OpEQ:
		return boolToInt32(a == b), nil
	case qbc.OpNEQ:
		return boolToInt32(a != b), nil
	case qbc.OpLT:
		return boolToInt32(a < b), nil
	case qbc.OpGT:
		return boolToInt32(a > b), nil
	default:
		return 0, core.New(core.KindInvalidBytecode, "not a binary classical opcode", nil)
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
