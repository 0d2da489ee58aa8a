// Package vm is component I: the facade that owns one registry, one
// dense state vector, one executor, one measurement engine and one
// interpreter, and exposes the language-independent operations spec.md
// §6 names (initialize, executeQBC, getStateVector, reset). There is no
// createCircuit method: a builder is made with circuit.New(v), because
// package circuit imports vm.
package vm

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/Yogirajpp/qvm/common"
	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/executor"
	"github.com/Yogirajpp/qvm/interpreter"
	"github.com/Yogirajpp/qvm/log"
	"github.com/Yogirajpp/qvm/measurement"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/Yogirajpp/qvm/qcomplex"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/Yogirajpp/qvm/statevector"
	"go.uber.org/zap"
)

// csprng satisfies measurement.Rand by drawing from an OS-provided
// CSPRNG, the default random source per spec.md §5; tests substitute a
// deterministic Rand.
type csprng struct{}

func (csprng) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read failing means the OS entropy source is
		// broken; there is no sane fallback, so surface a degenerate
		// but deterministic value rather than panicking mid-measurement.
		return 0
	}
	// Map the top 53 bits of a uniform uint64 into [0,1), matching the
	// precision of math/rand's Float64.
	u := binary.LittleEndian.Uint64(b[:]) >> 11
	return float64(u) / float64(uint64(1)<<53)
}

// VM owns one instance of every stateful component. Two VMs are
// independent; nothing here is shared across instances, per spec.md §5.
type VM struct {
	mu sync.Mutex

	conf *core.Conf

	backend  *statevector.Dense
	reg      *registry.Registry
	exec     *executor.Executor
	measure  *measurement.Engine
	interp   *interpreter.Interpreter
	recorder *log.Recorder

	initialized bool
}

// New constructs an uninitialized VM; call Initialize before use, or
// rely on Initialize's own DefaultConf fallback.
func New() *VM {
	return &VM{}
}

// Initialize wires the VM's components from conf. Idempotent: a second
// call with a different config is a no-op that logs a warning rather
// than silently discarding the running instance's state, per spec.md §6.
func (v *VM) Initialize(conf *core.Conf) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if conf == nil {
		conf = core.DefaultConf()
	}
	if v.initialized {
		zap.L().Warn("VM already initialized; ignoring subsequent Initialize call")
		return
	}
	v.conf = conf
	v.rebuild()
	v.initialized = true
}

// rebuild recreates every stateful component from the current conf. The
// caller must hold v.mu.
func (v *VM) rebuild() {
	if _, err := log.Setup(v.conf); err != nil {
		zap.L().Warn("log setup failed; continuing with the existing global logger", zap.Error(err))
	}
	recorder, err := log.NewRecorder(nil)
	if err != nil {
		zap.L().Warn("metrics recorder setup failed; gate/measurement/run counters disabled", zap.Error(err))
		recorder = nil
	}
	v.recorder = recorder

	v.backend = statevector.New(int(v.conf.MaxQubits), v.conf.Precision, v.conf.Debug)
	v.reg = registry.New(v.backend, int(v.conf.MaxQubits))
	v.exec = executor.New(v.reg, v.backend, v.recorder)
	v.measure = measurement.New(v.reg, v.backend, csprng{}, v.recorder)
	v.interp = interpreter.New(v.exec, v.measure, v.reg, v.recorder)
}

func (v *VM) ensureInitialized() {
	if !v.initialized {
		v.conf = core.DefaultConf()
		v.rebuild()
		v.initialized = true
	}
}

// ExecuteBuffer decodes buf and runs it against this VM's interpreter.
func (v *VM) ExecuteBuffer(buf []byte, opts interpreter.Options) (interpreter.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureInitialized()

	img, err := qbc.Decode(buf)
	if err != nil {
		return interpreter.Result{}, err
	}
	return v.interp.ExecuteQBC(img, opts), nil
}

// ExecuteQBC runs an already-decoded image directly against this VM's
// interpreter, skipping a redundant encode/decode round trip. Its
// signature matches scheduler.Runner, so a *VM can be handed to
// scheduler.Run as one of its workers.
func (v *VM) ExecuteQBC(img qbc.Image, opts interpreter.Options) interpreter.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureInitialized()
	return v.interp.ExecuteQBC(img, opts)
}

// GetStateVector returns a read-only copy of the current amplitude
// array, per spec.md §6.
func (v *VM) GetStateVector() []qcomplex.Amplitude {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureInitialized()
	return v.backend.Snapshot()
}

// Registry, Executor and Measurement expose the underlying components
// for circuit.Builder, which needs to allocate handles and issue gates
// directly rather than only through compiled bytecode.
func (v *VM) Registry() *registry.Registry     { v.ensureInitialized(); return v.reg }
func (v *VM) Executor() *executor.Executor     { v.ensureInitialized(); return v.exec }
func (v *VM) Measurement() *measurement.Engine { v.ensureInitialized(); return v.measure }

// DumpDebugState pretty-prints the measurement value counts and
// measurement history as JSON, for callers running with Config.Debug
// set. It returns an empty string when debug mode is off, since the
// snapshot it builds is otherwise wasted work.
func (v *VM) DumpDebugState() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureInitialized()
	if !v.conf.Debug {
		return "", nil
	}
	snapshot := struct {
		ValueCounts map[int]uint64      `json:"valueCounts"`
		History     []measurement.Outcome `json:"history"`
	}{
		ValueCounts: v.measure.ValueCounts(),
		History:     v.measure.History(),
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	return string(common.PrettyJSON(raw)), nil
}

// Reset atomically clears every component: a fresh backend, registry,
// executor, measurement engine and interpreter, per spec.md §5.
func (v *VM) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		v.conf = core.DefaultConf()
	}
	v.rebuild()
	v.initialized = true
}
