// Package measurement is component F: collapsing and non-collapsing
// qubit measurement, joint/marginal probability queries, sampling over
// a projected sub-bitstring, and the append-only outcome history.
package measurement

import (
	"context"
	"sync"

	"github.com/Yogirajpp/qvm/core"
	"github.com/Yogirajpp/qvm/log"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/Yogirajpp/qvm/statevector"
)

// Rand is the one random-number capability this package needs: a
// uniform draw in [0,1). The VM wires a CSPRNG-backed implementation by
// default; tests supply a deterministic one, per spec.md §5's allowance
// for a seedable PRNG.
type Rand interface {
	Float64() float64
}

// Outcome is a recorded measurement: which handle, what value, and a
// monotonic sequence number that substitutes for a wall-clock timestamp
// so history order is reproducible in tests, per spec.md §4.F.
type Outcome struct {
	Handle   registry.Handle
	Value    int
	Sequence uint64
}

type Engine struct {
	reg      *registry.Registry
	backend  statevector.Backend
	rng      Rand
	recorder *log.Recorder

	mu       sync.Mutex
	latest   map[registry.Handle]int
	history  []Outcome
	sequence uint64

	totalOutcomes uint64
	valueCounts   map[int]uint64
}

// New builds an Engine. recorder may be nil, which disables the
// per-outcome otel/metric counter without affecting measurement.
func New(reg *registry.Registry, backend statevector.Backend, rng Rand, recorder *log.Recorder) *Engine {
	return &Engine{
		reg:         reg,
		backend:     backend,
		rng:         rng,
		recorder:    recorder,
		latest:      make(map[registry.Handle]int),
		valueCounts: make(map[int]uint64),
	}
}

func (m *Engine) bit(h registry.Handle) (int, error) { return m.reg.IndexOf(h) }

// MeasureQubit measures h. If nonCollapsing, it computes the marginal
// P(0)/P(1), draws a sample and returns it without mutating state or
// recording history. Otherwise it delegates to the backend's collapsing
// measurement and records the outcome, per spec.md §4.F.
func (m *Engine) MeasureQubit(h registry.Handle, nonCollapsing bool) (int, error) {
	k, err := m.bit(h)
	if err != nil {
		return 0, err
	}
	if nonCollapsing {
		p0 := m.marginal(k, 0)
		u := m.rng.Float64()
		if u < p0 {
			return 0, nil
		}
		return 1, nil
	}
	outcome, err := m.backend.MeasureQubit(k, m.rng.Float64())
	if err != nil {
		return 0, err
	}
	m.record(h, outcome)
	return outcome, nil
}

// MeasureQubits measures every handle in order; for the collapsing case
// each subsequent measurement sees the state collapsed by the previous
// ones, per spec.md §4.F.
func (m *Engine) MeasureQubits(handles []registry.Handle, nonCollapsing bool) ([]int, error) {
	out := make([]int, 0, len(handles))
	for _, h := range handles {
		v, err := m.MeasureQubit(h, nonCollapsing)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *Engine) record(h registry.Handle, value int) {
	m.mu.Lock()
	m.latest[h] = value
	m.sequence++
	m.history = append(m.history, Outcome{Handle: h, Value: value, Sequence: m.sequence})
	m.totalOutcomes++
	m.valueCounts[value]++
	m.mu.Unlock()
	if m.recorder != nil {
		m.recorder.RecordMeasurement(context.Background(), value)
	}
}

func (m *Engine) marginal(bit int, want int) float64 {
	n := m.backend.NumQubits()
	total := 1 << n
	sum := 0.0
	mask := 1 << bit
	for i := 0; i < total; i++ {
		bitVal := 0
		if i&mask != 0 {
			bitVal = 1
		}
		if bitVal == want {
			sum += m.backend.Probability(i)
		}
	}
	return sum
}

// GetProbability returns the marginal probability that h's bit equals
// v, which must be 0 or 1.
func (m *Engine) GetProbability(h registry.Handle, v int) (float64, error) {
	if v != 0 && v != 1 {
		return 0, core.New(core.KindInvalidArgument, "v must be 0 or 1", nil)
	}
	k, err := m.bit(h)
	if err != nil {
		return 0, err
	}
	return m.marginal(k, v), nil
}

// GetJointProbability sums amplitudes-squared over basis states matching
// every (handle, value) constraint. An empty map returns 1, per
// spec.md §4.F.
func (m *Engine) GetJointProbability(constraints map[registry.Handle]int) (float64, error) {
	if len(constraints) == 0 {
		return 1, nil
	}
	type bitWant struct {
		mask int
		want int
	}
	var bws []bitWant
	for h, v := range constraints {
		if v != 0 && v != 1 {
			return 0, core.New(core.KindInvalidArgument, "constraint value must be 0 or 1", nil)
		}
		k, err := m.bit(h)
		if err != nil {
			return 0, err
		}
		bws = append(bws, bitWant{mask: 1 << k, want: v})
	}
	n := m.backend.NumQubits()
	total := 1 << n
	sum := 0.0
	for i := 0; i < total; i++ {
		matches := true
		for _, bw := range bws {
			bitVal := 0
			if i&bw.mask != 0 {
				bitVal = 1
			}
			if bitVal != bw.want {
				matches = false
				break
			}
		}
		if matches {
			sum += m.backend.Probability(i)
		}
	}
	return sum, nil
}

// MeasureAllQubits collapses every live handle and returns the bit
// string with handles ordered by ascending bit position,
// most-significant-first.
func (m *Engine) MeasureAllQubits() (string, error) {
	handles := m.reg.GetAllQubits()
	bits := make([]byte, len(handles))
	for i, h := range handles {
		v, err := m.MeasureQubit(h, false)
		if err != nil {
			return "", err
		}
		bits[i] = byte('0' + v)
	}
	// handles is already ascending by bit position; MSB-first means
	// reversing that order for display.
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[len(bits)-1-i] = b
	}
	return string(out), nil
}

// Sample builds a probability mass function over the sub-bitstring
// projected onto handles (default: all live handles), skipping entries
// below a 1e-6 threshold, then draws shots i.i.d. samples via cumulative
// distribution and returns a value->count histogram. It never mutates
// state, per spec.md §4.F.
func (m *Engine) Sample(shots int, handles []registry.Handle) (map[string]uint64, error) {
	if handles == nil {
		handles = m.reg.GetAllQubits()
	}
	positions := make([]int, len(handles))
	for i, h := range handles {
		k, err := m.bit(h)
		if err != nil {
			return nil, err
		}
		positions[i] = k
	}

	n := m.backend.NumQubits()
	total := 1 << n
	const threshold = 1e-6

	pmf := make(map[string]float64)
	for i := 0; i < total; i++ {
		p := m.backend.Probability(i)
		if p < threshold {
			continue
		}
		key := projectKey(i, positions)
		pmf[key] += p
	}

	keys := make([]string, 0, len(pmf))
	cum := make([]float64, 0, len(pmf))
	running := 0.0
	for k, p := range pmf {
		running += p
		keys = append(keys, k)
		cum = append(cum, running)
	}

	histogram := make(map[string]uint64, len(keys))
	for s := 0; s < shots; s++ {
		u := m.rng.Float64() * running
		idx := 0
		for idx < len(cum)-1 && cum[idx] < u {
			idx++
		}
		if len(keys) == 0 {
			break
		}
		histogram[keys[idx]]++
	}
	return histogram, nil
}

// projectKey renders the bits at positions, most-significant-first,
// into a "0"/"1" string — the same display convention MeasureAllQubits
// uses.
func projectKey(i int, positions []int) string {
	out := make([]byte, len(positions))
	for idx, pos := range positions {
		bitVal := byte('0')
		if i&(1<<pos) != 0 {
			bitVal = '1'
		}
		out[len(positions)-1-idx] = bitVal
	}
	return string(out)
}

// MeasurementsToInteger packs the stored outcomes for handles, LSB
// first, into an integer. Fails if any handle has no recorded outcome.
func (m *Engine) MeasurementsToInteger(handles []registry.Handle) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out uint64
	for i, h := range handles {
		v, ok := m.latest[h]
		if !ok {
			return 0, core.New(core.KindUnsetAddress, "handle has no recorded outcome", nil)
		}
		if v != 0 {
			out |= 1 << uint(i)
		}
	}
	return out, nil
}

// History returns a copy of the append-only outcome log.
func (m *Engine) History() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Outcome, len(m.history))
	copy(out, m.history)
	return out
}

// TotalOutcomes and ValueCounts expose the measurement metrics spec.md
// §4.F requires as plain counters. The otel/metric counter is fed
// separately, per outcome, by record through the log.Recorder.
func (m *Engine) TotalOutcomes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalOutcomes
}

func (m *Engine) ValueCounts() map[int]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]uint64, len(m.valueCounts))
	for k, v := range m.valueCounts {
		out[k] = v
	}
	return out
}

// Reset clears history and metrics. It does not touch the registry or
// backend.
func (m *Engine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = make(map[registry.Handle]int)
	m.history = nil
	m.sequence = 0
	m.totalOutcomes = 0
	m.valueCounts = make(map[int]uint64)
}
