// Package registry maps opaque qubit handles to state-vector bit
// positions and tracks which handles have ever participated together in
// a multi-qubit gate (component D of the execution engine).
package registry

import (
	"fmt"
	"sync"

	"github.com/Yogirajpp/qvm/core"
	"github.com/google/uuid"
)

// Handle is the opaque external qubit identifier: a 128-bit random
// token, per spec.md §3.
type Handle = uuid.UUID

// Allocator is the one state-vector capability the registry needs: the
// ability to grow by one qubit. Defined locally (rather than importing
// statevector.Backend wholesale) so registry has no dependency on the
// numerics package at all.
type Allocator interface {
	Allocate() error
}

// Registry is component D: handle<->bit-position bookkeeping plus
// entanglement-set tracking over bit positions.
type Registry struct {
	mu sync.Mutex

	backend Allocator

	positionOf map[Handle]int
	handleAt   map[int]Handle
	nextBit    int

	maxHandles int
	uf         *unionFind
}

func New(backend Allocator, maxHandles int) *Registry {
	return &Registry{
		backend:    backend,
		positionOf: make(map[Handle]int),
		handleAt:   make(map[int]Handle),
		maxHandles: maxHandles,
		uf:         newUnionFind(),
	}
}

// AllocateQubit refuses if the live handle count equals H_max; otherwise
// it asks the backend to double, assigns the next bit position, creates
// a singleton entanglement class, and returns a fresh handle.
func (r *Registry) AllocateQubit() (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.positionOf) >= r.maxHandles {
		return Handle{}, core.New(core.KindCapacityExceeded, fmt.Sprintf("live handle count would exceed maxHandles=%d", r.maxHandles), nil)
	}
	if err := r.backend.Allocate(); err != nil {
		return Handle{}, err
	}
	h := uuid.New()
	pos := r.nextBit
	r.nextBit++
	r.positionOf[h] = pos
	r.handleAt[pos] = h
	r.uf.ensure(pos)
	return h, nil
}

// AllocateQubits allocates n fresh qubits; n must be > 0.
func (r *Registry) AllocateQubits(n int) ([]Handle, error) {
	if n <= 0 {
		return nil, core.New(core.KindInvalidArgument, "n must be > 0", nil)
	}
	out := make([]Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := r.AllocateQubit()
		if err != nil {
			return out, err
		}
		out = append(out, h)
	}
	return out, nil
}

// DeallocateQubit removes h from the registry. If h is unknown, it
// returns found=false rather than an error. If h's entanglement class
// has more than one member, the caller should surface an
// IntegrityWarning (the registry itself only reports the condition via
// the second return value; logging is the caller's concern, per
// spec.md §4.D and §7).
func (r *Registry) DeallocateQubit(h Handle) (found bool, warnEntangled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.positionOf[h]
	if !ok {
		return false, false
	}
	// Positions of already-deallocated handles stay in the union-find
	// table, so only live members count towards the warning.
	live := 0
	for _, p := range r.uf.members(pos, r.nextBit) {
		if _, ok := r.handleAt[p]; ok {
			live++
		}
	}
	warnEntangled = live > 1

	delete(r.positionOf, h)
	delete(r.handleAt, pos)
	return true, warnEntangled
}

// IndexOf returns the bit position of a live handle.
func (r *Registry) IndexOf(h Handle) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positionOf[h]
	if !ok {
		return 0, core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	return pos, nil
}

// GetAllQubits returns every live handle ordered by ascending bit
// position.
func (r *Registry) GetAllQubits() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.positionOf))
	for pos := 0; pos < r.nextBit; pos++ {
		if h, ok := r.handleAt[pos]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (r *Registry) GetQubitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positionOf)
}

// RecordEntanglement merges the entanglement classes of a and b. All
// members of the merged class share it afterwards, observable through
// AreEntangled, per spec.md §4.D.
func (r *Registry) RecordEntanglement(a, b Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pa, ok := r.positionOf[a]
	if !ok {
		return core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	pb, ok := r.positionOf[b]
	if !ok {
		return core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	r.uf.union(pa, pb)
	return nil
}

func (r *Registry) AreEntangled(a, b Handle) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pa, ok := r.positionOf[a]
	if !ok {
		return false, core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	pb, ok := r.positionOf[b]
	if !ok {
		return false, core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	return r.uf.connected(pa, pb), nil
}

// GetEntangledQubits returns every live handle in h's entanglement
// class, excluding h itself.
func (r *Registry) GetEntangledQubits(h Handle) ([]Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positionOf[h]
	if !ok {
		return nil, core.New(core.KindInvalidQubitReference, "unknown qubit handle", nil)
	}
	var out []Handle
	for _, p := range r.uf.members(pos, r.nextBit) {
		if p == pos {
			continue
		}
		if other, ok := r.handleAt[p]; ok {
			out = append(out, other)
		}
	}
	return out, nil
}

// Reset clears handles, entanglement classes and the bit-position
// counter. Bit-position reuse across a Reset is fine: Reset also resets
// the backend's own state vector, so position 0 genuinely means a fresh
// qubit again.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positionOf = make(map[Handle]int)
	r.handleAt = make(map[int]Handle)
	r.nextBit = 0
	r.uf = newUnionFind()
}
