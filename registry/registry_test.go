//go:build unit
// +build unit

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	allocations int
	fail        bool
}

func (f *fakeBackend) Allocate() error {
	if f.fail {
		return assertErr
	}
	f.allocations++
	return nil
}

var assertErr = &capacityErr{}

type capacityErr struct{}

func (c *capacityErr) Error() string { return "backend refuses to grow" }

func TestAllocateAssignsMonotonicPositions(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	h0, err := r.AllocateQubit()
	require.NoError(t, err)
	h1, err := r.AllocateQubit()
	require.NoError(t, err)

	p0, _ := r.IndexOf(h0)
	p1, _ := r.IndexOf(h1)
	assert.Equal(t, 0, p0)
	assert.Equal(t, 1, p1)
}

func TestAllocateQubitsRejectsNonPositive(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	_, err := r.AllocateQubits(0)
	require.Error(t, err)
}

func TestCapacityExceeded(t *testing.T) {
	r := New(&fakeBackend{}, 2)
	_, err := r.AllocateQubit()
	require.NoError(t, err)
	_, err = r.AllocateQubit()
	require.NoError(t, err)
	_, err = r.AllocateQubit()
	require.Error(t, err)
}

func TestDeallocateUnknownHandleIsNotFound(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	found, warn := r.DeallocateQubit(Handle{})
	assert.False(t, found)
	assert.False(t, warn)
}

func TestDeallocateEntangledHandleWarns(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	a, _ := r.AllocateQubit()
	b, _ := r.AllocateQubit()
	require.NoError(t, r.RecordEntanglement(a, b))

	found, warn := r.DeallocateQubit(a)
	assert.True(t, found)
	assert.True(t, warn)
}

func TestEntanglementIsReflexiveSymmetricTransitive(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	a, _ := r.AllocateQubit()
	b, _ := r.AllocateQubit()
	c, _ := r.AllocateQubit()

	ok, _ := r.AreEntangled(a, a)
	assert.True(t, ok, "reflexive")

	require.NoError(t, r.RecordEntanglement(a, b))
	ab, _ := r.AreEntangled(a, b)
	ba, _ := r.AreEntangled(b, a)
	assert.True(t, ab)
	assert.Equal(t, ab, ba, "symmetric")

	require.NoError(t, r.RecordEntanglement(b, c))
	ac, _ := r.AreEntangled(a, c)
	assert.True(t, ac, "transitive")
}

func TestGetEntangledQubitsExcludesSelf(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	a, _ := r.AllocateQubit()
	b, _ := r.AllocateQubit()
	require.NoError(t, r.RecordEntanglement(a, b))

	others, err := r.GetEntangledQubits(a)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, b, others[0])
}

func TestGetAllQubitsOrderedByBitPosition(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	h0, _ := r.AllocateQubit()
	h1, _ := r.AllocateQubit()
	h2, _ := r.AllocateQubit()
	r.DeallocateQubit(h1)

	all := r.GetAllQubits()
	require.Len(t, all, 2)
	assert.Equal(t, h0, all[0])
	assert.Equal(t, h2, all[1])
}

func TestResetClearsEverything(t *testing.T) {
	r := New(&fakeBackend{}, 32)
	a, _ := r.AllocateQubit()
	b, _ := r.AllocateQubit()
	require.NoError(t, r.RecordEntanglement(a, b))
	r.Reset()
	assert.Equal(t, 0, r.GetQubitCount())
	_, err := r.IndexOf(a)
	require.Error(t, err)
}
