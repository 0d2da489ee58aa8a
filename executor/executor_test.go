//go:build unit
// +build unit

package executor

import (
	"testing"

	"github.com/Yogirajpp/qvm/gate"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, qubits int) (*Executor, *mockBackend, *registry.Registry, []registry.Handle) {
	backend := newMockBackend(0)
	reg := registry.New(backend, 32)
	handles, err := reg.AllocateQubits(qubits)
	require.NoError(t, err)
	return New(reg, backend, nil), backend, reg, handles
}

func TestApplyFixedGateDispatchesToSingleQubitKernel(t *testing.T) {
	e, backend, _, h := newTestExecutor(t, 1)
	require.NoError(t, e.ApplyFixedGate("H", h[0]))
	require.Len(t, backend.singleQubitCalls, 1)
	assert.Equal(t, 0, backend.singleQubitCalls[0].bit)
	assert.Equal(t, uint64(1), e.Totals())
	assert.Equal(t, uint64(1), e.ByName()["H"])
}

func TestApplyFixedGateUnknownNameFails(t *testing.T) {
	e, _, _, h := newTestExecutor(t, 1)
	err := e.ApplyFixedGate("NOPE", h[0])
	require.Error(t, err)
}

func TestApplyRotationsBuildMatrixOnTheFly(t *testing.T) {
	e, backend, _, h := newTestExecutor(t, 1)
	require.NoError(t, e.ApplyRX(h[0], 0.5))
	require.NoError(t, e.ApplyRY(h[0], 0.5))
	require.NoError(t, e.ApplyRZ(h[0], 0.5))
	require.NoError(t, e.ApplyPHASE(h[0], 0.5))
	require.Len(t, backend.singleQubitCalls, 4)
}

func TestApplyCNOTRecordsEntanglementAndUsesFastPath(t *testing.T) {
	e, backend, reg, h := newTestExecutor(t, 2)
	require.NoError(t, e.ApplyCNOT(h[0], h[1]))
	require.Len(t, backend.cnotCalls, 1)
	assert.Equal(t, pairCall{0, 1}, backend.cnotCalls[0])
	ok, err := reg.AreEntangled(h[0], h[1])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplyCZUsesGenericTwoQubitKernel(t *testing.T) {
	e, backend, _, h := newTestExecutor(t, 2)
	require.NoError(t, e.ApplyCZ(h[0], h[1]))
	require.Len(t, backend.twoQubitCalls, 1)
	assert.Equal(t, gate.CZ, backend.twoQubitCalls[0].u)
}

func TestApplySWAPUsesDedicatedFastPath(t *testing.T) {
	e, backend, _, h := newTestExecutor(t, 2)
	require.NoError(t, e.ApplySWAP(h[0], h[1]))
	require.Len(t, backend.swapCalls, 1)
}

func TestApplyControlledUsesDedicatedFastPath(t *testing.T) {
	e, backend, reg, h := newTestExecutor(t, 2)
	require.NoError(t, e.ApplyControlled(h[0], h[1], gate.X))
	require.Len(t, backend.controlledSingleQubitCalls, 1)
	ok, _ := reg.AreEntangled(h[0], h[1])
	assert.True(t, ok)
}

func TestApplyToffoliBypassesGenericKernel(t *testing.T) {
	e, backend, reg, h := newTestExecutor(t, 3)
	require.NoError(t, e.ApplyToffoli(h[0], h[1], h[2]))
	require.Len(t, backend.toffoliCalls, 1)
	require.Empty(t, backend.twoQubitCalls)
	ok, _ := reg.AreEntangled(h[0], h[2])
	assert.True(t, ok)
}

func TestApplyFredkinBypassesGenericKernel(t *testing.T) {
	e, backend, _, h := newTestExecutor(t, 3)
	require.NoError(t, e.ApplyFredkin(h[0], h[1], h[2]))
	require.Len(t, backend.fredkinCalls, 1)
	require.Empty(t, backend.twoQubitCalls)
}

func TestSameHandleTwiceRejected(t *testing.T) {
	e, _, _, h := newTestExecutor(t, 1)
	err := e.ApplyCNOT(h[0], h[0])
	require.Error(t, err)
}

func TestResetClearsCounters(t *testing.T) {
	e, _, _, h := newTestExecutor(t, 1)
	require.NoError(t, e.ApplyFixedGate("X", h[0]))
	e.Reset()
	assert.Equal(t, uint64(0), e.Totals())
	assert.Empty(t, e.ByName())
}
