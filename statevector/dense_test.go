//go:build unit
// +build unit

package statevector

import (
	"math"
	"testing"

	"github.com/Yogirajpp/qvm/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDense(t *testing.T, qubits int) *Dense {
	d := New(32, 1e-10, false)
	for i := 0; i < qubits; i++ {
		require.NoError(t, d.Allocate())
	}
	return d
}

func totalProbability(d *Dense) float64 {
	sum := 0.0
	for i := 0; i < d.Len(); i++ {
		sum += d.Probability(i)
	}
	return sum
}

func TestAllocateStartsAtZeroState(t *testing.T) {
	d := newTestDense(t, 3)
	assert.Equal(t, 8, d.Len())
	assert.InDelta(t, 1.0, d.Probability(0), 1e-12)
	for i := 1; i < 8; i++ {
		assert.InDelta(t, 0.0, d.Probability(i), 1e-12)
	}
}

func TestHadamardSingleQubit(t *testing.T) {
	d := newTestDense(t, 1)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	assert.InDelta(t, 0.5, d.Probability(0), 1e-12)
	assert.InDelta(t, 0.5, d.Probability(1), 1e-12)
}

func TestXTwiceIsIdentity(t *testing.T) {
	d := newTestDense(t, 1)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.X))
	require.NoError(t, d.ApplySingleQubitGate(0, gate.X))
	assert.InDelta(t, 1.0, d.Probability(0), 1e-12)
}

func TestHHIsIdentity(t *testing.T) {
	d := newTestDense(t, 1)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	assert.InDelta(t, 1.0, d.Probability(0), 1e-12)
}

func TestRXInverse(t *testing.T) {
	d := newTestDense(t, 1)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.RX(0.73)))
	require.NoError(t, d.ApplySingleQubitGate(0, gate.RX(-0.73)))
	assert.InDelta(t, 1.0, d.Probability(0), 1e-12)
}

func TestBellState(t *testing.T) {
	d := newTestDense(t, 2)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, d.ApplyCNOT(0, 1))
	assert.InDelta(t, 0.5, d.Probability(0), 1e-12)
	assert.InDelta(t, 0.0, d.Probability(1), 1e-12)
	assert.InDelta(t, 0.0, d.Probability(2), 1e-12)
	assert.InDelta(t, 0.5, d.Probability(3), 1e-12)
}

func TestCNOTFastPathMatchesGenericKernel(t *testing.T) {
	fast := newTestDense(t, 2)
	require.NoError(t, fast.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, fast.ApplySingleQubitGate(1, gate.RY(0.4)))
	require.NoError(t, fast.ApplyCNOT(0, 1))

	generic := newTestDense(t, 2)
	require.NoError(t, generic.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, generic.ApplySingleQubitGate(1, gate.RY(0.4)))
	require.NoError(t, generic.ApplyTwoQubitGate(0, 1, gate.CNOT))

	for i := 0; i < fast.Len(); i++ {
		assert.InDelta(t, fast.Probability(i), generic.Probability(i), 1e-12)
	}
}

func TestSwapHalvesWorkButIsComplete(t *testing.T) {
	d := newTestDense(t, 2)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.X)) // |01> with qubit0=1 -> index 1
	require.NoError(t, d.ApplySWAP(0, 1))
	assert.InDelta(t, 1.0, d.Probability(2), 1e-9)
}

func TestToffoliFlipsOnlyWhenBothControlsSet(t *testing.T) {
	d := newTestDense(t, 3)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.X))
	require.NoError(t, d.ApplySingleQubitGate(1, gate.X))
	require.NoError(t, d.ApplyToffoli(0, 1, 2))
	// bits: q0=1,q1=1,q2=1 -> index 7
	assert.InDelta(t, 1.0, d.Probability(7), 1e-9)
}

func TestControlledSingleQubitGateMatchesManualCNOT(t *testing.T) {
	fast := newTestDense(t, 2)
	require.NoError(t, fast.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, fast.ApplyControlledSingleQubitGate(0, 1, gate.X))

	reference := newTestDense(t, 2)
	require.NoError(t, reference.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, reference.ApplyCNOT(0, 1))

	for i := 0; i < fast.Len(); i++ {
		assert.InDelta(t, reference.Probability(i), fast.Probability(i), 1e-12)
	}
}

func TestControlledSingleQubitGateLeavesControlZeroUntouched(t *testing.T) {
	d := newTestDense(t, 2)
	require.NoError(t, d.ApplyControlledSingleQubitGate(0, 1, gate.X))
	assert.InDelta(t, 1.0, d.Probability(0), 1e-12)
}

func TestControlledSingleQubitGateRejectsSameBit(t *testing.T) {
	d := newTestDense(t, 1)
	err := d.ApplyControlledSingleQubitGate(0, 0, gate.X)
	require.Error(t, err)
}

func TestNormalizePreservesAlreadyNormalized(t *testing.T) {
	d := newTestDense(t, 1)
	d.Normalize()
	assert.InDelta(t, 1.0, totalProbability(d), 1e-12)
}

func TestMeasureQubitCollapsesAndRenormalizes(t *testing.T) {
	d := newTestDense(t, 1)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	outcome, err := d.MeasureQubit(0, 0.1) // u < 0.5 -> outcome 0
	require.NoError(t, err)
	assert.Equal(t, 0, outcome)
	assert.InDelta(t, 1.0, d.Probability(0), 1e-9)
	assert.InDelta(t, 0.0, d.Probability(1), 1e-9)
}

func TestCapacityExceeded(t *testing.T) {
	d := New(2, 1e-10, false)
	require.NoError(t, d.Allocate())
	require.NoError(t, d.Allocate())
	err := d.Allocate()
	require.Error(t, err)
	assert.Equal(t, 4, d.Len())
}

func TestProbabilitySumIsOne(t *testing.T) {
	d := newTestDense(t, 3)
	require.NoError(t, d.ApplySingleQubitGate(0, gate.H))
	require.NoError(t, d.ApplySingleQubitGate(1, gate.RY(1.1)))
	require.NoError(t, d.ApplyCNOT(0, 2))
	assert.InDelta(t, 1.0, totalProbability(d), 1e-9)
}

func TestSnapshotIsACopy(t *testing.T) {
	d := newTestDense(t, 1)
	snap := d.Snapshot()
	require.NoError(t, d.ApplySingleQubitGate(0, gate.X))
	assert.InDelta(t, 1.0, snap[0].MagnitudeSquared(), 1e-12)
}

func TestSinAndCosSanity(t *testing.T) {
	// sanity check that gate.RY builds a real rotation, not a stray
	// dependency on math/cmplx semantics we didn't intend.
	m := gate.RY(math.Pi)
	assert.InDelta(t, 0, m[0][0].Re, 1e-9)
	assert.InDelta(t, 1, m[1][0].Re, 1e-9)
}
