//go:build unit
// +build unit

package interpreter

import (
	"testing"

	"github.com/Yogirajpp/qvm/executor"
	"github.com/Yogirajpp/qvm/measurement"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/Yogirajpp/qvm/registry"
	"github.com/Yogirajpp/qvm/statevector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroRand struct{ v float64 }

func (z zeroRand) Float64() float64 { return z.v }

func newTestInterpreter(t *testing.T) (*Interpreter, *statevector.Dense) {
	backend := statevector.New(32, 1e-10, false)
	reg := registry.New(backend, 32)
	exec := executor.New(reg, backend, nil)
	meas := measurement.New(reg, backend, zeroRand{v: 0}, nil)
	return New(exec, meas, reg, nil), backend
}

func TestAllocAndFixedGate(t *testing.T) {
	interp, backend := newTestInterpreter(t)
	img := qbc.Image{
		Qubits: 1,
		Instructions: []qbc.Instruction{
			{Op: qbc.OpAlloc, Q1: 0},
			{Op: qbc.OpH, Q1: 0},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success, result.ErrorMessage)
	assert.InDelta(t, 0.5, backend.Probability(0), 1e-9)
	assert.Equal(t, uint64(3), result.Metrics.Instructions)
}

func TestMeasureWritesClassicalMemory(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpAlloc, Q1: 0},
			{Op: qbc.OpMEASURE, Q1: 0, Dst: 5},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, int32(0), result.ClassicalMemory[5])
}

func TestClassicalArithmetic(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpSTORE, Addr: 0, Value: 10},
			{Op: qbc.OpSTORE, Addr: 1, Value: 3},
			{Op: qbc.OpADD, A: 0, B: 1, R: 2},
			{Op: qbc.OpDIV, A: 0, B: 1, R: 3},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, int32(13), result.ClassicalMemory[2])
	assert.Equal(t, int32(3), result.ClassicalMemory[3])
}

func TestDivideByZeroAborts(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpSTORE, Addr: 0, Value: 10},
			{Op: qbc.OpSTORE, Addr: 1, Value: 0},
			{Op: qbc.OpDIV, A: 0, B: 1, R: 2},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestJMPSkipsForward(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	// JMP is 5 bytes at offset 0, STORE is 6 bytes at offset 5, END is at
	// offset 11 -> jumping to 11 skips the STORE entirely.
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpJMP, Target: 11},
			{Op: qbc.OpSTORE, Addr: 0, Value: 999}, // skipped
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, int32(0), result.ClassicalMemory[0])
}

func TestCJMPTakesOnNonzeroCondition(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	// STORE#1 (offset 0, 6 bytes), CJMP (offset 6, 6 bytes), STORE#2
	// (offset 12, 6 bytes, skipped), STORE#3 (offset 18, landed on).
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpSTORE, Addr: 0, Value: 1},
			{Op: qbc.OpCJMP, Cond: 0, Target: 18},
			{Op: qbc.OpSTORE, Addr: 1, Value: 111}, // skipped
			{Op: qbc.OpSTORE, Addr: 2, Value: 222}, // landed on
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, int32(0), result.ClassicalMemory[1])
	assert.Equal(t, int32(222), result.ClassicalMemory[2])
}

func TestCJMPOnUnsetConditionFails(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpCJMP, Cond: 9, Target: 0},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{})
	require.False(t, result.Success)
}

func TestMaxInstructionsStopsEarly(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpSTORE, Addr: 0, Value: 1},
			{Op: qbc.OpSTORE, Addr: 1, Value: 2},
			{Op: qbc.OpSTORE, Addr: 2, Value: 3},
			{Op: qbc.OpEND},
		},
	}
	result := interp.ExecuteQBC(img, Options{MaxInstructions: 2})
	require.True(t, result.Success)
	assert.True(t, result.StoppedOnInstructionLimit)
	assert.Equal(t, uint64(2), result.Metrics.Instructions)
}

func TestHooksFire(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	var before, after int
	interp.SetHooks(Hooks{
		BeforeInstruction: func(pc int, in qbc.Instruction) { before++ },
		AfterInstruction:  func(pc int, in qbc.Instruction, err error) { after++ },
	})
	img := qbc.Image{Instructions: []qbc.Instruction{{Op: qbc.OpEND}}}
	result := interp.ExecuteQBC(img, Options{})
	require.True(t, result.Success)
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, after)
}

func TestOnErrorFires(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	var gotErr error
	interp.SetHooks(Hooks{OnError: func(err error) { gotErr = err }})
	img := qbc.Image{Instructions: []qbc.Instruction{{Op: qbc.OpLOAD, Src: 0, Dst: 1}}}
	result := interp.ExecuteQBC(img, Options{})
	require.False(t, result.Success)
	require.Error(t, gotErr)
}

func TestPreScanFindsJumpTargets(t *testing.T) {
	img := qbc.Image{
		Instructions: []qbc.Instruction{
			{Op: qbc.OpJMP, Target: 5},
			{Op: qbc.OpSTORE, Addr: 0, Value: 1},
			{Op: qbc.OpEND},
		},
	}
	raw, err := qbc.Encode(img)
	require.NoError(t, err)
	const headerSize = 20
	targets, err := PreScan(raw[headerSize:])
	require.NoError(t, err)
	_, ok := targets[5]
	assert.True(t, ok)
}
