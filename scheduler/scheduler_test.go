//go:build unit
// +build unit

package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/Yogirajpp/qvm/interpreter"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu    sync.Mutex
	calls int
}

func (s *stubRunner) ExecuteQBC(img qbc.Image, opts interpreter.Options) interpreter.Result {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return interpreter.Result{Success: true, Metrics: interpreter.Metrics{Instructions: uint64(len(img.Instructions))}}
}

func program(n int) qbc.Image {
	instrs := make([]qbc.Instruction, n)
	for i := range instrs {
		instrs[i] = qbc.Instruction{Op: qbc.OpEND}
	}
	return qbc.Image{Instructions: instrs}
}

func TestRunDistributesAcrossWorkers(t *testing.T) {
	runners := []Runner{&stubRunner{}, &stubRunner{}}
	programs := []qbc.Image{program(1), program(2), program(3), program(4)}

	results := Run(context.Background(), runners, programs, interpreter.Options{})
	require.Len(t, results, 4)
	for i, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, uint64(len(programs[i].Instructions)), r.Metrics.Instructions)
	}
}

func TestRunWithNoRunnersReturnsEmptyResults(t *testing.T) {
	results := Run(context.Background(), nil, []qbc.Image{program(1)}, interpreter.Options{})
	require.Len(t, results, 1)
	assert.Equal(t, interpreter.Result{}, results[0])
}

func TestRunWithNoProgramsReturnsEmptySlice(t *testing.T) {
	runners := []Runner{&stubRunner{}}
	results := Run(context.Background(), runners, nil, interpreter.Options{})
	assert.Empty(t, results)
}

func TestRunSequentialSingleRunner(t *testing.T) {
	r := &stubRunner{}
	results := Run(context.Background(), []Runner{r}, []qbc.Image{program(1), program(1)}, interpreter.Options{})
	require.Len(t, results, 2)
	assert.Equal(t, 2, r.calls)
}
