// Package scheduler is the ambient batch runner (component K): it fans
// a set of QBC programs out across a fixed pool of VM-sized workers,
// each running its own single-threaded interpreter, per spec.md §5's
// "two VMs are independent" rule. Work items flow through a
// goconcurrentqueue.FIFO, the same queue library the teacher uses for
// its own job queue, and worker lifecycles are managed with
// oklog/run.Group so a single worker's panic-free error still brings
// the whole batch down cleanly.
package scheduler

import (
	"context"
	"sync"

	conq "github.com/enriquebris/goconcurrentqueue"
	"github.com/Yogirajpp/qvm/interpreter"
	"github.com/Yogirajpp/qvm/qbc"
	"github.com/oklog/run"
	"go.uber.org/zap"
)

// Runner is the one capability a worker needs: execute one QBC program
// to completion. *vm.VM satisfies this directly.
type Runner interface {
	ExecuteQBC(img qbc.Image, opts interpreter.Options) interpreter.Result
}

// workItem pairs a program with its position in the caller's input
// slice, so results can be written back in the original order even
// though workers drain the queue out of order.
type workItem struct {
	index int
	image qbc.Image
}

// Run executes programs across the given runners (one goroutine per
// runner) and returns results ordered to match programs. len(runners)
// determines the worker count; pass a single runner to execute
// sequentially on one VM.
func Run(ctx context.Context, runners []Runner, programs []qbc.Image, opts interpreter.Options) []interpreter.Result {
	results := make([]interpreter.Result, len(programs))
	if len(runners) == 0 || len(programs) == 0 {
		return results
	}

	queue := conq.NewFIFO()
	for i, img := range programs {
		_ = queue.Enqueue(workItem{index: i, image: img})
	}

	var mu sync.Mutex
	var g run.Group
	for workerIdx, r := range runners {
		runner := r
		workerID := workerIdx
		workerCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			for {
				// check for cancellation before taking an item, so an
				// item once dequeued is always executed
				select {
				case <-workerCtx.Done():
					return workerCtx.Err()
				default:
				}
				item, err := queue.Dequeue()
				if err != nil {
					return nil // queue drained
				}
				wi := item.(workItem)
				zap.L().Debug("scheduler worker executing program",
					zap.Int("worker", workerID), zap.Int("index", wi.index))
				res := runner.ExecuteQBC(wi.image, opts)
				mu.Lock()
				results[wi.index] = res
				mu.Unlock()
			}
		}, func(error) {
			cancel()
		})
	}

	_ = g.Run()
	return results
}
