// Package parallel runs independent reachability queries concurrently.
// Saturation itself is sequential; the pool is used to solve separate
// products, for example one per engine, at the same time.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WorkerPool manages a fixed set of goroutines that execute submitted
// tasks. Submission blocks once the buffer is full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}
	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}
	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues task for execution. It blocks while the queue is full.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the workers after their current task. Queued tasks that
// have not started are dropped. The task channel stays open so that a
// racing Submit fails with ErrPoolShutdown instead of panicking.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Job is one independent unit of work for Run.
type Job[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// Run executes jobs on wp and waits for all of them. Results are returned
// in job order. The first failing job cancels the context seen by the
// others, and its error is returned.
func Run[T any](ctx context.Context, wp *WorkerPool, jobs ...Job[T]) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]T, len(jobs))
	for i, job := range jobs {
		g.Go(func() error {
			done := make(chan outcome[T], 1)
			err := wp.Submit(ctx, func() {
				v, err := job(ctx)
				done <- outcome[T]{v, err}
			})
			if err != nil {
				return err
			}
			select {
			case out := <-done:
				results[i] = out.value
				return out.err
			case <-wp.shutdownChan:
				return ErrPoolShutdown
			}
		})
	}
	err := g.Wait()
	return results, err
}
