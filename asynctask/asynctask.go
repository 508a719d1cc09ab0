// Package asynctask wraps github.com/Carmen-Shannon/automation's
// DynamicWorkerPool for the async pipeline-compilation path of spec §5,
// §9: shader compilation and pipeline creation can take long enough
// that a caller issuing many kernel calls in a row shouldn't block the
// submitting goroutine on each one. The pool and its reuse-across-calls
// model mirrors engine/scene/scene.go's per-frame compute pool, which
// keeps one DynamicWorkerPool alive for the process instead of spawning
// workers per task.
package asynctask

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Pool is a long-lived worker pool sized once at runtime construction,
// matching the teacher's one-pool-per-scene lifetime.
type Pool struct {
	inner  worker.DynamicWorkerPool
	nextID int
}

// NewPool builds a Pool with workers goroutines, a task queue of
// capacity queueSize, and idleTimeout before an unused worker exits.
func NewPool(workers, queueSize int, idleTimeout time.Duration) *Pool {
	return &Pool{inner: worker.NewDynamicWorkerPool(workers, queueSize, idleTimeout)}
}

// Future is a single asynchronous compilation result, resolved exactly
// once. Callers block on Wait at the point they actually need the
// pipeline, rather than immediately after submitting.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Resolved returns an already-complete Future wrapping a value computed
// synchronously, for the cache-hit path where no pool submission is
// needed.
func Resolved[T any](val T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.val = val
	close(f.done)
	return f
}

// Wait blocks until the future's task has run and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Submit runs fn on the pool and returns a Future for its result. A
// per-task WaitGroup-free design is used instead: each Future owns its
// own done channel, so callers can wait on an individual future without
// a barrier across every in-flight task, unlike the teacher's
// per-frame wg.Wait() which blocks on the whole batch.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	id := p.nextID
	p.nextID++
	p.inner.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer close(f.done)
			val, err := fn()
			f.val = val
			f.err = err
			return val, err
		},
	})
	return f
}
