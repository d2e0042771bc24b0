package download

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQueueShutdown rejects work enqueued after Shutdown.
var ErrQueueShutdown = errors.New("download queue shut down")

// WorkFunc is the signature for one queued download.
type WorkFunc func(ctx context.Context) error

// Queue manages a batch of concurrent downloads under a semaphore.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
}

// NewQueue creates a Queue with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewQueue(maxConcurrent int) *Queue {
	q := &Queue{}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	return q
}

// Wait blocks until all queued downloads complete and returns their
// errors joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents queued-but-unstarted work from executing.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// Start launches fn in a goroutine managed by the queue and returns a
// Result for tracking the individual download.
func (q *Queue) Start(ctx context.Context, fn WorkFunc) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	q.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(r.done)
			q.wg.Done()
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() {
					<-q.sem
				}()
			case <-ctx.Done():
				r.err = ctx.Err()
				q.recordErr(r.err)
				return
			}
		}

		if q.shutdown.Load() {
			r.err = ErrQueueShutdown
			q.recordErr(r.err)
			return
		}

		r.err = fn(ctx)
		if r.err != nil {
			q.recordErr(r.err)
		}
	}()

	return r
}

func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}

// Result represents an in-flight or completed queued download.
type Result struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Done returns a channel closed when the download finishes.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Err blocks until the download finishes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel aborts the download if it is still running.
func (r *Result) Cancel() {
	r.cancel()
}
