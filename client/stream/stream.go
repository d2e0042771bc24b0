package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// chunkSize is the transport-side read granularity.
const chunkSize = 32 * 1024

// Run consumes body until EOF, error or cancellation. The transport
// read loop produces chunks into a bounded channel; Run drains it on
// the calling goroutine, applying accumulation and invoking callbacks
// in arrival order. contentLength is the declared total, or -1.
//
// Run returns nil on a completed transfer. On failure the session is
// marked errored, the error callback has fired exactly once, and the
// underlying read has stopped.
func (s *Sink) Run(ctx context.Context, body io.Reader, contentLength int64) error {
	s.begin(contentLength)

	chunks := make(chan []byte, s.chanSize)
	readErr := make(chan error, 1)

	reader := &contextReader{ctx: ctx, r: body}
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, chunkSize)
			n, err := reader.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-ctx.Done():
					readErr <- ctx.Err()
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for chunk := range chunks {
		if err := s.deliver(chunk); err != nil {
			return s.fail(err)
		}
	}

	select {
	case err := <-readErr:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrStreamCancelled, err)
		}
		return s.fail(err)
	default:
	}

	return s.complete()
}

// begin records the declared total and reports initial progress.
func (s *Sink) begin(contentLength int64) {
	s.mu.Lock()
	s.total = contentLength
	progressFn := s.progressFn
	s.mu.Unlock()

	if progressFn != nil {
		progressFn(0, contentLength)
	}
}

// deliver applies one chunk: counts, optional accumulation, then the
// chunk and progress callbacks. Delivery after a terminal state is
// rejected with ErrSessionClosed.
func (s *Sink) deliver(chunk []byte) error {
	s.mu.Lock()
	if s.completed || s.errored {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.received += int64(len(chunk))
	if s.accumulate {
		s.buf.Write(chunk)
	}
	received, total := s.received, s.total
	chunkFn, progressFn := s.chunkFn, s.progressFn
	s.mu.Unlock()

	if chunkFn != nil {
		chunkFn(chunk)
	}
	if progressFn != nil {
		progressFn(received, total)
	}

	return nil
}

// complete marks the session done and fires the completion callback
// exactly once.
func (s *Sink) complete() error {
	s.mu.Lock()
	if s.completed || s.errored {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.completed = true
	completedFn := s.completedFn
	received, total := s.received, s.total
	s.mu.Unlock()

	if total >= 0 && received != total {
		s.logger.Warn("stream ended short of declared length", "received", received, "total", total)
	}

	if completedFn != nil {
		completedFn()
	}

	return nil
}

// fail marks the session errored and fires the error callback exactly
// once. If the session is already terminal the original state wins
// and err is returned unchanged.
func (s *Sink) fail(err error) error {
	s.mu.Lock()
	if s.completed || s.errored {
		s.mu.Unlock()
		return err
	}
	s.errored = true
	errorFn := s.errorFn
	s.mu.Unlock()

	if errorFn != nil {
		errorFn(err)
	}

	return err
}

// contextReader aborts in-progress reads once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
