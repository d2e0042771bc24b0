package stream

import "log/slog"

// defaultChanSize bounds the producer/consumer chunk channel. A full
// channel back-pressures transport reads instead of buffering
// unbounded data behind a slow callback.
const defaultChanSize = 8

// Option defines optional settings for a streaming session.
//
// WithAccumulation retains every delivered chunk in memory so the
// concatenated bytes can be read back after completion.
// WithChunkFunc, WithProgressFunc, WithCompletedFunc and WithErrorFunc
// install the caller's callbacks; all are invoked from a single
// consumer goroutine, in arrival order, never concurrently.
type Option func(*Sink)

func WithAccumulation() Option {
	return func(s *Sink) {
		s.accumulate = true
	}
}

func WithChunkFunc(fn func(chunk []byte)) Option {
	return func(s *Sink) {
		s.chunkFn = fn
	}
}

func WithProgressFunc(fn func(received, total int64)) Option {
	return func(s *Sink) {
		s.progressFn = fn
	}
}

func WithCompletedFunc(fn func()) Option {
	return func(s *Sink) {
		s.completedFn = fn
	}
}

func WithErrorFunc(fn func(err error)) Option {
	return func(s *Sink) {
		s.errorFn = fn
	}
}

// WithChanSize overrides the bounded channel capacity between the
// transport reader and the callback consumer.
func WithChanSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.chanSize = n
		}
	}
}

// WithLogger injects a custom [slog.Logger] into the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}
