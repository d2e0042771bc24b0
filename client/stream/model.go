package stream

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrSessionClosed rejects chunk delivery after the session has
	// completed or errored.
	ErrSessionClosed = errors.New("streaming session closed")

	// ErrStreamCancelled indicates the transfer was cancelled via
	// context mid-stream.
	ErrStreamCancelled = errors.New("stream cancelled")
)

// Sink is one streaming session: it receives chunks as they arrive,
// tracks byte counts against the declared content length, optionally
// accumulates, and invokes the caller's callbacks. A Sink is used for
// a single call and discarded after completion or error.
type Sink struct {
	mu        sync.Mutex
	received  int64
	total     int64 // -1 until the content length is known
	completed bool
	errored   bool
	buf       bytes.Buffer

	accumulate  bool
	chanSize    int
	chunkFn     func([]byte)
	progressFn  func(received, total int64)
	completedFn func()
	errorFn     func(error)
	logger      *slog.Logger
}

// New creates a Sink with the given options.
func New(optFns ...Option) *Sink {
	s := &Sink{
		total:    -1,
		chanSize: defaultChanSize,
		logger:   slog.Default(),
	}
	for _, opt := range optFns {
		opt(s)
	}
	return s
}

// Received returns the number of bytes delivered so far.
func (s *Sink) Received() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// Total returns the declared content length, or -1 when unknown.
func (s *Sink) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Completed reports whether the session finished successfully.
func (s *Sink) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Errored reports whether the session ended with an error.
func (s *Sink) Errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored
}

// Data returns the accumulated bytes, or nil when accumulation is
// disabled. Streaming callers with accumulation off must consume data
// through the chunk callback instead.
func (s *Sink) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accumulate {
		return nil
	}
	return s.buf.Bytes()
}

// Text returns the accumulated bytes decoded as text, or "" when
// accumulation is disabled.
func (s *Sink) Text() string {
	return string(s.Data())
}
