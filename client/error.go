package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriable classifies a transient transport failure that is
	// eligible for another attempt within the retry budget.
	ErrRetriable = errors.New("retriable transport error")

	// ErrNonRetriable classifies a failure that another attempt
	// cannot fix, such as a client-side 4xx response.
	ErrNonRetriable = errors.New("non-retriable transport error")

	// ErrRetriesExhausted is the terminal error after the last
	// allowed attempt failed with a retriable error.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrNoResponse indicates the call ended before any attempt
	// produced a response, e.g. canceled before the first send.
	ErrNoResponse = errors.New("no response received")
)

// ConfigurationError reports invalid RequestOptions. It is surfaced
// before any attempt is made and is never retried.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid request options: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CancelKind identifies which cancellation scope fired.
type CancelKind int

const (
	// CancelCaller means the caller's context was canceled. Terminal.
	CancelCaller CancelKind = iota
	// CancelTotalTimeout means the whole-call deadline fired. Terminal.
	CancelTotalTimeout
	// CancelConnectTimeout means a single attempt's deadline fired.
	// Retriable; never escapes the executor on its own.
	CancelConnectTimeout
)

func (k CancelKind) String() string {
	switch k {
	case CancelCaller:
		return "caller"
	case CancelTotalTimeout:
		return "total timeout"
	case CancelConnectTimeout:
		return "connect timeout"
	default:
		return "unknown"
	}
}

// CancellationError is returned when a call ends because a
// cancellation scope fired rather than because an attempt failed.
type CancellationError struct {
	Kind CancelKind
	Err  error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("request canceled (%s): %v", e.Kind, e.Err)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// DecodeError reports a body decode failure on a response that was
// otherwise delivered successfully. Decode failures are never retried.
type DecodeError struct {
	Format string // "json", "text", "image"
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s body: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HTTPError is returned by the JSON convenience calls, which fail
// loudly because the caller expects a deserialized value with no room
// for a partial result. StatusCode is 0 when no response was ever
// obtained.
type HTTPError struct {
	StatusCode int64
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
