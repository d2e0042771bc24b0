package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// maxErrBodySize caps the amount of response body retained when
// building an error for a failed attempt. This prevents unbounded
// memory usage when a large response arrives with an error status.
const maxErrBodySize = 4 << 10 // 4KB

// timeout/network substrings used to classify opaque transport error
// strings as retriable.
var transientErrorMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"EOF",
}

// Envelope is the normalized, transport-agnostic result of one call.
// Success reports transport-level delivery; the HTTP status code is
// judged separately via [Envelope.IsSuccessStatusCode]. Err is empty
// only when the call did not fail.
type Envelope struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte

	// Success is transport-level: a response was delivered, whatever
	// its status code.
	Success  bool
	Err      string
	Canceled bool
	Cached   bool
	Elapsed  time.Duration

	text *string
}

// newEnvelope normalizes a raw *http.Response whose body has already
// been read.
func newEnvelope(resp *http.Response, body []byte, elapsed time.Duration) *Envelope {
	return &Envelope{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header.Clone(),
		Body:       body,
		Success:    true,
		Elapsed:    elapsed,
	}
}

// errorEnvelope synthesizes an envelope for an attempt that produced
// no response.
func errorEnvelope(err error, elapsed time.Duration) *Envelope {
	return &Envelope{
		Headers: make(http.Header),
		Err:     err.Error(),
		Elapsed: elapsed,
	}
}

// Text lazily decodes the body as UTF-8 text and caches the result.
func (e *Envelope) Text() string {
	if e.text == nil {
		s := string(e.Body)
		e.text = &s
	}
	return *e.text
}

// GetHeader returns the first value for a case-insensitive header
// name, or "".
func (e *Envelope) GetHeader(name string) string {
	return e.Headers.Get(name)
}

// GetHeaders returns all values for a case-insensitive header name.
func (e *Envelope) GetHeaders(name string) []string {
	return e.Headers.Values(name)
}

// HasHeader reports whether the header is present, matched
// case-insensitively.
func (e *Envelope) HasHeader(name string) bool {
	return len(e.Headers.Values(name)) > 0
}

// IsSuccessStatusCode reports a 2xx status.
func (e *Envelope) IsSuccessStatusCode() bool {
	return e.StatusCode >= 200 && e.StatusCode <= 299
}

// IsClientError reports a 4xx status.
func (e *Envelope) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode <= 499
}

// IsServerError reports a 5xx status.
func (e *Envelope) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// IsTimeout reports whether the error text indicates a timeout.
func (e *Envelope) IsTimeout() bool {
	if e.Err == "" {
		return false
	}
	low := strings.ToLower(e.Err)
	return strings.Contains(low, "timeout") ||
		strings.Contains(low, "timed out") ||
		strings.Contains(low, "deadline exceeded")
}

// IsNetworkError reports whether the error text matches a known
// transport-level failure pattern.
func (e *Envelope) IsNetworkError() bool {
	if e.Err == "" {
		return false
	}
	return matchesTransient(e.Err)
}

// errSummary builds the error text for a failed status, retaining at
// most maxErrBodySize bytes of the body.
func (e *Envelope) errSummary() string {
	body := e.Body
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return fmt.Sprintf("server returned %s: %s", e.Status, text)
	}
	return fmt.Sprintf("server returned %s", e.Status)
}

func matchesTransient(errText string) bool {
	low := strings.ToLower(errText)
	for _, marker := range transientErrorMarkers {
		if strings.Contains(low, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
