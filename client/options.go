package client

import (
	"maps"
	"time"
)

// RequestOptions holds the per-call configuration for a single logical
// request: timeout budget, retry policy, headers and caching behavior.
// The zero value is not usable; start from [DefaultOptions] and chain
// the With* setters, which return a modified copy.
type RequestOptions struct {
	// TotalTimeout bounds the whole call: all attempts plus all
	// backoff delays combined.
	TotalTimeout time.Duration `validate:"gt=0,gtefield=ConnectTimeout"`

	// ConnectTimeout bounds a single attempt. It is clamped to the
	// remaining total time before each attempt starts.
	ConnectTimeout time.Duration `validate:"gt=0"`

	// MaxRetries is the number of re-attempts after the first.
	// Zero means exactly one attempt.
	MaxRetries int `validate:"gte=0"`

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration `validate:"gte=0"`

	// ExponentialBackoff doubles the delay after every failed
	// attempt, capped at 30 seconds. When false the delay is fixed.
	ExponentialBackoff bool

	// StreamingTimeout extends the total-timeout deadline over the
	// body-consumption phase of streaming calls. When false (the
	// default) a long download is bounded only per attempt, so large
	// transfers are not killed mid-stream.
	StreamingTimeout bool

	// DisableCache adds cache-busting headers and a unique query
	// parameter to every request.
	DisableCache bool

	// Headers are per-call custom headers. They override registry
	// headers and are overridden by explicit call headers, matched
	// case-insensitively.
	Headers map[string]string

	// UserAgent overrides the client-wide User-Agent when non-empty.
	UserAgent string
}

// DefaultOptions returns the shared defaults: 60s total, 50s per
// attempt, 3 retries with a fixed 1s delay, cache disabled.
func DefaultOptions() RequestOptions {
	return RequestOptions{
		TotalTimeout:   60 * time.Second,
		ConnectTimeout: 50 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		DisableCache:   true,
	}
}

// Clone returns a copy with an independently mutable header map.
func (o RequestOptions) Clone() RequestOptions {
	cpy := o
	if o.Headers != nil {
		cpy.Headers = maps.Clone(o.Headers)
	}
	return cpy
}

// Validate checks the option invariants, returning a
// *ConfigurationError describing every violated field. It is called
// by the executor before the first attempt.
func (o RequestOptions) Validate() error {
	if err := validateStruct(o); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}

// WithTotalTimeout returns a copy with the whole-call budget set.
func (o RequestOptions) WithTotalTimeout(d time.Duration) RequestOptions {
	o.TotalTimeout = d
	return o
}

// WithConnectTimeout returns a copy with the per-attempt budget set.
func (o RequestOptions) WithConnectTimeout(d time.Duration) RequestOptions {
	o.ConnectTimeout = d
	return o
}

// WithMaxRetries returns a copy with the retry budget set.
func (o RequestOptions) WithMaxRetries(n int) RequestOptions {
	o.MaxRetries = n
	return o
}

// WithRetryDelay returns a copy with the base backoff delay set.
func (o RequestOptions) WithRetryDelay(d time.Duration) RequestOptions {
	o.RetryDelay = d
	return o
}

// WithExponentialBackoff returns a copy using doubling backoff.
func (o RequestOptions) WithExponentialBackoff() RequestOptions {
	o.ExponentialBackoff = true
	return o
}

// WithStreamingTimeout returns a copy whose total timeout also bounds
// streaming transfers.
func (o RequestOptions) WithStreamingTimeout() RequestOptions {
	o.StreamingTimeout = true
	return o
}

// WithCache returns a copy that allows intermediary caching.
func (o RequestOptions) WithCache() RequestOptions {
	o.DisableCache = false
	return o
}

// WithHeader returns a copy carrying the given custom header. The
// header map is copied first, so the receiver is never mutated.
func (o RequestOptions) WithHeader(name, value string) RequestOptions {
	cpy := o.Clone()
	if cpy.Headers == nil {
		cpy.Headers = make(map[string]string, 1)
	}
	cpy.Headers[name] = value
	return cpy
}

// WithUserAgent returns a copy with a per-call User-Agent override.
func (o RequestOptions) WithUserAgent(ua string) RequestOptions {
	o.UserAgent = ua
	return o
}
