package client

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/glasswing-io/fetchr/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*buildOpts) error

type buildOpts struct {
	client            *http.Client
	rt                http.RoundTripper
	defaults          *RequestOptions
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
	headers           map[string]string
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(o *buildOpts) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *buildOpts) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithRequestOptions replaces the shared default [RequestOptions]
// applied to calls that supply none of their own.
func WithRequestOptions(opts RequestOptions) Option {
	return func(o *buildOpts) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		cpy := opts.Clone()
		o.defaults = &cpy
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *buildOpts) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given
// requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *buildOpts) error {
		if rps <= 0 || burst <= 0 {
			return errors.New("rps and burst must be greater than zero")
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *buildOpts) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOpts) error {
		o.logger = logger
		return nil
	}
}

// WithTracer injects an OpenTelemetry tracer. Calls produce one span
// each with per-attempt events. A no-op tracer is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *buildOpts) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithHeader seeds the client's header registry. Registered headers
// apply to every call until removed and can be managed later via
// [Client.Headers].
func WithHeader(name, value string) Option {
	return func(o *buildOpts) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[name] = value
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	if cpy.Header.Get("User-Agent") == "" {
		cpy.Header.Set("User-Agent", ua.value)
	}
	return ua.base.RoundTrip(cpy)
}
