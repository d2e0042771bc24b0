package client

import (
	"errors"

	"github.com/glasswing-io/fetchr/client/stream"
)

// CallOption is a functional option for a single call on the facade.
type CallOption func(*callOpts) error

type callOpts struct {
	opts    *RequestOptions
	headers map[string]string
	query   map[string]string

	jsonBody       any
	formBody       map[string]string
	rawBody        []byte
	rawContentType string

	onProgress func(fraction float64)

	sink       *stream.Sink
	streamOpts []stream.Option
}

// WithCallOptions overrides the client's default [RequestOptions] for
// this call only.
func WithCallOptions(opts RequestOptions) CallOption {
	return func(c *callOpts) error {
		cpy := opts.Clone()
		c.opts = &cpy
		return nil
	}
}

// WithCallHeader sets an explicit header on this call. Explicit
// headers are the final tier: they override both registry headers and
// option-level headers by case-insensitive name.
func WithCallHeader(name, value string) CallOption {
	return func(c *callOpts) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[name] = value
		return nil
	}
}

// WithCallHeaders sets several explicit headers at once, equivalent
// to one [WithCallHeader] per entry.
func WithCallHeaders(headers map[string]string) CallOption {
	return func(c *callOpts) error {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for name, value := range headers {
			if name == "" {
				return errors.New("header name must not be empty")
			}
			c.headers[name] = value
		}
		return nil
	}
}

// WithQueryParams appends query parameters to the call URL.
func WithQueryParams(params map[string]string) CallOption {
	return func(c *callOpts) error {
		c.query = params
		return nil
	}
}

// WithForm sends the body form-encoded instead of as JSON.
func WithForm(form map[string]string) CallOption {
	return func(c *callOpts) error {
		if c.jsonBody != nil || c.rawBody != nil {
			return errors.New("only one body kind may be set")
		}
		c.formBody = form
		return nil
	}
}

// WithBytesBody sends raw bytes with an explicit content type.
func WithBytesBody(body []byte, contentType string) CallOption {
	return func(c *callOpts) error {
		if c.jsonBody != nil || c.formBody != nil {
			return errors.New("only one body kind may be set")
		}
		if contentType == "" {
			return errors.New("content type must not be empty")
		}
		c.rawBody = body
		c.rawContentType = contentType
		return nil
	}
}

// WithProgress reports coarse download progress as a 0..1 fraction.
// Ignored on streaming calls, which report byte counts instead.
func WithProgress(fn func(fraction float64)) CallOption {
	return func(c *callOpts) error {
		c.onProgress = fn
		return nil
	}
}

// WithAccumulation makes a streaming call retain the delivered chunks
// so the accumulated bytes are returned on success. Off by default to
// bound memory on large downloads.
func WithAccumulation() CallOption {
	return func(c *callOpts) error {
		c.streamOpts = append(c.streamOpts, stream.WithAccumulation())
		return nil
	}
}

// WithChunk installs the per-chunk callback for a streaming call.
// Chunks arrive in order, never concurrently.
func WithChunk(fn func(chunk []byte)) CallOption {
	return func(c *callOpts) error {
		c.streamOpts = append(c.streamOpts, stream.WithChunkFunc(fn))
		return nil
	}
}

// WithStreamProgress reports (received, total) byte counts as chunks
// arrive; total is -1 until the content length is known.
func WithStreamProgress(fn func(received, total int64)) CallOption {
	return func(c *callOpts) error {
		c.streamOpts = append(c.streamOpts, stream.WithProgressFunc(fn))
		return nil
	}
}

// WithCompleted fires exactly once when a streaming transfer finishes.
func WithCompleted(fn func()) CallOption {
	return func(c *callOpts) error {
		c.streamOpts = append(c.streamOpts, stream.WithCompletedFunc(fn))
		return nil
	}
}

// WithStreamError fires exactly once if a streaming transfer fails.
func WithStreamError(fn func(err error)) CallOption {
	return func(c *callOpts) error {
		c.streamOpts = append(c.streamOpts, stream.WithErrorFunc(fn))
		return nil
	}
}
