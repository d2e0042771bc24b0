package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/glasswing-io/fetchr/client/download"
	"github.com/glasswing-io/fetchr/client/stream"
	"github.com/glasswing-io/fetchr/client/throttle"
)

// Client is the verb-oriented facade over the request execution
// engine. It owns the header registry, the shared default options and
// the underlying transport, and is safe for concurrent use.
type Client struct {
	c        *http.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	registry *HeaderRegistry
	defaults RequestOptions

	exec   *executor
	mapper *mapper
}

// Build creates a Client with the given options. Defaults: a fresh
// http.Client on the default transport, slog.Default(), a no-op
// tracer, and [DefaultOptions] per call.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:        &http.Client{},
		logger:   slog.Default(),
		registry: NewHeaderRegistry(),
		defaults: DefaultOptions(),
	}

	var opts buildOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	} else {
		client.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	if opts.defaults != nil {
		client.defaults = *opts.defaults
	}

	for name, value := range opts.headers {
		client.registry.Set(name, value)
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	client.exec = &executor{hc: client.c, logger: client.logger, tracer: client.tracer}
	client.mapper = &mapper{logger: client.logger}

	return client, nil
}

// Headers returns the client's header registry. Writes apply to calls
// started after the write; in-flight calls keep the snapshot captured
// when they began.
func (c *Client) Headers() *HeaderRegistry {
	return c.registry
}

// Defaults returns a copy of the shared default request options.
func (c *Client) Defaults() RequestOptions {
	return c.defaults.Clone()
}

// do runs one logical call end to end: resolve options, snapshot the
// registry, build the request spec, execute.
func (c *Client) do(ctx context.Context, method Method, rawURL string, optFns []CallOption) (*Envelope, error) {
	var call callOpts
	for _, opt := range optFns {
		if err := opt(&call); err != nil {
			return nil, fmt.Errorf("applying call option: %w", err)
		}
	}

	opts := c.defaults
	if call.opts != nil {
		opts = *call.opts
	}

	if len(call.streamOpts) > 0 && call.sink == nil {
		call.sink = stream.New(append(call.streamOpts, stream.WithLogger(c.logger))...)
	}

	spec, err := newRequestSpec(method, rawURL, c.registry.Snapshot(), opts, &call)
	if err != nil {
		return nil, err
	}

	return c.exec.execute(ctx, spec)
}

// Get executes a GET request, returning the raw-bytes typed response.
func (c *Client) Get(ctx context.Context, url string, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodGet, url, opts)
	return c.mapper.Bytes(env, err), err
}

// Head executes a HEAD request. The typed response carries headers
// and status only.
func (c *Client) Head(ctx context.Context, url string, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodHead, url, opts)
	return c.mapper.Bytes(env, err), err
}

// Post executes a POST request. body is JSON-encoded unless a
// [WithForm] or [WithBytesBody] option overrides it; pass nil for no
// body.
func (c *Client) Post(ctx context.Context, url string, body any, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodPost, url, withJSONBody(body, opts))
	return c.mapper.Bytes(env, err), err
}

// Put executes a PUT request with the same body rules as [Client.Post].
func (c *Client) Put(ctx context.Context, url string, body any, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodPut, url, withJSONBody(body, opts))
	return c.mapper.Bytes(env, err), err
}

// Patch executes a PATCH request with the same body rules as [Client.Post].
func (c *Client) Patch(ctx context.Context, url string, body any, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodPatch, url, withJSONBody(body, opts))
	return c.mapper.Bytes(env, err), err
}

// Delete executes a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...CallOption) (*BytesResponse, error) {
	env, err := c.do(ctx, MethodDelete, url, opts)
	return c.mapper.Bytes(env, err), err
}

// GetText executes a GET request, decoding the body as UTF-8 text.
func (c *Client) GetText(ctx context.Context, url string, opts ...CallOption) (*TextResponse, error) {
	env, err := c.do(ctx, MethodGet, url, opts)
	return c.mapper.Text(env, err), err
}

// GetBytes is an alias for [Client.Get], matching the typed-response
// family naming.
func (c *Client) GetBytes(ctx context.Context, url string, opts ...CallOption) (*BytesResponse, error) {
	return c.Get(ctx, url, opts...)
}

// GetImage executes a GET request and decodes the body as an image
// (PNG, JPEG or GIF). A decode failure yields an unsuccessful typed
// response, not an error return.
func (c *Client) GetImage(ctx context.Context, url string, opts ...CallOption) (*ImageResponse, error) {
	env, err := c.do(ctx, MethodGet, url, opts)
	return c.mapper.Image(env, err), err
}

// Stream executes a GET request delivering the body incrementally
// through the streaming callbacks ([WithChunk], [WithStreamProgress],
// [WithCompleted], [WithStreamError]). It returns the accumulated
// bytes, which are nil unless [WithAccumulation] was supplied.
func (c *Client) Stream(ctx context.Context, url string, opts ...CallOption) ([]byte, error) {
	var call callOpts
	for _, opt := range opts {
		if err := opt(&call); err != nil {
			return nil, fmt.Errorf("applying call option: %w", err)
		}
	}

	reqOpts := c.defaults
	if call.opts != nil {
		reqOpts = *call.opts
	}

	call.sink = stream.New(append(call.streamOpts, stream.WithLogger(c.logger))...)

	spec, err := newRequestSpec(MethodGet, url, c.registry.Snapshot(), reqOpts, &call)
	if err != nil {
		return nil, err
	}

	if _, err := c.exec.execute(ctx, spec); err != nil {
		return nil, err
	}

	return call.sink.Data(), nil
}

// Download streams a GET response body to destPath via a temp file
// that is atomically renamed on success, with optional checksum
// verification and throttled progress logging.
func (c *Client) Download(ctx context.Context, url, destPath string, opts ...CallOption) error {
	return c.download(ctx, url, destPath, opts, nil)
}

// DownloadVerified is [Client.Download] with download-level options
// such as [download.WithChecksum] or [download.WithSkipExisting].
func (c *Client) DownloadVerified(ctx context.Context, url, destPath string, dlOpts []download.Option, opts ...CallOption) error {
	return c.download(ctx, url, destPath, opts, dlOpts)
}

func (c *Client) download(ctx context.Context, url, destPath string, opts []CallOption, dlOpts []download.Option) error {
	w, err := download.New(destPath, c.logger, dlOpts...)
	if err != nil {
		return err
	}
	if w == nil {
		// Destination exists and skip-existing was requested.
		return nil
	}

	// A write failure must abort the transfer rather than drain the
	// rest of the body into a broken file.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamOpts := append(opts,
		WithStreamProgress(func(received, total int64) {
			if received == 0 && total >= 0 {
				w.SetTotal(total)
			}
		}),
		WithChunk(func(chunk []byte) {
			if werr := w.Write(chunk); werr != nil {
				cancel()
			}
		}),
	)

	if _, err := c.Stream(ctx, url, streamOpts...); err != nil {
		w.Abort()
		return fmt.Errorf("download: %w", err)
	}

	if err := w.Commit(); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	return nil
}

// DownloadAsync enqueues a download on q and returns immediately. Use
// the returned [download.Result] to await or cancel it, and
// [download.Queue.Wait] to collect the whole batch.
func (c *Client) DownloadAsync(ctx context.Context, q *download.Queue, url, destPath string, opts ...CallOption) *download.Result {
	return q.Start(ctx, func(ctx context.Context) error {
		return c.download(ctx, url, destPath, opts, nil)
	})
}

// withJSONBody adds the JSON body to the option list unless a
// competing body option is present.
func withJSONBody(body any, opts []CallOption) []CallOption {
	if body == nil {
		return opts
	}
	set := func(c *callOpts) error {
		if c.formBody == nil && c.rawBody == nil {
			c.jsonBody = body
		}
		return nil
	}
	// Applied last so WithForm/WithBytesBody win.
	return append(opts, set)
}

// GetJSON executes a GET request and decodes the body into T. Unlike
// the envelope-level calls it fails loudly: any transport failure,
// non-2xx status or decode failure is returned as an *HTTPError.
func GetJSON[T any](ctx context.Context, c *Client, url string, opts ...CallOption) (T, error) {
	return callJSON[T](ctx, c, MethodGet, url, nil, opts)
}

// PostJSON executes a POST request with a JSON body, decoding the
// response into T. Fails loudly with *HTTPError.
func PostJSON[T any](ctx context.Context, c *Client, url string, body any, opts ...CallOption) (T, error) {
	return callJSON[T](ctx, c, MethodPost, url, body, opts)
}

// PutJSON executes a PUT request with a JSON body, decoding the
// response into T. Fails loudly with *HTTPError.
func PutJSON[T any](ctx context.Context, c *Client, url string, body any, opts ...CallOption) (T, error) {
	return callJSON[T](ctx, c, MethodPut, url, body, opts)
}

// PatchJSON executes a PATCH request with a JSON body, decoding the
// response into T. Fails loudly with *HTTPError.
func PatchJSON[T any](ctx context.Context, c *Client, url string, body any, opts ...CallOption) (T, error) {
	return callJSON[T](ctx, c, MethodPatch, url, body, opts)
}

// DeleteJSON executes a DELETE request, decoding the response into T.
// Fails loudly with *HTTPError.
func DeleteJSON[T any](ctx context.Context, c *Client, url string, opts ...CallOption) (T, error) {
	return callJSON[T](ctx, c, MethodDelete, url, nil, opts)
}

func callJSON[T any](ctx context.Context, c *Client, method Method, url string, body any, opts []CallOption) (T, error) {
	env, err := c.do(ctx, method, url, withJSONBody(body, opts))

	resp := mapJSON[T](c.mapper, env, err)
	if !resp.IsSuccess() {
		return resp.Value, &HTTPError{
			StatusCode: int64(resp.StatusCode()),
			Message:    resp.ErrorMessage,
			Err:        err,
		}
	}

	return resp.Value, nil
}
