package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/glasswing-io/fetchr/client/stream"
)

// Method is an HTTP verb. CONNECT, TRACE and OPTIONS are defined for
// completeness but have no facade call.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodConnect Method = http.MethodConnect
	MethodTrace   Method = http.MethodTrace
	MethodOptions Method = http.MethodOptions
)

const (
	contentTypeJSON = "application/json; charset=UTF-8"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// requestSpec is the immutable input to the executor for one logical
// call: everything needed to rebuild the transport request on every
// attempt.
type requestSpec struct {
	method      Method
	url         string
	body        []byte
	contentType string
	headers     headerSet
	opts        RequestOptions
	sink        *stream.Sink
	onProgress  func(fraction float64)
}

// newRequestSpec resolves headers, encodes the body and applies
// cache-busting. registry is the snapshot captured at call start.
func newRequestSpec(method Method, rawURL string, registry map[string]string, opts RequestOptions, call *callOpts) (*requestSpec, error) {
	spec := &requestSpec{
		method:     method,
		url:        rawURL,
		opts:       opts,
		sink:       call.sink,
		onProgress: call.onProgress,
	}

	switch {
	case call.jsonBody != nil:
		payload, err := json.Marshal(call.jsonBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		spec.body = payload
		spec.contentType = contentTypeJSON
	case call.formBody != nil:
		form := url.Values{}
		for k, v := range call.formBody {
			form.Set(k, v)
		}
		spec.body = []byte(form.Encode())
		spec.contentType = contentTypeForm
	case call.rawBody != nil:
		spec.body = call.rawBody
		spec.contentType = call.rawContentType
	}

	spec.headers = newHeaderSet(registry, opts.Headers, call.headers)
	if spec.contentType != "" && spec.headers.get("Content-Type") == "" {
		spec.headers.set("Content-Type", spec.contentType)
	}
	if opts.UserAgent != "" {
		spec.headers.set("User-Agent", opts.UserAgent)
	}

	if opts.DisableCache {
		spec.headers.set("Cache-Control", "no-cache, no-store, must-revalidate")
		spec.headers.set("Pragma", "no-cache")
		spec.headers.set("Expires", "0")

		busted, err := appendCacheBuster(rawURL)
		if err != nil {
			return nil, err
		}
		spec.url = busted
	}

	if len(call.query) > 0 {
		appended, err := appendQuery(spec.url, call.query)
		if err != nil {
			return nil, err
		}
		spec.url = appended
	}

	return spec, nil
}

// build creates a fresh transport request for one attempt. The body
// reader must be recreated per attempt so retries never reuse a
// half-consumed reader.
func (s *requestSpec) build(ctx context.Context) (*http.Request, error) {
	var body *bytes.Reader
	if s.body != nil {
		body = bytes.NewReader(s.body)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, string(s.method), s.url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, string(s.method), s.url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	s.headers.apply(req)

	return req, nil
}

// appendCacheBuster adds a unique `_` query parameter so intermediary
// caches never serve a stale copy.
func appendCacheBuster(rawURL string) (string, error) {
	return appendQuery(rawURL, map[string]string{"_": uuid.NewString()})
}

func appendQuery(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
