package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"strings"

	// Registered decoders for ImageResponse.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// Result is the common part of every typed response: the envelope it
// was mapped from plus the final success determination. A typed
// response is successful only when the transport delivered a 2xx
// response and the body decoded into the target shape.
type Result struct {
	Envelope     *Envelope
	ErrorMessage string

	ok bool
}

// IsSuccess reports whether the call produced a usable decoded value.
func (r Result) IsSuccess() bool {
	return r.ok
}

// StatusCode returns the HTTP status, or 0 when no response existed.
func (r Result) StatusCode() int {
	if r.Envelope == nil {
		return 0
	}
	return r.Envelope.StatusCode
}

// TextResponse carries a UTF-8 decoded body.
type TextResponse struct {
	Result
	Text string
}

// BytesResponse carries the raw body bytes.
type BytesResponse struct {
	Result
	Data []byte
}

// ImageResponse carries a decoded image and its detected MIME type.
type ImageResponse struct {
	Result
	Image  image.Image
	Format string
	MIME   string
}

// Response carries a JSON-decoded value of type T.
type Response[T any] struct {
	Result
	Value T
}

// mapper converts envelopes into typed responses. Decode failures are
// classified and logged here, never retried: retrying cannot fix
// malformed content.
type mapper struct {
	logger *slog.Logger
}

// baseResult derives the shared success determination. A nil envelope
// means the call failed before any response existed.
func (m *mapper) baseResult(env *Envelope, callErr error) Result {
	if env == nil {
		msg := ErrNoResponse.Error()
		if callErr != nil {
			msg = callErr.Error()
		}
		return Result{ErrorMessage: msg}
	}

	res := Result{Envelope: env}
	switch {
	case callErr != nil:
		res.ErrorMessage = callErr.Error()
	case !env.Success:
		res.ErrorMessage = env.Err
	case !env.IsSuccessStatusCode():
		res.ErrorMessage = fmt.Sprintf("unexpected status: %s", env.Status)
	default:
		res.ok = true
	}

	if !res.ok {
		m.logger.Debug("mapping failed response",
			"status", res.StatusCode(), "error", res.ErrorMessage)
	}

	return res
}

// failDecode downgrades an otherwise-successful result to a decode
// failure carrying a descriptive message.
func (m *mapper) failDecode(res *Result, derr *DecodeError) {
	res.ok = false
	res.ErrorMessage = derr.Error()
	m.logger.Warn("response decode failed",
		"format", derr.Format, "status", res.StatusCode(), "error", derr.Err)
}

// Text maps an envelope into a decoded-text response.
func (m *mapper) Text(env *Envelope, callErr error) *TextResponse {
	resp := &TextResponse{Result: m.baseResult(env, callErr)}
	if resp.ok {
		resp.Text = env.Text()
	}
	return resp
}

// Bytes maps an envelope into a raw-bytes response.
func (m *mapper) Bytes(env *Envelope, callErr error) *BytesResponse {
	resp := &BytesResponse{Result: m.baseResult(env, callErr)}
	if resp.ok {
		resp.Data = env.Body
	}
	return resp
}

// Image maps an envelope into a decoded image, sniffing the MIME type
// from the body rather than trusting the Content-Type header.
func (m *mapper) Image(env *Envelope, callErr error) *ImageResponse {
	resp := &ImageResponse{Result: m.baseResult(env, callErr)}
	if !resp.ok {
		return resp
	}

	mtype := mimetype.Detect(env.Body)
	if !strings.HasPrefix(mtype.String(), "image/") {
		m.failDecode(&resp.Result, &DecodeError{
			Format: "image",
			Err:    fmt.Errorf("body is %s, not an image", mtype.String()),
		})
		return resp
	}
	resp.MIME = mtype.String()

	img, format, err := image.Decode(bytes.NewReader(env.Body))
	if err != nil {
		m.failDecode(&resp.Result, &DecodeError{Format: "image", Err: err})
		return resp
	}

	resp.Image = img
	resp.Format = format

	return resp
}

// mapJSON decodes the body into T. It is a free function because
// methods cannot introduce type parameters.
func mapJSON[T any](m *mapper, env *Envelope, callErr error) *Response[T] {
	resp := &Response[T]{Result: m.baseResult(env, callErr)}
	if !resp.ok {
		return resp
	}

	if err := json.Unmarshal(env.Body, &resp.Value); err != nil {
		m.failDecode(&resp.Result, &DecodeError{Format: "json", Err: err})
	}

	return resp
}
