package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// outcomeKind tags the result of a single attempt.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetriable
	outcomeTerminal
	outcomeCanceled
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeRetriable:
		return "retriable"
	case outcomeTerminal:
		return "terminal"
	case outcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// attemptOutcome is the tagged union produced by classifying one
// attempt. Exactly one of envelope or err is meaningful for success
// and failure kinds; cancelKind holds only for outcomeCanceled.
type attemptOutcome struct {
	kind       outcomeKind
	envelope   *Envelope
	err        error
	cancelKind CancelKind
}

// nextAction is the decision derived from an outcome.
type nextAction int

const (
	actionDone nextAction = iota
	actionRetry
)

// decide is the pure decision function mapping an attempt outcome to
// the loop's next action. attempt is 1-based; maxAttempts is
// MaxRetries+1. Only a retriable outcome with budget left continues.
func decide(out attemptOutcome, attempt, maxAttempts int) nextAction {
	if out.kind == outcomeRetriable && attempt < maxAttempts {
		return actionRetry
	}
	return actionDone
}

// executor orchestrates one logical call: it validates options,
// derives the cancellation scopes, runs the retry loop, classifies
// each attempt and returns the final envelope.
type executor struct {
	hc     *http.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// execute runs the retry loop for spec. The returned envelope is the
// first successful attempt's, or the last attempt's after the budget
// is exhausted, or a synthesized error envelope when no attempt ever
// produced one. err is nil only on a success outcome.
func (x *executor) execute(ctx context.Context, spec *requestSpec) (*Envelope, error) {
	if err := spec.opts.Validate(); err != nil {
		return errorEnvelope(err, 0), err
	}

	ctx, span := x.tracer.Start(ctx, "client.call", trace.WithAttributes(
		attribute.String("http.method", string(spec.method)),
		attribute.String("http.url", spec.url),
	))
	defer span.End()

	start := time.Now()
	streaming := spec.sink != nil

	// The call scope combines the caller's cancellation with the
	// total-timeout deadline. Streaming calls keep the deadline out of
	// the body-consumption phase unless StreamingTimeout is set; the
	// executor still enforces the total budget between attempts.
	callCtx := ctx
	var cancelCall context.CancelFunc
	if !streaming || spec.opts.StreamingTimeout {
		callCtx, cancelCall = context.WithDeadline(ctx, start.Add(spec.opts.TotalTimeout))
		defer cancelCall()
	}

	maxAttempts := spec.opts.MaxRetries + 1
	var last attemptOutcome

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := callCtx.Err(); err != nil {
			out := x.classifyContextErr(ctx, err)
			return x.finish(span, out, last, start, attempt-1)
		}

		remaining := spec.opts.TotalTimeout - time.Since(start)
		if remaining <= 0 {
			out := attemptOutcome{
				kind:       outcomeCanceled,
				cancelKind: CancelTotalTimeout,
				err:        &CancellationError{Kind: CancelTotalTimeout, Err: context.DeadlineExceeded},
			}
			return x.finish(span, out, last, start, attempt-1)
		}

		out := x.attempt(ctx, callCtx, spec, start, remaining, streaming)
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("number", attempt),
			attribute.String("outcome", out.kind.String()),
		))

		if decide(out, attempt, maxAttempts) == actionDone {
			return x.finish(span, out, last, start, attempt)
		}

		last = out
		x.logger.Debug("retrying request",
			"method", spec.method, "url", spec.url,
			"attempt", attempt, "error", out.err)

		delay := backoffDelay(spec.opts.RetryDelay, attempt, spec.opts.ExponentialBackoff)
		if err := sleepBackoff(callCtx, delay); err != nil {
			out := x.classifyContextErr(ctx, err)
			return x.finish(span, out, last, start, attempt)
		}
	}

	// Unreachable: the loop always returns via decide.
	return x.finish(span, last, last, start, maxAttempts)
}

// attempt performs one transport round trip under its own
// cancellation scope and classifies the result.
func (x *executor) attempt(callerCtx, callCtx context.Context, spec *requestSpec, start time.Time, remaining time.Duration, streaming bool) attemptOutcome {
	attemptTimeout := min(spec.opts.ConnectTimeout, remaining)

	// The attempt scope is torn down explicitly when the attempt ends
	// so its timer never leaks. The per-attempt window is a stoppable
	// timer rather than a context deadline: a streaming transfer must
	// outlive the connect window once headers arrive, and the body
	// read stays bound to this context.
	attemptCtx, cancelAttempt := context.WithCancel(callCtx)
	defer cancelAttempt()

	attemptTimer := time.AfterFunc(attemptTimeout, cancelAttempt)
	defer attemptTimer.Stop()

	req, err := spec.build(attemptCtx)
	if err != nil {
		return attemptOutcome{kind: outcomeTerminal, err: fmt.Errorf("%w: %w", ErrNonRetriable, err)}
	}

	resp, err := x.hc.Do(req)
	if err != nil {
		return x.classifySendErr(callerCtx, callCtx, attemptCtx, err, start)
	}

	if streaming && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		// Headers are in; the transfer is bounded by the call scope,
		// not the per-attempt window.
		attemptTimer.Stop()
		return x.streamBody(callCtx, spec, resp, start)
	}

	body, err := x.readBody(resp, spec)
	if err != nil {
		return x.classifySendErr(callerCtx, callCtx, attemptCtx, err, start)
	}

	env := newEnvelope(resp, body, time.Since(start))
	env.Cached = !spec.opts.DisableCache && resp.Header.Get("Age") != ""

	switch {
	case env.IsSuccessStatusCode():
		return attemptOutcome{kind: outcomeSuccess, envelope: env}
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		env.Err = env.errSummary()
		return attemptOutcome{
			kind:     outcomeRetriable,
			envelope: env,
			err:      fmt.Errorf("%w: status %d", ErrRetriable, env.StatusCode),
		}
	default:
		env.Err = env.errSummary()
		return attemptOutcome{
			kind:     outcomeTerminal,
			envelope: env,
			err:      fmt.Errorf("%w: status %d", ErrNonRetriable, env.StatusCode),
		}
	}
}

// readBody drains the response body, optionally reporting coarse
// progress for non-streaming calls.
func (x *executor) readBody(resp *http.Response, spec *requestSpec) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			x.logger.Error("failed to close response body", "error", err)
		}
	}()

	var r io.Reader = resp.Body
	if spec.onProgress != nil {
		r = &progressReader{
			r:     resp.Body,
			total: resp.ContentLength,
			fn:    spec.onProgress,
		}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if spec.onProgress != nil {
		spec.onProgress(1)
	}

	return body, nil
}

// streamBody hands a 2xx response body to the streaming sink. Chunks
// already delivered to the caller cannot be replayed, so a mid-stream
// failure is terminal rather than retriable.
func (x *executor) streamBody(callCtx context.Context, spec *requestSpec, resp *http.Response, start time.Time) attemptOutcome {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			x.logger.Error("failed to close response body", "error", err)
		}
	}()

	if err := spec.sink.Run(callCtx, resp.Body, resp.ContentLength); err != nil {
		env := errorEnvelope(err, time.Since(start))
		env.StatusCode = resp.StatusCode
		env.Status = resp.Status
		env.Headers = resp.Header.Clone()
		if ctxErr := callCtx.Err(); ctxErr != nil {
			env.Canceled = true
			kind := CancelTotalTimeout
			if errors.Is(ctxErr, context.Canceled) {
				kind = CancelCaller
			}
			return attemptOutcome{
				kind:       outcomeCanceled,
				envelope:   env,
				cancelKind: kind,
				err:        &CancellationError{Kind: kind, Err: err},
			}
		}
		return attemptOutcome{kind: outcomeTerminal, envelope: env, err: fmt.Errorf("%w: %w", ErrNonRetriable, err)}
	}

	env := newEnvelope(resp, spec.sink.Data(), time.Since(start))
	return attemptOutcome{kind: outcomeSuccess, envelope: env}
}

// classifySendErr distinguishes the three cancellation scopes and the
// transient-error patterns for a failed round trip.
func (x *executor) classifySendErr(callerCtx, callCtx, attemptCtx context.Context, err error, start time.Time) attemptOutcome {
	switch {
	case callerCtx.Err() != nil && errors.Is(callerCtx.Err(), context.Canceled):
		// Caller cancellation is terminal.
		cerr := &CancellationError{Kind: CancelCaller, Err: err}
		return attemptOutcome{kind: outcomeCanceled, cancelKind: CancelCaller, err: cerr}

	case callCtx.Err() != nil:
		// The call scope fired: total timeout. Terminal.
		cerr := &CancellationError{Kind: CancelTotalTimeout, Err: err}
		return attemptOutcome{kind: outcomeCanceled, cancelKind: CancelTotalTimeout, err: cerr}

	case attemptCtx.Err() != nil:
		// Only this attempt's window expired: connect timeout.
		// Retriable.
		return attemptOutcome{
			kind: outcomeRetriable,
			err:  fmt.Errorf("%w: connect timeout: %w", ErrRetriable, err),
		}

	case matchesTransient(err.Error()):
		return attemptOutcome{kind: outcomeRetriable, err: fmt.Errorf("%w: %w", ErrRetriable, err)}

	default:
		return attemptOutcome{kind: outcomeTerminal, err: fmt.Errorf("%w: %w", ErrNonRetriable, err)}
	}
}

// classifyContextErr maps a fired call scope to its cancellation kind
// before or between attempts.
func (x *executor) classifyContextErr(callerCtx context.Context, err error) attemptOutcome {
	kind := CancelTotalTimeout
	if callerCtx.Err() != nil && errors.Is(callerCtx.Err(), context.Canceled) {
		kind = CancelCaller
	}
	return attemptOutcome{
		kind:       outcomeCanceled,
		cancelKind: kind,
		err:        &CancellationError{Kind: kind, Err: err},
	}
}

// finish converts the loop's final outcome into the returned envelope
// and error, synthesizing an envelope when no attempt produced one.
// attempts is the number of attempts actually started.
func (x *executor) finish(span trace.Span, out, last attemptOutcome, start time.Time, attempts int) (*Envelope, error) {
	elapsed := time.Since(start)

	env := out.envelope
	err := out.err

	switch out.kind {
	case outcomeSuccess:
		err = nil

	case outcomeRetriable:
		// The budget ran out on a retriable failure, including a
		// connect timeout on the final allowed attempt. Both report
		// as exhausted retries.
		err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, out.err)
		if env == nil {
			env = last.envelope
		}

	case outcomeCanceled:
		if env == nil {
			env = last.envelope
		}

	case outcomeTerminal:
	}

	if env == nil {
		if err == nil {
			err = ErrNoResponse
		}
		env = errorEnvelope(err, elapsed)
	}

	env.Elapsed = elapsed
	if out.kind == outcomeCanceled {
		env.Canceled = true
		if env.Err == "" && err != nil {
			env.Err = err.Error()
		}
	}
	if err != nil && env.Err == "" {
		env.Err = err.Error()
	}

	span.SetAttributes(
		attribute.Int("http.attempts", attempts),
		attribute.String("http.outcome", out.kind.String()),
	)

	if err != nil {
		x.logger.Debug("request finished with error",
			"attempts", attempts, "elapsed", elapsed, "error", err)
	}

	return env, err
}

// progressReader reports coarse download progress while the body is
// read, firing the callback only when the completed fraction moves.
type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    func(fraction float64)

	lastReported float64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read += int64(n)

	if pr.total > 0 {
		fraction := float64(pr.read) / float64(pr.total)
		if fraction > 1 {
			fraction = 1
		}
		// Only fire on a delta to avoid redundant callback churn.
		if fraction-pr.lastReported >= 0.01 {
			pr.lastReported = fraction
			pr.fn(fraction)
		}
	}

	return n, err
}
