// Package client implements a resilient HTTP client for calling
// remote APIs and downloading media under unreliable network
// conditions: layered timeouts, a classifying retry loop, incremental
// streaming and strongly-typed responses, all on top of [net/http].
//
// # Building a Client
//
// Use [Build] with functional options:
//
//	c, err := client.Build(
//		client.WithUserAgent("myapp/1.0"),
//		client.WithHeader("Authorization", "Bearer "+token),
//	)
//
// # Making Requests
//
// Each verb call resolves headers from three tiers (client registry,
// per-call options, explicit call headers), runs the retry loop and
// returns a typed response wrapping the normalized [Envelope]:
//
//	resp, err := c.GetText(ctx, "https://api.example.com/motd")
//
// The JSON convenience calls decode straight into a value and fail
// loudly with [*HTTPError] when anything goes wrong:
//
//	user, err := client.GetJSON[User](ctx, c, "https://api.example.com/me")
//
// # Retries and Timeouts
//
// [RequestOptions] control the budget: a total timeout bounding the
// whole call, a connect timeout bounding each attempt, and a retry
// count with fixed or exponential backoff. Server errors (5xx), 408,
// 429 and transient network failures are retried; other client errors
// are not:
//
//	opts := client.DefaultOptions().
//		WithMaxRetries(5).
//		WithExponentialBackoff()
//	resp, err := c.Get(ctx, url, client.WithCallOptions(opts))
//
// # Streaming
//
// Large bodies can be consumed chunk by chunk without buffering:
//
//	_, err := c.Stream(ctx, url,
//		client.WithChunk(func(b []byte) { process(b) }),
//		client.WithStreamProgress(func(got, total int64) { report(got, total) }),
//	)
//
// Or persisted to disk with checksum verification via
// [Client.Download] and the
// [github.com/glasswing-io/fetchr/client/download] package.
package client
