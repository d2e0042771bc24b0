// Package stream delivers HTTP response bodies to callers
// incrementally, chunk by chunk, with progress reporting and optional
// in-memory accumulation.
//
// A [Sink] tracks one streaming session. The transport side produces
// chunks into a bounded channel while a single consumer applies
// accumulation and invokes the caller's callbacks, so user-code
// execution time never stalls transport reads and chunks are always
// delivered in arrival order:
//
//	sink := stream.New(
//		stream.WithChunkFunc(func(b []byte) { _ = b }),
//		stream.WithProgressFunc(func(received, total int64) {}),
//	)
//	err := sink.Run(ctx, resp.Body, resp.ContentLength)
//
// Accumulation is disabled by default so large downloads stay within
// bounded memory; enable it with [WithAccumulation] when the caller
// wants the concatenated bytes afterward via [Sink.Data].
package stream
