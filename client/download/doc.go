// Package download persists streamed HTTP response bodies to disk
// with optional checksum validation and progress logging.
//
// A [Writer] stages bytes in a temporary file alongside the
// destination path. [Writer.Commit] verifies the checksum and byte
// count, syncs, and atomically renames the temp file into place;
// [Writer.Abort] removes it. Chunks typically arrive from a streaming
// call's chunk callback:
//
//	w, err := download.New(destPath, logger)
//	// feed w.Write from the stream, then:
//	err = w.Commit()
//
// [Queue] runs multiple downloads concurrently under a semaphore.
// Most callers should use the higher-level client package, which
// wires a Writer into its Download methods.
package download
