package download

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrAlreadyCommitted      = errors.New("writer already committed")
)

// Error wraps a sentinel with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Writer stages bytes for destPath in a temp file in the same
// directory, so the final rename never crosses filesystems. It is fed
// from a single streaming callback and is not safe for concurrent
// writes.
type Writer struct {
	file     *os.File
	dest     string
	logger   *slog.Logger
	checksum *checksumVerifier
	progress *progressLogger

	written  int64
	expected int64
	werr     error
	done     bool
}

// New creates a Writer staging into destPath's directory. It returns
// (nil, nil) when [WithSkipExisting] was given and the destination
// already exists.
func New(destPath string, logger *slog.Logger, optFns ...Option) (*Writer, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return nil, nil
		}
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".fetchr-dl-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	w := &Writer{
		file:     file,
		dest:     destPath,
		logger:   logger,
		checksum: opts.checksum,
		expected: -1,
	}
	if opts.progress {
		w.progress = &progressLogger{logger: logger, start: time.Now()}
	}

	return w, nil
}

// SetTotal records the declared content length for verification at
// commit time and for progress percentages.
func (w *Writer) SetTotal(total int64) {
	w.expected = total
	if w.progress != nil {
		w.progress.total = total
	}
}

// Write appends a chunk to the temp file. The first write error is
// sticky: later writes are dropped and Commit fails with it.
func (w *Writer) Write(p []byte) error {
	if w.werr != nil {
		return w.werr
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	if err != nil {
		w.werr = fmt.Errorf("writing temp file: %w", err)
		return w.werr
	}

	if w.checksum != nil {
		w.checksum.Write(p)
	}
	if w.progress != nil {
		w.progress.report(w.written)
	}

	return nil
}

// Commit verifies the transfer, syncs and atomically renames the temp
// file to the destination. The Writer is unusable afterward.
func (w *Writer) Commit() error {
	if w.done {
		return ErrAlreadyCommitted
	}
	w.done = true

	if w.werr != nil {
		w.remove()
		return w.werr
	}

	if w.expected >= 0 && w.written != w.expected {
		w.remove()
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", w.expected, w.written),
		}
	}

	if err := w.checksum.Verify(); err != nil {
		w.remove()
		return err
	}

	if err := w.file.Sync(); err != nil {
		w.remove()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		w.removeNamed()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(w.file.Name(), w.dest); err != nil {
		w.removeNamed()
		return fmt.Errorf("renaming temp file: %w", err)
	}

	if w.progress != nil {
		w.progress.log("download complete", w.written)
	}

	return nil
}

// Abort discards the staged bytes and removes the temp file. Safe to
// call after a failed transfer; a no-op once committed.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.remove()
}

func (w *Writer) remove() {
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		w.logger.Error("closing temp file", "error", err)
	}
	w.removeNamed()
}

func (w *Writer) removeNamed() {
	if err := os.Remove(w.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Error("failed to remove temp file", "error", err)
	}
}
