package stream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glasswing-io/fetchr/client/stream"
)

// slowReader yields its payload in small pieces with a delay, so a
// cancellation can land mid-transfer.
type slowReader struct {
	data  []byte
	pos   int
	step  int
	delay time.Duration
}

func (sr *slowReader) Read(p []byte) (int, error) {
	if sr.pos >= len(sr.data) {
		return 0, io.EOF
	}
	time.Sleep(sr.delay)

	end := sr.pos + sr.step
	if end > len(sr.data) {
		end = len(sr.data)
	}
	n := copy(p, sr.data[sr.pos:end])
	sr.pos += n
	return n, nil
}

func TestSink_AccumulatesWhenEnabled(t *testing.T) {
	payload := strings.Repeat("streaming payload ", 5000)

	s := stream.New(stream.WithAccumulation())
	if err := s.Run(context.Background(), strings.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("expected clean run, got: %v", err)
	}

	if got := s.Text(); got != payload {
		t.Errorf("accumulated text differs: got %d bytes, want %d", len(got), len(payload))
	}
	if !s.Completed() {
		t.Error("expected completed session")
	}
	if s.Errored() {
		t.Error("unexpected errored flag")
	}
	if got := s.Received(); got != int64(len(payload)) {
		t.Errorf("Received() = %d, want %d", got, len(payload))
	}
	if got := s.Total(); got != int64(len(payload)) {
		t.Errorf("Total() = %d, want %d", got, len(payload))
	}
}

func TestSink_NoAccumulationByDefault(t *testing.T) {
	payload := []byte("chunked but not kept")

	s := stream.New()
	if err := s.Run(context.Background(), bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("expected clean run, got: %v", err)
	}

	if got := s.Data(); got != nil {
		t.Errorf("expected nil Data with accumulation off, got %d bytes", len(got))
	}
	if got := s.Received(); got != int64(len(payload)) {
		t.Errorf("byte count must still be tracked: got %d, want %d", got, len(payload))
	}
}

func TestSink_ChunksArriveInOrder(t *testing.T) {
	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	var rebuilt bytes.Buffer
	var completions int
	s := stream.New(
		stream.WithChunkFunc(func(chunk []byte) { rebuilt.Write(chunk) }),
		stream.WithCompletedFunc(func() { completions++ }),
	)

	if err := s.Run(context.Background(), bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("expected clean run, got: %v", err)
	}

	if diff := cmp.Diff(payload, rebuilt.Bytes()); diff != "" {
		t.Errorf("chunk concatenation differs from source (-want +got):\n%s", diff)
	}
	if completions != 1 {
		t.Errorf("completion callback fired %d times, want 1", completions)
	}
}

func TestSink_ProgressReportsMonotonically(t *testing.T) {
	payload := make([]byte, 120*1024)

	var reports [][2]int64
	s := stream.New(stream.WithProgressFunc(func(received, total int64) {
		reports = append(reports, [2]int64{received, total})
	}))

	if err := s.Run(context.Background(), bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("expected clean run, got: %v", err)
	}

	if len(reports) < 2 {
		t.Fatalf("expected initial plus per-chunk reports, got %d", len(reports))
	}
	if reports[0][0] != 0 {
		t.Errorf("first report must be zero received, got %d", reports[0][0])
	}
	for i := 1; i < len(reports); i++ {
		if reports[i][0] < reports[i-1][0] {
			t.Fatalf("received went backwards at report %d: %v", i, reports)
		}
		if reports[i][1] != int64(len(payload)) {
			t.Errorf("total changed mid-stream: %d", reports[i][1])
		}
	}
	if last := reports[len(reports)-1][0]; last != int64(len(payload)) {
		t.Errorf("final received = %d, want %d", last, len(payload))
	}
}

func TestSink_ReadErrorFiresErrorCallbackOnce(t *testing.T) {
	boom := errors.New("connection torn down")
	r := io.MultiReader(strings.NewReader("partial"), &failingReader{err: boom})

	var errCalls int
	var completed bool
	s := stream.New(
		stream.WithAccumulation(),
		stream.WithErrorFunc(func(err error) { errCalls++ }),
		stream.WithCompletedFunc(func() { completed = true }),
	)

	err := s.Run(context.Background(), r, -1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the read error, got: %v", err)
	}
	if errCalls != 1 {
		t.Errorf("error callback fired %d times, want 1", errCalls)
	}
	if completed {
		t.Error("completion callback must not fire on failure")
	}
	if !s.Errored() || s.Completed() {
		t.Errorf("state = completed:%v errored:%v, want errored only", s.Completed(), s.Errored())
	}
	if got := s.Text(); got != "partial" {
		t.Errorf("bytes delivered before the failure must be kept: %q", got)
	}
}

func TestSink_CancellationMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	payload := make([]byte, 64*1024)
	r := &slowReader{data: payload, step: 4 * 1024, delay: 5 * time.Millisecond}

	var chunks int
	s := stream.New(stream.WithChunkFunc(func([]byte) {
		chunks++
		if chunks == 3 {
			cancel()
		}
	}))

	err := s.Run(ctx, r, int64(len(payload)))
	if !errors.Is(err, stream.ErrStreamCancelled) {
		t.Fatalf("expected ErrStreamCancelled, got: %v", err)
	}
	if !s.Errored() {
		t.Error("expected errored session after cancellation")
	}
	if s.Received() >= int64(len(payload)) {
		t.Error("expected a partial transfer")
	}
}

func TestSink_RunAfterTerminalState(t *testing.T) {
	s := stream.New()
	if err := s.Run(context.Background(), strings.NewReader("done"), 4); err != nil {
		t.Fatalf("expected clean first run, got: %v", err)
	}

	err := s.Run(context.Background(), strings.NewReader("again"), 5)
	if !errors.Is(err, stream.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on reuse, got: %v", err)
	}
}

type failingReader struct{ err error }

func (fr *failingReader) Read([]byte) (int, error) { return 0, fr.err }
