package client_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glasswing-io/fetchr/client"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture image: %v", err)
	}
	return buf.Bytes()
}

func TestClient_GetImage(t *testing.T) {
	raw := pngBytes(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Deliberately wrong header: the decoder must sniff the body.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(raw)
	}))
	defer ts.Close()

	c := mustBuild(t)

	resp, err := c.GetImage(context.Background(), ts.URL, client.WithCallOptions(fastOptions()))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !resp.IsSuccess() {
		t.Fatalf("expected decoded image, got error: %s", resp.ErrorMessage)
	}
	if resp.Format != "png" {
		t.Errorf("expected format png, got %q", resp.Format)
	}
	if resp.MIME != "image/png" {
		t.Errorf("expected MIME image/png, got %q", resp.MIME)
	}
	if resp.Image == nil || resp.Image.Bounds().Dx() != 4 {
		t.Errorf("unexpected decoded image: %v", resp.Image)
	}
}

func TestClient_GetImageRejectsNonImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("<html>definitely not pixels</html>"))
	}))
	defer ts.Close()

	c := mustBuild(t)

	resp, err := c.GetImage(context.Background(), ts.URL, client.WithCallOptions(fastOptions()))
	if err != nil {
		t.Fatalf("transport succeeded, decode failure must not surface as call error: %v", err)
	}
	if resp.IsSuccess() {
		t.Fatal("expected decode failure for non-image body")
	}
	if resp.Image != nil {
		t.Error("expected nil image on decode failure")
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("envelope must keep the real status, got %d", resp.StatusCode())
	}
}

func TestClient_GetTextOnFailedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := mustBuild(t)

	resp, _ := c.GetText(context.Background(), ts.URL, client.WithCallOptions(fastOptions()))
	if resp.IsSuccess() {
		t.Fatal("expected unsuccessful typed response for 400")
	}
	if resp.Text != "" {
		t.Errorf("expected empty Text on failure, got %q", resp.Text)
	}
	if resp.Envelope == nil {
		t.Fatal("expected envelope to be attached for inspection")
	}
	if got := resp.Envelope.Text(); got != "gone fishing\n" {
		t.Errorf("raw body must remain reachable, got %q", got)
	}
}

func TestClient_NoResponseResult(t *testing.T) {
	c := mustBuild(t)

	// Port 1 on loopback refuses connections immediately.
	opts := fastOptions().WithMaxRetries(0).WithConnectTimeout(500 * time.Millisecond).WithTotalTimeout(time.Second)
	resp, err := c.Get(context.Background(), "http://127.0.0.1:1", client.WithCallOptions(opts))
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if resp.IsSuccess() {
		t.Fatal("expected failed result")
	}
	if resp.ErrorMessage == "" {
		t.Error("expected a populated error message")
	}
}
