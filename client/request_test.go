package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/glasswing-io/fetchr/client"
)

func TestClient_QueryParams(t *testing.T) {
	var got map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
	}))
	defer ts.Close()

	c := mustBuild(t)

	// The URL already carries a parameter; appended ones must not
	// clobber it.
	_, err := c.Get(context.Background(), ts.URL+"/things?page=2",
		client.WithCallOptions(fastOptions()),
		client.WithQueryParams(map[string]string{"sort": "name", "dir": "asc"}),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	for key, want := range map[string]string{"page": "2", "sort": "name", "dir": "asc"} {
		if len(got[key]) != 1 || got[key][0] != want {
			t.Errorf("query param %s = %v, want [%s]", key, got[key], want)
		}
	}
}

func TestClient_BytesBody(t *testing.T) {
	var ct string
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		body = mustReadAll(t, r)
	}))
	defer ts.Close()

	c := mustBuild(t)

	raw := []byte{0x1f, 0x8b, 0x08, 0x00}
	_, err := c.Post(context.Background(), ts.URL, nil,
		client.WithCallOptions(fastOptions()),
		client.WithBytesBody(raw, "application/octet-stream"),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ct != "application/octet-stream" {
		t.Errorf("unexpected Content-Type: %q", ct)
	}
	if string(body) != string(raw) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestClient_BodyReplayedAcrossAttempts(t *testing.T) {
	var attempts atomic.Int32
	bodies := make(chan []byte, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodies <- mustReadAll(t, r)
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	c := mustBuild(t)

	sent := payload{Name: "replay", Count: 2}
	_, err := c.Post(context.Background(), ts.URL, sent, client.WithCallOptions(fastOptions()))
	if err != nil {
		t.Fatalf("expected success on second attempt, got: %v", err)
	}

	first, second := <-bodies, <-bodies
	if len(first) == 0 || string(first) != string(second) {
		t.Errorf("retried attempt must resend the full body: first %q, second %q", first, second)
	}
}
