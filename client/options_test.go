package client_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glasswing-io/fetchr/client"
)

func TestDefaultOptions(t *testing.T) {
	got := client.DefaultOptions()

	want := client.RequestOptions{
		TotalTimeout:   60 * time.Second,
		ConnectTimeout: 50 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		DisableCache:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DefaultOptions mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("defaults must validate, got: %v", err)
	}
}

func TestRequestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o client.RequestOptions) client.RequestOptions
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(o client.RequestOptions) client.RequestOptions { return o },
		},
		{
			name:    "zero total timeout",
			mutate:  func(o client.RequestOptions) client.RequestOptions { return o.WithTotalTimeout(0) },
			wantErr: true,
		},
		{
			name:    "negative total timeout",
			mutate:  func(o client.RequestOptions) client.RequestOptions { return o.WithTotalTimeout(-time.Second) },
			wantErr: true,
		},
		{
			name:    "zero connect timeout",
			mutate:  func(o client.RequestOptions) client.RequestOptions { return o.WithConnectTimeout(0) },
			wantErr: true,
		},
		{
			name: "connect exceeds total",
			mutate: func(o client.RequestOptions) client.RequestOptions {
				return o.WithTotalTimeout(time.Second).WithConnectTimeout(2 * time.Second)
			},
			wantErr: true,
		},
		{
			name:    "negative retries",
			mutate:  func(o client.RequestOptions) client.RequestOptions { return o.WithMaxRetries(-1) },
			wantErr: true,
		},
		{
			name:    "negative delay",
			mutate:  func(o client.RequestOptions) client.RequestOptions { return o.WithRetryDelay(-time.Second) },
			wantErr: true,
		},
		{
			name:   "zero retries is valid",
			mutate: func(o client.RequestOptions) client.RequestOptions { return o.WithMaxRetries(0) },
		},
		{
			name: "connect equal to total is valid",
			mutate: func(o client.RequestOptions) client.RequestOptions {
				return o.WithTotalTimeout(time.Second).WithConnectTimeout(time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(client.DefaultOptions()).Validate()
			if tt.wantErr {
				var cfg *client.ConfigurationError
				if !errors.As(err, &cfg) {
					t.Fatalf("expected ConfigurationError, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid options, got: %v", err)
			}
		})
	}
}

func TestRequestOptions_CloneIsIndependent(t *testing.T) {
	orig := client.DefaultOptions().WithHeader("X-Key", "orig")

	cpy := orig.Clone()
	cpy.Headers["X-Key"] = "changed"
	cpy.Headers["X-New"] = "added"

	if got := orig.Headers["X-Key"]; got != "orig" {
		t.Errorf("mutating the clone changed the original: %q", got)
	}
	if _, ok := orig.Headers["X-New"]; ok {
		t.Error("key added to the clone leaked into the original")
	}
}

func TestRequestOptions_WithHeaderDoesNotMutateReceiver(t *testing.T) {
	base := client.DefaultOptions().WithHeader("X-Key", "base")
	derived := base.WithHeader("X-Key", "derived")

	if got := base.Headers["X-Key"]; got != "base" {
		t.Errorf("WithHeader mutated the receiver: %q", got)
	}
	if got := derived.Headers["X-Key"]; got != "derived" {
		t.Errorf("derived copy missing override: %q", got)
	}
}
