package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glasswing-io/fetchr/client"
)

func TestErrorWrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{
			name:   "configuration error unwraps",
			err:    &client.ConfigurationError{Err: context.DeadlineExceeded},
			target: context.DeadlineExceeded,
		},
		{
			name:   "cancellation error unwraps",
			err:    &client.CancellationError{Kind: client.CancelCaller, Err: context.Canceled},
			target: context.Canceled,
		},
		{
			name:   "decode error unwraps",
			err:    &client.DecodeError{Format: "json", Err: context.Canceled},
			target: context.Canceled,
		},
		{
			name:   "http error unwraps",
			err:    &client.HTTPError{StatusCode: 500, Message: "boom", Err: client.ErrRetriesExhausted},
			target: client.ErrRetriesExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.target)
			}
		})
	}
}

func TestCancelKind_String(t *testing.T) {
	tests := []struct {
		kind client.CancelKind
		want string
	}{
		{client.CancelCaller, "caller"},
		{client.CancelTotalTimeout, "total timeout"},
		{client.CancelConnectTimeout, "connect timeout"},
		{client.CancelKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("CancelKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
