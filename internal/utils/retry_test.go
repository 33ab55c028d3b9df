package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		attempts  int
		failFirst int
		permanent bool
		wantCalls int
		wantErr   error
	}{
		{name: "first try", attempts: 3, failFirst: 0, wantCalls: 1},
		{name: "succeeds on last", attempts: 3, failFirst: 2, wantCalls: 3},
		{name: "exhausted", attempts: 3, failFirst: 5, wantCalls: 3, wantErr: boom},
		{name: "permanent stops", attempts: 3, failFirst: 5, permanent: true, wantCalls: 1, wantErr: boom},
		{name: "zero attempts still calls once", attempts: 0, failFirst: 5, wantCalls: 1, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func(context.Context) error {
				calls++
				if calls <= tt.failFirst {
					if tt.permanent {
						return Permanent(boom)
					}
					return boom
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if IsPermanent(err) {
				t.Error("Retry() leaked the Permanent wrapper")
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
