package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gavasques/scribesync/youtube"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), IsTransientFetch, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), IsTransientFetch, func(context.Context) error {
		calls++
		if calls < 3 {
			return &youtube.FetchError{Kind: youtube.KindNetwork, Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := &youtube.FetchError{Kind: youtube.KindAuthExpired}
	calls := 0
	err := Do(context.Background(), fastConfig(), IsTransientFetch, func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do = %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent failures)", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	transient := &youtube.FetchError{Kind: youtube.KindRateLimited}
	calls := 0
	err := Do(context.Background(), fastConfig(), IsTransientFetch, func(context.Context) error {
		calls++
		return transient
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, transient) {
		t.Fatalf("Do = %v, want wrapped transient error", err)
	}
	if !strings.Contains(err.Error(), "attempts exhausted") {
		t.Errorf("error %q does not name the exhausted budget", err)
	}
}

func TestDoRespectsContextDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Minute, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, IsTransientFetch, func(context.Context) error {
		calls++
		return &youtube.FetchError{Kind: youtube.KindNetwork}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled during backoff)", calls)
	}
}

func TestIsTransientFetch(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", &youtube.FetchError{Kind: youtube.KindNetwork}, true},
		{"rate limited", &youtube.FetchError{Kind: youtube.KindRateLimited}, true},
		{"quota", &youtube.FetchError{Kind: youtube.KindQuotaExceeded}, false},
		{"auth", &youtube.FetchError{Kind: youtube.KindAuthExpired}, false},
		{"unknown kind", &youtube.FetchError{Kind: youtube.KindUnknown}, false},
		{"wrapped network", fmt.Errorf("fetch: %w", &youtube.FetchError{Kind: youtube.KindNetwork}), true},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"untyped", errors.New("whatever"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientFetch(tt.err); got != tt.want {
				t.Errorf("IsTransientFetch(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoUnsetMaxBackoffStillDelays(t *testing.T) {
	// A zero (unset) MaxBackoff means uncapped, not zero-length sleeps.
	cfg := Config{MaxAttempts: 2, InitialBackoff: 50 * time.Millisecond, Multiplier: 2}

	start := time.Now()
	err := Do(context.Background(), cfg, IsTransientFetch, func(context.Context) error {
		return &youtube.FetchError{Kind: youtube.KindNetwork}
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Do succeeded, want exhausted budget")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("retry slept %v between attempts, want at least the initial backoff", elapsed)
	}
}

func TestDoNilClassifierDefaults(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), nil, func(context.Context) error {
		calls++
		return &youtube.FetchError{Kind: youtube.KindAuthExpired}
	})
	if err == nil || calls != 1 {
		t.Errorf("Do = %v after %d calls, want immediate permanent failure", err, calls)
	}
}
