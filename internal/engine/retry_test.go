package engine

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     Exponential(time.Millisecond, 10*time.Millisecond, 2),
		Retryable:   IsRetryable,
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &HTTPStatusError{429}, true},
		{"http 502", &HTTPStatusError{502}, true},
		{"http 503", &HTTPStatusError{503}, true},
		{"http 400", &HTTPStatusError{400}, false},
		{"regular error", errors.New("something"), false},
		{"quota message", errors.New("googleapi: Error 429: Quota exceeded"), true},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED: try later"), true},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateLimitBackoff(t *testing.T) {
	b := RateLimitBackoff(10*time.Second, 5*time.Second)
	if got := b(1, errors.New("429 Too Many Requests")); got != 10*time.Second {
		t.Errorf("attempt 1 rate limited: got %v", got)
	}
	if got := b(2, errors.New("quota exceeded")); got != 20*time.Second {
		t.Errorf("attempt 2 rate limited: got %v", got)
	}
	if got := b(2, errors.New("boom")); got != 5*time.Second {
		t.Errorf("plain error: got %v", got)
	}
}

func TestExponentialCapped(t *testing.T) {
	b := Exponential(100*time.Millisecond, time.Second, 2)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, w := range want {
		if got := b(i+1, nil); got != w {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestRetryDoSuccess(t *testing.T) {
	calls := 0
	got, err := RetryDo(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoRetryThenSuccess(t *testing.T) {
	calls := 0
	got, err := RetryDo(context.Background(), fastPolicy(4), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPStatusError{503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoExhausted(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "", &HTTPStatusError{502}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoNonRetryable(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "", errors.New("permanent error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-retryable), got %d", calls)
	}
}

func TestRetryDoNilPredicateRetriesEverything(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3}
	calls := 0
	_, err := RetryDo(context.Background(), p, func() (int, error) {
		calls++
		return 0, errors.New("anything")
	})
	if err == nil || calls != 3 {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}

func TestRetryDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryDo(ctx, fastPolicy(3), func() (string, error) {
		return "", &HTTPStatusError{503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
