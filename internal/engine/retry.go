package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

// RetryPolicy controls retry behavior for one class of external call.
// Backoff receives the 1-based attempt that just failed and its error.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int, err error) time.Duration
	Retryable   func(err error) bool
}

// Exponential returns a backoff that starts at initial and multiplies by
// factor per attempt, capped at max.
func Exponential(initial, max time.Duration, factor float64) func(int, error) time.Duration {
	return func(attempt int, _ error) time.Duration {
		wait := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
		if wait > max {
			wait = max
		}
		return wait
	}
}

// DefaultRetryPolicy is suitable for most HTTP calls.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	Backoff:     Exponential(500*time.Millisecond, 10*time.Second, 2.0),
	Retryable:   IsRetryable,
}

// LLMRetryPolicy retries chat completions on rate limits and transient errors.
var LLMRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     RateLimitBackoff(10*time.Second, 2*time.Second),
	Retryable:   IsRetryable,
}

// TranscriptRetryPolicy is used for multimodal transcript requests: every
// error is retried, rate limits back off linearly.
var TranscriptRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     RateLimitBackoff(10*time.Second, 5*time.Second),
	Retryable:   func(error) bool { return true },
}

// RateLimitBackoff waits step*attempt after a rate-limit error and a flat
// other otherwise.
func RateLimitBackoff(step, other time.Duration) func(int, error) time.Duration {
	return func(attempt int, err error) time.Duration {
		if IsRateLimited(err) {
			return step * time.Duration(attempt)
		}
		return other
	}
}

// RetryDo calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. Context cancellation stops the loop.
func RetryDo[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := max(p.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}

		if attempt < attempts {
			var wait time.Duration
			if p.Backoff != nil {
				wait = p.Backoff(attempt, err)
			}
			slog.Debug("retrying", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
			if err := Sleep(ctx, wait); err != nil {
				return zero, err
			}
		}
	}
	return zero, lastErr
}

// RetryHTTP executes an HTTP request function with retry logic.
// Responses with a retryable status are closed and retried.
func RetryHTTP(ctx context.Context, p RetryPolicy, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, p, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTTPStatusError wraps a retryable HTTP status code.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

// IsRateLimited reports whether err looks like a provider rate-limit or quota error.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "too many requests")
}

// IsRetryable returns true for transient errors worth retrying.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return isRetryableStatus(httpErr.StatusCode)
	}

	if IsRateLimited(err) {
		return true
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Timeout errors (net.Error includes OpError, so check after OpError)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, "status "+code) || strings.Contains(msg, "HTTP "+code) {
			return true
		}
	}
	return false
}

// isRetryableStatus returns true for HTTP status codes worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
