package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"golang.org/x/time/rate"
)

// CompletionOptions are per-call sampling settings.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completer sends a single prompt to a chat model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// LLM is the production Completer: an OpenAI-compatible chat client behind a
// shared rate limiter and a retry policy.
type LLM struct {
	client  *llm.Client
	limiter *rate.Limiter
	retry   RetryPolicy
	model   string
}

// NewRateLimiter allows rpm requests per minute with a burst of one.
// rpm <= 0 disables limiting.
func NewRateLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// NewLLM wraps client. limiter may be shared with other model callers.
func NewLLM(client *llm.Client, model string, limiter *rate.Limiter, retry RetryPolicy) *LLM {
	return &LLM{client: client, model: model, limiter: limiter, retry: retry}
}

// Model returns the configured model name.
func (l *LLM) Model() string { return l.model }

// Complete sends prompt as a single user message.
func (l *LLM) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	metrics.LLMCalls.Add(1)
	start := time.Now()
	resp, err := RetryDo(ctx, l.retry, func() (string, error) {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		return l.client.Complete(ctx, "", prompt,
			llm.WithChatTemperature(opts.Temperature),
			llm.WithChatMaxTokens(opts.MaxTokens),
		)
	})
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	slog.Debug("llm: completion",
		slog.String("model", l.model),
		slog.Int("prompt_len", len(prompt)),
		slog.Int("reply_len", len(resp)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return strings.TrimSpace(resp), nil
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
