package langchain

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tmc/langchaingo/llms"

	l3agi "github.com/psyuktha/L3AGI"
)

// retryModel retries transient provider failures (429 and 503) with
// exponential backoff.
type retryModel struct {
	llms.Model
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// RetryOption configures WithRetry.
type RetryOption func(*retryModel)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryModel) { r.maxAttempts = n }
}

// RetryBaseDelay sets the delay before the second attempt (default: 1s).
// Each later delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryModel) { r.baseDelay = d }
}

// RetryLogger sets the logger for retry events.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryModel) { r.logger = l }
}

// WithRetry wraps m with automatic retry on transient provider errors.
// A streaming call is only retried while nothing has been streamed yet, so
// the consumer never sees a fragment twice.
func WithRetry(m llms.Model, opts ...RetryOption) llms.Model {
	r := &retryModel{Model: m, maxAttempts: 3, baseDelay: time.Second}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

func (r *retryModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var probe llms.CallOptions
	for _, o := range options {
		o(&probe)
	}
	var streamed atomic.Bool
	if fn := probe.StreamingFunc; fn != nil {
		options = append(options, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed.Store(true)
			return fn(ctx, chunk)
		}))
	}

	var last error
	for i := range r.maxAttempts {
		resp, err := r.Model.GenerateContent(ctx, messages, options...)
		if err == nil || !isTransient(err) || streamed.Load() {
			return resp, err
		}
		last = err
		r.logger.Warn("retrying transient error", "attempt", i+1, "max_attempts", r.maxAttempts, "error", err)
		if i == r.maxAttempts-1 {
			break
		}
		timer := time.NewTimer(retryBackoff(r.baseDelay, i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	r.logger.Error("all retry attempts exhausted", "attempts", r.maxAttempts, "error", last)
	return nil, last
}

func (r *retryModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

// isTransient reports whether err is a 429 or 503 from the provider.
// langchaingo's clients only carry the status in the message text.
func isTransient(err error) bool {
	var httpErr *l3agi.ErrHTTP
	if errors.As(err, &httpErr) {
		return httpErr.Status == 429 || httpErr.Status == 503
	}
	msg := err.Error()
	return strings.Contains(msg, "status code: 429") || strings.Contains(msg, "status code: 503")
}

// retryBackoff returns base * 2^i plus up to 50% jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}
