package ai

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/logger"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // 0.0 to 1.0, fraction of delay to randomize
}

// DefaultRetryConfig retries a transient Gemini failure once.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     1,
	InitialDelay:   1 * time.Second,
	MaxDelay:       5 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
}

// WithRetry executes fn with exponential backoff and jitter.
// It stops when the error is not a retryable AppError, when the context is
// done, or when MaxRetries is exhausted.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || !appErr.Retryable {
			return zero, err
		}
		if attempt >= cfg.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
		if delay > float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
		}
		if cfg.JitterFraction > 0 {
			delay += delay * cfg.JitterFraction * (rand.Float64()*2 - 1)
			if delay < 0 {
				delay = float64(cfg.InitialDelay)
			}
		}

		logger.Get().Warnw("Retrying AI request",
			"attempt", attempt+1,
			"delay", time.Duration(delay),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(time.Duration(delay)):
		}
	}

	return zero, lastErr
}
