// Package ai talks to the generative model used for invoice OCR and the
// bookkeeping assistant.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/extraction"
)

// File is an inline document sent along with a prompt.
type File struct {
	MIMEType string
	Data     []byte
}

// Generator produces model text for a prompt and an optional file.
type Generator interface {
	Generate(ctx context.Context, prompt string, file *File) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, file *File) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, file *File) (string, error) {
	return f(ctx, prompt, file)
}

// Client runs prompts through a Generator with a per-call timeout and a
// bounded retry. Errors are returned as AppErrors.
type Client struct {
	gen     Generator
	model   string
	timeout time.Duration
	retry   RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each call including its retry.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient wraps gen. model is recorded on stored extractions.
func NewClient(gen Generator, model string, opts ...Option) *Client {
	c := &Client{
		gen:     gen,
		model:   model,
		timeout: 60 * time.Second,
		retry:   DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name used by the client.
func (c *Client) Model() string {
	return c.model
}

// ExtractInvoice sends the invoice file with the extraction prompt and returns
// the raw model text. The text is untrusted; pass it to extraction.Reconcile.
func (c *Client) ExtractInvoice(ctx context.Context, file File) (string, error) {
	return c.run(ctx, extraction.Prompt, &file)
}

// Ask sends a text-only prompt and returns the model's answer.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	return c.run(ctx, prompt, nil)
}

func (c *Client) run(ctx context.Context, prompt string, file *File) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return WithRetry(ctx, c.retry, func(ctx context.Context) (string, error) {
		text, err := c.gen.Generate(ctx, prompt, file)
		if err != nil {
			return "", classify(ctx, err)
		}
		return text, nil
	})
}

// classify maps a generator error onto the AppError taxonomy. Quota and
// server-side failures are retryable; other client errors are not.
func classify(ctx context.Context, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrExternalService, "AI request was cancelled"), err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrExternalService, "AI request timed out"), err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.ErrAIRateLimited, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return apperrors.Wrap(apperrors.ErrExternalService, err)
		case apiErr.Code >= http.StatusBadRequest:
			return apperrors.Wrap(apperrors.ErrAIRejected, fmt.Errorf("gemini status %d: %w", apiErr.Code, err))
		}
	}

	// Anything else is a transport failure.
	return apperrors.Wrap(apperrors.ErrExternalService, err)
}
