package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go/v3"
)

// RetryOption configures WithRetry.
type RetryOption func(*retrying)

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *retrying) { r.initial = d }
}

type retrying struct {
	next     Completer
	maxTries uint
	initial  time.Duration
}

// WithRetry retries next up to maxTries attempts with exponential backoff.
// Context cancellation, empty responses and non-retryable HTTP statuses stop
// immediately. maxTries below 2 returns next unchanged.
func WithRetry(next Completer, maxTries uint, opts ...RetryOption) Completer {
	if maxTries < 2 {
		return next
	}
	r := &retrying{next: next, maxTries: maxTries, initial: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retrying) Complete(ctx context.Context, req Request) (Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	op := func() (Response, error) {
		resp, err := r.next.Complete(ctx, req)
		if err != nil && !retryable(ctx, err) {
			return Response{}, backoff.Permanent(err)
		}
		return resp, err
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(eb), backoff.WithMaxTries(r.maxTries))
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	status := 0
	var oaErr *openai.Error
	var anErr *anthropic.Error
	switch {
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	case errors.As(err, &anErr):
		status = anErr.StatusCode
	}
	if status == 0 {
		return true
	}
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}
