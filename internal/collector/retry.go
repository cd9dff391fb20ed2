package collector

import (
	"context"
	"time"

	"TrendSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Retry defaults.
const (
	DefaultAttempts = 2
	DefaultBackoff  = 2 * time.Second
)

// RetryProvider retries failed fetches a fixed number of times with a fixed
// pause. Only context cancellation stops it early.
type RetryProvider struct {
	inner    Provider
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

// NewRetryProvider wraps inner. Attempts below 1 are treated as 1.
func NewRetryProvider(inner Provider, attempts int, backoff time.Duration, log zerolog.Logger) *RetryProvider {
	return &RetryProvider{inner: inner, attempts: max(1, attempts), backoff: backoff, log: log}
}

func (r *RetryProvider) Name() string { return r.inner.Name() }

// Batch returns the inner provider's batch capability, if any.
func (r *RetryProvider) Batch() (BatchProvider, bool) {
	bp, ok := r.inner.(BatchProvider)
	return bp, ok
}

func retry[T any](ctx context.Context, r *RetryProvider, op, symbol string, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 1; attempt <= r.attempts; attempt++ {
		v, err = fn()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || attempt == r.attempts {
			break
		}
		r.log.Warn().Err(err).Str("symbol", symbol).Str("op", op).Int("attempt", attempt).Msg("fetch failed, retrying")
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return v, unavailable(err)
}

func (r *RetryProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	return retry(ctx, r, "daily", symbol, func() ([]model.PriceBar, error) {
		return r.inner.FetchDailyBars(ctx, symbol, days)
	})
}

func (r *RetryProvider) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	return retry(ctx, r, "weekly", symbol, func() ([]model.PriceBar, error) {
		return r.inner.FetchWeeklyBars(ctx, symbol, weeks)
	})
}

func (r *RetryProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	return retry(ctx, r, "fundamentals", symbol, func() (*model.Fundamentals, error) {
		return r.inner.FetchFundamentals(ctx, symbol)
	})
}

// FetchDailyBatch retries the whole batch. It fails immediately when the
// inner provider has no batch support.
func (r *RetryProvider) FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	bp, ok := r.Batch()
	if !ok {
		return nil, ErrNoBatch
	}
	return retry(ctx, r, "batch", "", func() (map[string][]model.PriceBar, error) {
		return bp.FetchDailyBatch(ctx, symbols, days)
	})
}
