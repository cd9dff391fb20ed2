package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"TrendSentinel/internal/model"
)

// Provider fetches market data for one symbol at a time. Failures wrap
// model.ErrProviderUnavailable.
type Provider interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error)
	FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error)
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
	Name() string
}

// BatchProvider can fetch daily bars for many symbols in one round trip.
// Symbols missing from the returned map were not available.
type BatchProvider interface {
	Provider
	FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error)
}

// ErrNoBatch is returned by wrappers whose inner provider cannot batch.
var ErrNoBatch = errors.New("provider does not support batch fetches")

// APIError is a non-success response from an HTTP provider.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap makes every APIError match model.ErrProviderUnavailable.
func (e *APIError) Unwrap() error { return model.ErrProviderUnavailable }

// unavailable wraps err so that it matches model.ErrProviderUnavailable.
func unavailable(err error) error {
	if err == nil || errors.Is(err, model.ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrProviderUnavailable, err)
}

// normalizeBars sorts bars by time and keeps the last bar of any calendar
// date that appears more than once.
func normalizeBars(bars []model.PriceBar) []model.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && model.DateKey(out[n-1].Time) == model.DateKey(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// tail keeps the most recent n bars.
func tail(bars []model.PriceBar, n int) []model.PriceBar {
	if n > 0 && len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}

// AggregateWeekly folds daily bars into ISO-week bars stamped with the first
// session of each week.
func AggregateWeekly(daily []model.PriceBar) []model.PriceBar {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.PriceBar
	week := daily[0]
	for _, d := range daily[1:] {
		wy, ww := week.Time.ISOWeek()
		dy, dw := d.Time.ISOWeek()
		if wy != dy || ww != dw {
			weekly = append(weekly, week)
			week = d
			continue
		}
		week.High = max(week.High, d.High)
		week.Low = min(week.Low, d.Low)
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
