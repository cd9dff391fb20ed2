package collector

import (
	"context"
	"fmt"
	"sync"

	"TrendSentinel/internal/model"
)

// Memo caches successful fetches for the lifetime of one scan so that each
// symbol's bars and fundamentals are requested at most once.
type Memo struct {
	inner Provider

	mu           sync.Mutex
	bars         map[string][]model.PriceBar
	fundamentals map[string]*model.Fundamentals
}

// NewMemo wraps inner with an empty cache.
func NewMemo(inner Provider) *Memo {
	m := &Memo{inner: inner}
	m.Reset()
	return m
}

// Reset drops every cached entry.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = make(map[string][]model.PriceBar)
	m.fundamentals = make(map[string]*model.Fundamentals)
}

func (m *Memo) Name() string { return m.inner.Name() }

func barsKey(kind, symbol string, n int) string { return fmt.Sprintf("%s:%s:%d", kind, symbol, n) }

func (m *Memo) lookup(key string) ([]model.PriceBar, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars, ok := m.bars[key]
	return bars, ok
}

func (m *Memo) store(key string, bars []model.PriceBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[key] = bars
}

func (m *Memo) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	key := barsKey("daily", symbol, days)
	if bars, ok := m.lookup(key); ok {
		return bars, nil
	}
	bars, err := m.inner.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	m.store(key, bars)
	return bars, nil
}

func (m *Memo) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	key := barsKey("weekly", symbol, weeks)
	if bars, ok := m.lookup(key); ok {
		return bars, nil
	}
	bars, err := m.inner.FetchWeeklyBars(ctx, symbol, weeks)
	if err != nil {
		return nil, err
	}
	m.store(key, bars)
	return bars, nil
}

func (m *Memo) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	m.mu.Lock()
	f, ok := m.fundamentals[symbol]
	m.mu.Unlock()
	if ok {
		return f, nil
	}
	f, err := m.inner.FetchFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.fundamentals[symbol] = f
	m.mu.Unlock()
	return f, nil
}

// FetchDailyBatch fetches the symbols not cached yet through the inner
// batch provider and seeds the per-symbol cache with the results.
func (m *Memo) FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	out := make(map[string][]model.PriceBar, len(symbols))
	var missing []string
	for _, s := range symbols {
		if bars, ok := m.lookup(barsKey("daily", s, days)); ok {
			out[s] = bars
		} else {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	bp, ok := m.inner.(BatchProvider)
	if !ok {
		return nil, ErrNoBatch
	}
	fetched, err := bp.FetchDailyBatch(ctx, missing, days)
	if err != nil {
		return nil, err
	}
	for s, bars := range fetched {
		m.store(barsKey("daily", s, days), bars)
		out[s] = bars
	}
	return out, nil
}
