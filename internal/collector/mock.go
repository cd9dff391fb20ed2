package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/synthetic"

	"github.com/guregu/null/v6"
)

// MockProvider returns controllable fixed data for development and testing.
// Symbols without explicit bars get a generated uptrend.
type MockProvider struct {
	Price        float64
	Daily        map[string][]model.PriceBar
	Fundamentals map[string]*model.Fundamentals

	// Fail makes every fetch for a symbol return the given error.
	Fail      map[string]error
	FailBatch bool

	mu         sync.Mutex
	calls      map[string]int
	batchCalls int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) count(kind, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[kind+":"+symbol]++
}

// Calls returns how many times kind ("daily", "weekly", "fundamentals") was
// fetched for symbol.
func (m *MockProvider) Calls(kind, symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind+":"+symbol]
}

// BatchCalls returns the number of batch requests served.
func (m *MockProvider) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

func (m *MockProvider) daily(symbol string, days int) ([]model.PriceBar, error) {
	if err := m.Fail[symbol]; err != nil {
		return nil, fmt.Errorf("mock %s: %w", symbol, err)
	}
	if bars, ok := m.Daily[symbol]; ok {
		return tail(bars, days), nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockProvider) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.PriceBar, error) {
	m.count("daily", symbol)
	return m.daily(symbol, days)
}

func (m *MockProvider) FetchWeeklyBars(_ context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	m.count("weekly", symbol)
	daily, err := m.daily(symbol, weeks*5)
	if err != nil {
		return nil, err
	}
	return tail(AggregateWeekly(daily), weeks), nil
}

func (m *MockProvider) FetchFundamentals(_ context.Context, symbol string) (*model.Fundamentals, error) {
	m.count("fundamentals", symbol)
	if err := m.Fail[symbol]; err != nil {
		return nil, fmt.Errorf("mock %s: %w", symbol, err)
	}
	if f, ok := m.Fundamentals[symbol]; ok {
		return f, nil
	}
	return &model.Fundamentals{QuoteType: "EQUITY", MarketCap: null.FloatFrom(10e9)}, nil
}

func (m *MockProvider) FetchDailyBatch(_ context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.FailBatch {
		return nil, fmt.Errorf("mock batch: %w", model.ErrProviderUnavailable)
	}
	out := make(map[string][]model.PriceBar, len(symbols))
	for _, s := range symbols {
		if bars, err := m.daily(s, days); err == nil {
			out[s] = bars
		}
	}
	return out, nil
}

func generateMockBars(basePrice float64, count int) []model.PriceBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -count*7/5-7)
	return tail(synthetic.TrendBars(start, count, basePrice, 0.001), count)
}
