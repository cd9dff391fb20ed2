package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/history"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/internal/synthetic"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	data  model.HistoryMap
	saves int
	err   error
}

func (s *memStore) Load(_ context.Context) (model.HistoryMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *memStore) Save(_ context.Context, m model.HistoryMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = m
	s.saves++
	return nil
}

type memSink struct {
	results   []model.ScanResult
	overview  []model.ETFOverview
	summaries []model.RunSummary
	closed    bool
	err       error
}

func (s *memSink) Write(_ context.Context, results []model.ScanResult) error {
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, results...)
	return nil
}

func (s *memSink) WriteOverview(_ context.Context, rows []model.ETFOverview) error {
	s.overview = append(s.overview, rows...)
	return nil
}

func (s *memSink) WriteSummary(_ context.Context, sum model.RunSummary) error {
	s.summaries = append(s.summaries, sum)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func newScanner(t *testing.T, p strategy.Profile, provider collector.Provider, store HistoryStore, opts ...Option) *Scanner {
	t.Helper()
	tracker := history.NewTracker(nil)
	e, err := strategy.NewEngine(p, strategy.WithNovelty(tracker))
	require.NoError(t, err)
	return New(provider, e, tracker, store, opts...)
}

func profile(t *testing.T, name string) strategy.Profile {
	t.Helper()
	p, err := strategy.LookupProfile(name)
	require.NoError(t, err)
	return p
}

func TestRun_RoundTrip(t *testing.T) {
	vcp := synthetic.VCPBars(start)
	mock := &collector.MockProvider{
		Daily: map[string][]model.PriceBar{"VCP": vcp, "SMALL": vcp},
		Fundamentals: map[string]*model.Fundamentals{
			"SMALL": {QuoteType: "EQUITY", MarketCap: null.FloatFrom(2e8)},
		},
	}
	store := &memStore{}
	sink := &memSink{}
	s := newScanner(t, profile(t, "enhanced_obv"), mock, store, WithSinks(sink))

	report, err := s.Run(context.Background(), []string{"VCP", "SMALL"})
	require.NoError(t, err)

	sum := report.Summary
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, "enhanced_obv", sum.Profile)
	assert.Equal(t, 2, sum.Symbols)
	assert.Equal(t, 2, sum.Scanned)
	assert.Equal(t, 1, sum.Qualifying)
	assert.Zero(t, sum.Errors)
	assert.False(t, sum.Stopped)

	require.Len(t, report.Results, 2)
	top := report.Results[0]
	assert.Equal(t, "VCP", top.Symbol)
	assert.Equal(t, sum.RunID, top.RunID)
	assert.Equal(t, model.CategoryStage2Premium, top.Category)
	assert.Equal(t, 34.0, top.Total)
	assert.True(t, top.Stage2)
	assert.Equal(t, model.CategoryRejected, report.Results[1].Category)

	// One batch request served the bars; fundamentals were fetched once.
	assert.Equal(t, 1, mock.BatchCalls())
	assert.Zero(t, mock.Calls("daily", "VCP"))
	assert.Equal(t, 1, mock.Calls("fundamentals", "VCP"))

	require.Equal(t, 1, store.saves)
	session := model.DateKey(vcp[len(vcp)-1].Time)
	assert.Equal(t, 34.0, store.data["VCP"][session].Score)
	assert.NotContains(t, store.data, "SMALL")

	assert.Len(t, sink.results, 2)
	require.Len(t, sink.summaries, 1)
	assert.False(t, sink.summaries[0].FinishedAt.IsZero())
}

func TestRun_BatchFailureFallsBackToSingleFetches(t *testing.T) {
	mock := &collector.MockProvider{FailBatch: true}
	s := newScanner(t, profile(t, "core"), mock, &memStore{}, WithBatchSize(2))

	report, err := s.Run(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Scanned)
	assert.Zero(t, report.Summary.Errors)
	assert.Equal(t, 2, mock.BatchCalls())
	for _, sym := range []string{"A", "B", "C"} {
		assert.Equal(t, 1, mock.Calls("daily", sym), sym)
	}
}

func TestRun_ErrorsCountedAndSampled(t *testing.T) {
	mock := &collector.MockProvider{Fail: map[string]error{}}
	symbols := []string{"GOOD"}
	for i := 0; i < 12; i++ {
		sym := fmt.Sprintf("BAD%02d", i)
		mock.Fail[sym] = model.ErrProviderUnavailable
		symbols = append(symbols, sym)
	}
	s := newScanner(t, profile(t, "core"), mock, &memStore{})

	report, err := s.Run(context.Background(), symbols)
	require.NoError(t, err)
	sum := report.Summary
	assert.Equal(t, 13, sum.Scanned)
	assert.Equal(t, 12, sum.Errors)
	assert.Len(t, sum.ErrorSample, MaxErrorSample)
	assert.Contains(t, sum.ErrorSample[0], "BAD00")
	require.Len(t, report.Results, 1)
	assert.Equal(t, "GOOD", report.Results[0].Symbol)
}

func TestRun_ShortHistoryIsAnError(t *testing.T) {
	mock := &collector.MockProvider{Daily: map[string][]model.PriceBar{"NEW": {}}}
	s := newScanner(t, profile(t, "core"), mock, &memStore{})

	report, err := s.Run(context.Background(), []string{"NEW"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Errors)
	assert.Contains(t, report.Summary.ErrorSample[0], model.ErrInsufficientData.Error())
}

func TestRun_ETFOverview(t *testing.T) {
	mock := &collector.MockProvider{
		Daily: map[string][]model.PriceBar{"VCP": synthetic.VCPBars(start), "SPY": synthetic.TrendBars(start, 300, 400, 0.001)},
		Fail:  map[string]error{"GONE": model.ErrProviderUnavailable},
	}
	sink := &memSink{}
	s := newScanner(t, profile(t, "core"), mock, &memStore{}, WithSinks(sink), WithETFs("SPY", "VCP", "GONE"))

	report, err := s.Run(context.Background(), []string{"VCP"})
	require.NoError(t, err)

	require.Len(t, report.Overview, 2, "an ETF that cannot be fetched is left out")
	assert.Equal(t, "SPY", report.Overview[0].Symbol)
	assert.Equal(t, report.Summary.RunID, report.Overview[0].RunID)
	assert.True(t, report.Overview[0].AboveMA50)
	assert.Equal(t, "VCP", report.Overview[1].Symbol)
	assert.True(t, report.Overview[1].Stage2)
	assert.Zero(t, report.Summary.Errors)

	// Bars already fetched for the scan are reused.
	assert.Equal(t, 1, mock.BatchCalls())
	assert.Zero(t, mock.Calls("daily", "VCP"))
	assert.Equal(t, 1, mock.Calls("daily", "SPY"))

	assert.Equal(t, report.Overview, sink.overview)
}

func TestRun_StoppedRunSkipsOverview(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &memSink{}
	s := newScanner(t, profile(t, "core"), &collector.MockProvider{}, &memStore{}, WithSinks(sink), WithETFs("SPY"))

	report, err := s.Run(ctx, []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, report.Overview)
	assert.Empty(t, sink.overview)
}

// panicOn panics while fetching one symbol.
type panicOn struct {
	*collector.MockProvider
	symbol string
}

func (p *panicOn) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	if symbol == p.symbol {
		panic("malformed bars")
	}
	return p.MockProvider.FetchDailyBars(ctx, symbol, days)
}

func TestRun_PanicIsCountedAndRunContinues(t *testing.T) {
	provider := &panicOn{MockProvider: &collector.MockProvider{FailBatch: true}, symbol: "BOOM"}
	store := &memStore{}
	s := newScanner(t, profile(t, "core"), provider, store)

	report, err := s.Run(context.Background(), []string{"A", "BOOM", "C"})
	require.NoError(t, err)

	sum := report.Summary
	assert.Equal(t, 3, sum.Scanned)
	assert.Equal(t, 1, sum.Errors)
	require.Len(t, sum.ErrorSample, 1)
	assert.Contains(t, sum.ErrorSample[0], "BOOM")
	assert.Contains(t, sum.ErrorSample[0], ErrPanic.Error())
	require.Len(t, report.Results, 2)
	assert.Equal(t, "C", report.Results[1].Symbol)
	assert.Equal(t, 1, store.saves)
}

// steepRun is a flat base followed by ten sessions rising 3% a day.
func steepRun() []model.PriceBar {
	closes := make([]float64, 0, 90)
	volumes := make([]float64, 0, 90)
	p := 100.0
	for i := 0; i < 90; i++ {
		if i >= 80 {
			p *= 1.03
		}
		closes = append(closes, p)
		volumes = append(volumes, 1_000_000)
	}
	return synthetic.Bars(closes, volumes, start, 0.005)
}

func TestRun_ExtendedSymbolIsNotRecorded(t *testing.T) {
	p := profile(t, "core")
	p.QualifyThreshold = 1
	mock := &collector.MockProvider{Daily: map[string][]model.PriceBar{"RUN": steepRun()}}
	store := &memStore{}
	s := newScanner(t, p, mock, store)

	report, err := s.Run(context.Background(), []string{"RUN"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.True(t, res.Extended)
	assert.Equal(t, model.CategoryExtended, res.Category)
	assert.GreaterOrEqual(t, res.Total, p.QualifyThreshold)
	assert.Zero(t, report.Summary.Qualifying)

	require.Equal(t, 1, store.saves)
	assert.NotContains(t, store.data, "RUN")
}

// cancelOn cancels the run while fetching one symbol.
type cancelOn struct {
	*collector.MockProvider
	symbol string
	cancel context.CancelFunc
}

func (c *cancelOn) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	if symbol == c.symbol {
		c.cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.MockProvider.FetchDailyBars(ctx, symbol, days)
}

func TestRun_StopFinishesCurrentSymbolAndFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &cancelOn{MockProvider: &collector.MockProvider{FailBatch: true}, symbol: "B", cancel: cancel}
	store := &memStore{}
	sink := &memSink{}
	s := newScanner(t, profile(t, "core"), provider, store, WithSinks(sink))

	report, err := s.Run(ctx, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	sum := report.Summary
	assert.True(t, sum.Stopped)
	assert.Equal(t, 2, sum.Scanned)
	assert.Zero(t, sum.Errors, "the in-flight symbol is not cancelled")
	assert.Len(t, report.Results, 2)
	assert.Zero(t, provider.Calls("daily", "C"))

	assert.Equal(t, 1, store.saves)
	assert.Len(t, sink.results, 2)
	require.Len(t, sink.summaries, 1)
	assert.True(t, sink.summaries[0].Stopped)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &memStore{}
	s := newScanner(t, profile(t, "core"), &collector.MockProvider{}, store)

	report, err := s.Run(ctx, []string{"A"})
	require.NoError(t, err)
	assert.True(t, report.Summary.Stopped)
	assert.Zero(t, report.Summary.Scanned)
	assert.Equal(t, 1, store.saves)
}

// noveltyProfile turns a perfect trend template into a strong score.
func noveltyProfile() strategy.Profile {
	return strategy.Profile{
		Name:             "trend_only",
		Components:       []model.Component{model.ComponentTrend},
		DeclaredMax:      10,
		StrongThreshold:  8,
		QualifyThreshold: 8,
		Ladder: strategy.Ladder{
			{MinScore: 8, RequireNew: true, Category: model.CategoryNewStrongBuy},
			{MinScore: 8, Category: model.CategoryStrongBuy},
		},
	}
}

func TestRun_NoveltyAcrossRuns(t *testing.T) {
	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	mock := &collector.MockProvider{Daily: map[string][]model.PriceBar{"VCP": synthetic.VCPBars(start)}}
	s := newScanner(t, noveltyProfile(), mock, store)

	first, err := s.Run(context.Background(), []string{"VCP"})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, model.CategoryNewStrongBuy, first.Results[0].Category)
	assert.True(t, first.Results[0].IsNew)

	// Re-running the same session keeps it new.
	again, err := s.Run(context.Background(), []string{"VCP"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryNewStrongBuy, again.Results[0].Category)

	// The next session already has a strong record behind it.
	mock.Daily["VCP"] = synthetic.VCPBars(start.AddDate(0, 0, 1))
	next, err := s.Run(context.Background(), []string{"VCP"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryStrongBuy, next.Results[0].Category)
	assert.False(t, next.Results[0].IsNew)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved["VCP"], 2)
}

func TestRun_HistoryLoadFailureAborts(t *testing.T) {
	store := &memStore{err: errors.New("disk gone")}
	mock := &collector.MockProvider{}
	s := newScanner(t, profile(t, "core"), mock, store)

	report, err := s.Run(context.Background(), []string{"A"})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Zero(t, mock.Calls("daily", "A"))
}

func TestRun_SinkFailureStillFlushesOthers(t *testing.T) {
	broken := &memSink{err: errors.New("disk full")}
	ok := &memSink{}
	s := newScanner(t, profile(t, "core"), &collector.MockProvider{}, &memStore{}, WithSinks(broken, ok))

	report, err := s.Run(context.Background(), []string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, report)
	assert.Len(t, ok.results, 1)
	assert.Empty(t, broken.summaries)

	require.NoError(t, s.Close())
	assert.True(t, broken.closed)
	assert.True(t, ok.closed)
}
