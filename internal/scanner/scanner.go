// Package scanner runs a profile over a symbol universe: it fetches bars in
// batches, scores each symbol, records qualifying scores in the history,
// summarizes the configured ETFs and hands the results to the configured sinks.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/history"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Defaults for a run.
const (
	DefaultBatchSize = 50
	DefaultDailyBars = 300
	MaxErrorSample   = 10
)

// ErrPanic marks a symbol whose scan panicked.
var ErrPanic = errors.New("scan panicked")

// ResultSink receives the results of a run.
type ResultSink interface {
	Write(ctx context.Context, results []model.ScanResult) error
	Close() error
}

// SummaryWriter is implemented by sinks that also want the run summary.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, s model.RunSummary) error
}

// OverviewWriter is implemented by sinks that want the ETF overview. It is
// called before WriteSummary.
type OverviewWriter interface {
	WriteOverview(ctx context.Context, rows []model.ETFOverview) error
}

// HistoryStore loads and saves the novelty history between runs.
type HistoryStore interface {
	Load(ctx context.Context) (model.HistoryMap, error)
	Save(ctx context.Context, m model.HistoryMap) error
}

// Report is the outcome of one run.
type Report struct {
	Summary  model.RunSummary
	Results  []model.ScanResult
	Overview []model.ETFOverview
}

// Scanner orchestrates scan runs. Runs are not safe to execute concurrently.
type Scanner struct {
	provider  collector.Provider
	engine    *strategy.Engine
	tracker   *history.Tracker
	store     HistoryStore
	sinks     []ResultSink
	etfs      []string
	batchSize int
	dailyBars int
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithSinks appends result sinks.
func WithSinks(sinks ...ResultSink) Option {
	return func(s *Scanner) { s.sinks = append(s.sinks, sinks...) }
}

// WithETFs sets the ETFs summarized in every run's market overview.
func WithETFs(symbols ...string) Option {
	return func(s *Scanner) { s.etfs = append(s.etfs, symbols...) }
}

// WithBatchSize sets the number of symbols fetched per batch request.
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDailyBars sets the number of daily bars requested per symbol.
func WithDailyBars(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.dailyBars = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Scanner) { s.now = now } }

// WithLogger sets the scanner logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Scanner) { s.log = l } }

// New returns a scanner. The engine must consult tracker for novelty; the
// scanner reloads tracker from store at the start of every run.
func New(provider collector.Provider, engine *strategy.Engine, tracker *history.Tracker, store HistoryStore, opts ...Option) *Scanner {
	s := &Scanner{
		provider:  provider,
		engine:    engine,
		tracker:   tracker,
		store:     store,
		batchSize: DefaultBatchSize,
		dailyBars: DefaultDailyBars,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans symbols. Per-symbol failures are counted in the summary and never
// abort the run. When ctx is cancelled the symbol in flight finishes, no new
// symbol starts, and the partial results and history are still flushed; the
// summary is then marked Stopped. The returned error reports history load and
// flush failures only.
func (s *Scanner) Run(ctx context.Context, symbols []string) (*Report, error) {
	profile := s.engine.Profile()
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("profile", profile.Name).Logger()

	m, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	s.tracker.Replace(m)

	report := &Report{Summary: model.RunSummary{
		RunID:     runID,
		Profile:   profile.Name,
		StartedAt: s.now(),
		Symbols:   len(symbols),
	}}
	sum := &report.Summary
	memo := collector.NewMemo(s.provider)

	log.Info().Int("symbols", len(symbols)).Int("history", s.tracker.Symbols()).Msg("scan started")

batches:
	for start := 0; start < len(symbols); start += s.batchSize {
		batch := symbols[start:min(start+s.batchSize, len(symbols))]
		if ctx.Err() != nil {
			sum.Stopped = true
			break
		}
		s.prefetch(ctx, memo, batch, log)

		for _, symbol := range batch {
			if ctx.Err() != nil {
				sum.Stopped = true
				break batches
			}
			res, qualifies, err := s.scanSymbol(context.WithoutCancel(ctx), memo, runID, symbol)
			sum.Scanned++
			if err != nil {
				sum.Errors++
				if len(sum.ErrorSample) < MaxErrorSample {
					sum.ErrorSample = append(sum.ErrorSample, fmt.Sprintf("%s: %v", symbol, err))
				}
				log.Warn().Err(err).Str("symbol", symbol).Msg("symbol failed")
				continue
			}
			if qualifies {
				sum.Qualifying++
			}
			report.Results = append(report.Results, res)
		}
		log.Debug().Int("scanned", sum.Scanned).Int("of", len(symbols)).Msg("batch done")
	}

	if sum.Stopped {
		log.Warn().Int("scanned", sum.Scanned).Msg("scan stopped, flushing partial results")
	} else if len(s.etfs) > 0 {
		report.Overview = s.overview(ctx, memo, runID, log)
	}
	err = s.flush(context.WithoutCancel(ctx), report, log)
	log.Info().
		Int("scanned", sum.Scanned).
		Int("qualifying", sum.Qualifying).
		Int("errors", sum.Errors).
		Dur("took", sum.Duration()).
		Msg("scan finished")
	return report, err
}

// prefetch seeds the memo with one batch request. A missing or failing batch
// capability leaves every symbol to its own fetch.
func (s *Scanner) prefetch(ctx context.Context, memo *collector.Memo, batch []string, log zerolog.Logger) {
	got, err := memo.FetchDailyBatch(ctx, batch, s.dailyBars)
	switch {
	case errors.Is(err, collector.ErrNoBatch):
	case err != nil:
		log.Warn().Err(err).Int("size", len(batch)).Msg("batch fetch failed, falling back to single fetches")
	default:
		log.Debug().Int("size", len(batch)).Int("fetched", len(got)).Msg("batch fetched")
	}
}

// scanSymbol scores one symbol and records it in the history when it
// qualifies. A panic while scoring becomes that symbol's error.
func (s *Scanner) scanSymbol(ctx context.Context, memo *collector.Memo, runID, symbol string) (_ model.ScanResult, _ bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	bars, err := memo.FetchDailyBars(ctx, symbol, s.dailyBars)
	if err != nil {
		return model.ScanResult{}, false, err
	}
	snap, err := calculator.BuildSnapshot(bars)
	if err != nil {
		return model.ScanResult{}, false, err
	}
	session := snap.Last().Time
	res, err := s.engine.Score(ctx, strategy.Input{
		Symbol:   symbol,
		Date:     session,
		Snapshot: snap,
		Source:   memo,
	})
	if err != nil {
		return model.ScanResult{}, false, err
	}
	if res.Qualifies {
		s.tracker.Record(symbol, session, res.Card.Total, res.Category)
	}
	return res.ScanResult(runID, snap, s.now()), res.Qualifies, nil
}

// overview builds the ETF market overview. ETFs that cannot be fetched are
// logged and left out; the overview never counts toward the run's errors.
func (s *Scanner) overview(ctx context.Context, memo *collector.Memo, runID string, log zerolog.Logger) []model.ETFOverview {
	rows := make([]model.ETFOverview, 0, len(s.etfs))
	for _, symbol := range s.etfs {
		if ctx.Err() != nil {
			break
		}
		bars, err := memo.FetchDailyBars(context.WithoutCancel(ctx), symbol, s.dailyBars)
		if err != nil {
			log.Warn().Err(err).Str("etf", symbol).Msg("etf overview skipped")
			continue
		}
		snap, err := calculator.BuildSnapshot(bars)
		if err != nil {
			log.Warn().Err(err).Str("etf", symbol).Msg("etf overview skipped")
			continue
		}
		row := strategy.BuildETFOverview(symbol, snap)
		row.RunID = runID
		rows = append(rows, row)
	}
	log.Debug().Int("etfs", len(rows)).Msg("etf overview built")
	return rows
}

func (s *Scanner) flush(ctx context.Context, report *Report, log zerolog.Logger) error {
	var errs []error
	if err := s.store.Save(ctx, s.tracker.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("save history: %w", err))
	}
	report.Summary.FinishedAt = s.now()

	for _, sink := range s.sinks {
		if err := sink.Write(ctx, report.Results); err != nil {
			errs = append(errs, fmt.Errorf("write results: %w", err))
			continue
		}
		if ow, ok := sink.(OverviewWriter); ok && len(report.Overview) > 0 {
			if err := ow.WriteOverview(ctx, report.Overview); err != nil {
				errs = append(errs, fmt.Errorf("write overview: %w", err))
			}
		}
		if sw, ok := sink.(SummaryWriter); ok {
			if err := sw.WriteSummary(ctx, report.Summary); err != nil {
				errs = append(errs, fmt.Errorf("write summary: %w", err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("flush failed")
		return err
	}
	return nil
}

// Close closes every sink.
func (s *Scanner) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}
