package notifier

import (
	"context"
	"sync"

	"TrendSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// DefaultTop is the number of results listed in a scan report.
const DefaultTop = 25

// Reporter collects the results of a run and sends one summary message when
// the run's summary arrives.
type Reporter struct {
	sender  Sender
	top     int
	retries int
	log     zerolog.Logger

	mu       sync.Mutex
	results  []model.ScanResult
	overview []model.ETFOverview
}

// NewReporter returns a Reporter listing at most top results.
func NewReporter(sender Sender, top int, log zerolog.Logger) *Reporter {
	if top <= 0 {
		top = DefaultTop
	}
	return &Reporter{sender: sender, top: top, retries: 3, log: log}
}

// Write buffers the actionable results of a run.
func (r *Reporter) Write(_ context.Context, results []model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if res.Category.Actionable() {
			r.results = append(r.results, res)
		}
	}
	return nil
}

// WriteOverview buffers the ETF overview for the next report.
func (r *Reporter) WriteOverview(_ context.Context, rows []model.ETFOverview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overview = append(r.overview, rows...)
	return nil
}

// WriteSummary sends the report for the buffered results and clears them.
func (r *Reporter) WriteSummary(ctx context.Context, s model.RunSummary) error {
	r.mu.Lock()
	results, overview := r.results, r.overview
	r.results, r.overview = nil, nil
	r.mu.Unlock()

	text := FormatScanReport(s, results, r.top)
	if len(overview) > 0 {
		text += "\n" + FormatETFOverview(overview)
	}
	if err := r.sender.SendWithRetry(ctx, text, r.retries); err != nil {
		r.log.Error().Err(err).Str("run_id", s.RunID).Msg("send scan report")
		return err
	}
	r.log.Info().Str("run_id", s.RunID).Int("listed", min(len(results), r.top)).Msg("scan report sent")
	return nil
}

func (r *Reporter) Close() error { return nil }
