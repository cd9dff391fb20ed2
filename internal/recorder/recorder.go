package recorder

import (
	"context"

	"TrendSentinel/internal/model"
)

// Recorder persists scan output and the novelty history between runs.
type Recorder interface {
	Write(ctx context.Context, results []model.ScanResult) error
	WriteSummary(ctx context.Context, s model.RunSummary) error
	WriteOverview(ctx context.Context, rows []model.ETFOverview) error
	Load(ctx context.Context) (model.HistoryMap, error)
	Save(ctx context.Context, m model.HistoryMap) error
	Close() error
}
