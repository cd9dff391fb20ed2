package recorder

import (
	"context"

	"TrendSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Write(_ context.Context, _ []model.ScanResult) error          { return nil }
func (n *NoopRecorder) WriteSummary(_ context.Context, _ model.RunSummary) error     { return nil }
func (n *NoopRecorder) WriteOverview(_ context.Context, _ []model.ETFOverview) error { return nil }
func (n *NoopRecorder) Load(_ context.Context) (model.HistoryMap, error)             { return model.HistoryMap{}, nil }
func (n *NoopRecorder) Save(_ context.Context, _ model.HistoryMap) error             { return nil }
func (n *NoopRecorder) Close() error                                                 { return nil }
