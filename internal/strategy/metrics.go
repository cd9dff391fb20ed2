package strategy

import (
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// BuildMetrics extracts the latest headline values for export.
func BuildMetrics(s *model.SeriesSnapshot, f *model.Fundamentals) model.Metrics {
	var m model.Metrics
	n := s.Len()
	if n == 0 {
		return m
	}
	last := s.Last()
	m.Close = null.FloatFrom(last.Close)
	if n > 1 && s.Bars[n-2].Close != 0 {
		prev := s.Bars[n-2].Close
		m.ChangePct = null.FloatFrom((last.Close - prev) / prev * 100)
	}
	m.MA20 = model.Back(s.MA20, 0)
	m.MA50 = model.Back(s.MA50, 0)
	m.MA200 = model.Back(s.MA200, 0)
	m.RSI14 = model.Back(s.RSI14, 0)
	if v, ok := ratio(last.Volume, model.Back(s.VolumeMA20, 0)); ok {
		m.VolumeRatio = null.FloatFrom(v)
	}
	if h := model.Back(s.High52w, 0); h.Valid && h.Float64 != 0 {
		m.FromHigh52w = null.FloatFrom((last.Close - h.Float64) / h.Float64 * 100)
	}
	if f != nil {
		m.MarketCap = f.MarketCap
	}
	return m
}
