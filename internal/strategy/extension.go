package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// ExtensionConfig holds the late-breakout thresholds.
type ExtensionConfig struct {
	MaxROC10             float64 `yaml:"max_roc10" validate:"gt=0"`
	MaxMA20DistancePct   float64 `yaml:"max_ma20_distance_pct" validate:"gt=0"`
	ClimaxSessions       int     `yaml:"climax_sessions" validate:"min=1"`
	ClimaxRangeMultiple  float64 `yaml:"climax_range_multiple" validate:"gt=0"`
	ClimaxVolumeMultiple float64 `yaml:"climax_volume_multiple" validate:"gt=0"`
	PivotWindow          int     `yaml:"pivot_window" validate:"min=2"`
	PivotBuffer          float64 `yaml:"pivot_buffer" validate:"gte=1"`
	MaxBreakoutAge       int     `yaml:"max_breakout_age" validate:"gte=0"`
}

// DefaultExtensionConfig returns the standard thresholds.
func DefaultExtensionConfig() ExtensionConfig {
	return ExtensionConfig{
		MaxROC10:             20,
		MaxMA20DistancePct:   8,
		ClimaxSessions:       3,
		ClimaxRangeMultiple:  2.0,
		ClimaxVolumeMultiple: 1.5,
		PivotWindow:          40,
		PivotBuffer:          1.01,
		MaxBreakoutAge:       1,
	}
}

// CheckExtension flags symbols whose move is already underway: a steep
// 10-session gain, a stretch above MA20, a recent climactic bar, or a pivot
// breakout older than MaxBreakoutAge sessions. It reads only the snapshot,
// so repeated calls on the same snapshot agree.
func CheckExtension(s *model.SeriesSnapshot, cfg ExtensionConfig) model.ExtensionResult {
	var res model.ExtensionResult
	n := s.Len()
	roc := model.Back(s.ROC10, 0)
	ma20 := model.Back(s.MA20, 0)
	if n == 0 || !roc.Valid || !ma20.Valid || ma20.Float64 == 0 {
		return res
	}
	res.Evaluable = true
	last := s.Last().Close

	res.ROC10 = roc.Float64
	if res.ROC10 > cfg.MaxROC10 {
		res.Reasons = append(res.Reasons, fmt.Sprintf("roc10 %.1f%% > %.0f%%", res.ROC10, cfg.MaxROC10))
	}

	res.MA20Distance = (last - ma20.Float64) / ma20.Float64 * 100
	if res.MA20Distance > cfg.MaxMA20DistancePct {
		res.Reasons = append(res.Reasons, fmt.Sprintf("%.1f%% above ma20", res.MA20Distance))
	}

	if climacticBar(s, cfg) {
		res.ClimacticBar = true
		res.Reasons = append(res.Reasons, "climactic bar")
	}

	res.PivotBreakout, res.BreakoutAge = pivotBreakout(s.Closes(), cfg.PivotWindow, cfg.PivotBuffer)
	if res.PivotBreakout && res.BreakoutAge > cfg.MaxBreakoutAge {
		res.Reasons = append(res.Reasons, fmt.Sprintf("broke out %d sessions ago", res.BreakoutAge))
	}

	res.Extended = len(res.Reasons) > 0
	return res
}

// climacticBar looks for a wide-range, high-volume bar within the last
// ClimaxSessions bars, measured against ATR20 and VolumeMA20 of the bar before.
func climacticBar(s *model.SeriesSnapshot, cfg ExtensionConfig) bool {
	tr, err := calculator.TrueRange(s.Bars)
	if err != nil {
		return false
	}
	n := s.Len()
	for i := n - cfg.ClimaxSessions; i < n; i++ {
		if i < 1 || !tr[i].Valid {
			continue
		}
		atr := model.At(s.ATR20, i-1)
		vol := model.At(s.VolumeMA20, i-1)
		if !atr.Valid || !vol.Valid {
			continue
		}
		if tr[i].Float64 > cfg.ClimaxRangeMultiple*atr.Float64 && s.Bars[i].Volume > cfg.ClimaxVolumeMultiple*vol.Float64 {
			return true
		}
	}
	return false
}

// pivotBreakout reports whether the last close is above its pivot (the
// highest close of the previous window bars times buffer) and, if so, how
// many sessions ago the current run above the pivot began.
func pivotBreakout(closes []float64, window int, buffer float64) (above bool, age int) {
	n := len(closes)
	abovePivot := func(i int) bool {
		if i < window {
			return false
		}
		return closes[i] > calculator.MaxOf(closes, i-window, i)*buffer
	}
	if n == 0 || !abovePivot(n-1) {
		return false, 0
	}
	start := n - 1
	for start > 0 && abovePivot(start-1) {
		start--
	}
	return true, n - 1 - start
}
