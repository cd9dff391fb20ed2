package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Minimum history for the VCP profile components.
const (
	TrendConfirmationMinBars = 150
	VolumeProfileMinBars     = 50
	MA150SlopeSessions       = 20
)

// TrendConfirmation scores the long-term trend behind a base (0-5): price
// above MA50 and MA150 is required before the MA150 slope and the distance
// from the 52-week high are considered.
func TrendConfirmation(s *model.SeriesSnapshot) (score int, evaluable bool) {
	if s.Len() < TrendConfirmationMinBars {
		return 0, false
	}
	last := s.Last().Close
	ma50, ma150 := model.Back(s.MA50, 0), model.Back(s.MA150, 0)
	if !ma50.Valid || !ma150.Valid || last <= ma50.Float64 || last <= ma150.Float64 {
		return 0, true
	}
	score = 2
	if model.Greater(ma150, model.Back(s.MA150, MA150SlopeSessions)) {
		score++
	}
	high, _, err := calculator.Calculate52WeekRange(s.Bars)
	if err == nil && high > 0 {
		switch fromHigh := (high - last) / high; {
		case fromHigh <= 0.10:
			score += 2
		case fromHigh <= 0.25:
			score++
		}
	}
	return score, true
}

// VolumeProfile scores volume behaviour inside a base (0-5): quiet recent
// sessions, a dry-up day, and expansion on the latest bar, all relative to
// the 50-day volume average.
func VolumeProfile(s *model.SeriesSnapshot) (score int, evaluable bool) {
	n := s.Len()
	avg := model.Back(s.VolumeMA50, 0)
	if n < VolumeProfileMinBars || !avg.Valid || avg.Float64 <= 0 {
		return 0, false
	}
	volumes := s.Volumes()

	switch recent := calculator.MeanOf(volumes, n-10, n) / avg.Float64; {
	case recent < 0.7:
		score += 2
	case recent < 0.85:
		score++
	}
	if calculator.MinOf(volumes, n-20, n)/avg.Float64 < 0.5 {
		score++
	}
	switch latest := volumes[n-1] / avg.Float64; {
	case latest > 1.5:
		score += 2
	case latest > 1.2:
		score++
	}
	return score, true
}

func trendConfirmationComponent(s *model.SeriesSnapshot) model.ComponentScore {
	score, ok := TrendConfirmation(s)
	return model.ComponentScore{
		Component: model.ComponentTrendConfirmation,
		Score:     float64(score),
		Max:       5,
		Evaluable: ok,
		Passed:    score >= 2,
	}
}

func volumeProfileComponent(s *model.SeriesSnapshot) model.ComponentScore {
	score, ok := VolumeProfile(s)
	return model.ComponentScore{
		Component: model.ComponentVolumeProfile,
		Score:     float64(score),
		Max:       5,
		Evaluable: ok,
		Passed:    score >= 2,
	}
}

func patternComponent(c model.ContractionResult) model.ComponentScore {
	return model.ComponentScore{
		Component: model.ComponentPattern,
		Score:     float64(c.Score),
		Max:       6,
		Evaluable: c.Evaluable,
		Passed:    c.Valid,
		Detail:    fmt.Sprintf("%d pullbacks, decreasing=%t", len(c.Pullbacks), c.Decreasing),
	}
}

func breakoutComponent(b model.BreakoutResult, extended bool) model.ComponentScore {
	cs := model.ComponentScore{
		Component: model.ComponentBreakout,
		Score:     float64(b.Score),
		Max:       7,
		Evaluable: b.Evaluable,
		Passed:    b.Status != model.BreakoutFar,
		Detail:    fmt.Sprintf("%s, %.2f%% from %.2f", b.Status, b.DistancePct, b.Resistance),
	}
	if extended {
		cs.Score = 0
		cs.Passed = false
		cs.Detail = "extended"
	}
	return cs
}
