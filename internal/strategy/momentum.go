package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// Momentum and quality need MA50 and a MACD signal line.
const MomentumMinBars = 50

// check is a named pass/fail test worth a fixed number of points.
type check struct {
	name string
	ok   bool
}

func tally(checks []check, points float64) (score float64, passed []string) {
	for _, c := range checks {
		if c.ok {
			score += points
			passed = append(passed, c.name)
		}
	}
	return score, passed
}

func ratio(a float64, b null.Float) (float64, bool) {
	if !b.Valid || b.Float64 == 0 {
		return 0, false
	}
	return a / b.Float64, true
}

// Momentum runs ten checks worth 10 points each.
func Momentum(s *model.SeriesSnapshot) model.ComponentScore {
	cs := model.ComponentScore{Component: model.ComponentMomentum, Max: 100}
	n := s.Len()
	if n < MomentumMinBars {
		return cs
	}
	cs.Evaluable = true

	last := s.Last()
	px := null.FloatFrom(last.Close)
	rsi := model.Back(s.RSI14, 0)
	macdUp := model.Greater(model.Back(s.MACD, 0), model.Back(s.MACDSignal, 0))
	volRatio, volOK := ratio(last.Volume, model.Back(s.VolumeMA20, 0))
	toMA50, ma50OK := ratio(last.Close, model.Back(s.MA50, 0))
	toMA20, ma20OK := ratio(last.Close, model.Back(s.MA20, 0))

	checks := []check{
		{"above_ma20", model.Greater(px, model.Back(s.MA20, 0))},
		{"above_ma50", model.Greater(px, model.Back(s.MA50, 0))},
		{"rsi_strong", rsi.Valid && rsi.Float64 >= 55},
		{"macd_bullish", macdUp},
		{"volume_surge", volOK && volRatio > 1.2},
		{"up_day_confirmed", last.Close > s.Bars[n-2].Close && macdUp},
		{"rsi_in_range", rsi.Valid && rsi.Float64 > 5 && rsi.Float64 < 75},
		{"not_stretched_ma50", ma50OK && toMA50 < 1.2},
		{"near_ma20", ma20OK && toMA20 > 0.9 && toMA20 < 1.1},
		{"volume_not_climactic", volOK && volRatio < 3},
	}
	score, passed := tally(checks, 10)
	cs.Score = score
	cs.Passed = score >= 70
	cs.Detail = fmt.Sprintf("%d/10 checks %v", len(passed), passed)
	return cs
}

// Quality runs six checks worth 5 points each on short-term structure.
func Quality(s *model.SeriesSnapshot) model.ComponentScore {
	cs := model.ComponentScore{Component: model.ComponentQuality, Max: 30}
	n := s.Len()
	if n < 21 {
		return cs
	}
	cs.Evaluable = true

	closes, volumes := s.Closes(), s.Volumes()
	last := closes[n-1]
	rsi := model.Back(s.RSI14, 0)
	ma20, ma50 := model.Back(s.MA20, 0), model.Back(s.MA50, 0)

	std, stdErr := calculator.StdDevOfReturns(closes, 20)
	hi, lo := calculator.MaxOf(closes, n-20, n), calculator.MinOf(closes, n-20, n)
	pos, posErr := calculator.CalculatePosition(last, hi, lo)

	checks := []check{
		{"five_day_gain", last > closes[n-5]},
		{"volume_pickup", calculator.MeanOf(volumes, n-3, n) > 1.15*calculator.MeanOf(volumes, n-20, n-3)},
		{"rsi_balanced", rsi.Valid && rsi.Float64 >= 35 && rsi.Float64 <= 65},
		{"ma_stacked", model.Greater(ma20, ma50) && ma50.Float64 > 0},
		{"low_volatility", stdErr == nil && std <= 0.04},
		{"upper_range", posErr == nil && pos >= 0.6},
	}
	score, passed := tally(checks, 5)
	cs.Score = score
	cs.Passed = score >= 20
	cs.Detail = fmt.Sprintf("%d/6 checks %v", len(passed), passed)
	return cs
}
