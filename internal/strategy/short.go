package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// ShortOBVWindow is the OBV average the distribution check compares against.
const ShortOBVWindow = 20

// ShortMomentum mirrors Momentum for the short side: ten checks worth 10
// points each that reward a weakening trend and distribution while keeping
// the price away from oversold extremes.
func ShortMomentum(s *model.SeriesSnapshot) model.ComponentScore {
	cs := model.ComponentScore{Component: model.ComponentShortMomentum, Max: 100}
	n := s.Len()
	if n < MomentumMinBars {
		return cs
	}
	cs.Evaluable = true

	last := s.Last()
	px := null.FloatFrom(last.Close)
	rsi := model.Back(s.RSI14, 0)
	volRatio, volOK := ratio(last.Volume, model.Back(s.VolumeMA20, 0))
	toMA50, ma50OK := ratio(last.Close, model.Back(s.MA50, 0))
	toMA20, ma20OK := ratio(last.Close, model.Back(s.MA20, 0))

	var distribution bool
	if obvMA, err := calculator.SMAOf(s.OBV, ShortOBVWindow); err == nil {
		obv := model.Back(s.OBV, 0)
		distribution = model.Greater(model.Back(s.OBV, 1), obv) && model.Greater(model.Back(obvMA, 0), obv)
	}

	checks := []check{
		{"below_ma20", model.Greater(model.Back(s.MA20, 0), px)},
		{"below_ma50", model.Greater(model.Back(s.MA50, 0), px)},
		{"rsi_weak", rsi.Valid && rsi.Float64 <= 45},
		{"macd_bearish", model.Greater(model.Back(s.MACDSignal, 0), model.Back(s.MACD, 0))},
		{"heavy_down_day", last.Close < s.Bars[n-2].Close && volOK && volRatio > 1.2},
		{"obv_distribution", distribution},
		{"rsi_in_range", rsi.Valid && rsi.Float64 > 5 && rsi.Float64 < 75},
		{"room_to_fall", ma50OK && toMA50 > 0.8},
		{"near_ma20", ma20OK && toMA20 > 0.9 && toMA20 < 1.1},
		{"volume_not_climactic", volOK && volRatio < 3},
	}
	score, passed := tally(checks, 10)
	cs.Score = score
	cs.Passed = score >= 70
	cs.Detail = fmt.Sprintf("%d/10 checks %v", len(passed), passed)
	return cs
}
