package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// WeeklyMinBars is the weekly history needed for the weekly component.
const WeeklyMinBars = 8

// WeeklyLookback is the number of weekly bars requested from providers.
const WeeklyLookback = 52

// Weekly scores the weekly timeframe (0-10): RSI14 band, price versus the
// 8- and 12-week averages, and the 4-week trend.
func Weekly(bars []model.PriceBar) model.ComponentScore {
	cs := model.ComponentScore{Component: model.ComponentWeekly, Max: 10}
	n := len(bars)
	if n < WeeklyMinBars {
		return cs
	}
	cs.Evaluable = true
	closes := calculator.Closes(bars)
	last := closes[n-1]

	var rsiPts, maPts, trendPts int
	if rsi, err := calculator.LastRSI(closes, calculator.RSIPeriod); err == nil {
		switch {
		case rsi >= 40 && rsi <= 70:
			rsiPts = 3
		case rsi >= 30 && rsi <= 80:
			rsiPts = 2
		case rsi > 20:
			rsiPts = 1
		}
	}

	ma8, err8 := calculator.LastSMA(closes, 8)
	ma12, err12 := calculator.LastSMA(closes, 12)
	switch {
	case err8 == nil && err12 == nil && last > ma8 && ma8 > ma12:
		maPts = 4
	case err8 == nil && last > ma8:
		maPts = 2
	case err12 == nil && last > ma12:
		maPts = 1
	}

	if prior := closes[n-4]; prior > 0 {
		switch change := (last - prior) / prior; {
		case change > 0.05:
			trendPts = 3
		case change > 0.02:
			trendPts = 2
		case change > 0:
			trendPts = 1
		}
	}

	cs.Score = float64(min(rsiPts+maPts+trendPts, 10))
	cs.Passed = cs.Score >= 6
	cs.Detail = fmt.Sprintf("rsi %d, ma %d, trend %d", rsiPts, maPts, trendPts)
	return cs
}
