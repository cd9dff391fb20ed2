package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// Near-high windows and tolerances.
const (
	NearHighWindow    = 100
	NearHighRecent    = 10
	NearHighWeeks     = 100
	NearHighTolerance = 0.99
	NearHighDailyPct  = 7.0
	NearHighWeeklyPct = 20.0
	// NearHighReady is the score from which the setup counts as nearing a breakout.
	NearHighReady = 4
)

// NearHighResult places the close against its 100-session daily high and,
// when at least 100 weekly bars are available, the 100-week high.
type NearHighResult struct {
	High100           float64
	RecentHigh        float64
	DistancePct       float64
	WeeklyHigh        null.Float
	WeeklyDistancePct null.Float
	Score             int
	Ready             bool
	Evaluable         bool
}

// NearHigh scores an uptrend that is approaching its highs (0-6):
//
//	+2  a high within 1% of the 100-session high was printed in the last 10 sessions
//	+2  close within 7% of the 100-session high
//	+1  close within 20% of the 100-week high
//	+1  close not above the 100-session high
//
// It is not evaluable with fewer than 100 daily bars.
func NearHigh(s *model.SeriesSnapshot, weekly []model.PriceBar) NearHighResult {
	var r NearHighResult
	n := s.Len()
	if n < NearHighWindow {
		return r
	}
	r.Evaluable = true

	highs := s.Highs()
	last := s.Last().Close
	r.High100 = calculator.MaxOf(highs, n-NearHighWindow, n)
	r.RecentHigh = calculator.MaxOf(highs, n-NearHighRecent, n)
	r.DistancePct = (r.High100 - last) / last * 100

	if r.RecentHigh >= r.High100*NearHighTolerance {
		r.Score += 2
	}
	if r.DistancePct <= NearHighDailyPct {
		r.Score += 2
	}
	if len(weekly) >= NearHighWeeks {
		if high, _, err := calculator.CalculateRange(weekly, NearHighWeeks); err == nil {
			r.WeeklyHigh = null.FloatFrom(high)
			r.WeeklyDistancePct = null.FloatFrom((high - last) / last * 100)
			if r.WeeklyDistancePct.Float64 <= NearHighWeeklyPct {
				r.Score++
			}
		}
	}
	if last <= r.High100 {
		r.Score++
	}
	r.Ready = r.Score >= NearHighReady
	return r
}

// nearHighComponent scores zero for extended symbols, like the breakout component.
func nearHighComponent(r NearHighResult, extended bool) model.ComponentScore {
	cs := model.ComponentScore{
		Component: model.ComponentNearHigh,
		Score:     float64(r.Score),
		Max:       7,
		Evaluable: r.Evaluable,
		Passed:    r.Ready,
		Detail:    fmt.Sprintf("%.2f%% below 100-day high %.2f", r.DistancePct, r.High100),
	}
	if r.WeeklyDistancePct.Valid {
		cs.Detail += fmt.Sprintf(", %.2f%% below 100-week high", r.WeeklyDistancePct.Float64)
	}
	if extended {
		cs.Score = 0
		cs.Passed = false
		cs.Detail = "extended"
	}
	return cs
}
