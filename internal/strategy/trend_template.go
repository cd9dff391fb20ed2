package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// Trend template parameters.
const (
	TrendTemplateMinBars = 200
	MA200SlopeSessions   = 30
	RSProxySessions      = 63
	MaxFromHighPct       = 25.0
	MinAboveLowPct       = 30.0
)

// Criterion indexes into TrendTemplateResult.Criteria.
const (
	CritCloseAboveMA50 = iota
	CritCloseAboveMA150
	CritCloseAboveMA200
	CritMA50AboveMA150
	CritMA50AboveMA200
	CritMA150AboveMA200
	CritMA200Rising
	CritNearHigh
	CritAboveLow
	CritRelativeStrength
)

// EvaluateTrendTemplate checks the ten-point trend template against the
// latest bar. Fewer than 200 bars yields a zero, non-evaluable result.
//
// Criterion 10 is a relative-strength proxy: a positive return over the last
// 63 sessions, not a percentile rank against the market.
func EvaluateTrendTemplate(s *model.SeriesSnapshot) model.TrendTemplateResult {
	var res model.TrendTemplateResult
	n := s.Len()
	if n < TrendTemplateMinBars {
		return res
	}
	res.Evaluable = true

	last := s.Last().Close
	px := null.FloatFrom(last)
	ma50 := model.Back(s.MA50, 0)
	ma150 := model.Back(s.MA150, 0)
	ma200 := model.Back(s.MA200, 0)
	ma200Prev := model.Back(s.MA200, MA200SlopeSessions)

	high52, low52, _ := calculator.Calculate52WeekRange(s.Bars)

	c := &res.Criteria
	c[CritCloseAboveMA50] = model.Greater(px, ma50)
	c[CritCloseAboveMA150] = model.Greater(px, ma150)
	c[CritCloseAboveMA200] = model.Greater(px, ma200)
	c[CritMA50AboveMA150] = model.Greater(ma50, ma150)
	c[CritMA50AboveMA200] = model.Greater(ma50, ma200)
	c[CritMA150AboveMA200] = model.Greater(ma150, ma200)
	c[CritMA200Rising] = model.Greater(ma200, ma200Prev)
	c[CritNearHigh] = high52 > 0 && (high52-last)/high52*100 <= MaxFromHighPct
	c[CritAboveLow] = low52 > 0 && (last-low52)/low52*100 >= MinAboveLowPct
	c[CritRelativeStrength] = n > RSProxySessions && last > s.Bars[n-1-RSProxySessions].Close

	for _, ok := range c {
		if ok {
			res.CriteriaMet++
		}
	}
	res.IsStage2 = Stage2(res.Criteria)
	return res
}

// Stage2 requires six compound conditions: price above all three averages,
// MA50 > MA150 > MA200, a rising MA200, proximity to the 52-week high,
// distance from the 52-week low, and the relative-strength proxy.
func Stage2(c [10]bool) bool {
	conditions := []bool{
		c[CritCloseAboveMA50] && c[CritCloseAboveMA150] && c[CritCloseAboveMA200],
		c[CritMA50AboveMA150] && c[CritMA150AboveMA200],
		c[CritMA200Rising],
		c[CritNearHigh],
		c[CritAboveLow],
		c[CritRelativeStrength],
	}
	for _, ok := range conditions {
		if !ok {
			return false
		}
	}
	return true
}

func trendComponent(tt model.TrendTemplateResult) model.ComponentScore {
	return model.ComponentScore{
		Component: model.ComponentTrend,
		Score:     float64(tt.CriteriaMet),
		Max:       10,
		Evaluable: tt.Evaluable,
		Passed:    tt.IsStage2,
		Detail:    fmt.Sprintf("%d/10 criteria, stage2=%t", tt.CriteriaMet, tt.IsStage2),
	}
}
