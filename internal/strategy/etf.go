package strategy

import (
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// ETFOverviewOBVWindow is the OBV average the overview compares against.
const ETFOverviewOBVWindow = 20

// BuildETFOverview summarizes where an ETF trades against its moving
// averages, MACD, OBV and the trend template. Values that need more history
// than s holds stay undefined.
func BuildETFOverview(symbol string, s *model.SeriesSnapshot) model.ETFOverview {
	o := model.ETFOverview{Symbol: symbol}
	if s == nil || s.Len() == 0 {
		return o
	}
	last := s.Last()
	px := null.FloatFrom(last.Close)
	ma20, ma50 := model.Back(s.MA20, 0), model.Back(s.MA50, 0)

	o.AsOf = last.Time
	o.Close = px
	o.RSI14 = model.Back(s.RSI14, 0)
	o.AboveMA20 = model.Greater(px, ma20)
	o.AboveMA50 = model.Greater(px, ma50)
	o.MACDBullish = model.Greater(model.Back(s.MACD, 0), model.Back(s.MACDSignal, 0))
	o.MA20Rising = rising(s.MA20)
	o.MA50Rising = rising(s.MA50)
	o.FromMA20Pct = deviationPct(last.Close, ma20)
	o.FromMA50Pct = deviationPct(last.Close, ma50)

	obv := model.Back(s.OBV, 0)
	o.OBVRising = model.Greater(obv, model.Back(s.OBV, 1))
	if obvMA, err := calculator.SMAOf(s.OBV, ETFOverviewOBVWindow); err == nil {
		ma := model.Back(obvMA, 0)
		o.OBVAboveMA20 = model.Greater(obv, ma)
		if obv.Valid && ma.Valid && ma.Float64 != 0 {
			o.FromOBVMA20Pct = null.FloatFrom((obv.Float64/ma.Float64 - 1) * 100)
		}
	}

	tt := EvaluateTrendTemplate(s)
	o.TrendCriteria = tt.CriteriaMet
	o.Stage2 = tt.IsStage2
	return o
}

func rising(col []null.Float) null.Bool {
	now, prev := model.Back(col, 0), model.Back(col, 1)
	if !now.Valid || !prev.Valid {
		return null.Bool{}
	}
	return null.BoolFrom(now.Float64 > prev.Float64)
}

func deviationPct(px float64, ma null.Float) null.Float {
	if !ma.Valid || ma.Float64 <= 0 {
		return null.Float{}
	}
	return null.FloatFrom((px/ma.Float64 - 1) * 100)
}
