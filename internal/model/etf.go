package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// ETFOverview is a trend snapshot of one market ETF. It is reported for every
// configured ETF regardless of score.
type ETFOverview struct {
	RunID          string     `json:"run_id"`
	Symbol         string     `json:"symbol"`
	Close          null.Float `json:"close"`
	RSI14          null.Float `json:"rsi14"`
	AboveMA20      bool       `json:"above_ma20"`
	AboveMA50      bool       `json:"above_ma50"`
	MACDBullish    bool       `json:"macd_bullish"`
	MA20Rising     null.Bool  `json:"ma20_rising"`
	MA50Rising     null.Bool  `json:"ma50_rising"`
	FromMA20Pct    null.Float `json:"from_ma20_pct"`
	FromMA50Pct    null.Float `json:"from_ma50_pct"`
	OBVAboveMA20   bool       `json:"obv_above_ma20"`
	OBVRising      bool       `json:"obv_rising"`
	FromOBVMA20Pct null.Float `json:"from_obv_ma20_pct"`
	TrendCriteria  int        `json:"trend_criteria"`
	Stage2         bool       `json:"stage2"`
	AsOf           time.Time  `json:"as_of"`
}
