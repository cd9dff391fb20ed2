package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// Component names a scoring sub-component.
type Component string

const (
	ComponentTrend             Component = "trend"
	ComponentBreakout          Component = "breakout"
	ComponentNearHigh          Component = "near_high"
	ComponentHigherLows        Component = "higher_lows"
	ComponentVolume            Component = "volume"
	ComponentOBV               Component = "obv"
	ComponentPattern           Component = "pattern"
	ComponentTrendConfirmation Component = "trend_confirmation"
	ComponentVolumeProfile     Component = "volume_profile"
	ComponentMomentum          Component = "momentum"
	ComponentQuality           Component = "quality"
	ComponentWeekly            Component = "weekly"
	ComponentFundamental       Component = "fundamental"
	ComponentShortMomentum     Component = "short_momentum"
)

// ComponentScore is the result of a single sub-score.
type ComponentScore struct {
	Component Component `json:"component"`
	Score     float64   `json:"score"`
	Max       float64   `json:"max"`
	Evaluable bool      `json:"evaluable"`
	Passed    bool      `json:"passed"`
	Skipped   bool      `json:"skipped,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// ScoreCard is the set of component scores and their bounded total.
type ScoreCard struct {
	Components []ComponentScore `json:"components"`
	Total      float64          `json:"total"`
	Max        float64          `json:"max"`
}

// Get returns the named component score, if present.
func (c *ScoreCard) Get(name Component) (ComponentScore, bool) {
	for _, cs := range c.Components {
		if cs.Component == name {
			return cs, true
		}
	}
	return ComponentScore{}, false
}

// TrendTemplateResult is the outcome of the ten-point trend template.
type TrendTemplateResult struct {
	CriteriaMet int
	IsStage2    bool
	Criteria    [10]bool
	Evaluable   bool
}

// Metrics is a compact snapshot of the latest values, exported with results.
type Metrics struct {
	Close       null.Float `json:"close"`
	ChangePct   null.Float `json:"change_pct"`
	MA20        null.Float `json:"ma20"`
	MA50        null.Float `json:"ma50"`
	MA200       null.Float `json:"ma200"`
	RSI14       null.Float `json:"rsi14"`
	VolumeRatio null.Float `json:"volume_ratio"`
	FromHigh52w null.Float `json:"from_high_52w"`
	MarketCap   null.Float `json:"market_cap"`
}

// ScanResult is one symbol's evaluation under a profile.
type ScanResult struct {
	RunID            string           `json:"run_id"`
	Symbol           string           `json:"symbol"`
	Profile          string           `json:"profile"`
	Category         Category         `json:"category"`
	Total            float64          `json:"total"`
	Max              float64          `json:"max"`
	Components       []ComponentScore `json:"components"`
	Breakout         BreakoutStatus   `json:"breakout"`
	Stage2           bool             `json:"stage2"`
	Extended         bool             `json:"extended"`
	ExtensionReasons []string         `json:"extension_reasons,omitempty"`
	IsNew            bool             `json:"is_new"`
	Metrics          Metrics          `json:"metrics"`
	ScannedAt        time.Time        `json:"scanned_at"`
}
