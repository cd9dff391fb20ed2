package pattern

import "fmt"

// Band is an inclusive percentage range.
type Band struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies within the band.
func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Config holds VCP and breakout parameters.
type Config struct {
	SwingWindow    int    `yaml:"swing_window" validate:"min=1"`
	MaxSwingHighs  int    `yaml:"max_swing_highs" validate:"min=2"`
	MinSwings      int    `yaml:"min_swings" validate:"min=2"`
	MinPullbacks   int    `yaml:"min_pullbacks" validate:"min=2"`
	PullbackTiers  []Band `yaml:"pullback_tiers" validate:"min=1"`
	MinTierMatches int    `yaml:"min_tier_matches" validate:"min=1"`
	ValidScore     int    `yaml:"valid_score" validate:"min=1"`
	VolatilityBars int    `yaml:"volatility_bars" validate:"min=1"`

	ResistanceLookback int     `yaml:"resistance_lookback" validate:"min=10"`
	ResistanceExclude  int     `yaml:"resistance_exclude" validate:"min=1"`
	ProximityPct       float64 `yaml:"proximity_pct" validate:"gt=0"`
	RangeContraction   float64 `yaml:"range_contraction" validate:"gt=0,lte=1"`
	VolumeDrying       float64 `yaml:"volume_drying" validate:"gt=0,lte=1"`
	SupportBuffer      float64 `yaml:"support_buffer" validate:"gte=1"`
}

// DefaultConfig returns the standard VCP parameters.
func DefaultConfig() Config {
	return Config{
		SwingWindow:    DefaultSwingWindow,
		MaxSwingHighs:  5,
		MinSwings:      3,
		MinPullbacks:   3,
		PullbackTiers:  []Band{{8, 15}, {4, 8}, {2, 4}, {1, 3}},
		MinTierMatches: 2,
		ValidScore:     3,
		VolatilityBars: 20,

		ResistanceLookback: 50,
		ResistanceExclude:  5,
		ProximityPct:       3,
		RangeContraction:   0.7,
		VolumeDrying:       0.6,
		SupportBuffer:      1.02,
	}
}

// Check validates relationships the struct tags cannot express.
func (c Config) Check() error {
	if c.ResistanceExclude >= c.ResistanceLookback {
		return fmt.Errorf("resistance_exclude %d must be below resistance_lookback %d", c.ResistanceExclude, c.ResistanceLookback)
	}
	for i, b := range c.PullbackTiers {
		if b.Min > b.Max {
			return fmt.Errorf("pullback tier %d: min %.2f above max %.2f", i+1, b.Min, b.Max)
		}
	}
	return nil
}
