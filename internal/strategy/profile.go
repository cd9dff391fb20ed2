package strategy

import (
	"fmt"
	"math"
	"slices"

	"TrendSentinel/internal/model"

	"github.com/go-playground/validator/v10"
)

// OBVVariant selects how many OBV sub-checks are scored.
type OBVVariant string

const (
	OBVBasic OBVVariant = "basic"
	OBVFull  OBVVariant = "full"
)

// Max returns the highest OBV score of the variant.
func (v OBVVariant) Max() float64 {
	if v == OBVFull {
		return 14
	}
	return 6
}

// Profile is a named scoring configuration: which components are enabled,
// their gates, and the category ladder.
type Profile struct {
	Name            string            `yaml:"name" json:"name" validate:"required"`
	Components      []model.Component `yaml:"components" json:"components" validate:"min=1"`
	DeclaredMax     float64           `yaml:"max" json:"max" validate:"gt=0"`
	ExtensionFilter bool              `yaml:"extension_filter" json:"extension_filter"`
	OBVVariant      OBVVariant        `yaml:"obv_variant" json:"obv_variant" validate:"omitempty,oneof=basic full"`
	OBVGate         float64           `yaml:"obv_gate" json:"obv_gate" validate:"gte=0"`
	FundamentalGate float64           `yaml:"fundamental_gate" json:"fundamental_gate" validate:"gte=0"`

	// StrongThreshold drives novelty; QualifyThreshold decides what is kept in history.
	StrongThreshold  float64 `yaml:"strong_threshold" json:"strong_threshold" validate:"gte=0"`
	QualifyThreshold float64 `yaml:"qualify_threshold" json:"qualify_threshold" validate:"gte=0"`
	MinMarketCap     float64 `yaml:"min_market_cap" json:"min_market_cap" validate:"gte=0"`
	Ladder           Ladder  `yaml:"ladder" json:"ladder" validate:"min=1,dive"`
}

var validate = validator.New()

// componentMax is the upper bound of each component's score.
var componentMax = map[model.Component]float64{
	model.ComponentTrend:             10,
	model.ComponentBreakout:          7,
	model.ComponentNearHigh:          7,
	model.ComponentHigherLows:        3,
	model.ComponentVolume:            6,
	model.ComponentPattern:           6,
	model.ComponentTrendConfirmation: 5,
	model.ComponentVolumeProfile:     5,
	model.ComponentMomentum:          100,
	model.ComponentQuality:           30,
	model.ComponentWeekly:            10,
	model.ComponentFundamental:       50,
	model.ComponentShortMomentum:     100,
}

// ComponentMax returns the maximum score of c under the profile.
func (p *Profile) ComponentMax(c model.Component) (float64, bool) {
	if c == model.ComponentOBV {
		return p.OBVVariant.Max(), true
	}
	m, ok := componentMax[c]
	return m, ok
}

// Max is the sum of the enabled components' maxima.
func (p *Profile) Max() float64 {
	var total float64
	for _, c := range p.Components {
		m, _ := p.ComponentMax(c)
		total += m
	}
	return total
}

// Enabled reports whether c is part of the profile.
func (p *Profile) Enabled(c model.Component) bool {
	return slices.Contains(p.Components, c)
}

// Validate checks the profile. Every failure wraps model.ErrConfiguration.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("profile %q: %w: %v", p.Name, model.ErrConfiguration, err)
	}
	seen := make(map[model.Component]bool, len(p.Components))
	for _, c := range p.Components {
		if _, ok := p.ComponentMax(c); !ok {
			return fmt.Errorf("profile %q: %w: unknown component %q", p.Name, model.ErrConfiguration, c)
		}
		if seen[c] {
			return fmt.Errorf("profile %q: %w: duplicate component %q", p.Name, model.ErrConfiguration, c)
		}
		seen[c] = true
	}
	if seen[model.ComponentOBV] && p.OBVVariant == "" {
		return fmt.Errorf("profile %q: %w: obv component needs obv_variant", p.Name, model.ErrConfiguration)
	}
	limit := p.Max()
	if math.Abs(limit-p.DeclaredMax) > 1e-9 {
		return fmt.Errorf("profile %q: %w: declared max %.1f, components add up to %.1f",
			p.Name, model.ErrConfiguration, p.DeclaredMax, limit)
	}
	if p.StrongThreshold > limit || p.QualifyThreshold > limit {
		return fmt.Errorf("profile %q: %w: thresholds must not exceed max %.1f", p.Name, model.ErrConfiguration, limit)
	}
	if err := p.Ladder.Validate(limit); err != nil {
		return fmt.Errorf("profile %q: %w: %v", p.Name, model.ErrConfiguration, err)
	}
	return nil
}

var (
	broken       = []model.BreakoutStatus{model.BreakoutBrokenOut}
	imminent     = []model.BreakoutStatus{model.BreakoutImminent}
	brokenOrNear = []model.BreakoutStatus{model.BreakoutBrokenOut, model.BreakoutImminent}
)

// BuiltinProfiles returns the stock profiles keyed by name.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"core": {
			Name:            "core",
			Components:      []model.Component{model.ComponentTrend, model.ComponentBreakout, model.ComponentHigherLows},
			DeclaredMax:     20,
			ExtensionFilter: true,
			Ladder: Ladder{
				{MinScore: 16, RequireStage2: true, Statuses: broken, Category: model.CategoryStage2Strong},
				{MinScore: 16, Statuses: broken, Category: model.CategoryStrong},
				{MinScore: 13, Statuses: brokenOrNear, Category: model.CategoryGood},
				{MinScore: 10, Statuses: imminent, Category: model.CategoryWatchlist},
			},
		},
		"enhanced": {
			Name: "enhanced",
			Components: []model.Component{
				model.ComponentTrend, model.ComponentNearHigh, model.ComponentHigherLows,
				model.ComponentVolume, model.ComponentOBV,
			},
			DeclaredMax:     32,
			ExtensionFilter: true,
			OBVVariant:      OBVBasic,
			OBVGate:         15,
			MinMarketCap:    1e8,
			Ladder: Ladder{
				{MinScore: 28, RequireStage2: true, Category: model.CategoryStage2Premium},
				{MinScore: 28, Category: model.CategoryPremium},
				{MinScore: 25, RequireStage2: true, Category: model.CategoryStage2Strong},
				{MinScore: 25, Category: model.CategoryStrong},
				{MinScore: 20, Category: model.CategoryGood},
				{MinScore: 15, Category: model.CategoryWatchlist},
			},
		},
		"enhanced_obv": {
			Name: "enhanced_obv",
			Components: []model.Component{
				model.ComponentTrend, model.ComponentNearHigh, model.ComponentHigherLows,
				model.ComponentVolume, model.ComponentOBV,
			},
			DeclaredMax:     40,
			ExtensionFilter: true,
			OBVVariant:      OBVFull,
			OBVGate:         15,
			MinMarketCap:    1e9,
			Ladder: Ladder{
				{MinScore: 29, RequireStage2: true, Category: model.CategoryStage2Premium},
				{MinScore: 29, Category: model.CategoryPremium},
				{MinScore: 26, RequireStage2: true, Category: model.CategoryStage2Strong},
				{MinScore: 26, Category: model.CategoryStrong},
				{MinScore: 20, Category: model.CategoryGood},
				{MinScore: 15, Category: model.CategoryWatchlist},
			},
		},
		"vcp": {
			Name: "vcp",
			Components: []model.Component{
				model.ComponentTrendConfirmation, model.ComponentPattern,
				model.ComponentVolumeProfile, model.ComponentBreakout,
			},
			DeclaredMax:     23,
			ExtensionFilter: true,
			Ladder: Ladder{
				{MinScore: 16, Statuses: broken, Category: model.CategoryStrong},
				{MinScore: 12, Statuses: broken, Category: model.CategoryBuy},
				{Statuses: broken, Category: model.CategoryGood},
				{Statuses: imminent, Category: model.CategoryWatchlist},
			},
		},
		"momentum": {
			Name: "momentum",
			Components: []model.Component{
				model.ComponentMomentum, model.ComponentQuality,
				model.ComponentWeekly, model.ComponentFundamental,
			},
			DeclaredMax:      190,
			FundamentalGate:  70,
			StrongThreshold:  150,
			QualifyThreshold: 120,
			Ladder: Ladder{
				{MinScore: 150, RequireNew: true, Category: model.CategoryNewStrongBuy},
				{MinScore: 150, Category: model.CategoryStrongBuy},
				{MinScore: 120, Category: model.CategoryBuy},
			},
		},
		"short": {
			Name:        "short",
			Components:  []model.Component{model.ComponentShortMomentum},
			DeclaredMax: 100,
			Ladder: Ladder{
				{MinScore: 85, Category: model.CategoryStrongShort},
				{MinScore: 70, Category: model.CategoryShort},
			},
		},
	}
}

// LookupProfile returns a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	p, ok := BuiltinProfiles()[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown profile %q", model.ErrConfiguration, name)
	}
	return p, nil
}
