package strategy

import (
	"fmt"
	"slices"

	"TrendSentinel/internal/model"
)

// Rung is one step of a category ladder. Every condition that is set must
// hold for the rung to match.
type Rung struct {
	MinScore      float64                `yaml:"min_score" json:"min_score" validate:"gte=0"`
	RequireStage2 bool                   `yaml:"require_stage2" json:"require_stage2"`
	Statuses      []model.BreakoutStatus `yaml:"statuses" json:"statuses"`
	RequireNew    bool                   `yaml:"require_new" json:"require_new"`
	Category      model.Category         `yaml:"category" json:"category" validate:"required"`
}

// Conditions are the facts a ladder is evaluated against.
type Conditions struct {
	Total    float64
	Stage2   bool
	Breakout model.BreakoutStatus
	IsNew    bool
}

// Matches reports whether c satisfies every condition of the rung.
func (r Rung) Matches(c Conditions) bool {
	if c.Total < r.MinScore {
		return false
	}
	if r.RequireStage2 && !c.Stage2 {
		return false
	}
	if r.RequireNew && !c.IsNew {
		return false
	}
	if len(r.Statuses) > 0 && !slices.Contains(r.Statuses, c.Breakout) {
		return false
	}
	return true
}

// Ladder is evaluated top-down; the first matching rung wins.
type Ladder []Rung

// Categorize maps c to the category of the first matching rung, or rejected.
func (l Ladder) Categorize(c Conditions) model.Category {
	for _, r := range l {
		if r.Matches(c) {
			return r.Category
		}
	}
	return model.CategoryRejected
}

// Validate checks that category ranks never increase going down the ladder
// and that every threshold is reachable. Together these make the mapping
// monotonic: a higher total can only match an earlier rung.
func (l Ladder) Validate(limit float64) error {
	prev := -1
	for i, r := range l {
		if !r.Category.Valid() {
			return fmt.Errorf("rung %d: unknown category %q", i+1, r.Category)
		}
		if r.Category == model.CategoryExtended {
			return fmt.Errorf("rung %d: category %q is reserved for the extension filter", i+1, r.Category)
		}
		if r.MinScore > limit {
			return fmt.Errorf("rung %d: min_score %.1f exceeds profile max %.1f", i+1, r.MinScore, limit)
		}
		if prev >= 0 && r.Category.Rank() > prev {
			return fmt.Errorf("rung %d: category %q ranks above the rung before it", i+1, r.Category)
		}
		prev = r.Category.Rank()
	}
	return nil
}
