package model

import (
	"fmt"
	"time"
)

// SwingKind distinguishes swing highs from swing lows.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "high"
	}
	return "low"
}

// SwingPoint is a local extreme within a symmetric window.
type SwingPoint struct {
	Index int
	Time  time.Time
	Price float64
	Kind  SwingKind
}

// PullbackEvent is the decline from a swing high to the lowest low before the next swing high.
type PullbackEvent struct {
	FromSwingHighIndex int
	ToSwingLowIndex    int
	Percent            float64
}

// ContractionResult is the outcome of VCP contraction analysis.
type ContractionResult struct {
	Pullbacks             []PullbackEvent
	Decreasing            bool
	TierMatches           int
	VolatilityContraction bool
	Score                 int
	Valid                 bool
	Evaluable             bool
}

// BreakoutStatus is the terminal state of the breakout classifier.
type BreakoutStatus int

const (
	BreakoutFar BreakoutStatus = iota
	BreakoutImminent
	BreakoutBrokenOut
)

func (s BreakoutStatus) String() string {
	switch s {
	case BreakoutBrokenOut:
		return "broken_out"
	case BreakoutImminent:
		return "imminent"
	default:
		return "far"
	}
}

// ParseBreakoutStatus maps a configuration tag to a BreakoutStatus.
func ParseBreakoutStatus(s string) (BreakoutStatus, bool) {
	switch s {
	case "broken_out":
		return BreakoutBrokenOut, true
	case "imminent":
		return BreakoutImminent, true
	case "far":
		return BreakoutFar, true
	}
	return BreakoutFar, false
}

// BreakoutResult describes price position relative to recent resistance.
type BreakoutResult struct {
	Status     BreakoutStatus
	Score      int
	Resistance float64
	// DistancePct is (resistance-close)/close*100; negative once broken out.
	DistancePct     float64
	StrengthPct     float64
	DaysAbove       int
	RangeContracted bool
	VolumeDrying    bool
	AboveSupport    bool
	Evaluable       bool
}

// ExtensionResult is the verdict of the late-breakout filter.
type ExtensionResult struct {
	Extended      bool
	Reasons       []string
	ROC10         float64
	MA20Distance  float64
	ClimacticBar  bool
	BreakoutAge   int
	PivotBreakout bool
	Evaluable     bool
}

// MarshalText encodes the status as its tag.
func (s BreakoutStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status tag.
func (s *BreakoutStatus) UnmarshalText(b []byte) error {
	v, ok := ParseBreakoutStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown breakout status %q", string(b))
	}
	*s = v
	return nil
}
