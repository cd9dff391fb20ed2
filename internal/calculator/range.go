package calculator

import (
	"errors"
	"fmt"
	"math"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// TradingDaysPerYear is the bar count treated as 52 weeks.
const TradingDaysPerYear = 252

// Calculate52WeekRange scans the most recent 252 bars (or all, if fewer) and
// returns the highest high and lowest low.
func Calculate52WeekRange(dailyBars []model.PriceBar) (high, low float64, err error) {
	return CalculateRange(dailyBars, TradingDaysPerYear)
}

// CalculateRange returns the highest high and lowest low of the last n bars.
func CalculateRange(bars []model.PriceBar, n int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, fmt.Errorf("no bars provided: %w", model.ErrInsufficientData)
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// CalculatePosition returns where current sits within [low, high] (0.0~1.0).
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// RollingMax is the maximum over the trailing window, shrinking the window at
// the start of the series. Entries with fewer than minPeriods values are undefined.
func RollingMax(values []float64, window, minPeriods int) ([]null.Float, error) {
	return rollingExtreme(values, window, minPeriods, func(a, b float64) bool { return a > b })
}

// RollingMin is the minimum counterpart of RollingMax.
func RollingMin(values []float64, window, minPeriods int) ([]null.Float, error) {
	return rollingExtreme(values, window, minPeriods, func(a, b float64) bool { return a < b })
}

func rollingExtreme(values []float64, window, minPeriods int, better func(a, b float64) bool) ([]null.Float, error) {
	if minPeriods <= 0 || minPeriods > window {
		return nil, fmt.Errorf("min periods %d must be in [1, %d]", minPeriods, window)
	}
	if err := checkWindow(len(values), window, minPeriods); err != nil {
		return nil, fmt.Errorf("rolling extreme(%d): %w", window, err)
	}
	out := make([]null.Float, len(values))
	for i := minPeriods - 1; i < len(values); i++ {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		best := values[start]
		for j := start + 1; j <= i; j++ {
			if better(values[j], best) {
				best = values[j]
			}
		}
		out[i] = null.FloatFrom(best)
	}
	return out, nil
}

// MaxOf returns the maximum of values[from:to].
func MaxOf(values []float64, from, to int) float64 {
	m := math.Inf(-1)
	for i := from; i < to; i++ {
		if values[i] > m {
			m = values[i]
		}
	}
	return m
}

// MinOf returns the minimum of values[from:to].
func MinOf(values []float64, from, to int) float64 {
	m := math.Inf(1)
	for i := from; i < to; i++ {
		if values[i] < m {
			m = values[i]
		}
	}
	return m
}

// MeanOf returns the arithmetic mean of values[from:to].
func MeanOf(values []float64, from, to int) float64 {
	if to <= from {
		return math.NaN()
	}
	sum := 0.0
	for i := from; i < to; i++ {
		sum += values[i]
	}
	return sum / float64(to-from)
}
