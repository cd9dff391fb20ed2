package calculator

import (
	"fmt"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"
)

// SMA computes the simple moving average of values over the trailing window.
// Entries before index window-1 are undefined.
func SMA(values []float64, window int) ([]null.Float, error) {
	if err := checkWindow(len(values), window, window); err != nil {
		return nil, fmt.Errorf("sma(%d): %w", window, err)
	}
	return mask(talib.Sma(values, window), window-1), nil
}

// EMA computes the exponential moving average seeded with the SMA of the
// first window values. Entries before index window-1 are undefined.
func EMA(values []float64, window int) ([]null.Float, error) {
	if err := checkWindow(len(values), window, window); err != nil {
		return nil, fmt.Errorf("ema(%d): %w", window, err)
	}
	return mask(talib.Ema(values, window), window-1), nil
}

// SMAOf averages a column that itself has an undefined prefix, such as OBV
// or MACD. The first window-1 entries after the prefix stay undefined.
func SMAOf(col []null.Float, window int) ([]null.Float, error) {
	start := firstValid(col)
	if start < 0 {
		return nil, fmt.Errorf("sma(%d): empty column: %w", window, model.ErrInsufficientData)
	}
	avg, err := SMA(floats(col[start:]), window)
	if err != nil {
		return nil, err
	}
	return shift(avg, start), nil
}

// LastSMA returns the simple average of the last window values.
func LastSMA(values []float64, window int) (float64, error) {
	if err := checkWindow(len(values), window, window); err != nil {
		return 0, fmt.Errorf("sma(%d): %w", window, err)
	}
	sum := 0.0
	for i := len(values) - window; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(window), nil
}

// Closes extracts the close column from bars.
func Closes(bars []model.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func checkWindow(n, window, minLen int) error {
	if window <= 0 {
		return fmt.Errorf("window must be positive, got %d", window)
	}
	if n < minLen {
		return fmt.Errorf("need %d values, have %d: %w", minLen, n, model.ErrInsufficientData)
	}
	return nil
}

// mask converts a talib output, whose lookback region is zero-filled, into a
// column where entries before from are undefined.
func mask(values []float64, from int) []null.Float {
	out := make([]null.Float, len(values))
	for i := from; i < len(values); i++ {
		out[i] = null.FloatFrom(values[i])
	}
	return out
}

// shift places col at offset start within a column of len(col)+start entries.
func shift(col []null.Float, start int) []null.Float {
	out := make([]null.Float, len(col)+start)
	copy(out[start:], col)
	return out
}

func firstValid(col []null.Float) int {
	for i, v := range col {
		if v.Valid {
			return i
		}
	}
	return -1
}

func floats(col []null.Float) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = v.Float64
	}
	return out
}
