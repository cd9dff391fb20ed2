package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"
)

// RSI computes the Wilder-smoothed RSI over the given period. The initial
// average gain/loss is the simple mean of the first period changes, so the
// first defined entry is at index period. Requires at least period+1 closes.
func RSI(closes []float64, period int) ([]null.Float, error) {
	if period < 2 {
		return nil, fmt.Errorf("rsi period must be at least 2, got %d", period)
	}
	if err := checkWindow(len(closes), period, period+1); err != nil {
		return nil, fmt.Errorf("rsi(%d): %w", period, err)
	}
	return mask(talib.Rsi(closes, period), period), nil
}

// LastRSI returns the most recent RSI value.
func LastRSI(closes []float64, period int) (float64, error) {
	col, err := RSI(closes, period)
	if err != nil {
		return 0, err
	}
	return col[len(col)-1].Float64, nil
}
