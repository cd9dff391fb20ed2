package calculator

import (
	"fmt"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and is undefined.
func TrueRange(bars []model.PriceBar) ([]null.Float, error) {
	if err := checkWindow(len(bars), 1, 2); err != nil {
		return nil, fmt.Errorf("true range: %w", err)
	}
	highs, lows, closes := hlc(bars)
	return mask(talib.TRange(highs, lows, closes), 1), nil
}

// ATR is the rolling simple mean of True Range over window bars. It is
// defined from index window, since the first bar has no true range.
func ATR(bars []model.PriceBar, window int) ([]null.Float, error) {
	if err := checkWindow(len(bars), window, window+1); err != nil {
		return nil, fmt.Errorf("atr(%d): %w", window, err)
	}
	tr, err := TrueRange(bars)
	if err != nil {
		return nil, err
	}
	return SMAOf(tr, window)
}

func hlc(bars []model.PriceBar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return highs, lows, closes
}
