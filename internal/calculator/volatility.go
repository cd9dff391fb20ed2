package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Returns computes simple percentage returns as fractions; index 0 is undefined.
func Returns(closes []float64) []null.Float {
	out := make([]null.Float, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i] = null.FloatFrom(closes[i]/closes[i-1] - 1)
		}
	}
	return out
}

// Volatility is the sample standard deviation of the trailing window of
// returns. Defined from index window.
func Volatility(closes []float64, window int) ([]null.Float, error) {
	if window < 2 {
		return nil, fmt.Errorf("volatility window must be at least 2, got %d", window)
	}
	if err := checkWindow(len(closes), window, window+1); err != nil {
		return nil, fmt.Errorf("volatility(%d): %w", window, err)
	}
	rets := Returns(closes)
	out := make([]null.Float, len(closes))
	buf := make([]float64, window)
	for i := window; i < len(closes); i++ {
		ok := true
		for j := 0; j < window; j++ {
			r := rets[i-window+1+j]
			if !r.Valid {
				ok = false
				break
			}
			buf[j] = r.Float64
		}
		if ok {
			out[i] = null.FloatFrom(stat.StdDev(buf, nil))
		}
	}
	return out, nil
}

// StdDevOfReturns is the sample standard deviation of the last window returns.
func StdDevOfReturns(closes []float64, window int) (float64, error) {
	col, err := Volatility(closes, window)
	if err != nil {
		return 0, err
	}
	return col[len(col)-1].Float64, nil
}

// ROC is the window-session rate of change in percent. Defined from index window.
func ROC(closes []float64, window int) ([]null.Float, error) {
	if err := checkWindow(len(closes), window, window+1); err != nil {
		return nil, fmt.Errorf("roc(%d): %w", window, err)
	}
	return mask(talib.Roc(closes, window), window), nil
}
