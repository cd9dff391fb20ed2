package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// MACD computes EMA(fast)-EMA(slow) and its EMA(signal) line. The MACD line is
// defined from index slow-1; the signal line from slow+signal-2 when enough
// bars exist, otherwise it stays undefined.
func MACD(closes []float64, fast, slow, signal int) (macd, sig []null.Float, err error) {
	if fast >= slow {
		return nil, nil, fmt.Errorf("macd fast period %d must be below slow period %d", fast, slow)
	}
	emaFast, err := EMA(closes, fast)
	if err != nil {
		return nil, nil, fmt.Errorf("macd: %w", err)
	}
	emaSlow, err := EMA(closes, slow)
	if err != nil {
		return nil, nil, fmt.Errorf("macd: %w", err)
	}

	macd = make([]null.Float, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		macd[i] = null.FloatFrom(emaFast[i].Float64 - emaSlow[i].Float64)
	}

	sig = make([]null.Float, len(closes))
	if s, err := EMAOf(macd, signal); err == nil {
		sig = s
	}
	return macd, sig, nil
}

// EMAOf applies an EMA to a column with an undefined prefix.
func EMAOf(col []null.Float, window int) ([]null.Float, error) {
	start := firstValid(col)
	if start < 0 {
		return nil, fmt.Errorf("ema(%d): empty column", window)
	}
	ema, err := EMA(floats(col[start:]), window)
	if err != nil {
		return nil, err
	}
	return shift(ema, start), nil
}
