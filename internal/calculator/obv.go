package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"
)

// OBV computes on-balance volume. The first bar's OBV equals its own volume;
// each later bar adds its volume on a higher close, subtracts it on a lower
// close, and carries the previous value on an equal close.
func OBV(closes, volumes []float64) ([]null.Float, error) {
	if len(closes) != len(volumes) {
		return nil, fmt.Errorf("obv: %d closes but %d volumes", len(closes), len(volumes))
	}
	if err := checkWindow(len(closes), 1, 1); err != nil {
		return nil, fmt.Errorf("obv: %w", err)
	}
	return mask(talib.Obv(closes, volumes), 0), nil
}
