package calculator

import (
	"errors"
	"fmt"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// Snapshot column parameters.
const (
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalPeriod = 9
	ATRPeriod        = 14
	ExtensionATR     = 20
	VolatilityWindow = 20
	ROCWindow        = 10
	// Min52wBars is the history required before 52-week extremes are reported.
	Min52wBars = 200
)

// BuildSnapshot derives every indicator column for bars. Columns whose
// window exceeds the available history are left undefined instead of
// failing the snapshot; an empty series is rejected.
func BuildSnapshot(bars []model.PriceBar) (*model.SeriesSnapshot, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("build snapshot: %w", model.ErrInsufficientData)
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	n := len(bars)
	closes := Closes(bars)
	highs, lows, _ := hlc(bars)
	volumes := make([]float64, n)
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	s := &model.SeriesSnapshot{Bars: bars}
	var errs []error
	col := func(c []null.Float, err error) []null.Float {
		if err != nil {
			if !errors.Is(err, model.ErrInsufficientData) {
				errs = append(errs, err)
			}
			return make([]null.Float, n)
		}
		return c
	}

	s.MA20 = col(SMA(closes, 20))
	s.MA50 = col(SMA(closes, 50))
	s.MA150 = col(SMA(closes, 150))
	s.MA200 = col(SMA(closes, 200))
	s.VolumeMA20 = col(SMA(volumes, 20))
	s.VolumeMA50 = col(SMA(volumes, 50))
	s.RSI14 = col(RSI(closes, RSIPeriod))

	macd, sig, err := MACD(closes, MACDFast, MACDSlow, MACDSignalPeriod)
	s.MACD = col(macd, err)
	s.MACDSignal = col(sig, err)

	s.OBV = col(OBV(closes, volumes))
	s.OBVMA10 = col(SMAOf(s.OBV, 10))
	s.OBVMA21 = col(SMAOf(s.OBV, 21))

	s.ATR14 = col(ATR(bars, ATRPeriod))
	s.ATR20 = col(ATR(bars, ExtensionATR))

	s.High52w = col(RollingMax(highs, TradingDaysPerYear, Min52wBars))
	s.Low52w = col(RollingMin(lows, TradingDaysPerYear, Min52wBars))
	s.Volatility20 = col(Volatility(closes, VolatilityWindow))
	s.ROC10 = col(ROC(closes, ROCWindow))

	if len(errs) > 0 {
		return nil, fmt.Errorf("build snapshot: %w", errors.Join(errs...))
	}
	return s, nil
}
