package strategy

import (
	"fmt"
	"math"
	"strings"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// OBV analysis windows.
const (
	OBVTrendSessions   = 10
	AccumulationWindow = 21
	DivergenceWindow   = 20
	// QuietPricePct is the price move below which rising OBV alone signals accumulation.
	QuietPricePct = 5.0
)

// OBVResult holds each OBV sub-check and the variant's score.
type OBVResult struct {
	TrendUp           bool
	Accumulation      bool
	HigherLows        bool
	OBVHigherHigh     bool
	BullishDivergence bool
	Score             float64
	Max               float64
	Evaluable         bool
}

// OBVTrendUp reports whether OBV-MA21 is above its value 10 sessions ago.
func OBVTrendUp(s *model.SeriesSnapshot) bool {
	return model.Greater(model.Back(s.OBVMA21, 0), model.Back(s.OBVMA21, OBVTrendSessions))
}

// Accumulation reports rising OBV over 21 sessions that outpaces price, or
// rises while price is roughly flat.
func Accumulation(s *model.SeriesSnapshot) bool {
	n := s.Len()
	if n <= AccumulationWindow {
		return false
	}
	obvNow, obvThen := model.Back(s.OBV, 0), model.Back(s.OBV, AccumulationWindow)
	if !obvNow.Valid || !obvThen.Valid || obvThen.Float64 == 0 {
		return false
	}
	obvChange := (obvNow.Float64 - obvThen.Float64) / math.Abs(obvThen.Float64) * 100
	priceThen := s.Bars[n-1-AccumulationWindow].Close
	priceChange := (s.Last().Close - priceThen) / priceThen * 100
	return obvChange > 0 && (obvChange > priceChange || math.Abs(priceChange) < QuietPricePct)
}

// OBVHigherHigh reports whether the highest OBV of the last 20 sessions
// exceeds the highest of the 20 before.
func OBVHigherHigh(s *model.SeriesSnapshot) bool {
	n := s.Len()
	if n < 2*DivergenceWindow || !model.At(s.OBV, n-2*DivergenceWindow).Valid {
		return false
	}
	obv := make([]float64, n)
	for i, v := range s.OBV {
		obv[i] = v.Float64
	}
	return calculator.MaxOf(obv, n-DivergenceWindow, n) > calculator.MaxOf(obv, n-2*DivergenceWindow, n-DivergenceWindow)
}

// PriceHigherHigh is OBVHigherHigh for the high column.
func PriceHigherHigh(s *model.SeriesSnapshot) bool {
	n := s.Len()
	if n < 2*DivergenceWindow {
		return false
	}
	highs := s.Highs()
	return calculator.MaxOf(highs, n-DivergenceWindow, n) > calculator.MaxOf(highs, n-2*DivergenceWindow, n-DivergenceWindow)
}

// BullishDivergence requires an OBV higher high that price has not matched.
func BullishDivergence(s *model.SeriesSnapshot) bool {
	return OBVHigherHigh(s) && !PriceHigherHigh(s)
}

// AnalyzeOBV scores the OBV sub-checks of the variant. Basic scores trend
// and accumulation (max 6); full adds higher lows, the OBV higher high and
// the divergence bonus (max 14).
func AnalyzeOBV(s *model.SeriesSnapshot, variant OBVVariant) OBVResult {
	res := OBVResult{Max: variant.Max()}
	minBars := AccumulationWindow + 1 + OBVTrendSessions
	if variant == OBVFull {
		minBars = 2 * higherLowPeriods[len(higherLowPeriods)-1]
	}
	if s.Len() < minBars {
		return res
	}
	res.Evaluable = true

	if res.TrendUp = OBVTrendUp(s); res.TrendUp {
		res.Score += 3
	}
	if res.Accumulation = Accumulation(s); res.Accumulation {
		res.Score += 3
	}
	if variant != OBVFull {
		return res
	}

	count, _ := HigherLows(s)
	if res.HigherLows = count >= MinHigherLows; res.HigherLows {
		res.Score += 3
	}
	if res.OBVHigherHigh = OBVHigherHigh(s); res.OBVHigherHigh {
		res.Score++
		if res.BullishDivergence = !PriceHigherHigh(s); res.BullishDivergence {
			res.Score += 4
		}
	}
	return res
}

func (r OBVResult) component() model.ComponentScore {
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{r.TrendUp, "trend"},
		{r.Accumulation, "accumulation"},
		{r.HigherLows, "higher_lows"},
		{r.OBVHigherHigh, "higher_high"},
		{r.BullishDivergence, "divergence"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	return model.ComponentScore{
		Component: model.ComponentOBV,
		Score:     r.Score,
		Max:       r.Max,
		Evaluable: r.Evaluable,
		Passed:    r.TrendUp && r.Accumulation,
		Detail:    fmt.Sprintf("signals: %s", strings.Join(flags, ",")),
	}
}
