// Package synthetic builds deterministic price series for the mock provider
// and for tests.
package synthetic

import (
	"time"

	"TrendSentinel/internal/model"
)

// Knot anchors a close price at a bar index.
type Knot struct {
	Index int
	Price float64
}

// Path linearly interpolates closes between knots. The last knot sets the length.
func Path(knots []Knot) []float64 {
	if len(knots) == 0 {
		return nil
	}
	out := make([]float64, knots[len(knots)-1].Index+1)
	out[knots[0].Index] = knots[0].Price
	for k := 1; k < len(knots); k++ {
		a, b := knots[k-1], knots[k]
		span := float64(b.Index - a.Index)
		for i := a.Index; i <= b.Index; i++ {
			out[i] = a.Price + (b.Price-a.Price)*float64(i-a.Index)/span
		}
	}
	return out
}

// Taper returns n volumes falling linearly from first to last.
func Taper(n int, first, last float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if n == 1 {
			out[i] = first
			continue
		}
		out[i] = first + (last-first)*float64(i)/float64(n-1)
	}
	return out
}

// TradingDays returns n weekdays starting at start.
func TradingDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Bars builds bars from closes and volumes. Highs and lows sit spread above
// and below the close; the open equals the previous close.
func Bars(closes, volumes []float64, start time.Time, spread float64) []model.PriceBar {
	days := TradingDays(start, len(closes))
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = model.PriceBar{
			Time:   days[i],
			Open:   open,
			High:   c * (1 + spread),
			Low:    c * (1 - spread),
			Close:  c,
			Volume: volumes[i],
		}
	}
	return bars
}

// VCPKnots describes a 260-bar base: a steady advance to 100, then pullbacks
// of roughly 12%, 6% and 3% that each recover to 100, ending in a tight
// drift just under resistance.
var VCPKnots = []Knot{
	{0, 50}, {160, 100},
	{170, 88}, {190, 100},
	{200, 94}, {215, 100},
	{225, 97}, {240, 100},
	{245, 99}, {259, 99.6},
}

// VCPBars returns the VCP scenario with volume tapering from 2M to 0.6M and
// drying up to 0.3M over the final five sessions.
func VCPBars(start time.Time) []model.PriceBar {
	closes := Path(VCPKnots)
	volumes := Taper(len(closes), 2_000_000, 600_000)
	for i := len(volumes) - 5; i < len(volumes); i++ {
		volumes[i] = 300_000
	}
	return Bars(closes, volumes, start, 0.005)
}

// TrendBars returns n bars compounding at dailyPct from base with a small
// weekly oscillation and flat volume.
func TrendBars(start time.Time, n int, base, dailyPct float64) []model.PriceBar {
	closes := make([]float64, n)
	volumes := make([]float64, n)
	p := base
	for i := range closes {
		wobble := []float64{0, 0.004, -0.003, 0.002, -0.002}[i%5]
		closes[i] = p * (1 + wobble)
		volumes[i] = 1_000_000 + float64(i%10)*20_000
		p *= 1 + dailyPct
	}
	return Bars(closes, volumes, start, 0.01)
}
