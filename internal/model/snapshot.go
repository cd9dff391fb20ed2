package model

import "github.com/guregu/null/v6"

// SeriesSnapshot is a bar sequence enriched with derived indicator columns.
// Every column has len(Bars) entries; an entry is invalid (undefined) until
// enough history exists at that index.
type SeriesSnapshot struct {
	Bars []PriceBar

	MA20  []null.Float
	MA50  []null.Float
	MA150 []null.Float
	MA200 []null.Float

	VolumeMA20 []null.Float
	VolumeMA50 []null.Float

	RSI14      []null.Float
	MACD       []null.Float
	MACDSignal []null.Float

	OBV     []null.Float
	OBVMA10 []null.Float
	OBVMA21 []null.Float

	ATR14 []null.Float
	ATR20 []null.Float

	High52w      []null.Float
	Low52w       []null.Float
	Volatility20 []null.Float
	ROC10        []null.Float
}

// Len returns the number of bars.
func (s *SeriesSnapshot) Len() int { return len(s.Bars) }

// Last returns the most recent bar. The snapshot must not be empty.
func (s *SeriesSnapshot) Last() PriceBar { return s.Bars[len(s.Bars)-1] }

// Closes returns the close column.
func (s *SeriesSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column.
func (s *SeriesSnapshot) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column.
func (s *SeriesSnapshot) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volume column.
func (s *SeriesSnapshot) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// At returns col[i], or an undefined value when i is out of range.
func At(col []null.Float, i int) null.Float {
	if i < 0 || i >= len(col) {
		return null.Float{}
	}
	return col[i]
}

// Back returns the value k sessions before the last entry of col.
func Back(col []null.Float, k int) null.Float {
	return At(col, len(col)-1-k)
}

// Greater reports a > b; false when either side is undefined.
func Greater(a, b null.Float) bool {
	return a.Valid && b.Valid && a.Float64 > b.Float64
}
