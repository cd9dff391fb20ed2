package calculator

import (
	"math"
	"testing"
	"time"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(closes []float64) []model.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	return bars
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*0.2 + 5*math.Sin(float64(i)/6)
	}
	return out
}

func TestSMA(t *testing.T) {
	col, err := SMA([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3)
	require.NoError(t, err)
	require.Len(t, col, 10)
	assert.False(t, col[0].Valid)
	assert.False(t, col[1].Valid)
	assert.InDelta(t, 2.0, col[2].Float64, 1e-9)
	assert.InDelta(t, 9.0, col[9].Float64, 1e-9)
}

func TestSMA_InsufficientData(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestEMA_SeededWithSMA(t *testing.T) {
	col, err := EMA([]float64{2, 4, 6, 8}, 3)
	require.NoError(t, err)
	assert.False(t, col[1].Valid)
	assert.InDelta(t, 4.0, col[2].Float64, 1e-9)
	// k = 2/(3+1) = 0.5
	assert.InDelta(t, 6.0, col[3].Float64, 1e-9)
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	col, err := RSI(rising, 14)
	require.NoError(t, err)
	assert.False(t, col[13].Valid)
	require.True(t, col[14].Valid)
	assert.InDelta(t, 100.0, col[29].Float64, 1e-6)

	_, err = RSI(rising[:14], 14)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRSI_Bounds(t *testing.T) {
	col, err := RSI(wave(120), 14)
	require.NoError(t, err)
	for i := 14; i < len(col); i++ {
		require.True(t, col[i].Valid)
		assert.GreaterOrEqual(t, col[i].Float64, 0.0)
		assert.LessOrEqual(t, col[i].Float64, 100.0)
	}
}

func TestMACD_DefinedRanges(t *testing.T) {
	macd, sig, err := MACD(wave(60), 12, 26, 9)
	require.NoError(t, err)
	assert.False(t, macd[24].Valid)
	assert.True(t, macd[25].Valid)
	assert.False(t, sig[32].Valid)
	assert.True(t, sig[33].Valid)

	_, _, err = MACD(wave(20), 12, 26, 9)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestOBV(t *testing.T) {
	col, err := OBV([]float64{10, 11, 11, 10, 12}, []float64{100, 200, 300, 400, 500})
	require.NoError(t, err)
	want := []float64{100, 300, 300, -100, 400}
	for i, w := range want {
		assert.InDelta(t, w, col[i].Float64, 1e-9, "index %d", i)
	}
}

func TestTrueRangeAndATR(t *testing.T) {
	bars := makeBars([]float64{10, 10, 10, 13, 10, 10, 10, 10})
	tr, err := TrueRange(bars)
	require.NoError(t, err)
	assert.False(t, tr[0].Valid)
	assert.InDelta(t, 2.0, tr[1].Float64, 1e-9)
	// high 14 vs previous close 10
	assert.InDelta(t, 4.0, tr[3].Float64, 1e-9)
	// previous close 13 vs low 9
	assert.InDelta(t, 4.0, tr[4].Float64, 1e-9)

	atr, err := ATR(bars, 3)
	require.NoError(t, err)
	assert.False(t, atr[2].Valid)
	assert.InDelta(t, 8.0/3, atr[3].Float64, 1e-9)
	assert.InDelta(t, (2.0+4+4)/3, atr[4].Float64, 1e-9)
	assert.InDelta(t, 2.0, atr[7].Float64, 1e-9)

	_, err = ATR(bars[:3], 3)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestVolatility(t *testing.T) {
	closes := make([]float64, 40)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	col, err := Volatility(closes, 20)
	require.NoError(t, err)
	assert.False(t, col[19].Valid)
	require.True(t, col[20].Valid)
	assert.InDelta(t, 0.0, col[39].Float64, 1e-12)
}

func TestROC(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 120}
	col, err := ROC(closes, 10)
	require.NoError(t, err)
	assert.False(t, col[9].Valid)
	assert.InDelta(t, 20.0, col[10].Float64, 1e-9)
}

func TestRollingMax(t *testing.T) {
	col, err := RollingMax([]float64{1, 5, 2, 3, 4}, 3, 2)
	require.NoError(t, err)
	assert.False(t, col[0].Valid)
	assert.Equal(t, []float64{5, 5, 5, 4}, []float64{col[1].Float64, col[2].Float64, col[3].Float64, col[4].Float64})
}

func TestCalculate52WeekRange(t *testing.T) {
	bars := makeBars(wave(300))
	high, low, err := Calculate52WeekRange(bars)
	require.NoError(t, err)
	wantHigh, wantLow := math.Inf(-1), math.Inf(1)
	for _, b := range bars[len(bars)-252:] {
		wantHigh = math.Max(wantHigh, b.High)
		wantLow = math.Min(wantLow, b.Low)
	}
	assert.Equal(t, wantHigh, high)
	assert.Equal(t, wantLow, low)

	_, _, err = Calculate52WeekRange(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCalculatePosition(t *testing.T) {
	tests := []struct {
		current, high, low, want float64
	}{
		{150, 200, 100, 0.5},
		{250, 200, 100, 1},
		{50, 200, 100, 0},
		{100, 100, 100, 0.5},
	}
	for _, tt := range tests {
		got, err := CalculatePosition(tt.current, tt.high, tt.low)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestBuildSnapshot_UndefinedPrefixes(t *testing.T) {
	s, err := BuildSnapshot(makeBars(wave(260)))
	require.NoError(t, err)
	assert.Equal(t, 260, s.Len())
	assert.False(t, s.MA200[198].Valid)
	assert.True(t, s.MA200[199].Valid)
	assert.False(t, s.ATR14[13].Valid)
	assert.True(t, s.ATR14[14].Valid)
	assert.False(t, s.OBVMA21[19].Valid)
	assert.True(t, s.OBVMA21[20].Valid)
	assert.False(t, s.High52w[198].Valid)
	assert.True(t, s.High52w[199].Valid)
}

func TestBuildSnapshot_ShortSeriesLeavesColumnsUndefined(t *testing.T) {
	s, err := BuildSnapshot(makeBars(wave(30)))
	require.NoError(t, err)
	for _, v := range s.MA50 {
		assert.False(t, v.Valid)
	}
	assert.True(t, s.MA20[29].Valid)

	_, err = BuildSnapshot(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestBuildSnapshot_RejectsUnorderedBars(t *testing.T) {
	bars := makeBars(wave(10))
	bars[5].Time = bars[4].Time
	_, err := BuildSnapshot(bars)
	assert.Error(t, err)
}

// Perturbing bars after index i must not change any column at or before i.
func TestBuildSnapshot_NoLookahead(t *testing.T) {
	base := makeBars(wave(300))
	const cut = 240

	perturbed := make([]model.PriceBar, len(base))
	copy(perturbed, base)
	for i := cut + 1; i < len(perturbed); i++ {
		perturbed[i].Close *= 1.5
		perturbed[i].High *= 1.7
		perturbed[i].Low *= 0.6
		perturbed[i].Volume *= 9
	}

	a, err := BuildSnapshot(base)
	require.NoError(t, err)
	b, err := BuildSnapshot(perturbed)
	require.NoError(t, err)

	columns := map[string][2][]null.Float{
		"MA20": {a.MA20, b.MA20}, "MA50": {a.MA50, b.MA50}, "MA150": {a.MA150, b.MA150},
		"MA200": {a.MA200, b.MA200}, "VolumeMA20": {a.VolumeMA20, b.VolumeMA20},
		"RSI14": {a.RSI14, b.RSI14}, "MACD": {a.MACD, b.MACD}, "MACDSignal": {a.MACDSignal, b.MACDSignal},
		"OBV": {a.OBV, b.OBV}, "OBVMA10": {a.OBVMA10, b.OBVMA10}, "OBVMA21": {a.OBVMA21, b.OBVMA21},
		"ATR14": {a.ATR14, b.ATR14}, "ATR20": {a.ATR20, b.ATR20},
		"High52w": {a.High52w, b.High52w}, "Low52w": {a.Low52w, b.Low52w},
		"Volatility20": {a.Volatility20, b.Volatility20}, "ROC10": {a.ROC10, b.ROC10},
	}
	for name, pair := range columns {
		for i := 0; i <= cut; i++ {
			require.Equal(t, pair[0][i].Valid, pair[1][i].Valid, "%s[%d] validity", name, i)
			require.InDelta(t, pair[0][i].Float64, pair[1][i].Float64, 1e-9, "%s[%d]", name, i)
		}
	}
}
