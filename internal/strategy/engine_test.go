package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/synthetic"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func snapshot(t *testing.T, bars []model.PriceBar) *model.SeriesSnapshot {
	t.Helper()
	s, err := calculator.BuildSnapshot(bars)
	require.NoError(t, err)
	return s
}

func flat(n int, price, volume float64) []model.PriceBar {
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = price
		volumes[i] = volume
	}
	return synthetic.Bars(closes, volumes, start, 0.005)
}

// stubSource serves fixed weekly bars and fundamentals.
type stubSource struct {
	weekly       []model.PriceBar
	fundamentals *model.Fundamentals
	err          error
	calls        int
}

func (s *stubSource) FetchWeeklyBars(_ context.Context, _ string, _ int) ([]model.PriceBar, error) {
	return s.weekly, s.err
}

func (s *stubSource) FetchFundamentals(_ context.Context, _ string) (*model.Fundamentals, error) {
	s.calls++
	return s.fundamentals, s.err
}

type stubNovelty struct {
	isNew     bool
	threshold float64
}

func (n *stubNovelty) IsNew(_ string, _ time.Time, _, threshold float64) bool {
	n.threshold = threshold
	return n.isNew
}

func engine(t *testing.T, name string, opts ...Option) *Engine {
	t.Helper()
	p, err := LookupProfile(name)
	require.NoError(t, err)
	e, err := NewEngine(p, opts...)
	require.NoError(t, err)
	return e
}

func largeCap() *stubSource {
	return &stubSource{fundamentals: &model.Fundamentals{MarketCap: null.FloatFrom(5e9)}}
}

func TestCategorize_CoreBoundaries(t *testing.T) {
	ladder := BuiltinProfiles()["core"].Ladder
	cases := []struct {
		total  float64
		stage2 bool
		status model.BreakoutStatus
		want   model.Category
	}{
		{20, true, model.BreakoutBrokenOut, model.CategoryStage2Strong},
		{16, true, model.BreakoutBrokenOut, model.CategoryStage2Strong},
		{16, false, model.BreakoutBrokenOut, model.CategoryStrong},
		{15.9, true, model.BreakoutBrokenOut, model.CategoryGood},
		{16, true, model.BreakoutImminent, model.CategoryGood},
		{13, false, model.BreakoutImminent, model.CategoryGood},
		{12.9, false, model.BreakoutImminent, model.CategoryWatchlist},
		{10, false, model.BreakoutImminent, model.CategoryWatchlist},
		{12, false, model.BreakoutBrokenOut, model.CategoryRejected},
		{20, true, model.BreakoutFar, model.CategoryRejected},
		{9.9, false, model.BreakoutImminent, model.CategoryRejected},
	}
	for _, tc := range cases {
		got := ladder.Categorize(Conditions{Total: tc.total, Stage2: tc.stage2, Breakout: tc.status})
		if got != tc.want {
			t.Errorf("core(%.1f, stage2=%t, %s) = %s, want %s", tc.total, tc.stage2, tc.status, got, tc.want)
		}
	}
}

func TestCategorize_EnhancedOBVBoundaries(t *testing.T) {
	ladder := BuiltinProfiles()["enhanced_obv"].Ladder
	cases := []struct {
		total  float64
		stage2 bool
		want   model.Category
	}{
		{40, true, model.CategoryStage2Premium},
		{29, true, model.CategoryStage2Premium},
		{29, false, model.CategoryPremium},
		{28, true, model.CategoryStage2Strong},
		{26, false, model.CategoryStrong},
		{25, true, model.CategoryGood},
		{20, false, model.CategoryGood},
		{15, false, model.CategoryWatchlist},
		{14.5, true, model.CategoryRejected},
		{0, false, model.CategoryRejected},
	}
	for _, tc := range cases {
		got := ladder.Categorize(Conditions{Total: tc.total, Stage2: tc.stage2})
		if got != tc.want {
			t.Errorf("enhanced_obv(%.1f, stage2=%t) = %s, want %s", tc.total, tc.stage2, got, tc.want)
		}
	}
}

func TestCategorize_EnhancedBoundaries(t *testing.T) {
	ladder := BuiltinProfiles()["enhanced"].Ladder
	cases := []struct {
		total  float64
		stage2 bool
		want   model.Category
	}{
		{32, true, model.CategoryStage2Premium},
		{28, true, model.CategoryStage2Premium},
		{28, false, model.CategoryPremium},
		{27.5, true, model.CategoryStage2Strong},
		{25, false, model.CategoryStrong},
		{24.5, true, model.CategoryGood},
		{20, false, model.CategoryGood},
		{15, true, model.CategoryWatchlist},
		{14.5, true, model.CategoryRejected},
	}
	for _, tc := range cases {
		got := ladder.Categorize(Conditions{Total: tc.total, Stage2: tc.stage2})
		if got != tc.want {
			t.Errorf("enhanced(%.1f, stage2=%t) = %s, want %s", tc.total, tc.stage2, got, tc.want)
		}
	}
}

func TestCategorize_Short(t *testing.T) {
	ladder := BuiltinProfiles()["short"].Ladder
	assert.Equal(t, model.CategoryStrongShort, ladder.Categorize(Conditions{Total: 85}))
	assert.Equal(t, model.CategoryShort, ladder.Categorize(Conditions{Total: 80}))
	assert.Equal(t, model.CategoryShort, ladder.Categorize(Conditions{Total: 70}))
	assert.Equal(t, model.CategoryRejected, ladder.Categorize(Conditions{Total: 60}))
}

func TestCategorize_MomentumNovelty(t *testing.T) {
	ladder := BuiltinProfiles()["momentum"].Ladder
	assert.Equal(t, model.CategoryNewStrongBuy, ladder.Categorize(Conditions{Total: 160, IsNew: true}))
	assert.Equal(t, model.CategoryStrongBuy, ladder.Categorize(Conditions{Total: 160}))
	assert.Equal(t, model.CategoryBuy, ladder.Categorize(Conditions{Total: 149, IsNew: true}))
	assert.Equal(t, model.CategoryRejected, ladder.Categorize(Conditions{Total: 119}))
}

// A strictly higher total under the same conditions never maps to a lower
// ranked category.
func TestCategorize_Monotonic(t *testing.T) {
	statuses := []model.BreakoutStatus{model.BreakoutFar, model.BreakoutImminent, model.BreakoutBrokenOut}
	for name, p := range BuiltinProfiles() {
		for _, stage2 := range []bool{false, true} {
			for _, isNew := range []bool{false, true} {
				for _, status := range statuses {
					prev := -1
					for total := 0.0; total <= p.Max(); total += 0.5 {
						c := p.Ladder.Categorize(Conditions{Total: total, Stage2: stage2, Breakout: status, IsNew: isNew})
						if c.Rank() < prev {
							t.Fatalf("%s: total %.1f ranks %s below a lower total", name, total, c)
						}
						prev = c.Rank()
					}
				}
			}
		}
	}
}

func TestBuiltinProfiles_Valid(t *testing.T) {
	want := map[string]float64{"core": 20, "enhanced": 32, "enhanced_obv": 40, "vcp": 23, "momentum": 190, "short": 100}
	for name, p := range BuiltinProfiles() {
		require.NoError(t, p.Validate(), name)
		assert.Equal(t, want[name], p.Max(), name)
	}
}

func TestProfileValidate_Errors(t *testing.T) {
	mutations := map[string]func(p *Profile){
		"declared max mismatch": func(p *Profile) { p.DeclaredMax = 30 },
		"unknown component":     func(p *Profile) { p.Components = append(p.Components, "sentiment") },
		"duplicate component":   func(p *Profile) { p.Components = append(p.Components, model.ComponentTrend) },
		"rank increases":        func(p *Profile) { p.Ladder = append(p.Ladder, Rung{MinScore: 1, Category: model.CategoryPremium}) },
		"unreachable rung":      func(p *Profile) { p.Ladder[0].MinScore = 50 },
		"unknown category":      func(p *Profile) { p.Ladder[0].Category = "moonshot" },
		"empty ladder":          func(p *Profile) { p.Ladder = nil },
		"missing name":          func(p *Profile) { p.Name = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p, _ := LookupProfile("core")
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrConfiguration), err.Error())
		})
	}
}

func TestLookupProfile_Unknown(t *testing.T) {
	_, err := LookupProfile("nope")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestScore_VCPRoundTrip(t *testing.T) {
	s := snapshot(t, synthetic.VCPBars(start))

	e := engine(t, "enhanced_obv")
	res, err := e.Score(context.Background(), Input{Symbol: "VCP", Date: start, Snapshot: s, Source: largeCap()})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Trend.CriteriaMet, 8)
	assert.True(t, res.Trend.IsStage2)
	assert.Equal(t, model.BreakoutImminent, res.Breakout.Status)
	assert.False(t, res.Extension.Extended)
	require.NotNil(t, res.OBV)
	assert.Equal(t, 10.0, res.OBV.Score)
	near, ok := res.Card.Get(model.ComponentNearHigh)
	require.True(t, ok)
	assert.Equal(t, 5.0, near.Score)
	assert.Equal(t, 34.0, res.Card.Total)
	assert.Equal(t, 40.0, res.Card.Max)
	assert.Equal(t, model.CategoryStage2Premium, res.Category)
	assert.GreaterOrEqual(t, res.Category.Rank(), model.CategoryGood.Rank())
	assert.True(t, res.Qualifies, "actionable categories qualify when the profile has no threshold")

	core, err := engine(t, "core").Score(context.Background(), Input{Symbol: "VCP", Snapshot: s})
	require.NoError(t, err)
	assert.Equal(t, 17.0, core.Card.Total)
	assert.Equal(t, model.CategoryGood, core.Category)
}

func TestScore_VCPProfile(t *testing.T) {
	s := snapshot(t, synthetic.VCPBars(start))
	res, err := engine(t, "vcp").Score(context.Background(), Input{Symbol: "VCP", Snapshot: s})
	require.NoError(t, err)

	assert.True(t, res.Contraction.Valid)
	pattern, ok := res.Card.Get(model.ComponentPattern)
	require.True(t, ok)
	assert.Equal(t, 6.0, pattern.Score)
	assert.Equal(t, 18.0, res.Card.Total)
	assert.Equal(t, model.CategoryWatchlist, res.Category)
}

// steepRun is a flat base followed by ten sessions rising 3% a day.
func steepRun() []model.PriceBar {
	bars := flat(80, 100, 1_000_000)
	p := 100.0
	for i := 0; i < 10; i++ {
		p *= 1.03
		bars = append(bars, model.PriceBar{
			Time: bars[len(bars)-1].Time.AddDate(0, 0, 1),
			Open: p / 1.03, High: p * 1.005, Low: p * 0.995, Close: p, Volume: 1_000_000,
		})
	}
	return bars
}

func TestScore_ExtendedSkipsExpensiveComponents(t *testing.T) {
	s := snapshot(t, steepRun())
	src := largeCap()

	res, err := engine(t, "enhanced_obv").Score(context.Background(), Input{Symbol: "RUN", Snapshot: s, Source: src})
	require.NoError(t, err)
	assert.True(t, res.Extension.Extended)
	assert.Equal(t, model.CategoryExtended, res.Category)
	assert.False(t, res.Qualifies)
	assert.Nil(t, res.OBV)
	assert.Zero(t, src.calls, "the market cap gate must not fetch fundamentals for extended symbols")
	assert.Nil(t, res.Fundamentals)

	obv, _ := res.Card.Get(model.ComponentOBV)
	assert.True(t, obv.Skipped)
	near, ok := res.Card.Get(model.ComponentNearHigh)
	require.True(t, ok)
	assert.Zero(t, near.Score)
	assert.Equal(t, "extended", near.Detail)
}

func TestScore_ExtendedNeverQualifies(t *testing.T) {
	p, err := LookupProfile("core")
	require.NoError(t, err)
	p.QualifyThreshold = 1
	e, err := NewEngine(p)
	require.NoError(t, err)

	res, err := e.Score(context.Background(), Input{Symbol: "RUN", Snapshot: snapshot(t, steepRun())})
	require.NoError(t, err)
	assert.True(t, res.Extension.Extended)
	assert.Equal(t, model.CategoryExtended, res.Category)
	assert.GreaterOrEqual(t, res.Card.Total, p.QualifyThreshold)
	assert.False(t, res.Qualifies)
}

func TestScore_BelowGateSkipsOBV(t *testing.T) {
	s := snapshot(t, flat(120, 100, 1_000_000))
	res, err := engine(t, "enhanced_obv").Score(context.Background(), Input{Symbol: "FLAT", Snapshot: s, Source: largeCap()})
	require.NoError(t, err)

	obv, ok := res.Card.Get(model.ComponentOBV)
	require.True(t, ok)
	assert.True(t, obv.Skipped)
	assert.Nil(t, res.OBV)
	assert.Equal(t, model.CategoryRejected, res.Category)
}

func TestScore_MarketCapMinimum(t *testing.T) {
	s := snapshot(t, synthetic.VCPBars(start))
	small := &stubSource{fundamentals: &model.Fundamentals{MarketCap: null.FloatFrom(5e7)}}

	res, err := engine(t, "enhanced").Score(context.Background(), Input{Symbol: "SMALL", Snapshot: s, Source: small})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryRejected, res.Category)
	assert.Contains(t, res.Rejection, "market cap")
	assert.Empty(t, res.Card.Components)

	failing := &stubSource{err: model.ErrProviderUnavailable}
	_, err = engine(t, "enhanced").Score(context.Background(), Input{Symbol: "DOWN", Snapshot: s, Source: failing})
	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
}

func TestScore_FundamentalsFetchedOnce(t *testing.T) {
	p, err := LookupProfile("momentum")
	require.NoError(t, err)
	p.MinMarketCap = 1e9
	e, err := NewEngine(p)
	require.NoError(t, err)

	src := largeCap()
	s := snapshot(t, synthetic.TrendBars(start, 260, 50, 0.003))
	res, err := e.Score(context.Background(), Input{Symbol: "UP", Snapshot: s, Source: src})
	require.NoError(t, err)

	fund, _ := res.Card.Get(model.ComponentFundamental)
	assert.True(t, fund.Evaluable)
	assert.Equal(t, 1, src.calls)
}

func TestScore_MomentumConsultsNovelty(t *testing.T) {
	s := snapshot(t, synthetic.TrendBars(start, 260, 50, 0.003))
	novelty := &stubNovelty{isNew: true}
	e := engine(t, "momentum", WithNovelty(novelty))

	res, err := e.Score(context.Background(), Input{Symbol: "UP", Date: start, Snapshot: s})
	require.NoError(t, err)
	assert.Equal(t, 150.0, novelty.threshold)
	assert.True(t, res.IsNew)

	fund, ok := res.Card.Get(model.ComponentFundamental)
	require.True(t, ok)
	assert.False(t, fund.Evaluable)
}

func TestScore_ShortProfile(t *testing.T) {
	e := engine(t, "short")

	down, err := e.Score(context.Background(), Input{Symbol: "DOWN", Snapshot: snapshot(t, synthetic.TrendBars(start, 120, 100, -0.001))})
	require.NoError(t, err)
	assert.Contains(t, []model.Category{model.CategoryShort, model.CategoryStrongShort}, down.Category)
	assert.True(t, down.Qualifies)
	assert.Equal(t, 100.0, down.Card.Max)

	up, err := e.Score(context.Background(), Input{Symbol: "UP", Snapshot: snapshot(t, synthetic.TrendBars(start, 260, 50, 0.003))})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryRejected, up.Category)
	assert.False(t, up.Qualifies)
}

func TestScore_EnhancedUsesWeeklyHighs(t *testing.T) {
	s := snapshot(t, synthetic.VCPBars(start))
	src := &stubSource{
		weekly:       weeklyBars(NearHighWeeks, 0),
		fundamentals: &model.Fundamentals{MarketCap: null.FloatFrom(2e8)},
	}
	res, err := engine(t, "enhanced").Score(context.Background(), Input{Symbol: "VCP", Snapshot: s, Source: src})
	require.NoError(t, err)
	assert.Empty(t, res.Rejection, "$200M clears the $100M minimum")

	near, ok := res.Card.Get(model.ComponentNearHigh)
	require.True(t, ok)
	assert.Equal(t, 6.0, near.Score)
	assert.Equal(t, 32.0, res.Card.Max)
	assert.Equal(t, 1, src.calls)
}

func TestScore_TotalNeverExceedsMax(t *testing.T) {
	series := [][]model.PriceBar{
		synthetic.VCPBars(start),
		synthetic.TrendBars(start, 300, 20, 0.004),
		flat(250, 50, 500_000),
	}
	for name := range BuiltinProfiles() {
		e := engine(t, name)
		for _, bars := range series {
			res, err := e.Score(context.Background(), Input{Symbol: "X", Snapshot: snapshot(t, bars), Source: largeCap()})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.Card.Total, res.Card.Max, name)
		}
	}
}

func TestScore_EmptySnapshot(t *testing.T) {
	_, err := engine(t, "core").Score(context.Background(), Input{Symbol: "NONE"})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestResult_ScanResult(t *testing.T) {
	s := snapshot(t, synthetic.VCPBars(start))
	res, err := engine(t, "core").Score(context.Background(), Input{Symbol: "VCP", Snapshot: s})
	require.NoError(t, err)

	at := start.AddDate(1, 0, 0)
	out := res.ScanResult("run-1", s, at)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "core", out.Profile)
	assert.Equal(t, res.Category, out.Category)
	assert.Equal(t, model.BreakoutImminent, out.Breakout)
	assert.InDelta(t, 99.6, out.Metrics.Close.Float64, 1e-9)
	assert.True(t, out.Metrics.MA200.Valid)
	assert.Equal(t, at, out.ScannedAt)
}
