package strategy

import (
	"context"
	"fmt"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/pattern"

	"github.com/rs/zerolog"
)

// Supplemental provides the data that is only fetched when a profile needs it.
type Supplemental interface {
	FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error)
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
}

// Novelty answers whether a strong score is a first appearance.
type Novelty interface {
	IsNew(symbol string, date time.Time, score, threshold float64) bool
}

// Input is one symbol to score.
type Input struct {
	Symbol   string
	Date     time.Time
	Snapshot *model.SeriesSnapshot
	Source   Supplemental
}

// Result is the composite evaluation of one symbol. Qualifies marks totals at
// or above the profile's qualify threshold, or actionable categories when the
// profile has none; qualifying results are the ones kept in the history.
// Extended results never qualify.
type Result struct {
	Symbol       string
	Profile      string
	Card         model.ScoreCard
	Category     model.Category
	Trend        model.TrendTemplateResult
	Breakout     model.BreakoutResult
	Contraction  model.ContractionResult
	Extension    model.ExtensionResult
	OBV          *OBVResult
	Fundamentals *model.Fundamentals
	IsNew        bool
	Qualifies    bool
	Rejection    string
}

// ScanResult converts r into an exportable record.
func (r *Result) ScanResult(runID string, s *model.SeriesSnapshot, at time.Time) model.ScanResult {
	return model.ScanResult{
		RunID:            runID,
		Symbol:           r.Symbol,
		Profile:          r.Profile,
		Category:         r.Category,
		Total:            r.Card.Total,
		Max:              r.Card.Max,
		Components:       r.Card.Components,
		Breakout:         r.Breakout.Status,
		Stage2:           r.Trend.IsStage2,
		Extended:         r.Extension.Extended,
		ExtensionReasons: r.Extension.Reasons,
		IsNew:            r.IsNew,
		Metrics:          BuildMetrics(s, r.Fundamentals),
		ScannedAt:        at,
	}
}

// Engine scores symbols under one profile.
type Engine struct {
	profile   Profile
	pattern   pattern.Config
	extension ExtensionConfig
	novelty   Novelty
	log       zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPatternConfig overrides the VCP parameters.
func WithPatternConfig(c pattern.Config) Option { return func(e *Engine) { e.pattern = c } }

// WithExtensionConfig overrides the extension thresholds.
func WithExtensionConfig(c ExtensionConfig) Option { return func(e *Engine) { e.extension = c } }

// WithNovelty sets the tracker consulted for first-appearance categories.
func WithNovelty(n Novelty) Option { return func(e *Engine) { e.novelty = n } }

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// NewEngine validates p and returns an engine for it.
func NewEngine(p Profile, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		profile:   p,
		pattern:   pattern.DefaultConfig(),
		extension: DefaultExtensionConfig(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.pattern.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return e, nil
}

// Profile returns the engine's profile.
func (e *Engine) Profile() Profile { return e.profile }

func (e *Engine) expensive(c model.Component) (gate float64, ok bool) {
	switch c {
	case model.ComponentOBV:
		return e.profile.OBVGate, true
	case model.ComponentFundamental:
		return e.profile.FundamentalGate, true
	}
	return 0, false
}

// Score evaluates in. The extension filter runs first and keeps extended
// symbols away from every network-backed step, the market cap gate included;
// cheap components are then summed into a preliminary score that gates the
// expensive ones (OBV, fundamentals). Components lacking history score 0 and
// are not evaluable. Extended results never qualify.
func (e *Engine) Score(ctx context.Context, in Input) (*Result, error) {
	s := in.Snapshot
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("score %s: %w", in.Symbol, model.ErrInsufficientData)
	}
	p := &e.profile
	res := &Result{
		Symbol:   in.Symbol,
		Profile:  p.Name,
		Card:     model.ScoreCard{Max: p.Max()},
		Category: model.CategoryRejected,
	}
	log := e.log.With().Str("symbol", in.Symbol).Str("profile", p.Name).Logger()

	if p.ExtensionFilter {
		res.Extension = CheckExtension(s, e.extension)
	}
	extended := res.Extension.Extended

	if p.MinMarketCap > 0 && !extended {
		f, err := e.fundamentals(ctx, in, res)
		if err != nil {
			return nil, fmt.Errorf("score %s: market cap: %w", in.Symbol, err)
		}
		if f == nil || !f.MarketCap.Valid || f.MarketCap.Float64 < p.MinMarketCap {
			res.Rejection = fmt.Sprintf("market cap below %.0f", p.MinMarketCap)
			return res, nil
		}
	}

	res.Trend = EvaluateTrendTemplate(s)
	res.Breakout = pattern.ClassifyBreakout(s, e.pattern)
	if p.Enabled(model.ComponentPattern) {
		res.Contraction = pattern.AnalyzeContraction(s, e.pattern)
	}

	scores := make(map[model.Component]model.ComponentScore, len(p.Components))
	var preliminary float64
	for _, c := range p.Components {
		if _, ok := e.expensive(c); ok {
			continue
		}
		cs, err := e.cheap(ctx, c, in, res)
		if err != nil {
			return nil, err
		}
		scores[c] = cs
		preliminary += cs.Score
	}

	for _, c := range p.Components {
		gate, ok := e.expensive(c)
		if !ok {
			continue
		}
		limit, _ := p.ComponentMax(c)
		switch {
		case extended:
			scores[c] = model.ComponentScore{Component: c, Max: limit, Skipped: true, Detail: "extended"}
		case preliminary < gate:
			scores[c] = model.ComponentScore{Component: c, Max: limit, Skipped: true,
				Detail: fmt.Sprintf("preliminary %.0f below gate %.0f", preliminary, gate)}
		default:
			cs, err := e.costly(ctx, c, in, res)
			if err != nil {
				return nil, err
			}
			scores[c] = cs
		}
	}

	for _, c := range p.Components {
		cs := scores[c]
		if !cs.Evaluable && !cs.Skipped {
			log.Debug().Str("component", string(c)).Msg("component not evaluable")
		}
		res.Card.Components = append(res.Card.Components, cs)
		res.Card.Total += cs.Score
	}
	res.Card.Total = min(res.Card.Total, res.Card.Max)

	if e.novelty != nil && p.StrongThreshold > 0 {
		res.IsNew = e.novelty.IsNew(in.Symbol, in.Date, res.Card.Total, p.StrongThreshold)
	}

	if extended {
		res.Category = model.CategoryExtended
		res.Rejection = "extended"
		return res, nil
	}
	res.Category = p.Ladder.Categorize(Conditions{
		Total:    res.Card.Total,
		Stage2:   res.Trend.IsStage2,
		Breakout: res.Breakout.Status,
		IsNew:    res.IsNew,
	})
	if p.QualifyThreshold > 0 {
		res.Qualifies = res.Card.Total >= p.QualifyThreshold
	} else {
		res.Qualifies = res.Category.Actionable()
	}
	return res, nil
}

func (e *Engine) cheap(ctx context.Context, c model.Component, in Input, res *Result) (model.ComponentScore, error) {
	s := in.Snapshot
	switch c {
	case model.ComponentTrend:
		return trendComponent(res.Trend), nil
	case model.ComponentBreakout:
		return breakoutComponent(res.Breakout, res.Extension.Extended), nil
	case model.ComponentNearHigh:
		if res.Extension.Extended {
			return nearHighComponent(NearHigh(s, nil), true), nil
		}
		return nearHighComponent(NearHigh(s, e.weekly(ctx, in, NearHighWeeks)), false), nil
	case model.ComponentHigherLows:
		return higherLowsComponent(s), nil
	case model.ComponentVolume:
		return volumeComponent(s), nil
	case model.ComponentPattern:
		return patternComponent(res.Contraction), nil
	case model.ComponentTrendConfirmation:
		return trendConfirmationComponent(s), nil
	case model.ComponentVolumeProfile:
		return volumeProfileComponent(s), nil
	case model.ComponentMomentum:
		return Momentum(s), nil
	case model.ComponentQuality:
		return Quality(s), nil
	case model.ComponentShortMomentum:
		return ShortMomentum(s), nil
	case model.ComponentWeekly:
		return Weekly(e.weekly(ctx, in, WeeklyLookback)), nil
	}
	return model.ComponentScore{}, fmt.Errorf("%w: component %q", model.ErrConfiguration, c)
}

func (e *Engine) costly(ctx context.Context, c model.Component, in Input, res *Result) (model.ComponentScore, error) {
	switch c {
	case model.ComponentOBV:
		obv := AnalyzeOBV(in.Snapshot, e.profile.OBVVariant)
		res.OBV = &obv
		return obv.component(), nil
	case model.ComponentFundamental:
		f, err := e.fundamentals(ctx, in, res)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", in.Symbol).Msg("fundamentals unavailable")
		}
		return Fundamental(f), nil
	}
	return model.ComponentScore{}, fmt.Errorf("%w: component %q", model.ErrConfiguration, c)
}

// weekly returns nil when the bars cannot be fetched; the weekly checks then
// score nothing.
func (e *Engine) weekly(ctx context.Context, in Input, weeks int) []model.PriceBar {
	if in.Source == nil {
		return nil
	}
	bars, err := in.Source.FetchWeeklyBars(ctx, in.Symbol, weeks)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", in.Symbol).Msg("weekly bars unavailable")
		return nil
	}
	return bars
}

// fundamentals fetches once per evaluation and caches on res.
func (e *Engine) fundamentals(ctx context.Context, in Input, res *Result) (*model.Fundamentals, error) {
	if res.Fundamentals != nil {
		return res.Fundamentals, nil
	}
	if in.Source == nil {
		return nil, nil
	}
	f, err := in.Source.FetchFundamentals(ctx, in.Symbol)
	if err != nil {
		return nil, err
	}
	res.Fundamentals = f
	return f, nil
}
