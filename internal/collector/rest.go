package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultRESTRateLimit is the request rate used when none is configured.
const DefaultRESTRateLimit = 10

// RESTProvider implements BatchProvider against a generic bars REST API.
type RESTProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewRESTProvider creates a provider for baseURL authenticated with apiKey.
func NewRESTProvider(baseURL, apiKey string, opts ...Option) *RESTProvider {
	o := buildOptions(strings.TrimRight(baseURL, "/"), DefaultRESTRateLimit, opts)
	return &RESTProvider{
		baseURL:    o.baseURL,
		apiKey:     apiKey,
		httpClient: o.httpClient,
		limiter:    o.limiter,
		log:        o.log,
	}
}

func (f *RESTProvider) Name() string { return "rest" }

// restBar is the JSON shape of one bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// restFundamentals is the JSON shape of the fundamentals endpoint.
type restFundamentals struct {
	QuoteType      string   `json:"quote_type"`
	PERatio        *float64 `json:"pe_ratio"`
	PBRatio        *float64 `json:"pb_ratio"`
	PSRatio        *float64 `json:"ps_ratio"`
	ProfitMargin   *float64 `json:"profit_margin"`
	ROE            *float64 `json:"roe"`
	ROA            *float64 `json:"roa"`
	RevenueGrowth  *float64 `json:"revenue_growth"`
	EarningsGrowth *float64 `json:"earnings_growth"`
	CurrentRatio   *float64 `json:"current_ratio"`
	DebtToEquity   *float64 `json:"debt_to_equity"`
	FreeCashflow   *float64 `json:"free_cashflow"`
	DividendYield  *float64 `json:"dividend_yield"`
	PayoutRatio    *float64 `json:"payout_ratio"`
	MarketCap      *float64 `json:"market_cap"`
}

func (f *RESTProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	endpoint := f.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	f.log.Debug().Str("url", endpoint).Msg("rest request")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return unavailable(fmt.Errorf("rest fetch: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(fmt.Errorf("rest decode: %w", err))
	}
	return nil
}

func toBars(raw []restBar) []model.PriceBar {
	bars := make([]model.PriceBar, len(raw))
	for i, b := range raw {
		bars[i] = model.PriceBar{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return normalizeBars(bars)
}

func (f *RESTProvider) fetchBars(ctx context.Context, path, symbol string, limit int) ([]model.PriceBar, error) {
	var raw []restBar
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(limit)}}
	if err := f.get(ctx, path, params, &raw); err != nil {
		return nil, fmt.Errorf("%s bars: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, unavailable(fmt.Errorf("%s bars: no data returned", symbol))
	}
	return toBars(raw), nil
}

func (f *RESTProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	return f.fetchBars(ctx, "/api/v1/bars/daily", symbol, days)
}

// FetchWeeklyBars tries the weekly endpoint and falls back to aggregating
// daily bars.
func (f *RESTProvider) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	bars, err := f.fetchBars(ctx, "/api/v1/bars/weekly", symbol, weeks)
	if err == nil {
		return bars, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	daily, dailyErr := f.FetchDailyBars(ctx, symbol, weeks*5)
	if dailyErr != nil {
		return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
	}
	return tail(AggregateWeekly(daily), weeks), nil
}

func (f *RESTProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	var raw restFundamentals
	if err := f.get(ctx, "/api/v1/fundamentals", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return nil, fmt.Errorf("%s fundamentals: %w", symbol, err)
	}
	return &model.Fundamentals{
		QuoteType:      raw.QuoteType,
		PERatio:        null.FloatFromPtr(raw.PERatio),
		PBRatio:        null.FloatFromPtr(raw.PBRatio),
		PSRatio:        null.FloatFromPtr(raw.PSRatio),
		ProfitMargin:   null.FloatFromPtr(raw.ProfitMargin),
		ROE:            null.FloatFromPtr(raw.ROE),
		ROA:            null.FloatFromPtr(raw.ROA),
		RevenueGrowth:  null.FloatFromPtr(raw.RevenueGrowth),
		EarningsGrowth: null.FloatFromPtr(raw.EarningsGrowth),
		CurrentRatio:   null.FloatFromPtr(raw.CurrentRatio),
		DebtToEquity:   null.FloatFromPtr(raw.DebtToEquity),
		FreeCashflow:   null.FloatFromPtr(raw.FreeCashflow),
		DividendYield:  null.FloatFromPtr(raw.DividendYield),
		PayoutRatio:    null.FloatFromPtr(raw.PayoutRatio),
		MarketCap:      null.FloatFromPtr(raw.MarketCap),
	}, nil
}

// FetchDailyBatch fetches daily bars for all symbols in one request.
func (f *RESTProvider) FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	if len(symbols) == 0 {
		return nil, errors.New("empty batch")
	}
	var raw map[string][]restBar
	params := url.Values{"symbols": {strings.Join(symbols, ",")}, "limit": {strconv.Itoa(days)}}
	if err := f.get(ctx, "/api/v1/bars/daily/batch", params, &raw); err != nil {
		return nil, fmt.Errorf("batch of %d: %w", len(symbols), err)
	}
	out := make(map[string][]model.PriceBar, len(raw))
	for symbol, bars := range raw {
		if len(bars) > 0 {
			out[symbol] = toBars(bars)
		}
	}
	return out, nil
}
