package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Yahoo defaults.
const (
	DefaultYahooBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout        = 30 * time.Second
	DefaultYahooRateLimit = 4
	YahooBatchWorkers     = 4
)

// YahooProvider implements BatchProvider using the Yahoo Finance public API.
type YahooProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	// SymbolMap maps an internal symbol to its Yahoo ticker.
	SymbolMap map[string]string
}

// Option configures an HTTP provider.
type Option func(*httpOptions)

type httpOptions struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option { return func(o *httpOptions) { o.baseURL = strings.TrimRight(u, "/") } }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *httpOptions) { o.httpClient = c } }

// WithRateLimit caps requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(o *httpOptions) {
		burst := max(1, int(perSecond))
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithProxy routes requests through proxyURL. Invalid URLs are ignored.
func WithProxy(proxyURL string) Option {
	return func(o *httpOptions) {
		if proxyURL == "" {
			return
		}
		if u, err := url.Parse(proxyURL); err == nil {
			o.httpClient = &http.Client{
				Timeout:   DefaultTimeout,
				Transport: &http.Transport{Proxy: http.ProxyURL(u)},
			}
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l zerolog.Logger) Option { return func(o *httpOptions) { o.log = l } }

func buildOptions(baseURL string, perSecond float64, opts []Option) httpOptions {
	o := httpOptions{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond))),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewYahooProvider creates a Yahoo Finance provider.
func NewYahooProvider(opts ...Option) *YahooProvider {
	o := buildOptions(DefaultYahooBaseURL, DefaultYahooRateLimit, opts)
	return &YahooProvider{
		baseURL:    o.baseURL,
		httpClient: o.httpClient,
		limiter:    o.limiter,
		log:        o.log,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooProvider) Name() string { return "yahoo" }

func (f *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	// Yahoo spells class shares with a dash: BRK.B -> BRK-B.
	return strings.ReplaceAll(symbol, ".", "-")
}

// yahooChart is the response structure of the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

func (v yahooValue) value() null.Float { return null.FloatFromPtr(v.Raw) }

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			QuoteType struct {
				QuoteType string `json:"quoteType"`
			} `json:"quoteType"`
			SummaryDetail struct {
				TrailingPE    yahooValue `json:"trailingPE"`
				ForwardPE     yahooValue `json:"forwardPE"`
				PriceToSales  yahooValue `json:"priceToSalesTrailing12Months"`
				DividendYield yahooValue `json:"dividendYield"`
				PayoutRatio   yahooValue `json:"payoutRatio"`
				MarketCap     yahooValue `json:"marketCap"`
			} `json:"summaryDetail"`
			KeyStatistics struct {
				PriceToBook yahooValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ProfitMargins  yahooValue `json:"profitMargins"`
				ReturnOnEquity yahooValue `json:"returnOnEquity"`
				ReturnOnAssets yahooValue `json:"returnOnAssets"`
				RevenueGrowth  yahooValue `json:"revenueGrowth"`
				EarningsGrowth yahooValue `json:"earningsGrowth"`
				CurrentRatio   yahooValue `json:"currentRatio"`
				DebtToEquity   yahooValue `json:"debtToEquity"`
				FreeCashflow   yahooValue `json:"freeCashflow"`
			} `json:"financialData"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

func (f *YahooProvider) get(ctx context.Context, path string, params url.Values, out any) error {
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
	req.Header.Set("User-Agent", "Mozilla/5.0")
	f.log.Debug().Str("url", endpoint).Msg("yahoo request")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return unavailable(fmt.Errorf("yahoo fetch: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(fmt.Errorf("yahoo read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unavailable(fmt.Errorf("yahoo decode: %w", err))
	}
	return nil
}

func (f *YahooProvider) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.PriceBar, error) {
	var chart yahooChart
	path := "/v8/finance/chart/" + url.PathEscape(f.yahooSymbol(symbol))
	params := url.Values{"interval": {interval}, "range": {rng}}
	if err := f.get(ctx, path, params, &chart); err != nil {
		return nil, fmt.Errorf("%s chart: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, unavailable(fmt.Errorf("%s chart: %s", symbol, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, unavailable(fmt.Errorf("%s chart: no data returned", symbol))
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	at := func(col []*float64, i int) (float64, bool) {
		if i >= len(col) || col[i] == nil {
			return 0, false
		}
		return *col[i], true
	}
	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // holidays and halted sessions come back as nulls
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	return normalizeBars(bars), nil
}

func dailyRange(days int) string {
	switch {
	case days <= 20:
		return "1mo"
	case days <= 60:
		return "3mo"
	case days <= 120:
		return "6mo"
	case days <= 250:
		return "1y"
	}
	return "2y"
}

// FetchDailyBars returns up to days daily bars.
func (f *YahooProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	bars, err := f.fetchChart(ctx, symbol, "1d", dailyRange(days))
	if err != nil {
		return nil, err
	}
	return tail(bars, days), nil
}

// FetchDailyBatch fans the chart requests for symbols out over at most
// YahooBatchWorkers concurrent requests, all paced by the rate limiter. Yahoo
// has no multi-symbol OHLCV endpoint. Symbols that fail are left out of the
// result; the batch fails only when every symbol failed or ctx is done.
func (f *YahooProvider) FetchDailyBatch(ctx context.Context, symbols []string, days int) (map[string][]model.PriceBar, error) {
	if len(symbols) == 0 {
		return nil, errors.New("empty batch")
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		lastErr error
	)
	out := make(map[string][]model.PriceBar, len(symbols))
	sem := make(chan struct{}, YahooBatchWorkers)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			bars, err := f.FetchDailyBars(ctx, symbol, days)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				f.log.Debug().Err(err).Str("symbol", symbol).Msg("yahoo batch member failed")
				return
			}
			if len(bars) > 0 {
				out[symbol] = bars
			}
		}(symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("batch of %d: %w", len(symbols), lastErr)
	}
	return out, nil
}

// FetchWeeklyBars returns up to weeks weekly bars.
func (f *YahooProvider) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.PriceBar, error) {
	rng := "2y"
	if weeks <= 26 {
		rng = "6mo"
	} else if weeks <= 52 {
		rng = "1y"
	}
	bars, err := f.fetchChart(ctx, symbol, "1wk", rng)
	if err != nil {
		return nil, err
	}
	return tail(bars, weeks), nil
}

// FetchFundamentals reads valuation, profitability and balance-sheet data
// from the quoteSummary API. P/E falls back to the forward figure.
func (f *YahooProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	var summary yahooSummary
	path := "/v10/finance/quoteSummary/" + url.PathEscape(f.yahooSymbol(symbol))
	params := url.Values{"modules": {"quoteType,summaryDetail,defaultKeyStatistics,financialData"}}
	if err := f.get(ctx, path, params, &summary); err != nil {
		return nil, fmt.Errorf("%s fundamentals: %w", symbol, err)
	}
	if summary.QuoteSummary.Error != nil {
		return nil, unavailable(fmt.Errorf("%s fundamentals: %s", symbol, summary.QuoteSummary.Error.Description))
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, unavailable(fmt.Errorf("%s fundamentals: no data returned", symbol))
	}

	r := summary.QuoteSummary.Result[0]
	pe := r.SummaryDetail.TrailingPE.value()
	if !pe.Valid {
		pe = r.SummaryDetail.ForwardPE.value()
	}
	return &model.Fundamentals{
		QuoteType:      r.QuoteType.QuoteType,
		PERatio:        pe,
		PBRatio:        r.KeyStatistics.PriceToBook.value(),
		PSRatio:        r.SummaryDetail.PriceToSales.value(),
		ProfitMargin:   r.FinancialData.ProfitMargins.value(),
		ROE:            r.FinancialData.ReturnOnEquity.value(),
		ROA:            r.FinancialData.ReturnOnAssets.value(),
		RevenueGrowth:  r.FinancialData.RevenueGrowth.value(),
		EarningsGrowth: r.FinancialData.EarningsGrowth.value(),
		CurrentRatio:   r.FinancialData.CurrentRatio.value(),
		DebtToEquity:   r.FinancialData.DebtToEquity.value(),
		FreeCashflow:   r.FinancialData.FreeCashflow.value(),
		DividendYield:  r.SummaryDetail.DividendYield.value(),
		PayoutRatio:    r.SummaryDetail.PayoutRatio.value(),
		MarketCap:      r.SummaryDetail.MarketCap.value(),
	}, nil
}
