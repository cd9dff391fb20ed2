package model

import (
	"strings"

	"github.com/guregu/null/v6"
)

// Fundamentals holds per-symbol fundamental metrics. Every field is optional.
type Fundamentals struct {
	QuoteType      string     `json:"quote_type"`
	PERatio        null.Float `json:"pe_ratio"`
	PBRatio        null.Float `json:"pb_ratio"`
	PSRatio        null.Float `json:"ps_ratio"`
	ProfitMargin   null.Float `json:"profit_margin"`
	ROE            null.Float `json:"roe"`
	ROA            null.Float `json:"roa"`
	RevenueGrowth  null.Float `json:"revenue_growth"`
	EarningsGrowth null.Float `json:"earnings_growth"`
	CurrentRatio   null.Float `json:"current_ratio"`
	DebtToEquity   null.Float `json:"debt_to_equity"`
	FreeCashflow   null.Float `json:"free_cashflow"`
	DividendYield  null.Float `json:"dividend_yield"`
	PayoutRatio    null.Float `json:"payout_ratio"`
	MarketCap      null.Float `json:"market_cap"`
}

// IsETF reports whether the quote is an exchange-traded fund.
func (f *Fundamentals) IsETF() bool {
	return f != nil && strings.EqualFold(f.QuoteType, "ETF")
}
