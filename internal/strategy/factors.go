package strategy

import (
	"fmt"
	"strings"

	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// FundamentalCap bounds the fundamental component.
const FundamentalCap = 50

// Factor is one graded fundamental metric.
type Factor struct {
	Name       string
	Points     int
	Max        int
	Commentary string
}

// scoreLowerBetter grades a positive ratio where cheaper is better, such as
// P/E. Non-positive or missing values score nothing.
func scoreLowerBetter(name string, v null.Float, bands [4]float64) Factor {
	f := Factor{Name: name, Max: 4, Commentary: "n/a"}
	if !v.Valid || v.Float64 <= 0 {
		return f
	}
	x := v.Float64
	switch {
	case x < bands[0]:
		f.Points = 4
	case x < bands[1]:
		f.Points = 3
	case x < bands[2]:
		f.Points = 2
	case x < bands[3]:
		f.Points = 1
	}
	f.Commentary = fmt.Sprintf("%.2f", x)
	return f
}

// scoreHigherBetter grades a positive rate such as margin or ROE.
func scoreHigherBetter(name string, v null.Float, bands [4]float64) Factor {
	f := Factor{Name: name, Max: 4, Commentary: "n/a"}
	if !v.Valid || v.Float64 <= 0 {
		return f
	}
	x := v.Float64
	switch {
	case x > bands[0]:
		f.Points = 4
	case x > bands[1]:
		f.Points = 3
	case x > bands[2]:
		f.Points = 2
	case x > bands[3]:
		f.Points = 1
	}
	f.Commentary = fmt.Sprintf("%.1f%%", x*100)
	return f
}

// scoreGrowth grades a growth rate that may be negative; six bands.
func scoreGrowth(name string, v null.Float, bands [6]float64) Factor {
	f := Factor{Name: name, Max: 6, Commentary: "n/a"}
	if !v.Valid {
		return f
	}
	x := v.Float64
	for i, b := range bands {
		if x > b {
			f.Points = 6 - i
			break
		}
	}
	f.Commentary = fmt.Sprintf("%+.1f%%", x*100)
	return f
}

func scoreCurrentRatio(v null.Float) Factor {
	f := Factor{Name: "current_ratio", Max: 3, Commentary: "n/a"}
	if !v.Valid || v.Float64 <= 0 {
		return f
	}
	switch x := v.Float64; {
	case x > 2:
		f.Points = 3
	case x > 1.5:
		f.Points = 2
	case x > 1:
		f.Points = 1
	}
	f.Commentary = fmt.Sprintf("%.2f", v.Float64)
	return f
}

// scoreDebtToEquity grades leverage in percent; zero debt is the best case.
func scoreDebtToEquity(v null.Float) Factor {
	f := Factor{Name: "debt_to_equity", Max: 4, Commentary: "n/a"}
	if !v.Valid {
		return f
	}
	switch x := v.Float64; {
	case x < 30:
		f.Points = 4
	case x < 50:
		f.Points = 3
	case x < 100:
		f.Points = 2
	case x < 200:
		f.Points = 1
	}
	f.Commentary = fmt.Sprintf("%.0f", v.Float64)
	return f
}

func scoreFreeCashflow(v null.Float) Factor {
	f := Factor{Name: "free_cashflow", Max: 3, Commentary: "n/a"}
	if !v.Valid {
		return f
	}
	switch x := v.Float64; {
	case x > 0:
		f.Points = 3
	case x > -1e9:
		f.Points = 1
	}
	f.Commentary = fmt.Sprintf("%.0fM", v.Float64/1e6)
	return f
}

// scoreDividend rewards a moderate yield covered by earnings. Companies that
// pay nothing get a neutral 2.
func scoreDividend(yield, payout null.Float) Factor {
	f := Factor{Name: "dividend", Max: 4}
	if !yield.Valid || yield.Float64 <= 0 {
		f.Points = 2
		f.Commentary = "none"
		return f
	}
	y := yield.Float64
	switch {
	case y >= 0.02 && y <= 0.06:
		f.Points += 2
	case y >= 0.01 && y <= 0.08:
		f.Points++
	}
	if payout.Valid && payout.Float64 > 0 {
		switch {
		case payout.Float64 <= 0.6:
			f.Points += 2
		case payout.Float64 <= 0.8:
			f.Points++
		}
	}
	f.Commentary = fmt.Sprintf("yield %.1f%%", y*100)
	return f
}

// FundamentalFactors grades every fundamental metric.
func FundamentalFactors(f *model.Fundamentals) []Factor {
	return []Factor{
		scoreLowerBetter("pe", f.PERatio, [4]float64{15, 20, 25, 35}),
		scoreLowerBetter("pb", f.PBRatio, [4]float64{1.5, 2.5, 4, 6}),
		scoreLowerBetter("ps", f.PSRatio, [4]float64{2, 4, 6, 10}),
		scoreHigherBetter("profit_margin", f.ProfitMargin, [4]float64{0.20, 0.15, 0.10, 0.05}),
		scoreHigherBetter("roe", f.ROE, [4]float64{0.20, 0.15, 0.10, 0.05}),
		scoreHigherBetter("roa", f.ROA, [4]float64{0.10, 0.07, 0.05, 0.02}),
		scoreGrowth("revenue_growth", f.RevenueGrowth, [6]float64{0.20, 0.15, 0.10, 0.05, 0, -0.05}),
		scoreGrowth("earnings_growth", f.EarningsGrowth, [6]float64{0.25, 0.15, 0.10, 0.05, 0, -0.10}),
		scoreCurrentRatio(f.CurrentRatio),
		scoreDebtToEquity(f.DebtToEquity),
		scoreFreeCashflow(f.FreeCashflow),
		scoreDividend(f.DividendYield, f.PayoutRatio),
	}
}

// Fundamental sums the factors into the fundamental component, capped at 50.
// ETFs and missing fundamentals are not evaluable.
func Fundamental(f *model.Fundamentals) model.ComponentScore {
	cs := model.ComponentScore{Component: model.ComponentFundamental, Max: FundamentalCap}
	if f == nil {
		cs.Detail = "no fundamentals"
		return cs
	}
	if f.IsETF() {
		cs.Detail = "etf"
		return cs
	}
	cs.Evaluable = true
	total := 0
	parts := make([]string, 0, 12)
	for _, factor := range FundamentalFactors(f) {
		total += factor.Points
		if factor.Points > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", factor.Name, factor.Points))
		}
	}
	cs.Score = float64(min(total, FundamentalCap))
	cs.Passed = cs.Score >= 25
	cs.Detail = strings.Join(parts, " ")
	return cs
}
