package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"TrendSentinel/internal/model"
)

var categoryLabels = map[model.Category]string{
	model.CategoryNewStrongBuy:  "🔥 New Strong Buy",
	model.CategoryStrongBuy:     "⭐ Strong Buy",
	model.CategoryStage2Premium: "💎 Stage 2 Premium",
	model.CategoryPremium:       "💎 Premium",
	model.CategoryStage2Strong:  "🚀 Stage 2 Strong",
	model.CategoryStrong:        "🚀 Strong",
	model.CategoryBuy:           "✅ Buy",
	model.CategoryGood:          "👍 Good",
	model.CategoryWatchlist:     "👀 Watchlist",
	model.CategoryExtended:      "⚠️ Extended",
	model.CategoryRejected:      "❌ Rejected",
	model.CategoryStrongShort:   "🔻 Strong Short",
	model.CategoryShort:         "⚠️ Short",
}

// CategoryLabel returns the display label for c.
func CategoryLabel(c model.Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Rank sorts results by category rank, then total, then symbol.
func Rank(results []model.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if ra, rb := a.Category.Rank(), b.Category.Rank(); ra != rb {
			return ra > rb
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Symbol < b.Symbol
	})
}

// FormatResult renders one result as a single line.
func FormatResult(r model.ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> %.0f/%.0f", html.EscapeString(r.Symbol), r.Total, r.Max)
	if r.Metrics.Close.Valid {
		fmt.Fprintf(&b, " | $%.2f", r.Metrics.Close.Float64)
	}
	if r.Metrics.ChangePct.Valid {
		fmt.Fprintf(&b, " (%+.1f%%)", r.Metrics.ChangePct.Float64)
	}
	if r.Stage2 {
		b.WriteString(" | S2")
	}
	if r.Breakout != model.BreakoutFar {
		fmt.Fprintf(&b, " | %s", r.Breakout)
	}
	return b.String()
}

// FormatScanReport renders a run summary followed by the top actionable
// results grouped by category. At most top results are listed.
func FormatScanReport(s model.RunSummary, results []model.ScanResult, top int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>TrendSentinel scan</b> | %s | %s\n", html.EscapeString(s.Profile), s.StartedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Scanned %d/%d symbols in %s\n", s.Scanned, s.Symbols, s.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Qualifying: %d | Errors: %d\n", s.Qualifying, s.Errors)
	if s.Stopped {
		b.WriteString("⏹ Stopped early, partial results\n")
	}

	actionable := make([]model.ScanResult, 0, len(results))
	for _, r := range results {
		if r.Category.Actionable() {
			actionable = append(actionable, r)
		}
	}
	Rank(actionable)

	if len(actionable) == 0 {
		b.WriteString("\nNo actionable symbols.\n")
	} else {
		shown := actionable
		if top > 0 && len(shown) > top {
			shown = shown[:top]
		}
		var current model.Category
		for _, r := range shown {
			if r.Category != current {
				current = r.Category
				fmt.Fprintf(&b, "\n<b>%s</b>\n", CategoryLabel(current))
			}
			b.WriteString("  " + FormatResult(r) + "\n")
		}
		if rest := len(actionable) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "\n… and %d more\n", rest)
		}
	}

	if len(s.ErrorSample) > 0 {
		b.WriteString("\n<b>Errors</b>\n")
		for _, e := range s.ErrorSample {
			b.WriteString("  " + html.EscapeString(e) + "\n")
		}
	}
	return b.String()
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// FormatETFOverview renders one line per ETF: close and RSI, then whether
// price holds MA20, MA50 and a bullish MACD, then OBV against its average.
func FormatETFOverview(rows []model.ETFOverview) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🌐 <b>ETF overview</b>\n")
	for _, o := range rows {
		fmt.Fprintf(&b, "  <b>%s</b>", html.EscapeString(o.Symbol))
		if o.Close.Valid {
			fmt.Fprintf(&b, " $%.2f", o.Close.Float64)
		}
		if o.RSI14.Valid {
			fmt.Fprintf(&b, " RSI %.1f", o.RSI14.Float64)
		}
		fmt.Fprintf(&b, " | MA20 %s MA50 %s MACD %s OBV %s",
			mark(o.AboveMA20), mark(o.AboveMA50), mark(o.MACDBullish), mark(o.OBVAboveMA20))
		if o.FromMA50Pct.Valid {
			fmt.Fprintf(&b, " | %+.1f%% vs MA50", o.FromMA50Pct.Float64)
		}
		if o.Stage2 {
			b.WriteString(" | S2")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatStatus renders the last run for the /status command.
func FormatStatus(s *model.RunSummary, running bool) string {
	var b strings.Builder
	b.WriteString("📦 <b>TrendSentinel status</b>\n\n")
	if running {
		b.WriteString("A scan is running.\n")
	}
	if s == nil {
		b.WriteString("No scan has completed yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "Last run: %s (%s)\n", s.RunID, html.EscapeString(s.Profile))
	fmt.Fprintf(&b, "Finished: %s\n", s.FinishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Scanned %d/%d, qualifying %d, errors %d", s.Scanned, s.Symbols, s.Qualifying, s.Errors)
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "Available commands:\n• /scan run a scan now\n• /status last run\n• /top best results of the last run"
}
