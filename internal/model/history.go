package model

import "time"

// DateLayout is the key format of history dates.
const DateLayout = "2006-01-02"

// HistoryEntry is one day's recorded score for a symbol.
type HistoryEntry struct {
	Score    float64  `json:"score"`
	Category Category `json:"category"`
}

// SymbolHistory maps a calendar date (DateLayout) to its entry.
type SymbolHistory map[string]HistoryEntry

// HistoryMap maps a symbol to its dated entries.
type HistoryMap map[string]SymbolHistory

// DateKey formats t as a history key.
func DateKey(t time.Time) string { return t.Format(DateLayout) }
