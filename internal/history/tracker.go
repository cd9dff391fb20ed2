package history

import (
	"sort"
	"sync"
	"time"

	"TrendSentinel/internal/model"
)

// Defaults for retention and novelty.
const (
	RetentionDays   = 30
	NoveltySessions = 5
)

// State is a symbol's position in the novelty state machine.
type State int

const (
	Unseen State = iota
	SeenNotQualifying
	SeenQualifying
)

func (s State) String() string {
	switch s {
	case SeenQualifying:
		return "seen_qualifying"
	case SeenNotQualifying:
		return "seen_not_qualifying"
	default:
		return "unseen"
	}
}

// Tracker keeps a rolling window of daily scores per symbol and answers
// whether a strong score is a first appearance.
type Tracker struct {
	mu        sync.Mutex
	data      model.HistoryMap
	retention int
}

// NewTracker builds a tracker seeded with a copy of m, which may be nil.
func NewTracker(m model.HistoryMap) *Tracker {
	return &Tracker{data: clone(m), retention: RetentionDays}
}

// Replace swaps the tracked history for a copy of m.
func (t *Tracker) Replace(m model.HistoryMap) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = clone(m)
}

func clone(m model.HistoryMap) model.HistoryMap {
	out := make(model.HistoryMap, len(m))
	for symbol, days := range m {
		cp := make(model.SymbolHistory, len(days))
		for d, e := range days {
			cp[d] = e
		}
		out[symbol] = cp
	}
	return out
}

// Record stores the score for date, replacing any earlier record for the same
// date, then drops records older than the retention window measured back
// from the symbol's newest date.
func (t *Tracker) Record(symbol string, date time.Time, score float64, category model.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()

	days, ok := t.data[symbol]
	if !ok {
		days = make(model.SymbolHistory)
		t.data[symbol] = days
	}
	days[model.DateKey(date)] = model.HistoryEntry{Score: score, Category: category}

	newest := ""
	for d := range days {
		if d > newest {
			newest = d
		}
	}
	newestDate, err := time.Parse(model.DateLayout, newest)
	if err != nil {
		return
	}
	cutoff := model.DateKey(newestDate.AddDate(0, 0, -t.retention))
	for d := range days {
		if d < cutoff {
			delete(days, d)
		}
	}
}

// IsNew reports whether score is a first appearance at or above threshold:
// true when no record exists before date, false when any of the most recent
// five records before date reached threshold. Scores below threshold are
// never new.
func (t *Tracker) IsNew(symbol string, date time.Time, score, threshold float64) bool {
	if score < threshold {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	today := model.DateKey(date)
	var prior []string
	for d := range t.data[symbol] {
		if d < today {
			prior = append(prior, d)
		}
	}
	if len(prior) == 0 {
		return true
	}
	sort.Sort(sort.Reverse(sort.StringSlice(prior)))
	if len(prior) > NoveltySessions {
		prior = prior[:NoveltySessions]
	}
	for _, d := range prior {
		if t.data[symbol][d].Score >= threshold {
			return false
		}
	}
	return true
}

// State classifies symbol against threshold.
func (t *Tracker) State(symbol string, threshold float64) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	days := t.data[symbol]
	if len(days) == 0 {
		return Unseen
	}
	for _, e := range days {
		if e.Score >= threshold {
			return SeenQualifying
		}
	}
	return SeenNotQualifying
}

// Snapshot returns a deep copy suitable for saving.
func (t *Tracker) Snapshot() model.HistoryMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.data)
}

// Symbols returns the number of tracked symbols.
func (t *Tracker) Symbols() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data)
}
