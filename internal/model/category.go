package model

// Category is a closed set of classification tags. Display labels are a
// presentation concern and live with the notifier.
type Category string

const (
	CategoryRejected      Category = "rejected"
	CategoryExtended      Category = "extended"
	CategoryWatchlist     Category = "watchlist"
	CategoryGood          Category = "good"
	CategoryBuy           Category = "buy"
	CategoryStrong        Category = "strong"
	CategoryStage2Strong  Category = "stage2_strong"
	CategoryPremium       Category = "premium"
	CategoryStage2Premium Category = "stage2_premium"
	CategoryStrongBuy     Category = "strong_buy"
	CategoryNewStrongBuy  Category = "new_strong_buy"

	// Short-side categories rank alongside their long counterparts.
	CategoryShort       Category = "short"
	CategoryStrongShort Category = "strong_short"
)

var categoryRank = map[Category]int{
	CategoryRejected:      0,
	CategoryExtended:      0,
	CategoryWatchlist:     1,
	CategoryGood:          2,
	CategoryBuy:           3,
	CategoryStrong:        4,
	CategoryStage2Strong:  5,
	CategoryPremium:       6,
	CategoryStage2Premium: 7,
	CategoryStrongBuy:     8,
	CategoryNewStrongBuy:  9,
	CategoryShort:         3,
	CategoryStrongShort:   8,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryRank[c]
	return ok
}

// Rank orders categories; higher is more actionable. Unknown categories rank -1.
func (c Category) Rank() int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return -1
}

// Actionable reports whether the category is above the rejection band.
func (c Category) Actionable() bool { return c.Rank() > 0 }
