package pattern

import "TrendSentinel/internal/model"

// DefaultSwingWindow is the half-width of the swing comparison window.
const DefaultSwingWindow = 10

// FindSwingPoints returns swing highs and lows in chronological order.
// Bar i (w <= i < n-w) is a swing high when its high equals the maximum high
// of bars i-w..i+w, and a swing low when its low equals the minimum low of the
// same window. Ties are all reported. When a bar is both, the high comes first.
func FindSwingPoints(bars []model.PriceBar, w int) []model.SwingPoint {
	n := len(bars)
	if w <= 0 || n < 2*w+1 {
		return nil
	}
	var points []model.SwingPoint
	for i := w; i < n-w; i++ {
		hi, lo := bars[i].High, bars[i].Low
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if bars[j].High > hi {
				isHigh = false
			}
			if bars[j].Low < lo {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			points = append(points, model.SwingPoint{Index: i, Time: bars[i].Time, Price: hi, Kind: model.SwingHigh})
		}
		if isLow {
			points = append(points, model.SwingPoint{Index: i, Time: bars[i].Time, Price: lo, Kind: model.SwingLow})
		}
	}
	return points
}

// SplitSwings separates swing points by kind, preserving order.
func SplitSwings(points []model.SwingPoint) (highs, lows []model.SwingPoint) {
	for _, p := range points {
		if p.Kind == model.SwingHigh {
			highs = append(highs, p)
		} else {
			lows = append(lows, p)
		}
	}
	return highs, lows
}
