package strategy

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

var (
	higherLowPeriods         = []int{10, 20, 30}
	volumeContractionPeriods = []int{5, 10, 15, 20, 25, 30}
)

// MinHigherLows is the number of periods that must agree for higher lows
// to count as confirmed.
const MinHigherLows = 2

// MinVolumeContraction is the number of contracting periods required before
// the volume sub-score counts.
const MinVolumeContraction = 3

// HigherLows counts the periods p in {10, 20, 30} where the lowest low of the
// last p sessions is above the lowest low of the p sessions before. It is not
// evaluable with fewer than 60 bars.
func HigherLows(s *model.SeriesSnapshot) (count int, evaluable bool) {
	n := s.Len()
	longest := higherLowPeriods[len(higherLowPeriods)-1]
	if n < 2*longest {
		return 0, false
	}
	lows := s.Lows()
	for _, p := range higherLowPeriods {
		if calculator.MinOf(lows, n-p, n) > calculator.MinOf(lows, n-2*p, n-p) {
			count++
		}
	}
	return count, true
}

// VolumeContraction counts the periods p in {5, ..., 30} where the current
// 20-day volume average is below its value p sessions ago.
func VolumeContraction(s *model.SeriesSnapshot) (count int, evaluable bool) {
	longest := volumeContractionPeriods[len(volumeContractionPeriods)-1]
	now := model.Back(s.VolumeMA20, 0)
	if !now.Valid || !model.Back(s.VolumeMA20, longest).Valid {
		return 0, false
	}
	for _, p := range volumeContractionPeriods {
		if model.Greater(model.Back(s.VolumeMA20, p), now) {
			count++
		}
	}
	return count, true
}

func higherLowsComponent(s *model.SeriesSnapshot) model.ComponentScore {
	count, ok := HigherLows(s)
	return model.ComponentScore{
		Component: model.ComponentHigherLows,
		Score:     float64(count),
		Max:       3,
		Evaluable: ok,
		Passed:    count >= MinHigherLows,
		Detail:    fmt.Sprintf("%d/3 periods", count),
	}
}

func volumeComponent(s *model.SeriesSnapshot) model.ComponentScore {
	count, ok := VolumeContraction(s)
	cs := model.ComponentScore{
		Component: model.ComponentVolume,
		Max:       6,
		Evaluable: ok,
		Passed:    count >= MinVolumeContraction,
		Detail:    fmt.Sprintf("%d/6 periods contracting", count),
	}
	if cs.Passed {
		cs.Score = float64(count)
	}
	return cs
}
