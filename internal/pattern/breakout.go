package pattern

import (
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// ClassifyBreakout places the latest close relative to resistance, the
// highest high of the lookback window excluding the most recent sessions.
//
//	close > resistance            -> BrokenOut, score 5/3/1 by strength
//	distance <= ProximityPct      -> Imminent, score 0..7 from setup signals
//	otherwise                     -> Far, score 0
func ClassifyBreakout(s *model.SeriesSnapshot, cfg Config) model.BreakoutResult {
	n := s.Len()
	res := model.BreakoutResult{Status: model.BreakoutFar}
	if n < cfg.ResistanceLookback || n < 20 {
		return res
	}
	res.Evaluable = true

	highs, lows, closes, volumes := s.Highs(), s.Lows(), s.Closes(), s.Volumes()
	last := closes[n-1]
	res.Resistance = calculator.MaxOf(highs, n-cfg.ResistanceLookback, n-cfg.ResistanceExclude)
	res.DistancePct = (res.Resistance - last) / last * 100

	switch {
	case last > res.Resistance:
		res.Status = model.BreakoutBrokenOut
		res.StrengthPct = (last - res.Resistance) / res.Resistance * 100
		for i := n - 3; i < n; i++ {
			if closes[i] > res.Resistance {
				res.DaysAbove++
			}
		}
		switch {
		case res.StrengthPct > 2 && res.DaysAbove >= 2:
			res.Score = 5
		case res.StrengthPct > 0.5:
			res.Score = 3
		default:
			res.Score = 1
		}

	case res.DistancePct <= cfg.ProximityPct:
		res.Status = model.BreakoutImminent

		recentRange := calculator.MaxOf(highs, n-5, n) - calculator.MinOf(lows, n-5, n)
		earlierRange := calculator.MaxOf(highs, n-15, n-5) - calculator.MinOf(lows, n-15, n-5)
		if recentRange < earlierRange*cfg.RangeContraction {
			res.RangeContracted = true
			res.Score += 2
		}

		if volMA := model.Back(s.VolumeMA20, 0); volMA.Valid && volMA.Float64 > 0 {
			if calculator.MeanOf(volumes, n-5, n)/volMA.Float64 < cfg.VolumeDrying {
				res.VolumeDrying = true
				res.Score += 2
			}
		}

		if last > calculator.MinOf(lows, n-20, n)*cfg.SupportBuffer {
			res.AboveSupport = true
			res.Score++
		}

		switch {
		case res.DistancePct <= 1:
			res.Score += 2
		case res.DistancePct <= 2:
			res.Score++
		}
	}
	return res
}
