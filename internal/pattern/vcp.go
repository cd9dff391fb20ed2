package pattern

import (
	"TrendSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// BuildPullbacks pairs consecutive swing highs among the most recent
// maxHighs and measures the deepest low between each pair.
func BuildPullbacks(bars []model.PriceBar, highs []model.SwingPoint, maxHighs int) []model.PullbackEvent {
	if len(highs) > maxHighs {
		highs = highs[len(highs)-maxHighs:]
	}
	var out []model.PullbackEvent
	for i := 1; i < len(highs); i++ {
		from, to := highs[i-1].Index, highs[i].Index
		if to <= from || highs[i-1].Price <= 0 {
			continue
		}
		lowIdx := from
		for j := from + 1; j < to; j++ {
			if bars[j].Low < bars[lowIdx].Low {
				lowIdx = j
			}
		}
		out = append(out, model.PullbackEvent{
			FromSwingHighIndex: from,
			ToSwingLowIndex:    lowIdx,
			Percent:            (highs[i-1].Price - bars[lowIdx].Low) / highs[i-1].Price * 100,
		})
	}
	return out
}

// AnalyzeContraction scores a VCP base on a 0-6 scale: +3 when pullbacks
// strictly decrease, +2 when enough of the first pullbacks fall in their tier
// bands, +1 when recent volatility is below the volatility 40-60 bars back.
func AnalyzeContraction(s *model.SeriesSnapshot, cfg Config) model.ContractionResult {
	res := model.ContractionResult{}
	swings := FindSwingPoints(s.Bars, cfg.SwingWindow)
	highs, lows := SplitSwings(swings)
	if len(highs) < cfg.MinSwings || len(lows) < cfg.MinSwings {
		return res
	}
	res.Evaluable = true
	res.Pullbacks = BuildPullbacks(s.Bars, highs, cfg.MaxSwingHighs)

	if len(res.Pullbacks) >= cfg.MinPullbacks {
		res.Decreasing = true
		for i := 1; i < len(res.Pullbacks); i++ {
			if res.Pullbacks[i].Percent >= res.Pullbacks[i-1].Percent {
				res.Decreasing = false
				break
			}
		}
		if res.Decreasing {
			res.Score += 3
		}

		for i, pb := range res.Pullbacks {
			if i >= len(cfg.PullbackTiers) {
				break
			}
			if cfg.PullbackTiers[i].Contains(pb.Percent) {
				res.TierMatches++
			}
		}
		if res.TierMatches >= cfg.MinTierMatches {
			res.Score += 2
		}
	}

	res.VolatilityContraction = volatilityContracted(s, cfg.VolatilityBars)
	if res.VolatilityContraction {
		res.Score++
	}
	res.Valid = res.Score >= cfg.ValidScore
	return res
}

// volatilityContracted compares mean Volatility20 over the last w bars with
// the mean over bars [n-3w, n-2w). Undefined entries are ignored.
func volatilityContracted(s *model.SeriesSnapshot, w int) bool {
	n := s.Len()
	if n < 3*w {
		return false
	}
	recent, ok1 := meanValid(s.Volatility20[n-w:])
	earlier, ok2 := meanValid(s.Volatility20[n-3*w : n-2*w])
	return ok1 && ok2 && recent < earlier
}

func meanValid(col []null.Float) (float64, bool) {
	sum, cnt := 0.0, 0
	for _, v := range col {
		if v.Valid {
			sum += v.Float64
			cnt++
		}
	}
	if cnt == 0 {
		return 0, false
	}
	return sum / float64(cnt), true
}
