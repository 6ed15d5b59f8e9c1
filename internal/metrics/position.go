package metrics

import "github.com/fplsim/fpl-optimizer/internal/types"

// Position-conditioned composite scores. Each sub-metric is a zero-guarded
// per-90 rate, min-max normalized within the position cohort, then blended
// with fixed weights into a 0-100 score.

type subMetric struct {
	weight float64
	value  func(types.Player) float64
}

var positionBlends = map[types.Position][]subMetric{
	types.PositionFWD: {
		// Shot quality, conversion against expectation, overall involvement.
		{0.45, shotQuality},
		{0.35, conversionRate},
		{0.20, xgiPer90},
	},
	types.PositionMID: {
		// Goal involvement first, creativity second, bonus magnetism last.
		{0.50, xgiPer90},
		{0.30, xaPer90},
		{0.20, func(p types.Player) float64 { return per90(float64(p.BPS), p.Minutes) }},
	},
	types.PositionDEF: {
		{0.40, cleanSheetRate},
		{0.30, defensiveQuality},
		{0.30, xgiPer90},
	},
	types.PositionGKP: {
		{0.40, savesPer90},
		{0.30, goalsPrevented},
		{0.30, cleanSheetRate},
	},
}

// computePositionScores produces the position-scoped composite for every
// player, normalizing each sub-metric against that player's position cohort.
func computePositionScores(players []types.Player) map[int]float64 {
	scores := make(map[int]float64, len(players))

	byPos := make(map[types.Position][]types.Player)
	for _, p := range players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}

	for pos, cohort := range byPos {
		blend, ok := positionBlends[pos]
		if !ok {
			continue
		}

		// Normalize one sub-metric at a time across the cohort.
		composite := make([]float64, len(cohort))
		for _, sm := range blend {
			raw := make([]float64, len(cohort))
			for i, p := range cohort {
				raw[i] = sm.value(p)
			}
			lo, hi := rangeOf(raw)
			for i := range cohort {
				composite[i] += sm.weight * minMaxScale(raw[i], lo, hi)
			}
		}

		for i, p := range cohort {
			scores[p.ID] = clamp(composite[i], 0, 100)
		}
	}

	return scores
}

// shotQuality is the expected-goals rate, the striker's bread and butter.
func shotQuality(p types.Player) float64 {
	if p.Minutes <= 0 || p.XG == nil {
		return 0
	}
	return *p.XG * 90 / float64(p.Minutes)
}

// conversionRate compares realized goals per 90 against expected goals per
// 90. Over 1.0 means clinical finishing.
func conversionRate(p types.Player) float64 {
	xg := shotQuality(p)
	if xg <= 0 {
		return 0
	}
	return per90(float64(p.Goals), p.Minutes) / xg
}

func xaPer90(p types.Player) float64 {
	if p.Minutes <= 0 || p.XA == nil {
		return 0
	}
	return *p.XA * 90 / float64(p.Minutes)
}

// cleanSheetRate is clean sheets per full match played.
func cleanSheetRate(p types.Player) float64 {
	if p.Minutes <= 0 {
		return 0
	}
	matches := float64(p.Minutes) / 90
	return float64(p.CleanSheets) / matches
}

// defensiveQuality inverts goals conceded per 90 so that tighter defences
// score higher; capped at a 2.0 concession rate.
func defensiveQuality(p types.Player) float64 {
	if p.Minutes <= 0 {
		return 0
	}
	gc90 := per90(float64(p.GoalsConceded), p.Minutes)
	return 2 - clamp(gc90, 0, 2)
}

func savesPer90(p types.Player) float64 {
	return per90(float64(p.Saves), p.Minutes)
}

// goalsPrevented is the shot-stopping margin: save volume against the
// concession rate behind it.
func goalsPrevented(p types.Player) float64 {
	if p.Minutes <= 0 {
		return 0
	}
	return savesPer90(p) - per90(float64(p.GoalsConceded), p.Minutes)
}
