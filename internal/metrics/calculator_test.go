package metrics

import (
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fp(v float64) *float64 { return &v }

func testSnapshot(players ...types.Player) *types.Snapshot {
	return &types.Snapshot{Version: "test-1", Players: players}
}

func TestCalculate_PointsPerMillion(t *testing.T) {
	p := types.Player{ID: 1, Position: types.PositionMID, Cost: 130, TotalPoints: 150}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	// 150 points at £13.0m.
	assert.InDelta(t, 11.5385, rec.PPM, 1e-3)
	assert.Empty(t, recWarning(rec, "ppm"))
}

func TestCalculate_PPMDecreasesWithCost(t *testing.T) {
	cheap := types.Player{ID: 1, Position: types.PositionMID, Cost: 50, TotalPoints: 100}
	dear := types.Player{ID: 2, Position: types.PositionMID, Cost: 120, TotalPoints: 100}

	calc := NewCalculator(testSnapshot(cheap, dear), testLogger())
	assert.Greater(t, calc.Calculate(cheap).PPM, calc.Calculate(dear).PPM)
}

func TestCalculate_ZeroMinutesNeverNaN(t *testing.T) {
	p := types.Player{ID: 1, Position: types.PositionFWD, Cost: 0, Minutes: 0, Appearances: 0}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	for name, v := range map[string]float64{
		"ppm":               rec.PPM,
		"xgiPer90":          rec.XGIPer90,
		"valueScore":        rec.ValueScore,
		"consistency":       rec.Consistency,
		"overallScore":      rec.OverallScore,
		"buyScore":          rec.BuyScore,
		"captainScore":      rec.CaptainScore,
		"differentialScore": rec.DifferentialScore,
		"bpsPer90":          rec.BPSPer90,
		"overperformance":   rec.Overperformance,
		"positionScore":     rec.PositionScore,
	} {
		assert.False(t, math.IsNaN(v), "%s is NaN", name)
		assert.False(t, math.IsInf(v, 0), "%s is Inf", name)
	}

	for _, w := range []string{"ppm", "xgiPer90", "consistency", "nailedBonus", "bpsPer90", "overperformance"} {
		assert.Contains(t, rec.Warnings, w)
	}
}

func TestCalculate_XGIPer90(t *testing.T) {
	p := types.Player{
		ID: 1, Position: types.PositionFWD, Cost: 100,
		Minutes: 900, XG: fp(10), XA: fp(5),
	}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	// (10 + 5) * 90 / 900
	assert.InDelta(t, 1.5, rec.XGIPer90, 1e-9)
}

func TestCalculate_FormRatingClamped(t *testing.T) {
	hot := types.Player{ID: 1, Position: types.PositionMID, Cost: 50, Form: 12.3}
	cold := types.Player{ID: 2, Position: types.PositionMID, Cost: 50, Form: -1}

	calc := NewCalculator(testSnapshot(hot, cold), testLogger())
	assert.InDelta(t, 10.0, calc.Calculate(hot).FormRating, 1e-9)
	assert.InDelta(t, 0.0, calc.Calculate(cold).FormRating, 1e-9)
}

func TestCalculate_DegenerateTableCollapsesToMidpoint(t *testing.T) {
	// A one-player table has no spread, so every min-max scaled metric
	// lands on the midpoint instead of dividing by zero.
	p := types.Player{ID: 1, Position: types.PositionMID, Cost: 80, TotalPoints: 120, Form: 6}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	assert.InDelta(t, 50.0, rec.ValueScore, 1e-9)
	// 0.30*6*10 + 0.40*50 + 0.30*50
	assert.InDelta(t, 53.0, rec.OverallScore, 1e-9)
}

func TestCalculate_ValueScoreSpansTable(t *testing.T) {
	best := types.Player{ID: 1, Position: types.PositionMID, Cost: 50, TotalPoints: 200}
	mid := types.Player{ID: 2, Position: types.PositionMID, Cost: 80, TotalPoints: 160}
	worst := types.Player{ID: 3, Position: types.PositionMID, Cost: 120, TotalPoints: 40}

	calc := NewCalculator(testSnapshot(best, mid, worst), testLogger())
	assert.InDelta(t, 100.0, calc.Calculate(best).ValueScore, 1e-9)
	assert.InDelta(t, 0.0, calc.Calculate(worst).ValueScore, 1e-9)

	v := calc.Calculate(mid).ValueScore
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestCalculate_Consistency(t *testing.T) {
	steady := types.Player{ID: 1, Position: types.PositionMID, Cost: 50, Last5Points: []int{5, 5, 5, 5, 5}}
	streaky := types.Player{ID: 2, Position: types.PositionMID, Cost: 50, Last5Points: []int{0, 10, 0, 10, 0}}

	calc := NewCalculator(testSnapshot(steady, streaky), testLogger())
	assert.InDelta(t, 10.0, calc.Calculate(steady).Consistency, 1e-9)
	assert.InDelta(t, 4.5228, calc.Calculate(streaky).Consistency, 1e-3)
}

func TestCalculate_NailedBonus(t *testing.T) {
	nailed := types.Player{ID: 1, Position: types.PositionDEF, Cost: 45, Minutes: 900, Appearances: 10}
	rotated := types.Player{ID: 2, Position: types.PositionDEF, Cost: 45, Minutes: 500, Appearances: 10}

	calc := NewCalculator(testSnapshot(nailed, rotated), testLogger())
	assert.InDelta(t, 5.0, calc.Calculate(nailed).NailedBonus, 1e-9)
	assert.InDelta(t, 0.0, calc.Calculate(rotated).NailedBonus, 1e-9)
}

func TestCalculate_CaptainScore(t *testing.T) {
	p := types.Player{
		ID: 1, Position: types.PositionFWD, Cost: 120,
		Form: 8, Minutes: 900, Appearances: 10,
		XG: fp(10), XA: fp(5),
		Last5Points: []int{8, 8, 8, 8, 8},
	}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	// form 8*4 + xgi 1.5*8 + consistency 10 + nailed 5
	assert.InDelta(t, 59.0, rec.CaptainScore, 1e-9)
}

func TestCalculate_DifferentialRewardsLowOwnership(t *testing.T) {
	punt := types.Player{ID: 1, Position: types.PositionMID, Cost: 60, TotalPoints: 80, Form: 5, SelectedByPercent: 4.2}
	template := types.Player{ID: 2, Position: types.PositionMID, Cost: 60, TotalPoints: 80, Form: 5, SelectedByPercent: 55.0}

	calc := NewCalculator(testSnapshot(punt, template), testLogger())
	assert.Greater(t,
		calc.Calculate(punt).DifferentialScore,
		calc.Calculate(template).DifferentialScore,
		"identical players should rank by scarcity")
}

func TestCalculate_SellMirrorsBuy(t *testing.T) {
	a := types.Player{ID: 1, Position: types.PositionMID, Cost: 60, TotalPoints: 150, Form: 7, Minutes: 900, XG: fp(5), XA: fp(4)}
	b := types.Player{ID: 2, Position: types.PositionMID, Cost: 90, TotalPoints: 40, Form: 2, Minutes: 300, XG: fp(1), XA: fp(0)}

	calc := NewCalculator(testSnapshot(a, b), testLogger())
	for _, rec := range calc.CalculateAll() {
		assert.InDelta(t, 100.0, rec.BuyScore+rec.SellScore, 1e-9)
	}
}

func TestCalculate_MomentumClamped(t *testing.T) {
	rising := types.Player{ID: 1, Position: types.PositionMID, Cost: 50, Form: 7, PointsPerGame: 4}
	falling := types.Player{ID: 2, Position: types.PositionMID, Cost: 50, Form: 1, PointsPerGame: 9}

	calc := NewCalculator(testSnapshot(rising, falling), testLogger())
	assert.InDelta(t, 3.0, calc.Calculate(rising).Momentum, 1e-9)
	assert.InDelta(t, -5.0, calc.Calculate(falling).Momentum, 1e-9)
}

func TestCalculate_Overperformance(t *testing.T) {
	p := types.Player{
		ID: 1, Position: types.PositionFWD, Cost: 80,
		Minutes: 900, Goals: 5, Assists: 1, XG: fp(2), XA: fp(1),
	}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)

	// 0.6 realized involvements per 90 against 0.3 expected.
	assert.InDelta(t, 0.3, rec.Overperformance, 1e-9)
}

func TestCalculate_BPSPer90(t *testing.T) {
	p := types.Player{ID: 1, Position: types.PositionMID, Cost: 70, Minutes: 900, BPS: 300}
	rec := NewCalculator(testSnapshot(p), testLogger()).Calculate(p)
	assert.InDelta(t, 30.0, rec.BPSPer90, 1e-9)
}

func TestCalculateAll_CompositeScoresInRange(t *testing.T) {
	snap := testSnapshot(
		types.Player{ID: 1, Position: types.PositionGKP, Cost: 55, TotalPoints: 90, Form: 4, Minutes: 1800, Appearances: 20, Saves: 60},
		types.Player{ID: 2, Position: types.PositionDEF, Cost: 45, TotalPoints: 60, Form: 3, Minutes: 1500, Appearances: 18, CleanSheets: 6},
		types.Player{ID: 3, Position: types.PositionMID, Cost: 130, TotalPoints: 180, Form: 9, Minutes: 1700, Appearances: 19, XG: fp(12), XA: fp(8), Last5Points: []int{10, 2, 14, 8, 6}},
		types.Player{ID: 4, Position: types.PositionFWD, Cost: 150, TotalPoints: 200, Form: 11, Minutes: 1800, Appearances: 20, Goals: 22, XG: fp(18), XA: fp(3)},
		types.Player{ID: 5, Position: types.PositionFWD, Cost: 40, TotalPoints: 2, Form: 0, Minutes: 45, Appearances: 3},
	)

	records := NewCalculator(snap, testLogger()).CalculateAll()
	require.Len(t, records, 5)

	for _, rec := range records {
		assert.GreaterOrEqual(t, rec.OverallScore, 0.0)
		assert.LessOrEqual(t, rec.OverallScore, 100.0)
		assert.GreaterOrEqual(t, rec.BuyScore, 0.0)
		assert.LessOrEqual(t, rec.BuyScore, 100.0)
		assert.GreaterOrEqual(t, rec.ValueScore, 0.0)
		assert.LessOrEqual(t, rec.ValueScore, 100.0)
		assert.GreaterOrEqual(t, rec.PositionScore, 0.0)
		assert.LessOrEqual(t, rec.PositionScore, 100.0)
		assert.GreaterOrEqual(t, rec.FormRating, 0.0)
		assert.LessOrEqual(t, rec.FormRating, 10.0)
	}
}

func recWarning(rec types.MetricsRecord, name string) string {
	for _, w := range rec.Warnings {
		if w == name {
			return w
		}
	}
	return ""
}
