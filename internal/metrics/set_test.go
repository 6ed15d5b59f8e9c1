package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

func rankingSnapshot() *types.Snapshot {
	return testSnapshot(
		types.Player{ID: 1, Name: "Salah", Position: types.PositionMID, Club: 1, Cost: 130, TotalPoints: 210, Form: 9, SelectedByPercent: 55, Minutes: 1800, XG: fp(14), XA: fp(9)},
		types.Player{ID: 2, Name: "Gordon", Position: types.PositionMID, Club: 2, Cost: 75, TotalPoints: 110, Form: 6, SelectedByPercent: 12, Minutes: 1600, XG: fp(6), XA: fp(4)},
		types.Player{ID: 3, Name: "Kluivert", Position: types.PositionMID, Club: 3, Cost: 55, TotalPoints: 90, Form: 5, SelectedByPercent: 3.5, Minutes: 1500, XG: fp(5), XA: fp(3)},
		types.Player{ID: 4, Name: "Haaland", Position: types.PositionFWD, Club: 4, Cost: 150, TotalPoints: 230, Form: 10, SelectedByPercent: 70, Minutes: 1750, Goals: 24, XG: fp(20), XA: fp(2)},
		types.Player{ID: 5, Name: "Wood", Position: types.PositionFWD, Club: 5, Cost: 70, TotalPoints: 120, Form: 7, SelectedByPercent: 20, Minutes: 1700, Goals: 13, XG: fp(10), XA: fp(1)},
	)
}

func TestCompute_IndexesEveryPlayer(t *testing.T) {
	set := Compute(rankingSnapshot(), testLogger())
	require.Len(t, set.Records, 5)

	rec, ok := set.Record(4)
	require.True(t, ok)
	assert.Equal(t, 4, rec.PlayerID)

	p, ok := set.Player(4)
	require.True(t, ok)
	assert.Equal(t, "Haaland", p.Name)

	_, ok = set.Record(999)
	assert.False(t, ok)
}

func TestTopPicks_RanksByOverallScoreDescending(t *testing.T) {
	set := Compute(rankingSnapshot(), testLogger())

	rows := set.TopPicks("", 0)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t,
			rows[i-1].Metrics.OverallScore, rows[i].Metrics.OverallScore,
			"ranking must be monotone at row %d", i)
	}
}

func TestTopPicks_PositionFilterAndLimit(t *testing.T) {
	set := Compute(rankingSnapshot(), testLogger())

	rows := set.TopPicks(types.PositionMID, 2)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, types.PositionMID, row.Player.Position)
	}
}

func TestTopPicks_TiesFallToAscendingID(t *testing.T) {
	// Two byte-identical players produce identical scores; the lower id
	// must come first on every run.
	snap := testSnapshot(
		types.Player{ID: 9, Position: types.PositionMID, Cost: 60, TotalPoints: 100, Form: 5},
		types.Player{ID: 4, Position: types.PositionMID, Cost: 60, TotalPoints: 100, Form: 5},
	)
	set := Compute(snap, testLogger())

	rows := set.TopPicks("", 0)
	require.Len(t, rows, 2)
	assert.Equal(t, 4, rows[0].Player.ID)
	assert.Equal(t, 9, rows[1].Player.ID)
}

func TestTransferTargets_RespectsCostCeiling(t *testing.T) {
	set := Compute(rankingSnapshot(), testLogger())

	rows := set.TransferTargets(8.0, types.PositionMID, 0)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.LessOrEqual(t, row.Player.CostMillions(), 8.0)
		assert.Equal(t, types.PositionMID, row.Player.Position)
	}
}

func TestDifferentials_FiltersOwnershipAndPoints(t *testing.T) {
	set := Compute(rankingSnapshot(), testLogger())

	rows := set.Differentials(15.0, 100, 0)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.Less(t, row.Player.SelectedByPercent, 15.0)
		assert.GreaterOrEqual(t, row.Player.TotalPoints, 100)
	}
	// Kluivert is under 100 points and must not appear.
	for _, row := range rows {
		assert.NotEqual(t, 3, row.Player.ID)
	}
}
