package metrics

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

// Set pairs a snapshot with the metrics records computed from it and serves
// the ranked listings the strategy tooling is built on. A Set is immutable
// and safe for concurrent readers.
type Set struct {
	Snapshot *types.Snapshot
	Records  []types.MetricsRecord

	byID      map[int]int // player id -> index into Records
	playerIdx map[int]int // player id -> index into Snapshot.Players
}

// RankedPlayer is one row of a ranked listing.
type RankedPlayer struct {
	Player  types.Player        `json:"player"`
	Metrics types.MetricsRecord `json:"metrics"`
}

// Compute runs the calculator over the snapshot and indexes the result.
func Compute(snap *types.Snapshot, log *logrus.Logger) *Set {
	return NewSet(snap, NewCalculator(snap, log).CalculateAll())
}

// NewSet indexes precomputed records (for example ones restored from the
// metrics cache) against their snapshot.
func NewSet(snap *types.Snapshot, records []types.MetricsRecord) *Set {
	s := &Set{
		Snapshot:  snap,
		Records:   records,
		byID:      make(map[int]int, len(records)),
		playerIdx: make(map[int]int, len(snap.Players)),
	}
	for i, r := range records {
		s.byID[r.PlayerID] = i
	}
	for i, p := range snap.Players {
		s.playerIdx[p.ID] = i
	}
	return s
}

// Record returns the metrics record for a player id.
func (s *Set) Record(playerID int) (types.MetricsRecord, bool) {
	i, ok := s.byID[playerID]
	if !ok {
		return types.MetricsRecord{}, false
	}
	return s.Records[i], true
}

// Player returns the snapshot player record for a player id.
func (s *Set) Player(playerID int) (types.Player, bool) {
	i, ok := s.playerIdx[playerID]
	if !ok {
		return types.Player{}, false
	}
	return s.Snapshot.Players[i], true
}

// TopPicks ranks players by OverallScore, optionally within one position.
func (s *Set) TopPicks(pos types.Position, n int) []RankedPlayer {
	return s.ranked(pos, n, func(r types.MetricsRecord) float64 { return r.OverallScore }, nil)
}

// TransferTargets ranks affordable players by BuyScore.
func (s *Set) TransferTargets(maxCostMillions float64, pos types.Position, n int) []RankedPlayer {
	return s.ranked(pos, n,
		func(r types.MetricsRecord) float64 { return r.BuyScore },
		func(p types.Player) bool { return p.CostMillions() <= maxCostMillions })
}

// Differentials ranks low-owned players with a points floor by
// DifferentialScore.
func (s *Set) Differentials(maxOwnership float64, minPoints, n int) []RankedPlayer {
	return s.ranked("", n,
		func(r types.MetricsRecord) float64 { return r.DifferentialScore },
		func(p types.Player) bool {
			return p.SelectedByPercent < maxOwnership && p.TotalPoints >= minPoints
		})
}

func (s *Set) ranked(pos types.Position, n int, score func(types.MetricsRecord) float64, keep func(types.Player) bool) []RankedPlayer {
	rows := make([]RankedPlayer, 0, len(s.Records))
	for _, p := range s.Snapshot.Players {
		if pos != "" && p.Position != pos {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		rec, ok := s.Record(p.ID)
		if !ok {
			continue
		}
		rows = append(rows, RankedPlayer{Player: p, Metrics: rec})
	}

	// Descending score; ascending player id keeps ranking deterministic.
	sort.Slice(rows, func(i, j int) bool {
		si, sj := score(rows[i].Metrics), score(rows[j].Metrics)
		if si != sj {
			return si > sj
		}
		return rows[i].Player.ID < rows[j].Player.ID
	})

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
