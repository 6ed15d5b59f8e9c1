package fixtures

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/fplsim/fpl-optimizer/internal/types"
)

// FDR bounds. Difficulty is expressed on the community's familiar 1-5 scale.
const (
	fdrMin = 1.0
	fdrMax = 5.0

	// Multiplicative adjustment applied to forward-looking expected points.
	adjustMin = 0.8
	adjustMax = 1.2
)

// ClubRun summarizes a club's fixture run over the horizon.
type ClubRun struct {
	ClubID         int     `json:"clubId"`
	Name           string  `json:"name"`
	AvgFDR         float64 `json:"avgFdr"`
	FixtureQuality float64 `json:"fixtureQuality"`
	Recommendation string  `json:"recommendation"`
}

// Analyzer derives forward-looking difficulty ratings from the snapshot's
// fixture and club tables. Read-only after construction.
type Analyzer struct {
	snap   *types.Snapshot
	clubs  map[int]types.Club
	logger *logrus.Entry

	strengthMin float64
	strengthMax float64
}

// NewAnalyzer indexes the club table and the strength range used to place
// opponents on the 1-5 difficulty scale.
func NewAnalyzer(snap *types.Snapshot, log *logrus.Logger) *Analyzer {
	a := &Analyzer{
		snap:   snap,
		clubs:  make(map[int]types.Club, len(snap.Clubs)),
		logger: log.WithField("component", "fixture-difficulty"),
	}

	strengths := make([]float64, 0, len(snap.Clubs)*2)
	for _, c := range snap.Clubs {
		a.clubs[c.ID] = c
		strengths = append(strengths, float64(c.StrengthOverallHome), float64(c.StrengthOverallAway))
	}
	if len(strengths) > 0 {
		a.strengthMin, a.strengthMax = strengths[0], strengths[0]
		for _, s := range strengths {
			if s < a.strengthMin {
				a.strengthMin = s
			}
			if s > a.strengthMax {
				a.strengthMax = s
			}
		}
	}

	return a
}

// Difficulty returns the average FDR over the club's next horizon fixtures,
// on [1, 5]. Weaker opponents produce lower (easier) ratings. A club with no
// upcoming fixtures rates 0.
func (a *Analyzer) Difficulty(clubID, horizon int) float64 {
	upcoming := a.upcoming(clubID, horizon)
	if len(upcoming) == 0 {
		return 0
	}

	ratings := make([]float64, 0, len(upcoming))
	for _, f := range upcoming {
		ratings = append(ratings, a.fixtureDifficulty(clubID, f))
	}
	return stat.Mean(ratings, nil)
}

// Adjustment maps the club's difficulty onto the [0.8, 1.2] multiplier
// applied to expected-points estimates: easy runs boost, hard runs dampen.
// Neutral (no fixtures) is 1.0.
func (a *Analyzer) Adjustment(clubID, horizon int) float64 {
	d := a.Difficulty(clubID, horizon)
	if d == 0 {
		return 1.0
	}
	adj := adjustMax - (d-fdrMin)/(fdrMax-fdrMin)*(adjustMax-adjustMin)
	if adj < adjustMin {
		return adjustMin
	}
	if adj > adjustMax {
		return adjustMax
	}
	return adj
}

// BestRuns ranks every club by fixture quality over the horizon, the
// transfer-planning view of the difficulty table.
func (a *Analyzer) BestRuns(horizon int) []ClubRun {
	runs := make([]ClubRun, 0, len(a.snap.Clubs))
	for _, c := range a.snap.Clubs {
		fdr := a.Difficulty(c.ID, horizon)
		rec := "Neutral"
		switch {
		case fdr == 0:
			rec = "Neutral"
		case fdr < 3.0:
			rec = "Target"
		case fdr > 3.5:
			rec = "Avoid"
		}
		runs = append(runs, ClubRun{
			ClubID:         c.ID,
			Name:           c.Name,
			AvgFDR:         fdr,
			FixtureQuality: 6 - fdr,
			Recommendation: rec,
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].FixtureQuality != runs[j].FixtureQuality {
			return runs[i].FixtureQuality > runs[j].FixtureQuality
		}
		return runs[i].ClubID < runs[j].ClubID
	})

	a.logger.WithFields(logrus.Fields{
		"clubs":   len(runs),
		"horizon": horizon,
	}).Debug("Ranked fixture runs")

	return runs
}

// DoubleGameweeks maps each gameweek to the clubs playing twice in it.
func (a *Analyzer) DoubleGameweeks() map[int][]int {
	counts := make(map[int]map[int]int)
	for _, f := range a.snap.Fixtures {
		if counts[f.Gameweek] == nil {
			counts[f.Gameweek] = make(map[int]int)
		}
		counts[f.Gameweek][f.HomeClub]++
		counts[f.Gameweek][f.AwayClub]++
	}

	doubles := make(map[int][]int)
	for gw, clubCounts := range counts {
		for clubID, n := range clubCounts {
			if n >= 2 {
				doubles[gw] = append(doubles[gw], clubID)
			}
		}
		sort.Ints(doubles[gw])
	}
	return doubles
}

// HasDoubleGameweek reports whether the club plays twice in the gameweek.
func (a *Analyzer) HasDoubleGameweek(clubID, gameweek int) bool {
	n := 0
	for _, f := range a.snap.Fixtures {
		if f.Gameweek != gameweek {
			continue
		}
		if f.HomeClub == clubID || f.AwayClub == clubID {
			n++
		}
	}
	return n >= 2
}

// upcoming returns the club's next fixtures in gameweek order, capped at
// horizon.
func (a *Analyzer) upcoming(clubID, horizon int) []types.Fixture {
	var fx []types.Fixture
	for _, f := range a.snap.Fixtures {
		if f.HomeClub == clubID || f.AwayClub == clubID {
			fx = append(fx, f)
		}
	}
	sort.SliceStable(fx, func(i, j int) bool { return fx[i].Gameweek < fx[j].Gameweek })
	if horizon > 0 && len(fx) > horizon {
		fx = fx[:horizon]
	}
	return fx
}

// fixtureDifficulty rates one fixture from the club's perspective: the
// opponent's venue-adjusted overall strength scaled to [1, 5].
func (a *Analyzer) fixtureDifficulty(clubID int, f types.Fixture) float64 {
	var opp types.Club
	var ok bool
	var strength float64

	if f.HomeClub == clubID {
		opp, ok = a.clubs[f.AwayClub]
		strength = float64(opp.StrengthOverallAway)
	} else {
		opp, ok = a.clubs[f.HomeClub]
		strength = float64(opp.StrengthOverallHome)
	}
	if !ok {
		return (fdrMin + fdrMax) / 2
	}

	if a.strengthMax <= a.strengthMin {
		return (fdrMin + fdrMax) / 2
	}
	norm := (strength - a.strengthMin) / (a.strengthMax - a.strengthMin)
	return fdrMin + norm*(fdrMax-fdrMin)
}
