package chips

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fplsim/fpl-optimizer/internal/config"
	"github.com/fplsim/fpl-optimizer/internal/fixtures"
	"github.com/fplsim/fpl-optimizer/internal/metrics"
	"github.com/fplsim/fpl-optimizer/internal/types"
)

// Chip names.
const (
	ChipWildcard      = "Wildcard"
	ChipBenchBoost    = "Bench Boost"
	ChipTripleCaptain = "Triple Captain"
	ChipFreeHit       = "Free Hit"
)

// Rules holds the season's chip-timing data. The windows are configuration,
// not logic, so they can move season to season without code changes.
type Rules struct {
	WildcardWindows        []config.GameweekWindow
	FreeHitWindow          config.GameweekWindow
	PremiumThreshold       int // tenths of a million
	TripleCaptainThreshold float64
}

// Planner maps the current gameweek and fixture state onto the chip rule
// table. Pure lookup plus feasibility checks; no optimization.
type Planner struct {
	set    *metrics.Set
	fdr    *fixtures.Analyzer
	rules  Rules
	logger *logrus.Entry
}

func NewPlanner(set *metrics.Set, fdr *fixtures.Analyzer, rules Rules, log *logrus.Logger) *Planner {
	return &Planner{
		set:    set,
		fdr:    fdr,
		rules:  rules,
		logger: log.WithField("component", "chip-planner"),
	}
}

// Plan returns one recommendation per chip for the given gameweek.
func (p *Planner) Plan(gameweek int) []types.ChipPlan {
	plans := []types.ChipPlan{
		p.planWildcard(gameweek),
		p.planBenchBoost(gameweek),
		p.planTripleCaptain(gameweek),
		p.planFreeHit(gameweek),
	}

	p.logger.WithField("gameweek", gameweek).Debug("Chip plan computed")
	return plans
}

var wildcardRationales = []string{
	"fix early mistakes and set up for the first favorable fixture run",
	"prepare for double gameweeks and fixture swings",
	"incorporate January signings and set up the final run-in",
}

func (p *Planner) planWildcard(gameweek int) types.ChipPlan {
	for i, w := range p.rules.WildcardWindows {
		rationale := "reshape the squad"
		if i < len(wildcardRationales) {
			rationale = wildcardRationales[i]
		}
		if w.Contains(gameweek) {
			return types.ChipPlan{
				Chip:              ChipWildcard,
				RecommendedWindow: w.String(),
				Rationale:         "active window: " + rationale,
			}
		}
		if gameweek < w.Start {
			return types.ChipPlan{
				Chip:              ChipWildcard,
				RecommendedWindow: w.String(),
				Rationale:         "hold until the window: " + rationale,
			}
		}
	}
	return types.ChipPlan{
		Chip:              ChipWildcard,
		RecommendedWindow: "none",
		Rationale:         "all configured wildcard windows have passed",
	}
}

func (p *Planner) planBenchBoost(gameweek int) types.ChipPlan {
	if gw, ok := p.nextDoubleGameweek(gameweek); ok {
		return types.ChipPlan{
			Chip:              ChipBenchBoost,
			RecommendedWindow: fmt.Sprintf("GW%d", gw),
			Rationale:         "double gameweek detected; all fifteen players can score twice",
		}
	}
	return types.ChipPlan{
		Chip:              ChipBenchBoost,
		RecommendedWindow: "none",
		Rationale:         "no double gameweek on the horizon",
	}
}

// planTripleCaptain recommends the chip only when a premium player whose
// club doubles clears the captain-score threshold.
func (p *Planner) planTripleCaptain(gameweek int) types.ChipPlan {
	doubles := p.fdr.DoubleGameweeks()

	gws := make([]int, 0, len(doubles))
	for gw := range doubles {
		if gw >= gameweek {
			gws = append(gws, gw)
		}
	}
	sort.Ints(gws)

	for _, gw := range gws {
		doubling := make(map[int]bool, len(doubles[gw]))
		for _, clubID := range doubles[gw] {
			doubling[clubID] = true
		}

		bestID, bestScore, bestName := 0, 0.0, ""
		for _, player := range p.set.Snapshot.Players {
			if player.Cost < p.rules.PremiumThreshold || !doubling[player.Club] {
				continue
			}
			rec, ok := p.set.Record(player.ID)
			if !ok || rec.CaptainScore <= p.rules.TripleCaptainThreshold {
				continue
			}
			if bestID == 0 || rec.CaptainScore > bestScore ||
				(rec.CaptainScore == bestScore && player.ID < bestID) {
				bestID, bestScore, bestName = player.ID, rec.CaptainScore, player.Name
			}
		}
		if bestID != 0 {
			return types.ChipPlan{
				Chip:              ChipTripleCaptain,
				RecommendedWindow: fmt.Sprintf("GW%d", gw),
				Rationale: fmt.Sprintf("%s doubles with captain score %.1f above the %.1f threshold",
					bestName, bestScore, p.rules.TripleCaptainThreshold),
			}
		}
	}

	return types.ChipPlan{
		Chip:              ChipTripleCaptain,
		RecommendedWindow: "none",
		Rationale:         "no premium player clears the captain threshold in a double gameweek",
	}
}

func (p *Planner) planFreeHit(gameweek int) types.ChipPlan {
	w := p.rules.FreeHitWindow
	if gameweek > w.End {
		return types.ChipPlan{
			Chip:              ChipFreeHit,
			RecommendedWindow: "none",
			Rationale:         "the configured free-hit window has passed",
		}
	}
	return types.ChipPlan{
		Chip:              ChipFreeHit,
		RecommendedWindow: w.String(),
		Rationale:         "historically blank-gameweek territory; field eleven from clubs that play",
	}
}

func (p *Planner) nextDoubleGameweek(gameweek int) (int, bool) {
	doubles := p.fdr.DoubleGameweeks()
	best, found := 0, false
	for gw := range doubles {
		if gw < gameweek {
			continue
		}
		if !found || gw < best {
			best, found = gw, true
		}
	}
	return best, found
}
