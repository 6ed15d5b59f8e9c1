package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fplsim/fpl-optimizer/internal/fixtures"
	"github.com/fplsim/fpl-optimizer/internal/metrics"
	"github.com/fplsim/fpl-optimizer/internal/types"
)

// NoImprovementRationale annotates an empty suggestion list.
const NoImprovementRationale = "no improvement found within budget"

// Defaults applied when a SuggestConfig field is left zero.
const (
	DefaultHorizonGameweeks  = 5
	DefaultWeeklyPointsScale = 6.0
	DefaultTransferHitCost   = 4.0
)

// SuggestConfig parameterizes one advisory pass.
type SuggestConfig struct {
	BudgetDelta       float64 // millions of headroom above each outgoing player's cost
	FreeTransfers     int
	HorizonGameweeks  int
	ClubCap           int
	WeeklyPointsScale float64
	TransferHitCost   float64
}

func (c *SuggestConfig) applyDefaults() {
	if c.HorizonGameweeks == 0 {
		c.HorizonGameweeks = DefaultHorizonGameweeks
	}
	if c.ClubCap == 0 {
		c.ClubCap = DefaultClubCap
	}
	if c.WeeklyPointsScale == 0 {
		c.WeeklyPointsScale = DefaultWeeklyPointsScale
	}
	if c.TransferHitCost == 0 {
		c.TransferHitCost = DefaultTransferHitCost
	}
}

// SuggestResult is the advisory output: suggestions in descending expected
// gain, or an empty list with the no-improvement rationale.
type SuggestResult struct {
	Suggestions []types.TransferSuggestion `json:"suggestions"`
	Rationale   string                     `json:"rationale,omitempty"`

	// SearchBudgetExceeded is set when the caller's deadline expired before
	// every current player was evaluated.
	SearchBudgetExceeded bool `json:"searchBudgetExceeded"`
}

// Advisor proposes roster deltas against an existing squad. Suggestions are
// ephemeral; nothing is persisted.
type Advisor struct {
	set    *metrics.Set
	fdr    *fixtures.Analyzer
	logger *logrus.Logger
}

func NewAdvisor(set *metrics.Set, fdr *fixtures.Analyzer, log *logrus.Logger) *Advisor {
	return &Advisor{set: set, fdr: fdr, logger: log}
}

// Suggest searches, for each squad member, the best same-position
// replacement within the budget delta that keeps every club at or under the
// cap. Expected gain is the horizon-scaled overall-score difference minus
// the transfer-hit penalty for exceeding the free-transfer allowance.
func (a *Advisor) Suggest(ctx context.Context, squad types.Squad, cfg SuggestConfig) (*SuggestResult, error) {
	cfg.applyDefaults()

	clubCounts := make(map[int]int)
	inSquad := make(map[int]bool, len(squad.Players))
	for _, id := range squad.Players {
		p, ok := a.set.Player(id)
		if !ok {
			return nil, &ValidationError{Field: "squad player", Value: fmt.Sprintf("%d", id)}
		}
		inSquad[id] = true
		clubCounts[p.Club]++
	}

	budgetDeltaTenths := int(math.Round(cfg.BudgetDelta * 10))

	type rawSuggestion struct {
		out     types.Player
		in      types.Player
		rawGain float64
	}
	var raws []rawSuggestion
	exceeded := false

	for _, outID := range squad.Players {
		if ctx.Err() != nil {
			exceeded = true
			break
		}

		out, _ := a.set.Player(outID)
		outRec, ok := a.set.Record(outID)
		if !ok {
			continue
		}

		var best *rawSuggestion
		for _, cand := range a.set.Snapshot.Players {
			if cand.Position != out.Position || inSquad[cand.ID] {
				continue
			}
			if cand.Cost > out.Cost+budgetDeltaTenths {
				continue
			}
			count := clubCounts[cand.Club]
			if cand.Club == out.Club {
				count--
			}
			if count+1 > cfg.ClubCap {
				continue
			}
			candRec, ok := a.set.Record(cand.ID)
			if !ok {
				continue
			}

			gain := float64(cfg.HorizonGameweeks) *
				(candRec.OverallScore - outRec.OverallScore) / 100 * cfg.WeeklyPointsScale
			if gain <= 0 {
				continue
			}
			if best == nil || gain > best.rawGain ||
				(gain == best.rawGain && cand.ID < best.in.ID) {
				best = &rawSuggestion{out: out, in: cand, rawGain: gain}
			}
		}
		if best != nil {
			raws = append(raws, *best)
		}
	}

	if len(raws) == 0 {
		a.logger.WithField("squad_size", len(squad.Players)).Debug("No improving transfers found")
		return &SuggestResult{
			Suggestions:          []types.TransferSuggestion{},
			Rationale:            NoImprovementRationale,
			SearchBudgetExceeded: exceeded,
		}, nil
	}

	sort.Slice(raws, func(i, j int) bool {
		if raws[i].rawGain != raws[j].rawGain {
			return raws[i].rawGain > raws[j].rawGain
		}
		return raws[i].out.ID < raws[j].out.ID
	})

	suggestions := make([]types.TransferSuggestion, 0, len(raws))
	for i, r := range raws {
		transfersUsed := i + 1
		penalty := cfg.TransferHitCost * math.Max(0, float64(transfersUsed-cfg.FreeTransfers))
		adj := a.fdr.Adjustment(r.in.Club, cfg.HorizonGameweeks)
		suggestions = append(suggestions, types.TransferSuggestion{
			PlayerOut:    r.out.ID,
			PlayerIn:     r.in.ID,
			ExpectedGain: r.rawGain - penalty,
			Rationale: fmt.Sprintf("%s upgrades %s over %d gameweeks (fixture adjustment %.2f)",
				r.in.Name, r.out.Name, cfg.HorizonGameweeks, adj),
		})
	}

	a.logger.WithFields(logrus.Fields{
		"suggestions":    len(suggestions),
		"free_transfers": cfg.FreeTransfers,
		"horizon":        cfg.HorizonGameweeks,
	}).Info("Transfer suggestions computed")

	return &SuggestResult{Suggestions: suggestions, SearchBudgetExceeded: exceeded}, nil
}
