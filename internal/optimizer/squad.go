package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fplsim/fpl-optimizer/internal/metrics"
	"github.com/fplsim/fpl-optimizer/internal/types"
)

// Defaults applied when a BuildConfig field is left zero.
const (
	DefaultBudget           = 100.0
	DefaultClubCap          = 3
	DefaultRepairCap        = 50
	DefaultPremiumThreshold = 110 // tenths of a million, £11.0m

	premiumStrategyBonus = 10.0
	improvementRounds    = 10
)

// BuildConfig parameterizes one squad build.
type BuildConfig struct {
	Budget             float64 // millions
	Formation          string
	Strategy           types.Strategy
	ClubCap            int
	PremiumThreshold   int // tenths of a million
	RepairIterationCap int
}

func (c *BuildConfig) applyDefaults() {
	if c.Budget == 0 {
		c.Budget = DefaultBudget
	}
	if c.ClubCap == 0 {
		c.ClubCap = DefaultClubCap
	}
	if c.PremiumThreshold == 0 {
		c.PremiumThreshold = DefaultPremiumThreshold
	}
	if c.RepairIterationCap == 0 {
		c.RepairIterationCap = DefaultRepairCap
	}
}

// BuildResult carries the committed squad plus search metadata.
type BuildResult struct {
	Squad          types.Squad `json:"squad"`
	OptimizationID string      `json:"optimizationId"`
	Iterations     int         `json:"iterations"`

	// SearchBudgetExceeded is set when the caller's deadline expired during
	// the improvement phase; the squad returned is the best known feasible
	// one, not necessarily the search's fixed point.
	SearchBudgetExceeded bool `json:"searchBudgetExceeded"`
}

type candidate struct {
	player types.Player
	score  float64
}

// SquadOptimizer builds 15-man squads from a computed metrics set using a
// deterministic greedy-fill-with-repair heuristic. The underlying selection
// problem is a multi-constraint knapsack; no global optimum is claimed.
type SquadOptimizer struct {
	set    *metrics.Set
	logger *logrus.Logger
}

func NewSquadOptimizer(set *metrics.Set, log *logrus.Logger) *SquadOptimizer {
	return &SquadOptimizer{set: set, logger: log}
}

// Build selects a legal 15-man squad and its starting XI. Infeasibility is
// reported via *InfeasibleError naming the violated constraint; unknown
// formation or strategy tags fail fast with *ValidationError. The context
// deadline bounds the improvement phase.
func (o *SquadOptimizer) Build(ctx context.Context, cfg BuildConfig) (*BuildResult, error) {
	cfg.applyDefaults()

	formation, ok := types.Formations[cfg.Formation]
	if !ok {
		return nil, &ValidationError{Field: "formation", Value: cfg.Formation}
	}
	if !types.ValidStrategy(cfg.Strategy) {
		return nil, &ValidationError{Field: "strategy", Value: string(cfg.Strategy)}
	}

	optimizationID := uuid.New().String()
	log := o.logger.WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"strategy":        cfg.Strategy,
		"formation":       cfg.Formation,
	})
	log.WithFields(logrus.Fields{
		"pool_size": len(o.set.Snapshot.Players),
		"budget":    cfg.Budget,
		"club_cap":  cfg.ClubCap,
	}).Info("Starting squad build")

	pools := o.rankedPools(cfg)
	byCostAsc := cheapestPools(o.set.Snapshot.Players)

	budgetTenths := int(math.Round(cfg.Budget * 10))
	excluded := make(map[int]bool)

	var picked []candidate
	iterations := 0
	for {
		iterations++
		if iterations > cfg.RepairIterationCap {
			return nil, &InfeasibleError{
				Constraint: ConstraintPositionQuota,
				Detail:     fmt.Sprintf("repair iteration cap %d exhausted", cfg.RepairIterationCap),
			}
		}

		var blocked *fillBlock
		picked, blocked = greedyFill(pools, byCostAsc, budgetTenths, cfg.ClubCap, excluded)
		if blocked == nil {
			break
		}

		log.WithFields(logrus.Fields{
			"iteration": iterations,
			"position":  blocked.position,
			"reason":    blocked.constraint,
		}).Debug("Greedy fill blocked, attempting repair")

		victim, ok := repairVictim(picked, byCostAsc, excluded, blocked)
		if !ok {
			return nil, &InfeasibleError{
				Constraint: blocked.constraint,
				Detail:     fmt.Sprintf("cannot complete %s quota", blocked.position),
			}
		}
		excluded[victim] = true
	}

	// Local improvement: upgrade picks with leftover budget until the squad
	// is a fixed point or the caller's deadline expires.
	budgetExceeded := false
	for round := 0; round < improvementRounds; round++ {
		if ctx.Err() != nil {
			budgetExceeded = true
			break
		}
		if !improveOnce(picked, pools, budgetTenths, cfg.ClubCap, excluded, ctx) {
			break
		}
	}
	if ctx.Err() != nil {
		budgetExceeded = true
	}

	squad, err := commitSquad(picked, formation, cfg)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"iterations": iterations,
		"total_cost": squad.TotalCost,
		"partial":    budgetExceeded,
	}).Info("Squad build completed")

	return &BuildResult{
		Squad:                squad,
		OptimizationID:       optimizationID,
		Iterations:           iterations,
		SearchBudgetExceeded: budgetExceeded,
	}, nil
}

// rankedPools sorts every position's candidates by the strategy composite,
// descending, ties broken by ascending player id for determinism.
func (o *SquadOptimizer) rankedPools(cfg BuildConfig) map[types.Position][]candidate {
	pools := make(map[types.Position][]candidate, len(types.Positions))
	for _, p := range o.set.Snapshot.Players {
		rec, ok := o.set.Record(p.ID)
		if !ok {
			continue
		}
		pools[p.Position] = append(pools[p.Position], candidate{
			player: p,
			score:  strategyScore(rec, p, cfg),
		})
	}
	for pos := range pools {
		pool := pools[pos]
		sort.Slice(pool, func(i, j int) bool {
			if pool[i].score != pool[j].score {
				return pool[i].score > pool[j].score
			}
			return pool[i].player.ID < pool[j].player.ID
		})
	}
	return pools
}

func strategyScore(rec types.MetricsRecord, p types.Player, cfg BuildConfig) float64 {
	switch cfg.Strategy {
	case types.StrategyTemplate:
		// Ownership-weighted overall score: consensus picks float up.
		owned := p.SelectedByPercent
		if owned < 0 {
			owned = 0
		} else if owned > 100 {
			owned = 100
		}
		return rec.OverallScore * (0.5 + owned/200)
	case types.StrategyDifferential:
		return rec.DifferentialScore
	case types.StrategyPremiumHeavy:
		score := rec.OverallScore
		if p.Cost >= cfg.PremiumThreshold {
			score += premiumStrategyBonus
		}
		return score
	default:
		return rec.OverallScore
	}
}

func cheapestPools(players []types.Player) map[types.Position][]types.Player {
	byCost := make(map[types.Position][]types.Player, len(types.Positions))
	for _, p := range players {
		byCost[p.Position] = append(byCost[p.Position], p)
	}
	for pos := range byCost {
		pool := byCost[pos]
		sort.Slice(pool, func(i, j int) bool {
			if pool[i].Cost != pool[j].Cost {
				return pool[i].Cost < pool[j].Cost
			}
			return pool[i].ID < pool[j].ID
		})
	}
	return byCost
}

// fillBlock describes why the greedy pass could not complete a position.
type fillBlock struct {
	position   types.Position
	constraint string
}

// greedyFill walks positions in quota order, taking the best-scored legal
// candidate each time. A candidate is skipped when it would breach the club
// cap or when the remaining budget could no longer cover the cheapest legal
// completion of the remaining slots (the reservation check).
func greedyFill(
	pools map[types.Position][]candidate,
	byCostAsc map[types.Position][]types.Player,
	budgetTenths, clubCap int,
	excluded map[int]bool,
) ([]candidate, *fillBlock) {
	picked := make([]candidate, 0, types.SquadSize)
	pickedIDs := make(map[int]bool, types.SquadSize)
	clubCounts := make(map[int]int)
	spent := 0

	remaining := make(map[types.Position]int, len(types.Positions))
	for pos, quota := range types.SquadQuotas {
		remaining[pos] = quota
	}

	for _, pos := range types.Positions {
		for remaining[pos] > 0 {
			clubBlocked := false
			var quotaShort types.Position
			var chosen *candidate

			for i := range pools[pos] {
				c := pools[pos][i]
				if pickedIDs[c.player.ID] || excluded[c.player.ID] {
					continue
				}
				if clubCounts[c.player.Club] >= clubCap {
					clubBlocked = true
					continue
				}
				// Reservation: budget left after this pick must cover the
				// cheapest completion of every slot still open.
				after := remainingAfterPick(remaining, pos)
				reserve, short := cheapestCompletion(byCostAsc, after, pickedIDs, excluded, c.player.ID)
				if reserve < 0 {
					quotaShort = short
					continue
				}
				if budgetTenths-spent-c.player.Cost < reserve {
					continue
				}
				chosen = &c
				break
			}

			if chosen == nil {
				if len(eligible(pools[pos], excluded)) < types.SquadQuotas[pos] {
					return picked, &fillBlock{position: pos, constraint: ConstraintPositionQuota}
				}
				// A pick here was vetoed because some position can no longer
				// fill its quota; name that position, not the budget.
				if quotaShort != "" {
					return picked, &fillBlock{position: quotaShort, constraint: ConstraintPositionQuota}
				}
				constraint := ConstraintBudget
				if clubBlocked {
					constraint = ConstraintClubCap
				}
				return picked, &fillBlock{position: pos, constraint: constraint}
			}

			picked = append(picked, *chosen)
			pickedIDs[chosen.player.ID] = true
			clubCounts[chosen.player.Club]++
			spent += chosen.player.Cost
			remaining[pos]--
		}
	}

	return picked, nil
}

func eligible(pool []candidate, excluded map[int]bool) []candidate {
	out := make([]candidate, 0, len(pool))
	for _, c := range pool {
		if !excluded[c.player.ID] {
			out = append(out, c)
		}
	}
	return out
}

func remainingAfterPick(remaining map[types.Position]int, pickedPos types.Position) map[types.Position]int {
	after := make(map[types.Position]int, len(remaining))
	for pos, n := range remaining {
		after[pos] = n
	}
	after[pickedPos]--
	return after
}

// cheapestCompletion sums the cheapest eligible costs that could fill every
// remaining slot. Returns -1 plus the short position when some position
// cannot be completed at all.
func cheapestCompletion(
	byCostAsc map[types.Position][]types.Player,
	remaining map[types.Position]int,
	pickedIDs, excluded map[int]bool,
	candidateID int,
) (int, types.Position) {
	total := 0
	for _, pos := range types.Positions {
		need := remaining[pos]
		if need <= 0 {
			continue
		}
		found := 0
		for _, p := range byCostAsc[pos] {
			if pickedIDs[p.ID] || excluded[p.ID] || p.ID == candidateID {
				continue
			}
			total += p.Cost
			found++
			if found == need {
				break
			}
		}
		if found < need {
			return -1, pos
		}
	}
	return total, ""
}

// repairVictim picks the already-picked player to evict so the blocked fill
// can retry: the lowest-scored member of an at-cap club when the club cap
// blocked, otherwise the lowest-scored pick whose eviction frees real budget.
// Exclusions are permanent, so a victim is never taken from a position whose
// eligible pool would drop below its quota. Ties fall to ascending player id.
func repairVictim(picked []candidate, byCostAsc map[types.Position][]types.Player, excluded map[int]bool, blocked *fillBlock) (int, bool) {
	if len(picked) == 0 {
		return 0, false
	}

	clubCounts := make(map[int]int)
	maxClubCount := 0
	for _, c := range picked {
		clubCounts[c.player.Club]++
		if clubCounts[c.player.Club] > maxClubCount {
			maxClubCount = clubCounts[c.player.Club]
		}
	}

	victims := make([]candidate, 0, len(picked))
	if blocked.constraint == ConstraintClubCap {
		for _, c := range picked {
			if clubCounts[c.player.Club] == maxClubCount && canSpare(byCostAsc[c.player.Position], excluded, c.player.Position) {
				victims = append(victims, c)
			}
		}
	} else {
		// Budget-driven repair: evicting is only useful when a cheaper
		// same-position replacement exists.
		for _, c := range picked {
			if !cheaperAlternativeExists(byCostAsc[c.player.Position], c.player, excluded) {
				continue
			}
			if canSpare(byCostAsc[c.player.Position], excluded, c.player.Position) {
				victims = append(victims, c)
			}
		}
	}
	if len(victims) == 0 {
		return 0, false
	}

	sort.Slice(victims, func(i, j int) bool {
		if victims[i].score != victims[j].score {
			return victims[i].score < victims[j].score
		}
		return victims[i].player.ID < victims[j].player.ID
	})
	return victims[0].player.ID, true
}

// canSpare reports whether the position keeps enough eligible players to meet
// its quota after one more exclusion.
func canSpare(byCostAsc []types.Player, excluded map[int]bool, pos types.Position) bool {
	n := 0
	for _, p := range byCostAsc {
		if !excluded[p.ID] {
			n++
		}
	}
	return n-1 >= types.SquadQuotas[pos]
}

func cheaperAlternativeExists(byCostAsc []types.Player, current types.Player, excluded map[int]bool) bool {
	for _, p := range byCostAsc {
		if p.Cost >= current.Cost {
			return false
		}
		if p.ID != current.ID && !excluded[p.ID] {
			return true
		}
	}
	return false
}

// improveOnce tries one round of single-player upgrades within the leftover
// budget. Returns true when any pick improved.
func improveOnce(
	picked []candidate,
	pools map[types.Position][]candidate,
	budgetTenths, clubCap int,
	excluded map[int]bool,
	ctx context.Context,
) bool {
	pickedIDs := make(map[int]bool, len(picked))
	clubCounts := make(map[int]int)
	spent := 0
	for _, c := range picked {
		pickedIDs[c.player.ID] = true
		clubCounts[c.player.Club]++
		spent += c.player.Cost
	}

	improved := false
	for i := range picked {
		if ctx.Err() != nil {
			return improved
		}
		cur := picked[i]
		for _, alt := range pools[cur.player.Position] {
			if alt.score <= cur.score {
				break // pool is sorted; nothing better remains
			}
			if pickedIDs[alt.player.ID] || excluded[alt.player.ID] {
				continue
			}
			if spent-cur.player.Cost+alt.player.Cost > budgetTenths {
				continue
			}
			newClubCount := clubCounts[alt.player.Club] + 1
			if alt.player.Club == cur.player.Club {
				newClubCount--
			}
			if newClubCount > clubCap {
				continue
			}

			spent += alt.player.Cost - cur.player.Cost
			clubCounts[cur.player.Club]--
			clubCounts[alt.player.Club]++
			delete(pickedIDs, cur.player.ID)
			pickedIDs[alt.player.ID] = true
			picked[i] = alt
			improved = true
			break
		}
	}
	return improved
}

// commitSquad freezes the picks into a Squad and selects the starting XI:
// per position, the formation's required count of highest-scoring players;
// the remaining four form the bench in descending score order.
func commitSquad(picked []candidate, formation types.Formation, cfg BuildConfig) (types.Squad, error) {
	if len(picked) != types.SquadSize {
		return types.Squad{}, &InfeasibleError{
			Constraint: ConstraintPositionQuota,
			Detail:     fmt.Sprintf("committed %d players, need %d", len(picked), types.SquadSize),
		}
	}

	byPos := make(map[types.Position][]candidate)
	totalCost := 0
	playerIDs := make([]int, 0, types.SquadSize)
	for _, c := range picked {
		byPos[c.player.Position] = append(byPos[c.player.Position], c)
		totalCost += c.player.Cost
		playerIDs = append(playerIDs, c.player.ID)
	}
	for pos := range byPos {
		group := byPos[pos]
		sort.Slice(group, func(i, j int) bool {
			if group[i].score != group[j].score {
				return group[i].score > group[j].score
			}
			return group[i].player.ID < group[j].player.ID
		})
	}

	counts := formation.Counts()
	var startingXI []int
	var bench []candidate
	for _, pos := range types.Positions {
		need := counts[pos]
		for i, c := range byPos[pos] {
			if i < need {
				startingXI = append(startingXI, c.player.ID)
			} else {
				bench = append(bench, c)
			}
		}
	}

	sort.Slice(bench, func(i, j int) bool {
		if bench[i].score != bench[j].score {
			return bench[i].score > bench[j].score
		}
		return bench[i].player.ID < bench[j].player.ID
	})
	benchIDs := make([]int, 0, len(bench))
	for _, c := range bench {
		benchIDs = append(benchIDs, c.player.ID)
	}

	return types.Squad{
		Players:    playerIDs,
		StartingXI: startingXI,
		Bench:      benchIDs,
		Formation:  cfg.Formation,
		TotalCost:  totalCost,
		Budget:     cfg.Budget,
	}, nil
}
