package types

import "fmt"

// Position is a player's registered position in the fantasy game.
type Position string

const (
	PositionGKP Position = "GKP"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// Positions lists the valid positions in squad-fill order.
var Positions = []Position{PositionGKP, PositionDEF, PositionMID, PositionFWD}

// SquadQuotas is the fixed 15-man squad composition.
var SquadQuotas = map[Position]int{
	PositionGKP: 2,
	PositionDEF: 5,
	PositionMID: 5,
	PositionFWD: 3,
}

// SquadSize is the number of players in a legal squad.
const SquadSize = 15

// StartingXISize is the number of players in a legal starting lineup.
const StartingXISize = 11

// Strategy selects the composite score the squad optimizer ranks by.
type Strategy string

const (
	StrategyBalanced     Strategy = "balanced"
	StrategyTemplate     Strategy = "template"
	StrategyDifferential Strategy = "differential"
	StrategyPremiumHeavy Strategy = "premium_heavy"
)

// ValidStrategy reports whether s is a known strategy tag.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyBalanced, StrategyTemplate, StrategyDifferential, StrategyPremiumHeavy:
		return true
	}
	return false
}

// Formation describes the outfield counts of a legal starting XI.
// Every formation fields exactly one goalkeeper.
type Formation struct {
	DEF int
	MID int
	FWD int
}

// Formations maps the seven legal formation tags to their outfield counts.
var Formations = map[string]Formation{
	"3-4-3": {DEF: 3, MID: 4, FWD: 3},
	"3-5-2": {DEF: 3, MID: 5, FWD: 2},
	"4-3-3": {DEF: 4, MID: 3, FWD: 3},
	"4-4-2": {DEF: 4, MID: 4, FWD: 2},
	"4-5-1": {DEF: 4, MID: 5, FWD: 1},
	"5-3-2": {DEF: 5, MID: 3, FWD: 2},
	"5-4-1": {DEF: 5, MID: 4, FWD: 1},
}

// Counts returns the required starting-XI count per position.
func (f Formation) Counts() map[Position]int {
	return map[Position]int{
		PositionGKP: 1,
		PositionDEF: f.DEF,
		PositionMID: f.MID,
		PositionFWD: f.FWD,
	}
}

// Player is one row of the snapshot's player table. Records are immutable;
// a new snapshot replaces them wholesale.
type Player struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Position          Position `json:"position"`
	Club              int      `json:"club"`
	Cost              int      `json:"cost"` // tenths of a million
	TotalPoints       int      `json:"total_points"`
	Minutes           int      `json:"minutes"`
	Appearances       int      `json:"appearances"`
	Form              float64  `json:"form"`
	SelectedByPercent float64  `json:"selected_by_percent"`
	Goals             int      `json:"goals"`
	Assists           int      `json:"assists"`
	CleanSheets       int      `json:"clean_sheets"`
	GoalsConceded     int      `json:"goals_conceded"`
	Saves             int      `json:"saves"`
	Bonus             int      `json:"bonus"`
	BPS               int      `json:"bps"`
	PointsPerGame     float64  `json:"points_per_game"`

	// Expected stats are optional; the provider omits them for some players.
	XG *float64 `json:"xg,omitempty"`
	XA *float64 `json:"xa,omitempty"`

	// Points scored in the last five gameweeks, oldest first. May be absent.
	Last5Points []int `json:"last_5_points,omitempty"`
}

// CostMillions converts the fixed-point cost to millions.
func (p Player) CostMillions() float64 {
	return float64(p.Cost) / 10.0
}

// Club is one row of the snapshot's club table.
type Club struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
}

// Fixture is a scheduled match. Difficulty is derived from the opposing
// club's strength, never stored.
type Fixture struct {
	Gameweek int `json:"gameweek"`
	HomeClub int `json:"home_club"`
	AwayClub int `json:"away_club"`
}

// MetricsRecord holds every derived score for one player. Records are
// recomputed from the current snapshot on every call and never persisted
// as a source of truth.
type MetricsRecord struct {
	PlayerID int `json:"playerId"`

	PPM        float64 `json:"ppm"`
	FormRating float64 `json:"formRating"`
	XGIPer90   float64 `json:"xgiPer90"`
	ValueScore float64 `json:"valueScore"`

	Consistency     float64 `json:"consistency"`
	NailedBonus     float64 `json:"nailedBonus"`
	Momentum        float64 `json:"momentum"`
	ExpectedPoints  float64 `json:"expectedPoints"`
	Overperformance float64 `json:"overperformance"`
	BPSPer90        float64 `json:"bpsPer90"`

	TransferPriority float64 `json:"transferPriority"`

	OverallScore      float64 `json:"overallScore"`
	BuyScore          float64 `json:"buyScore"`
	SellScore         float64 `json:"sellScore"`
	HoldScore         float64 `json:"holdScore"`
	CaptainScore      float64 `json:"captainScore"`
	DifferentialScore float64 `json:"differentialScore"`
	PositionScore     float64 `json:"positionScore"`

	// Warnings names the metrics that fell back to their zero-guard default
	// because a required raw field was missing or zero. Metadata only.
	Warnings []string `json:"warnings,omitempty"`
}

// Squad is a committed 15-man roster with its legal starting lineup.
type Squad struct {
	Players    []int   `json:"players"`
	StartingXI []int   `json:"startingXI"`
	Bench      []int   `json:"bench"`
	Formation  string  `json:"formation"`
	TotalCost  int     `json:"totalCost"` // tenths of a million
	Budget     float64 `json:"budget"`    // millions
}

// Contains reports whether the squad holds the given player id.
func (s Squad) Contains(playerID int) bool {
	for _, id := range s.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// TransferSuggestion is an ephemeral roster-delta recommendation.
type TransferSuggestion struct {
	PlayerOut    int     `json:"playerOut"`
	PlayerIn     int     `json:"playerIn"`
	ExpectedGain float64 `json:"expectedGain"`
	Rationale    string  `json:"rationale"`
}

// ChipPlan recommends a gameweek window for one of the season chips.
type ChipPlan struct {
	Chip              string `json:"chip"`
	RecommendedWindow string `json:"recommendedWindow"`
	Rationale         string `json:"rationale"`
}

// ValidatePlayerTable checks the structural preconditions the calculators
// rely on: unique ids and known positions.
func ValidatePlayerTable(players []Player) error {
	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return fmt.Errorf("duplicate player id %d", p.ID)
		}
		seen[p.ID] = true
		switch p.Position {
		case PositionGKP, PositionDEF, PositionMID, PositionFWD:
		default:
			return fmt.Errorf("player %d has unknown position %q", p.ID, p.Position)
		}
	}
	return nil
}
