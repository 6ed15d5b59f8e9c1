package types

import (
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is an ordered, immutable view of the stat tables at one point in
// time. The ingestion collaborator produces it; nothing in this module
// mutates one after construction. A refresh is an atomic swap of the whole
// snapshot between calls.
type Snapshot struct {
	Version  string    `json:"version"`
	Players  []Player  `json:"players"`
	Clubs    []Club    `json:"clubs"`
	Fixtures []Fixture `json:"fixtures"`
}

// ClubByID returns the club record for id.
func (s *Snapshot) ClubByID(id int) (Club, bool) {
	for _, c := range s.Clubs {
		if c.ID == id {
			return c, true
		}
	}
	return Club{}, false
}

// PlayerByID returns the player record for id.
func (s *Snapshot) PlayerByID(id int) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayersByPosition groups the player table by position, preserving the
// snapshot's order within each group.
func (s *Snapshot) PlayersByPosition() map[Position][]Player {
	byPos := make(map[Position][]Player, len(Positions))
	for _, p := range s.Players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}
	return byPos
}

// LoadSnapshot reads a snapshot JSON file produced by the ingestion
// collaborator and validates its player table.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := ValidatePlayerTable(snap.Players); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}
