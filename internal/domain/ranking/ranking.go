// Package ranking derives dense rank positions from score records.
//
// Order: points descending, then earlier last_updated first (the player who
// reached a score first keeps the higher place), then player id ascending.
// The order is total, so Compute is a pure function of its input.
package ranking

import (
	"cmp"
	"slices"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Assignment binds a player to a rank position.
type Assignment struct {
	PlayerID string
	Position int
}

// Func computes assignments from a snapshot of records.
type Func func(records []model.ScoreRecord) []Assignment

// Compare orders two records; negative means a ranks above b.
func Compare(a, b model.ScoreRecord) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := a.LastUpdated.Compare(b.LastUpdated); c != 0 {
		return c
	}
	return cmp.Compare(a.PlayerID, b.PlayerID)
}

// Less reports whether a ranks above b.
func Less(a, b model.ScoreRecord) bool {
	return Compare(a, b) < 0
}

// Order returns the visible records sorted by rank order. Input is not modified.
func Order(records []model.ScoreRecord) []model.ScoreRecord {
	visible := make([]model.ScoreRecord, 0, len(records))
	for _, r := range records {
		if r.Visible {
			visible = append(visible, r)
		}
	}
	slices.SortFunc(visible, Compare)
	return visible
}

// Compute assigns positions 1..N to the visible records. Hidden records get none.
func Compute(records []model.ScoreRecord) []Assignment {
	ordered := Order(records)
	out := make([]Assignment, len(ordered))
	for i, r := range ordered {
		out[i] = Assignment{PlayerID: r.PlayerID, Position: i + 1}
	}
	return out
}

// Positions indexes assignments by player id.
func Positions(assignments []Assignment) map[string]int {
	m := make(map[string]int, len(assignments))
	for _, a := range assignments {
		m[a.PlayerID] = a.Position
	}
	return m
}
