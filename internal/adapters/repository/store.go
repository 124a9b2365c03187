// Package repository defines the score record store and its in-memory implementation.
package repository

import (
	"context"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
)

// Store is the single source of truth for score records.
//
// Writes to different players never block each other; writes to the same
// player serialize. Rerank is the only operation that needs a consistent
// snapshot of the whole table, and it commits all positions or none.
type Store interface {
	// Get returns the record for playerID or ErrNotFound.
	Get(ctx context.Context, playerID string) (model.ScoreRecord, error)

	// AllVisible returns every record with Visible set, in no particular order.
	AllVisible(ctx context.Context) ([]model.ScoreRecord, error)

	// All returns every record.
	All(ctx context.Context) ([]model.ScoreRecord, error)

	// Upsert applies patch to an existing record and stamps LastUpdated.
	// Returns ErrNotFound for unknown players and ErrInvalidStats when a
	// counter would become negative.
	Upsert(ctx context.Context, playerID string, patch model.Patch) (model.ScoreRecord, error)

	// Insert creates the registration-time record. When the player already has
	// one it is returned unchanged with created=false.
	Insert(ctx context.Context, playerID string) (rec model.ScoreRecord, created bool, err error)

	// Rerank reads every record in one snapshot, computes positions with rank
	// and writes them back atomically. Hidden records lose their position.
	// Returns the ids whose position changed.
	Rerank(ctx context.Context, rank ranking.Func) ([]string, error)

	// Count returns the number of records.
	Count(ctx context.Context) int

	Close() error
}

// RankChange is one position write produced by a rerank.
type RankChange struct {
	PlayerID string
	Position *int
}

// Diff compares stored positions with freshly computed assignments and returns
// the writes needed to make them equal.
func Diff(records []model.ScoreRecord, assignments []ranking.Assignment) []RankChange {
	want := ranking.Positions(assignments)
	var changes []RankChange
	for _, r := range records {
		pos, ranked := want[r.PlayerID]
		switch {
		case ranked && (r.RankPosition == nil || *r.RankPosition != pos):
			p := pos
			changes = append(changes, RankChange{PlayerID: r.PlayerID, Position: &p})
		case !ranked && r.RankPosition != nil:
			changes = append(changes, RankChange{PlayerID: r.PlayerID})
		}
	}
	return changes
}

// ChangedIDs lists the players touched by changes.
func ChangedIDs(changes []RankChange) []string {
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.PlayerID
	}
	return ids
}

// ValidateID returns ErrInvalidPlayerID unless id is usable as a key.
func ValidateID(id string) error {
	if !model.ValidPlayerID(id) {
		return ErrInvalidPlayerID
	}
	return nil
}
