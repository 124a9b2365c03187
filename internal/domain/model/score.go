// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// ScoreRecord is the per-player statistics row that ranking is computed from.
type ScoreRecord struct {
	PlayerID    string    `json:"player_id" msgpack:"player_id"`
	Points      int64     `json:"points" msgpack:"points"`
	Wins        int64     `json:"wins" msgpack:"wins"`
	Losses      int64     `json:"losses" msgpack:"losses"`
	Kills       int64     `json:"kills" msgpack:"kills"`
	Deaths      int64     `json:"deaths" msgpack:"deaths"`
	GamesPlayed int64     `json:"games_played" msgpack:"games_played"`
	Visible     bool      `json:"visible" msgpack:"visible"`
	// RankPosition is derived by recompute; nil when hidden or not yet ranked.
	RankPosition *int      `json:"rank_position,omitempty" msgpack:"rank_position"`
	LastUpdated  time.Time `json:"last_updated" msgpack:"last_updated"`
}

// Rank returns the rank position or 0 when the record is unranked.
func (r ScoreRecord) Rank() int {
	if r.RankPosition == nil {
		return 0
	}
	return *r.RankPosition
}

// NewScoreRecord returns the registration-time record: zero counters, hidden.
func NewScoreRecord(playerID string, now time.Time) ScoreRecord {
	return ScoreRecord{PlayerID: playerID, LastUpdated: now.UTC()}
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Points      *int64 `json:"points,omitempty"`
	Wins        *int64 `json:"wins,omitempty"`
	Losses      *int64 `json:"losses,omitempty"`
	Kills       *int64 `json:"kills,omitempty"`
	Deaths      *int64 `json:"deaths,omitempty"`
	GamesPlayed *int64 `json:"games_played,omitempty"`
	Visible     *bool  `json:"visible,omitempty"`

	// PointsDelta is added after Points is applied.
	PointsDelta int64 `json:"points_delta,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Points == nil && p.Wins == nil && p.Losses == nil && p.Kills == nil &&
		p.Deaths == nil && p.GamesPlayed == nil && p.Visible == nil && p.PointsDelta == 0
}

// Apply returns rec with the patch applied and LastUpdated stamped to now.
// It does not validate; see Valid.
func (p Patch) Apply(rec ScoreRecord, now time.Time) ScoreRecord {
	set := func(dst *int64, src *int64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&rec.Points, p.Points)
	set(&rec.Wins, p.Wins)
	set(&rec.Losses, p.Losses)
	set(&rec.Kills, p.Kills)
	set(&rec.Deaths, p.Deaths)
	set(&rec.GamesPlayed, p.GamesPlayed)
	if p.Visible != nil {
		rec.Visible = *p.Visible
	}
	rec.Points += p.PointsDelta
	rec.LastUpdated = now.UTC()
	return rec
}

// Valid reports whether every counter is non-negative.
func (r ScoreRecord) Valid() bool {
	return r.Points >= 0 && r.Wins >= 0 && r.Losses >= 0 &&
		r.Kills >= 0 && r.Deaths >= 0 && r.GamesPlayed >= 0
}

// ValidPlayerID reports whether id can be used as a record key and topic suffix.
func ValidPlayerID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n.*>")
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
