// Package types contains the read shapes returned to viewers.
package types

import "time"

// Row is one ranked line of the public leaderboard.
type Row struct {
	Rank        int     `json:"rank_position"`
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	Initials    string  `json:"initials"`
	Tier        string  `json:"tier,omitempty"`
	Points      int64   `json:"points"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	Kills       int64   `json:"kills"`
	Deaths      int64   `json:"deaths"`
	GamesPlayed int64   `json:"games_played"`
	KD          float64 `json:"kd"`
	WinRate     float64 `json:"win_rate"`
	Placeholder bool    `json:"placeholder,omitempty"`
	// Stale marks a visible row that has not been ranked yet.
	Stale bool `json:"stale,omitempty"`
}

// Board is a page of the ranked leaderboard.
type Board struct {
	Rows        []Row     `json:"rows"`
	Total       int       `json:"total"`
	Offset      int       `json:"offset"`
	Stale       bool      `json:"stale,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PlayerCard is a single player's profile-screen view.
type PlayerCard struct {
	Row
	Visible     bool      `json:"visible"`
	LastUpdated time.Time `json:"last_updated"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summary aggregates the whole store for the admin panel.
type Summary struct {
	TotalPlayers   int        `json:"total_players"`
	VisiblePlayers int        `json:"visible_players"`
	HiddenPlayers  int        `json:"hidden_players"`
	AveragePoints  float64    `json:"average_points"`
	TotalGames     int64      `json:"total_games"`
	Leader         *Row       `json:"leader,omitempty"`
	LastRecompute  *time.Time `json:"last_recompute,omitempty"`
}

// Inbox is a player's notification listing.
type Inbox struct {
	Unread        int            `json:"unread"`
	Notifications []Notification `json:"notifications"`
}

// Notification mirrors model.Notification for the wire.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
