// Package loadgen seeds a running standings service with fake players and
// checks the leaderboard it serves.
package loadgen

import "time"

// Config holds settings shared by the seed, verify and watch runs.
type Config struct {
	BaseURL      string        // Base URL of the service
	Token        string        // Bearer token; seeding needs an admin token
	Players      int           // Number of players to register
	VisibleRatio float64       // Share of seeded players made visible
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	PageSize     int           // Rows fetched per leaderboard page
	Seed         int64         // Faker seed; 0 picks one from the clock
	Verbose      bool          // Log every failed request
}

// Stats holds seed run statistics.
type Stats struct {
	PlayersGenerated  int
	PlayersRegistered int
	StatsApplied      int
	RecomputeFailures int
	Failed            int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Player is one generated player and the stats it will be given.
type Player struct {
	PlayerID    string `json:"player_id"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Points      int64  `json:"points"`
	Wins        int64  `json:"wins"`
	Losses      int64  `json:"losses"`
	Kills       int64  `json:"kills"`
	Deaths      int64  `json:"deaths"`
	GamesPlayed int64  `json:"games_played"`
	Visible     bool   `json:"visible"`
}
