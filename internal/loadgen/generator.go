package loadgen

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Stat ranges for generated players.
const (
	maxGames         = 200
	maxPointsPerWin  = 40
	maxKillsPerGame  = 25
	maxDeathsPerGame = 20
)

// Generator produces reproducible fake players.
type Generator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewGenerator creates a generator. A zero seed uses the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{faker: gofakeit.New(uint64(seed)), seed: seed}
}

// Seed returns the seed the generator was built with.
func (g *Generator) Seed() int64 { return g.seed }

// Players generates n players. About visibleRatio of them are visible.
func (g *Generator) Players(n int, visibleRatio float64) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = g.player(visibleRatio)
	}
	return players
}

func (g *Generator) player(visibleRatio float64) Player {
	games := int64(g.faker.Number(0, maxGames))
	wins := int64(0)
	if games > 0 {
		wins = int64(g.faker.Number(0, int(games)))
	}
	kills := int64(g.faker.Number(0, int(games)*maxKillsPerGame))
	deaths := int64(g.faker.Number(0, int(games)*maxDeathsPerGame))

	return Player{
		PlayerID:    uuid.NewString(),
		Username:    g.faker.Username(),
		AvatarURL:   g.faker.URL(),
		Points:      wins * int64(g.faker.Number(1, maxPointsPerWin)),
		Wins:        wins,
		Losses:      games - wins,
		Kills:       kills,
		Deaths:      deaths,
		GamesPlayed: games,
		Visible:     g.faker.Float64Range(0, 1) < visibleRatio,
	}
}
