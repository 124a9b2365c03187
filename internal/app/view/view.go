// Package view assembles leaderboard read models from score records and
// profiles. A missing or unreachable profile never fails a build; the row is
// shown with a placeholder identity instead.
package view

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/internal/domain/scoring"
	"github.com/s3m-esports/standings/internal/domain/types"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const defaultMaxLimit = 500

// Records is the read side of the score store.
type Records interface {
	Get(ctx context.Context, playerID string) (model.ScoreRecord, error)
	AllVisible(ctx context.Context) ([]model.ScoreRecord, error)
	All(ctx context.Context) ([]model.ScoreRecord, error)
}

// Directory resolves profiles in one batch.
type Directory interface {
	Lookup(ctx context.Context, playerIDs []string) (map[string]model.Profile, error)
}

// Page selects a window of the leaderboard. Zero Limit means the maximum.
type Page struct {
	Limit  int
	Offset int
}

// Builder produces boards, player cards and summaries.
type Builder struct {
	records       Records
	directory     Directory
	maxLimit      int
	now           func() time.Time
	lastRecompute func() *time.Time
	log           logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(records Records, directory Directory, opts ...Option) *Builder {
	b := &Builder{
		records:       records,
		directory:     directory,
		maxLimit:      defaultMaxLimit,
		now:           time.Now,
		lastRecompute: func() *time.Time { return nil },
		log:           logger.Named("view"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the requested page of visible players in rank order.
func (b *Builder) Build(ctx context.Context, page Page) (types.Board, error) {
	start := time.Now()
	visible, err := b.records.AllVisible(ctx)
	if err != nil {
		return types.Board{}, fmt.Errorf("load visible records: %w", err)
	}
	order(visible)

	limit, offset := b.window(page)
	total := len(visible)
	lo := min(offset, total)
	hi := min(lo+limit, total)
	window := visible[lo:hi]

	profiles := b.lookup(ctx, ids(window))
	board := types.Board{
		Rows:        make([]types.Row, len(window)),
		Total:       total,
		Offset:      lo,
		GeneratedAt: b.now().UTC(),
	}
	placeholders := 0
	for i, rec := range window {
		board.Rows[i] = makeRow(rec, profiles)
		if board.Rows[i].Placeholder {
			placeholders++
		}
	}
	for _, rec := range visible {
		if rec.RankPosition == nil {
			board.Stale = true
			break
		}
	}
	metrics.RecordViewBuild(metrics.Since(start), placeholders)
	return board, nil
}

// Player returns one player's card. Hidden players have no rank or tier.
func (b *Builder) Player(ctx context.Context, playerID string) (types.PlayerCard, error) {
	rec, err := b.records.Get(ctx, playerID)
	if err != nil {
		return types.PlayerCard{}, err
	}
	row := makeRow(rec, b.lookup(ctx, []string{playerID}))
	if !rec.Visible {
		row.Rank, row.Tier, row.Stale = 0, "", false
	}
	return types.PlayerCard{
		Row:         row,
		Visible:     rec.Visible,
		LastUpdated: rec.LastUpdated,
		GeneratedAt: b.now().UTC(),
	}, nil
}

// Summary aggregates every record for the admin panel.
func (b *Builder) Summary(ctx context.Context) (types.Summary, error) {
	all, err := b.records.All(ctx)
	if err != nil {
		return types.Summary{}, fmt.Errorf("load records: %w", err)
	}
	s := types.Summary{TotalPlayers: len(all), LastRecompute: b.lastRecompute()}
	var points int64
	var leader *model.ScoreRecord
	for i := range all {
		r := &all[i]
		points += r.Points
		s.TotalGames += r.GamesPlayed
		if r.Visible {
			s.VisiblePlayers++
		}
		if r.Visible && r.Rank() == 1 {
			leader = r
		}
	}
	s.HiddenPlayers = s.TotalPlayers - s.VisiblePlayers
	if s.TotalPlayers > 0 {
		s.AveragePoints = float64(points) / float64(s.TotalPlayers)
	}
	if leader != nil {
		row := makeRow(*leader, b.lookup(ctx, []string{leader.PlayerID}))
		s.Leader = &row
	}
	return s, nil
}

func (b *Builder) window(p Page) (limit, offset int) {
	limit = p.Limit
	if limit <= 0 || limit > b.maxLimit {
		limit = b.maxLimit
	}
	return limit, max(p.Offset, 0)
}

// lookup degrades to an empty result when the directory fails.
func (b *Builder) lookup(ctx context.Context, playerIDs []string) map[string]model.Profile {
	if len(playerIDs) == 0 {
		return nil
	}
	profiles, err := b.directory.Lookup(ctx, playerIDs)
	if err != nil {
		metrics.RecordErrorByComponent("view", "directory_unavailable")
		b.log.Warn(ctx, "profile lookup failed, using placeholders",
			logger.Int("players", len(playerIDs)), logger.Error(err))
		return nil
	}
	return profiles
}

// order sorts ranked records by position, then unranked ones by rank order.
func order(records []model.ScoreRecord) {
	slices.SortFunc(records, func(a, b model.ScoreRecord) int {
		switch {
		case a.RankPosition != nil && b.RankPosition != nil:
			return *a.RankPosition - *b.RankPosition
		case a.RankPosition != nil:
			return -1
		case b.RankPosition != nil:
			return 1
		default:
			return ranking.Compare(a, b)
		}
	})
}

func makeRow(rec model.ScoreRecord, profiles map[string]model.Profile) types.Row {
	row := types.Row{
		Rank:        rec.Rank(),
		PlayerID:    rec.PlayerID,
		Tier:        scoring.Tier(rec.Rank()),
		Points:      rec.Points,
		Wins:        rec.Wins,
		Losses:      rec.Losses,
		Kills:       rec.Kills,
		Deaths:      rec.Deaths,
		GamesPlayed: rec.GamesPlayed,
		KD:          scoring.KDRatio(rec.Kills, rec.Deaths),
		WinRate:     scoring.WinRate(rec.Wins, rec.GamesPlayed),
		Stale:       rec.Visible && rec.RankPosition == nil,
	}
	if p, ok := profiles[rec.PlayerID]; ok && p.Username != "" {
		row.DisplayName = p.Username
		row.AvatarURL = p.AvatarURL
		row.Initials = scoring.Initials(p.Username)
	} else {
		row.DisplayName = scoring.PlaceholderName
		row.Initials = scoring.Initials("")
		row.Placeholder = true
	}
	return row
}

func ids(records []model.ScoreRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.PlayerID
	}
	return out
}
