package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const driver = "postgres"

// rerankLockKey is the advisory lock serialising rank rewrites across instances.
const rerankLockKey = "standings.rerank"

// ScoreRecord is the bun model for score_records.
type ScoreRecord struct {
	bun.BaseModel `bun:"table:score_records,alias:sr"`
	PlayerID      string    `bun:"player_id,pk"`
	Points        int64     `bun:"points,notnull"`
	Wins          int64     `bun:"wins,notnull"`
	Losses        int64     `bun:"losses,notnull"`
	Kills         int64     `bun:"kills,notnull"`
	Deaths        int64     `bun:"deaths,notnull"`
	GamesPlayed   int64     `bun:"games_played,notnull"`
	Visible       bool      `bun:"visible,notnull"`
	RankPosition  *int      `bun:"rank_position"`
	LastUpdated   time.Time `bun:"last_updated,notnull"`
}

func fromModel(r model.ScoreRecord) *ScoreRecord {
	return &ScoreRecord{
		PlayerID: r.PlayerID, Points: r.Points, Wins: r.Wins, Losses: r.Losses,
		Kills: r.Kills, Deaths: r.Deaths, GamesPlayed: r.GamesPlayed,
		Visible: r.Visible, RankPosition: r.RankPosition, LastUpdated: r.LastUpdated,
	}
}

func (r *ScoreRecord) toModel() model.ScoreRecord {
	return model.ScoreRecord{
		PlayerID: r.PlayerID, Points: r.Points, Wins: r.Wins, Losses: r.Losses,
		Kills: r.Kills, Deaths: r.Deaths, GamesPlayed: r.GamesPlayed,
		Visible: r.Visible, RankPosition: r.RankPosition, LastUpdated: r.LastUpdated.UTC(),
	}
}

func toModels(rows []ScoreRecord) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

// Store is a repository.Store backed by Postgres.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New wraps an opened and migrated database.
func New(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// stamp truncates to the column precision so returned and stored values agree.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Get implements repository.Store.
func (s *Store) Get(ctx context.Context, playerID string) (model.ScoreRecord, error) {
	defer observe("get", time.Now())
	row := new(ScoreRecord)
	err := s.db.NewSelect().Model(row).Where("player_id = ?", playerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, repository.ErrNotFound
	}
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("pgstore.Get: %w", err)
	}
	return row.toModel(), nil
}

// AllVisible implements repository.Store.
func (s *Store) AllVisible(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe("all_visible", time.Now())
	var rows []ScoreRecord
	if err := s.db.NewSelect().Model(&rows).Where("visible").Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.AllVisible: %w", err)
	}
	return toModels(rows), nil
}

// All implements repository.Store.
func (s *Store) All(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe("all", time.Now())
	var rows []ScoreRecord
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.All: %w", err)
	}
	return toModels(rows), nil
}

// Upsert implements repository.Store. The row lock serialises writers of the
// same player and leaves rank_position to Rerank.
func (s *Store) Upsert(ctx context.Context, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	defer observe("upsert", time.Now())
	var out model.ScoreRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(ScoreRecord)
		err := tx.NewSelect().Model(row).Where("player_id = ?", playerID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		next := patch.Apply(row.toModel(), s.stamp())
		if !next.Valid() {
			return repository.ErrInvalidStats
		}
		_, err = tx.NewUpdate().Model(fromModel(next)).
			Column("points", "wins", "losses", "kills", "deaths", "games_played", "visible", "last_updated").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidStats) {
			return model.ScoreRecord{}, err
		}
		return model.ScoreRecord{}, fmt.Errorf("pgstore.Upsert: %w", err)
	}
	return out, nil
}

// Insert implements repository.Store.
func (s *Store) Insert(ctx context.Context, playerID string) (model.ScoreRecord, bool, error) {
	defer observe("insert", time.Now())
	if err := repository.ValidateID(playerID); err != nil {
		return model.ScoreRecord{}, false, err
	}
	rec := model.NewScoreRecord(playerID, s.stamp())
	res, err := s.db.NewInsert().Model(fromModel(rec)).On("CONFLICT (player_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return model.ScoreRecord{}, false, fmt.Errorf("pgstore.Insert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return rec, true, nil
	}
	existing, err := s.Get(ctx, playerID)
	return existing, false, err
}

// Rerank implements repository.Store. The advisory lock keeps concurrent
// reranks from interleaving their writes.
func (s *Store) Rerank(ctx context.Context, rank ranking.Func) ([]string, error) {
	defer observe("rerank", time.Now())
	var changed []string
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", rerankLockKey).Exec(ctx); err != nil {
			return fmt.Errorf("acquire rerank lock: %w", err)
		}
		var rows []ScoreRecord
		if err := tx.NewSelect().Model(&rows).Scan(ctx); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		records := toModels(rows)
		changes := repository.Diff(records, rank(records))
		for _, c := range changes {
			var pos any
			if c.Position != nil {
				pos = *c.Position
			}
			_, err := tx.NewUpdate().Model((*ScoreRecord)(nil)).
				Set("rank_position = ?", pos).
				Where("player_id = ?", c.PlayerID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("write rank %s: %w", c.PlayerID, err)
			}
		}
		changed = repository.ChangedIDs(changes)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore.Rerank: %w", err)
	}
	return changed, nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context) int {
	n, err := s.db.NewSelect().Model((*ScoreRecord)(nil)).Count(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Close is a no-op; the database is shared and closed by its opener.
func (s *Store) Close() error {
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(driver, op, metrics.Since(start))
}
