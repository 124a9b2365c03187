package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const (
	driver = "sqlite"

	selectColumns = `player_id, points, wins, losses, kills, deaths, games_played, visible, rank_position, last_updated`
)

// Store is a repository.Store backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New wraps an opened and migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the time source used to stamp last_updated.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.ScoreRecord, error) {
	var (
		rec     model.ScoreRecord
		visible int
		rank    sql.NullInt64
		updated int64
	)
	err := row.Scan(&rec.PlayerID, &rec.Points, &rec.Wins, &rec.Losses, &rec.Kills,
		&rec.Deaths, &rec.GamesPlayed, &visible, &rank, &updated)
	if err != nil {
		return model.ScoreRecord{}, err
	}
	rec.Visible = visible != 0
	if rank.Valid {
		p := int(rank.Int64)
		rec.RankPosition = &p
	}
	rec.LastUpdated = time.Unix(0, updated).UTC()
	return rec, nil
}

func (s *Store) query(ctx context.Context, q queryer, where string, args ...any) ([]model.ScoreRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+selectColumns+` FROM score_records `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Get implements repository.Store.
func (s *Store) Get(ctx context.Context, playerID string) (model.ScoreRecord, error) {
	defer observe("get", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM score_records WHERE player_id = ?`, playerID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, repository.ErrNotFound
	}
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("get %s: %w", playerID, err)
	}
	return rec, nil
}

// AllVisible implements repository.Store.
func (s *Store) AllVisible(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe("all_visible", time.Now())
	recs, err := s.query(ctx, s.db, `WHERE visible = 1`)
	if err != nil {
		return nil, fmt.Errorf("list visible: %w", err)
	}
	return recs, nil
}

// All implements repository.Store.
func (s *Store) All(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe("all", time.Now())
	recs, err := s.query(ctx, s.db, ``)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	return recs, nil
}

// Upsert implements repository.Store. The transaction takes the write lock up
// front, so concurrent patches of the same row apply one after the other.
func (s *Store) Upsert(ctx context.Context, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	defer observe("upsert", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM score_records WHERE player_id = ?`, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, repository.ErrNotFound
	}
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("load %s: %w", playerID, err)
	}

	next := patch.Apply(rec, s.now())
	if !next.Valid() {
		return model.ScoreRecord{}, repository.ErrInvalidStats
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE score_records
		SET points = ?, wins = ?, losses = ?, kills = ?, deaths = ?, games_played = ?,
		    visible = ?, last_updated = ?
		WHERE player_id = ?`,
		next.Points, next.Wins, next.Losses, next.Kills, next.Deaths, next.GamesPlayed,
		boolInt(next.Visible), next.LastUpdated.UnixNano(), playerID)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("update %s: %w", playerID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("commit upsert: %w", err)
	}
	return next, nil
}

// Insert implements repository.Store.
func (s *Store) Insert(ctx context.Context, playerID string) (model.ScoreRecord, bool, error) {
	defer observe("insert", time.Now())
	if err := repository.ValidateID(playerID); err != nil {
		return model.ScoreRecord{}, false, err
	}
	rec := model.NewScoreRecord(playerID, s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO score_records (player_id, last_updated) VALUES (?, ?) ON CONFLICT(player_id) DO NOTHING`,
		playerID, rec.LastUpdated.UnixNano())
	if err != nil {
		return model.ScoreRecord{}, false, fmt.Errorf("insert %s: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return rec, true, nil
	}
	existing, err := s.Get(ctx, playerID)
	return existing, false, err
}

// Rerank implements repository.Store inside one write transaction.
func (s *Store) Rerank(ctx context.Context, rank ranking.Func) ([]string, error) {
	defer observe("rerank", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rerank: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	records, err := s.query(ctx, tx, ``)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	changes := repository.Diff(records, rank(records))
	if len(changes) == 0 {
		return nil, nil
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE score_records SET rank_position = ? WHERE player_id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare rank update: %w", err)
	}
	defer stmt.Close()
	for _, c := range changes {
		var pos any
		if c.Position != nil {
			pos = *c.Position
		}
		if _, err := stmt.ExecContext(ctx, pos, c.PlayerID); err != nil {
			return nil, fmt.Errorf("write rank %s: %w", c.PlayerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rerank: %w", err)
	}
	return repository.ChangedIDs(changes), nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM score_records`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close is a no-op; the database is shared and closed by its opener.
func (s *Store) Close() error {
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(driver, op, metrics.Since(start))
}
