package repository

import (
	"context"
	"sync"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const driverMemory = "memory"

// entry is one player's record guarded by its own mutex.
type entry struct {
	mu  sync.Mutex
	rec model.ScoreRecord
}

// MemoryStore keeps score records in process memory.
//
// Lock order: s.mu before entry.mu. Per-player writes hold s.mu for reading,
// so they only contend on the same entry. Rerank holds s.mu exclusively.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*entry

	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs an empty store. The metrics updater runs until
// ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]*entry),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metricsUpdateInterval > 0 {
		s.startMetricsUpdater(ctx)
	}
	return s
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, playerID string) (model.ScoreRecord, error) {
	defer observe(driverMemory, "get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[playerID]
	if !ok {
		return model.ScoreRecord{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(e.rec), nil
}

// AllVisible implements Store.AllVisible.
func (s *MemoryStore) AllVisible(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe(driverMemory, "all_visible", time.Now())
	return s.collect(func(r model.ScoreRecord) bool { return r.Visible }), nil
}

// All implements Store.All.
func (s *MemoryStore) All(ctx context.Context) ([]model.ScoreRecord, error) {
	defer observe(driverMemory, "all", time.Now())
	return s.collect(func(model.ScoreRecord) bool { return true }), nil
}

func (s *MemoryStore) collect(keep func(model.ScoreRecord) bool) []model.ScoreRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ScoreRecord, 0, len(s.byID))
	for _, e := range s.byID {
		e.mu.Lock()
		if keep(e.rec) {
			out = append(out, clone(e.rec))
		}
		e.mu.Unlock()
	}
	return out
}

// Upsert implements Store.Upsert.
func (s *MemoryStore) Upsert(ctx context.Context, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	defer observe(driverMemory, "upsert", time.Now())
	if err := ctx.Err(); err != nil {
		return model.ScoreRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[playerID]
	if !ok {
		return model.ScoreRecord{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := patch.Apply(e.rec, s.now())
	if !next.Valid() {
		return model.ScoreRecord{}, ErrInvalidStats
	}
	e.rec = next
	return clone(next), nil
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(ctx context.Context, playerID string) (model.ScoreRecord, bool, error) {
	defer observe(driverMemory, "insert", time.Now())
	if err := ValidateID(playerID); err != nil {
		return model.ScoreRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[playerID]; ok {
		return clone(e.rec), false, nil
	}
	rec := model.NewScoreRecord(playerID, s.now())
	s.byID[playerID] = &entry{rec: rec}
	return clone(rec), true, nil
}

// Rerank implements Store.Rerank. No write can interleave with it.
func (s *MemoryStore) Rerank(ctx context.Context, rank ranking.Func) ([]string, error) {
	defer observe(driverMemory, "rerank", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.ScoreRecord, 0, len(s.byID))
	for _, e := range s.byID {
		records = append(records, e.rec)
	}
	changes := Diff(records, rank(records))
	for _, c := range changes {
		s.byID[c.PlayerID].rec.RankPosition = c.Position
	}
	return ChangedIDs(changes), nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	visible := len(s.collect(func(r model.ScoreRecord) bool { return r.Visible }))
	metrics.UpdatePlayerCounts(s.Count(context.Background()), visible)
}

func clone(r model.ScoreRecord) model.ScoreRecord {
	if r.RankPosition != nil {
		p := *r.RankPosition
		r.RankPosition = &p
	}
	return r
}

func observe(driver, op string, start time.Time) {
	metrics.RecordStoreLatency(driver, op, metrics.Since(start))
}
