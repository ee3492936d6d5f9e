package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safin-krmavi/Bulltrek/internal/models"
)

// MemoryStore keeps records in process. It backs the service when no
// database is configured, and the tests.
type MemoryStore struct {
	mu         sync.RWMutex
	strategies []models.StrategyRecord
	actions    map[string]models.ActionRecord
	nextID     uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{actions: map[string]models.ActionRecord{}}
}

var _ Repository = (*MemoryStore)(nil)

func (s *MemoryStore) InsertStrategy(ctx context.Context, item *models.StrategyRecord) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.strategies = append(s.strategies, *item)
	return nil
}

func (s *MemoryStore) ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.StrategyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StrategyRecord
	for i := len(s.strategies) - 1; i >= 0; i-- {
		it := s.strategies[i]
		if !matches(params.Type, it.Type) || !matches(params.UserID, it.UserID) {
			continue
		}
		out = append(out, it)
	}
	return page(out, params.Limit, params.Offset), nil
}

func (s *MemoryStore) InsertAction(ctx context.Context, item *models.ActionRecord) error {
	return s.SaveAction(ctx, item)
}

func (s *MemoryStore) SaveAction(ctx context.Context, item *models.ActionRecord) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	s.actions[item.ID] = *item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListActions(ctx context.Context, params ListActionsParams) ([]models.ActionRecord, error) {
	s.mu.RLock()
	out := make([]models.ActionRecord, 0, len(s.actions))
	for _, it := range s.actions {
		if !matches(params.StrategyType, it.StrategyType) || !matches(params.StrategyID, it.StrategyID) ||
			!matches(params.Kind, it.Kind) || !matches(params.State, it.State) {
			continue
		}
		out = append(out, it)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return page(out, params.Limit, params.Offset), nil
}

func (s *MemoryStore) DeleteActionsBefore(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, it := range s.actions {
		if it.FinishedAt != nil && it.StartedAt.Before(before) {
			delete(s.actions, id)
			n++
		}
	}
	return n, nil
}

func matches(filter *string, v string) bool {
	if filter == nil || strings.TrimSpace(*filter) == "" {
		return true
	}
	return strings.TrimSpace(*filter) == v
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
