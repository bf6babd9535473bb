package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"streamadesk/internal/domain"
)

// MemoryStore keeps watch positions in process memory. Used when no MongoDB
// is configured; positions are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]domain.WatchPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]domain.WatchPosition)}
}

func key(mediaID, episodeID int64) string {
	return fmt.Sprintf("%d:%d", mediaID, episodeID)
}

func (s *MemoryStore) Upsert(_ context.Context, pos domain.WatchPosition) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[key(pos.MediaID, pos.EpisodeID)] = pos
	return nil
}

func (s *MemoryStore) Get(_ context.Context, mediaID, episodeID int64) (domain.WatchPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[key(mediaID, episodeID)]
	if !ok {
		return domain.WatchPosition{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]domain.WatchPosition, error) {
	s.mu.RLock()
	out := make([]domain.WatchPosition, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, mediaID, episodeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(mediaID, episodeID)
	if _, ok := s.positions[k]; !ok {
		return domain.ErrNotFound
	}
	delete(s.positions, k)
	return nil
}
