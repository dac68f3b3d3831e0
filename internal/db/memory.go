package db

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process SessionStore for tests and DB-less runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]ConsultationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]ConsultationRecord{}}
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(_ context.Context, rec *ConsultationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rec
	stored.Snapshot = append([]byte(nil), rec.Snapshot...)
	stored.Result = append([]byte(nil), rec.Result...)
	now := time.Now()
	if prev, ok := s.records[rec.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[rec.ID] = stored
	return nil
}

// Load returns a copy of the record or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, id string) (*ConsultationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	out.Snapshot = append([]byte(nil), rec.Snapshot...)
	out.Result = append([]byte(nil), rec.Result...)
	return &out, nil
}

// List returns records by recency, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]ConsultationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]ConsultationRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
