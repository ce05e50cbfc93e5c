package store

import (
	"context"
	"sync"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// Memory keeps records in process. It backs the server when ENABLE_DB is
// false and serves as the fake in tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]prediction.Record
	byUser  map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]prediction.Record),
		byUser:  make(map[string][]string),
	}
}

func (m *Memory) Save(_ context.Context, rec prediction.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-saving an id only refreshes the mutable columns, as the Postgres upsert does.
	if existing, ok := m.records[rec.PredictionID]; ok {
		existing.GradcamURI = rec.GradcamURI
		existing.Notes = rec.Notes
		m.records[rec.PredictionID] = existing
		return nil
	}
	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], rec.PredictionID)
	m.records[rec.PredictionID] = rec
	return nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int) ([]prediction.Record, error) {
	m.mu.RLock()
	ids := m.byUser[userID]
	out := make([]prediction.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.records[id])
	}
	m.mu.RUnlock()

	newestFirst(out)
	return truncate(out, limit), nil
}

func (m *Memory) UpdateGradcamURI(_ context.Context, predictionID, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[predictionID]
	if !ok {
		return ErrNotFound
	}
	m.records[predictionID] = rec.WithGradcamURI(uri)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}
