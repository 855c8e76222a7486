package persist

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests and dry runs. FailAfter, when
// positive, makes every Insert past that many successful batches fail with
// ErrStoreUnavailable, which is how the resume path gets exercised.
type MemStore struct {
	mu        sync.Mutex
	tables    map[string][]Record
	markers   map[string]int
	inserts   int
	FailAfter int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tables:  make(map[string][]Record),
		markers: make(map[string]int),
	}
}

// Insert appends records to an in-memory table.
func (m *MemStore) Insert(ctx context.Context, table string, records []Record) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAfter > 0 && m.inserts >= m.FailAfter {
		return nil, ErrStoreUnavailable
	}
	m.inserts++

	ids := make([]string, 0, len(records))
	for _, r := range records {
		m.tables[table] = append(m.tables[table], r)
		if id, ok := r["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// LastBatch reads the resume marker.
func (m *MemStore) LastBatch(ctx context.Context, runID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[runID], nil
}

// SetLastBatch advances the resume marker.
func (m *MemStore) SetLastBatch(ctx context.Context, runID string, batch int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[runID] = batch
	return nil
}

// Rows returns the records inserted into a table.
func (m *MemStore) Rows(table string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.tables[table]...)
}
