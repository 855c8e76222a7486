// Package persist commits a finished narrative tree to durable storage.
// The writer inserts parent-before-child in a fixed batch order and keeps a
// per-run marker of the last batch that succeeded, so a failed commit can
// be re-invoked without duplicating rows. No distributed transaction is
// assumed across tables.
package persist

import (
	"context"
	"errors"
)

// ErrStoreUnavailable indicates the durable store rejected or could not
// service a batch. Earlier batches remain committed.
var ErrStoreUnavailable = errors.New("durable store unavailable")

// Record is one row for a batch insert, keyed by column name.
type Record map[string]any

// Store is the durable-storage capability the writer consumes.
type Store interface {
	// Insert appends records to a table and returns their ids in order.
	Insert(ctx context.Context, table string, records []Record) ([]string, error)

	// LastBatch returns the index of the last batch committed for a run,
	// or 0 when the run has never committed anything.
	LastBatch(ctx context.Context, runID string) (int, error)

	// SetLastBatch records that a batch committed for a run.
	SetLastBatch(ctx context.Context, runID string, batch int) error
}
