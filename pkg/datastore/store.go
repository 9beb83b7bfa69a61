// Package datastore provides the key/value table collection with secondary
// indexes that agents (and the reference HTTP host) read and write through.
// The deliberation core itself never touches it — queries happen on behalf
// of agents, behind the Store interface.
package datastore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("datastore: record not found")

// Record is one entry in a table: an opaque JSON value under a key, plus
// the secondary-index values it was stored with.
type Record struct {
	Table     string            `json:"table"`
	Key       string            `json:"key"`
	Value     []byte            `json:"value"`
	Indexes   map[string]string `json:"indexes,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store is a collection of key/value tables with secondary indexes. All
// implementations must be safe for concurrent use — the seven agents query
// it in parallel within a phase.
type Store interface {
	// Put upserts value under (table, key) and replaces the record's
	// secondary-index values with indexes.
	Put(ctx context.Context, table, key string, value []byte, indexes map[string]string) error

	// Get returns the record stored under (table, key), or ErrNotFound.
	Get(ctx context.Context, table, key string) (*Record, error)

	// Query returns every record in table whose secondary index name has
	// the given value. Result order is by key ascending.
	Query(ctx context.Context, table, index, value string) ([]*Record, error)

	// Delete removes the record under (table, key). Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, table, key string) error

	// Close releases any underlying resources.
	Close() error
}
