package datastore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Put(ctx, "flights", "EY123:2026-01-20", []byte(`{"status":"delayed"}`),
		map[string]string{"flight_number": "EY123", "status": "delayed"})
	require.NoError(t, err)

	rec, err := s.Get(ctx, "flights", "EY123:2026-01-20")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":"delayed"}`), rec.Value)
	assert.Equal(t, "EY123", rec.Indexes["flight_number"])
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "flights", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "flights", "EY123", []byte(`1`), map[string]string{"status": "delayed"}))
	require.NoError(t, s.Put(ctx, "flights", "EY123", []byte(`2`), map[string]string{"status": "cancelled"}))

	rec, err := s.Get(ctx, "flights", "EY123")
	require.NoError(t, err)
	assert.Equal(t, []byte(`2`), rec.Value)
	assert.Equal(t, "cancelled", rec.Indexes["status"])
}

func TestMemoryStoreQueryByIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "flights", "EY123", []byte(`{}`), map[string]string{"status": "delayed"}))
	require.NoError(t, s.Put(ctx, "flights", "EY456", []byte(`{}`), map[string]string{"status": "delayed"}))
	require.NoError(t, s.Put(ctx, "flights", "EY789", []byte(`{}`), map[string]string{"status": "on_time"}))
	// Same index value in a different table must not leak across.
	require.NoError(t, s.Put(ctx, "crew", "C1", []byte(`{}`), map[string]string{"status": "delayed"}))

	recs, err := s.Query(ctx, "flights", "status", "delayed")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Key-ascending order.
	assert.Equal(t, "EY123", recs[0].Key)
	assert.Equal(t, "EY456", recs[1].Key)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "flights", "EY123", []byte(`{}`), nil))
	require.NoError(t, s.Delete(ctx, "flights", "EY123"))

	_, err := s.Get(ctx, "flights", "EY123")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing record is not an error.
	assert.NoError(t, s.Delete(ctx, "flights", "missing"))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "flights", "EY123", []byte(`abc`), map[string]string{"k": "v"}))

	rec, err := s.Get(ctx, "flights", "EY123")
	require.NoError(t, err)
	rec.Value[0] = 'X'
	rec.Indexes["k"] = "mutated"

	fresh, err := s.Get(ctx, "flights", "EY123")
	require.NoError(t, err)
	assert.Equal(t, []byte(`abc`), fresh.Value)
	assert.Equal(t, "v", fresh.Indexes["k"])
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			_ = s.Put(ctx, "t", key, []byte(key), map[string]string{"shard": "x"})
			_, _ = s.Query(ctx, "t", "shard", "x")
			_, _ = s.Get(ctx, "t", key)
		}(i)
	}
	wg.Wait()

	recs, err := s.Query(ctx, "t", "shard", "x")
	require.NoError(t, err)
	assert.Len(t, recs, 16)
}
