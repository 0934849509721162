package kv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

// exercise runs the behaviour every KeyValueStore must share.
func exercise(t *testing.T, store ports.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx, "session:missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Set(ctx, "session:a", []byte(`{"account_id":"1"}`)))
	got, err = store.Get(ctx, "session:a")
	require.NoError(t, err)
	assert.Equal(t, `{"account_id":"1"}`, string(got))

	require.NoError(t, store.Set(ctx, "session:a", []byte(`{"account_id":"2"}`)))
	got, err = store.Get(ctx, "session:a")
	require.NoError(t, err)
	assert.Equal(t, `{"account_id":"2"}`, string(got))

	require.NoError(t, store.Delete(ctx, "session:a"))
	got, err = store.Get(ctx, "session:a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, "session:a"), "deleting a missing key is fine")
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	exercise(t, store)

	// migrating twice is harmless
	_, err = NewSQLiteStore(db)
	require.NoError(t, err)
}

func TestSQLiteStoreReportsPersistenceErrors(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, store.Set(context.Background(), "k", []byte("v")), domain.ErrPersistence)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "maxen-test:"+uuid.NewString()+":", time.Minute)
	require.NoError(t, store.Ping(context.Background()))
	exercise(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1", "", 0)
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, "maxen:", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
