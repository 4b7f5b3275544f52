package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/komponente/internal/model"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, "test"), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func snapshot(id string, userID int64) model.Session {
	return model.Session{
		ID:          id,
		UserID:      userID,
		DisplayName: "Ana Mora",
		Username:    "amora",
		Role:        model.RoleUser,
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, snapshot("s1", 7), time.Hour))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, snapshot("s1", 7), *got)

			require.NoError(t, store.Delete(ctx, "s1"))
			got, err = store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Nil(t, got)

			// Logout is unconditional.
			assert.NoError(t, store.Delete(ctx, "s1"))
			assert.NoError(t, store.Delete(ctx, "never-existed"))
		})
	}
}

func TestStoreRevokeAllForUser(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, snapshot("a1", 1), time.Hour))
			require.NoError(t, store.Create(ctx, snapshot("a2", 1), time.Hour))
			require.NoError(t, store.Create(ctx, snapshot("b1", 2), time.Hour))

			require.NoError(t, store.RevokeAllForUser(ctx, 1))

			for _, id := range []string{"a1", "a2"} {
				got, err := store.Get(ctx, id)
				require.NoError(t, err)
				assert.Nil(t, got, "session %s should be revoked", id)
			}
			got, err := store.Get(ctx, "b1")
			require.NoError(t, err)
			assert.NotNil(t, got, "other users keep their sessions")
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, snapshot("s1", 1), time.Minute))

	now = now.Add(59 * time.Second)
	got, _ := store.Get(ctx, "s1")
	assert.NotNil(t, got)

	now = now.Add(time.Second)
	got, _ = store.Get(ctx, "s1")
	assert.Nil(t, got)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Create(ctx, snapshot("s1", 1), time.Minute))
	assert.True(t, mr.Exists("test:sess:s1"))

	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
