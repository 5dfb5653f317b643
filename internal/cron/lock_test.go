package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	holders map[string]string
	ttl     time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{holders: map[string]string{}}
}

func (m *memoryLockStore) LockKey(scope string) string { return "storefront:lock:" + scope }

func (m *memoryLockStore) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	if _, held := m.holders[key]; held {
		return false, nil
	}
	m.holders[key] = token
	m.ttl = ttl
	return true, nil
}

func (m *memoryLockStore) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	if m.holders[key] != token {
		return false, nil
	}
	delete(m.holders, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, 0)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, store.ttl)

	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// releasing a lock it never held leaves the owner in place
	require.NoError(t, second.Release(ctx))
	require.Len(t, store.holders, 1)

	require.NoError(t, first.Release(ctx))
	ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
