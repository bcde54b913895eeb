package duel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfduel/lockoutbot/internal/store"
)

func TestRegistry_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	reg := NewRegistry(st)

	ok, err := reg.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	v, found, err := st.Get(ctx, store.LockKey("user-1"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, store.LockValue, v)

	require.NoError(t, reg.Release(ctx, "user-1"))
	_, found, _ = st.Get(ctx, store.LockKey("user-1"))
	assert.False(t, found)

	// Releasing an already-released lock is a no-op
	require.NoError(t, reg.Release(ctx, "user-1"))
}

func TestRegistry_AcquireBlockedByLiveSession(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	reg := NewRegistry(st)

	reg.bind("user-1", &Session{})

	ok, err := reg.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_StaleLockSelfHealing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	reg := NewRegistry(st)

	// A durable flag left behind by a crashed session: no in-memory entry
	require.NoError(t, st.Set(ctx, store.LockKey("user-1"), store.LockValue))

	ok, err := reg.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "orphaned durable lock is cleared and re-acquired cleanly")

	v, found, _ := st.Get(ctx, store.LockKey("user-1"))
	assert.True(t, found)
	assert.Equal(t, store.LockValue, v)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(store.NewMemory())

	_, ok := reg.Lookup("user-1")
	assert.False(t, ok)

	s := &Session{}
	reg.bind("user-1", s)

	got, ok := reg.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, reg.Release(context.Background(), "user-1"))
	_, ok = reg.Lookup("user-1")
	assert.False(t, ok)
}
