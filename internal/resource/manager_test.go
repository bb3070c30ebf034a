package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	bytes  int64
	closed bool
}

func (f *fakeResource) Close() error      { f.closed = true; return nil }
func (f *fakeResource) MemoryBytes() int64 { return f.bytes }

func TestManager_RegisterAndBorrow(t *testing.T) {
	m := NewManager(DefaultConfig(), 16)
	ctx := context.Background()
	r := &fakeResource{bytes: 100}

	require.NoError(t, m.Register(ctx, "a", r))

	h, ok := m.Borrow(ctx, "a")
	require.True(t, ok)
	assert.Same(t, r, h.Resource)

	m.Release("a")
	stats := m.Stats()
	assert.Equal(t, 1, stats.ResourceCount)
	assert.Equal(t, int64(100), stats.TotalBytes)
}

func TestManager_RegisterDuplicateKeyFails(t *testing.T) {
	m := NewManager(DefaultConfig(), 16)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "a", &fakeResource{bytes: 1}))
	err := m.Register(ctx, "a", &fakeResource{bytes: 1})
	require.Error(t, err)
}

func TestManager_EvictsIdleBeforeExceedingMemoryBudget(t *testing.T) {
	cfg := Config{MaxIdle: 0, MemoryLimitBytes: 150}
	m := NewManager(cfg, 16)
	ctx := context.Background()

	old := &fakeResource{bytes: 100}
	require.NoError(t, m.Register(ctx, "old", old))
	// Borrow and release so lastUsed is set, then let MaxIdle=0 make it
	// immediately eligible.
	h, _ := m.Borrow(ctx, "old")
	m.Release(h.Key)
	time.Sleep(time.Millisecond)

	newer := &fakeResource{bytes: 100}
	require.NoError(t, m.Register(ctx, "new", newer))

	assert.True(t, old.closed, "idle resource should have been evicted to make room")
	stats := m.Stats()
	assert.Equal(t, 1, stats.ResourceCount)
}

func TestManager_DoesNotEvictResourceWithActiveBorrow(t *testing.T) {
	cfg := Config{MaxIdle: 0, MemoryLimitBytes: 150}
	m := NewManager(cfg, 16)
	ctx := context.Background()

	busy := &fakeResource{bytes: 100}
	require.NoError(t, m.Register(ctx, "busy", busy))
	_, ok := m.Borrow(ctx, "busy")
	require.True(t, ok)

	// busy is never released, so its refCount stays > 0 and it must survive
	// eviction pressure from the new registration.
	_ = m.Register(ctx, "second", &fakeResource{bytes: 100})

	assert.False(t, busy.closed)
}

func TestManager_EvictIdleSweepsExplicitly(t *testing.T) {
	cfg := Config{MaxIdle: 0, MemoryLimitBytes: 1 << 30}
	m := NewManager(cfg, 16)
	ctx := context.Background()

	r := &fakeResource{bytes: 1}
	require.NoError(t, m.Register(ctx, "a", r))
	time.Sleep(time.Millisecond)

	evicted := m.EvictIdle(ctx)
	assert.Equal(t, 1, evicted)
	assert.True(t, r.closed)
	assert.Equal(t, 0, m.Stats().ResourceCount)
}

func TestManager_ShutdownClosesAllExactlyOnceAndIsIdempotent(t *testing.T) {
	m := NewManager(DefaultConfig(), 16)
	ctx := context.Background()

	a := &fakeResource{bytes: 1}
	b := &fakeResource{bytes: 1}
	require.NoError(t, m.Register(ctx, "a", a))
	require.NoError(t, m.Register(ctx, "b", b))

	require.NoError(t, m.Shutdown(ctx))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, m.Stats().ResourceCount)

	// Second shutdown must be a no-op, not double-close or error.
	require.NoError(t, m.Shutdown(ctx))

	err := m.Register(ctx, "c", &fakeResource{bytes: 1})
	require.Error(t, err)
}
