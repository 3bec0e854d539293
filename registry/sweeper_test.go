package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnceEvictsExpired(t *testing.T) {
	env := newTestEnv(t, Config{})
	sweeper := NewSweeper(env.store, time.Minute)

	short := env.create(t, CreateParams{TTLMinutes: intPtr(1)})
	long := env.create(t, CreateParams{TTLMinutes: intPtr(60)})
	forever := env.create(t, CreateParams{})

	assert.Equal(t, 0, sweeper.RunOnce())

	env.clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, sweeper.RunOnce())

	assert.False(t, env.store.Exists(short.Share.Slug))
	assert.False(t, env.disk.Exists(short.Share.Files[0].StoragePath))
	assert.True(t, env.store.Exists(long.Share.Slug))
	assert.True(t, env.store.Exists(forever.Share.Slug))

	env.clock.Advance(time.Hour)
	assert.Equal(t, 1, sweeper.RunOnce())
	assert.Equal(t, 1, env.store.Len())
}

func TestSweeper_LeavesPendingCleanupAlone(t *testing.T) {
	env := newTestEnv(t, Config{LimitCleanupDelay: time.Hour})
	sweeper := NewSweeper(env.store, time.Minute)

	created := env.create(t, CreateParams{MaxDownloads: intPtr(1)})
	_, err := env.gate.Authorize(created.Share.Slug, "")
	require.NoError(t, err)

	assert.Equal(t, 0, sweeper.RunOnce())
	assert.True(t, env.store.Exists(created.Share.Slug))
}

func TestSweeper_StartStop(t *testing.T) {
	env := newTestEnv(t, Config{})
	sweeper := NewSweeper(env.store, 5*time.Millisecond)

	created := env.create(t, CreateParams{TTLMinutes: intPtr(1)})
	env.clock.Advance(2 * time.Minute)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		return !env.store.Exists(created.Share.Slug)
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop() // idempotent
}

func TestSweeper_StopsWithContext(t *testing.T) {
	env := newTestEnv(t, Config{})
	sweeper := NewSweeper(env.store, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
