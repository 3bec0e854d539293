package registry

import (
	"strings"
	"sync"
	"testing"
	"time"

	"dropshare/model"
	"dropshare/storage"
	"dropshare/utils"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRemover records how often each path is removed
type countingRemover struct {
	inner FileRemover
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRemover) Remove(path string) error {
	r.mu.Lock()
	r.calls[path]++
	r.mu.Unlock()
	return r.inner.Remove(path)
}

func (r *countingRemover) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

type testEnv struct {
	store   *Store
	gate    *Gate
	disk    *storage.Disk
	remover *countingRemover
	clock   *fakeClock
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	hasher, err := utils.NewPINHasher("test-secret")
	require.NoError(t, err)

	if cfg.MaxSlugLength == 0 {
		cfg.MaxSlugLength = 64
	}
	if cfg.MinSlugLength == 0 {
		cfg.MinSlugLength = 3
	}

	clock := newFakeClock()
	remover := &countingRemover{inner: disk, calls: make(map[string]int)}
	store := New(remover, hasher, cfg, WithClock(clock.Now))
	t.Cleanup(store.Close)

	return &testEnv{store: store, gate: NewGate(store), disk: disk, remover: remover, clock: clock}
}

func (e *testEnv) file(t *testing.T, name, content string) model.FileEntry {
	t.Helper()
	entry, err := e.disk.Save(name, strings.NewReader(content))
	require.NoError(t, err)
	return entry
}

func (e *testEnv) create(t *testing.T, p CreateParams) *Created {
	t.Helper()
	if len(p.Files) == 0 {
		p.Files = []model.FileEntry{e.file(t, "a.txt", "0123456789")}
	}
	created, err := e.store.Create(p)
	require.NoError(t, err)
	return created
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
