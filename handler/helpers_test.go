package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"dropshare/cache"
	"dropshare/config"
	"dropshare/middleware"
	"dropshare/newsletter"
	"dropshare/registry"
	"dropshare/storage"
	"dropshare/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL  = "http://localhost:8080"
	testAdminKey = "test-admin-key"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	router  http.Handler
	store   *registry.Store
	disk    *storage.Disk
	cache   *cache.Cache
	clock   *fakeClock
	redis   *miniredis.Miniredis
	handler *ShareHandler
}

type testOptions struct {
	noNewsletter bool
	maxUploadMB  int
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	if opts.maxUploadMB == 0 {
		opts.maxUploadMB = 5
	}
	cfg := config.Config{
		WebServer: config.WebServerConfig{Scheme: "http", IP: "localhost", Port: "8080"},
		Storage:   config.StorageConfig{UploadDir: t.TempDir(), MaxUploadMB: opts.maxUploadMB, MaxFiles: 3},
		Cache:     config.CacheConfig{Enabled: true, MaxSizeMB: 4, TTLSeconds: 60, CounterSize: 1000},
		Redis:     config.RedisConfig{OperationTimeout: 2},
	}

	disk, err := storage.NewDisk(cfg.Storage.UploadDir)
	require.NoError(t, err)
	hasher, err := utils.NewPINHasher("test-secret")
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := registry.New(disk, hasher, registry.Config{
		SlugLength:        8,
		MinSlugLength:     3,
		MaxSlugLength:     64,
		SuggestionsCount:  3,
		LimitCleanupDelay: time.Hour,
	}, registry.WithClock(clock.Now))
	t.Cleanup(store.Close)

	qrCache, err := cache.New(cfg.Cache)
	require.NoError(t, err)
	t.Cleanup(qrCache.Close)

	svc := Services{
		Store:   store,
		Gate:    registry.NewGate(store),
		Sweeper: registry.NewSweeper(store, time.Minute),
		Disk:    disk,
		Cache:   qrCache,
	}

	ts := &testServer{store: store, disk: disk, cache: qrCache, clock: clock}
	if !opts.noNewsletter {
		ts.redis = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: ts.redis.Addr()})
		t.Cleanup(func() { rdb.Close() })
		svc.Redis = rdb
		svc.Newsletter = newsletter.NewStore(rdb)
	}

	admin, err := middleware.NewAdminAuth(testAdminKey, "", true)
	require.NoError(t, err)

	ts.handler = NewShareHandler(cfg, svc)
	ts.router = ts.handler.Router(admin)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) admin(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	return ts.do(req)
}

type testFile struct {
	name    string
	content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...testFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func (ts *testServer) upload(t *testing.T, fields map[string]string, files ...testFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	return ts.do(req)
}

// mustUpload creates a share and returns the decoded response
func (ts *testServer) mustUpload(t *testing.T, fields map[string]string, files ...testFile) UploadResponse {
	t.Helper()
	if len(files) == 0 {
		files = []testFile{{name: "a.txt", content: "0123456789"}}
	}
	rr := ts.upload(t, fields, files...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func uploadDirEntries(t *testing.T, disk *storage.Disk) int {
	t.Helper()
	entries, err := os.ReadDir(disk.Dir())
	require.NoError(t, err)
	return len(entries)
}

func newJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}
