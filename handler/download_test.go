package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"dropshare/model"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, body []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestDownload_SingleFile(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, nil, testFile{name: "notes.txt", content: "hello world"})

	rr := ts.get("/api/download/" + up.Slug)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello world", rr.Body.String())
	assert.Equal(t, `attachment; filename=notes.txt`, rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	got, _ := ts.store.Get(up.Slug)
	assert.Equal(t, 1, got.Downloads)
}

func TestDownload_Range(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+up.Slug, nil)
	req.Header.Set("Range", "bytes=2-5")
	rr := ts.do(req)

	require.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "2345", rr.Body.String())
	assert.Equal(t, "bytes 2-5/10", rr.Header().Get("Content-Range"))
}

func TestDownload_PINAndScenario(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, map[string]string{"pin": "1234", "ttl": "1", "maxDownloads": "2"})
	path := "/api/download/" + up.Slug

	rr := ts.get(path + "?pin=0000")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_PIN", decodeError(t, rr).Code)

	assert.Equal(t, http.StatusOK, ts.get(path+"?pin=1234").Code)
	assert.Equal(t, http.StatusOK, ts.get(path+"?pin=1234").Code)

	rr = ts.get(path + "?pin=1234")
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, "DOWNLOAD_LIMIT_REACHED", decodeError(t, rr).Code)

	rr = ts.get(path + "?pin=1234")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 0, uploadDirEntries(t, ts.disk))
}

func TestDownload_Expired(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, map[string]string{"ttl": "1"})

	ts.clock.Advance(time.Minute + time.Second)
	rr := ts.get("/api/download/" + up.Slug)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "SHARE_EXPIRED", decodeError(t, rr).Code)
}

func TestDownload_ConcurrentCap(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, map[string]string{"maxDownloads": "3"})

	var mu sync.Mutex
	statuses := map[int]int{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := ts.get("/api/download/" + up.Slug)
			mu.Lock()
			statuses[rr.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, statuses[http.StatusOK])
	assert.Equal(t, 17, statuses[http.StatusGone]+statuses[http.StatusNotFound])
}

func TestDownload_MissingBackingFile(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, nil)

	sh, ok := ts.store.Get(up.Slug)
	require.True(t, ok)
	require.NoError(t, os.Remove(sh.Files[0].StoragePath))

	rr := ts.get("/api/download/" + up.Slug)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rr).Code)
}

func TestDownload_ZipDeduplicatesNames(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, nil,
		testFile{name: "a.txt", content: "first"},
		testFile{name: "a.txt", content: "second"},
		testFile{name: "b.txt", content: "third"},
	)

	rr := ts.get("/api/download/" + up.Slug)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=`+up.Slug+`.zip`, rr.Header().Get("Content-Disposition"))

	files := readZip(t, rr.Body.Bytes())
	assert.Equal(t, map[string]string{
		"a.txt":     "first",
		"a (1).txt": "second",
		"b.txt":     "third",
	}, files)
}

func TestDownload_ZipSkipsMissingFiles(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, nil,
		testFile{name: "keep.txt", content: "kept"},
		testFile{name: "gone.txt", content: "lost"},
	)
	sh, _ := ts.store.Get(up.Slug)
	require.NoError(t, os.Remove(sh.Files[1].StoragePath))

	rr := ts.get("/api/download/" + up.Slug)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]string{"keep.txt": "kept"}, readZip(t, rr.Body.Bytes()))

	require.NoError(t, os.Remove(sh.Files[0].StoragePath))
	rr = ts.get("/api/download/" + up.Slug)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NO_FILES_FOUND", decodeError(t, rr).Code)
}

func TestDownloadFile_ByIndex(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	up := ts.mustUpload(t, map[string]string{"maxDownloads": "1"},
		testFile{name: "one.txt", content: "1"},
		testFile{name: "two.txt", content: "2"},
	)

	// A bad index does not use up the single allowed download
	rr := ts.get("/api/download/" + up.Slug + "/7")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rr).Code)

	rr = ts.get("/api/download/" + up.Slug + "/1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Body.String())

	rr = ts.get("/api/download/" + up.Slug + "/0")
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestZipEntryNames(t *testing.T) {
	entries := func(names ...string) []model.FileEntry {
		out := make([]model.FileEntry, len(names))
		for i, n := range names {
			out[i] = model.FileEntry{OriginalName: n}
		}
		return out
	}

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"unique", []string{"a.txt", "b.txt"}, []string{"a.txt", "b.txt"}},
		{"duplicates", []string{"a.txt", "a.txt", "a.txt"}, []string{"a.txt", "a (1).txt", "a (2).txt"}},
		{"case insensitive", []string{"Photo.JPG", "photo.jpg"}, []string{"Photo.JPG", "photo (1).jpg"}},
		{"suffix already taken", []string{"a.txt", "a (1).txt", "a.txt"}, []string{"a.txt", "a (1).txt", "a (2).txt"}},
		{"no extension", []string{"README", "README"}, []string{"README", "README (1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, zipEntryNames(entries(tt.in...)))
		})
	}
}

func TestUploadResponseHidesStoragePaths(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	rr := ts.upload(t, nil, testFile{name: "a.txt", content: "x"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.NotContains(t, rr.Body.String(), ts.disk.Dir())
}
