package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_CreatesShare(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	resp := ts.mustUpload(t, map[string]string{"ttl": "60", "maxDownloads": "3", "pin": "1234"},
		testFile{name: "report.pdf", content: "%PDF-1.4 fake"})

	assert.Len(t, resp.Slug, 8)
	assert.Equal(t, testBaseURL+"/s/"+resp.Slug, resp.URL)
	assert.Equal(t, testBaseURL+"/api/qr/"+resp.Slug, resp.QRCodeURL)
	assert.NotEmpty(t, resp.ManagementToken)
	assert.True(t, resp.PINProtected)
	assert.Equal(t, 3, resp.MaxDownloads)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, ts.clock.Now().Add(time.Hour).Equal(*resp.ExpiresAt))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "report.pdf", resp.Files[0].Name)
	assert.Equal(t, int64(len("%PDF-1.4 fake")), resp.Files[0].Size)
	assert.Equal(t, "application/pdf", resp.Files[0].MimeType)
	assert.False(t, resp.IsCustomSlug)

	assert.True(t, ts.store.Exists(resp.Slug))
	assert.Equal(t, 1, uploadDirEntries(t, ts.disk))
}

func TestUpload_ValidationWritesNothing(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	file := testFile{name: "a.txt", content: "hello"}

	tests := []struct {
		name   string
		fields map[string]string
		files  []testFile
		status int
		code   string
	}{
		{"zero ttl", map[string]string{"ttl": "0"}, []testFile{file}, http.StatusBadRequest, "INVALID_TTL"},
		{"ttl above a week", map[string]string{"ttl": "10081"}, []testFile{file}, http.StatusBadRequest, "INVALID_TTL"},
		{"non numeric ttl", map[string]string{"ttl": "soon"}, []testFile{file}, http.StatusBadRequest, "INVALID_TTL"},
		{"zero max downloads", map[string]string{"maxDownloads": "0"}, []testFile{file}, http.StatusBadRequest, "INVALID_MAX_DOWNLOADS"},
		{"max downloads too high", map[string]string{"maxDownloads": "1001"}, []testFile{file}, http.StatusBadRequest, "INVALID_MAX_DOWNLOADS"},
		{"short pin", map[string]string{"pin": "123"}, []testFile{file}, http.StatusBadRequest, "INVALID_PIN_FORMAT"},
		{"letters in pin", map[string]string{"pin": "12a4"}, []testFile{file}, http.StatusBadRequest, "INVALID_PIN_FORMAT"},
		{"no files", map[string]string{}, nil, http.StatusBadRequest, "NO_FILES_PROVIDED"},
		{"too many files", nil, []testFile{file, file, file, file}, http.StatusBadRequest, "TOO_MANY_FILES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.upload(t, tt.fields, tt.files...)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}

	assert.Equal(t, 0, ts.store.Len())
	assert.Equal(t, 0, uploadDirEntries(t, ts.disk))
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, testOptions{maxUploadMB: 1})

	rr := ts.upload(t, nil, testFile{name: "big.bin", content: strings.Repeat("x", 2<<20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, rr).Code)
	assert.Equal(t, 0, uploadDirEntries(t, ts.disk))
}

func TestUpload_NotMultipart(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	req := newJSONRequest(t, http.MethodPost, "/api/upload", map[string]string{"files": "nope"})
	rr := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, rr).Code)
}

func TestUpload_CustomSlug(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	first := ts.mustUpload(t, map[string]string{"customSlug": "my-link"})
	assert.Equal(t, "my-link", first.Slug)
	assert.True(t, first.IsCustomSlug)
	assert.Empty(t, first.Suggestions)

	// Taken slug falls back to a generated one and never replaces the first share
	second := ts.mustUpload(t, map[string]string{"customSlug": "my-link"})
	assert.NotEqual(t, "my-link", second.Slug)
	assert.False(t, second.IsCustomSlug)
	assert.NotEmpty(t, second.CustomSlugRejected)
	assert.NotEmpty(t, second.Suggestions)
	assert.NotContains(t, second.Suggestions, "my-link")

	rr := ts.get("/api/info/my-link")
	require.Equal(t, http.StatusOK, rr.Code)

	// Reserved words are rejected without suggestions
	reserved := ts.mustUpload(t, map[string]string{"customSlug": "admin"})
	assert.NotEqual(t, "admin", reserved.Slug)
	assert.NotEmpty(t, reserved.CustomSlugRejected)
	assert.Empty(t, reserved.Suggestions)
}
