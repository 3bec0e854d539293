package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	tests := []struct {
		path   string
		method string
	}{
		{"/api/upload", http.MethodPost},
		{"/api/download/abc", http.MethodGet},
		{"/api/share/abc", http.MethodDelete},
		{"/api/admin/shares", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, tt.path, nil)
			req.Header.Set("Origin", "https://app.example.com")
			req.Header.Set("Access-Control-Request-Method", tt.method)
			req.Header.Set("Access-Control-Request-Headers", "X-Management-Token")
			rr := ts.do(req)

			assert.Equal(t, http.StatusNoContent, rr.Code)
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), tt.method)
			assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-Management-Token")
		})
	}
}

func TestRouter_CORSOnErrors(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/info/missing", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := ts.do(req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
