package handler

import (
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"dropshare/model"
	"dropshare/registry"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// InfoResponse describes a live share
type InfoResponse struct {
	Slug               string     `json:"slug"`
	Files              []FileInfo `json:"files"`
	FileCount          int        `json:"fileCount"`
	TotalSize          int64      `json:"totalSize"`
	TotalSizeHuman     string     `json:"totalSizeHuman"`
	CreatedAt          time.Time  `json:"createdAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads       int        `json:"maxDownloads,omitempty"`
	Downloads          int        `json:"downloads"`
	RemainingDownloads *int       `json:"remainingDownloads,omitempty"`
	PINProtected       bool       `json:"pinProtected"`
}

// StatsResponse reports download progress for a share
type StatsResponse struct {
	Slug               string     `json:"slug"`
	Downloads          int        `json:"downloads"`
	MaxDownloads       int        `json:"maxDownloads,omitempty"`
	RemainingDownloads *int       `json:"remainingDownloads,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn          string     `json:"expiresIn,omitempty"`
	TotalSize          int64      `json:"totalSize"`
	TotalSizeHuman     string     `json:"totalSizeHuman"`
}

func remaining(sh model.Share) *int {
	if sh.MaxDownloads == 0 {
		return nil
	}
	n := sh.MaxDownloads - sh.Downloads
	if n < 0 {
		n = 0
	}
	return &n
}

// inspect runs the gate without counting a download. ok is false when the
// error response has already been written.
func (h *ShareHandler) inspect(w http.ResponseWriter, r *http.Request) (model.Share, bool) {
	pin, ok := suppliedPIN(w, r)
	if !ok {
		return model.Share{}, false
	}

	sh, err := h.gate.Inspect(mux.Vars(r)["slug"], pin)
	if err != nil {
		writeRegistryError(w, err)
		return model.Share{}, false
	}
	return sh, true
}

// GetInfo handles GET /api/info/{slug}
// @Summary Share metadata
// @Description Returns file names, sizes and limits. PIN-protected shares require the PIN.
// @Tags Shares
// @Produce json
// @Param slug path string true "Share slug"
// @Param pin query string false "4-digit PIN"
// @Success 200 {object} InfoResponse "Share metadata"
// @Failure 401 {object} ErrorResponse "PIN required or invalid"
// @Failure 404 {object} ErrorResponse "Share not found or expired"
// @Failure 410 {object} ErrorResponse "Download limit reached"
// @Router /api/info/{slug} [get]
func (h *ShareHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	sh, ok := h.inspect(w, r)
	if !ok {
		return
	}

	SendJSONSuccess(w, http.StatusOK, InfoResponse{
		Slug:               sh.Slug,
		Files:              fileInfos(sh.Files),
		FileCount:          len(sh.Files),
		TotalSize:          sh.TotalSize(),
		TotalSizeHuman:     humanize.Bytes(uint64(sh.TotalSize())),
		CreatedAt:          sh.CreatedAt,
		ExpiresAt:          sh.ExpiresAt,
		MaxDownloads:       sh.MaxDownloads,
		Downloads:          sh.Downloads,
		RemainingDownloads: remaining(sh),
		PINProtected:       sh.PINProtected(),
	})
}

// GetStats handles GET /api/stats/{slug}
// @Summary Share download statistics
// @Tags Shares
// @Produce json
// @Param slug path string true "Share slug"
// @Param pin query string false "4-digit PIN"
// @Success 200 {object} StatsResponse "Share statistics"
// @Failure 401 {object} ErrorResponse "PIN required or invalid"
// @Failure 404 {object} ErrorResponse "Share not found or expired"
// @Router /api/stats/{slug} [get]
func (h *ShareHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	sh, ok := h.inspect(w, r)
	if !ok {
		return
	}

	resp := StatsResponse{
		Slug:               sh.Slug,
		Downloads:          sh.Downloads,
		MaxDownloads:       sh.MaxDownloads,
		RemainingDownloads: remaining(sh),
		CreatedAt:          sh.CreatedAt,
		ExpiresAt:          sh.ExpiresAt,
		TotalSize:          sh.TotalSize(),
		TotalSizeHuman:     humanize.Bytes(uint64(sh.TotalSize())),
	}
	if sh.ExpiresAt != nil {
		resp.ExpiresIn = humanize.Time(*sh.ExpiresAt)
	}
	SendJSONSuccess(w, http.StatusOK, resp)
}

// DeleteShare handles DELETE /api/share/{slug}
// @Summary Delete a share
// @Description Deletes the share and its files. Requires the management token returned at upload.
// @Tags Shares
// @Produce json
// @Param slug path string true "Share slug"
// @Param X-Management-Token header string true "Management token"
// @Success 200 {object} map[string]string "Share deleted"
// @Failure 401 {object} ErrorResponse "Missing management token"
// @Failure 403 {object} ErrorResponse "Invalid management token"
// @Failure 404 {object} ErrorResponse "Share not found"
// @Router /api/share/{slug} [delete]
func (h *ShareHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	token := r.Header.Get("X-Management-Token")
	if token == "" {
		SendJSONError(w, http.StatusUnauthorized, registry.CodeForbidden, errors.New("management token required"),
			"Provide the token returned at upload via the X-Management-Token header")
		return
	}

	if err := h.store.DeleteWithToken(slug, token); err != nil {
		if errors.Is(err, registry.ErrForbidden) {
			log.Warn().Str("slug", slug).Msg("Delete attempted with invalid management token")
		}
		writeRegistryError(w, err)
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]string{
		"message": "Share deleted",
		"slug":    slug,
	})
}

// ShareLanding handles GET /s/{slug}, the canonical link. It serves the web UI when
// one is configured and otherwise redirects to the info endpoint.
func (h *ShareHandler) ShareLanding(w http.ResponseWriter, r *http.Request) {
	if dir := h.config.WebServer.StaticDir; dir != "" {
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		return
	}

	target := "/api/info/" + url.PathEscape(mux.Vars(r)["slug"])
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}
