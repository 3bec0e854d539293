package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dropshare/model"
	"dropshare/registry"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ShareListResponse is the admin view of the registry
type ShareListResponse struct {
	Shares         []model.ShareSummary `json:"shares"`
	Total          int                  `json:"total"`
	Active         int                  `json:"active"`
	TotalBytes     int64                `json:"totalBytes"`
	TotalSizeHuman string               `json:"totalSizeHuman"`
	LastUpdated    time.Time            `json:"lastUpdated"`
}

// ListShares handles GET /api/admin/shares
// @Summary List every stored share
// @Description Snapshot of the registry. Shares that are expired or exhausted but not yet swept are included with active=false.
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} ShareListResponse "Share list"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/admin/shares [get]
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	shares := h.store.List()

	resp := ShareListResponse{
		Shares:      shares,
		Total:       len(shares),
		LastUpdated: time.Now(),
	}
	for _, s := range shares {
		if s.Active {
			resp.Active++
		}
		resp.TotalBytes += s.TotalBytes
	}
	resp.TotalSizeHuman = humanize.Bytes(uint64(resp.TotalBytes))

	SendJSONSuccess(w, http.StatusOK, resp)
}

// AdminDeleteShare handles DELETE /api/admin/shares/{slug}
// @Summary Delete any share
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Param slug path string true "Share slug"
// @Success 200 {object} map[string]string "Share deleted"
// @Failure 404 {object} ErrorResponse "Share not found"
// @Router /api/admin/shares/{slug} [delete]
func (h *ShareHandler) AdminDeleteShare(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if !h.store.Delete(slug) {
		writeRegistryError(w, registry.ErrNotFound)
		return
	}

	log.Info().Str("slug", slug).Msg("Share deleted by admin")
	SendJSONSuccess(w, http.StatusOK, map[string]string{
		"message": "Share deleted",
		"slug":    slug,
	})
}

// RunSweep handles POST /api/admin/sweep
// @Summary Run one expiry sweep now
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]int "Sweep result"
// @Router /api/admin/sweep [post]
func (h *ShareHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	evicted := h.sweeper.RunOnce()
	SendJSONSuccess(w, http.StatusOK, map[string]int{
		"evicted":   evicted,
		"remaining": h.store.Len(),
	})
}

// NewsletterAnalytics handles GET /api/admin/newsletter/analytics
// @Summary Newsletter subscriber analytics
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} model.NewsletterAnalytics "Analytics"
// @Failure 503 {object} ErrorResponse "Newsletter disabled"
// @Router /api/admin/newsletter/analytics [get]
func (h *ShareHandler) NewsletterAnalytics(w http.ResponseWriter, r *http.Request) {
	if !h.newsletterEnabled(w) {
		return
	}
	ctx, cancel := h.redisContext(r)
	defer cancel()

	analytics, err := h.newsletter.Analytics(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute newsletter analytics")
		SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("failed to load analytics"), "")
		return
	}
	SendJSONSuccess(w, http.StatusOK, analytics)
}

// NewsletterExport handles GET /api/admin/newsletter/export
// @Summary Export subscribers as CSV
// @Tags Admin
// @Security ApiKeyAuth
// @Produce text/csv
// @Success 200 {file} file "CSV export"
// @Failure 503 {object} ErrorResponse "Newsletter disabled"
// @Router /api/admin/newsletter/export [get]
func (h *ShareHandler) NewsletterExport(w http.ResponseWriter, r *http.Request) {
	if !h.newsletterEnabled(w) {
		return
	}
	ctx, cancel := h.redisContext(r)
	defer cancel()

	// Build in memory first so a Redis failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.newsletter.Export(ctx, &buf); err != nil {
		log.Error().Err(err).Msg("Failed to export newsletter subscribers")
		SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("failed to export subscribers"), "")
		return
	}

	filename := fmt.Sprintf("newsletter-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("Failed to write newsletter export")
	}
}

func (h *ShareHandler) redisContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := time.Duration(h.config.Redis.OperationTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}
