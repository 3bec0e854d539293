package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"dropshare/cache"
	"dropshare/config"
	"dropshare/newsletter"
	"dropshare/registry"
	"dropshare/storage"
	"dropshare/utils"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Services bundles the collaborators a ShareHandler serves requests from.
// Cache, Newsletter and Redis may be nil.
type Services struct {
	Store      *registry.Store
	Gate       *registry.Gate
	Sweeper    *registry.Sweeper
	Disk       *storage.Disk
	Cache      *cache.Cache
	Newsletter *newsletter.Store
	Redis      *redis.Client
}

// ShareHandler serves the share, admin and newsletter HTTP API
type ShareHandler struct {
	store      *registry.Store
	gate       *registry.Gate
	sweeper    *registry.Sweeper
	disk       *storage.Disk
	cache      *cache.Cache
	newsletter *newsletter.Store
	redis      *redis.Client
	config     config.Config
	baseURL    string
}

// NewShareHandler creates a new share handler
func NewShareHandler(cfg config.Config, svc Services) *ShareHandler {
	return &ShareHandler{
		store:      svc.Store,
		gate:       svc.Gate,
		sweeper:    svc.Sweeper,
		disk:       svc.Disk,
		cache:      svc.Cache,
		newsletter: svc.Newsletter,
		redis:      svc.Redis,
		config:     cfg,
		baseURL:    cfg.BaseURL(),
	}
}

// ShareURL is the canonical link for a share. A PIN, when given, is embedded as ?pin=.
func ShareURL(baseURL, slug, pin string) string {
	u := baseURL + "/s/" + url.PathEscape(slug)
	if pin != "" {
		u += "?pin=" + url.QueryEscape(pin)
	}
	return u
}

func (h *ShareHandler) qrCodeURL(slug string) string {
	return h.baseURL + "/api/qr/" + url.PathEscape(slug)
}

// suppliedPIN reads the PIN from ?pin= or X-Share-PIN. ok is false when a PIN
// was supplied in the wrong format; the error response has then been written.
func suppliedPIN(w http.ResponseWriter, r *http.Request) (pin string, ok bool) {
	pin = r.URL.Query().Get("pin")
	if pin == "" {
		pin = r.Header.Get("X-Share-PIN")
	}
	if pin == "" {
		return "", true
	}
	if err := utils.ValidatePIN(pin); err != nil {
		SendJSONError(w, http.StatusBadRequest, registry.CodeInvalidPINFormat, err, "")
		return "", false
	}
	return pin, true
}

// HealthCheck handles GET /health
// @Summary Health check
// @Description Returns service health, the number of stored shares and Redis connectivity
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *ShareHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Shares: h.store.Len(),
		Redis:  "disabled",
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.redis.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Msg("Redis health check failed")
			resp.Status = "unhealthy"
			resp.Redis = "unavailable"
			SendJSONSuccess(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Redis = "connected"
	}

	SendJSONSuccess(w, http.StatusOK, resp)
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Shares int    `json:"shares"`
	Redis  string `json:"redis"`
}

// CacheMetrics handles GET /cache/metrics
// @Summary QR cache performance metrics
// @Description Returns QR cache metrics including hit rate, misses, and evictions
// @Tags System
// @Produce json
// @Success 200 {object} cache.MetricsSnapshot "Cache metrics"
// @Failure 503 {object} ErrorResponse "Cache is disabled"
// @Router /cache/metrics [get]
func (h *ShareHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.config.Cache.Enabled || h.cache == nil {
		SendJSONError(w, http.StatusServiceUnavailable, CodeCacheDisabled, errors.New("cache is disabled"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, h.cache.GetMetricsSnapshot())
}
