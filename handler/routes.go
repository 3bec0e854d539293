package handler

import (
	"net/http"

	"dropshare/middleware"

	"github.com/gorilla/mux"
)

// Router builds the complete HTTP handler. CORS wraps the mux router because mux
// runs Use middleware only for matched routes and no route accepts OPTIONS.
func (h *ShareHandler) Router(admin *middleware.AdminAuth) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	h.RegisterRoutes(r, admin)
	return middleware.CORS(r)
}

// RegisterRoutes wires every endpoint onto r. Admin routes are mounted behind admin.Protect.
func (h *ShareHandler) RegisterRoutes(r *mux.Router, admin *middleware.AdminAuth) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/cache/metrics", h.CacheMetrics).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/info/{slug}", h.GetInfo).Methods("GET")
	api.HandleFunc("/stats/{slug}", h.GetStats).Methods("GET")
	api.HandleFunc("/download/{slug}", h.Download).Methods("GET")
	api.HandleFunc("/download/{slug}/{index:[0-9]+}", h.DownloadFile).Methods("GET")
	api.HandleFunc("/share/{slug}", h.DeleteShare).Methods("DELETE")
	api.HandleFunc("/qr/{slug}", h.GenerateQR).Methods("GET")
	api.HandleFunc("/newsletter/subscribe", h.Subscribe).Methods("POST")
	api.HandleFunc("/newsletter/unsubscribe", h.Unsubscribe).Methods("POST", "GET")

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(admin.Protect)
	adminRouter.HandleFunc("/shares", h.ListShares).Methods("GET")
	adminRouter.HandleFunc("/shares/{slug}", h.AdminDeleteShare).Methods("DELETE")
	adminRouter.HandleFunc("/sweep", h.RunSweep).Methods("POST")
	adminRouter.HandleFunc("/newsletter/analytics", h.NewsletterAnalytics).Methods("GET")
	adminRouter.HandleFunc("/newsletter/export", h.NewsletterExport).Methods("GET")

	r.HandleFunc("/s/{slug}", h.ShareLanding).Methods("GET")

	// Static UI must be last so it never shadows API routes
	if dir := h.config.WebServer.StaticDir; dir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(dir)))
	}
}
