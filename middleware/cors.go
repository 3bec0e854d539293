package middleware

import "net/http"

// CORS allows browser clients on any origin. Shares are public by slug, and
// credentials travel in headers rather than cookies.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Authorization, Accept, Origin, Range, X-Requested-With, X-Admin-Key, X-Management-Token, X-Share-PIN")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, Content-Length, Content-Range, X-Request-Id")
		h.Set("Access-Control-Max-Age", "600")

		// Preflight ends here, before routing and auth
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
