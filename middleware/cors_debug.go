package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// CORSDebugMiddleware logs the CORS-relevant parts of each request and the
// headers the CORS handler answered with. Only mounted in development.
func CORSDebugMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			log.Debug("[CORS Debug] request",
				zap.String("origin", origin),
				zap.String("method", r.Method),
				zap.String("requestMethod", r.Header.Get("Access-Control-Request-Method")),
				zap.String("requestHeaders", r.Header.Get("Access-Control-Request-Headers")))

			next.ServeHTTP(w, r)

			log.Debug("[CORS Debug] response",
				zap.String("origin", origin),
				zap.String("allowOrigin", w.Header().Get("Access-Control-Allow-Origin")),
				zap.String("allowMethods", w.Header().Get("Access-Control-Allow-Methods")))
		})
	}
}
