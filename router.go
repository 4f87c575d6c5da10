package main

import (
	"net/http"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/handlers"
	"github.com/G0V1NDS/city-list/middleware"
	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// newRouter mounts the API and /metrics. CORS wraps the whole router because
// mux only runs Use middleware for matched routes, and a preflight OPTIONS
// request matches none.
func newRouter(cfg *config.Config, api *handlers.Handlers, metricsHandler http.Handler, log *zap.Logger) http.Handler {
	r := mux.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"Origin",
		},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(gziphandler.GzipHandler)

	api.Register(r.PathPrefix("/api").Subrouter())
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	handler := corsHandler.Handler(r)
	if cfg.IsDevelopment() {
		handler = middleware.CORSDebugMiddleware(log)(handler)
	}
	return handler
}
