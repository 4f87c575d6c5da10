// Package handlers exposes the directory over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/G0V1NDS/city-list/ingest"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/services"
	"github.com/G0V1NDS/city-list/store"
	"github.com/G0V1NDS/city-list/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(ctx context.Context) error

type Handlers struct {
	hierarchy *services.Hierarchy
	importer  *ingest.Importer
	worker    *reconcile.Worker
	upload    UploadLimits
	health    map[string]HealthChecker
	log       *zap.Logger
}

type UploadLimits struct {
	MinSize int64
	MaxSize int64
}

func New(
	h *services.Hierarchy,
	im *ingest.Importer,
	w *reconcile.Worker,
	upload UploadLimits,
	health map[string]HealthChecker,
	log *zap.Logger,
) *Handlers {
	return &Handlers{hierarchy: h, importer: im, worker: w, upload: upload, health: health, log: log}
}

// Register mounts every route on api, which is expected to be the /api
// subrouter.
func (h *Handlers) Register(api *mux.Router) {
	api.HandleFunc("/health-check", h.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/health/detailed", h.DetailedHealth).Methods(http.MethodGet)

	api.HandleFunc("/init-db", h.ImportCSV).Methods(http.MethodPost)
	api.HandleFunc("/reconcile", h.Reconcile).Methods(http.MethodPost)

	api.HandleFunc("/states", h.CreateState).Methods(http.MethodPost)
	api.HandleFunc("/states", h.ListStates).Methods(http.MethodGet)
	api.HandleFunc("/states/{id}", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/states/{id}", h.RemoveState).Methods(http.MethodDelete)

	api.HandleFunc("/districts", h.CreateDistrict).Methods(http.MethodPost)
	api.HandleFunc("/districts", h.ListDistricts).Methods(http.MethodGet)
	api.HandleFunc("/districts/{id}", h.GetDistrict).Methods(http.MethodGet)
	api.HandleFunc("/districts/{id}", h.RemoveDistrict).Methods(http.MethodDelete)

	api.HandleFunc("/towns", h.CreateTown).Methods(http.MethodPost)
	api.HandleFunc("/towns", h.ListTowns).Methods(http.MethodGet)
	api.HandleFunc("/towns/{id}", h.GetTown).Methods(http.MethodGet)
	api.HandleFunc("/towns/{id}", h.RemoveTown).Methods(http.MethodDelete)
}

// listQuery reads q, sortBy, skip and limit from the query string.
func listQuery(r *http.Request) store.Query {
	values := r.URL.Query()
	return store.Query{
		Search: values.Get("q"),
		Sort:   utils.ParseSortBy(values["sortBy"]),
		Skip:   utils.ParseInt64(values.Get("skip"), 0),
		Limit:  utils.ParseInt64(values.Get("limit"), store.DefaultLimit),
	}
}

// decodeBody decodes a JSON request body. Unknown fields are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return store.Validation([]map[string]string{{"body": err.Error()}})
	}
	return nil
}

type healthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (h *Handlers) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	response := healthStatus{Status: "ok", Services: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.health {
		if err := check(r.Context()); err != nil {
			h.log.Warn("DetailedHealth: check failed", zap.String("service", name), zap.Error(err))
			response.Status = "error"
			response.Services[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		response.Services[name] = "connected"
	}
	writeJSON(w, status, response)
}

// Reconcile replays parent-list syncs that failed earlier.
func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.worker.RunOnce(r.Context())
	if err != nil {
		writeError(w, h.log, "Reconcile", err)
		return
	}
	writeSuccess(w, http.StatusOK, res, store.MsgSuccessful)
}
