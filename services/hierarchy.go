package services

import (
	"context"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/ingest"
	"github.com/G0V1NDS/city-list/metrics"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/store"
	"github.com/G0V1NDS/city-list/utils"
	"go.uber.org/zap"
)

// Hierarchy wires the three entity services together. It is what the
// importer creates through and what the reconcile worker replays through.
type Hierarchy struct {
	States    *StateService
	Districts *DistrictService
	Towns     *TownService

	caches *config.Caches
}

func NewHierarchy(cols store.Collections, caches *config.Caches, queue reconcile.Queue, log *zap.Logger, m *metrics.Metrics) *Hierarchy {
	if log == nil {
		log = zap.NewNop()
	}
	locks := utils.NewKeyedMutex()
	ps := &parentSync{queue: queue, log: log, metrics: m}

	states := NewStateService(cols.States, caches.States, locks, log)
	districts := NewDistrictService(cols.Districts, states, ps, caches.Districts, locks, log)
	towns := NewTownService(cols.Towns, districts, ps, caches.Towns, log)

	return &Hierarchy{States: states, Districts: districts, Towns: towns, caches: caches}
}

func (h *Hierarchy) CreateState(ctx context.Context, r ingest.StateRecord) error {
	_, err := h.States.Create(ctx, CreateStateInput{Name: r.Name, Code: Code(r.Code)})
	return err
}

func (h *Hierarchy) CreateDistrict(ctx context.Context, r ingest.DistrictRecord) error {
	_, err := h.Districts.Create(ctx, CreateDistrictInput{Name: r.Name, Code: Code(r.Code), State: r.State})
	return err
}

func (h *Hierarchy) CreateTown(ctx context.Context, r ingest.TownRecord) error {
	_, err := h.Towns.Create(ctx, CreateTownInput{Name: r.Name, UrbanStatus: r.UrbanStatus, District: r.District})
	return err
}

func (h *Hierarchy) EnsureDistrict(ctx context.Context, stateName string, d models.DistrictSummary) error {
	return h.States.EnsureDistrict(ctx, stateName, d)
}

func (h *Hierarchy) EnsureTown(ctx context.Context, districtName string, t models.TownSummary) error {
	return h.Districts.EnsureTown(ctx, districtName, t)
}

// FlushCaches drops every cached listing.
func (h *Hierarchy) FlushCaches() {
	h.caches.FlushAll()
}
