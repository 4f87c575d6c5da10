package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the CSV import pipeline and the parent-list sync.
type Metrics struct {
	Imports            *prometheus.CounterVec
	ImportItems        *prometheus.CounterVec
	TierDuration       *prometheus.HistogramVec
	ParentSyncFailures *prometheus.CounterVec
	ReconcileReplays   *prometheus.CounterVec
}

// New registers the import metrics on reg. Pass prometheus.DefaultRegisterer
// in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citylist_imports_total",
			Help: "CSV imports by result (ok, structural_error)",
		}, []string{"result"}),
		ImportItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citylist_import_items_total",
			Help: "Entity create attempts during imports by tier and outcome",
		}, []string{"tier", "outcome"}),
		TierDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citylist_import_tier_duration_seconds",
			Help:    "Time for an import tier to settle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"tier"}),
		ParentSyncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citylist_parent_sync_failures_total",
			Help: "Child summaries that could not be appended to their parent",
		}, []string{"parent"}),
		ReconcileReplays: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "citylist_reconcile_replays_total",
			Help: "Replayed parent syncs by result (resolved, failed, parked)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncImport(result string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(result).Inc()
}

func (m *Metrics) AddItems(tier, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ImportItems.WithLabelValues(tier, outcome).Add(float64(n))
}

// ObserveTier records the duration of a tier. Call with time.Now() taken
// before the tier started.
func (m *Metrics) ObserveTier(tier string, start time.Time) {
	if m == nil {
		return
	}
	m.TierDuration.WithLabelValues(tier).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncParentSyncFailure(parent string) {
	if m == nil {
		return
	}
	m.ParentSyncFailures.WithLabelValues(parent).Inc()
}

func (m *Metrics) IncReplay(result string) {
	if m == nil {
		return
	}
	m.ReconcileReplays.WithLabelValues(result).Inc()
}
