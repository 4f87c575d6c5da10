package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/G0V1NDS/city-list/metrics"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/store"
	"go.uber.org/zap"
)

// Syncer re-applies a child summary to its parent. Both calls must be
// idempotent: a summary already present is a success.
type Syncer interface {
	EnsureDistrict(ctx context.Context, stateName string, d models.DistrictSummary) error
	EnsureTown(ctx context.Context, districtName string, t models.TownSummary) error
}

// DefaultMaxAttempts is how many replays an entry gets before it is parked.
const DefaultMaxAttempts = 10

type Result struct {
	Replayed int `json:"replayed"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
	Parked   int `json:"parked"`
}

// Worker replays pending failures through a Syncer.
type Worker struct {
	queue     Queue
	syncer    Syncer
	log       *zap.Logger
	metrics   *metrics.Metrics
	batchSize int

	// entries at this many attempts are parked instead of retried
	maxAttempts int

	// runs are serialized so a manual replay and the ticker never overlap
	mu sync.Mutex
}

func NewWorker(queue Queue, syncer Syncer, log *zap.Logger, m *metrics.Metrics) *Worker {
	return &Worker{queue: queue, syncer: syncer, log: log, metrics: m, batchSize: 100, maxAttempts: DefaultMaxAttempts}
}

// RunOnce replays one batch of pending failures.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res Result
	pending, err := w.queue.Pending(ctx, w.batchSize)
	if err != nil {
		return res, fmt.Errorf("load pending failures: %w", err)
	}

	for _, f := range pending {
		res.Replayed++
		if err := w.replay(ctx, f); err != nil {
			if w.permanent(f, err) {
				res.Parked++
				w.metrics.IncReplay("parked")
				w.log.Warn("Reconcile: parking failure",
					zap.String("id", f.ID),
					zap.String("parent", f.ParentName),
					zap.String("child", f.ChildName),
					zap.Int("attempts", f.Attempts+1),
					zap.Error(err))
				if perr := w.queue.Park(ctx, f.ID, err); perr != nil {
					w.log.Error("Reconcile: could not park failure", zap.String("id", f.ID), zap.Error(perr))
				}
				continue
			}

			res.Failed++
			w.metrics.IncReplay("failed")
			w.log.Warn("Reconcile: replay failed",
				zap.String("id", f.ID),
				zap.String("parent", f.ParentName),
				zap.String("child", f.ChildName),
				zap.Error(err))
			if rerr := w.queue.Retry(ctx, f.ID, err); rerr != nil {
				w.log.Error("Reconcile: could not update failure", zap.String("id", f.ID), zap.Error(rerr))
			}
			continue
		}

		res.Resolved++
		w.metrics.IncReplay("resolved")
		if err := w.queue.Resolve(ctx, f.ID); err != nil {
			w.log.Error("Reconcile: could not resolve failure", zap.String("id", f.ID), zap.Error(err))
		}
	}

	if res.Replayed > 0 {
		w.log.Info("Reconcile: batch done",
			zap.Int("replayed", res.Replayed),
			zap.Int("resolved", res.Resolved),
			zap.Int("failed", res.Failed),
			zap.Int("parked", res.Parked))
	}
	return res, nil
}

// permanent reports whether f should stop being replayed: its parent is gone
// or it has used up its attempts.
func (w *Worker) permanent(f Failure, err error) bool {
	if errors.Is(err, store.ErrNotFound) {
		return true
	}
	return w.maxAttempts > 0 && f.Attempts+1 >= w.maxAttempts
}

func (w *Worker) replay(ctx context.Context, f Failure) error {
	switch f.ParentKind {
	case ParentState:
		return w.syncer.EnsureDistrict(ctx, f.ParentName, models.DistrictSummary{Name: f.ChildName, Code: f.ChildDetail})
	case ParentDistrict:
		return w.syncer.EnsureTown(ctx, f.ParentName, models.TownSummary{Name: f.ChildName, UrbanStatus: f.ChildDetail})
	default:
		return fmt.Errorf("unknown parent kind %q", f.ParentKind)
	}
}

// Start runs RunOnce every interval until ctx is done.
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil {
					w.log.Error("Reconcile: periodic run failed", zap.Error(err))
				}
			}
		}
	}()
}
