package services

import (
	"context"
	"time"

	"github.com/G0V1NDS/city-list/metrics"
	"github.com/G0V1NDS/city-list/reconcile"
	"go.uber.org/zap"
)

// recordTimeout bounds the queue write once the request context is gone.
const recordTimeout = 5 * time.Second

// parentSync records child summaries that could not be written to their
// parent so the reconcile worker can replay them.
type parentSync struct {
	queue   reconcile.Queue
	log     *zap.Logger
	metrics *metrics.Metrics
}

// failed runs after the child is persisted, often because ctx expired, so the
// queue write is detached from ctx.
func (p *parentSync) failed(ctx context.Context, f reconcile.Failure, cause error) {
	f.LastError = cause.Error()
	p.metrics.IncParentSyncFailure(f.ParentKind)
	p.log.Error("ParentSync: failed to add child to parent list",
		zap.String("parentKind", f.ParentKind),
		zap.String("parent", f.ParentName),
		zap.String("child", f.ChildName),
		zap.Error(cause))

	if p.queue == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := p.queue.Record(recordCtx, f); err != nil {
		p.log.Error("ParentSync: could not record failure",
			zap.String("parent", f.ParentName),
			zap.String("child", f.ChildName),
			zap.Error(err))
	}
}
