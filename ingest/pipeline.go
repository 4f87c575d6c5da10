package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G0V1NDS/city-list/metrics"
	"github.com/G0V1NDS/city-list/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Creator persists one entity of each tier. Implementations resolve the
// parent by name and keep the parent's child list in sync.
type Creator interface {
	CreateState(ctx context.Context, r StateRecord) error
	CreateDistrict(ctx context.Context, r DistrictRecord) error
	CreateTown(ctx context.Context, r TownRecord) error
}

const DefaultConcurrency = 16

// Classify maps a create error to its manifest outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCreated
	case errors.Is(err, store.ErrConflict):
		return OutcomeDuplicate
	case errors.Is(err, store.ErrNotFound):
		return OutcomeParentNotFound
	case errors.Is(err, store.ErrValidation):
		return OutcomeValidationFailed
	default:
		return OutcomeFailed
	}
}

// Pipeline creates states, then districts, then towns. Items of one tier
// run concurrently and the next tier starts only after every item of the
// previous one has settled. A failed item never stops its siblings.
type Pipeline struct {
	creator     Creator
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func NewPipeline(c Creator, concurrency int, log *zap.Logger, m *metrics.Metrics) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{creator: c, concurrency: concurrency, log: log, metrics: m}
}

func (p *Pipeline) Run(ctx context.Context, sets *Sets) []TierReport {
	return []TierReport{
		runTier(ctx, p, TierStates, sets.States,
			func(r StateRecord) (string, int) { return r.Name, r.Line },
			p.creator.CreateState),
		runTier(ctx, p, TierDistricts, sets.Districts,
			func(r DistrictRecord) (string, int) { return r.Name, r.Line },
			p.creator.CreateDistrict),
		runTier(ctx, p, TierTowns, sets.Towns,
			func(r TownRecord) (string, int) { return r.Name, r.Line },
			p.creator.CreateTown),
	}
}

func runTier[R any](
	ctx context.Context,
	p *Pipeline,
	tier string,
	items []R,
	describe func(R) (string, int),
	create func(context.Context, R) error,
) TierReport {
	start := time.Now()
	results := make([]ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			name, line := describe(item)
			err := createOne(ctx, p.log, tier, name, item, create)
			results[i] = ItemResult{Name: name, Line: line, Outcome: Classify(err)}
			if err != nil {
				results[i].Message = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := TierReport{
		Tier:       tier,
		Attempted:  len(items),
		Counts:     map[Outcome]int{},
		DurationMs: time.Since(start).Milliseconds(),
		Items:      results,
	}
	for _, r := range results {
		report.Counts[r.Outcome]++
	}
	for outcome, n := range report.Counts {
		p.metrics.AddItems(tier, string(outcome), n)
	}
	p.metrics.ObserveTier(tier, start)

	p.log.Info("ImportTier: settled",
		zap.String("tier", tier),
		zap.Int("attempted", report.Attempted),
		zap.Int("created", report.Counts[OutcomeCreated]),
		zap.Int64("durationMs", report.DurationMs))
	return report
}

// createOne runs a single create, turning a panic into an item failure.
func createOne[R any](ctx context.Context, log *zap.Logger, tier, name string, item R, create func(context.Context, R) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("ImportItem: panic recovered",
				zap.String("tier", tier),
				zap.String("name", name),
				zap.Any("panic", rec))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := create(ctx, item); err != nil {
		log.Debug("ImportItem: create failed",
			zap.String("tier", tier),
			zap.String("name", name),
			zap.Error(err))
		return err
	}
	return nil
}
