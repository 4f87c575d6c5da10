package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/G0V1NDS/city-list/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Minute

type Options struct {
	Header            string
	Delimiter         rune
	Concurrency       int
	Timeout           time.Duration
	SkipMalformedRows bool
}

// StructuralError means the file itself was rejected and no entity was
// created. Rows lists the malformed rows when that was the reason.
type StructuralError struct {
	Err  error
	Rows []RowError
}

func (e *StructuralError) Error() string {
	if len(e.Rows) > 0 {
		return fmt.Sprintf("%v: %d malformed rows, first at %v", e.Err, len(e.Rows), e.Rows[0])
	}
	return e.Err.Error()
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ErrMalformedRows is wrapped by a StructuralError raised for malformed rows.
var ErrMalformedRows = errors.New("malformed rows")

type Importer struct {
	pipeline *Pipeline
	creator  Creator
	opts     Options
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewImporter(c Creator, opts Options, log *zap.Logger, m *metrics.Metrics) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Header == "" {
		opts.Header = ExpectedHeader
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Importer{
		pipeline: NewPipeline(c, opts.Concurrency, log, m),
		creator:  c,
		opts:     opts,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Import parses src completely, then creates the three tiers in order.
// Any structural problem is returned as a *StructuralError before a single
// create is attempted. Per-item failures are reported in the manifest.
//
// The run is detached from ctx cancellation and bounded by Options.Timeout,
// so a dropped client does not leave a tier half done.
func (im *Importer) Import(ctx context.Context, src io.Reader) (*Manifest, error) {
	manifest := &Manifest{
		ImportID:    uuid.NewString(),
		StartedAt:   im.now(),
		Warnings:    []Warning{},
		SkippedRows: []RowError{},
	}
	log := im.log.With(zap.String("importId", manifest.ImportID))

	sets, err := im.extract(src)
	if err != nil {
		im.metrics.IncImport("structural_error")
		log.Warn("Import: rejected file", zap.Error(err))
		return nil, err
	}
	manifest.Rows = sets.Rows
	manifest.Warnings = append(manifest.Warnings, sets.Warnings...)
	manifest.SkippedRows = append(manifest.SkippedRows, sets.RowErrors...)

	log.Info("Import: extracted",
		zap.Int("rows", sets.Rows),
		zap.Int("states", len(sets.States)),
		zap.Int("districts", len(sets.Districts)),
		zap.Int("towns", len(sets.Towns)),
		zap.Int("warnings", len(sets.Warnings)),
		zap.Int("skipped", len(sets.RowErrors)))

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), im.opts.Timeout)
	defer cancel()

	manifest.Tiers = im.pipeline.Run(runCtx, sets)
	manifest.FinishedAt = im.now()

	if f, ok := im.creator.(interface{ FlushCaches() }); ok {
		f.FlushCaches()
	}
	im.metrics.IncImport("ok")
	log.Info("Import: done", zap.Duration("took", manifest.FinishedAt.Sub(manifest.StartedAt)))
	return manifest, nil
}

func (im *Importer) extract(src io.Reader) (*Sets, error) {
	rows, err := NewRowReader(src, im.opts.Header, im.opts.Delimiter)
	if err != nil {
		return nil, &StructuralError{Err: err}
	}
	sets, err := Extract(rows)
	if err != nil {
		return nil, &StructuralError{Err: err}
	}
	if len(sets.RowErrors) > 0 && !im.opts.SkipMalformedRows {
		return nil, &StructuralError{Err: ErrMalformedRows, Rows: sets.RowErrors}
	}
	return sets, nil
}
