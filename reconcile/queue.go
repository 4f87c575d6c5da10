// Package reconcile keeps track of child summaries that were not appended to
// their parent document and replays them later.
package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/G0V1NDS/city-list/store"
	"github.com/google/uuid"
)

const (
	ParentState    = "state"
	ParentDistrict = "district"
)

// Failure is one parent-list append that did not persist. ChildDetail is the
// district code for state parents and the urban status for district parents.
type Failure struct {
	ID          string    `json:"id"`
	ParentKind  string    `json:"parentKind"`
	ParentName  string    `json:"parentName"`
	ChildName   string    `json:"childName"`
	ChildDetail string    `json:"childDetail"`
	LastError   string    `json:"lastError"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Queue stores failures until a replay resolves them. Pending returns the
// least recently touched entries first, so a retried entry moves behind the
// rest. Parked entries are kept but never returned by Pending again.
type Queue interface {
	Record(ctx context.Context, f Failure) error
	Pending(ctx context.Context, limit int) ([]Failure, error)
	Resolve(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, cause error) error
	Park(ctx context.Context, id string, cause error) error
}

func newFailure(f Failure, now time.Time) Failure {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	return f
}

// MemoryQueue is the default queue when no Postgres DSN is configured.
// It does not survive a restart.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  map[string]Failure
	resolved map[string]Failure
	parked   map[string]Failure
	now      func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		pending:  make(map[string]Failure),
		resolved: make(map[string]Failure),
		parked:   make(map[string]Failure),
		now:      time.Now,
	}
}

func (q *MemoryQueue) Record(ctx context.Context, f Failure) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	f = newFailure(f, q.now())
	q.pending[f.ID] = f
	return nil
}

func (q *MemoryQueue) Pending(ctx context.Context, limit int) ([]Failure, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Failure, 0, len(q.pending))
	for _, f := range q.pending {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryQueue) Resolve(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	f, ok := q.pending[id]
	if !ok {
		return store.NotFound()
	}
	delete(q.pending, id)
	f.UpdatedAt = q.now()
	q.resolved[id] = f
	return nil
}

func (q *MemoryQueue) Retry(ctx context.Context, id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	f, ok := q.pending[id]
	if !ok {
		return store.NotFound()
	}
	f.Attempts++
	if cause != nil {
		f.LastError = cause.Error()
	}
	f.UpdatedAt = q.now()
	q.pending[id] = f
	return nil
}

func (q *MemoryQueue) Park(ctx context.Context, id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	f, ok := q.pending[id]
	if !ok {
		return store.NotFound()
	}
	delete(q.pending, id)
	f.Attempts++
	if cause != nil {
		f.LastError = cause.Error()
	}
	f.UpdatedAt = q.now()
	q.parked[id] = f
	return nil
}

// Parked returns the entries the worker gave up on.
func (q *MemoryQueue) Parked() []Failure {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Failure, 0, len(q.parked))
	for _, f := range q.parked {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
