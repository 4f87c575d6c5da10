package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSyncer struct {
	districts map[string][]models.DistrictSummary
	towns     map[string][]models.TownSummary
	failTowns bool
	// states in this set are reported as missing
	deleted map[string]bool
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{
		districts: map[string][]models.DistrictSummary{},
		towns:     map[string][]models.TownSummary{},
		deleted:   map[string]bool{},
	}
}

func (f *fakeSyncer) EnsureDistrict(ctx context.Context, stateName string, d models.DistrictSummary) error {
	if f.deleted[stateName] {
		return store.NotFound()
	}
	f.districts[stateName] = append(f.districts[stateName], d)
	return nil
}

func (f *fakeSyncer) EnsureTown(ctx context.Context, districtName string, t models.TownSummary) error {
	if f.failTowns {
		return errors.New("store unavailable")
	}
	f.towns[districtName] = append(f.towns[districtName], t)
	return nil
}

func TestWorker_RunOnce(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue()
	syncer := newFakeSyncer()
	syncer.failTowns = true

	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentState, ParentName: "Kerala", ChildName: "Idukki", ChildDetail: "596"}))
	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentDistrict, ParentName: "Idukki", ChildName: "Thodupuzha", ChildDetail: "Urban"}))

	w := NewWorker(queue, syncer, zap.NewNop(), nil)
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 2, Resolved: 1, Failed: 1}, res)
	assert.Equal(t, []models.DistrictSummary{{Name: "Idukki", Code: "596"}}, syncer.districts["Kerala"])

	pending, err := queue.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Thodupuzha", pending[0].ChildName)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "store unavailable", pending[0].LastError)

	syncer.failTowns = false
	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 1, Resolved: 1}, res)
	assert.Equal(t, []models.TownSummary{{Name: "Thodupuzha", UrbanStatus: "Urban"}}, syncer.towns["Idukki"])

	pending, err = queue.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_UnknownParentKind(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue()
	require.NoError(t, queue.Record(ctx, Failure{ParentKind: "country", ParentName: "India", ChildName: "Kerala"}))

	res, err := NewWorker(queue, newFakeSyncer(), zap.NewNop(), nil).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

// tickingQueue gives every write a distinct, increasing timestamp.
func tickingQueue() *MemoryQueue {
	q := NewMemoryQueue()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}
	return q
}

func TestWorker_MissingParentIsParked(t *testing.T) {
	ctx := context.Background()
	queue := tickingQueue()
	syncer := newFakeSyncer()
	syncer.deleted["Gone"] = true

	for i := 0; i < 100; i++ {
		require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentState, ParentName: "Gone", ChildName: fmt.Sprintf("D%d", i)}))
	}
	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentState, ParentName: "Kerala", ChildName: "Idukki", ChildDetail: "596"}))

	w := NewWorker(queue, syncer, zap.NewNop(), nil)
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 100, Parked: 100}, res)
	assert.Len(t, queue.Parked(), 100)
	assert.Equal(t, 1, queue.Parked()[0].Attempts)

	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 1, Resolved: 1}, res)
	assert.Equal(t, []models.DistrictSummary{{Name: "Idukki", Code: "596"}}, syncer.districts["Kerala"])

	pending, err := queue.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_RetriedEntriesMoveBack(t *testing.T) {
	ctx := context.Background()
	queue := tickingQueue()
	syncer := newFakeSyncer()
	syncer.failTowns = true

	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentDistrict, ParentName: "Idukki", ChildName: "Thodupuzha", ChildDetail: "Urban"}))
	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentState, ParentName: "Kerala", ChildName: "Idukki", ChildDetail: "596"}))

	w := NewWorker(queue, syncer, zap.NewNop(), nil)
	w.batchSize = 1

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 1, Failed: 1}, res)

	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 1, Resolved: 1}, res)
	assert.Len(t, syncer.districts["Kerala"], 1)
}

func TestWorker_ParksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	queue := tickingQueue()
	syncer := newFakeSyncer()
	syncer.failTowns = true
	require.NoError(t, queue.Record(ctx, Failure{ParentKind: ParentDistrict, ParentName: "Idukki", ChildName: "Thodupuzha"}))

	w := NewWorker(queue, syncer, zap.NewNop(), nil)
	w.maxAttempts = 3

	for i := 0; i < 2; i++ {
		res, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{Replayed: 1, Failed: 1}, res)
	}
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replayed: 1, Parked: 1}, res)

	parked := queue.Parked()
	require.Len(t, parked, 1)
	assert.Equal(t, 3, parked[0].Attempts)
	assert.Equal(t, "store unavailable", parked[0].LastError)

	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
