package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStates fails UpdateExisting while fail is set.
type flakyStates struct {
	store.Collection[models.State]
	fail atomic.Bool
}

func (f *flakyStates) UpdateExisting(ctx context.Context, doc *models.State) error {
	if f.fail.Load() {
		return errors.New("connection reset")
	}
	return f.Collection.UpdateExisting(ctx, doc)
}

// cancellingStates cancels the caller's context while appending to a state,
// the way an expiring import deadline would.
type cancellingStates struct {
	store.Collection[models.State]
	cancel context.CancelFunc
}

func (c *cancellingStates) UpdateExisting(ctx context.Context, doc *models.State) error {
	c.cancel()
	return ctx.Err()
}

func newTestHierarchy(t *testing.T, cols store.Collections, queue reconcile.Queue) *Hierarchy {
	t.Helper()
	return NewHierarchy(cols, config.NewCaches(time.Minute), queue, zap.NewNop(), nil)
}

func seedState(t *testing.T, h *Hierarchy, name, code string) *models.State {
	t.Helper()
	state, err := h.States.Create(context.Background(), CreateStateInput{Name: name, Code: Code(code)})
	require.NoError(t, err)
	return state
}

func TestCreateState_Duplicate(t *testing.T) {
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "Kerala", "32")

	_, err := h.States.Create(context.Background(), CreateStateInput{Name: "Kerala", Code: "99"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)

	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 409, se.Status)
	assert.Equal(t, []map[string]string{{"body,name": "Reference with same source and key already exist"}}, se.Data)
}

func TestCreateState_Validation(t *testing.T) {
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())

	_, err := h.States.Create(context.Background(), CreateStateInput{Name: "Kerala"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrValidation)

	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []map[string]string{{"body,code": "failed on the 'required' rule"}}, se.Data)

	_, err = h.States.Create(context.Background(), CreateStateInput{Code: "1"})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestCreateDistrict_DenormalizesState(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")

	district, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err)
	assert.Equal(t, models.StateRef{Name: "StateX", Code: "1"}, district.State)
	assert.Empty(t, district.Towns)

	state, err := h.States.FindByName(ctx, "StateX")
	require.NoError(t, err)
	assert.Equal(t, []models.DistrictSummary{{Name: "DistrictY", Code: "10"}}, state.Districts)
}

func TestCreateDistrict_StateNotFound(t *testing.T) {
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())

	_, err := h.Districts.Create(context.Background(), CreateDistrictInput{Name: "DistrictY", Code: "10", State: "Nowhere"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []map[string]string{{"body,state": "Not found"}}, se.Data)
}

func TestCreateDistrict_DuplicateReportedBeforeMissingState(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")
	_, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err)

	_, err = h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "11", State: "Nowhere"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestCreateDistrict_DeletedStateIsNotAParent(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	state := seedState(t, h, "StateX", "1")
	require.NoError(t, h.States.Remove(ctx, state.ID.Hex()))

	_, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDistrict_ConcurrentSiblingsAllListed(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Districts.Create(ctx, CreateDistrictInput{
				Name:  fmt.Sprintf("District%02d", i),
				Code:  Code(fmt.Sprint(100 + i)),
				State: "StateX",
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	state, err := h.States.FindByName(ctx, "StateX")
	require.NoError(t, err)
	assert.Len(t, state.Districts, n)
}

func TestCreateTown_DenormalizesDistrict(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")
	_, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err)

	town, err := h.Towns.Create(ctx, CreateTownInput{Name: "TownA", UrbanStatus: "CT", District: "DistrictY"})
	require.NoError(t, err)
	assert.Equal(t, models.DistrictRef{Name: "DistrictY", State: "StateX"}, town.District)

	district, err := h.Districts.FindByName(ctx, "DistrictY")
	require.NoError(t, err)
	assert.Equal(t, []models.TownSummary{{Name: "TownA", UrbanStatus: "CT"}}, district.Towns)

	_, err = h.Towns.Create(ctx, CreateTownInput{Name: "TownB", UrbanStatus: "CT", District: "Nowhere"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestParentSyncFailure_QueuedAndReplayed(t *testing.T) {
	ctx := context.Background()
	cols := store.NewMemoryCollections()
	flaky := &flakyStates{Collection: cols.States}
	cols.States = flaky
	queue := reconcile.NewMemoryQueue()
	h := newTestHierarchy(t, cols, queue)
	seedState(t, h, "StateX", "1")

	flaky.fail.Store(true)
	district, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err, "district stays created when the parent append fails")
	assert.Equal(t, "DistrictY", district.Name)

	pending, err := queue.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, reconcile.ParentState, pending[0].ParentKind)
	assert.Equal(t, "StateX", pending[0].ParentName)
	assert.Equal(t, "DistrictY", pending[0].ChildName)
	assert.Equal(t, "10", pending[0].ChildDetail)
	assert.Contains(t, pending[0].LastError, "connection reset")

	state, err := h.States.FindByName(ctx, "StateX")
	require.NoError(t, err)
	assert.Empty(t, state.Districts)

	flaky.fail.Store(false)
	worker := reconcile.NewWorker(queue, h, zap.NewNop(), nil)
	res, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Result{Replayed: 1, Resolved: 1}, res)

	state, err = h.States.FindByName(ctx, "StateX")
	require.NoError(t, err)
	assert.Equal(t, []models.DistrictSummary{{Name: "DistrictY", Code: "10"}}, state.Districts)

	pending, err = queue.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestParentSyncFailure_RecordedAfterContextCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cols := store.NewMemoryCollections()
	cols.States = &cancellingStates{Collection: cols.States, cancel: cancel}
	h := newTestHierarchy(t, cols, reconcile.NewPostgresQueue(db))
	seedState(t, h, "StateX", "1")

	mock.ExpectExec(`INSERT INTO parent_sync_failures`).
		WithArgs(sqlmock.AnyArg(), reconcile.ParentState, "StateX", "DistrictY", "10",
			context.Canceled.Error(), 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureDistrict_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")

	summary := models.DistrictSummary{Name: "DistrictY", Code: "10"}
	require.NoError(t, h.EnsureDistrict(ctx, "StateX", summary))
	require.NoError(t, h.EnsureDistrict(ctx, "StateX", summary))

	state, err := h.States.FindByName(ctx, "StateX")
	require.NoError(t, err)
	assert.Len(t, state.Districts, 1)
}

func TestListings_Unwind(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")
	seedState(t, h, "StateZ", "2")
	_, err := h.Districts.Create(ctx, CreateDistrictInput{Name: "DistrictY", Code: "10", State: "StateX"})
	require.NoError(t, err)
	for _, name := range []string{"TownA", "TownB"} {
		_, err := h.Towns.Create(ctx, CreateTownInput{Name: name, UrbanStatus: "CT", District: "DistrictY"})
		require.NoError(t, err)
	}

	states, err := h.States.List(ctx, store.Query{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.StateDistrictRow{
		{State: "StateX", District: "DistrictY", DistrictCode: "10"},
		{State: "StateZ"},
	}, states)

	districts, err := h.Districts.List(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, []models.DistrictTownRow{
		{Town: "TownA", UrbanStatus: "CT", State: "StateX", StateCode: "1", District: "DistrictY", DistrictCode: "10"},
		{Town: "TownB", UrbanStatus: "CT", State: "StateX", StateCode: "1", District: "DistrictY", DistrictCode: "10"},
	}, districts)

	towns, err := h.Towns.List(ctx, store.Query{Search: "towna"})
	require.NoError(t, err)
	assert.Equal(t, []models.TownRow{{Town: "TownA", State: "StateX", District: "DistrictY"}}, towns)
}

func TestList_CacheFlushedOnWrite(t *testing.T) {
	ctx := context.Background()
	h := newTestHierarchy(t, store.NewMemoryCollections(), reconcile.NewMemoryQueue())
	seedState(t, h, "StateX", "1")

	rows, err := h.States.List(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	seedState(t, h, "StateZ", "2")
	rows, err = h.States.List(ctx, store.Query{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
