package services

import (
	"context"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/store"
	"github.com/G0V1NDS/city-list/utils"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DistrictService struct {
	districts store.Collection[models.District]
	states    *StateService
	sync      *parentSync
	cache     *cache.Cache
	locks     *utils.KeyedMutex
	log       *zap.Logger
}

func NewDistrictService(
	districts store.Collection[models.District],
	states *StateService,
	sync *parentSync,
	c *cache.Cache,
	locks *utils.KeyedMutex,
	log *zap.Logger,
) *DistrictService {
	return &DistrictService{districts: districts, states: states, sync: sync, cache: c, locks: locks, log: log}
}

// Create stores a district under an existing active state, then appends the
// district to that state's list. The append is best-effort: a failure is
// logged and queued for reconciliation, and the district stays created.
func (s *DistrictService) Create(ctx context.Context, in CreateDistrictInput) (*models.District, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		state            *models.State
		dupErr, stateErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		dupErr = s.districts.CheckDuplicate(ctx, in.Name, "")
		return nil
	})
	g.Go(func() error {
		state, stateErr = s.states.FindByName(ctx, in.State)
		return nil
	})
	_ = g.Wait()

	if dupErr != nil {
		return nil, store.Keyed(dupErr, "body,name")
	}
	if stateErr != nil {
		return nil, store.Keyed(stateErr, "body,state")
	}

	district := &models.District{
		Name:  in.Name,
		Code:  string(in.Code),
		State: models.StateRef{Name: state.Name, Code: state.Code},
		Towns: []models.TownSummary{},
	}
	if err := s.districts.Create(ctx, district); err != nil {
		return nil, err
	}
	s.cache.Flush()

	summary := models.DistrictSummary{Name: district.Name, Code: district.Code}
	if err := s.states.EnsureDistrict(ctx, state.Name, summary); err != nil {
		s.sync.failed(ctx, reconcile.Failure{
			ParentKind:  reconcile.ParentState,
			ParentName:  state.Name,
			ChildName:   summary.Name,
			ChildDetail: summary.Code,
		}, err)
	} else {
		s.log.Debug("CreateDistrict: district info added to state list",
			zap.String("state", state.Name), zap.String("district", district.Name))
	}

	return district, nil
}

// List returns one row per (district, town) pair in the CSV column layout.
func (s *DistrictService) List(ctx context.Context, q store.Query) ([]models.DistrictTownRow, error) {
	key := config.GetCacheKey("districts", q.Search, q.Sort, q.Skip, q.Limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.DistrictTownRow), nil
	}

	docs, err := s.districts.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := []models.DistrictTownRow{}
	for _, d := range docs {
		base := models.DistrictTownRow{
			State:        d.State.Name,
			StateCode:    d.State.Code,
			District:     d.Name,
			DistrictCode: d.Code,
		}
		if len(d.Towns) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, t := range d.Towns {
			row := base
			row.Town = t.Name
			row.UrbanStatus = t.UrbanStatus
			rows = append(rows, row)
		}
	}

	s.cache.SetDefault(key, rows)
	return rows, nil
}

func (s *DistrictService) Get(ctx context.Context, id string) (*models.District, error) {
	return s.districts.FindByID(ctx, id)
}

func (s *DistrictService) FindByName(ctx context.Context, name string) (*models.District, error) {
	return s.districts.FindByName(ctx, name)
}

func (s *DistrictService) Remove(ctx context.Context, id string) error {
	if err := s.districts.RemoveByID(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

// EnsureTown appends t to the district's town list unless a town with the
// same name is already listed.
func (s *DistrictService) EnsureTown(ctx context.Context, districtName string, t models.TownSummary) error {
	unlock := s.locks.Lock("district:" + districtName)
	defer unlock()

	district, err := s.districts.FindByName(ctx, districtName)
	if err != nil {
		return err
	}
	if district.HasTown(t.Name) {
		return nil
	}

	district.Towns = append(district.Towns, t)
	if err := s.districts.UpdateExisting(ctx, district); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}
