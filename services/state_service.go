package services

import (
	"context"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/store"
	"github.com/G0V1NDS/city-list/utils"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type StateService struct {
	states store.Collection[models.State]
	cache  *cache.Cache
	locks  *utils.KeyedMutex
	log    *zap.Logger
}

func NewStateService(states store.Collection[models.State], c *cache.Cache, locks *utils.KeyedMutex, log *zap.Logger) *StateService {
	return &StateService{states: states, cache: c, locks: locks, log: log}
}

func (s *StateService) Create(ctx context.Context, in CreateStateInput) (*models.State, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.states.CheckDuplicate(ctx, in.Name, ""); err != nil {
		return nil, store.Keyed(err, "body,name")
	}

	state := &models.State{
		Name:      in.Name,
		Code:      string(in.Code),
		Districts: []models.DistrictSummary{},
	}
	if err := s.states.Create(ctx, state); err != nil {
		return nil, err
	}
	s.cache.Flush()

	s.log.Debug("CreateState: created", zap.String("name", state.Name), zap.String("id", state.ID.Hex()))
	return state, nil
}

// List returns one row per (state, district) pair. States without districts
// still get a row.
func (s *StateService) List(ctx context.Context, q store.Query) ([]models.StateDistrictRow, error) {
	key := config.GetCacheKey("states", q.Search, q.Sort, q.Skip, q.Limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.StateDistrictRow), nil
	}

	docs, err := s.states.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := []models.StateDistrictRow{}
	for _, state := range docs {
		if len(state.Districts) == 0 {
			rows = append(rows, models.StateDistrictRow{State: state.Name})
			continue
		}
		for _, d := range state.Districts {
			rows = append(rows, models.StateDistrictRow{
				State:        state.Name,
				District:     d.Name,
				DistrictCode: d.Code,
			})
		}
	}

	s.cache.SetDefault(key, rows)
	return rows, nil
}

func (s *StateService) Get(ctx context.Context, id string) (*models.State, error) {
	return s.states.FindByID(ctx, id)
}

func (s *StateService) FindByName(ctx context.Context, name string) (*models.State, error) {
	return s.states.FindByName(ctx, name)
}

func (s *StateService) Remove(ctx context.Context, id string) error {
	if err := s.states.RemoveByID(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

// EnsureDistrict appends d to the state's district list unless a district
// with the same name is already listed. Appends to one state are serialized.
func (s *StateService) EnsureDistrict(ctx context.Context, stateName string, d models.DistrictSummary) error {
	unlock := s.locks.Lock("state:" + stateName)
	defer unlock()

	state, err := s.states.FindByName(ctx, stateName)
	if err != nil {
		return err
	}
	if state.HasDistrict(d.Name) {
		return nil
	}

	state.Districts = append(state.Districts, d)
	if err := s.states.UpdateExisting(ctx, state); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}
