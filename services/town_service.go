package services

import (
	"context"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/models"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/store"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TownService struct {
	towns     store.Collection[models.Town]
	districts *DistrictService
	sync      *parentSync
	cache     *cache.Cache
	log       *zap.Logger
}

func NewTownService(
	towns store.Collection[models.Town],
	districts *DistrictService,
	sync *parentSync,
	c *cache.Cache,
	log *zap.Logger,
) *TownService {
	return &TownService{towns: towns, districts: districts, sync: sync, cache: c, log: log}
}

// Create stores a town under an existing active district, then appends the
// town to the district's list (best-effort, like districts on states).
func (s *TownService) Create(ctx context.Context, in CreateTownInput) (*models.Town, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		district            *models.District
		dupErr, districtErr error
		g                   errgroup.Group
	)
	g.Go(func() error {
		dupErr = s.towns.CheckDuplicate(ctx, in.Name, "")
		return nil
	})
	g.Go(func() error {
		district, districtErr = s.districts.FindByName(ctx, in.District)
		return nil
	})
	_ = g.Wait()

	if dupErr != nil {
		return nil, store.Keyed(dupErr, "body,name")
	}
	if districtErr != nil {
		return nil, store.Keyed(districtErr, "body,district")
	}

	town := &models.Town{
		Name:        in.Name,
		UrbanStatus: in.UrbanStatus,
		District:    models.DistrictRef{Name: district.Name, State: district.State.Name},
	}
	if err := s.towns.Create(ctx, town); err != nil {
		return nil, err
	}
	s.cache.Flush()

	summary := models.TownSummary{Name: town.Name, UrbanStatus: town.UrbanStatus}
	if err := s.districts.EnsureTown(ctx, district.Name, summary); err != nil {
		s.sync.failed(ctx, reconcile.Failure{
			ParentKind:  reconcile.ParentDistrict,
			ParentName:  district.Name,
			ChildName:   summary.Name,
			ChildDetail: summary.UrbanStatus,
		}, err)
	} else {
		s.log.Debug("CreateTown: town info added to district list",
			zap.String("district", district.Name), zap.String("town", town.Name))
	}

	return town, nil
}

func (s *TownService) List(ctx context.Context, q store.Query) ([]models.TownRow, error) {
	key := config.GetCacheKey("towns", q.Search, q.Sort, q.Skip, q.Limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.TownRow), nil
	}

	docs, err := s.towns.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]models.TownRow, 0, len(docs))
	for _, t := range docs {
		rows = append(rows, models.TownRow{Town: t.Name, State: t.District.State, District: t.District.Name})
	}

	s.cache.SetDefault(key, rows)
	return rows, nil
}

func (s *TownService) Get(ctx context.Context, id string) (*models.Town, error) {
	return s.towns.FindByID(ctx, id)
}

func (s *TownService) Remove(ctx context.Context, id string) error {
	if err := s.towns.RemoveByID(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}
