package mocks

import (
	"context"
	"errors"

	"github.com/cropbase/cropbase/pkg/domain"
	fdb "github.com/cropbase/cropbase/pkg/domain/field/db"
	dbmock "github.com/cropbase/cropbase/pkg/domain/internal/db/mock"
)

type FieldInterface struct {
	Impl struct {
		UpsertFieldSeason func(context.Context, fdb.FieldSeasonUpsert) (fdb.UpsertResult, error)
		AddEvent          func(context.Context, domain.ManagementEvent) (int64, error)
		Find              func(context.Context, domain.FieldSeasonFilter, int, int) ([]int64, int64, error)
		Get               func(context.Context, []int64) (map[int64]domain.FieldSeason, error)
		GetDetail         func(context.Context, int64) (domain.FieldSeasonDetail, error)
		Crops             func(context.Context) ([]domain.Crop, error)
		Varieties         func(context.Context, string) ([]domain.Variety, error)
		Seasons           func(context.Context) ([]domain.Season, error)
		Overview          func(context.Context) (domain.Overview, error)
	}
	Calls struct {
		UpsertFieldSeason dbmock.CallLog[fdb.FieldSeasonUpsert]
		AddEvent          dbmock.CallLog[domain.ManagementEvent]
		Find              dbmock.CallLog[struct {
			Filter domain.FieldSeasonFilter
			Limit  int
			Offset int
		}]
		Get       dbmock.CallLog[[]int64]
		GetDetail dbmock.CallLog[int64]
		Crops     dbmock.CallLog[struct{}]
		Varieties dbmock.CallLog[struct{ Crop string }]
		Seasons   dbmock.CallLog[struct{}]
		Overview  dbmock.CallLog[struct{}]
	}
}

func NewFieldInterface() *FieldInterface {
	return &FieldInterface{}
}

var _ fdb.FieldInterface = &FieldInterface{}

func (fi *FieldInterface) UpsertFieldSeason(ctx context.Context, record fdb.FieldSeasonUpsert) (fdb.UpsertResult, error) {
	fi.Calls.UpsertFieldSeason = append(fi.Calls.UpsertFieldSeason, record)
	if fi.Impl.UpsertFieldSeason != nil {
		return fi.Impl.UpsertFieldSeason(ctx, record)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) AddEvent(ctx context.Context, event domain.ManagementEvent) (int64, error) {
	fi.Calls.AddEvent = append(fi.Calls.AddEvent, event)
	if fi.Impl.AddEvent != nil {
		return fi.Impl.AddEvent(ctx, event)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Find(ctx context.Context, filter domain.FieldSeasonFilter, limit int, offset int) ([]int64, int64, error) {
	fi.Calls.Find = append(fi.Calls.Find, struct {
		Filter domain.FieldSeasonFilter
		Limit  int
		Offset int
	}{
		Filter: filter, Limit: limit, Offset: offset,
	})
	if fi.Impl.Find != nil {
		return fi.Impl.Find(ctx, filter, limit, offset)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Get(ctx context.Context, fieldSeasonIds []int64) (map[int64]domain.FieldSeason, error) {
	fi.Calls.Get = append(fi.Calls.Get, fieldSeasonIds)
	if fi.Impl.Get != nil {
		return fi.Impl.Get(ctx, fieldSeasonIds)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) GetDetail(ctx context.Context, fieldSeasonId int64) (domain.FieldSeasonDetail, error) {
	fi.Calls.GetDetail = append(fi.Calls.GetDetail, fieldSeasonId)
	if fi.Impl.GetDetail != nil {
		return fi.Impl.GetDetail(ctx, fieldSeasonId)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Crops(ctx context.Context) ([]domain.Crop, error) {
	fi.Calls.Crops = append(fi.Calls.Crops, struct{}{})
	if fi.Impl.Crops != nil {
		return fi.Impl.Crops(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Varieties(ctx context.Context, crop string) ([]domain.Variety, error) {
	fi.Calls.Varieties = append(fi.Calls.Varieties, struct{ Crop string }{Crop: crop})
	if fi.Impl.Varieties != nil {
		return fi.Impl.Varieties(ctx, crop)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Seasons(ctx context.Context) ([]domain.Season, error) {
	fi.Calls.Seasons = append(fi.Calls.Seasons, struct{}{})
	if fi.Impl.Seasons != nil {
		return fi.Impl.Seasons(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (fi *FieldInterface) Overview(ctx context.Context) (domain.Overview, error) {
	fi.Calls.Overview = append(fi.Calls.Overview, struct{}{})
	if fi.Impl.Overview != nil {
		return fi.Impl.Overview(ctx)
	}
	panic(errors.New("it should not be called"))
}
