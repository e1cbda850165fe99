package mocks

import (
	"context"
	"errors"

	"github.com/cropbase/cropbase/pkg/domain"
	dbmock "github.com/cropbase/cropbase/pkg/domain/internal/db/mock"
	mdb "github.com/cropbase/cropbase/pkg/domain/model/db"
)

type ModelInterface struct {
	Impl struct {
		Register          func(context.Context, domain.ModelVersion) (domain.ModelVersion, error)
		Get               func(context.Context, string) (domain.ModelVersion, error)
		Find              func(context.Context, bool) ([]domain.ModelVersion, error)
		SetProduction     func(context.Context, string) (domain.ModelVersion, error)
		GetProduction     func(context.Context) (domain.ModelVersion, error)
		Delete            func(context.Context, string) error
		AddTrainingRun    func(context.Context, domain.TrainingRun) error
		FinishTrainingRun func(context.Context, domain.TrainingRun) error
		TrainingRunsFor   func(context.Context, int64) ([]domain.TrainingRun, error)
	}
	Calls struct {
		Register          dbmock.CallLog[domain.ModelVersion]
		Get               dbmock.CallLog[struct{ VersionTag string }]
		Find              dbmock.CallLog[struct{ LatestPerType bool }]
		SetProduction     dbmock.CallLog[struct{ VersionTag string }]
		GetProduction     dbmock.CallLog[struct{}]
		Delete            dbmock.CallLog[struct{ VersionTag string }]
		AddTrainingRun    dbmock.CallLog[domain.TrainingRun]
		FinishTrainingRun dbmock.CallLog[domain.TrainingRun]
		TrainingRunsFor   dbmock.CallLog[struct{ ModelVersionId int64 }]
	}
}

func NewModelInterface() *ModelInterface {
	return &ModelInterface{}
}

var _ mdb.ModelInterface = &ModelInterface{}

func (mi *ModelInterface) Register(ctx context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
	mi.Calls.Register = append(mi.Calls.Register, version)
	if mi.Impl.Register != nil {
		return mi.Impl.Register(ctx, version)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) Get(ctx context.Context, versionTag string) (domain.ModelVersion, error) {
	mi.Calls.Get = append(mi.Calls.Get, struct{ VersionTag string }{VersionTag: versionTag})
	if mi.Impl.Get != nil {
		return mi.Impl.Get(ctx, versionTag)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) Find(ctx context.Context, latestPerType bool) ([]domain.ModelVersion, error) {
	mi.Calls.Find = append(mi.Calls.Find, struct{ LatestPerType bool }{LatestPerType: latestPerType})
	if mi.Impl.Find != nil {
		return mi.Impl.Find(ctx, latestPerType)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) SetProduction(ctx context.Context, versionTag string) (domain.ModelVersion, error) {
	mi.Calls.SetProduction = append(mi.Calls.SetProduction, struct{ VersionTag string }{VersionTag: versionTag})
	if mi.Impl.SetProduction != nil {
		return mi.Impl.SetProduction(ctx, versionTag)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) GetProduction(ctx context.Context) (domain.ModelVersion, error) {
	mi.Calls.GetProduction = append(mi.Calls.GetProduction, struct{}{})
	if mi.Impl.GetProduction != nil {
		return mi.Impl.GetProduction(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) Delete(ctx context.Context, versionTag string) error {
	mi.Calls.Delete = append(mi.Calls.Delete, struct{ VersionTag string }{VersionTag: versionTag})
	if mi.Impl.Delete != nil {
		return mi.Impl.Delete(ctx, versionTag)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) AddTrainingRun(ctx context.Context, run domain.TrainingRun) error {
	mi.Calls.AddTrainingRun = append(mi.Calls.AddTrainingRun, run)
	if mi.Impl.AddTrainingRun != nil {
		return mi.Impl.AddTrainingRun(ctx, run)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) FinishTrainingRun(ctx context.Context, run domain.TrainingRun) error {
	mi.Calls.FinishTrainingRun = append(mi.Calls.FinishTrainingRun, run)
	if mi.Impl.FinishTrainingRun != nil {
		return mi.Impl.FinishTrainingRun(ctx, run)
	}
	panic(errors.New("it should not be called"))
}

func (mi *ModelInterface) TrainingRunsFor(ctx context.Context, modelVersionId int64) ([]domain.TrainingRun, error) {
	mi.Calls.TrainingRunsFor = append(mi.Calls.TrainingRunsFor, struct{ ModelVersionId int64 }{ModelVersionId: modelVersionId})
	if mi.Impl.TrainingRunsFor != nil {
		return mi.Impl.TrainingRunsFor(ctx, modelVersionId)
	}
	panic(errors.New("it should not be called"))
}
