package mocks

import (
	"context"
	"errors"

	"github.com/cropbase/cropbase/pkg/domain"
	dbmock "github.com/cropbase/cropbase/pkg/domain/internal/db/mock"
	pdb "github.com/cropbase/cropbase/pkg/domain/prediction/db"
)

type PredictionInterface struct {
	Impl struct {
		Upsert         func(context.Context, domain.Prediction) (domain.Prediction, error)
		ByFieldSeason  func(context.Context, int64) ([]domain.Prediction, error)
		LatestFor      func(context.Context, int64) (domain.Prediction, error)
		TrainingMatrix func(context.Context, pdb.TrainingMatrixFilter) ([]domain.TrainingRow, error)
		Performance    func(context.Context) ([]pdb.ModelPerformance, error)
	}
	Calls struct {
		Upsert         dbmock.CallLog[domain.Prediction]
		ByFieldSeason  dbmock.CallLog[struct{ FieldSeasonId int64 }]
		LatestFor      dbmock.CallLog[struct{ FieldSeasonId int64 }]
		TrainingMatrix dbmock.CallLog[pdb.TrainingMatrixFilter]
		Performance    dbmock.CallLog[struct{}]
	}
}

func NewPredictionInterface() *PredictionInterface {
	return &PredictionInterface{}
}

var _ pdb.PredictionInterface = &PredictionInterface{}

func (pi *PredictionInterface) Upsert(ctx context.Context, prediction domain.Prediction) (domain.Prediction, error) {
	pi.Calls.Upsert = append(pi.Calls.Upsert, prediction)
	if pi.Impl.Upsert != nil {
		return pi.Impl.Upsert(ctx, prediction)
	}
	panic(errors.New("it should not be called"))
}

func (pi *PredictionInterface) ByFieldSeason(ctx context.Context, fieldSeasonId int64) ([]domain.Prediction, error) {
	pi.Calls.ByFieldSeason = append(pi.Calls.ByFieldSeason, struct{ FieldSeasonId int64 }{FieldSeasonId: fieldSeasonId})
	if pi.Impl.ByFieldSeason != nil {
		return pi.Impl.ByFieldSeason(ctx, fieldSeasonId)
	}
	panic(errors.New("it should not be called"))
}

func (pi *PredictionInterface) LatestFor(ctx context.Context, fieldSeasonId int64) (domain.Prediction, error) {
	pi.Calls.LatestFor = append(pi.Calls.LatestFor, struct{ FieldSeasonId int64 }{FieldSeasonId: fieldSeasonId})
	if pi.Impl.LatestFor != nil {
		return pi.Impl.LatestFor(ctx, fieldSeasonId)
	}
	panic(errors.New("it should not be called"))
}

func (pi *PredictionInterface) TrainingMatrix(ctx context.Context, filter pdb.TrainingMatrixFilter) ([]domain.TrainingRow, error) {
	pi.Calls.TrainingMatrix = append(pi.Calls.TrainingMatrix, filter)
	if pi.Impl.TrainingMatrix != nil {
		return pi.Impl.TrainingMatrix(ctx, filter)
	}
	panic(errors.New("it should not be called"))
}

func (pi *PredictionInterface) Performance(ctx context.Context) ([]pdb.ModelPerformance, error) {
	pi.Calls.Performance = append(pi.Calls.Performance, struct{}{})
	if pi.Impl.Performance != nil {
		return pi.Impl.Performance(ctx)
	}
	panic(errors.New("it should not be called"))
}
