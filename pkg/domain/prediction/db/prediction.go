package db

import (
	"context"

	"github.com/cropbase/cropbase/pkg/domain"
)

// TrainingMatrixFilter narrows which season facts feed the trainer.
type TrainingMatrixFilter struct {
	// inclusive season year range. Zero means unbounded.
	SeasonFrom int
	SeasonTo   int

	// minimum data_quality_score; facts without a score pass.
	MinQuality float64
}

type PredictionInterface interface {
	// Store a prediction. On conflict of (field_season, model_version) the
	// existing row is replaced.
	Upsert(ctx context.Context, prediction domain.Prediction) (domain.Prediction, error)

	// All predictions of a season fact, newest first.
	ByFieldSeason(ctx context.Context, fieldSeasonId int64) ([]domain.Prediction, error)

	// The newest prediction of a season fact.
	//
	// Returns error wrapping domain ErrMissing when there is none.
	LatestFor(ctx context.Context, fieldSeasonId int64) (domain.Prediction, error)

	// Observed-yield rows joined with event aggregates, for training.
	TrainingMatrix(ctx context.Context, filter TrainingMatrixFilter) ([]domain.TrainingRow, error)

	// Prediction accuracy per model version: metrics over facts having both
	// an observed and a predicted yield.
	Performance(ctx context.Context) ([]ModelPerformance, error)
}

// ModelPerformance is observed-vs-predicted accuracy of one model version.
type ModelPerformance struct {
	VersionTag string
	ModelType  string
	N          int
	RMSE       float64
	MAE        float64
	Bias       float64
}
