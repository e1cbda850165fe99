package train

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cropbase/cropbase/pkg/domain"
	kdbmodel "github.com/cropbase/cropbase/pkg/domain/model/db"
	kdbprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
)

// ArtifactSaver persists the artifact set of a freshly trained version.
//
// The model registry implements it.
type ArtifactSaver interface {
	Save(
		tag string,
		artifact predict.Artifact,
		features predict.FeatureSpec,
		metrics map[string]float64,
		params map[string]float64,
	) error
}

type Request struct {
	Params Params
	Filter kdbprediction.TrainingMatrixFilter

	// VersionTag of the new model. Empty means generated from the clock.
	VersionTag string

	Notes     *string
	CreatedBy *string

	// Promote the new version to production on success.
	Promote bool

	// Backfill stores a prediction for every training row under the new
	// version.
	Backfill bool
}

type Service struct {
	models      kdbmodel.ModelInterface
	predictions kdbprediction.PredictionInterface
	saver       ArtifactSaver
	now         func() time.Time
}

func NewService(
	models kdbmodel.ModelInterface,
	predictions kdbprediction.PredictionInterface,
	saver ArtifactSaver,
) *Service {
	return &Service{
		models:      models,
		predictions: predictions,
		saver:       saver,
		now:         time.Now,
	}
}

const ModelTypeGBT = predict.ModelTypeGBT

// Run executes one training run end to end: pull the training matrix,
// fit the ensemble, register the version, store its artifacts and record
// the run. Failures after the run record is written are reported into
// that record.
func (s *Service) Run(ctx context.Context, req Request) (domain.ModelVersion, domain.TrainingRun, error) {
	startedAt := s.now()
	run := domain.TrainingRun{
		RunId:     uuid.NewString(),
		Status:    domain.TrainingRunning,
		StartedAt: startedAt,
	}
	if err := s.models.AddTrainingRun(ctx, run); err != nil {
		return domain.ModelVersion{}, domain.TrainingRun{}, err
	}

	version, err := s.train(ctx, req, &run)

	run.CompletedAt = pointer.Ref(s.now())
	run.DurationSeconds = pointer.Ref(run.CompletedAt.Sub(startedAt).Seconds())
	if err != nil {
		run.Status = domain.TrainingFailed
		run.ErrorMessage = pointer.Ref(err.Error())
	} else {
		run.Status = domain.TrainingCompleted
	}
	if ferr := s.models.FinishTrainingRun(ctx, run); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return domain.ModelVersion{}, run, err
	}

	if req.Promote {
		version, err = s.models.SetProduction(ctx, version.VersionTag)
		if err != nil {
			return domain.ModelVersion{}, run, err
		}
	}
	return version, run, nil
}

func (s *Service) train(
	ctx context.Context, req Request, run *domain.TrainingRun,
) (domain.ModelVersion, error) {
	rows, err := s.predictions.TrainingMatrix(ctx, req.Filter)
	if err != nil {
		return domain.ModelVersion{}, err
	}

	result, err := Train(ctx, rows, req.Params)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	run.DatasetHash = pointer.Ref(result.DatasetHash)
	run.TrainingRecords = pointer.Ref(result.TrainRows)
	run.ValidationRecords = pointer.Ref(result.ValRows)

	tag := req.VersionTag
	if tag == "" {
		tag = fmt.Sprintf("%s-%s", ModelTypeGBT, s.now().Format("20060102-150405"))
	}

	version := domain.ModelVersion{
		VersionTag:        tag,
		ModelType:         ModelTypeGBT,
		Params:            req.Params.AsMap(),
		TrainingDataRange: seasonRangeOf(rows),
		Metrics:           result.Metrics,
		TrainedAt:         s.now(),
		Features:          result.Features.Names,
		Preprocessing:     pointer.Ref("frequency-encoding"),
		Notes:             req.Notes,
		CreatedBy:         req.CreatedBy,
	}
	registered, err := s.models.Register(ctx, version)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	run.ModelVersionId = pointer.Ref(registered.ModelVersionId)

	if err := s.saver.Save(
		tag, result.Artifact, result.Features, result.Metrics, req.Params.AsMap(),
	); err != nil {
		return domain.ModelVersion{}, err
	}

	if req.Backfill {
		if err := s.backfill(ctx, registered, result, rows); err != nil {
			return domain.ModelVersion{}, err
		}
	}
	return registered, nil
}

// backfill stores a prediction for each training row scored by the new
// version. val_rmse is known here, so the interval matches serving.
func (s *Service) backfill(
	ctx context.Context,
	version domain.ModelVersion,
	result Result,
	rows []domain.TrainingRow,
) error {
	rmse := result.Metrics["val_rmse"]
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		yield := result.Artifact.Predict(
			result.Features.Vector(predict.InputOfTrainingRow(row)),
		)
		prediction := domain.Prediction{
			FieldSeasonId:  row.FieldSeasonId,
			ModelVersionId: version.ModelVersionId,
			PredictedYield: yield,
			CreatedAt:      s.now(),
		}
		if 0 < rmse {
			prediction.ConfidenceLower = pointer.Ref(yield - predict.ConfidenceZ*rmse)
			prediction.ConfidenceUpper = pointer.Ref(yield + predict.ConfidenceZ*rmse)
		}
		if _, err := s.predictions.Upsert(ctx, prediction); err != nil {
			return err
		}
	}
	return nil
}

func seasonRangeOf(rows []domain.TrainingRow) *string {
	if len(rows) == 0 {
		return nil
	}
	min, max := rows[0].SeasonYear, rows[0].SeasonYear
	for _, row := range rows[1:] {
		if row.SeasonYear < min {
			min = row.SeasonYear
		}
		if max < row.SeasonYear {
			max = row.SeasonYear
		}
	}
	return pointer.Ref(fmt.Sprintf("%d-%d", min, max))
}
