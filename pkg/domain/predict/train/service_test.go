package train_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cropbase/cropbase/pkg/domain"
	modelmocks "github.com/cropbase/cropbase/pkg/domain/model/db/mock"
	kdbprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	predictionmocks "github.com/cropbase/cropbase/pkg/domain/prediction/db/mock"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/domain/predict/train"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
)

type savedArtifact struct {
	tag      string
	artifact predict.Artifact
	features predict.FeatureSpec
	metrics  map[string]float64
	params   map[string]float64
}

type fakeSaver struct {
	saved []savedArtifact
	err   error
}

func (s *fakeSaver) Save(
	tag string, artifact predict.Artifact, features predict.FeatureSpec,
	metrics map[string]float64, params map[string]float64,
) error {
	s.saved = append(s.saved, savedArtifact{
		tag: tag, artifact: artifact, features: features,
		metrics: metrics, params: params,
	})
	return s.err
}

func serviceRows(n int) []domain.TrainingRow {
	rows := make([]domain.TrainingRow, n)
	for i := range rows {
		rows[i] = domain.TrainingRow{
			FieldSeasonId: int64(i + 1),
			YieldBuAc:     150 + float64(i%20),
			Acres:         pointer.Ref(float64(40 + i%5)),
			SeasonYear:    2020 + i%4,
			Crop:          "corn",
			TotalNPerAc:   pointer.Ref(float64(100 + i)),
		}
	}
	return rows
}

func quickParams() train.Params {
	p := train.DefaultParams()
	p.NEstimators = 5
	p.MaxDepth = 2
	return p
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("a successful run registers and stores the model", func(t *testing.T) {
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error {
			return nil
		}
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error {
			return nil
		}
		mockModel.Impl.Register = func(_ context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
			version.ModelVersionId = 11
			return version, nil
		}

		mockPrediction := predictionmocks.NewPredictionInterface()
		var filter kdbprediction.TrainingMatrixFilter
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, f kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			filter = f
			return serviceRows(40), nil
		}

		saver := &fakeSaver{}
		svc := train.NewService(mockModel, mockPrediction, saver)

		notes := "first cut"
		req := train.Request{
			Params:     quickParams(),
			Filter:     kdbprediction.TrainingMatrixFilter{SeasonFrom: 2020, MinQuality: 0.5},
			VersionTag: "gbt-test-1",
			Notes:      &notes,
			CreatedBy:  pointer.Ref("agronomist"),
		}
		version, run, err := svc.Run(ctx, req)
		if err != nil {
			t.Fatal(err)
		}

		if version.VersionTag != "gbt-test-1" || version.ModelVersionId != 11 {
			t.Errorf("unexpected version: %+v", version)
		}
		if version.ModelType != train.ModelTypeGBT {
			t.Errorf("unexpected model type: %s", version.ModelType)
		}
		if version.TrainingDataRange == nil || *version.TrainingDataRange != "2020-2023" {
			t.Errorf("unexpected data range: %+v", version.TrainingDataRange)
		}
		if _, ok := version.Metrics["val_rmse"]; !ok {
			t.Errorf("metrics lack val_rmse: %+v", version.Metrics)
		}
		if filter.SeasonFrom != 2020 || filter.MinQuality != 0.5 {
			t.Errorf("filter not passed through: %+v", filter)
		}

		if run.Status != domain.TrainingCompleted {
			t.Errorf("unexpected run status: %s", run.Status)
		}
		if run.RunId == "" || run.CompletedAt == nil || run.DurationSeconds == nil {
			t.Errorf("run record incomplete: %+v", run)
		}
		if run.DatasetHash == nil || *run.DatasetHash == "" {
			t.Error("dataset hash is not recorded")
		}
		if run.TrainingRecords == nil || run.ValidationRecords == nil ||
			*run.TrainingRecords+*run.ValidationRecords != 40 {
			t.Errorf("split sizes do not add up: %+v", run)
		}
		if run.ModelVersionId == nil || *run.ModelVersionId != 11 {
			t.Errorf("run is not linked to the version: %+v", run.ModelVersionId)
		}

		if len(saver.saved) != 1 {
			t.Fatalf("unexpected save count: %d", len(saver.saved))
		}
		if saver.saved[0].tag != "gbt-test-1" {
			t.Errorf("unexpected saved tag: %s", saver.saved[0].tag)
		}
		if saver.saved[0].params["n_estimators"] != 5 {
			t.Errorf("params not propagated: %+v", saver.saved[0].params)
		}
		if mockModel.Calls.SetProduction.Times() != 0 {
			t.Error("version was promoted without request")
		}
	})

	t.Run("an empty tag is generated from the clock", func(t *testing.T) {
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.Register = func(_ context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
			return version, nil
		}
		mockPrediction := predictionmocks.NewPredictionInterface()
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, _ kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			return serviceRows(20), nil
		}

		svc := train.NewService(mockModel, mockPrediction, &fakeSaver{})
		version, _, err := svc.Run(ctx, train.Request{Params: quickParams()})
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("%s-", train.ModelTypeGBT)
		if len(version.VersionTag) != len(want)+len("20060102-150405") ||
			version.VersionTag[:len(want)] != want {
			t.Errorf("unexpected generated tag: %s", version.VersionTag)
		}
	})

	t.Run("promote flips the new version to production", func(t *testing.T) {
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.Register = func(_ context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
			return version, nil
		}
		mockModel.Impl.SetProduction = func(_ context.Context, tag string) (domain.ModelVersion, error) {
			return domain.ModelVersion{VersionTag: tag, IsProduction: true}, nil
		}
		mockPrediction := predictionmocks.NewPredictionInterface()
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, _ kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			return serviceRows(20), nil
		}

		svc := train.NewService(mockModel, mockPrediction, &fakeSaver{})
		version, _, err := svc.Run(ctx, train.Request{
			Params: quickParams(), VersionTag: "gbt-promoted", Promote: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if !version.IsProduction {
			t.Errorf("version is not production: %+v", version)
		}
		if mockModel.Calls.SetProduction.Times() != 1 {
			t.Errorf("unexpected promote calls: %d", mockModel.Calls.SetProduction.Times())
		}
	})

	t.Run("backfill stores a prediction per training row", func(t *testing.T) {
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.Register = func(_ context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
			version.ModelVersionId = 7
			return version, nil
		}
		mockPrediction := predictionmocks.NewPredictionInterface()
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, _ kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			return serviceRows(20), nil
		}
		stored := map[int64]domain.Prediction{}
		mockPrediction.Impl.Upsert = func(_ context.Context, p domain.Prediction) (domain.Prediction, error) {
			stored[p.FieldSeasonId] = p
			return p, nil
		}

		svc := train.NewService(mockModel, mockPrediction, &fakeSaver{})
		_, _, err := svc.Run(ctx, train.Request{
			Params: quickParams(), VersionTag: "gbt-backfilled", Backfill: true,
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(stored) != 20 {
			t.Fatalf("unexpected stored count: %d", len(stored))
		}
		for id, p := range stored {
			if p.ModelVersionId != 7 {
				t.Errorf("prediction %d is not linked to the version: %+v", id, p)
			}
			if p.ConfidenceLower == nil || p.ConfidenceUpper == nil {
				t.Errorf("prediction %d lacks the interval: %+v", id, p)
			} else if *p.ConfidenceUpper <= *p.ConfidenceLower {
				t.Errorf("prediction %d has an inverted interval: %+v", id, p)
			}
		}
	})

	t.Run("too few rows fails the run record", func(t *testing.T) {
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		var finished domain.TrainingRun
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, run domain.TrainingRun) error {
			finished = run
			return nil
		}
		mockPrediction := predictionmocks.NewPredictionInterface()
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, _ kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			return serviceRows(3), nil
		}

		svc := train.NewService(mockModel, mockPrediction, &fakeSaver{})
		_, run, err := svc.Run(ctx, train.Request{Params: quickParams()})
		if err == nil {
			t.Fatal("run did not fail")
		}
		if run.Status != domain.TrainingFailed || run.ErrorMessage == nil {
			t.Errorf("run record does not carry the failure: %+v", run)
		}
		if finished.Status != domain.TrainingFailed {
			t.Errorf("finished record: %+v", finished)
		}
		if mockModel.Calls.Register.Times() != 0 {
			t.Error("a failed run registered a version")
		}
	})

	t.Run("a registry conflict surfaces to the caller", func(t *testing.T) {
		conflict := errors.New("version tag taken")
		mockModel := modelmocks.NewModelInterface()
		mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
		mockModel.Impl.Register = func(_ context.Context, _ domain.ModelVersion) (domain.ModelVersion, error) {
			return domain.ModelVersion{}, conflict
		}
		mockPrediction := predictionmocks.NewPredictionInterface()
		mockPrediction.Impl.TrainingMatrix = func(
			_ context.Context, _ kdbprediction.TrainingMatrixFilter,
		) ([]domain.TrainingRow, error) {
			return serviceRows(20), nil
		}

		saver := &fakeSaver{}
		svc := train.NewService(mockModel, mockPrediction, saver)
		_, run, err := svc.Run(ctx, train.Request{Params: quickParams(), VersionTag: "dup"})
		if !errors.Is(err, conflict) {
			t.Errorf("unexpected error: %v", err)
		}
		if run.Status != domain.TrainingFailed {
			t.Errorf("unexpected run status: %s", run.Status)
		}
		if len(saver.saved) != 0 {
			t.Error("artifacts were stored despite the conflict")
		}
	})
}

func TestService_Run_timestamps(t *testing.T) {
	// Run uses the wall clock; completion must not precede start.
	mockModel := modelmocks.NewModelInterface()
	mockModel.Impl.AddTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
	mockModel.Impl.FinishTrainingRun = func(_ context.Context, _ domain.TrainingRun) error { return nil }
	mockModel.Impl.Register = func(_ context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
		return version, nil
	}
	mockPrediction := predictionmocks.NewPredictionInterface()
	mockPrediction.Impl.TrainingMatrix = func(
		_ context.Context, _ kdbprediction.TrainingMatrixFilter,
	) ([]domain.TrainingRow, error) {
		return serviceRows(20), nil
	}

	svc := train.NewService(mockModel, mockPrediction, &fakeSaver{})
	before := time.Now()
	_, run, err := svc.Run(context.Background(), train.Request{Params: quickParams()})
	if err != nil {
		t.Fatal(err)
	}
	if run.StartedAt.Before(before.Add(-time.Second)) {
		t.Errorf("start time drifted: %s", run.StartedAt)
	}
	if run.CompletedAt.Before(run.StartedAt) {
		t.Errorf("completion precedes start: %+v", run)
	}
}
