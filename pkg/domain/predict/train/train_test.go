package train_test

import (
	"context"
	"math"
	"testing"

	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/domain/predict/train"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
)

// yields follow nitrogen linearly, with a crop offset.
func syntheticRows(n int) []domain.TrainingRow {
	rows := make([]domain.TrainingRow, 0, n)
	for i := 0; i < n; i += 1 {
		nitrogen := float64(50 + (i*7)%150)
		crop := "corn"
		offset := 0.0
		if i%3 == 0 {
			crop = "soybean"
			offset = -40
		}
		rows = append(rows, domain.TrainingRow{
			FieldSeasonId: int64(i + 1),
			YieldBuAc:     80 + 0.5*nitrogen + offset,
			Acres:         pointer.Ref(float64(40 + i%20)),
			SeasonYear:    2020 + i%4,
			Crop:          crop,
			TotalNPerAc:   pointer.Ref(nitrogen),
			EventCount:    i % 5,
		})
	}
	return rows
}

func smallParams() train.Params {
	p := train.DefaultParams()
	p.NEstimators = 30
	p.MaxDepth = 3
	p.MinSamplesLeaf = 2
	p.LearningRate = 0.3
	return p
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	t.Run("it learns a linear response well enough", func(t *testing.T) {
		rows := syntheticRows(120)
		result, err := train.Train(ctx, rows, smallParams())
		if err != nil {
			t.Fatal(err)
		}

		baseline := 0.0 // std of targets, roughly
		{
			mean := 0.0
			for _, r := range rows {
				mean += r.YieldBuAc
			}
			mean /= float64(len(rows))
			for _, r := range rows {
				baseline += (r.YieldBuAc - mean) * (r.YieldBuAc - mean)
			}
			baseline = math.Sqrt(baseline / float64(len(rows)))
		}

		if rmse := result.Metrics["train_rmse"]; baseline/2 < rmse {
			t.Errorf("train_rmse did not improve over baseline: %f (baseline %f)", rmse, baseline)
		}
		if _, ok := result.Metrics["val_rmse"]; !ok {
			t.Error("val_rmse is missing")
		}
		if r2 := result.Metrics["train_r2"]; r2 <= 0 {
			t.Errorf("train_r2 should be positive: %f", r2)
		}
		if result.TrainRows+result.ValRows != len(rows) {
			t.Errorf(
				"split sizes do not add up: %d + %d != %d",
				result.TrainRows, result.ValRows, len(rows),
			)
		}
	})

	t.Run("it is deterministic for a fixed seed", func(t *testing.T) {
		rows := syntheticRows(60)
		a, err := train.Train(ctx, rows, smallParams())
		if err != nil {
			t.Fatal(err)
		}
		b, err := train.Train(ctx, rows, smallParams())
		if err != nil {
			t.Fatal(err)
		}

		if a.Metrics["val_rmse"] != b.Metrics["val_rmse"] {
			t.Errorf(
				"val_rmse differs between runs: %f != %f",
				a.Metrics["val_rmse"], b.Metrics["val_rmse"],
			)
		}
		if a.DatasetHash != b.DatasetHash {
			t.Errorf("dataset hash differs between runs")
		}
	})

	t.Run("the artifact predicts close to its training targets", func(t *testing.T) {
		rows := syntheticRows(100)
		result, err := train.Train(ctx, rows, smallParams())
		if err != nil {
			t.Fatal(err)
		}

		row := rows[10]
		prediction := result.Artifact.Predict(
			result.Features.Vector(predict.InputOfTrainingRow(row)),
		)
		if math.Abs(prediction-row.YieldBuAc) > 30 {
			t.Errorf(
				"prediction too far off. (observed, predicted) = (%f, %f)",
				row.YieldBuAc, prediction,
			)
		}
	})

	t.Run("it rejects too small datasets", func(t *testing.T) {
		_, err := train.Train(ctx, syntheticRows(3), smallParams())
		if err == nil {
			t.Error("no error on tiny dataset")
		}
	})

	t.Run("it stops on cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := train.Train(cctx, syntheticRows(60), smallParams())
		if err == nil {
			t.Error("no error on cancelled context")
		}
	})
}

func TestDatasetHash(t *testing.T) {
	t.Run("equal rows hash equally, different rows differently", func(t *testing.T) {
		a := syntheticRows(20)
		b := syntheticRows(20)
		if train.DatasetHash(a) != train.DatasetHash(b) {
			t.Error("equal datasets hash differently")
		}

		b[0].YieldBuAc += 1
		if train.DatasetHash(a) == train.DatasetHash(b) {
			t.Error("different datasets hash equally")
		}
	})
}
