// Package train fits gradient boosted regression trees for yield
// prediction.
package train

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"math/rand"

	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

type Params struct {
	NEstimators    int     `json:"nEstimators"`
	LearningRate   float64 `json:"learningRate"`
	MaxDepth       int     `json:"maxDepth"`
	MinSamplesLeaf int     `json:"minSamplesLeaf"`
	ValFraction    float64 `json:"valFraction"`
	Seed           int64   `json:"seed"`
}

func DefaultParams() Params {
	return Params{
		NEstimators:    500,
		LearningRate:   0.05,
		MaxDepth:       6,
		MinSamplesLeaf: 20,
		ValFraction:    0.2,
		Seed:           42,
	}
}

func (p Params) AsMap() map[string]float64 {
	return map[string]float64{
		"n_estimators":     float64(p.NEstimators),
		"learning_rate":    p.LearningRate,
		"max_depth":        float64(p.MaxDepth),
		"min_samples_leaf": float64(p.MinSamplesLeaf),
		"val_fraction":     p.ValFraction,
		"seed":             float64(p.Seed),
	}
}

type Result struct {
	Artifact    predict.Artifact
	Features    predict.FeatureSpec
	Metrics     map[string]float64
	DatasetHash string
	TrainRows   int
	ValRows     int
}

const MinTrainingRows = 10

// DatasetHash fingerprints a training dataset. Equal row sets in equal
// order hash equally, so reruns on unchanged data are detectable.
func DatasetHash(rows []domain.TrainingRow) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, row := range rows {
		_ = enc.Encode(row)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Train fits an ensemble on the rows.
//
// Rows are split into train/validation by the seeded permutation;
// metrics report both splits. ctx cancellation aborts between boosting
// rounds.
func Train(ctx context.Context, rows []domain.TrainingRow, params Params) (Result, error) {
	if len(rows) < MinTrainingRows {
		return Result{}, xe.Errorf(
			"not enough training rows: %d (at least %d needed)",
			len(rows), MinTrainingRows,
		)
	}

	rng := rand.New(rand.NewSource(params.Seed))
	perm := rng.Perm(len(rows))
	nVal := int(float64(len(rows)) * params.ValFraction)
	if nVal < 1 {
		nVal = 1
	}
	if len(rows)-nVal < 2 {
		return Result{}, xe.Errorf("not enough rows left for training after validation split")
	}

	trainRows := make([]domain.TrainingRow, 0, len(rows)-nVal)
	valRows := make([]domain.TrainingRow, 0, nVal)
	for i, p := range perm {
		if i < nVal {
			valRows = append(valRows, rows[p])
		} else {
			trainRows = append(trainRows, rows[p])
		}
	}

	inputs := make([]predict.Input, len(trainRows))
	for i, row := range trainRows {
		inputs[i] = predict.InputOfTrainingRow(row)
	}
	spec := predict.NewFeatureSpec(inputs)

	features := make([][]float64, len(trainRows))
	targets := make([]float64, len(trainRows))
	for i, row := range trainRows {
		features[i] = spec.Vector(inputs[i])
		targets[i] = row.YieldBuAc
	}

	base := 0.0
	for _, y := range targets {
		base += y
	}
	base /= float64(len(targets))

	artifact := predict.Artifact{
		ModelType: predict.ModelTypeGBT,
		BaseScore: base,
		Trees:     make([]predict.Tree, 0, params.NEstimators),
	}

	scores := make([]float64, len(targets))
	for i := range scores {
		scores[i] = base
	}
	residuals := make([]float64, len(targets))
	for round := 0; round < params.NEstimators; round += 1 {
		if err := ctx.Err(); err != nil {
			return Result{}, xe.Wrap(err)
		}
		for i := range residuals {
			residuals[i] = targets[i] - scores[i]
		}
		tree := buildTree(
			features, residuals,
			params.MaxDepth, params.MinSamplesLeaf, params.LearningRate,
		)
		artifact.Trees = append(artifact.Trees, tree)
		for i := range scores {
			scores[i] += tree.LeafOf(features[i]).Weight
		}
	}

	metrics := map[string]float64{}
	evaluate(artifact, spec, trainRows, "train", metrics)
	evaluate(artifact, spec, valRows, "val", metrics)

	return Result{
		Artifact:    artifact,
		Features:    spec,
		Metrics:     metrics,
		DatasetHash: DatasetHash(rows),
		TrainRows:   len(trainRows),
		ValRows:     len(valRows),
	}, nil
}

func evaluate(
	artifact predict.Artifact, spec predict.FeatureSpec,
	rows []domain.TrainingRow, prefix string, into map[string]float64,
) {
	if len(rows) == 0 {
		return
	}
	sse, sae, ySum := 0.0, 0.0, 0.0
	preds := make([]float64, len(rows))
	for i, row := range rows {
		preds[i] = artifact.Predict(spec.Vector(predict.InputOfTrainingRow(row)))
		diff := row.YieldBuAc - preds[i]
		sse += diff * diff
		sae += math.Abs(diff)
		ySum += row.YieldBuAc
	}
	n := float64(len(rows))
	mean := ySum / n
	sst := 0.0
	for _, row := range rows {
		d := row.YieldBuAc - mean
		sst += d * d
	}

	into[prefix+"_rmse"] = math.Sqrt(sse / n)
	into[prefix+"_mae"] = sae / n
	if sst == 0 {
		into[prefix+"_r2"] = 0
	} else {
		into[prefix+"_r2"] = 1 - sse/sst
	}
}
