// Package predict scores field-seasons with registered tree-ensemble
// models.
package predict

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cropbase/cropbase/pkg/domain"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	kdbfield "github.com/cropbase/cropbase/pkg/domain/field/db"
	kdbmodel "github.com/cropbase/cropbase/pkg/domain/model/db"
	kdbprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	kdbstats "github.com/cropbase/cropbase/pkg/domain/stats/db"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

// ArtifactStore loads stored model artifacts by version tag.
//
// The model registry implements it.
type ArtifactStore interface {
	LoadArtifact(tag string) (Artifact, error)
	LoadFeatures(tag string) (FeatureSpec, error)
}

// ConfidenceZ is the z value of a 95% interval.
const ConfidenceZ = 1.96

const topContributions = 5

type loadedModel struct {
	artifact Artifact
	features FeatureSpec
}

type Predictor struct {
	fields      kdbfield.FieldInterface
	models      kdbmodel.ModelInterface
	predictions kdbprediction.PredictionInterface
	stats       kdbstats.StatsInterface
	store       ArtifactStore

	mu    sync.Mutex
	cache map[string]loadedModel
}

func New(
	fields kdbfield.FieldInterface,
	models kdbmodel.ModelInterface,
	predictions kdbprediction.PredictionInterface,
	stats kdbstats.StatsInterface,
	store ArtifactStore,
) *Predictor {
	return &Predictor{
		fields:      fields,
		models:      models,
		predictions: predictions,
		stats:       stats,
		store:       store,
		cache:       map[string]loadedModel{},
	}
}

func (p *Predictor) load(tag string) (loadedModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.cache[tag]; ok {
		return m, nil
	}
	artifact, err := p.store.LoadArtifact(tag)
	if err != nil {
		return loadedModel{}, err
	}
	features, err := p.store.LoadFeatures(tag)
	if err != nil {
		return loadedModel{}, err
	}
	m := loadedModel{artifact: artifact, features: features}
	p.cache[tag] = m
	return m, nil
}

// Evict drops a version's cached artifacts, if loaded.
func (p *Predictor) Evict(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, tag)
}

// resolve finds the model version to score with: the named tag, or the
// production version when tag is empty.
func (p *Predictor) resolve(ctx context.Context, tag string) (domain.ModelVersion, error) {
	if tag == "" {
		return p.models.GetProduction(ctx)
	}
	return p.models.Get(ctx, tag)
}

// InputOf assembles the model input of a season fact, aggregating its
// management events the way the training matrix does.
func InputOf(detail domain.FieldSeasonDetail) Input {
	in := Input{
		Acres:       detail.Field.Acres,
		Lat:         detail.Field.Lat,
		Lon:         detail.Field.Lon,
		SeasonYear:  detail.Season.Year,
		Crop:        detail.Crop.Name,
		State:       pointer.SafeDeref(detail.Field.State),
		County:      pointer.SafeDeref(detail.Field.County),
		TotalNPerAc: detail.TotalNPerAc,
		TotalPPerAc: detail.TotalPPerAc,
		TotalKPerAc: detail.TotalKPerAc,
	}
	if detail.Variety != nil {
		in.Variety = detail.Variety.Name
	}

	water := 0.0
	watered := false
	for _, ev := range detail.Events {
		in.EventCount += 1
		etype := strings.ToLower(ev.EventType)
		if strings.Contains(etype, "spray") {
			in.SprayCount += 1
		}
		if strings.Contains(etype, "till") {
			in.TillageCount += 1
		}
		if strings.Contains(etype, "fert") {
			in.FertCount += 1
		}
		if ev.WaterAppliedMm != nil {
			water += *ev.WaterAppliedMm
			watered = true
		}
	}
	if watered {
		in.WaterTotalMm = &water
	}
	return in
}

// PredictFieldSeason scores one season fact and stores the prediction.
//
// versionTag "" selects the production model. The stored prediction
// carries a 95% confidence interval derived from the model's validation
// RMSE, the top feature contributions and, when the fact's region has
// observed yields, the regional mean and spread for context.
func (p *Predictor) PredictFieldSeason(
	ctx context.Context, fieldSeasonId int64, versionTag string,
) (domain.Prediction, domain.ModelVersion, error) {
	version, err := p.resolve(ctx, versionTag)
	if err != nil {
		return domain.Prediction{}, domain.ModelVersion{}, err
	}
	if _, err := p.load(version.VersionTag); err != nil {
		return domain.Prediction{}, domain.ModelVersion{}, err
	}

	detail, err := p.fields.GetDetail(ctx, fieldSeasonId)
	if err != nil {
		return domain.Prediction{}, domain.ModelVersion{}, err
	}

	prediction, err := p.score(ctx, detail, version)
	if err != nil {
		return domain.Prediction{}, domain.ModelVersion{}, err
	}

	stored, err := p.predictions.Upsert(ctx, prediction)
	if err != nil {
		return domain.Prediction{}, domain.ModelVersion{}, err
	}
	return stored, version, nil
}

func (p *Predictor) score(
	ctx context.Context, detail domain.FieldSeasonDetail, version domain.ModelVersion,
) (domain.Prediction, error) {
	model, err := p.load(version.VersionTag)
	if err != nil {
		return domain.Prediction{}, err
	}

	in := InputOf(detail)
	vector := model.features.Vector(in)
	yield := model.artifact.Predict(vector)

	prediction := domain.Prediction{
		FieldSeasonId:  detail.FieldSeasonId,
		ModelVersionId: version.ModelVersionId,
		PredictedYield: yield,
		CreatedAt:      time.Now(),
	}

	if rmse, ok := version.Metrics["val_rmse"]; ok && 0 < rmse {
		prediction.ConfidenceLower = pointer.Ref(yield - ConfidenceZ*rmse)
		prediction.ConfidenceUpper = pointer.Ref(yield + ConfidenceZ*rmse)
	}

	contributions := TopContributions(
		model.artifact.Explain(model.features, vector), topContributions,
	)
	for _, c := range contributions {
		direction := "+"
		if c.Weight < 0 {
			direction = "-"
		}
		prediction.Contributions = append(prediction.Contributions, domain.FeatureContribution{
			Feature:   c.Feature,
			Weight:    c.Weight,
			Direction: direction,
		})
	}

	if in.State != "" {
		ranking, err := p.stats.Ranking(ctx, in.Crop, in.SeasonYear, in.State, yield)
		if err == nil {
			prediction.RegionalAvg = pointer.Ref(ranking.Mean)
			prediction.RegionalStd = pointer.Ref(ranking.Std)
		} else if !errors.Is(err, kerr.ErrMissing) {
			return domain.Prediction{}, err
		}
	}

	return prediction, nil
}

// BatchItem is the outcome of one season fact within a batch.
type BatchItem struct {
	FieldSeasonId int64
	Prediction    domain.Prediction
	Err           error
}

// PredictBatch scores many season facts with one model, continuing past
// per-fact failures.
//
// Items come back in the order of fieldSeasonIds. The error return is
// reserved for failures that abort the whole batch, like an unknown
// model version.
func (p *Predictor) PredictBatch(
	ctx context.Context, fieldSeasonIds []int64, versionTag string,
) ([]BatchItem, domain.ModelVersion, error) {
	version, err := p.resolve(ctx, versionTag)
	if err != nil {
		return nil, domain.ModelVersion{}, err
	}
	if _, err := p.load(version.VersionTag); err != nil {
		return nil, domain.ModelVersion{}, err
	}

	items := make([]BatchItem, 0, len(fieldSeasonIds))
	for _, id := range fieldSeasonIds {
		if err := ctx.Err(); err != nil {
			return nil, domain.ModelVersion{}, xe.Wrap(err)
		}
		item := BatchItem{FieldSeasonId: id}

		detail, err := p.fields.GetDetail(ctx, id)
		if err != nil {
			item.Err = err
			items = append(items, item)
			continue
		}
		prediction, err := p.score(ctx, detail, version)
		if err != nil {
			item.Err = err
			items = append(items, item)
			continue
		}
		stored, err := p.predictions.Upsert(ctx, prediction)
		if err != nil {
			item.Err = err
		} else {
			item.Prediction = stored
		}
		items = append(items, item)
	}
	return items, version, nil
}
