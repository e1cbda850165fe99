package domain

import (
	"time"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
)

// FeatureContribution names one feature's share in a prediction.
//
// Weight is normalized so that all contributions of a prediction sum to 1.
type FeatureContribution struct {
	Feature   string
	Weight    float64
	Direction string
}

// Prediction is a persisted model output for a field-season.
//
// (FieldSeasonId, ModelVersionId) is unique.
type Prediction struct {
	PredictionId    int64
	FieldSeasonId   int64
	ModelVersionId  int64
	PredictedYield  float64
	ConfidenceLower *float64
	ConfidenceUpper *float64
	Contributions   []FeatureContribution
	RegionalAvg     *float64
	RegionalStd     *float64
	CreatedAt       time.Time
}

func (p *Prediction) Equal(o *Prediction) bool {
	if (p == nil) || (o == nil) {
		return (p == nil) && (o == nil)
	}
	return p.PredictionId == o.PredictionId &&
		p.FieldSeasonId == o.FieldSeasonId &&
		p.ModelVersionId == o.ModelVersionId &&
		p.PredictedYield == o.PredictedYield &&
		cmp.PEqEq(p.ConfidenceLower, o.ConfidenceLower) &&
		cmp.PEqEq(p.ConfidenceUpper, o.ConfidenceUpper) &&
		cmp.SliceEq(p.Contributions, o.Contributions) &&
		cmp.PEqEq(p.RegionalAvg, o.RegionalAvg) &&
		cmp.PEqEq(p.RegionalStd, o.RegionalStd) &&
		p.CreatedAt.Equal(o.CreatedAt)
}

// TrainingRow is one observation of the training matrix: a field-season with
// an observed yield, its numeric inputs and event-type aggregates.
type TrainingRow struct {
	FieldSeasonId int64
	YieldBuAc     float64
	Acres         *float64
	Lat           *float64
	Lon           *float64
	SeasonYear    int
	Crop          string
	Variety       *string
	State         *string
	County        *string
	TotalNPerAc   *float64
	TotalPPerAc   *float64
	TotalKPerAc   *float64
	WaterTotalMm  *float64
	EventCount    int
	SprayCount    int
	TillageCount  int
	FertCount     int
}
