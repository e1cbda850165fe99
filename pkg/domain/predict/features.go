package predict

import (
	"math"

	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
)

// Input is one field-season to be predicted.
//
// Nil numerics are "unknown" and routed by the trees' default directions.
type Input struct {
	Acres        *float64 `json:"acres,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	SeasonYear   int      `json:"seasonYear"`
	Crop         string   `json:"crop"`
	Variety      string   `json:"variety,omitempty"`
	State        string   `json:"state,omitempty"`
	County       string   `json:"county,omitempty"`
	TotalNPerAc  *float64 `json:"totalNPerAc,omitempty"`
	TotalPPerAc  *float64 `json:"totalPPerAc,omitempty"`
	TotalKPerAc  *float64 `json:"totalKPerAc,omitempty"`
	WaterTotalMm *float64 `json:"waterTotalMm,omitempty"`
	EventCount   int      `json:"eventCount"`
	SprayCount   int      `json:"sprayCount"`
	TillageCount int      `json:"tillageCount"`
	FertCount    int      `json:"fertCount"`
}

func InputOfTrainingRow(row domain.TrainingRow) Input {
	return Input{
		Acres:        row.Acres,
		Lat:          row.Lat,
		Lon:          row.Lon,
		SeasonYear:   row.SeasonYear,
		Crop:         row.Crop,
		Variety:      pointer.SafeDeref(row.Variety),
		State:        pointer.SafeDeref(row.State),
		County:       pointer.SafeDeref(row.County),
		TotalNPerAc:  row.TotalNPerAc,
		TotalPPerAc:  row.TotalPPerAc,
		TotalKPerAc:  row.TotalKPerAc,
		WaterTotalMm: row.WaterTotalMm,
		EventCount:   row.EventCount,
		SprayCount:   row.SprayCount,
		TillageCount: row.TillageCount,
		FertCount:    row.FertCount,
	}
}

// FeatureNames is the fixed feature layout of assembled vectors.
//
// Trainer and predictor share it; features.json records it for each model
// so that artifacts stay self-describing.
var FeatureNames = []string{
	"acres", "lat", "lon", "season_year",
	"total_n_per_ac", "total_p_per_ac", "total_k_per_ac",
	"water_total_mm",
	"event_count", "spray_count", "tillage_count", "fert_count",
	"n_p_ratio", "n_k_ratio", "p_k_ratio",
	"total_nutrients",
	"n_x_acres", "p_x_acres", "k_x_acres",
	"n_x_p", "n_x_k", "p_x_k",
	"crop_freq", "variety_freq", "state_freq", "county_freq",
}

// FeatureSpec is the persisted preprocessing of one model: the feature
// layout and the frequency-encoding tables fitted on the training split.
type FeatureSpec struct {
	Names     []string                      `json:"names"`
	Encodings map[string]map[string]float64 `json:"encodings"`
	Notes     string                        `json:"notes,omitempty"`
}

// NewFeatureSpec fits frequency encodings over the given inputs.
//
// Each category is encoded as its relative frequency in the inputs;
// categories never seen encode to 0.
func NewFeatureSpec(inputs []Input) FeatureSpec {
	crop := map[string]int{}
	variety := map[string]int{}
	state := map[string]int{}
	county := map[string]int{}
	for _, in := range inputs {
		crop[in.Crop] += 1
		variety[in.Variety] += 1
		state[in.State] += 1
		county[in.County] += 1
	}

	normalize := func(counts map[string]int) map[string]float64 {
		total := 0
		for _, n := range counts {
			total += n
		}
		freq := map[string]float64{}
		if total == 0 {
			return freq
		}
		for k, n := range counts {
			if k == "" {
				continue
			}
			freq[k] = float64(n) / float64(total)
		}
		return freq
	}

	return FeatureSpec{
		Names: FeatureNames,
		Encodings: map[string]map[string]float64{
			"crop":    normalize(crop),
			"variety": normalize(variety),
			"state":   normalize(state),
			"county":  normalize(county),
		},
	}
}

// Vector assembles the feature vector of an input.
//
// Unknown numerics become NaN; trees route them by default direction.
func (spec FeatureSpec) Vector(in Input) []float64 {
	nan := math.NaN()
	deref := func(v *float64) float64 {
		if v == nil {
			return nan
		}
		return *v
	}

	acres := deref(in.Acres)
	n := deref(in.TotalNPerAc)
	p := deref(in.TotalPPerAc)
	k := deref(in.TotalKPerAc)

	// zero-safe ratio: 0 when denominator is zero, NaN when either side
	// is unknown.
	ratio := func(num, den float64) float64 {
		if math.IsNaN(num) || math.IsNaN(den) {
			return nan
		}
		if den == 0 {
			return 0
		}
		return num / den
	}
	mul := func(a, b float64) float64 {
		if math.IsNaN(a) || math.IsNaN(b) {
			return nan
		}
		return a * b
	}
	add := func(vs ...float64) float64 {
		total := 0.0
		for _, v := range vs {
			if math.IsNaN(v) {
				return nan
			}
			total += v
		}
		return total
	}

	encode := func(table string, value string) float64 {
		enc, ok := spec.Encodings[table]
		if !ok {
			return 0
		}
		return enc[value]
	}

	return []float64{
		acres, deref(in.Lat), deref(in.Lon), float64(in.SeasonYear),
		n, p, k,
		deref(in.WaterTotalMm),
		float64(in.EventCount), float64(in.SprayCount),
		float64(in.TillageCount), float64(in.FertCount),
		ratio(n, p), ratio(n, k), ratio(p, k),
		add(n, p, k),
		mul(n, acres), mul(p, acres), mul(k, acres),
		mul(n, p), mul(n, k), mul(p, k),
		encode("crop", in.Crop), encode("variety", in.Variety),
		encode("state", in.State), encode("county", in.County),
	}
}
