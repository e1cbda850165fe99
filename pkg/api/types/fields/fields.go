package fields

import (
	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/utils/cmp"
	"github.com/cropbase/cropbase/pkg/utils/rfctime"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

type Crop struct {
	CropId   int64  `json:"cropId"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

func FromDomainCrop(c domain.Crop) Crop {
	return Crop{CropId: c.CropId, Name: c.Name, IsActive: c.IsActive}
}

type Variety struct {
	VarietyId int64  `json:"varietyId"`
	Name      string `json:"name"`
	CropId    int64  `json:"cropId"`
	IsActive  bool   `json:"isActive"`
}

func FromDomainVariety(v domain.Variety) Variety {
	return Variety{
		VarietyId: v.VarietyId, Name: v.Name, CropId: v.CropId, IsActive: v.IsActive,
	}
}

type Season struct {
	SeasonId  int64 `json:"seasonId"`
	Year      int   `json:"year"`
	IsCurrent bool  `json:"isCurrent"`
}

func FromDomainSeason(s domain.Season) Season {
	return Season{SeasonId: s.SeasonId, Year: s.Year, IsCurrent: s.IsCurrent}
}

type Field struct {
	FieldId     int64    `json:"fieldId"`
	FieldNumber string   `json:"fieldNumber"`
	Acres       *float64 `json:"acres,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	County      *string  `json:"county,omitempty"`
	State       *string  `json:"state,omitempty"`
	GrowerId    *string  `json:"growerId,omitempty"`
}

func FromDomainField(f domain.Field) Field {
	return Field{
		FieldId:     f.FieldId,
		FieldNumber: f.FieldNumber,
		Acres:       f.Acres,
		Lat:         f.Lat,
		Lon:         f.Lon,
		County:      f.County,
		State:       f.State,
		GrowerId:    f.GrowerId,
	}
}

func (f Field) Equal(o Field) bool {
	return f.FieldId == o.FieldId &&
		f.FieldNumber == o.FieldNumber &&
		cmp.PEqEq(f.Acres, o.Acres) &&
		cmp.PEqEq(f.Lat, o.Lat) &&
		cmp.PEqEq(f.Lon, o.Lon) &&
		cmp.PEqEq(f.County, o.County) &&
		cmp.PEqEq(f.State, o.State) &&
		cmp.PEqEq(f.GrowerId, o.GrowerId)
}

// Summary is one field-season in list responses.
type Summary struct {
	FieldSeasonId    int64    `json:"fieldSeasonId"`
	Field            Field    `json:"field"`
	Crop             Crop     `json:"crop"`
	Variety          *Variety `json:"variety,omitempty"`
	Season           Season   `json:"season"`
	YieldBuAc        *float64 `json:"yieldBuAc,omitempty"`
	YieldTarget      *float64 `json:"yieldTarget,omitempty"`
	TotalNPerAc      *float64 `json:"totalNPerAc,omitempty"`
	TotalPPerAc      *float64 `json:"totalPPerAc,omitempty"`
	TotalKPerAc      *float64 `json:"totalKPerAc,omitempty"`
	RecordSource     *string  `json:"recordSource,omitempty"`
	DataQualityScore *float64 `json:"dataQualityScore,omitempty"`
}

func FromDomainSummary(fs domain.FieldSeason) Summary {
	var variety *Variety
	if fs.Variety != nil {
		v := FromDomainVariety(*fs.Variety)
		variety = &v
	}
	return Summary{
		FieldSeasonId:    fs.FieldSeasonId,
		Field:            FromDomainField(fs.Field),
		Crop:             FromDomainCrop(fs.Crop),
		Variety:          variety,
		Season:           FromDomainSeason(fs.Season),
		YieldBuAc:        fs.YieldBuAc,
		YieldTarget:      fs.YieldTarget,
		TotalNPerAc:      fs.TotalNPerAc,
		TotalPPerAc:      fs.TotalPPerAc,
		TotalKPerAc:      fs.TotalKPerAc,
		RecordSource:     fs.RecordSource,
		DataQualityScore: fs.DataQualityScore,
	}
}

func (s Summary) Equal(o Summary) bool {
	varietyEq := func(a, b *Variety) bool {
		if (a == nil) || (b == nil) {
			return (a == nil) && (b == nil)
		}
		return *a == *b
	}
	return s.FieldSeasonId == o.FieldSeasonId &&
		s.Field.Equal(o.Field) &&
		s.Crop == o.Crop &&
		varietyEq(s.Variety, o.Variety) &&
		s.Season == o.Season &&
		cmp.PEqEq(s.YieldBuAc, o.YieldBuAc) &&
		cmp.PEqEq(s.YieldTarget, o.YieldTarget) &&
		cmp.PEqEq(s.TotalNPerAc, o.TotalNPerAc) &&
		cmp.PEqEq(s.TotalPPerAc, o.TotalPPerAc) &&
		cmp.PEqEq(s.TotalKPerAc, o.TotalKPerAc) &&
		cmp.PEqEq(s.RecordSource, o.RecordSource) &&
		cmp.PEqEq(s.DataQualityScore, o.DataQualityScore)
}

// List is a paged field-season listing.
type List struct {
	Items  []Summary `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

type Event struct {
	EventId          int64            `json:"eventId"`
	JobId            *string          `json:"jobId,omitempty"`
	EventType        string           `json:"eventType"`
	Status           *string          `json:"status,omitempty"`
	StartDate        *rfctime.RFC3339 `json:"startDate,omitempty"`
	EndDate          *rfctime.RFC3339 `json:"endDate,omitempty"`
	ApplicationArea  *float64         `json:"applicationArea,omitempty"`
	Amount           *float64         `json:"amount,omitempty"`
	Description      *string          `json:"description,omitempty"`
	FertUnits        *string          `json:"fertUnits,omitempty"`
	Rate             *float64         `json:"rate,omitempty"`
	FertilizerId     *string          `json:"fertilizerId,omitempty"`
	BlendName        *string          `json:"blendName,omitempty"`
	ChemicalType     *string          `json:"chemicalType,omitempty"`
	ChemProduct      *string          `json:"chemProduct,omitempty"`
	ChemUnits        *string          `json:"chemUnits,omitempty"`
	WaterAppliedMm   *float64         `json:"waterAppliedMm,omitempty"`
	IrrigationMethod *string          `json:"irrigationMethod,omitempty"`
	Machinery        *string          `json:"machinery,omitempty"`
	ScoutCount       *int             `json:"scoutCount,omitempty"`
}

func FromDomainEvent(e domain.ManagementEvent) Event {
	event := Event{
		EventId:          e.EventId,
		JobId:            e.JobId,
		EventType:        e.EventType,
		Status:           e.Status,
		ApplicationArea:  e.ApplicationArea,
		Amount:           e.Amount,
		Description:      e.Description,
		FertUnits:        e.FertUnits,
		Rate:             e.Rate,
		FertilizerId:     e.FertilizerId,
		BlendName:        e.BlendName,
		ChemicalType:     e.ChemicalType,
		ChemProduct:      e.ChemProduct,
		ChemUnits:        e.ChemUnits,
		WaterAppliedMm:   e.WaterAppliedMm,
		IrrigationMethod: e.IrrigationMethod,
		Machinery:        e.Machinery,
		ScoutCount:       e.ScoutCount,
	}
	if e.StartDate != nil {
		t := rfctime.New(*e.StartDate)
		event.StartDate = &t
	}
	if e.EndDate != nil {
		t := rfctime.New(*e.EndDate)
		event.EndDate = &t
	}
	return event
}

// Detail is one field-season with its events and predictions.
type Detail struct {
	Summary
	Events      []Event      `json:"events"`
	Predictions []Prediction `json:"predictions"`
}

// Prediction is the stored model output shown with a field-season.
type Prediction struct {
	PredictionId    int64                 `json:"predictionId"`
	ModelVersionId  int64                 `json:"modelVersionId"`
	PredictedYield  float64               `json:"predictedYield"`
	ConfidenceLower *float64              `json:"confidenceLower,omitempty"`
	ConfidenceUpper *float64              `json:"confidenceUpper,omitempty"`
	Contributions   []FeatureContribution `json:"contributions,omitempty"`
	RegionalAvg     *float64              `json:"regionalAvg,omitempty"`
	RegionalStd     *float64              `json:"regionalStd,omitempty"`
	CreatedAt       rfctime.RFC3339       `json:"createdAt"`
}

type FeatureContribution struct {
	Feature   string  `json:"feature"`
	Weight    float64 `json:"weight"`
	Direction string  `json:"direction"`
}

func FromDomainPrediction(p domain.Prediction) Prediction {
	return Prediction{
		PredictionId:    p.PredictionId,
		ModelVersionId:  p.ModelVersionId,
		PredictedYield:  p.PredictedYield,
		ConfidenceLower: p.ConfidenceLower,
		ConfidenceUpper: p.ConfidenceUpper,
		Contributions: slices.Map(
			p.Contributions,
			func(c domain.FeatureContribution) FeatureContribution {
				return FeatureContribution{
					Feature: c.Feature, Weight: c.Weight, Direction: c.Direction,
				}
			},
		),
		RegionalAvg: p.RegionalAvg,
		RegionalStd: p.RegionalStd,
		CreatedAt:   rfctime.New(p.CreatedAt),
	}
}

func FromDomainDetail(d domain.FieldSeasonDetail) Detail {
	return Detail{
		Summary:     FromDomainSummary(d.FieldSeason),
		Events:      slices.Map(d.Events, FromDomainEvent),
		Predictions: slices.Map(d.Predictions, FromDomainPrediction),
	}
}

// RecordRequest is the payload of manual field-season entry.
type RecordRequest struct {
	FieldNumber      string   `json:"fieldNumber"`
	Crop             string   `json:"crop"`
	Variety          *string  `json:"variety,omitempty"`
	SeasonYear       int      `json:"seasonYear"`
	Acres            *float64 `json:"acres,omitempty"`
	Lat              *float64 `json:"lat,omitempty"`
	Lon              *float64 `json:"lon,omitempty"`
	County           *string  `json:"county,omitempty"`
	State            *string  `json:"state,omitempty"`
	GrowerId         *string  `json:"growerId,omitempty"`
	YieldBuAc        *float64 `json:"yieldBuAc,omitempty"`
	YieldTarget      *float64 `json:"yieldTarget,omitempty"`
	TotalNPerAc      *float64 `json:"totalNPerAc,omitempty"`
	TotalPPerAc      *float64 `json:"totalPPerAc,omitempty"`
	TotalKPerAc      *float64 `json:"totalKPerAc,omitempty"`
	DataQualityScore *float64 `json:"dataQualityScore,omitempty"`
}

// RecordResponse reports the outcome of manual entry.
type RecordResponse struct {
	FieldSeasonId int64 `json:"fieldSeasonId"`
	Created       bool  `json:"created"`
}

// Overview is the dataset summary of the landing endpoint.
type Overview struct {
	TotalFields       int64    `json:"totalFields"`
	TotalFieldSeasons int64    `json:"totalFieldSeasons"`
	ObservedYields    int64    `json:"observedYields"`
	PredictedSeasons  int64    `json:"predictedSeasons"`
	Seasons           []int    `json:"seasons"`
	Crops             []string `json:"crops"`
	States            []string `json:"states"`
	YieldMin          *float64 `json:"yieldMin,omitempty"`
	YieldMax          *float64 `json:"yieldMax,omitempty"`
	YieldAvg          *float64 `json:"yieldAvg,omitempty"`
}

func FromDomainOverview(o domain.Overview) Overview {
	return Overview{
		TotalFields:       o.TotalFields,
		TotalFieldSeasons: o.TotalFieldSeasons,
		ObservedYields:    o.ObservedYields,
		PredictedSeasons:  o.PredictedSeasons,
		Seasons:           o.Seasons,
		Crops:             o.Crops,
		States:            o.States,
		YieldMin:          o.YieldMin,
		YieldMax:          o.YieldMax,
		YieldAvg:          o.YieldAvg,
	}
}
