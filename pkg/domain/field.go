package domain

import (
	"time"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
)

// Field is a physical field under management.
//
// Position and acreage are nullable since many record sources do not carry them.
type Field struct {
	FieldId     int64
	FieldNumber string
	Acres       *float64
	Lat         *float64
	Lon         *float64
	County      *string
	State       *string
	GrowerId    *string
}

func (f *Field) Equal(o *Field) bool {
	if (f == nil) || (o == nil) {
		return (f == nil) && (o == nil)
	}
	return f.FieldId == o.FieldId &&
		f.FieldNumber == o.FieldNumber &&
		cmp.PEqEq(f.Acres, o.Acres) &&
		cmp.PEqEq(f.Lat, o.Lat) &&
		cmp.PEqEq(f.Lon, o.Lon) &&
		cmp.PEqEq(f.County, o.County) &&
		cmp.PEqEq(f.State, o.State) &&
		cmp.PEqEq(f.GrowerId, o.GrowerId)
}

type Crop struct {
	CropId   int64
	Name     string
	IsActive bool
}

func (c *Crop) Equal(o *Crop) bool {
	if (c == nil) || (o == nil) {
		return (c == nil) && (o == nil)
	}
	return *c == *o
}

type Variety struct {
	VarietyId int64
	Name      string
	CropId    int64
	IsActive  bool
}

func (v *Variety) Equal(o *Variety) bool {
	if (v == nil) || (o == nil) {
		return (v == nil) && (o == nil)
	}
	return *v == *o
}

type Season struct {
	SeasonId  int64
	Year      int
	IsCurrent bool
}

func (s *Season) Equal(o *Season) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	return *s == *o
}

// FieldSeasonBody is the season fact of a field: one crop grown on one field
// in one season, with its applied nutrients and observed yield.
//
// (FieldId, CropId, VarietyId, SeasonId) is unique.
type FieldSeasonBody struct {
	FieldSeasonId    int64
	FieldId          int64
	CropId           int64
	VarietyId        *int64
	SeasonId         int64
	YieldBuAc        *float64
	YieldTarget      *float64
	TotalNPerAc      *float64
	TotalPPerAc      *float64
	TotalKPerAc      *float64
	RecordSource     *string
	DataQualityScore *float64
}

func (b *FieldSeasonBody) Equal(o *FieldSeasonBody) bool {
	if (b == nil) || (o == nil) {
		return (b == nil) && (o == nil)
	}
	return b.FieldSeasonId == o.FieldSeasonId &&
		b.FieldId == o.FieldId &&
		b.CropId == o.CropId &&
		cmp.PEqEq(b.VarietyId, o.VarietyId) &&
		b.SeasonId == o.SeasonId &&
		cmp.PEqEq(b.YieldBuAc, o.YieldBuAc) &&
		cmp.PEqEq(b.YieldTarget, o.YieldTarget) &&
		cmp.PEqEq(b.TotalNPerAc, o.TotalNPerAc) &&
		cmp.PEqEq(b.TotalPPerAc, o.TotalPPerAc) &&
		cmp.PEqEq(b.TotalKPerAc, o.TotalKPerAc) &&
		cmp.PEqEq(b.RecordSource, o.RecordSource) &&
		cmp.PEqEq(b.DataQualityScore, o.DataQualityScore)
}

// FieldSeason is a season fact joined with its lookups.
type FieldSeason struct {
	FieldSeasonBody
	Field       Field
	Crop        Crop
	Variety     *Variety
	Season      Season
}

func (fs *FieldSeason) Equal(o *FieldSeason) bool {
	if (fs == nil) || (o == nil) {
		return (fs == nil) && (o == nil)
	}
	return fs.FieldSeasonBody.Equal(&o.FieldSeasonBody) &&
		fs.Field.Equal(&o.Field) &&
		fs.Crop.Equal(&o.Crop) &&
		fs.Variety.Equal(o.Variety) &&
		fs.Season.Equal(&o.Season)
}

// FieldSeasonDetail adds management events and predictions to a season fact.
type FieldSeasonDetail struct {
	FieldSeason
	Events      []ManagementEvent
	Predictions []Prediction
}

func (d *FieldSeasonDetail) Equal(o *FieldSeasonDetail) bool {
	if (d == nil) || (o == nil) {
		return (d == nil) && (o == nil)
	}
	return d.FieldSeason.Equal(&o.FieldSeason) &&
		cmp.SliceContentEqWith(
			d.Events, o.Events,
			func(a, b ManagementEvent) bool { return a.Equal(&b) },
		) &&
		cmp.SliceContentEqWith(
			d.Predictions, o.Predictions,
			func(a, b Prediction) bool { return a.Equal(&b) },
		)
}

// ManagementEvent is a field operation (spray, fertilizer, tillage, irrigation,
// scouting...) applied to a field-season.
type ManagementEvent struct {
	EventId          int64
	FieldSeasonId    int64
	JobId            *string
	EventType        string
	Status           *string
	StartDate        *time.Time
	EndDate          *time.Time
	ApplicationArea  *float64
	Amount           *float64
	Description      *string
	FertUnits        *string
	Rate             *float64
	FertilizerId     *string
	BlendName        *string
	ChemicalType     *string
	ChemProduct      *string
	ChemUnits        *string
	WaterAppliedMm   *float64
	IrrigationMethod *string
	Machinery        *string
	ScoutCount       *int
}

func (e *ManagementEvent) Equal(o *ManagementEvent) bool {
	if (e == nil) || (o == nil) {
		return (e == nil) && (o == nil)
	}
	timeEq := func(a, b time.Time) bool { return a.Equal(b) }
	return e.EventId == o.EventId &&
		e.FieldSeasonId == o.FieldSeasonId &&
		cmp.PEqEq(e.JobId, o.JobId) &&
		e.EventType == o.EventType &&
		cmp.PEqEq(e.Status, o.Status) &&
		cmp.PEqualWith(e.StartDate, o.StartDate, timeEq) &&
		cmp.PEqualWith(e.EndDate, o.EndDate, timeEq) &&
		cmp.PEqEq(e.ApplicationArea, o.ApplicationArea) &&
		cmp.PEqEq(e.Amount, o.Amount) &&
		cmp.PEqEq(e.Description, o.Description) &&
		cmp.PEqEq(e.FertUnits, o.FertUnits) &&
		cmp.PEqEq(e.Rate, o.Rate) &&
		cmp.PEqEq(e.FertilizerId, o.FertilizerId) &&
		cmp.PEqEq(e.BlendName, o.BlendName) &&
		cmp.PEqEq(e.ChemicalType, o.ChemicalType) &&
		cmp.PEqEq(e.ChemProduct, o.ChemProduct) &&
		cmp.PEqEq(e.ChemUnits, o.ChemUnits) &&
		cmp.PEqEq(e.WaterAppliedMm, o.WaterAppliedMm) &&
		cmp.PEqEq(e.IrrigationMethod, o.IrrigationMethod) &&
		cmp.PEqEq(e.Machinery, o.Machinery) &&
		cmp.PEqEq(e.ScoutCount, o.ScoutCount)
}

// FieldSeasonFilter narrows field-season search.
//
// Zero-value members do not filter.
type FieldSeasonFilter struct {
	Crop           string
	Variety        string
	Seasons        []int
	State          string
	County         string
	MinAcres       *float64
	MaxAcres       *float64
	HasPrediction  *bool
	MinPredicted   *float64
	MaxPredicted   *float64
}

// Overview is the dataset summary shown on the landing endpoint.
type Overview struct {
	TotalFields       int64
	TotalFieldSeasons int64
	ObservedYields    int64
	PredictedSeasons  int64
	Seasons           []int
	Crops             []string
	States            []string
	YieldMin          *float64
	YieldMax          *float64
	YieldAvg          *float64
}
