package stats

import (
	"github.com/cropbase/cropbase/pkg/domain"
)

type CountyYield struct {
	State      string  `json:"state"`
	County     string  `json:"county"`
	AvgYield   float64 `json:"avgYield"`
	StdYield   float64 `json:"stdYield"`
	FieldCount int     `json:"fieldCount"`
}

func FromDomainCounty(s domain.CountyYieldStats) CountyYield {
	return CountyYield{
		State:      s.State,
		County:     s.County,
		AvgYield:   s.AvgYield,
		StdYield:   s.StdYield,
		FieldCount: s.FieldCount,
	}
}

// Regional is the regional stats response.
type Regional struct {
	Crop       string        `json:"crop"`
	SeasonYear int           `json:"seasonYear"`
	Counties   []CountyYield `json:"counties"`
}

type VarietyPerformance struct {
	Crop      string  `json:"crop"`
	Variety   string  `json:"variety"`
	MeanYield float64 `json:"meanYield"`
	StdYield  float64 `json:"stdYield"`
	N         int     `json:"n"`
	CV        float64 `json:"cv"`
}

func FromDomainVariety(v domain.VarietyPerformance) VarietyPerformance {
	return VarietyPerformance{
		Crop:      v.Crop,
		Variety:   v.Variety,
		MeanYield: v.MeanYield,
		StdYield:  v.StdYield,
		N:         v.N,
		CV:        v.CV,
	}
}
