package db

import (
	"context"

	"github.com/cropbase/cropbase/pkg/domain"
)

type StatsInterface interface {
	// Observed-yield aggregates by county.
	//
	// crop and seasonYear are required; state and county narrow the result
	// when non-empty.
	RegionalYieldStats(ctx context.Context, crop string, seasonYear int, state string, county string) ([]domain.CountyYieldStats, error)

	// Place a yield among the observed yields of (crop, season, state).
	//
	// Returns error wrapping domain ErrMissing when the region has no
	// observed yields.
	Ranking(ctx context.Context, crop string, seasonYear int, state string, yield float64) (domain.Ranking, error)

	// Observed-yield aggregates per variety of a crop.
	//
	// seasonYear 0 means all seasons; state/county narrow when non-empty;
	// varieties with fewer than minSamples observations are dropped.
	VarietyPerformance(ctx context.Context, crop string, seasonYear int, state string, county string, minSamples int) ([]domain.VarietyPerformance, error)
}
