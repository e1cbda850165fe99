package db

import (
	"context"

	"github.com/cropbase/cropbase/pkg/domain"
)

// FieldSeasonUpsert carries one season fact to be inserted or merged.
//
// Lookup values are given by name; the implementation resolves or creates
// the master records.
type FieldSeasonUpsert struct {
	FieldNumber string
	Crop        string
	Variety     *string
	SeasonYear  int

	Acres    *float64
	Lat      *float64
	Lon      *float64
	County   *string
	State    *string
	GrowerId *string

	YieldBuAc        *float64
	YieldTarget      *float64
	TotalNPerAc      *float64
	TotalPPerAc      *float64
	TotalKPerAc      *float64
	RecordSource     *string
	DataQualityScore *float64
}

// UpsertResult tells whether an upsert created a new fact or merged into
// an existing one.
type UpsertResult struct {
	FieldSeasonId int64
	Created       bool
}

type FieldInterface interface {
	// Insert or merge a season fact, creating master records as needed.
	//
	// On conflict of (field, crop, variety, season), existing non-null
	// values are kept and only null columns are filled from the given record.
	//
	// Returns the id of the affected fact and whether it was created.
	UpsertFieldSeason(ctx context.Context, record FieldSeasonUpsert) (UpsertResult, error)

	// Append a management event to a season fact.
	AddEvent(ctx context.Context, event domain.ManagementEvent) (int64, error)

	// Retrieve ids of season facts matching the filter, newest season first.
	//
	// Returns matched ids limited by limit/offset, and the total count of the
	// match.
	Find(ctx context.Context, filter domain.FieldSeasonFilter, limit int, offset int) ([]int64, int64, error)

	// Retrieve season facts (joined with lookups) identified by ids.
	//
	// Returns mapping from FieldSeasonId to the fact. Missing ids are
	// not error; they are just absent from the map.
	Get(ctx context.Context, fieldSeasonIds []int64) (map[int64]domain.FieldSeason, error)

	// Retrieve one season fact with its events and predictions.
	//
	// Returns error wrapping domain ErrMissing when not found.
	GetDetail(ctx context.Context, fieldSeasonId int64) (domain.FieldSeasonDetail, error)

	// List all crops.
	Crops(ctx context.Context) ([]domain.Crop, error)

	// List varieties, optionally restricted to a crop by name ("" = all).
	Varieties(ctx context.Context, crop string) ([]domain.Variety, error)

	// List all seasons, newest first.
	Seasons(ctx context.Context) ([]domain.Season, error)

	// Dataset summary for the overview endpoint.
	Overview(ctx context.Context) (domain.Overview, error)
}
