package mocks

import (
	"context"
	"errors"

	"github.com/cropbase/cropbase/pkg/domain"
	dbmock "github.com/cropbase/cropbase/pkg/domain/internal/db/mock"
	sdb "github.com/cropbase/cropbase/pkg/domain/stats/db"
)

type StatsInterface struct {
	Impl struct {
		RegionalYieldStats func(context.Context, string, int, string, string) ([]domain.CountyYieldStats, error)
		Ranking            func(context.Context, string, int, string, float64) (domain.Ranking, error)
		VarietyPerformance func(context.Context, string, int, string, string, int) ([]domain.VarietyPerformance, error)
	}
	Calls struct {
		RegionalYieldStats dbmock.CallLog[struct {
			Crop       string
			SeasonYear int
			State      string
			County     string
		}]
		Ranking dbmock.CallLog[struct {
			Crop       string
			SeasonYear int
			State      string
			Yield      float64
		}]
		VarietyPerformance dbmock.CallLog[struct {
			Crop       string
			SeasonYear int
			State      string
			County     string
			MinSamples int
		}]
	}
}

func NewStatsInterface() *StatsInterface {
	return &StatsInterface{}
}

var _ sdb.StatsInterface = &StatsInterface{}

func (si *StatsInterface) RegionalYieldStats(
	ctx context.Context, crop string, seasonYear int, state string, county string,
) ([]domain.CountyYieldStats, error) {
	si.Calls.RegionalYieldStats = append(si.Calls.RegionalYieldStats, struct {
		Crop       string
		SeasonYear int
		State      string
		County     string
	}{
		Crop: crop, SeasonYear: seasonYear, State: state, County: county,
	})
	if si.Impl.RegionalYieldStats != nil {
		return si.Impl.RegionalYieldStats(ctx, crop, seasonYear, state, county)
	}
	panic(errors.New("it should not be called"))
}

func (si *StatsInterface) Ranking(
	ctx context.Context, crop string, seasonYear int, state string, yield float64,
) (domain.Ranking, error) {
	si.Calls.Ranking = append(si.Calls.Ranking, struct {
		Crop       string
		SeasonYear int
		State      string
		Yield      float64
	}{
		Crop: crop, SeasonYear: seasonYear, State: state, Yield: yield,
	})
	if si.Impl.Ranking != nil {
		return si.Impl.Ranking(ctx, crop, seasonYear, state, yield)
	}
	panic(errors.New("it should not be called"))
}

func (si *StatsInterface) VarietyPerformance(
	ctx context.Context, crop string, seasonYear int, state string, county string, minSamples int,
) ([]domain.VarietyPerformance, error) {
	si.Calls.VarietyPerformance = append(si.Calls.VarietyPerformance, struct {
		Crop       string
		SeasonYear int
		State      string
		County     string
		MinSamples int
	}{
		Crop: crop, SeasonYear: seasonYear, State: state, County: county, MinSamples: minSamples,
	})
	if si.Impl.VarietyPerformance != nil {
		return si.Impl.VarietyPerformance(ctx, crop, seasonYear, state, county, minSamples)
	}
	panic(errors.New("it should not be called"))
}
