package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	apistats "github.com/cropbase/cropbase/pkg/api/types/stats"
	kdbstats "github.com/cropbase/cropbase/pkg/domain/stats/db"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

func RegionalStatsHandler(dbStats kdbstats.StatsInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		crop := c.QueryParam("crop")
		if crop == "" {
			return apierr.BadRequest("crop is required", nil)
		}
		season, err := strconv.Atoi(c.QueryParam("season"))
		if err != nil {
			return apierr.BadRequest("season should be a year", err)
		}

		counties, err := dbStats.RegionalYieldStats(
			ctx, crop, season, c.QueryParam("state"), c.QueryParam("county"),
		)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apistats.Regional{
			Crop:       crop,
			SeasonYear: season,
			Counties:   slices.Map(counties, apistats.FromDomainCounty),
		})
	}
}

const defaultMinSamples = 3

func VarietyStatsHandler(dbStats kdbstats.StatsInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		crop := c.QueryParam("crop")
		if crop == "" {
			return apierr.BadRequest("crop is required", nil)
		}

		season := 0
		if raw := c.QueryParam("season"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return apierr.BadRequest("season should be a year", err)
			}
			season = v
		}
		minSamples := defaultMinSamples
		if raw := c.QueryParam("min_samples"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				return apierr.BadRequest("min_samples should be a positive integer", err)
			}
			minSamples = v
		}

		varieties, err := dbStats.VarietyPerformance(
			ctx, crop, season, c.QueryParam("state"), c.QueryParam("county"), minSamples,
		)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, slices.Map(varieties, apistats.FromDomainVariety))
	}
}
