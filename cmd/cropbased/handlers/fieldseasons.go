package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	apifields "github.com/cropbase/cropbase/pkg/api/types/fields"
	"github.com/cropbase/cropbase/pkg/domain"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	kdbfield "github.com/cropbase/cropbase/pkg/domain/field/db"
	"github.com/cropbase/cropbase/pkg/domain/ingest"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
)

func OverviewHandler(dbField kdbfield.FieldInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		overview, err := dbField.Overview(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apifields.FromDomainOverview(overview))
	}
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func FindFieldSeasonHandler(dbField kdbfield.FieldInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		filter, err := queryParamToFilter(c)
		if err != nil {
			return apierr.BadRequest(err.Error(), err)
		}
		limit, offset, err := queryParamToPage(c)
		if err != nil {
			return apierr.BadRequest(err.Error(), err)
		}

		ids, total, err := dbField.Find(ctx, filter, limit, offset)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		list := apifields.List{
			Items: []apifields.Summary{}, Total: total, Limit: limit, Offset: offset,
		}
		if len(ids) == 0 {
			return c.JSON(http.StatusOK, list)
		}

		found, err := dbField.Get(ctx, ids)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		for _, id := range ids {
			if fs, ok := found[id]; ok {
				list.Items = append(list.Items, apifields.FromDomainSummary(fs))
			}
		}
		return c.JSON(http.StatusOK, list)
	}
}

func GetFieldSeasonHandler(dbField kdbfield.FieldInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := strconv.ParseInt(c.Param(paramKey), 10, 64)
		if err != nil {
			return apierr.BadRequest("field season id should be an integer", err)
		}

		detail, err := dbField.GetDetail(ctx, id)
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apifields.FromDomainDetail(detail))
	}
}

// RecordFieldSeasonHandler accepts one manually entered season fact.
func RecordFieldSeasonHandler(svc *ingest.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apifields.RecordRequest{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest,
				"format error",
				apierr.WithError(err),
				apierr.WithAdvice("send a field season record as JSON"),
			)
		}
		if req.FieldNumber == "" || req.Crop == "" || req.SeasonYear == 0 {
			return apierr.BadRequest("fieldNumber, crop and seasonYear are required", nil)
		}

		result, err := svc.IngestRecord(ctx, kdbfield.FieldSeasonUpsert{
			FieldNumber:      req.FieldNumber,
			Crop:             req.Crop,
			Variety:          req.Variety,
			SeasonYear:       req.SeasonYear,
			Acres:            req.Acres,
			Lat:              req.Lat,
			Lon:              req.Lon,
			County:           req.County,
			State:            req.State,
			GrowerId:         req.GrowerId,
			YieldBuAc:        req.YieldBuAc,
			YieldTarget:      req.YieldTarget,
			TotalNPerAc:      req.TotalNPerAc,
			TotalPPerAc:      req.TotalPPerAc,
			TotalKPerAc:      req.TotalKPerAc,
			RecordSource:     pointer.Ref("manual-entry"),
			DataQualityScore: req.DataQualityScore,
		})
		if errors.Is(err, ingest.ErrAlreadyIngested) {
			return apierr.Conflict("the same record is already entered", apierr.WithError(err))
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		return c.JSON(status, apifields.RecordResponse{
			FieldSeasonId: result.FieldSeasonId, Created: result.Created,
		})
	}
}

func CropsHandler(dbField kdbfield.FieldInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		crops, err := dbField.Crops(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apifields.Crop, 0, len(crops))
		for _, crop := range crops {
			resp = append(resp, apifields.FromDomainCrop(crop))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func VarietiesHandler(dbField kdbfield.FieldInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		varieties, err := dbField.Varieties(c.Request().Context(), c.QueryParam("crop"))
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apifields.Variety, 0, len(varieties))
		for _, v := range varieties {
			resp = append(resp, apifields.FromDomainVariety(v))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func SeasonsHandler(dbField kdbfield.FieldInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		seasons, err := dbField.Seasons(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apifields.Season, 0, len(seasons))
		for _, s := range seasons {
			resp = append(resp, apifields.FromDomainSeason(s))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

var errIncorrectQueryParam = errors.New("incorrect query parameter")

func queryParamToFilter(c echo.Context) (domain.FieldSeasonFilter, error) {
	filter := domain.FieldSeasonFilter{
		Crop:    c.QueryParam("crop"),
		Variety: c.QueryParam("variety"),
		State:   c.QueryParam("state"),
		County:  c.QueryParam("county"),
	}

	if seasons := c.QueryParam("season"); seasons != "" {
		for _, s := range strings.Split(seasons, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return filter, errors.Join(
					errIncorrectQueryParam,
					errors.New("season should be comma-separated years"),
				)
			}
			filter.Seasons = append(filter.Seasons, year)
		}
	}

	floats := map[string]**float64{
		"min_acres":     &filter.MinAcres,
		"max_acres":     &filter.MaxAcres,
		"min_predicted": &filter.MinPredicted,
		"max_predicted": &filter.MaxPredicted,
	}
	for name, dest := range floats {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.Join(
				errIncorrectQueryParam,
				errors.New(name+" should be a number"),
			)
		}
		*dest = &v
	}

	if raw := c.QueryParam("has_prediction"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.Join(
				errIncorrectQueryParam,
				errors.New("has_prediction should be a boolean"),
			)
		}
		filter.HasPrediction = &v
	}

	return filter, nil
}

func queryParamToPage(c echo.Context) (limit int, offset int, err error) {
	limit = defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.Join(
				errIncorrectQueryParam, errors.New("limit should be a positive integer"),
			)
		}
		if maxPageSize < limit {
			limit = maxPageSize
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.Join(
				errIncorrectQueryParam, errors.New("offset should be a non-negative integer"),
			)
		}
	}
	return limit, offset, nil
}
