package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	apifields "github.com/cropbase/cropbase/pkg/api/types/fields"
	apipredictions "github.com/cropbase/cropbase/pkg/api/types/predictions"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	"github.com/cropbase/cropbase/pkg/domain/model/registry"
	kdbprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/metrics"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

// FieldSeasonPredictionsHandler lists stored predictions of one
// field-season, newest first. ?latest=true narrows to the newest one.
func FieldSeasonPredictionsHandler(
	dbPrediction kdbprediction.PredictionInterface, paramKey string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := strconv.ParseInt(c.Param(paramKey), 10, 64)
		if err != nil {
			return apierr.BadRequest("fieldSeasonId should be an integer", err)
		}

		if c.QueryParam("latest") == "true" {
			latest, err := dbPrediction.LatestFor(ctx, id)
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			} else if err != nil {
				return apierr.InternalServerError(err)
			}
			return c.JSON(http.StatusOK, []apifields.Prediction{
				apifields.FromDomainPrediction(latest),
			})
		}

		predictions, err := dbPrediction.ByFieldSeason(ctx, id)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, slices.Map(predictions, apifields.FromDomainPrediction))
	}
}

// PredictHandler scores one or many field-seasons.
func PredictHandler(predictor *predict.Predictor) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apipredictions.Request{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest,
				"format error",
				apierr.WithError(err),
				apierr.WithAdvice("send fieldSeasonIds and optionally versionTag"),
			)
		}
		if len(req.FieldSeasonIds) == 0 {
			return apierr.BadRequest("fieldSeasonIds should not be empty", nil)
		}

		started := time.Now()
		items, version, err := predictor.PredictBatch(ctx, req.FieldSeasonIds, req.VersionTag)
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NewErrorMessage(
				http.StatusNotFound,
				"model version is not found",
				apierr.WithError(err),
				apierr.WithAdvice("list versions with GET /api/models/"),
			)
		} else if errors.Is(err, registry.ErrNotStored) {
			return apierr.ServiceUnavailable("model artifacts are missing", err)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		metrics.PredictionSeconds.Observe(
			time.Since(started).Seconds() / float64(len(req.FieldSeasonIds)),
		)

		resp := apipredictions.Response{VersionTag: version.VersionTag}
		for _, item := range items {
			out := apipredictions.Item{FieldSeasonId: item.FieldSeasonId}
			if item.Err != nil {
				out.Error = pointer.Ref(item.Err.Error())
				resp.Failed += 1
			} else {
				p := apifields.FromDomainPrediction(item.Prediction)
				out.Prediction = &p
				resp.Succeeded += 1
			}
			resp.Items = append(resp.Items, out)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
