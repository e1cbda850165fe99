package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cropbase/cropbase/pkg/api/auth"
	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	apimodels "github.com/cropbase/cropbase/pkg/api/types/models"
	"github.com/cropbase/cropbase/pkg/domain"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	kdbmodel "github.com/cropbase/cropbase/pkg/domain/model/db"
	kdbprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	"github.com/cropbase/cropbase/pkg/domain/predict/train"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

// ArtifactLister reports which version tags have artifacts on disk.
type ArtifactLister interface {
	ListTags() ([]string, error)
}

// FindModelHandler lists model versions. Each entry notes whether its
// artifacts are stored, so servable versions are visible at a glance.
func FindModelHandler(dbModel kdbmodel.ModelInterface, artifacts ArtifactLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		activeOnly := c.QueryParam("active_only") == "true"
		versions, err := dbModel.Find(ctx, activeOnly)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		tags, err := artifacts.ListTags()
		if err != nil {
			return apierr.InternalServerError(err)
		}
		stored := map[string]bool{}
		for _, tag := range tags {
			stored[tag] = true
		}

		resp := slices.Map(versions, apimodels.FromDomain)
		for i := range resp {
			resp[i].ArtifactsStored = pointer.Ref(stored[resp[i].VersionTag])
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func GetModelHandler(dbModel kdbmodel.ModelInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		version, err := dbModel.Get(ctx, c.Param(paramKey))
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		runs, err := dbModel.TrainingRunsFor(ctx, version.ModelVersionId)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apimodels.FromDomainDetail(version, runs))
	}
}

func GetProductionModelHandler(dbModel kdbmodel.ModelInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		version, err := dbModel.GetProduction(ctx)
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NewErrorMessage(
				http.StatusNotFound,
				"no model is in production",
				apierr.WithAdvice("promote a version with PUT /api/models/{versionTag}/production/"),
			)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apimodels.FromDomain(version))
	}
}

func PromoteModelHandler(dbModel kdbmodel.ModelInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		version, err := dbModel.SetProduction(ctx, c.Param(paramKey))
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apimodels.FromDomain(version))
	}
}

func ModelPerformanceHandler(dbPrediction kdbprediction.PredictionInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		performance, err := dbPrediction.Performance(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, slices.Map(
			performance,
			func(p kdbprediction.ModelPerformance) apimodels.Performance {
				return apimodels.Performance{
					VersionTag: p.VersionTag,
					ModelType:  p.ModelType,
					N:          p.N,
					RMSE:       p.RMSE,
					MAE:        p.MAE,
					Bias:       p.Bias,
				}
			},
		))
	}
}

// TrainModelHandler starts a synchronous training run.
func TrainModelHandler(svc *train.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apimodels.TrainRequest{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return apierr.NewErrorMessage(
				http.StatusBadRequest, "format error", apierr.WithError(err),
			)
		}

		params := train.DefaultParams()
		if req.NEstimators != 0 {
			params.NEstimators = req.NEstimators
		}
		if req.LearningRate != 0 {
			params.LearningRate = req.LearningRate
		}
		if req.MaxDepth != 0 {
			params.MaxDepth = req.MaxDepth
		}
		if req.MinSamplesLeaf != 0 {
			params.MinSamplesLeaf = req.MinSamplesLeaf
		}
		if req.ValFraction != 0 {
			params.ValFraction = req.ValFraction
		}
		if req.Seed != 0 {
			params.Seed = req.Seed
		}

		trainReq := train.Request{
			Params: params,
			Filter: kdbprediction.TrainingMatrixFilter{
				SeasonFrom: req.SeasonFrom,
				SeasonTo:   req.SeasonTo,
				MinQuality: req.MinQuality,
			},
			VersionTag: req.VersionTag,
			Notes:      req.Notes,
			Promote:    req.Promote,
			Backfill:   req.Backfill,
		}
		if subject := auth.Subject(c); subject != "" {
			trainReq.CreatedBy = pointer.Ref(subject)
		}

		version, run, err := svc.Run(ctx, trainReq)
		if errors.Is(err, kerr.ErrConflict) {
			return apierr.Conflict("version tag is taken", apierr.WithError(err))
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusCreated, apimodels.TrainResponse{
			Model: apimodels.FromDomain(version),
			Run:   apimodels.FromDomainRun(run),
		})
	}
}

// ExternalRegistry stores artifacts of externally trained models.
type ExternalRegistry interface {
	SaveRaw(tag string, model, features []byte) error
	Remove(tag string) error
}

// RegisterModelHandler registers an externally trained model: artifacts
// in the request body, version row in the database.
func RegisterModelHandler(
	dbModel kdbmodel.ModelInterface, registry ExternalRegistry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apimodels.RegisterRequest{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest, "format error", apierr.WithError(err),
			)
		}
		if req.VersionTag == "" || req.Model == nil {
			return apierr.BadRequest("versionTag and model are required", nil)
		}

		rawModel, err := json.Marshal(req.Model)
		if err != nil {
			return apierr.BadRequest("model is not valid JSON", err)
		}
		rawFeatures, err := json.Marshal(req.FeatureSpec)
		if err != nil {
			return apierr.BadRequest("featureSpec is not valid JSON", err)
		}
		if err := registry.SaveRaw(req.VersionTag, rawModel, rawFeatures); err != nil {
			return apierr.BadRequest("model artifacts are not acceptable", err)
		}

		modelType := req.ModelType
		if modelType == "" {
			modelType = train.ModelTypeGBT
		}
		version := domain.ModelVersion{
			VersionTag:    req.VersionTag,
			ModelType:     modelType,
			Params:        req.Params,
			Metrics:       req.Metrics,
			TrainedAt:     time.Now(),
			Features:      req.Features,
			Preprocessing: req.Preprocessing,
			Notes:         req.Notes,
		}
		if subject := auth.Subject(c); subject != "" {
			version.CreatedBy = pointer.Ref(subject)
		}

		registered, err := dbModel.Register(ctx, version)
		if errors.Is(err, kerr.ErrConflict) {
			registry.Remove(req.VersionTag)
			return apierr.Conflict("version tag is taken", apierr.WithError(err))
		} else if err != nil {
			registry.Remove(req.VersionTag)
			return apierr.InternalServerError(err)
		}

		if req.Promote {
			registered, err = dbModel.SetProduction(ctx, registered.VersionTag)
			if err != nil {
				return apierr.InternalServerError(err)
			}
		}
		return c.JSON(http.StatusCreated, apimodels.FromDomain(registered))
	}
}

// ModelEvicter drops a cached model.
type ModelEvicter interface {
	Evict(tag string)
}

func DeleteModelHandler(
	dbModel kdbmodel.ModelInterface,
	registry ExternalRegistry,
	cache ModelEvicter,
	paramKey string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		tag := c.Param(paramKey)

		version, err := dbModel.Get(ctx, tag)
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		if version.IsProduction {
			return apierr.Conflict(
				"the production model can not be deleted",
				apierr.WithAdvice("promote another version first"),
			)
		}

		if err := dbModel.Delete(ctx, tag); err != nil {
			return apierr.InternalServerError(err)
		}
		if err := registry.Remove(tag); err != nil {
			return apierr.InternalServerError(err)
		}
		cache.Evict(tag)
		return c.NoContent(http.StatusNoContent)
	}
}
