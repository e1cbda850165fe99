package main

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cropbase/cropbase/cmd/cropbased/handlers"
	"github.com/cropbase/cropbase/pkg/api/auth"
	configs "github.com/cropbase/cropbase/pkg/configs/server"
	kdb "github.com/cropbase/cropbase/pkg/domain/cropbase/db"
	"github.com/cropbase/cropbase/pkg/domain/ingest"
	"github.com/cropbase/cropbase/pkg/domain/model/registry"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/domain/predict/train"
	"github.com/cropbase/cropbase/pkg/metrics"
	"github.com/cropbase/cropbase/pkg/utils/echoutil"
)

var API_ROOT = "/api"

func api(subpath string) string {
	if subpath == "" {
		return API_ROOT + "/"
	}
	if !strings.HasSuffix(subpath, "/") {
		subpath += "/"
	}
	return fmt.Sprintf("%s/%s", API_ROOT, subpath)
}

func BuildServer(
	conf *configs.ServerConfig, db kdb.CropDatabase, models *registry.Registry, loglevel string,
) *echo.Echo {

	e := echo.New()
	echoutil.SetLevel(e, loglevel)

	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	e.Pre(middleware.AddTrailingSlash())
	e.Use(echoutil.LogHandlerFunc)
	e.Use(metrics.Middleware())

	var authority *auth.Authority
	if a := conf.Auth(); a != nil {
		authority = auth.New(a.Secret(), a.Issuer())
	}
	guard := auth.Middleware(authority)

	ingestSvc := ingest.New(db.Field(), db.Ingest())
	predictor := predict.New(db.Field(), db.Model(), db.Prediction(), db.Stats(), models)
	trainer := train.NewService(db.Model(), db.Prediction(), models)

	e.GET("/health", handlers.HealthHandler(db.Schema()))
	e.GET("/metrics", metrics.Handler())

	e.GET(api(""), handlers.OverviewHandler(db.Field()))

	{
		fsid := "fieldSeasonId"
		e.GET(api("fieldseasons"), handlers.FindFieldSeasonHandler(db.Field()))
		e.GET(api("fieldseasons/:fieldSeasonId/"), handlers.GetFieldSeasonHandler(db.Field(), fsid))
		e.GET(api("fieldseasons/:fieldSeasonId/predictions/"), handlers.FieldSeasonPredictionsHandler(db.Prediction(), fsid))
		e.POST(api("fieldseasons"), handlers.RecordFieldSeasonHandler(ingestSvc), guard)

		e.GET(api("crops"), handlers.CropsHandler(db.Field()))
		e.GET(api("varieties"), handlers.VarietiesHandler(db.Field()))
		e.GET(api("seasons"), handlers.SeasonsHandler(db.Field()))
	}

	{
		e.POST(api("data"), handlers.UploadDataHandler(ingestSvc), guard)
		e.GET(api("data/ingestions"), handlers.FindIngestionHandler(ingestSvc))
		e.GET(api("data/ingestions/:fileHash/"), handlers.GetIngestionHandler(ingestSvc, "fileHash"))
		e.GET(api("export/csv"), handlers.ExportCSVHandler(ingestSvc))
	}

	{
		tag := "versionTag"
		e.GET(api("models"), handlers.FindModelHandler(db.Model(), models))
		e.GET(api("models/production/"), handlers.GetProductionModelHandler(db.Model()))
		e.GET(api("models/performance/"), handlers.ModelPerformanceHandler(db.Prediction()))
		e.GET(api("models/:versionTag/"), handlers.GetModelHandler(db.Model(), tag))

		e.POST(api("models"), handlers.RegisterModelHandler(db.Model(), models), guard)
		e.POST(api("models/train/"), handlers.TrainModelHandler(trainer), guard)
		e.PUT(api("models/:versionTag/production/"), handlers.PromoteModelHandler(db.Model(), tag), guard)
		e.DELETE(api("models/:versionTag/"), handlers.DeleteModelHandler(db.Model(), models, predictor, tag), guard)
	}

	e.POST(api("predictions"), handlers.PredictHandler(predictor), guard)

	{
		e.GET(api("stats/regional/"), handlers.RegionalStatsHandler(db.Stats()))
		e.GET(api("stats/varieties/"), handlers.VarietyStatsHandler(db.Stats()))
	}

	return e
}
