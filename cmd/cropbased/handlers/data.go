package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	apiingests "github.com/cropbase/cropbase/pkg/api/types/ingests"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	"github.com/cropbase/cropbase/pkg/domain/ingest"
)

// UploadDataHandler ingests a CSV file.
//
// The file comes as multipart form field "file", or as the raw request
// body with filename in the X-Filename header.
func UploadDataHandler(svc *ingest.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		filename, reader, err := uploadOf(c)
		if err != nil {
			return apierr.BadRequest("upload a CSV file", err)
		}
		defer reader.Close()

		log, err := svc.Ingest(ctx, filename, reader)
		if errors.Is(err, ingest.ErrAlreadyIngested) {
			return apierr.Conflict(
				"this file is already ingested",
				apierr.WithError(err),
				apierr.WithAdvice("check GET /api/data/ingestions/ for its outcome"),
			)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apiingests.FromDomain(log))
	}
}

func uploadOf(c echo.Context) (string, io.ReadCloser, error) {
	if file, err := c.FormFile("file"); err == nil {
		reader, err := file.Open()
		if err != nil {
			return "", nil, err
		}
		return file.Filename, reader, nil
	}

	body := c.Request().Body
	if body == nil {
		return "", nil, errors.New("no file in request")
	}
	filename := c.Request().Header.Get("X-Filename")
	if filename == "" {
		filename = "upload.csv"
	}
	return filename, body, nil
}

func FindIngestionHandler(svc *ingest.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		limit := 20
		if raw := c.QueryParam("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				return apierr.BadRequest("limit should be a positive integer", err)
			}
			limit = v
		}

		logs, err := svc.Logs(ctx, limit)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apiingests.Log, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, apiingests.FromDomain(l))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// GetIngestionHandler finds the ingestion log of a file's sha-256, so
// an uploader can check a file's fate before re-sending it.
func GetIngestionHandler(svc *ingest.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		log, err := svc.ByHash(ctx, c.Param(paramKey))
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.NotFound()
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apiingests.FromDomain(log))
	}
}

// ExportCSVHandler streams field-seasons matching the query as a CSV
// attachment.
func ExportCSVHandler(svc *ingest.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		filter, err := queryParamToFilter(c)
		if err != nil {
			return apierr.BadRequest(err.Error(), err)
		}

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "text/csv")
		resp.Header().Set(
			echo.HeaderContentDisposition,
			`attachment; filename="field_seasons.csv"`,
		)
		resp.WriteHeader(http.StatusOK)

		if _, _, err := svc.Export(ctx, resp, filter); err != nil {
			// headers are sent; all left to do is cut the stream short.
			return fmt.Errorf("export aborted: %w", err)
		}
		return nil
	}
}
