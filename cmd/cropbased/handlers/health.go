package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	kdbschema "github.com/cropbase/cropbase/pkg/domain/schema/db"
)

type healthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schemaVersion"`
}

// HealthHandler reports liveness and the database schema version.
func HealthHandler(schema kdbschema.SchemaInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		version, err := schema.Version(ctx)
		if err != nil {
			return apierr.ServiceUnavailable("database is not reachable", err)
		}
		return c.JSON(http.StatusOK, healthResponse{
			Status: "ok", SchemaVersion: version,
		})
	}
}
