package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	httptestutil "github.com/cropbase/cropbase/internal/testutils/http"

	"github.com/cropbase/cropbase/cmd/cropbased/handlers"
)

type fakeSchema struct {
	version int
	err     error
}

func (s fakeSchema) Upgrade(context.Context) error { return nil }

func (s fakeSchema) Version(context.Context) (int, error) {
	return s.version, s.err
}

func (s fakeSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

func TestHealthHandler(t *testing.T) {

	t.Run("it reports ok with the schema version", func(t *testing.T) {
		e := echo.New()
		c, respRec := httptestutil.Get(e, "/health")
		if err := handlers.HealthHandler(fakeSchema{version: 3})(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if respRec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", respRec.Code)
		}

		resp := struct {
			Status        string `json:"status"`
			SchemaVersion int    `json:"schemaVersion"`
		}{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "ok" || resp.SchemaVersion != 3 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("an unreachable database is 503", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Get(e, "/health")
		err := handlers.HealthHandler(fakeSchema{err: errors.New("no route to host")})(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusServiceUnavailable {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}
