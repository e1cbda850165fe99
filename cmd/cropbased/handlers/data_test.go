package handlers_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	httptestutil "github.com/cropbase/cropbase/internal/testutils/http"
	apiingests "github.com/cropbase/cropbase/pkg/api/types/ingests"
	"github.com/cropbase/cropbase/pkg/domain"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	fdb "github.com/cropbase/cropbase/pkg/domain/field/db"
	fieldmocks "github.com/cropbase/cropbase/pkg/domain/field/db/mock"
	"github.com/cropbase/cropbase/pkg/domain/ingest"
	idb "github.com/cropbase/cropbase/pkg/domain/ingest/db"
	ingestmocks "github.com/cropbase/cropbase/pkg/domain/ingest/db/mock"

	"github.com/cropbase/cropbase/cmd/cropbased/handlers"
)

const uploadCSV = "field,crop_name_en,variety_name_en,season,acres\n" +
	"101,corn,P1197,2023,80\n" +
	"102,corn,,2023,60\n"

func TestUploadDataHandler(t *testing.T) {

	newService := func(createErr error) *ingest.Service {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.UpsertFieldSeason = func(
			_ context.Context, _ fdb.FieldSeasonUpsert,
		) (fdb.UpsertResult, error) {
			return fdb.UpsertResult{FieldSeasonId: 1, Created: true}, nil
		}
		mckLog := ingestmocks.NewIngestInterface()
		mckLog.Impl.Create = func(_ context.Context, filename string, hash string) (domain.IngestionLog, error) {
			if createErr != nil {
				return domain.IngestionLog{}, createErr
			}
			return domain.IngestionLog{
				IngestionId: 8, SourceFilename: filename, FileHash: hash,
				Status: domain.IngestionProcessing, StartedAt: time.Now(),
			}, nil
		}
		mckLog.Impl.Finish = func(
			_ context.Context, _ int64, _ idb.IngestCounters, _ domain.IngestionStatus, _ *string,
		) error {
			return nil
		}
		return ingest.New(mckField, mckLog)
	}

	t.Run("a raw body upload is ingested", func(t *testing.T) {
		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/data/", strings.NewReader(uploadCSV),
			httptestutil.ContentType("text/csv"),
			httptestutil.WithHeader("X-Filename", "season2023.csv"),
		)
		if err := handlers.UploadDataHandler(newService(nil))(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if respRec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", respRec.Code)
		}

		log := apiingests.Log{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &log); err != nil {
			t.Fatal(err)
		}
		if log.SourceFilename != "season2023.csv" {
			t.Errorf("unexpected filename: %s", log.SourceFilename)
		}
		if log.RecordsParsed != 2 || log.RecordsInserted != 2 {
			t.Errorf("unexpected counters: %+v", log)
		}
	})

	t.Run("a duplicate file is 409", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/data/", strings.NewReader(uploadCSV),
			httptestutil.ContentType("text/csv"),
		)
		err := handlers.UploadDataHandler(newService(kerr.ErrConflict))(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusConflict {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestFindIngestionHandler(t *testing.T) {

	t.Run("it lists recent ingestions", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckLog := ingestmocks.NewIngestInterface()
		mckLog.Impl.Find = func(_ context.Context, limit int) ([]domain.IngestionLog, error) {
			if limit != 20 {
				t.Errorf("unexpected default limit: %d", limit)
			}
			return []domain.IngestionLog{
				{IngestionId: 2, SourceFilename: "b.csv", Status: domain.IngestionCompleted},
				{IngestionId: 1, SourceFilename: "a.csv", Status: domain.IngestionFailed},
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/data/ingestions/")
		if err := handlers.FindIngestionHandler(ingest.New(mckField, mckLog))(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}

		logs := []apiingests.Log{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &logs); err != nil {
			t.Fatal(err)
		}
		if len(logs) != 2 || logs[0].SourceFilename != "b.csv" {
			t.Errorf("unexpected logs: %+v", logs)
		}
	})

	t.Run("a bad limit is 400", func(t *testing.T) {
		svc := ingest.New(fieldmocks.NewFieldInterface(), ingestmocks.NewIngestInterface())

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/data/ingestions/?limit=0")
		err := handlers.FindIngestionHandler(svc)(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestGetIngestionHandler(t *testing.T) {

	t.Run("it returns the log of a known file hash", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckLog := ingestmocks.NewIngestInterface()
		mckLog.Impl.GetByHash = func(_ context.Context, hash string) (domain.IngestionLog, error) {
			if hash != "abc123" {
				t.Errorf("unexpected hash: %s", hash)
			}
			return domain.IngestionLog{
				IngestionId: 7, SourceFilename: "yields.csv", FileHash: "abc123",
				Status: domain.IngestionCompleted,
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/data/ingestions/abc123/")
		c.SetPath("/api/data/ingestions/:fileHash/")
		c.SetParamNames("fileHash")
		c.SetParamValues("abc123")

		if err := handlers.GetIngestionHandler(ingest.New(mckField, mckLog), "fileHash")(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		log := apiingests.Log{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &log); err != nil {
			t.Fatal(err)
		}
		if log.IngestionId != 7 || log.SourceFilename != "yields.csv" {
			t.Errorf("unexpected log: %+v", log)
		}
	})

	t.Run("an unknown hash is 404", func(t *testing.T) {
		mckLog := ingestmocks.NewIngestInterface()
		mckLog.Impl.GetByHash = func(context.Context, string) (domain.IngestionLog, error) {
			return domain.IngestionLog{}, kerr.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/data/ingestions/nope/")
		c.SetPath("/api/data/ingestions/:fileHash/")
		c.SetParamNames("fileHash")
		c.SetParamValues("nope")

		err := handlers.GetIngestionHandler(ingest.New(fieldmocks.NewFieldInterface(), mckLog), "fileHash")(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusNotFound {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestExportCSVHandler(t *testing.T) {
	mckField := fieldmocks.NewFieldInterface()
	mckField.Impl.Find = func(
		_ context.Context, filter domain.FieldSeasonFilter, limit int, offset int,
	) ([]int64, int64, error) {
		if filter.Crop != "corn" {
			t.Errorf("unexpected filter: %+v", filter)
		}
		if offset > 0 {
			return nil, 2, nil
		}
		return []int64{1, 2}, 2, nil
	}
	mckField.Impl.Get = func(_ context.Context, ids []int64) (map[int64]domain.FieldSeason, error) {
		found := map[int64]domain.FieldSeason{}
		for _, id := range ids {
			found[id] = fieldSeasonFixture(id)
		}
		return found, nil
	}
	mckLog := ingestmocks.NewIngestInterface()
	var recorded domain.ExportLog
	mckLog.Impl.RecordExport = func(_ context.Context, log domain.ExportLog) error {
		recorded = log
		return nil
	}

	e := echo.New()
	c, respRec := httptestutil.Get(e, "/api/data/export/csv/?crop=corn")
	if err := handlers.ExportCSVHandler(ingest.New(mckField, mckLog))(c); err != nil {
		t.Fatalf("testee returns error unexpectedly: %s", err)
	}

	if respRec.Code != http.StatusOK {
		t.Errorf("unexpected status: %d", respRec.Code)
	}
	if ctyp := respRec.Header().Get(echo.HeaderContentType); ctyp != "text/csv" {
		t.Errorf("unexpected content type: %s", ctyp)
	}
	if cd := respRec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "field_seasons.csv") {
		t.Errorf("unexpected disposition: %s", cd)
	}

	records, err := csv.NewReader(respRec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 { // header + 2 rows
		t.Fatalf("unexpected record count: %d", len(records))
	}
	if records[0][0] != "field_season_id" {
		t.Errorf("unexpected header: %+v", records[0])
	}
	if records[1][2] != "corn" {
		t.Errorf("unexpected row: %+v", records[1])
	}

	if recorded.ExportType != "field_seasons" || recorded.RecordCount != 2 {
		t.Errorf("export is not logged: %+v", recorded)
	}
	if recorded.Filters["crop"] != "corn" {
		t.Errorf("filters are not logged: %+v", recorded.Filters)
	}
}
