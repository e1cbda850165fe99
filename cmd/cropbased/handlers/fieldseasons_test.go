package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"

	httptestutil "github.com/cropbase/cropbase/internal/testutils/http"
	apifields "github.com/cropbase/cropbase/pkg/api/types/fields"
	"github.com/cropbase/cropbase/pkg/domain"
	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	fdb "github.com/cropbase/cropbase/pkg/domain/field/db"
	fieldmocks "github.com/cropbase/cropbase/pkg/domain/field/db/mock"
	"github.com/cropbase/cropbase/pkg/domain/ingest"
	idb "github.com/cropbase/cropbase/pkg/domain/ingest/db"
	ingestmocks "github.com/cropbase/cropbase/pkg/domain/ingest/db/mock"
	"github.com/cropbase/cropbase/pkg/utils/cmp"
	"github.com/cropbase/cropbase/pkg/utils/pointer"

	"github.com/cropbase/cropbase/cmd/cropbased/handlers"
)

func fieldSeasonFixture(id int64) domain.FieldSeason {
	return domain.FieldSeason{
		FieldSeasonBody: domain.FieldSeasonBody{
			FieldSeasonId: id,
			YieldBuAc:     pointer.Ref(180.5),
			TotalNPerAc:   pointer.Ref(140.0),
		},
		Field: domain.Field{
			FieldId: id * 10, FieldNumber: strconv.FormatInt(100+id, 10),
			Acres: pointer.Ref(75.0), State: pointer.Ref("IA"), County: pointer.Ref("Polk"),
		},
		Crop:   domain.Crop{CropId: 1, Name: "corn", IsActive: true},
		Season: domain.Season{SeasonId: 3, Year: 2023},
	}
}

func TestFindFieldSeasonHandler(t *testing.T) {

	t.Run("it lists matching field seasons as JSON", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		var filter domain.FieldSeasonFilter
		var limit, offset int
		mckField.Impl.Find = func(
			_ context.Context, f domain.FieldSeasonFilter, l int, o int,
		) ([]int64, int64, error) {
			filter, limit, offset = f, l, o
			return []int64{1, 2}, 7, nil
		}
		mckField.Impl.Get = func(_ context.Context, ids []int64) (map[int64]domain.FieldSeason, error) {
			found := map[int64]domain.FieldSeason{}
			for _, id := range ids {
				found[id] = fieldSeasonFixture(id)
			}
			return found, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(
			e, "/api/fieldseasons/?crop=corn&season=2022,2023&state=IA&min_acres=50&limit=2&offset=4",
		)
		testee := handlers.FindFieldSeasonHandler(mckField)
		if err := testee(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}

		if respRec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", respRec.Code)
		}
		expectedFilter := domain.FieldSeasonFilter{
			Crop: "corn", State: "IA", Seasons: []int{2022, 2023},
			MinAcres: pointer.Ref(50.0),
		}
		if filter.Crop != expectedFilter.Crop || filter.State != expectedFilter.State ||
			!cmp.SliceEq(filter.Seasons, expectedFilter.Seasons) ||
			!cmp.PEqEq(filter.MinAcres, expectedFilter.MinAcres) {
			t.Errorf("unexpected filter: %+v", filter)
		}
		if limit != 2 || offset != 4 {
			t.Errorf("unexpected page: limit=%d offset=%d", limit, offset)
		}

		list := apifields.List{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &list); err != nil {
			t.Fatal(err)
		}
		if list.Total != 7 || list.Limit != 2 || list.Offset != 4 {
			t.Errorf("unexpected page info: %+v", list)
		}
		expected := []apifields.Summary{
			apifields.FromDomainSummary(fieldSeasonFixture(1)),
			apifields.FromDomainSummary(fieldSeasonFixture(2)),
		}
		if !cmp.SliceEqWith(list.Items, expected, apifields.Summary.Equal) {
			t.Errorf(
				"response mismatch. (actual, expected) = (%+v, %+v)",
				list.Items, expected,
			)
		}
	})

	t.Run("no match is an empty list, not an error", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.Find = func(
			_ context.Context, _ domain.FieldSeasonFilter, _ int, _ int,
		) ([]int64, int64, error) {
			return nil, 0, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/fieldseasons/")
		testee := handlers.FindFieldSeasonHandler(mckField)
		if err := testee(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}

		list := apifields.List{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &list); err != nil {
			t.Fatal(err)
		}
		if len(list.Items) != 0 || list.Total != 0 {
			t.Errorf("unexpected list: %+v", list)
		}
		if mckField.Calls.Get.Times() != 0 {
			t.Error("Get was called for an empty match")
		}
	})

	t.Run("a broken query parameter is 400", func(t *testing.T) {
		for name, query := range map[string]string{
			"season":    "?season=twentytwo",
			"min_acres": "?min_acres=wide",
			"limit":     "?limit=-1",
			"offset":    "?offset=x",
		} {
			t.Run(name, func(t *testing.T) {
				e := echo.New()
				c, _ := httptestutil.Get(e, "/api/fieldseasons/"+query)
				testee := handlers.FindFieldSeasonHandler(fieldmocks.NewFieldInterface())
				err := testee(c)
				if err == nil {
					t.Fatal("no error is returned")
				}
				var echoErr *echo.HTTPError
				if !errors.As(err, &echoErr) {
					t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
				}
				if echoErr.Code != http.StatusBadRequest {
					t.Errorf("unexpected status: %d", echoErr.Code)
				}
			})
		}
	})

	t.Run("a database error is 500", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.Find = func(
			_ context.Context, _ domain.FieldSeasonFilter, _ int, _ int,
		) ([]int64, int64, error) {
			return nil, 0, errors.New("connection lost")
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/fieldseasons/")
		testee := handlers.FindFieldSeasonHandler(mckField)
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusInternalServerError {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestGetFieldSeasonHandler(t *testing.T) {

	t.Run("it returns the detail of a season fact", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.GetDetail = func(_ context.Context, id int64) (domain.FieldSeasonDetail, error) {
			return domain.FieldSeasonDetail{
				FieldSeason: fieldSeasonFixture(id),
				Events: []domain.ManagementEvent{
					{EventId: 1, FieldSeasonId: id, EventType: "fertilizer"},
				},
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/fieldseasons/42")
		c.SetPath("/api/fieldseasons/:fieldSeasonId")
		c.SetParamNames("fieldSeasonId")
		c.SetParamValues("42")

		testee := handlers.GetFieldSeasonHandler(mckField, "fieldSeasonId")
		if err := testee(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}

		if mckField.Calls.GetDetail.Times() != 1 || mckField.Calls.GetDetail[0] != 42 {
			t.Errorf("unexpected GetDetail calls: %+v", mckField.Calls.GetDetail)
		}
		detail := apifields.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &detail); err != nil {
			t.Fatal(err)
		}
		if detail.FieldSeasonId != 42 || len(detail.Events) != 1 {
			t.Errorf("unexpected detail: %+v", detail)
		}
	})

	t.Run("an unknown id is 404", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.GetDetail = func(_ context.Context, _ int64) (domain.FieldSeasonDetail, error) {
			return domain.FieldSeasonDetail{}, kerr.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/fieldseasons/404")
		c.SetPath("/api/fieldseasons/:fieldSeasonId")
		c.SetParamNames("fieldSeasonId")
		c.SetParamValues("404")

		testee := handlers.GetFieldSeasonHandler(mckField, "fieldSeasonId")
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusNotFound {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})

	t.Run("a non-integer id is 400", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/fieldseasons/abc")
		c.SetPath("/api/fieldseasons/:fieldSeasonId")
		c.SetParamNames("fieldSeasonId")
		c.SetParamValues("abc")

		testee := handlers.GetFieldSeasonHandler(fieldmocks.NewFieldInterface(), "fieldSeasonId")
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestRecordFieldSeasonHandler(t *testing.T) {

	newService := func(created bool, createErr error) *ingest.Service {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.UpsertFieldSeason = func(
			_ context.Context, _ fdb.FieldSeasonUpsert,
		) (fdb.UpsertResult, error) {
			return fdb.UpsertResult{FieldSeasonId: 99, Created: created}, nil
		}
		mckLog := ingestmocks.NewIngestInterface()
		mckLog.Impl.Create = func(_ context.Context, _ string, _ string) (domain.IngestionLog, error) {
			if createErr != nil {
				return domain.IngestionLog{}, createErr
			}
			return domain.IngestionLog{IngestionId: 1}, nil
		}
		mckLog.Impl.Finish = func(
			_ context.Context, _ int64, _ idb.IngestCounters, _ domain.IngestionStatus, _ *string,
		) error {
			return nil
		}
		return ingest.New(mckField, mckLog)
	}

	t.Run("a new record is 201", func(t *testing.T) {
		body, _ := json.Marshal(apifields.RecordRequest{
			FieldNumber: "101", Crop: "corn", SeasonYear: 2024,
			Acres: pointer.Ref(80.0), YieldTarget: pointer.Ref(200.0),
		})

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/fieldseasons/", bytes.NewReader(body),
			httptestutil.ContentType("application/json"),
		)
		testee := handlers.RecordFieldSeasonHandler(newService(true, nil))
		if err := testee(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if respRec.Code != http.StatusCreated {
			t.Errorf("unexpected status: %d", respRec.Code)
		}
		resp := apifields.RecordResponse{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.FieldSeasonId != 99 || !resp.Created {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("merging into an existing fact is 200", func(t *testing.T) {
		body, _ := json.Marshal(apifields.RecordRequest{
			FieldNumber: "101", Crop: "corn", SeasonYear: 2024,
		})

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/fieldseasons/", bytes.NewReader(body),
			httptestutil.ContentType("application/json"),
		)
		testee := handlers.RecordFieldSeasonHandler(newService(false, nil))
		if err := testee(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		if respRec.Code != http.StatusOK {
			t.Errorf("unexpected status: %d", respRec.Code)
		}
	})

	t.Run("a record entered twice is 409", func(t *testing.T) {
		body, _ := json.Marshal(apifields.RecordRequest{
			FieldNumber: "101", Crop: "corn", SeasonYear: 2024,
		})

		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/fieldseasons/", bytes.NewReader(body),
			httptestutil.ContentType("application/json"),
		)
		testee := handlers.RecordFieldSeasonHandler(newService(true, kerr.ErrConflict))
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusConflict {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})

	t.Run("missing required fields are 400", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/fieldseasons/", bytes.NewReader([]byte(`{"crop": "corn"}`)),
			httptestutil.ContentType("application/json"),
		)
		testee := handlers.RecordFieldSeasonHandler(newService(true, nil))
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})

	t.Run("unknown JSON fields are 400", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/fieldseasons/",
			bytes.NewReader([]byte(`{"fieldNumber": "1", "crop": "corn", "seasonYear": 2024, "surprise": true}`)),
			httptestutil.ContentType("application/json"),
		)
		testee := handlers.RecordFieldSeasonHandler(newService(true, nil))
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}

func TestLookupHandlers(t *testing.T) {

	t.Run("CropsHandler lists crops", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.Crops = func(_ context.Context) ([]domain.Crop, error) {
			return []domain.Crop{
				{CropId: 1, Name: "corn", IsActive: true},
				{CropId: 2, Name: "soybeans", IsActive: true},
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/crops/")
		if err := handlers.CropsHandler(mckField)(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		crops := []apifields.Crop{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &crops); err != nil {
			t.Fatal(err)
		}
		if len(crops) != 2 || crops[0].Name != "corn" {
			t.Errorf("unexpected crops: %+v", crops)
		}
	})

	t.Run("VarietiesHandler passes the crop filter through", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.Varieties = func(_ context.Context, crop string) ([]domain.Variety, error) {
			if crop != "corn" {
				t.Errorf("unexpected crop filter: %s", crop)
			}
			return []domain.Variety{{VarietyId: 5, Name: "P1197", CropId: 1, IsActive: true}}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/varieties/?crop=corn")
		if err := handlers.VarietiesHandler(mckField)(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		varieties := []apifields.Variety{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &varieties); err != nil {
			t.Fatal(err)
		}
		if len(varieties) != 1 || varieties[0].Name != "P1197" {
			t.Errorf("unexpected varieties: %+v", varieties)
		}
	})

	t.Run("SeasonsHandler lists seasons", func(t *testing.T) {
		mckField := fieldmocks.NewFieldInterface()
		mckField.Impl.Seasons = func(_ context.Context) ([]domain.Season, error) {
			return []domain.Season{{SeasonId: 3, Year: 2024, IsCurrent: true}, {SeasonId: 2, Year: 2023}}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/seasons/")
		if err := handlers.SeasonsHandler(mckField)(c); err != nil {
			t.Fatalf("testee returns error unexpectedly: %s", err)
		}
		seasons := []apifields.Season{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &seasons); err != nil {
			t.Fatal(err)
		}
		if len(seasons) != 2 || seasons[0].Year != 2024 {
			t.Errorf("unexpected seasons: %+v", seasons)
		}
	})
}

func TestOverviewHandler(t *testing.T) {
	mckField := fieldmocks.NewFieldInterface()
	mckField.Impl.Overview = func(_ context.Context) (domain.Overview, error) {
		return domain.Overview{
			TotalFields: 12, TotalFieldSeasons: 30, ObservedYields: 25,
			PredictedSeasons: 5, Seasons: []int{2022, 2023},
			Crops: []string{"corn"}, States: []string{"IA"},
			YieldAvg: pointer.Ref(182.0),
		}, nil
	}

	e := echo.New()
	c, respRec := httptestutil.Get(e, "/api/")
	if err := handlers.OverviewHandler(mckField)(c); err != nil {
		t.Fatalf("testee returns error unexpectedly: %s", err)
	}
	overview := apifields.Overview{}
	if err := json.Unmarshal(respRec.Body.Bytes(), &overview); err != nil {
		t.Fatal(err)
	}
	if overview.TotalFieldSeasons != 30 || overview.YieldAvg == nil || *overview.YieldAvg != 182 {
		t.Errorf("unexpected overview: %+v", overview)
	}
}
