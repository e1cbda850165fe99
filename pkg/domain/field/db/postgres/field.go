package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	"github.com/cropbase/cropbase/pkg/conn/db/postgres/scanner"
	"github.com/cropbase/cropbase/pkg/domain"
	kpgerr "github.com/cropbase/cropbase/pkg/domain/errors/dberrors/postgres"
	fdb "github.com/cropbase/cropbase/pkg/domain/field/db"
)

type fieldPG struct { // implements fdb.FieldInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *fieldPG {
	return &fieldPG{pool: pool}
}

var _ fdb.FieldInterface = &fieldPG{}

func (f *fieldPG) UpsertFieldSeason(ctx context.Context, record fdb.FieldSeasonUpsert) (fdb.UpsertResult, error) {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return fdb.UpsertResult{}, err
	}
	defer tx.Rollback(ctx)

	cropId, err := getOrCreateCrop(ctx, tx, record.Crop)
	if err != nil {
		return fdb.UpsertResult{}, err
	}

	var varietyId *int64
	if record.Variety != nil && *record.Variety != "" {
		vid, err := getOrCreateVariety(ctx, tx, *record.Variety, cropId)
		if err != nil {
			return fdb.UpsertResult{}, err
		}
		varietyId = &vid
	}

	seasonId, err := getOrCreateSeason(ctx, tx, record.SeasonYear)
	if err != nil {
		return fdb.UpsertResult{}, err
	}

	fieldId, err := getOrCreateField(ctx, tx, record)
	if err != nil {
		return fdb.UpsertResult{}, err
	}

	result, err := upsertFact(ctx, tx, fieldId, cropId, varietyId, seasonId, record)
	if err != nil {
		return fdb.UpsertResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return fdb.UpsertResult{}, err
	}
	return result, nil
}

func getOrCreateCrop(ctx context.Context, tx kpool.Tx, name string) (int64, error) {
	if _, err := tx.Exec(
		ctx,
		`INSERT INTO "crops" ("name") VALUES ($1) ON CONFLICT ("name") DO NOTHING`,
		name,
	); err != nil {
		return 0, err
	}

	var cropId int64
	if err := tx.QueryRow(
		ctx, `SELECT "crop_id" FROM "crops" WHERE "name" = $1`, name,
	).Scan(&cropId); err != nil {
		return 0, err
	}
	return cropId, nil
}

func getOrCreateVariety(ctx context.Context, tx kpool.Tx, name string, cropId int64) (int64, error) {
	if _, err := tx.Exec(
		ctx,
		`INSERT INTO "varieties" ("name", "crop_id") VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT "varieties_name_crop" DO NOTHING`,
		name, cropId,
	); err != nil {
		return 0, err
	}

	var varietyId int64
	if err := tx.QueryRow(
		ctx,
		`SELECT "variety_id" FROM "varieties" WHERE "name" = $1 AND "crop_id" = $2`,
		name, cropId,
	).Scan(&varietyId); err != nil {
		return 0, err
	}
	return varietyId, nil
}

func getOrCreateSeason(ctx context.Context, tx kpool.Tx, year int) (int64, error) {
	if _, err := tx.Exec(
		ctx,
		`INSERT INTO "seasons" ("year") VALUES ($1) ON CONFLICT ("year") DO NOTHING`,
		year,
	); err != nil {
		return 0, err
	}

	var seasonId int64
	if err := tx.QueryRow(
		ctx, `SELECT "season_id" FROM "seasons" WHERE "year" = $1`, year,
	).Scan(&seasonId); err != nil {
		return 0, err
	}
	return seasonId, nil
}

// create the field when unknown.
//
// For a known field, position and acreage are filled only when the stored
// columns are null; stored values are never overwritten.
func getOrCreateField(ctx context.Context, tx kpool.Tx, record fdb.FieldSeasonUpsert) (int64, error) {
	if _, err := tx.Exec(
		ctx,
		`INSERT INTO "fields" ("field_number", "acres", "lat", "lon", "county", "state", "grower_id")
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ("field_number") DO NOTHING`,
		record.FieldNumber, record.Acres, record.Lat, record.Lon,
		record.County, record.State, record.GrowerId,
	); err != nil {
		return 0, err
	}

	var fieldId int64
	if err := tx.QueryRow(
		ctx,
		`UPDATE "fields" SET
			"acres" = coalesce("acres", $2),
			"lat" = coalesce("lat", $3),
			"lon" = coalesce("lon", $4),
			"county" = coalesce("county", $5),
			"state" = coalesce("state", $6),
			"grower_id" = coalesce("grower_id", $7)
		WHERE "field_number" = $1
		RETURNING "field_id"`,
		record.FieldNumber, record.Acres, record.Lat, record.Lon,
		record.County, record.State, record.GrowerId,
	).Scan(&fieldId); err != nil {
		return 0, err
	}
	return fieldId, nil
}

func upsertFact(
	ctx context.Context, tx kpool.Tx,
	fieldId int64, cropId int64, varietyId *int64, seasonId int64,
	record fdb.FieldSeasonUpsert,
) (fdb.UpsertResult, error) {
	var fieldSeasonId int64
	err := tx.QueryRow(
		ctx,
		`SELECT "field_season_id" FROM "field_seasons"
		WHERE "field_id" = $1 AND "crop_id" = $2
			AND coalesce("variety_id", -1) = coalesce($3, -1)
			AND "season_id" = $4
		FOR UPDATE`,
		fieldId, cropId, varietyId, seasonId,
	).Scan(&fieldSeasonId)

	if err == nil {
		// merge: keep stored non-null values, fill the rest.
		if _, err := tx.Exec(
			ctx,
			`UPDATE "field_seasons" SET
				"yield_bu_ac" = coalesce("yield_bu_ac", $2),
				"yield_target" = coalesce("yield_target", $3),
				"total_n_per_ac" = coalesce("total_n_per_ac", $4),
				"total_p_per_ac" = coalesce("total_p_per_ac", $5),
				"total_k_per_ac" = coalesce("total_k_per_ac", $6),
				"record_source" = coalesce("record_source", $7),
				"data_quality_score" = coalesce("data_quality_score", $8),
				"updated_at" = now()
			WHERE "field_season_id" = $1`,
			fieldSeasonId,
			record.YieldBuAc, record.YieldTarget,
			record.TotalNPerAc, record.TotalPPerAc, record.TotalKPerAc,
			record.RecordSource, record.DataQualityScore,
		); err != nil {
			return fdb.UpsertResult{}, err
		}
		return fdb.UpsertResult{FieldSeasonId: fieldSeasonId, Created: false}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fdb.UpsertResult{}, err
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO "field_seasons" (
			"field_id", "crop_id", "variety_id", "season_id",
			"yield_bu_ac", "yield_target",
			"total_n_per_ac", "total_p_per_ac", "total_k_per_ac",
			"record_source", "data_quality_score"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING "field_season_id"`,
		fieldId, cropId, varietyId, seasonId,
		record.YieldBuAc, record.YieldTarget,
		record.TotalNPerAc, record.TotalPPerAc, record.TotalKPerAc,
		record.RecordSource, record.DataQualityScore,
	).Scan(&fieldSeasonId); err != nil {
		return fdb.UpsertResult{}, err
	}
	return fdb.UpsertResult{FieldSeasonId: fieldSeasonId, Created: true}, nil
}

func (f *fieldPG) AddEvent(ctx context.Context, event domain.ManagementEvent) (int64, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var eventId int64
	if err := conn.QueryRow(
		ctx,
		`INSERT INTO "management_events" (
			"field_season_id", "job_id", "event_type", "status",
			"start_date", "end_date", "application_area", "amount",
			"description", "fert_units", "rate", "fertilizer_id",
			"blend_name", "chemical_type", "chem_product", "chem_units",
			"water_applied_mm", "irrigation_method", "machinery", "scout_count"
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		RETURNING "event_id"`,
		event.FieldSeasonId, event.JobId, event.EventType, event.Status,
		event.StartDate, event.EndDate, event.ApplicationArea, event.Amount,
		event.Description, event.FertUnits, event.Rate, event.FertilizerId,
		event.BlendName, event.ChemicalType, event.ChemProduct, event.ChemUnits,
		event.WaterAppliedMm, event.IrrigationMethod, event.Machinery, event.ScoutCount,
	).Scan(&eventId); err != nil {
		return 0, err
	}
	return eventId, nil
}

func (f *fieldPG) Find(
	ctx context.Context, filter domain.FieldSeasonFilter, limit int, offset int,
) ([]int64, int64, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	where := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Crop != "" {
		where = append(where, fmt.Sprintf(`"c"."name" = %s`, arg(filter.Crop)))
	}
	if filter.Variety != "" {
		where = append(where, fmt.Sprintf(`"v"."name" = %s`, arg(filter.Variety)))
	}
	if 0 < len(filter.Seasons) {
		where = append(where, fmt.Sprintf(`"s"."year" = any(%s::integer[])`, arg(filter.Seasons)))
	}
	if filter.State != "" {
		where = append(where, fmt.Sprintf(`"f"."state" = %s`, arg(filter.State)))
	}
	if filter.County != "" {
		where = append(where, fmt.Sprintf(`"f"."county" = %s`, arg(filter.County)))
	}
	if filter.MinAcres != nil {
		where = append(where, fmt.Sprintf(`"f"."acres" >= %s`, arg(*filter.MinAcres)))
	}
	if filter.MaxAcres != nil {
		where = append(where, fmt.Sprintf(`"f"."acres" <= %s`, arg(*filter.MaxAcres)))
	}
	if filter.HasPrediction != nil {
		operator := "exists"
		if !*filter.HasPrediction {
			operator = "not exists"
		}
		where = append(where, fmt.Sprintf(
			`%s (SELECT 1 FROM "model_predictions" "p" WHERE "p"."field_season_id" = "fs"."field_season_id")`,
			operator,
		))
	}
	if filter.MinPredicted != nil {
		where = append(where, fmt.Sprintf(
			`exists (SELECT 1 FROM "model_predictions" "p" WHERE "p"."field_season_id" = "fs"."field_season_id" AND "p"."predicted_yield" >= %s)`,
			arg(*filter.MinPredicted),
		))
	}
	if filter.MaxPredicted != nil {
		where = append(where, fmt.Sprintf(
			`exists (SELECT 1 FROM "model_predictions" "p" WHERE "p"."field_season_id" = "fs"."field_season_id" AND "p"."predicted_yield" <= %s)`,
			arg(*filter.MaxPredicted),
		))
	}

	cond := ""
	if 0 < len(where) {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	base := fmt.Sprintf(
		`FROM "field_seasons" "fs"
		INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
		INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
		LEFT OUTER JOIN "varieties" "v" ON "v"."variety_id" = "fs"."variety_id"
		INNER JOIN "seasons" "s" ON "s"."season_id" = "fs"."season_id"
		%s`,
		cond,
	)

	var total int64
	if err := conn.QueryRow(
		ctx, `SELECT count(*) `+base, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT "fs"."field_season_id" %s
		ORDER BY "s"."year" DESC, "fs"."field_season_id"
		LIMIT %s OFFSET %s`,
		base, arg(limit), arg(offset),
	)
	ids, err := scanner.New[int64]().QueryAll(ctx, conn, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

func (f *fieldPG) Get(ctx context.Context, fieldSeasonIds []int64) (map[int64]domain.FieldSeason, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return getFieldSeasons(ctx, conn, fieldSeasonIds)
}

func getFieldSeasons(ctx context.Context, conn kpool.Queryer, fieldSeasonIds []int64) (map[int64]domain.FieldSeason, error) {
	if len(fieldSeasonIds) == 0 {
		return map[int64]domain.FieldSeason{}, nil
	}

	rows, err := conn.Query(
		ctx,
		`SELECT
			"fs"."field_season_id", "fs"."field_id", "fs"."crop_id",
			"fs"."variety_id", "fs"."season_id",
			"fs"."yield_bu_ac", "fs"."yield_target",
			"fs"."total_n_per_ac", "fs"."total_p_per_ac", "fs"."total_k_per_ac",
			"fs"."record_source", "fs"."data_quality_score",
			"f"."field_number", "f"."acres", "f"."lat", "f"."lon",
			"f"."county", "f"."state", "f"."grower_id",
			"c"."name", "c"."is_active",
			"v"."name", "v"."is_active",
			"s"."year", "s"."is_current"
		FROM "field_seasons" "fs"
		INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
		INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
		LEFT OUTER JOIN "varieties" "v" ON "v"."variety_id" = "fs"."variety_id"
		INNER JOIN "seasons" "s" ON "s"."season_id" = "fs"."season_id"
		WHERE "fs"."field_season_id" = any($1::bigint[])`,
		fieldSeasonIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := map[int64]domain.FieldSeason{}
	for rows.Next() {
		fs := domain.FieldSeason{}
		var varietyName *string
		var varietyActive *bool
		if err := rows.Scan(
			&fs.FieldSeasonId, &fs.FieldId, &fs.CropId,
			&fs.VarietyId, &fs.SeasonId,
			&fs.YieldBuAc, &fs.YieldTarget,
			&fs.TotalNPerAc, &fs.TotalPPerAc, &fs.TotalKPerAc,
			&fs.RecordSource, &fs.DataQualityScore,
			&fs.Field.FieldNumber, &fs.Field.Acres, &fs.Field.Lat, &fs.Field.Lon,
			&fs.Field.County, &fs.Field.State, &fs.Field.GrowerId,
			&fs.Crop.Name, &fs.Crop.IsActive,
			&varietyName, &varietyActive,
			&fs.Season.Year, &fs.Season.IsCurrent,
		); err != nil {
			return nil, err
		}
		fs.Field.FieldId = fs.FieldId
		fs.Crop.CropId = fs.CropId
		fs.Season.SeasonId = fs.SeasonId
		if fs.VarietyId != nil && varietyName != nil {
			fs.Variety = &domain.Variety{
				VarietyId: *fs.VarietyId,
				Name:      *varietyName,
				CropId:    fs.CropId,
				IsActive:  varietyActive != nil && *varietyActive,
			}
		}
		ret[fs.FieldSeasonId] = fs
	}
	return ret, nil
}

func (f *fieldPG) GetDetail(ctx context.Context, fieldSeasonId int64) (domain.FieldSeasonDetail, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return domain.FieldSeasonDetail{}, err
	}
	defer conn.Release()

	facts, err := getFieldSeasons(ctx, conn, []int64{fieldSeasonId})
	if err != nil {
		return domain.FieldSeasonDetail{}, err
	}
	fact, ok := facts[fieldSeasonId]
	if !ok {
		return domain.FieldSeasonDetail{}, kpgerr.Missing{
			Table:    "field_seasons",
			Identity: fmt.Sprintf("field_season_id = %d", fieldSeasonId),
		}
	}

	events, err := getEvents(ctx, conn, fieldSeasonId)
	if err != nil {
		return domain.FieldSeasonDetail{}, err
	}

	predictions, err := getPredictions(ctx, conn, fieldSeasonId)
	if err != nil {
		return domain.FieldSeasonDetail{}, err
	}

	return domain.FieldSeasonDetail{
		FieldSeason: fact,
		Events:      events,
		Predictions: predictions,
	}, nil
}

func getEvents(ctx context.Context, conn kpool.Queryer, fieldSeasonId int64) ([]domain.ManagementEvent, error) {
	rows, err := conn.Query(
		ctx,
		`SELECT
			"event_id", "field_season_id", "job_id", "event_type", "status",
			"start_date", "end_date", "application_area", "amount",
			"description", "fert_units", "rate", "fertilizer_id",
			"blend_name", "chemical_type", "chem_product", "chem_units",
			"water_applied_mm", "irrigation_method", "machinery", "scout_count"
		FROM "management_events"
		WHERE "field_season_id" = $1
		ORDER BY "start_date" NULLS LAST, "event_id"`,
		fieldSeasonId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.ManagementEvent{}
	for rows.Next() {
		ev := domain.ManagementEvent{}
		if err := rows.Scan(
			&ev.EventId, &ev.FieldSeasonId, &ev.JobId, &ev.EventType, &ev.Status,
			&ev.StartDate, &ev.EndDate, &ev.ApplicationArea, &ev.Amount,
			&ev.Description, &ev.FertUnits, &ev.Rate, &ev.FertilizerId,
			&ev.BlendName, &ev.ChemicalType, &ev.ChemProduct, &ev.ChemUnits,
			&ev.WaterAppliedMm, &ev.IrrigationMethod, &ev.Machinery, &ev.ScoutCount,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func getPredictions(ctx context.Context, conn kpool.Queryer, fieldSeasonId int64) ([]domain.Prediction, error) {
	rows, err := conn.Query(
		ctx,
		`SELECT
			"prediction_id", "field_season_id", "model_version_id",
			"predicted_yield", "confidence_lower", "confidence_upper",
			"contributions", "regional_avg", "regional_std", "created_at"
		FROM "model_predictions"
		WHERE "field_season_id" = $1
		ORDER BY "created_at" DESC`,
		fieldSeasonId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := []domain.Prediction{}
	for rows.Next() {
		p := domain.Prediction{}
		var contributions []byte
		var createdAt time.Time
		if err := rows.Scan(
			&p.PredictionId, &p.FieldSeasonId, &p.ModelVersionId,
			&p.PredictedYield, &p.ConfidenceLower, &p.ConfidenceUpper,
			&contributions, &p.RegionalAvg, &p.RegionalStd, &createdAt,
		); err != nil {
			return nil, err
		}
		if contributions != nil {
			if err := json.Unmarshal(contributions, &p.Contributions); err != nil {
				return nil, err
			}
		}
		p.CreatedAt = createdAt
		predictions = append(predictions, p)
	}
	return predictions, nil
}

func (f *fieldPG) Crops(ctx context.Context) ([]domain.Crop, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return scanner.New[domain.Crop]().QueryAll(
		ctx, conn,
		`SELECT "crop_id", "name", "is_active" FROM "crops" ORDER BY "name"`,
	)
}

func (f *fieldPG) Varieties(ctx context.Context, crop string) ([]domain.Variety, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if crop == "" {
		return scanner.New[domain.Variety]().QueryAll(
			ctx, conn,
			`SELECT "variety_id", "name", "crop_id", "is_active" FROM "varieties" ORDER BY "name"`,
		)
	}
	return scanner.New[domain.Variety]().QueryAll(
		ctx, conn,
		`SELECT "v"."variety_id", "v"."name", "v"."crop_id", "v"."is_active"
		FROM "varieties" "v"
		INNER JOIN "crops" "c" ON "c"."crop_id" = "v"."crop_id"
		WHERE "c"."name" = $1
		ORDER BY "v"."name"`,
		crop,
	)
}

func (f *fieldPG) Seasons(ctx context.Context) ([]domain.Season, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return scanner.New[domain.Season]().QueryAll(
		ctx, conn,
		`SELECT "season_id", "year", "is_current" FROM "seasons" ORDER BY "year" DESC`,
	)
}

func (f *fieldPG) Overview(ctx context.Context) (domain.Overview, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	defer conn.Release()

	ov := domain.Overview{}
	if err := conn.QueryRow(
		ctx,
		`SELECT
			(SELECT count(*) FROM "fields"),
			(SELECT count(*) FROM "field_seasons"),
			(SELECT count(*) FROM "field_seasons" WHERE "yield_bu_ac" IS NOT NULL),
			(SELECT count(DISTINCT "field_season_id") FROM "model_predictions"),
			(SELECT min("yield_bu_ac") FROM "field_seasons"),
			(SELECT max("yield_bu_ac") FROM "field_seasons"),
			(SELECT avg("yield_bu_ac") FROM "field_seasons")`,
	).Scan(
		&ov.TotalFields, &ov.TotalFieldSeasons, &ov.ObservedYields,
		&ov.PredictedSeasons, &ov.YieldMin, &ov.YieldMax, &ov.YieldAvg,
	); err != nil {
		return domain.Overview{}, err
	}

	seasons, err := scanner.New[int]().QueryAll(
		ctx, conn, `SELECT "year" FROM "seasons" ORDER BY "year" DESC`,
	)
	if err != nil {
		return domain.Overview{}, err
	}
	ov.Seasons = seasons

	crops, err := scanner.New[string]().QueryAll(
		ctx, conn, `SELECT "name" FROM "crops" ORDER BY "name"`,
	)
	if err != nil {
		return domain.Overview{}, err
	}
	ov.Crops = crops

	states, err := scanner.New[string]().QueryAll(
		ctx, conn,
		`SELECT DISTINCT "state" FROM "fields" WHERE "state" IS NOT NULL ORDER BY "state"`,
	)
	if err != nil {
		return domain.Overview{}, err
	}
	ov.States = states

	return ov, nil
}
