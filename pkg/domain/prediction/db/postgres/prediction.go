package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	"github.com/cropbase/cropbase/pkg/domain"
	kpgerr "github.com/cropbase/cropbase/pkg/domain/errors/dberrors/postgres"
	pdb "github.com/cropbase/cropbase/pkg/domain/prediction/db"
)

type predictionPG struct { // implements pdb.PredictionInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *predictionPG {
	return &predictionPG{pool: pool}
}

var _ pdb.PredictionInterface = &predictionPG{}

const predictionColumns = `
	"prediction_id", "field_season_id", "model_version_id",
	"predicted_yield", "confidence_lower", "confidence_upper",
	"contributions", "regional_avg", "regional_std", "created_at"
`

func scanPrediction(row pgx.Row) (domain.Prediction, error) {
	p := domain.Prediction{}
	var contributions []byte
	if err := row.Scan(
		&p.PredictionId, &p.FieldSeasonId, &p.ModelVersionId,
		&p.PredictedYield, &p.ConfidenceLower, &p.ConfidenceUpper,
		&contributions, &p.RegionalAvg, &p.RegionalStd, &p.CreatedAt,
	); err != nil {
		return domain.Prediction{}, err
	}
	if contributions != nil {
		if err := json.Unmarshal(contributions, &p.Contributions); err != nil {
			return domain.Prediction{}, err
		}
	}
	return p, nil
}

func (p *predictionPG) Upsert(ctx context.Context, prediction domain.Prediction) (domain.Prediction, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.Prediction{}, err
	}
	defer conn.Release()

	contributions, err := json.Marshal(prediction.Contributions)
	if err != nil {
		return domain.Prediction{}, err
	}

	stored, err := scanPrediction(conn.QueryRow(
		ctx,
		`INSERT INTO "model_predictions" (
			"field_season_id", "model_version_id", "predicted_yield",
			"confidence_lower", "confidence_upper", "contributions",
			"regional_avg", "regional_std"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT "model_predictions_identity" DO UPDATE SET
			"predicted_yield" = excluded."predicted_yield",
			"confidence_lower" = excluded."confidence_lower",
			"confidence_upper" = excluded."confidence_upper",
			"contributions" = excluded."contributions",
			"regional_avg" = excluded."regional_avg",
			"regional_std" = excluded."regional_std",
			"created_at" = now()
		RETURNING `+predictionColumns,
		prediction.FieldSeasonId, prediction.ModelVersionId, prediction.PredictedYield,
		prediction.ConfidenceLower, prediction.ConfidenceUpper, contributions,
		prediction.RegionalAvg, prediction.RegionalStd,
	))
	if err != nil {
		return domain.Prediction{}, err
	}
	return stored, nil
}

func (p *predictionPG) ByFieldSeason(ctx context.Context, fieldSeasonId int64) ([]domain.Prediction, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`SELECT `+predictionColumns+`
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
		stored, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, stored)
	}
	return predictions, nil
}

func (p *predictionPG) LatestFor(ctx context.Context, fieldSeasonId int64) (domain.Prediction, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.Prediction{}, err
	}
	defer conn.Release()

	stored, err := scanPrediction(conn.QueryRow(
		ctx,
		`SELECT `+predictionColumns+`
		FROM "model_predictions"
		WHERE "field_season_id" = $1
		ORDER BY "created_at" DESC
		LIMIT 1`,
		fieldSeasonId,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prediction{}, kpgerr.Missing{
				Table:    "model_predictions",
				Identity: fmt.Sprintf("field_season_id = %d", fieldSeasonId),
			}
		}
		return domain.Prediction{}, err
	}
	return stored, nil
}

func (p *predictionPG) TrainingMatrix(
	ctx context.Context, filter pdb.TrainingMatrixFilter,
) ([]domain.TrainingRow, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := []string{`"fs"."yield_bu_ac" IS NOT NULL`}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.SeasonFrom != 0 {
		where = append(where, fmt.Sprintf(`"s"."year" >= %s`, arg(filter.SeasonFrom)))
	}
	if filter.SeasonTo != 0 {
		where = append(where, fmt.Sprintf(`"s"."year" <= %s`, arg(filter.SeasonTo)))
	}
	if filter.MinQuality != 0 {
		where = append(
			where,
			fmt.Sprintf(
				`("fs"."data_quality_score" IS NULL OR "fs"."data_quality_score" >= %s)`,
				arg(filter.MinQuality),
			),
		)
	}

	query := fmt.Sprintf(
		`SELECT
			"fs"."field_season_id", "fs"."yield_bu_ac",
			"f"."acres", "f"."lat", "f"."lon",
			"s"."year", "c"."name", "v"."name",
			"f"."state", "f"."county",
			"fs"."total_n_per_ac", "fs"."total_p_per_ac", "fs"."total_k_per_ac",
			"e"."water_total_mm",
			coalesce("e"."event_count", 0),
			coalesce("e"."spray_count", 0),
			coalesce("e"."tillage_count", 0),
			coalesce("e"."fert_count", 0)
		FROM "field_seasons" "fs"
		INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
		INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
		LEFT OUTER JOIN "varieties" "v" ON "v"."variety_id" = "fs"."variety_id"
		INNER JOIN "seasons" "s" ON "s"."season_id" = "fs"."season_id"
		LEFT OUTER JOIN (
			SELECT
				"field_season_id",
				count(*) AS "event_count",
				count(*) FILTER (WHERE "event_type" ILIKE '%%spray%%') AS "spray_count",
				count(*) FILTER (WHERE "event_type" ILIKE '%%till%%') AS "tillage_count",
				count(*) FILTER (WHERE "event_type" ILIKE '%%fert%%') AS "fert_count",
				sum("water_applied_mm") AS "water_total_mm"
			FROM "management_events"
			GROUP BY "field_season_id"
		) "e" ON "e"."field_season_id" = "fs"."field_season_id"
		WHERE %s
		ORDER BY "fs"."field_season_id"`,
		strings.Join(where, " AND "),
	)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matrix := []domain.TrainingRow{}
	for rows.Next() {
		r := domain.TrainingRow{}
		if err := rows.Scan(
			&r.FieldSeasonId, &r.YieldBuAc,
			&r.Acres, &r.Lat, &r.Lon,
			&r.SeasonYear, &r.Crop, &r.Variety,
			&r.State, &r.County,
			&r.TotalNPerAc, &r.TotalPPerAc, &r.TotalKPerAc,
			&r.WaterTotalMm,
			&r.EventCount, &r.SprayCount, &r.TillageCount, &r.FertCount,
		); err != nil {
			return nil, err
		}
		matrix = append(matrix, r)
	}
	return matrix, nil
}

func (p *predictionPG) Performance(ctx context.Context) ([]pdb.ModelPerformance, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`SELECT
			"mv"."version_tag", "mv"."model_type",
			count(*),
			sqrt(avg(("mp"."predicted_yield" - "fs"."yield_bu_ac") ^ 2)),
			avg(abs("mp"."predicted_yield" - "fs"."yield_bu_ac")),
			avg("mp"."predicted_yield" - "fs"."yield_bu_ac")
		FROM "model_predictions" "mp"
		INNER JOIN "model_versions" "mv" ON "mv"."model_version_id" = "mp"."model_version_id"
		INNER JOIN "field_seasons" "fs" ON "fs"."field_season_id" = "mp"."field_season_id"
		WHERE "fs"."yield_bu_ac" IS NOT NULL
		GROUP BY "mv"."version_tag", "mv"."model_type"
		ORDER BY "mv"."version_tag"`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	performances := []pdb.ModelPerformance{}
	for rows.Next() {
		perf := pdb.ModelPerformance{}
		if err := rows.Scan(
			&perf.VersionTag, &perf.ModelType, &perf.N,
			&perf.RMSE, &perf.MAE, &perf.Bias,
		); err != nil {
			return nil, err
		}
		performances = append(performances, perf)
	}
	return performances, nil
}
