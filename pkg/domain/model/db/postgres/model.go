package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	"github.com/cropbase/cropbase/pkg/domain"
	kpgerr "github.com/cropbase/cropbase/pkg/domain/errors/dberrors/postgres"
	mdb "github.com/cropbase/cropbase/pkg/domain/model/db"
)

type modelPG struct { // implements mdb.ModelInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *modelPG {
	return &modelPG{pool: pool}
}

var _ mdb.ModelInterface = &modelPG{}

const versionColumns = `
	"model_version_id", "version_tag", "model_type", "params",
	"training_data_range", "metrics", "trained_at", "is_production",
	"features", "preprocessing", "notes", "created_by"
`

func scanVersion(row pgx.Row) (domain.ModelVersion, error) {
	v := domain.ModelVersion{}
	var params, metrics, features []byte
	if err := row.Scan(
		&v.ModelVersionId, &v.VersionTag, &v.ModelType, &params,
		&v.TrainingDataRange, &metrics, &v.TrainedAt, &v.IsProduction,
		&features, &v.Preprocessing, &v.Notes, &v.CreatedBy,
	); err != nil {
		return domain.ModelVersion{}, err
	}
	if params != nil {
		if err := json.Unmarshal(params, &v.Params); err != nil {
			return domain.ModelVersion{}, err
		}
	}
	if metrics != nil {
		if err := json.Unmarshal(metrics, &v.Metrics); err != nil {
			return domain.ModelVersion{}, err
		}
	}
	if features != nil {
		if err := json.Unmarshal(features, &v.Features); err != nil {
			return domain.ModelVersion{}, err
		}
	}
	return v, nil
}

func (m *modelPG) Register(ctx context.Context, version domain.ModelVersion) (domain.ModelVersion, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	defer conn.Release()

	params, err := json.Marshal(version.Params)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	metrics, err := json.Marshal(version.Metrics)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	features, err := json.Marshal(version.Features)
	if err != nil {
		return domain.ModelVersion{}, err
	}

	registered, err := scanVersion(conn.QueryRow(
		ctx,
		`INSERT INTO "model_versions" (
			"version_tag", "model_type", "params", "training_data_range",
			"metrics", "trained_at", "features", "preprocessing", "notes", "created_by"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+versionColumns,
		version.VersionTag, version.ModelType, params, version.TrainingDataRange,
		metrics, version.TrainedAt, features, version.Preprocessing,
		version.Notes, version.CreatedBy,
	))
	if err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UniqueViolation {
				return domain.ModelVersion{}, kpgerr.Conflict{
					Table:    "model_versions",
					Identity: fmt.Sprintf("version_tag = %s", version.VersionTag),
				}
			}
		}
		return domain.ModelVersion{}, err
	}
	return registered, nil
}

func (m *modelPG) Get(ctx context.Context, versionTag string) (domain.ModelVersion, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	defer conn.Release()

	v, err := scanVersion(conn.QueryRow(
		ctx,
		`SELECT `+versionColumns+` FROM "model_versions" WHERE "version_tag" = $1`,
		versionTag,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ModelVersion{}, kpgerr.Missing{
				Table:    "model_versions",
				Identity: fmt.Sprintf("version_tag = %s", versionTag),
			}
		}
		return domain.ModelVersion{}, err
	}
	return v, nil
}

func (m *modelPG) Find(ctx context.Context, latestPerType bool) ([]domain.ModelVersion, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query := `SELECT ` + versionColumns + ` FROM "model_versions" ORDER BY "trained_at" DESC`
	if latestPerType {
		query = `SELECT DISTINCT ON ("model_type") ` + versionColumns + `
		FROM "model_versions"
		ORDER BY "model_type", "trained_at" DESC`
	}

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []domain.ModelVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (m *modelPG) SetProduction(ctx context.Context, versionTag string) (domain.ModelVersion, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	defer tx.Rollback(ctx)

	var modelType string
	if err := tx.QueryRow(
		ctx,
		`SELECT "model_type" FROM "model_versions" WHERE "version_tag" = $1 FOR UPDATE`,
		versionTag,
	).Scan(&modelType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ModelVersion{}, kpgerr.Missing{
				Table:    "model_versions",
				Identity: fmt.Sprintf("version_tag = %s", versionTag),
			}
		}
		return domain.ModelVersion{}, err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE "model_versions" SET "is_production" = FALSE WHERE "model_type" = $1`,
		modelType,
	); err != nil {
		return domain.ModelVersion{}, err
	}

	promoted, err := scanVersion(tx.QueryRow(
		ctx,
		`UPDATE "model_versions" SET "is_production" = TRUE
		WHERE "version_tag" = $1
		RETURNING `+versionColumns,
		versionTag,
	))
	if err != nil {
		return domain.ModelVersion{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ModelVersion{}, err
	}
	return promoted, nil
}

func (m *modelPG) GetProduction(ctx context.Context) (domain.ModelVersion, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	defer conn.Release()

	v, err := scanVersion(conn.QueryRow(
		ctx,
		`SELECT `+versionColumns+`
		FROM "model_versions"
		WHERE "is_production"
		ORDER BY "trained_at" DESC
		LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ModelVersion{}, kpgerr.Missing{
				Table:    "model_versions",
				Identity: "is_production = true",
			}
		}
		return domain.ModelVersion{}, err
	}
	return v, nil
}

func (m *modelPG) Delete(ctx context.Context, versionTag string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx, `DELETE FROM "model_versions" WHERE "version_tag" = $1`, versionTag,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "model_versions",
			Identity: fmt.Sprintf("version_tag = %s", versionTag),
		}
	}
	return nil
}

func (m *modelPG) AddTrainingRun(ctx context.Context, run domain.TrainingRun) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx,
		`INSERT INTO "training_runs" ("run_id", "status", "started_at")
		VALUES ($1, $2, $3)`,
		run.RunId, string(run.Status), run.StartedAt,
	); err != nil {
		return err
	}
	return nil
}

func (m *modelPG) FinishTrainingRun(ctx context.Context, run domain.TrainingRun) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`UPDATE "training_runs" SET
			"model_version_id" = $2, "dataset_hash" = $3,
			"duration_seconds" = $4, "training_records" = $5,
			"validation_records" = $6, "status" = $7,
			"error_message" = $8, "completed_at" = $9
		WHERE "run_id" = $1`,
		run.RunId, run.ModelVersionId, run.DatasetHash,
		run.DurationSeconds, run.TrainingRecords, run.ValidationRecords,
		string(run.Status), run.ErrorMessage, run.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "training_runs",
			Identity: fmt.Sprintf("run_id = %s", run.RunId),
		}
	}
	return nil
}

func (m *modelPG) TrainingRunsFor(ctx context.Context, modelVersionId int64) ([]domain.TrainingRun, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`SELECT
			"run_id", "model_version_id", "dataset_hash", "duration_seconds",
			"training_records", "validation_records", "status",
			"error_message", "started_at", "completed_at"
		FROM "training_runs"
		WHERE "model_version_id" = $1
		ORDER BY "started_at" DESC`,
		modelVersionId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []domain.TrainingRun{}
	for rows.Next() {
		r := domain.TrainingRun{}
		var status string
		if err := rows.Scan(
			&r.RunId, &r.ModelVersionId, &r.DatasetHash, &r.DurationSeconds,
			&r.TrainingRecords, &r.ValidationRecords, &status,
			&r.ErrorMessage, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		r.Status = domain.TrainingRunStatus(status)
		runs = append(runs, r)
	}
	return runs, nil
}
