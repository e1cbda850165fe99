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
	idb "github.com/cropbase/cropbase/pkg/domain/ingest/db"
)

type ingestPG struct { // implements idb.IngestInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *ingestPG {
	return &ingestPG{pool: pool}
}

var _ idb.IngestInterface = &ingestPG{}

const logColumns = `
	"ingestion_id", "source_filename", "file_hash",
	"records_parsed", "records_inserted", "records_updated", "records_skipped",
	"status", "error_details", "started_at", "completed_at"
`

func scanLog(row pgx.Row) (domain.IngestionLog, error) {
	l := domain.IngestionLog{}
	var status string
	if err := row.Scan(
		&l.IngestionId, &l.SourceFilename, &l.FileHash,
		&l.RecordsParsed, &l.RecordsInserted, &l.RecordsUpdated, &l.RecordsSkipped,
		&status, &l.ErrorDetails, &l.StartedAt, &l.CompletedAt,
	); err != nil {
		return domain.IngestionLog{}, err
	}
	l.Status = domain.IngestionStatus(status)
	return l, nil
}

func (i *ingestPG) GetByHash(ctx context.Context, fileHash string) (domain.IngestionLog, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return domain.IngestionLog{}, err
	}
	defer conn.Release()

	l, err := scanLog(conn.QueryRow(
		ctx,
		`SELECT `+logColumns+` FROM "data_ingestion_log" WHERE "file_hash" = $1`,
		fileHash,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IngestionLog{}, kpgerr.Missing{
				Table:    "data_ingestion_log",
				Identity: fmt.Sprintf("file_hash = %s", fileHash),
			}
		}
		return domain.IngestionLog{}, err
	}
	return l, nil
}

func (i *ingestPG) Create(ctx context.Context, sourceFilename string, fileHash string) (domain.IngestionLog, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return domain.IngestionLog{}, err
	}
	defer conn.Release()

	l, err := scanLog(conn.QueryRow(
		ctx,
		`INSERT INTO "data_ingestion_log" ("source_filename", "file_hash", "status")
		VALUES ($1, $2, 'processing')
		RETURNING `+logColumns,
		sourceFilename, fileHash,
	))
	if err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UniqueViolation {
				return domain.IngestionLog{}, kpgerr.Conflict{
					Table:    "data_ingestion_log",
					Identity: fmt.Sprintf("file_hash = %s", fileHash),
				}
			}
		}
		return domain.IngestionLog{}, err
	}
	return l, nil
}

func (i *ingestPG) Finish(
	ctx context.Context, ingestionId int64,
	counters idb.IngestCounters, status domain.IngestionStatus, errorDetails *string,
) error {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`UPDATE "data_ingestion_log" SET
			"records_parsed" = $2, "records_inserted" = $3,
			"records_updated" = $4, "records_skipped" = $5,
			"status" = $6, "error_details" = $7, "completed_at" = now()
		WHERE "ingestion_id" = $1`,
		ingestionId,
		counters.Parsed, counters.Inserted, counters.Updated, counters.Skipped,
		string(status), errorDetails,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "data_ingestion_log",
			Identity: fmt.Sprintf("ingestion_id = %d", ingestionId),
		}
	}
	return nil
}

func (i *ingestPG) Find(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`SELECT `+logColumns+`
		FROM "data_ingestion_log"
		ORDER BY "started_at" DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.IngestionLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (i *ingestPG) RecordExport(ctx context.Context, log domain.ExportLog) error {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	filters, err := json.Marshal(log.Filters)
	if err != nil {
		return err
	}

	if _, err := conn.Exec(
		ctx,
		`INSERT INTO "export_logs"
			("export_id", "export_type", "filters", "record_count", "file_size_bytes", "exported_at")
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ExportId, log.ExportType, filters,
		log.RecordCount, log.FileSizeBytes, log.ExportedAt,
	); err != nil {
		return err
	}
	return nil
}
