package db

import (
	"context"

	"github.com/cropbase/cropbase/pkg/domain"
)

// IngestCounters accumulates per-row outcomes of one ingestion.
type IngestCounters struct {
	Parsed   int
	Inserted int
	Updated  int
	Skipped  int
}

type IngestInterface interface {
	// Retrieve the ingestion log of a file hash.
	//
	// Returns error wrapping domain ErrMissing when the hash is unknown.
	GetByHash(ctx context.Context, fileHash string) (domain.IngestionLog, error)

	// Start a new ingestion: insert a log in "processing" status.
	//
	// Returns error wrapping domain ErrConflict when the hash is already
	// registered.
	Create(ctx context.Context, sourceFilename string, fileHash string) (domain.IngestionLog, error)

	// Finish an ingestion: store counters and final status.
	Finish(ctx context.Context, ingestionId int64, counters IngestCounters, status domain.IngestionStatus, errorDetails *string) error

	// Recent ingestion logs, newest first.
	Find(ctx context.Context, limit int) ([]domain.IngestionLog, error)

	// Record a CSV export.
	RecordExport(ctx context.Context, log domain.ExportLog) error
}
