package domain

import (
	"time"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
)

type IngestionStatus string

const (
	IngestionProcessing IngestionStatus = "processing"
	IngestionCompleted  IngestionStatus = "completed"
	IngestionFailed     IngestionStatus = "failed"
)

// IngestionLog records one CSV file ingestion.
//
// FileHash (sha-256 of the file content) is unique: the same file is never
// ingested twice.
type IngestionLog struct {
	IngestionId     int64
	SourceFilename  string
	FileHash        string
	RecordsParsed   int
	RecordsInserted int
	RecordsUpdated  int
	RecordsSkipped  int
	Status          IngestionStatus
	ErrorDetails    *string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

func (l *IngestionLog) Equal(o *IngestionLog) bool {
	if (l == nil) || (o == nil) {
		return (l == nil) && (o == nil)
	}
	timeEq := func(a, b time.Time) bool { return a.Equal(b) }
	return l.IngestionId == o.IngestionId &&
		l.SourceFilename == o.SourceFilename &&
		l.FileHash == o.FileHash &&
		l.RecordsParsed == o.RecordsParsed &&
		l.RecordsInserted == o.RecordsInserted &&
		l.RecordsUpdated == o.RecordsUpdated &&
		l.RecordsSkipped == o.RecordsSkipped &&
		l.Status == o.Status &&
		cmp.PEqEq(l.ErrorDetails, o.ErrorDetails) &&
		l.StartedAt.Equal(o.StartedAt) &&
		cmp.PEqualWith(l.CompletedAt, o.CompletedAt, timeEq)
}

// ExportLog records one CSV export.
type ExportLog struct {
	ExportId      string
	ExportType    string
	Filters       map[string]string
	RecordCount   int
	FileSizeBytes int64
	ExportedAt    time.Time
}

func (l *ExportLog) Equal(o *ExportLog) bool {
	if (l == nil) || (o == nil) {
		return (l == nil) && (o == nil)
	}
	return l.ExportId == o.ExportId &&
		l.ExportType == o.ExportType &&
		cmp.MapEq(l.Filters, o.Filters) &&
		l.RecordCount == o.RecordCount &&
		l.FileSizeBytes == o.FileSizeBytes &&
		l.ExportedAt.Equal(o.ExportedAt)
}
