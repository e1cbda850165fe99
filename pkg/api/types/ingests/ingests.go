package ingests

import (
	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/utils/rfctime"
)

// Log is one ingestion's record.
type Log struct {
	IngestionId     int64            `json:"ingestionId"`
	SourceFilename  string           `json:"sourceFilename"`
	FileHash        string           `json:"fileHash"`
	RecordsParsed   int              `json:"recordsParsed"`
	RecordsInserted int              `json:"recordsInserted"`
	RecordsUpdated  int              `json:"recordsUpdated"`
	RecordsSkipped  int              `json:"recordsSkipped"`
	Status          string           `json:"status"`
	ErrorDetails    *string          `json:"errorDetails,omitempty"`
	StartedAt       rfctime.RFC3339  `json:"startedAt"`
	CompletedAt     *rfctime.RFC3339 `json:"completedAt,omitempty"`
}

func FromDomain(l domain.IngestionLog) Log {
	log := Log{
		IngestionId:     l.IngestionId,
		SourceFilename:  l.SourceFilename,
		FileHash:        l.FileHash,
		RecordsParsed:   l.RecordsParsed,
		RecordsInserted: l.RecordsInserted,
		RecordsUpdated:  l.RecordsUpdated,
		RecordsSkipped:  l.RecordsSkipped,
		Status:          string(l.Status),
		ErrorDetails:    l.ErrorDetails,
		StartedAt:       rfctime.New(l.StartedAt),
	}
	if l.CompletedAt != nil {
		t := rfctime.New(*l.CompletedAt)
		log.CompletedAt = &t
	}
	return log
}
