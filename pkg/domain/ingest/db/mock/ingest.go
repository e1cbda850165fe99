package mocks

import (
	"context"
	"errors"

	"github.com/cropbase/cropbase/pkg/domain"
	idb "github.com/cropbase/cropbase/pkg/domain/ingest/db"
	dbmock "github.com/cropbase/cropbase/pkg/domain/internal/db/mock"
)

type IngestInterface struct {
	Impl struct {
		GetByHash    func(context.Context, string) (domain.IngestionLog, error)
		Create       func(context.Context, string, string) (domain.IngestionLog, error)
		Finish       func(context.Context, int64, idb.IngestCounters, domain.IngestionStatus, *string) error
		Find         func(context.Context, int) ([]domain.IngestionLog, error)
		RecordExport func(context.Context, domain.ExportLog) error
	}
	Calls struct {
		GetByHash dbmock.CallLog[struct{ FileHash string }]
		Create    dbmock.CallLog[struct {
			SourceFilename string
			FileHash       string
		}]
		Finish dbmock.CallLog[struct {
			IngestionId  int64
			Counters     idb.IngestCounters
			Status       domain.IngestionStatus
			ErrorDetails *string
		}]
		Find         dbmock.CallLog[struct{ Limit int }]
		RecordExport dbmock.CallLog[domain.ExportLog]
	}
}

func NewIngestInterface() *IngestInterface {
	return &IngestInterface{}
}

var _ idb.IngestInterface = &IngestInterface{}

func (ii *IngestInterface) GetByHash(ctx context.Context, fileHash string) (domain.IngestionLog, error) {
	ii.Calls.GetByHash = append(ii.Calls.GetByHash, struct{ FileHash string }{FileHash: fileHash})
	if ii.Impl.GetByHash != nil {
		return ii.Impl.GetByHash(ctx, fileHash)
	}
	panic(errors.New("it should not be called"))
}

func (ii *IngestInterface) Create(ctx context.Context, sourceFilename string, fileHash string) (domain.IngestionLog, error) {
	ii.Calls.Create = append(ii.Calls.Create, struct {
		SourceFilename string
		FileHash       string
	}{
		SourceFilename: sourceFilename, FileHash: fileHash,
	})
	if ii.Impl.Create != nil {
		return ii.Impl.Create(ctx, sourceFilename, fileHash)
	}
	panic(errors.New("it should not be called"))
}

func (ii *IngestInterface) Finish(
	ctx context.Context, ingestionId int64,
	counters idb.IngestCounters, status domain.IngestionStatus, errorDetails *string,
) error {
	ii.Calls.Finish = append(ii.Calls.Finish, struct {
		IngestionId  int64
		Counters     idb.IngestCounters
		Status       domain.IngestionStatus
		ErrorDetails *string
	}{
		IngestionId: ingestionId, Counters: counters,
		Status: status, ErrorDetails: errorDetails,
	})
	if ii.Impl.Finish != nil {
		return ii.Impl.Finish(ctx, ingestionId, counters, status, errorDetails)
	}
	panic(errors.New("it should not be called"))
}

func (ii *IngestInterface) Find(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	ii.Calls.Find = append(ii.Calls.Find, struct{ Limit int }{Limit: limit})
	if ii.Impl.Find != nil {
		return ii.Impl.Find(ctx, limit)
	}
	panic(errors.New("it should not be called"))
}

func (ii *IngestInterface) RecordExport(ctx context.Context, log domain.ExportLog) error {
	ii.Calls.RecordExport = append(ii.Calls.RecordExport, log)
	if ii.Impl.RecordExport != nil {
		return ii.Impl.RecordExport(ctx, log)
	}
	panic(errors.New("it should not be called"))
}
