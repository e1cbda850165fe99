// Package ingest loads field-season records from CSV files.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	kerr "github.com/cropbase/cropbase/pkg/domain/errors"
	kdbfield "github.com/cropbase/cropbase/pkg/domain/field/db"
	kdbingest "github.com/cropbase/cropbase/pkg/domain/ingest/db"

	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/metrics"
	"github.com/cropbase/cropbase/pkg/utils/pointer"
	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

// ErrAlreadyIngested is returned when a file's hash is found in the
// ingestion log.
var ErrAlreadyIngested = xe.New("file is already ingested")

type Service struct {
	fields kdbfield.FieldInterface
	logs   kdbingest.IngestInterface
}

func New(fields kdbfield.FieldInterface, logs kdbingest.IngestInterface) *Service {
	return &Service{fields: fields, logs: logs}
}

// progressEvery bounds how many rows go between context checks.
const progressEvery = 500

// Ingest spools the stream to a temp file while hashing it, then parses
// it as CSV and upserts one season fact per row.
//
// A file whose sha-256 is already logged is rejected with
// ErrAlreadyIngested before any row is parsed. Rows missing field
// number, crop or season, and rows whose upsert errors, are counted as
// skipped (the errors land in the log's details); only an unreadable
// stream or malformed CSV fails the whole ingestion.
func (s *Service) Ingest(ctx context.Context, filename string, r io.Reader) (domain.IngestionLog, error) {
	spool, err := os.CreateTemp("", "cropbase-ingest-*.csv")
	if err != nil {
		return domain.IngestionLog{}, xe.Wrap(err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(spool, io.TeeReader(r, hasher)); err != nil {
		return domain.IngestionLog{}, xe.Wrap(err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return domain.IngestionLog{}, xe.Wrap(err)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	ingestion, err := s.logs.Create(ctx, filename, hash)
	if errors.Is(err, kerr.ErrConflict) {
		return domain.IngestionLog{}, xe.WrapWithNote(ErrAlreadyIngested, "hash %s", hash)
	} else if err != nil {
		return domain.IngestionLog{}, err
	}

	counters, details, perr := s.parse(ctx, filename, spool)

	status := domain.IngestionCompleted
	if perr != nil {
		status = domain.IngestionFailed
		details = pointer.Ref(perr.Error())
	}
	if err := s.logs.Finish(ctx, ingestion.IngestionId, counters, status, details); err != nil {
		return domain.IngestionLog{}, err
	}
	if perr != nil {
		return domain.IngestionLog{}, perr
	}

	ingestion.RecordsParsed = counters.Parsed
	ingestion.RecordsInserted = counters.Inserted
	ingestion.RecordsUpdated = counters.Updated
	ingestion.RecordsSkipped = counters.Skipped
	ingestion.Status = status
	return ingestion, nil
}

// maxRowErrors bounds how many per-row failures the log's details
// carry.
const maxRowErrors = 20

func (s *Service) parse(ctx context.Context, filename string, r io.Reader) (kdbingest.IngestCounters, *string, error) {
	counters := kdbingest.IngestCounters{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return counters, nil, xe.WrapWithNote(err, "cannot read CSV header")
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	rowErrors := []string{}
	for rowNum := 1; ; rowNum += 1 {
		if rowNum%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return counters, nil, xe.Wrap(err)
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return counters, nil, xe.WrapWithNote(err, "row #%d", rowNum)
		}
		counters.Parsed += 1

		row := csvRow{columns: columns, record: record}
		outcome, err := s.processRow(ctx, filename, row)
		if err != nil {
			outcome = rowSkipped
			if len(rowErrors) < maxRowErrors {
				rowErrors = append(rowErrors, fmt.Sprintf("row #%d: %s", rowNum, err))
			}
		}
		switch outcome {
		case rowInserted:
			counters.Inserted += 1
		case rowUpdated:
			counters.Updated += 1
		case rowSkipped:
			counters.Skipped += 1
		}
		metrics.IngestRows.WithLabelValues(string(outcome)).Inc()
	}

	var details *string
	if 0 < len(rowErrors) {
		details = pointer.Ref(strings.Join(rowErrors, "\n"))
	}
	return counters, details, nil
}

type rowOutcome string

const (
	rowInserted rowOutcome = "inserted"
	rowUpdated  rowOutcome = "updated"
	rowSkipped  rowOutcome = "skipped"
)

func (s *Service) processRow(ctx context.Context, filename string, row csvRow) (rowOutcome, error) {
	fieldNumber := row.str("field")
	crop := row.str("crop_name_en")
	season, seasonOk := row.int("season")
	if fieldNumber == "" || crop == "" || !seasonOk || season == 0 {
		return rowSkipped, nil
	}

	upsert := kdbfield.FieldSeasonUpsert{
		FieldNumber:      fieldNumber,
		Crop:             crop,
		Variety:          row.strp("variety_name_en"),
		SeasonYear:       season,
		Acres:            row.float("acres"),
		Lat:              row.float("lat"),
		Lon:              row.float("long"),
		County:           row.strp("county"),
		State:            row.strp("state"),
		YieldBuAc:        row.float("yield_bu_ac"),
		YieldTarget:      row.float("yield_target"),
		TotalNPerAc:      row.float("totalN_per_ac"),
		TotalPPerAc:      row.float("totalP_per_ac"),
		TotalKPerAc:      row.float("totalK_per_ac"),
		RecordSource:     pointer.Ref(filename),
		DataQualityScore: pointer.Ref(1.0),
	}
	result, err := s.fields.UpsertFieldSeason(ctx, upsert)
	if err != nil {
		return "", err
	}

	if eventType := row.str("type"); eventType != "" {
		event := domain.ManagementEvent{
			FieldSeasonId:    result.FieldSeasonId,
			JobId:            row.strp("job_id"),
			EventType:        eventType,
			Status:           row.strp("status"),
			StartDate:        row.date("start"),
			EndDate:          row.date("end"),
			ApplicationArea:  row.float("application_area"),
			Amount:           row.float("amount"),
			Description:      row.strp("description"),
			FertUnits:        row.strp("fert_units"),
			Rate:             row.float("rate"),
			FertilizerId:     row.strp("fertilizer_id"),
			BlendName:        row.strp("blend_name"),
			ChemicalType:     row.strp("chemical_type"),
			ChemProduct:      row.strp("chem_product"),
			ChemUnits:        row.strp("chem_units"),
			WaterAppliedMm:   row.float("water_applied_mm"),
			IrrigationMethod: row.strp("irrigation_method"),
			Machinery:        row.strp("machine_model1"),
			ScoutCount:       row.intp("scout_count"),
		}
		if _, err := s.fields.AddEvent(ctx, event); err != nil {
			return "", err
		}
	}

	if result.Created {
		return rowInserted, nil
	}
	return rowUpdated, nil
}

// IngestRecord stores one manually entered season fact, logging it like
// a one-row file under a synthetic hash so the audit trail stays whole.
func (s *Service) IngestRecord(ctx context.Context, record kdbfield.FieldSeasonUpsert) (kdbfield.UpsertResult, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return kdbfield.UpsertResult{}, xe.Wrap(err)
	}
	sum := sha256.Sum256(append([]byte("manual-entry:"), raw...))
	hash := hex.EncodeToString(sum[:])

	ingestion, err := s.logs.Create(ctx, "manual-entry", hash)
	if errors.Is(err, kerr.ErrConflict) {
		return kdbfield.UpsertResult{}, xe.WrapWithNote(ErrAlreadyIngested, "hash %s", hash)
	} else if err != nil {
		return kdbfield.UpsertResult{}, err
	}

	result, err := s.fields.UpsertFieldSeason(ctx, record)

	counters := kdbingest.IngestCounters{Parsed: 1}
	status := domain.IngestionCompleted
	var details *string
	if err != nil {
		status = domain.IngestionFailed
		details = pointer.Ref(err.Error())
	} else if result.Created {
		counters.Inserted = 1
	} else {
		counters.Updated = 1
	}
	if ferr := s.logs.Finish(ctx, ingestion.IngestionId, counters, status, details); ferr != nil && err == nil {
		err = ferr
	}
	return result, err
}

// Logs lists recent ingestion logs, newest first.
func (s *Service) Logs(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	return s.logs.Find(ctx, limit)
}

// ByHash finds the ingestion log of a file's sha-256.
func (s *Service) ByHash(ctx context.Context, hash string) (domain.IngestionLog, error) {
	return s.logs.GetByHash(ctx, hash)
}

// csvRow reads a record through the header's column positions.
//
// Accessors are nil-tolerant: an absent column, empty cell or
// unparseable value reads as the zero (or nil) of the type.
type csvRow struct {
	columns map[string]int
	record  []string
}

func (r csvRow) str(name string) string {
	i, ok := r.columns[name]
	if !ok || len(r.record) <= i {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) strp(name string) *string {
	v := r.str(name)
	if v == "" {
		return nil
	}
	return &v
}

func (r csvRow) int(name string) (int, bool) {
	v, err := strconv.Atoi(r.str(name))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r csvRow) intp(name string) *int {
	v, ok := r.int(name)
	if !ok {
		return nil
	}
	return &v
}

func (r csvRow) float(name string) *float64 {
	v, err := strconv.ParseFloat(r.str(name), 64)
	if err != nil {
		return nil
	}
	return &v
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04",
}

func (r csvRow) date(name string) *time.Time {
	v := r.str(name)
	if v == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, v); err == nil {
			return &t
		}
	}
	return nil
}
