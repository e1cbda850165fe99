package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cropbase/cropbase/pkg/domain"
)

// exportHeader is the column layout of exported field-season CSVs.
var exportHeader = []string{
	"field_season_id", "field", "crop_name_en", "variety_name_en", "season",
	"acres", "lat", "long", "county", "state",
	"yield_bu_ac", "yield_target",
	"totalN_per_ac", "totalP_per_ac", "totalK_per_ac",
	"record_source", "data_quality_score",
}

const exportPageSize = 500

// Export streams field-seasons matching the filter as CSV and records
// the export.
//
// Returns the number of exported records and the byte size written.
func (s *Service) Export(ctx context.Context, w io.Writer, filter domain.FieldSeasonFilter) (int, int64, error) {
	counting := &countingWriter{inner: w}
	writer := csv.NewWriter(counting)
	if err := writer.Write(exportHeader); err != nil {
		return 0, 0, err
	}

	exported := 0
	for offset := 0; ; offset += exportPageSize {
		ids, _, err := s.fields.Find(ctx, filter, exportPageSize, offset)
		if err != nil {
			return exported, counting.n, err
		}
		if len(ids) == 0 {
			break
		}
		page, err := s.fields.Get(ctx, ids)
		if err != nil {
			return exported, counting.n, err
		}
		for _, id := range ids {
			fs, ok := page[id]
			if !ok {
				continue
			}
			if err := writer.Write(exportRecord(fs)); err != nil {
				return exported, counting.n, err
			}
			exported += 1
		}
		if len(ids) < exportPageSize {
			break
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return exported, counting.n, err
	}

	err := s.logs.RecordExport(ctx, domain.ExportLog{
		ExportId:      uuid.NewString(),
		ExportType:    "field_seasons",
		Filters:       filtersOf(filter),
		RecordCount:   exported,
		FileSizeBytes: counting.n,
		ExportedAt:    time.Now(),
	})
	return exported, counting.n, err
}

func exportRecord(fs domain.FieldSeason) []string {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	num := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	variety := ""
	if fs.Variety != nil {
		variety = fs.Variety.Name
	}
	return []string{
		strconv.FormatInt(fs.FieldSeasonId, 10),
		fs.Field.FieldNumber,
		fs.Crop.Name,
		variety,
		strconv.Itoa(fs.Season.Year),
		num(fs.Field.Acres), num(fs.Field.Lat), num(fs.Field.Lon),
		str(fs.Field.County), str(fs.Field.State),
		num(fs.YieldBuAc), num(fs.YieldTarget),
		num(fs.TotalNPerAc), num(fs.TotalPPerAc), num(fs.TotalKPerAc),
		str(fs.RecordSource), num(fs.DataQualityScore),
	}
}

func filtersOf(filter domain.FieldSeasonFilter) map[string]string {
	filters := map[string]string{}
	if filter.Crop != "" {
		filters["crop"] = filter.Crop
	}
	if filter.Variety != "" {
		filters["variety"] = filter.Variety
	}
	if len(filter.Seasons) != 0 {
		seasons := ""
		for i, s := range filter.Seasons {
			if i != 0 {
				seasons += ","
			}
			seasons += strconv.Itoa(s)
		}
		filters["seasons"] = seasons
	}
	if filter.State != "" {
		filters["state"] = filter.State
	}
	if filter.County != "" {
		filters["county"] = filter.County
	}
	if filter.MinAcres != nil {
		filters["min_acres"] = fmt.Sprintf("%g", *filter.MinAcres)
	}
	if filter.MaxAcres != nil {
		filters["max_acres"] = fmt.Sprintf("%g", *filter.MaxAcres)
	}
	return filters
}

type countingWriter struct {
	inner io.Writer
	n     int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	w.n += int64(n)
	return n, err
}
