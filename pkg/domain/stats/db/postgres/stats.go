package postgres

import (
	"context"
	"fmt"
	"strings"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	"github.com/cropbase/cropbase/pkg/domain"
	kpgerr "github.com/cropbase/cropbase/pkg/domain/errors/dberrors/postgres"
	sdb "github.com/cropbase/cropbase/pkg/domain/stats/db"
)

type statsPG struct { // implements sdb.StatsInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *statsPG {
	return &statsPG{pool: pool}
}

var _ sdb.StatsInterface = &statsPG{}

func (s *statsPG) RegionalYieldStats(
	ctx context.Context, crop string, seasonYear int, state string, county string,
) ([]domain.CountyYieldStats, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := []string{
		`"fs"."yield_bu_ac" IS NOT NULL`,
		`"f"."state" IS NOT NULL`,
		`"f"."county" IS NOT NULL`,
		`"c"."name" = $1`,
		`"se"."year" = $2`,
	}
	args := []interface{}{crop, seasonYear}
	if state != "" {
		args = append(args, state)
		where = append(where, fmt.Sprintf(`"f"."state" = $%d`, len(args)))
	}
	if county != "" {
		args = append(args, county)
		where = append(where, fmt.Sprintf(`"f"."county" = $%d`, len(args)))
	}

	rows, err := conn.Query(
		ctx,
		fmt.Sprintf(
			`SELECT
				"f"."state", "f"."county",
				avg("fs"."yield_bu_ac"),
				coalesce(stddev_samp("fs"."yield_bu_ac"), 0),
				count(*)
			FROM "field_seasons" "fs"
			INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
			INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
			INNER JOIN "seasons" "se" ON "se"."season_id" = "fs"."season_id"
			WHERE %s
			GROUP BY "f"."state", "f"."county"
			ORDER BY "f"."state", "f"."county"`,
			strings.Join(where, " AND "),
		),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []domain.CountyYieldStats{}
	for rows.Next() {
		cs := domain.CountyYieldStats{}
		if err := rows.Scan(
			&cs.State, &cs.County, &cs.AvgYield, &cs.StdYield, &cs.FieldCount,
		); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}
	return stats, nil
}

func (s *statsPG) Ranking(
	ctx context.Context, crop string, seasonYear int, state string, yield float64,
) (domain.Ranking, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Ranking{}, err
	}
	defer conn.Release()

	r := domain.Ranking{}
	if err := conn.QueryRow(
		ctx,
		`SELECT
			count(*) FILTER (WHERE "fs"."yield_bu_ac" > $4),
			count(*) FILTER (WHERE "fs"."yield_bu_ac" < $4),
			coalesce(avg("fs"."yield_bu_ac"), 0),
			coalesce(stddev_samp("fs"."yield_bu_ac"), 0),
			count(*)
		FROM "field_seasons" "fs"
		INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
		INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
		INNER JOIN "seasons" "se" ON "se"."season_id" = "fs"."season_id"
		WHERE "fs"."yield_bu_ac" IS NOT NULL
			AND "c"."name" = $1 AND "se"."year" = $2 AND "f"."state" = $3`,
		crop, seasonYear, state, yield,
	).Scan(&r.Above, &r.Below, &r.Mean, &r.Std, &r.Count); err != nil {
		return domain.Ranking{}, err
	}

	if r.Count == 0 {
		return domain.Ranking{}, kpgerr.Missing{
			Table: "field_seasons",
			Identity: fmt.Sprintf(
				"observed yields of crop = %s, year = %d, state = %s",
				crop, seasonYear, state,
			),
		}
	}

	r.Percentile = 100 * float64(r.Below) / float64(r.Count)
	return r, nil
}

func (s *statsPG) VarietyPerformance(
	ctx context.Context, crop string, seasonYear int, state string, county string, minSamples int,
) ([]domain.VarietyPerformance, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := []string{
		`"fs"."yield_bu_ac" IS NOT NULL`,
		`"fs"."variety_id" IS NOT NULL`,
		`"c"."name" = $1`,
	}
	args := []interface{}{crop}
	if seasonYear != 0 {
		args = append(args, seasonYear)
		where = append(where, fmt.Sprintf(`"se"."year" = $%d`, len(args)))
	}
	if state != "" {
		args = append(args, state)
		where = append(where, fmt.Sprintf(`"f"."state" = $%d`, len(args)))
	}
	if county != "" {
		args = append(args, county)
		where = append(where, fmt.Sprintf(`"f"."county" = $%d`, len(args)))
	}
	if minSamples < 1 {
		minSamples = 1
	}
	args = append(args, minSamples)

	rows, err := conn.Query(
		ctx,
		fmt.Sprintf(
			`SELECT
				"c"."name", "v"."name",
				avg("fs"."yield_bu_ac"),
				coalesce(stddev_samp("fs"."yield_bu_ac"), 0),
				count(*)
			FROM "field_seasons" "fs"
			INNER JOIN "fields" "f" ON "f"."field_id" = "fs"."field_id"
			INNER JOIN "crops" "c" ON "c"."crop_id" = "fs"."crop_id"
			INNER JOIN "varieties" "v" ON "v"."variety_id" = "fs"."variety_id"
			INNER JOIN "seasons" "se" ON "se"."season_id" = "fs"."season_id"
			WHERE %s
			GROUP BY "c"."name", "v"."name"
			HAVING count(*) >= $%d
			ORDER BY avg("fs"."yield_bu_ac") DESC`,
			strings.Join(where, " AND "), len(args),
		),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	performances := []domain.VarietyPerformance{}
	for rows.Next() {
		vp := domain.VarietyPerformance{}
		if err := rows.Scan(
			&vp.Crop, &vp.Variety, &vp.MeanYield, &vp.StdYield, &vp.N,
		); err != nil {
			return nil, err
		}
		if vp.MeanYield != 0 {
			vp.CV = vp.StdYield / vp.MeanYield
		}
		performances = append(performances, vp)
	}
	return performances, nil
}
