package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/cropbase/cropbase/pkg/conn/db/postgres/pool"
	dbInterface "github.com/cropbase/cropbase/pkg/domain/cropbase/db"
	kfield "github.com/cropbase/cropbase/pkg/domain/field/db"
	kpgfield "github.com/cropbase/cropbase/pkg/domain/field/db/postgres"
	kingest "github.com/cropbase/cropbase/pkg/domain/ingest/db"
	kpgingest "github.com/cropbase/cropbase/pkg/domain/ingest/db/postgres"
	kmodel "github.com/cropbase/cropbase/pkg/domain/model/db"
	kpgmodel "github.com/cropbase/cropbase/pkg/domain/model/db/postgres"
	kprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	kpgprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db/postgres"
	kschema "github.com/cropbase/cropbase/pkg/domain/schema/db"
	kpgschema "github.com/cropbase/cropbase/pkg/domain/schema/db/postgres"
	kstats "github.com/cropbase/cropbase/pkg/domain/stats/db"
	kpgstats "github.com/cropbase/cropbase/pkg/domain/stats/db/postgres"
	"github.com/cropbase/cropbase/pkg/xerrors"
)

type cropDBPostgres struct {
	pool       *pgxpool.Pool
	field      kfield.FieldInterface
	ingest     kingest.IngestInterface
	model      kmodel.ModelInterface
	prediction kprediction.PredictionInterface
	stats      kstats.StatsInterface
	schema     kschema.SchemaInterface
}

type Config struct {
	SchemaRepository string
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.CropDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	c := Config{}
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &cropDBPostgres{
		pool:       pool,
		field:      kpgfield.New(p),
		ingest:     kpgingest.New(p),
		model:      kpgmodel.New(p),
		prediction: kpgprediction.New(p),
		stats:      kpgstats.New(p),
		schema:     schema,
	}, nil
}

func (c *cropDBPostgres) Field() kfield.FieldInterface {
	return c.field
}

func (c *cropDBPostgres) Ingest() kingest.IngestInterface {
	return c.ingest
}

func (c *cropDBPostgres) Model() kmodel.ModelInterface {
	return c.model
}

func (c *cropDBPostgres) Prediction() kprediction.PredictionInterface {
	return c.prediction
}

func (c *cropDBPostgres) Stats() kstats.StatsInterface {
	return c.stats
}

func (c *cropDBPostgres) Schema() kschema.SchemaInterface {
	return c.schema
}

func (c *cropDBPostgres) Close() error {
	c.pool.Close()
	return nil
}
