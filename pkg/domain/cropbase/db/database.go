package db

import (
	kfield "github.com/cropbase/cropbase/pkg/domain/field/db"
	kingest "github.com/cropbase/cropbase/pkg/domain/ingest/db"
	kmodel "github.com/cropbase/cropbase/pkg/domain/model/db"
	kprediction "github.com/cropbase/cropbase/pkg/domain/prediction/db"
	kschema "github.com/cropbase/cropbase/pkg/domain/schema/db"
	kstats "github.com/cropbase/cropbase/pkg/domain/stats/db"
)

type CropDatabase interface {
	Field() kfield.FieldInterface
	Ingest() kingest.IngestInterface
	Model() kmodel.ModelInterface
	Prediction() kprediction.PredictionInterface
	Stats() kstats.StatsInterface
	Schema() kschema.SchemaInterface
	Close() error
}
