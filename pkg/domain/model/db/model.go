package db

import (
	"context"

	"github.com/cropbase/cropbase/pkg/domain"
)

type ModelInterface interface {
	// Register a model version. VersionTag must be unique.
	//
	// Returns the registered version with its id,
	// or error wrapping domain ErrConflict when the tag is taken.
	Register(ctx context.Context, version domain.ModelVersion) (domain.ModelVersion, error)

	// Retrieve a model version by its tag.
	//
	// Returns error wrapping domain ErrMissing when not found.
	Get(ctx context.Context, versionTag string) (domain.ModelVersion, error)

	// List model versions, newest first.
	//
	// When latestPerType is true, only the newest version of each model type
	// is returned.
	Find(ctx context.Context, latestPerType bool) ([]domain.ModelVersion, error)

	// Make a version the production one of its model type.
	//
	// Within one transaction, all other versions of the type are demoted and
	// the named version is promoted.
	SetProduction(ctx context.Context, versionTag string) (domain.ModelVersion, error)

	// The current production version.
	//
	// Returns error wrapping domain ErrMissing when no version is in
	// production.
	GetProduction(ctx context.Context) (domain.ModelVersion, error)

	// Remove a model version and its predictions.
	Delete(ctx context.Context, versionTag string) error

	// Record the start of a training run.
	AddTrainingRun(ctx context.Context, run domain.TrainingRun) error

	// Store the outcome of a training run.
	FinishTrainingRun(ctx context.Context, run domain.TrainingRun) error

	// Training runs of a model version, newest first.
	TrainingRunsFor(ctx context.Context, modelVersionId int64) ([]domain.TrainingRun, error)
}
