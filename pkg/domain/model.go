package domain

import (
	"time"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
)

// ModelVersion is a registered, versioned prediction model.
//
// VersionTag is unique. At most one version per ModelType is in production.
type ModelVersion struct {
	ModelVersionId    int64
	VersionTag        string
	ModelType         string
	Params            map[string]float64
	TrainingDataRange *string
	Metrics           map[string]float64
	TrainedAt         time.Time
	IsProduction      bool
	Features          []string
	Preprocessing     *string
	Notes             *string
	CreatedBy         *string
}

func (m *ModelVersion) Equal(o *ModelVersion) bool {
	if (m == nil) || (o == nil) {
		return (m == nil) && (o == nil)
	}
	return m.ModelVersionId == o.ModelVersionId &&
		m.VersionTag == o.VersionTag &&
		m.ModelType == o.ModelType &&
		cmp.MapEq(m.Params, o.Params) &&
		cmp.PEqEq(m.TrainingDataRange, o.TrainingDataRange) &&
		cmp.MapEq(m.Metrics, o.Metrics) &&
		m.TrainedAt.Equal(o.TrainedAt) &&
		m.IsProduction == o.IsProduction &&
		cmp.SliceEq(m.Features, o.Features) &&
		cmp.PEqEq(m.Preprocessing, o.Preprocessing) &&
		cmp.PEqEq(m.Notes, o.Notes) &&
		cmp.PEqEq(m.CreatedBy, o.CreatedBy)
}

type TrainingRunStatus string

const (
	TrainingRunning   TrainingRunStatus = "running"
	TrainingCompleted TrainingRunStatus = "completed"
	TrainingFailed    TrainingRunStatus = "failed"
)

// TrainingRun is one execution of the trainer producing a ModelVersion.
type TrainingRun struct {
	RunId             string
	ModelVersionId    *int64
	DatasetHash       *string
	DurationSeconds   *float64
	TrainingRecords   *int
	ValidationRecords *int
	Status            TrainingRunStatus
	ErrorMessage      *string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

func (r *TrainingRun) Equal(o *TrainingRun) bool {
	if (r == nil) || (o == nil) {
		return (r == nil) && (o == nil)
	}
	timeEq := func(a, b time.Time) bool { return a.Equal(b) }
	return r.RunId == o.RunId &&
		cmp.PEqEq(r.ModelVersionId, o.ModelVersionId) &&
		cmp.PEqEq(r.DatasetHash, o.DatasetHash) &&
		cmp.PEqEq(r.DurationSeconds, o.DurationSeconds) &&
		cmp.PEqEq(r.TrainingRecords, o.TrainingRecords) &&
		cmp.PEqEq(r.ValidationRecords, o.ValidationRecords) &&
		r.Status == o.Status &&
		cmp.PEqEq(r.ErrorMessage, o.ErrorMessage) &&
		r.StartedAt.Equal(o.StartedAt) &&
		cmp.PEqualWith(r.CompletedAt, o.CompletedAt, timeEq)
}
