package models

import (
	"github.com/cropbase/cropbase/pkg/domain"
	"github.com/cropbase/cropbase/pkg/utils/cmp"
	"github.com/cropbase/cropbase/pkg/utils/rfctime"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

type Summary struct {
	ModelVersionId    int64              `json:"modelVersionId"`
	VersionTag        string             `json:"versionTag"`
	ModelType         string             `json:"modelType"`
	Params            map[string]float64 `json:"params,omitempty"`
	TrainingDataRange *string            `json:"trainingDataRange,omitempty"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
	TrainedAt         rfctime.RFC3339    `json:"trainedAt"`
	IsProduction      bool               `json:"isProduction"`
	ArtifactsStored   *bool              `json:"artifactsStored,omitempty"`
	Features          []string           `json:"features,omitempty"`
	Preprocessing     *string            `json:"preprocessing,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	CreatedBy         *string            `json:"createdBy,omitempty"`
}

func FromDomain(m domain.ModelVersion) Summary {
	return Summary{
		ModelVersionId:    m.ModelVersionId,
		VersionTag:        m.VersionTag,
		ModelType:         m.ModelType,
		Params:            m.Params,
		TrainingDataRange: m.TrainingDataRange,
		Metrics:           m.Metrics,
		TrainedAt:         rfctime.New(m.TrainedAt),
		IsProduction:      m.IsProduction,
		Features:          m.Features,
		Preprocessing:     m.Preprocessing,
		Notes:             m.Notes,
		CreatedBy:         m.CreatedBy,
	}
}

func (s Summary) Equal(o Summary) bool {
	return s.ModelVersionId == o.ModelVersionId &&
		s.VersionTag == o.VersionTag &&
		s.ModelType == o.ModelType &&
		cmp.MapEq(s.Params, o.Params) &&
		cmp.PEqEq(s.TrainingDataRange, o.TrainingDataRange) &&
		cmp.MapEq(s.Metrics, o.Metrics) &&
		s.TrainedAt.Equal(&o.TrainedAt) &&
		s.IsProduction == o.IsProduction &&
		cmp.PEqEq(s.ArtifactsStored, o.ArtifactsStored) &&
		cmp.SliceEq(s.Features, o.Features) &&
		cmp.PEqEq(s.Preprocessing, o.Preprocessing) &&
		cmp.PEqEq(s.Notes, o.Notes) &&
		cmp.PEqEq(s.CreatedBy, o.CreatedBy)
}

type TrainingRun struct {
	RunId             string           `json:"runId"`
	ModelVersionId    *int64           `json:"modelVersionId,omitempty"`
	DatasetHash       *string          `json:"datasetHash,omitempty"`
	DurationSeconds   *float64         `json:"durationSeconds,omitempty"`
	TrainingRecords   *int             `json:"trainingRecords,omitempty"`
	ValidationRecords *int             `json:"validationRecords,omitempty"`
	Status            string           `json:"status"`
	ErrorMessage      *string          `json:"errorMessage,omitempty"`
	StartedAt         rfctime.RFC3339  `json:"startedAt"`
	CompletedAt       *rfctime.RFC3339 `json:"completedAt,omitempty"`
}

func FromDomainRun(r domain.TrainingRun) TrainingRun {
	run := TrainingRun{
		RunId:             r.RunId,
		ModelVersionId:    r.ModelVersionId,
		DatasetHash:       r.DatasetHash,
		DurationSeconds:   r.DurationSeconds,
		TrainingRecords:   r.TrainingRecords,
		ValidationRecords: r.ValidationRecords,
		Status:            string(r.Status),
		ErrorMessage:      r.ErrorMessage,
		StartedAt:         rfctime.New(r.StartedAt),
	}
	if r.CompletedAt != nil {
		t := rfctime.New(*r.CompletedAt)
		run.CompletedAt = &t
	}
	return run
}

// Detail is one model version with its training runs.
type Detail struct {
	Summary
	TrainingRuns []TrainingRun `json:"trainingRuns"`
}

func FromDomainDetail(m domain.ModelVersion, runs []domain.TrainingRun) Detail {
	return Detail{
		Summary:      FromDomain(m),
		TrainingRuns: slices.Map(runs, FromDomainRun),
	}
}

// Performance is observed-vs-predicted accuracy of one version.
type Performance struct {
	VersionTag string  `json:"versionTag"`
	ModelType  string  `json:"modelType"`
	N          int     `json:"n"`
	RMSE       float64 `json:"rmse"`
	MAE        float64 `json:"mae"`
	Bias       float64 `json:"bias"`
}

// TrainRequest starts a training run.
//
// Zero hyperparameters take the trainer defaults.
type TrainRequest struct {
	VersionTag     string  `json:"versionTag,omitempty"`
	NEstimators    int     `json:"nEstimators,omitempty"`
	LearningRate   float64 `json:"learningRate,omitempty"`
	MaxDepth       int     `json:"maxDepth,omitempty"`
	MinSamplesLeaf int     `json:"minSamplesLeaf,omitempty"`
	ValFraction    float64 `json:"valFraction,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	SeasonFrom     int     `json:"seasonFrom,omitempty"`
	SeasonTo       int     `json:"seasonTo,omitempty"`
	MinQuality     float64 `json:"minQuality,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Promote        bool    `json:"promote,omitempty"`
	Backfill       bool    `json:"backfill,omitempty"`
}

// TrainResponse reports a finished training run.
type TrainResponse struct {
	Model Summary     `json:"model"`
	Run   TrainingRun `json:"run"`
}

// RegisterRequest registers an externally trained model.
//
// Model and Features carry the raw artifact documents.
type RegisterRequest struct {
	VersionTag    string             `json:"versionTag"`
	ModelType     string             `json:"modelType"`
	Params        map[string]float64 `json:"params,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	Features      []string           `json:"features,omitempty"`
	Preprocessing *string            `json:"preprocessing,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Model         map[string]any     `json:"model"`
	FeatureSpec   map[string]any     `json:"featureSpec"`
	Promote       bool               `json:"promote,omitempty"`
}
