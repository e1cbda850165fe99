package domain

// domain package contains the Domain Models and Interfaces for the Cropbase application.
//
// `domain/cropbase` package exposes root object for the Cropbase application.
// Entrypoints of applications should instantiage the Cropbase object and use it to interact with the domain.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/field.go` contains the `FieldSeason` entity.
//
// `domain/ENTITY` directory contains the "phisical" representation of the domain entities, the RDB.
// For example, `domain/field/db` contains the database expression of the field entities described in `domain/field.go`.
//
// `domain/ENTITY/db/interface.go` exposes the client interface to handle the domain entity in DB.
//
// # Entities
//
// Core entities in the domain are:
//
// - `field`: Fields and their per-season facts (FieldSeason).
// A FieldSeason records acreage, location, fertilizer totals and observed yield of one field in one growing season,
// together with the Management Events (spraying, fertilizing, tillage, ...) applied during the season.
// Crop, Variety and Season are lookup entities referenced by FieldSeasons.
//
// - `ingest`: Records of CSV file ingestions and exports.
// Files are deduplicated by content hash. Each ingestion keeps counters of parsed/inserted/updated/skipped rows,
// so re-running an upload is safe and its effect is auditable.
//
// - `model`: Versioned prediction models.
// Each ModelVersion has a unique tag, hyperparameters, evaluation metrics and training run history.
// At most one version per model type is marked as the production version used for serving predictions.
//
// - `prediction`: Stored yield predictions per FieldSeason and ModelVersion,
// and the training matrix assembled from FieldSeasons with observed yields.
//
// And others:
//
// - `stats`: Read-only regional yield aggregations (per-county stats, rankings, variety performance).
//
// - `schema`: Manages the database schema version against the schema repository directory.
//
// - `errors`: Domain error kinds (missing, conflict) and their mapping from database errors.
