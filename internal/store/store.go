// Package store persists the school directory: canonical schools, the
// provenance ledger of provider source records, licenses, and ingestion runs.
// Two backends implement the same interface: Postgres for deployments and
// SQLite for local runs and tests.
package store

import (
	"context"
	"time"

	"github.com/yourschools/ingest-cli/internal/model"
)

// RunFilter specifies criteria for listing ingestion runs.
type RunFilter struct {
	Source model.Source    `json:"source,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Counts is the reporting snapshot behind the status command.
type Counts struct {
	Schools       int                  `json:"schools"`
	Licenses      int                  `json:"licenses"`
	Runs          int                  `json:"runs"`
	SourceRecords map[model.Source]int `json:"source_records"`
}

// Store defines the persistence interface for the ingestion pipeline.
//
// Lookup methods return (nil, nil) when no row matches; only infrastructure
// failures surface as errors. Writes performed earlier in a sequential run are
// visible to later reads.
type Store interface {
	// Schools
	CreateSchool(ctx context.Context, school *model.School) error
	UpdateSchool(ctx context.Context, school *model.School) error
	GetSchool(ctx context.Context, id string) (*model.School, error)
	FindSchoolByNameAddress(ctx context.Context, name, address, city, state, zipcode string) (*model.School, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListEnrichmentCandidates(ctx context.Context, limit int) ([]model.School, error)
	UpdateSchoolWebsite(ctx context.Context, schoolID, website string, confidence model.Confidence, source string, verifiedAt time.Time) error

	// Provenance ledger
	GetSourceRecord(ctx context.Context, source model.Source, sourceRecordID string) (*model.ProviderSourceRecord, error)
	UpsertSourceRecord(ctx context.Context, rec *model.ProviderSourceRecord) error

	// Licenses
	GetLicense(ctx context.Context, state, licenseNumber string) (*model.License, error)
	UpsertLicense(ctx context.Context, lic *model.License) error

	// Runs
	CreateRun(ctx context.Context, source model.Source) (*model.IngestionRun, error)
	CompleteRun(ctx context.Context, run *model.IngestionRun) error
	GetRun(ctx context.Context, runID string) (*model.IngestionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error)

	// Record-level failures
	CreateIngestionErrors(ctx context.Context, errs []model.IngestionError) error
	CountIngestionErrors(ctx context.Context, runID string) (int, error)

	// Reporting
	Counts(ctx context.Context) (*Counts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
