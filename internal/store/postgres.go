package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/yourschools/ingest-cli/internal/db"
	"github.com/yourschools/ingest-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id                                TEXT PRIMARY KEY,
	slug                              TEXT NOT NULL UNIQUE,
	name                              TEXT NOT NULL,
	address                           TEXT NOT NULL,
	city                              TEXT NOT NULL,
	state                             TEXT NOT NULL,
	zipcode                           TEXT NOT NULL,
	lat                               DOUBLE PRECISION,
	lng                               DOUBLE PRECISION,
	phone                             TEXT NOT NULL DEFAULT '',
	website                           TEXT NOT NULL DEFAULT '',
	email                             TEXT NOT NULL DEFAULT '',
	description                       TEXT NOT NULL DEFAULT '',
	min_age                           DOUBLE PRECISION,
	max_age                           DOUBLE PRECISION,
	preschool_enrollment_count        INTEGER,
	school_wide_enrollment            INTEGER,
	school_wide_student_teacher_ratio DOUBLE PRECISION,
	opening_hours                     TEXT NOT NULL DEFAULT '',
	closing_hours                     TEXT NOT NULL DEFAULT '',
	offers_daycare                    BOOLEAN NOT NULL DEFAULT false,
	age_data_confidence               TEXT NOT NULL DEFAULT 'UNKNOWN',
	hours_data_confidence             TEXT NOT NULL DEFAULT 'UNKNOWN',
	enrollment_data_confidence        TEXT NOT NULL DEFAULT 'UNKNOWN',
	ratio_data_confidence             TEXT NOT NULL DEFAULT 'UNKNOWN',
	website_data_confidence           TEXT NOT NULL DEFAULT 'UNKNOWN',
	age_data_source                   TEXT NOT NULL DEFAULT '',
	hours_data_source                 TEXT NOT NULL DEFAULT '',
	enrollment_data_source            TEXT NOT NULL DEFAULT '',
	ratio_data_source                 TEXT NOT NULL DEFAULT '',
	website_data_source               TEXT NOT NULL DEFAULT '',
	website_last_verified_at          TIMESTAMPTZ,
	data_last_normalized_at           TIMESTAMPTZ,
	avg_rating                        DOUBLE PRECISION,
	review_count                      INTEGER NOT NULL DEFAULT 0,
	created_at                        TIMESTAMPTZ NOT NULL,
	updated_at                        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_schools_name_city ON schools(name, city);
CREATE INDEX IF NOT EXISTS idx_schools_state_zip ON schools(state, zipcode);
CREATE INDEX IF NOT EXISTS idx_schools_website_confidence ON schools(website_data_confidence);

CREATE TABLE IF NOT EXISTS provider_source_records (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	source_record_id TEXT NOT NULL,
	school_id        TEXT NOT NULL REFERENCES schools(id),
	state            TEXT NOT NULL DEFAULT '',
	license_number   TEXT NOT NULL DEFAULT '',
	match_method     TEXT NOT NULL,
	match_confidence DOUBLE PRECISION NOT NULL,
	payload          JSONB NOT NULL,
	checksum         TEXT NOT NULL,
	first_seen_at    TIMESTAMPTZ NOT NULL,
	last_seen_at     TIMESTAMPTZ NOT NULL,
	is_active        BOOLEAN NOT NULL DEFAULT true,
	UNIQUE(source, source_record_id)
);

CREATE INDEX IF NOT EXISTS idx_psr_school_id ON provider_source_records(school_id);

CREATE TABLE IF NOT EXISTS licenses (
	id             TEXT PRIMARY KEY,
	school_id      TEXT NOT NULL REFERENCES schools(id),
	state          TEXT NOT NULL,
	license_number TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT '',
	issuing_agency TEXT NOT NULL DEFAULT '',
	effective_date TIMESTAMPTZ,
	expires_date   TIMESTAMPTZ,
	first_seen_at  TIMESTAMPTZ NOT NULL,
	last_seen_at   TIMESTAMPTZ NOT NULL,
	UNIQUE(state, license_number)
);

CREATE INDEX IF NOT EXISTS idx_licenses_school_id ON licenses(school_id);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'RUNNING',
	records_seen     INTEGER NOT NULL DEFAULT 0,
	records_upserted INTEGER NOT NULL DEFAULT 0,
	records_skipped  INTEGER NOT NULL DEFAULT 0,
	metadata         JSONB,
	started_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON ingestion_runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_status ON ingestion_runs(status);

CREATE TABLE IF NOT EXISTS ingestion_errors (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES ingestion_runs(id),
	record_key TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingestion_errors_run_id ON ingestion_errors(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSchool(ctx context.Context, school *model.School) error {
	if school.ID == "" {
		school.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO schools (`+schoolColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)`,
		schoolArgs(school)...,
	)
	return eris.Wrapf(err, "postgres: insert school %s", school.Slug)
}

func (s *PostgresStore) UpdateSchool(ctx context.Context, school *model.School) error {
	school.UpdatedAt = time.Now().UTC()

	args := append(schoolArgs(school)[2:], school.ID)
	tag, err := s.pool.Exec(ctx,
		`UPDATE schools SET
			name = $1, address = $2, city = $3, state = $4, zipcode = $5, lat = $6, lng = $7,
			phone = $8, website = $9, email = $10, description = $11,
			min_age = $12, max_age = $13, preschool_enrollment_count = $14, school_wide_enrollment = $15,
			school_wide_student_teacher_ratio = $16, opening_hours = $17, closing_hours = $18, offers_daycare = $19,
			age_data_confidence = $20, hours_data_confidence = $21, enrollment_data_confidence = $22,
			ratio_data_confidence = $23, website_data_confidence = $24,
			age_data_source = $25, hours_data_source = $26, enrollment_data_source = $27,
			ratio_data_source = $28, website_data_source = $29,
			website_last_verified_at = $30, data_last_normalized_at = $31,
			avg_rating = $32, review_count = $33, created_at = $34, updated_at = $35
		 WHERE id = $36`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update school %s", school.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("school not found: %s", school.ID)
	}
	return nil
}

func (s *PostgresStore) GetSchool(ctx context.Context, id string) (*model.School, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id)
	school, err := scanSchoolPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return school, eris.Wrapf(err, "postgres: get school %s", id)
}

func (s *PostgresStore) FindSchoolByNameAddress(ctx context.Context, name, address, city, state, zipcode string) (*model.School, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE lower(name) = lower($1) AND lower(address) = lower($2)
		   AND lower(city) = lower($3) AND lower(state) = lower($4) AND zipcode = $5
		 LIMIT 1`,
		name, address, city, state, zipcode,
	)
	school, err := scanSchoolPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return school, eris.Wrap(err, "postgres: find school by name/address")
}

func (s *PostgresStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM schools WHERE slug = $1`, slug).Scan(&n)
	return n > 0, eris.Wrap(err, "postgres: slug exists")
}

func (s *PostgresStore) ListEnrichmentCandidates(ctx context.Context, limit int) ([]model.School, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE website = '' OR website_data_confidence != 'HIGH'
		 ORDER BY updated_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list enrichment candidates")
	}
	defer rows.Close()

	var schools []model.School
	for rows.Next() {
		school, err := scanSchoolPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan enrichment candidate")
		}
		schools = append(schools, *school)
	}
	return schools, eris.Wrap(rows.Err(), "postgres: list enrichment candidates iterate")
}

func (s *PostgresStore) UpdateSchoolWebsite(ctx context.Context, schoolID, website string, confidence model.Confidence, source string, verifiedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE schools SET website = $1, website_data_confidence = $2, website_data_source = $3,
			website_last_verified_at = $4, updated_at = $5
		 WHERE id = $6`,
		website, string(confidence.OrUnknown()), source, verifiedAt.UTC(), time.Now().UTC(), schoolID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update school website %s", schoolID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("school not found: %s", schoolID)
	}
	return nil
}

func (s *PostgresStore) GetSourceRecord(ctx context.Context, source model.Source, sourceRecordID string) (*model.ProviderSourceRecord, error) {
	var rec model.ProviderSourceRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, source_record_id, school_id, state, license_number,
			match_method, match_confidence, payload, checksum,
			first_seen_at, last_seen_at, is_active
		 FROM provider_source_records WHERE source = $1 AND source_record_id = $2`,
		string(source), sourceRecordID,
	).Scan(&rec.ID, &rec.Source, &rec.SourceRecordID, &rec.SchoolID,
		&rec.State, &rec.LicenseNumber, &rec.MatchMethod, &rec.MatchConfidence,
		&rec.Payload, &rec.Checksum, &rec.FirstSeenAt, &rec.LastSeenAt, &rec.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get source record")
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertSourceRecord(ctx context.Context, rec *model.ProviderSourceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO provider_source_records
			(id, source, source_record_id, school_id, state, license_number,
			 match_method, match_confidence, payload, checksum,
			 first_seen_at, last_seen_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (source, source_record_id) DO UPDATE SET
			school_id = EXCLUDED.school_id,
			state = EXCLUDED.state,
			license_number = EXCLUDED.license_number,
			match_method = EXCLUDED.match_method,
			match_confidence = EXCLUDED.match_confidence,
			payload = EXCLUDED.payload,
			checksum = EXCLUDED.checksum,
			last_seen_at = EXCLUDED.last_seen_at,
			is_active = EXCLUDED.is_active`,
		rec.ID, string(rec.Source), rec.SourceRecordID, rec.SchoolID,
		rec.State, rec.LicenseNumber, string(rec.MatchMethod), rec.MatchConfidence,
		rec.Payload, rec.Checksum, rec.FirstSeenAt, rec.LastSeenAt, rec.IsActive,
	)
	return eris.Wrapf(err, "postgres: upsert source record %s:%s", rec.Source, rec.SourceRecordID)
}

func (s *PostgresStore) GetLicense(ctx context.Context, state, licenseNumber string) (*model.License, error) {
	var lic model.License
	err := s.pool.QueryRow(ctx,
		`SELECT id, school_id, state, license_number, status, issuing_agency,
			effective_date, expires_date, first_seen_at, last_seen_at
		 FROM licenses WHERE state = $1 AND license_number = $2`,
		state, licenseNumber,
	).Scan(&lic.ID, &lic.SchoolID, &lic.State, &lic.LicenseNumber,
		&lic.Status, &lic.IssuingAgency, &lic.EffectiveDate, &lic.ExpiresDate,
		&lic.FirstSeenAt, &lic.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get license")
	}
	return &lic, nil
}

func (s *PostgresStore) UpsertLicense(ctx context.Context, lic *model.License) error {
	if lic.ID == "" {
		lic.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO licenses
			(id, school_id, state, license_number, status, issuing_agency,
			 effective_date, expires_date, first_seen_at, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (state, license_number) DO UPDATE SET
			school_id = EXCLUDED.school_id,
			status = EXCLUDED.status,
			issuing_agency = EXCLUDED.issuing_agency,
			effective_date = EXCLUDED.effective_date,
			expires_date = EXCLUDED.expires_date,
			last_seen_at = EXCLUDED.last_seen_at`,
		lic.ID, lic.SchoolID, lic.State, lic.LicenseNumber, lic.Status,
		lic.IssuingAgency, lic.EffectiveDate, lic.ExpiresDate,
		lic.FirstSeenAt, lic.LastSeenAt,
	)
	return eris.Wrapf(err, "postgres: upsert license %s/%s", lic.State, lic.LicenseNumber)
}

func (s *PostgresStore) CreateRun(ctx context.Context, source model.Source) (*model.IngestionRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(source), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %s", source)
	}

	return &model.IngestionRun{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.IngestionRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now

	var metadataJSON []byte
	if len(run.Metadata) > 0 {
		b, err := json.Marshal(run.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal run metadata")
		}
		metadataJSON = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_runs SET status = $1, records_seen = $2, records_upserted = $3,
			records_skipped = $4, metadata = $5, completed_at = $6
		 WHERE id = $7`,
		string(run.Status), run.RecordsSeen, run.RecordsUpserted, run.RecordsSkipped,
		metadataJSON, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, status, records_seen, records_upserted, records_skipped,
			metadata, started_at, completed_at
		 FROM ingestion_runs WHERE id = $1`,
		runID,
	)
	run, err := scanRunPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, eris.Wrapf(err, "postgres: get run %s", runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error) {
	query := `SELECT id, source, status, records_seen, records_upserted, records_skipped,
		metadata, started_at, completed_at
	 FROM ingestion_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		run, err := scanRunPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreateIngestionErrors(ctx context.Context, errs []model.IngestionError) error {
	if len(errs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(errs))
	for _, e := range errs {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, []any{id, e.RunID, e.RecordKey, e.Message, createdAt})
	}

	_, err := db.CopyFrom(ctx, s.pool, "ingestion_errors",
		[]string{"id", "run_id", "record_key", "message", "created_at"}, rows)
	return eris.Wrap(err, "postgres: insert ingestion errors")
}

func (s *PostgresStore) CountIngestionErrors(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingestion_errors WHERE run_id = $1`, runID).Scan(&n)
	return n, eris.Wrap(err, "postgres: count ingestion errors")
}

func (s *PostgresStore) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{SourceRecords: make(map[model.Source]int)}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM schools`).Scan(&counts.Schools); err != nil {
		return nil, eris.Wrap(err, "postgres: count schools")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM licenses`).Scan(&counts.Licenses); err != nil {
		return nil, eris.Wrap(err, "postgres: count licenses")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ingestion_runs`).Scan(&counts.Runs); err != nil {
		return nil, eris.Wrap(err, "postgres: count runs")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM provider_source_records GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count source records")
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source record count")
		}
		counts.SourceRecords[model.Source(source)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count source records iterate")
}

// pgx scan helpers; NULLs land directly in pointer fields.

func scanSchoolPgx(row scannable) (*model.School, error) {
	var school model.School
	err := row.Scan(&school.ID, &school.Slug, &school.Name, &school.Address,
		&school.City, &school.State, &school.Zipcode, &school.Lat, &school.Lng,
		&school.Phone, &school.Website, &school.Email, &school.Description,
		&school.MinAge, &school.MaxAge, &school.PreschoolEnrollmentCount,
		&school.SchoolWideEnrollment, &school.SchoolWideStudentTeacherRatio,
		&school.OpeningHours, &school.ClosingHours, &school.OffersDaycare,
		&school.AgeDataConfidence, &school.HoursDataConfidence,
		&school.EnrollmentDataConfidence, &school.RatioDataConfidence,
		&school.WebsiteDataConfidence,
		&school.AgeDataSource, &school.HoursDataSource, &school.EnrollmentSource,
		&school.RatioDataSource, &school.WebsiteDataSource,
		&school.WebsiteLastVerifiedAt, &school.DataLastNormalizedAt,
		&school.AvgRating, &school.ReviewCount, &school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func scanRunPgx(row scannable) (*model.IngestionRun, error) {
	var run model.IngestionRun
	var metadata []byte

	err := row.Scan(&run.ID, &run.Source, &run.Status,
		&run.RecordsSeen, &run.RecordsUpserted, &run.RecordsSkipped,
		&metadata, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &run.Metadata); err != nil {
			return nil, eris.Wrap(err, "unmarshal run metadata")
		}
	}
	return &run, nil
}
