package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/yourschools/ingest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id                                TEXT PRIMARY KEY,
	slug                              TEXT NOT NULL UNIQUE,
	name                              TEXT NOT NULL,
	address                           TEXT NOT NULL,
	city                              TEXT NOT NULL,
	state                             TEXT NOT NULL,
	zipcode                           TEXT NOT NULL,
	lat                               REAL,
	lng                               REAL,
	phone                             TEXT NOT NULL DEFAULT '',
	website                           TEXT NOT NULL DEFAULT '',
	email                             TEXT NOT NULL DEFAULT '',
	description                       TEXT NOT NULL DEFAULT '',
	min_age                           REAL,
	max_age                           REAL,
	preschool_enrollment_count        INTEGER,
	school_wide_enrollment            INTEGER,
	school_wide_student_teacher_ratio REAL,
	opening_hours                     TEXT NOT NULL DEFAULT '',
	closing_hours                     TEXT NOT NULL DEFAULT '',
	offers_daycare                    INTEGER NOT NULL DEFAULT 0,
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
	website_last_verified_at          DATETIME,
	data_last_normalized_at           DATETIME,
	avg_rating                        REAL,
	review_count                      INTEGER NOT NULL DEFAULT 0,
	created_at                        DATETIME NOT NULL,
	updated_at                        DATETIME NOT NULL
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
	match_confidence REAL NOT NULL,
	payload          TEXT NOT NULL,
	checksum         TEXT NOT NULL,
	first_seen_at    DATETIME NOT NULL,
	last_seen_at     DATETIME NOT NULL,
	is_active        INTEGER NOT NULL DEFAULT 1,
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
	effective_date DATETIME,
	expires_date   DATETIME,
	first_seen_at  DATETIME NOT NULL,
	last_seen_at   DATETIME NOT NULL,
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
	metadata         TEXT,
	started_at       DATETIME NOT NULL,
	completed_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON ingestion_runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_status ON ingestion_runs(status);

CREATE TABLE IF NOT EXISTS ingestion_errors (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES ingestion_runs(id),
	record_key TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingestion_errors_run_id ON ingestion_errors(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schoolColumns = `id, slug, name, address, city, state, zipcode, lat, lng,
	phone, website, email, description,
	min_age, max_age, preschool_enrollment_count, school_wide_enrollment,
	school_wide_student_teacher_ratio, opening_hours, closing_hours, offers_daycare,
	age_data_confidence, hours_data_confidence, enrollment_data_confidence,
	ratio_data_confidence, website_data_confidence,
	age_data_source, hours_data_source, enrollment_data_source,
	ratio_data_source, website_data_source,
	website_last_verified_at, data_last_normalized_at,
	avg_rating, review_count, created_at, updated_at`

func (s *SQLiteStore) CreateSchool(ctx context.Context, school *model.School) error {
	if school.ID == "" {
		school.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schools (`+schoolColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schoolArgs(school)...,
	)
	return eris.Wrapf(err, "sqlite: insert school %s", school.Slug)
}

func (s *SQLiteStore) UpdateSchool(ctx context.Context, school *model.School) error {
	school.UpdatedAt = time.Now().UTC()

	args := append(schoolArgs(school)[2:], school.ID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE schools SET
			name = ?, address = ?, city = ?, state = ?, zipcode = ?, lat = ?, lng = ?,
			phone = ?, website = ?, email = ?, description = ?,
			min_age = ?, max_age = ?, preschool_enrollment_count = ?, school_wide_enrollment = ?,
			school_wide_student_teacher_ratio = ?, opening_hours = ?, closing_hours = ?, offers_daycare = ?,
			age_data_confidence = ?, hours_data_confidence = ?, enrollment_data_confidence = ?,
			ratio_data_confidence = ?, website_data_confidence = ?,
			age_data_source = ?, hours_data_source = ?, enrollment_data_source = ?,
			ratio_data_source = ?, website_data_source = ?,
			website_last_verified_at = ?, data_last_normalized_at = ?,
			avg_rating = ?, review_count = ?, created_at = ?, updated_at = ?
		 WHERE id = ?`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update school %s", school.ID)
	}
	return checkRowsAffected(res, "school", school.ID)
}

func (s *SQLiteStore) GetSchool(ctx context.Context, id string) (*model.School, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = ?`, id)
	school, err := scanSchool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return school, eris.Wrapf(err, "sqlite: get school %s", id)
}

func (s *SQLiteStore) FindSchoolByNameAddress(ctx context.Context, name, address, city, state, zipcode string) (*model.School, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE lower(name) = lower(?) AND lower(address) = lower(?)
		   AND lower(city) = lower(?) AND lower(state) = lower(?) AND zipcode = ?
		 LIMIT 1`,
		name, address, city, state, zipcode,
	)
	school, err := scanSchool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return school, eris.Wrap(err, "sqlite: find school by name/address")
}

func (s *SQLiteStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schools WHERE slug = ?`, slug).Scan(&n)
	return n > 0, eris.Wrap(err, "sqlite: slug exists")
}

func (s *SQLiteStore) ListEnrichmentCandidates(ctx context.Context, limit int) ([]model.School, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE website = '' OR website_data_confidence != 'HIGH'
		 ORDER BY updated_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list enrichment candidates")
	}
	defer rows.Close()

	var schools []model.School
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enrichment candidate")
		}
		schools = append(schools, *school)
	}
	return schools, eris.Wrap(rows.Err(), "sqlite: list enrichment candidates iterate")
}

func (s *SQLiteStore) UpdateSchoolWebsite(ctx context.Context, schoolID, website string, confidence model.Confidence, source string, verifiedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schools SET website = ?, website_data_confidence = ?, website_data_source = ?,
			website_last_verified_at = ?, updated_at = ?
		 WHERE id = ?`,
		website, string(confidence.OrUnknown()), source, verifiedAt.UTC(), time.Now().UTC(), schoolID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update school website %s", schoolID)
	}
	return checkRowsAffected(res, "school", schoolID)
}

func (s *SQLiteStore) GetSourceRecord(ctx context.Context, source model.Source, sourceRecordID string) (*model.ProviderSourceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, source_record_id, school_id, state, license_number,
			match_method, match_confidence, payload, checksum,
			first_seen_at, last_seen_at, is_active
		 FROM provider_source_records WHERE source = ? AND source_record_id = ?`,
		string(source), sourceRecordID,
	)

	var rec model.ProviderSourceRecord
	var payload string
	err := row.Scan(&rec.ID, &rec.Source, &rec.SourceRecordID, &rec.SchoolID,
		&rec.State, &rec.LicenseNumber, &rec.MatchMethod, &rec.MatchConfidence,
		&payload, &rec.Checksum, &rec.FirstSeenAt, &rec.LastSeenAt, &rec.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get source record")
	}
	rec.Payload = []byte(payload)
	return &rec, nil
}

func (s *SQLiteStore) UpsertSourceRecord(ctx context.Context, rec *model.ProviderSourceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_source_records
			(id, source, source_record_id, school_id, state, license_number,
			 match_method, match_confidence, payload, checksum,
			 first_seen_at, last_seen_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source, source_record_id) DO UPDATE SET
			school_id = excluded.school_id,
			state = excluded.state,
			license_number = excluded.license_number,
			match_method = excluded.match_method,
			match_confidence = excluded.match_confidence,
			payload = excluded.payload,
			checksum = excluded.checksum,
			last_seen_at = excluded.last_seen_at,
			is_active = excluded.is_active`,
		rec.ID, string(rec.Source), rec.SourceRecordID, rec.SchoolID,
		rec.State, rec.LicenseNumber, string(rec.MatchMethod), rec.MatchConfidence,
		string(rec.Payload), rec.Checksum, rec.FirstSeenAt, rec.LastSeenAt, rec.IsActive,
	)
	return eris.Wrapf(err, "sqlite: upsert source record %s:%s", rec.Source, rec.SourceRecordID)
}

func (s *SQLiteStore) GetLicense(ctx context.Context, state, licenseNumber string) (*model.License, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, school_id, state, license_number, status, issuing_agency,
			effective_date, expires_date, first_seen_at, last_seen_at
		 FROM licenses WHERE state = ? AND license_number = ?`,
		state, licenseNumber,
	)

	var lic model.License
	var effective, expires sql.NullTime
	err := row.Scan(&lic.ID, &lic.SchoolID, &lic.State, &lic.LicenseNumber,
		&lic.Status, &lic.IssuingAgency, &effective, &expires,
		&lic.FirstSeenAt, &lic.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get license")
	}
	lic.EffectiveDate = timePtr(effective)
	lic.ExpiresDate = timePtr(expires)
	return &lic, nil
}

func (s *SQLiteStore) UpsertLicense(ctx context.Context, lic *model.License) error {
	if lic.ID == "" {
		lic.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO licenses
			(id, school_id, state, license_number, status, issuing_agency,
			 effective_date, expires_date, first_seen_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(state, license_number) DO UPDATE SET
			school_id = excluded.school_id,
			status = excluded.status,
			issuing_agency = excluded.issuing_agency,
			effective_date = excluded.effective_date,
			expires_date = excluded.expires_date,
			last_seen_at = excluded.last_seen_at`,
		lic.ID, lic.SchoolID, lic.State, lic.LicenseNumber, lic.Status,
		lic.IssuingAgency, lic.EffectiveDate, lic.ExpiresDate,
		lic.FirstSeenAt, lic.LastSeenAt,
	)
	return eris.Wrapf(err, "sqlite: upsert license %s/%s", lic.State, lic.LicenseNumber)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source model.Source) (*model.IngestionRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(source), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for %s", source)
	}

	return &model.IngestionRun{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.IngestionRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now

	var metadataJSON any
	if len(run.Metadata) > 0 {
		b, err := json.Marshal(run.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal run metadata")
		}
		metadataJSON = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_runs SET status = ?, records_seen = ?, records_upserted = ?,
			records_skipped = ?, metadata = ?, completed_at = ?
		 WHERE id = ?`,
		string(run.Status), run.RecordsSeen, run.RecordsUpserted, run.RecordsSkipped,
		metadataJSON, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, records_seen, records_upserted, records_skipped,
			metadata, started_at, completed_at
		 FROM ingestion_runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, eris.Wrapf(err, "sqlite: get run %s", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error) {
	query := `SELECT id, source, status, records_seen, records_upserted, records_skipped,
		metadata, started_at, completed_at
	 FROM ingestion_runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreateIngestionErrors(ctx context.Context, errs []model.IngestionError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin error insert")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range errs {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingestion_errors (id, run_id, record_key, message, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, e.RunID, e.RecordKey, e.Message, createdAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert ingestion error %s", e.RecordKey)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit error insert")
}

func (s *SQLiteStore) CountIngestionErrors(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingestion_errors WHERE run_id = ?`, runID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count ingestion errors")
}

func (s *SQLiteStore) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{SourceRecords: make(map[model.Source]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schools`).Scan(&counts.Schools); err != nil {
		return nil, eris.Wrap(err, "sqlite: count schools")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM licenses`).Scan(&counts.Licenses); err != nil {
		return nil, eris.Wrap(err, "sqlite: count licenses")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestion_runs`).Scan(&counts.Runs); err != nil {
		return nil, eris.Wrap(err, "sqlite: count runs")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM provider_source_records GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count source records")
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source record count")
		}
		counts.SourceRecords[model.Source(source)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count source records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// schoolArgs returns the insert argument list in schoolColumns order.
func schoolArgs(school *model.School) []any {
	return []any{
		school.ID, school.Slug, school.Name, school.Address, school.City,
		school.State, school.Zipcode, school.Lat, school.Lng,
		school.Phone, school.Website, school.Email, school.Description,
		school.MinAge, school.MaxAge, school.PreschoolEnrollmentCount,
		school.SchoolWideEnrollment, school.SchoolWideStudentTeacherRatio,
		school.OpeningHours, school.ClosingHours, school.OffersDaycare,
		string(school.AgeDataConfidence.OrUnknown()),
		string(school.HoursDataConfidence.OrUnknown()),
		string(school.EnrollmentDataConfidence.OrUnknown()),
		string(school.RatioDataConfidence.OrUnknown()),
		string(school.WebsiteDataConfidence.OrUnknown()),
		school.AgeDataSource, school.HoursDataSource, school.EnrollmentSource,
		school.RatioDataSource, school.WebsiteDataSource,
		school.WebsiteLastVerifiedAt, school.DataLastNormalizedAt,
		school.AvgRating, school.ReviewCount, school.CreatedAt, school.UpdatedAt,
	}
}

func scanSchool(row scannable) (*model.School, error) {
	var school model.School
	var lat, lng, minAge, maxAge, ratio, avgRating sql.NullFloat64
	var preschoolEnrollment, schoolWideEnrollment sql.NullInt64
	var websiteVerified, normalized sql.NullTime

	err := row.Scan(&school.ID, &school.Slug, &school.Name, &school.Address,
		&school.City, &school.State, &school.Zipcode, &lat, &lng,
		&school.Phone, &school.Website, &school.Email, &school.Description,
		&minAge, &maxAge, &preschoolEnrollment, &schoolWideEnrollment,
		&ratio, &school.OpeningHours, &school.ClosingHours, &school.OffersDaycare,
		&school.AgeDataConfidence, &school.HoursDataConfidence,
		&school.EnrollmentDataConfidence, &school.RatioDataConfidence,
		&school.WebsiteDataConfidence,
		&school.AgeDataSource, &school.HoursDataSource, &school.EnrollmentSource,
		&school.RatioDataSource, &school.WebsiteDataSource,
		&websiteVerified, &normalized,
		&avgRating, &school.ReviewCount, &school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		return nil, err
	}

	school.Lat = floatPtr(lat)
	school.Lng = floatPtr(lng)
	school.MinAge = floatPtr(minAge)
	school.MaxAge = floatPtr(maxAge)
	school.PreschoolEnrollmentCount = intPtr(preschoolEnrollment)
	school.SchoolWideEnrollment = intPtr(schoolWideEnrollment)
	school.SchoolWideStudentTeacherRatio = floatPtr(ratio)
	school.AvgRating = floatPtr(avgRating)
	school.WebsiteLastVerifiedAt = timePtr(websiteVerified)
	school.DataLastNormalizedAt = timePtr(normalized)
	return &school, nil
}

func scanRun(row scannable) (*model.IngestionRun, error) {
	var run model.IngestionRun
	var metadata sql.NullString
	var completed sql.NullTime

	err := row.Scan(&run.ID, &run.Source, &run.Status,
		&run.RecordsSeen, &run.RecordsUpserted, &run.RecordsSkipped,
		&metadata, &run.StartedAt, &completed)
	if err != nil {
		return nil, err
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &run.Metadata); err != nil {
			return nil, eris.Wrap(err, "unmarshal run metadata")
		}
	}
	run.CompletedAt = timePtr(completed)
	return &run, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
