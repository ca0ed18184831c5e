package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func baseRecord() model.NormalizedRecord {
	return model.NormalizedRecord{
		Source:         model.SourceVALicense,
		SourceRecordID: "101",
		Name:           "Bright Beginnings",
		Address:        "101 River Rd",
		City:           "Richmond",
		State:          "VA",
		Zipcode:        "23220",
		Phone:          "(804) 555-0101",
		LicenseNumber:  "CDC-555",
		LicenseStatus:  "Licensed",

		PreschoolEnrollmentCount: intPtr(120),
		EnrollmentConfidence:     model.ConfidenceHigh,
		EnrollmentSource:         "VA_LICENSE.capacity",
		OffersDaycare:            boolPtr(true),

		Raw: map[string]any{"id": "101"},
	}
}

func TestUpsertRecordCreatesSchool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "101")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.MatchNew, rec.MatchMethod)
	assert.Equal(t, 0.7, rec.MatchConfidence)
	assert.True(t, rec.IsActive)
	assert.NotEmpty(t, rec.Checksum)

	school, err := s.GetSchool(ctx, rec.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school)
	assert.Equal(t, "bright-beginnings-richmond-va", school.Slug)
	assert.Equal(t, "Bright Beginnings", school.Name)
	assert.True(t, school.OffersDaycare)
	require.NotNil(t, school.PreschoolEnrollmentCount)
	assert.Equal(t, 120, *school.PreschoolEnrollmentCount)
	assert.Equal(t, model.ConfidenceHigh, school.EnrollmentDataConfidence)
	assert.Equal(t, "VA_LICENSE.capacity", school.EnrollmentSource)
	assert.Equal(t, model.ConfidenceUnknown, school.AgeDataConfidence)
	require.NotNil(t, school.DataLastNormalizedAt)

	lic, err := s.GetLicense(ctx, "VA", "CDC-555")
	require.NoError(t, err)
	require.NotNil(t, lic)
	assert.Equal(t, school.ID, lic.SchoolID)
	assert.Equal(t, "Licensed", lic.Status)
}

func TestUpsertRecordIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))
	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Schools)
	assert.Equal(t, 1, counts.Licenses)
	assert.Equal(t, 1, counts.SourceRecords[model.SourceVALicense])

	// The second pass resolves through the provenance link.
	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "101")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.MatchSourceID, rec.MatchMethod)
	assert.Equal(t, 1.0, rec.MatchConfidence)
}

func TestUpsertRecordMatchesByLicense(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	other := baseRecord()
	other.Source = model.SourceHeadStart
	other.SourceRecordID = "HS-1"
	other.Name = "Bright Beginnings Center"
	other.Address = "101 River Road"

	require.NoError(t, engine.UpsertRecord(ctx, other))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Schools)

	rec, err := s.GetSourceRecord(ctx, model.SourceHeadStart, "HS-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.MatchLicense, rec.MatchMethod)
	assert.Equal(t, 0.95, rec.MatchConfidence)
}

func TestUpsertRecordMatchesByNameAddress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	other := baseRecord()
	other.Source = model.SourceHeadStart
	other.SourceRecordID = "HS-2"
	other.LicenseNumber = ""
	other.Name = "BRIGHT BEGINNINGS"
	other.Address = "101 river rd"

	require.NoError(t, engine.UpsertRecord(ctx, other))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Schools)

	rec, err := s.GetSourceRecord(ctx, model.SourceHeadStart, "HS-2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.MatchNameAddress, rec.MatchMethod)
	assert.Equal(t, 0.85, rec.MatchConfidence)
}

func TestMergeKeepsHigherConfidenceGroup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	update := baseRecord()
	update.PreschoolEnrollmentCount = intPtr(40)
	update.EnrollmentConfidence = model.ConfidenceLow
	update.EnrollmentSource = "VA_LICENSE.guess"
	update.MinAge = floatPtr(2)
	update.MaxAge = floatPtr(5)
	update.AgeConfidence = model.ConfidenceMedium
	update.AgeSource = "VA_LICENSE.ages"

	require.NoError(t, engine.UpsertRecord(ctx, update))

	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "101")
	require.NoError(t, err)
	school, err := s.GetSchool(ctx, rec.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school)

	// HIGH enrollment survives the LOW update, value and attribution intact.
	require.NotNil(t, school.PreschoolEnrollmentCount)
	assert.Equal(t, 120, *school.PreschoolEnrollmentCount)
	assert.Equal(t, model.ConfidenceHigh, school.EnrollmentDataConfidence)
	assert.Equal(t, "VA_LICENSE.capacity", school.EnrollmentSource)

	// The previously unknown age group takes the MEDIUM update.
	require.NotNil(t, school.MinAge)
	assert.Equal(t, 2.0, *school.MinAge)
	assert.Equal(t, model.ConfidenceMedium, school.AgeDataConfidence)
	assert.Equal(t, "VA_LICENSE.ages", school.AgeDataSource)
}

func TestMergeEqualConfidenceTakesIncoming(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	update := baseRecord()
	update.PreschoolEnrollmentCount = intPtr(150)

	require.NoError(t, engine.UpsertRecord(ctx, update))

	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "101")
	require.NoError(t, err)
	school, err := s.GetSchool(ctx, rec.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school.PreschoolEnrollmentCount)
	assert.Equal(t, 150, *school.PreschoolEnrollmentCount)
}

func TestMergeKeepsWebsiteOverEmptyUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	first := baseRecord()
	first.Website = "https://brightbeginnings.example.com"
	require.NoError(t, engine.UpsertRecord(ctx, first))

	update := baseRecord()
	update.Website = ""
	require.NoError(t, engine.UpsertRecord(ctx, update))

	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "101")
	require.NoError(t, err)
	school, err := s.GetSchool(ctx, rec.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school)

	assert.Equal(t, "https://brightbeginnings.example.com", school.Website)
	assert.Equal(t, model.ConfidenceMedium, school.WebsiteDataConfidence)
	assert.Equal(t, "VA_LICENSE.website", school.WebsiteDataSource)
	require.NotNil(t, school.WebsiteLastVerifiedAt)
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	require.NoError(t, engine.UpsertRecord(ctx, baseRecord()))

	// Same name/city/state but a different zip is a different school.
	other := baseRecord()
	other.SourceRecordID = "202"
	other.LicenseNumber = ""
	other.Zipcode = "23225"
	require.NoError(t, engine.UpsertRecord(ctx, other))

	rec, err := s.GetSourceRecord(ctx, model.SourceVALicense, "202")
	require.NoError(t, err)
	school, err := s.GetSchool(ctx, rec.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school)
	assert.Equal(t, "bright-beginnings-richmond-va-2", school.Slug)
}

func TestReserveSlugFallsBackWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	rec := baseRecord()
	rec.Name = "***"
	rec.City = "---"
	rec.State = "**"

	slug, err := engine.reserveSlug(ctx, rec)
	require.NoError(t, err)
	assert.Contains(t, slug, "school-")
}
