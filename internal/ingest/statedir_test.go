package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
)

func TestStateDirectoryLoadRecords(t *testing.T) {
	csv := "Facility Name,Address,City,State,Zip,License Number,Capacity,Ages Served,Opening Time,Closing Time,Ratio\n" +
		"Maple Grove Preschool,18 Maple St,Columbus,,43004,L-300,55,18 months - 6 years,7:00 AM,6:00 PM,8\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csv))
	}))
	defer server.Close()

	adapter := NewStateDirectoryAdapter(model.Source("OH_DIRECTORY"), "OH", server.URL, newTestClient())
	assert.Equal(t, model.Source("OH_DIRECTORY"), adapter.Source())

	records, err := adapter.LoadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Maple Grove Preschool", rec.Name)
	// Empty state column falls back to the configured abbreviation.
	assert.Equal(t, "OH", rec.State)
	assert.Equal(t, "L-300", rec.LicenseNumber)
	assert.Equal(t, "L-300", rec.SourceRecordID)
	require.NotNil(t, rec.MinAge)
	assert.Equal(t, 1.5, *rec.MinAge)
	require.NotNil(t, rec.MaxAge)
	assert.Equal(t, 0.5, *rec.MaxAge)
	assert.Equal(t, "OH_DIRECTORY.age_range", rec.AgeSource)
	assert.Equal(t, "7:00 AM", rec.OpeningHours)
	assert.Equal(t, "6:00 PM", rec.ClosingHours)
	assert.Equal(t, model.ConfidenceMedium, rec.HoursConfidence)
	require.NotNil(t, rec.PreschoolEnrollmentCount)
	assert.Equal(t, 55, *rec.PreschoolEnrollmentCount)
	assert.Equal(t, model.ConfidenceHigh, rec.EnrollmentConfidence)
	require.NotNil(t, rec.SchoolWideStudentTeacherRatio)
	assert.Equal(t, 8.0, *rec.SchoolWideStudentTeacherRatio)
	assert.Equal(t, model.ConfidenceMedium, rec.RatioConfidence)
	assert.Equal(t, "6:00 PM", rec.Raw["normalized_closing_hours"])
}

func TestMapDirectoryRowFallbacks(t *testing.T) {
	rec := mapDirectoryRow(fetcher.Record{
		"provider_name": "Cedar Lane Children's Center",
		"street":        "44 Cedar Ln",
		"city":          "Dayton",
		"zip_code":      "45402",
	}, model.Source("OH_DIRECTORY"), "OH")

	require.NotNil(t, rec)
	assert.Equal(t, "OH", rec.State)
	assert.Len(t, rec.SourceRecordID, 20)
	assert.Equal(t, model.ConfidenceUnknown, rec.AgeConfidence.OrUnknown())
	assert.Nil(t, rec.PreschoolEnrollmentCount)
}

func TestRegistryRoutesSources(t *testing.T) {
	registry := NewRegistry(config.SourcesConfig{}, newTestClient())

	for _, source := range model.AllSources() {
		adapter, err := registry.Get(source)
		require.NoError(t, err)
		assert.Equal(t, source, adapter.Source())
	}

	_, err := registry.Get(model.Source("BOGUS"))
	require.Error(t, err)

	extra := NewStateDirectoryAdapter(model.Source("OH_DIRECTORY"), "OH", "http://example.invalid", newTestClient())
	registry.Register(extra)
	got, err := registry.Get(model.Source("OH_DIRECTORY"))
	require.NoError(t, err)
	assert.Same(t, extra, got)
}
