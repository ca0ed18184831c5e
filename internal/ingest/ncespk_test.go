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

func TestNCESLoadRecordsFiltersAndCaps(t *testing.T) {
	csv := "NCESSCH,School Name,Street,City,State,Zip,Low Grade,High Grade,PK,Total,STUTERATIO\n" +
		"510001,Early Learning Annex,5 Elm St,Fairfax,VA,22030,PK,PK,35,120,9.5\n" +
		"510002,Walnut Pre-K Site,9 Walnut St,Reston,VA,20190,PK,KG,20,80,\n" +
		"510003,Central Elementary,44 Central Ave,Vienna,VA,22180,PK,05,30,400,14\n" +
		"510004,North High,1 North Rd,Herndon,VA,20170,09,12,,1200,\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csv))
	}))
	defer server.Close()

	adapter := NewNCESPKAdapter(config.NCESPKConfig{URL: server.URL}, newTestClient())
	records, err := adapter.LoadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, model.SourceNCESPK, rec.Source)
	assert.Equal(t, "510001", rec.SourceRecordID)
	assert.Equal(t, "Public school pre-K program", rec.Description)
	require.NotNil(t, rec.MinAge)
	assert.Equal(t, 3.0, *rec.MinAge)
	require.NotNil(t, rec.MaxAge)
	assert.Equal(t, 5.0, *rec.MaxAge)
	assert.Equal(t, model.ConfidenceLow, rec.AgeConfidence)
	assert.Equal(t, "NCES_PK.grade_span_inference", rec.AgeSource)
	require.NotNil(t, rec.PreschoolEnrollmentCount)
	assert.Equal(t, 35, *rec.PreschoolEnrollmentCount)
	assert.Equal(t, model.ConfidenceMedium, rec.EnrollmentConfidence)
	require.NotNil(t, rec.SchoolWideEnrollment)
	assert.Equal(t, 120, *rec.SchoolWideEnrollment)
	require.NotNil(t, rec.SchoolWideStudentTeacherRatio)
	assert.Equal(t, 9.5, *rec.SchoolWideStudentTeacherRatio)
	require.NotNil(t, rec.OffersDaycare)
	assert.False(t, *rec.OffersDaycare)

	// max_rows caps the mapped output, not the raw rows.
	capped := NewNCESPKAdapter(config.NCESPKConfig{URL: server.URL, MaxRows: 1}, newTestClient())
	records, err = capped.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseGradeCode(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"UG", -2, true},
		{"pk", -1, true},
		{"TK", -1, true},
		{"KG", 0, true},
		{"K", 0, true},
		{"05", 5, true},
		{"12", 12, true},
		{"", 0, false},
		{"N/A", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseGradeCode(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestHasPreKIndicator(t *testing.T) {
	assert.True(t, hasPreKIndicator(fetcher.Record{"pk": "YES"}))
	assert.True(t, hasPreKIndicator(fetcher.Record{"pk": "24"}))
	assert.False(t, hasPreKIndicator(fetcher.Record{"pk": "0"}))
	assert.False(t, hasPreKIndicator(fetcher.Record{"pk": ""}))
	assert.False(t, hasPreKIndicator(fetcher.Record{}))
}

func TestIsLikelyPreschoolCampus(t *testing.T) {
	assert.True(t, isLikelyPreschoolCampus(fetcher.Record{"low_grade": "PK", "high_grade": "KG"}))
	assert.False(t, isLikelyPreschoolCampus(fetcher.Record{"low_grade": "PK", "high_grade": "05"}))
	assert.False(t, isLikelyPreschoolCampus(fetcher.Record{"low_grade": "01", "high_grade": "05"}))
	assert.False(t, isLikelyPreschoolCampus(fetcher.Record{"low_grade": "PK", "school_level": "Elementary"}))
	// Unknown grade codes do not disqualify on their own.
	assert.True(t, isLikelyPreschoolCampus(fetcher.Record{"low_grade": "N", "high_grade": "N"}))
}
