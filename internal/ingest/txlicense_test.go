package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/model"
)

func txProviderPayload(id int64, name string) map[string]any {
	return map[string]any{
		"providerId":         id,
		"providerNum":        id + 1000,
		"providerName":       name,
		"addressLine1":       "4500 Ranch Rd",
		"city":               "Austin",
		"state":              "TX",
		"zipCode":            "78701",
		"phoneNumber":        "(512) 555-0142",
		"issuanceType":       "Full Permit",
		"providerWrkngHours": "06:45 AM-06:15 PM",
		"ttlCpcty":           90,
		"agesServed":         "Infant, Toddler, Pre-Kindergarten (0 years - 5 years)",
		"programType":        "DC",
	}
}

func TestTXLoadRecordsPages(t *testing.T) {
	var pages []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tx-tok"}})
			return
		}

		assert.Equal(t, "tx-tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ASC", body["sortOrder"])
		assert.Equal(t, false, body["includeApplicants"])

		page := int(body["pageNumber"].(float64))
		pages = append(pages, page)

		var providers []map[string]any
		switch page {
		case 1:
			providers = []map[string]any{
				txProviderPayload(1, "Hill Country Kids"),
				txProviderPayload(2, "Bluebonnet Academy"),
			}
		case 2:
			// Overlaps page one; dedupe keeps one copy per provider.
			providers = []map[string]any{
				txProviderPayload(2, "Bluebonnet Academy"),
				txProviderPayload(3, "Lone Star Littles"),
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": providers, "totalCount": 4})
	}))
	defer server.Close()

	adapter := NewTXLicenseAdapter(config.TXConfig{
		TokenURL:  server.URL + "/token",
		SearchURL: server.URL + "/search",
		PageSize:  2,
	}, newTestClient())

	records, err := adapter.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pages)
	require.Len(t, records, 3)

	rec := records[0]
	assert.Equal(t, model.SourceTXLicense, rec.Source)
	assert.Equal(t, "1", rec.SourceRecordID)
	assert.Equal(t, "1001", rec.LicenseNumber)
	assert.Equal(t, "Full Permit", rec.LicenseStatus)
	assert.Equal(t, "TX", rec.State)
	assert.Equal(t, "06:45 AM", rec.OpeningHours)
	assert.Equal(t, "06:15 PM", rec.ClosingHours)
	assert.Equal(t, "TX_LICENSE.hours", rec.HoursSource)
	require.NotNil(t, rec.MinAge)
	assert.Equal(t, 0.0, *rec.MinAge)
	require.NotNil(t, rec.MaxAge)
	assert.Equal(t, 5.0, *rec.MaxAge)
	assert.Equal(t, model.ConfidenceMedium, rec.AgeConfidence)
	assert.Equal(t, "TX_LICENSE.ages_served", rec.AgeSource)
	require.NotNil(t, rec.PreschoolEnrollmentCount)
	assert.Equal(t, 90, *rec.PreschoolEnrollmentCount)
	assert.Equal(t, model.ConfidenceHigh, rec.EnrollmentConfidence)
	require.NotNil(t, rec.OffersDaycare)
	assert.True(t, *rec.OffersDaycare)
}

func TestTXLoadRecordsMaxPages(t *testing.T) {
	var searches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tx-tok"}})
			return
		}
		searches++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":   []map[string]any{txProviderPayload(int64(searches), "Provider")},
			"totalCount": 100,
		})
	}))
	defer server.Close()

	adapter := NewTXLicenseAdapter(config.TXConfig{
		TokenURL:  server.URL + "/token",
		SearchURL: server.URL + "/search",
		PageSize:  1,
		MaxPages:  2,
	}, newTestClient())

	records, err := adapter.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, searches)
	assert.Len(t, records, 2)
}

func TestTXLoadRecordsMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{}})
	}))
	defer server.Close()

	adapter := NewTXLicenseAdapter(config.TXConfig{
		TokenURL:  server.URL,
		SearchURL: server.URL,
	}, newTestClient())

	_, err := adapter.LoadRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TX license ingestion failed")
	assert.Contains(t, err.Error(), "missing token")
}

func TestMapTXProviderSkipsMissingID(t *testing.T) {
	rec := mapTXProvider(txProvider{
		ProviderName: "No ID",
		AddressLine1: "1 Elm",
		City:         "Dallas",
		ZipCode:      "75201",
	})
	assert.Nil(t, rec)
}
