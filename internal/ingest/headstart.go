package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

// HeadStartAdapter ingests the federal Head Start center directory, published
// as a CSV (or workbook) dump.
type HeadStartAdapter struct {
	cfg    config.HeadStartConfig
	client fetcher.Doer
}

// NewHeadStartAdapter creates the Head Start directory adapter.
func NewHeadStartAdapter(cfg config.HeadStartConfig, client fetcher.Doer) *HeadStartAdapter {
	return &HeadStartAdapter{cfg: cfg, client: client}
}

func (a *HeadStartAdapter) Source() model.Source {
	return model.SourceHeadStart
}

func (a *HeadStartAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.cfg.URL == "" {
		return nil, eris.New("head start: sources.head_start.url is not configured")
	}

	rows, err := loadRows(ctx, a.client, a.cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "head start: fetch directory")
	}

	records := make([]model.NormalizedRecord, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		rec := mapHeadStartRow(row)
		if rec == nil {
			dropped++
			continue
		}
		records = append(records, *rec)
	}

	zap.L().Info("head start: loaded records",
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
		zap.Int("dropped", dropped),
	)
	return records, nil
}

func mapHeadStartRow(row fetcher.Record) *model.NormalizedRecord {
	name := normalize.Text(row.Pick("service_location_name", "center_name", "program_name", "site_name", "name"))
	address := normalize.Text(row.Pick("address_line_one", "address_line_two", "address", "address_1", "street", "location_address"))
	city := normalize.Text(row.Pick("city", "location_city"))
	state := normalize.State(row.Pick("state", "st", "location_state"))
	zipcode := normalize.Zip(row.Pick("zip", "zipcode", "postal_code"))

	if name == "" || address == "" || city == "" || state == "" || zipcode == "" {
		return nil
	}

	sourceRecordID := normalize.Text(row.Pick("service_location_id", "center_id", "location_id", "program_id", "id"))
	if sourceRecordID == "" {
		sourceRecordID = normalize.FallbackSourceID(row.Pick("grant_number"), name, address, zipcode)
	}

	offersDaycare := true
	if v := normalize.Truthy(row.Pick("offers_daycare", "daycare", "full_day")); v != nil {
		offersDaycare = *v
	}

	rec := &model.NormalizedRecord{
		Source:         model.SourceHeadStart,
		SourceRecordID: sourceRecordID,
		Name:           name,
		Address:        address,
		City:           city,
		State:          state,
		Zipcode:        zipcode,
		Phone:          normalize.Text(row.Pick("service_location_phone_number", "registration_phone_number", "phone", "telephone")),
		Website:        normalize.Text(row.Pick("website", "web_url", "url")),
		LicenseNumber:  normalize.Text(row.Pick("grant_number", "license_number", "license_no")),
		LicenseStatus:  normalize.Text(row.Pick("status", "license_status")),

		MinAge:                   normalize.Number(row.Pick("min_age", "minimum_age")),
		MaxAge:                   normalize.Number(row.Pick("max_age", "maximum_age")),
		PreschoolEnrollmentCount: normalize.Int(row.Pick("funded_slots")),
		OffersDaycare:            &offersDaycare,

		Lat: normalize.Number(row.Pick("latitude", "lat")),
		Lng: normalize.Number(row.Pick("longitude", "lng", "lon")),

		Raw: row.Raw(),
	}

	if rec.PreschoolEnrollmentCount != nil {
		rec.EnrollmentConfidence = model.ConfidenceHigh
		rec.EnrollmentSource = "HEAD_START.funded_slots"
	}

	return rec
}
