package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

// StateDirectoryAdapter ingests a generic state child-care directory CSV.
// States without a bespoke adapter publish flat facility exports with broadly
// similar columns; this adapter maps them through shared alias lists and is
// registered per state via Registry.Register.
type StateDirectoryAdapter struct {
	source    model.Source
	stateAbbr string
	url       string
	client    fetcher.Doer
}

// NewStateDirectoryAdapter creates a directory adapter for one state export.
func NewStateDirectoryAdapter(source model.Source, stateAbbr, url string, client fetcher.Doer) *StateDirectoryAdapter {
	return &StateDirectoryAdapter{source: source, stateAbbr: stateAbbr, url: url, client: client}
}

func (a *StateDirectoryAdapter) Source() model.Source {
	return a.source
}

func (a *StateDirectoryAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.url == "" {
		return nil, eris.Errorf("%s: directory url is not configured", a.source)
	}

	rows, err := loadRows(ctx, a.client, a.url)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: fetch directory", a.source)
	}

	records := make([]model.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		rec := mapDirectoryRow(row, a.source, a.stateAbbr)
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}

	zap.L().Info("state directory: loaded records",
		zap.String("source", string(a.source)),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func mapDirectoryRow(row fetcher.Record, source model.Source, stateAbbr string) *model.NormalizedRecord {
	name := normalize.Text(row.Pick("facility_name", "provider_name", "operation_name", "program_name", "name", "site_name"))
	address := normalize.Text(row.Pick("address", "address_line_one", "address_line_1", "street", "street1", "location_address"))
	city := normalize.Text(row.Pick("city", "location_city", "mailing_city"))
	state := normalize.State(row.Pick("state", "st"))
	if state == "" {
		state = stateAbbr
	}
	zipcode := normalize.Zip(row.Pick("zip", "zipcode", "postal_code", "zip_code"))

	if name == "" || address == "" || city == "" || state == "" || zipcode == "" {
		return nil
	}

	licenseNumber := normalize.Text(row.Pick("license_number", "license_no", "permit_number", "operation_number", "facility_id"))

	sourceRecordID := normalize.Text(row.Pick("record_id", "id", "facility_id", "operation_id", "provider_id"))
	if sourceRecordID == "" {
		sourceRecordID = licenseNumber
	}
	if sourceRecordID == "" {
		sourceRecordID = normalize.FallbackSourceID(name, address, city, state, zipcode)
	}

	minAge, maxAge := normalize.AgeRange(row.Pick("ages_served", "age_range", "age_groups", "ages", "age_range_text"))
	opening := normalize.Text(row.Pick("opening_time", "open_time", "hours_open"))
	closing := normalize.Text(row.Pick("closing_time", "close_time", "hours_close"))
	enrollment := normalize.Int(row.Pick("capacity", "max_capacity", "max_enrollment", "enrollment"))
	ratio := normalize.Number(row.Pick("student_teacher_ratio", "teacher_ratio", "ratio", "staff_child_ratio"))

	offersDaycare := true
	raw := row.Raw()
	raw["normalized_opening_hours"] = opening
	raw["normalized_closing_hours"] = closing

	rec := &model.NormalizedRecord{
		Source:         source,
		SourceRecordID: sourceRecordID,
		Name:           name,
		Address:        address,
		City:           city,
		State:          state,
		Zipcode:        zipcode,
		Phone:          normalize.Text(row.Pick("phone", "telephone", "contact_phone")),
		Website:        normalize.Text(row.Pick("website", "url", "web_url")),
		Description:    normalize.Text(row.Pick("description", "program_description")),

		LicenseNumber: licenseNumber,
		LicenseStatus: normalize.Text(row.Pick("status", "license_status", "permit_status")),

		MinAge:                        minAge,
		MaxAge:                        maxAge,
		PreschoolEnrollmentCount:      enrollment,
		SchoolWideStudentTeacherRatio: ratio,
		OpeningHours:                  opening,
		ClosingHours:                  closing,
		OffersDaycare:                 &offersDaycare,

		Lat: normalize.Number(row.Pick("latitude", "lat", "y")),
		Lng: normalize.Number(row.Pick("longitude", "lng", "lon", "x")),

		Raw: raw,
	}

	if minAge != nil && maxAge != nil {
		rec.AgeConfidence = model.ConfidenceMedium
		rec.AgeSource = string(source) + ".age_range"
	}
	if opening != "" && closing != "" {
		rec.HoursConfidence = model.ConfidenceMedium
		rec.HoursSource = string(source) + ".hours"
	}
	if enrollment != nil {
		rec.EnrollmentConfidence = model.ConfidenceHigh
		rec.EnrollmentSource = string(source) + ".capacity"
	}
	if ratio != nil {
		rec.RatioConfidence = model.ConfidenceMedium
		rec.RatioSource = string(source) + ".ratio"
	}

	return rec
}
