package model

import "time"

// Source identifies an upstream provider dataset.
type Source string

const (
	SourceHeadStart Source = "HEAD_START"
	SourceNCESPK    Source = "NCES_PK"
	SourceVALicense Source = "VA_LICENSE"
	SourceFLLicense Source = "FL_LICENSE"
	SourceTXLicense Source = "TX_LICENSE"
)

// AllSources lists every registered ingestion source in run order.
func AllSources() []Source {
	return []Source{SourceHeadStart, SourceNCESPK, SourceVALicense, SourceFLLicense, SourceTXLicense}
}

// ParseSource validates a source identifier string.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceHeadStart, SourceNCESPK, SourceVALicense, SourceFLLicense, SourceTXLicense:
		return Source(s), true
	}
	return "", false
}

// NormalizedRecord is the adapter output for a single source row after field
// mapping, normalization, and confidence assignment. Identity within a source
// is (Source, SourceRecordID). Raw holds the opaque per-source payload that
// lands in the provenance ledger; its shape is documented per source and is
// deliberately not typed across sources.
type NormalizedRecord struct {
	Source         Source `json:"source"`
	SourceRecordID string `json:"source_record_id"`

	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`

	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`

	OpeningHours string `json:"opening_hours,omitempty"`
	ClosingHours string `json:"closing_hours,omitempty"`

	LicenseNumber string     `json:"license_number,omitempty"`
	LicenseStatus string     `json:"license_status,omitempty"`
	IssuingAgency string     `json:"issuing_agency,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiresDate   *time.Time `json:"expires_date,omitempty"`

	MinAge                        *float64 `json:"min_age,omitempty"`
	MaxAge                        *float64 `json:"max_age,omitempty"`
	PreschoolEnrollmentCount      *int     `json:"preschool_enrollment_count,omitempty"`
	SchoolWideEnrollment          *int     `json:"school_wide_enrollment,omitempty"`
	SchoolWideStudentTeacherRatio *float64 `json:"school_wide_student_teacher_ratio,omitempty"`
	OffersDaycare                 *bool    `json:"offers_daycare,omitempty"`

	AgeConfidence        Confidence `json:"age_confidence,omitempty"`
	HoursConfidence      Confidence `json:"hours_confidence,omitempty"`
	EnrollmentConfidence Confidence `json:"enrollment_confidence,omitempty"`
	RatioConfidence      Confidence `json:"ratio_confidence,omitempty"`

	AgeSource        string `json:"age_source,omitempty"`
	HoursSource      string `json:"hours_source,omitempty"`
	EnrollmentSource string `json:"enrollment_source,omitempty"`
	RatioSource      string `json:"ratio_source,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	Raw map[string]any `json:"raw"`
}

// Key returns the record key used in ingestion error rows.
func (r NormalizedRecord) Key() string {
	return string(r.Source) + ":" + r.SourceRecordID
}
