package model

import "time"

// MatchMethod records how a source record was linked to a school.
type MatchMethod string

const (
	MatchSourceID    MatchMethod = "SOURCE_ID"
	MatchLicense     MatchMethod = "LICENSE"
	MatchNameAddress MatchMethod = "NAME_ADDRESS"
	MatchNew         MatchMethod = "NEW"
)

// ProviderSourceRecord is the provenance ledger row for one
// (source, sourceRecordID) pair. It links the raw upstream payload to the
// school it contributed to and remembers how the match was made.
type ProviderSourceRecord struct {
	ID              string      `json:"id"`
	Source          Source      `json:"source"`
	SourceRecordID  string      `json:"source_record_id"`
	SchoolID        string      `json:"school_id"`
	State           string      `json:"state"`
	LicenseNumber   string      `json:"license_number,omitempty"`
	MatchMethod     MatchMethod `json:"match_method"`
	MatchConfidence float64     `json:"match_confidence"`
	Payload         []byte      `json:"payload"`
	Checksum        string      `json:"checksum"`
	FirstSeenAt     time.Time   `json:"first_seen_at"`
	LastSeenAt      time.Time   `json:"last_seen_at"`
	IsActive        bool        `json:"is_active"`
}

// License is one real-world license, keyed by (state, licenseNumber).
// Upserted whenever a record carries a license number, independent of how the
// entity match was made.
type License struct {
	ID            string     `json:"id"`
	SchoolID      string     `json:"school_id"`
	State         string     `json:"state"`
	LicenseNumber string     `json:"license_number"`
	Status        string     `json:"status,omitempty"`
	IssuingAgency string     `json:"issuing_agency,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiresDate   *time.Time `json:"expires_date,omitempty"`
	FirstSeenAt   time.Time  `json:"first_seen_at"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
}
