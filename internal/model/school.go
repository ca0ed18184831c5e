package model

import "time"

// School is the canonical, deduplicated entity that all matching source
// records merge into. Identity fields are overwritten by the most recent
// ingestion run; the confidence-tagged field groups (age, hours, enrollment,
// ratio, website) only move forward, never down, in confidence.
type School struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`

	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`

	MinAge                        *float64 `json:"min_age,omitempty"`
	MaxAge                        *float64 `json:"max_age,omitempty"`
	PreschoolEnrollmentCount      *int     `json:"preschool_enrollment_count,omitempty"`
	SchoolWideEnrollment          *int     `json:"school_wide_enrollment,omitempty"`
	SchoolWideStudentTeacherRatio *float64 `json:"school_wide_student_teacher_ratio,omitempty"`

	OpeningHours  string `json:"opening_hours,omitempty"`
	ClosingHours  string `json:"closing_hours,omitempty"`
	OffersDaycare bool   `json:"offers_daycare"`

	AgeDataConfidence        Confidence `json:"age_data_confidence"`
	HoursDataConfidence      Confidence `json:"hours_data_confidence"`
	EnrollmentDataConfidence Confidence `json:"enrollment_data_confidence"`
	RatioDataConfidence      Confidence `json:"ratio_data_confidence"`
	WebsiteDataConfidence    Confidence `json:"website_data_confidence"`

	AgeDataSource     string `json:"age_data_source,omitempty"`
	HoursDataSource   string `json:"hours_data_source,omitempty"`
	EnrollmentSource  string `json:"enrollment_data_source,omitempty"`
	RatioDataSource   string `json:"ratio_data_source,omitempty"`
	WebsiteDataSource string `json:"website_data_source,omitempty"`

	WebsiteLastVerifiedAt *time.Time `json:"website_last_verified_at,omitempty"`
	DataLastNormalizedAt  *time.Time `json:"data_last_normalized_at,omitempty"`

	// Owned by the review subsystem; never written by ingestion.
	AvgRating   *float64 `json:"avg_rating,omitempty"`
	ReviewCount int      `json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
