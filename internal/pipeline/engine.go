// Package pipeline resolves normalized source records into canonical schools
// and orchestrates ingestion runs. The merge engine owns entity matching,
// slug reservation, confidence-gated field merging, and the provenance
// ledger; the orchestrator owns run bookkeeping around it.
package pipeline

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
	"github.com/yourschools/ingest-cli/internal/store"
)

// Match confidences per method. SOURCE_ID is exact, NEW is the floor.
const (
	matchConfidenceSourceID    = 1.0
	matchConfidenceLicense     = 0.95
	matchConfidenceNameAddress = 0.85
	matchConfidenceNew         = 0.7
)

// Engine merges one normalized record at a time into the school directory.
// Records are processed sequentially; the engine reads the current school
// state before every write.
type Engine struct {
	store store.Store
	now   func() time.Time
}

// NewEngine creates a merge engine on the given store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

type schoolMatch struct {
	schoolID   string
	method     model.MatchMethod
	confidence float64
}

// UpsertRecord resolves the record to a school (creating one when nothing
// matches), merges the record's fields into it, and updates the provenance
// ledger and license registry.
func (e *Engine) UpsertRecord(ctx context.Context, rec model.NormalizedRecord) error {
	match, err := e.findSchool(ctx, rec)
	if err != nil {
		return err
	}

	schoolID := match.schoolID
	if schoolID == "" {
		schoolID, err = e.createSchool(ctx, rec)
	} else {
		err = e.mergeSchool(ctx, schoolID, rec)
	}
	if err != nil {
		return err
	}

	if err := e.upsertSourceRecord(ctx, schoolID, rec, match); err != nil {
		return err
	}

	if rec.LicenseNumber != "" {
		if err := e.upsertLicense(ctx, schoolID, rec); err != nil {
			return err
		}
	}

	return nil
}

// findSchool resolves the record to an existing school in priority order:
// provenance link, license registry, name/address, then NEW. Links pointing
// at deleted schools are ignored rather than resurrected.
func (e *Engine) findSchool(ctx context.Context, rec model.NormalizedRecord) (schoolMatch, error) {
	existing, err := e.store.GetSourceRecord(ctx, rec.Source, rec.SourceRecordID)
	if err != nil {
		return schoolMatch{}, eris.Wrap(err, "lookup source record")
	}
	if existing != nil && existing.SchoolID != "" {
		linked, err := e.store.GetSchool(ctx, existing.SchoolID)
		if err != nil {
			return schoolMatch{}, eris.Wrap(err, "lookup linked school")
		}
		if linked != nil {
			return schoolMatch{linked.ID, model.MatchSourceID, matchConfidenceSourceID}, nil
		}
	}

	if rec.LicenseNumber != "" {
		lic, err := e.store.GetLicense(ctx, rec.State, rec.LicenseNumber)
		if err != nil {
			return schoolMatch{}, eris.Wrap(err, "lookup license")
		}
		if lic != nil && lic.SchoolID != "" {
			linked, err := e.store.GetSchool(ctx, lic.SchoolID)
			if err != nil {
				return schoolMatch{}, eris.Wrap(err, "lookup licensed school")
			}
			if linked != nil {
				return schoolMatch{linked.ID, model.MatchLicense, matchConfidenceLicense}, nil
			}
		}
	}

	byAddress, err := e.store.FindSchoolByNameAddress(ctx, rec.Name, rec.Address, rec.City, rec.State, rec.Zipcode)
	if err != nil {
		return schoolMatch{}, eris.Wrap(err, "lookup school by name/address")
	}
	if byAddress != nil {
		return schoolMatch{byAddress.ID, model.MatchNameAddress, matchConfidenceNameAddress}, nil
	}

	return schoolMatch{"", model.MatchNew, matchConfidenceNew}, nil
}

// reserveSlug finds a free slug, probing -2, -3, ... on collisions.
func (e *Engine) reserveSlug(ctx context.Context, rec model.NormalizedRecord) (string, error) {
	base := normalize.Slugify(rec.Name + " " + rec.City + " " + rec.State)
	if base == "" {
		base = "school-" + strconv.FormatInt(e.now().UnixNano(), 10)
	}

	candidate := base
	for counter := 2; ; counter++ {
		taken, err := e.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", eris.Wrap(err, "check slug")
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(counter)
	}
}

func (e *Engine) createSchool(ctx context.Context, rec model.NormalizedRecord) (string, error) {
	slug, err := e.reserveSlug(ctx, rec)
	if err != nil {
		return "", err
	}

	school := &model.School{Slug: slug}
	e.applyRecord(school, rec)

	if err := e.store.CreateSchool(ctx, school); err != nil {
		return "", eris.Wrap(err, "create school")
	}

	zap.L().Debug("created school",
		zap.String("school_id", school.ID),
		zap.String("slug", slug),
		zap.String("source", string(rec.Source)),
	)
	return school.ID, nil
}

// mergeSchool overwrites the school's plain fields with the incoming record
// and merges each confidence-tagged group, keeping the existing group only
// when its confidence strictly outranks the incoming one.
func (e *Engine) mergeSchool(ctx context.Context, schoolID string, rec model.NormalizedRecord) error {
	school, err := e.store.GetSchool(ctx, schoolID)
	if err != nil {
		return eris.Wrap(err, "load school for merge")
	}
	if school == nil {
		return eris.Errorf("matched school %s disappeared", schoolID)
	}

	prior := *school
	e.applyRecord(school, rec)

	if prior.AgeDataConfidence.Exceeds(school.AgeDataConfidence) {
		school.MinAge = prior.MinAge
		school.MaxAge = prior.MaxAge
		school.AgeDataConfidence = prior.AgeDataConfidence
		school.AgeDataSource = prior.AgeDataSource
	}
	if prior.HoursDataConfidence.Exceeds(school.HoursDataConfidence) {
		school.OpeningHours = prior.OpeningHours
		school.ClosingHours = prior.ClosingHours
		school.HoursDataConfidence = prior.HoursDataConfidence
		school.HoursDataSource = prior.HoursDataSource
	}
	if prior.EnrollmentDataConfidence.Exceeds(school.EnrollmentDataConfidence) {
		school.PreschoolEnrollmentCount = prior.PreschoolEnrollmentCount
		school.EnrollmentDataConfidence = prior.EnrollmentDataConfidence
		school.EnrollmentSource = prior.EnrollmentSource
	}
	if prior.RatioDataConfidence.Exceeds(school.RatioDataConfidence) {
		school.SchoolWideStudentTeacherRatio = prior.SchoolWideStudentTeacherRatio
		school.RatioDataConfidence = prior.RatioDataConfidence
		school.RatioDataSource = prior.RatioDataSource
	}
	if prior.WebsiteDataConfidence.Exceeds(school.WebsiteDataConfidence) {
		school.Website = prior.Website
		school.WebsiteDataConfidence = prior.WebsiteDataConfidence
		school.WebsiteDataSource = prior.WebsiteDataSource
		school.WebsiteLastVerifiedAt = prior.WebsiteLastVerifiedAt
	}

	if err := e.store.UpdateSchool(ctx, school); err != nil {
		return eris.Wrap(err, "update school")
	}
	return nil
}

// applyRecord writes the record's fields onto the school as if it were the
// only source: identity and plain fields last-writer-wins, tagged groups at
// the record's own confidence. The merge gate runs afterwards.
func (e *Engine) applyRecord(school *model.School, rec model.NormalizedRecord) {
	now := e.now()

	school.Name = rec.Name
	school.Address = rec.Address
	school.City = rec.City
	school.State = rec.State
	school.Zipcode = rec.Zipcode
	school.Lat = rec.Lat
	school.Lng = rec.Lng
	school.Phone = rec.Phone
	school.Email = rec.Email
	school.Description = rec.Description
	school.SchoolWideEnrollment = rec.SchoolWideEnrollment
	school.OffersDaycare = rec.OffersDaycare != nil && *rec.OffersDaycare

	school.MinAge = rec.MinAge
	school.MaxAge = rec.MaxAge
	school.AgeDataConfidence = rec.AgeConfidence.OrUnknown()
	school.AgeDataSource = rec.AgeSource

	school.OpeningHours = rec.OpeningHours
	school.ClosingHours = rec.ClosingHours
	school.HoursDataConfidence = rec.HoursConfidence.OrUnknown()
	school.HoursDataSource = rec.HoursSource

	school.PreschoolEnrollmentCount = rec.PreschoolEnrollmentCount
	school.EnrollmentDataConfidence = rec.EnrollmentConfidence.OrUnknown()
	school.EnrollmentSource = rec.EnrollmentSource

	school.SchoolWideStudentTeacherRatio = rec.SchoolWideStudentTeacherRatio
	school.RatioDataConfidence = rec.RatioConfidence.OrUnknown()
	school.RatioDataSource = rec.RatioSource

	school.Website = rec.Website
	if rec.Website != "" {
		school.WebsiteDataConfidence = model.ConfidenceMedium
		school.WebsiteDataSource = string(rec.Source) + ".website"
		school.WebsiteLastVerifiedAt = &now
	} else {
		school.WebsiteDataConfidence = model.ConfidenceUnknown
		school.WebsiteDataSource = ""
		school.WebsiteLastVerifiedAt = nil
	}

	school.DataLastNormalizedAt = &now
}

func (e *Engine) upsertSourceRecord(ctx context.Context, schoolID string, rec model.NormalizedRecord, match schoolMatch) error {
	payload, err := json.Marshal(rec.Raw)
	if err != nil {
		return eris.Wrap(err, "encode payload")
	}

	now := e.now()
	if err := e.store.UpsertSourceRecord(ctx, &model.ProviderSourceRecord{
		Source:          rec.Source,
		SourceRecordID:  rec.SourceRecordID,
		SchoolID:        schoolID,
		State:           rec.State,
		LicenseNumber:   rec.LicenseNumber,
		MatchMethod:     match.method,
		MatchConfidence: match.confidence,
		Payload:         payload,
		Checksum:        normalize.StableHash(string(payload)),
		FirstSeenAt:     now,
		LastSeenAt:      now,
		IsActive:        true,
	}); err != nil {
		return eris.Wrap(err, "upsert source record")
	}
	return nil
}

func (e *Engine) upsertLicense(ctx context.Context, schoolID string, rec model.NormalizedRecord) error {
	now := e.now()
	if err := e.store.UpsertLicense(ctx, &model.License{
		SchoolID:      schoolID,
		State:         rec.State,
		LicenseNumber: rec.LicenseNumber,
		Status:        rec.LicenseStatus,
		IssuingAgency: rec.IssuingAgency,
		EffectiveDate: rec.EffectiveDate,
		ExpiresDate:   rec.ExpiresDate,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}); err != nil {
		return eris.Wrap(err, "upsert license")
	}
	return nil
}
