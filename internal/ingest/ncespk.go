package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

// NCESPKAdapter ingests the NCES public-school directory and keeps only the
// campuses that plausibly run a pre-K program.
type NCESPKAdapter struct {
	cfg    config.NCESPKConfig
	client fetcher.Doer
}

// NewNCESPKAdapter creates the NCES pre-K adapter.
func NewNCESPKAdapter(cfg config.NCESPKConfig, client fetcher.Doer) *NCESPKAdapter {
	return &NCESPKAdapter{cfg: cfg, client: client}
}

func (a *NCESPKAdapter) Source() model.Source {
	return model.SourceNCESPK
}

func (a *NCESPKAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.cfg.URL == "" {
		return nil, eris.New("nces: sources.nces_pk.url is not configured")
	}

	rows, err := loadRows(ctx, a.client, a.cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "nces: fetch directory")
	}

	records := make([]model.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		rec := mapNCESRow(row)
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}

	if a.cfg.MaxRows > 0 && len(records) > a.cfg.MaxRows {
		records = records[:a.cfg.MaxRows]
	}

	zap.L().Info("nces: loaded records",
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func mapNCESRow(row fetcher.Record) *model.NormalizedRecord {
	lowGrade := row.Pick("low_grade", "lowest_grade_offered")
	if !hasPreK(lowGrade) && !hasPreKIndicator(row) {
		return nil
	}
	if !isLikelyPreschoolCampus(row) {
		return nil
	}

	name := normalize.Text(row.Pick("school_name", "name", "sch_name", "school"))
	address := normalize.Text(row.Pick("street", "street_address", "mstree", "address", "location_address", "lstreet1", "lstreet2"))
	city := normalize.Text(row.Pick("city", "mcity", "lcity"))
	state := normalize.State(row.Pick("state", "mstate", "lstate", "stabr"))
	zipcode := normalize.Zip(row.Pick("zip", "mzip", "zipcode", "lzip"))

	if name == "" || address == "" || city == "" || state == "" || zipcode == "" {
		return nil
	}

	sourceRecordID := normalize.Text(row.Pick("ncessch", "school_id", "id"))
	if sourceRecordID == "" {
		sourceRecordID = normalize.FallbackSourceID(name, address, zipcode)
	}

	minAge, maxAge := 3.0, 5.0
	offersDaycare := false

	schoolWideEnrollment := normalize.Int(row.Pick("total"))
	if schoolWideEnrollment == nil {
		schoolWideEnrollment = normalize.Int(row.Pick("member"))
	}

	return &model.NormalizedRecord{
		Source:         model.SourceNCESPK,
		SourceRecordID: sourceRecordID,
		Name:           name,
		Address:        address,
		City:           city,
		State:          state,
		Zipcode:        zipcode,
		Phone:          normalize.Text(row.Pick("phone", "telephone")),
		Website:        normalize.Text(row.Pick("website", "web_url", "school_url")),
		Description:    "Public school pre-K program",

		MinAge:                        &minAge,
		MaxAge:                        &maxAge,
		PreschoolEnrollmentCount:      normalize.Int(row.Pick("pk")),
		SchoolWideEnrollment:          schoolWideEnrollment,
		SchoolWideStudentTeacherRatio: normalize.Number(row.Pick("stuteratio")),
		OffersDaycare:                 &offersDaycare,

		AgeConfidence:        model.ConfidenceLow,
		EnrollmentConfidence: model.ConfidenceMedium,
		RatioConfidence:      model.ConfidenceLow,
		AgeSource:            "NCES_PK.grade_span_inference",
		EnrollmentSource:     "NCES_PK.pk",
		RatioSource:          "NCES_PK.stuteratio",

		Lat: normalize.Number(row.Pick("latitude", "lat", "latcod", "y")),
		Lng: normalize.Number(row.Pick("longitude", "lon", "lng", "loncod", "x")),

		Raw: row.Raw(),
	}
}

// hasPreK reports whether the low-grade code marks a pre-K start.
func hasPreK(lowGrade string) bool {
	switch strings.ToUpper(normalize.Text(lowGrade)) {
	case "PK", "UG":
		return true
	}
	return false
}

// hasPreKIndicator reports whether the pk column flags a pre-K program, either
// as a marker value or a positive enrollment count.
func hasPreKIndicator(row fetcher.Record) bool {
	pk := strings.ToUpper(normalize.Text(row.Pick("pk")))
	if pk == "" {
		return false
	}
	switch pk {
	case "1", "YES", "Y", "TRUE", "PK":
		return true
	}
	n, err := strconv.ParseFloat(pk, 64)
	return err == nil && n > 0
}

// parseGradeCode maps NCES grade codes onto a comparable scale: ungraded is
// -2, pre-K and transitional kindergarten -1, kindergarten 0, grades their
// number. Unknown codes return (0, false).
func parseGradeCode(raw string) (int, bool) {
	code := strings.ToUpper(normalize.Text(raw))
	if code == "" {
		return 0, false
	}
	switch code {
	case "UG":
		return -2, true
	case "PK", "TK":
		return -1, true
	case "KG", "K":
		return 0, true
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isLikelyPreschoolCampus rejects campuses whose grade span or school level
// shows they are primarily a graded school rather than an early-childhood
// site.
func isLikelyPreschoolCampus(row fetcher.Record) bool {
	if low, ok := parseGradeCode(row.Pick("low_grade", "lowest_grade_offered", "gslo")); ok && low > 0 {
		return false
	}
	if high, ok := parseGradeCode(row.Pick("high_grade", "highest_grade_offered", "gshi")); ok && high > 0 {
		return false
	}

	level := strings.ToLower(normalize.Text(row.Pick("school_level")))
	if level != "" {
		for _, term := range []string{"elementary", "middle", "high", "secondary"} {
			if strings.Contains(level, term) {
				return false
			}
		}
	}
	return true
}
