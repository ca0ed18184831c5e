package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

var (
	vaListingRe = regexp.MustCompile(
		`(?i)<tr>\s*<td[^>]*>\s*<a[^>]*rm=Details;ID=(\d+)[^>]*>([\s\S]*?)</a>[\s\S]*?</td>\s*<td[^>]*>([\s\S]*?)</td>\s*<td[^>]*>([\s\S]*?)</td>\s*</tr>`)
	vaBreakRe        = regexp.MustCompile(`(?i)<br\s*/?>`)
	vaCityStateZipRe = regexp.MustCompile(`(?i)(.+?),\s*([A-Za-z]{2})\s+(\d{5})`)
)

// vaListing is the row parsed from the licensing search results table.
type vaListing struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Phone   string `json:"phone,omitempty"`
}

// VALicenseAdapter scrapes the Virginia child-care licensing search: one POST
// for the full listing table, then a bounded-concurrency pass over each
// facility detail page.
type VALicenseAdapter struct {
	cfg    config.VAConfig
	client fetcher.Doer
}

// NewVALicenseAdapter creates the Virginia licensing adapter.
func NewVALicenseAdapter(cfg config.VAConfig, client fetcher.Doer) *VALicenseAdapter {
	return &VALicenseAdapter{cfg: cfg, client: client}
}

func (a *VALicenseAdapter) Source() model.Source {
	return model.SourceVALicense
}

func (a *VALicenseAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	records, err := a.loadRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "VA license ingestion failed")
	}
	return records, nil
}

func (a *VALicenseAdapter) loadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.cfg.SearchURL == "" {
		return nil, eris.New("sources.va_license.search_url is not configured")
	}

	form := url.Values{"rm": {"Search"}}
	searchHTML, err := fetcher.Text(ctx, a.client, fetcher.Request{
		Method: http.MethodPost,
		URL:    a.cfg.SearchURL,
		Header: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return nil, err
	}

	listings := parseVAListings(searchHTML)
	if len(listings) == 0 {
		return nil, nil
	}
	if a.cfg.MaxDetails > 0 && len(listings) > a.cfg.MaxDetails {
		listings = listings[:a.cfg.MaxDetails]
	}

	zap.L().Info("va: fetching facility details",
		zap.Int("listings", len(listings)),
		zap.Int("concurrency", a.cfg.DetailConcurrency),
	)

	records := make([]model.NormalizedRecord, len(listings))
	g, gctx := errgroup.WithContext(ctx)
	concurrency := a.cfg.DetailConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i, listing := range listings {
		g.Go(func() error {
			rec, err := a.mapFromDetail(gctx, listing)
			if err != nil {
				return err
			}
			records[i] = *rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// parseVAListings extracts facility rows from the search results table. Rows
// missing an ID, name, or a parseable "City, ST 12345" line are skipped.
func parseVAListings(html string) []vaListing {
	var listings []vaListing
	for _, m := range vaListingRe.FindAllStringSubmatch(html, -1) {
		id := m[1]
		name := normalize.Text(StripTags(m[2]))
		addressCell := m[3]
		phone := normalize.Text(StripTags(m[4]))

		if id == "" || name == "" || addressCell == "" {
			continue
		}

		var parts []string
		for _, part := range vaBreakRe.Split(addressCell, -1) {
			if v := StripTags(part); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) == 0 {
			continue
		}

		csz := vaCityStateZipRe.FindStringSubmatch(parts[len(parts)-1])
		if csz == nil {
			continue
		}

		listing := vaListing{
			ID:      id,
			Name:    name,
			Address: normalize.Text(parts[0]),
			City:    normalize.Text(csz[1]),
			State:   normalize.State(csz[2]),
			Zipcode: normalize.Zip(csz[3]),
			Phone:   phone,
		}
		if listing.Address == "" || listing.City == "" || listing.State == "" || listing.Zipcode == "" {
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

func (a *VALicenseAdapter) mapFromDetail(ctx context.Context, listing vaListing) (*model.NormalizedRecord, error) {
	detailURL := fmt.Sprintf("%s?rm=Details;ID=%s", a.cfg.DetailURL, listing.ID)
	detailHTML, err := fetcher.Text(ctx, a.client, fetcher.Request{URL: detailURL})
	if err != nil {
		return nil, eris.Wrapf(err, "fetch detail for facility %s", listing.ID)
	}

	facilityType := ExtractLabeledValue(detailHTML, "Facility Type")
	licenseType := ExtractLabeledValue(detailHTML, "License Type")
	expirationDate := ExtractLabeledValue(detailHTML, "Expiration Date")
	businessHours := ExtractLabeledValue(detailHTML, "Business Hours")
	capacity := ExtractLabeledValue(detailHTML, "Capacity")
	ages := ExtractLabeledValue(detailHTML, "Ages")
	licenseFacilityID := ExtractLabeledValue(detailHTML, "License/Facility ID#")

	minAge, maxAge := normalize.AgeRange(ages)
	opening, closing := normalize.HoursFromText(businessHours)
	enrollment := normalize.Int(capacity)

	licenseNumber := licenseFacilityID
	if licenseNumber == "" {
		licenseNumber = listing.ID
	}
	licenseStatus := licenseType
	if licenseStatus == "" {
		licenseStatus = facilityType
	}

	offersDaycare := true
	rec := &model.NormalizedRecord{
		Source:         model.SourceVALicense,
		SourceRecordID: listing.ID,
		Name:           listing.Name,
		Address:        listing.Address,
		City:           listing.City,
		State:          "VA",
		Zipcode:        listing.Zipcode,
		Phone:          listing.Phone,

		LicenseNumber: licenseNumber,
		LicenseStatus: licenseStatus,
		ExpiresDate:   normalize.Date(expirationDate),

		MinAge:                   minAge,
		MaxAge:                   maxAge,
		PreschoolEnrollmentCount: enrollment,
		OpeningHours:             opening,
		ClosingHours:             closing,
		OffersDaycare:            &offersDaycare,

		Raw: map[string]any{
			"listing":        listing,
			"facilityType":   facilityType,
			"licenseType":    licenseType,
			"businessHours":  businessHours,
			"capacity":       capacity,
			"ages":           ages,
			"expirationDate": expirationDate,
		},
	}

	if minAge != nil && maxAge != nil {
		rec.AgeConfidence = model.ConfidenceMedium
		rec.AgeSource = "VA_LICENSE.ages"
	}
	if opening != "" && closing != "" {
		rec.HoursConfidence = model.ConfidenceMedium
		rec.HoursSource = "VA_LICENSE.business_hours"
	}
	if enrollment != nil {
		rec.EnrollmentConfidence = model.ConfidenceHigh
		rec.EnrollmentSource = "VA_LICENSE.capacity"
	}

	return rec, nil
}
