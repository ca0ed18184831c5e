package ingest

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

//go:embed counties.yaml
var flCountiesYAML []byte

// Search results rank by distance from a reference point, so the crawl pins
// one near the state's centroid for stable ordering.
const (
	flReferenceLat = "27.994402"
	flReferenceLng = "-81.760254"
)

// flCountySeeds returns the embedded default seed terms.
func flCountySeeds() ([]string, error) {
	var doc struct {
		Counties []string `yaml:"counties"`
	}
	if err := yaml.Unmarshal(flCountiesYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "decode county seeds")
	}
	return doc.Counties, nil
}

type flTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type flSearchResult struct {
	ProviderName            string `json:"providerName"`
	DBA                     string `json:"dba"`
	ProviderType            string `json:"providerType"`
	LicenseStatus           string `json:"licenseStatus"`
	ProviderPhone           string `json:"providerPhone"`
	LicenseNumber           string `json:"licenseNumber"`
	AlternateProviderNumber string `json:"alternateProviderNumber"`
	EmailAddress            string `json:"emailAddress"`
	Capacity                any    `json:"capacity"`
	LicenseExpirationDate   string `json:"licenseExpirationDate"`
	City                    string `json:"city"`
	County                  string `json:"county"`
	State                   string `json:"state"`
	ZipCode                 string `json:"zipCode"`
	FullAddress             string `json:"fullAddress"`
	MondayHours             string `json:"mondayHours"`
	TuesdayHours            string `json:"tuesdayHours"`
	WednesdayHours          string `json:"wednesdayHours"`
	ThursdayHours           string `json:"thursdayHours"`
	FridayHours             string `json:"fridayHours"`
	SaturdayHours           string `json:"saturdayHours"`
	SundayHours             string `json:"sundayHours"`
	Latitude                any    `json:"latitude"`
	Longitude               any    `json:"longitude"`
	Service                 []struct {
		Name string `json:"name"`
	} `json:"service"`
	Program []struct {
		Name string `json:"name"`
	} `json:"program"`
}

type flSearchBlock struct {
	PublicSearches []json.RawMessage `json:"publicSearches"`
	Filters        struct {
		City []struct {
			Name string `json:"name"`
		} `json:"city"`
	} `json:"filters"`
}

// FLLicenseAdapter crawls the Florida child-care provider search API. The API
// returns at most one page per free-text query, so the adapter runs a
// breadth-first crawl: county seed terms first, then every city facet a
// response advertises, deduplicating providers by license number.
type FLLicenseAdapter struct {
	cfg    config.FLConfig
	client fetcher.Doer
}

// NewFLLicenseAdapter creates the Florida licensing adapter.
func NewFLLicenseAdapter(cfg config.FLConfig, client fetcher.Doer) *FLLicenseAdapter {
	return &FLLicenseAdapter{cfg: cfg, client: client}
}

func (a *FLLicenseAdapter) Source() model.Source {
	return model.SourceFLLicense
}

func (a *FLLicenseAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	records, err := a.loadRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "FL license ingestion failed")
	}
	return records, nil
}

func (a *FLLicenseAdapter) loadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.cfg.TokenURL == "" || a.cfg.SearchURL == "" {
		return nil, eris.New("sources.fl_license urls are not configured")
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	seeds := a.cfg.SeedTerms
	if len(seeds) == 0 {
		seeds, err = flCountySeeds()
		if err != nil {
			return nil, err
		}
	}

	maxQueries := a.cfg.MaxQueries
	if maxQueries < 1 {
		maxQueries = len(seeds)
	}

	queue := append([]string(nil), seeds...)
	seen := make(map[string]bool)
	byID := make(map[string]model.NormalizedRecord)
	var order []string

	queries := 0
	for len(queue) > 0 && queries < maxQueries {
		term := queue[0]
		queue = queue[1:]

		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		queries++

		results, cities, err := a.search(ctx, token, term)
		if err != nil {
			return nil, err
		}

		for _, city := range cities {
			if !seen[strings.ToLower(city)] {
				queue = append(queue, city)
			}
		}

		for _, raw := range results {
			rec := mapFLResult(raw)
			if rec == nil {
				continue
			}
			if _, ok := byID[rec.SourceRecordID]; !ok {
				order = append(order, rec.SourceRecordID)
			}
			byID[rec.SourceRecordID] = *rec
		}
	}

	records := make([]model.NormalizedRecord, 0, len(byID))
	for _, id := range order {
		records = append(records, byID[id])
	}

	zap.L().Info("fl: crawl complete",
		zap.Int("queries", queries),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (a *FLLicenseAdapter) fetchToken(ctx context.Context) (string, error) {
	basic := base64.StdEncoding.EncodeToString(
		[]byte(a.cfg.TokenUsername + ":" + a.cfg.TokenPassword))

	payload := map[string]string{
		"grant_type":   "password client_credentials",
		"scope":        "openid userprofile caresapi offline_access",
		"clientId":     a.cfg.APIKey,
		"clientSecret": a.cfg.APISecret,
	}
	resp, err := fetcher.PostJSON[flTokenResponse](ctx, a.client, a.cfg.TokenURL, payload,
		map[string]string{"Authorization": "Basic " + basic})
	if err != nil {
		return "", eris.Wrap(err, "fetch token")
	}
	if resp.AccessToken == "" {
		return "", eris.New("missing access token")
	}
	return resp.AccessToken, nil
}

// search runs one provider query and returns the raw provider payloads plus
// the city facet names from the first response block.
func (a *FLLicenseAdapter) search(ctx context.Context, token, term string) ([]json.RawMessage, []string, error) {
	params := url.Values{
		"searchText": {term},
		"latitude":   {flReferenceLat},
		"longitude":  {flReferenceLng},
	}
	resp, err := fetcher.JSON[[]flSearchBlock](ctx, a.client, fetcher.Request{
		URL: a.cfg.SearchURL + "?" + params.Encode(),
		Header: map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
		},
	})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "search %q", term)
	}
	if len(*resp) == 0 {
		return nil, nil, nil
	}

	block := (*resp)[0]
	var cities []string
	for _, entry := range block.Filters.City {
		if city := normalize.Text(entry.Name); city != "" {
			cities = append(cities, city)
		}
	}
	return block.PublicSearches, cities, nil
}

func mapFLResult(raw json.RawMessage) *model.NormalizedRecord {
	var result flSearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}

	name := normalize.Text(result.ProviderName)
	if name == "" {
		name = normalize.Text(result.DBA)
	}
	address := normalize.Text(result.FullAddress)
	city := normalize.Text(result.City)
	zipcode := normalize.Zip(result.ZipCode)

	if name == "" || address == "" || city == "" || zipcode == "" {
		return nil
	}

	sourceRecordID := normalize.Text(result.LicenseNumber)
	if sourceRecordID == "" {
		sourceRecordID = normalize.Text(result.AlternateProviderNumber)
	}
	if sourceRecordID == "" {
		sourceRecordID = normalize.FallbackSourceID(name, address, city, "FL", zipcode)
	}

	licenseStatus := normalize.Text(result.LicenseStatus)
	if licenseStatus == "" {
		licenseStatus = normalize.Text(result.ProviderType)
	}

	capacity := anyToInt(result.Capacity)
	opening, closing := normalize.OpeningClosingHours(
		result.MondayHours, result.TuesdayHours, result.WednesdayHours,
		result.ThursdayHours, result.FridayHours, result.SaturdayHours,
		result.SundayHours)

	offersDaycare := true
	rec := &model.NormalizedRecord{
		Source:         model.SourceFLLicense,
		SourceRecordID: sourceRecordID,
		Name:           name,
		Address:        address,
		City:           city,
		State:          "FL",
		Zipcode:        zipcode,
		Phone:          normalize.Text(result.ProviderPhone),
		Email:          normalize.Text(result.EmailAddress),

		LicenseNumber: normalize.Text(result.LicenseNumber),
		LicenseStatus: licenseStatus,
		ExpiresDate:   normalize.Date(result.LicenseExpirationDate),

		PreschoolEnrollmentCount: capacity,
		OpeningHours:             opening,
		ClosingHours:             closing,
		OffersDaycare:            &offersDaycare,

		Lat: anyToNumber(result.Latitude),
		Lng: anyToNumber(result.Longitude),

		Raw: flRaw(raw, result),
	}

	for _, svc := range result.Service {
		if strings.Contains(strings.ToLower(svc.Name), "infant") {
			minAge := 0.0
			rec.MinAge = &minAge
			rec.AgeConfidence = model.ConfidenceLow
			rec.AgeSource = "FL_LICENSE.service"
			break
		}
	}
	if opening != "" && closing != "" {
		rec.HoursConfidence = model.ConfidenceMedium
		rec.HoursSource = "FL_LICENSE.hours"
	}
	if capacity != nil {
		rec.EnrollmentConfidence = model.ConfidenceHigh
		rec.EnrollmentSource = "FL_LICENSE.capacity"
	}

	return rec
}

// flRaw keeps the provider payload as-is, plus flattened service and program
// name lists for readability in the provenance ledger.
func flRaw(raw json.RawMessage, result flSearchResult) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)

	var serviceNames, programNames []string
	for _, entry := range result.Service {
		if entry.Name != "" {
			serviceNames = append(serviceNames, entry.Name)
		}
	}
	for _, entry := range result.Program {
		if entry.Name != "" {
			programNames = append(programNames, entry.Name)
		}
	}
	out["serviceNames"] = serviceNames
	out["programNames"] = programNames
	return out
}

// anyToNumber parses numeric API fields that arrive as either JSON numbers or
// strings.
func anyToNumber(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		return normalize.Number(t)
	case json.Number:
		if n, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return &n
		}
	}
	return nil
}

func anyToInt(v any) *int {
	n := anyToNumber(v)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}
