package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
)

type txTokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

type txProvider struct {
	ProviderID         *int64 `json:"providerId"`
	ProviderNum        *int64 `json:"providerNum"`
	AgencyNum          *int64 `json:"agencyNum"`
	BranchNumber       *int64 `json:"branchNumber"`
	ProviderName       string `json:"providerName"`
	AddressLine1       string `json:"addressLine1"`
	City               string `json:"city"`
	State              string `json:"state"`
	ZipCode            string `json:"zipCode"`
	PhoneNumber        string `json:"phoneNumber"`
	ProviderType       string `json:"providerType"`
	IssuanceType       string `json:"issuanceType"`
	ProviderWrkngHours string `json:"providerWrkngHours"`
	TtlCpcty           any    `json:"ttlCpcty"`
	AgesServed         string `json:"agesServed"`
	Latitude           any    `json:"latitude"`
	Longitude          any    `json:"longitude"`
	ProviderEmail      string `json:"providerEmail"`
	ProgramType        string `json:"programType"`
}

type txProviderResponse struct {
	Response   []txProvider `json:"response"`
	TotalCount *int         `json:"totalCount"`
}

// TXLicenseAdapter pages through the Texas child-care provider search API:
// one unauthenticated token fetch, then fixed-criteria POST pages until the
// advertised total count is seen.
type TXLicenseAdapter struct {
	cfg    config.TXConfig
	client fetcher.Doer
}

// NewTXLicenseAdapter creates the Texas licensing adapter.
func NewTXLicenseAdapter(cfg config.TXConfig, client fetcher.Doer) *TXLicenseAdapter {
	return &TXLicenseAdapter{cfg: cfg, client: client}
}

func (a *TXLicenseAdapter) Source() model.Source {
	return model.SourceTXLicense
}

func (a *TXLicenseAdapter) LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	records, err := a.loadRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "TX license ingestion failed")
	}
	return records, nil
}

func (a *TXLicenseAdapter) loadRecords(ctx context.Context) ([]model.NormalizedRecord, error) {
	if a.cfg.TokenURL == "" || a.cfg.SearchURL == "" {
		return nil, eris.New("sources.tx_license urls are not configured")
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	pageSize := a.cfg.PageSize
	if pageSize < 1 {
		pageSize = 1000
	}

	byID := make(map[string]model.NormalizedRecord)
	var order []string

	page := 1
	seenCount := 0
	totalCount := -1

	for totalCount < 0 || seenCount < totalCount {
		if a.cfg.MaxPages > 0 && page > a.cfg.MaxPages {
			break
		}

		resp, err := a.fetchPage(ctx, token, page, pageSize)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch page %d", page)
		}
		if resp.TotalCount != nil {
			totalCount = *resp.TotalCount
		} else {
			totalCount = len(resp.Response)
		}
		if len(resp.Response) == 0 {
			break
		}

		for _, provider := range resp.Response {
			rec := mapTXProvider(provider)
			if rec == nil {
				continue
			}
			if _, ok := byID[rec.SourceRecordID]; !ok {
				order = append(order, rec.SourceRecordID)
			}
			byID[rec.SourceRecordID] = *rec
		}

		seenCount += len(resp.Response)
		page++
	}

	records := make([]model.NormalizedRecord, 0, len(byID))
	for _, id := range order {
		records = append(records, byID[id])
	}

	zap.L().Info("tx: paging complete",
		zap.Int("pages", page-1),
		zap.Int("providers", seenCount),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (a *TXLicenseAdapter) fetchToken(ctx context.Context) (string, error) {
	resp, err := fetcher.JSON[txTokenResponse](ctx, a.client, fetcher.Request{URL: a.cfg.TokenURL})
	if err != nil {
		return "", eris.Wrap(err, "fetch token")
	}
	token := normalize.Text(resp.Data.Token)
	if token == "" {
		return "", eris.New("missing token")
	}
	return token, nil
}

func (a *TXLicenseAdapter) fetchPage(ctx context.Context, token string, page, pageSize int) (*txProviderResponse, error) {
	// The search endpoint wants the full criteria object even when empty.
	body := map[string]any{
		"operationNumber":            "",
		"operationName":              "",
		"providerName":               "",
		"address":                    "",
		"city":                       "",
		"sortColumn":                 "",
		"sortOrder":                  "ASC",
		"pageSize":                   pageSize,
		"pageNumber":                 page,
		"includeApplicants":          false,
		"providerAdrressOpt":         "",
		"nearMeAddress":              "",
		"commuteFromAddress":         "",
		"commuteToAddress":           "",
		"latLong":                    []string{},
		"radius":                     "",
		"providerTypes":              []string{},
		"primaryCaregiverFirstName":  "",
		"primaryCaregiverMiddleName": "",
		"primaryCaregiverLastName":   "",
		"issuanceTypes":              []string{},
		"agesServed":                 []string{},
		"mealOptions":                []string{},
		"schedulesServed":            []string{},
		"programProvided":            []string{},
		"isAccredited":               "",
		"providerWrkngDays":          "",
		"providerWrkngHrs":           "",
	}
	return fetcher.PostJSON[txProviderResponse](ctx, a.client, a.cfg.SearchURL, body,
		map[string]string{"Authorization": token})
}

func mapTXProvider(provider txProvider) *model.NormalizedRecord {
	name := normalize.Text(provider.ProviderName)
	address := normalize.Text(provider.AddressLine1)
	city := normalize.Text(provider.City)
	zipcode := normalize.Zip(provider.ZipCode)

	if name == "" || address == "" || city == "" || zipcode == "" || provider.ProviderID == nil {
		return nil
	}

	providerID := strconv.FormatInt(*provider.ProviderID, 10)
	licenseNumber := providerID
	if provider.ProviderNum != nil {
		licenseNumber = strconv.FormatInt(*provider.ProviderNum, 10)
	}
	licenseStatus := normalize.Text(provider.IssuanceType)
	if licenseStatus == "" {
		licenseStatus = normalize.Text(provider.ProviderType)
	}

	minAge, maxAge := normalize.AgeRange(provider.AgesServed)
	opening, closing := normalize.HoursFromText(provider.ProviderWrkngHours)
	capacity := anyToInt(provider.TtlCpcty)
	offersDaycare := provider.ProgramType == "DC"

	rec := &model.NormalizedRecord{
		Source:         model.SourceTXLicense,
		SourceRecordID: providerID,
		Name:           name,
		Address:        address,
		City:           city,
		State:          "TX",
		Zipcode:        zipcode,
		Phone:          normalize.Text(provider.PhoneNumber),
		Email:          normalize.Text(provider.ProviderEmail),

		LicenseNumber: licenseNumber,
		LicenseStatus: licenseStatus,

		MinAge:                   minAge,
		MaxAge:                   maxAge,
		PreschoolEnrollmentCount: capacity,
		OpeningHours:             opening,
		ClosingHours:             closing,
		OffersDaycare:            &offersDaycare,

		Lat: anyToNumber(provider.Latitude),
		Lng: anyToNumber(provider.Longitude),

		Raw: txRaw(provider),
	}

	if minAge != nil || maxAge != nil {
		rec.AgeConfidence = model.ConfidenceMedium
		rec.AgeSource = "TX_LICENSE.ages_served"
	}
	if opening != "" && closing != "" {
		rec.HoursConfidence = model.ConfidenceMedium
		rec.HoursSource = "TX_LICENSE.hours"
	}
	if capacity != nil {
		rec.EnrollmentConfidence = model.ConfidenceHigh
		rec.EnrollmentSource = "TX_LICENSE.capacity"
	}

	return rec
}

func txRaw(provider txProvider) map[string]any {
	out := map[string]any{
		"providerName":       provider.ProviderName,
		"addressLine1":       provider.AddressLine1,
		"city":               provider.City,
		"state":              provider.State,
		"zipCode":            provider.ZipCode,
		"phoneNumber":        provider.PhoneNumber,
		"providerType":       provider.ProviderType,
		"issuanceType":       provider.IssuanceType,
		"providerWrkngHours": provider.ProviderWrkngHours,
		"ttlCpcty":           provider.TtlCpcty,
		"agesServed":         provider.AgesServed,
		"latitude":           provider.Latitude,
		"longitude":          provider.Longitude,
		"providerEmail":      provider.ProviderEmail,
		"programType":        provider.ProgramType,
	}
	if provider.ProviderID != nil {
		out["providerId"] = *provider.ProviderID
	}
	if provider.ProviderNum != nil {
		out["providerNum"] = *provider.ProviderNum
	}
	if provider.AgencyNum != nil {
		out["agencyNum"] = *provider.AgencyNum
	}
	if provider.BranchNumber != nil {
		out["branchNumber"] = *provider.BranchNumber
	}
	return out
}
