// Package enrich finds official websites for schools that have none, or only
// a weakly attributed one, by scoring web search candidates against what the
// directory already knows about each school.
package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/cache"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/normalize"
	"github.com/yourschools/ingest-cli/internal/store"
)

// Per-school enrichment outcome.
const (
	StatusUpdated     = "UPDATED"
	StatusSkipped     = "SKIPPED"
	StatusNoCandidate = "NO_CANDIDATE"
	StatusError       = "ERROR"
)

// WebsiteDataSource is the attribution written on enrichment updates.
const WebsiteDataSource = "SEARCH_ENRICHMENT"

// Directory and social hosts that outrank official school sites in search
// results. Matches cover subdomains.
var blockedHosts = []string{
	"google.com",
	"facebook.com",
	"instagram.com",
	"x.com",
	"twitter.com",
	"linkedin.com",
	"wikipedia.org",
	"yelp.com",
	"yellowpages.com",
	"care.com",
	"greatschools.org",
	"mapquest.com",
	"opencorporates.com",
}

// Candidate is one scored website candidate.
type Candidate struct {
	URL        string           `json:"url"`
	Score      int              `json:"score"`
	Confidence model.Confidence `json:"confidence"`
	Reasons    []string         `json:"reasons"`
}

// SchoolOutcome reports what happened to one school in a batch.
type SchoolOutcome struct {
	SchoolID   string           `json:"school_id"`
	SchoolName string           `json:"school_name"`
	Status     string           `json:"status"`
	Website    string           `json:"website,omitempty"`
	Confidence model.Confidence `json:"confidence,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Result summarizes one enrichment batch.
type Result struct {
	Processed   int             `json:"processed"`
	Updated     int             `json:"updated"`
	Skipped     int             `json:"skipped"`
	NoCandidate int             `json:"no_candidate"`
	Errors      int             `json:"errors"`
	Records     []SchoolOutcome `json:"records"`
}

// Options tunes one enrichment batch.
type Options struct {
	Limit         int
	DryRun        bool
	MaxCandidates int
}

// Engine runs website enrichment batches. Search results are cached per query
// so overlapping batches within the TTL window don't rehit the provider.
type Engine struct {
	store         store.Store
	provider      SearchProvider
	client        fetcher.Doer
	searchCache   *cache.TTL[[]string]
	cacheTTL      time.Duration
	maxCandidates int
	now           func() time.Time
}

// NewEngine creates an enrichment engine. cacheTTL <= 0 disables caching.
func NewEngine(s store.Store, provider SearchProvider, client fetcher.Doer, cacheTTL time.Duration) *Engine {
	return &Engine{
		store:         s,
		provider:      provider,
		client:        client,
		searchCache:   cache.NewTTL[[]string](),
		cacheTTL:      cacheTTL,
		maxCandidates: 5,
		now:           time.Now,
	}
}

// Run enriches up to opts.Limit schools that are missing a website or hold
// one at no better than LOW confidence.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates < 1 {
		maxCandidates = e.maxCandidates
	}

	schools, err := e.store.ListEnrichmentCandidates(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, school := range schools {
		result.Processed++
		outcome := e.enrichOne(ctx, school, maxCandidates, opts.DryRun)
		switch outcome.Status {
		case StatusUpdated:
			result.Updated++
		case StatusSkipped:
			result.Skipped++
		case StatusNoCandidate:
			result.NoCandidate++
		case StatusError:
			result.Errors++
		}
		result.Records = append(result.Records, outcome)
	}

	zap.L().Info("website enrichment batch complete",
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("no_candidate", result.NoCandidate),
		zap.Int("errors", result.Errors),
		zap.Bool("dry_run", opts.DryRun),
	)
	return result, nil
}

func (e *Engine) enrichOne(ctx context.Context, school model.School, maxCandidates int, dryRun bool) SchoolOutcome {
	outcome := SchoolOutcome{SchoolID: school.ID, SchoolName: school.Name}

	best, err := e.findBestCandidate(ctx, school, maxCandidates)
	if err != nil {
		outcome.Status = StatusError
		outcome.Reason = err.Error()
		return outcome
	}
	if best == nil {
		outcome.Status = StatusNoCandidate
		return outcome
	}

	if !shouldUpdate(school, *best) {
		outcome.Status = StatusSkipped
		outcome.Website = best.URL
		outcome.Confidence = best.Confidence
		outcome.Reason = "existing website confidence is equal or higher"
		return outcome
	}

	if !dryRun {
		if err := e.store.UpdateSchoolWebsite(ctx, school.ID, best.URL, best.Confidence, WebsiteDataSource, e.now()); err != nil {
			outcome.Status = StatusError
			outcome.Reason = err.Error()
			return outcome
		}
	}

	outcome.Status = StatusUpdated
	outcome.Website = best.URL
	outcome.Confidence = best.Confidence
	outcome.Reason = strings.Join(best.Reasons, ", ")
	return outcome
}

// findBestCandidate runs the school's queries in order, scoring every new
// candidate URL, and stops early once any candidate reaches HIGH. The best
// score wins.
func (e *Engine) findBestCandidate(ctx context.Context, school model.School, maxCandidates int) (*Candidate, error) {
	scored := make(map[string]Candidate)
	haveHigh := false

	for _, query := range buildQueries(school) {
		urls, err := e.search(ctx, query, maxCandidates)
		if err != nil {
			return nil, err
		}
		for _, candidateURL := range urls {
			if _, ok := scored[candidateURL]; ok {
				continue
			}
			candidate := e.scoreCandidate(ctx, school, candidateURL)
			if candidate == nil {
				continue
			}
			scored[candidateURL] = *candidate
			if candidate.Confidence == model.ConfidenceHigh {
				haveHigh = true
			}
		}
		if haveHigh {
			break
		}
	}

	var best *Candidate
	for _, candidate := range scored {
		if best == nil || candidate.Score > best.Score {
			c := candidate
			best = &c
		}
	}
	return best, nil
}

func (e *Engine) search(ctx context.Context, query string, maxCandidates int) ([]string, error) {
	if cached, ok := e.searchCache.Get(query); ok {
		return cached, nil
	}
	urls, err := e.provider.Search(ctx, query, maxCandidates)
	if err != nil {
		return nil, err
	}
	e.searchCache.Set(query, urls, e.cacheTTL)
	return urls, nil
}

// scoreCandidate fetches the candidate page and scores it against the
// school's name, location, phone, and street. Blocked hosts, unreachable
// pages, and scores below the LOW threshold all return nil.
func (e *Engine) scoreCandidate(ctx context.Context, school model.School, candidateURL string) *Candidate {
	if hasBlockedHost(candidateURL) {
		return nil
	}

	var reasons []string
	score := 0

	domain := extractDomain(candidateURL)
	nameTokens := tokenizeName(school.Name)

	for _, token := range nameTokens {
		if strings.Contains(domain, token) {
			score += 12
			reasons = append(reasons, "name token in domain")
			break
		}
	}

	html, err := fetcher.Text(ctx, e.client, fetcher.Request{URL: candidateURL})
	if err != nil {
		return nil
	}
	text := strings.ToLower(pageText(html))

	if strings.Contains(text, strings.ToLower(school.Name)) {
		score += 30
		reasons = append(reasons, "exact school name on page")
	}

	matched := 0
	for _, token := range nameTokens {
		if strings.Contains(text, token) {
			matched++
		}
	}
	if matched > 0 {
		points := matched * 4
		if points > 20 {
			points = 20
		}
		score += points
		reasons = append(reasons, "name token matches")
	}

	if school.City != "" && strings.Contains(text, strings.ToLower(school.City)) {
		score += 10
		reasons = append(reasons, "city match")
	}
	if school.State != "" && strings.Contains(text, strings.ToLower(school.State)) {
		score += 6
		reasons = append(reasons, "state match")
	}

	phoneDigits := normalize.PhoneDigits(school.Phone)
	if phoneDigits != "" && strings.Contains(digitsOnly(text), phoneDigits) {
		score += 25
		reasons = append(reasons, "phone match")
	}

	street := primaryStreet(school.Address)
	if len(street) >= 8 && strings.Contains(text, street) {
		score += 18
		reasons = append(reasons, "street address match")
	}

	confidence := confidenceForScore(score)
	if confidence == model.ConfidenceUnknown {
		return nil
	}

	return &Candidate{
		URL:        candidateURL,
		Score:      score,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func confidenceForScore(score int) model.Confidence {
	switch {
	case score >= 65:
		return model.ConfidenceHigh
	case score >= 45:
		return model.ConfidenceMedium
	case score >= 30:
		return model.ConfidenceLow
	}
	return model.ConfidenceUnknown
}

// shouldUpdate applies the enrichment gate: always fill an empty website,
// otherwise require the candidate to strictly outrank the stored confidence.
func shouldUpdate(school model.School, candidate Candidate) bool {
	if school.Website == "" {
		return true
	}
	return candidate.Confidence.Exceeds(school.WebsiteDataConfidence)
}

// buildQueries returns the search queries for a school, most precise last:
// quoted identity, identity + address, identity + phone digits.
func buildQueries(school model.School) []string {
	base := `"` + school.Name + `" "` + school.City + `" "` + school.State + `" preschool`
	queries := []string{base, base + " " + school.Address}
	if school.Phone != "" {
		queries = append(queries, base+" "+normalize.PhoneDigits(school.Phone))
	}
	return queries
}

var (
	scriptRe    = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleRe     = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	markupRe    = regexp.MustCompile(`<[^>]+>`)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9\s]`)
	nonDigitRe  = regexp.MustCompile(`\D+`)
	tokenSplit  = regexp.MustCompile(`\s+`)
	genericWord = map[string]bool{
		"the": true, "and": true, "school": true, "academy": true,
		"center": true, "child": true, "care": true,
	}
)

func pageText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = markupRe.ReplaceAllString(text, " ")
	return normalize.CompactWhitespace(text)
}

// tokenizeName splits a school name into distinctive lowercase tokens,
// dropping short and generic words.
func tokenizeName(name string) []string {
	cleaned := nonAlnumRe.ReplaceAllString(strings.ToLower(name), " ")
	seen := make(map[string]bool)
	var tokens []string
	for _, token := range tokenSplit.Split(cleaned, -1) {
		if len(token) < 3 || genericWord[token] || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

// primaryStreet lowercases the part of the address before the first comma and
// strips punctuation.
func primaryStreet(address string) string {
	first, _, _ := strings.Cut(strings.ToLower(address), ",")
	return normalize.CompactWhitespace(nonAlnumRe.ReplaceAllString(first, " "))
}

func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func hasBlockedHost(rawURL string) bool {
	domain := extractDomain(rawURL)
	if domain == "" {
		return false
	}
	for _, blocked := range blockedHosts {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	return false
}
