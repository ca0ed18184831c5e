package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/store"
)

type fakeProvider struct {
	urls  []string
	err   error
	calls int
}

func (p *fakeProvider) Search(ctx context.Context, query string, max int) ([]string, error) {
	p.calls++
	return p.urls, p.err
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "enrich.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestClient() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, RetryDelay: time.Millisecond})
}

func seedSchool(t *testing.T, s *store.SQLiteStore, school *model.School) *model.School {
	t.Helper()
	if school.Name == "" {
		school.Name = "Bright Beginnings"
	}
	if school.Slug == "" {
		school.Slug = "bright-beginnings-richmond-va"
	}
	school.Address = "101 River Rd"
	school.City = "Richmond"
	school.State = "VA"
	school.Zipcode = "23220"
	school.Phone = "(804) 555-0101"
	require.NoError(t, s.CreateSchool(context.Background(), school))
	return school
}

const strongPage = `<html><head><title>Bright Beginnings</title>
<script>var ignored = "nothing";</script></head>
<body><h1>Bright Beginnings</h1>
<p>A preschool in Richmond, VA at 101 River Rd.</p>
<p>Call us: (804) 555-0101</p></body></html>`

const weakPage = `<html><body>
<h1>Bright Beginnings</h1><p>Located in Richmond, VA.</p>
</body></html>`

func TestRunUpdatesSchoolWebsite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	school := seedSchool(t, s, &model.School{})

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strongPage))
	}))
	defer pageServer.Close()

	provider := &fakeProvider{urls: []string{pageServer.URL + "/"}}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	result, err := engine.Run(ctx, Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Records, 1)
	assert.Equal(t, StatusUpdated, result.Records[0].Status)
	assert.Equal(t, model.ConfidenceHigh, result.Records[0].Confidence)

	// A HIGH candidate on the first query stops the query ladder.
	assert.Equal(t, 1, provider.calls)

	updated, err := s.GetSchool(ctx, school.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, pageServer.URL+"/", updated.Website)
	assert.Equal(t, model.ConfidenceHigh, updated.WebsiteDataConfidence)
	assert.Equal(t, WebsiteDataSource, updated.WebsiteDataSource)
	require.NotNil(t, updated.WebsiteLastVerifiedAt)
}

func TestRunDryRunLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	school := seedSchool(t, s, &model.School{})

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strongPage))
	}))
	defer pageServer.Close()

	provider := &fakeProvider{urls: []string{pageServer.URL + "/"}}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	result, err := engine.Run(ctx, Options{Limit: 10, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	unchanged, err := s.GetSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.Website)
}

func TestRunSkipsWhenExistingConfidenceEqual(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSchool(t, s, &model.School{
		Website:               "https://already.example.com",
		WebsiteDataConfidence: model.ConfidenceMedium,
	})

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(weakPage))
	}))
	defer pageServer.Close()

	provider := &fakeProvider{urls: []string{pageServer.URL + "/"}}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	result, err := engine.Run(ctx, Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Records, 1)
	assert.Equal(t, StatusSkipped, result.Records[0].Status)
	assert.Equal(t, model.ConfidenceMedium, result.Records[0].Confidence)
}

func TestRunNoCandidate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSchool(t, s, &model.School{})

	provider := &fakeProvider{}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	result, err := engine.Run(ctx, Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NoCandidate)
	// All three queries ran without an early stop.
	assert.Equal(t, 3, provider.calls)
}

func TestRunRecordsProviderErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSchool(t, s, &model.School{})

	provider := &fakeProvider{err: eris.New("search backend down")}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	result, err := engine.Run(ctx, Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Records, 1)
	assert.Equal(t, StatusError, result.Records[0].Status)
	assert.Contains(t, result.Records[0].Reason, "search backend down")
}

func TestRunCachesSearchResults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSchool(t, s, &model.School{})

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strongPage))
	}))
	defer pageServer.Close()

	provider := &fakeProvider{urls: []string{pageServer.URL + "/"}}
	engine := NewEngine(s, provider, newTestClient(), time.Hour)

	_, err := engine.Run(ctx, Options{Limit: 10, DryRun: true})
	require.NoError(t, err)
	_, err = engine.Run(ctx, Options{Limit: 10, DryRun: true})
	require.NoError(t, err)

	// The second batch resolves the same query from cache.
	assert.Equal(t, 1, provider.calls)
}

func TestScoreCandidateRejectsBlockedHost(t *testing.T) {
	engine := NewEngine(newTestStore(t), &fakeProvider{}, newTestClient(), 0)
	school := model.School{Name: "Bright Beginnings", City: "Richmond", State: "VA"}

	assert.Nil(t, engine.scoreCandidate(context.Background(), school, "https://www.yelp.com/biz/bright-beginnings"))
	assert.Nil(t, engine.scoreCandidate(context.Background(), school, "https://m.facebook.com/brightbeginnings"))
}

func TestConfidenceForScore(t *testing.T) {
	assert.Equal(t, model.ConfidenceHigh, confidenceForScore(65))
	assert.Equal(t, model.ConfidenceMedium, confidenceForScore(64))
	assert.Equal(t, model.ConfidenceMedium, confidenceForScore(45))
	assert.Equal(t, model.ConfidenceLow, confidenceForScore(44))
	assert.Equal(t, model.ConfidenceLow, confidenceForScore(30))
	assert.Equal(t, model.ConfidenceUnknown, confidenceForScore(29))
}

func TestTokenizeName(t *testing.T) {
	tokens := tokenizeName("The Bright Beginnings Child Care Academy")
	assert.Equal(t, []string{"bright", "beginnings"}, tokens)
}

func TestPrimaryStreet(t *testing.T) {
	assert.Equal(t, "101 river rd", primaryStreet("101 River Rd, Richmond, VA 23220"))
	assert.Equal(t, "101 river rd", primaryStreet("101 River Rd."))
}

func TestShouldUpdate(t *testing.T) {
	candidate := Candidate{Confidence: model.ConfidenceMedium}

	assert.True(t, shouldUpdate(model.School{}, candidate))
	assert.True(t, shouldUpdate(model.School{
		Website:               "https://old.example.com",
		WebsiteDataConfidence: model.ConfidenceLow,
	}, candidate))
	assert.False(t, shouldUpdate(model.School{
		Website:               "https://old.example.com",
		WebsiteDataConfidence: model.ConfidenceMedium,
	}, candidate))
}
