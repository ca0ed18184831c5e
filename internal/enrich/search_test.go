package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/fetcher"
)

const ddgHTML = `
<div class="results">
<a rel="nofollow" class="result__a" href="/l/?kh=-1&amp;uddg=https%3A%2F%2Fbrightbeginnings.example.com%2F">Bright Beginnings</a>
<a class="result__a" href="https://www.yelp.com/biz/bright-beginnings#reviews">Yelp listing</a>
<a class="result__a" href="https://www.yelp.com/biz/bright-beginnings">Yelp again</a>
<a class="result__a" href="ftp://not-a-web-link.example.com/file">Bogus</a>
<a class="other-link" href="https://ads.example.com">Ad</a>
</div>`

func TestExtractResultLinks(t *testing.T) {
	links := extractResultLinks(ddgHTML)
	require.Len(t, links, 2)
	assert.Equal(t, "https://brightbeginnings.example.com/", links[0])
	// Fragments are stripped, which also collapses the duplicate.
	assert.Equal(t, "https://www.yelp.com/biz/bright-beginnings", links[1])
}

func TestDuckDuckGoProviderSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(ddgHTML))
	}))
	defer server.Close()

	provider := &DuckDuckGoProvider{
		client:  fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, RetryDelay: time.Millisecond}),
		baseURL: server.URL,
	}

	links, err := provider.Search(context.Background(), `"Bright Beginnings" "Richmond" "VA" preschool`, 1)
	require.NoError(t, err)
	assert.Equal(t, `"Bright Beginnings" "Richmond" "VA" preschool`, gotQuery)
	require.Len(t, links, 1)
	assert.Equal(t, "https://brightbeginnings.example.com/", links[0])
}

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://a.example.com/page", sanitizeURL("https://a.example.com/page#section"))
	assert.Equal(t, "http://b.example.com", sanitizeURL("http://b.example.com"))
	assert.Equal(t, "", sanitizeURL("mailto:info@example.com"))
	assert.Equal(t, "", sanitizeURL("javascript:void(0)"))
}
