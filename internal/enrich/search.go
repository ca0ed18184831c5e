package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yourschools/ingest-cli/internal/fetcher"
)

// SearchProvider returns up to max candidate URLs for a free-text query.
type SearchProvider interface {
	Search(ctx context.Context, query string, max int) ([]string, error)
}

var ddgResultRe = regexp.MustCompile(`(?i)<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"`)

var htmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

// DuckDuckGoProvider scrapes the DuckDuckGo HTML endpoint. Result links are
// redirect-wrapped; the target URL lives in the uddg query parameter.
type DuckDuckGoProvider struct {
	client  fetcher.Doer
	baseURL string
}

// NewDuckDuckGoProvider creates the provider on the shared fetch client.
func NewDuckDuckGoProvider(client fetcher.Doer) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{client: client, baseURL: "https://duckduckgo.com/html/"}
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, max int) ([]string, error) {
	searchURL := p.baseURL + "?q=" + url.QueryEscape(query)
	html, err := fetcher.Text(ctx, p.client, fetcher.Request{URL: searchURL})
	if err != nil {
		return nil, eris.Wrapf(err, "search %q", query)
	}

	links := extractResultLinks(html)
	if max > 0 && len(links) > max {
		links = links[:max]
	}
	return links, nil
}

// extractResultLinks pulls result anchors out of the search page, resolves
// redirect wrappers, drops non-http(s) targets, strips fragments, and
// deduplicates preserving order.
func extractResultLinks(html string) []string {
	var links []string
	seen := make(map[string]bool)

	for _, m := range ddgResultRe.FindAllStringSubmatch(html, -1) {
		href := htmlEntityReplacer.Replace(m[1])
		if href == "" {
			continue
		}

		if strings.HasPrefix(href, "/l/?") {
			if resolved := resolveRedirect(href); resolved != "" {
				href = resolved
			}
		}

		sanitized := sanitizeURL(href)
		if sanitized == "" || seen[sanitized] {
			continue
		}
		seen[sanitized] = true
		links = append(links, sanitized)
	}
	return links
}

func resolveRedirect(href string) string {
	_, query, ok := strings.Cut(href, "?")
	if !ok {
		return ""
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	return params.Get("uddg")
}

// sanitizeURL keeps http(s) URLs and strips their fragment. Anything else
// returns "".
func sanitizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	parsed.Fragment = ""
	return parsed.String()
}
