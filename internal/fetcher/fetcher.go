// Package fetcher downloads and parses source data: resilient HTTP GET/POST
// with timeout, bounded retry, and per-host rate limiting, FTP retrieval for
// mirror dumps, and CSV/XLSX row-to-record parsing.
package fetcher

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
)

// Request describes one remote call. Method defaults to GET.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Doer executes a remote request and returns the response body decoded to
// UTF-8. Implementations retry transient failures per the configured policy;
// exhausted retries and non-retriable statuses surface as a single error.
type Doer interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Text fetches the request and returns the body as a string.
func Text(ctx context.Context, d Doer, req Request) (string, error) {
	body, err := d.Fetch(ctx, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON fetches the request and unmarshals the response body into T.
func JSON[T any](ctx context.Context, d Doer, req Request) (*T, error) {
	body, err := d.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrapf(err, "fetch %s: decode json", req.URL)
	}
	return &out, nil
}

// PostJSON marshals payload and issues a POST with a JSON content type plus
// any extra headers.
func PostJSON[T any](ctx context.Context, d Doer, url string, payload any, header map[string]string) (*T, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: encode json body", url)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range header {
		h[k] = v
	}
	return JSON[T](ctx, d, Request{
		Method: http.MethodPost,
		URL:    url,
		Header: h,
		Body:   body,
	})
}
