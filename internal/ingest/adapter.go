// Package ingest holds the source adapters that turn upstream provider
// datasets into normalized records for the merge engine. Each adapter owns
// one upstream source: fetching, filtering, field mapping, and per-field
// confidence assignment.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/model"
)

// Adapter loads and normalizes every record of one upstream source.
//
// LoadRecords returns an error only for whole-source failures (missing
// configuration, fetch failure after retries, malformed payload). Rows that
// fail normalization are dropped, not errored.
type Adapter interface {
	Source() model.Source
	LoadRecords(ctx context.Context) ([]model.NormalizedRecord, error)
}

// Registry maps sources to their configured adapters.
type Registry struct {
	adapters map[model.Source]Adapter
}

// NewRegistry builds the standard adapter set from config, all sharing one
// fetch client.
func NewRegistry(cfg config.SourcesConfig, client fetcher.Doer) *Registry {
	return &Registry{
		adapters: map[model.Source]Adapter{
			model.SourceHeadStart: NewHeadStartAdapter(cfg.HeadStart, client),
			model.SourceNCESPK:    NewNCESPKAdapter(cfg.NCESPK, client),
			model.SourceVALicense: NewVALicenseAdapter(cfg.VA, client),
			model.SourceFLLicense: NewFLLicenseAdapter(cfg.FL, client),
			model.SourceTXLicense: NewTXLicenseAdapter(cfg.TX, client),
		},
	}
}

// Get returns the adapter registered for the source.
func (r *Registry) Get(source model.Source) (Adapter, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, eris.Errorf("ingest: no adapter registered for source %s", source)
	}
	return a, nil
}

// Register adds or replaces an adapter. Extra state CSV directories are
// plugged in this way without new adapter code.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Source()] = a
}

// loadRows fetches a tabular source document and parses it by payload shape:
// .xlsx URLs go through the workbook parser, everything else is CSV. The URL
// scheme (https or ftp) is handled by the fetch client.
func loadRows(ctx context.Context, client fetcher.Doer, url string) ([]fetcher.Record, error) {
	body, err := client.Fetch(ctx, fetcher.Request{URL: url})
	if err != nil {
		return nil, err
	}
	if fetcher.IsXLSXURL(url) {
		return fetcher.XLSXRecords(body)
	}
	return fetcher.CSVRecordsFromString(string(body))
}
