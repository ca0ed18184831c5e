package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourschools/ingest-cli/internal/config"
	"github.com/yourschools/ingest-cli/internal/fetcher"
	"github.com/yourschools/ingest-cli/internal/ingest"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/store"
)

type stubAdapter struct {
	source  model.Source
	records []model.NormalizedRecord
	err     error
}

func (a *stubAdapter) Source() model.Source { return a.source }

func (a *stubAdapter) LoadRecords(context.Context) ([]model.NormalizedRecord, error) {
	return a.records, a.err
}

// failingStore rejects provenance writes for one record so a run can exercise
// its partial-failure path against an otherwise real store.
type failingStore struct {
	store.Store
	failRecordID string
}

func (f *failingStore) UpsertSourceRecord(ctx context.Context, rec *model.ProviderSourceRecord) error {
	if rec.SourceRecordID == f.failRecordID {
		return eris.New("synthetic write failure")
	}
	return f.Store.UpsertSourceRecord(ctx, rec)
}

func namedRecord(id, name string) model.NormalizedRecord {
	rec := baseRecord()
	rec.SourceRecordID = id
	rec.Name = name
	rec.LicenseNumber = ""
	return rec
}

func TestRunAdapterCountsPartialFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	wrapped := &failingStore{Store: s, failRecordID: "bad"}
	engine := NewEngine(wrapped)

	adapter := &stubAdapter{
		source: model.SourceVALicense,
		records: []model.NormalizedRecord{
			namedRecord("101", "Bright Beginnings"),
			namedRecord("bad", "Broken Row"),
			namedRecord("103", "Garden Gate"),
		},
	}

	result, err := RunAdapter(ctx, wrapped, engine, adapter)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, result.Status)
	assert.Equal(t, 3, result.RecordsSeen)
	assert.Equal(t, 2, result.RecordsUpserted)
	assert.Equal(t, 1, result.RecordsSkipped)

	n, err := s.CountIngestionErrors(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	run, err := s.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.CompletedAt)
}

func TestRunAdapterLoadFailureFailsRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	adapter := &stubAdapter{
		source: model.SourceFLLicense,
		err:    eris.New("token endpoint unreachable"),
	}

	result, err := RunAdapter(ctx, s, engine, adapter)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Zero(t, result.RecordsSeen)

	run, err := s.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Metadata["fatalError"], "token endpoint unreachable")
}

func TestRunSourcesSequential(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)

	registry := ingest.NewRegistry(config.SourcesConfig{}, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}))
	registry.Register(&stubAdapter{
		source:  model.SourceVALicense,
		records: []model.NormalizedRecord{namedRecord("101", "Bright Beginnings")},
	})
	registry.Register(&stubAdapter{
		source: model.SourceTXLicense,
		err:    eris.New("boom"),
	})

	results, err := RunSources(ctx, s, engine, registry,
		[]model.Source{model.SourceVALicense, model.SourceTXLicense})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.RunStatusSucceeded, results[0].Status)
	assert.Equal(t, model.RunStatusFailed, results[1].Status)
	assert.False(t, model.Succeeded(results))
}

func TestRunSourcesUnknownSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	engine := NewEngine(s)
	registry := ingest.NewRegistry(config.SourcesConfig{}, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}))

	_, err := RunSources(ctx, s, engine, registry, []model.Source{model.Source("BOGUS")})
	require.Error(t, err)

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
