package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourschools/ingest-cli/internal/ingest"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/store"
)

// RunAdapter executes one adapter under a tracked ingestion run. A load
// failure fails the whole run; a record failure is logged as an ingestion
// error row and counted as skipped without stopping the loop.
func RunAdapter(ctx context.Context, s store.Store, engine *Engine, adapter ingest.Adapter) (model.IngestionResult, error) {
	run, err := s.CreateRun(ctx, adapter.Source())
	if err != nil {
		return model.IngestionResult{}, err
	}

	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("source", string(adapter.Source())),
	)
	log.Info("ingestion run started")

	records, err := adapter.LoadRecords(ctx)
	if err != nil {
		log.Error("source load failed", zap.Error(err))
		run.Status = model.RunStatusFailed
		run.Metadata = map[string]string{"fatalError": err.Error()}
		if completeErr := s.CompleteRun(ctx, run); completeErr != nil {
			return model.IngestionResult{}, completeErr
		}
		return resultFor(run), nil
	}

	var ingestErrs []model.IngestionError
	for _, rec := range records {
		run.RecordsSeen++
		if err := engine.UpsertRecord(ctx, rec); err != nil {
			run.RecordsSkipped++
			ingestErrs = append(ingestErrs, model.IngestionError{
				RunID:     run.ID,
				RecordKey: rec.Key(),
				Message:   err.Error(),
			})
			log.Warn("record skipped",
				zap.String("record_key", rec.Key()),
				zap.Error(err),
			)
			continue
		}
		run.RecordsUpserted++
	}

	if err := s.CreateIngestionErrors(ctx, ingestErrs); err != nil {
		return model.IngestionResult{}, err
	}

	run.Status = model.RunStatusSucceeded
	if err := s.CompleteRun(ctx, run); err != nil {
		return model.IngestionResult{}, err
	}

	log.Info("ingestion run complete",
		zap.Int("seen", run.RecordsSeen),
		zap.Int("upserted", run.RecordsUpserted),
		zap.Int("skipped", run.RecordsSkipped),
	)
	return resultFor(run), nil
}

// RunSources runs the registered adapter for each source sequentially and
// returns one result per source. Unknown sources error before any run starts.
func RunSources(ctx context.Context, s store.Store, engine *Engine, registry *ingest.Registry, sources []model.Source) ([]model.IngestionResult, error) {
	adapters := make([]ingest.Adapter, 0, len(sources))
	for _, source := range sources {
		adapter, err := registry.Get(source)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	results := make([]model.IngestionResult, 0, len(adapters))
	for _, adapter := range adapters {
		result, err := RunAdapter(ctx, s, engine, adapter)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func resultFor(run *model.IngestionRun) model.IngestionResult {
	return model.IngestionResult{
		RunID:           run.ID,
		Source:          run.Source,
		Status:          run.Status,
		RecordsSeen:     run.RecordsSeen,
		RecordsUpserted: run.RecordsUpserted,
		RecordsSkipped:  run.RecordsSkipped,
	}
}
