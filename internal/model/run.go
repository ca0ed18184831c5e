package model

import "time"

// RunStatus is the ingestion run state machine: RUNNING is the only
// non-terminal state.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// IngestionRun is one orchestrator invocation of one adapter.
type IngestionRun struct {
	ID              string            `json:"id"`
	Source          Source            `json:"source"`
	Status          RunStatus         `json:"status"`
	RecordsSeen     int               `json:"records_seen"`
	RecordsUpserted int               `json:"records_upserted"`
	RecordsSkipped  int               `json:"records_skipped"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// IngestionError is one record-level failure within a run. It never aborts
// the run.
type IngestionError struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	RecordKey string    `json:"record_key"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestionResult is the per-source summary returned to the triggering caller.
type IngestionResult struct {
	RunID           string    `json:"run_id"`
	Source          Source    `json:"source"`
	Status          RunStatus `json:"status"`
	RecordsSeen     int       `json:"records_seen"`
	RecordsUpserted int       `json:"records_upserted"`
	RecordsSkipped  int       `json:"records_skipped"`
}

// Succeeded reports whether every result in the batch completed.
func Succeeded(results []IngestionResult) bool {
	for _, r := range results {
		if r.Status != RunStatusSucceeded {
			return false
		}
	}
	return true
}
