package models

import "time"

// BackfillProgress tracks one per-sport backfill sweep. The row is upserted
// after every batch so a killed run resumes from the first remaining
// un-metriced log instead of from zero.
type BackfillProgress struct {
	RunID             string     `json:"run_id"`
	Sport             string     `json:"sport"`
	TotalRecords      int        `json:"total_records"`
	ProcessedRecords  int        `json:"processed_records"`
	SuccessCount      int        `json:"success_count"`
	FailureCount      int        `json:"failure_count"`
	RepairedGames     int        `json:"repaired_games"`
	CurrentBatchIndex int        `json:"current_batch_index"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
