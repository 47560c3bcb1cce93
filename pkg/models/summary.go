package models

import "time"

// SportSummary is the per-sport slice of a cycle summary
type SportSummary struct {
	Sport          string `json:"sport"`
	GamesProcessed int    `json:"games_processed"`
	LogsUpdated    int    `json:"logs_updated"`
	FailedLogs     int    `json:"failed_logs"`
}

// CycleSummary is returned by every orchestrator cycle, including partial
// failures, so operators can tell "nothing to do" from "everything failed".
type CycleSummary struct {
	CycleID        string         `json:"cycle_id"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMS     int64          `json:"duration_ms"`
	GamesProcessed int            `json:"games_processed"`
	LogsUpdated    int            `json:"logs_updated"`
	FailedLogs     int            `json:"failed_logs"`
	Sports         []SportSummary `json:"sports"`
	Error          string         `json:"error,omitempty"`
}

// AddSport merges per-sport counts into the summary
func (s *CycleSummary) AddSport(sport string, games, updated, failed int) {
	s.GamesProcessed += games
	s.LogsUpdated += updated
	s.FailedLogs += failed

	for i := range s.Sports {
		if s.Sports[i].Sport == sport {
			s.Sports[i].GamesProcessed += games
			s.Sports[i].LogsUpdated += updated
			s.Sports[i].FailedLogs += failed
			return
		}
	}
	s.Sports = append(s.Sports, SportSummary{
		Sport:          sport,
		GamesProcessed: games,
		LogsUpdated:    updated,
		FailedLogs:     failed,
	})
}
