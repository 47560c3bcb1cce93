package models

import "time"

// Reserved keys stamped into every computed metric bag
const (
	MetaUpdatedAt = "_updatedAt"
	MetaVersion   = "_version"

	// MetaCorruptData flags a log whose raw stats contain fields from a
	// different sport. The pipeline records the marker instead of
	// fabricating metrics from bad data.
	MetaCorruptData = "_corruptData"
)

// PerformanceRecord is one player's statistics for one game.
// Identity is the (game_id, player_id) pair. Raw stats arrive from the
// ingestion service in either camelCase or snake_case field names; the
// calculators accept both. The pipeline only ever mutates ComputedMetrics,
// OpponentID and IsHome.
type PerformanceRecord struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	Sport      string `json:"sport"`
	TeamID     string `json:"team_id,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`
	IsHome     bool   `json:"is_home"`

	RawStats        map[string]interface{} `json:"raw_stats"`
	MinutesPlayed   float64                `json:"minutes_played,omitempty"`
	ComputedMetrics map[string]interface{} `json:"computed_metrics,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasMetrics reports whether the log carries any computed metrics
func (r *PerformanceRecord) HasMetrics() bool {
	return len(r.ComputedMetrics) > 0
}

// MetricsUpdatedAt parses the _updatedAt stamp out of the computed bag.
// Returns the zero time when the stamp is missing or unparseable.
func (r *PerformanceRecord) MetricsUpdatedAt() time.Time {
	raw, ok := r.ComputedMetrics[MetaUpdatedAt]
	if !ok {
		return time.Time{}
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
