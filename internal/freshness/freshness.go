// Package freshness decides whether a log's derived metrics must be
// recomputed. The decision bounds orchestrator work to genuinely stale
// logs: once a log is stable the evaluator keeps returning false until
// the parent game changes.
package freshness

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
)

// NeedsRecompute reports whether the log's computed metrics are stale
// relative to its parent game. First match wins:
//  1. no computed metrics at all
//  2. metrics computed before the game last changed
//  3. a required metric for the sport is missing or null
func NeedsRecompute(rec *models.PerformanceRecord, required []string, gameUpdatedAt time.Time) bool {
	if !rec.HasMetrics() {
		return true
	}

	computedAt := rec.MetricsUpdatedAt()
	if computedAt.IsZero() || computedAt.Before(gameUpdatedAt) {
		return true
	}

	for _, key := range required {
		v, ok := rec.ComputedMetrics[key]
		if !ok || v == nil {
			return true
		}
	}

	return false
}
