package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/freshness"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/registry"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/google/uuid"
)

// Store is the slice of the datastore the orchestrator needs
type Store interface {
	GamesUpdatedSince(ctx context.Context, since time.Time, sportFilter string, statuses []models.GameStatus) ([]models.GameContext, error)
	LogsByGame(ctx context.Context, gameID string) ([]models.PerformanceRecord, error)
	UpsertLogs(ctx context.Context, logs []models.PerformanceRecord) error
}

// Cache is the write-through metric cache
type Cache interface {
	WriteGameMetrics(ctx context.Context, gameID string, metrics map[string]map[string]interface{}) error
}

// Broadcaster emits metric change notifications
type Broadcaster interface {
	PublishPlayerUpdate(ctx context.Context, rec *models.PerformanceRecord) error
	PublishCycleSummary(ctx context.Context, summary *models.CycleSummary) error
}

// Config tunes one orchestrator instance
type Config struct {
	Window    time.Duration // trailing window of game updates to consider
	BatchSize int           // games per batch
	Workers   int           // concurrent games within a batch
}

const (
	defaultWindow    = 24 * time.Hour
	defaultBatchSize = 10
	defaultWorkers   = 5
)

// Orchestrator runs the selection-compute-persist-broadcast cycle.
// Dependencies are injected so tests can substitute fakes.
type Orchestrator struct {
	store       Store
	cache       Cache
	broadcaster Broadcaster
	registry    *registry.Registry
	cfg         Config
}

// New creates an orchestrator. Zero config fields fall back to defaults.
func New(store Store, cache Cache, broadcaster Broadcaster, reg *registry.Registry, cfg Config) *Orchestrator {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Orchestrator{
		store:       store,
		cache:       cache,
		broadcaster: broadcaster,
		registry:    reg,
		cfg:         cfg,
	}
}

// RunCycle executes one full cycle over the configured trailing window
func (o *Orchestrator) RunCycle(ctx context.Context, sportFilter string) (*models.CycleSummary, error) {
	return o.RunCycleWindow(ctx, sportFilter, o.cfg.Window)
}

// RunCycleWindow executes one cycle over an explicit trailing window. The
// hourly historical trigger uses this with a wider window than the live
// and regular triggers.
//
// Live games are fully processed before completed ones; games within a
// batch run concurrently with no ordering guarantee among themselves.
// A summary is always returned, even on early abort.
func (o *Orchestrator) RunCycleWindow(ctx context.Context, sportFilter string, window time.Duration) (*models.CycleSummary, error) {
	start := time.Now()
	summary := &models.CycleSummary{
		CycleID:   uuid.New().String(),
		StartedAt: start,
	}

	games, err := o.store.GamesUpdatedSince(ctx, start.Add(-window), sportFilter,
		[]models.GameStatus{models.StatusInProgress, models.StatusCompleted})
	if err != nil {
		// Structural failure: nothing to select from, abort the cycle
		summary.Error = err.Error()
		summary.DurationMS = time.Since(start).Milliseconds()
		return summary, err
	}

	var live, completed []models.GameContext
	for _, g := range games {
		if g.IsLive() {
			live = append(live, g)
		} else {
			completed = append(completed, g)
		}
	}

	log.Printf("[orchestrator] cycle %s: %d live, %d completed games in window",
		summary.CycleID, len(live), len(completed))

	for _, partition := range [][]models.GameContext{live, completed} {
		for i := 0; i < len(partition); i += o.cfg.BatchSize {
			end := i + o.cfg.BatchSize
			if end > len(partition) {
				end = len(partition)
			}
			o.processBatch(ctx, partition[i:end], summary)
		}
	}

	summary.DurationMS = time.Since(start).Milliseconds()

	if err := o.broadcaster.PublishCycleSummary(ctx, summary); err != nil {
		log.Printf("[orchestrator] cycle summary publish failed: %v", err)
	}

	log.Printf("[orchestrator] cycle %s done: games=%d logs_updated=%d failed=%d (%dms)",
		summary.CycleID, summary.GamesProcessed, summary.LogsUpdated, summary.FailedLogs, summary.DurationMS)

	return summary, nil
}

type gameResult struct {
	game    models.GameContext
	updated []models.PerformanceRecord
	failed  int
}

// processBatch runs the games of one batch through a bounded worker pool,
// then persists every changed log in a single write, warms the cache and
// broadcasts per-player updates. A failed game contributes zero updated
// logs and is retried on the next scheduled cycle.
func (o *Orchestrator) processBatch(ctx context.Context, games []models.GameContext, summary *models.CycleSummary) {
	workers := o.cfg.Workers
	if workers > len(games) {
		workers = len(games)
	}

	jobs := make(chan models.GameContext)
	results := make(chan gameResult, len(games))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				results <- o.processGame(ctx, g)
			}
		}()
	}

	for _, g := range games {
		jobs <- g
	}
	close(jobs)
	wg.Wait()
	close(results)

	var batch []models.PerformanceRecord
	perGame := make(map[string][]models.PerformanceRecord)
	for res := range results {
		summary.AddSport(res.game.Sport, 1, len(res.updated), res.failed)
		if len(res.updated) > 0 {
			batch = append(batch, res.updated...)
			perGame[res.game.GameID] = res.updated
		}
	}

	if len(batch) == 0 {
		return
	}

	if err := o.store.UpsertLogs(ctx, batch); err != nil {
		// No retry within a cycle; the logs stay stale and the next
		// trigger picks them up again
		log.Printf("[orchestrator] batch upsert failed (%d logs): %v", len(batch), err)
		summary.LogsUpdated -= len(batch)
		summary.FailedLogs += len(batch)
		return
	}

	for gameID, updated := range perGame {
		bags := make(map[string]map[string]interface{}, len(updated))
		for i := range updated {
			bags[updated[i].PlayerID] = updated[i].ComputedMetrics
		}
		if err := o.cache.WriteGameMetrics(ctx, gameID, bags); err != nil {
			log.Printf("[orchestrator] cache write failed for game %s: %v", gameID, err)
		}

		for i := range updated {
			if err := o.broadcaster.PublishPlayerUpdate(ctx, &updated[i]); err != nil {
				log.Printf("[orchestrator] player update publish failed for %s: %v", updated[i].PlayerID, err)
			}
		}
	}
}

// processGame fetches one game's logs, filters them through the freshness
// evaluator and recomputes the stale ones. Calculator panics are isolated
// per log.
func (o *Orchestrator) processGame(ctx context.Context, game models.GameContext) gameResult {
	res := gameResult{game: game}

	logs, err := o.store.LogsByGame(ctx, game.GameID)
	if err != nil {
		log.Printf("[orchestrator] fetch logs failed for game %s: %v", game.GameID, err)
		res.failed = 1
		return res
	}

	calc, err := o.registry.Calculator(game.Sport)
	if err != nil {
		log.Printf("[orchestrator] game %s: %v", game.GameID, err)
		res.failed = len(logs)
		return res
	}
	required := calc.RequiredMetrics()

	for i := range logs {
		rec := logs[i]
		if !freshness.NeedsRecompute(&rec, required, game.UpdatedAt) {
			continue
		}

		bag, ok := computeSafe(calc.Compute, rec.RawStats, rec.MinutesPlayed)
		if !ok {
			log.Printf("[orchestrator] calculator panic for %s/%s", rec.GameID, rec.PlayerID)
			res.failed++
			continue
		}

		rec.ComputedMetrics = bag
		res.updated = append(res.updated, rec)
	}

	return res
}

func computeSafe(fn func(map[string]interface{}, float64) map[string]interface{}, raw map[string]interface{}, minutes float64) (bag map[string]interface{}, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn(raw, minutes), true
}
