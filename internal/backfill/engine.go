package backfill

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/registry"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/google/uuid"
)

// Store is the slice of the datastore the backfill engine needs
type Store interface {
	GamePage(ctx context.Context, sport, afterGameID string, limit int) ([]models.GameContext, error)
	CountLogsMissingMetrics(ctx context.Context, sport string) (int, error)
	LogsMissingMetrics(ctx context.Context, sport string, limit int) ([]models.PerformanceRecord, error)
	UpsertLogs(ctx context.Context, logs []models.PerformanceRecord) error
	SaveBackfillProgress(ctx context.Context, p *models.BackfillProgress) error
	SampleComputedLogs(ctx context.Context, sport string, limit int) ([]models.PerformanceRecord, error)
}

// Config tunes one backfill sweep
type Config struct {
	PageSize   int // games per enumeration page
	BatchSize  int // logs per compute/upsert batch
	SampleSize int // logs sampled by the validation pass
}

const (
	defaultPageSize   = 1000
	defaultBatchSize  = 500
	defaultSampleSize = 5
)

// Engine sweeps the historical corpus for one sport, computing metrics for
// every log that is missing them and repairing opponent references along
// the way. Progress is persisted per batch, so a killed run resumes from
// the first remaining un-metriced log. Re-running a finished sweep is a
// no-op because the scan only ever selects logs without metrics.
type Engine struct {
	store    Store
	registry *registry.Registry
	cfg      Config
}

// New creates a backfill engine. Zero config fields fall back to defaults.
func New(store Store, reg *registry.Registry, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = defaultSampleSize
	}
	return &Engine{store: store, registry: reg, cfg: cfg}
}

// Run executes the sweep for one sport until a fetch returns zero rows,
// then runs a small validation pass. The progress report is returned even
// when the sweep aborts early.
func (e *Engine) Run(ctx context.Context, sport string) (*models.BackfillProgress, error) {
	calc, err := e.registry.Calculator(sport)
	if err != nil {
		return nil, err
	}

	progress := &models.BackfillProgress{
		RunID:     uuid.New().String(),
		Sport:     sport,
		StartedAt: time.Now().UTC(),
	}

	total, err := e.store.CountLogsMissingMetrics(ctx, sport)
	if err != nil {
		return progress, fmt.Errorf("count remaining logs: %w", err)
	}
	progress.TotalRecords = total

	log.Printf("[backfill] %s: %d logs need metrics", sport, total)

	games, err := e.enumerateGames(ctx, sport)
	if err != nil {
		return progress, err
	}
	log.Printf("[backfill] %s: enumerated %d games", sport, len(games))

	for {
		if err := ctx.Err(); err != nil {
			return progress, err
		}

		logs, err := e.store.LogsMissingMetrics(ctx, sport, e.cfg.BatchSize)
		if err != nil {
			return progress, fmt.Errorf("fetch batch %d: %w", progress.CurrentBatchIndex, err)
		}
		if len(logs) == 0 {
			break
		}

		batch := make([]models.PerformanceRecord, 0, len(logs))
		for i := range logs {
			rec := logs[i]

			bag, ok := computeSafe(calc.Compute, rec.RawStats, rec.MinutesPlayed)
			if !ok {
				log.Printf("[backfill] calculator panic for %s/%s", rec.GameID, rec.PlayerID)
				progress.FailureCount++
				continue
			}
			rec.ComputedMetrics = bag

			if game, ok := games[rec.GameID]; ok {
				if repairOpponent(&rec, &game) {
					progress.RepairedGames++
				}
			}

			batch = append(batch, rec)
		}

		if len(batch) == 0 {
			// Every log in the fetch failed; the scan would return the
			// same rows forever, so stop instead of spinning
			log.Printf("[backfill] %s: batch %d made no progress, stopping", sport, progress.CurrentBatchIndex)
			break
		}

		if err := e.writeBatch(ctx, batch); err != nil {
			progress.FailureCount += len(batch)
			return progress, fmt.Errorf("write batch %d: %w", progress.CurrentBatchIndex, err)
		}
		progress.SuccessCount += len(batch)
		progress.ProcessedRecords += len(logs)
		progress.CurrentBatchIndex++

		if err := e.store.SaveBackfillProgress(ctx, progress); err != nil {
			log.Printf("[backfill] progress save failed: %v", err)
		}

		log.Printf("[backfill] %s: batch %d done (%d/%d processed, %d failed)",
			sport, progress.CurrentBatchIndex, progress.ProcessedRecords, progress.TotalRecords, progress.FailureCount)
	}

	now := time.Now().UTC()
	progress.CompletedAt = &now
	if err := e.store.SaveBackfillProgress(ctx, progress); err != nil {
		log.Printf("[backfill] final progress save failed: %v", err)
	}

	e.validate(ctx, sport, calc.RequiredMetrics())

	return progress, nil
}

// enumerateGames pages through every game for the sport and indexes them
// by ID for opponent repair.
func (e *Engine) enumerateGames(ctx context.Context, sport string) (map[string]models.GameContext, error) {
	games := make(map[string]models.GameContext)
	after := ""

	for {
		page, err := e.store.GamePage(ctx, sport, after, e.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("enumerate games after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		for _, g := range page {
			games[g.GameID] = g
		}
		after = page[len(page)-1].GameID
		if len(page) < e.cfg.PageSize {
			break
		}
	}

	return games, nil
}

// writeBatch upserts a batch, retrying once on a write error
func (e *Engine) writeBatch(ctx context.Context, batch []models.PerformanceRecord) error {
	err := e.store.UpsertLogs(ctx, batch)
	if err == nil {
		return nil
	}
	log.Printf("[backfill] batch write failed, retrying once: %v", err)
	return e.store.UpsertLogs(ctx, batch)
}

// validate samples a handful of computed logs and confirms the expected
// metric keys are present. A smoke test, not a correctness proof.
func (e *Engine) validate(ctx context.Context, sport string, required []string) {
	sample, err := e.store.SampleComputedLogs(ctx, sport, e.cfg.SampleSize)
	if err != nil {
		log.Printf("[backfill] validation sample failed for %s: %v", sport, err)
		return
	}

	missing := 0
	for i := range sample {
		rec := &sample[i]
		if _, corrupt := rec.ComputedMetrics[models.MetaCorruptData]; corrupt {
			continue
		}
		for _, key := range required {
			if _, ok := rec.ComputedMetrics[key]; !ok {
				log.Printf("[backfill] validation: %s/%s missing metric %q", rec.GameID, rec.PlayerID, key)
				missing++
			}
		}
	}

	log.Printf("[backfill] %s validation: sampled %d logs, %d missing keys", sport, len(sample), missing)
}

// repairOpponent fills opponent_id and is_home from the parent game when
// the log's team is one of the game's two sides. Returns true when either
// field changed.
func repairOpponent(rec *models.PerformanceRecord, game *models.GameContext) bool {
	if rec.TeamID == "" {
		return false
	}

	var opponent string
	var isHome bool
	switch rec.TeamID {
	case game.HomeTeamID:
		opponent, isHome = game.AwayTeamID, true
	case game.AwayTeamID:
		opponent, isHome = game.HomeTeamID, false
	default:
		return false
	}

	if rec.OpponentID == opponent && rec.IsHome == isHome {
		return false
	}
	rec.OpponentID = opponent
	rec.IsHome = isHome
	return true
}

func computeSafe(fn func(map[string]interface{}, float64) map[string]interface{}, raw map[string]interface{}, minutes float64) (bag map[string]interface{}, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn(raw, minutes), true
}
