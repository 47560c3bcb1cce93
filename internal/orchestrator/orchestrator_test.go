package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/orchestrator"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/registry"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
)

type fakeStore struct {
	mu sync.Mutex

	games    []models.GameContext
	gamesErr error

	logsByGame map[string][]models.PerformanceRecord
	logsErr    map[string]error
	fetchOrder []string

	upserted  [][]models.PerformanceRecord
	upsertErr error
}

func (f *fakeStore) GamesUpdatedSince(_ context.Context, _ time.Time, _ string, _ []models.GameStatus) ([]models.GameContext, error) {
	if f.gamesErr != nil {
		return nil, f.gamesErr
	}
	return f.games, nil
}

func (f *fakeStore) LogsByGame(_ context.Context, gameID string) ([]models.PerformanceRecord, error) {
	f.mu.Lock()
	f.fetchOrder = append(f.fetchOrder, gameID)
	f.mu.Unlock()
	if err := f.logsErr[gameID]; err != nil {
		return nil, err
	}
	return f.logsByGame[gameID], nil
}

func (f *fakeStore) UpsertLogs(_ context.Context, logs []models.PerformanceRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.upserted = append(f.upserted, logs)
	f.mu.Unlock()
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	writes map[string]map[string]map[string]interface{}
}

func (f *fakeCache) WriteGameMetrics(_ context.Context, gameID string, metrics map[string]map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writes == nil {
		f.writes = make(map[string]map[string]map[string]interface{})
	}
	f.writes[gameID] = metrics
	return nil
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	players   []string
	summaries int
}

func (f *fakeBroadcaster) PublishPlayerUpdate(_ context.Context, rec *models.PerformanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = append(f.players, rec.PlayerID)
	return nil
}

func (f *fakeBroadcaster) PublishCycleSummary(_ context.Context, _ *models.CycleSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries++
	return nil
}

func basketballGame(id string, status models.GameStatus, updatedAt time.Time) models.GameContext {
	return models.GameContext{
		GameID:     id,
		Sport:      models.SportBasketball,
		Status:     status,
		HomeTeamID: "home",
		AwayTeamID: "away",
		UpdatedAt:  updatedAt,
	}
}

func staleLog(gameID, playerID string) models.PerformanceRecord {
	return models.PerformanceRecord{
		GameID:   gameID,
		PlayerID: playerID,
		Sport:    models.SportBasketball,
		RawStats: map[string]interface{}{
			"points":              20.0,
			"fieldGoalsMade":      8.0,
			"fieldGoalsAttempted": 15.0,
		},
		MinutesPlayed: 30,
	}
}

func freshLog(gameID, playerID string) models.PerformanceRecord {
	return models.PerformanceRecord{
		GameID:   gameID,
		PlayerID: playerID,
		Sport:    models.SportBasketball,
		ComputedMetrics: map[string]interface{}{
			"trueShootingPct":    0.6,
			"usageRate":          20.0,
			"fantasyPoints":      30.0,
			models.MetaUpdatedAt: time.Now().UTC().Format(time.RFC3339),
			models.MetaVersion:   "basketball-v2",
		},
	}
}

func TestRunCycleRecomputesOnlyStaleLogs(t *testing.T) {
	gameUpdated := time.Now().Add(-time.Hour)
	store := &fakeStore{
		games: []models.GameContext{basketballGame("g1", models.StatusCompleted, gameUpdated)},
		logsByGame: map[string][]models.PerformanceRecord{
			"g1": {staleLog("g1", "p1"), freshLog("g1", "p2")},
		},
	}
	cache := &fakeCache{}
	bc := &fakeBroadcaster{}

	orch := orchestrator.New(store, cache, bc, registry.New(), orchestrator.Config{})
	summary, err := orch.RunCycle(context.Background(), "")
	if err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if summary.GamesProcessed != 1 {
		t.Errorf("GamesProcessed = %d, want 1", summary.GamesProcessed)
	}
	if summary.LogsUpdated != 1 {
		t.Errorf("LogsUpdated = %d, want 1", summary.LogsUpdated)
	}
	if summary.FailedLogs != 0 {
		t.Errorf("FailedLogs = %d, want 0", summary.FailedLogs)
	}

	if len(store.upserted) != 1 || len(store.upserted[0]) != 1 {
		t.Fatalf("expected a single upsert of one log, got %v", store.upserted)
	}
	written := store.upserted[0][0]
	if written.PlayerID != "p1" {
		t.Errorf("upserted player = %s, want p1", written.PlayerID)
	}
	if _, ok := written.ComputedMetrics["trueShootingPct"]; !ok {
		t.Error("upserted log missing recomputed metrics")
	}

	if _, ok := cache.writes["g1"]["p1"]; !ok {
		t.Error("cache was not warmed for the recomputed log")
	}
	if len(bc.players) != 1 || bc.players[0] != "p1" {
		t.Errorf("player updates = %v, want [p1]", bc.players)
	}
	if bc.summaries != 1 {
		t.Errorf("summary publishes = %d, want 1", bc.summaries)
	}

	if len(summary.Sports) != 1 || summary.Sports[0].Sport != models.SportBasketball {
		t.Errorf("per-sport breakdown = %v", summary.Sports)
	}
}

func TestRunCycleStructuralFailure(t *testing.T) {
	store := &fakeStore{gamesErr: errors.New("connection refused")}
	orch := orchestrator.New(store, &fakeCache{}, &fakeBroadcaster{}, registry.New(), orchestrator.Config{})

	summary, err := orch.RunCycle(context.Background(), "")
	if err == nil {
		t.Fatal("expected error when game selection fails")
	}
	if summary == nil {
		t.Fatal("summary must be returned even on abort")
	}
	if summary.Error == "" {
		t.Error("summary.Error should carry the failure")
	}
	if summary.GamesProcessed != 0 {
		t.Errorf("GamesProcessed = %d, want 0", summary.GamesProcessed)
	}
}

func TestRunCycleProcessesLiveGamesFirst(t *testing.T) {
	gameUpdated := time.Now().Add(-time.Hour)
	store := &fakeStore{
		// Completed game listed first; the live partition must still run first.
		games: []models.GameContext{
			basketballGame("done", models.StatusCompleted, gameUpdated),
			basketballGame("live", models.StatusInProgress, gameUpdated),
		},
		logsByGame: map[string][]models.PerformanceRecord{
			"done": {staleLog("done", "p1")},
			"live": {staleLog("live", "p2")},
		},
	}

	orch := orchestrator.New(store, &fakeCache{}, &fakeBroadcaster{}, registry.New(),
		orchestrator.Config{Workers: 1})
	if _, err := orch.RunCycle(context.Background(), ""); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(store.fetchOrder) != 2 || store.fetchOrder[0] != "live" {
		t.Errorf("fetch order = %v, want live first", store.fetchOrder)
	}
}

func TestRunCycleCountsPerGameFailures(t *testing.T) {
	gameUpdated := time.Now().Add(-time.Hour)
	store := &fakeStore{
		games: []models.GameContext{
			basketballGame("ok", models.StatusCompleted, gameUpdated),
			basketballGame("broken", models.StatusCompleted, gameUpdated),
		},
		logsByGame: map[string][]models.PerformanceRecord{
			"ok": {staleLog("ok", "p1")},
		},
		logsErr: map[string]error{"broken": errors.New("query timeout")},
	}
	bc := &fakeBroadcaster{}

	orch := orchestrator.New(store, &fakeCache{}, bc, registry.New(), orchestrator.Config{})
	summary, err := orch.RunCycle(context.Background(), "")
	if err != nil {
		t.Fatalf("a per-game failure must not abort the cycle: %v", err)
	}

	if summary.GamesProcessed != 2 {
		t.Errorf("GamesProcessed = %d, want 2", summary.GamesProcessed)
	}
	if summary.LogsUpdated != 1 {
		t.Errorf("LogsUpdated = %d, want 1", summary.LogsUpdated)
	}
	if summary.FailedLogs != 1 {
		t.Errorf("FailedLogs = %d, want 1", summary.FailedLogs)
	}
}

func TestRunCycleBatchWriteFailure(t *testing.T) {
	gameUpdated := time.Now().Add(-time.Hour)
	store := &fakeStore{
		games: []models.GameContext{basketballGame("g1", models.StatusCompleted, gameUpdated)},
		logsByGame: map[string][]models.PerformanceRecord{
			"g1": {staleLog("g1", "p1"), staleLog("g1", "p2")},
		},
		upsertErr: errors.New("deadlock detected"),
	}
	cache := &fakeCache{}
	bc := &fakeBroadcaster{}

	orch := orchestrator.New(store, cache, bc, registry.New(), orchestrator.Config{})
	summary, err := orch.RunCycle(context.Background(), "")
	if err != nil {
		t.Fatalf("a batch write failure must not abort the cycle: %v", err)
	}

	if summary.LogsUpdated != 0 {
		t.Errorf("LogsUpdated = %d, want 0 after failed write", summary.LogsUpdated)
	}
	if summary.FailedLogs != 2 {
		t.Errorf("FailedLogs = %d, want 2", summary.FailedLogs)
	}
	if len(cache.writes) != 0 {
		t.Error("cache must not be warmed when the write failed")
	}
	if len(bc.players) != 0 {
		t.Error("player updates must not be published when the write failed")
	}
}
