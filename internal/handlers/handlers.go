package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/backfill"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/cache"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/orchestrator"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/store"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler is the thin HTTP adapter over the pipeline. It only forwards to
// RunCycle, the cache and the store; no pipeline logic lives here.
type Handler struct {
	orch   *orchestrator.Orchestrator
	engine *backfill.Engine
	cache  *cache.RedisWriter
	store  *store.Store
	hub    *ws.Hub
	ctx    context.Context
}

// NewHandler creates a handler
func NewHandler(orch *orchestrator.Orchestrator, engine *backfill.Engine, cacheWriter *cache.RedisWriter, st *store.Store, hub *ws.Hub, ctx context.Context) *Handler {
	return &Handler{
		orch:   orch,
		engine: engine,
		cache:  cacheWriter,
		store:  st,
		hub:    hub,
		ctx:    ctx,
	}
}

// HandleHealth returns service health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "ultimate-stats",
		"active_clients": h.hub.ClientCount(),
	})
}

// HandleRunCycle triggers one orchestrator cycle, optionally filtered by
// the "sport" query parameter, and returns its summary.
func (h *Handler) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("sport")

	summary, err := h.orch.RunCycle(r.Context(), sport)
	if err != nil {
		// The summary carries the cycle-level error
		respondJSON(w, http.StatusInternalServerError, summary)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// HandleGameMetrics serves the playerID -> metric bag mapping for a game,
// from cache when warm, rebuilding (and re-warming) from the store on a
// miss.
func (h *Handler) HandleGameMetrics(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "missing game ID")
		return
	}

	metrics, err := h.cache.ReadGameMetrics(r.Context(), gameID)
	if err == nil && metrics != nil {
		respondJSON(w, http.StatusOK, metrics)
		return
	}

	logs, err := h.store.LogsByGame(r.Context(), gameID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("fetch logs: %v", err))
		return
	}

	metrics = make(map[string]map[string]interface{}, len(logs))
	for i := range logs {
		if logs[i].HasMetrics() {
			metrics[logs[i].PlayerID] = logs[i].ComputedMetrics
		}
	}

	if len(metrics) > 0 {
		if err := h.cache.WriteGameMetrics(r.Context(), gameID, metrics); err != nil {
			log.Printf("[http] cache warm failed for game %s: %v", gameID, err)
		}
	}

	respondJSON(w, http.StatusOK, metrics)
}

// HandleStartBackfill kicks off a backfill sweep for one sport. The sweep
// runs in the background on the service context; progress is readable via
// HandleBackfillProgress.
func (h *Handler) HandleStartBackfill(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")
	if sport == "" {
		respondError(w, http.StatusBadRequest, "missing sport")
		return
	}

	go func() {
		if _, err := h.engine.Run(h.ctx, sport); err != nil {
			log.Printf("[http] backfill %s failed: %v", sport, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"sport":  sport,
	})
}

// HandleBackfillProgress returns the last persisted progress row for a sport
func (h *Handler) HandleBackfillProgress(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")
	if sport == "" {
		respondError(w, http.StatusBadRequest, "missing sport")
		return
	}

	progress, err := h.store.BackfillProgressBySport(r.Context(), sport)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("load progress: %v", err))
		return
	}
	if progress == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no backfill has run for %s", sport))
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// HandleWebSocket upgrades the connection and registers it with the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := ws.NewClient(uuid.New().String(), conn, h.hub)
	h.hub.Register(c)

	// Use the service context, not the request context, so the pumps
	// survive the HTTP handler returning
	go c.WritePump(h.ctx)
	go c.ReadPump(h.ctx)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
