package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/backfill"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/broadcast"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/cache"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/config"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/orchestrator"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/registry"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/scheduler"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/store"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting Ultimate Stats Service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to Postgres
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to Postgres")

	// Connect to Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	// Wire the pipeline; everything is constructed here and passed
	// explicitly so tests can substitute fakes
	st := store.New(db)
	reg := registry.New()
	cacheWriter := cache.NewRedisWriter(redisClient, cfg.Pipeline.CacheTTL)
	publisher := broadcast.NewPublisher(redisClient)

	orch := orchestrator.New(st, cacheWriter, publisher, reg, orchestrator.Config{
		Window:    cfg.Pipeline.Window,
		BatchSize: cfg.Pipeline.GameBatchSize,
		Workers:   cfg.Pipeline.Workers,
	})

	sched, err := scheduler.New(orch, st, scheduler.Config{
		LiveInterval:       cfg.Scheduler.LiveInterval,
		RegularInterval:    cfg.Scheduler.RegularInterval,
		HistoricalInterval: cfg.Scheduler.HistoricalInterval,
		HistoricalWindow:   cfg.Scheduler.HistoricalWindow,
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// The HTTP adapter can kick off sweeps too; the dedicated operator
	// binary is cmd/stats-backfill
	engine := backfill.New(st, reg, backfill.Config{
		PageSize:   cfg.Backfill.PageSize,
		BatchSize:  cfg.Backfill.BatchSize,
		SampleSize: cfg.Backfill.SampleSize,
	})

	// WebSocket fan-out of the broadcast channels
	hub := ws.NewHub()
	go hub.Run(ctx)
	relay := ws.NewRelay(redisClient, hub)
	go relay.Run(ctx)

	// HTTP adapter
	handler := handlers.NewHandler(orch, engine, cacheWriter, st, hub, ctx)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handler.HandleHealth)
	r.Post("/api/cycles/run", handler.HandleRunCycle)
	r.Get("/api/games/{gameID}/metrics", handler.HandleGameMetrics)
	r.Post("/api/backfill/{sport}", handler.HandleStartBackfill)
	r.Get("/api/backfill/{sport}", handler.HandleBackfillProgress)
	r.Get("/ws", handler.HandleWebSocket)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Start the triggers
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal")
	cancel()

	if err := sched.Stop(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	log.Println("Ultimate Stats Service stopped")
}
