package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/backfill"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/config"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/registry"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/store"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	_ "github.com/lib/pq"
)

func main() {
	sport := flag.String("sport", "all", "sport to backfill, or 'all'")
	flag.Parse()

	log.Println("Starting stats backfill...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	// Cancelling mid-sweep is safe: progress persists per batch and a
	// restart resumes from the first remaining un-metriced log
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping after current batch")
		cancel()
	}()

	st := store.New(db)
	reg := registry.New()
	engine := backfill.New(st, reg, backfill.Config{
		PageSize:   cfg.Backfill.PageSize,
		BatchSize:  cfg.Backfill.BatchSize,
		SampleSize: cfg.Backfill.SampleSize,
	})

	sports := []string{*sport}
	if *sport == "all" {
		sports = []string{
			models.SportBasketball,
			models.SportFootball,
			models.SportHockey,
			models.SportBaseball,
			models.SportCollegeBasketball,
			models.SportCollegeFootball,
		}
	}

	exitCode := 0
	for _, s := range sports {
		progress, err := engine.Run(ctx, s)
		if err != nil {
			log.Printf("Backfill failed for %s: %v", s, err)
			exitCode = 1
		}
		if progress != nil {
			log.Printf("%s: processed=%d success=%d failed=%d repaired=%d batches=%d",
				s, progress.ProcessedRecords, progress.SuccessCount,
				progress.FailureCount, progress.RepairedGames, progress.CurrentBatchIndex)
		}
		if ctx.Err() != nil {
			break
		}
	}

	log.Println("Backfill finished")
	os.Exit(exitCode)
}
