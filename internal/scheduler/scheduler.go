package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/go-co-op/gocron/v2"
)

// CycleRunner is implemented by the update orchestrator
type CycleRunner interface {
	RunCycle(ctx context.Context, sportFilter string) (*models.CycleSummary, error)
	RunCycleWindow(ctx context.Context, sportFilter string, window time.Duration) (*models.CycleSummary, error)
}

// LiveChecker gates the live trigger on games actually being in progress
type LiveChecker interface {
	HasLiveGames(ctx context.Context) (bool, error)
}

// Config holds the three trigger cadences. All are plain intervals, not
// wall-clock crons.
type Config struct {
	LiveInterval       time.Duration // sub-minute, active only while games are live
	RegularInterval    time.Duration // unconditional refresh
	HistoricalInterval time.Duration // hourly sweep with a wider window
	HistoricalWindow   time.Duration // trailing window for the hourly sweep
}

const (
	defaultLiveInterval       = 30 * time.Second
	defaultRegularInterval    = 2 * time.Minute
	defaultHistoricalInterval = time.Hour
	defaultHistoricalWindow   = 30 * 24 * time.Hour
)

// Scheduler fires the orchestrator on three cadences while guaranteeing at
// most one cycle in flight. Overlapping fires are dropped, not queued, so
// load degrades gracefully instead of compounding backlog.
//
// The guard is process-local; running multiple scheduler instances against
// the same database is not supported.
type Scheduler struct {
	runner      CycleRunner
	liveChecker LiveChecker
	cfg         Config

	cron     gocron.Scheduler
	inFlight atomic.Bool
}

// New creates a scheduler. Zero config fields fall back to defaults.
func New(runner CycleRunner, liveChecker LiveChecker, cfg Config) (*Scheduler, error) {
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = defaultLiveInterval
	}
	if cfg.RegularInterval <= 0 {
		cfg.RegularInterval = defaultRegularInterval
	}
	if cfg.HistoricalInterval <= 0 {
		cfg.HistoricalInterval = defaultHistoricalInterval
	}
	if cfg.HistoricalWindow <= 0 {
		cfg.HistoricalWindow = defaultHistoricalWindow
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		runner:      runner,
		liveChecker: liveChecker,
		cfg:         cfg,
		cron:        cron,
	}, nil
}

// Start registers the three trigger jobs and starts firing them
func (s *Scheduler) Start(ctx context.Context) error {
	type trigger struct {
		name     string
		interval time.Duration
		task     func()
	}

	triggers := []trigger{
		{"live", s.cfg.LiveInterval, func() { s.fireLive(ctx) }},
		{"regular", s.cfg.RegularInterval, func() { s.fireRegular(ctx) }},
		{"historical", s.cfg.HistoricalInterval, func() { s.fireHistorical(ctx) }},
	}

	for _, t := range triggers {
		if _, err := s.cron.NewJob(
			gocron.DurationJob(t.interval),
			gocron.NewTask(t.task),
		); err != nil {
			return err
		}
		log.Printf("[scheduler] registered %s trigger (every %s)", t.name, t.interval)
	}

	s.cron.Start()
	return nil
}

// Stop shuts the trigger jobs down. An in-flight cycle finishes on its own.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// fireLive runs the live trigger only while at least one game is in progress
func (s *Scheduler) fireLive(ctx context.Context) {
	live, err := s.liveChecker.HasLiveGames(ctx)
	if err != nil {
		log.Printf("[scheduler] live check failed: %v", err)
		return
	}
	if !live {
		return
	}
	s.fire(ctx, "live", func(ctx context.Context) (*models.CycleSummary, error) {
		return s.runner.RunCycle(ctx, "")
	})
}

// fireRegular runs the unconditional refresh trigger
func (s *Scheduler) fireRegular(ctx context.Context) {
	s.fire(ctx, "regular", func(ctx context.Context) (*models.CycleSummary, error) {
		return s.runner.RunCycle(ctx, "")
	})
}

// fireHistorical runs the hourly sweep over the wider trailing window
func (s *Scheduler) fireHistorical(ctx context.Context) {
	s.fire(ctx, "historical", func(ctx context.Context) (*models.CycleSummary, error) {
		return s.runner.RunCycleWindow(ctx, "", s.cfg.HistoricalWindow)
	})
}

// fire runs one cycle under the in-flight guard. A fire that arrives while
// a cycle is running is dropped with a log line.
func (s *Scheduler) fire(ctx context.Context, trigger string, run func(context.Context) (*models.CycleSummary, error)) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("[scheduler] %s trigger skipped: cycle already in flight", trigger)
		return
	}
	defer s.inFlight.Store(false)

	if _, err := run(ctx); err != nil {
		log.Printf("[scheduler] %s cycle failed: %v", trigger, err)
	}
}
