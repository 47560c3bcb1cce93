package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
)

type fakeRunner struct {
	mu          sync.Mutex
	cycles      int
	windowCalls []time.Duration
	block       chan struct{} // when set, RunCycle blocks until closed
	started     chan struct{}
}

func (f *fakeRunner) RunCycle(_ context.Context, _ string) (*models.CycleSummary, error) {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return &models.CycleSummary{}, nil
}

func (f *fakeRunner) RunCycleWindow(_ context.Context, _ string, window time.Duration) (*models.CycleSummary, error) {
	f.mu.Lock()
	f.windowCalls = append(f.windowCalls, window)
	f.mu.Unlock()
	return &models.CycleSummary{}, nil
}

func (f *fakeRunner) cycleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

type fakeLiveChecker struct {
	live bool
	err  error
}

func (f *fakeLiveChecker) HasLiveGames(_ context.Context) (bool, error) {
	return f.live, f.err
}

func TestInFlightGuardDropsOverlappingFire(t *testing.T) {
	runner := &fakeRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s, err := New(runner, &fakeLiveChecker{}, Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.fireRegular(context.Background())
		close(done)
	}()
	<-runner.started

	// Second fire arrives while the first cycle is still running.
	s.fireRegular(context.Background())

	close(runner.block)
	<-done

	if got := runner.cycleCount(); got != 1 {
		t.Errorf("cycles run = %d, want 1 (overlap must be dropped)", got)
	}

	// After the cycle finishes the guard is released again.
	runner.block = nil
	runner.started = nil
	s.fireRegular(context.Background())
	if got := runner.cycleCount(); got != 2 {
		t.Errorf("cycles run = %d, want 2 after guard release", got)
	}
}

func TestLiveTriggerGate(t *testing.T) {
	tests := []struct {
		name       string
		checker    *fakeLiveChecker
		wantCycles int
	}{
		{"No live games", &fakeLiveChecker{live: false}, 0},
		{"Check fails", &fakeLiveChecker{err: errors.New("db down")}, 0},
		{"Live games in progress", &fakeLiveChecker{live: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s, err := New(runner, tt.checker, Config{})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			s.fireLive(context.Background())

			if got := runner.cycleCount(); got != tt.wantCycles {
				t.Errorf("cycles run = %d, want %d", got, tt.wantCycles)
			}
		})
	}
}

func TestHistoricalTriggerUsesWiderWindow(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, &fakeLiveChecker{}, Config{HistoricalWindow: 720 * time.Hour})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.fireHistorical(context.Background())

	if len(runner.windowCalls) != 1 {
		t.Fatalf("RunCycleWindow calls = %d, want 1", len(runner.windowCalls))
	}
	if runner.windowCalls[0] != 720*time.Hour {
		t.Errorf("window = %s, want 720h", runner.windowCalls[0])
	}
}

func TestConfigDefaults(t *testing.T) {
	s, err := New(&fakeRunner{}, &fakeLiveChecker{}, Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if s.cfg.LiveInterval != defaultLiveInterval {
		t.Errorf("LiveInterval = %s, want %s", s.cfg.LiveInterval, defaultLiveInterval)
	}
	if s.cfg.RegularInterval != defaultRegularInterval {
		t.Errorf("RegularInterval = %s, want %s", s.cfg.RegularInterval, defaultRegularInterval)
	}
	if s.cfg.HistoricalInterval != defaultHistoricalInterval {
		t.Errorf("HistoricalInterval = %s, want %s", s.cfg.HistoricalInterval, defaultHistoricalInterval)
	}
	if s.cfg.HistoricalWindow != defaultHistoricalWindow {
		t.Errorf("HistoricalWindow = %s, want %s", s.cfg.HistoricalWindow, defaultHistoricalWindow)
	}
}
