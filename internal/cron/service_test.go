package cron

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int32
	gain  int
}

func (s *countingSweeper) SweepGC() int {
	s.calls.Add(1)
	return s.gain
}

func TestServiceInvalidSchedule(t *testing.T) {
	svc := NewService("not a schedule", &countingSweeper{})
	if err := svc.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestServiceRunsSweep(t *testing.T) {
	sweeper := &countingSweeper{gain: 1}
	svc := NewService("* * * * * *", sweeper)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	deadline := time.After(3 * time.Second)
	for sweeper.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweep never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestServiceStopBeforeStart(t *testing.T) {
	svc := NewService("* * * * * *", &countingSweeper{})
	// Must not panic.
	svc.Stop()
}

func TestRunSweepCallsSweeper(t *testing.T) {
	sweeper := &countingSweeper{gain: 3}
	svc := NewService("* * * * * *", sweeper)

	svc.runSweep()

	if sweeper.calls.Load() != 1 {
		t.Errorf("sweeper called %d times, want 1", sweeper.calls.Load())
	}
}
