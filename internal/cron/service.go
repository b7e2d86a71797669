package cron

import (
	"fmt"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Sweeper is the engine-side maintenance surface the scheduler drives.
type Sweeper interface {
	SweepGC() int
}

// Service runs the periodic GC sweep over all clients.
type Service struct {
	schedule string
	sweeper  Sweeper
	cron     *rcron.Cron
}

func NewService(schedule string, sweeper Sweeper) *Service {
	return &Service{schedule: schedule, sweeper: sweeper}
}

func (s *Service) Start() error {
	s.cron = rcron.New(rcron.WithSeconds())

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("register gc sweep %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.Printf("[cron] started, gc sweep schedule %q", s.schedule)
	return nil
}

func (s *Service) runSweep() {
	compacted := s.sweeper.SweepGC()
	if compacted > 0 {
		log.Printf("[cron] gc sweep compacted %d clients", compacted)
	}
}

func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[cron] stop timeout waiting for running jobs")
	}
	log.Printf("[cron] stopped")
}
