// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"

	"github.com/danielhkuo/movienight/metrics"
)

// DefaultSweepSchedule runs the expiry sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweeper closes expired sessions on a cron schedule.
type Sweeper struct {
	svc     *Service
	cron    *cron.Cron
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewSweeper(svc *Service, schedule string, m *metrics.Metrics) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		svc:     svc,
		cron:    cron.New(),
		metrics: m,
		timeout: 30 * time.Second,
	}
	if err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("Expiry sweeper started")
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.svc.CloseExpired(ctx)
	s.metrics.ObserveSweep(time.Since(start))
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err, "closed", n)
		return
	}
	if n > 0 {
		slog.Info("Expiry sweep closed sessions", "closed", n)
	}
}
