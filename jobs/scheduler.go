// Package jobs runs recurring billing work in the background.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/satheeshds/roomrent/billing"
)

// Biller is the part of billing.Service the scheduler drives.
type Biller interface {
	MarkOverdue(ctx context.Context) (int64, error)
	GenerateMonthly(ctx context.Context, year, month int) (*billing.GenerationResult, error)
}

// Scheduler sweeps overdue invoices on every tick and, when GenerateDay is
// set, generates the month's invoices once that day has been reached.
type Scheduler struct {
	biller      Biller
	interval    time.Duration
	generateDay int
	logger      *slog.Logger
	now         func() time.Time

	lastGenerated string
}

// New creates a scheduler. generateDay of zero disables monthly generation.
func New(b Biller, interval time.Duration, generateDay int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		biller:      b,
		interval:    interval,
		generateDay: generateDay,
		logger:      logger,
		now:         time.Now,
	}
}

// Run ticks until ctx is cancelled. The first pass runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval, "generate_day", s.generateDay)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass. Failures are logged and retried on the
// next tick.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()

	if s.generateDay > 0 && now.Day() >= s.generateDay {
		period := now.Format("2006-01")
		if period != s.lastGenerated {
			res, err := s.biller.GenerateMonthly(ctx, now.Year(), int(now.Month()))
			if err != nil {
				s.logger.Error("monthly generation failed", "period", period, "error", err)
			} else {
				s.lastGenerated = period
				s.logger.Info("monthly generation", "period", period, "created", res.Created, "skipped", res.Skipped)
			}
		}
	}

	n, err := s.biller.MarkOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("invoices marked overdue", "count", n)
	}
}
