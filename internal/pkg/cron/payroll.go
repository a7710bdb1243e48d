package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
)

// StaleRecomputer is the part of the payroll service the sweep needs.
type StaleRecomputer interface {
	RecomputeStale(ctx context.Context, since time.Time) (int, error)
}

var _ StaleRecomputer = (payroll.PayrollService)(nil)

// PayrollJobs recomputes payslips whose attendance changed after they were
// computed, as a fallback for missed queue events.
type PayrollJobs struct {
	payrollService StaleRecomputer
	interval       time.Duration
	lookback       time.Duration
	now            func() time.Time
}

func NewPayrollJobs(payrollService StaleRecomputer, interval, lookback time.Duration) *PayrollJobs {
	return &PayrollJobs{
		payrollService: payrollService,
		interval:       interval,
		lookback:       lookback,
		now:            time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) error {
	return scheduler.AddJob("recompute_stale_payslips", j.interval, j.RecomputeStalePayslips)
}

// RecomputeStalePayslips looks at attendance touched within the lookback window.
func (j *PayrollJobs) RecomputeStalePayslips(ctx context.Context) error {
	since := j.now().Add(-j.lookback)

	count, err := j.payrollService.RecomputeStale(ctx, since)
	if err != nil {
		return fmt.Errorf("recompute stale payslips: %w", err)
	}
	if count > 0 {
		slog.InfoContext(ctx, "cron: stale payslips recomputed", "count", count, "since", since)
	}
	return nil
}
