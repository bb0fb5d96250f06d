// Package scheduler runs the periodic ledger jobs: recurring deposits, the monthly
// balance reset and simulated investment returns.
package scheduler

import (
	"context" // Per-run deadlines
	"time"    // Run timeout

	"github.com/robfig/cron/v3"  // Cron scheduling
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Schedules are cron expressions for each job.
type Schedules struct {
	Recurring    string // Recurring deposit job
	MonthlyReset string // Monthly balance reset job
	Investment   string // Investment return job
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron      *cron.Cron    // Underlying cron runner
	jobs      *Jobs         // Job implementations
	schedules Schedules     // Cron expressions
	timeout   time.Duration // Deadline for a single run
}

// New creates a scheduler in UTC with panic recovery.
func New(jobs *Jobs, schedules Schedules) *Scheduler {
	cronLogger := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return &Scheduler{cron: c, jobs: jobs, schedules: schedules, timeout: 5 * time.Minute}
}

// run wraps a job with a deadline and logging
func (s *Scheduler) run(name string, job func(ctx context.Context, now time.Time) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		n, err := job(ctx, start.UTC())
		if err != nil {
			logrus.WithFields(logrus.Fields{"job": name, "error": err.Error()}).Error("Scheduled job failed")
			return
		}
		logrus.WithFields(logrus.Fields{"job": name, "affected": n, "took": time.Since(start).String()}).Info("Scheduled job finished")
	}
}

// Start registers the jobs and starts the cron scheduler. An invalid
// schedule leaves that job unscheduled and is returned after the rest start.
func (s *Scheduler) Start() error {
	var firstErr error
	for _, entry := range []struct {
		name     string
		schedule string
		job      func(ctx context.Context, now time.Time) (int, error)
	}{
		{"recurring_deposits", s.schedules.Recurring, s.jobs.RunRecurringDeposits},
		{"monthly_reset", s.schedules.MonthlyReset, s.jobs.ResetMonthlyBalances},
		{"investment_returns", s.schedules.Investment, s.jobs.ApplyInvestmentReturns},
	} {
		if _, err := s.cron.AddFunc(entry.schedule, s.run(entry.name, entry.job)); err != nil {
			logrus.WithFields(logrus.Fields{"job": entry.name, "schedule": entry.schedule, "error": err.Error()}).
				Error("Failed to schedule job")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logrus.WithFields(logrus.Fields{"job": entry.name, "schedule": entry.schedule}).Info("Scheduled job")
	}
	s.cron.Start()
	return firstErr
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
