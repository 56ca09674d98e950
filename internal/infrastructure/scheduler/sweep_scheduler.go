// Package scheduler runs the expiration sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"mecanica_marketplace/internal/usecase"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron and descriptors like "@every 5m".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

type Option func(*SweepScheduler)

// WithRunTimeout bounds a single sweep run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *SweepScheduler) { s.runTimeout = d }
}

// SweepScheduler triggers ISweepUseCase.RunExpirationSweep. Overlapping runs
// are skipped, a slow sweep never stacks up behind itself.
type SweepScheduler struct {
	cron       *cronlib.Cron
	sweeper    usecase.ISweepUseCase
	schedule   string
	runTimeout time.Duration
}

func NewSweepScheduler(sweeper usecase.ISweepUseCase, schedule string, opts ...Option) (*SweepScheduler, error) {
	if _, err := ParseSchedule(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	logger := cronlib.PrintfLogger(log.New(os.Stderr, "[sweep][scheduler] ", log.LstdFlags))
	s := &SweepScheduler{
		cron: cronlib.New(
			cronlib.WithParser(cronParser),
			cronlib.WithChain(cronlib.Recover(logger), cronlib.SkipIfStillRunning(logger)),
		),
		sweeper:    sweeper,
		schedule:   schedule,
		runTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("register sweep: %w", err)
	}
	return s, nil
}

// Start begins firing in the background.
func (s *SweepScheduler) Start() {
	log.Printf("[sweep][scheduler] started schedule=%q", s.schedule)
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep to finish or ctx to end.
func (s *SweepScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Printf("[sweep][scheduler] stopped")
	case <-ctx.Done():
		log.Printf("[sweep][scheduler] stop timed out err=%v", ctx.Err())
	}
}

// RunOnce executes one sweep and logs its outcome.
func (s *SweepScheduler) RunOnce(ctx context.Context) (usecase.SweepReport, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.sweeper.RunExpirationSweep(ctx)
	if err != nil {
		log.Printf("[sweep][scheduler] run failed err=%v", err)
		return report, err
	}
	log.Printf("[sweep][scheduler] run done expired=%d expiring=%d change_orders=%d failures=%d took=%s",
		len(report.ExpiredJobIDs), len(report.ExpiringJobIDs), len(report.ExpiredChangeOrderIDs),
		len(report.Failures), time.Since(start).Round(time.Millisecond))
	return report, nil
}
