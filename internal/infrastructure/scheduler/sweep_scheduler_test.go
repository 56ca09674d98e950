package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mecanica_marketplace/internal/usecase"
)

type sweeperSpy struct {
	calls atomic.Int32
	fired chan struct{}
	err   error
}

func newSweeperSpy() *sweeperSpy {
	return &sweeperSpy{fired: make(chan struct{}, 16)}
}

func (s *sweeperSpy) RunExpirationSweep(ctx context.Context) (usecase.SweepReport, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return usecase.SweepReport{}, errors.New("expected a bounded context")
	}
	select {
	case s.fired <- struct{}{}:
	default:
	}
	return usecase.SweepReport{ExpiredJobIDs: []string{"job_1"}}, s.err
}

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"@every 5m", "*/5 * * * *", "@hourly"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Fatalf("expected %q to parse, got %v", expr, err)
		}
	}
	if _, err := ParseSchedule("not-a-cron"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}

func TestNewSweepScheduler_InvalidSchedule(t *testing.T) {
	if _, err := NewSweepScheduler(newSweeperSpy(), "every five minutes"); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestSweepScheduler_RunOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		spy := newSweeperSpy()
		s, err := NewSweepScheduler(spy, "@every 1h")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		report, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.ExpiredJobIDs) != 1 || spy.calls.Load() != 1 {
			t.Fatalf("unexpected report %+v calls=%d", report, spy.calls.Load())
		}
	})

	t.Run("propagates failure", func(t *testing.T) {
		spy := newSweeperSpy()
		spy.err = usecase.ErrDependencyFailure
		s, err := NewSweepScheduler(spy, "@every 1h", WithRunTimeout(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.RunOnce(context.Background()); !errors.Is(err, usecase.ErrDependencyFailure) {
			t.Fatalf("expected dependency failure, got %v", err)
		}
	})
}

func TestSweepScheduler_FiresOnSchedule(t *testing.T) {
	spy := newSweeperSpy()
	s, err := NewSweepScheduler(spy, "@every 1s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	select {
	case <-spy.fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected the sweep to fire within 3s")
	}
}
