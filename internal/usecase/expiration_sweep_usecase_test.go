package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mecanica_marketplace/internal/domain/entities"
)

func TestSweep_ExpiresStalePostings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	j := f.postJob(t, "cust-1")
	f.bid(t, j.ID, "mech-1", 90)
	f.clock.Advance(25 * time.Hour)

	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredJobIDs) != 1 || report.ExpiredJobIDs[0] != j.ID {
		t.Fatalf("unexpected report %+v", report)
	}
	got := f.job(t, j.ID)
	if got.Status != entities.JobStatusCancelled || got.CancellationReason != entities.CancellationReasonExpired {
		t.Fatalf("unexpected job after sweep %+v", got)
	}
	assertMechanicInvariant(t, got)
	last := got.ProgressionTimeline[len(got.ProgressionTimeline)-1]
	if last.Actor != systemActor || last.Status != entities.JobStatusCancelled {
		t.Fatalf("unexpected last timeline entry %+v", last)
	}

	bids, _ := f.engine.GetBidsByJob(ctx, j.ID)
	if len(bids) != 1 || bids[0].Status != entities.BidStatusDeclined {
		t.Fatalf("expected the bid declined, got %+v", bids)
	}
	if f.notifier.count("cust-1", entities.EventJobCancelled) != 1 || f.notifier.count("mech-1", entities.EventBidDeclined) != 1 {
		t.Fatalf("expected both parties notified, got %+v", f.notifier.sent)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != entities.EventJobsExpired {
		t.Fatalf("expected one jobs_expired event, got %v", names)
	}

	again, err := f.engine.RunExpirationSweep(ctx)
	if err != nil || len(again.ExpiredJobIDs) != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %+v err=%v", again, err)
	}
}

func TestSweep_PostingDeadlineBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.postJob(t, "cust-1")

	f.clock.Advance(24 * time.Hour)
	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredJobIDs) != 0 || len(report.ExpiringJobIDs) != 0 {
		t.Fatalf("expected nothing at exactly 24h, got %+v", report)
	}
	if got := f.job(t, j.ID); got.Status != entities.JobStatusPosted || got.IsExpiring {
		t.Fatalf("unexpected job at the deadline %+v", got)
	}

	f.clock.Advance(time.Nanosecond)
	report, err = f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredJobIDs) != 1 {
		t.Fatalf("expected expiry just past the deadline, got %+v", report)
	}
}

func TestSweep_FlagsExpiringOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.postJob(t, "cust-1")

	f.clock.Advance(20 * time.Hour)
	first, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(first.ExpiringJobIDs) != 1 || first.ExpiringJobIDs[0] != j.ID {
		t.Fatalf("expected job flagged, got %+v", first)
	}
	flagged := f.job(t, j.ID)
	if !flagged.IsExpiring || flagged.ExpiringAt == nil || !flagged.ExpiringAt.Equal(j.CreatedAt.Add(24*time.Hour)) {
		t.Fatalf("unexpected flagged job %+v", flagged)
	}

	second, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(second.ExpiringJobIDs) != 0 {
		t.Fatalf("expected no re-flag, got %+v", second)
	}

	f.clock.Advance(3 * time.Hour)
	if _, err := f.engine.RunExpirationSweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := f.job(t, j.ID); !got.IsExpiring || got.Status != entities.JobStatusPosted {
		t.Fatalf("expected flag to stay set below the warning window, got %+v", got)
	}

	names := f.events.names()
	if len(names) != 1 || names[0] != entities.EventJobsExpiringSoon {
		t.Fatalf("expected a single jobs_expiring_soon event, got %v", names)
	}
}

func TestSweep_LeavesAcceptedJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	j := f.postJob(t, "cust-1")
	b := f.bid(t, j.ID, "mech-1", 100)
	if _, err := f.engine.AcceptBid(ctx, b.ID, "cust-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	f.clock.Advance(30 * time.Hour)

	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredJobIDs) != 0 {
		t.Fatalf("expected accepted job to be left alone, got %+v", report)
	}
	if got := f.job(t, j.ID); got.Status != entities.JobStatusAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
}

func TestSweep_RacesWithAccept(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		j := f.postJob(t, "cust-1")
		b := f.bid(t, j.ID, "mech-1", 100)
		f.clock.Advance(25 * time.Hour)

		var wg sync.WaitGroup
		var acceptErr, sweepErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, acceptErr = f.engine.AcceptBid(ctx, b.ID, "cust-1")
		}()
		go func() {
			defer wg.Done()
			_, sweepErr = f.engine.RunExpirationSweep(ctx)
		}()
		wg.Wait()
		if sweepErr != nil {
			t.Fatalf("sweep: %v", sweepErr)
		}

		got := f.job(t, j.ID)
		bids, _ := f.engine.GetBidsByJob(ctx, j.ID)
		assertMechanicInvariant(t, got)
		switch got.Status {
		case entities.JobStatusAccepted:
			if acceptErr != nil || bids[0].Status != entities.BidStatusAccepted {
				t.Fatalf("accept won but state is inconsistent: err=%v bid=%s", acceptErr, bids[0].Status)
			}
		case entities.JobStatusCancelled:
			if !errors.Is(acceptErr, ErrInvalidState) {
				t.Fatalf("expected accept to fail on a closed job, got %v", acceptErr)
			}
			if bids[0].Status != entities.BidStatusDeclined {
				t.Fatalf("sweep won but bid is %s", bids[0].Status)
			}
		default:
			t.Fatalf("unexpected job status %s", got.Status)
		}
	}
}

func TestSweep_ExpiresChangeOrdersPastDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.inProgressJob(t)
	co := f.changeOrder(t, j.ID, 45)

	f.clock.Advance(48 * time.Hour)
	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredChangeOrderIDs) != 0 {
		t.Fatalf("expected change order alive at its deadline, got %+v", report)
	}

	f.clock.Advance(time.Second)
	report, err = f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredChangeOrderIDs) != 1 || report.ExpiredChangeOrderIDs[0] != co.ID {
		t.Fatalf("expected change order expired, got %+v", report)
	}
	expired := f.changeOrderByID(t, co.ID)
	if expired.Status != entities.ChangeOrderStatusExpired || expired.ResolutionReason != entities.ChangeOrderReasonDeadline {
		t.Fatalf("unexpected expired change order %+v", expired)
	}
	if got := f.job(t, j.ID); got.Status != entities.JobStatusInProgress {
		t.Fatalf("expected paused job resumed, got %s", got.Status)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != entities.EventChangeOrdersExpired {
		t.Fatalf("expected one change_orders_expired event, got %v", names)
	}
}

func TestSweep_CancelledContextIsReportedPerJob(t *testing.T) {
	f := newFixture(t)
	f.postJob(t, "cust-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected the cancelled context to be reported per job, got %+v", report)
	}
}

func TestSweep_OneNotificationPerRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var jobIDs []string
	for i := 0; i < 3; i++ {
		j := f.postJob(t, "cust-1")
		f.bid(t, j.ID, "mech-1", 90)
		jobIDs = append(jobIDs, j.ID)
	}
	lone := f.postJob(t, "cust-2")
	f.clock.Advance(25 * time.Hour)

	report, err := f.engine.RunExpirationSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.ExpiredJobIDs) != 4 {
		t.Fatalf("expected 4 expired jobs, got %+v", report)
	}

	if f.notifier.count("cust-1", entities.EventJobCancelled) != 1 || f.notifier.count("mech-1", entities.EventBidDeclined) != 1 {
		t.Fatalf("expected one summary per recipient, got %+v", f.notifier.sent)
	}
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	for _, n := range f.notifier.sent {
		if n.Event != entities.EventJobCancelled && n.Event != entities.EventBidDeclined {
			continue
		}
		switch n.RecipientID {
		case "cust-1", "mech-1":
			if n.Payload["count"] != 3 || len(n.Payload["jobIds"].([]string)) != 3 || n.Payload["jobIds"].([]string)[0] != jobIDs[0] {
				t.Fatalf("unexpected summary %+v", n)
			}
		case "cust-2":
			if n.JobID != lone.ID || n.Payload["reason"] != entities.CancellationReasonExpired {
				t.Fatalf("expected a lone notification to keep its shape, got %+v", n)
			}
		}
	}
}
