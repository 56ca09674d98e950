package entities

import (
	"testing"
	"time"
)

func TestJob_AppendTimelineSortsByTimestamp(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	j := Job{}
	j.AppendTimeline(TimelineEntry{Status: JobStatusBidding, Timestamp: base.Add(2 * time.Minute), Description: "b"})
	j.AppendTimeline(TimelineEntry{Status: JobStatusPosted, Timestamp: base, Description: "a"})
	j.AppendTimeline(TimelineEntry{Status: JobStatusAccepted, Timestamp: base.Add(5 * time.Minute), Description: "d"})
	j.AppendTimeline(TimelineEntry{Status: JobStatusBidding, Timestamp: base.Add(2 * time.Minute), Description: "c"})

	got := ""
	for _, e := range j.ProgressionTimeline {
		got += e.Description
	}
	if got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
}

func TestJob_TransitionRecordsActor(t *testing.T) {
	now := time.Now().UTC()
	j := Job{Status: JobStatusPosted}
	j.Transition(JobStatusBidding, now, "mech-1", "First bid received")

	if j.Status != JobStatusBidding || !j.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected job: %+v", j)
	}
	if len(j.ProgressionTimeline) != 1 || j.ProgressionTimeline[0].Actor != "mech-1" {
		t.Fatalf("unexpected timeline: %+v", j.ProgressionTimeline)
	}
}

func TestJob_MechanicInvariant(t *testing.T) {
	cases := []struct {
		status   JobStatus
		mechanic string
		want     bool
	}{
		{JobStatusPosted, "", true},
		{JobStatusBidding, "mech-1", false},
		{JobStatusAccepted, "mech-1", true},
		{JobStatusPending, "", false},
		{JobStatusCompleted, "mech-1", true},
		{JobStatusCancelled, "", true},
	}
	for _, tc := range cases {
		j := Job{Status: tc.status, MechanicID: tc.mechanic}
		if got := j.MechanicInvariantHolds(); got != tc.want {
			t.Fatalf("status=%s mechanic=%q expected %v got %v", tc.status, tc.mechanic, tc.want, got)
		}
	}
}

func TestJob_CloneDoesNotAlias(t *testing.T) {
	now := time.Now().UTC()
	j := Job{ID: "job-1", ChangeOrderIDs: []string{"co-1"}, Schedule: &JobSchedule{TimeSlot: "am"}}
	j.AppendTimeline(TimelineEntry{Status: JobStatusPosted, Timestamp: now})

	c := j.Clone()
	c.ChangeOrderIDs[0] = "co-2"
	c.ProgressionTimeline[0].Description = "changed"
	c.Schedule.TimeSlot = "pm"

	if j.ChangeOrderIDs[0] != "co-1" || j.ProgressionTimeline[0].Description != "" || j.Schedule.TimeSlot != "am" {
		t.Fatalf("clone aliased original: %+v", j)
	}
}

func TestJobFilter_Matches(t *testing.T) {
	j := Job{CustomerID: "cust-1", MechanicID: "mech-1", Status: JobStatusScheduled}
	if !(JobFilter{}).Matches(j) {
		t.Fatalf("empty filter should match")
	}
	if !(JobFilter{CustomerID: "cust-1", Statuses: []JobStatus{JobStatusPosted, JobStatusScheduled}}).Matches(j) {
		t.Fatalf("expected match")
	}
	if (JobFilter{MechanicID: "mech-2"}).Matches(j) {
		t.Fatalf("unexpected mechanic match")
	}
	if (JobFilter{Statuses: []JobStatus{JobStatusPosted}}).Matches(j) {
		t.Fatalf("unexpected status match")
	}
}

func TestLineItemsTotal(t *testing.T) {
	items, total := LineItemsTotal([]ChangeOrderLineItem{
		{Description: "pads", Quantity: 2, UnitPrice: 20},
		{Description: "labor", UnitPrice: 10},
	})
	if total != 50 {
		t.Fatalf("expected 50, got %v", total)
	}
	if items[1].Quantity != 1 || items[1].Total != 10 {
		t.Fatalf("unexpected normalized item: %+v", items[1])
	}
}
