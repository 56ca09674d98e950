package idgen

import (
	"sort"
	"strings"
	"testing"
	"time"

	"mecanica_marketplace/internal/domain/entities"

	"github.com/google/uuid"
)

// embeddedTime reads the creation time back out of a generated id.
func embeddedTime(t *testing.T, id string) time.Time {
	t.Helper()
	_, suffix, ok := strings.Cut(id, "_")
	if !ok {
		t.Fatalf("expected prefix_uuid, got %q", id)
	}
	u, err := uuid.Parse(suffix)
	if err != nil {
		t.Fatalf("unexpected parse error for %s: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("expected a v7 uuid in %s, got v%d", id, u.Version())
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

func TestGenerator_Prefixes(t *testing.T) {
	g := New()
	cases := map[string]string{
		"job_": g.NewJobID(),
		"bid_": g.NewBidID(),
		"co_":  g.NewChangeOrderID(),
	}
	for prefix, id := range cases {
		if !strings.HasPrefix(id, prefix) {
			t.Fatalf("expected %s prefix, got %s", prefix, id)
		}
		embeddedTime(t, id)
	}
}

func TestGenerator_SortableByCreation(t *testing.T) {
	g := New()
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, g.NewJobID())
		time.Sleep(2 * time.Millisecond)
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("ids are not sorted: %v", ids)
	}
}

func TestGenerator_EmbedsCreationTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New().NewBidID()
	after := time.Now().Add(time.Second)

	if ts := embeddedTime(t, id); ts.Before(before) || ts.After(after) {
		t.Fatalf("timestamp %v outside [%v, %v]", ts, before, after)
	}
}

func TestEscrowPaymentIDFor_FollowsChangeOrder(t *testing.T) {
	co := New().NewChangeOrderID()
	esc := entities.EscrowPaymentIDFor(co)
	if esc != "esc_"+strings.TrimPrefix(co, "co_") {
		t.Fatalf("expected escrow id to reuse the change order suffix, got %s for %s", esc, co)
	}
	if entities.EscrowPaymentIDFor(co) != esc {
		t.Fatalf("expected a stable escrow id")
	}
}
