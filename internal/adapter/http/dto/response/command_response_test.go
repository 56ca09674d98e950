package response

import (
	"encoding/json"
	"net/http"
	"testing"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/pkg"
)

func TestCommandResponse_JSONShape(t *testing.T) {
	ok, err := json.Marshal(Success(map[string]string{"id": "job_1"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(ok) != `{"ok":true,"entity":{"id":"job_1"}}` {
		t.Fatalf("unexpected success body %s", ok)
	}

	fail, err := json.Marshal(Failure(pkg.NewDomainErrorSimple("NOT_FOUND", "job not found", http.StatusNotFound)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(fail) != `{"ok":false,"error_kind":"NOT_FOUND","message":"job not found"}` {
		t.Fatalf("unexpected failure body %s", fail)
	}
}

func TestFromJob(t *testing.T) {
	j := entities.Job{ID: "job_1", Price: 100, AdditionalWorkTotal: 35.5, Status: entities.JobStatusCompleted}
	res := FromJob(j)
	if res.TotalPrice != 135.5 {
		t.Fatalf("expected 135.5, got %v", res.TotalPrice)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["id"] != "job_1" || decoded["status"] != "completed" || decoded["total_price"] != 135.5 {
		t.Fatalf("expected flattened job fields, got %v", decoded)
	}

	if got := FromJobs(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}
