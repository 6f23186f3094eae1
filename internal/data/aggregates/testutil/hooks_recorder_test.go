package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorderStatusesPerOperation(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Purchases.JointPurchase.Join", "success", time.Millisecond)
	h.ObserveOperation("Purchases.JointPurchase.Detach", "not_found", time.Millisecond)
	h.ObserveOperation("Purchases.JointPurchase.Join", "conflict", time.Millisecond)
	h.IncConflict("Purchases.JointPurchase.Join")

	got := h.Statuses("Purchases.JointPurchase.Join")
	if len(got) != 2 || got[0] != "success" || got[1] != "conflict" {
		t.Fatalf("unexpected statuses: %v", got)
	}
	if len(h.Statuses("Purchases.JointPurchase.Create")) != 0 {
		t.Fatalf("unobserved operation should have no statuses")
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 0 {
		t.Fatalf("unexpected counters: conflicts=%v retries=%v", h.Conflicts, h.Retries)
	}
}
