package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
)

func TestExecuteWriteOutcomes(t *testing.T) {
	cases := []struct {
		name      string
		body      error
		code      domainagg.ErrorCode
		conflicts int
		retries   int
	}{
		{name: "committed", body: nil, code: ""},
		{name: "domain rejection passes through", body: notJoint("Purchases.JointPurchase.Detach"), code: domainagg.CodeNotFound},
		{name: "sqlite unique violation", body: errors.New("UNIQUE constraint failed: joint_purchase_participant.purchase_id"), code: domainagg.CodeConflict, conflicts: 1},
		{name: "lost cas", body: ConflictError(domainagg.ReasonNotJoint), code: domainagg.CodeConflict, conflicts: 1},
		{name: "deadline", body: context.DeadlineExceeded, code: domainagg.CodeRetryable, retries: 1},
		{name: "unknown failure", body: errors.New("disk full"), code: domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &spyHooks{}
			err := executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks},
				"Purchases.JointPurchase.Join", func(_ dbctx.Context) error { return tc.body })

			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("code: want=%s got=%v", tc.code, err)
			}
			if len(hooks.Conflicts) != tc.conflicts || len(hooks.Retries) != tc.retries {
				t.Fatalf("counters: conflicts=%v retries=%v", hooks.Conflicts, hooks.Retries)
			}
			if len(hooks.Operations) != 1 || hooks.Operations[0].Name != "Purchases.JointPurchase.Join" {
				t.Fatalf("operations: %+v", hooks.Operations)
			}
			if want := aggregateErrorStatus(err); hooks.Operations[0].Status != want {
				t.Fatalf("status: want=%s got=%s", want, hooks.Operations[0].Status)
			}
		})
	}
}

func TestExecuteWriteRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	deps := BaseDeps{Runner: spyTxRunner{}, Hooks: &spyHooks{}}
	_ = executeWrite(context.Background(), deps, "Purchases.JointPurchase.UpdateVolume", func(_ dbctx.Context) error { return nil })
	_ = executeWrite(context.Background(), deps, "Purchases.JointPurchase.UpdateMinVolume", func(_ dbctx.Context) error {
		return rejected("Purchases.JointPurchase.UpdateMinVolume", domainagg.ReasonGreaterThanRemaining)
	})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans: want=2 got=%d", len(spans))
	}
	if spans[0].Name() != "Purchases.JointPurchase.UpdateVolume" || spans[0].Status().Code == codes.Error {
		t.Fatalf("unexpected success span: %s %+v", spans[0].Name(), spans[0].Status())
	}
	failed := spans[1]
	if failed.Status().Code != codes.Error || failed.Status().Description != domainagg.ReasonGreaterThanRemaining {
		t.Fatalf("unexpected failure status: %+v", failed.Status())
	}
	var status string
	for _, kv := range failed.Attributes() {
		if kv.Key == "aggregate.status" {
			status = kv.Value.AsString()
		}
	}
	if status != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("aggregate.status attribute: got=%q", status)
	}
}

func TestBaseDepsDefaults(t *testing.T) {
	deps := BaseDeps{}.withDefaults()
	if deps.Runner == nil || deps.Hooks == nil {
		t.Fatalf("runner and hooks should default")
	}
	if _, ok := deps.Hooks.(noopHooks); !ok {
		t.Fatalf("hooks without a logger should be a no-op, got %T", deps.Hooks)
	}
	if now := deps.Now(); now.Location() != time.UTC {
		t.Fatalf("default clock should be UTC, got %v", now.Location())
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deps = BaseDeps{Now: func() time.Time { return fixed }}.withDefaults()
	if !deps.Now().Equal(fixed) {
		t.Fatalf("explicit clock should be kept")
	}

	hooks := &spyHooks{}
	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "  ", func(_ dbctx.Context) error { return nil })
	if hooks.Operations[0].Name != "aggregate.write" {
		t.Fatalf("blank op should fall back, got %q", hooks.Operations[0].Name)
	}
}

func TestGormTxRunnerWithoutDB(t *testing.T) {
	err := NewGormTxRunner(nil).InTx(context.Background(), func(_ dbctx.Context) error { return nil })
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

// spyTxRunner runs the body without a transaction; repos fall back to their own db handle.
type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyOperation struct {
	Name   string
	Status string
}

type spyHooks struct {
	mu         sync.Mutex
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}
