package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_PostgresCodes(t *testing.T) {
	if err := MapError("op", &pgconn.PgError{Code: "23505"}); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("unique violation: got %q", domainagg.CodeOf(err))
	}
	if err := MapError("op", &pgconn.PgError{Code: "40001"}); !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("serialization failure: got %q", domainagg.CodeOf(err))
	}
}

func TestMapError_SQLiteUniqueConstraint(t *testing.T) {
	err := MapError("op", errors.New("UNIQUE constraint failed: joint_purchase_participant.purchase_id"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q", domainagg.CodeOf(err))
	}
}

func TestMapError_Fallbacks(t *testing.T) {
	cases := []struct {
		err  error
		code domainagg.ErrorCode
	}{
		{fmt.Errorf("load: %w", domainagg.NewError(domainagg.CodeNotFound, "op", domainagg.ReasonNoSuchPurchase, nil)), domainagg.CodeNotFound},
		{&pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{errors.New("database is locked"), domainagg.CodeRetryable},
		{context.Canceled, domainagg.CodeRetryable},
		{errors.New("disk on fire"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		if got := domainagg.CodeOf(MapError("op", tc.err)); got != tc.code {
			t.Fatalf("%v: got %q want %q", tc.err, got, tc.code)
		}
	}
}
