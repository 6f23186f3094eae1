package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/jointbuy-backend/internal/domain/purchases"
)

var JointPurchaseAggregateContract = Contract{
	Name:             "Purchases.JointPurchaseAggregate",
	RootTable:        "joint_purchase",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns capacity accounting, participant membership, black/white lists and the audit history of a joint purchase.",
}

// JointPurchaseAggregate owns every state-mutating operation of a joint purchase.
//
// Each write re-reads the purchase, checks its preconditions and commits through a
// version compare-and-set in one transaction together with its history entry.
// Failures are *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvariantViolation, CodeAccessDenied, CodeConflict, CodeRetryable, CodeInternal.
type JointPurchaseAggregate interface {
	Aggregate

	Create(ctx context.Context, in CreatePurchaseInput) (PurchaseWriteResult, error)

	// UpdateField sets one of ModifiableFields. Creator only.
	UpdateField(ctx context.Context, in UpdateFieldInput) (PurchaseWriteResult, error)
	// UpdateVolume changes the total volume without dropping below the committed volume. Creator only.
	UpdateVolume(ctx context.Context, in UpdateVolumeInput) (PurchaseWriteResult, error)
	// UpdateMinVolume changes the per-participant minimum. Creator only.
	UpdateMinVolume(ctx context.Context, in UpdateVolumeInput) (PurchaseWriteResult, error)
	// UpdateIsPublic toggles visibility and clears the white list. Creator only.
	UpdateIsPublic(ctx context.Context, in UpdateIsPublicInput) (PurchaseWriteResult, error)

	AddToBlackList(ctx context.Context, in ListMemberInput) (PurchaseWriteResult, error)
	RemoveFromBlackList(ctx context.Context, in ListMemberInput) (PurchaseWriteResult, error)
	AddToWhiteList(ctx context.Context, in ListMemberInput) (PurchaseWriteResult, error)
	RemoveFromWhiteList(ctx context.Context, in ListMemberInput) (PurchaseWriteResult, error)

	Join(ctx context.Context, in JoinInput) (PurchaseWriteResult, error)
	JoinFake(ctx context.Context, in JoinFakeInput) (PurchaseWriteResult, error)
	Detach(ctx context.Context, in DetachInput) (PurchaseWriteResult, error)
	DetachFake(ctx context.Context, in DetachFakeInput) (PurchaseWriteResult, error)

	UpdatePayment(ctx context.Context, in ParticipantMarkInput) (PurchaseWriteResult, error)
	UpdateFakePayment(ctx context.Context, in FakeParticipantMarkInput) (PurchaseWriteResult, error)
	UpdateSent(ctx context.Context, in ParticipantMarkInput) (PurchaseWriteResult, error)
	UpdateFakeSent(ctx context.Context, in FakeParticipantMarkInput) (PurchaseWriteResult, error)
	// UpdateDelivery is performed by the participant on their own entry.
	UpdateDelivery(ctx context.Context, in UpdateDeliveryInput) (PurchaseWriteResult, error)
}

// Generic field names accepted by UpdateField. volume and min_volume have dedicated operations.
const (
	FieldName            = "name"
	FieldPicture         = "picture"
	FieldDescription     = "description"
	FieldCategory        = "category"
	FieldPricePerUnit    = "price_per_unit"
	FieldAddress         = "address"
	FieldMeasurementUnit = "measurement_unit"
	FieldDate            = "date"
	FieldState           = "state"
	FieldPaymentType     = "payment_type"
	FieldPaymentInfo     = "payment_info"
	FieldIsPublic        = "is_public"
)

var ModifiableFields = map[string]bool{
	FieldName:            true,
	FieldPicture:         true,
	FieldDescription:     true,
	FieldCategory:        true,
	FieldPricePerUnit:    true,
	FieldAddress:         true,
	FieldMeasurementUnit: true,
	FieldDate:            true,
	FieldState:           true,
	FieldPaymentType:     true,
	FieldPaymentInfo:     true,
	FieldIsPublic:        true,
}

// CreatePurchaseInput is the creator-supplied payload. Pointer fields distinguish "missing" from zero.
type CreatePurchaseInput struct {
	CreatorID uuid.UUID  `json:"-"`
	GoodID    *uuid.UUID `json:"-"`

	Name              string     `json:"name" validate:"required"`
	Picture           string     `json:"picture" validate:"required"`
	Description       string     `json:"description" validate:"required"`
	CategoryID        string     `json:"category" validate:"required,uuid"`
	Address           string     `json:"address" validate:"required"`
	Volume            *float64   `json:"volume" validate:"required,gt=0"`
	MinVolume         *float64   `json:"min_volume" validate:"required,gt=0"`
	PricePerUnit      *float64   `json:"price_per_unit" validate:"required,gte=0"`
	MeasurementUnitID string     `json:"measurement_unit" validate:"required,uuid"`
	Date              *time.Time `json:"date" validate:"required"`
	State             *int       `json:"state" validate:"required,min=0,max=2"`
	PaymentType       *int       `json:"payment_type" validate:"required,min=0,max=2"`
	PaymentInfo       string     `json:"payment_info"`
	IsPublic          *bool      `json:"is_public" validate:"required"`
	CityID            string     `json:"city" validate:"required,uuid"`
}

type UpdateFieldInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	Name       string
	Value      any
}

type UpdateVolumeInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	Volume     float64
}

type UpdateIsPublicInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	IsPublic   bool
}

// ListMemberInput targets UserID on the black or white list of a purchase owned by ActorID.
type ListMemberInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	UserID     uuid.UUID
}

type JoinInput struct {
	PurchaseID uuid.UUID
	UserID     uuid.UUID
	Volume     float64
}

type JoinFakeInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	Login      string
	Volume     float64
}

type DetachInput struct {
	PurchaseID uuid.UUID
	UserID     uuid.UUID
}

type DetachFakeInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	Login      string
}

// ParticipantMarkInput sets an opaque paid/sent marker on a real participant; nil clears it.
type ParticipantMarkInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	UserID     uuid.UUID
	Marker     *string
}

type FakeParticipantMarkInput struct {
	PurchaseID uuid.UUID
	ActorID    uuid.UUID
	Login      string
	Marker     *string
}

type UpdateDeliveryInput struct {
	PurchaseID uuid.UUID
	UserID     uuid.UUID
	Delivered  bool
}

// PurchaseWriteResult is returned by every write. Changed is false for idempotent no-ops,
// in which case no history entry was appended.
type PurchaseWriteResult struct {
	Purchase  *purchases.JointPurchase
	Changed   bool
	Parameter string
}

// ParseID validates an id-shaped input before any persistence access.
func ParseID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, NewError(CodeValidation, "parse_id", "MISSING "+field, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, NewError(CodeValidation, "parse_id", "INVALID "+field, err)
	}
	return id, nil
}
