package aggregates

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	jprepo "github.com/yungbote/jointbuy-backend/internal/data/repos/purchases"
	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	"github.com/yungbote/jointbuy-backend/internal/domain/purchases"
	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
)

// History parameters for writes that are not generic field updates.
const (
	historyParticipants = "participants"
	historyBlackList    = "black_list"
	historyWhiteList    = "white_list"
	historyVolume       = "volume"
	historyMinVolume    = "min_volume"
	historyPaid         = "paid"
	historySent         = "sent"
	historyDelivered    = "delivered"
)

type JointPurchaseAggregateDeps struct {
	Base BaseDeps

	Purchases jprepo.JointPurchaseRepo
}

type jointPurchaseAggregate struct {
	deps     JointPurchaseAggregateDeps
	validate *validator.Validate
}

func NewJointPurchaseAggregate(deps JointPurchaseAggregateDeps) domainagg.JointPurchaseAggregate {
	deps.Base = deps.Base.withDefaults()
	return &jointPurchaseAggregate{deps: deps, validate: newInputValidator()}
}

func (a *jointPurchaseAggregate) Contract() domainagg.Contract {
	return domainagg.JointPurchaseAggregateContract
}

// purchaseChange describes one committed write: root column updates, child row
// writes and the single history entry recorded for it.
type purchaseChange struct {
	parameter string
	value     any
	updates   map[string]any
	children  func(dbc dbctx.Context) error
	// conflict is the reason reported when the version compare-and-set loses.
	conflict string
}

// mutate loads the purchase, lets decide compute a change (nil means no-op), then
// commits it under a version CAS together with its history entry.
func (a *jointPurchaseAggregate) mutate(ctx context.Context, op string, purchaseID uuid.UUID, decide func(p *purchases.JointPurchase) (*purchaseChange, error)) (domainagg.PurchaseWriteResult, error) {
	var out domainagg.PurchaseWriteResult
	if purchaseID == uuid.Nil {
		return out, missing(op, "purchase_id")
	}
	if a.deps.Purchases == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "joint purchase repo not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.deps.Purchases.GetByID(dbc, purchaseID)
		if err != nil {
			return err
		}
		if p == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, domainagg.ReasonNoSuchPurchase, nil)
		}

		change, err := decide(p)
		if err != nil {
			return err
		}
		if change == nil {
			out = domainagg.PurchaseWriteResult{Purchase: p}
			return nil
		}

		now := a.deps.Base.Now()
		set := map[string]any{
			"last_activity_at": now,
			"updated_at":       now,
		}
		for k, v := range change.updates {
			set[k] = v
		}
		next, err := a.deps.Base.CASGuard.Advance(dbc, op, VersionedUpdate{
			Table:    a.Contract().RootTable,
			ID:       p.ID,
			Expected: p.Version,
			Set:      set,
			Reason:   change.conflict,
		})
		if err != nil {
			return err
		}
		if change.children != nil {
			if err := change.children(dbc); err != nil {
				return err
			}
		}
		entry, err := purchases.NewHistoryEntry(p.ID, next, change.parameter, change.value, now)
		if err != nil {
			return err
		}
		if err := a.deps.Purchases.AppendHistory(dbc, &entry); err != nil {
			return err
		}

		updated, err := a.deps.Purchases.GetByID(dbc, p.ID)
		if err != nil {
			return err
		}
		if updated == nil {
			return domainagg.NewError(domainagg.CodeConflict, op, change.conflict, nil)
		}
		if err := updated.CheckInvariants(); err != nil {
			return domainagg.NewError(domainagg.CodeInternal, op, domainagg.ReasonBrokenVolumeAccounting, err)
		}
		out = domainagg.PurchaseWriteResult{Purchase: updated, Changed: true, Parameter: change.parameter}
		return nil
	})
	if err != nil {
		return domainagg.PurchaseWriteResult{}, err
	}
	return out, nil
}

func requireCreator(op string, p *purchases.JointPurchase, actorID uuid.UUID) error {
	if !p.IsCreator(actorID) {
		return denied(op)
	}
	return nil
}

func (a *jointPurchaseAggregate) Create(ctx context.Context, in domainagg.CreatePurchaseInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.Create"
	var out domainagg.PurchaseWriteResult

	if in.CreatorID == uuid.Nil {
		return out, missing(op, "creator")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Picture = strings.TrimSpace(in.Picture)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.PaymentInfo = strings.TrimSpace(in.PaymentInfo)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.MeasurementUnitID = strings.TrimSpace(in.MeasurementUnitID)
	in.CityID = strings.TrimSpace(in.CityID)
	if err := validateInput(a.validate, op, in); err != nil {
		return out, err
	}
	if *in.MinVolume > *in.Volume+purchases.VolumeEpsilon {
		return out, invalid(op, "min_volume")
	}
	if in.GoodID != nil && *in.GoodID == uuid.Nil {
		return out, invalid(op, "good")
	}
	if a.deps.Purchases == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "joint purchase repo not configured", nil)
	}

	now := a.deps.Base.Now()
	p := &purchases.JointPurchase{
		ID:                uuid.New(),
		CreatorID:         in.CreatorID,
		GoodID:            in.GoodID,
		Name:              in.Name,
		Picture:           in.Picture,
		Description:       in.Description,
		Address:           in.Address,
		CategoryID:        uuid.MustParse(in.CategoryID),
		CityID:            uuid.MustParse(in.CityID),
		MeasurementUnitID: uuid.MustParse(in.MeasurementUnitID),
		Volume:            *in.Volume,
		MinVolume:         *in.MinVolume,
		RemainingVolume:   *in.Volume,
		PricePerUnit:      decimal.NewFromFloat(*in.PricePerUnit).Round(2),
		Date:              in.Date.UTC(),
		State:             purchases.PurchaseState(*in.State),
		PaymentType:       purchases.PaymentType(*in.PaymentType),
		PaymentInfo:       in.PaymentInfo,
		IsPublic:          *in.IsPublic,
		BlackList:         datatypes.JSONSlice[string]{},
		WhiteList:         datatypes.JSONSlice[string]{},
		Version:           1,
		LastActivityAt:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Purchases.Create(dbc, p); err != nil {
			return err
		}
		entry, err := purchases.NewHistoryEntry(p.ID, p.Version, domainagg.FieldState, p.State, now)
		if err != nil {
			return err
		}
		if err := a.deps.Purchases.AppendHistory(dbc, &entry); err != nil {
			return err
		}
		created, err := a.deps.Purchases.GetByID(dbc, p.ID)
		if err != nil {
			return err
		}
		if created == nil {
			return domainagg.NewError(domainagg.CodeInternal, op, domainagg.ReasonNotCreated, nil)
		}
		out = domainagg.PurchaseWriteResult{Purchase: created, Changed: true, Parameter: domainagg.FieldState}
		return nil
	})
	if err != nil {
		return domainagg.PurchaseWriteResult{}, err
	}
	return out, nil
}

func (a *jointPurchaseAggregate) UpdateField(ctx context.Context, in domainagg.UpdateFieldInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.UpdateField"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domainagg.PurchaseWriteResult{}, missing(op, "name")
	}
	field, err := coerceField(op, name, in.Value)
	if err != nil {
		return domainagg.PurchaseWriteResult{}, err
	}
	if name == domainagg.FieldIsPublic {
		return a.updateIsPublic(ctx, op, in.PurchaseID, in.ActorID, field.value.(bool))
	}

	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		return &purchaseChange{
			parameter: name,
			value:     field.history,
			updates:   map[string]any{field.column: field.value},
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) UpdateVolume(ctx context.Context, in domainagg.UpdateVolumeInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.UpdateVolume"
	if !validVolume(in.Volume) {
		return domainagg.PurchaseWriteResult{}, invalid(op, "volume")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if in.Volume < p.UsedVolume()-purchases.VolumeEpsilon {
			return nil, rejected(op, domainagg.ReasonLesserThanUsed)
		}
		if in.Volume < p.MinVolume-purchases.VolumeEpsilon {
			return nil, rejected(op, domainagg.ReasonVolumeLesserThanMin)
		}
		remaining := clampVolume(p.RemainingVolume + (in.Volume - p.Volume))
		return &purchaseChange{
			parameter: historyVolume,
			value: map[string]any{
				"volume":           in.Volume,
				"measurement_unit": p.MeasurementUnitID.String(),
			},
			updates: map[string]any{
				"volume":           in.Volume,
				"remaining_volume": remaining,
			},
			conflict: domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) UpdateMinVolume(ctx context.Context, in domainagg.UpdateVolumeInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.UpdateMinVolume"
	if !validVolume(in.Volume) {
		return domainagg.PurchaseWriteResult{}, invalid(op, "min_volume")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if in.Volume > p.RemainingVolume+purchases.VolumeEpsilon {
			return nil, rejected(op, domainagg.ReasonGreaterThanRemaining)
		}
		return &purchaseChange{
			parameter: historyMinVolume,
			value:     in.Volume,
			updates:   map[string]any{"min_volume": in.Volume},
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) UpdateIsPublic(ctx context.Context, in domainagg.UpdateIsPublicInput) (domainagg.PurchaseWriteResult, error) {
	return a.updateIsPublic(ctx, "Purchases.JointPurchase.UpdateIsPublic", in.PurchaseID, in.ActorID, in.IsPublic)
}

// updateIsPublic clears the white list when visibility actually flips.
// Re-sending the current value still records a history entry.
func (a *jointPurchaseAggregate) updateIsPublic(ctx context.Context, op string, purchaseID, actorID uuid.UUID, isPublic bool) (domainagg.PurchaseWriteResult, error) {
	return a.mutate(ctx, op, purchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, actorID); err != nil {
			return nil, err
		}
		updates := map[string]any{"is_public": isPublic}
		if p.IsPublic != isPublic {
			updates["white_list"] = datatypes.JSONSlice[string]{}
		}
		return &purchaseChange{
			parameter: domainagg.FieldIsPublic,
			value:     isPublic,
			updates:   updates,
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) AddToBlackList(ctx context.Context, in domainagg.ListMemberInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.AddToBlackList"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if p.IsBlackListed(in.UserID) {
			return nil, nil
		}
		member := p.UserParticipant(in.UserID)
		if member == nil {
			return nil, notJoint(op)
		}
		memberID, credit := member.ID, member.Volume
		return &purchaseChange{
			parameter: historyBlackList,
			value: map[string]any{
				"action":   "add",
				"user":     in.UserID.String(),
				"released": credit,
			},
			updates: map[string]any{
				"black_list":       withID(p.BlackList, in.UserID),
				"remaining_volume": clampVolume(p.RemainingVolume + credit),
			},
			children: func(dbc dbctx.Context) error {
				return a.deps.Purchases.DeleteParticipant(dbc, memberID)
			},
			conflict: domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) RemoveFromBlackList(ctx context.Context, in domainagg.ListMemberInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.RemoveFromBlackList"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if !p.IsBlackListed(in.UserID) {
			return nil, nil
		}
		return &purchaseChange{
			parameter: historyBlackList,
			value:     map[string]any{"action": "remove", "user": in.UserID.String()},
			updates:   map[string]any{"black_list": withoutID(p.BlackList, in.UserID)},
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) AddToWhiteList(ctx context.Context, in domainagg.ListMemberInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.AddToWhiteList"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if p.IsPublic {
			return nil, rejected(op, domainagg.ReasonPurchaseIsPublic)
		}
		if p.IsWhiteListed(in.UserID) {
			return nil, nil
		}
		return &purchaseChange{
			parameter: historyWhiteList,
			value:     map[string]any{"action": "add", "user": in.UserID.String()},
			updates:   map[string]any{"white_list": withID(p.WhiteList, in.UserID)},
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) RemoveFromWhiteList(ctx context.Context, in domainagg.ListMemberInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.RemoveFromWhiteList"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if p.IsPublic {
			return nil, rejected(op, domainagg.ReasonPurchaseIsPublic)
		}
		if !p.IsWhiteListed(in.UserID) {
			return nil, nil
		}
		return &purchaseChange{
			parameter: historyWhiteList,
			value:     map[string]any{"action": "remove", "user": in.UserID.String()},
			updates:   map[string]any{"white_list": withoutID(p.WhiteList, in.UserID)},
			conflict:  domainagg.ReasonNotUpdated,
		}, nil
	})
}

func (a *jointPurchaseAggregate) Join(ctx context.Context, in domainagg.JoinInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.Join"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	if !validVolume(in.Volume) {
		return domainagg.PurchaseWriteResult{}, invalid(op, "volume")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := checkCapacity(op, p, in.Volume); err != nil {
			return nil, err
		}
		if p.IsBlackListed(in.UserID) {
			return nil, denied(op)
		}
		if p.UserParticipant(in.UserID) != nil {
			return nil, rejected(op, domainagg.ReasonAlreadyJoint)
		}
		if !p.CanParticipate(in.UserID) {
			return nil, denied(op)
		}
		member := purchases.NewUserParticipant(p.ID, in.UserID, in.Volume)
		member.Position = nextPosition(p)
		return &purchaseChange{
			parameter: historyParticipants,
			value: map[string]any{
				"action": "join",
				"user":   in.UserID.String(),
				"volume": in.Volume,
			},
			updates: map[string]any{"remaining_volume": clampVolume(p.RemainingVolume - in.Volume)},
			children: func(dbc dbctx.Context) error {
				return a.deps.Purchases.CreateParticipant(dbc, &member)
			},
			conflict: domainagg.ReasonNotJoint,
		}, nil
	})
}

func (a *jointPurchaseAggregate) JoinFake(ctx context.Context, in domainagg.JoinFakeInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.JoinFake"
	login := strings.TrimSpace(in.Login)
	if login == "" {
		return domainagg.PurchaseWriteResult{}, missing(op, "login")
	}
	if !validVolume(in.Volume) {
		return domainagg.PurchaseWriteResult{}, invalid(op, "volume")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		if err := checkCapacity(op, p, in.Volume); err != nil {
			return nil, err
		}
		if p.FakeParticipant(login) != nil {
			return nil, rejected(op, domainagg.ReasonAlreadyJoint)
		}
		member := purchases.NewFakeParticipant(p.ID, login, in.Volume)
		member.Position = nextPosition(p)
		return &purchaseChange{
			parameter: historyParticipants,
			value: map[string]any{
				"action":    "join",
				"fake_user": login,
				"volume":    in.Volume,
			},
			updates: map[string]any{"remaining_volume": clampVolume(p.RemainingVolume - in.Volume)},
			children: func(dbc dbctx.Context) error {
				return a.deps.Purchases.CreateParticipant(dbc, &member)
			},
			conflict: domainagg.ReasonNotAdded,
		}, nil
	})
}

func (a *jointPurchaseAggregate) Detach(ctx context.Context, in domainagg.DetachInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.Detach"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		member := p.UserParticipant(in.UserID)
		if member == nil {
			return nil, notJoint(op)
		}
		return a.detachChange(p, member, map[string]any{"action": "detach", "user": in.UserID.String()}), nil
	})
}

func (a *jointPurchaseAggregate) DetachFake(ctx context.Context, in domainagg.DetachFakeInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.DetachFake"
	login := strings.TrimSpace(in.Login)
	if login == "" {
		return domainagg.PurchaseWriteResult{}, missing(op, "login")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		member := p.FakeParticipant(login)
		if member == nil {
			return nil, notJoint(op)
		}
		return a.detachChange(p, member, map[string]any{"action": "detach", "fake_user": login}), nil
	})
}

func (a *jointPurchaseAggregate) detachChange(p *purchases.JointPurchase, member *purchases.Participant, value map[string]any) *purchaseChange {
	memberID, credit := member.ID, member.Volume
	value["volume"] = credit
	return &purchaseChange{
		parameter: historyParticipants,
		value:     value,
		updates:   map[string]any{"remaining_volume": clampVolume(p.RemainingVolume + credit)},
		children: func(dbc dbctx.Context) error {
			return a.deps.Purchases.DeleteParticipant(dbc, memberID)
		},
		conflict: domainagg.ReasonNotDetached,
	}
}

func (a *jointPurchaseAggregate) UpdatePayment(ctx context.Context, in domainagg.ParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	return a.markUser(ctx, "Purchases.JointPurchase.UpdatePayment", historyPaid, in)
}

func (a *jointPurchaseAggregate) UpdateSent(ctx context.Context, in domainagg.ParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	return a.markUser(ctx, "Purchases.JointPurchase.UpdateSent", historySent, in)
}

func (a *jointPurchaseAggregate) UpdateFakePayment(ctx context.Context, in domainagg.FakeParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	return a.markFake(ctx, "Purchases.JointPurchase.UpdateFakePayment", historyPaid, in)
}

func (a *jointPurchaseAggregate) UpdateFakeSent(ctx context.Context, in domainagg.FakeParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	return a.markFake(ctx, "Purchases.JointPurchase.UpdateFakeSent", historySent, in)
}

// markUser sets the paid or sent marker (column == history parameter) on a real participant.
func (a *jointPurchaseAggregate) markUser(ctx context.Context, op, column string, in domainagg.ParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	marker := normalizeMarker(in.Marker)
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		member := p.UserParticipant(in.UserID)
		if member == nil {
			return nil, notJoint(op)
		}
		return a.participantFieldChange(member.ID, column, marker, map[string]any{
			"user": in.UserID.String(),
			column: marker,
		}), nil
	})
}

func (a *jointPurchaseAggregate) markFake(ctx context.Context, op, column string, in domainagg.FakeParticipantMarkInput) (domainagg.PurchaseWriteResult, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" {
		return domainagg.PurchaseWriteResult{}, missing(op, "login")
	}
	marker := normalizeMarker(in.Marker)
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		if err := requireCreator(op, p, in.ActorID); err != nil {
			return nil, err
		}
		member := p.FakeParticipant(login)
		if member == nil {
			return nil, notJoint(op)
		}
		return a.participantFieldChange(member.ID, column, marker, map[string]any{
			"fake_user": login,
			column:      marker,
		}), nil
	})
}

func (a *jointPurchaseAggregate) UpdateDelivery(ctx context.Context, in domainagg.UpdateDeliveryInput) (domainagg.PurchaseWriteResult, error) {
	const op = "Purchases.JointPurchase.UpdateDelivery"
	if in.UserID == uuid.Nil {
		return domainagg.PurchaseWriteResult{}, missing(op, "user_id")
	}
	return a.mutate(ctx, op, in.PurchaseID, func(p *purchases.JointPurchase) (*purchaseChange, error) {
		member := p.UserParticipant(in.UserID)
		if member == nil {
			return nil, notJoint(op)
		}
		return a.participantFieldChange(member.ID, historyDelivered, in.Delivered, map[string]any{
			"user":           in.UserID.String(),
			historyDelivered: in.Delivered,
		}), nil
	})
}

func (a *jointPurchaseAggregate) participantFieldChange(memberID uuid.UUID, column string, value any, history map[string]any) *purchaseChange {
	return &purchaseChange{
		parameter: column,
		value:     history,
		// The root row still carries the version bump even though only a child changes.
		updates: map[string]any{},
		children: func(dbc dbctx.Context) error {
			return a.deps.Purchases.UpdateParticipantFields(dbc, memberID, map[string]interface{}{column: value})
		},
		conflict: domainagg.ReasonNotUpdated,
	}
}

func checkCapacity(op string, p *purchases.JointPurchase, volume float64) error {
	if volume < p.MinVolume-purchases.VolumeEpsilon {
		return rejected(op, domainagg.ReasonVolumeLesserThanMin)
	}
	if volume > p.RemainingVolume+purchases.VolumeEpsilon {
		return rejected(op, domainagg.ReasonTooMuchVolume)
	}
	return nil
}

func validVolume(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// clampVolume snaps float drift around zero.
func clampVolume(v float64) float64 {
	if math.Abs(v) < purchases.VolumeEpsilon {
		return 0
	}
	return v
}

func nextPosition(p *purchases.JointPurchase) int {
	last := 0
	for _, part := range p.Participants {
		if part.Position > last {
			last = part.Position
		}
	}
	return last + 1
}

func normalizeMarker(marker *string) *string {
	if marker == nil {
		return nil
	}
	s := strings.TrimSpace(*marker)
	if s == "" {
		return nil
	}
	return &s
}

func withID(list datatypes.JSONSlice[string], id uuid.UUID) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(list)+1)
	out = append(out, list...)
	return append(out, id.String())
}

func withoutID(list datatypes.JSONSlice[string], id uuid.UUID) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(list))
	for _, v := range list {
		if v != id.String() {
			out = append(out, v)
		}
	}
	return out
}
