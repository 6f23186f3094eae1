package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	jprepo "github.com/yungbote/jointbuy-backend/internal/data/repos/purchases"
	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	types "github.com/yungbote/jointbuy-backend/internal/domain/purchases"
	"github.com/yungbote/jointbuy-backend/internal/platform/ctxutil"
	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
)

type PurchasePage struct {
	Items []types.PurchaseSummary `json:"items"`
	Total int64                   `json:"total"`
	Skip  int                     `json:"skip"`
	Limit int                     `json:"limit"`
}

// JointPurchaseService is the route-facing surface of joint purchases. Writes act on
// behalf of the authenticated caller found in the request data.
type JointPurchaseService interface {
	Create(ctx context.Context, in domainagg.CreatePurchaseInput) (*types.JointPurchase, error)
	CreateForGood(ctx context.Context, goodID uuid.UUID, in domainagg.CreatePurchaseInput) (*types.JointPurchase, error)

	GetByID(ctx context.Context, id uuid.UUID) (*types.JointPurchase, error)
	Find(ctx context.Context, filter jprepo.PurchaseFilter, skip, limit int, order jprepo.CategoryOrder) (*PurchasePage, error)
	ListCreated(ctx context.Context, creatorID uuid.UUID) ([]types.PurchaseSummary, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]types.PurchaseSummary, error)

	UpdateField(ctx context.Context, purchaseID uuid.UUID, name string, value any) (*types.JointPurchase, error)
	UpdateVolume(ctx context.Context, purchaseID uuid.UUID, volume float64) (*types.JointPurchase, error)
	UpdateMinVolume(ctx context.Context, purchaseID uuid.UUID, minVolume float64) (*types.JointPurchase, error)
	UpdateIsPublic(ctx context.Context, purchaseID uuid.UUID, isPublic bool) (*types.JointPurchase, error)

	AddToBlackList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error)
	RemoveFromBlackList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error)
	AddToWhiteList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error)
	RemoveFromWhiteList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error)

	Join(ctx context.Context, purchaseID uuid.UUID, volume float64) (*types.JointPurchase, error)
	Detach(ctx context.Context, purchaseID uuid.UUID) (*types.JointPurchase, error)
	JoinFake(ctx context.Context, purchaseID uuid.UUID, login string, volume float64) (*types.JointPurchase, error)
	DetachFake(ctx context.Context, purchaseID uuid.UUID, login string) (*types.JointPurchase, error)

	UpdatePayment(ctx context.Context, purchaseID, userID uuid.UUID, marker *string) (*types.JointPurchase, error)
	UpdateSent(ctx context.Context, purchaseID, userID uuid.UUID, marker *string) (*types.JointPurchase, error)
	UpdateFakePayment(ctx context.Context, purchaseID uuid.UUID, login string, marker *string) (*types.JointPurchase, error)
	UpdateFakeSent(ctx context.Context, purchaseID uuid.UUID, login string, marker *string) (*types.JointPurchase, error)
	UpdateDelivery(ctx context.Context, purchaseID uuid.UUID, delivered bool) (*types.JointPurchase, error)
}

type jointPurchaseService struct {
	log      *logger.Logger
	repo     jprepo.JointPurchaseRepo
	agg      domainagg.JointPurchaseAggregate
	notifier PurchaseNotifier
}

func NewJointPurchaseService(log *logger.Logger, repo jprepo.JointPurchaseRepo, agg domainagg.JointPurchaseAggregate, notifier PurchaseNotifier) JointPurchaseService {
	return &jointPurchaseService{
		log:      log.With("service", "JointPurchaseService"),
		repo:     repo,
		agg:      agg,
		notifier: notifier,
	}
}

func callerID(ctx context.Context, op string) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeAccessDenied, op, domainagg.ReasonAccessDenied, nil)
	}
	return rd.UserID, nil
}

// commit announces changed writes; notification problems never fail the write.
func (s *jointPurchaseService) commit(ctx context.Context, op string, res domainagg.PurchaseWriteResult, err error) (*types.JointPurchase, error) {
	if err != nil {
		s.log.Debug("joint purchase write rejected", "op", op, "code", domainagg.CodeOf(err), "reason", domainagg.ReasonOf(err))
		return nil, err
	}
	if res.Changed && s.notifier != nil {
		s.notifier.PurchaseUpdated(ctx, res.Purchase, res.Parameter)
	}
	return res.Purchase, nil
}

func (s *jointPurchaseService) Create(ctx context.Context, in domainagg.CreatePurchaseInput) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.Create"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	in.CreatorID = uid
	in.GoodID = nil
	res, err := s.agg.Create(ctx, in)
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) CreateForGood(ctx context.Context, goodID uuid.UUID, in domainagg.CreatePurchaseInput) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.CreateForGood"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	if goodID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "MISSING good", nil)
	}
	in.CreatorID = uid
	in.GoodID = &goodID
	res, err := s.agg.Create(ctx, in)
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) GetByID(ctx context.Context, id uuid.UUID) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.GetByID"
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "MISSING id", nil)
	}
	p, err := s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, fmt.Errorf("load purchase: %w", err))
	}
	if p == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, domainagg.ReasonNoSuchPurchase, nil)
	}
	return p, nil
}

func (s *jointPurchaseService) Find(ctx context.Context, filter jprepo.PurchaseFilter, skip, limit int, order jprepo.CategoryOrder) (*PurchasePage, error) {
	const op = "JointPurchaseService.Find"
	page := jprepo.Page{Skip: skip, Limit: limit}.Normalized()
	rows, total, err := s.repo.Find(dbctx.Context{Ctx: ctx}, filter, page, order)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, fmt.Errorf("find purchases: %w", err))
	}
	return &PurchasePage{Items: summaries(rows), Total: total, Skip: page.Skip, Limit: page.Limit}, nil
}

func (s *jointPurchaseService) ListCreated(ctx context.Context, creatorID uuid.UUID) ([]types.PurchaseSummary, error) {
	const op = "JointPurchaseService.ListCreated"
	if creatorID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "MISSING creator", nil)
	}
	rows, err := s.repo.ListByCreator(dbctx.Context{Ctx: ctx}, creatorID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, fmt.Errorf("list created purchases: %w", err))
	}
	return summaries(rows), nil
}

func (s *jointPurchaseService) ListOrders(ctx context.Context, userID uuid.UUID) ([]types.PurchaseSummary, error) {
	const op = "JointPurchaseService.ListOrders"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "MISSING user", nil)
	}
	rows, err := s.repo.ListByParticipant(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, fmt.Errorf("list orders: %w", err))
	}
	return summaries(rows), nil
}

func summaries(rows []*types.JointPurchase) []types.PurchaseSummary {
	out := make([]types.PurchaseSummary, 0, len(rows))
	for _, p := range rows {
		if p == nil {
			continue
		}
		out = append(out, p.Summary())
	}
	return out
}

func (s *jointPurchaseService) UpdateField(ctx context.Context, purchaseID uuid.UUID, name string, value any) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateField"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateField(ctx, domainagg.UpdateFieldInput{PurchaseID: purchaseID, ActorID: uid, Name: name, Value: value})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateVolume(ctx context.Context, purchaseID uuid.UUID, volume float64) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateVolume"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateVolume(ctx, domainagg.UpdateVolumeInput{PurchaseID: purchaseID, ActorID: uid, Volume: volume})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateMinVolume(ctx context.Context, purchaseID uuid.UUID, minVolume float64) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateMinVolume"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateMinVolume(ctx, domainagg.UpdateVolumeInput{PurchaseID: purchaseID, ActorID: uid, Volume: minVolume})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateIsPublic(ctx context.Context, purchaseID uuid.UUID, isPublic bool) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateIsPublic"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateIsPublic(ctx, domainagg.UpdateIsPublicInput{PurchaseID: purchaseID, ActorID: uid, IsPublic: isPublic})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) listMember(ctx context.Context, op string, purchaseID, userID uuid.UUID, fn func(context.Context, domainagg.ListMemberInput) (domainagg.PurchaseWriteResult, error)) (*types.JointPurchase, error) {
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := fn(ctx, domainagg.ListMemberInput{PurchaseID: purchaseID, ActorID: uid, UserID: userID})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) AddToBlackList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error) {
	return s.listMember(ctx, "JointPurchaseService.AddToBlackList", purchaseID, userID, s.agg.AddToBlackList)
}

func (s *jointPurchaseService) RemoveFromBlackList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error) {
	return s.listMember(ctx, "JointPurchaseService.RemoveFromBlackList", purchaseID, userID, s.agg.RemoveFromBlackList)
}

func (s *jointPurchaseService) AddToWhiteList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error) {
	return s.listMember(ctx, "JointPurchaseService.AddToWhiteList", purchaseID, userID, s.agg.AddToWhiteList)
}

func (s *jointPurchaseService) RemoveFromWhiteList(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error) {
	return s.listMember(ctx, "JointPurchaseService.RemoveFromWhiteList", purchaseID, userID, s.agg.RemoveFromWhiteList)
}

func (s *jointPurchaseService) Join(ctx context.Context, purchaseID uuid.UUID, volume float64) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.Join"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.Join(ctx, domainagg.JoinInput{PurchaseID: purchaseID, UserID: uid, Volume: volume})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) Detach(ctx context.Context, purchaseID uuid.UUID) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.Detach"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.Detach(ctx, domainagg.DetachInput{PurchaseID: purchaseID, UserID: uid})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) JoinFake(ctx context.Context, purchaseID uuid.UUID, login string, volume float64) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.JoinFake"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.JoinFake(ctx, domainagg.JoinFakeInput{PurchaseID: purchaseID, ActorID: uid, Login: login, Volume: volume})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) DetachFake(ctx context.Context, purchaseID uuid.UUID, login string) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.DetachFake"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.DetachFake(ctx, domainagg.DetachFakeInput{PurchaseID: purchaseID, ActorID: uid, Login: login})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdatePayment(ctx context.Context, purchaseID, userID uuid.UUID, marker *string) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdatePayment"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdatePayment(ctx, domainagg.ParticipantMarkInput{PurchaseID: purchaseID, ActorID: uid, UserID: userID, Marker: marker})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateSent(ctx context.Context, purchaseID, userID uuid.UUID, marker *string) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateSent"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateSent(ctx, domainagg.ParticipantMarkInput{PurchaseID: purchaseID, ActorID: uid, UserID: userID, Marker: marker})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateFakePayment(ctx context.Context, purchaseID uuid.UUID, login string, marker *string) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateFakePayment"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateFakePayment(ctx, domainagg.FakeParticipantMarkInput{PurchaseID: purchaseID, ActorID: uid, Login: login, Marker: marker})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateFakeSent(ctx context.Context, purchaseID uuid.UUID, login string, marker *string) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateFakeSent"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateFakeSent(ctx, domainagg.FakeParticipantMarkInput{PurchaseID: purchaseID, ActorID: uid, Login: login, Marker: marker})
	return s.commit(ctx, op, res, err)
}

func (s *jointPurchaseService) UpdateDelivery(ctx context.Context, purchaseID uuid.UUID, delivered bool) (*types.JointPurchase, error) {
	const op = "JointPurchaseService.UpdateDelivery"
	uid, err := callerID(ctx, op)
	if err != nil {
		return nil, err
	}
	res, err := s.agg.UpdateDelivery(ctx, domainagg.UpdateDeliveryInput{PurchaseID: purchaseID, UserID: uid, Delivered: delivered})
	return s.commit(ctx, op, res, err)
}
