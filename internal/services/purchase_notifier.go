package services

import (
	"context"

	types "github.com/yungbote/jointbuy-backend/internal/domain/purchases"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
)

// PurchaseNotifier announces committed joint purchase writes to realtime subscribers.
type PurchaseNotifier interface {
	PurchaseUpdated(ctx context.Context, p *types.JointPurchase, parameter string)
}

type purchaseNotifier struct {
	emit SSEEmitter
}

func NewPurchaseNotifier(emit SSEEmitter) PurchaseNotifier {
	return &purchaseNotifier{emit: emit}
}

func (n *purchaseNotifier) PurchaseUpdated(ctx context.Context, p *types.JointPurchase, parameter string) {
	if n == nil || n.emit == nil || p == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.PurchaseChannel(p.ID),
		Event:   realtime.SSEEventJointPurchaseUpdated,
		Data: map[string]any{
			"purchase_id":      p.ID.String(),
			"parameter":        parameter,
			"remaining_volume": p.RemainingVolume,
			"version":          p.Version,
		},
	})
}
