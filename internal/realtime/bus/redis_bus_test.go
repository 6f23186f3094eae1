package bus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	id := uuid.New()
	in := envelope{
		Origin: "node-a",
		SentAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Message: realtime.SSEMessage{
			Channel: realtime.PurchaseChannel(id),
			Event:   realtime.SSEEventJointPurchaseUpdated,
			Data:    map[string]any{"version": 3},
		},
	}
	raw, err := encodeEnvelope(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeEnvelope(string(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Origin != "node-a" || !out.SentAt.Equal(in.SentAt) {
		t.Fatalf("envelope header: %+v", out)
	}
	if out.Message.Channel != in.Message.Channel || out.Message.Event != in.Message.Event {
		t.Fatalf("message: %+v", out.Message)
	}
}

func TestDecodeEnvelopeRejectsIncomplete(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"origin":"x","message":{"event":"JointPurchaseUpdated"}}`,
		`{"origin":"x","message":{"channel":"purchase:1"}}`,
	} {
		if _, err := decodeEnvelope(payload); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
	if _, err := encodeEnvelope(envelope{}); err == nil {
		t.Fatalf("expected encode error for message without channel")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(context.Background(), logger.Nop(), RedisOptions{}); err == nil {
		t.Fatalf("expected error without address")
	}
	if _, err := NewRedisBus(context.Background(), nil, RedisOptions{Addr: "localhost:6379"}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestNilBus(t *testing.T) {
	var b *redisBus
	if err := b.Publish(context.Background(), realtime.SSEMessage{}); err != errNotInitialized {
		t.Fatalf("publish on nil bus: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close on nil bus: %v", err)
	}
}
