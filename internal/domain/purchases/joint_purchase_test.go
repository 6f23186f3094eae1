package purchases

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestParticipantMarshalTaggedUnion(t *testing.T) {
	purchaseID := uuid.New()
	userID := uuid.New()
	paid := "card"

	member := NewUserParticipant(purchaseID, userID, 3)
	member.Paid = &paid
	raw, err := json.Marshal(member)
	if err != nil {
		t.Fatalf("marshal user participant: %v", err)
	}
	var gotUser map[string]any
	if err := json.Unmarshal(raw, &gotUser); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if gotUser["user"] != userID.String() || gotUser["paid"] != "card" {
		t.Fatalf("unexpected user participant json: %s", raw)
	}
	if _, ok := gotUser["fake_user"]; ok {
		t.Fatalf("user participant must not carry fake_user: %s", raw)
	}

	fake := NewFakeParticipant(purchaseID, "  offline-bob ", 2)
	raw, err = json.Marshal(fake)
	if err != nil {
		t.Fatalf("marshal fake participant: %v", err)
	}
	if !strings.Contains(string(raw), `"fake_user":{"login":"offline-bob"}`) {
		t.Fatalf("unexpected fake participant json: %s", raw)
	}
	if strings.Contains(string(raw), `"user"`) || strings.Contains(string(raw), `"delivered"`) {
		t.Fatalf("fake participant must not carry user fields: %s", raw)
	}
}

func TestParticipantValidate(t *testing.T) {
	p := NewUserParticipant(uuid.New(), uuid.New(), 1)
	login := "x"
	p.FakeLogin = &login
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error when both identities are set")
	}
	if err := NewFakeParticipant(uuid.New(), "", 1).Validate(); err == nil {
		t.Fatalf("expected error for empty fake login")
	}
}

func TestCheckInvariants(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	p := &JointPurchase{
		ID:              id,
		Volume:          10,
		RemainingVolume: 5,
		IsPublic:        true,
		Participants: []Participant{
			NewUserParticipant(id, userID, 3),
			NewFakeParticipant(id, "offline", 2),
		},
	}
	if err := p.CheckInvariants(); err != nil {
		t.Fatalf("expected consistent purchase, got %v", err)
	}

	p.RemainingVolume = 6
	if err := p.CheckInvariants(); err == nil {
		t.Fatalf("expected accounting mismatch")
	}
	p.RemainingVolume = 5

	p.BlackList = datatypes.JSONSlice[string]{userID.String()}
	if err := p.CheckInvariants(); err == nil {
		t.Fatalf("expected black-listed participant violation")
	}
	p.BlackList = nil

	p.Participants = append(p.Participants, NewUserParticipant(id, userID, 0))
	if err := p.CheckInvariants(); err == nil {
		t.Fatalf("expected duplicate user violation")
	}
}

func TestCanParticipate(t *testing.T) {
	userID := uuid.New()
	p := &JointPurchase{IsPublic: true}
	if !p.CanParticipate(userID) {
		t.Fatalf("public purchase should admit anyone not banned")
	}
	p.IsPublic = false
	if p.CanParticipate(userID) {
		t.Fatalf("private purchase should reject users outside the white list")
	}
	p.WhiteList = datatypes.JSONSlice[string]{userID.String()}
	if !p.CanParticipate(userID) {
		t.Fatalf("white-listed user should be admitted")
	}
	p.BlackList = datatypes.JSONSlice[string]{userID.String()}
	if p.CanParticipate(userID) {
		t.Fatalf("black list must win over the white list")
	}
}

func TestHistoryEntryMarshalUnwrapsValue(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	entry, err := NewHistoryEntry(uuid.New(), 3, "state", 1, at)
	if err != nil {
		t.Fatalf("NewHistoryEntry: %v", err)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(raw), `{"seq":3,"parameter":"state","value":1,"date":"2026-05-01T10:00:00Z"}`; got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}
