package purchases

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ParticipantKind string

const (
	ParticipantUser ParticipantKind = "user"
	ParticipantFake ParticipantKind = "fake"
)

// Participant is either a registered user or a fake (offline) buyer tracked by the creator.
// Exactly one of UserID / FakeLogin is set, matching Kind; the table CHECK constraint mirrors that.
type Participant struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_jp_participant_user,priority:1;uniqueIndex:idx_jp_participant_fake,priority:1"`
	Kind       ParticipantKind `gorm:"column:kind;not null"`
	UserID     *uuid.UUID      `gorm:"type:uuid;index;uniqueIndex:idx_jp_participant_user,priority:2;check:chk_jp_participant_identity,(user_id IS NULL) <> (fake_login IS NULL)"`
	FakeLogin  *string         `gorm:"column:fake_login;uniqueIndex:idx_jp_participant_fake,priority:2"`
	Volume     float64         `gorm:"column:volume;not null"`
	Paid       *string         `gorm:"column:paid"`
	Sent       *string         `gorm:"column:sent"`
	Delivered  bool            `gorm:"column:delivered;not null;default:false"`
	Position   int             `gorm:"column:position;not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

func (Participant) TableName() string { return "joint_purchase_participant" }

func NewUserParticipant(purchaseID, userID uuid.UUID, volume float64) Participant {
	uid := userID
	return Participant{
		ID:         uuid.New(),
		PurchaseID: purchaseID,
		Kind:       ParticipantUser,
		UserID:     &uid,
		Volume:     volume,
	}
}

func NewFakeParticipant(purchaseID uuid.UUID, login string, volume float64) Participant {
	l := strings.TrimSpace(login)
	return Participant{
		ID:         uuid.New(),
		PurchaseID: purchaseID,
		Kind:       ParticipantFake,
		FakeLogin:  &l,
		Volume:     volume,
	}
}

func (p Participant) IsUser(userID uuid.UUID) bool {
	return p.Kind == ParticipantUser && p.UserID != nil && *p.UserID == userID
}

func (p Participant) IsFake(login string) bool {
	return p.Kind == ParticipantFake && p.FakeLogin != nil && *p.FakeLogin == strings.TrimSpace(login)
}

func (p Participant) Validate() error {
	switch p.Kind {
	case ParticipantUser:
		if p.UserID == nil || *p.UserID == uuid.Nil || p.FakeLogin != nil {
			return errors.New("user participant must carry only a user id")
		}
	case ParticipantFake:
		if p.FakeLogin == nil || *p.FakeLogin == "" || p.UserID != nil {
			return errors.New("fake participant must carry only a login")
		}
	default:
		return errors.New("unknown participant kind")
	}
	return nil
}

type fakeUserJSON struct {
	Login string `json:"login"`
}

type userParticipantJSON struct {
	User      uuid.UUID `json:"user"`
	Volume    float64   `json:"volume"`
	Paid      *string   `json:"paid"`
	Delivered bool      `json:"delivered"`
	Sent      *string   `json:"sent"`
}

type fakeParticipantJSON struct {
	FakeUser fakeUserJSON `json:"fake_user"`
	Volume   float64      `json:"volume"`
	Paid     *string      `json:"paid"`
	Sent     *string      `json:"sent"`
}

// MarshalJSON renders the variant shape: {user, ...} or {fake_user: {login}, ...}.
func (p Participant) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParticipantUser:
		if p.UserID == nil {
			return nil, errors.New("user participant without user id")
		}
		return json.Marshal(userParticipantJSON{
			User:      *p.UserID,
			Volume:    p.Volume,
			Paid:      p.Paid,
			Delivered: p.Delivered,
			Sent:      p.Sent,
		})
	case ParticipantFake:
		if p.FakeLogin == nil {
			return nil, errors.New("fake participant without login")
		}
		return json.Marshal(fakeParticipantJSON{
			FakeUser: fakeUserJSON{Login: *p.FakeLogin},
			Volume:   p.Volume,
			Paid:     p.Paid,
			Sent:     p.Sent,
		})
	default:
		return nil, errors.New("unknown participant kind")
	}
}
