package purchases

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PurchaseState int

const (
	StateCreated   PurchaseState = 0
	StateCollected PurchaseState = 1
	StateClosed    PurchaseState = 2
)

func (s PurchaseState) Valid() bool { return s >= StateCreated && s <= StateClosed }

type PaymentType int

const (
	PaymentViaSite       PaymentType = 0
	PaymentToCreatorCard PaymentType = 1
	PaymentOnDelivery    PaymentType = 2
)

func (p PaymentType) Valid() bool { return p >= PaymentViaSite && p <= PaymentOnDelivery }

// VolumeEpsilon absorbs float drift when comparing committed volume against the total.
const VolumeEpsilon = 1e-9

type JointPurchase struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID         uuid.UUID                   `gorm:"type:uuid;not null;index" json:"creator"`
	GoodID            *uuid.UUID                  `gorm:"type:uuid;index" json:"good,omitempty"`
	Name              string                      `gorm:"column:name;not null" json:"name"`
	Picture           string                      `gorm:"column:picture;not null" json:"picture"`
	Description       string                      `gorm:"column:description;not null" json:"description"`
	Address           string                      `gorm:"column:address;not null" json:"address"`
	CategoryID        uuid.UUID                   `gorm:"type:uuid;not null;index" json:"category"`
	CityID            uuid.UUID                   `gorm:"type:uuid;not null;index" json:"city"`
	MeasurementUnitID uuid.UUID                   `gorm:"type:uuid;not null" json:"measurement_unit"`
	Volume            float64                     `gorm:"column:volume;not null" json:"volume"`
	MinVolume         float64                     `gorm:"column:min_volume;not null" json:"min_volume"`
	RemainingVolume   float64                     `gorm:"column:remaining_volume;not null" json:"remaining_volume"`
	PricePerUnit      decimal.Decimal             `gorm:"column:price_per_unit;type:decimal(12,2);not null" json:"price_per_unit"`
	Date              time.Time                   `gorm:"column:date;not null" json:"date"`
	State             PurchaseState               `gorm:"column:state;not null;index" json:"state"`
	PaymentType       PaymentType                 `gorm:"column:payment_type;not null" json:"payment_type"`
	PaymentInfo       string                      `gorm:"column:payment_info" json:"payment_info,omitempty"`
	IsPublic          bool                        `gorm:"column:is_public;not null;index" json:"is_public"`
	BlackList         datatypes.JSONSlice[string] `gorm:"column:black_list" json:"black_list"`
	WhiteList         datatypes.JSONSlice[string] `gorm:"column:white_list" json:"white_list"`
	Version           int                         `gorm:"column:version;not null;default:0" json:"version"`
	LastActivityAt    time.Time                   `gorm:"column:last_activity_at;not null;index" json:"last_activity_at"`
	CreatedAt         time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"not null" json:"updated_at"`

	Participants []Participant  `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"participants"`
	History      []HistoryEntry `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"history"`
}

func (JointPurchase) TableName() string { return "joint_purchase" }

// IsCreator reports whether userID owns the purchase.
func (p *JointPurchase) IsCreator(userID uuid.UUID) bool {
	return p != nil && userID != uuid.Nil && p.CreatorID == userID
}

func (p *JointPurchase) UsedVolume() float64 {
	return p.Volume - p.RemainingVolume
}

func (p *JointPurchase) IsBlackListed(userID uuid.UUID) bool {
	return containsID(p.BlackList, userID.String())
}

func (p *JointPurchase) IsWhiteListed(userID uuid.UUID) bool {
	return containsID(p.WhiteList, userID.String())
}

// CanParticipate applies the visibility rules: the black list always wins,
// and a non-public purchase admits white-listed users only.
func (p *JointPurchase) CanParticipate(userID uuid.UUID) bool {
	if p.IsBlackListed(userID) {
		return false
	}
	if !p.IsPublic {
		return p.IsWhiteListed(userID)
	}
	return true
}

// UserParticipant returns the real participant entry for userID, or nil.
func (p *JointPurchase) UserParticipant(userID uuid.UUID) *Participant {
	for i := range p.Participants {
		if p.Participants[i].IsUser(userID) {
			return &p.Participants[i]
		}
	}
	return nil
}

// FakeParticipant returns the fake participant entry for login, or nil.
func (p *JointPurchase) FakeParticipant(login string) *Participant {
	for i := range p.Participants {
		if p.Participants[i].IsFake(login) {
			return &p.Participants[i]
		}
	}
	return nil
}

// CommittedVolume sums the volume held by every participant.
func (p *JointPurchase) CommittedVolume() float64 {
	var sum float64
	for _, part := range p.Participants {
		sum += part.Volume
	}
	return sum
}

// CheckInvariants verifies the capacity accounting and participant uniqueness.
// Participants must be loaded.
func (p *JointPurchase) CheckInvariants() error {
	if p.RemainingVolume < -VolumeEpsilon || p.RemainingVolume > p.Volume+VolumeEpsilon {
		return fmt.Errorf("remaining_volume %v outside [0, %v]", p.RemainingVolume, p.Volume)
	}
	if diff := p.CommittedVolume() + p.RemainingVolume - p.Volume; math.Abs(diff) > VolumeEpsilon*math.Max(1, p.Volume) {
		return fmt.Errorf("committed %v + remaining %v != volume %v", p.CommittedVolume(), p.RemainingVolume, p.Volume)
	}
	users := map[uuid.UUID]bool{}
	logins := map[string]bool{}
	for _, part := range p.Participants {
		if err := part.Validate(); err != nil {
			return err
		}
		switch part.Kind {
		case ParticipantUser:
			if users[*part.UserID] {
				return fmt.Errorf("user %s joined twice", part.UserID)
			}
			if p.IsBlackListed(*part.UserID) {
				return fmt.Errorf("black-listed user %s is a participant", part.UserID)
			}
			users[*part.UserID] = true
		case ParticipantFake:
			if logins[*part.FakeLogin] {
				return fmt.Errorf("fake login %q joined twice", *part.FakeLogin)
			}
			logins[*part.FakeLogin] = true
		}
	}
	return nil
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// PurchaseSummary is the list projection of a purchase.
type PurchaseSummary struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Picture           string          `json:"picture"`
	CreatorID         uuid.UUID       `json:"creator"`
	GoodID            *uuid.UUID      `json:"good,omitempty"`
	CategoryID        uuid.UUID       `json:"category"`
	CityID            uuid.UUID       `json:"city"`
	MeasurementUnitID uuid.UUID       `json:"measurement_unit"`
	Volume            float64         `json:"volume"`
	MinVolume         float64         `json:"min_volume"`
	RemainingVolume   float64         `json:"remaining_volume"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	Date              time.Time       `json:"date"`
	State             PurchaseState   `json:"state"`
	IsPublic          bool            `json:"is_public"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
}

func (p *JointPurchase) Summary() PurchaseSummary {
	return PurchaseSummary{
		ID:                p.ID,
		Name:              p.Name,
		Picture:           p.Picture,
		CreatorID:         p.CreatorID,
		GoodID:            p.GoodID,
		CategoryID:        p.CategoryID,
		CityID:            p.CityID,
		MeasurementUnitID: p.MeasurementUnitID,
		Volume:            p.Volume,
		MinVolume:         p.MinVolume,
		RemainingVolume:   p.RemainingVolume,
		PricePerUnit:      p.PricePerUnit,
		Date:              p.Date,
		State:             p.State,
		IsPublic:          p.IsPublic,
		LastActivityAt:    p.LastActivityAt,
	}
}
