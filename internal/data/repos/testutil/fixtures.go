package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/jointbuy-backend/internal/domain/purchases"
)

// SeedPurchase inserts a public purchase with the seed history entry a real create would write.
func SeedPurchase(tb testing.TB, ctx context.Context, db *gorm.DB, creatorID uuid.UUID, volume, minVolume float64) *types.JointPurchase {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.JointPurchase{
		ID:                uuid.New(),
		CreatorID:         creatorID,
		Name:              "honey",
		Picture:           "https://example.com/honey.png",
		Description:       "wildflower honey",
		Address:           "market square 1",
		CategoryID:        uuid.New(),
		CityID:            uuid.New(),
		MeasurementUnitID: uuid.New(),
		Volume:            volume,
		MinVolume:         minVolume,
		RemainingVolume:   volume,
		PricePerUnit:      decimal.NewFromInt(12),
		Date:              now.Add(7 * 24 * time.Hour),
		State:             types.StateCreated,
		PaymentType:       types.PaymentViaSite,
		IsPublic:          true,
		BlackList:         datatypes.JSONSlice[string]{},
		WhiteList:         datatypes.JSONSlice[string]{},
		Version:           1,
		LastActivityAt:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.WithContext(ctx).Omit("Participants", "History").Create(p).Error; err != nil {
		tb.Fatalf("seed purchase: %v", err)
	}
	entry, err := types.NewHistoryEntry(p.ID, 1, "state", p.State, now)
	if err != nil {
		tb.Fatalf("seed history: %v", err)
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		tb.Fatalf("seed history: %v", err)
	}
	return p
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }
