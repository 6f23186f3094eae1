package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	repotest "github.com/yungbote/jointbuy-backend/internal/data/repos/testutil"
	"github.com/yungbote/jointbuy-backend/internal/platform/ctxutil"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	as := NewAuthService(repotest.Logger(t), "secret", time.Hour)
	userID, sessionID := uuid.New(), uuid.New()
	token, err := as.IssueAccessToken(userID, sessionID)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.SessionID != sessionID || rd.TokenString != token {
		t.Fatalf("unexpected request data: %+v", rd)
	}
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	log := repotest.Logger(t)
	as := NewAuthService(log, "secret", time.Hour)

	other, err := NewAuthService(log, "other", time.Hour).IssueAccessToken(uuid.New(), uuid.Nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	expired, err := NewAuthService(log, "secret", -time.Minute).IssueAccessToken(uuid.New(), uuid.Nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	notUUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "42"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, token := range map[string]string{
		"empty":       "",
		"garbage":     "not-a-jwt",
		"wrong key":   other,
		"expired":     expired,
		"bad subject": notUUID,
	} {
		if _, err := as.SetContextFromToken(context.Background(), token); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}
