package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jointbuy-backend/internal/data/aggregates"
	jprepo "github.com/yungbote/jointbuy-backend/internal/data/repos/purchases"
	repotest "github.com/yungbote/jointbuy-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/jointbuy-backend/internal/http/handlers"
	httpMW "github.com/yungbote/jointbuy-backend/internal/http/middleware"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
	"github.com/yungbote/jointbuy-backend/internal/services"
)

type envelope struct {
	Meta struct {
		Code    int    `json:"code"`
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type purchaseBody struct {
	Purchase struct {
		ID              uuid.UUID `json:"id"`
		Creator         uuid.UUID `json:"creator"`
		Volume          float64   `json:"volume"`
		RemainingVolume float64   `json:"remaining_volume"`
		Version         int       `json:"version"`
		Participants    []struct {
			User     *uuid.UUID `json:"user"`
			FakeUser *struct {
				Login string `json:"login"`
			} `json:"fake_user"`
			Volume float64 `json:"volume"`
			Paid   *string `json:"paid"`
		} `json:"participants"`
	} `json:"purchase"`
}

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	auth   services.AuthService
	hub    *realtime.SSEHub
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := repotest.DB(t)
	log := repotest.Logger(t)

	repo := jprepo.NewJointPurchaseRepo(db, log)
	agg := aggregates.NewJointPurchaseAggregate(aggregates.JointPurchaseAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log},
		Purchases: repo,
	})
	hub := realtime.NewSSEHub(log)
	svc := services.NewJointPurchaseService(log, repo, agg, services.NewPurchaseNotifier(&services.HubEmitter{Hub: hub}))
	auth := services.NewAuthService(log, "test-secret", time.Hour)

	router := NewRouter(RouterConfig{
		Log:                  log,
		AuthMiddleware:       httpMW.NewAuthMiddleware(log, auth),
		JointPurchaseHandler: httpH.NewJointPurchaseHandler(log, svc),
		RealtimeHandler:      httpH.NewRealtimeHandler(log, hub),
		HealthHandler:        httpH.NewHealthHandler(db),
	})
	return &apiFixture{t: t, router: router, auth: auth, hub: hub}
}

func (f *apiFixture) token(userID uuid.UUID) string {
	f.t.Helper()
	tok, err := f.auth.IssueAccessToken(userID, uuid.New())
	require.NoError(f.t, err)
	return tok
}

func (f *apiFixture) do(method, path string, userID uuid.UUID, body any) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+f.token(userID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(f.t, rec.Code, env.Meta.Code)
	return rec, env
}

func (f *apiFixture) purchase(env envelope) purchaseBody {
	f.t.Helper()
	var body purchaseBody
	require.NoError(f.t, json.Unmarshal(env.Data, &body))
	return body
}

func createBody() map[string]any {
	return map[string]any{
		"name":             "buckwheat",
		"picture":          "https://example.com/buckwheat.png",
		"description":      "organic, 25kg bags",
		"category":         uuid.NewString(),
		"address":          "market street 4",
		"volume":           10,
		"min_volume":       2,
		"price_per_unit":   1.99,
		"measurement_unit": uuid.NewString(),
		"date":             time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
		"state":            0,
		"payment_type":     1,
		"payment_info":     "card 0000",
		"is_public":        true,
		"city":             uuid.NewString(),
	}
}

func TestRouterHealthAndAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(http.MethodGet, "/healthcheck", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Meta.Success)

	rec, env = f.do(http.MethodGet, "/api/purchases", uuid.Nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Meta.Success)
	require.Equal(t, "UNAUTHORIZED", env.Meta.Message)
}

func TestRouterPurchaseLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	creator, buyer, stranger := uuid.New(), uuid.New(), uuid.New()

	rec, env := f.do(http.MethodPost, "/api/purchases", creator, createBody())
	require.Equal(t, http.StatusCreated, rec.Code, env.Meta.Message)
	created := f.purchase(env).Purchase
	require.Equal(t, creator, created.Creator)
	require.Equal(t, 1, created.Version)
	base := "/api/purchases/" + created.ID.String()

	rec, env = f.do(http.MethodPost, base+"/participants", buyer, map[string]any{"volume": 4})
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)
	joined := f.purchase(env).Purchase
	require.InDelta(t, 6, joined.RemainingVolume, 1e-9)
	require.Len(t, joined.Participants, 1)
	require.Equal(t, buyer, *joined.Participants[0].User)

	rec, env = f.do(http.MethodPost, base+"/participants", stranger, map[string]any{"volume": 7})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "TOO MUCH VOLUME", env.Meta.Message)

	rec, env = f.do(http.MethodPut, base+"/volume", stranger, map[string]any{"volume": 20})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "ACCESS DENIED", env.Meta.Message)

	rec, env = f.do(http.MethodPatch, base, creator, map[string]any{"name": "volume", "value": 20})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "UNMODIFIABLE FIELD", env.Meta.Message)

	rec, env = f.do(http.MethodPatch, base, creator, map[string]any{"name": "address", "value": "depot 9"})
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)

	rec, env = f.do(http.MethodPut, base+"/participants/"+buyer.String()+"/payment", creator, map[string]any{"paid": "txn-77"})
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)
	paid := f.purchase(env).Purchase
	require.NotNil(t, paid.Participants[0].Paid)
	require.Equal(t, "txn-77", *paid.Participants[0].Paid)

	rec, env = f.do(http.MethodPost, base+"/fake-participants", creator, map[string]any{"login": "granny", "volume": 3})
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)
	withFake := f.purchase(env).Purchase
	require.Len(t, withFake.Participants, 2)
	require.Equal(t, "granny", withFake.Participants[1].FakeUser.Login)
	require.InDelta(t, 3, withFake.RemainingVolume, 1e-9)

	rec, env = f.do(http.MethodDelete, base+"/fake-participants/granny", creator, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)
	require.InDelta(t, 6, f.purchase(env).Purchase.RemainingVolume, 1e-9)

	rec, env = f.do(http.MethodDelete, base+"/participants", stranger, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT JOINT", env.Meta.Message)

	rec, env = f.do(http.MethodGet, "/api/me/orders", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders struct {
		Items []struct {
			ID uuid.UUID `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders.Items, 1)
	require.Equal(t, created.ID, orders.Items[0].ID)

	rec, env = f.do(http.MethodGet, "/api/purchases?creator="+creator.String()+"&limit=5", stranger, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page services.PurchasePage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, 5, page.Limit)
}

func TestRouterRequestErrors(t *testing.T) {
	f := newAPIFixture(t)
	user := uuid.New()

	cases := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{"unknown purchase", http.MethodGet, "/api/purchases/" + uuid.NewString(), nil, http.StatusNotFound, "NO SUCH PURCHASE"},
		{"bad purchase id", http.MethodGet, "/api/purchases/5c1f0e", nil, http.StatusBadRequest, "INVALID id"},
		{"bad user id", http.MethodPost, "/api/purchases/" + uuid.NewString() + "/black-list/nope", nil, http.StatusBadRequest, "INVALID user_id"},
		{"join without volume", http.MethodPost, "/api/purchases/" + uuid.NewString() + "/participants", map[string]any{}, http.StatusBadRequest, "MISSING volume"},
		{"bad state filter", http.MethodGet, "/api/purchases?state=9", nil, http.StatusBadRequest, "INVALID state"},
		{"bad category filter", http.MethodGet, "/api/purchases?category=x", nil, http.StatusBadRequest, "INVALID category"},
		{"create missing name", http.MethodPost, "/api/purchases", map[string]any{"volume": 1}, http.StatusBadRequest, "MISSING name"},
		{"subscribe without stream", http.MethodPost, "/api/sse/subscribe", map[string]any{"channel": "purchase:" + uuid.NewString()}, http.StatusConflict, "NO ACTIVE STREAM"},
		{"subscribe bad channel", http.MethodPost, "/api/sse/subscribe", map[string]any{"channel": "user:1"}, http.StatusBadRequest, "INVALID channel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := f.do(tc.method, tc.path, user, tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.False(t, env.Meta.Success)
			require.Equal(t, tc.message, env.Meta.Message)
		})
	}
}

func TestRouterSubscribeByClientID(t *testing.T) {
	f := newAPIFixture(t)
	user := uuid.New()
	client := f.hub.NewSSEClient(user)
	purchaseID := uuid.New()

	rec, env := f.do(http.MethodPost, "/api/sse/subscribe", user, map[string]any{
		"channel":   purchaseID.String(),
		"client_id": client.ID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Meta.Message)
	require.Equal(t, 1, f.hub.Subscribers(realtime.PurchaseChannel(purchaseID)))

	rec, _ = f.do(http.MethodPost, "/api/sse/subscribe", uuid.New(), map[string]any{
		"channel":   purchaseID.String(),
		"client_id": client.ID.String(),
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/sse/unsubscribe", user, map[string]any{
		"channel":   realtime.PurchaseChannel(purchaseID),
		"client_id": client.ID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, f.hub.Subscribers(realtime.PurchaseChannel(purchaseID)))
}
