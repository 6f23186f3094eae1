package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jointbuy-backend/internal/platform/ctxutil"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/services"
)

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	auth := services.NewAuthService(log, "secret", time.Hour)
	userID := uuid.New()
	token, err := auth.IssueAccessToken(userID, uuid.New())
	require.NoError(t, err)

	r := gin.New()
	r.Use(NewAuthMiddleware(log, auth).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetRequestData(c.Request.Context()).UserID.String())
	})

	do := func(target, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/whoami", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID.String(), rec.Body.String())

	rec = do("/whoami?token="+token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusUnauthorized, do("/whoami", "").Code)
	require.Equal(t, http.StatusUnauthorized, do("/whoami", "Bearer nope").Code)
	require.Equal(t, http.StatusUnauthorized, do("/whoami", "Basic "+token).Code)
}
