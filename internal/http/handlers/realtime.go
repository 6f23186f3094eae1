package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/jointbuy-backend/internal/http/response"
	"github.com/yungbote/jointbuy-backend/internal/platform/ctxutil"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: SessionID (token jti)
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED")
		return
	}
	client := h.hub.NewSSEClient(rd.UserID)
	if rd.SessionID != uuid.Nil {
		h.mu.Lock()
		// A session holds one stream; reconnecting replaces the previous client.
		if existing, ok := h.clients[rd.SessionID]; ok {
			h.hub.CloseClient(existing)
		}
		h.clients[rd.SessionID] = client
		h.mu.Unlock()
	}
	h.log.Info("SSE stream open", "user_id", rd.UserID.String(), "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	current, ok := h.clients[rd.SessionID]
	replaced := ok && current != client
	if ok && !replaced {
		delete(h.clients, rd.SessionID)
	}
	h.mu.Unlock()
	if !replaced {
		h.hub.CloseClient(client)
	}
}

type channelRequest struct {
	Channel  string `json:"channel"`
	ClientID string `json:"client_id"`
}

// resolve finds the caller's stream by explicit client id, else by session.
func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.SSEClient, string, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED")
		return nil, "", false
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "INVALID channel")
		return nil, "", false
	}
	channel, ok := normalizeChannel(req.Channel)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "INVALID channel")
		return nil, "", false
	}

	var client *realtime.SSEClient
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "INVALID client_id")
			return nil, "", false
		}
		client = h.hub.Client(clientID, rd.UserID)
	} else if rd.SessionID != uuid.Nil {
		h.mu.RLock()
		client = h.clients[rd.SessionID]
		h.mu.RUnlock()
	}
	if client == nil {
		response.RespondError(c, http.StatusConflict, "NO ACTIVE STREAM")
		return nil, "", false
	}
	return client, channel, true
}

// normalizeChannel accepts "purchase:<id>" or a bare purchase id.
func normalizeChannel(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	id, err := uuid.Parse(strings.TrimPrefix(raw, "purchase:"))
	if err != nil || id == uuid.Nil {
		return "", false
	}
	return realtime.PurchaseChannel(id), true
}

// POST /api/sse/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"channel": channel, "subscribed": true})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"channel": channel, "subscribed": false})
}
