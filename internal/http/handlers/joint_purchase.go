package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jprepo "github.com/yungbote/jointbuy-backend/internal/data/repos/purchases"
	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	types "github.com/yungbote/jointbuy-backend/internal/domain/purchases"
	"github.com/yungbote/jointbuy-backend/internal/http/response"
	"github.com/yungbote/jointbuy-backend/internal/platform/ctxutil"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/services"
)

type JointPurchaseHandler struct {
	log       *logger.Logger
	purchases services.JointPurchaseService
}

func NewJointPurchaseHandler(log *logger.Logger, purchases services.JointPurchaseService) *JointPurchaseHandler {
	return &JointPurchaseHandler{log: log.With("handler", "JointPurchaseHandler"), purchases: purchases}
}

func badRequest(c *gin.Context, message string) {
	response.RespondError(c, http.StatusBadRequest, message)
}

// pathID parses a uuid path parameter, answering 400 "INVALID <name>" on failure.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := domainagg.ParseID(name, c.Param(name))
	if err != nil {
		response.RespondAggregateError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func requestUserID(c *gin.Context) uuid.UUID {
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}

func (h *JointPurchaseHandler) write(c *gin.Context, p *types.JointPurchase, err error) {
	if err != nil {
		if response.StatusFor(domainagg.CodeOf(err)) == http.StatusInternalServerError {
			h.log.Error("joint purchase write failed", "path", c.FullPath(), "error", err)
		}
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"purchase": p})
}

// POST /api/purchases
func (h *JointPurchaseHandler) Create(c *gin.Context) {
	var in domainagg.CreatePurchaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "INVALID BODY")
		return
	}
	p, err := h.purchases.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"purchase": p})
}

// POST /api/goods/:good_id/purchases
func (h *JointPurchaseHandler) CreateForGood(c *gin.Context) {
	goodID, ok := pathID(c, "good_id")
	if !ok {
		return
	}
	var in domainagg.CreatePurchaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "INVALID BODY")
		return
	}
	p, err := h.purchases.CreateForGood(c.Request.Context(), goodID, in)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"purchase": p})
}

// GET /api/purchases/:id
func (h *JointPurchaseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.purchases.GetByID(c.Request.Context(), id)
	h.write(c, p, err)
}

// GET /api/purchases
func (h *JointPurchaseHandler) Find(c *gin.Context) {
	filter, order, skip, limit, msg := parseFindQuery(c)
	if msg != "" {
		badRequest(c, msg)
		return
	}
	page, err := h.purchases.Find(c.Request.Context(), filter, skip, limit, order)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func parseFindQuery(c *gin.Context) (jprepo.PurchaseFilter, jprepo.CategoryOrder, int, int, string) {
	var filter jprepo.PurchaseFilter
	skip, err := queryInt(c, "skip")
	if err != nil {
		return filter, nil, 0, 0, "INVALID skip"
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return filter, nil, 0, 0, "INVALID limit"
	}
	if filter.CategoryIDs, err = queryIDList(c, "category"); err != nil {
		return filter, nil, 0, 0, "INVALID category"
	}
	for name, dst := range map[string]**uuid.UUID{"city": &filter.CityID, "creator": &filter.CreatorID, "good": &filter.GoodID} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, nil, 0, 0, "INVALID " + name
		}
		*dst = &id
	}
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		n, err := strconv.Atoi(raw)
		state := types.PurchaseState(n)
		if err != nil || !state.Valid() {
			return filter, nil, 0, 0, "INVALID state"
		}
		filter.State = &state
	}
	if raw := strings.TrimSpace(c.Query("is_public")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, nil, 0, 0, "INVALID is_public"
		}
		filter.IsPublic = &b
	}
	filter.Query = strings.TrimSpace(c.Query("q"))

	ranked, err := queryIDList(c, "category_order")
	if err != nil {
		return filter, nil, 0, 0, "INVALID category_order"
	}
	var order jprepo.CategoryOrder
	if len(ranked) > 0 {
		order = make(jprepo.CategoryOrder, len(ranked))
		for i, id := range ranked {
			if _, seen := order[id]; !seen {
				order[id] = i
			}
		}
	}
	return filter, order, skip, limit, ""
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func queryIDList(c *gin.Context, name string) ([]uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	var out []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// GET /api/me/purchases
func (h *JointPurchaseHandler) ListMine(c *gin.Context) {
	items, err := h.purchases.ListCreated(c.Request.Context(), requestUserID(c))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/me/orders
func (h *JointPurchaseHandler) ListOrders(c *gin.Context) {
	items, err := h.purchases.ListOrders(c.Request.Context(), requestUserID(c))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// PATCH /api/purchases/:id
func (h *JointPurchaseHandler) UpdateField(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		badRequest(c, "MISSING name")
		return
	}
	p, err := h.purchases.UpdateField(c.Request.Context(), id, strings.TrimSpace(req.Name), req.Value)
	h.write(c, p, err)
}

// PUT /api/purchases/:id/volume
func (h *JointPurchaseHandler) UpdateVolume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		badRequest(c, "MISSING volume")
		return
	}
	p, err := h.purchases.UpdateVolume(c.Request.Context(), id, *req.Volume)
	h.write(c, p, err)
}

// PUT /api/purchases/:id/min-volume
func (h *JointPurchaseHandler) UpdateMinVolume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		MinVolume *float64 `json:"min_volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MinVolume == nil {
		badRequest(c, "MISSING min_volume")
		return
	}
	p, err := h.purchases.UpdateMinVolume(c.Request.Context(), id, *req.MinVolume)
	h.write(c, p, err)
}

// PUT /api/purchases/:id/public
func (h *JointPurchaseHandler) UpdateIsPublic(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsPublic *bool `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsPublic == nil {
		badRequest(c, "MISSING is_public")
		return
	}
	p, err := h.purchases.UpdateIsPublic(c.Request.Context(), id, *req.IsPublic)
	h.write(c, p, err)
}

func (h *JointPurchaseHandler) listMember(fn func(ctx context.Context, purchaseID, userID uuid.UUID) (*types.JointPurchase, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		userID, ok := pathID(c, "user_id")
		if !ok {
			return
		}
		p, err := fn(c.Request.Context(), id, userID)
		h.write(c, p, err)
	}
}

// POST /api/purchases/:id/black-list/:user_id
func (h *JointPurchaseHandler) AddToBlackList() gin.HandlerFunc {
	return h.listMember(h.purchases.AddToBlackList)
}

// DELETE /api/purchases/:id/black-list/:user_id
func (h *JointPurchaseHandler) RemoveFromBlackList() gin.HandlerFunc {
	return h.listMember(h.purchases.RemoveFromBlackList)
}

// POST /api/purchases/:id/white-list/:user_id
func (h *JointPurchaseHandler) AddToWhiteList() gin.HandlerFunc {
	return h.listMember(h.purchases.AddToWhiteList)
}

// DELETE /api/purchases/:id/white-list/:user_id
func (h *JointPurchaseHandler) RemoveFromWhiteList() gin.HandlerFunc {
	return h.listMember(h.purchases.RemoveFromWhiteList)
}

// POST /api/purchases/:id/participants
func (h *JointPurchaseHandler) Join(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		badRequest(c, "MISSING volume")
		return
	}
	p, err := h.purchases.Join(c.Request.Context(), id, *req.Volume)
	h.write(c, p, err)
}

// DELETE /api/purchases/:id/participants
func (h *JointPurchaseHandler) Detach(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.purchases.Detach(c.Request.Context(), id)
	h.write(c, p, err)
}

// PUT /api/purchases/:id/participants/delivery
func (h *JointPurchaseHandler) UpdateDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Delivered *bool `json:"delivered"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Delivered == nil {
		badRequest(c, "MISSING delivered")
		return
	}
	p, err := h.purchases.UpdateDelivery(c.Request.Context(), id, *req.Delivered)
	h.write(c, p, err)
}

// markerBody reads {"<field>": "..."}; null or an absent field clears the marker.
func markerBody(c *gin.Context, field string) (*string, bool) {
	var body map[string]*string
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "INVALID "+field)
		return nil, false
	}
	return body[field], true
}

// PUT /api/purchases/:id/participants/:user_id/payment
func (h *JointPurchaseHandler) UpdatePayment() gin.HandlerFunc {
	return h.mark("paid", h.purchases.UpdatePayment)
}

// PUT /api/purchases/:id/participants/:user_id/sent
func (h *JointPurchaseHandler) UpdateSent() gin.HandlerFunc {
	return h.mark("sent", h.purchases.UpdateSent)
}

func (h *JointPurchaseHandler) mark(field string, fn func(ctx context.Context, purchaseID, userID uuid.UUID, marker *string) (*types.JointPurchase, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		userID, ok := pathID(c, "user_id")
		if !ok {
			return
		}
		marker, ok := markerBody(c, field)
		if !ok {
			return
		}
		p, err := fn(c.Request.Context(), id, userID, marker)
		h.write(c, p, err)
	}
}

// POST /api/purchases/:id/fake-participants
func (h *JointPurchaseHandler) JoinFake(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Login  string   `json:"login"`
		Volume *float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		badRequest(c, "MISSING volume")
		return
	}
	p, err := h.purchases.JoinFake(c.Request.Context(), id, req.Login, *req.Volume)
	h.write(c, p, err)
}

// DELETE /api/purchases/:id/fake-participants/:login
func (h *JointPurchaseHandler) DetachFake(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.purchases.DetachFake(c.Request.Context(), id, c.Param("login"))
	h.write(c, p, err)
}

// PUT /api/purchases/:id/fake-participants/:login/payment
func (h *JointPurchaseHandler) UpdateFakePayment() gin.HandlerFunc {
	return h.markFake("paid", h.purchases.UpdateFakePayment)
}

// PUT /api/purchases/:id/fake-participants/:login/sent
func (h *JointPurchaseHandler) UpdateFakeSent() gin.HandlerFunc {
	return h.markFake("sent", h.purchases.UpdateFakeSent)
}

func (h *JointPurchaseHandler) markFake(field string, fn func(ctx context.Context, purchaseID uuid.UUID, login string, marker *string) (*types.JointPurchase, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		marker, ok := markerBody(c, field)
		if !ok {
			return
		}
		p, err := fn(c.Request.Context(), id, c.Param("login"), marker)
		h.write(c, p, err)
	}
}
