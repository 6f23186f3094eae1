package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/jointbuy-backend/internal/http/handlers"
	httpMW "github.com/yungbote/jointbuy-backend/internal/http/middleware"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	AuthMiddleware       *httpMW.AuthMiddleware
	JointPurchaseHandler *httpH.JointPurchaseHandler
	RealtimeHandler      *httpH.RealtimeHandler
	HealthHandler        *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
		protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
	}

	// Joint purchases
	if h := cfg.JointPurchaseHandler; h != nil {
		protected.POST("/purchases", h.Create)
		protected.POST("/goods/:good_id/purchases", h.CreateForGood)
		protected.GET("/purchases", h.Find)
		protected.GET("/purchases/:id", h.Get)
		protected.PATCH("/purchases/:id", h.UpdateField)
		protected.PUT("/purchases/:id/volume", h.UpdateVolume)
		protected.PUT("/purchases/:id/min-volume", h.UpdateMinVolume)
		protected.PUT("/purchases/:id/public", h.UpdateIsPublic)

		protected.POST("/purchases/:id/black-list/:user_id", h.AddToBlackList())
		protected.DELETE("/purchases/:id/black-list/:user_id", h.RemoveFromBlackList())
		protected.POST("/purchases/:id/white-list/:user_id", h.AddToWhiteList())
		protected.DELETE("/purchases/:id/white-list/:user_id", h.RemoveFromWhiteList())

		protected.POST("/purchases/:id/participants", h.Join)
		protected.DELETE("/purchases/:id/participants", h.Detach)
		protected.PUT("/purchases/:id/participants/delivery", h.UpdateDelivery)
		protected.PUT("/purchases/:id/participants/:user_id/payment", h.UpdatePayment())
		protected.PUT("/purchases/:id/participants/:user_id/sent", h.UpdateSent())

		protected.POST("/purchases/:id/fake-participants", h.JoinFake)
		protected.DELETE("/purchases/:id/fake-participants/:login", h.DetachFake)
		protected.PUT("/purchases/:id/fake-participants/:login/payment", h.UpdateFakePayment())
		protected.PUT("/purchases/:id/fake-participants/:login/sent", h.UpdateFakeSent())

		protected.GET("/me/purchases", h.ListMine)
		protected.GET("/me/orders", h.ListOrders)
	}

	return r
}
