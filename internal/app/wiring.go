package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/jointbuy-backend/internal/data/aggregates"
	jprepo "github.com/yungbote/jointbuy-backend/internal/data/repos/purchases"
	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	httpH "github.com/yungbote/jointbuy-backend/internal/http/handlers"
	httpMW "github.com/yungbote/jointbuy-backend/internal/http/middleware"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
	"github.com/yungbote/jointbuy-backend/internal/realtime"
	"github.com/yungbote/jointbuy-backend/internal/realtime/bus"
	"github.com/yungbote/jointbuy-backend/internal/services"
)

type Repos struct {
	JointPurchase jprepo.JointPurchaseRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		JointPurchase: jprepo.NewJointPurchaseRepo(db, log),
	}
}

type Services struct {
	Auth          services.AuthService
	JointPurchase services.JointPurchaseService

	Aggregate domainagg.JointPurchaseAggregate
	Emitter   services.SSEEmitter
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, hub *realtime.SSEHub, sseBus bus.Bus) Services {
	log.Info("Wiring services...")
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if sseBus != nil {
		emitter = &services.RedisEmitter{Bus: sseBus, Log: log.With("component", "RedisEmitter")}
	}
	agg := aggregates.NewJointPurchaseAggregate(aggregates.JointPurchaseAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log},
		Purchases: repos.JointPurchase,
	})
	return Services{
		Auth:          services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		JointPurchase: services.NewJointPurchaseService(log, repos.JointPurchase, agg, services.NewPurchaseNotifier(emitter)),
		Aggregate:     agg,
		Emitter:       emitter,
	}
}

type Handlers struct {
	JointPurchase *httpH.JointPurchaseHandler
	Realtime      *httpH.RealtimeHandler
	Health        *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svcs Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		JointPurchase: httpH.NewJointPurchaseHandler(log, svcs.JointPurchase),
		Realtime:      httpH.NewRealtimeHandler(log, hub),
		Health:        httpH.NewHealthHandler(db),
	}
}

func wireMiddleware(log *logger.Logger, svcs Services) *httpMW.AuthMiddleware {
	return httpMW.NewAuthMiddleware(log, svcs.Auth)
}
