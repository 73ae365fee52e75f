package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"conversation-service/internal/auth"
	"conversation-service/internal/config"
	"conversation-service/internal/handlers"
	"conversation-service/internal/middleware"
	"conversation-service/internal/notify"
	"conversation-service/internal/observability"
	"conversation-service/internal/rabbitmq"
	"conversation-service/internal/repositories"
	"conversation-service/internal/services"
	"conversation-service/internal/telemetry"
	"conversation-service/internal/ws"
)

const (
	auditRoutingKey = "audit.conversations"
	tokenTTL        = 24 * time.Hour
)

// App is the wired HTTP side of the service.
type App struct {
	Router  *gin.Engine
	Hub     *ws.Hub
	JWT     *auth.JWTManager
	limiter *middleware.LimiterStore
}

// New wires repositories, services and handlers onto a gin router.
func New(cfg *config.Config, db *sqlx.DB, publisher rabbitmq.Publisher) *App {
	jwt := auth.NewJWTManager(cfg.JWTSecret, tokenTTL)
	hub := ws.NewHub(publisher)
	dispatcher := notify.NewDispatcher(publisher, hub)
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.AppEnv)

	conversationRepo := repositories.NewConversationRepo(db)
	messageRepo := repositories.NewMessageRepo(db)
	listingRepo := repositories.NewListingRepo(db)

	conversationService := services.NewConversationService(conversationRepo, messageRepo, listingRepo, dispatcher)
	moderationService := services.NewModerationService(conversationRepo, messageRepo)

	limiter := middleware.NewLimiterStore(cfg.SendRatePerMinute, cfg.SendRateBurst, time.Minute)

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(cfg.ServiceName),
		observability.HTTPMetricsMiddleware(),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/conversations/:uuid", ws.NewConversationWebSocketHandler(hub, conversationService, jwt).Handle)

	authed := router.Group("/", middleware.AuthMiddleware(jwt))
	handlers.NewConversationHandler(conversationService, audit).Register(authed, middleware.RateLimit(limiter))
	handlers.NewAdminHandler(moderationService, audit).Register(authed.Group("/admin", middleware.RequireAdmin()))
	handlers.RegisterDebugRoutes(authed, audit, cfg.DebugRoutes)

	return &App{Router: router, Hub: hub, JWT: jwt, limiter: limiter}
}

// Close stops background work owned by the app.
func (a *App) Close() {
	a.limiter.Stop()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", observability.RequestIDHeader)
	cfg.ExposeHeaders = []string{observability.RequestIDHeader}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
