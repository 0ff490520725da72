package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/service"
)

// Handlers agrupa los handlers que monta el router.
type Handlers struct {
	User     *UserHandler
	Debtor   *DebtorHandler
	Dataset  *DatasetHandler
	Strategy *StrategyHandler
	Bot      *BotHandler
	Campaign *CampaignHandler
	Webhook  *WebhookHandler
}

// RouterOptions son los parámetros de plataforma del router.
type RouterOptions struct {
	AllowedOrigins []string
	IPLimiter      service.RateLimiter // nil desactiva el límite por IP
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, jwtSvc *service.JWTService, h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()

	r.Use(
		requestIDMiddleware(),
		zapLoggerMiddleware(logger),
		gin.Recovery(),
		cors.New(corsConfig(opts.AllowedOrigins)),
		securityHeadersMiddleware(),
		// Las ráfagas de Twilio/Meta llegan todas desde pocas IPs del proveedor.
		ipRateLimitMiddleware(opts.IPLimiter, logger, "/webhook"),
		requestValidationMiddleware("/webhook", "/metrics", "/health"),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := JWTAuthMiddleware(jwtSvc)

	for _, prefix := range []string{"/auth", "/api/v1/auth"} {
		auth := r.Group(prefix)
		auth.POST("/register", h.User.Register)
		auth.POST("/login", h.User.Login)
		auth.POST("/refresh", h.User.RefreshToken)
		auth.POST("/logout", h.User.Logout)
		auth.GET("/whoami", authMW, h.User.WhoAmI)
		auth.GET("/admin/ping", authMW, RequireRole(domain.RoleAdmin), h.User.AdminPing)
	}

	debtors := r.Group("/debtor", authMW)
	debtors.GET("", h.Debtor.List)
	debtors.GET("/", h.Debtor.List)
	debtors.POST("", h.Debtor.Create)
	debtors.POST("/", h.Debtor.Create)
	debtors.GET("/:id", h.Debtor.Get)
	debtors.PUT("/:id", h.Debtor.Update)
	debtors.DELETE("/:id", h.Debtor.Delete)
	debtors.GET("/:id/conversation", h.Debtor.Conversation)

	datasets := r.Group("/debtor-datasets", authMW)
	datasets.GET("/", h.Dataset.List)
	datasets.POST("/", h.Dataset.Create)
	datasets.POST("/upload-dataset/", h.Dataset.Upload)
	datasets.GET("/:id", h.Dataset.Get)
	datasets.PUT("/:id", h.Dataset.Rename)
	datasets.DELETE("/:id", h.Dataset.Delete)
	datasets.GET("/:id/custom-fields/", h.Dataset.ListFields)
	datasets.POST("/:id/custom-fields/", h.Dataset.CreateField)
	datasets.GET("/:id/custom-fields/:field_id", h.Dataset.GetField)
	datasets.PUT("/:id/custom-fields/:field_id", h.Dataset.UpdateField)
	datasets.DELETE("/:id/custom-fields/:field_id", h.Dataset.DeleteField)

	strategies := r.Group("/strategy", authMW)
	strategies.GET("/", h.Strategy.List)
	strategies.POST("/", h.Strategy.Create)
	strategies.GET("/:id", h.Strategy.Get)
	strategies.POST("/:id", h.Strategy.Update)
	strategies.PUT("/:id", h.Strategy.Update)
	strategies.DELETE("/:id", h.Strategy.Delete)

	bots := r.Group("/bot", authMW)
	bots.GET("/", h.Bot.List)
	bots.POST("/", h.Bot.Create)
	bots.GET("/:id", h.Bot.Get)
	bots.POST("/:id", h.Bot.Update)
	bots.PUT("/:id", h.Bot.Update)
	bots.DELETE("/:id", h.Bot.Delete)

	campaigns := r.Group("/campaign", authMW)
	campaigns.GET("/", h.Campaign.List)
	campaigns.POST("/", h.Campaign.Create)
	campaigns.GET("/throw-campaign/:id", h.Campaign.Launch)
	campaigns.GET("/:id", h.Campaign.Get)
	campaigns.PUT("/:id", h.Campaign.Update)
	campaigns.DELETE("/:id", h.Campaign.Delete)

	webhook := r.Group("/webhook")
	webhook.POST("/", h.Webhook.Twilio)
	webhook.GET("/meta", h.Webhook.VerifyMeta)
	webhook.POST("/meta", h.Webhook.Meta)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
