package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/config"
	accounthandler "github.com/paybridge/platform-api/internal/handler/account"
	authhandler "github.com/paybridge/platform-api/internal/handler/auth"
	checkouthandler "github.com/paybridge/platform-api/internal/handler/checkout"
	healthhandler "github.com/paybridge/platform-api/internal/handler/health"
	webhookhandler "github.com/paybridge/platform-api/internal/handler/webhook"
	"github.com/paybridge/platform-api/internal/middleware"
	authsvc "github.com/paybridge/platform-api/internal/service/auth"
)

type Handlers struct {
	Health   *healthhandler.Handler
	Auth     *authhandler.Handler
	Account  *accounthandler.Handler
	Checkout *checkouthandler.Handler
	Webhook  *webhookhandler.Handler
}

func New(
	cfg *config.Config,
	handlers Handlers,
	authService *authsvc.Service,
	registry *prometheus.Registry,
	logger zerolog.Logger,
) *gin.Engine {
	registerValidations()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))

	engine.GET("/health/live", handlers.Health.Live)
	engine.GET("/health/ready", handlers.Health.Ready)
	engine.GET("/status", handlers.Health.Status)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	webhookLimiter := middleware.NewRateLimiter(cfg.RateLimit.WebhookRPS, cfg.RateLimit.WebhookBurst)
	engine.POST("/webhook", webhookLimiter.Limit(), handlers.Webhook.HandleWebhook)

	api := engine.Group("/api/v1")

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
	authRoutes := api.Group("/auth", authLimiter.Limit())
	{
		authRoutes.POST("/register", handlers.Auth.Register)
		authRoutes.POST("/login", handlers.Auth.Login)
		authRoutes.POST("/refresh", handlers.Auth.Refresh)
	}

	protected := api.Group("", middleware.Authenticate(authService))
	{
		protected.POST("/accounts", handlers.Account.Connect)
		protected.GET("/accounts", handlers.Account.List)
		protected.PATCH("/accounts/:id/store-domain", handlers.Account.UpdateStoreDomain)

		protected.POST("/checkout/sessions", handlers.Checkout.CreateSession)
		protected.GET("/checkout/sessions/:id", handlers.Checkout.GetSession)
	}

	operator := api.Group("", middleware.OperatorOnly(cfg.Operator.Token))
	{
		operator.POST("/sweep", handlers.Webhook.TriggerSweep)
		operator.GET("/sweep/runs", handlers.Webhook.ListSweepRuns)
		operator.GET("/events/:id/dispatch", handlers.Webhook.GetEventDispatch)
	}

	return engine
}

// registerValidations adds the provider_account tag used on request fields
// that must carry a provider connected-account id.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("provider_account", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), "acct_")
	})
}
