package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/redis"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/transport/http/handlers"
	"github.com/kiwitweaks/commerce-api/internal/transport/http/middleware"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Accounts      *usecase.AccountService
	Verifications *usecase.VerificationService
	PasswordReset *usecase.PasswordResetService
	Checkout      *usecase.CheckoutService
	Licenses      *usecase.LicenseService
	Orders        *usecase.OrderService
	Profiles      *usecase.ProfileService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Tokens      *security.TokenManager
	Pool        *pgxpool.Pool
	Redis       *redis.Client // nil when redis is not configured
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	authRequired := middleware.RequireAuth(deps.Tokens)
	authOptional := middleware.OptionalAuth(deps.Tokens)

	healthHandler := handlers.NewHealthHandler(deps.Pool, deps.Redis)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if generalRule, ok := generalLimit(deps.Config); ok && deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.RateLimit(generalRule))
	}
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Accounts)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", withLimit(deps, "register", deps.Config.RateLimit.RegisterMax, deps.Config.RateLimit.RegisterWindow, authHandler.Register)...)
		authGroup.POST("/login", withLimit(deps, "login", deps.Config.RateLimit.LoginMax, deps.Config.RateLimit.LoginWindow, authHandler.Login)...)

		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verifications)
		authGroup.POST("/verify-email", verificationHandler.Verify)
		authGroup.POST("/resend-verification", withLimit(deps, "verify_resend", deps.Config.RateLimit.VerifyResendMax, deps.Config.RateLimit.VerifyResendWindow, verificationHandler.Resend)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		passwordGroup := api.Group("/password")
		passwordGroup.POST("/reset/request", withLimit(deps, "password_reset", deps.Config.RateLimit.PasswordResetMax, deps.Config.RateLimit.PasswordResetWindow, passwordHandler.ResetRequest)...)
		passwordGroup.POST("/reset/confirm", passwordHandler.ResetConfirm)

		paymentHandler := handlers.NewPaymentHandler(deps.Services.Checkout, deps.Logger)
		paymentGroup := api.Group("/payments")
		paymentGroup.POST("/stripe/webhook", paymentHandler.StripeWebhook)
		paymentGroup.POST("/paypal/capture", withLimit(deps, "payment", deps.Config.RateLimit.PaymentMax, deps.Config.RateLimit.PaymentWindow, paymentHandler.PayPalCapture)...)

		licenseHandler := handlers.NewLicenseHandler(deps.Services.Licenses)
		licenseGroup := api.Group("/licenses")
		licenseGroup.POST("/generate", authRequired, licenseHandler.Generate)
		licenseGroup.POST("/verify", authOptional, licenseHandler.Verify)

		orderHandler := handlers.NewOrderHandler(deps.Services.Orders)
		orderGroup := api.Group("/orders")
		orderGroup.Use(authRequired)
		orderGroup.GET("", orderHandler.List)
		orderGroup.POST("", orderHandler.Create)
		orderGroup.GET("/:order_id", orderHandler.Get)

		profileHandler := handlers.NewProfileHandler(deps.Services.Profiles)
		api.GET("/profile", authRequired, profileHandler.Get)

		productHandler := handlers.NewProductHandler()
		api.GET("/products", productHandler.List)
	}

	return r
}

// withLimit prepends a per-endpoint rate-limit middleware when the tier is
// configured, then appends the handler.
func withLimit(deps Dependencies, name string, limit int, window time.Duration, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 || window <= 0 {
		return []gin.HandlerFunc{handler}
	}

	rule := middleware.RateLimitRule{
		Name:       name + "_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}

// generalLimit builds the catch-all tier, with graduated slowdown past the
// soft threshold before the hard cap rejects.
func generalLimit(cfg *config.AppConfig) (middleware.RateLimitRule, bool) {
	if cfg == nil || cfg.RateLimit.GeneralMax <= 0 || cfg.RateLimit.GeneralWindow <= 0 {
		return middleware.RateLimitRule{}, false
	}

	return middleware.RateLimitRule{
		Name:          "general_ip",
		Limit:         cfg.RateLimit.GeneralMax,
		Window:        cfg.RateLimit.GeneralWindow,
		Identifier:    middleware.ClientIPIdentifier(),
		SlowdownAfter: 30,
		SlowdownStep:  100 * time.Millisecond,
	}, true
}
