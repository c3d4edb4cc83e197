package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/database"
	kafkainfra "github.com/kiwitweaks/commerce-api/internal/infra/kafka"
	"github.com/kiwitweaks/commerce-api/internal/infra/licensing"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
	"github.com/kiwitweaks/commerce-api/internal/infra/mail"
	"github.com/kiwitweaks/commerce-api/internal/infra/payments"
	redisinfra "github.com/kiwitweaks/commerce-api/internal/infra/redis"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	memoryrepo "github.com/kiwitweaks/commerce-api/internal/repository/memory"
	postgresrepo "github.com/kiwitweaks/commerce-api/internal/repository/postgres"
	redisrepo "github.com/kiwitweaks/commerce-api/internal/repository/redis"
	"github.com/kiwitweaks/commerce-api/internal/transport/http/middleware"
	"github.com/kiwitweaks/commerce-api/internal/transport/http/routes"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	audit  port.AuditRepository
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	// Redis is optional. Without it the service keeps running on
	// process-local rate-limit and cache stores.
	var (
		redisClient    *redisinfra.Client
		rawRedis       *goredis.Client
		rateLimitStore port.RateLimitStore
		cacheStore     port.CacheStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		rawRedis = redisClient.Client()

		rateLimitStore = redisrepo.NewRateLimitStore(rawRedis, redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.KeyPrefix + ":rate-limit",
			TTL:       rateLimitTTL(cfg),
		})
		cacheStore = redisrepo.NewCacheStore(rawRedis, cfg.Redis.KeyPrefix+":cache")
	} else {
		log.Info("redis not configured, using in-process stores")
		rateLimitStore = memoryrepo.NewRateLimitStore()
		cacheStore = memoryrepo.NewCacheStore()
	}

	cacheLoader := cache.NewLoader(cacheStore, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("init mail templates: %w", err)
	}

	var mailer port.Mailer
	if cfg.SMTP.Host != "" {
		m, err := mail.NewMailer(cfg.SMTP, log)
		if err != nil {
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		mailer = m
	} else {
		log.Warn("smtp not configured, outbound email disabled")
	}

	stripeGateway, err := payments.NewStripeGateway(cfg.Stripe, log)
	if err != nil {
		return nil, fmt.Errorf("init stripe gateway: %w", err)
	}
	paypalGateway, err := payments.NewPayPalGateway(cfg.PayPal, log)
	if err != nil {
		return nil, fmt.Errorf("init paypal gateway: %w", err)
	}
	keyauthClient := licensing.NewKeyAuthClient(cfg.KeyAuth, log)

	users := postgresrepo.NewUserRepository(pool)
	purchases := postgresrepo.NewPurchaseRepository(pool)
	orders := postgresrepo.NewOrderRepository(pool)
	audit := postgresrepo.NewAuditRepository(pool)

	passwordValidator := security.DefaultPasswordValidator()
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	accountService := usecase.NewAccountService(cfg, users, tokens, passwordValidator, mailer, renderer, eventPublisher, log)
	verificationService := usecase.NewVerificationService(cfg, users, mailer, renderer, log).WithProfileCache(cacheLoader)
	passwordResetService := usecase.NewPasswordResetService(cfg, users, rateLimitStore, audit, mailer, renderer, passwordValidator, log)
	checkoutService := usecase.NewCheckoutService(cfg, users, purchases, orders, audit, stripeGateway, paypalGateway, keyauthClient, mailer, renderer, eventPublisher, cacheLoader, log)
	licenseService := usecase.NewLicenseService(users, purchases, keyauthClient, eventPublisher, log).WithProfileCache(cacheLoader)
	orderService := usecase.NewOrderService(users, orders, cacheLoader, log)
	profileService := usecase.NewProfileService(cfg, users, purchases, cacheLoader, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Tokens:      tokens,
		Pool:        pool,
		Redis:       redisClient,
		Services: routes.ServiceSet{
			Accounts:      accountService,
			Verifications: verificationService,
			PasswordReset: passwordResetService,
			Checkout:      checkoutService,
			Licenses:      licenseService,
			Orders:        orderService,
			Profiles:      profileService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		audit:  audit,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	go a.sweepAuditLog(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting commerce API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepAuditLog periodically enforces the audit retention window.
func (a *Application) sweepAuditLog(ctx context.Context) {
	retention := a.cfg.Audit.RetentionDays
	interval := a.cfg.Audit.SweepInterval
	if retention <= 0 || interval <= 0 || a.audit == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retention)
			removed, err := a.audit.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				a.logger.Warn("audit retention sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("audit retention sweep completed", zap.Int64("removed", removed))
			}
		}
	}
}

// rateLimitTTL sizes the Redis key TTL to cover the widest configured window.
func rateLimitTTL(cfg *config.AppConfig) time.Duration {
	widest := time.Minute
	for _, w := range []time.Duration{
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.PasswordResetWindow,
		cfg.RateLimit.VerifyResendWindow,
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.GeneralWindow,
	} {
		if w > widest {
			widest = w
		}
	}
	return widest * 2
}
