package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	Stripe    StripeSettings    `mapstructure:"stripe"`
	PayPal    PayPalSettings    `mapstructure:"paypal"`
	KeyAuth   KeyAuthSettings   `mapstructure:"keyauth"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Audit     AuditSettings     `mapstructure:"audit"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	FrontendURL    string   `mapstructure:"frontend_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectAttempts   int           `mapstructure:"connect_attempts"`
}

// RedisSettings configures the optional shared cache/rate-limit backend.
// An empty host leaves the service on process-local stores.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// Enabled reports whether a Redis backend is configured.
func (s RedisSettings) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

// KafkaSettings configures the commerce event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StripeSettings struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PayPalSettings struct {
	ClientID string `mapstructure:"client_id"`
	Secret   string `mapstructure:"secret"`
	Live     bool   `mapstructure:"live"`
}

type KeyAuthSettings struct {
	BaseURL   string        `mapstructure:"base_url"`
	SellerKey string        `mapstructure:"seller_key"`
	OwnerID   string        `mapstructure:"owner_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RateLimitSettings carries windows and max attempts per endpoint tier.
type RateLimitSettings struct {
	LoginWindow         time.Duration `mapstructure:"login_window"`
	LoginMax            int           `mapstructure:"login_max"`
	RegisterWindow      time.Duration `mapstructure:"register_window"`
	RegisterMax         int           `mapstructure:"register_max"`
	PasswordResetWindow time.Duration `mapstructure:"password_reset_window"`
	PasswordResetMax    int           `mapstructure:"password_reset_max"`
	VerifyResendWindow  time.Duration `mapstructure:"verify_resend_window"`
	VerifyResendMax     int           `mapstructure:"verify_resend_max"`
	PaymentWindow       time.Duration `mapstructure:"payment_window"`
	PaymentMax          int           `mapstructure:"payment_max"`
	GeneralWindow       time.Duration `mapstructure:"general_window"`
	GeneralMax          int           `mapstructure:"general_max"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type CacheSettings struct {
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

type AuditSettings struct {
	RetentionDays int           `mapstructure:"retention_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("KWT")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.frontend_url",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.connect_attempts",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.issuer",
		"jwt.token_ttl",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
		"stripe.secret_key",
		"stripe.webhook_secret",
		"paypal.client_id",
		"paypal.secret",
		"paypal.live",
		"keyauth.base_url",
		"keyauth.seller_key",
		"keyauth.owner_id",
		"keyauth.timeout",
		"rate_limit.login_window",
		"rate_limit.login_max",
		"rate_limit.register_window",
		"rate_limit.register_max",
		"rate_limit.password_reset_window",
		"rate_limit.password_reset_max",
		"rate_limit.verify_resend_window",
		"rate_limit.verify_resend_max",
		"rate_limit.payment_window",
		"rate_limit.payment_max",
		"rate_limit.general_window",
		"rate_limit.general_max",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"cache.profile_ttl",
		"audit.retention_days",
		"audit.sweep_interval",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required (KWT_JWT_SECRET)")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kiwitweaks-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.frontend_url", "https://kiwitweaks.com")
	v.SetDefault("app.allowed_origins", []string{"https://kiwitweaks.com", "https://www.kiwitweaks.com"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "kwt")
	v.SetDefault("postgres.password", "kwt_password")
	v.SetDefault("postgres.database", "kiwitweaks")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.connect_attempts", 4)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "kwt")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "kwt")

	v.SetDefault("jwt.issuer", "kiwitweaks")
	v.SetDefault("jwt.token_ttl", "168h")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "KiwiTweaks <no-reply@kiwitweaks.com>")

	v.SetDefault("paypal.live", false)

	v.SetDefault("keyauth.base_url", "https://keyauth.win/api/seller/")
	v.SetDefault("keyauth.timeout", "10s")

	// Rate-limit tiers per endpoint sensitivity.
	v.SetDefault("rate_limit.login_window", "15m")
	v.SetDefault("rate_limit.login_max", 5)
	v.SetDefault("rate_limit.register_window", "60m")
	v.SetDefault("rate_limit.register_max", 3)
	v.SetDefault("rate_limit.password_reset_window", "60m")
	v.SetDefault("rate_limit.password_reset_max", 5)
	v.SetDefault("rate_limit.verify_resend_window", "60m")
	v.SetDefault("rate_limit.verify_resend_max", 5)
	v.SetDefault("rate_limit.payment_window", "60m")
	v.SetDefault("rate_limit.payment_max", 10)
	v.SetDefault("rate_limit.general_window", "15m")
	v.SetDefault("rate_limit.general_max", 100)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("cache.profile_ttl", "5m")

	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.sweep_interval", "12h")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "KWT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
