package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	GRPC      GRPCSettings      `mapstructure:"grpc"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCSettings configures the gRPC health endpoint.
type GRPCSettings struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

type PostgresSettings struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Schema            string        `mapstructure:"schema"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectAttempts   int           `mapstructure:"connect_attempts"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	TwoFactorPrefix string `mapstructure:"two_factor_prefix"`
	PoolSize        int    `mapstructure:"pool_size"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AuthSettings configures verification of ID tokens issued by the identity provider.
type AuthSettings struct {
	TokenSecret   string        `mapstructure:"token_secret"`
	TokenIssuer   string        `mapstructure:"token_issuer"`
	AdminRole     string        `mapstructure:"admin_role"`
	ClockSkew     time.Duration `mapstructure:"clock_skew"`
	TOTPIssuer    string        `mapstructure:"totp_issuer"`
	TOTPSkewSteps uint          `mapstructure:"totp_skew_steps"`
}

// SessionSettings configures idle-session timeouts.
type SessionSettings struct {
	AdminTimeout   time.Duration `mapstructure:"admin_timeout"`
	RegularTimeout time.Duration `mapstructure:"regular_timeout"`
	WarningBefore  time.Duration `mapstructure:"warning_before"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// RateLimitPolicySettings configures one limit type.
type RateLimitPolicySettings struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Window        time.Duration `mapstructure:"window"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
}

// RateLimitSettings configures the per-action attempt ledgers.
type RateLimitSettings struct {
	KeyPrefix     string                  `mapstructure:"key_prefix"`
	RecordTTL     time.Duration           `mapstructure:"record_ttl"`
	Degradation   string                  `mapstructure:"degradation"`
	Login         RateLimitPolicySettings `mapstructure:"login"`
	TwoFactor     RateLimitPolicySettings `mapstructure:"two_factor"`
	PasswordReset RateLimitPolicySettings `mapstructure:"password_reset"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("HOPEHAND")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"grpc.enabled",
		"grpc.host",
		"grpc.port",
		"grpc.health_interval",
		"postgres.enabled",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.schema",
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
		"redis.two_factor_prefix",
		"redis.pool_size",
		"redis.connect_attempts",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"auth.token_secret",
		"auth.token_issuer",
		"auth.admin_role",
		"auth.clock_skew",
		"auth.totp_issuer",
		"auth.totp_skew_steps",
		"session.admin_timeout",
		"session.regular_timeout",
		"session.warning_before",
		"session.check_interval",
		"session.max_retries",
		"session.retry_delay",
		"rate_limit.key_prefix",
		"rate_limit.record_ttl",
		"rate_limit.degradation",
		"rate_limit.login.max_attempts",
		"rate_limit.login.window",
		"rate_limit.login.block_duration",
		"rate_limit.two_factor.max_attempts",
		"rate_limit.two_factor.window",
		"rate_limit.two_factor.block_duration",
		"rate_limit.password_reset.max_attempts",
		"rate_limit.password_reset.window",
		"rate_limit.password_reset.block_duration",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hopehand-guard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("grpc.health_interval", "15s")

	v.SetDefault("postgres.enabled", true)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "hopehand")
	v.SetDefault("postgres.password", "hopehand_password")
	v.SetDefault("postgres.database", "hopehand")
	v.SetDefault("postgres.schema", "hopehand")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.connect_attempts", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.two_factor_prefix", "hopehand:mfa:secret")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.connect_attempts", 5)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "hopehand")
	v.SetDefault("kafka.async", true)

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_issuer", "hopehand-auth")
	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("auth.clock_skew", "30s")
	v.SetDefault("auth.totp_issuer", "HopeHand")
	v.SetDefault("auth.totp_skew_steps", 1)

	v.SetDefault("session.admin_timeout", "30m")
	v.SetDefault("session.regular_timeout", "120m")
	v.SetDefault("session.warning_before", "5m")
	v.SetDefault("session.check_interval", "60s")
	v.SetDefault("session.max_retries", 3)
	v.SetDefault("session.retry_delay", "1s")

	v.SetDefault("rate_limit.key_prefix", "hopehand:rate-limit")
	v.SetDefault("rate_limit.record_ttl", "48h")
	v.SetDefault("rate_limit.degradation", "lenient")
	v.SetDefault("rate_limit.login.max_attempts", 5)
	v.SetDefault("rate_limit.login.window", "15m")
	v.SetDefault("rate_limit.login.block_duration", "30m")
	v.SetDefault("rate_limit.two_factor.max_attempts", 3)
	v.SetDefault("rate_limit.two_factor.window", "5m")
	v.SetDefault("rate_limit.two_factor.block_duration", "15m")
	v.SetDefault("rate_limit.password_reset.max_attempts", 3)
	v.SetDefault("rate_limit.password_reset.window", "60m")
	v.SetDefault("rate_limit.password_reset.block_duration", "24h")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "hopehand-guard")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "HOPEHAND_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
