package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Basic     BasicSettings     `mapstructure:"basic"`
	Session   SessionSettings   `mapstructure:"session"`
	TOTP      TOTPSettings      `mapstructure:"totp"`
	IdP       IdPSettings       `mapstructure:"idp"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BasicSettings configures the Basic-Auth access gate. Credentials holds
// one or more user:password pairs separated by whitespace; an empty value
// disables the gate entirely.
type BasicSettings struct {
	Credentials     string   `mapstructure:"credentials"`
	Realm           string   `mapstructure:"realm"`
	AllowReadPaths  []string `mapstructure:"allow_read_paths"`
	AllowWritePaths []string `mapstructure:"allow_write_paths"`
}

// SessionSettings configures session ids and lifetimes.
type SessionSettings struct {
	IDBytes     int           `mapstructure:"id_bytes"`
	CSRFBytes   int           `mapstructure:"csrf_bytes"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
	CookieName  string        `mapstructure:"cookie_name"`
}

// TOTPSettings configures second-factor code generation and verification.
// The defaults match what common authenticator apps expect.
type TOTPSettings struct {
	Issuer        string        `mapstructure:"issuer"`
	Digits        int           `mapstructure:"digits"`
	Interval      time.Duration `mapstructure:"interval"`
	Tolerance     uint          `mapstructure:"tolerance"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	SecretSize    uint          `mapstructure:"secret_size"`
	EncryptionKey string        `mapstructure:"encryption_key"`
}

// IdPSettings configures the external identity provider client.
type IdPSettings struct {
	UserInfoURL string        `mapstructure:"userinfo_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type JWTSettings struct {
	KeyDirectory  string        `mapstructure:"key_directory"`
	KeyID         string        `mapstructure:"key_id"`
	TokenValidity time.Duration `mapstructure:"token_validity"`
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
}

// RedisSettings configures the Redis connection backing the session store.
// An empty host selects the in-memory store instead.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	SessionPrefix string `mapstructure:"session_prefix"`
}

// KafkaSettings configures the event publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTHGW")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"basic.credentials",
		"basic.realm",
		"basic.allow_read_paths",
		"basic.allow_write_paths",
		"session.id_bytes",
		"session.csrf_bytes",
		"session.idle_timeout",
		"session.max_lifetime",
		"session.cookie_name",
		"totp.issuer",
		"totp.digits",
		"totp.interval",
		"totp.tolerance",
		"totp.max_attempts",
		"totp.secret_size",
		"totp.encryption_key",
		"idp.userinfo_url",
		"idp.timeout",
		"jwt.key_directory",
		"jwt.key_id",
		"jwt.token_validity",
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
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
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
	v.SetDefault("app.name", "auth-adapter")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("basic.credentials", "")
	v.SetDefault("basic.realm", "GHGA Data Portal")
	v.SetDefault("basic.allow_read_paths", []string{"/.well-known/*", "/service-logo.png"})
	v.SetDefault("basic.allow_write_paths", []string{})

	v.SetDefault("session.id_bytes", 24)
	v.SetDefault("session.csrf_bytes", 24)
	v.SetDefault("session.idle_timeout", "1h")
	v.SetDefault("session.max_lifetime", "12h")
	v.SetDefault("session.cookie_name", "session")

	v.SetDefault("totp.issuer", "GHGA")
	v.SetDefault("totp.digits", 6)
	v.SetDefault("totp.interval", "30s")
	v.SetDefault("totp.tolerance", 1)
	v.SetDefault("totp.max_attempts", 3)
	v.SetDefault("totp.secret_size", 32)
	v.SetDefault("totp.encryption_key", "")

	v.SetDefault("idp.userinfo_url", "https://proxy.aai.lifescience-ri.eu/OIDC/userinfo")
	v.SetDefault("idp.timeout", "5s")

	v.SetDefault("jwt.key_directory", "./secrets")
	v.SetDefault("jwt.key_id", "v1")
	v.SetDefault("jwt.token_validity", "1h")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_prefix", "authgw:session")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "authgw")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "auth-adapter")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTHGW_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
