// Package config loads service configuration from config.toml, a .env file
// and PAINT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAINT_DATABASE_HOST
const EnvPrefix = "PAINT"

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// defaultJWTSecret is only acceptable outside production
const defaultJWTSecret = "paintworks-development-secret"

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Outbox      OutboxConfig
	Planning    PlanningConfig
	Maintenance MaintenanceConfig
	Telemetry   TelemetryConfig
	Swagger     SwaggerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the service runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis
// and the in-memory idempotency store is used instead.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds bearer token validation settings. Tokens are issued by the
// identity service; this service only verifies them.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Required bool
}

// SwaggerConfig holds API documentation endpoint settings
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string // single IPs or CIDRs, empty allows all
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxBodySize      int64
	CORSAllowOrigins []string
}

// OutboxConfig holds the outbox processor settings
type OutboxConfig struct {
	Enabled          bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// PlanningConfig holds production planning rules
type PlanningConfig struct {
	OutputWeightTolerancePercent decimal.Decimal
	BatchNumberMaxAttempts       int
}

// MaintenanceConfig holds the nightly maintenance scheduler settings.
// Schedule is a "minute hour * * *" cron expression.
type MaintenanceConfig struct {
	Enabled       bool
	Schedule      string
	Workers       int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// TelemetryConfig holds OpenTelemetry and profiling settings
type TelemetryConfig struct {
	ServiceName       string
	CollectorEndpoint string
	Insecure          bool
	TracingEnabled    bool
	SamplingRatio     float64
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	LogsLevel         string
	DBTracingEnabled  bool
	ProfilingEnabled  bool
	ProfilingServer   string
	ProfilingAuthUser string
	ProfilingAuthPass string
	ProfileMutexBlock bool
	SpanProfiles      bool
}

// Load reads config.toml from ".", "./config" or "/app", then .env, then the
// environment. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"app.name": "paintworks-planner",
		"app.env":  "development",
		"app.port": "8080",

		"database.driver":            DriverPostgres,
		"database.host":              "localhost",
		"database.port":              5432,
		"database.user":              "postgres",
		"database.dbname":            "paintworks",
		"database.sslmode":           "disable",
		"database.sqlite_path":       "paintworks.db",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": time.Hour,
		"database.slow_threshold":    200 * time.Millisecond,

		"redis.port": 6379,

		"jwt.secret":   defaultJWTSecret,
		"jwt.issuer":   "paintworks-identity",
		"jwt.required": true,

		"log.level":  "info",
		"log.format": "console",
		"log.output": "stdout",

		"http.read_timeout":     15 * time.Second,
		"http.write_timeout":    30 * time.Second,
		"http.idle_timeout":     60 * time.Second,
		"http.shutdown_timeout": 15 * time.Second,
		"http.max_body_size":    int64(2 << 20),

		"outbox.enabled":           true,
		"outbox.batch_size":        100,
		"outbox.poll_interval":     5 * time.Second,
		"outbox.max_retries":       5,
		"outbox.cleanup_retention": 7 * 24 * time.Hour,
		"outbox.idempotency_ttl":   7 * 24 * time.Hour,

		"planning.output_weight_tolerance_percent": "5",
		"planning.batch_number_max_attempts":       5,

		"maintenance.enabled":        true,
		"maintenance.schedule":       "0 2 * * *",
		"maintenance.workers":        1,
		"maintenance.job_timeout":    10 * time.Minute,
		"maintenance.retry_attempts": 3,
		"maintenance.retry_delay":    5 * time.Minute,

		"telemetry.service_name":       "paintworks-planner",
		"telemetry.collector_endpoint": "localhost:4317",
		"telemetry.sampling_ratio":     1.0,
		"telemetry.metrics_interval":   60 * time.Second,
		"telemetry.logs_level":         "info",

		"swagger.enabled": true,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func fromViper(v *viper.Viper) (*Config, error) {
	tolerance, err := decimal.NewFromString(v.GetString("planning.output_weight_tolerance_percent"))
	if err != nil {
		return nil, fmt.Errorf("planning.output_weight_tolerance_percent: %w", err)
	}

	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Required: v.GetBool("jwt.required"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Outbox: OutboxConfig{
			Enabled:          v.GetBool("outbox.enabled"),
			BatchSize:        v.GetInt("outbox.batch_size"),
			PollInterval:     v.GetDuration("outbox.poll_interval"),
			MaxRetries:       v.GetInt("outbox.max_retries"),
			CleanupRetention: v.GetDuration("outbox.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("outbox.idempotency_ttl"),
		},
		Planning: PlanningConfig{
			OutputWeightTolerancePercent: tolerance,
			BatchNumberMaxAttempts:       v.GetInt("planning.batch_number_max_attempts"),
		},
		Maintenance: MaintenanceConfig{
			Enabled:       v.GetBool("maintenance.enabled"),
			Schedule:      v.GetString("maintenance.schedule"),
			Workers:       v.GetInt("maintenance.workers"),
			JobTimeout:    v.GetDuration("maintenance.job_timeout"),
			RetryAttempts: v.GetInt("maintenance.retry_attempts"),
			RetryDelay:    v.GetDuration("maintenance.retry_delay"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:       v.GetString("telemetry.service_name"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			LogsLevel:         v.GetString("telemetry.logs_level"),
			DBTracingEnabled:  v.GetBool("telemetry.db_tracing_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
			ProfilingAuthUser: v.GetString("telemetry.profiling_auth_user"),
			ProfilingAuthPass: v.GetString("telemetry.profiling_auth_password"),
			ProfileMutexBlock: v.GetBool("telemetry.profile_mutex_block"),
			SpanProfiles:      v.GetBool("telemetry.span_profiles"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}, nil
}

// Validate checks cross-field rules and production hardening
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.MaxOpenConns <= 0 {
			return errors.New("database.max_open_conns must be positive")
		}
		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
				c.Database.MaxIdleConns, c.Database.MaxOpenConns)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("database.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if !c.Planning.OutputWeightTolerancePercent.IsPositive() {
		return errors.New("planning.output_weight_tolerance_percent must be positive")
	}
	if c.Planning.BatchNumberMaxAttempts < 1 {
		return errors.New("planning.batch_number_max_attempts must be at least 1")
	}
	if c.Outbox.BatchSize <= 0 {
		return errors.New("outbox.batch_size must be positive")
	}
	if c.Outbox.PollInterval <= 0 {
		return errors.New("outbox.poll_interval must be positive")
	}
	if c.Maintenance.Enabled && c.Maintenance.Workers < 1 {
		return errors.New("maintenance.workers must be at least 1")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret {
			return errors.New("jwt.secret must be set in production")
		}
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver != DriverPostgres {
			return errors.New("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return errors.New("http.cors_allow_origins cannot be '*' in production")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return errors.New("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
	}
	return nil
}

// DSN returns the postgres connection URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
