package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Redis configuration (session store)
	Redis RedisConfig `mapstructure:"redis"`

	// Session token configuration
	Session SessionConfig `mapstructure:"session"`

	// Scheduling policy
	Scheduling SchedulingConfig `mapstructure:"scheduling"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Peers whose X-Forwarded-For header is honoured
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	TTL       time.Duration `mapstructure:"ttl"`
	Issuer    string        `mapstructure:"issuer"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// SchedulingConfig holds the appointment policy knobs
type SchedulingConfig struct {
	// CancellationCutoff is how long before the start a cancel or reschedule must happen
	CancellationCutoff time.Duration `mapstructure:"cancellation_cutoff"`
	// StaffBypassCutoff lets staff and admins cancel inside the cutoff
	StaffBypassCutoff bool `mapstructure:"staff_bypass_cutoff"`
	// PatientSelfBooking allows patients to create their own appointments
	PatientSelfBooking bool `mapstructure:"patient_self_booking"`
	// AllowCompleteFromCheckedIn lets clinics skip the explicit in_progress step
	AllowCompleteFromCheckedIn bool          `mapstructure:"allow_complete_from_checked_in"`
	SlotGranularity            time.Duration `mapstructure:"slot_granularity"`
	DefaultDurationMinutes     int           `mapstructure:"default_duration_minutes"`
	MaxDurationMinutes         int           `mapstructure:"max_duration_minutes"`
	Timezone                   string        `mapstructure:"timezone"`
}

// Location resolves the clinic timezone; unknown names fall back to UTC
func (s SchedulingConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
	ServiceName string `mapstructure:"service_name"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	ServiceVersion string  `mapstructure:"service_version"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/clinic-core")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration populated only with defaults
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults are all well-typed, so decoding cannot fail here
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.trusted_proxies", []string{})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.user", "clinic")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	// Session defaults
	v.SetDefault("session.ttl", "8h")
	v.SetDefault("session.issuer", "clinic-core")
	v.SetDefault("session.key_prefix", "clinic:session")

	// Scheduling defaults
	v.SetDefault("scheduling.cancellation_cutoff", "24h")
	v.SetDefault("scheduling.staff_bypass_cutoff", true)
	v.SetDefault("scheduling.patient_self_booking", false)
	v.SetDefault("scheduling.allow_complete_from_checked_in", true)
	v.SetDefault("scheduling.slot_granularity", "15m")
	v.SetDefault("scheduling.default_duration_minutes", 30)
	v.SetDefault("scheduling.max_duration_minutes", 480)
	v.SetDefault("scheduling.timezone", "UTC")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.idle_ttl", "10m")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_path", "/health")
	v.SetDefault("monitoring.service_name", "clinic-core")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 0.1)
	v.SetDefault("tracing.service_version", "dev")

	v.SetDefault("log_level", "info")
}

// overrideWithEnv honours the conventional unprefixed variables used by deploy scripts
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if secret := os.Getenv("SESSION_SECRET_KEY"); secret != "" {
		config.Session.SecretKey = secret
	}

	if dbPassword := os.Getenv("DATABASE_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Session.SecretKey == "" {
		return fmt.Errorf("session secret key is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if c.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			return fmt.Errorf("invalid trusted proxy address: %q", proxy)
		}
	}

	if c.Scheduling.CancellationCutoff < 0 {
		return fmt.Errorf("cancellation cutoff cannot be negative")
	}

	if c.Scheduling.SlotGranularity <= 0 {
		return fmt.Errorf("slot granularity must be positive")
	}

	if c.Scheduling.DefaultDurationMinutes <= 0 || c.Scheduling.DefaultDurationMinutes > c.Scheduling.MaxDurationMinutes {
		return fmt.Errorf("default duration must be in (0, %d]", c.Scheduling.MaxDurationMinutes)
	}

	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("invalid scheduling timezone %q: %w", c.Scheduling.Timezone, err)
	}

	return nil
}
