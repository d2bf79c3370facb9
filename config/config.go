package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Data sources
const (
	DataSourceMemory   = "memory"
	DataSourcePostgres = "postgres"
	DataSourceMongo    = "mongo"
	DataSourceSQLite   = "sqlite"
)

// Reconciliation strategies
const (
	ReconcileAtomic       = "atomic"
	ReconcileCheckThenAct = "check_then_act"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Auth          AuthConfig
	EventTriggers EventTriggersConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type StoreConfig struct {
	DataSource string

	DatabaseURL    string
	DatabaseCACert string
	MaxConns       int32
	MinConns       int32
	MigrationsPath string
	AutoMigrate    bool

	MongoURI      string
	MongoDatabase string

	SQLitePath string

	ReconcileStrategy string
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	// RevokedTokenTTLHours bounds how long a logged-out token stays on the denylist
	RevokedTokenTTLHours int
}

type EventTriggersConfig struct {
	LogVerifiedTriggerURL string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")

	v.SetDefault("DATA_SOURCE", DataSourcePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("MONGO_DATABASE", "wingmentor")
	v.SetDefault("SQLITE_PATH", "wingmentor.db")
	v.SetDefault("RECONCILE_STRATEGY", ReconcileAtomic)

	v.SetDefault("JWT_ISSUER", "wingmentor-auth")
	v.SetDefault("REVOKED_TOKEN_TTL_HOURS", 24)

	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "wingmentor-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "wingmentor")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "wingmentor-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 30)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Store: StoreConfig{
			DataSource:        strings.ToLower(v.GetString("DATA_SOURCE")),
			DatabaseURL:       v.GetString("DATABASE_URL"),
			DatabaseCACert:    v.GetString("DATABASE_CA_CERT"),
			MaxConns:          v.GetInt32("DB_MAX_CONNS"),
			MinConns:          v.GetInt32("DB_MIN_CONNS"),
			MigrationsPath:    v.GetString("DB_MIGRATIONS_PATH"),
			AutoMigrate:       v.GetBool("DB_AUTO_MIGRATE"),
			MongoURI:          v.GetString("MONGO_URI"),
			MongoDatabase:     v.GetString("MONGO_DATABASE"),
			SQLitePath:        v.GetString("SQLITE_PATH"),
			ReconcileStrategy: strings.ToLower(v.GetString("RECONCILE_STRATEGY")),
		},
		Auth: AuthConfig{
			JWTSecret:            v.GetString("JWT_SECRET"),
			JWTIssuer:            v.GetString("JWT_ISSUER"),
			RevokedTokenTTLHours: v.GetInt("REVOKED_TOKEN_TTL_HOURS"),
		},
		EventTriggers: EventTriggersConfig{
			LogVerifiedTriggerURL: v.GetString("LOG_VERIFIED_TRIGGER_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// Validate checks the store section on its own; wingctl needs nothing else
func (s *StoreConfig) Validate() error {
	switch s.DataSource {
	case DataSourceMemory:
	case DataSourcePostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE=postgres")
		}
	case DataSourceMongo:
		if s.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when DATA_SOURCE=mongo")
		}
		if s.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required when DATA_SOURCE=mongo")
		}
	case DataSourceSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATA_SOURCE=sqlite")
		}
	default:
		return fmt.Errorf("unknown DATA_SOURCE %q (want memory, postgres, mongo or sqlite)", s.DataSource)
	}

	switch s.ReconcileStrategy {
	case ReconcileAtomic, ReconcileCheckThenAct:
	default:
		return fmt.Errorf("unknown RECONCILE_STRATEGY %q (want %s or %s)", s.ReconcileStrategy, ReconcileAtomic, ReconcileCheckThenAct)
	}
	return nil
}

// LoadStore reads only the store section, for the operator CLI
func LoadStore() (*StoreConfig, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return &cfg.Store, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
