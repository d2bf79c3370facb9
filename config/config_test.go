package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			config: &Config{
				Server: ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: false,
		},
		{
			name: "release mode",
			config: &Config{
				Server: ServerConfig{GinMode: "release", AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsDevelopment()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: true,
		},
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: false,
		},
		{
			name: "staging environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "staging"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsProduction()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8081", AllowedOrigins: []string{"http://localhost:5173"}},
		Store: StoreConfig{
			DataSource:        DataSourceMemory,
			ReconcileStrategy: ReconcileAtomic,
		},
		Auth: AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid memory config",
			mutate: func(c *Config) {},
		},
		{
			name: "postgres without DATABASE_URL",
			mutate: func(c *Config) {
				c.Store.DataSource = DataSourcePostgres
			},
			errorMsg: "DATABASE_URL is required",
		},
		{
			name: "mongo without MONGO_URI",
			mutate: func(c *Config) {
				c.Store.DataSource = DataSourceMongo
				c.Store.MongoDatabase = "wingmentor"
			},
			errorMsg: "MONGO_URI is required",
		},
		{
			name: "sqlite with path",
			mutate: func(c *Config) {
				c.Store.DataSource = DataSourceSQLite
				c.Store.SQLitePath = "dev.db"
			},
		},
		{
			name: "unknown data source",
			mutate: func(c *Config) {
				c.Store.DataSource = "firestore"
			},
			errorMsg: "unknown DATA_SOURCE",
		},
		{
			name: "unknown reconcile strategy",
			mutate: func(c *Config) {
				c.Store.ReconcileStrategy = "optimistic"
			},
			errorMsg: "unknown RECONCILE_STRATEGY",
		},
		{
			name: "legacy reconcile strategy",
			mutate: func(c *Config) {
				c.Store.ReconcileStrategy = ReconcileCheckThenAct
			},
		},
		{
			name: "missing JWT secret",
			mutate: func(c *Config) {
				c.Auth.JWTSecret = ""
			},
			errorMsg: "JWT_SECRET is required",
		},
		{
			name: "short JWT secret",
			mutate: func(c *Config) {
				c.Auth.JWTSecret = "short"
			},
			errorMsg: "at least 32 characters",
		},
		{
			name: "profiling without endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
			},
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("DATA_SOURCE", "memory")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ReconcileAtomic, cfg.Store.ReconcileStrategy)
	assert.Equal(t, "wingmentor-auth", cfg.Auth.JWTIssuer)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("DATA_SOURCE", "SQLITE")
	t.Setenv("SQLITE_PATH", "/tmp/wm.db")
	t.Setenv("RECONCILE_STRATEGY", "check_then_act")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://wingmentor.app, https://www.wingmentor.app")
	t.Setenv("LOG_VERIFIED_TRIGGER_URL", "https://hooks.example.com/verified")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DataSourceSQLite, cfg.Store.DataSource)
	assert.Equal(t, "/tmp/wm.db", cfg.Store.SQLitePath)
	assert.Equal(t, ReconcileCheckThenAct, cfg.Store.ReconcileStrategy)
	assert.Equal(t, []string{"https://wingmentor.app", "https://www.wingmentor.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://hooks.example.com/verified", cfg.EventTriggers.LogVerifiedTriggerURL)
}

func TestLoadStore_IgnoresServerSettings(t *testing.T) {
	t.Setenv("DATA_SOURCE", "memory")
	t.Setenv("JWT_SECRET", "")

	store, err := LoadStore()
	require.NoError(t, err)
	assert.Equal(t, DataSourceMemory, store.DataSource)
}
