package config

import (
	"os"
	"testing"
	"time"
)

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE", "DB_PATH",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "BCRYPT_COST",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
	"BOT_TOKEN", "BOT_PREFIX", "DEFAULT_TIMEZONE", "SUMMARY_MORNING_HOUR", "SUMMARY_EVENING_HOUR", "STALE_TIMER_AFTER",
	"ENABLE_TIME_TRACKING", "ENABLE_CALENDAR", "ENABLE_NLP",
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Expected default driver 'postgres', got %s", config.Database.Driver)
	}

	if config.Database.Name != "taskhive" {
		t.Errorf("Expected default DB name 'taskhive', got %s", config.Database.Name)
	}

	if config.Redis.Port != "6379" {
		t.Errorf("Expected default Redis port '6379', got %s", config.Redis.Port)
	}

	if config.Worker.Concurrency != 4 {
		t.Errorf("Expected default worker concurrency 4, got %d", config.Worker.Concurrency)
	}

	if len(config.Worker.Queues) != 3 {
		t.Errorf("Expected 3 default queues, got %d", len(config.Worker.Queues))
	}

	if config.Bot.CommandPrefix != "!" {
		t.Errorf("Expected default bot prefix '!', got %s", config.Bot.CommandPrefix)
	}

	if config.Bot.DefaultTimezone != "UTC" {
		t.Errorf("Expected default timezone 'UTC', got %s", config.Bot.DefaultTimezone)
	}

	if !config.Features.TimeTracking {
		t.Error("Expected time tracking to be enabled by default")
	}

	if config.Features.Calendar || config.Features.NLP {
		t.Error("Expected calendar and NLP to be disabled by default")
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	envVars := map[string]string{
		"HOST":               "0.0.0.0",
		"PORT":               "9000",
		"ENVIRONMENT":        "production",
		"DB_PASSWORD":        "secure_password",
		"DB_MAX_OPEN_CONNS":  "50",
		"JWT_SECRET":         "super-secret-key",
		"BOT_TOKEN":          "bot-token",
		"BOT_PREFIX":         "?",
		"WORKER_CONCURRENCY": "8",
		"ENABLE_CALENDAR":    "true",
		"READ_TIMEOUT":       "45s",
		"STALE_TIMER_AFTER":  "6h",
	}

	setEnvVars(envVars)
	defer clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with custom config, got: %v", err)
	}

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %s", config.Server.Host)
	}

	if config.Database.MaxOpenConns != 50 {
		t.Errorf("Expected max open conns 50, got %d", config.Database.MaxOpenConns)
	}

	if config.Worker.Concurrency != 8 {
		t.Errorf("Expected worker concurrency 8, got %d", config.Worker.Concurrency)
	}

	if config.Bot.CommandPrefix != "?" {
		t.Errorf("Expected bot prefix '?', got %s", config.Bot.CommandPrefix)
	}

	if !config.Features.Calendar {
		t.Error("Expected calendar feature to be enabled")
	}

	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Expected read timeout 45s, got %v", config.Server.ReadTimeout)
	}

	if config.Bot.StaleTimerAfter != 6*time.Hour {
		t.Errorf("Expected stale timer cutoff 6h, got %v", config.Bot.StaleTimerAfter)
	}
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	clearEnvVars(allEnvVars)
	os.Setenv("DB_DRIVER", "oracle")
	defer os.Unsetenv("DB_DRIVER")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for unsupported database driver")
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "missing database password",
			envVars: map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "s", "BOT_TOKEN": "t"},
			errMsg:  "database password is required in production",
		},
		{
			name:    "default JWT secret",
			envVars: map[string]string{"ENVIRONMENT": "production", "DB_PASSWORD": "p", "BOT_TOKEN": "t"},
			errMsg:  "JWT secret must be set in production",
		},
		{
			name:    "missing bot token",
			envVars: map[string]string{"ENVIRONMENT": "production", "DB_PASSWORD": "p", "JWT_SECRET": "s"},
			errMsg:  "bot token is required in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(allEnvVars)
			setEnvVars(tt.envVars)
			defer clearEnvVars(allEnvVars)

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("Expected production validation error, got none")
			}
			if err.Error() != tt.errMsg {
				t.Errorf("Expected error '%s', got '%s'", tt.errMsg, err.Error())
			}
		})
	}
}

func TestLoadConfig_SQLiteInProduction(t *testing.T) {
	clearEnvVars(allEnvVars)
	setEnvVars(map[string]string{
		"ENVIRONMENT": "production",
		"DB_DRIVER":   "sqlite",
		"JWT_SECRET":  "secret",
		"BOT_TOKEN":   "token",
	})
	defer clearEnvVars(allEnvVars)

	// sqlite has no password; production guard only applies to postgres
	if _, err := LoadConfig(); err != nil {
		t.Errorf("Expected no error for sqlite without password, got: %v", err)
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
			SSLMode:  "require",
		},
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	if actual := config.GetDatabaseDSN(); actual != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, actual)
	}

	config.Database.Driver = "sqlite"
	config.Database.Path = "data/app.db"
	if actual := config.GetDatabaseDSN(); actual != "data/app.db" {
		t.Errorf("Expected sqlite DSN 'data/app.db', got '%s'", actual)
	}
}

func TestConfig_GetRedisAddr(t *testing.T) {
	config := &Config{
		Redis: RedisConfig{Host: "redis.example.com", Port: "6380"},
	}
	if actual := config.GetRedisAddr(); actual != "redis.example.com:6380" {
		t.Errorf("Expected Redis addr 'redis.example.com:6380', got '%s'", actual)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, test := range tests {
		config := &Config{Server: ServerConfig{Environment: test.environment}}
		if actual := config.IsProduction(); actual != test.expected {
			t.Errorf("For environment '%s', expected IsProduction() = %v, got %v",
				test.environment, test.expected, actual)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	os.Unsetenv("TEST_HELPER_VAR")
	if got := getEnv("TEST_HELPER_VAR", "default"); got != "default" {
		t.Errorf("Expected 'default', got '%s'", got)
	}

	os.Setenv("TEST_HELPER_VAR", "42")
	defer os.Unsetenv("TEST_HELPER_VAR")
	if got := getEnvAsInt("TEST_HELPER_VAR", 0); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	os.Setenv("TEST_HELPER_VAR", "not-a-number")
	if got := getEnvAsInt("TEST_HELPER_VAR", 7); got != 7 {
		t.Errorf("Expected fallback 7 for invalid int, got %d", got)
	}

	os.Setenv("TEST_HELPER_VAR", "5m")
	if got := getEnvAsDuration("TEST_HELPER_VAR", time.Second); got != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", got)
	}

	os.Setenv("TEST_HELPER_VAR", "false")
	if got := getEnvAsBool("TEST_HELPER_VAR", true); got {
		t.Error("Expected false")
	}
}
