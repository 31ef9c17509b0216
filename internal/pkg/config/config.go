package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresURL string `env:"POSTGRES_URL,required,notEmpty"`
	RedisAddr   string `env:"REDIS_ADDR,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`

	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":9090"`

	SnapshotDir string `env:"SNAPSHOT_DIR" envDefault:"./backups"`

	FloorPlanCacheTTL  time.Duration `env:"FLOOR_PLAN_CACHE_TTL" envDefault:"1h"`
	ListCacheTTL       time.Duration `env:"LIST_CACHE_TTL" envDefault:"1h"`
	StatusCacheTTL     time.Duration `env:"STATUS_CACHE_TTL" envDefault:"10s"`
	RoleCacheTTL       time.Duration `env:"ROLE_CACHE_TTL" envDefault:"5m"`
	CacheHealthCheck   time.Duration `env:"CACHE_HEALTH_CHECK_INTERVAL" envDefault:"5s"`
	PIIRedactionFields string        `env:"PII_REDACTION_FIELDS" envDefault:"user_email"`

	LiveFeedChannel   string        `env:"LIVE_FEED_CHANNEL" envDefault:"live_feed_channel"`
	LiveFeedKeepAlive time.Duration `env:"LIVE_FEED_KEEPALIVE" envDefault:"15s"`
	LiveFeedBuffer    int           `env:"LIVE_FEED_CLIENT_BUFFER" envDefault:"16"`

	SideEffectQueueSize int           `env:"SIDE_EFFECT_QUEUE_SIZE" envDefault:"256"`
	CommitMaxAttempts   int           `env:"COMMIT_MAX_ATTEMPTS" envDefault:"3"`
	CommitBackoff       time.Duration `env:"COMMIT_BACKOFF" envDefault:"200ms"`
}

// RedactionFields splits PIIRedactionFields on commas, dropping blanks.
func (c *Config) RedactionFields() []string {
	var fields []string
	for _, f := range strings.Split(c.PIIRedactionFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
