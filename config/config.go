package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Broker selects where outbox events are delivered.
type Broker string

const (
	BrokerLog   Broker = "log"
	BrokerAMQP  Broker = "amqp"
	BrokerKafka Broker = "kafka"
)

// Config is the resolved runtime configuration for the API process.
type Config struct {
	Port   int    `env:"PORT" envDefault:"5000"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleClientID          string        `env:"GOOGLE_CLIENT_ID"`
	GoogleAllowedEmails     []string      `env:"GOOGLE_ALLOWED_EMAILS" envSeparator:","`
	GoogleAllowlistFile     string        `env:"GOOGLE_ALLOWLIST_FILE"`
	GoogleAllowlistRedisKey string        `env:"GOOGLE_ALLOWLIST_REDIS_KEY"`
	AllowlistReload         time.Duration `env:"ALLOWLIST_RELOAD_INTERVAL" envDefault:"30s"`
	RedisURL                string        `env:"REDIS_URL"`

	CORSOrigin    string  `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	TrustProxy    bool    `env:"TRUST_PROXY" envDefault:"false"`

	EventBroker      Broker        `env:"EVENT_BROKER" envDefault:"log"`
	AMQPURL          string        `env:"AMQP_URL"`
	AMQPExchange     string        `env:"AMQP_EXCHANGE" envDefault:"creatorflow"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	OutboxInterval   time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxMaxRetries int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`

	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"24h"`
	ObligationWindow time.Duration `env:"OBLIGATION_WINDOW" envDefault:"720h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ExposeErrors    bool          `env:"EXPOSE_ERRORS" envDefault:"false"`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.EventBroker = Broker(strings.ToLower(strings.TrimSpace(string(cfg.EventBroker))))
	return &cfg, nil
}

// Production reports whether cookies must be marked Secure.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.Port < 1 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	if c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if c.JWTExpiresIn <= 0 {
		errors = append(errors, fmt.Sprintf("invalid JWT_EXPIRES_IN %v: must be positive", c.JWTExpiresIn))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid BCRYPT_COST %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.GoogleAllowlistRedisKey != "" && c.RedisURL == "" {
		errors = append(errors, "REDIS_URL is required when GOOGLE_ALLOWLIST_REDIS_KEY is set")
	}
	if c.GoogleAllowlistFile != "" && c.AllowlistReload < time.Second {
		errors = append(errors, fmt.Sprintf("invalid ALLOWLIST_RELOAD_INTERVAL %v: must be at least 1 second", c.AllowlistReload))
	}

	switch c.EventBroker {
	case BrokerLog:
	case BrokerAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required when EVENT_BROKER=amqp")
		} else if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP_EXCHANGE cannot be empty when EVENT_BROKER=amqp")
		}
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errors = append(errors, "KAFKA_BROKERS is required when EVENT_BROKER=kafka")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid EVENT_BROKER '%s': must be one of log, amqp, kafka", c.EventBroker))
	}

	if c.OutboxInterval < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid OUTBOX_POLL_INTERVAL %v: must be at least 100ms", c.OutboxInterval))
	}
	if c.OutboxBatchSize < 1 || c.OutboxBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid OUTBOX_BATCH_SIZE %d: must be between 1 and 1000", c.OutboxBatchSize))
	}
	if c.OutboxMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid OUTBOX_MAX_RETRIES %d: must be at least 1", c.OutboxMaxRetries))
	}
	if c.SnapshotInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid SNAPSHOT_INTERVAL %v: must be at least 1 minute", c.SnapshotInterval))
	}
	if c.ObligationWindow <= 0 {
		errors = append(errors, fmt.Sprintf("invalid OBLIGATION_WINDOW %v: must be positive", c.ObligationWindow))
	}
	if c.AuthRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("invalid AUTH_RATE_LIMIT %v: must be positive", c.AuthRateLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
