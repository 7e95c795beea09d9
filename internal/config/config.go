// Package config centralises configuration parsing for the points ledger.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration values for the points ledger binaries.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string // Metrics listener of the consumer and DLQ manager binaries.
	PostgresURL        string // Empty selects the in-memory store.
	KafkaBrokers       []string
	SchemaRegistryURL  string // Empty uses a static schema ID.
	ChangeTopic        string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	RealtimeGroup      string // Prefix of the per-process realtime consumer group.
	AuditGroup         string
	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration
	PublicURL          string // Returned to browser clients by /config.json.
	AnonKey            string
	TimeZone           string
	CORSOrigin         string
	TrainerEmails      []string
	RefreshTimeout     time.Duration
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
}

// Load reads an optional .env file and the environment into Config, applying defaults for local dev.
// Variables already set in the environment take precedence over the file.
func Load() Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: ignoring %s: %v", envFile, err)
	}

	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:     getEnv("METRICS_ADDRESS", ":9090"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		SchemaRegistryURL:  getEnv("SCHEMA_REGISTRY_URL", ""),
		ChangeTopic:        getEnv("CHANGE_TOPIC", "activity_changes"),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 25),
		RealtimeGroup:      getEnv("REALTIME_GROUP", "bjjpoints-realtime"),
		AuditGroup:         getEnv("AUDIT_GROUP", "bjjpoints-audit"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "bjjpoints"),
		JWTTTL:             getDurationEnv("JWT_TTL", 12*time.Hour),
		PublicURL:          getEnv("PUBLIC_URL", "http://localhost:8080"),
		AnonKey:            getEnv("ANON_KEY", ""),
		TimeZone:           getEnv("TIMEZONE", "Europe/Berlin"),
		CORSOrigin:         getEnv("CORS_ORIGIN", ""),
		RefreshTimeout:     getDurationEnv("REFRESH_TIMEOUT", 10*time.Second),
		DLQPollInterval:    getDurationEnv("DLQ_POLL_INTERVAL", 30*time.Second),
		DLQMaxRetries:      getIntEnv("DLQ_MAX_RETRIES", 5),
		DLQBaseDelay:       getDurationEnv("DLQ_BASE_DELAY", time.Minute),
	}

	cfg.KafkaBrokers = splitAndTrim(getEnv("KAFKA_BROKERS", ""))
	cfg.TrainerEmails = splitAndTrim(strings.ToLower(getEnv("TRAINER_EMAILS", "")))
	return cfg
}

// Validate reports the first setting that would prevent the binaries from starting.
func (c Config) Validate() error {
	switch {
	case c.HTTPAddress == "":
		return errors.New("config: HTTP_ADDRESS is required")
	case c.JWTSecret == "":
		return errors.New("config: JWT_SECRET is required")
	case c.JWTTTL <= 0:
		return fmt.Errorf("config: JWT_TTL must be positive, got %s", c.JWTTTL)
	case c.OutboxBatchSize <= 0:
		return fmt.Errorf("config: OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	case c.OutboxPollInterval <= 0:
		return fmt.Errorf("config: OUTBOX_POLL_INTERVAL must be positive, got %s", c.OutboxPollInterval)
	case c.DLQPollInterval <= 0:
		return fmt.Errorf("config: DLQ_POLL_INTERVAL must be positive, got %s", c.DLQPollInterval)
	case c.DLQMaxRetries <= 0:
		return fmt.Errorf("config: DLQ_MAX_RETRIES must be positive, got %d", c.DLQMaxRetries)
	case c.ChangeTopic == "":
		return errors.New("config: CHANGE_TOPIC is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone, the zone in which seasons and weeks are counted.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// KafkaEnabled reports whether change events are exchanged through Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
