package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"POSTGRES_URL", "KAFKA_BROKERS", "TRAINER_EMAILS", "TIMEZONE", "JWT_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Empty(t, cfg.PostgresURL)
	require.False(t, cfg.KafkaEnabled())
	require.Equal(t, "activity_changes", cfg.ChangeTopic)
	require.Equal(t, 12*time.Hour, cfg.JWTTTL)
	require.Empty(t, cfg.TrainerEmails)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadFromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ANON_KEY=from-file\nCHANGE_TOPIC=from-file\n"), 0o600))

	t.Setenv("ENV_FILE", envFile)
	t.Setenv("CHANGE_TOPIC", "from-env")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("TRAINER_EMAILS", "Coach@Example.com, head@example.com")
	t.Setenv("DLQ_MAX_RETRIES", "not-a-number")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Cleanup(func() { os.Unsetenv("ANON_KEY") })

	cfg := Load()
	require.Equal(t, "from-file", cfg.AnonKey)
	require.Equal(t, "from-env", cfg.ChangeTopic)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"coach@example.com", "head@example.com"}, cfg.TrainerEmails)
	require.Equal(t, 5, cfg.DLQMaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	base := Load()

	cfg := base
	cfg.JWTSecret = ""
	require.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = base
	cfg.TimeZone = "Mars/Olympus"
	require.ErrorContains(t, cfg.Validate(), "TIMEZONE")

	cfg = base
	cfg.OutboxBatchSize = 0
	require.ErrorContains(t, cfg.Validate(), "OUTBOX_BATCH_SIZE")
}
