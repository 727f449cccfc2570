package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "c5rf")
}

func TestLoadConfigDefaults(t *testing.T) {
	setSecrets(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "qs_session", cfg.SessionCookie)
	assert.Equal(t, "Quini-Access", cfg.GateHeader)
	assert.Equal(t, "true", cfg.GateOpenValue)
	assert.False(t, cfg.AutoProvision)
	assert.False(t, cfg.EventsEnabled())
	assert.False(t, cfg.FederatedEnabled())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", " ")
	t.Setenv("CSRF_SECRET", "c5rf")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "session secret")

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "csrf secret")
}

func TestLoadConfigKeepsGateInProduction(t *testing.T) {
	setSecrets(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("GATE_DISABLED", "true")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigBrokers(t *testing.T) {
	setSecrets(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EventsEnabled())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(&Config{LogLevel: "DEBUG"}))
	assert.Equal(t, slog.LevelWarn, parseLevel(&Config{LogLevel: "warning"}))
	assert.Equal(t, slog.LevelInfo, parseLevel(&Config{LogLevel: "chatty"}))
	assert.Equal(t, slog.LevelInfo, parseLevel(nil))
}
