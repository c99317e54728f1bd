package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  token: yaml-token
  channel: "@calm_channel"
  workers: 4
  admin_ids: [10, 20]
server:
  port: "9090"
store:
  driver: sqlite
  dsn: file:test.db
  timezone: Europe/Moscow
redis:
  addr: localhost:6379
  ttl: 30m
session:
  idle_ttl: 2h
quiz:
  questions_file: config/questions.yaml
log:
  level: debug
  format: json
`

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", cfg.Telegram.Token)
	assert.Equal(t, "@calm_channel", cfg.Telegram.Channel)
	assert.Equal(t, 4, cfg.Telegram.Workers)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, SourceFile, cfg.Quiz.Source)
	assert.Equal(t, "anxiety", cfg.Quiz.ID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(30))
	assert.Equal(t, 2*time.Hour, TTLDuration(cfg.Session.IdleTTL, 0))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, SourceBuiltin, cfg.Quiz.Source)
	assert.Equal(t, 8, cfg.Telegram.Workers)
	assert.Equal(t, "pretty", cfg.Log.Format)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://bot:secret@db:5432/bot")
	t.Setenv("ADMIN_IDS", "1, 2,x")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("ADMIN_TOKEN", "env-admin")
	t.Setenv("WS_SECRET", "env-ws")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://bot:secret@db:5432/bot", cfg.Store.DSN)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "https://bot.example.com/telegram/webhook", cfg.Telegram.WebhookURL)
	assert.Equal(t, "env-admin", cfg.Server.AdminToken)
	assert.Equal(t, "env-ws", cfg.Server.WSSecret)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOT_TOKEN=from-file\nCHANNEL_USERNAME=@from_file\n"), 0o600))

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("CHANNEL_USERNAME", "")
	require.NoError(t, os.Unsetenv("CHANNEL_USERNAME"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-env", os.Getenv("BOT_TOKEN"))
	assert.Equal(t, "@from_file", os.Getenv("CHANNEL_USERNAME"))
}

func TestLocation(t *testing.T) {
	var cfg Config
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Store.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Store.Timezone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, TTLDuration("90s", time.Minute))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
