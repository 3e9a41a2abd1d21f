package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Session.MinSessionDuration)
	assert.Equal(t, 15*time.Minute, cfg.Session.StaleAfter)
	assert.Equal(t, 15*time.Minute, cfg.Session.IdleAfter)
	assert.Equal(t, 30*time.Minute, cfg.Session.NoTelemetryGrace)
	assert.Equal(t, 15*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 3, cfg.Leaderboard.TopN)
	assert.Equal(t, 5, cfg.Leaderboard.BottomN)
	assert.Equal(t, "farmtrack/telemetry/+", cfg.MQTT.Topic)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoad_Values(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  cron_secret: from-file
database:
  driver: sqlite
  dsn: "file::memory:"
session:
  min_session_minutes: 5
  sweep_interval_minutes: 1
leaderboard:
  top_n: 10
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Session.MinSessionDuration)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 10, cfg.Leaderboard.TopN)
	assert.Equal(t, "from-file", cfg.Server.CronSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CRON_SECRET", "from-env")
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("PORT", "7070")

	cfg, err := Load(writeConfig(t, "server:\n  cron_secret: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.CronSecret)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
