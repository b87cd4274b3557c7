package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "reminders.db", cfg.Database.Path)
	assert.True(t, cfg.Notifications.Permission)
	assert.False(t, cfg.Line.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  path: /tmp/r.db
notifications:
  permission: false
log:
  level: debug
`), 0o644))

	t.Setenv("REMINDERS_SERVER_PORT", "9100")
	t.Setenv("REMINDERS_LINE_RECIPIENT_ID", "U123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "/tmp/r.db", cfg.Database.Path)
	assert.False(t, cfg.Notifications.Permission)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "U123", cfg.Line.RecipientID)
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("CHANNEL_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Line.ChannelSecret)

	t.Setenv("REMINDERS_SERVER_PORT", "7001")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Notifications.Location = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.LogLevel = "chatty"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Line.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Line.ChannelSecret = "s"
	cfg.Line.ChannelToken = "t"
	cfg.Line.RecipientID = "U1"
	assert.NoError(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := &Config{Notifications: NotificationsConfig{Location: "UTC"}}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
