package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/fcinvite", cfg.Invite.Command)
	assert.Equal(t, 3*time.Second, cfg.Invite.Cooldown)
	assert.Equal(t, 50, cfg.Invite.HistorySize)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.Server.AllowedIPs)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9000
  debug: true
database:
  mode: sqlite_memory
invite:
  cooldown: 500ms
  history_size: 5
host:
  fixture_path: /tmp/actors.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "sqlite_memory", cfg.Database.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Invite.Cooldown)
	assert.Equal(t, 5, cfg.Invite.HistorySize)
	assert.Equal(t, "/tmp/actors.yaml", cfg.Host.FixturePath)
	// untouched keys keep their defaults
	assert.Equal(t, "/fcinvite", cfg.Invite.Command)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AUTOINVITE_SECURITY_JWT_SECRET", "from-env")
	t.Setenv("AUTOINVITE_INVITE_COOLDOWN", "5s")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.Invite.Cooldown)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, "./config/actors.yaml", cfg.Host.FixturePath)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
}
