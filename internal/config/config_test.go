package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_DefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "travel_chat_sessions", cfg.Cache.Key)
	assert.Equal(t, "inline", cfg.Sync.Driver)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr())
}

func TestLoadFile_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 9090

[cache]
driver = "redis"
key = "custom_key"

[sync]
driver = "rabbitmq"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CACHE_KEY", "env_key")
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "env_key", cfg.Cache.Key)
	assert.Equal(t, "rabbitmq", cfg.Sync.Driver)
	assert.False(t, cfg.Sync.Enabled)
}

func TestLoadFile_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\nport ="), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "secret"

	assert.Equal(t, "root:secret@tcp(127.0.0.1:3306)/travelchat?parseTime=true&loc=Local&charset=utf8mb4", cfg.MySQLDSN())
}
