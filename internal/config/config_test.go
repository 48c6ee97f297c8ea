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
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  host: db
  port: 5432
auth:
  jwt_secret: s3cret
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "tfms.lifecycle", cfg.Kafka.Topic.Lifecycle)
	assert.Equal(t, []string{"IRAN", "NORTH KOREA", "SYRIA"}, cfg.Compliance.RestrictedCountries)
	assert.Equal(t, 30*time.Second, cfg.Business.LockTTL())
	assert.Equal(t, 5, cfg.Business.OutboxMaxRetry)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: from-file
redis:
  host: cache
`)
	t.Setenv("TFMS_AUTH_JWT_SECRET", "from-env")
	t.Setenv("TFMS_REDIS_PORT", "6380")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
}

func TestLoadConfig_WithoutFile(t *testing.T) {
	t.Setenv("TFMS_AUTH_JWT_SECRET", "env-only")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Run("缺少 jwt_secret", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server:\n  port: 8080\n"))
		assert.ErrorContains(t, err, "jwt_secret")
	})
	t.Run("未知驱动", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "auth:\n  jwt_secret: x\ndatabase:\n  driver: oracle\n"))
		assert.ErrorContains(t, err, "oracle")
	})
	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
