package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "floodwatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, ":8086", cfg.HTTP.Addr)

	assert.Equal(t, "telemetry:readings", cfg.Telemetry.Streams.Readings)
	assert.Equal(t, "telemetry:alerts", cfg.Telemetry.Streams.Alerts)
	assert.Equal(t, "telemetry:sensor:", cfg.Telemetry.Cache.SnapshotKeyPrefix)
	assert.Equal(t, ":snapshot", cfg.Telemetry.Cache.SnapshotSuffix)
	assert.Equal(t, 60, cfg.Telemetry.Cache.SnapshotTTL)
	assert.Equal(t, 300, cfg.Telemetry.Sweep.Interval)
	assert.Equal(t, 6*3600, cfg.Telemetry.OfflineAfter)
	assert.Equal(t, "telemetry", cfg.Telemetry.TopicPrefix)

	assert.Equal(t, "", cfg.Geo.BaseURL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("SWEEP_INTERVAL", "60")
	os.Setenv("OFFLINE_AFTER", "7200")
	os.Setenv("GEO_BASE_URL", "http://geo.local")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-user", cfg.Database.User)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 60, cfg.Telemetry.Sweep.Interval)
	assert.Equal(t, 7200, cfg.Telemetry.OfflineAfter)
	assert.Equal(t, "http://geo.local", cfg.Geo.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestGetEnvInt(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, 42, getEnvInt("TEST_INT", 42))

	os.Setenv("TEST_INT", "17")
	assert.Equal(t, 17, getEnvInt("TEST_INT", 42))

	// 非法值回落到默认值
	os.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 42))

	os.Unsetenv("TEST_INT")
}
