package config

import (
	"os"
	"strconv"

	"floodwatch-telemetry/common/config"
)

// Config 遥测服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr string // 监听地址，如 ":8086"
	}

	Telemetry struct {
		// Redis Streams 输出
		Streams struct {
			Readings string // 读数流，如 "telemetry:readings"
			Alerts   string // 告警流，如 "telemetry:alerts"
		}

		// 传感器快照缓存
		Cache struct {
			SnapshotKeyPrefix string // 快照缓存键前缀，如 "telemetry:sensor:"
			SnapshotSuffix    string // 快照缓存键后缀，如 ":snapshot"
			SnapshotTTL       int    // 快照 TTL（秒）
		}

		// 周期性阈值巡检
		Sweep struct {
			Interval int // 巡检间隔（秒）
		}

		// 离线判定
		OfflineAfter int // 静默多少秒后标记为 offline

		// MQTT 接入
		TopicPrefix string // 订阅主题前缀，如 "telemetry"
	}

	Geo struct {
		BaseURL string // 城市/LGA 名称解析服务地址，空表示禁用
		Timeout int    // 请求超时（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "floodwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "floodwatch-telemetry")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	cfg.Telemetry.Streams.Readings = getEnv("STREAM_READINGS", "telemetry:readings")
	cfg.Telemetry.Streams.Alerts = getEnv("STREAM_ALERTS", "telemetry:alerts")
	cfg.Telemetry.Cache.SnapshotKeyPrefix = getEnv("CACHE_SNAPSHOT_PREFIX", "telemetry:sensor:")
	cfg.Telemetry.Cache.SnapshotSuffix = ":snapshot"
	cfg.Telemetry.Cache.SnapshotTTL = getEnvInt("CACHE_SNAPSHOT_TTL", 60)
	cfg.Telemetry.Sweep.Interval = getEnvInt("SWEEP_INTERVAL", 300)
	cfg.Telemetry.OfflineAfter = getEnvInt("OFFLINE_AFTER", 6*3600)
	cfg.Telemetry.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "telemetry")

	cfg.Geo.BaseURL = getEnv("GEO_BASE_URL", "")
	cfg.Geo.Timeout = getEnvInt("GEO_TIMEOUT", 3)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
