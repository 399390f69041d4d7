package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rediscommon "floodwatch-telemetry/common/redis"
	"floodwatch-telemetry/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher 把读数和告警发布到 Redis Streams 供下游消费
// （通知分发、仪表盘网关），同时把传感器快照写入 KV 缓存供低延迟读取。
type StreamPublisher struct {
	client         *redis.Client
	readingsStream string
	alertsStream   string
	snapshotPrefix string
	snapshotSuffix string
	snapshotTTL    time.Duration
	logger         *zap.Logger
}

func NewStreamPublisher(
	client *redis.Client,
	readingsStream, alertsStream string,
	snapshotPrefix, snapshotSuffix string,
	snapshotTTL time.Duration,
	logger *zap.Logger,
) *StreamPublisher {
	return &StreamPublisher{
		client:         client,
		readingsStream: readingsStream,
		alertsStream:   alertsStream,
		snapshotPrefix: snapshotPrefix,
		snapshotSuffix: snapshotSuffix,
		snapshotTTL:    snapshotTTL,
		logger:         logger,
	}
}

// ReadingEvent 读数流消息体
type ReadingEvent struct {
	Kind     domain.SensorKind `json:"kind"`
	SensorID string            `json:"sensorId"`
	DeviceID string            `json:"deviceId"`
	Reading  interface{}       `json:"reading"`
}

// PublishReading 发布一条已接受的读数（尽力而为，错误只记日志）
func (p *StreamPublisher) PublishReading(ctx context.Context, sensor *domain.Sensor, reading interface{}) {
	event := ReadingEvent{
		Kind:     sensor.Kind,
		SensorID: sensor.SensorID,
		DeviceID: sensor.DeviceID,
		Reading:  reading,
	}

	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.readingsStream, event); err != nil {
		p.logger.Warn("Failed to publish reading to stream",
			zap.String("device_id", sensor.DeviceID),
			zap.Error(err),
		)
	}

	p.cacheSnapshot(ctx, sensor)
}

// PublishAlert 发布一条告警（尽力而为）
func (p *StreamPublisher) PublishAlert(ctx context.Context, alert *domain.Alert) {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.alertsStream, alert); err != nil {
		p.logger.Warn("Failed to publish alert to stream",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
	}
}

// cacheSnapshot 写入传感器快照缓存（带 TTL，供仪表盘快速读取）
func (p *StreamPublisher) cacheSnapshot(ctx context.Context, sensor *domain.Sensor) {
	key := fmt.Sprintf("%s%s%s", p.snapshotPrefix, sensor.SensorID, p.snapshotSuffix)

	jsonData, err := json.Marshal(sensor)
	if err != nil {
		p.logger.Warn("Failed to marshal sensor snapshot", zap.Error(err))
		return
	}

	if err := p.client.Set(ctx, key, string(jsonData), p.snapshotTTL).Err(); err != nil {
		p.logger.Warn("Failed to cache sensor snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
