package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"floodwatch-telemetry/internal/domain"

	"go.uber.org/zap"
)

// Broadcaster 实时分发接口：所有方法尽力而为，失败不影响遥测接收。
type Broadcaster interface {
	PublishReading(ctx context.Context, sensor *domain.Sensor, reading interface{})
	PublishAlert(ctx context.Context, alert *domain.Alert)
}

// Envelope WebSocket 推送消息的统一外层
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// FanoutBroadcaster 把事件同时分发到 Redis Streams 和 WebSocket Hub
type FanoutBroadcaster struct {
	stream *StreamPublisher
	hub    *Hub
	logger *zap.Logger
}

func NewFanoutBroadcaster(stream *StreamPublisher, hub *Hub, logger *zap.Logger) *FanoutBroadcaster {
	return &FanoutBroadcaster{
		stream: stream,
		hub:    hub,
		logger: logger,
	}
}

func (b *FanoutBroadcaster) PublishReading(ctx context.Context, sensor *domain.Sensor, reading interface{}) {
	if b.stream != nil {
		b.stream.PublishReading(ctx, sensor, reading)
	}
	b.push("reading", ReadingEvent{
		Kind:     sensor.Kind,
		SensorID: sensor.SensorID,
		DeviceID: sensor.DeviceID,
		Reading:  reading,
	})
}

func (b *FanoutBroadcaster) PublishAlert(ctx context.Context, alert *domain.Alert) {
	if b.stream != nil {
		b.stream.PublishAlert(ctx, alert)
	}
	b.push("alert", alert)
}

func (b *FanoutBroadcaster) push(eventType string, payload interface{}) {
	if b.hub == nil {
		return
	}

	message, err := json.Marshal(Envelope{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		b.logger.Warn("Failed to marshal broadcast envelope",
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}

	b.hub.Broadcast(message)
}
