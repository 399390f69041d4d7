// Package mqtt 传感器遥测的 MQTT 接入边界。
// 设备按 {prefix}/{kind}/{deviceID} 主题上报 JSON 样本，
// broker 解析后交给接收管线，语义与 HTTP 接入完全一致。
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	commonmqtt "floodwatch-telemetry/common/mqtt"
	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/ingest"

	"go.uber.org/zap"
)

const (
	topicWaterLevel = "water-level"
	topicRainfall   = "rainfall"
	topicWeather    = "weather"
)

// Ingestor 接收管线需要暴露给 MQTT 边界的最小接口
type Ingestor interface {
	IngestWaterLevel(ctx context.Context, deviceID string, sample ingest.WaterLevelSample) (*domain.WaterLevelReading, error)
	IngestRainfall(ctx context.Context, deviceID string, sample ingest.RainfallSample) (*domain.RainfallReading, error)
	IngestWeather(ctx context.Context, deviceID string, sample ingest.WeatherSample) (*domain.WeatherReading, error)
}

// TelemetryBroker MQTT 遥测消息处理模块
type TelemetryBroker struct {
	client      *commonmqtt.Client
	pipeline    Ingestor
	topicPrefix string
	logger      *zap.Logger
}

// NewTelemetryBroker 创建遥测 Broker
func NewTelemetryBroker(client *commonmqtt.Client, pipeline Ingestor, topicPrefix string, logger *zap.Logger) *TelemetryBroker {
	return &TelemetryBroker{
		client:      client,
		pipeline:    pipeline,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Start 订阅三类遥测主题
func (b *TelemetryBroker) Start() error {
	for _, kind := range []string{topicWaterLevel, topicRainfall, topicWeather} {
		topic := fmt.Sprintf("%s/%s/+", b.topicPrefix, kind)
		if err := b.client.Subscribe(topic, 1, b.HandleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		b.logger.Info("Subscribed to telemetry topic", zap.String("topic", topic))
	}
	return nil
}

// HandleMessage 处理一条遥测消息。
// 设备上报未知 deviceID 或非法载荷是常态（固件缺陷、掉线重发），
// 这类错误记日志后吞掉，避免订阅层反复告警。
func (b *TelemetryBroker) HandleMessage(topic string, payload []byte) error {
	kind, deviceID, err := parseTopic(b.topicPrefix, topic)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch kind {
	case topicWaterLevel:
		var sample ingest.WaterLevelSample
		if err := json.Unmarshal(payload, &sample); err != nil {
			return fmt.Errorf("failed to unmarshal water level sample: %w", err)
		}
		_, err = b.pipeline.IngestWaterLevel(ctx, deviceID, sample)

	case topicRainfall:
		var sample ingest.RainfallSample
		if err := json.Unmarshal(payload, &sample); err != nil {
			return fmt.Errorf("failed to unmarshal rainfall sample: %w", err)
		}
		_, err = b.pipeline.IngestRainfall(ctx, deviceID, sample)

	case topicWeather:
		var sample ingest.WeatherSample
		if err := json.Unmarshal(payload, &sample); err != nil {
			return fmt.Errorf("failed to unmarshal weather sample: %w", err)
		}
		_, err = b.pipeline.IngestWeather(ctx, deviceID, sample)
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			b.logger.Warn("Dropped telemetry message",
				zap.String("topic", topic),
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}
	return nil
}

// parseTopic 解析 {prefix}/{kind}/{deviceID} 主题
func parseTopic(prefix, topic string) (kind, deviceID string, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("topic %q is missing a device id", topic)
	}
	switch parts[0] {
	case topicWaterLevel, topicRainfall, topicWeather:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("unknown telemetry kind %q in topic %q", parts[0], topic)
}
