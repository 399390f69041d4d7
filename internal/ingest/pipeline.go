// Package ingest 遥测接收管线：按 deviceID 解析传感器，派生指标、
// 阈值分级、原子落库，再执行软路径（告警、实时广播）。
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"floodwatch-telemetry/internal/alerting"
	"floodwatch-telemetry/internal/broadcast"
	"floodwatch-telemetry/internal/classify"
	"floodwatch-telemetry/internal/derive"
	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"go.uber.org/zap"
)

// WaterLevelSample 水位传感器上报的原始样本（已由接入边界反序列化）
type WaterLevelSample struct {
	Level     float64   `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// RainfallSample 降雨传感器上报的原始样本
type RainfallSample struct {
	Rainfall    float64   `json:"rainfall"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// WeatherSample 气象站上报的原始样本，任意字段可缺省
type WeatherSample struct {
	Temperature   *float64  `json:"temperature"`
	Humidity      *float64  `json:"humidity"`
	Pressure      *float64  `json:"pressure"`
	WindSpeed     *float64  `json:"windSpeed"`
	WindDirection *float64  `json:"windDirection"`
	Timestamp     time.Time `json:"timestamp"`
}

// Pipeline 遥测接收管线。
// 同一传感器的样本按 sensorID 串行处理（派生依赖最近一条已落库读数），
// 不同传感器并行互不阻塞。步骤 1-5（解析/派生/分级/落库）失败即整体
// 失败并返回错误；步骤 6-7（告警/广播）失败只记日志，不影响接收结果。
type Pipeline struct {
	sensors     repository.SensorsRepository
	readings    repository.ReadingsRepository
	rainfall    *derive.RainfallDeriver
	alerts      *alerting.Generator
	broadcaster broadcast.Broadcaster
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPipeline(
	sensors repository.SensorsRepository,
	readings repository.ReadingsRepository,
	rainfall *derive.RainfallDeriver,
	alerts *alerting.Generator,
	broadcaster broadcast.Broadcaster,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		sensors:     sensors,
		readings:    readings,
		rainfall:    rainfall,
		alerts:      alerts,
		broadcaster: broadcaster,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

// sensorLock 取同一传感器专用的互斥锁，懒创建且从不回收。
// 活跃传感器数量有限（一城市数百量级），常驻小映射比回收逻辑划算。
func (p *Pipeline) sensorLock(sensorID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[sensorID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[sensorID] = lock
	}
	return lock
}

// resolve 按 deviceID 解析传感器并校验类型匹配
func (p *Pipeline) resolve(ctx context.Context, deviceID string, kind domain.SensorKind) (*domain.Sensor, error) {
	sensor, err := p.sensors.GetSensorByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if sensor.Kind != kind {
		return nil, fmt.Errorf("%w: device %s is a %s sensor, got %s sample",
			domain.ErrValidation, deviceID, sensor.Kind, kind)
	}
	return sensor, nil
}

// IngestWaterLevel 接收一条水位样本
func (p *Pipeline) IngestWaterLevel(ctx context.Context, deviceID string, sample WaterLevelSample) (*domain.WaterLevelReading, error) {
	if math.IsNaN(sample.Level) || math.IsInf(sample.Level, 0) {
		return nil, fmt.Errorf("%w: water level must be a finite number", domain.ErrValidation)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	sensor, err := p.resolve(ctx, deviceID, domain.KindWaterLevel)
	if err != nil {
		return nil, err
	}

	lock := p.sensorLock(sensor.SensorID)
	lock.Lock()
	defer lock.Unlock()

	prev, err := p.readings.LatestWaterLevel(ctx, sensor.SensorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous reading: %w", err)
	}

	status := classify.WaterLevel(sample.Level, sensor.WaterThresholds())
	now := time.Now().UTC()

	reading := &domain.WaterLevelReading{
		SensorID:     sensor.SensorID,
		Timestamp:    sample.Timestamp,
		Level:        sample.Level,
		Status:       status,
		RateOfChange: derive.RateOfChange(prev, sample.Level, sample.Timestamp),
		IsValid:      true,
		CreatedAt:    now,
	}
	if sensor.AlertsEnabled && status.Hazardous() {
		reading.AlertTriggered = true
		reading.AlertTriggeredAt = &now
	}

	if err := p.readings.AppendWaterLevel(ctx, sensor, reading); err != nil {
		return nil, err
	}
	p.applyWaterSnapshot(sensor, reading)

	if _, err := p.alerts.EvaluateWaterReading(ctx, sensor, reading); err != nil {
		p.logger.Error("Failed to create water level alert",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
	p.publish(ctx, sensor, reading)

	return reading, nil
}

// IngestRainfall 接收一条降雨样本
func (p *Pipeline) IngestRainfall(ctx context.Context, deviceID string, sample RainfallSample) (*domain.RainfallReading, error) {
	if sample.Rainfall < 0 || math.IsNaN(sample.Rainfall) || math.IsInf(sample.Rainfall, 0) {
		return nil, fmt.Errorf("%w: rainfall must be a non-negative finite number", domain.ErrValidation)
	}
	if sample.PeriodStart.IsZero() || sample.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: rainfall sample period is required", domain.ErrValidation)
	}
	if !sample.PeriodStart.Before(sample.PeriodEnd) {
		return nil, fmt.Errorf("%w: rainfall period start must precede period end", domain.ErrValidation)
	}

	sensor, err := p.resolve(ctx, deviceID, domain.KindRainfall)
	if err != nil {
		return nil, err
	}

	lock := p.sensorLock(sensor.SensorID)
	lock.Lock()
	defer lock.Unlock()

	hourly, daily, err := p.rainfall.Cumulative(ctx, sensor.SensorID, sample.PeriodEnd, sample.Rainfall)
	if err != nil {
		return nil, err
	}

	intensity := classify.Rainfall(sample.Rainfall, sensor.RainThresholds())
	now := time.Now().UTC()

	reading := &domain.RainfallReading{
		SensorID:         sensor.SensorID,
		Timestamp:        sample.PeriodEnd,
		Rainfall:         sample.Rainfall,
		PeriodStart:      sample.PeriodStart,
		PeriodEnd:        sample.PeriodEnd,
		Intensity:        intensity,
		HourlyCumulative: hourly,
		DailyCumulative:  daily,
		IsValid:          true,
		CreatedAt:        now,
	}
	if sensor.AlertsEnabled && intensity.Hazardous() {
		reading.AlertTriggered = true
	}

	if err := p.readings.AppendRainfall(ctx, sensor, reading); err != nil {
		return nil, err
	}
	p.applyRainSnapshot(sensor, reading)

	if _, err := p.alerts.EvaluateRainReading(ctx, sensor, reading); err != nil {
		p.logger.Error("Failed to create rainfall alert",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
	p.publish(ctx, sensor, reading)

	return reading, nil
}

// IngestWeather 接收一条气象样本（无派生、无分级、无告警）
func (p *Pipeline) IngestWeather(ctx context.Context, deviceID string, sample WeatherSample) (*domain.WeatherReading, error) {
	if sample.Temperature == nil && sample.Humidity == nil && sample.Pressure == nil &&
		sample.WindSpeed == nil && sample.WindDirection == nil {
		return nil, fmt.Errorf("%w: weather sample must carry at least one observation", domain.ErrValidation)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	sensor, err := p.resolve(ctx, deviceID, domain.KindWeather)
	if err != nil {
		return nil, err
	}

	lock := p.sensorLock(sensor.SensorID)
	lock.Lock()
	defer lock.Unlock()

	reading := &domain.WeatherReading{
		SensorID:      sensor.SensorID,
		Timestamp:     sample.Timestamp,
		Temperature:   sample.Temperature,
		Humidity:      sample.Humidity,
		Pressure:      sample.Pressure,
		WindSpeed:     sample.WindSpeed,
		WindDirection: sample.WindDirection,
		IsValid:       true,
		CreatedAt:     time.Now().UTC(),
	}

	if err := p.readings.AppendWeather(ctx, sensor, reading); err != nil {
		return nil, err
	}
	p.applyWeatherSnapshot(sensor, reading)

	p.publish(ctx, sensor, reading)

	return reading, nil
}

// publish 尽力而为的实时广播，失败不影响接收结果
func (p *Pipeline) publish(ctx context.Context, sensor *domain.Sensor, reading interface{}) {
	if p.broadcaster == nil {
		return
	}
	p.broadcaster.PublishReading(ctx, sensor, reading)
}

// applyWaterSnapshot 同步内存中的传感器快照（落库由 Append 事务完成），
// 广播和调用方拿到的是更新后的视图
func (p *Pipeline) applyWaterSnapshot(sensor *domain.Sensor, reading *domain.WaterLevelReading) {
	ts := reading.Timestamp
	level := reading.Level
	status := reading.Status
	sensor.LastReadingAt = &ts
	sensor.LastCommunicationAt = &ts
	sensor.CurrentLevel = &level
	sensor.CurrentStatus = &status
	sensor.CurrentRate = reading.RateOfChange
}

func (p *Pipeline) applyRainSnapshot(sensor *domain.Sensor, reading *domain.RainfallReading) {
	ts := reading.Timestamp
	rainfall := reading.Rainfall
	intensity := reading.Intensity
	hourly := reading.HourlyCumulative
	daily := reading.DailyCumulative
	sensor.LastReadingAt = &ts
	sensor.LastCommunicationAt = &ts
	sensor.CurrentRainfall = &rainfall
	sensor.CurrentIntensity = &intensity
	sensor.HourlyCumulative = &hourly
	sensor.DailyCumulative = &daily
}

func (p *Pipeline) applyWeatherSnapshot(sensor *domain.Sensor, reading *domain.WeatherReading) {
	ts := reading.Timestamp
	sensor.LastReadingAt = &ts
	sensor.LastCommunicationAt = &ts
	if reading.Temperature != nil {
		sensor.Temperature = reading.Temperature
	}
	if reading.Humidity != nil {
		sensor.Humidity = reading.Humidity
	}
	if reading.Pressure != nil {
		sensor.Pressure = reading.Pressure
	}
	if reading.WindSpeed != nil {
		sensor.WindSpeed = reading.WindSpeed
	}
	if reading.WindDirection != nil {
		sensor.WindDirection = reading.WindDirection
	}
}
