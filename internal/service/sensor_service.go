package service

import (
	"context"
	"fmt"
	"time"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterSensorInput 注册传感器的输入参数
type RegisterSensorInput struct {
	DeviceID      string            `json:"deviceId"`
	Kind          domain.SensorKind `json:"kind"`
	CityID        string            `json:"cityId"`
	LGAID         string            `json:"lgaId"`
	Latitude      float64           `json:"latitude"`
	Longitude     float64           `json:"longitude"`
	Address       string            `json:"address"`
	AlertsEnabled bool              `json:"alertsEnabled"`

	// 水位阈值（kind = water_level 必填）
	NormalLevel   *float64 `json:"normalLevel"`
	WarningLevel  *float64 `json:"warningLevel"`
	DangerLevel   *float64 `json:"dangerLevel"`
	CriticalLevel *float64 `json:"criticalLevel"`

	// 降雨阈值（kind = rainfall 必填）
	LightThreshold     *float64 `json:"lightThreshold"`
	ModerateThreshold  *float64 `json:"moderateThreshold"`
	HeavyThreshold     *float64 `json:"heavyThreshold"`
	VeryHeavyThreshold *float64 `json:"veryHeavyThreshold"`
}

// SensorService 传感器注册表服务
type SensorService struct {
	sensors repository.SensorsRepository
	logger  *zap.Logger
}

// NewSensorService 创建传感器注册表服务
func NewSensorService(sensors repository.SensorsRepository, logger *zap.Logger) *SensorService {
	return &SensorService{sensors: sensors, logger: logger}
}

// RegisterSensor 注册传感器。
// 阈值校验只在这里做一次；分级热路径信任已注册的配置。
func (s *SensorService) RegisterSensor(ctx context.Context, input RegisterSensorInput) (*domain.Sensor, error) {
	if input.DeviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", domain.ErrValidation)
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor kind %q", domain.ErrValidation, input.Kind)
	}

	now := time.Now().UTC()
	sensor := &domain.Sensor{
		SensorID:      uuid.New().String(),
		DeviceID:      input.DeviceID,
		Kind:          input.Kind,
		CityID:        input.CityID,
		LGAID:         input.LGAID,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		Address:       input.Address,
		Status:        domain.SensorActive,
		AlertsEnabled: input.AlertsEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch input.Kind {
	case domain.KindWaterLevel:
		if input.NormalLevel == nil || input.WarningLevel == nil ||
			input.DangerLevel == nil || input.CriticalLevel == nil {
			return nil, fmt.Errorf("%w: water level sensor requires all four thresholds", domain.ErrValidation)
		}
		t := domain.WaterThresholds{
			Normal:   *input.NormalLevel,
			Warning:  *input.WarningLevel,
			Danger:   *input.DangerLevel,
			Critical: *input.CriticalLevel,
		}
		if !t.Increasing() {
			return nil, fmt.Errorf("%w: water level thresholds must be strictly increasing", domain.ErrValidation)
		}
		sensor.NormalLevel = input.NormalLevel
		sensor.WarningLevel = input.WarningLevel
		sensor.DangerLevel = input.DangerLevel
		sensor.CriticalLevel = input.CriticalLevel

	case domain.KindRainfall:
		if input.LightThreshold == nil || input.ModerateThreshold == nil ||
			input.HeavyThreshold == nil || input.VeryHeavyThreshold == nil {
			return nil, fmt.Errorf("%w: rainfall sensor requires all four intensity thresholds", domain.ErrValidation)
		}
		t := domain.RainThresholds{
			Light:     *input.LightThreshold,
			Moderate:  *input.ModerateThreshold,
			Heavy:     *input.HeavyThreshold,
			VeryHeavy: *input.VeryHeavyThreshold,
		}
		if !t.Increasing() {
			return nil, fmt.Errorf("%w: rainfall thresholds must be strictly increasing", domain.ErrValidation)
		}
		sensor.LightThreshold = input.LightThreshold
		sensor.ModerateThreshold = input.ModerateThreshold
		sensor.HeavyThreshold = input.HeavyThreshold
		sensor.VeryHeavyThreshold = input.VeryHeavyThreshold

	case domain.KindWeather:
		// 气象站无阈值配置
	}

	if err := s.sensors.CreateSensor(ctx, sensor); err != nil {
		return nil, err
	}

	s.logger.Info("Sensor registered",
		zap.String("sensor_id", sensor.SensorID),
		zap.String("device_id", sensor.DeviceID),
		zap.String("kind", string(sensor.Kind)),
	)
	return sensor, nil
}

// SetStatus 更新生命周期状态，传感器不存在时返回 false
func (s *SensorService) SetStatus(ctx context.Context, sensorID string, status domain.SensorStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown sensor status %q", domain.ErrValidation, status)
	}
	ok, err := s.sensors.SetStatus(ctx, sensorID, status)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("Sensor status updated",
			zap.String("sensor_id", sensorID),
			zap.String("status", string(status)),
		)
	}
	return ok, nil
}

// Deactivate SetStatus(id, inactive) 的便捷方法
func (s *SensorService) Deactivate(ctx context.Context, sensorID string) (bool, error) {
	return s.SetStatus(ctx, sensorID, domain.SensorInactive)
}

// FindByDeviceID 按设备标识查找（跨全部三种类型）
func (s *SensorService) FindByDeviceID(ctx context.Context, deviceID string) (*domain.Sensor, error) {
	return s.sensors.GetSensorByDeviceID(ctx, deviceID)
}

// GetSensor 按 sensorID 获取
func (s *SensorService) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	return s.sensors.GetSensor(ctx, sensorID)
}

// ListActive 列出所有 active 传感器
func (s *SensorService) ListActive(ctx context.Context) ([]*domain.Sensor, error) {
	return s.sensors.ListSensors(ctx, repository.SensorFilters{ActiveOnly: true})
}

// ListByCity 按城市列出
func (s *SensorService) ListByCity(ctx context.Context, cityID string) ([]*domain.Sensor, error) {
	return s.sensors.ListSensors(ctx, repository.SensorFilters{CityID: cityID})
}

// ListByKind 按类型列出
func (s *SensorService) ListByKind(ctx context.Context, kind domain.SensorKind) ([]*domain.Sensor, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor kind %q", domain.ErrValidation, kind)
	}
	return s.sensors.ListSensors(ctx, repository.SensorFilters{Kind: kind})
}

// GetCriticalSensors 当前快照处于 danger/critical 的水位传感器
func (s *SensorService) GetCriticalSensors(ctx context.Context) ([]*domain.Sensor, error) {
	sensors, err := s.sensors.ListSensors(ctx, repository.SensorFilters{
		Kind:       domain.KindWaterLevel,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}

	critical := make([]*domain.Sensor, 0)
	for _, sensor := range sensors {
		if sensor.CurrentStatus != nil && sensor.CurrentStatus.Hazardous() {
			critical = append(critical, sensor)
		}
	}
	return critical, nil
}
