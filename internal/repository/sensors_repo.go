package repository

import (
	"context"

	"floodwatch-telemetry/internal/domain"
)

// SensorFilters 传感器查询过滤器
type SensorFilters struct {
	Kind       domain.SensorKind     // 按类型过滤（空表示全部）
	Statuses   []domain.SensorStatus // 按生命周期状态过滤（IN 查询）
	CityID     string                // 按城市过滤
	ActiveOnly bool                  // 仅 active
}

// SensorsRepository 传感器注册表Repository接口
// 使用强类型领域模型，不使用map[string]any
type SensorsRepository interface {
	// CreateSensor 创建传感器（device_id 全局唯一，由调用方预先校验阈值）
	CreateSensor(ctx context.Context, sensor *domain.Sensor) error

	// GetSensor 按 sensor_id 获取
	GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error)

	// GetSensorByDeviceID 按 device_id 获取（跨所有类型，device_id 进程内唯一）
	GetSensorByDeviceID(ctx context.Context, deviceID string) (*domain.Sensor, error)

	// ListSensors 过滤查询
	ListSensors(ctx context.Context, filters SensorFilters) ([]*domain.Sensor, error)

	// SetStatus 更新生命周期状态，传感器不存在时返回 false
	SetStatus(ctx context.Context, sensorID string, status domain.SensorStatus) (bool, error)

	// UpdateBattery 更新电量（设备上报时）
	UpdateBattery(ctx context.Context, sensorID string, batteryLevel int) error
}
