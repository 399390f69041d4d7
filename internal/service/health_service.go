package service

import (
	"context"
	"time"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"
)

// HealthService 传感器健康与统计查询，按需计算不落库
type HealthService struct {
	sensors repository.SensorsRepository
	now     func() time.Time
}

func NewHealthService(sensors repository.SensorsRepository) *HealthService {
	return &HealthService{sensors: sensors, now: time.Now}
}

// healthy active 且 24 小时内有过通信
func (h *HealthService) healthy(sensor *domain.Sensor) bool {
	if sensor.Status != domain.SensorActive || sensor.LastCommunicationAt == nil {
		return false
	}
	return h.now().Sub(*sensor.LastCommunicationAt) < domain.HealthyWindow
}

// requiresMaintenance 处于维护状态或电量低于阈值
func requiresMaintenance(sensor *domain.Sensor) bool {
	if sensor.Status == domain.SensorMaintenance {
		return true
	}
	return sensor.BatteryLevel != nil && *sensor.BatteryLevel < domain.LowBatteryThreshold
}

// GetHealthReport 全量传感器健康行
func (h *HealthService) GetHealthReport(ctx context.Context) ([]domain.SensorHealthRow, error) {
	sensors, err := h.sensors.ListSensors(ctx, repository.SensorFilters{})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.SensorHealthRow, 0, len(sensors))
	for _, sensor := range sensors {
		rows = append(rows, domain.SensorHealthRow{
			SensorID:            sensor.SensorID,
			DeviceID:            sensor.DeviceID,
			Kind:                sensor.Kind,
			Status:              sensor.Status,
			BatteryLevel:        sensor.BatteryLevel,
			LastReadingAt:       sensor.LastReadingAt,
			LastCommunicationAt: sensor.LastCommunicationAt,
			Healthy:             h.healthy(sensor),
			RequiresMaintenance: requiresMaintenance(sensor),
		})
	}
	return rows, nil
}

// GetStatistics 按类型细分 + 汇总的状态计数
func (h *HealthService) GetStatistics(ctx context.Context) (*domain.SensorStatistics, error) {
	sensors, err := h.sensors.ListSensors(ctx, repository.SensorFilters{})
	if err != nil {
		return nil, err
	}

	stats := &domain.SensorStatistics{
		ByKind: make(map[domain.SensorKind]domain.KindCounts),
	}
	for _, sensor := range sensors {
		counts := stats.ByKind[sensor.Kind]
		tally(&counts, sensor, h.healthy(sensor))
		stats.ByKind[sensor.Kind] = counts
		tally(&stats.Totals, sensor, h.healthy(sensor))
	}
	return stats, nil
}

func tally(counts *domain.KindCounts, sensor *domain.Sensor, healthy bool) {
	counts.Total++
	switch sensor.Status {
	case domain.SensorActive:
		counts.Active++
	case domain.SensorInactive:
		counts.Inactive++
	case domain.SensorMaintenance:
		counts.Maintenance++
	case domain.SensorOffline:
		counts.Offline++
	}
	if healthy {
		counts.Healthy++
	}
}
