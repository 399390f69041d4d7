package alerting

import (
	"fmt"
	"time"

	"floodwatch-telemetry/internal/domain"

	"github.com/google/uuid"
)

// SeverityForWaterStatus 水位状态到告警级别的映射
func SeverityForWaterStatus(status domain.WaterLevelStatus) domain.AlertSeverity {
	switch status {
	case domain.WaterCritical:
		return domain.SeverityExtreme
	case domain.WaterDanger:
		return domain.SeverityEmergency
	case domain.WaterWarning:
		return domain.SeverityWarning
	default:
		return domain.SeverityAdvisory
	}
}

// SeverityForRainIntensity 降雨强度到告警级别的映射
func SeverityForRainIntensity(intensity domain.RainIntensity) domain.AlertSeverity {
	switch intensity {
	case domain.RainExtreme:
		return domain.SeverityExtreme
	case domain.RainVeryHeavy:
		return domain.SeverityEmergency
	case domain.RainHeavy:
		return domain.SeverityWarning
	default:
		return domain.SeverityAdvisory
	}
}

// BuildWaterAlert 构建水位告警（调用方保证确实处于触发状态）
func BuildWaterAlert(sensor *domain.Sensor, status domain.WaterLevelStatus, level float64, location string) *domain.Alert {
	now := time.Now()
	if location == "" {
		location = sensor.Address
	}
	return &domain.Alert{
		AlertID:      uuid.New().String(),
		SensorID:     sensor.SensorID,
		SourceKind:   domain.KindWaterLevel,
		DisasterType: domain.DisasterFlood,
		Title:        fmt.Sprintf("Flood alert: water level %s", status),
		Message: fmt.Sprintf("Sensor %s reports water level %.2fm (%s) at %s",
			sensor.DeviceID, level, status, location),
		Severity:         SeverityForWaterStatus(status),
		Status:           domain.AlertActive,
		AffectedLocation: location,
		IssuedAt:         now,
		CreatedAt:        now,
	}
}

// BuildRainAlert 构建降雨告警
func BuildRainAlert(sensor *domain.Sensor, intensity domain.RainIntensity, rainfall float64, location string) *domain.Alert {
	now := time.Now()
	if location == "" {
		location = sensor.Address
	}
	return &domain.Alert{
		AlertID:      uuid.New().String(),
		SensorID:     sensor.SensorID,
		SourceKind:   domain.KindRainfall,
		DisasterType: domain.DisasterFlood,
		Title:        fmt.Sprintf("Flood alert: %s rainfall", intensity),
		Message: fmt.Sprintf("Sensor %s reports %.1fmm rainfall (%s) at %s",
			sensor.DeviceID, rainfall, intensity, location),
		Severity:         SeverityForRainIntensity(intensity),
		Status:           domain.AlertActive,
		AffectedLocation: location,
		IssuedAt:         now,
		CreatedAt:        now,
	}
}
