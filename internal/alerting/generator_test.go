package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"
)

func TestSeverityMapping(t *testing.T) {
	assert.Equal(t, domain.SeverityExtreme, SeverityForWaterStatus(domain.WaterCritical))
	assert.Equal(t, domain.SeverityEmergency, SeverityForWaterStatus(domain.WaterDanger))
	assert.Equal(t, domain.SeverityWarning, SeverityForWaterStatus(domain.WaterWarning))
	assert.Equal(t, domain.SeverityAdvisory, SeverityForWaterStatus(domain.WaterNormal))

	assert.Equal(t, domain.SeverityExtreme, SeverityForRainIntensity(domain.RainExtreme))
	assert.Equal(t, domain.SeverityEmergency, SeverityForRainIntensity(domain.RainVeryHeavy))
	assert.Equal(t, domain.SeverityWarning, SeverityForRainIntensity(domain.RainHeavy))
	assert.Equal(t, domain.SeverityAdvisory, SeverityForRainIntensity(domain.RainLight))
}

func TestBuildWaterAlert(t *testing.T) {
	sensor := &domain.Sensor{
		SensorID: uuid.New().String(),
		DeviceID: "WL-001",
		Kind:     domain.KindWaterLevel,
		Address:  "Ikeja, Lagos",
	}

	alert := BuildWaterAlert(sensor, domain.WaterDanger, 3.5, "")

	assert.NotEmpty(t, alert.AlertID)
	assert.Equal(t, sensor.SensorID, alert.SensorID)
	assert.Equal(t, domain.DisasterFlood, alert.DisasterType)
	assert.Equal(t, domain.SeverityEmergency, alert.Severity)
	assert.Equal(t, domain.AlertActive, alert.Status)
	assert.Equal(t, "Ikeja, Lagos", alert.AffectedLocation)
	assert.Contains(t, alert.Message, "WL-001")
	assert.Contains(t, alert.Message, "3.50m")
}

func newTestGenerator(t *testing.T) (*Generator, *repository.MemoryStore, repository.SensorsRepository, repository.AlertsRepository) {
	t.Helper()
	store := repository.NewMemoryStore()
	sensors := repository.NewMemorySensorsRepo(store)
	alerts := repository.NewMemoryAlertsRepo(store)
	gen := NewGenerator(sensors, alerts, nil, nil, zap.NewNop())
	return gen, store, sensors, alerts
}

func hazardousWaterSensor(status domain.WaterLevelStatus, level float64, enabled bool) *domain.Sensor {
	return &domain.Sensor{
		SensorID:      uuid.New().String(),
		DeviceID:      "WL-" + uuid.New().String()[:8],
		Kind:          domain.KindWaterLevel,
		Status:        domain.SensorActive,
		AlertsEnabled: enabled,
		CurrentStatus: &status,
		CurrentLevel:  &level,
		CreatedAt:     time.Now(),
	}
}

func TestEvaluateWaterReading_Triggers(t *testing.T) {
	gen, _, _, alerts := newTestGenerator(t)
	ctx := context.Background()

	sensor := hazardousWaterSensor(domain.WaterDanger, 3.5, true)
	reading := &domain.WaterLevelReading{
		SensorID: sensor.SensorID,
		Level:    3.5,
		Status:   domain.WaterDanger,
	}

	alert, err := gen.EvaluateWaterReading(ctx, sensor, reading)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, domain.SeverityEmergency, alert.Severity)

	stored, err := alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestEvaluateWaterReading_NotHazardous(t *testing.T) {
	gen, _, _, _ := newTestGenerator(t)

	sensor := hazardousWaterSensor(domain.WaterNormal, 1.0, true)
	reading := &domain.WaterLevelReading{SensorID: sensor.SensorID, Level: 1.0, Status: domain.WaterWarning}

	alert, err := gen.EvaluateWaterReading(context.Background(), sensor, reading)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluateWaterReading_AlertsDisabled(t *testing.T) {
	gen, _, _, _ := newTestGenerator(t)

	sensor := hazardousWaterSensor(domain.WaterCritical, 5.0, false)
	reading := &domain.WaterLevelReading{SensorID: sensor.SensorID, Level: 5.0, Status: domain.WaterCritical}

	alert, err := gen.EvaluateWaterReading(context.Background(), sensor, reading)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestSweep_HazardousSnapshots(t *testing.T) {
	gen, _, sensors, _ := newTestGenerator(t)
	ctx := context.Background()

	// danger 水位传感器 → emergency 告警
	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterDanger, 3.2, true)))
	// critical 水位传感器 → extreme 告警
	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterCritical, 4.8, true)))
	// 正常水位传感器：不触发
	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterNormal, 1.1, true)))
	// 危险但禁用了告警：不触发
	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterCritical, 5.0, false)))

	// very_heavy 降雨传感器 → emergency 告警
	intensity := domain.RainVeryHeavy
	rainfall := 35.0
	require.NoError(t, sensors.CreateSensor(ctx, &domain.Sensor{
		SensorID:         uuid.New().String(),
		DeviceID:         "RF-sweep",
		Kind:             domain.KindRainfall,
		Status:           domain.SensorActive,
		AlertsEnabled:    true,
		CurrentIntensity: &intensity,
		CurrentRainfall:  &rainfall,
	}))

	issued, err := gen.Sweep(ctx)
	require.NoError(t, err)
	assert.Len(t, issued, 3)

	counts := map[domain.AlertSeverity]int{}
	for _, a := range issued {
		counts[a.Severity]++
	}
	assert.Equal(t, 2, counts[domain.SeverityEmergency])
	assert.Equal(t, 1, counts[domain.SeverityExtreme])
}

// 没有新读数时连续两次巡检产生相同数量与级别分布（不去重是约定行为）
func TestSweep_Idempotent(t *testing.T) {
	gen, _, sensors, alerts := newTestGenerator(t)
	ctx := context.Background()

	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterDanger, 3.2, true)))
	require.NoError(t, sensors.CreateSensor(ctx, hazardousWaterSensor(domain.WaterCritical, 4.8, true)))

	first, err := gen.Sweep(ctx)
	require.NoError(t, err)
	second, err := gen.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))

	histogram := func(in []*domain.Alert) map[domain.AlertSeverity]int {
		out := map[domain.AlertSeverity]int{}
		for _, a := range in {
			out[a.Severity]++
		}
		return out
	}
	assert.Equal(t, histogram(first), histogram(second))

	// 每轮都落库：四条 active 告警
	stored, err := alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestSweep_SkipsInactiveSensors(t *testing.T) {
	gen, _, sensors, _ := newTestGenerator(t)
	ctx := context.Background()

	s := hazardousWaterSensor(domain.WaterCritical, 5.0, true)
	s.Status = domain.SensorMaintenance
	require.NoError(t, sensors.CreateSensor(ctx, s))

	issued, err := gen.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, issued)
}
