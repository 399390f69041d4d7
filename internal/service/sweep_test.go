package service

import (
	"context"
	"testing"
	"time"

	"floodwatch-telemetry/internal/alerting"
	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSweepFixture(t *testing.T) (*SweepRunner, *repository.MemorySensorsRepo, *repository.MemoryReadingsRepo, *repository.MemoryAlertsRepo) {
	t.Helper()
	store := repository.NewMemoryStore()
	sensors := repository.NewMemorySensorsRepo(store)
	readings := repository.NewMemoryReadingsRepo(store)
	alerts := repository.NewMemoryAlertsRepo(store)

	generator := alerting.NewGenerator(sensors, alerts, nil, nil, zap.NewNop())
	runner := NewSweepRunner(generator, sensors, time.Minute, 6*time.Hour, zap.NewNop())
	return runner, sensors, readings, alerts
}

func TestRunOnce_EmitsAlertsForHazardousSnapshots(t *testing.T) {
	runner, sensors, readings, alerts := newSweepFixture(t)
	ctx := context.Background()

	sensor := &domain.Sensor{
		SensorID:      uuid.New().String(),
		DeviceID:      "WL-001",
		Kind:          domain.KindWaterLevel,
		Status:        domain.SensorActive,
		AlertsEnabled: true,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, sensors.CreateSensor(ctx, sensor))
	require.NoError(t, readings.AppendWaterLevel(ctx, sensor, &domain.WaterLevelReading{
		SensorID:  sensor.SensorID,
		Level:     4.2,
		Status:    domain.WaterCritical,
		Timestamp: time.Now(),
	}))

	produced, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, domain.SeverityExtreme, produced[0].Severity)

	stored, err := alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRunOnce_MarksSilentSensorsOffline(t *testing.T) {
	runner, sensors, readings, _ := newSweepFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	runner.now = func() time.Time { return now }

	silent := &domain.Sensor{
		SensorID:  uuid.New().String(),
		DeviceID:  "WL-SILENT",
		Kind:      domain.KindWaterLevel,
		Status:    domain.SensorActive,
		CreatedAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, sensors.CreateSensor(ctx, silent))

	fresh := &domain.Sensor{
		SensorID:  uuid.New().String(),
		DeviceID:  "WL-FRESH",
		Kind:      domain.KindWaterLevel,
		Status:    domain.SensorActive,
		CreatedAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, sensors.CreateSensor(ctx, fresh))
	require.NoError(t, readings.AppendWaterLevel(ctx, fresh, &domain.WaterLevelReading{
		SensorID:  fresh.SensorID,
		Level:     1.0,
		Status:    domain.WaterNormal,
		Timestamp: now.Add(-time.Hour),
	}))

	recent := &domain.Sensor{
		SensorID:  uuid.New().String(),
		DeviceID:  "WL-RECENT",
		Kind:      domain.KindWaterLevel,
		Status:    domain.SensorActive,
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, sensors.CreateSensor(ctx, recent))

	_, err := runner.RunOnce(ctx)
	require.NoError(t, err)

	got, err := sensors.GetSensor(ctx, silent.SensorID)
	require.NoError(t, err)
	assert.Equal(t, domain.SensorOffline, got.Status, "silent past the window")

	got, err = sensors.GetSensor(ctx, fresh.SensorID)
	require.NoError(t, err)
	assert.Equal(t, domain.SensorActive, got.Status, "recent reading keeps it active")

	got, err = sensors.GetSensor(ctx, recent.SensorID)
	require.NoError(t, err)
	assert.Equal(t, domain.SensorActive, got.Status, "newly created sensor gets a grace period")
}

func TestRunOnce_OfflineDetectionDisabled(t *testing.T) {
	runner, sensors, _, _ := newSweepFixture(t)
	runner.offlineAfter = 0
	ctx := context.Background()

	silent := &domain.Sensor{
		SensorID:  uuid.New().String(),
		DeviceID:  "WL-SILENT",
		Kind:      domain.KindWaterLevel,
		Status:    domain.SensorActive,
		CreatedAt: time.Now().Add(-96 * time.Hour),
	}
	require.NoError(t, sensors.CreateSensor(ctx, silent))

	_, err := runner.RunOnce(ctx)
	require.NoError(t, err)

	got, err := sensors.GetSensor(ctx, silent.SensorID)
	require.NoError(t, err)
	assert.Equal(t, domain.SensorActive, got.Status)
}
