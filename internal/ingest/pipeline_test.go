package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"floodwatch-telemetry/internal/alerting"
	"floodwatch-telemetry/internal/derive"
	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatPtr(v float64) *float64 { return &v }

type pipelineFixture struct {
	store    *repository.MemoryStore
	sensors  *repository.MemorySensorsRepo
	readings *repository.MemoryReadingsRepo
	alerts   *repository.MemoryAlertsRepo
	pipeline *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	sensors := repository.NewMemorySensorsRepo(store)
	readings := repository.NewMemoryReadingsRepo(store)
	alerts := repository.NewMemoryAlertsRepo(store)

	generator := alerting.NewGenerator(sensors, alerts, nil, nil, zap.NewNop())
	pipeline := NewPipeline(
		sensors,
		readings,
		derive.NewRainfallDeriver(readings),
		generator,
		nil,
		zap.NewNop(),
	)

	return &pipelineFixture{
		store:    store,
		sensors:  sensors,
		readings: readings,
		alerts:   alerts,
		pipeline: pipeline,
	}
}

func (f *pipelineFixture) addWaterSensor(t *testing.T, deviceID string) *domain.Sensor {
	t.Helper()
	sensor := &domain.Sensor{
		SensorID:      uuid.New().String(),
		DeviceID:      deviceID,
		Kind:          domain.KindWaterLevel,
		Address:       "Ogunpa River, Bridge 4",
		Status:        domain.SensorActive,
		AlertsEnabled: true,
		NormalLevel:   floatPtr(0.5),
		WarningLevel:  floatPtr(2),
		DangerLevel:   floatPtr(3),
		CriticalLevel: floatPtr(4),
	}
	require.NoError(t, f.sensors.CreateSensor(context.Background(), sensor))
	return sensor
}

func (f *pipelineFixture) addRainSensor(t *testing.T, deviceID string) *domain.Sensor {
	t.Helper()
	sensor := &domain.Sensor{
		SensorID:           uuid.New().String(),
		DeviceID:           deviceID,
		Kind:               domain.KindRainfall,
		Status:             domain.SensorActive,
		AlertsEnabled:      true,
		LightThreshold:     floatPtr(2.5),
		ModerateThreshold:  floatPtr(7.5),
		HeavyThreshold:     floatPtr(15),
		VeryHeavyThreshold: floatPtr(30),
	}
	require.NoError(t, f.sensors.CreateSensor(context.Background(), sensor))
	return sensor
}

func TestIngestWaterLevel_DangerTriggersEmergencyAlert(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	sensor := f.addWaterSensor(t, "WL-001")

	reading, err := f.pipeline.IngestWaterLevel(ctx, "WL-001", WaterLevelSample{
		Level:     3.5,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.WaterDanger, reading.Status)
	assert.True(t, reading.AlertTriggered)
	assert.NotNil(t, reading.AlertTriggeredAt)
	assert.Nil(t, reading.RateOfChange, "first reading has no rate of change")

	alerts, err := f.alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityEmergency, alerts[0].Severity)
	assert.Equal(t, domain.DisasterFlood, alerts[0].DisasterType)
	assert.Equal(t, sensor.SensorID, alerts[0].SensorID)

	stored, err := f.sensors.GetSensor(ctx, sensor.SensorID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentLevel)
	assert.Equal(t, 3.5, *stored.CurrentLevel)
	require.NotNil(t, stored.CurrentStatus)
	assert.Equal(t, domain.WaterDanger, *stored.CurrentStatus)
}

func TestIngestWaterLevel_RateOfChangeFromPersistedHistory(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.addWaterSensor(t, "WL-001")

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	_, err := f.pipeline.IngestWaterLevel(ctx, "WL-001", WaterLevelSample{Level: 1.0, Timestamp: base})
	require.NoError(t, err)

	reading, err := f.pipeline.IngestWaterLevel(ctx, "WL-001", WaterLevelSample{
		Level:     2.0,
		Timestamp: base.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	require.NotNil(t, reading.RateOfChange)
	assert.InDelta(t, 0.5, *reading.RateOfChange, 1e-9)
	assert.Equal(t, domain.WaterWarning, reading.Status)
	assert.False(t, reading.AlertTriggered, "warning is not hazardous")

	alerts, err := f.alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestIngestWaterLevel_UnknownDevice(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.IngestWaterLevel(context.Background(), "NOPE-9", WaterLevelSample{Level: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestWaterLevel_KindMismatch(t *testing.T) {
	f := newPipelineFixture(t)
	f.addRainSensor(t, "RF-001")

	_, err := f.pipeline.IngestWaterLevel(context.Background(), "RF-001", WaterLevelSample{Level: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestWaterLevel_SnapshotFailureLeavesNoPartialState(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	sensor := f.addWaterSensor(t, "WL-001")

	f.store.SetSnapshotHook(func(string) error {
		return errors.New("disk full")
	})

	_, err := f.pipeline.IngestWaterLevel(ctx, "WL-001", WaterLevelSample{
		Level:     3.5,
		Timestamp: time.Now().UTC(),
	})
	require.Error(t, err)

	f.store.SetSnapshotHook(nil)

	latest, err := f.readings.LatestWaterLevel(ctx, sensor.SensorID)
	require.NoError(t, err)
	assert.Nil(t, latest, "reading must not be stored when snapshot update fails")

	stored, err := f.sensors.GetSensor(ctx, sensor.SensorID)
	require.NoError(t, err)
	assert.Nil(t, stored.CurrentLevel)
	assert.Nil(t, stored.LastReadingAt)
}

type failingAlertsRepo struct{}

func (f *failingAlertsRepo) CreateAlert(context.Context, *domain.Alert) error {
	return errors.New("alerts table unavailable")
}

func (f *failingAlertsRepo) ListActiveAlerts(context.Context, int) ([]*domain.Alert, error) {
	return nil, nil
}

func TestIngestWaterLevel_AlertFailureDoesNotFailIngestion(t *testing.T) {
	store := repository.NewMemoryStore()
	sensors := repository.NewMemorySensorsRepo(store)
	readings := repository.NewMemoryReadingsRepo(store)

	generator := alerting.NewGenerator(sensors, &failingAlertsRepo{}, nil, nil, zap.NewNop())
	pipeline := NewPipeline(sensors, readings, derive.NewRainfallDeriver(readings), generator, nil, zap.NewNop())

	ctx := context.Background()
	sensor := &domain.Sensor{
		SensorID:      uuid.New().String(),
		DeviceID:      "WL-001",
		Kind:          domain.KindWaterLevel,
		Status:        domain.SensorActive,
		AlertsEnabled: true,
		NormalLevel:   floatPtr(0.5),
		WarningLevel:  floatPtr(2),
		DangerLevel:   floatPtr(3),
		CriticalLevel: floatPtr(4),
	}
	require.NoError(t, sensors.CreateSensor(ctx, sensor))

	reading, err := pipeline.IngestWaterLevel(ctx, "WL-001", WaterLevelSample{
		Level:     4.2,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err, "alert persistence is a soft guarantee")
	assert.Equal(t, domain.WaterCritical, reading.Status)
	assert.True(t, reading.AlertTriggered)

	latest, err := readings.LatestWaterLevel(ctx, sensor.SensorID)
	require.NoError(t, err)
	require.NotNil(t, latest, "reading must survive alert failure")
}

func TestIngestRainfall_CumulativeAcrossSamples(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	sensor := f.addRainSensor(t, "RF-001")

	hour := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	first, err := f.pipeline.IngestRainfall(ctx, "RF-001", RainfallSample{
		Rainfall:    5,
		PeriodStart: hour.Add(5 * time.Minute),
		PeriodEnd:   hour.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RainModerate, first.Intensity)
	assert.Equal(t, 5.0, first.HourlyCumulative)
	assert.Equal(t, 5.0, first.DailyCumulative)

	second, err := f.pipeline.IngestRainfall(ctx, "RF-001", RainfallSample{
		Rainfall:    12,
		PeriodStart: hour.Add(10 * time.Minute),
		PeriodEnd:   hour.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RainHeavy, second.Intensity)
	assert.Equal(t, 17.0, second.HourlyCumulative)
	assert.Equal(t, 17.0, second.DailyCumulative)

	// 跨整点：小时桶重置，自然日桶继续累计
	third, err := f.pipeline.IngestRainfall(ctx, "RF-001", RainfallSample{
		Rainfall:    40,
		PeriodStart: hour.Add(62 * time.Minute),
		PeriodEnd:   hour.Add(65 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RainExtreme, third.Intensity)
	assert.Equal(t, 40.0, third.HourlyCumulative)
	assert.Equal(t, 57.0, third.DailyCumulative)
	assert.True(t, third.AlertTriggered)

	alerts, err := f.alerts.ListActiveAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityExtreme, alerts[0].Severity)
	assert.Equal(t, sensor.SensorID, alerts[0].SensorID)
}

func TestIngestRainfall_RejectsMalformedSamples(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.addRainSensor(t, "RF-001")

	now := time.Now().UTC()

	cases := []struct {
		name   string
		sample RainfallSample
	}{
		{"negative rainfall", RainfallSample{Rainfall: -1, PeriodStart: now.Add(-time.Minute), PeriodEnd: now}},
		{"missing period", RainfallSample{Rainfall: 1}},
		{"inverted period", RainfallSample{Rainfall: 1, PeriodStart: now, PeriodEnd: now.Add(-time.Minute)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.pipeline.IngestRainfall(ctx, "RF-001", tc.sample)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestIngestWeather_PartialSample(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	sensor := &domain.Sensor{
		SensorID: uuid.New().String(),
		DeviceID: "WS-001",
		Kind:     domain.KindWeather,
		Status:   domain.SensorActive,
	}
	require.NoError(t, f.sensors.CreateSensor(ctx, sensor))

	reading, err := f.pipeline.IngestWeather(ctx, "WS-001", WeatherSample{
		Temperature: floatPtr(28.4),
		Humidity:    floatPtr(83),
	})
	require.NoError(t, err)
	assert.Equal(t, 28.4, *reading.Temperature)
	assert.Nil(t, reading.Pressure)

	stored, err := f.sensors.GetSensor(ctx, sensor.SensorID)
	require.NoError(t, err)
	require.NotNil(t, stored.Temperature)
	assert.Equal(t, 28.4, *stored.Temperature)
	assert.NotNil(t, stored.LastCommunicationAt)

	_, err = f.pipeline.IngestWeather(ctx, "WS-001", WeatherSample{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
