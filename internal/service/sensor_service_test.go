package service

import (
	"context"
	"testing"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatPtr(v float64) *float64 { return &v }

func newSensorService() (*SensorService, *repository.MemoryReadingsRepo) {
	store := repository.NewMemoryStore()
	repo := repository.NewMemorySensorsRepo(store)
	return NewSensorService(repo, zap.NewNop()), repository.NewMemoryReadingsRepo(store)
}

func waterInput(deviceID string) RegisterSensorInput {
	return RegisterSensorInput{
		DeviceID:      deviceID,
		Kind:          domain.KindWaterLevel,
		Address:       "Ogunpa River, Bridge 4",
		AlertsEnabled: true,
		NormalLevel:   floatPtr(0.5),
		WarningLevel:  floatPtr(2),
		DangerLevel:   floatPtr(3),
		CriticalLevel: floatPtr(4),
	}
}

func TestRegisterSensor_WaterLevel(t *testing.T) {
	svc, _ := newSensorService()

	sensor, err := svc.RegisterSensor(context.Background(), waterInput("WL-001"))
	require.NoError(t, err)

	assert.NotEmpty(t, sensor.SensorID)
	assert.Equal(t, domain.SensorActive, sensor.Status)
	assert.True(t, sensor.AlertsEnabled)
	assert.Equal(t, domain.WaterThresholds{Normal: 0.5, Warning: 2, Danger: 3, Critical: 4}, sensor.WaterThresholds())

	found, err := svc.FindByDeviceID(context.Background(), "WL-001")
	require.NoError(t, err)
	assert.Equal(t, sensor.SensorID, found.SensorID)
}

func TestRegisterSensor_Validation(t *testing.T) {
	svc, _ := newSensorService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*RegisterSensorInput)
	}{
		{"missing device id", func(in *RegisterSensorInput) { in.DeviceID = "" }},
		{"unknown kind", func(in *RegisterSensorInput) { in.Kind = "seismic" }},
		{"missing threshold", func(in *RegisterSensorInput) { in.CriticalLevel = nil }},
		{"non-increasing thresholds", func(in *RegisterSensorInput) { in.DangerLevel = floatPtr(2) }},
		{"equal thresholds", func(in *RegisterSensorInput) { in.WarningLevel = floatPtr(0.5) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := waterInput("WL-X")
			tc.mutate(&input)
			_, err := svc.RegisterSensor(ctx, input)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegisterSensor_DuplicateDeviceID(t *testing.T) {
	svc, _ := newSensorService()
	ctx := context.Background()

	_, err := svc.RegisterSensor(ctx, waterInput("WL-001"))
	require.NoError(t, err)

	_, err = svc.RegisterSensor(ctx, waterInput("WL-001"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegisterSensor_RainfallThresholds(t *testing.T) {
	svc, _ := newSensorService()
	ctx := context.Background()

	input := RegisterSensorInput{
		DeviceID:           "RF-001",
		Kind:               domain.KindRainfall,
		LightThreshold:     floatPtr(2.5),
		ModerateThreshold:  floatPtr(7.5),
		HeavyThreshold:     floatPtr(15),
		VeryHeavyThreshold: floatPtr(30),
	}
	sensor, err := svc.RegisterSensor(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.RainThresholds{Light: 2.5, Moderate: 7.5, Heavy: 15, VeryHeavy: 30}, sensor.RainThresholds())

	input.DeviceID = "RF-002"
	input.VeryHeavyThreshold = floatPtr(10)
	_, err = svc.RegisterSensor(ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegisterSensor_WeatherNeedsNoThresholds(t *testing.T) {
	svc, _ := newSensorService()

	sensor, err := svc.RegisterSensor(context.Background(), RegisterSensorInput{
		DeviceID: "WS-001",
		Kind:     domain.KindWeather,
	})
	require.NoError(t, err)
	assert.Nil(t, sensor.NormalLevel)
	assert.Nil(t, sensor.LightThreshold)
}

func TestSetStatusAndDeactivate(t *testing.T) {
	svc, _ := newSensorService()
	ctx := context.Background()

	sensor, err := svc.RegisterSensor(ctx, waterInput("WL-001"))
	require.NoError(t, err)

	ok, err := svc.SetStatus(ctx, sensor.SensorID, domain.SensorMaintenance)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.SetStatus(ctx, "does-not-exist", domain.SensorActive)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SetStatus(ctx, sensor.SensorID, "retired")
	assert.ErrorIs(t, err, domain.ErrValidation)

	ok, err = svc.Deactivate(ctx, sensor.SensorID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.GetSensor(ctx, sensor.SensorID)
	require.NoError(t, err)
	assert.Equal(t, domain.SensorInactive, got.Status)
}

func TestListFilters(t *testing.T) {
	svc, _ := newSensorService()
	ctx := context.Background()

	water := waterInput("WL-001")
	water.CityID = "city-1"
	_, err := svc.RegisterSensor(ctx, water)
	require.NoError(t, err)

	_, err = svc.RegisterSensor(ctx, RegisterSensorInput{DeviceID: "WS-001", Kind: domain.KindWeather, CityID: "city-2"})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byCity, err := svc.ListByCity(ctx, "city-1")
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	assert.Equal(t, "WL-001", byCity[0].DeviceID)

	byKind, err := svc.ListByKind(ctx, domain.KindWeather)
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "WS-001", byKind[0].DeviceID)

	_, err = svc.ListByKind(ctx, "seismic")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetCriticalSensors(t *testing.T) {
	svc, readings := newSensorService()
	ctx := context.Background()

	danger, err := svc.RegisterSensor(ctx, waterInput("WL-001"))
	require.NoError(t, err)
	normal, err := svc.RegisterSensor(ctx, waterInput("WL-002"))
	require.NoError(t, err)

	// 快照随读数写入更新
	require.NoError(t, readings.AppendWaterLevel(ctx, danger, &domain.WaterLevelReading{
		SensorID: danger.SensorID,
		Level:    3.6,
		Status:   domain.WaterDanger,
	}))
	require.NoError(t, readings.AppendWaterLevel(ctx, normal, &domain.WaterLevelReading{
		SensorID: normal.SensorID,
		Level:    1.0,
		Status:   domain.WaterNormal,
	}))

	critical, err := svc.GetCriticalSensors(ctx)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, danger.SensorID, critical[0].SensorID)
}
