package service

import (
	"context"
	"time"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"
)

// QueryService 读数查询服务（最新值 + 时间范围历史）
type QueryService struct {
	sensors  repository.SensorsRepository
	readings repository.ReadingsRepository
}

func NewQueryService(sensors repository.SensorsRepository, readings repository.ReadingsRepository) *QueryService {
	return &QueryService{sensors: sensors, readings: readings}
}

// GetLatest 传感器最近一条读数，按类型填充对应切片；无数据时切片为空
func (q *QueryService) GetLatest(ctx context.Context, sensorID string) (*domain.ReadingHistory, error) {
	sensor, err := q.sensors.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	history := &domain.ReadingHistory{Kind: sensor.Kind}
	switch sensor.Kind {
	case domain.KindWaterLevel:
		latest, err := q.readings.LatestWaterLevel(ctx, sensorID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			history.WaterLevel = []*domain.WaterLevelReading{latest}
		}
	case domain.KindRainfall:
		latest, err := q.readings.LatestRainfall(ctx, sensorID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			history.Rainfall = []*domain.RainfallReading{latest}
		}
	case domain.KindWeather:
		latest, err := q.readings.LatestWeather(ctx, sensorID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			history.Weather = []*domain.WeatherReading{latest}
		}
	}
	return history, nil
}

// GetHistory 时间范围查询（timestamp ∈ [from, to)，升序）
func (q *QueryService) GetHistory(ctx context.Context, sensorID string, from, to time.Time) (*domain.ReadingHistory, error) {
	sensor, err := q.sensors.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	history := &domain.ReadingHistory{Kind: sensor.Kind}
	switch sensor.Kind {
	case domain.KindWaterLevel:
		history.WaterLevel, err = q.readings.ListWaterLevel(ctx, sensorID, from, to)
	case domain.KindRainfall:
		history.Rainfall, err = q.readings.ListRainfall(ctx, sensorID, from, to)
	case domain.KindWeather:
		history.Weather, err = q.readings.ListWeather(ctx, sensorID, from, to)
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}
