package repository

import (
	"context"
	"time"

	"floodwatch-telemetry/internal/domain"
)

// ReadingsRepository 读数Repository接口
//
// Append* 方法在同一事务内写入读数并更新所属传感器的冗余快照：
// 读数落库与快照更新要么同时生效，要么同时失败。
// 读数一经写入不再修改（只追加）。
type ReadingsRepository interface {
	// AppendWaterLevel 写入水位读数并更新传感器快照
	AppendWaterLevel(ctx context.Context, sensor *domain.Sensor, reading *domain.WaterLevelReading) error

	// AppendRainfall 写入降雨读数并更新传感器快照
	AppendRainfall(ctx context.Context, sensor *domain.Sensor, reading *domain.RainfallReading) error

	// AppendWeather 写入气象读数并更新传感器快照
	AppendWeather(ctx context.Context, sensor *domain.Sensor, reading *domain.WeatherReading) error

	// LatestWaterLevel 最近一条水位读数（按 timestamp），无数据时返回 nil
	LatestWaterLevel(ctx context.Context, sensorID string) (*domain.WaterLevelReading, error)

	// LatestRainfall 最近一条降雨读数，无数据时返回 nil
	LatestRainfall(ctx context.Context, sensorID string) (*domain.RainfallReading, error)

	// LatestWeather 最近一条气象读数，无数据时返回 nil
	LatestWeather(ctx context.Context, sensorID string) (*domain.WeatherReading, error)

	// ListWaterLevel 时间范围查询（timestamp ∈ [from, to)，升序）
	ListWaterLevel(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.WaterLevelReading, error)

	// ListRainfall 时间范围查询
	ListRainfall(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.RainfallReading, error)

	// ListWeather 时间范围查询
	ListWeather(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.WeatherReading, error)

	// SumRainfall 统计已存降雨读数之和（period_end ∈ [from, to)）
	// 累计值每次从历史重新推导，迟到/重复样本只影响其所在窗口
	SumRainfall(ctx context.Context, sensorID string, from, to time.Time) (float64, error)
}
