package derive

import (
	"context"
	"fmt"
	"time"

	"floodwatch-telemetry/internal/repository"
)

// RainfallDeriver 降雨累计派生器。
// 累计值每次从已存历史重新推导而不是增量累加：迟到或重复的样本
// 只会影响它实际落入的窗口，不会永久污染滚动总量。
type RainfallDeriver struct {
	readings repository.ReadingsRepository
}

func NewRainfallDeriver(readings repository.ReadingsRepository) *RainfallDeriver {
	return &RainfallDeriver{readings: readings}
}

// Cumulative 计算包含 periodEnd 的整点小时桶与自然日桶的累计降雨量。
// 返回值已包含本次样本的 rainfall。
func (d *RainfallDeriver) Cumulative(ctx context.Context, sensorID string, periodEnd time.Time, rainfall float64) (hourly, daily float64, err error) {
	hourStart := periodEnd.Truncate(time.Hour)
	hourEnd := hourStart.Add(time.Hour)

	hourly, err = d.readings.SumRainfall(ctx, sensorID, hourStart, hourEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to derive hourly cumulative: %w", err)
	}

	y, m, day := periodEnd.Date()
	dayStart := time.Date(y, m, day, 0, 0, 0, 0, periodEnd.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	daily, err = d.readings.SumRainfall(ctx, sensorID, dayStart, dayEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to derive daily cumulative: %w", err)
	}

	return hourly + rainfall, daily + rainfall, nil
}
