// Package derive 在分级之前对原始样本做按类型的状态化派生：
// 水位变化率、降雨滑动累计、气象透传。
package derive

import (
	"time"

	"floodwatch-telemetry/internal/domain"
)

// RateOfChange 计算水位变化率（米/小时）。
// prev 取该传感器最近一条已落库的读数（而不是冗余快照，避免乱序到达时漂移）。
// 无历史读数或时间差为零时返回 nil。
func RateOfChange(prev *domain.WaterLevelReading, level float64, timestamp time.Time) *float64 {
	if prev == nil {
		return nil
	}
	hours := timestamp.Sub(prev.Timestamp).Hours()
	if hours == 0 {
		return nil
	}
	rate := (level - prev.Level) / hours
	return &rate
}
