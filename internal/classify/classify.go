// Package classify 把派生指标映射为离散的危险分级。
// 纯函数，热路径上不做阈值校验——阈值合法性由注册时的校验保证。
package classify

import "floodwatch-telemetry/internal/domain"

// WaterLevel 按阈值自上而下匹配水位状态（首个命中即返回），对 level 单调
func WaterLevel(level float64, t domain.WaterThresholds) domain.WaterLevelStatus {
	switch {
	case level >= t.Critical:
		return domain.WaterCritical
	case level >= t.Danger:
		return domain.WaterDanger
	case level >= t.Warning:
		return domain.WaterWarning
	case level < t.Normal:
		return domain.WaterBelowNormal
	default:
		return domain.WaterNormal
	}
}

// Rainfall 按阈值从小到大扫描降雨强度：落在首个严格小于的阈值之下即归档，
// 超过全部阈值为 extreme；零降雨为 none
func Rainfall(rainfall float64, t domain.RainThresholds) domain.RainIntensity {
	if rainfall == 0 {
		return domain.RainNone
	}
	switch {
	case rainfall < t.Light:
		return domain.RainLight
	case rainfall < t.Moderate:
		return domain.RainModerate
	case rainfall < t.Heavy:
		return domain.RainHeavy
	case rainfall < t.VeryHeavy:
		return domain.RainVeryHeavy
	default:
		return domain.RainExtreme
	}
}
