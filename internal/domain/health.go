package domain

import "time"

// HealthyWindow 传感器视为健康的最大静默时长
const HealthyWindow = 24 * time.Hour

// LowBatteryThreshold 低电量阈值（百分比）
const LowBatteryThreshold = 20

// SensorHealthRow 单个传感器的健康行（按需计算，不落库）
type SensorHealthRow struct {
	SensorID            string       `json:"sensorId"`
	DeviceID            string       `json:"deviceId"`
	Kind                SensorKind   `json:"kind"`
	Status              SensorStatus `json:"status"`
	BatteryLevel        *int         `json:"batteryLevel,omitempty"`
	LastReadingAt       *time.Time   `json:"lastReadingAt,omitempty"`
	LastCommunicationAt *time.Time   `json:"lastCommunicationAt,omitempty"`
	Healthy             bool         `json:"healthy"`
	RequiresMaintenance bool         `json:"requiresMaintenance"`
}

// KindCounts 单一类型的状态计数
type KindCounts struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Maintenance int `json:"maintenance"`
	Offline     int `json:"offline"`
	Healthy     int `json:"healthy"`
}

// SensorStatistics 全量统计（类型细分 + 汇总）
type SensorStatistics struct {
	ByKind map[SensorKind]KindCounts `json:"byKind"`
	Totals KindCounts                `json:"totals"`
}
