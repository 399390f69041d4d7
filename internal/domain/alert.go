package domain

import "time"

// AlertSeverity 告警严重级别（递增）
type AlertSeverity string

const (
	SeverityAdvisory  AlertSeverity = "advisory"
	SeverityWarning   AlertSeverity = "warning"
	SeverityEmergency AlertSeverity = "emergency"
	SeverityExtreme   AlertSeverity = "extreme"
)

// DisasterType 灾害类型
type DisasterType string

const (
	DisasterFlood DisasterType = "flood"
)

// AlertStatus 告警生命周期状态
// 引擎只负责创建 active 告警，后续状态流转归通知子系统管理
type AlertStatus string

const (
	AlertActive AlertStatus = "active"
)

// Alert 告警记录（对应 alerts 表）
// 由告警生成器创建后即交由下游通知子系统接管
type Alert struct {
	AlertID          string        `db:"alert_id"` // UUID
	SensorID         string        `db:"sensor_id"`
	SourceKind       SensorKind    `db:"source_kind"`
	DisasterType     DisasterType  `db:"disaster_type"`
	Title            string        `db:"title"`
	Message          string        `db:"message"`
	Severity         AlertSeverity `db:"severity"`
	Status           AlertStatus   `db:"status"`
	AffectedLocation string        `db:"affected_location"`
	IssuedAt         time.Time     `db:"issued_at"`
	CreatedAt        time.Time     `db:"created_at"`
}
