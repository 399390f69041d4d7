package repository

import (
	"context"

	"floodwatch-telemetry/internal/domain"
)

// AlertsRepository 告警Repository接口
// 引擎只负责写入，告警的生命周期管理（过期、取消）归通知子系统
type AlertsRepository interface {
	// CreateAlert 创建告警记录
	CreateAlert(ctx context.Context, alert *domain.Alert) error

	// ListActiveAlerts 查询 active 告警（供调试/巡检核对）
	ListActiveAlerts(ctx context.Context, limit int) ([]*domain.Alert, error)
}
