package service

import (
	"context"
	"time"

	"floodwatch-telemetry/internal/alerting"
	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"go.uber.org/zap"
)

// SweepRunner 周期任务：阈值巡检 + 离线判定。
// 每轮先对所有 active 且启用告警的传感器重评当前快照（给静默停留在
// 危险状态的传感器兜底），再把静默超时的传感器标记为 offline。
// 单轮失败只记日志，下一轮从头全量执行。
type SweepRunner struct {
	generator    *alerting.Generator
	sensors      repository.SensorsRepository
	interval     time.Duration
	offlineAfter time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewSweepRunner(
	generator *alerting.Generator,
	sensors repository.SensorsRepository,
	interval, offlineAfter time.Duration,
	logger *zap.Logger,
) *SweepRunner {
	return &SweepRunner{
		generator:    generator,
		sensors:      sensors,
		interval:     interval,
		offlineAfter: offlineAfter,
		logger:       logger,
		now:          time.Now,
	}
}

// RunOnce 执行一轮巡检，返回本轮产生的告警
func (r *SweepRunner) RunOnce(ctx context.Context) ([]*domain.Alert, error) {
	alerts, err := r.generator.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	if len(alerts) > 0 {
		r.logger.Info("Threshold sweep produced alerts", zap.Int("count", len(alerts)))
	}

	if err := r.markOfflineSensors(ctx); err != nil {
		r.logger.Error("Failed to mark offline sensors", zap.Error(err))
	}
	return alerts, nil
}

// markOfflineSensors 把静默超过 offlineAfter 的 active 传感器标记为 offline。
// 只改状态不发告警；传感器恢复上报后由运维手工恢复 active。
func (r *SweepRunner) markOfflineSensors(ctx context.Context) error {
	if r.offlineAfter <= 0 {
		return nil
	}

	sensors, err := r.sensors.ListSensors(ctx, repository.SensorFilters{ActiveOnly: true})
	if err != nil {
		return err
	}

	cutoff := r.now().Add(-r.offlineAfter)
	for _, sensor := range sensors {
		lastSeen := sensor.CreatedAt
		if sensor.LastCommunicationAt != nil {
			lastSeen = *sensor.LastCommunicationAt
		}
		if !lastSeen.Before(cutoff) {
			continue
		}

		if _, err := r.sensors.SetStatus(ctx, sensor.SensorID, domain.SensorOffline); err != nil {
			r.logger.Error("Failed to mark sensor offline",
				zap.String("sensor_id", sensor.SensorID),
				zap.Error(err),
			)
			continue
		}
		r.logger.Warn("Sensor marked offline",
			zap.String("sensor_id", sensor.SensorID),
			zap.String("device_id", sensor.DeviceID),
			zap.Time("last_seen", lastSeen),
		)
	}
	return nil
}

// Run 启动巡检循环，阻塞直到 ctx 取消。启动时先执行一轮。
func (r *SweepRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Starting threshold sweep loop", zap.Duration("interval", r.interval))

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("Threshold sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Threshold sweep loop stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Threshold sweep failed", zap.Error(err))
			}
		}
	}
}
