package alerting

import (
	"context"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/repository"

	"go.uber.org/zap"
)

// AlertPublisher 告警的实时广播出口（尽力而为，失败不影响告警落库）
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.Alert)
}

// LocationResolver 城市/LGA 展示名解析（可选的外部协作方，失败返回空串）
type LocationResolver interface {
	ResolveLocation(ctx context.Context, cityID, lgaID string) string
}

// Generator 告警生成器：内联路径（每条分级读数）+ 周期巡检路径共用
//
// 去重策略：不去重。同一传感器在持续危险状态下的每次触发（无论来自
// 新读数还是巡检）都会产生一条新的告警记录，过期/合并归下游通知子系统。
type Generator struct {
	sensors   repository.SensorsRepository
	alerts    repository.AlertsRepository
	publisher AlertPublisher
	resolver  LocationResolver
	logger    *zap.Logger
}

func NewGenerator(
	sensors repository.SensorsRepository,
	alerts repository.AlertsRepository,
	publisher AlertPublisher,
	resolver LocationResolver,
	logger *zap.Logger,
) *Generator {
	return &Generator{
		sensors:   sensors,
		alerts:    alerts,
		publisher: publisher,
		resolver:  resolver,
		logger:    logger,
	}
}

func (g *Generator) location(ctx context.Context, sensor *domain.Sensor) string {
	if g.resolver == nil {
		return sensor.Address
	}
	if loc := g.resolver.ResolveLocation(ctx, sensor.CityID, sensor.LGAID); loc != "" {
		return loc
	}
	return sensor.Address
}

// EvaluateWaterReading 内联评估一条已分级的水位读数。
// 触发时返回已落库的告警；未触发返回 nil。
func (g *Generator) EvaluateWaterReading(ctx context.Context, sensor *domain.Sensor, reading *domain.WaterLevelReading) (*domain.Alert, error) {
	if !sensor.AlertsEnabled || !reading.Status.Hazardous() {
		return nil, nil
	}

	alert := BuildWaterAlert(sensor, reading.Status, reading.Level, g.location(ctx, sensor))
	if err := g.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	g.publish(ctx, alert)
	return alert, nil
}

// EvaluateRainReading 内联评估一条已分级的降雨读数
func (g *Generator) EvaluateRainReading(ctx context.Context, sensor *domain.Sensor, reading *domain.RainfallReading) (*domain.Alert, error) {
	if !sensor.AlertsEnabled || !reading.Intensity.Hazardous() {
		return nil, nil
	}

	alert := BuildRainAlert(sensor, reading.Intensity, reading.Rainfall, g.location(ctx, sensor))
	if err := g.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	g.publish(ctx, alert)
	return alert, nil
}

// Sweep 周期巡检：重新评估所有 active 且启用告警的传感器的"当前快照"
// （而不是实时读数），给静默停留在危险状态的传感器兜底。
// 幂等：没有新读数时连续两次巡检产生相同数量/级别分布的告警。
func (g *Generator) Sweep(ctx context.Context) ([]*domain.Alert, error) {
	sensors, err := g.sensors.ListSensors(ctx, repository.SensorFilters{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	var issued []*domain.Alert
	for _, sensor := range sensors {
		if err := ctx.Err(); err != nil {
			// 巡检被取消：下一轮会完整重跑，无需补偿
			return issued, err
		}
		if !sensor.AlertsEnabled {
			continue
		}

		var alert *domain.Alert
		switch sensor.Kind {
		case domain.KindWaterLevel:
			if sensor.CurrentStatus == nil || !sensor.CurrentStatus.Hazardous() {
				continue
			}
			var level float64
			if sensor.CurrentLevel != nil {
				level = *sensor.CurrentLevel
			}
			alert = BuildWaterAlert(sensor, *sensor.CurrentStatus, level, g.location(ctx, sensor))
		case domain.KindRainfall:
			if sensor.CurrentIntensity == nil || !sensor.CurrentIntensity.Hazardous() {
				continue
			}
			var rainfall float64
			if sensor.CurrentRainfall != nil {
				rainfall = *sensor.CurrentRainfall
			}
			alert = BuildRainAlert(sensor, *sensor.CurrentIntensity, rainfall, g.location(ctx, sensor))
		default:
			// 气象传感器不产生告警
			continue
		}

		if err := g.alerts.CreateAlert(ctx, alert); err != nil {
			g.logger.Error("Failed to create sweep alert",
				zap.String("sensor_id", sensor.SensorID),
				zap.String("device_id", sensor.DeviceID),
				zap.Error(err),
			)
			// 继续处理其他传感器，不中断
			continue
		}
		g.publish(ctx, alert)
		issued = append(issued, alert)

		g.logger.Info("Sweep alert issued",
			zap.String("alert_id", alert.AlertID),
			zap.String("device_id", sensor.DeviceID),
			zap.String("severity", string(alert.Severity)),
		)
	}

	return issued, nil
}

func (g *Generator) publish(ctx context.Context, alert *domain.Alert) {
	if g.publisher == nil {
		return
	}
	g.publisher.PublishAlert(ctx, alert)
}
