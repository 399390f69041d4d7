package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	commonconfig "floodwatch-telemetry/common/config"
	"floodwatch-telemetry/common/database"
	commonmqtt "floodwatch-telemetry/common/mqtt"
	rediscommon "floodwatch-telemetry/common/redis"
	"floodwatch-telemetry/internal/alerting"
	"floodwatch-telemetry/internal/broadcast"
	"floodwatch-telemetry/internal/config"
	"floodwatch-telemetry/internal/derive"
	"floodwatch-telemetry/internal/geo"
	"floodwatch-telemetry/internal/ingest"
	telemetrymqtt "floodwatch-telemetry/internal/mqtt"
	"floodwatch-telemetry/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TelemetryService 遥测引擎顶层装配：连接外部资源、组装各组件、
// 管理后台任务（WebSocket Hub、MQTT 订阅、阈值巡检）的生命周期
type TelemetryService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *commonmqtt.Client

	sensorService *SensorService
	queryService  *QueryService
	healthService *HealthService
	pipeline      *ingest.Pipeline
	sweeper       *SweepRunner
	hub           *broadcast.Hub

	cancel context.CancelFunc
}

// NewTelemetryService 创建遥测引擎
func NewTelemetryService(cfg *config.Config, logger *zap.Logger) (*TelemetryService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	sensorsRepo := repository.NewPostgresSensorsRepo(db, logger)
	readingsRepo := repository.NewPostgresReadingsRepo(db, logger)
	alertsRepo := repository.NewPostgresAlertsRepo(db, logger)

	hub := broadcast.NewHub(logger)
	streamPublisher := broadcast.NewStreamPublisher(
		redisClient,
		cfg.Telemetry.Streams.Readings,
		cfg.Telemetry.Streams.Alerts,
		cfg.Telemetry.Cache.SnapshotKeyPrefix,
		cfg.Telemetry.Cache.SnapshotSuffix,
		time.Duration(cfg.Telemetry.Cache.SnapshotTTL)*time.Second,
		logger,
	)
	broadcaster := broadcast.NewFanoutBroadcaster(streamPublisher, hub, logger)

	var resolver alerting.LocationResolver
	if cfg.Geo.BaseURL != "" {
		resolver = geo.NewResolver(cfg.Geo.BaseURL, time.Duration(cfg.Geo.Timeout)*time.Second, logger)
	}

	generator := alerting.NewGenerator(sensorsRepo, alertsRepo, broadcaster, resolver, logger)
	pipeline := ingest.NewPipeline(
		sensorsRepo,
		readingsRepo,
		derive.NewRainfallDeriver(readingsRepo),
		generator,
		broadcaster,
		logger,
	)

	sweeper := NewSweepRunner(
		generator,
		sensorsRepo,
		time.Duration(cfg.Telemetry.Sweep.Interval)*time.Second,
		time.Duration(cfg.Telemetry.OfflineAfter)*time.Second,
		logger,
	)

	return &TelemetryService{
		config:        cfg,
		logger:        logger,
		db:            db,
		redisClient:   redisClient,
		sensorService: NewSensorService(sensorsRepo, logger),
		queryService:  NewQueryService(sensorsRepo, readingsRepo),
		healthService: NewHealthService(sensorsRepo),
		pipeline:      pipeline,
		sweeper:       sweeper,
		hub:           hub,
	}, nil
}

// Start 启动后台组件（Hub、巡检循环、MQTT 订阅）
func (s *TelemetryService) Start(ctx context.Context) error {
	s.logger.Info("Starting telemetry engine components")

	ctx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(ctx)
	go s.sweeper.Run(ctx)

	// MQTT 接入是可选的：未配置 broker 时只保留 HTTP 接入
	if s.config.MQTT.Broker != "" {
		client, err := commonmqtt.NewClient(&s.config.MQTT, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		s.mqttClient = client

		broker := telemetrymqtt.NewTelemetryBroker(client, s.pipeline, s.config.Telemetry.TopicPrefix, s.logger)
		if err := broker.Start(); err != nil {
			return fmt.Errorf("failed to start telemetry broker: %w", err)
		}
	}

	s.logger.Info("Telemetry engine started successfully")
	return nil
}

// Stop 停止服务并释放外部连接
func (s *TelemetryService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping telemetry engine")

	if s.cancel != nil {
		s.cancel()
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("Telemetry engine stopped")
	return nil
}

// Sensors 传感器注册表服务
func (s *TelemetryService) Sensors() *SensorService { return s.sensorService }

// Query 读数查询服务
func (s *TelemetryService) Query() *QueryService { return s.queryService }

// Health 健康与统计服务
func (s *TelemetryService) Health() *HealthService { return s.healthService }

// Pipeline 遥测接收管线
func (s *TelemetryService) Pipeline() *ingest.Pipeline { return s.pipeline }

// Sweeper 阈值巡检任务（供外部调度器手工触发）
func (s *TelemetryService) Sweeper() *SweepRunner { return s.sweeper }

// Hub WebSocket 订阅者 Hub
func (s *TelemetryService) Hub() *broadcast.Hub { return s.hub }
