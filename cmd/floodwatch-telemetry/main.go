package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floodwatch-telemetry/common/logger"
	"floodwatch-telemetry/internal/config"
	httpapi "floodwatch-telemetry/internal/http"
	"floodwatch-telemetry/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载环境变量与配置
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "floodwatch-telemetry")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建遥测引擎
	engine, err := service.NewTelemetryService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create telemetry engine", zap.Error(err))
	}

	// 4. 启动后台组件（巡检、Hub、MQTT 订阅）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatal("Failed to start telemetry engine", zap.Error(err))
	}

	// 5. 启动 HTTP 服务
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Sensors:  engine.Sensors(),
		Health:   engine.Health(),
		Query:    engine.Query(),
		Pipeline: engine.Pipeline(),
		Sweeper:  engine.Sweeper(),
		Hub:      engine.Hub(),
	}, log)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 6. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error("Engine shutdown error", zap.Error(err))
	}

	log.Info("Telemetry engine stopped")
}
