package httpapi

import (
	"net/http"

	"floodwatch-telemetry/internal/broadcast"
	"floodwatch-telemetry/internal/ingest"
	"floodwatch-telemetry/internal/service"

	"go.uber.org/zap"
)

// RouterDeps 路由装配需要的组件
type RouterDeps struct {
	Sensors  *service.SensorService
	Health   *service.HealthService
	Query    *service.QueryService
	Pipeline *ingest.Pipeline
	Sweeper  *service.SweepRunner
	Hub      *broadcast.Hub
}

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建并装配全部路由
func NewRouter(deps RouterDeps, logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}

	sensorHandler := NewSensorHandler(deps.Sensors, deps.Health, logger)
	telemetryHandler := NewTelemetryHandler(deps.Pipeline, deps.Query, deps.Sweeper, logger)

	r.mux.Handle("/api/v1/sensors", sensorHandler)
	r.mux.Handle("/api/v1/sensors/", sensorHandler)

	r.mux.HandleFunc("/api/v1/telemetry/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		telemetryHandler.IngestReading(w, req)
	})

	r.mux.HandleFunc("/api/v1/readings/", telemetryHandler.ServeReadings)

	r.mux.HandleFunc("/api/v1/sweep/run", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		telemetryHandler.RunSweep(w, req)
	})

	if deps.Hub != nil {
		wsHandler := NewWSHandler(deps.Hub, logger)
		r.mux.HandleFunc("/ws/telemetry", wsHandler.Subscribe)
	}

	r.mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
