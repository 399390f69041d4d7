package httpapi

import (
	"net/http"
	"strings"

	"floodwatch-telemetry/internal/ingest"
	"floodwatch-telemetry/internal/service"

	"go.uber.org/zap"
)

// TelemetryHandler 遥测接收与读数查询 Handler
type TelemetryHandler struct {
	pipeline *ingest.Pipeline
	query    *service.QueryService
	sweeper  *service.SweepRunner
	logger   *zap.Logger
}

// NewTelemetryHandler 创建遥测 Handler
func NewTelemetryHandler(
	pipeline *ingest.Pipeline,
	query *service.QueryService,
	sweeper *service.SweepRunner,
	logger *zap.Logger,
) *TelemetryHandler {
	return &TelemetryHandler{
		pipeline: pipeline,
		query:    query,
		sweeper:  sweeper,
		logger:   logger,
	}
}

// IngestReading POST /api/v1/telemetry/{kind}/{deviceId}
// 载荷为类型专属的 JSON 样本，与 MQTT 接入语义一致
func (h *TelemetryHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/telemetry/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind, deviceID := parts[0], parts[1]
	ctx := r.Context()

	var (
		reading any
		err     error
	)
	switch kind {
	case "water-level":
		var sample ingest.WaterLevelSample
		if err := readBodyJSON(r, 1<<16, &sample); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
		reading, err = h.pipeline.IngestWaterLevel(ctx, deviceID, sample)

	case "rainfall":
		var sample ingest.RainfallSample
		if err := readBodyJSON(r, 1<<16, &sample); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
		reading, err = h.pipeline.IngestRainfall(ctx, deviceID, sample)

	case "weather":
		var sample ingest.WeatherSample
		if err := readBodyJSON(r, 1<<16, &sample); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
		reading, err = h.pipeline.IngestWeather(ctx, deviceID, sample)

	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err != nil {
		h.logger.Warn("IngestReading failed",
			zap.String("kind", kind),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(reading))
}

// GetLatest GET /api/v1/readings/{sensorId}/latest
func (h *TelemetryHandler) GetLatest(w http.ResponseWriter, r *http.Request, sensorID string) {
	history, err := h.query.GetLatest(r.Context(), sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(history))
}

// GetHistory GET /api/v1/readings/{sensorId}?from=&to=
func (h *TelemetryHandler) GetHistory(w http.ResponseWriter, r *http.Request, sensorID string) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	history, err := h.query.GetHistory(r.Context(), sensorID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(history))
}

// RunSweep POST /api/v1/sweep/run
// 供外部调度器手工触发一轮阈值巡检
func (h *TelemetryHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("RunSweep failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alerts))
}

// ServeReadings /api/v1/readings 前缀下的路由分发
func (h *TelemetryHandler) ServeReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/readings/")
	switch {
	case strings.HasSuffix(path, "/latest"):
		h.GetLatest(w, r, strings.TrimSuffix(path, "/latest"))
	case path != "" && !strings.Contains(path, "/"):
		h.GetHistory(w, r, path)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
