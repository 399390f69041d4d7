package httpapi

import (
	"net/http"
	"strings"

	"floodwatch-telemetry/internal/domain"
	"floodwatch-telemetry/internal/service"

	"go.uber.org/zap"
)

// SensorHandler 传感器注册表与健康查询 Handler
type SensorHandler struct {
	sensors *service.SensorService
	health  *service.HealthService
	logger  *zap.Logger
}

// NewSensorHandler 创建传感器 Handler
func NewSensorHandler(sensors *service.SensorService, health *service.HealthService, logger *zap.Logger) *SensorHandler {
	return &SensorHandler{
		sensors: sensors,
		health:  health,
		logger:  logger,
	}
}

// RegisterSensor POST /api/v1/sensors
func (h *SensorHandler) RegisterSensor(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterSensorInput
	if err := readBodyJSON(r, 1<<20, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	sensor, err := h.sensors.RegisterSensor(r.Context(), input)
	if err != nil {
		h.logger.Warn("RegisterSensor failed", zap.String("device_id", input.DeviceID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(sensor))
}

// ListSensors GET /api/v1/sensors?kind=&cityId=
func (h *SensorHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var (
		sensors []*domain.Sensor
		err     error
	)
	switch {
	case query.Get("kind") != "":
		sensors, err = h.sensors.ListByKind(ctx, domain.SensorKind(query.Get("kind")))
	case query.Get("cityId") != "":
		sensors, err = h.sensors.ListByCity(ctx, query.Get("cityId"))
	default:
		sensors, err = h.sensors.ListActive(ctx)
	}
	if err != nil {
		h.logger.Error("ListSensors failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensors))
}

// GetCriticalSensors GET /api/v1/sensors/critical
func (h *SensorHandler) GetCriticalSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sensors.GetCriticalSensors(r.Context())
	if err != nil {
		h.logger.Error("GetCriticalSensors failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensors))
}

// GetHealthReport GET /api/v1/sensors/health
func (h *SensorHandler) GetHealthReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.health.GetHealthReport(r.Context())
	if err != nil {
		h.logger.Error("GetHealthReport failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rows))
}

// GetStatistics GET /api/v1/sensors/statistics
func (h *SensorHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.health.GetStatistics(r.Context())
	if err != nil {
		h.logger.Error("GetStatistics failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// GetSensor GET /api/v1/sensors/{id}
func (h *SensorHandler) GetSensor(w http.ResponseWriter, r *http.Request, sensorID string) {
	sensor, err := h.sensors.GetSensor(r.Context(), sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensor))
}

// SetStatus PUT /api/v1/sensors/{id}/status
func (h *SensorHandler) SetStatus(w http.ResponseWriter, r *http.Request, sensorID string) {
	var body struct {
		Status domain.SensorStatus `json:"status"`
	}
	if err := readBodyJSON(r, 1<<16, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	ok, err := h.sensors.SetStatus(r.Context(), sensorID, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("sensor not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// Deactivate POST /api/v1/sensors/{id}/deactivate
func (h *SensorHandler) Deactivate(w http.ResponseWriter, r *http.Request, sensorID string) {
	ok, err := h.sensors.Deactivate(r.Context(), sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("sensor not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// ServeHTTP /api/v1/sensors 前缀下的路由分发
func (h *SensorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sensors")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodPost:
		h.RegisterSensor(w, r)
	case path == "" && r.Method == http.MethodGet:
		h.ListSensors(w, r)
	case path == "critical" && r.Method == http.MethodGet:
		h.GetCriticalSensors(w, r)
	case path == "health" && r.Method == http.MethodGet:
		h.GetHealthReport(w, r)
	case path == "statistics" && r.Method == http.MethodGet:
		h.GetStatistics(w, r)
	case strings.HasSuffix(path, "/status") && r.Method == http.MethodPut:
		h.SetStatus(w, r, strings.TrimSuffix(path, "/status"))
	case strings.HasSuffix(path, "/deactivate") && r.Method == http.MethodPost:
		h.Deactivate(w, r, strings.TrimSuffix(path, "/deactivate"))
	case path != "" && !strings.Contains(path, "/") && r.Method == http.MethodGet:
		h.GetSensor(w, r, path)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
