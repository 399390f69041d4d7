package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"floodwatch-telemetry/internal/domain"
)

// MemoryStore backs the repositories when running without Postgres
// (unit tests, local development). One mutex guards sensors, readings
// and alerts so the append+snapshot pair is naturally atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	sensors  map[string]*domain.Sensor // sensorID -> sensor
	byDevice map[string]string         // deviceID -> sensorID
	water    map[string][]*domain.WaterLevelReading
	rain     map[string][]*domain.RainfallReading
	weather  map[string][]*domain.WeatherReading
	alerts   []*domain.Alert
	seq      int64

	// snapshotHook 在快照更新前调用，返回错误则整个 Append 失败且不留任何痕迹（测试用）
	snapshotHook func(sensorID string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sensors:  map[string]*domain.Sensor{},
		byDevice: map[string]string{},
		water:    map[string][]*domain.WaterLevelReading{},
		rain:     map[string][]*domain.RainfallReading{},
		weather:  map[string][]*domain.WeatherReading{},
	}
}

// SetSnapshotHook 注入快照更新失败（仅测试使用）
func (s *MemoryStore) SetSnapshotHook(hook func(sensorID string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotHook = hook
}

func (s *MemoryStore) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneSensor(src *domain.Sensor) *domain.Sensor {
	if src == nil {
		return nil
	}
	dst := *src
	dst.BatteryLevel = cloneInt(src.BatteryLevel)
	dst.LastCommunicationAt = cloneTime(src.LastCommunicationAt)
	dst.LastReadingAt = cloneTime(src.LastReadingAt)
	dst.NormalLevel = cloneFloat(src.NormalLevel)
	dst.WarningLevel = cloneFloat(src.WarningLevel)
	dst.DangerLevel = cloneFloat(src.DangerLevel)
	dst.CriticalLevel = cloneFloat(src.CriticalLevel)
	dst.LightThreshold = cloneFloat(src.LightThreshold)
	dst.ModerateThreshold = cloneFloat(src.ModerateThreshold)
	dst.HeavyThreshold = cloneFloat(src.HeavyThreshold)
	dst.VeryHeavyThreshold = cloneFloat(src.VeryHeavyThreshold)
	dst.CurrentLevel = cloneFloat(src.CurrentLevel)
	dst.CurrentRate = cloneFloat(src.CurrentRate)
	dst.CurrentRainfall = cloneFloat(src.CurrentRainfall)
	dst.HourlyCumulative = cloneFloat(src.HourlyCumulative)
	dst.DailyCumulative = cloneFloat(src.DailyCumulative)
	dst.Temperature = cloneFloat(src.Temperature)
	dst.Humidity = cloneFloat(src.Humidity)
	dst.Pressure = cloneFloat(src.Pressure)
	dst.WindSpeed = cloneFloat(src.WindSpeed)
	dst.WindDirection = cloneFloat(src.WindDirection)
	if src.CurrentStatus != nil {
		v := *src.CurrentStatus
		dst.CurrentStatus = &v
	}
	if src.CurrentIntensity != nil {
		v := *src.CurrentIntensity
		dst.CurrentIntensity = &v
	}
	return &dst
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ============================================
// MemorySensorsRepo
// ============================================

type MemorySensorsRepo struct {
	store *MemoryStore
}

func NewMemorySensorsRepo(store *MemoryStore) *MemorySensorsRepo {
	return &MemorySensorsRepo{store: store}
}

func (r *MemorySensorsRepo) CreateSensor(_ context.Context, sensor *domain.Sensor) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDevice[sensor.DeviceID]; exists {
		return fmt.Errorf("device_id %s already registered: %w", sensor.DeviceID, domain.ErrValidation)
	}
	s.sensors[sensor.SensorID] = cloneSensor(sensor)
	s.byDevice[sensor.DeviceID] = sensor.SensorID
	return nil
}

func (r *MemorySensorsRepo) GetSensor(_ context.Context, sensorID string) (*domain.Sensor, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensor, ok := s.sensors[sensorID]
	if !ok {
		return nil, fmt.Errorf("sensor %s: %w", sensorID, domain.ErrNotFound)
	}
	return cloneSensor(sensor), nil
}

func (r *MemorySensorsRepo) GetSensorByDeviceID(_ context.Context, deviceID string) (*domain.Sensor, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensorID, ok := s.byDevice[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, domain.ErrNotFound)
	}
	return cloneSensor(s.sensors[sensorID]), nil
}

func (r *MemorySensorsRepo) ListSensors(_ context.Context, filters SensorFilters) ([]*domain.Sensor, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Sensor
	for _, sensor := range s.sensors {
		if filters.Kind != "" && sensor.Kind != filters.Kind {
			continue
		}
		if filters.CityID != "" && sensor.CityID != filters.CityID {
			continue
		}
		if filters.ActiveOnly && sensor.Status != domain.SensorActive {
			continue
		}
		if len(filters.Statuses) > 0 {
			match := false
			for _, st := range filters.Statuses {
				if sensor.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, cloneSensor(sensor))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemorySensorsRepo) SetStatus(_ context.Context, sensorID string, status domain.SensorStatus) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor, ok := s.sensors[sensorID]
	if !ok {
		return false, nil
	}
	sensor.Status = status
	sensor.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemorySensorsRepo) UpdateBattery(_ context.Context, sensorID string, batteryLevel int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor, ok := s.sensors[sensorID]
	if !ok {
		return fmt.Errorf("sensor %s: %w", sensorID, domain.ErrNotFound)
	}
	sensor.BatteryLevel = &batteryLevel
	sensor.UpdatedAt = time.Now()
	return nil
}

// ============================================
// MemoryReadingsRepo
// ============================================

type MemoryReadingsRepo struct {
	store *MemoryStore
}

func NewMemoryReadingsRepo(store *MemoryStore) *MemoryReadingsRepo {
	return &MemoryReadingsRepo{store: store}
}

func (r *MemoryReadingsRepo) AppendWaterLevel(_ context.Context, sensor *domain.Sensor, reading *domain.WaterLevelReading) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sensors[reading.SensorID]
	if !ok {
		return fmt.Errorf("sensor %s: %w", reading.SensorID, domain.ErrNotFound)
	}
	if s.snapshotHook != nil {
		if err := s.snapshotHook(reading.SensorID); err != nil {
			return fmt.Errorf("failed to update sensor snapshot: %w", err)
		}
	}

	reading.ID = s.nextID()
	cp := *reading
	s.water[reading.SensorID] = append(s.water[reading.SensorID], &cp)

	stored.CurrentLevel = &cp.Level
	status := cp.Status
	stored.CurrentStatus = &status
	stored.CurrentRate = cloneFloat(cp.RateOfChange)
	ts := cp.Timestamp
	stored.LastReadingAt = &ts
	stored.LastCommunicationAt = &ts
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryReadingsRepo) AppendRainfall(_ context.Context, sensor *domain.Sensor, reading *domain.RainfallReading) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sensors[reading.SensorID]
	if !ok {
		return fmt.Errorf("sensor %s: %w", reading.SensorID, domain.ErrNotFound)
	}
	if s.snapshotHook != nil {
		if err := s.snapshotHook(reading.SensorID); err != nil {
			return fmt.Errorf("failed to update sensor snapshot: %w", err)
		}
	}

	reading.ID = s.nextID()
	cp := *reading
	s.rain[reading.SensorID] = append(s.rain[reading.SensorID], &cp)

	stored.CurrentRainfall = &cp.Rainfall
	intensity := cp.Intensity
	stored.CurrentIntensity = &intensity
	stored.HourlyCumulative = &cp.HourlyCumulative
	stored.DailyCumulative = &cp.DailyCumulative
	ts := cp.Timestamp
	stored.LastReadingAt = &ts
	stored.LastCommunicationAt = &ts
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryReadingsRepo) AppendWeather(_ context.Context, sensor *domain.Sensor, reading *domain.WeatherReading) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sensors[reading.SensorID]
	if !ok {
		return fmt.Errorf("sensor %s: %w", reading.SensorID, domain.ErrNotFound)
	}
	if s.snapshotHook != nil {
		if err := s.snapshotHook(reading.SensorID); err != nil {
			return fmt.Errorf("failed to update sensor snapshot: %w", err)
		}
	}

	reading.ID = s.nextID()
	cp := *reading
	s.weather[reading.SensorID] = append(s.weather[reading.SensorID], &cp)

	// 部分遥测：只覆盖本次上报携带的字段
	if cp.Temperature != nil {
		stored.Temperature = cloneFloat(cp.Temperature)
	}
	if cp.Humidity != nil {
		stored.Humidity = cloneFloat(cp.Humidity)
	}
	if cp.Pressure != nil {
		stored.Pressure = cloneFloat(cp.Pressure)
	}
	if cp.WindSpeed != nil {
		stored.WindSpeed = cloneFloat(cp.WindSpeed)
	}
	if cp.WindDirection != nil {
		stored.WindDirection = cloneFloat(cp.WindDirection)
	}
	ts := cp.Timestamp
	stored.LastReadingAt = &ts
	stored.LastCommunicationAt = &ts
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryReadingsRepo) LatestWaterLevel(_ context.Context, sensorID string) (*domain.WaterLevelReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.WaterLevelReading
	for _, rd := range s.water[sensorID] {
		if latest == nil || rd.Timestamp.After(latest.Timestamp) {
			latest = rd
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryReadingsRepo) LatestRainfall(_ context.Context, sensorID string) (*domain.RainfallReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RainfallReading
	for _, rd := range s.rain[sensorID] {
		if latest == nil || rd.Timestamp.After(latest.Timestamp) {
			latest = rd
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryReadingsRepo) LatestWeather(_ context.Context, sensorID string) (*domain.WeatherReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.WeatherReading
	for _, rd := range s.weather[sensorID] {
		if latest == nil || rd.Timestamp.After(latest.Timestamp) {
			latest = rd
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryReadingsRepo) ListWaterLevel(_ context.Context, sensorID string, from, to time.Time) ([]*domain.WaterLevelReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WaterLevelReading
	for _, rd := range s.water[sensorID] {
		if !rd.Timestamp.Before(from) && rd.Timestamp.Before(to) {
			cp := *rd
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryReadingsRepo) ListRainfall(_ context.Context, sensorID string, from, to time.Time) ([]*domain.RainfallReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RainfallReading
	for _, rd := range s.rain[sensorID] {
		if !rd.Timestamp.Before(from) && rd.Timestamp.Before(to) {
			cp := *rd
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryReadingsRepo) ListWeather(_ context.Context, sensorID string, from, to time.Time) ([]*domain.WeatherReading, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WeatherReading
	for _, rd := range s.weather[sensorID] {
		if !rd.Timestamp.Before(from) && rd.Timestamp.Before(to) {
			cp := *rd
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryReadingsRepo) SumRainfall(_ context.Context, sensorID string, from, to time.Time) (float64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	for _, rd := range s.rain[sensorID] {
		if rd.IsValid && !rd.PeriodEnd.Before(from) && rd.PeriodEnd.Before(to) {
			sum += rd.Rainfall
		}
	}
	return sum, nil
}

// ============================================
// MemoryAlertsRepo
// ============================================

type MemoryAlertsRepo struct {
	store *MemoryStore
}

func NewMemoryAlertsRepo(store *MemoryStore) *MemoryAlertsRepo {
	return &MemoryAlertsRepo{store: store}
}

func (r *MemoryAlertsRepo) CreateAlert(_ context.Context, alert *domain.Alert) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *alert
	s.alerts = append(s.alerts, &cp)
	return nil
}

func (r *MemoryAlertsRepo) ListActiveAlerts(_ context.Context, limit int) ([]*domain.Alert, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	var out []*domain.Alert
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.alerts[i].Status == domain.AlertActive {
			cp := *s.alerts[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
