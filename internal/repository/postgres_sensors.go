package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"floodwatch-telemetry/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresSensorsRepo 传感器注册表的PostgreSQL实现
type PostgresSensorsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresSensorsRepo(db *sql.DB, logger *zap.Logger) *PostgresSensorsRepo {
	return &PostgresSensorsRepo{db: db, logger: logger}
}

// sensorColumns 与 scanSensor 保持一致
const sensorColumns = `
	sensor_id::text,
	device_id,
	kind,
	COALESCE(city_id::text, ''),
	COALESCE(lga_id::text, ''),
	latitude,
	longitude,
	COALESCE(address, ''),
	status,
	created_at,
	updated_at,
	battery_level,
	last_communication_at,
	alerts_enabled,
	normal_level,
	warning_level,
	danger_level,
	critical_level,
	light_threshold,
	moderate_threshold,
	heavy_threshold,
	very_heavy_threshold,
	last_reading_at,
	current_level,
	current_status,
	current_rate,
	current_rainfall,
	current_intensity,
	hourly_cumulative,
	daily_cumulative,
	temperature,
	humidity,
	pressure,
	wind_speed,
	wind_direction`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSensor(row rowScanner) (*domain.Sensor, error) {
	var s domain.Sensor
	var batteryLevel sql.NullInt64
	var lastComm, lastReading sql.NullTime
	var currentStatus, currentIntensity sql.NullString

	err := row.Scan(
		&s.SensorID,
		&s.DeviceID,
		&s.Kind,
		&s.CityID,
		&s.LGAID,
		&s.Latitude,
		&s.Longitude,
		&s.Address,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
		&batteryLevel,
		&lastComm,
		&s.AlertsEnabled,
		&s.NormalLevel,
		&s.WarningLevel,
		&s.DangerLevel,
		&s.CriticalLevel,
		&s.LightThreshold,
		&s.ModerateThreshold,
		&s.HeavyThreshold,
		&s.VeryHeavyThreshold,
		&lastReading,
		&s.CurrentLevel,
		&currentStatus,
		&s.CurrentRate,
		&s.CurrentRainfall,
		&currentIntensity,
		&s.HourlyCumulative,
		&s.DailyCumulative,
		&s.Temperature,
		&s.Humidity,
		&s.Pressure,
		&s.WindSpeed,
		&s.WindDirection,
	)
	if err != nil {
		return nil, err
	}

	if batteryLevel.Valid {
		v := int(batteryLevel.Int64)
		s.BatteryLevel = &v
	}
	if lastComm.Valid {
		s.LastCommunicationAt = &lastComm.Time
	}
	if lastReading.Valid {
		s.LastReadingAt = &lastReading.Time
	}
	if currentStatus.Valid && currentStatus.String != "" {
		v := domain.WaterLevelStatus(currentStatus.String)
		s.CurrentStatus = &v
	}
	if currentIntensity.Valid && currentIntensity.String != "" {
		v := domain.RainIntensity(currentIntensity.String)
		s.CurrentIntensity = &v
	}

	return &s, nil
}

func (r *PostgresSensorsRepo) CreateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return fmt.Errorf("sensor is required")
	}

	query := `
		INSERT INTO sensors (
			sensor_id, device_id, kind,
			city_id, lga_id, latitude, longitude, address,
			status, created_at, updated_at,
			battery_level, last_communication_at, alerts_enabled,
			normal_level, warning_level, danger_level, critical_level,
			light_threshold, moderate_threshold, heavy_threshold, very_heavy_threshold
		) VALUES (
			$1, $2, $3,
			NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21, $22
		)
	`

	var battery interface{}
	if sensor.BatteryLevel != nil {
		battery = *sensor.BatteryLevel
	}
	var lastComm interface{}
	if sensor.LastCommunicationAt != nil {
		lastComm = *sensor.LastCommunicationAt
	}

	_, err := r.db.ExecContext(ctx, query,
		sensor.SensorID, sensor.DeviceID, sensor.Kind,
		sensor.CityID, sensor.LGAID, sensor.Latitude, sensor.Longitude, sensor.Address,
		sensor.Status, sensor.CreatedAt, sensor.UpdatedAt,
		battery, lastComm, sensor.AlertsEnabled,
		sensor.NormalLevel, sensor.WarningLevel, sensor.DangerLevel, sensor.CriticalLevel,
		sensor.LightThreshold, sensor.ModerateThreshold, sensor.HeavyThreshold, sensor.VeryHeavyThreshold,
	)
	if err != nil {
		// 唯一约束冲突（device_id）映射为验证错误
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("device_id %s already registered: %w", sensor.DeviceID, domain.ErrValidation)
		}
		return fmt.Errorf("failed to create sensor: %w", err)
	}

	return nil
}

func (r *PostgresSensorsRepo) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE sensor_id = $1`

	sensor, err := scanSensor(r.db.QueryRowContext(ctx, query, sensorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sensor %s: %w", sensorID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	return sensor, nil
}

func (r *PostgresSensorsRepo) GetSensorByDeviceID(ctx context.Context, deviceID string) (*domain.Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE device_id = $1`

	sensor, err := scanSensor(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("device %s: %w", deviceID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sensor by device_id: %w", err)
	}
	return sensor, nil
}

func (r *PostgresSensorsRepo) ListSensors(ctx context.Context, filters SensorFilters) ([]*domain.Sensor, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argN := 1

	if filters.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", argN))
		args = append(args, filters.Kind)
		argN++
	}
	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", argN))
		args = append(args, pq.Array(statuses))
		argN++
	}
	if filters.CityID != "" {
		where = append(where, fmt.Sprintf("city_id = $%d", argN))
		args = append(args, filters.CityID)
		argN++
	}
	if filters.ActiveOnly {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, domain.SensorActive)
		argN++
	}

	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []*domain.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensors: %w", err)
	}

	return sensors, nil
}

func (r *PostgresSensorsRepo) SetStatus(ctx context.Context, sensorID string, status domain.SensorStatus) (bool, error) {
	query := `UPDATE sensors SET status = $1, updated_at = $2 WHERE sensor_id = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), sensorID)
	if err != nil {
		return false, fmt.Errorf("failed to set sensor status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresSensorsRepo) UpdateBattery(ctx context.Context, sensorID string, batteryLevel int) error {
	query := `UPDATE sensors SET battery_level = $1, updated_at = $2 WHERE sensor_id = $3`

	if _, err := r.db.ExecContext(ctx, query, batteryLevel, time.Now(), sensorID); err != nil {
		return fmt.Errorf("failed to update battery level: %w", err)
	}
	return nil
}
