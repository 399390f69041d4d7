package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"floodwatch-telemetry/internal/domain"

	"go.uber.org/zap"
)

// PostgresReadingsRepo 读数存储的PostgreSQL实现
// Append* 方法在单个事务内完成读数插入 + sensors 表快照更新
type PostgresReadingsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresReadingsRepo(db *sql.DB, logger *zap.Logger) *PostgresReadingsRepo {
	return &PostgresReadingsRepo{db: db, logger: logger}
}

func (r *PostgresReadingsRepo) AppendWaterLevel(ctx context.Context, sensor *domain.Sensor, reading *domain.WaterLevelReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO water_level_readings (
			sensor_id, timestamp, level, status, rate_of_change,
			is_valid, alert_triggered, alert_triggered_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var alertAt interface{}
	if reading.AlertTriggeredAt != nil {
		alertAt = *reading.AlertTriggeredAt
	}
	err = tx.QueryRowContext(ctx, insert,
		reading.SensorID, reading.Timestamp, reading.Level, reading.Status, reading.RateOfChange,
		reading.IsValid, reading.AlertTriggered, alertAt, reading.CreatedAt,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert water level reading: %w", err)
	}

	update := `
		UPDATE sensors SET
			current_level = $1,
			current_status = $2,
			current_rate = $3,
			last_reading_at = $4,
			last_communication_at = $4,
			updated_at = $5
		WHERE sensor_id = $6
	`
	if _, err := tx.ExecContext(ctx, update,
		reading.Level, reading.Status, reading.RateOfChange,
		reading.Timestamp, time.Now(), reading.SensorID,
	); err != nil {
		return fmt.Errorf("failed to update sensor snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading: %w", err)
	}
	return nil
}

func (r *PostgresReadingsRepo) AppendRainfall(ctx context.Context, sensor *domain.Sensor, reading *domain.RainfallReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO rainfall_readings (
			sensor_id, timestamp, rainfall, period_start, period_end,
			intensity, hourly_cumulative, daily_cumulative,
			is_valid, alert_triggered, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert,
		reading.SensorID, reading.Timestamp, reading.Rainfall, reading.PeriodStart, reading.PeriodEnd,
		reading.Intensity, reading.HourlyCumulative, reading.DailyCumulative,
		reading.IsValid, reading.AlertTriggered, reading.CreatedAt,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert rainfall reading: %w", err)
	}

	update := `
		UPDATE sensors SET
			current_rainfall = $1,
			current_intensity = $2,
			hourly_cumulative = $3,
			daily_cumulative = $4,
			last_reading_at = $5,
			last_communication_at = $5,
			updated_at = $6
		WHERE sensor_id = $7
	`
	if _, err := tx.ExecContext(ctx, update,
		reading.Rainfall, reading.Intensity, reading.HourlyCumulative, reading.DailyCumulative,
		reading.Timestamp, time.Now(), reading.SensorID,
	); err != nil {
		return fmt.Errorf("failed to update sensor snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading: %w", err)
	}
	return nil
}

func (r *PostgresReadingsRepo) AppendWeather(ctx context.Context, sensor *domain.Sensor, reading *domain.WeatherReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO weather_readings (
			sensor_id, timestamp, temperature, humidity, pressure,
			wind_speed, wind_direction, is_valid, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert,
		reading.SensorID, reading.Timestamp, reading.Temperature, reading.Humidity, reading.Pressure,
		reading.WindSpeed, reading.WindDirection, reading.IsValid, reading.CreatedAt,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert weather reading: %w", err)
	}

	// 气象快照只覆盖本次上报携带的字段（COALESCE 保留旧值）
	update := `
		UPDATE sensors SET
			temperature = COALESCE($1, temperature),
			humidity = COALESCE($2, humidity),
			pressure = COALESCE($3, pressure),
			wind_speed = COALESCE($4, wind_speed),
			wind_direction = COALESCE($5, wind_direction),
			last_reading_at = $6,
			last_communication_at = $6,
			updated_at = $7
		WHERE sensor_id = $8
	`
	if _, err := tx.ExecContext(ctx, update,
		reading.Temperature, reading.Humidity, reading.Pressure,
		reading.WindSpeed, reading.WindDirection,
		reading.Timestamp, time.Now(), reading.SensorID,
	); err != nil {
		return fmt.Errorf("failed to update sensor snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading: %w", err)
	}
	return nil
}

const waterLevelColumns = `
	id, sensor_id::text, timestamp, level, status, rate_of_change,
	is_valid, alert_triggered, alert_triggered_at, created_at`

func scanWaterLevel(row rowScanner) (*domain.WaterLevelReading, error) {
	var rd domain.WaterLevelReading
	var alertAt sql.NullTime
	err := row.Scan(
		&rd.ID, &rd.SensorID, &rd.Timestamp, &rd.Level, &rd.Status, &rd.RateOfChange,
		&rd.IsValid, &rd.AlertTriggered, &alertAt, &rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if alertAt.Valid {
		rd.AlertTriggeredAt = &alertAt.Time
	}
	return &rd, nil
}

func (r *PostgresReadingsRepo) LatestWaterLevel(ctx context.Context, sensorID string) (*domain.WaterLevelReading, error) {
	query := `SELECT ` + waterLevelColumns + `
		FROM water_level_readings
		WHERE sensor_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	reading, err := scanWaterLevel(r.db.QueryRowContext(ctx, query, sensorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest water level reading: %w", err)
	}
	return reading, nil
}

func (r *PostgresReadingsRepo) ListWaterLevel(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.WaterLevelReading, error) {
	query := `SELECT ` + waterLevelColumns + `
		FROM water_level_readings
		WHERE sensor_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, sensorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list water level readings: %w", err)
	}
	defer rows.Close()

	var readings []*domain.WaterLevelReading
	for rows.Next() {
		rd, err := scanWaterLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan water level reading: %w", err)
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

const rainfallColumns = `
	id, sensor_id::text, timestamp, rainfall, period_start, period_end,
	intensity, hourly_cumulative, daily_cumulative, is_valid, alert_triggered, created_at`

func scanRainfall(row rowScanner) (*domain.RainfallReading, error) {
	var rd domain.RainfallReading
	err := row.Scan(
		&rd.ID, &rd.SensorID, &rd.Timestamp, &rd.Rainfall, &rd.PeriodStart, &rd.PeriodEnd,
		&rd.Intensity, &rd.HourlyCumulative, &rd.DailyCumulative, &rd.IsValid, &rd.AlertTriggered, &rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *PostgresReadingsRepo) LatestRainfall(ctx context.Context, sensorID string) (*domain.RainfallReading, error) {
	query := `SELECT ` + rainfallColumns + `
		FROM rainfall_readings
		WHERE sensor_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	reading, err := scanRainfall(r.db.QueryRowContext(ctx, query, sensorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest rainfall reading: %w", err)
	}
	return reading, nil
}

func (r *PostgresReadingsRepo) ListRainfall(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.RainfallReading, error) {
	query := `SELECT ` + rainfallColumns + `
		FROM rainfall_readings
		WHERE sensor_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, sensorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list rainfall readings: %w", err)
	}
	defer rows.Close()

	var readings []*domain.RainfallReading
	for rows.Next() {
		rd, err := scanRainfall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rainfall reading: %w", err)
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

func (r *PostgresReadingsRepo) SumRainfall(ctx context.Context, sensorID string, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(rainfall), 0)
		FROM rainfall_readings
		WHERE sensor_id = $1 AND period_end >= $2 AND period_end < $3 AND is_valid
	`
	var sum float64
	if err := r.db.QueryRowContext(ctx, query, sensorID, from, to).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum rainfall: %w", err)
	}
	return sum, nil
}

const weatherColumns = `
	id, sensor_id::text, timestamp, temperature, humidity, pressure,
	wind_speed, wind_direction, is_valid, created_at`

func scanWeather(row rowScanner) (*domain.WeatherReading, error) {
	var rd domain.WeatherReading
	err := row.Scan(
		&rd.ID, &rd.SensorID, &rd.Timestamp, &rd.Temperature, &rd.Humidity, &rd.Pressure,
		&rd.WindSpeed, &rd.WindDirection, &rd.IsValid, &rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *PostgresReadingsRepo) LatestWeather(ctx context.Context, sensorID string) (*domain.WeatherReading, error) {
	query := `SELECT ` + weatherColumns + `
		FROM weather_readings
		WHERE sensor_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	reading, err := scanWeather(r.db.QueryRowContext(ctx, query, sensorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest weather reading: %w", err)
	}
	return reading, nil
}

func (r *PostgresReadingsRepo) ListWeather(ctx context.Context, sensorID string, from, to time.Time) ([]*domain.WeatherReading, error) {
	query := `SELECT ` + weatherColumns + `
		FROM weather_readings
		WHERE sensor_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, sensorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list weather readings: %w", err)
	}
	defer rows.Close()

	var readings []*domain.WeatherReading
	for rows.Next() {
		rd, err := scanWeather(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weather reading: %w", err)
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}
