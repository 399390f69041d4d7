package repository

import (
	"context"
	"database/sql"
	"fmt"

	"floodwatch-telemetry/internal/domain"

	"go.uber.org/zap"
)

// PostgresAlertsRepo 告警记录的PostgreSQL实现
type PostgresAlertsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAlertsRepo(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepo {
	return &PostgresAlertsRepo{db: db, logger: logger}
}

func (r *PostgresAlertsRepo) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}

	query := `
		INSERT INTO alerts (
			alert_id, sensor_id, source_kind, disaster_type,
			title, message, severity, status,
			affected_location, issued_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID, alert.SensorID, alert.SourceKind, alert.DisasterType,
		alert.Title, alert.Message, alert.Severity, alert.Status,
		alert.AffectedLocation, alert.IssuedAt, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

func (r *PostgresAlertsRepo) ListActiveAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			alert_id::text, sensor_id::text, source_kind, disaster_type,
			title, message, severity, status,
			COALESCE(affected_location, ''), issued_at, created_at
		FROM alerts
		WHERE status = 'active'
		ORDER BY issued_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.AlertID, &a.SensorID, &a.SourceKind, &a.DisasterType,
			&a.Title, &a.Message, &a.Severity, &a.Status,
			&a.AffectedLocation, &a.IssuedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
