package repository

import (
	"context"
	"errors"
	"fmt"

	"scanpos/internal/domain"
)

var ErrAlertNotFound = errors.New("alert not found")

// AlertRepository defines the interface for persisted stock alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	HasUnread(ctx context.Context, barcode string, alertType domain.StockLevel) (bool, error)
	List(ctx context.Context, limit int) ([]*domain.Alert, error)
	MarkRead(ctx context.Context, id int64) error
}

type alertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new instance of AlertRepository.
func NewAlertRepository(db DBTX) AlertRepository {
	return &alertRepository{db: db}
}

// Create inserts one alert and fills in its generated id.
func (r *alertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (barcode, alert_type, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		alert.Barcode,
		alert.Type,
		alert.Message,
		alert.IsRead,
		alert.CreatedAt,
	).Scan(&alert.ID)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// HasUnread reports whether an unread alert of the given type already exists
// for the product, so repeated threshold crossings do not pile up duplicates.
func (r *alertRepository) HasUnread(ctx context.Context, barcode string, alertType domain.StockLevel) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM alerts WHERE barcode = $1 AND alert_type = $2 AND is_read = FALSE)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, barcode, alertType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check unread alerts: %w", err)
	}
	return exists, nil
}

// List retrieves the newest alerts.
func (r *alertRepository) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	query := `
		SELECT id, barcode, alert_type, message, is_read, created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		alert := &domain.Alert{}
		err := rows.Scan(
			&alert.ID,
			&alert.Barcode,
			&alert.Type,
			&alert.Message,
			&alert.IsRead,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// MarkRead flags one alert as read.
func (r *alertRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}
