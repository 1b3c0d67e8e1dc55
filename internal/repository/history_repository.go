package repository

import (
	"context"
	"fmt"

	"scanpos/internal/domain"
)

// HistoryRepository defines the interface for the append-only stock audit
// trail. Entries are never updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.InventoryHistoryEntry) error
	List(ctx context.Context, limit int) ([]*domain.InventoryHistoryEntry, error)
	ListByBarcode(ctx context.Context, barcode string, limit int) ([]*domain.InventoryHistoryEntry, error)
}

type historyRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new instance of HistoryRepository.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepository{db: db}
}

// Append inserts one audit entry and fills in its generated id.
func (r *historyRepository) Append(ctx context.Context, entry *domain.InventoryHistoryEntry) error {
	query := `
		INSERT INTO inventory_history (barcode, product_name, action, quantity, note, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		entry.Barcode,
		entry.ProductName,
		entry.Action,
		entry.Quantity,
		entry.Note,
		entry.Actor,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// List retrieves the newest audit entries.
func (r *historyRepository) List(ctx context.Context, limit int) ([]*domain.InventoryHistoryEntry, error) {
	query := `
		SELECT id, barcode, product_name, action, quantity, note, actor, created_at
		FROM inventory_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.list(ctx, query, normalizeLimit(limit))
}

// ListByBarcode retrieves the newest audit entries for one product.
func (r *historyRepository) ListByBarcode(ctx context.Context, barcode string, limit int) ([]*domain.InventoryHistoryEntry, error) {
	query := `
		SELECT id, barcode, product_name, action, quantity, note, actor, created_at
		FROM inventory_history
		WHERE barcode = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.list(ctx, query, normalizeLimit(limit), barcode)
}

func (r *historyRepository) list(ctx context.Context, query string, args ...any) ([]*domain.InventoryHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []*domain.InventoryHistoryEntry{}
	for rows.Next() {
		entry := &domain.InventoryHistoryEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Barcode,
			&entry.ProductName,
			&entry.Action,
			&entry.Quantity,
			&entry.Note,
			&entry.Actor,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
