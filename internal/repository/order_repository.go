package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scanpos/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order with this code already exists")
)

// OrderRepository defines the interface for order and order-item data access.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateItem(ctx context.Context, item *domain.OrderItem) error
	DeleteItems(ctx context.Context, orderID int64) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateCustomer(ctx context.Context, id int64, name, phone string) error
	UpdateTotals(ctx context.Context, id int64, total, final, profit float64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int, keyword string) ([]*domain.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error)
	MonthlyProfit(ctx context.Context, limit int) ([]*domain.MonthlyProfit, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_code, customer_name, customer_phone, total_amount, discount, final_amount, payment_method, status, created_by, created_at, completed_at, total_profit`

// Create inserts a new order and fills in its generated id.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (order_code, customer_name, customer_phone, total_amount, discount, final_amount, payment_method, status, created_by, created_at, completed_at, total_profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		order.Code,
		order.CustomerName,
		order.CustomerPhone,
		order.TotalAmount,
		order.Discount,
		order.FinalAmount,
		order.PaymentMethod,
		order.Status,
		order.CreatedBy,
		order.CreatedAt,
		order.CompletedAt,
		order.TotalProfit,
	).Scan(&order.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrOrderExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateItem inserts one order line and fills in its generated id.
func (r *orderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, barcode, product_name, quantity, unit_price, cost_price, subtotal, profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		item.OrderID,
		item.Barcode,
		item.ProductName,
		item.Quantity,
		item.UnitPrice,
		item.CostPrice,
		item.Subtotal,
		item.Profit,
	).Scan(&item.ID)

	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

// DeleteItems removes all line items belonging to an order.
func (r *orderRepository) DeleteItems(ctx context.Context, orderID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	return nil
}

// FindByID retrieves an order by id.
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order := &domain.Order{}
	err := scanOrder(r.db.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return order, nil
}

// UpdateCustomer replaces the customer fields of an order.
func (r *orderRepository) UpdateCustomer(ctx context.Context, id int64, name, phone string) error {
	query := `UPDATE orders SET customer_name = $2, customer_phone = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, name, phone)
	if err != nil {
		return fmt.Errorf("failed to update order customer: %w", err)
	}
	return requireOrderRow(result)
}

// UpdateTotals replaces the computed totals of an order.
func (r *orderRepository) UpdateTotals(ctx context.Context, id int64, total, final, profit float64) error {
	query := `UPDATE orders SET total_amount = $2, final_amount = $3, total_profit = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, total, final, profit)
	if err != nil {
		return fmt.Errorf("failed to update order totals: %w", err)
	}
	return requireOrderRow(result)
}

// Delete removes an order; its items go with it via the cascade.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return requireOrderRow(result)
}

// List retrieves the newest orders, optionally filtered case-insensitively
// against the order code, customer name or phone.
func (r *orderRepository) List(ctx context.Context, limit int, keyword string) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC LIMIT $1`, orderColumns)
	args := []any{limit}

	if keyword != "" {
		query = fmt.Sprintf(`
			SELECT %s FROM orders
			WHERE order_code ILIKE $2 OR customer_name ILIKE $2 OR customer_phone ILIKE $2
			ORDER BY created_at DESC LIMIT $1`, orderColumns)
		args = append(args, "%"+keyword+"%")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		if err := scanOrder(rows, order); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// ListItems retrieves all line items of an order.
func (r *orderRepository) ListItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, barcode, product_name, quantity, unit_price, cost_price, subtotal, profit
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Barcode,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.CostPrice,
			&item.Subtotal,
			&item.Profit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// MonthlyProfit aggregates completed orders by calendar month, newest month
// first, limited to the given number of periods.
func (r *orderRepository) MonthlyProfit(ctx context.Context, limit int) ([]*domain.MonthlyProfit, error) {
	if limit <= 0 {
		limit = 12
	}

	query := `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
		       COALESCE(SUM(total_profit), 0),
		       COALESCE(SUM(final_amount), 0),
		       COUNT(*)
		FROM orders
		WHERE status = 'COMPLETED'
		GROUP BY to_char(created_at, 'YYYY-MM')
		ORDER BY month DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly profit: %w", err)
	}
	defer rows.Close()

	periods := []*domain.MonthlyProfit{}
	for rows.Next() {
		period := &domain.MonthlyProfit{}
		if err := rows.Scan(&period.Month, &period.TotalProfit, &period.TotalRevenue, &period.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly profit: %w", err)
		}
		periods = append(periods, period)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly profit: %w", err)
	}

	return periods, nil
}

func requireOrderRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row rowScanner, order *domain.Order) error {
	return row.Scan(
		&order.ID,
		&order.Code,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.TotalAmount,
		&order.Discount,
		&order.FinalAmount,
		&order.PaymentMethod,
		&order.Status,
		&order.CreatedBy,
		&order.CreatedAt,
		&order.CompletedAt,
		&order.TotalProfit,
	)
}
