package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scanpos/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product with this barcode already exists")
)

const pgUniqueViolation = "23505"

// ProductRepository defines the interface for product data access.
// Quantity changes go through UpdateQuantity; Update replaces the editable
// fields wholesale and is reserved for the administrative override path.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	UpdateQuantity(ctx context.Context, barcode string, quantity int, at time.Time) error
	Delete(ctx context.Context, barcode string) error
	FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	FindByBarcodeForUpdate(ctx context.Context, barcode string) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, barcode, name, category, quantity, min_stock, price, cost_price, supplier, description, last_updated, created_at`

// Create inserts a new product and fills in its generated id.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (barcode, name, category, quantity, min_stock, price, cost_price, supplier, description, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Barcode,
		product.Name,
		product.Category,
		product.Quantity,
		product.MinStock,
		product.Price,
		product.CostPrice,
		product.Supplier,
		product.Description,
		product.LastUpdated,
		product.CreatedAt,
	).Scan(&product.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrProductExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces all editable fields of a product identified by barcode.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, category = $3, quantity = $4, min_stock = $5,
		    price = $6, cost_price = $7, supplier = $8, last_updated = $9
		WHERE barcode = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Barcode,
		product.Name,
		product.Category,
		product.Quantity,
		product.MinStock,
		product.Price,
		product.CostPrice,
		product.Supplier,
		product.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateQuantity sets the tracked quantity and the last-updated timestamp.
// Callers are expected to hold the product's row lock (FindByBarcodeForUpdate)
// for the duration of the check-then-set.
func (r *productRepository) UpdateQuantity(ctx context.Context, barcode string, quantity int, at time.Time) error {
	query := `UPDATE products SET quantity = $2, last_updated = $3 WHERE barcode = $1`

	result, err := r.db.ExecContext(ctx, query, barcode, quantity, at)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product row. Order items keep their denormalized
// snapshots, so order history is unaffected.
func (r *productRepository) Delete(ctx context.Context, barcode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE barcode = $1`, barcode)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByBarcode retrieves a product by its barcode.
func (r *productRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE barcode = $1`, productColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, barcode))
}

// FindByBarcodeForUpdate retrieves a product and takes its row lock, giving
// the calling transaction exclusive write scope over the quantity.
func (r *productRepository) FindByBarcodeForUpdate(ctx context.Context, barcode string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE barcode = $1 FOR UPDATE`, productColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, barcode))
}

// FindByID retrieves a product by its surrogate id.
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListAll retrieves every product, newest first.
func (r *productRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC`, productColumns)
	return r.list(ctx, query)
}

// ListLowStock retrieves products at or below their reorder threshold,
// lowest quantity first.
func (r *productRepository) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE quantity <= min_stock ORDER BY quantity ASC`, productColumns)
	return r.list(ctx, query)
}

func (r *productRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *productRepository) scanOne(row *sql.Row) (*domain.Product, error) {
	product := &domain.Product{}
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.Barcode,
		&product.Name,
		&product.Category,
		&product.Quantity,
		&product.MinStock,
		&product.Price,
		&product.CostPrice,
		&product.Supplier,
		&product.Description,
		&product.LastUpdated,
		&product.CreatedAt,
	)
}
