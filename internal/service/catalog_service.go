package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"

	"go.uber.org/zap"
)

const (
	// Defaults applied to auto-provisioned placeholder products.
	autoProvisionCategory = "Uncategorized"
	autoProvisionMinStock = 5
)

// AddProductParams carries the fields for an explicit product creation.
type AddProductParams struct {
	Barcode     string
	Name        string
	Category    string
	Quantity    int
	MinStock    int
	Price       float64
	CostPrice   float64
	Supplier    string
	Description string
}

// UpdateProductParams carries the fields for the administrative override.
// Setting Quantity here bypasses the ledger and leaves no audit entry; it
// exists for corrections, not day-to-day stock movement.
type UpdateProductParams struct {
	Barcode   string
	Name      string
	Category  string
	Quantity  int
	MinStock  int
	Price     float64
	CostPrice float64
	Supplier  string
}

// CatalogService owns product records and is the source of truth for
// whether a barcode corresponds to a known product.
type CatalogService interface {
	FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Add(ctx context.Context, params AddProductParams) (*domain.Product, error)
	AutoProvision(ctx context.Context, barcode, fallbackName string, fallbackPrice float64) (*domain.Product, error)
	Update(ctx context.Context, params UpdateProductParams) (*domain.Product, error)
	Delete(ctx context.Context, barcode string) error
	ListAll(ctx context.Context) ([]*domain.Product, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)
}

type catalogService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(store repository.Store, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, logger: logger}
}

// FindByBarcode retrieves a product by barcode.
func (s *catalogService) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.store.Products().FindByBarcode(ctx, barcode)
}

// FindByID retrieves a product by surrogate id.
func (s *catalogService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

// Add creates a product and its ADD_NEW audit entry in one transaction.
// Fails with ErrDuplicateBarcode if the barcode is already taken.
func (s *catalogService) Add(ctx context.Context, params AddProductParams) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		Barcode:     params.Barcode,
		Name:        params.Name,
		Category:    params.Category,
		Quantity:    params.Quantity,
		MinStock:    params.MinStock,
		Price:       params.Price,
		CostPrice:   params.CostPrice,
		Supplier:    params.Supplier,
		Description: params.Description,
		LastUpdated: now,
		CreatedAt:   now,
	}

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, product); err != nil {
			if errors.Is(err, repository.ErrProductExists) {
				return ErrDuplicateBarcode
			}
			return err
		}

		entry := &domain.InventoryHistoryEntry{
			Barcode:     product.Barcode,
			ProductName: product.Name,
			Action:      domain.ActionAddNew,
			Quantity:    product.Quantity,
			Note:        "new product created",
			Actor:       "system",
			CreatedAt:   now,
		}
		return tx.History().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product added",
		zap.String("barcode", product.Barcode),
		zap.String("name", product.Name),
		zap.Int("quantity", product.Quantity),
	)
	return product, nil
}

// AutoProvision creates a placeholder product for an unrecognized barcode:
// zero stock, default reorder threshold, generated name when none is given.
// It never fails on a duplicate; if the barcode was created concurrently by
// another path, the existing record is returned instead.
func (s *catalogService) AutoProvision(ctx context.Context, barcode, fallbackName string, fallbackPrice float64) (*domain.Product, error) {
	name := fallbackName
	if name == "" {
		name = placeholderName(barcode)
	}

	product, err := s.Add(ctx, AddProductParams{
		Barcode:     barcode,
		Name:        name,
		Category:    autoProvisionCategory,
		Quantity:    0,
		MinStock:    autoProvisionMinStock,
		Price:       fallbackPrice,
		CostPrice:   0,
		Description: "auto-created on first scan",
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateBarcode) {
			return s.store.Products().FindByBarcode(ctx, barcode)
		}
		return nil, err
	}
	return product, nil
}

// Update replaces the editable fields of a product wholesale, including a
// direct quantity set. This is the administrative override path; it does
// not append an audit entry and must not be used for routine stock movement.
func (s *catalogService) Update(ctx context.Context, params UpdateProductParams) (*domain.Product, error) {
	product := &domain.Product{
		Barcode:     params.Barcode,
		Name:        params.Name,
		Category:    params.Category,
		Quantity:    params.Quantity,
		MinStock:    params.MinStock,
		Price:       params.Price,
		CostPrice:   params.CostPrice,
		Supplier:    params.Supplier,
		LastUpdated: time.Now(),
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated (administrative override)",
		zap.String("barcode", params.Barcode),
		zap.Int("quantity", params.Quantity),
	)
	return s.store.Products().FindByBarcode(ctx, params.Barcode)
}

// Delete removes a product and appends a DELETE audit entry with a zero
// delta in the same transaction. Historical orders keep their snapshots.
func (s *catalogService) Delete(ctx context.Context, barcode string) error {
	return s.store.ExecTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByBarcode(ctx, barcode)
		if err != nil {
			return err
		}

		if err := tx.Products().Delete(ctx, barcode); err != nil {
			return err
		}

		entry := &domain.InventoryHistoryEntry{
			Barcode:     barcode,
			ProductName: product.Name,
			Action:      domain.ActionDelete,
			Quantity:    0,
			Note:        "product removed",
			Actor:       "system",
			CreatedAt:   time.Now(),
		}
		return tx.History().Append(ctx, entry)
	})
}

// ListAll retrieves every product, newest first.
func (s *catalogService) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return s.store.Products().ListAll(ctx)
}

// ListLowStock retrieves products at or below their reorder threshold.
func (s *catalogService) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.store.Products().ListLowStock(ctx)
}

// placeholderName builds the generated name used for auto-provisioned
// products.
func placeholderName(barcode string) string {
	prefix := barcode
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("SP_%s", prefix)
}
