package service

import (
	"context"

	"scanpos/internal/domain"
	"scanpos/internal/repository"
)

// StockAlertView classifies one low product for the alerting view.
type StockAlertView struct {
	Product *domain.Product   `json:"product"`
	Level   domain.StockLevel `json:"level"`
}

// ReportService provides the read-only projections over catalog and order
// state. It holds no state of its own.
type ReportService interface {
	LowStock(ctx context.Context) ([]StockAlertView, error)
	MonthlyProfit(ctx context.Context) ([]*domain.MonthlyProfit, error)
	InventoryHistory(ctx context.Context, limit int) ([]*domain.InventoryHistoryEntry, error)
}

type reportService struct {
	store repository.Store
}

// NewReportService creates a new instance of ReportService.
func NewReportService(store repository.Store) ReportService {
	return &reportService{store: store}
}

// LowStock lists products at or below their reorder threshold, classified
// as out of stock or low, lowest quantity first.
func (s *reportService) LowStock(ctx context.Context) ([]StockAlertView, error) {
	products, err := s.store.Products().ListLowStock(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]StockAlertView, 0, len(products))
	for _, product := range products {
		views = append(views, StockAlertView{
			Product: product,
			Level:   product.StockLevel(),
		})
	}
	return views, nil
}

// MonthlyProfit aggregates completed orders by calendar month over the most
// recent 12 periods.
func (s *reportService) MonthlyProfit(ctx context.Context) ([]*domain.MonthlyProfit, error) {
	return s.store.Orders().MonthlyProfit(ctx, 12)
}

// InventoryHistory lists the newest stock-movement audit entries.
func (s *reportService) InventoryHistory(ctx context.Context, limit int) ([]*domain.InventoryHistoryEntry, error) {
	return s.store.History().List(ctx, limit)
}
