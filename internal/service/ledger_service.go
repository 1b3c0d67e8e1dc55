package service

import (
	"context"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// LedgerService is the only surface through which tracked quantities change.
// Every adjustment is one transaction pairing the quantity update with its
// audit entry. Import and export hard-fail on insufficient stock; sale
// decrements inside the order engine use the clamped variant instead. That
// asymmetry is a business rule, not an oversight.
type LedgerService interface {
	Adjust(ctx context.Context, barcode string, delta int, action domain.HistoryAction, note, actor string) (*domain.Product, error)
	ImportStock(ctx context.Context, barcode string, qty int, note, actor string) (*domain.Product, error)
	ExportStock(ctx context.Context, barcode string, qty int, note, actor string) (*domain.Product, error)
}

// StockMovementFunc matches the signature shared by ImportStock and ExportStock.
type StockMovementFunc func(ctx context.Context, barcode string, qty int, note, actor string) (*domain.Product, error)

type ledgerService struct {
	store  repository.Store
	bus    EventBus.Bus
	logger *zap.Logger
}

// NewLedgerService creates a new instance of LedgerService. The bus may be
// nil, in which case threshold crossings are not broadcast.
func NewLedgerService(store repository.Store, bus EventBus.Bus, logger *zap.Logger) LedgerService {
	return &ledgerService{store: store, bus: bus, logger: logger}
}

// Adjust applies a signed quantity delta atomically: look up the product,
// verify the result stays non-negative, persist the new quantity and append
// the matching audit entry.
func (s *ledgerService) Adjust(ctx context.Context, barcode string, delta int, action domain.HistoryAction, note, actor string) (*domain.Product, error) {
	var product *domain.Product

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		var err error
		product, err = applyStockAdjustment(ctx, tx, barcode, delta, action, note, actor, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishThreshold(s.bus, product)
	return product, nil
}

// ImportStock adds qty units to stock. qty must be positive.
func (s *ledgerService) ImportStock(ctx context.Context, barcode string, qty int, note, actor string) (*domain.Product, error) {
	if qty <= 0 {
		return nil, ErrNonPositiveQuantity
	}
	return s.Adjust(ctx, barcode, qty, domain.ActionImport, note, actor)
}

// ExportStock removes qty units from stock, failing with
// InsufficientStockError when not enough is tracked. qty must be positive.
func (s *ledgerService) ExportStock(ctx context.Context, barcode string, qty int, note, actor string) (*domain.Product, error) {
	if qty <= 0 {
		return nil, ErrNonPositiveQuantity
	}
	return s.Adjust(ctx, barcode, -qty, domain.ActionExport, note, actor)
}

// applyStockAdjustment performs one ledger mutation inside the caller's
// transaction: row-locked read, non-negative check, quantity update, audit
// entry. With clamp set, a decrement larger than the tracked quantity is
// reduced to drain stock to zero instead of failing; the audit entry then
// records the delta that was actually applied.
func applyStockAdjustment(ctx context.Context, tx repository.Store, barcode string, delta int, action domain.HistoryAction, note, actor string, clamp bool) (*domain.Product, error) {
	product, err := tx.Products().FindByBarcodeForUpdate(ctx, barcode)
	if err != nil {
		return nil, err
	}

	applied := delta
	newQty := product.Quantity + delta
	if newQty < 0 {
		if !clamp {
			return nil, &InsufficientStockError{
				Barcode:   barcode,
				Available: product.Quantity,
				Requested: -delta,
			}
		}
		applied = -product.Quantity
		newQty = 0
	}

	now := time.Now()
	if err := tx.Products().UpdateQuantity(ctx, barcode, newQty, now); err != nil {
		return nil, err
	}

	entry := &domain.InventoryHistoryEntry{
		Barcode:     barcode,
		ProductName: product.Name,
		Action:      action,
		Quantity:    applied,
		Note:        note,
		Actor:       actor,
		CreatedAt:   now,
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return nil, err
	}

	product.Quantity = newQty
	product.LastUpdated = now
	return product, nil
}

// publishThreshold broadcasts a stock.threshold event when the product sits
// at or below its reorder threshold. Called only after the owning
// transaction has committed.
func publishThreshold(bus EventBus.Bus, product *domain.Product) {
	if bus == nil || product == nil {
		return
	}
	level := product.StockLevel()
	if level == domain.StockLevelOK {
		return
	}
	bus.Publish(TopicStockThreshold, StockThresholdEvent{
		Barcode:  product.Barcode,
		Name:     product.Name,
		Quantity: product.Quantity,
		MinStock: product.MinStock,
		Level:    level,
	})
}
