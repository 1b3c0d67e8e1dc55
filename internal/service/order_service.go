package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// OrderLine is one requested line of a new or edited order. Name and Price
// are fallbacks used only when the barcode has no catalog record.
type OrderLine struct {
	Barcode  string
	Quantity int
	Name     string
	Price    float64
}

// CreateOrderParams carries everything needed to create an order.
type CreateOrderParams struct {
	Lines         []OrderLine
	CustomerName  string
	CustomerPhone string
	Discount      float64
	PaymentMethod string
	Actor         string
}

// EditOrderParams carries a wholesale replacement of an order's customer
// fields and line items.
type EditOrderParams struct {
	OrderID       int64
	CustomerName  string
	CustomerPhone string
	Lines         []OrderLine
	Actor         string
}

// OrderSummary is the result of a create or edit: the persisted order plus
// its line items.
type OrderSummary struct {
	Order *domain.Order       `json:"order"`
	Items []*domain.OrderItem `json:"items"`
}

// OrderService composes the catalog and the stock ledger into atomic order
// operations. Every mutation runs as one transaction: the order record, its
// items, each line's stock adjustment and each audit entry become visible
// together or not at all.
type OrderService interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*OrderSummary, error)
	CancelOrder(ctx context.Context, orderID int64, actor string) error
	EditOrder(ctx context.Context, params EditOrderParams) (*OrderSummary, error)
	DeleteOrder(ctx context.Context, orderID int64, actor string) error
	GetOrderDetails(ctx context.Context, orderID int64) ([]*domain.OrderItem, error)
	ListOrders(ctx context.Context, limit int, keyword string) ([]*domain.Order, error)
}

type orderService struct {
	store  repository.Store
	bus    EventBus.Bus
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(store repository.Store, bus EventBus.Bus, logger *zap.Logger) OrderService {
	return &orderService{store: store, bus: bus, logger: logger}
}

// CreateOrder creates a COMPLETED order with all its items, then applies a
// clamped SALE decrement per line. Lines whose barcode is unknown fall back
// to the caller-supplied name and price with zero cost and are sold without
// touching the ledger.
func (s *orderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*OrderSummary, error) {
	if len(params.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range params.Lines {
		if line.Quantity <= 0 {
			return nil, ErrNonPositiveQuantity
		}
	}

	actor := params.Actor
	if actor == "" {
		actor = "system"
	}
	paymentMethod := params.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "CASH"
	}

	now := time.Now()
	order := &domain.Order{
		Code:          generateOrderCode(now),
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		Discount:      params.Discount,
		PaymentMethod: paymentMethod,
		Status:        domain.OrderStatusCompleted,
		CreatedBy:     actor,
		CreatedAt:     now,
		CompletedAt:   &now,
	}

	var items []*domain.OrderItem
	var adjusted []*domain.Product

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		items = items[:0]
		adjusted = adjusted[:0]

		type resolvedLine struct {
			line    OrderLine
			tracked bool
		}

		var totalAmount, totalProfit float64
		resolved := make([]resolvedLine, 0, len(params.Lines))

		for _, line := range params.Lines {
			name := line.Name
			price := line.Price
			cost := 0.0
			tracked := false

			product, err := tx.Products().FindByBarcodeForUpdate(ctx, line.Barcode)
			switch {
			case err == nil:
				name = product.Name
				price = product.Price
				cost = product.CostPrice
				tracked = true
			case errors.Is(err, repository.ErrProductNotFound):
				// No catalog record: sell with the caller-supplied name and
				// price, zero cost, and no ledger movement.
				if name == "" {
					name = placeholderName(line.Barcode)
				}
			default:
				return err
			}

			subtotal := price * float64(line.Quantity)
			profit := (price - cost) * float64(line.Quantity)
			totalAmount += subtotal
			totalProfit += profit

			items = append(items, &domain.OrderItem{
				Barcode:     line.Barcode,
				ProductName: name,
				Quantity:    line.Quantity,
				UnitPrice:   price,
				CostPrice:   cost,
				Subtotal:    subtotal,
				Profit:      profit,
			})
			resolved = append(resolved, resolvedLine{line: line, tracked: tracked})
		}

		order.TotalAmount = totalAmount
		order.TotalProfit = totalProfit
		order.FinalAmount = totalAmount - params.Discount

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		for _, item := range items {
			item.OrderID = order.ID
			if err := tx.Orders().CreateItem(ctx, item); err != nil {
				return err
			}
		}

		for _, rl := range resolved {
			if !rl.tracked {
				continue
			}
			note := fmt.Sprintf("order %s", order.Code)
			product, err := applyStockAdjustment(ctx, tx, rl.line.Barcode, -rl.line.Quantity, domain.ActionSale, note, actor, true)
			if err != nil {
				return err
			}
			adjusted = append(adjusted, product)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, product := range adjusted {
		publishThreshold(s.bus, product)
	}

	s.logger.Info("Order created",
		zap.String("order_code", order.Code),
		zap.Float64("total", order.TotalAmount),
		zap.Float64("profit", order.TotalProfit),
		zap.Int("lines", len(items)),
	)

	return &OrderSummary{Order: order, Items: items}, nil
}

// CancelOrder reverses the order's effect on stock by re-importing every
// line's full originally-sold quantity. The order record keeps its
// COMPLETED status; the reversal is visible in the ledger history. Lines
// whose product has since been deleted are skipped with a warning.
func (s *orderService) CancelOrder(ctx context.Context, orderID int64, actor string) error {
	return s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		items, err := tx.Orders().ListItems(ctx, orderID)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("reversal of %s", order.Code)
		return s.restoreItems(ctx, tx, items, note, actor)
	})
}

// EditOrder fully reverses the order's stock effect, replaces the customer
// fields and line items, re-prices each kept line from the catalog at edit
// time and re-deducts stock with the hard-failing export. An insufficient
// line aborts the whole edit.
func (s *orderService) EditOrder(ctx context.Context, params EditOrderParams) (*OrderSummary, error) {
	if len(params.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range params.Lines {
		if line.Quantity <= 0 {
			return nil, ErrNonPositiveQuantity
		}
	}

	actor := params.Actor
	if actor == "" {
		actor = "admin"
	}

	var order *domain.Order
	var items []*domain.OrderItem

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		items = items[:0]

		var err error
		order, err = tx.Orders().FindByID(ctx, params.OrderID)
		if err != nil {
			return err
		}

		oldItems, err := tx.Orders().ListItems(ctx, params.OrderID)
		if err != nil {
			return err
		}
		restoreNote := fmt.Sprintf("reversal for edit of %s", order.Code)
		if err := s.restoreItems(ctx, tx, oldItems, restoreNote, actor); err != nil {
			return err
		}

		if err := tx.Orders().UpdateCustomer(ctx, params.OrderID, params.CustomerName, params.CustomerPhone); err != nil {
			return err
		}
		if err := tx.Orders().DeleteItems(ctx, params.OrderID); err != nil {
			return err
		}

		var totalAmount, totalProfit float64
		for _, line := range params.Lines {
			product, err := tx.Products().FindByBarcodeForUpdate(ctx, line.Barcode)
			if errors.Is(err, repository.ErrProductNotFound) {
				s.logger.Warn("Skipping unknown barcode during order edit",
					zap.String("order_code", order.Code),
					zap.String("barcode", line.Barcode),
				)
				continue
			}
			if err != nil {
				return err
			}

			subtotal := product.Price * float64(line.Quantity)
			profit := (product.Price - product.CostPrice) * float64(line.Quantity)
			totalAmount += subtotal
			totalProfit += profit

			item := &domain.OrderItem{
				OrderID:     params.OrderID,
				Barcode:     line.Barcode,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				CostPrice:   product.CostPrice,
				Subtotal:    subtotal,
				Profit:      profit,
			}
			if err := tx.Orders().CreateItem(ctx, item); err != nil {
				return err
			}
			items = append(items, item)

			exportNote := fmt.Sprintf("re-issued for edit of %s", order.Code)
			if _, err := applyStockAdjustment(ctx, tx, line.Barcode, -line.Quantity, domain.ActionExport, exportNote, actor, false); err != nil {
				return fmt.Errorf("line %s: %w", line.Barcode, err)
			}
		}

		order.CustomerName = params.CustomerName
		order.CustomerPhone = params.CustomerPhone
		order.TotalAmount = totalAmount
		order.FinalAmount = totalAmount - order.Discount
		order.TotalProfit = totalProfit

		return tx.Orders().UpdateTotals(ctx, params.OrderID, order.TotalAmount, order.FinalAmount, order.TotalProfit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order edited",
		zap.String("order_code", order.Code),
		zap.Float64("total", order.TotalAmount),
		zap.Int("lines", len(items)),
	)

	return &OrderSummary{Order: order, Items: items}, nil
}

// DeleteOrder reverses the order's stock effect exactly as cancellation
// does, then removes the order and its items permanently.
func (s *orderService) DeleteOrder(ctx context.Context, orderID int64, actor string) error {
	return s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		items, err := tx.Orders().ListItems(ctx, orderID)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("reversal of deleted %s", order.Code)
		if err := s.restoreItems(ctx, tx, items, note, actor); err != nil {
			return err
		}

		if err := tx.Orders().DeleteItems(ctx, orderID); err != nil {
			return err
		}
		return tx.Orders().Delete(ctx, orderID)
	})
}

// GetOrderDetails retrieves the line-item snapshots of an order.
func (s *orderService) GetOrderDetails(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	if _, err := s.store.Orders().FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Orders().ListItems(ctx, orderID)
}

// ListOrders retrieves the newest orders, optionally filtered by keyword.
func (s *orderService) ListOrders(ctx context.Context, limit int, keyword string) ([]*domain.Order, error) {
	return s.store.Orders().List(ctx, limit, keyword)
}

// restoreItems re-imports every item's full quantity. Import never fails on
// capacity; a product deleted since the sale is skipped with a warning so
// the reversal of the remaining lines still goes through.
func (s *orderService) restoreItems(ctx context.Context, tx repository.Store, items []*domain.OrderItem, note, actor string) error {
	for _, item := range items {
		_, err := applyStockAdjustment(ctx, tx, item.Barcode, item.Quantity, domain.ActionImport, note, actor, false)
		if errors.Is(err, repository.ErrProductNotFound) {
			s.logger.Warn("Skipping stock restore for deleted product",
				zap.String("barcode", item.Barcode),
				zap.Int("quantity", item.Quantity),
			)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	orderCodeMu  sync.Mutex
	lastOrderSeq uint64
)

// generateOrderCode derives a human-readable order code from the creation
// timestamp, second resolution plus a millisecond suffix. Codes issued by
// one process are strictly increasing, so orders created within the same
// millisecond still get distinct codes; the unique constraint on order_code
// backs this up across processes.
func generateOrderCode(now time.Time) string {
	stamp, _ := strconv.ParseUint(now.Format("20060102150405"), 10, 64)
	seq := stamp*1000 + uint64(now.Nanosecond()/int(time.Millisecond))

	orderCodeMu.Lock()
	defer orderCodeMu.Unlock()
	if seq <= lastOrderSeq {
		seq = lastOrderSeq + 1
	}
	lastOrderSeq = seq
	return fmt.Sprintf("ORD%d", seq)
}
