package service

import (
	"context"
	"fmt"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// AlertService persists stock alerts. It is fed two ways: threshold events
// published by the ledger, and the scheduled sweep that catches products the
// event path missed (e.g. thresholds lowered by an administrative edit).
type AlertService interface {
	Record(ctx context.Context, event StockThresholdEvent) error
	SweepLowStock(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]*domain.Alert, error)
	MarkRead(ctx context.Context, id int64) error
}

type alertService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAlertService creates a new instance of AlertService.
func NewAlertService(store repository.Store, logger *zap.Logger) AlertService {
	return &alertService{store: store, logger: logger}
}

// SubscribeThresholds wires an AlertService to stock.threshold events on the
// bus.
func SubscribeThresholds(bus EventBus.Bus, alerts AlertService, logger *zap.Logger) error {
	return bus.Subscribe(TopicStockThreshold, func(event StockThresholdEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := alerts.Record(ctx, event); err != nil {
			logger.Error("Failed to record stock alert",
				zap.String("barcode", event.Barcode),
				zap.Error(err),
			)
		}
	})
}

// Record persists an alert for a threshold crossing unless an unread alert
// of the same type already exists for the product.
func (s *alertService) Record(ctx context.Context, event StockThresholdEvent) error {
	exists, err := s.store.Alerts().HasUnread(ctx, event.Barcode, event.Level)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alert := &domain.Alert{
		Barcode:   event.Barcode,
		Type:      event.Level,
		Message:   alertMessage(event),
		CreatedAt: time.Now(),
	}
	if err := s.store.Alerts().Create(ctx, alert); err != nil {
		return err
	}

	s.logger.Info("Stock alert recorded",
		zap.String("barcode", event.Barcode),
		zap.String("level", string(event.Level)),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

// SweepLowStock records an alert for every currently low product that has
// no unread alert of the matching type. Returns the number recorded.
func (s *alertService) SweepLowStock(ctx context.Context) (int, error) {
	products, err := s.store.Products().ListLowStock(ctx)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, product := range products {
		level := product.StockLevel()

		exists, err := s.store.Alerts().HasUnread(ctx, product.Barcode, level)
		if err != nil {
			return recorded, err
		}
		if exists {
			continue
		}

		alert := &domain.Alert{
			Barcode: product.Barcode,
			Type:    level,
			Message: alertMessage(StockThresholdEvent{
				Barcode:  product.Barcode,
				Name:     product.Name,
				Quantity: product.Quantity,
				MinStock: product.MinStock,
				Level:    level,
			}),
			CreatedAt: time.Now(),
		}
		if err := s.store.Alerts().Create(ctx, alert); err != nil {
			return recorded, err
		}
		recorded++
	}

	return recorded, nil
}

// List retrieves the newest alerts.
func (s *alertService) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	return s.store.Alerts().List(ctx, limit)
}

// MarkRead flags one alert as read.
func (s *alertService) MarkRead(ctx context.Context, id int64) error {
	return s.store.Alerts().MarkRead(ctx, id)
}

func alertMessage(event StockThresholdEvent) string {
	if event.Level == domain.StockLevelOut {
		return fmt.Sprintf("%s (%s) is out of stock", event.Name, event.Barcode)
	}
	return fmt.Sprintf("%s (%s) is low on stock: %d left, reorder at %d", event.Name, event.Barcode, event.Quantity, event.MinStock)
}
