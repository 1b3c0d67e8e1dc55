package service

import (
	"context"
	"testing"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedProduct(t *testing.T, store *memStore, barcode string, qty, minStock int, price, cost float64) {
	t.Helper()
	now := time.Now()
	err := store.Products().Create(context.Background(), &domain.Product{
		Barcode:     barcode,
		Name:        "Product " + barcode,
		Category:    "Drinks",
		Quantity:    qty,
		MinStock:    minStock,
		Price:       price,
		CostPrice:   cost,
		LastUpdated: now,
		CreatedAt:   now,
	})
	require.NoError(t, err)
}

func TestImportStockIncrementsAndRecordsHistory(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 10, 5, 100, 60)
	ledger := NewLedgerService(store, nil, zap.NewNop())

	product, err := ledger.ImportStock(context.Background(), "P1", 7, "restock", "admin")
	require.NoError(t, err)
	assert.Equal(t, 17, product.Quantity)

	entries := store.historyFor("P1")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionImport, entries[0].Action)
	assert.Equal(t, 7, entries[0].Quantity)
	assert.Equal(t, "restock", entries[0].Note)
	assert.Equal(t, "admin", entries[0].Actor)
}

func TestExportStockDecrements(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 10, 5, 100, 60)
	ledger := NewLedgerService(store, nil, zap.NewNop())

	product, err := ledger.ExportStock(context.Background(), "P1", 4, "damaged", "admin")
	require.NoError(t, err)
	assert.Equal(t, 6, product.Quantity)

	entries := store.historyFor("P1")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionExport, entries[0].Action)
	assert.Equal(t, -4, entries[0].Quantity)
}

func TestExportStockFailsOnInsufficientStock(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 7, 5, 100, 60)
	ledger := NewLedgerService(store, nil, zap.NewNop())

	_, err := ledger.ExportStock(context.Background(), "P1", 9999, "", "admin")

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "P1", insufficient.Barcode)
	assert.Equal(t, 7, insufficient.Available)
	assert.Equal(t, 9999, insufficient.Requested)

	// Nothing changed, nothing logged.
	assert.Equal(t, 7, store.mustProduct("P1").Quantity)
	assert.Empty(t, store.historyFor("P1"))
}

func TestLedgerRejectsNonPositiveQuantities(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 10, 5, 100, 60)
	ledger := NewLedgerService(store, nil, zap.NewNop())

	_, err := ledger.ImportStock(context.Background(), "P1", 0, "", "")
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = ledger.ExportStock(context.Background(), "P1", -3, "", "")
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)
}

func TestLedgerUnknownBarcode(t *testing.T) {
	store := newMemStore()
	ledger := NewLedgerService(store, nil, zap.NewNop())

	_, err := ledger.ImportStock(context.Background(), "NOPE", 5, "", "")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestLedgerPublishesThresholdEvent(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 6, 5, 100, 60)
	bus := EventBus.New()
	ledger := NewLedgerService(store, bus, zap.NewNop())

	var events []StockThresholdEvent
	require.NoError(t, bus.Subscribe(TopicStockThreshold, func(e StockThresholdEvent) {
		events = append(events, e)
	}))

	// 6 -> 4 crosses the reorder threshold of 5.
	_, err := ledger.ExportStock(context.Background(), "P1", 2, "", "admin")
	require.NoError(t, err)

	bus.WaitAsync()
	require.Len(t, events, 1)
	assert.Equal(t, "P1", events[0].Barcode)
	assert.Equal(t, 4, events[0].Quantity)
	assert.Equal(t, domain.StockLevelLow, events[0].Level)
}

func TestLedgerNoEventWhileStockHealthy(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 100, 5, 100, 60)
	bus := EventBus.New()
	ledger := NewLedgerService(store, bus, zap.NewNop())

	fired := false
	require.NoError(t, bus.Subscribe(TopicStockThreshold, func(e StockThresholdEvent) {
		fired = true
	}))

	_, err := ledger.ExportStock(context.Background(), "P1", 10, "", "admin")
	require.NoError(t, err)

	bus.WaitAsync()
	assert.False(t, fired)
}

func TestLedgerOutOfStockEvent(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "P1", 3, 5, 100, 60)
	bus := EventBus.New()
	ledger := NewLedgerService(store, bus, zap.NewNop())

	var events []StockThresholdEvent
	require.NoError(t, bus.Subscribe(TopicStockThreshold, func(e StockThresholdEvent) {
		events = append(events, e)
	}))

	_, err := ledger.ExportStock(context.Background(), "P1", 3, "", "admin")
	require.NoError(t, err)

	bus.WaitAsync()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StockLevelOut, events[0].Level)
	assert.Equal(t, 0, events[0].Quantity)
}
