package domain

import "time"

// HistoryAction identifies the kind of stock movement recorded in the audit trail.
type HistoryAction string

const (
	ActionAddNew HistoryAction = "ADD_NEW"
	ActionImport HistoryAction = "IMPORT"
	ActionExport HistoryAction = "EXPORT"
	ActionSale   HistoryAction = "SALE"
	ActionDelete HistoryAction = "DELETE"
)

// StockLevel classifies a product's current quantity against its reorder threshold.
type StockLevel string

const (
	StockLevelOut StockLevel = "OUT_OF_STOCK"
	StockLevelLow StockLevel = "LOW_STOCK"
	StockLevelOK  StockLevel = "IN_STOCK"
)

// Product is a catalog entry identified by its barcode. The barcode and the
// surrogate id are immutable after creation; quantity changes only flow
// through the stock ledger, except for the explicit administrative override.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Barcode     string    `json:"barcode" db:"barcode"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	Quantity    int       `json:"quantity" db:"quantity"`
	MinStock    int       `json:"min_stock" db:"min_stock"`
	Price       float64   `json:"price" db:"price"`
	CostPrice   float64   `json:"cost_price" db:"cost_price"`
	Supplier    string    `json:"supplier" db:"supplier"`
	Description string    `json:"description" db:"description"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StockLevel classifies the product as out of stock, below its reorder
// threshold, or healthy.
func (p *Product) StockLevel() StockLevel {
	switch {
	case p.Quantity == 0:
		return StockLevelOut
	case p.Quantity <= p.MinStock:
		return StockLevelLow
	default:
		return StockLevelOK
	}
}

// InventoryHistoryEntry is an immutable audit record, appended exactly once
// per ledger mutation. Quantity carries the signed delta that was applied.
type InventoryHistoryEntry struct {
	ID          int64         `json:"id" db:"id"`
	Barcode     string        `json:"barcode" db:"barcode"`
	ProductName string        `json:"product_name" db:"product_name"`
	Action      HistoryAction `json:"action" db:"action"`
	Quantity    int           `json:"quantity" db:"quantity"`
	Note        string        `json:"note" db:"note"`
	Actor       string        `json:"actor" db:"actor"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// Alert is a persisted low-stock or out-of-stock notification for a product.
type Alert struct {
	ID        int64      `json:"id" db:"id"`
	Barcode   string     `json:"barcode" db:"barcode"`
	Type      StockLevel `json:"alert_type" db:"alert_type"`
	Message   string     `json:"message" db:"message"`
	IsRead    bool       `json:"is_read" db:"is_read"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
