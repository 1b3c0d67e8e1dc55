package service

import "scanpos/internal/domain"

// TopicStockThreshold is published on the event bus after a committed ledger
// adjustment leaves a product at or below its reorder threshold.
const TopicStockThreshold = "stock.threshold"

// StockThresholdEvent describes a product that crossed its reorder threshold.
type StockThresholdEvent struct {
	Barcode  string
	Name     string
	Quantity int
	MinStock int
	Level    domain.StockLevel
}
