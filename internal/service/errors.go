package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateBarcode    = errors.New("a product with this barcode already exists")
	ErrEmptyCart           = errors.New("order must contain at least one item")
	ErrEmptyOrder          = errors.New("an edited order must keep at least one item")
	ErrNonPositiveQuantity = errors.New("quantity must be greater than zero")
)

// InsufficientStockError is returned by hard-failing ledger adjustments when
// the requested decrement would take the tracked quantity below zero. It
// carries the currently available quantity for user-facing messages.
type InsufficientStockError struct {
	Barcode   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.Barcode, e.Available, e.Requested)
}
