package domain

import "time"

// OrderStatus is the persisted lifecycle state of an order. Orders are
// written as COMPLETED in the same transaction that creates them; there is
// no intermediate persisted state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// Order is a recorded sale. TotalAmount is the sum of its items' subtotals
// and TotalProfit the sum of their line profits; FinalAmount is
// TotalAmount minus Discount, stored as computed.
type Order struct {
	ID            int64       `json:"id" db:"id"`
	Code          string      `json:"order_code" db:"order_code"`
	CustomerName  string      `json:"customer_name" db:"customer_name"`
	CustomerPhone string      `json:"customer_phone" db:"customer_phone"`
	TotalAmount   float64     `json:"total_amount" db:"total_amount"`
	Discount      float64     `json:"discount" db:"discount"`
	FinalAmount   float64     `json:"final_amount" db:"final_amount"`
	PaymentMethod string      `json:"payment_method" db:"payment_method"`
	Status        OrderStatus `json:"status" db:"status"`
	CreatedBy     string      `json:"created_by" db:"created_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	TotalProfit   float64     `json:"total_profit" db:"total_profit"`
}

// OrderItem is one line of an order. Name, price and cost are denormalized
// snapshots taken at sale time so historical orders do not change when the
// product is later edited or deleted.
type OrderItem struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"order_id" db:"order_id"`
	Barcode     string  `json:"barcode" db:"barcode"`
	ProductName string  `json:"product_name" db:"product_name"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
	CostPrice   float64 `json:"cost_price" db:"cost_price"`
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
	Profit      float64 `json:"profit" db:"profit"`
}

// MonthlyProfit aggregates completed orders for one calendar month.
type MonthlyProfit struct {
	Month        string  `json:"month"`
	TotalProfit  float64 `json:"total_profit"`
	TotalRevenue float64 `json:"total_revenue"`
	OrderCount   int     `json:"order_count"`
}

// Margin returns the profit margin as a percentage of revenue, or 0 when
// there is no revenue to divide by.
func (m *MonthlyProfit) Margin() float64 {
	if m.TotalRevenue == 0 {
		return 0
	}
	return m.TotalProfit / m.TotalRevenue * 100
}
