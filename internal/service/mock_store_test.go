package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/repository"
)

// memStore is an in-memory repository.Store for service tests. ExecTx
// snapshots the whole state before running fn and restores it when fn
// fails, mirroring transactional rollback.
type memStore struct {
	mu sync.Mutex

	products      map[string]*domain.Product
	nextProductID int64

	orders      map[int64]*domain.Order
	nextOrderID int64

	items      map[int64][]*domain.OrderItem
	nextItemID int64

	history       []*domain.InventoryHistoryEntry
	nextHistoryID int64

	alerts      []*domain.Alert
	nextAlertID int64
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[string]*domain.Product),
		orders:   make(map[int64]*domain.Order),
		items:    make(map[int64][]*domain.OrderItem),
	}
}

func (m *memStore) Products() repository.ProductRepository { return &memProductRepo{m} }
func (m *memStore) Orders() repository.OrderRepository     { return &memOrderRepo{m} }
func (m *memStore) History() repository.HistoryRepository  { return &memHistoryRepo{m} }
func (m *memStore) Alerts() repository.AlertRepository     { return &memAlertRepo{m} }

func (m *memStore) ExecTx(ctx context.Context, fn func(repository.Store) error) error {
	snapshot := m.clone()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memStore) clone() *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := newMemStore()
	c.nextProductID = m.nextProductID
	c.nextOrderID = m.nextOrderID
	c.nextItemID = m.nextItemID
	c.nextHistoryID = m.nextHistoryID
	c.nextAlertID = m.nextAlertID

	for k, v := range m.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range m.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range m.items {
		items := make([]*domain.OrderItem, len(v))
		for i, item := range v {
			it := *item
			items[i] = &it
		}
		c.items[k] = items
	}
	for _, e := range m.history {
		entry := *e
		c.history = append(c.history, &entry)
	}
	for _, a := range m.alerts {
		alert := *a
		c.alerts = append(c.alerts, &alert)
	}
	return c
}

func (m *memStore) restore(snapshot *memStore) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = snapshot.products
	m.orders = snapshot.orders
	m.items = snapshot.items
	m.history = snapshot.history
	m.alerts = snapshot.alerts
	m.nextProductID = snapshot.nextProductID
	m.nextOrderID = snapshot.nextOrderID
	m.nextItemID = snapshot.nextItemID
	m.nextHistoryID = snapshot.nextHistoryID
	m.nextAlertID = snapshot.nextAlertID
}

// mustProduct fetches a product directly for assertions.
func (m *memStore) mustProduct(barcode string) *domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *m.products[barcode]
	return &p
}

func (m *memStore) historyFor(barcode string) []*domain.InventoryHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*domain.InventoryHistoryEntry
	for _, e := range m.history {
		if e.Barcode == barcode {
			entry := *e
			entries = append(entries, &entry)
		}
	}
	return entries
}

type memProductRepo struct{ m *memStore }

func (r *memProductRepo) Create(ctx context.Context, product *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.products[product.Barcode]; ok {
		return repository.ErrProductExists
	}
	r.m.nextProductID++
	product.ID = r.m.nextProductID
	p := *product
	r.m.products[product.Barcode] = &p
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, product *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.products[product.Barcode]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	p := *product
	r.m.products[product.Barcode] = &p
	return nil
}

func (r *memProductRepo) UpdateQuantity(ctx context.Context, barcode string, quantity int, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	product, ok := r.m.products[barcode]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Quantity = quantity
	product.LastUpdated = at
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, barcode string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.products[barcode]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.m.products, barcode)
	return nil
}

func (r *memProductRepo) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	product, ok := r.m.products[barcode]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p := *product
	return &p, nil
}

func (r *memProductRepo) FindByBarcodeForUpdate(ctx context.Context, barcode string) (*domain.Product, error) {
	return r.FindByBarcode(ctx, barcode)
}

func (r *memProductRepo) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, product := range r.m.products {
		if product.ID == id {
			p := *product
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (r *memProductRepo) ListAll(ctx context.Context) ([]*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	products := make([]*domain.Product, 0, len(r.m.products))
	for _, product := range r.m.products {
		p := *product
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return products, nil
}

func (r *memProductRepo) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var products []*domain.Product
	for _, product := range r.m.products {
		if product.Quantity <= product.MinStock {
			p := *product
			products = append(products, &p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Quantity < products[j].Quantity })
	return products, nil
}

type memOrderRepo struct{ m *memStore }

func (r *memOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.orders {
		if existing.Code == order.Code {
			return repository.ErrOrderExists
		}
	}
	r.m.nextOrderID++
	order.ID = r.m.nextOrderID
	o := *order
	r.m.orders[order.ID] = &o
	return nil
}

func (r *memOrderRepo) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.nextItemID++
	item.ID = r.m.nextItemID
	it := *item
	r.m.items[item.OrderID] = append(r.m.items[item.OrderID], &it)
	return nil
}

func (r *memOrderRepo) DeleteItems(ctx context.Context, orderID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	delete(r.m.items, orderID)
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	order, ok := r.m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o := *order
	return &o, nil
}

func (r *memOrderRepo) UpdateCustomer(ctx context.Context, id int64, name, phone string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	order, ok := r.m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.CustomerName = name
	order.CustomerPhone = phone
	return nil
}

func (r *memOrderRepo) UpdateTotals(ctx context.Context, id int64, total, final, profit float64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	order, ok := r.m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.TotalAmount = total
	order.FinalAmount = final
	order.TotalProfit = profit
	return nil
}

func (r *memOrderRepo) Delete(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(r.m.orders, id)
	return nil
}

func (r *memOrderRepo) List(ctx context.Context, limit int, keyword string) ([]*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var orders []*domain.Order
	for _, order := range r.m.orders {
		if keyword != "" {
			kw := strings.ToLower(keyword)
			if !strings.Contains(strings.ToLower(order.Code), kw) &&
				!strings.Contains(strings.ToLower(order.CustomerName), kw) &&
				!strings.Contains(strings.ToLower(order.CustomerPhone), kw) {
				continue
			}
		}
		o := *order
		orders = append(orders, &o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *memOrderRepo) ListItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	items := make([]*domain.OrderItem, 0, len(r.m.items[orderID]))
	for _, item := range r.m.items[orderID] {
		it := *item
		items = append(items, &it)
	}
	return items, nil
}

func (r *memOrderRepo) MonthlyProfit(ctx context.Context, limit int) ([]*domain.MonthlyProfit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if limit <= 0 {
		limit = 12
	}

	byMonth := make(map[string]*domain.MonthlyProfit)
	for _, order := range r.m.orders {
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		month := order.CreatedAt.Format("2006-01")
		row, ok := byMonth[month]
		if !ok {
			row = &domain.MonthlyProfit{Month: month}
			byMonth[month] = row
		}
		row.TotalProfit += order.TotalProfit
		row.TotalRevenue += order.FinalAmount
		row.OrderCount++
	}

	rows := make([]*domain.MonthlyProfit, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month > rows[j].Month })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type memHistoryRepo struct{ m *memStore }

func (r *memHistoryRepo) Append(ctx context.Context, entry *domain.InventoryHistoryEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.nextHistoryID++
	entry.ID = r.m.nextHistoryID
	e := *entry
	r.m.history = append(r.m.history, &e)
	return nil
}

func (r *memHistoryRepo) List(ctx context.Context, limit int) ([]*domain.InventoryHistoryEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	entries := make([]*domain.InventoryHistoryEntry, 0, len(r.m.history))
	for i := len(r.m.history) - 1; i >= 0 && len(entries) < limit; i-- {
		e := *r.m.history[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

func (r *memHistoryRepo) ListByBarcode(ctx context.Context, barcode string, limit int) ([]*domain.InventoryHistoryEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var entries []*domain.InventoryHistoryEntry
	for i := len(r.m.history) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.m.history[i].Barcode != barcode {
			continue
		}
		e := *r.m.history[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

type memAlertRepo struct{ m *memStore }

func (r *memAlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.nextAlertID++
	alert.ID = r.m.nextAlertID
	a := *alert
	r.m.alerts = append(r.m.alerts, &a)
	return nil
}

func (r *memAlertRepo) HasUnread(ctx context.Context, barcode string, alertType domain.StockLevel) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, alert := range r.m.alerts {
		if alert.Barcode == barcode && alert.Type == alertType && !alert.IsRead {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAlertRepo) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	alerts := make([]*domain.Alert, 0, len(r.m.alerts))
	for i := len(r.m.alerts) - 1; i >= 0 && len(alerts) < limit; i-- {
		a := *r.m.alerts[i]
		alerts = append(alerts, &a)
	}
	return alerts, nil
}

func (r *memAlertRepo) MarkRead(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, alert := range r.m.alerts {
		if alert.ID == id {
			alert.IsRead = true
			return nil
		}
	}
	return repository.ErrAlertNotFound
}
