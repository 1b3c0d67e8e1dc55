package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"scanpos/internal/middleware"
	"scanpos/internal/repository"
	"scanpos/internal/service"
)

// OrderHandler exposes the order engine over HTTP.
type OrderHandler struct {
	orders  service.OrderService
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders service.OrderService, catalog service.CatalogService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers order routes on the router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}/items", h.GetOrderItems)
		r.Put("/{id}", h.EditOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})
}

type orderLineRequest struct {
	Barcode  string  `json:"barcode" validate:"required,min=1,max=64"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"max=255"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type createOrderRequest struct {
	Items         []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName  string             `json:"customer_name" validate:"max=255"`
	CustomerPhone string             `json:"customer_phone" validate:"max=50"`
	Discount      float64            `json:"discount" validate:"gte=0"`
	PaymentMethod string             `json:"payment_method" validate:"max=50"`
	Actor         string             `json:"actor" validate:"max=100"`
}

type editOrderRequest struct {
	Items         []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName  string             `json:"customer_name" validate:"max=255"`
	CustomerPhone string             `json:"customer_phone" validate:"max=50"`
	Actor         string             `json:"actor" validate:"max=100"`
}

type cancelOrderRequest struct {
	Actor string `json:"actor" validate:"max=100"`
}

func toOrderLines(items []orderLineRequest) []service.OrderLine {
	lines := make([]service.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, service.OrderLine{
			Barcode:  item.Barcode,
			Quantity: item.Quantity,
			Name:     item.Name,
			Price:    item.Price,
		})
	}
	return lines
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Unknown barcodes get a catalog record up front so the sale lands in
	// the ledger instead of falling back to an untracked line.
	for _, item := range req.Items {
		if item.Name == "" {
			continue
		}
		if _, err := h.catalog.AutoProvision(r.Context(), item.Barcode, item.Name, item.Price); err != nil {
			h.logger.Warn("Auto-provision failed, selling untracked",
				zap.Error(err),
				zap.String("barcode", item.Barcode),
			)
		}
	}

	summary, err := h.orders.CreateOrder(r.Context(), service.CreateOrderParams{
		Lines:         toOrderLines(req.Items),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
		Actor:         req.Actor,
	})
	if err != nil {
		h.logger.Error("Failed to create order", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "order created", summary)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	keyword := r.URL.Query().Get("q")

	orders, err := h.orders.ListOrders(r.Context(), limit, keyword)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", orders)
}

// GetOrderItems handles GET /api/orders/{id}/items
func (h *OrderHandler) GetOrderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	items, err := h.orders.GetOrderDetails(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			h.logger.Error("Failed to fetch order items", zap.Error(err), zap.Int64("order_id", id))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", items)
}

// EditOrder handles PUT /api/orders/{id}
func (h *OrderHandler) EditOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req editOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.orders.EditOrder(r.Context(), service.EditOrderParams{
		OrderID:       id,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         toOrderLines(req.Items),
		Actor:         req.Actor,
	})
	if err != nil {
		var insufficient *service.InsufficientStockError
		if !errors.Is(err, repository.ErrOrderNotFound) && !errors.As(err, &insufficient) {
			h.logger.Error("Failed to edit order", zap.Error(err), zap.Int64("order_id", id))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "order updated", summary)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	// Body is optional for cancellation.
	_ = middleware.DecodeAndValidate(r, &req)

	if err := h.orders.CancelOrder(r.Context(), id, req.Actor); err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			h.logger.Error("Failed to cancel order", zap.Error(err), zap.Int64("order_id", id))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "order cancelled, stock restored", nil)
}

// DeleteOrder handles DELETE /api/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	actor := r.URL.Query().Get("actor")

	if err := h.orders.DeleteOrder(r.Context(), id, actor); err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			h.logger.Error("Failed to delete order", zap.Error(err), zap.Int64("order_id", id))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "order deleted, stock restored", nil)
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := cast.ToInt64(chi.URLParam(r, "id"))
	if id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}
