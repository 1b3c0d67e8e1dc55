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

// ProductHandler exposes the catalog and stock ledger over HTTP.
type ProductHandler struct {
	catalog service.CatalogService
	ledger  service.LedgerService
	reports service.ReportService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog service.CatalogService, ledger service.LedgerService, reports service.ReportService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		ledger:  ledger,
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers product routes on the router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/low-stock", h.ListLowStock)
		r.Get("/{barcode}", h.GetProduct)
		r.Put("/{barcode}", h.UpdateProduct)
		r.Delete("/{barcode}", h.DeleteProduct)
		r.Post("/{barcode}/import", h.ImportStock)
		r.Post("/{barcode}/export", h.ExportStock)
	})
	r.Get("/api/inventory/history", h.InventoryHistory)
}

type createProductRequest struct {
	Barcode     string  `json:"barcode" validate:"required,min=1,max=64"`
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Category    string  `json:"category" validate:"max=100"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	MinStock    int     `json:"min_stock" validate:"gte=0"`
	Price       float64 `json:"price" validate:"gte=0"`
	CostPrice   float64 `json:"cost_price" validate:"gte=0"`
	Supplier    string  `json:"supplier" validate:"max=255"`
	Description string  `json:"description"`
}

type updateProductRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255"`
	Category  string  `json:"category" validate:"max=100"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
	MinStock  int     `json:"min_stock" validate:"gte=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	CostPrice float64 `json:"cost_price" validate:"gte=0"`
	Supplier  string  `json:"supplier" validate:"max=255"`
}

type stockMovementRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Note     string `json:"note" validate:"max=255"`
	Actor    string `json:"actor" validate:"max=100"`
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.Add(r.Context(), service.AddProductParams{
		Barcode:     req.Barcode,
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		MinStock:    req.MinStock,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Supplier:    req.Supplier,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("Failed to create product", zap.Error(err), zap.String("barcode", req.Barcode))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "product created", product)
}

// GetProduct handles GET /api/products/{barcode}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")

	product, err := h.catalog.FindByBarcode(r.Context(), barcode)
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Error("Failed to fetch product", zap.Error(err), zap.String("barcode", barcode))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", product)
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", products)
}

// ListLowStock handles GET /api/products/low-stock
func (h *ProductHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.reports.LowStock(r.Context())
	if err != nil {
		h.logger.Error("Failed to list low stock products", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", alerts)
}

// UpdateProduct handles PUT /api/products/{barcode}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")

	var req updateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.Update(r.Context(), service.UpdateProductParams{
		Barcode:   barcode,
		Name:      req.Name,
		Category:  req.Category,
		Quantity:  req.Quantity,
		MinStock:  req.MinStock,
		Price:     req.Price,
		CostPrice: req.CostPrice,
		Supplier:  req.Supplier,
	})
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Error("Failed to update product", zap.Error(err), zap.String("barcode", barcode))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "product updated", product)
}

// DeleteProduct handles DELETE /api/products/{barcode}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")

	if err := h.catalog.Delete(r.Context(), barcode); err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Error("Failed to delete product", zap.Error(err), zap.String("barcode", barcode))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "product deleted", nil)
}

// ImportStock handles POST /api/products/{barcode}/import
func (h *ProductHandler) ImportStock(w http.ResponseWriter, r *http.Request) {
	h.stockMovement(w, r, h.ledger.ImportStock, "stock imported")
}

// ExportStock handles POST /api/products/{barcode}/export
func (h *ProductHandler) ExportStock(w http.ResponseWriter, r *http.Request) {
	h.stockMovement(w, r, h.ledger.ExportStock, "stock exported")
}

func (h *ProductHandler) stockMovement(w http.ResponseWriter, r *http.Request, move service.StockMovementFunc, message string) {
	barcode := chi.URLParam(r, "barcode")

	var req stockMovementRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := move(r.Context(), barcode, req.Quantity, req.Note, req.Actor)
	if err != nil {
		var insufficient *service.InsufficientStockError
		if !errors.Is(err, repository.ErrProductNotFound) && !errors.As(err, &insufficient) {
			h.logger.Error("Stock movement failed", zap.Error(err), zap.String("barcode", barcode))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, message, product)
}

// InventoryHistory handles GET /api/inventory/history
func (h *ProductHandler) InventoryHistory(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))

	entries, err := h.reports.InventoryHistory(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to fetch inventory history", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", entries)
}
