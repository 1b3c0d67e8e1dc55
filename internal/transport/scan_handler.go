package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"scanpos/internal/middleware"
	"scanpos/internal/repository"
	"scanpos/internal/scan"
	"scanpos/internal/service"
)

// ScanHandler receives decoded barcode detections from the capture frontend
// and runs them through the dedup pipeline.
type ScanHandler struct {
	pipeline *scan.Pipeline
	catalog  service.CatalogService
	logger   *zap.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(pipeline *scan.Pipeline, catalog service.CatalogService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		pipeline: pipeline,
		catalog:  catalog,
		logger:   logger,
	}
}

// RegisterRoutes registers scan routes on the router.
func (h *ScanHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/scan", func(r chi.Router) {
		r.Post("/", h.SubmitDetection)
		r.Get("/latest", h.LatestDetection)
		r.Delete("/history", h.ResetHistory)
	})
}

type submitDetectionRequest struct {
	Code       string  `json:"code" validate:"required,min=1,max=64"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type submitDetectionResponse struct {
	Accepted bool            `json:"accepted"`
	Product  *productSummary `json:"product,omitempty"`
}

type productSummary struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Known    bool    `json:"known"`
}

// SubmitDetection handles POST /api/scan
func (h *ScanHandler) SubmitDetection(w http.ResponseWriter, r *http.Request) {
	var req submitDetectionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := h.pipeline.Submit(scan.Detection{
		Code:       req.Code,
		Confidence: req.Confidence,
	})

	resp := submitDetectionResponse{Accepted: accepted}
	if accepted {
		resp.Product = h.lookup(r, req.Code)
	}

	respondSuccess(w, http.StatusOK, "", resp)
}

func (h *ScanHandler) lookup(r *http.Request, code string) *productSummary {
	product, err := h.catalog.FindByBarcode(r.Context(), code)
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Error("Product lookup failed after scan", zap.Error(err), zap.String("barcode", code))
		}
		return &productSummary{Barcode: code, Known: false}
	}
	return &productSummary{
		Barcode:  product.Barcode,
		Name:     product.Name,
		Quantity: product.Quantity,
		Price:    product.Price,
		Known:    true,
	}
}

// LatestDetection handles GET /api/scan/latest
func (h *ScanHandler) LatestDetection(w http.ResponseWriter, r *http.Request) {
	detection, ok := h.pipeline.Latest()
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "no detection yet")
		return
	}

	respondSuccess(w, http.StatusOK, "", detection)
}

// ResetHistory handles DELETE /api/scan/history
func (h *ScanHandler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Reset()
	respondSuccess(w, http.StatusOK, "scan history cleared", nil)
}
