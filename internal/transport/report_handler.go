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

// ReportHandler serves reporting projections and stock alerts.
type ReportHandler struct {
	reports service.ReportService
	alerts  service.AlertService
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports service.ReportService, alerts service.AlertService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		alerts:  alerts,
		logger:  logger,
	}
}

// RegisterRoutes registers report and alert routes on the router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/monthly-profit", h.MonthlyProfit)
		r.Get("/low-stock", h.LowStock)
	})
	r.Route("/api/alerts", func(r chi.Router) {
		r.Get("/", h.ListAlerts)
		r.Post("/{id}/read", h.MarkAlertRead)
	})
}

// MonthlyProfit handles GET /api/reports/monthly-profit
func (h *ReportHandler) MonthlyProfit(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.MonthlyProfit(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute monthly profit", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", rows)
}

// LowStock handles GET /api/reports/low-stock
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	views, err := h.reports.LowStock(r.Context())
	if err != nil {
		h.logger.Error("Failed to list low stock products", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", views)
}

// ListAlerts handles GET /api/alerts
func (h *ReportHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))

	alerts, err := h.alerts.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "", alerts)
}

// MarkAlertRead handles POST /api/alerts/{id}/read
func (h *ReportHandler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id := cast.ToInt64(chi.URLParam(r, "id"))
	if id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	if err := h.alerts.MarkRead(r.Context(), id); err != nil {
		if !errors.Is(err, repository.ErrAlertNotFound) {
			h.logger.Error("Failed to mark alert read", zap.Error(err), zap.Int64("alert_id", id))
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "alert marked read", nil)
}
