package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/cache"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// ChartDataHandler serves a chart's latest computed payload: the hand-off
// cache first (a refresh may have finished seconds ago), then the chart
// record.
type ChartDataHandler struct {
	charts  repositories.ChartRepository
	handoff cache.HandoffCache
	logger  *zap.Logger
}

// NewChartDataHandler creates a chart data handler.
func NewChartDataHandler(charts repositories.ChartRepository, handoff cache.HandoffCache, logger *zap.Logger) *ChartDataHandler {
	return &ChartDataHandler{charts: charts, handoff: handoff, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ChartDataHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/charts/data", h.ChartData)
}

// ChartData handles GET /charts/data?chart_id=<uuid>.
func (h *ChartDataHandler) ChartData(w http.ResponseWriter, r *http.Request) {
	chartID, err := uuid.Parse(r.URL.Query().Get("chart_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_chart_id", "chart_id must be a UUID")
		return
	}

	if payload, err := h.handoff.Get(r.Context(), cache.ChartHandoffKey(chartID)); err == nil {
		var chartData map[string]any
		if err := json.Unmarshal(payload, &chartData); err == nil {
			h.respond(w, chartID, chartData, "handoff")
			return
		}
		h.logger.Warn("corrupt hand-off payload", zap.String("chart_id", chartID.String()))
	}

	chart, err := h.charts.GetWithBindings(r.Context(), chartID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "chart_not_found", "no such chart")
			return
		}
		h.logger.Error("failed to load chart", zap.String("chart_id", chartID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to load chart")
		return
	}

	h.respond(w, chartID, chart.ChartData, "chart")
}

func (h *ChartDataHandler) respond(w http.ResponseWriter, chartID uuid.UUID, chartData map[string]any, source string) {
	response := map[string]any{
		"chart_id":   chartID,
		"source":     source,
		"chart_data": chartData,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode chart data response", zap.Error(err))
	}
}
