package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// DatasetHandler serves dataset reads for dashboard tooling.
type DatasetHandler struct {
	datasets repositories.DatasetRepository
	logger   *zap.Logger
}

// NewDatasetHandler creates a dataset handler.
func NewDatasetHandler(datasets repositories.DatasetRepository, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{datasets: datasets, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/datasets", h.Datasets)
}

// Datasets handles GET /datasets?dataset_id=<uuid> for a single dataset and
// GET /datasets?team_id=<uuid> for a team's datasets.
func (h *DatasetHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("dataset_id"); id != "" {
		h.getDataset(w, r, id)
		return
	}
	if id := r.URL.Query().Get("team_id"); id != "" {
		h.listDatasets(w, r, id)
		return
	}
	_ = ErrorResponse(w, http.StatusBadRequest, "missing_parameter", "dataset_id or team_id is required")
}

func (h *DatasetHandler) getDataset(w http.ResponseWriter, r *http.Request, raw string) {
	datasetID, err := uuid.Parse(raw)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_dataset_id", "dataset_id must be a UUID")
		return
	}

	dataset, err := h.datasets.GetByID(r.Context(), datasetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "dataset_not_found", "no such dataset")
			return
		}
		h.logger.Error("failed to load dataset", zap.String("dataset_id", datasetID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to load dataset")
		return
	}

	if err := WriteJSON(w, http.StatusOK, dataset); err != nil {
		h.logger.Error("failed to encode dataset response", zap.Error(err))
	}
}

func (h *DatasetHandler) listDatasets(w http.ResponseWriter, r *http.Request, raw string) {
	teamID, err := uuid.Parse(raw)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_team_id", "team_id must be a UUID")
		return
	}

	datasets, err := h.datasets.ListByTeam(r.Context(), teamID)
	if err != nil {
		h.logger.Error("failed to list datasets", zap.String("team_id", teamID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to list datasets")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"datasets": datasets}); err != nil {
		h.logger.Error("failed to encode datasets response", zap.Error(err))
	}
}
