package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/auth"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/repositories"
)

// DatasetSummary is the list-view projection of a dataset. The stored
// profile is large and has its own endpoint, so it is omitted here.
type DatasetSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	SourceType  string `json:"source_type"`
	TableName   string `json:"table_name"`
	RowCount    int64  `json:"row_count"`
	CreatedAt   string `json:"created_at"`
}

// ListDatasetsResponse wraps the dataset array.
type ListDatasetsResponse struct {
	Datasets []DatasetSummary `json:"datasets"`
}

// DatasetsHandler handles dataset-related HTTP requests.
type DatasetsHandler struct {
	datasets repositories.DatasetRepository
	logger   *zap.Logger
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(datasets repositories.DatasetRepository, logger *zap.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		datasets: datasets,
		logger:   logger,
	}
}

// RegisterRoutes registers the datasets handler's routes on the given mux.
func (h *DatasetsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/datasets", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/datasets/{dsid}/schema", authMiddleware.RequireAuth(h.GetSchema))
}

// List handles GET /api/datasets
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasets.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list datasets"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ListDatasetsResponse{
		Datasets: make([]DatasetSummary, len(datasets)),
	}
	for i, ds := range datasets {
		response.Datasets[i] = toDatasetSummary(ds)
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetSchema handles GET /api/datasets/{dsid}/schema
func (h *DatasetsHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	schema, err := h.datasets.GetSchema(r.Context(), datasetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSchemaNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "schema_not_found", "Dataset has no stored schema profile"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get dataset schema",
			zap.String("dataset_id", datasetID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get dataset schema"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, schema); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// toDatasetSummary converts a dataset model to its list projection.
func toDatasetSummary(ds *models.Dataset) DatasetSummary {
	return DatasetSummary{
		ID:          ds.ID.String(),
		Name:        ds.Name,
		DisplayName: ds.DisplayName,
		SourceType:  ds.SourceType,
		TableName:   ds.TableName,
		RowCount:    ds.RowCount,
		CreatedAt:   ds.CreatedAt.Format(time.RFC3339),
	}
}
