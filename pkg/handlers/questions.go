package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/auth"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/services"
)

// QuestionsHandler handles question resolution, suggestions, and the
// progress event stream.
type QuestionsHandler struct {
	resolution  services.ResolutionService
	suggestions services.SuggestionService
	broker      *services.ProgressBroker
	logger      *zap.Logger
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(resolution services.ResolutionService, suggestions services.SuggestionService, broker *services.ProgressBroker, logger *zap.Logger) *QuestionsHandler {
	return &QuestionsHandler{
		resolution:  resolution,
		suggestions: suggestions,
		broker:      broker,
		logger:      logger,
	}
}

// RegisterRoutes registers the questions handler's routes on the given mux.
func (h *QuestionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/datasets/{dsid}/questions", authMiddleware.RequireAuth(h.Ask))
	mux.HandleFunc("GET /api/datasets/{dsid}/suggestions", authMiddleware.RequireAuth(h.Suggest))
	mux.HandleFunc("GET /api/questions/{qid}/events", authMiddleware.RequireAuth(h.Events))
}

// Ask handles POST /api/datasets/{dsid}/questions
// The pipeline never returns a transport error: every outcome, including
// failures, is the structured question response envelope.
func (h *QuestionsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := h.resolution.ResolveQuestion(r.Context(), datasetID, req)

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Suggest handles GET /api/datasets/{dsid}/suggestions?q=partial
func (h *QuestionsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	partial := r.URL.Query().Get("q")

	suggestions, err := h.suggestions.Suggest(r.Context(), datasetID, partial)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "dataset_not_found", "Dataset not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to build suggestions",
			zap.String("dataset_id", datasetID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to build suggestions"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := models.SuggestionsResponse{Suggestions: suggestions}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Events handles GET /api/questions/{qid}/events
// Streams pipeline progress for one question as Server-Sent Events.
// Clients pick a question ID, subscribe here, then POST the question with
// that ID; the stream ends after the completed or failed stage.
func (h *QuestionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	questionID, ok := ParseQuestionID(w, r, h.logger)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported")
		if err := ErrorResponse(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cancel := h.broker.Subscribe(questionID)
	defer cancel()

	// Commit headers right away so EventSource clients see the stream
	// as open before the first event arrives.
	flusher.Flush()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Failed to marshal progress event", zap.Error(err))
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			// The pipeline emits exactly one terminal stage per question.
			if event.Stage == models.StageCompleted || event.Stage == models.StageFailed {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
