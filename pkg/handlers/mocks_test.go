package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/auth"
	"github.com/insightloop/insight-engine/pkg/models"
)

// mockDatasetRepository is a configurable mock for all handler tests.
type mockDatasetRepository struct {
	datasets []*models.Dataset
	schema   *models.DatasetSchema
	err      error
}

func (m *mockDatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, ds := range m.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, ds := range m.datasets {
		if ds.Name == name {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.datasets, nil
}

func (m *mockDatasetRepository) GetSchema(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.schema == nil {
		return nil, apperrors.ErrSchemaNotFound
	}
	return m.schema, nil
}

// mockResolutionService returns a canned response and records the call.
type mockResolutionService struct {
	response      *models.QuestionResponse
	lastDatasetID uuid.UUID
	lastRequest   models.QuestionRequest
	calls         int
}

func (m *mockResolutionService) ResolveQuestion(ctx context.Context, datasetID uuid.UUID, req models.QuestionRequest) *models.QuestionResponse {
	m.calls++
	m.lastDatasetID = datasetID
	m.lastRequest = req
	if m.response != nil {
		return m.response
	}
	return &models.QuestionResponse{
		Success:    true,
		QuestionID: req.QuestionID,
		Question:   req.Question,
	}
}

// mockSuggestionService returns canned suggestions and records the call.
type mockSuggestionService struct {
	suggestions []string
	err         error
	lastPartial string
}

func (m *mockSuggestionService) Suggest(ctx context.Context, datasetID uuid.UUID, partial string) ([]string, error) {
	m.lastPartial = partial
	if m.err != nil {
		return nil, m.err
	}
	return m.suggestions, nil
}

// allowAllAuthService accepts every request with fixed claims.
type allowAllAuthService struct{}

func (allowAllAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	claims := &auth.Claims{}
	claims.Subject = "test-user"
	return claims, "test-token", nil
}

// denyAllAuthService rejects every request.
type denyAllAuthService struct{}

func (denyAllAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	return nil, "", auth.ErrMissingAuthorization
}
