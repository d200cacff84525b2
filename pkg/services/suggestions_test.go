package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/models"
)

func newTestSuggestionService(dataset *models.Dataset) SuggestionService {
	repo := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return dataset, nil
		},
	}
	return NewSuggestionService(repo, nil, DefaultVocabulary(), zap.NewNop())
}

func TestSuggestEmptyPartialReturnsStoredSamples(t *testing.T) {
	dataset := pipelineDataset()
	for i := 0; i < 10; i++ {
		dataset.SampleQuestions = append(dataset.SampleQuestions, fmt.Sprintf("Sample question %d", i))
	}
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "")

	require.NoError(t, err)
	assert.Equal(t, dataset.SampleQuestions[:8], got)
}

func TestSuggestEmptyPartialWithoutSamplesUsesSchema(t *testing.T) {
	service := newTestSuggestionService(pipelineDataset())

	got, err := service.Suggest(context.Background(), uuid.New(), "")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"How many records are there?",
		"What is the average price?",
		"Show me the breakdown by status",
		"Show trends over created at",
	}, got)
}

func TestSuggestSchemaFallbackWithoutProfile(t *testing.T) {
	dataset := pipelineDataset()
	dataset.Profile = nil
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"How many records are there?"}, got)
}

func TestSuggestPartialMatchesSampleWords(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = []string{
		"How many users signed up?",
		"Revenue by month",
		"Average age of users",
	}
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "users")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"How many users signed up?",
		"Average age of users",
	}, got)
}

func TestSuggestPartialCapsMatchedSamples(t *testing.T) {
	dataset := pipelineDataset()
	for i := 0; i < 7; i++ {
		dataset.SampleQuestions = append(dataset.SampleQuestions, fmt.Sprintf("Total spend by region %d", i))
	}
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "spend")

	require.NoError(t, err)
	assert.Equal(t, dataset.SampleQuestions[:5], got)
}

func TestSuggestStarterCompletions(t *testing.T) {
	tests := []struct {
		name    string
		partial string
		want    []string
	}{
		{
			name:    "count family fills dataset name",
			partial: "how many",
			want: []string{
				"How many records are in Users?",
				"How many unique values are there?",
				"Count by category or status",
			},
		},
		{
			name:    "prefix family wins over trend wording",
			partial: "show me the trend",
			want: []string{
				"Show me trends over time",
				"Show me the breakdown by category",
				"Show me the top 10 records",
			},
		},
		{
			name:    "trend family matches anywhere",
			partial: "daily trend",
			want: []string{
				"Show trends over time",
				"What are the historical patterns?",
				"How has this changed over time?",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestSuggestionService(pipelineDataset())

			got, err := service.Suggest(context.Background(), uuid.New(), tt.partial)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestDedupesAcrossSources(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = []string{"How many unique values are there?"}
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "how many")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"How many unique values are there?",
		"How many records are in Users?",
		"Count by category or status",
	}, got)
}

func TestSuggestPartialWithoutMatchesKeepsQuiet(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = []string{"Revenue by month"}
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "zzz")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestDatasetNameFallbacks(t *testing.T) {
	dataset := pipelineDataset()
	dataset.DisplayName = ""
	dataset.Name = "orders"
	service := newTestSuggestionService(dataset)

	got, err := service.Suggest(context.Background(), dataset.ID, "count")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "How many records are in orders?", got[0])

	dataset.Name = ""
	got, err = service.Suggest(context.Background(), dataset.ID, "count")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "How many records are in the dataset?", got[0])
}

func TestSuggestRepositoryError(t *testing.T) {
	repo := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return nil, apperrors.ErrNotFound
		},
	}
	service := NewSuggestionService(repo, nil, DefaultVocabulary(), zap.NewNop())

	got, err := service.Suggest(context.Background(), uuid.New(), "anything")

	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, got)
}

func TestSuggestEmptyPartialFillsFromQuestionLog(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = []string{"Sample question"}
	repo := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return dataset, nil
		},
	}
	log := &stubQuestionLog{
		ListRecentFunc: func(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error) {
			assert.True(t, filters.SuccessOnly, "suggestions must only surface questions that resolved")
			return []*models.QuestionLogEntry{
				{Question: "How many orders shipped last week?"},
				{Question: "Sample question"}, // already curated, must not repeat
				{Question: "What is the average price?"},
			}, nil
		},
	}
	service := NewSuggestionService(repo, log, DefaultVocabulary(), zap.NewNop())

	got, err := service.Suggest(context.Background(), dataset.ID, "")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Sample question",
		"How many orders shipped last week?",
		"What is the average price?",
	}, got)
}

func TestSuggestPartialMatchesQuestionLog(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = nil
	repo := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return dataset, nil
		},
	}
	log := &stubQuestionLog{
		ListRecentFunc: func(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error) {
			return []*models.QuestionLogEntry{
				{Question: "What is the average price by status?"},
				{Question: "Show trends over time"},
			}, nil
		},
	}
	service := NewSuggestionService(repo, log, DefaultVocabulary(), zap.NewNop())

	got, err := service.Suggest(context.Background(), dataset.ID, "price")

	require.NoError(t, err)
	assert.Contains(t, got, "What is the average price by status?")
	assert.NotContains(t, got, "Show trends over time")
}

func TestSuggestQuestionLogFailureDegrades(t *testing.T) {
	dataset := pipelineDataset()
	dataset.SampleQuestions = []string{"Sample question"}
	repo := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return dataset, nil
		},
	}
	log := &stubQuestionLog{
		ListRecentFunc: func(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	service := NewSuggestionService(repo, log, DefaultVocabulary(), zap.NewNop())

	got, err := service.Suggest(context.Background(), dataset.ID, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"Sample question"}, got)
}
