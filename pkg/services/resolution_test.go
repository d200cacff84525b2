package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/config"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/sql"
)

type stubQuestionLog struct {
	entries   []*models.QuestionLogEntry
	createErr error

	ListRecentFunc      func(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (s *stubQuestionLog) Create(ctx context.Context, entry *models.QuestionLogEntry) error {
	s.entries = append(s.entries, entry)
	return s.createErr
}

func (s *stubQuestionLog) ListRecent(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error) {
	if s.ListRecentFunc == nil {
		return nil, nil
	}
	return s.ListRecentFunc(ctx, datasetID, filters)
}

func (s *stubQuestionLog) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.DeleteOlderThanFunc == nil {
		return 0, nil
	}
	return s.DeleteOlderThanFunc(ctx, cutoff)
}

type stubExecutorFactory struct {
	executor datasource.QueryExecutor
	err      error

	lastSourceType string
	lastDSN        string
}

func (f *stubExecutorFactory) NewQueryExecutor(ctx context.Context, sourceType string, datasetID uuid.UUID, dsn string) (datasource.QueryExecutor, error) {
	f.lastSourceType = sourceType
	f.lastDSN = dsn
	if f.err != nil {
		return nil, f.err
	}
	return f.executor, nil
}

func (f *stubExecutorFactory) ListSources() []datasource.AdapterInfo { return nil }

type resolutionFixture struct {
	service  ResolutionService
	deps     ResolutionDeps
	cfg      *config.PipelineConfig
	dataset  *models.Dataset
	datasets *stubDatasetRepository
	log      *stubQuestionLog
	executor *datasource.MockQueryExecutor
	factory  *stubExecutorFactory
	broker   *ProgressBroker
}

// newResolutionFixture wires the full pipeline with a nil generator, so
// planning always takes the deterministic fallback, and a mock executor that
// answers every query with a single count cell.
func newResolutionFixture() *resolutionFixture {
	logger := zap.NewNop()
	vocab := DefaultVocabulary()
	extractor := NewEntityExtractor(vocab, logger)

	dataset := pipelineDataset()
	datasets := &stubDatasetRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return dataset, nil
		},
		GetSchemaFunc: func(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
			return pipelineTestSchema(), nil
		},
	}

	executor := datasource.NewMockQueryExecutor()
	executor.ExecuteFunc = func(ctx context.Context, sqlQuery string) (*datasource.QueryExecutionResult, error) {
		return &datasource.QueryExecutionResult{
			Columns:  []datasource.ColumnInfo{{Name: "total_records", Type: "INT8"}},
			Rows:     [][]any{{int64(70)}},
			RowCount: 1,
		}, nil
	}
	factory := &stubExecutorFactory{executor: executor}
	log := &stubQuestionLog{}
	broker := NewProgressBroker(16, logger)

	deps := ResolutionDeps{
		Datasets:    datasets,
		QuestionLog: log,
		Classifier:  NewIntentClassifier(vocab, extractor),
		Extractor:   extractor,
		Planner:     NewQueryPlanner(nil, sql.NewGuard(1000), plannerLLMConfig(), logger),
		Normalizer:  NewResultNormalizer(1000, logger),
		Selector:    NewVisualizationSelector(vocab, logger),
		Narrator:    NewInsightNarrator(vocab, logger),
		Detector:    NewConversationDetector(vocab),
		Broker:      broker,
		Executors:   factory,
	}
	cfg := &config.PipelineConfig{MaxRows: 1000, QueryTimeoutSeconds: 5, EventBuffer: 16}

	return &resolutionFixture{
		service:  NewResolutionService(deps, cfg, logger),
		deps:     deps,
		cfg:      cfg,
		dataset:  dataset,
		datasets: datasets,
		log:      log,
		executor: executor,
		factory:  factory,
		broker:   broker,
	}
}

// drainProgress collects the events already buffered for a finished run.
func drainProgress(events <-chan models.ProgressEvent) []models.ProgressEvent {
	var out []models.ProgressEvent
	for {
		select {
		case e := <-events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestResolveQuestionSuccess(t *testing.T) {
	fixture := newResolutionFixture()
	questionID := uuid.New()

	events, cancelSub := fixture.broker.Subscribe(questionID)
	defer cancelSub()

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question:   "How many active users are there?",
		QuestionID: questionID,
	})

	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, questionID, resp.QuestionID)
	assert.Equal(t, "How many active users are there?", resp.Question)
	assert.Equal(t, "SELECT COUNT(*) AS total_records FROM users LIMIT 1000;", resp.SQL)
	assert.Empty(t, resp.Error)

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentMetrics, resp.Intent.Primary)
	require.NotNil(t, resp.Results)
	assert.Equal(t, 1, resp.Results.RowCount)
	require.NotNil(t, resp.Visualization)
	assert.Equal(t, models.ChartKPI, resp.Visualization.Type)
	assert.Equal(t, "There are 70 users.", resp.Answer)

	assert.Equal(t, 1, fixture.executor.ExecuteCalls)
	assert.Equal(t, resp.SQL, fixture.executor.LastSQL)
	assert.True(t, fixture.executor.Closed)
	assert.Equal(t, "postgres", fixture.factory.lastSourceType)
	assert.Equal(t, fixture.dataset.DSN, fixture.factory.lastDSN)

	got := drainProgress(events)
	stages := make([]models.ProgressStage, len(got))
	for i, e := range got {
		stages[i] = e.Stage
		assert.Equal(t, questionID, e.QuestionID)
	}
	assert.Equal(t, []models.ProgressStage{
		models.StageAnalyzing,
		models.StageGeneratingSQL,
		models.StageExecuting,
		models.StageAnalyzingResults,
		models.StageCreatingViz,
		models.StageCompleted,
	}, stages)
	assert.Equal(t, 100, got[len(got)-1].Percent)

	require.Len(t, fixture.log.entries, 1)
	entry := fixture.log.entries[0]
	assert.Equal(t, fixture.dataset.ID, entry.DatasetID)
	assert.Equal(t, resp.Question, entry.Question)
	assert.Equal(t, resp.SQL, entry.SQL)
	assert.Equal(t, "metrics", entry.Intent)
	assert.Equal(t, "kpi", entry.ChartType)
	assert.True(t, entry.Success)
	assert.Nil(t, entry.Error)
	require.NotNil(t, entry.RowCount)
	assert.Equal(t, 1, *entry.RowCount)
	assert.NotNil(t, entry.DurationMs)
}

func TestResolveQuestionConversational(t *testing.T) {
	fixture := newResolutionFixture()
	questionID := uuid.New()

	events, cancelSub := fixture.broker.Subscribe(questionID)
	defer cancelSub()

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question:   "hello there",
		QuestionID: questionID,
	})

	assert.True(t, resp.Success)
	assert.Equal(t, "Hello. Ask me a question about your data and I will run the analysis for you.", resp.Answer)
	assert.Empty(t, resp.SQL)
	assert.Nil(t, resp.Intent)
	assert.Nil(t, resp.Results)
	assert.Nil(t, resp.Visualization)

	got := drainProgress(events)
	require.Len(t, got, 1)
	assert.Equal(t, models.StageCompleted, got[0].Stage)
	assert.Equal(t, "Conversation handled", got[0].Message)

	assert.Equal(t, 0, fixture.executor.ExecuteCalls)
	assert.Empty(t, fixture.log.entries)
}

func TestResolveQuestionEmptyQuestion(t *testing.T) {
	fixture := newResolutionFixture()
	questionID := uuid.New()

	events, cancelSub := fixture.broker.Subscribe(questionID)
	defer cancelSub()

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question:   "   ",
		QuestionID: questionID,
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "Question must not be empty.", resp.Error)
	assert.Equal(t, questionID, resp.QuestionID)

	got := drainProgress(events)
	require.Len(t, got, 1)
	assert.Equal(t, models.StageFailed, got[0].Stage)
	assert.Equal(t, 0, got[0].Percent)
	assert.Equal(t, "Question must not be empty.", got[0].Message)

	require.Len(t, fixture.log.entries, 1)
	entry := fixture.log.entries[0]
	assert.False(t, entry.Success)
	require.NotNil(t, entry.Error)
	assert.Equal(t, "Question must not be empty.", *entry.Error)
}

func TestResolveQuestionAssignsIDWhenAbsent(t *testing.T) {
	fixture := newResolutionFixture()

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})

	assert.True(t, resp.Success)
	assert.NotEqual(t, uuid.Nil, resp.QuestionID)
}

func TestResolveQuestionDatasetErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"missing dataset", apperrors.ErrNotFound, "Dataset not found."},
		{"repository failure", errors.New("connection refused"), "Could not load the dataset."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newResolutionFixture()
			fixture.datasets.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
				return nil, tt.err
			}

			resp := fixture.service.ResolveQuestion(context.Background(), uuid.New(), models.QuestionRequest{
				Question: "How many active users are there?",
			})

			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestResolveQuestionSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"missing profile", apperrors.ErrSchemaNotFound, "Dataset has no stored schema profile."},
		{"repository failure", errors.New("connection refused"), "Could not load the dataset schema."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newResolutionFixture()
			fixture.datasets.GetSchemaFunc = func(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
				return nil, tt.err
			}

			resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
				Question: "How many active users are there?",
			})

			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestResolveQuestionPlanningFailure(t *testing.T) {
	fixture := newResolutionFixture()
	fixture.datasets.GetSchemaFunc = func(ctx context.Context, id uuid.UUID) (*models.DatasetSchema, error) {
		schema := pipelineTestSchema()
		schema.TableName = "users; DROP TABLE users"
		return schema, nil
	}

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "Could not generate a safe query for this question.", resp.Error)
	assert.Equal(t, 0, fixture.executor.ExecuteCalls)
}

func TestResolveQuestionConnectFailure(t *testing.T) {
	fixture := newResolutionFixture()
	fixture.factory.err = errors.New("dial tcp: connection refused")
	questionID := uuid.New()

	events, cancelSub := fixture.broker.Subscribe(questionID)
	defer cancelSub()

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question:   "How many active users are there?",
		QuestionID: questionID,
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "Could not connect to the data source.", resp.Error)
	assert.Equal(t, 0, fixture.executor.ExecuteCalls)

	got := drainProgress(events)
	require.NotEmpty(t, got)
	assert.Equal(t, models.StageFailed, got[len(got)-1].Stage)
}

func TestResolveQuestionExecuteFailure(t *testing.T) {
	fixture := newResolutionFixture()
	fixture.executor.ExecuteFunc = func(ctx context.Context, sqlQuery string) (*datasource.QueryExecutionResult, error) {
		return nil, errors.New(`relation "users" does not exist`)
	}

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "Query execution failed.", resp.Error)
	assert.True(t, fixture.executor.Closed)

	require.Len(t, fixture.log.entries, 1)
	entry := fixture.log.entries[0]
	assert.False(t, entry.Success)
	assert.Equal(t, "SELECT COUNT(*) AS total_records FROM users LIMIT 1000;", entry.SQL)
	assert.Nil(t, entry.RowCount)
}

func TestResolveQuestionCancelledContext(t *testing.T) {
	fixture := newResolutionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := fixture.service.ResolveQuestion(ctx, fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})

	assert.False(t, resp.Success)
	assert.Equal(t, "The request was cancelled.", resp.Error)
	assert.Equal(t, 0, fixture.executor.ExecuteCalls)
}

func TestResolveQuestionNilQuestionLog(t *testing.T) {
	fixture := newResolutionFixture()
	fixture.deps.QuestionLog = nil
	service := NewResolutionService(fixture.deps, fixture.cfg, zap.NewNop())

	resp := service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})
	assert.True(t, resp.Success)

	resp = service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "  ",
	})
	assert.False(t, resp.Success)
}

func TestResolveQuestionLogFailureIgnored(t *testing.T) {
	fixture := newResolutionFixture()
	fixture.log.createErr = errors.New("log table unavailable")

	resp := fixture.service.ResolveQuestion(context.Background(), fixture.dataset.ID, models.QuestionRequest{
		Question: "How many active users are there?",
	})

	assert.True(t, resp.Success)
}
