package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/auth"
	"github.com/insightloop/insight-engine/pkg/config"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/repositories"
)

const questionLogTimeout = 5 * time.Second

// ResolutionService runs the full question pipeline: classify, extract,
// plan, guard, execute, normalize, visualize, narrate. It never returns an
// error; every outcome is a structured response, and failures carry a
// message plus a failed progress event.
type ResolutionService interface {
	ResolveQuestion(ctx context.Context, datasetID uuid.UUID, req models.QuestionRequest) *models.QuestionResponse
}

type resolutionService struct {
	datasets    repositories.DatasetRepository
	questionLog repositories.QuestionLogRepository
	classifier  *IntentClassifier
	extractor   *EntityExtractor
	planner     *QueryPlanner
	normalizer  *ResultNormalizer
	selector    *VisualizationSelector
	narrator    *InsightNarrator
	detector    *ConversationDetector
	broker      *ProgressBroker
	executors   datasource.ExecutorFactory

	queryTimeout time.Duration
	logger       *zap.Logger
}

// ResolutionDeps bundles the collaborators of the resolution pipeline.
type ResolutionDeps struct {
	Datasets    repositories.DatasetRepository
	QuestionLog repositories.QuestionLogRepository
	Classifier  *IntentClassifier
	Extractor   *EntityExtractor
	Planner     *QueryPlanner
	Normalizer  *ResultNormalizer
	Selector    *VisualizationSelector
	Narrator    *InsightNarrator
	Detector    *ConversationDetector
	Broker      *ProgressBroker
	Executors   datasource.ExecutorFactory
}

// NewResolutionService creates the pipeline orchestrator.
func NewResolutionService(deps ResolutionDeps, cfg *config.PipelineConfig, logger *zap.Logger) ResolutionService {
	return &resolutionService{
		datasets:     deps.Datasets,
		questionLog:  deps.QuestionLog,
		classifier:   deps.Classifier,
		extractor:    deps.Extractor,
		planner:      deps.Planner,
		normalizer:   deps.Normalizer,
		selector:     deps.Selector,
		narrator:     deps.Narrator,
		detector:     deps.Detector,
		broker:       deps.Broker,
		executors:    deps.Executors,
		queryTimeout: cfg.QueryTimeout(),
		logger:       logger.Named("resolution-service"),
	}
}

var _ ResolutionService = (*resolutionService)(nil)

// questionRun carries the state of one resolution as it accumulates, so the
// question log entry can be written from any exit point.
type questionRun struct {
	id        uuid.UUID
	datasetID uuid.UUID
	question  string
	started   time.Time
	reporter  *ProgressReporter
	userID    string

	intent    *models.Intent
	sql       string
	chartType models.ChartType
	rowCount  *int
}

// ResolveQuestion resolves one question against a dataset. Progress events
// are published under the request's question ID (or a fresh one when the
// client did not pick its own), so subscribing before posting with a
// client-generated ID observes every stage.
func (s *resolutionService) ResolveQuestion(ctx context.Context, datasetID uuid.UUID, req models.QuestionRequest) *models.QuestionResponse {
	questionID := req.QuestionID
	if questionID == uuid.Nil {
		questionID = uuid.New()
	}

	run := &questionRun{
		id:        questionID,
		datasetID: datasetID,
		question:  strings.TrimSpace(req.Question),
		started:   time.Now(),
		reporter:  s.broker.Reporter(questionID),
		userID:    auth.GetUserIDFromContext(ctx),
	}

	if run.question == "" {
		return s.fail(ctx, run, "Question must not be empty.", apperrors.ErrInvalidRequest)
	}

	if s.detector.IsConversational(run.question) {
		run.reporter.Report(models.StageCompleted, "Conversation handled")
		return &models.QuestionResponse{
			Success:    true,
			QuestionID: run.id,
			Question:   run.question,
			Answer:     s.detector.Respond(run.question),
		}
	}

	run.reporter.Report(models.StageAnalyzing, "Analyzing question")

	dataset, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.fail(ctx, run, "Dataset not found.", err)
		}
		return s.fail(ctx, run, "Could not load the dataset.", err)
	}
	schema, err := s.datasets.GetSchema(ctx, datasetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSchemaNotFound) {
			return s.fail(ctx, run, "Dataset has no stored schema profile.", err)
		}
		return s.fail(ctx, run, "Could not load the dataset schema.", err)
	}

	intent := s.classifier.Classify(run.question, schema)
	run.intent = &intent
	entities := s.extractor.Extract(run.question, schema)

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, run, "The request was cancelled.", err)
	}
	run.reporter.Report(models.StageGeneratingSQL, "Generating SQL query")

	plan, err := s.planner.Plan(ctx, run.question, schema, intent, entities, req.PriorContext)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return s.fail(ctx, run, "The request was cancelled.", err)
		}
		return s.fail(ctx, run, "Could not generate a safe query for this question.", err)
	}
	run.sql = plan.SQL

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, run, "The request was cancelled.", err)
	}
	run.reporter.Report(models.StageExecuting, "Executing query")

	executor, err := s.executors.NewQueryExecutor(ctx, dataset.SourceType, dataset.ID, dataset.DSN)
	if err != nil {
		return s.fail(ctx, run, "Could not connect to the data source.", err)
	}
	defer func() {
		if err := executor.Close(); err != nil {
			s.logger.Warn("Failed to close query executor", zap.Error(err))
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	raw, err := executor.Execute(execCtx, plan.SQL)
	cancel()
	if err != nil {
		return s.fail(ctx, run, "Query execution failed.", fmt.Errorf("%w: %v", apperrors.ErrExecutionFailed, err))
	}

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, run, "The request was cancelled.", err)
	}
	run.reporter.Report(models.StageAnalyzingResults, "Analyzing results")

	result := s.normalizer.Normalize(raw)
	run.rowCount = &result.RowCount

	run.reporter.Report(models.StageCreatingViz, "Creating visualization")

	chartType := s.selector.Select(run.question, intent, result, schema)
	run.chartType = chartType
	viz := &models.Visualization{
		Type:               chartType,
		Config:             BuildChartConfig(chartType, run.question, result, schema),
		Insights:           s.narrator.Insights(result, schema),
		RecommendedActions: s.narrator.RecommendedActions(chartType, intent),
	}
	answer := s.narrator.ComposeAnswer(run.question, intent, result, schema)

	run.reporter.Report(models.StageCompleted, "Analysis complete")
	s.logger.Info("Question resolved",
		zap.String("question_id", run.id.String()),
		zap.String("dataset_id", datasetID.String()),
		zap.String("intent", string(intent.Primary)),
		zap.String("chart_type", string(chartType)),
		zap.String("plan_origin", string(plan.Origin)),
		zap.Int("row_count", result.RowCount),
		zap.Duration("duration", time.Since(run.started)))
	s.record(ctx, run, true, "")

	return &models.QuestionResponse{
		Success:       true,
		QuestionID:    run.id,
		Question:      run.question,
		Answer:        answer,
		SQL:           plan.SQL,
		Intent:        &intent,
		Results:       result,
		Visualization: viz,
		Insights:      viz.Insights,
	}
}

// fail reports the failed stage, records the attempt, and builds the
// structured failure response. The message is user-facing; err carries the
// cause for the log only.
func (s *resolutionService) fail(ctx context.Context, run *questionRun, message string, err error) *models.QuestionResponse {
	s.logger.Error("Question resolution failed",
		zap.String("question_id", run.id.String()),
		zap.String("dataset_id", run.datasetID.String()),
		zap.String("reason", message),
		zap.Error(err))
	run.reporter.Report(models.StageFailed, message)
	s.record(ctx, run, false, message)

	return &models.QuestionResponse{
		Success:    false,
		QuestionID: run.id,
		Question:   run.question,
		Error:      message,
	}
}

// record writes the question log entry. Inserts are best-effort with their
// own deadline, detached from the request's cancellation so cancelled runs
// are still recorded.
func (s *resolutionService) record(ctx context.Context, run *questionRun, success bool, errMsg string) {
	if s.questionLog == nil {
		return
	}

	entry := &models.QuestionLogEntry{
		ID:        uuid.New(),
		DatasetID: run.datasetID,
		UserID:    run.userID,
		Question:  run.question,
		SQL:       run.sql,
		ChartType: string(run.chartType),
		Success:   success,
		RowCount:  run.rowCount,
	}
	if run.intent != nil {
		entry.Intent = string(run.intent.Primary)
	}
	if errMsg != "" {
		entry.Error = &errMsg
	}
	duration := int(time.Since(run.started).Milliseconds())
	entry.DurationMs = &duration

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), questionLogTimeout)
	defer cancel()
	if err := s.questionLog.Create(logCtx, entry); err != nil {
		s.logger.Warn("Failed to record question log entry",
			zap.String("question_id", run.id.String()),
			zap.Error(err))
	}
}
