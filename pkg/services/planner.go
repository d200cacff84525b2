package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/apperrors"
	"github.com/insightloop/insight-engine/pkg/config"
	"github.com/insightloop/insight-engine/pkg/llm"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/prompts"
	"github.com/insightloop/insight-engine/pkg/retry"
	"github.com/insightloop/insight-engine/pkg/sql"
)

// descendingTerms force the ranking fallback into DESC order.
var descendingTerms = []string{"top", "highest", "best"}

// QueryPlanner produces one guard-accepted QueryPlan per question. The
// primary path asks the LLM collaborator; when that is unavailable, times
// out, or produces SQL the guard rejects, a deterministic template built
// from the intent and entities takes over. The fallback runs at most once;
// if the guard rejects it too, planning fails for the question. Repeated
// provider failures open a breaker that skips the LLM call entirely until
// a cooldown probe succeeds.
type QueryPlanner struct {
	generator llm.Generator // nil when no provider is configured
	guard     *sql.Guard
	breaker   *llm.Breaker
	timeout   time.Duration
	retryCfg  *retry.Config
	logger    *zap.Logger
}

func NewQueryPlanner(generator llm.Generator, guard *sql.Guard, cfg *config.LLMConfig, logger *zap.Logger) *QueryPlanner {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	return &QueryPlanner{
		generator: generator,
		guard:     guard,
		breaker:   llm.NewBreaker(llm.DefaultBreakerThreshold, llm.DefaultBreakerCooldown),
		timeout:   cfg.Timeout(),
		retryCfg:  retryCfg,
		logger:    logger.Named("planner"),
	}
}

// Plan returns a plan whose SQL the guard has accepted, or ErrPlanningFailed
// wrapped around the reason. A cancelled context aborts instead of falling
// back, so a disconnected client never triggers template queries.
func (p *QueryPlanner) Plan(ctx context.Context, question string, schema *models.DatasetSchema, intent models.Intent, entities models.EntitySet, priorContext string) (*models.QueryPlan, error) {
	if plan := p.planGenerated(ctx, question, schema, intent, entities, priorContext); plan != nil {
		return plan, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.planFallback(question, schema, intent, entities)
}

// planGenerated runs the LLM path. Any failure returns nil; the caller
// decides whether the fallback is still worth attempting.
func (p *QueryPlanner) planGenerated(ctx context.Context, question string, schema *models.DatasetSchema, intent models.Intent, entities models.EntitySet, priorContext string) *models.QueryPlan {
	if p.generator == nil {
		p.logger.Debug("no generator configured, planning deterministically")
		return nil
	}
	if err := p.breaker.Allow(); err != nil {
		p.logger.Warn("Generation suspended by breaker, trying fallback",
			zap.String("breaker_state", p.breaker.State()),
			zap.Error(err))
		return nil
	}

	prompt := prompts.BuildQueryPlanPrompt(question, schema, intent, entities, priorContext)
	system := prompts.BuildQueryPlanSystemMessage()

	var result *llm.GenerateResult
	err := retry.DoIfRetryable(ctx, p.retryCfg, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		var genErr error
		result, genErr = p.generator.Generate(callCtx, prompt, system)
		return genErr
	})
	if err != nil {
		// A cancelled run says nothing about provider health, so only
		// provider-side failures count toward opening the breaker.
		if ctx.Err() == nil {
			p.breaker.Failure()
		}
		p.logger.Warn("Query generation failed, trying fallback",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Int("breaker_failures", p.breaker.Failures()),
			zap.Error(err))
		return nil
	}
	p.breaker.Success()

	candidate := sql.ExtractSQL(result.Content)
	if candidate == "" {
		p.logger.Warn("Generated response contained no SQL",
			zap.Int("response_len", len(result.Content)))
		return nil
	}

	checked, err := p.guard.Check(candidate)
	if err != nil {
		p.logger.Warn("Guard rejected generated SQL", zap.Error(err))
		return nil
	}

	p.logger.Info("Generated query accepted",
		zap.String("model", p.generator.GetModel()),
		zap.Int("total_tokens", result.TotalTokens))

	return &models.QueryPlan{
		SQL:        checked,
		Origin:     models.PlanOriginGenerated,
		GuardState: models.GuardAccepted,
	}
}

func (p *QueryPlanner) planFallback(question string, schema *models.DatasetSchema, intent models.Intent, entities models.EntitySet) (*models.QueryPlan, error) {
	candidate := fallbackSQL(question, schema, intent, entities)

	checked, err := p.guard.Check(candidate)
	if err != nil {
		p.logger.Error("Fallback query rejected by guard",
			zap.String("candidate", candidate),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPlanningFailed, err)
	}

	p.logger.Info("Using fallback query", zap.String("intent", string(intent.Primary)))

	return &models.QueryPlan{
		SQL:        checked,
		Origin:     models.PlanOriginFallback,
		GuardState: models.GuardAccepted,
	}, nil
}

// fallbackSQL selects a deterministic template by intent. Column and table
// names come from the dataset profile, never from free question text.
func fallbackSQL(question string, schema *models.DatasetSchema, intent models.Intent, entities models.EntitySet) string {
	table := schema.TableName

	switch intent.Primary {
	case models.IntentMetrics:
		if len(entities.Aggregations) > 0 && len(entities.Columns) > 0 {
			return fmt.Sprintf(`SELECT %s("%s") AS result FROM %s`,
				entities.Aggregations[0], entities.Columns[0], table)
		}
		return fmt.Sprintf("SELECT COUNT(*) AS total_records FROM %s", table)

	case models.IntentRankings:
		if len(entities.Columns) > 0 {
			dir := "ASC"
			if containsAny(strings.ToLower(question), descendingTerms) {
				dir = "DESC"
			}
			return fmt.Sprintf(`SELECT * FROM %s ORDER BY "%s" %s LIMIT 10`,
				table, entities.Columns[0], dir)
		}
	}

	return fmt.Sprintf("SELECT * FROM %s LIMIT 10", table)
}
