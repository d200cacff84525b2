package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/repositories"
)

// DefaultRetentionDays is the default retention period for question log rows.
const DefaultRetentionDays = 90

// RetentionService ages out old question log rows.
type RetentionService interface {
	// Prune removes log rows older than the retention period and returns
	// how many rows were deleted.
	Prune(ctx context.Context) (int64, error)

	// RunScheduler starts a background goroutine that prunes on the given
	// interval. It runs immediately on startup, then repeats every interval.
	// Cancel the context to stop the scheduler.
	RunScheduler(ctx context.Context, interval time.Duration)
}

type retentionService struct {
	questionLog   repositories.QuestionLogRepository
	retentionDays int
	logger        *zap.Logger
}

// NewRetentionService creates a retention service over the question log.
// Non-positive retentionDays falls back to DefaultRetentionDays.
func NewRetentionService(questionLog repositories.QuestionLogRepository, retentionDays int, logger *zap.Logger) RetentionService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &retentionService{
		questionLog:   questionLog,
		retentionDays: retentionDays,
		logger:        logger.Named("retention-service"),
	}
}

var _ RetentionService = (*retentionService)(nil)

func (s *retentionService) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	deleted, err := s.questionLog.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune question log: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("Retention cleanup completed",
			zap.Int("retention_days", s.retentionDays),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// RunScheduler starts a background loop that prunes old question log rows.
func (s *retentionService) RunScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		s.logger.Info("Retention scheduler started",
			zap.Duration("interval", interval),
			zap.Int("retention_days", s.retentionDays))

		// Run immediately on startup, then at each interval
		if _, err := s.Prune(ctx); err != nil {
			s.logger.Error("Retention cleanup failed", zap.Error(err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Retention scheduler stopped")
				return
			case <-ticker.C:
				if _, err := s.Prune(ctx); err != nil {
					s.logger.Error("Retention cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}
