package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/insightloop/insight-engine/pkg/database"
	"github.com/insightloop/insight-engine/pkg/models"
)

// DefaultQuestionLogLimit bounds ListRecent when the caller does not.
const DefaultQuestionLogLimit = 50

// QuestionLogRepository records resolved questions and serves them back for
// suggestion grounding and audit listings.
type QuestionLogRepository interface {
	// Create persists one log entry. Callers treat failures as best-effort;
	// a lost log line never fails the resolution that produced it.
	Create(ctx context.Context, entry *models.QuestionLogEntry) error

	// ListRecent returns entries for a dataset, newest first.
	ListRecent(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error)

	// DeleteOlderThan removes entries created before the cutoff and reports
	// how many rows went away.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type questionLogRepository struct {
	db *database.DB
}

// NewQuestionLogRepository creates a question log repository.
func NewQuestionLogRepository(db *database.DB) QuestionLogRepository {
	return &questionLogRepository{db: db}
}

var _ QuestionLogRepository = (*questionLogRepository)(nil)

func (r *questionLogRepository) Create(ctx context.Context, entry *models.QuestionLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO engine_question_log (
			id, dataset_id, user_id, question, sql_text, intent, chart_type,
			success, error, row_count, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.DatasetID,
		entry.UserID,
		entry.Question,
		entry.SQL,
		entry.Intent,
		entry.ChartType,
		entry.Success,
		entry.Error,
		entry.RowCount,
		entry.DurationMs,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create question log entry: %w", err)
	}
	return nil
}

func (r *questionLogRepository) ListRecent(ctx context.Context, datasetID uuid.UUID, filters models.QuestionLogFilters) ([]*models.QuestionLogEntry, error) {
	query := `
		SELECT id, dataset_id, user_id, question, sql_text, intent, chart_type,
		       success, error, row_count, duration_ms, created_at
		FROM engine_question_log
		WHERE dataset_id = $1`
	args := []any{datasetID}

	if filters.UserID != "" {
		args = append(args, filters.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filters.Since != nil {
		args = append(args, *filters.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filters.SuccessOnly {
		query += " AND success"
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultQuestionLogLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list question log: %w", err)
	}
	defer rows.Close()

	var entries []*models.QuestionLogEntry
	for rows.Next() {
		entry, err := scanQuestionLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question log: %w", err)
	}

	return entries, nil
}

func (r *questionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM engine_question_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune question log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanQuestionLogEntry(row pgx.Row) (*models.QuestionLogEntry, error) {
	var entry models.QuestionLogEntry
	err := row.Scan(
		&entry.ID,
		&entry.DatasetID,
		&entry.UserID,
		&entry.Question,
		&entry.SQL,
		&entry.Intent,
		&entry.ChartType,
		&entry.Success,
		&entry.Error,
		&entry.RowCount,
		&entry.DurationMs,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan question log entry: %w", err)
	}
	return &entry, nil
}
