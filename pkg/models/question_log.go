package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionLogEntry records one resolved question for auditing and for
// grounding suggestions in questions users actually asked.
type QuestionLogEntry struct {
	ID        uuid.UUID `json:"id"`
	DatasetID uuid.UUID `json:"dataset_id"`
	UserID    string    `json:"user_id"`

	// The question and what the pipeline made of it
	Question  string `json:"question"`
	SQL       string `json:"sql,omitempty"`
	Intent    string `json:"intent,omitempty"`
	ChartType string `json:"chart_type,omitempty"`

	// Outcome
	Success    bool    `json:"success"`
	Error      *string `json:"error,omitempty"`
	RowCount   *int    `json:"row_count,omitempty"`
	DurationMs *int    `json:"duration_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// QuestionLogFilters narrows question log listings.
type QuestionLogFilters struct {
	UserID      string
	Since       *time.Time
	SuccessOnly bool
	Limit       int
}
