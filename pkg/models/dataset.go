package models

import (
	"time"

	"github.com/google/uuid"
)

// Source types for dataset backing stores.
const (
	SourceTypePostgres = "postgres"
	SourceTypeMSSQL    = "mssql"
)

// ValidSourceTypes contains all supported dataset source types.
var ValidSourceTypes = []string{
	SourceTypePostgres,
	SourceTypeMSSQL,
}

// IsValidSourceType checks if the given source type is supported.
func IsValidSourceType(t string) bool {
	for _, v := range ValidSourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Dataset is one registered tabular dataset: where its table lives, its
// profiled schema, and the sample questions shown to users. The DSN is
// connection material and never leaves the API.
type Dataset struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	DisplayName     string         `json:"display_name"`
	SourceType      string         `json:"source_type"`
	DSN             string         `json:"-"`
	TableName       string         `json:"table_name"`
	RowCount        int64          `json:"row_count"`
	Profile         *DatasetSchema `json:"profile,omitempty"`
	SampleQuestions []string       `json:"sample_questions,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
