package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/insightloop/insight-engine/pkg/models"
)

func testSchema() *models.DatasetSchema {
	return &models.DatasetSchema{
		TableName: "listings",
		RowCount:  100,
		Columns: []models.ColumnProfile{
			{
				Name:         "listing_id",
				DataType:     "uuid",
				BusinessType: models.BusinessTypeIdentifier,
				SampleValues: []string{"a1", "b2", "c3", "d4"},
			},
			{
				Name:         "price",
				DataType:     "numeric",
				BusinessType: models.BusinessTypeCurrency,
				Numeric:      &models.NumericProfile{Min: 50, Max: 1200, Mean: 340.5, Median: 300},
			},
			{
				Name:         "status",
				DataType:     "text",
				BusinessType: models.BusinessTypeCategory,
				Cardinality:  2,
				Categorical: &models.CategoricalProfile{
					TopValues: []models.ValueCount{
						{Value: "active", Count: 70},
						{Value: "inactive", Count: 30},
					},
				},
			},
			{
				Name:         "created_date",
				DataType:     "date",
				BusinessType: models.BusinessTypeDate,
				Date: &models.DateProfile{
					MinDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
					MaxDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
				},
			},
			{
				Name:         "summary",
				DataType:     "text",
				BusinessType: models.BusinessTypeText,
				Nullable:     true,
				Description:  "free-form listing notes",
				SampleValues: []string{"cozy", "spacious"},
			},
		},
	}
}

func TestBuildQueryPlanPrompt(t *testing.T) {
	intent := models.Intent{
		Primary:    models.IntentMetrics,
		Confidence: 0.83,
		ResultType: models.ResultSingleNumber,
		Time: models.TimeDimension{
			HasTime:     true,
			Granularity: "month",
			Relative:    "last month",
		},
		Complexity: models.ComplexitySimple,
	}
	entities := models.EntitySet{
		Columns:      []string{"price"},
		Aggregations: []models.Aggregation{models.AggregationAvg},
		Filters:      []string{"active"},
		TimePeriods:  []string{"last month"},
	}

	prompt := BuildQueryPlanPrompt("What is the average price of active listings last month?", testSchema(), intent, entities, "")

	assert.Contains(t, prompt, "# SQL Generation Request")
	assert.Contains(t, prompt, `"listings"`)
	assert.Contains(t, prompt, "listings (100 rows)")
	assert.Contains(t, prompt, "What is the average price of active listings last month?")

	// Columns grouped by business purpose with inline profile info.
	assert.Contains(t, prompt, "### Identifiers")
	assert.Contains(t, prompt, "samples: a1, b2, c3")
	assert.Contains(t, prompt, "### Metrics")
	assert.Contains(t, prompt, "range 50 to 1200, mean 340.5")
	assert.Contains(t, prompt, "### Categories")
	assert.Contains(t, prompt, "top values: active (70), inactive (30)")
	assert.Contains(t, prompt, "### Dates")
	assert.Contains(t, prompt, "spans 2023-01-01 to 2024-06-30")
	assert.Contains(t, prompt, "### Descriptions")
	assert.Contains(t, prompt, "free-form listing notes")

	assert.Contains(t, prompt, "- Intent: metrics (confidence 0.83)")
	assert.Contains(t, prompt, "- Expected result shape: single_number")
	assert.Contains(t, prompt, `relative period "last month"`)
	assert.Contains(t, prompt, "- Complexity: simple")

	assert.Contains(t, prompt, `Columns referenced: "price"`)
	assert.Contains(t, prompt, "Aggregations requested: AVG")
	assert.Contains(t, prompt, `Filter values mentioned: "active"`)
	assert.Contains(t, prompt, "Time periods mentioned: last month")

	assert.Contains(t, prompt, "Return ONLY the SQL statement")
	assert.NotContains(t, prompt, "Prior Conversation Context")
}

func TestBuildQueryPlanPrompt_PriorContextAppended(t *testing.T) {
	prior := "Earlier we looked at pricing for the west region."

	prompt := BuildQueryPlanPrompt("And for the east region?", testSchema(), models.Intent{
		Primary:    models.IntentExploration,
		Confidence: 0.5,
		ResultType: models.ResultSummary,
		Complexity: models.ComplexitySimple,
	}, models.EntitySet{}, prior)

	assert.Contains(t, prompt, "## Prior Conversation Context")
	assert.Contains(t, prompt, prior)

	// Appended after everything else, untouched.
	ctxIdx := strings.Index(prompt, prior)
	rulesIdx := strings.Index(prompt, "Return ONLY the SQL statement")
	assert.Greater(t, ctxIdx, rulesIdx)
}

func TestBuildQueryPlanPrompt_EmptyGroupsOmitted(t *testing.T) {
	schema := &models.DatasetSchema{
		TableName: "events",
		RowCount:  10,
		Columns: []models.ColumnProfile{
			{Name: "total", DataType: "bigint", BusinessType: models.BusinessTypeNumeric},
		},
	}

	prompt := BuildQueryPlanPrompt("How many events?", schema, models.Intent{
		Primary:    models.IntentMetrics,
		Confidence: 1,
		ResultType: models.ResultSingleNumber,
		Complexity: models.ComplexitySimple,
	}, models.EntitySet{}, "")

	assert.Contains(t, prompt, "### Metrics")
	assert.NotContains(t, prompt, "### Identifiers")
	assert.NotContains(t, prompt, "### Categories")
	assert.NotContains(t, prompt, "### Dates")
	assert.NotContains(t, prompt, "### Descriptions")
	assert.NotContains(t, prompt, "## Extracted Entities")
	assert.NotContains(t, prompt, "Time dimension")
}

func TestBuildQueryPlanSystemMessage(t *testing.T) {
	msg := BuildQueryPlanSystemMessage()
	assert.Contains(t, msg, "PostgreSQL")
	assert.Contains(t, msg, "read-only")
}
