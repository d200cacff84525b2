package prompts

import (
	"fmt"
	"strings"

	"github.com/insightloop/insight-engine/pkg/models"
)

// BuildQueryPlanPrompt creates the SQL generation prompt for one question.
// The schema is grouped by business purpose so the model sees identifiers,
// metrics, categories, dates and descriptions as distinct vocabularies, each
// column annotated with its observed range or sample values. Prior
// conversation context, when present, is appended verbatim at the end.
func BuildQueryPlanPrompt(question string, schema *models.DatasetSchema, intent models.Intent, entities models.EntitySet, priorContext string) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Generation Request\n\n")
	prompt.WriteString(fmt.Sprintf("Write one PostgreSQL SELECT statement over the table %q that answers the question below.\n\n", schema.TableName))

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Table\n\n")
	prompt.WriteString(fmt.Sprintf("%s (%d rows)\n\n", schema.TableName, schema.RowCount))

	writeColumnGroup(&prompt, "Identifiers", groupColumns(schema, func(c models.ColumnProfile) bool {
		return c.BusinessType == models.BusinessTypeIdentifier
	}))
	writeColumnGroup(&prompt, "Metrics", groupColumns(schema, func(c models.ColumnProfile) bool {
		return c.IsNumeric()
	}))
	writeColumnGroup(&prompt, "Categories", groupColumns(schema, func(c models.ColumnProfile) bool {
		return c.IsCategorical()
	}))
	writeColumnGroup(&prompt, "Dates", groupColumns(schema, func(c models.ColumnProfile) bool {
		return c.IsDate()
	}))
	writeColumnGroup(&prompt, "Descriptions", groupColumns(schema, func(c models.ColumnProfile) bool {
		return c.BusinessType == models.BusinessTypeText
	}))

	prompt.WriteString("## Question Analysis\n\n")
	prompt.WriteString(fmt.Sprintf("- Intent: %s (confidence %.2f)\n", intent.Primary, intent.Confidence))
	prompt.WriteString(fmt.Sprintf("- Expected result shape: %s\n", intent.ResultType))
	if intent.Time.HasTime {
		timeLine := "- Time dimension: present"
		if intent.Time.Granularity != "" {
			timeLine += fmt.Sprintf(", granularity %s", intent.Time.Granularity)
		}
		if intent.Time.Relative != "" {
			timeLine += fmt.Sprintf(", relative period %q", intent.Time.Relative)
		}
		prompt.WriteString(timeLine + "\n")
	}
	prompt.WriteString(fmt.Sprintf("- Complexity: %s\n\n", intent.Complexity))

	writeEntities(&prompt, entities)

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Produce exactly one SELECT (or WITH) statement. Never write INSERT, UPDATE, DELETE or DDL.\n")
	prompt.WriteString("- Use only the table and columns listed above. Double-quote column names.\n")
	prompt.WriteString("- Prefer an explicit aggregate over SELECT * when the question asks for a number.\n")
	prompt.WriteString("- Add a LIMIT clause unless the result is a single aggregate row.\n\n")
	prompt.WriteString("Return ONLY the SQL statement, no explanation and no markdown fences.\n")

	if priorContext != "" {
		prompt.WriteString("\n## Prior Conversation Context\n\n")
		prompt.WriteString(priorContext)
		prompt.WriteString("\n")
	}

	return prompt.String()
}

// BuildQueryPlanSystemMessage returns the system message for SQL generation.
func BuildQueryPlanSystemMessage() string {
	return `You are an expert data analyst who translates business questions into safe, read-only PostgreSQL queries over a single table.`
}

func groupColumns(schema *models.DatasetSchema, match func(models.ColumnProfile) bool) []models.ColumnProfile {
	var group []models.ColumnProfile
	for _, col := range schema.Columns {
		if match(col) {
			group = append(group, col)
		}
	}
	return group
}

func writeColumnGroup(prompt *strings.Builder, heading string, columns []models.ColumnProfile) {
	if len(columns) == 0 {
		return
	}
	prompt.WriteString(fmt.Sprintf("### %s\n", heading))
	for _, col := range columns {
		line := fmt.Sprintf("- %q (%s)", col.Name, col.DataType)
		if col.Nullable {
			line += " nullable"
		}
		if info := columnInfo(col); info != "" {
			line += ": " + info
		}
		if col.Description != "" {
			line += fmt.Sprintf(" (%s)", col.Description)
		}
		prompt.WriteString(line + "\n")
	}
	prompt.WriteString("\n")
}

// columnInfo renders the per-column profile inline: numeric range, top
// category values, date span, or raw samples.
func columnInfo(col models.ColumnProfile) string {
	switch {
	case col.Numeric != nil:
		return fmt.Sprintf("range %g to %g, mean %g", col.Numeric.Min, col.Numeric.Max, col.Numeric.Mean)
	case col.Categorical != nil && len(col.Categorical.TopValues) > 0:
		parts := make([]string, 0, len(col.Categorical.TopValues))
		for _, tv := range col.Categorical.TopValues {
			parts = append(parts, fmt.Sprintf("%s (%d)", tv.Value, tv.Count))
		}
		return "top values: " + strings.Join(parts, ", ")
	case col.Date != nil:
		return fmt.Sprintf("spans %s to %s",
			col.Date.MinDate.Format("2006-01-02"), col.Date.MaxDate.Format("2006-01-02"))
	case len(col.SampleValues) > 0:
		samples := col.SampleValues
		if len(samples) > 3 {
			samples = samples[:3]
		}
		return "samples: " + strings.Join(samples, ", ")
	}
	return ""
}

func writeEntities(prompt *strings.Builder, entities models.EntitySet) {
	if len(entities.Columns) == 0 && len(entities.Aggregations) == 0 &&
		len(entities.Filters) == 0 && len(entities.TimePeriods) == 0 {
		return
	}

	prompt.WriteString("## Extracted Entities\n\n")
	if len(entities.Columns) > 0 {
		prompt.WriteString("- Columns referenced: " + quoteJoin(entities.Columns) + "\n")
	}
	if len(entities.Aggregations) > 0 {
		aggs := make([]string, len(entities.Aggregations))
		for i, agg := range entities.Aggregations {
			aggs[i] = string(agg)
		}
		prompt.WriteString("- Aggregations requested: " + strings.Join(aggs, ", ") + "\n")
	}
	if len(entities.Filters) > 0 {
		prompt.WriteString("- Filter values mentioned: " + quoteJoin(entities.Filters) + "\n")
	}
	if len(entities.TimePeriods) > 0 {
		prompt.WriteString("- Time periods mentioned: " + strings.Join(entities.TimePeriods, ", ") + "\n")
	}
	prompt.WriteString("\n")
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
