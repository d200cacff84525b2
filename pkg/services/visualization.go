package services

import (
	"strings"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
)

// Cardinality limits for treating columns as chartable categories. A column
// with more distinct values than the grouping limit renders as a table
// instead; pie charts tolerate even fewer slices than bars.
const (
	maxCategoricalCardinality = 20
	barCardinalityMax         = 10
	pieCardinalityMax         = 8
)

// columnShape is one result column classified for charting: its resolved
// business kind plus the distinct count observed in the actual result rows.
type columnShape struct {
	Name        string
	Display     string
	Numeric     bool
	Categorical bool
	Date        bool
	Distinct    int
}

// resultShape is the charting view of a normalized result: every column
// classified, with the numeric, categorical, and date columns pulled out in
// result order.
type resultShape struct {
	Columns     []columnShape
	Numeric     []columnShape
	Categorical []columnShape
	Dates       []columnShape
}

// minCategoricalCardinality returns the smallest distinct count among the
// categorical columns, or 0 when there are none.
func (s resultShape) minCategoricalCardinality() int {
	min := 0
	for i, c := range s.Categorical {
		if i == 0 || c.Distinct < min {
			min = c.Distinct
		}
	}
	return min
}

// analyzeResult classifies every result column. Schema business types win
// when the column is known; derived columns the schema has never seen
// (aggregates, expressions) fall back to the value kinds present in the
// result. Cardinality always comes from the result rows, not the profile,
// because a grouped result has far fewer distinct values than the source
// column. Identifier columns stay unclassified so they never drive grouping.
func analyzeResult(result *models.ExecutionResult, schema *models.DatasetSchema) resultShape {
	shape := resultShape{}
	if result == nil {
		return shape
	}

	for _, name := range result.Columns {
		values := result.ColumnValues(name)
		col := columnShape{
			Name:     name,
			Display:  (&models.ColumnProfile{Name: name}).DisplayName(),
			Distinct: distinctCount(values),
		}

		var profile *models.ColumnProfile
		if schema != nil {
			profile = schema.Column(name)
		}

		switch {
		case profile != nil:
			col.Display = profile.DisplayName()
			switch {
			case profile.IsNumeric():
				col.Numeric = true
			case profile.IsDate():
				col.Date = true
			case profile.IsCategorical(), profile.BusinessType == models.BusinessTypeText:
				col.Categorical = col.Distinct > 0 && col.Distinct <= maxCategoricalCardinality
			}
		default:
			classifyByValues(&col, values)
		}

		shape.Columns = append(shape.Columns, col)
		if col.Numeric {
			shape.Numeric = append(shape.Numeric, col)
		}
		if col.Categorical {
			shape.Categorical = append(shape.Categorical, col)
		}
		if col.Date {
			shape.Dates = append(shape.Dates, col)
		}
	}
	return shape
}

// classifyByValues infers a column's kind from its normalized values, used
// for columns the schema does not know. The first non-null kind decides;
// mixed columns stay unclassified and render as table cells.
func classifyByValues(col *columnShape, values []models.Value) {
	kind := models.ValueNull
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if kind == models.ValueNull {
			kind = v.Kind
			continue
		}
		if kind != v.Kind && !bothNumericKinds(kind, v.Kind) {
			return
		}
	}

	switch kind {
	case models.ValueInteger, models.ValueFloat:
		col.Numeric = true
	case models.ValueTimestamp:
		col.Date = true
	case models.ValueString, models.ValueBool:
		col.Categorical = col.Distinct > 0 && col.Distinct <= maxCategoricalCardinality
	}
}

func bothNumericKinds(a, b models.ValueKind) bool {
	numeric := func(k models.ValueKind) bool {
		return k == models.ValueInteger || k == models.ValueFloat
	}
	return numeric(a) && numeric(b)
}

// distinctCount counts distinct non-null values by display rendering.
func distinctCount(values []models.Value) int {
	seen := make(map[string]struct{})
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	return len(seen)
}

// VisualizationSelector picks a chart type for a result. The decision is a
// fixed first-match list over question keywords, intent, and result shape,
// so the same inputs always select the same chart.
type VisualizationSelector struct {
	vocab  ChartVocabulary
	logger *zap.Logger
}

// NewVisualizationSelector creates a selector using the given vocabulary's
// chart keyword tables.
func NewVisualizationSelector(vocab Vocabulary, logger *zap.Logger) *VisualizationSelector {
	return &VisualizationSelector{
		vocab:  vocab.Charts,
		logger: logger.Named("visualization-selector"),
	}
}

// Select returns the chart type for the question and its result.
func (s *VisualizationSelector) Select(question string, intent models.Intent, result *models.ExecutionResult, schema *models.DatasetSchema) models.ChartType {
	q := strings.ToLower(question)
	shape := analyzeResult(result, schema)
	rowCount := 0
	columnCount := 0
	if result != nil {
		rowCount = result.RowCount
		columnCount = len(result.Columns)
	}

	chart := s.selectChart(q, intent, shape, rowCount, columnCount)
	s.logger.Debug("Selected chart type",
		zap.String("chart_type", string(chart)),
		zap.Int("row_count", rowCount),
		zap.Int("numeric_columns", len(shape.Numeric)),
		zap.Int("categorical_columns", len(shape.Categorical)),
		zap.Int("date_columns", len(shape.Dates)))
	return chart
}

func (s *VisualizationSelector) selectChart(q string, intent models.Intent, shape resultShape, rowCount, columnCount int) models.ChartType {
	if containsAny(q, s.vocab.CountTerms) && (strings.Contains(q, "active") || rowCount <= 10) {
		return models.ChartKPI
	}

	for _, family := range s.vocab.Families {
		if containsAny(q, family.Terms) && shapeSupports(family.Chart, shape) {
			return family.Chart
		}
	}

	if rowCount == 1 && columnCount == 1 {
		return models.ChartMetric
	}
	if intent.Primary == models.IntentMetrics && rowCount <= 10 {
		return models.ChartKPI
	}
	if len(shape.Dates) >= 1 && len(shape.Numeric) >= 1 {
		return models.ChartLine
	}
	if cardinality := shape.minCategoricalCardinality(); len(shape.Categorical) >= 1 && cardinality <= barCardinalityMax && len(shape.Numeric) >= 1 {
		if cardinality <= pieCardinalityMax && containsAny(q, s.vocab.BreakdownTerms) {
			return models.ChartPie
		}
		return models.ChartBar
	}
	if len(shape.Numeric) >= 2 {
		return models.ChartScatter
	}
	if len(shape.Numeric) == 1 {
		return models.ChartHistogram
	}
	return models.ChartTable
}

// shapeSupports gates explicitly requested chart types on the data actually
// being able to feed them. An unsupported request falls through to the
// shape-driven rules instead of producing an empty chart.
func shapeSupports(chart models.ChartType, shape resultShape) bool {
	switch chart {
	case models.ChartHistogram:
		return len(shape.Numeric) >= 1
	case models.ChartBar, models.ChartPie:
		return len(shape.Categorical) >= 1
	case models.ChartLine:
		return len(shape.Dates) >= 1
	case models.ChartScatter, models.ChartHeatmap:
		return len(shape.Numeric) >= 2
	default:
		return true
	}
}
