package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
)

const maxInsights = 4
const maxRecommendedActions = 4

// Missing-value share thresholds, in percent, for the two warning tiers.
const (
	missingSeverePct = 20.0
	missingNoticePct = 5.0
)

// skewThreshold is the relative mean/median gap beyond which a distribution
// is reported as skewed.
const skewThreshold = 0.2

// entityLabelOrder fixes the scan order for naming the counted thing in an
// answer. Labels are checked against question words before synonyms so that
// "users" names users even though the customer synonyms also cover it.
var entityLabelOrder = []string{
	"users", "customers", "people", "sales", "orders", "products", "revenue",
}

// InsightNarrator produces the narrative parts of a response: the answer
// paragraph, the insight bullets, and the recommended follow-up actions.
// Everything is templated over computed aggregates; the LLM is never
// involved, so narration works identically on fallback runs.
type InsightNarrator struct {
	vocab  Vocabulary
	logger *zap.Logger
}

// NewInsightNarrator creates a narrator using the vocabulary's aggregation
// and synonym tables.
func NewInsightNarrator(vocab Vocabulary, logger *zap.Logger) *InsightNarrator {
	return &InsightNarrator{
		vocab:  vocab,
		logger: logger.Named("insight-narrator"),
	}
}

// ComposeAnswer writes the one-paragraph answer for a finished run. The
// template is chosen by intent; count questions about "active" records get
// the active/inactive breakdown with one-decimal percentages.
func (n *InsightNarrator) ComposeAnswer(question string, intent models.Intent, result *models.ExecutionResult, schema *models.DatasetSchema) string {
	if result == nil || result.RowCount == 0 {
		return noDataAnswer(intent)
	}

	q := strings.ToLower(question)
	shape := analyzeResult(result, schema)

	switch intent.Primary {
	case models.IntentMetrics:
		return n.metricsAnswer(q, result, shape)
	case models.IntentRankings:
		if containsAny(q, []string{"worst", "lowest", "bottom"}) {
			return fmt.Sprintf("Here are the bottom %d results.", result.RowCount)
		}
		return fmt.Sprintf("Here are the top %d results.", result.RowCount)
	case models.IntentTrends:
		if intent.Time.Granularity != "" {
			return fmt.Sprintf("Here is the %s trend across %d data points.", intent.Time.Granularity, result.RowCount)
		}
		return fmt.Sprintf("Here is the trend across %d data points.", result.RowCount)
	case models.IntentComparisons:
		categories := result.RowCount
		if len(shape.Categorical) > 0 {
			categories = shape.Categorical[0].Distinct
		}
		return fmt.Sprintf("The comparison covers %d different categories.", categories)
	case models.IntentFilters:
		return fmt.Sprintf("Found %d records matching your filters.", result.RowCount)
	default:
		return fmt.Sprintf("The query returned %d rows across %d columns.", result.RowCount, len(result.Columns))
	}
}

func (n *InsightNarrator) metricsAnswer(q string, result *models.ExecutionResult, shape resultShape) string {
	if strings.Contains(q, "active") {
		if col, ok := statusColumn(result, shape); ok {
			total := result.RowCount
			active := 0
			for _, v := range result.ColumnValues(col.Name) {
				if strings.EqualFold(v.String(), "active") {
					active++
				}
			}
			entity := n.entityLabel(q)
			activePct := round1(float64(active) / float64(total) * 100)
			inactivePct := round1(float64(total-active) / float64(total) * 100)
			return fmt.Sprintf("There are %d active %s out of %d total (%.1f%% active, %.1f%% inactive).",
				active, entity, total, activePct, inactivePct)
		}
	}

	if containsAny(q, n.vocab.Entities.Aggregations[models.AggregationCount]) {
		count := fmt.Sprintf("%d", result.RowCount)
		if v, ok := singleCell(result); ok {
			if _, numeric := v.AsFloat(); numeric {
				count = v.String()
			}
		}
		return fmt.Sprintf("There are %s %s.", count, n.entityLabel(q))
	}

	if v, ok := singleCell(result); ok {
		return fmt.Sprintf("The %s is %s.", strings.ToLower(shape.Columns[0].Display), v.String())
	}

	return fmt.Sprintf("The query returned %d rows across %d columns.", result.RowCount, len(result.Columns))
}

// entityLabel names the thing being counted, falling back to "records".
// Question words are singularized before matching so "orders" hits "order".
func (n *InsightNarrator) entityLabel(q string) string {
	words := questionWords(q)

	for _, label := range entityLabelOrder {
		for _, w := range words {
			if w == label || inflection.Singular(w) == inflection.Singular(label) {
				return label
			}
		}
	}
	for _, label := range entityLabelOrder {
		synonyms := n.vocab.Entities.Synonyms[label]
		for _, w := range words {
			ws := inflection.Singular(w)
			for _, syn := range synonyms {
				if w == syn || ws == syn {
					return label
				}
			}
		}
	}
	return "records"
}

func noDataAnswer(intent models.Intent) string {
	switch intent.Primary {
	case models.IntentMetrics:
		return "No data found to calculate the requested metric."
	case models.IntentTrends:
		return "No data found for the requested time period."
	case models.IntentRankings:
		return "No records found to rank."
	case models.IntentComparisons:
		return "No data found to compare."
	default:
		return "No data found matching your question."
	}
}

func singleCell(result *models.ExecutionResult) (models.Value, bool) {
	if result != nil && result.RowCount == 1 && len(result.Columns) == 1 && len(result.Rows) == 1 && len(result.Rows[0]) == 1 {
		return result.Rows[0][0], true
	}
	return models.Value{}, false
}

// Insights derives up to four observations from the result: the dominant
// category's share, the missing-value rate, the skew of the first numeric
// column, its range, and whether the result was truncated.
func (n *InsightNarrator) Insights(result *models.ExecutionResult, schema *models.DatasetSchema) []string {
	if result == nil || result.RowCount == 0 {
		return nil
	}
	shape := analyzeResult(result, schema)
	var insights []string

	if len(shape.Categorical) > 0 {
		col := shape.Categorical[0]
		labels, counts := valueCounts(result, col)
		if len(labels) > 0 {
			topIdx := 0
			var total float64
			for i, c := range counts {
				total += c
				if c > counts[topIdx] {
					topIdx = i
				}
			}
			if total > 0 {
				share := counts[topIdx] / total * 100
				insights = append(insights, fmt.Sprintf("'%s' accounts for %.1f%% of records by %s.",
					labels[topIdx], share, strings.ToLower(col.Display)))
			}
		}
	}

	if missing := missingPct(result); missing > missingSeverePct {
		insights = append(insights, fmt.Sprintf("%.1f%% of values are missing, which may affect result accuracy.", missing))
	} else if missing > missingNoticePct {
		insights = append(insights, fmt.Sprintf("%.1f%% of values are missing.", missing))
	}

	if len(shape.Numeric) > 0 {
		col := shape.Numeric[0]
		values := numericValues(result, col.Name)
		if len(values) > 1 {
			mean := meanOf(values)
			median := medianOf(values)
			display := strings.ToLower(col.Display)
			switch {
			case median != 0 && math.Abs(mean-median)/math.Abs(median) > skewThreshold:
				if mean > median {
					insights = append(insights, fmt.Sprintf("The %s distribution skews high; a few large values pull the average above the median.", display))
				} else {
					insights = append(insights, fmt.Sprintf("The %s distribution skews low; a few small values pull the average below the median.", display))
				}
			default:
				insights = append(insights, fmt.Sprintf("The %s values are evenly distributed around the average.", display))
			}

			min, max := values[0], values[0]
			for _, v := range values[1:] {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			insights = append(insights, fmt.Sprintf("%s ranges from %s to %s.", col.Display, formatNumber(min), formatNumber(max)))
		}
	}

	if result.Truncated {
		insights = append(insights, fmt.Sprintf("Results were capped at %d rows; totals may be higher.", result.RowCount))
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// RecommendedActions returns up to four follow-up suggestions from a fixed
// table keyed by chart type, with one extra keyed by intent.
func (n *InsightNarrator) RecommendedActions(chartType models.ChartType, intent models.Intent) []string {
	actions := append([]string{}, chartActions[chartType]...)

	switch intent.Primary {
	case models.IntentTrends:
		actions = append(actions, "Compare against the previous period")
	case models.IntentComparisons:
		actions = append(actions, "Add another dimension for cross analysis")
	case models.IntentExploration:
		actions = append(actions, "Explore relationships across more columns")
	}

	if len(actions) > maxRecommendedActions {
		actions = actions[:maxRecommendedActions]
	}
	return actions
}

var chartActions = map[models.ChartType][]string{
	models.ChartKPI:       {"Track this metric over time", "Break the number down by category"},
	models.ChartMetric:    {"Track this metric over time", "Break the number down by category"},
	models.ChartBar:       {"Focus on the top categories", "Investigate the low performers"},
	models.ChartPie:       {"Group the smallest segments together", "Watch how the shares shift over time"},
	models.ChartLine:      {"Investigate periods of rapid change", "Extend the date range for more context"},
	models.ChartScatter:   {"Review the outlier points", "Quantify the relationship between the two measures"},
	models.ChartHistogram: {"Examine values outside the main cluster", "Segment the data by value range"},
	models.ChartHeatmap:   {"Focus on the strongly correlated pairs"},
	models.ChartDashboard: {"Drill into any panel for detail"},
	models.ChartTable:     {"Aggregate the data for a clearer picture", "Add filters to narrow the result"},
}

// missingPct returns the share of null cells across the whole result.
func missingPct(result *models.ExecutionResult) float64 {
	totalCells := result.RowCount * len(result.Columns)
	if totalCells == 0 {
		return 0
	}
	nulls := 0
	for _, row := range result.Rows {
		for _, v := range row {
			if v.IsNull() {
				nulls++
			}
		}
	}
	return float64(nulls) / float64(totalCells) * 100
}

func numericValues(result *models.ExecutionResult, column string) []float64 {
	var out []float64
	for _, v := range result.ColumnValues(column) {
		if f, ok := v.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func medianOf(values []float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// formatNumber renders a float the way result values render: whole numbers
// without a fraction, everything else compactly.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
