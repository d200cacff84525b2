package models

// IntentCategory is the classified purpose of a question.
type IntentCategory string

const (
	IntentMetrics     IntentCategory = "metrics"
	IntentRankings    IntentCategory = "rankings"
	IntentTrends      IntentCategory = "trends"
	IntentComparisons IntentCategory = "comparisons"
	IntentFilters     IntentCategory = "filters"
	IntentExploration IntentCategory = "exploration"
)

// ValidIntentCategories contains all valid intent category values.
var ValidIntentCategories = []IntentCategory{
	IntentMetrics,
	IntentRankings,
	IntentTrends,
	IntentComparisons,
	IntentFilters,
	IntentExploration,
}

// ResultType describes the shape of answer a question expects.
type ResultType string

const (
	ResultSingleNumber    ResultType = "single_number"
	ResultRankedList      ResultType = "ranked_list"
	ResultTimeSeries      ResultType = "time_series"
	ResultComparisonChart ResultType = "comparison_chart"
	ResultDataTable       ResultType = "data_table"
	ResultSummary         ResultType = "summary"
)

// Complexity buckets a question's structural difficulty.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// TimeDimension captures whether and how a question references time.
type TimeDimension struct {
	HasTime     bool   `json:"has_time"`
	Granularity string `json:"granularity,omitempty"` // hourly, daily, weekly, monthly, quarterly, yearly
	Relative    string `json:"relative,omitempty"`    // last_week, this_month, ...
}

// Intent is the classification result for one question. Created per question
// and discarded after the response.
type Intent struct {
	Primary    IntentCategory `json:"primary_intent"`
	Confidence float64        `json:"confidence"`
	ResultType ResultType     `json:"result_type"`
	Time       TimeDimension  `json:"time_dimension"`
	Complexity Complexity     `json:"complexity"`
}
