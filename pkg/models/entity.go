package models

// Aggregation is a SQL aggregate function requested by a question.
type Aggregation string

const (
	AggregationCount Aggregation = "COUNT"
	AggregationSum   Aggregation = "SUM"
	AggregationAvg   Aggregation = "AVG"
	AggregationMax   Aggregation = "MAX"
	AggregationMin   Aggregation = "MIN"
)

// EntitySet holds everything extracted from a question against a schema:
// matched columns, requested aggregations, quoted filter literals, and
// recognized time periods. Columns always name real schema columns; filters
// are raw literals, unvalidated against column types.
type EntitySet struct {
	Columns      []string      `json:"columns"`
	Aggregations []Aggregation `json:"aggregations"`
	Filters      []string      `json:"filters"`
	TimePeriods  []string      `json:"time_periods"`
}

// HasAggregation reports whether the given function was requested.
func (e *EntitySet) HasAggregation(a Aggregation) bool {
	for _, got := range e.Aggregations {
		if got == a {
			return true
		}
	}
	return false
}
