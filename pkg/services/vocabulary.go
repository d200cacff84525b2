package services

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/insightloop/insight-engine/pkg/models"
)

// TermGroup names one recognized value and the phrases that select it.
// Groups are matched in slice order; the first group with a hit wins.
type TermGroup struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Vocabulary holds every keyword table the deterministic pipeline stages
// match against. Components receive it by value at construction and never
// mutate it, so one Vocabulary is shared safely across concurrent questions.
// All phrases are lowercase; matching is case-insensitive substring unless a
// field documents otherwise.
type Vocabulary struct {
	Intent       IntentVocabulary       `yaml:"intent"`
	Entities     EntityVocabulary       `yaml:"entities"`
	Charts       ChartVocabulary        `yaml:"charts"`
	Conversation ConversationVocabulary `yaml:"conversation"`
	Suggestions  SuggestionVocabulary   `yaml:"suggestions"`
}

// IntentVocabulary drives the intent classifier.
type IntentVocabulary struct {
	// Keywords score each category; confidence is hits over table size.
	Keywords map[models.IntentCategory][]string `yaml:"keywords"`

	// Result shape cues, checked in field order; first family with a hit
	// decides the result type.
	SingleNumberTerms []string `yaml:"single_number_terms"`
	RankedListTerms   []string `yaml:"ranked_list_terms"`
	TimeSeriesTerms   []string `yaml:"time_series_terms"`
	ComparisonTerms   []string `yaml:"comparison_terms"`
	TableTerms        []string `yaml:"table_terms"`

	// Time dimension tables.
	TimeIndicators  []string    `yaml:"time_indicators"`
	Granularities   []TermGroup `yaml:"granularities"`
	RelativePeriods []TermGroup `yaml:"relative_periods"`

	// Complexity scoring terms.
	ComplexTerms   []string `yaml:"complex_terms"`
	ConditionTerms []string `yaml:"condition_terms"`
}

// EntityVocabulary drives the entity extractor.
type EntityVocabulary struct {
	// Aggregations maps each SQL function to the phrases that request it.
	Aggregations map[models.Aggregation][]string `yaml:"aggregations"`

	// Synonyms maps a business term to the column-name fragments it
	// implies. Question words are singularized before lookup, so both
	// "customer" and "customers" hit the "customers" row.
	Synonyms map[string][]string `yaml:"synonyms"`

	// TimePeriods are matched verbatim; all hits are kept.
	TimePeriods []string `yaml:"time_periods"`
}

// ChartKeywordFamily maps explicit chart wording to a chart type.
type ChartKeywordFamily struct {
	Chart models.ChartType `yaml:"chart"`
	Terms []string         `yaml:"terms"`
}

// ChartVocabulary drives the visualization selector.
type ChartVocabulary struct {
	// CountTerms trigger the KPI rule together with "active" wording or a
	// small result.
	CountTerms []string `yaml:"count_terms"`

	// Families are checked in order; each is shape-guarded by the
	// selector (a histogram request without a numeric column falls
	// through to the next rule).
	Families []ChartKeywordFamily `yaml:"families"`

	// BreakdownTerms turn a low-cardinality categorical bar into a pie.
	BreakdownTerms []string `yaml:"breakdown_terms"`
}

// ConversationVocabulary drives the conversational-message detector.
type ConversationVocabulary struct {
	// DataIndicators force a message into the pipeline. They are checked
	// before anything else, so "hi, how many users?" is a data question.
	DataIndicators []string `yaml:"data_indicators"`

	// Patterns mark a message conversational. Single-word patterns match
	// whole words only; phrases match as substrings.
	Patterns []string `yaml:"patterns"`

	// QueryStarters at the head of a message mean data, unless the
	// message also carries a GeneralInfoTerm ("tell me about yourself").
	QueryStarters    []string `yaml:"query_starters"`
	GeneralInfoTerms []string `yaml:"general_info_terms"`

	// BusinessTerms keep business-flavored messages in the pipeline even
	// when they carry no explicit data verb.
	BusinessTerms []string `yaml:"business_terms"`

	// Acknowledgements are single-word messages treated as conversation.
	Acknowledgements []string `yaml:"acknowledgements"`
}

// StarterFamily maps partial-question openings to canned completions.
// Suggestions may contain one %s verb, filled with the dataset display name.
type StarterFamily struct {
	Prefixes    []string `yaml:"prefixes,omitempty"`
	Contains    []string `yaml:"contains,omitempty"`
	Suggestions []string `yaml:"suggestions"`
}

// SuggestionVocabulary drives contextual question suggestions.
type SuggestionVocabulary struct {
	Starters []StarterFamily `yaml:"starters"`
}

// DefaultVocabulary returns the built-in tables. Deployments that need
// domain wording beyond these provide a YAML override file via
// PIPELINE_VOCABULARY_PATH.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Intent: IntentVocabulary{
			Keywords: map[models.IntentCategory][]string{
				models.IntentMetrics:     {"total", "sum", "average", "avg", "count", "how many", "number of"},
				models.IntentComparisons: {"compare", "vs", "versus", "against", "between"},
				models.IntentTrends:      {"trend", "over time", "monthly", "weekly", "daily", "growth", "change"},
				models.IntentRankings:    {"top", "best", "worst", "highest", "lowest", "most", "least"},
				models.IntentFilters:     {"where", "when", "only", "except", "excluding", "including"},
			},
			SingleNumberTerms: []string{"how many", "count", "number of", "total", "sum", "average", "avg"},
			RankedListTerms:   []string{"top", "best", "worst"},
			TimeSeriesTerms:   []string{"over time", "trend", "growth"},
			ComparisonTerms:   []string{"compare", "vs", "versus"},
			TableTerms:        []string{"show me", "list", "all"},
			TimeIndicators:    []string{"time", "date", "when", "during", "over", "by", "monthly", "daily", "yearly"},
			Granularities: []TermGroup{
				{Name: "hourly", Terms: []string{"hourly", "by hour", "per hour"}},
				{Name: "daily", Terms: []string{"daily", "by day", "per day", "each day"}},
				{Name: "weekly", Terms: []string{"weekly", "by week", "per week", "each week"}},
				{Name: "monthly", Terms: []string{"monthly", "by month", "per month", "each month"}},
				{Name: "quarterly", Terms: []string{"quarterly", "by quarter", "per quarter"}},
				{Name: "yearly", Terms: []string{"yearly", "annually", "by year", "per year"}},
			},
			RelativePeriods: []TermGroup{
				{Name: "last_week", Terms: []string{"last week"}},
				{Name: "last_month", Terms: []string{"last month"}},
				{Name: "last_year", Terms: []string{"last year"}},
				{Name: "this_week", Terms: []string{"this week"}},
				{Name: "this_month", Terms: []string{"this month"}},
				{Name: "this_year", Terms: []string{"this year"}},
				{Name: "yesterday", Terms: []string{"yesterday"}},
				{Name: "today", Terms: []string{"today"}},
			},
			ComplexTerms:   []string{"compare", "vs", "trend", "correlation", "breakdown", "distribution", "analysis"},
			ConditionTerms: []string{"and", "or", "but", "except", "only", "where"},
		},
		Entities: EntityVocabulary{
			Aggregations: map[models.Aggregation][]string{
				models.AggregationCount: {"count", "how many", "number of", "total number"},
				models.AggregationSum:   {"sum", "total", "add up"},
				models.AggregationAvg:   {"average", "avg", "mean"},
				models.AggregationMax:   {"maximum", "max", "highest", "largest", "biggest"},
				models.AggregationMin:   {"minimum", "min", "lowest", "smallest"},
			},
			Synonyms: map[string][]string{
				"customers": {"user", "customer", "client", "account"},
				"users":     {"user", "customer", "client", "account"},
				"people":    {"user", "customer", "person", "individual"},
				"sales":     {"sale", "order", "transaction", "purchase"},
				"revenue":   {"revenue", "amount", "value", "price", "cost"},
				"products":  {"product", "item", "goods", "service"},
				"orders":    {"order", "purchase", "transaction", "sale"},
			},
			TimePeriods: []string{
				"today", "yesterday",
				"last week", "this week",
				"last month", "this month",
				"last year", "this year",
				"last quarter", "this quarter",
				"daily", "weekly", "monthly", "yearly", "quarterly",
			},
		},
		Charts: ChartVocabulary{
			CountTerms: []string{"how many", "count", "total", "number of", "kpi"},
			Families: []ChartKeywordFamily{
				{Chart: models.ChartHistogram, Terms: []string{"histogram", "distribution", "spread"}},
				{Chart: models.ChartBar, Terms: []string{"bar", "compare", "comparison", "vs", "versus"}},
				{Chart: models.ChartPie, Terms: []string{"pie", "percentage", "proportion", "share", "breakdown"}},
				{Chart: models.ChartLine, Terms: []string{"line", "trend", "over time", "timeline", "historical"}},
				{Chart: models.ChartScatter, Terms: []string{"scatter", "correlation", "relationship"}},
				{Chart: models.ChartHeatmap, Terms: []string{"heatmap", "correlation matrix"}},
				{Chart: models.ChartDashboard, Terms: []string{"dashboard", "comprehensive"}},
			},
			BreakdownTerms: []string{"distribution", "breakdown", "proportion", "share", "percentage"},
		},
		Conversation: ConversationVocabulary{
			DataIndicators: []string{
				"show", "display", "list", "find", "get", "retrieve", "fetch",
				"analyze", "analysis", "calculate", "count", "sum", "average", "total",
				"data", "records", "rows", "table", "database", "dataset", "information",
				"how many", "what is", "what are", "which", "when", "where",
				"users", "customers", "sales", "revenue", "profit", "orders", "products",
				"active", "inactive", "status", "region", "country", "spending",
				"compare", "comparison", "versus", "vs", "between", "difference",
				"trend", "over time", "historical", "growth", "decline", "change",
				"chart", "graph", "visualization", "plot", "dashboard", "report",
			},
			Patterns: []string{
				"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "greetings",
				"thank you", "thanks", "goodbye", "bye", "see you", "nice to meet",
				"help", "what can you do", "how do you work", "what are your capabilities",
				"who are you", "what are you", "tell me about yourself", "introduce yourself",
				"how are you", "good job", "well done", "amazing", "awesome",
			},
			QueryStarters: []string{
				"how many", "how much", "what is the", "what are the", "show me",
				"give me", "i want", "i need", "can you show", "can you tell me about",
				"what about", "tell me about the", "analyze", "calculate",
			},
			GeneralInfoTerms: []string{"yourself", "your capabilities", "how you work", "what you do"},
			BusinessTerms: []string{
				"business", "company", "organization", "metrics", "kpi", "dashboard",
				"insight", "analytics", "intelligence",
			},
			Acknowledgements: []string{"ok", "okay", "yes", "no", "sure", "great", "cool", "nice"},
		},
		Suggestions: SuggestionVocabulary{
			Starters: []StarterFamily{
				{
					Prefixes: []string{"how many", "count"},
					Suggestions: []string{
						"How many records are in %s?",
						"How many unique values are there?",
						"Count by category or status",
					},
				},
				{
					Prefixes: []string{"what is", "what are"},
					Suggestions: []string{
						"What is the average value?",
						"What are the top categories?",
						"What is the distribution?",
					},
				},
				{
					Prefixes: []string{"show me", "show"},
					Suggestions: []string{
						"Show me trends over time",
						"Show me the breakdown by category",
						"Show me the top 10 records",
					},
				},
				{
					Contains: []string{"trend"},
					Suggestions: []string{
						"Show trends over time",
						"What are the historical patterns?",
						"How has this changed over time?",
					},
				},
			},
		},
	}
}

// LoadVocabulary returns the defaults overlaid with the YAML file at path.
// Sections absent from the file keep their defaults; map keys present in the
// file replace the default entry for that key. An empty path returns the
// defaults unchanged.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return Vocabulary{}, fmt.Errorf("failed to parse vocabulary file %s: %w", path, err)
	}
	return vocab, nil
}

// containsAny reports whether s contains any of the terms as a substring.
func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// countHits counts how many of the terms appear in s.
func countHits(s string, terms []string) int {
	hits := 0
	for _, t := range terms {
		if strings.Contains(s, t) {
			hits++
		}
	}
	return hits
}

// questionWords splits a question into lowercase word tokens.
func questionWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
