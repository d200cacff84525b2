package services

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/sql"
)

// quotedLiteral captures single- or double-quoted substrings of a question.
var quotedLiteral = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)

// aggregationScanOrder fixes the order aggregations are reported in.
var aggregationScanOrder = []models.Aggregation{
	models.AggregationCount,
	models.AggregationSum,
	models.AggregationAvg,
	models.AggregationMax,
	models.AggregationMin,
}

// EntityExtractor pulls column references, aggregations, filter literals,
// and time periods out of a question using the dataset schema.
type EntityExtractor struct {
	vocab  EntityVocabulary
	logger *zap.Logger
}

func NewEntityExtractor(vocab Vocabulary, logger *zap.Logger) *EntityExtractor {
	return &EntityExtractor{
		vocab:  vocab.Entities,
		logger: logger.Named("entity-extractor"),
	}
}

// Extract builds the EntitySet for one question. Filter literals that carry
// an injection fingerprint are dropped here, before they can reach a
// generation prompt.
func (e *EntityExtractor) Extract(question string, schema *models.DatasetSchema) models.EntitySet {
	set := e.match(question, schema)
	set.Filters = e.screenFilters(set.Filters)
	return set
}

// EntityCount reports how many entities the question references. It feeds
// the intent classifier's complexity score; filters count before screening.
func (e *EntityExtractor) EntityCount(question string, schema *models.DatasetSchema) int {
	set := e.match(question, schema)
	return len(set.Columns) + len(set.Aggregations) + len(set.Filters) + len(set.TimePeriods)
}

func (e *EntityExtractor) match(question string, schema *models.DatasetSchema) models.EntitySet {
	q := strings.ToLower(question)
	return models.EntitySet{
		Columns:      e.matchColumns(q, schema),
		Aggregations: e.matchAggregations(q),
		Filters:      extractQuoted(question),
		TimePeriods:  e.matchTimePeriods(q),
	}
}

// matchColumns returns the schema columns the question mentions, in schema
// order. A column matches directly (name, spaced name, squashed name, or
// description appearing in the question) or through a business-term synonym.
func (e *EntityExtractor) matchColumns(q string, schema *models.DatasetSchema) []string {
	if schema == nil {
		return nil
	}
	words := questionWords(q)
	var cols []string
	for _, col := range schema.Columns {
		if columnMentioned(q, col) || e.synonymMatch(words, col.Name) {
			cols = append(cols, col.Name)
		}
	}
	return cols
}

func columnMentioned(q string, col models.ColumnProfile) bool {
	name := strings.ToLower(col.Name)
	variants := []string{
		name,
		strings.ReplaceAll(name, "_", " "),
		strings.ReplaceAll(name, "_", ""),
		strings.ToLower(col.Description),
	}
	for _, v := range variants {
		if v != "" && strings.Contains(q, v) {
			return true
		}
	}
	return false
}

// synonymMatch tests whether any business term present in the question maps
// to a fragment of the column name. Terms and question words are compared in
// singular form, so "customer" finds the "customers" row.
func (e *EntityExtractor) synonymMatch(words []string, columnName string) bool {
	name := strings.ToLower(columnName)
	for term, fragments := range e.vocab.Synonyms {
		if !wordsMention(words, term) {
			continue
		}
		for _, frag := range fragments {
			if strings.Contains(name, frag) {
				return true
			}
		}
	}
	return false
}

func wordsMention(words []string, term string) bool {
	singular := inflection.Singular(term)
	for _, w := range words {
		if w == term || inflection.Singular(w) == singular {
			return true
		}
	}
	return false
}

func (e *EntityExtractor) matchAggregations(q string) []models.Aggregation {
	var aggs []models.Aggregation
	for _, agg := range aggregationScanOrder {
		if containsAny(q, e.vocab.Aggregations[agg]) {
			aggs = append(aggs, agg)
		}
	}
	return aggs
}

func (e *EntityExtractor) matchTimePeriods(q string) []string {
	var periods []string
	for _, p := range e.vocab.TimePeriods {
		if strings.Contains(q, p) {
			periods = append(periods, p)
		}
	}
	return periods
}

func extractQuoted(question string) []string {
	var filters []string
	for _, m := range quotedLiteral.FindAllStringSubmatch(question, -1) {
		literal := m[1]
		if literal == "" {
			literal = m[2]
		}
		if literal != "" {
			filters = append(filters, literal)
		}
	}
	return filters
}

func (e *EntityExtractor) screenFilters(filters []string) []string {
	var clean []string
	for _, f := range filters {
		if res := sql.CheckFilterLiteral(f); res != nil {
			e.logger.Warn("Dropping filter literal flagged as injection",
				zap.String("fingerprint", res.Fingerprint),
				zap.Int("literal_len", len(f)))
			continue
		}
		clean = append(clean, f)
	}
	return clean
}
