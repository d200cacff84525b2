package services

import (
	"math"
	"strings"

	"github.com/insightloop/insight-engine/pkg/models"
)

// intentScanOrder fixes the tie-break for category scoring: with equal
// confidence the earlier category wins.
var intentScanOrder = []models.IntentCategory{
	models.IntentMetrics,
	models.IntentComparisons,
	models.IntentTrends,
	models.IntentRankings,
	models.IntentFilters,
}

// IntentClassifier scores a question against the intent keyword tables.
// Classification is pure string work; the same question and schema always
// produce the same Intent.
type IntentClassifier struct {
	vocab     IntentVocabulary
	extractor *EntityExtractor
}

// NewIntentClassifier builds a classifier. The extractor supplies the entity
// count that feeds the complexity score.
func NewIntentClassifier(vocab Vocabulary, extractor *EntityExtractor) *IntentClassifier {
	return &IntentClassifier{vocab: vocab.Intent, extractor: extractor}
}

// Classify produces the Intent for one question.
func (c *IntentClassifier) Classify(question string, schema *models.DatasetSchema) models.Intent {
	q := strings.ToLower(question)

	primary, confidence := c.scoreCategories(q)
	return models.Intent{
		Primary:    primary,
		Confidence: confidence,
		ResultType: c.resultType(q),
		Time:       c.timeDimension(q),
		Complexity: c.complexity(question, q, schema),
	}
}

// scoreCategories picks the category with the highest keyword-hit ratio.
// A question matching nothing is exploration at 0.5.
func (c *IntentClassifier) scoreCategories(q string) (models.IntentCategory, float64) {
	best := models.IntentExploration
	bestScore := 0.0
	for _, category := range intentScanOrder {
		keywords := c.vocab.Keywords[category]
		if len(keywords) == 0 {
			continue
		}
		score := float64(countHits(q, keywords)) / float64(len(keywords))
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	if bestScore == 0 {
		return models.IntentExploration, 0.5
	}
	return best, bestScore
}

func (c *IntentClassifier) resultType(q string) models.ResultType {
	switch {
	case containsAny(q, c.vocab.SingleNumberTerms):
		return models.ResultSingleNumber
	case containsAny(q, c.vocab.RankedListTerms):
		return models.ResultRankedList
	case containsAny(q, c.vocab.TimeSeriesTerms):
		return models.ResultTimeSeries
	case containsAny(q, c.vocab.ComparisonTerms):
		return models.ResultComparisonChart
	case containsAny(q, c.vocab.TableTerms):
		return models.ResultDataTable
	default:
		return models.ResultSummary
	}
}

func (c *IntentClassifier) timeDimension(q string) models.TimeDimension {
	dim := models.TimeDimension{HasTime: containsAny(q, c.vocab.TimeIndicators)}
	for _, g := range c.vocab.Granularities {
		if containsAny(q, g.Terms) {
			dim.Granularity = g.Name
			break
		}
	}
	for _, r := range c.vocab.RelativePeriods {
		if containsAny(q, r.Terms) {
			dim.Relative = r.Name
			break
		}
	}
	return dim
}

// complexity weighs entity count, analytical wording, and conditional
// wording. Each term has its own cap so a long question cannot saturate the
// score through one dimension alone.
func (c *IntentClassifier) complexity(question, q string, schema *models.DatasetSchema) models.Complexity {
	score := math.Min(float64(c.extractor.EntityCount(question, schema))/5.0, 1.0)
	score += math.Min(float64(countHits(q, c.vocab.ComplexTerms))/3.0, 1.0)
	score += math.Min(float64(countHits(q, c.vocab.ConditionTerms))/4.0, 0.5)

	switch {
	case score < 0.3:
		return models.ComplexitySimple
	case score < 0.7:
		return models.ComplexityModerate
	default:
		return models.ComplexityComplex
	}
}
