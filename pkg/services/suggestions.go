package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/repositories"
)

const (
	emptyPartialLimit      = 8
	matchedSampleLimit     = 5
	matchedLogLimit        = 3
	starterSuggestionLimit = 3
	recentLogWindow        = 20
)

// SuggestionService proposes questions a user could ask a dataset, from its
// stored sample questions, questions that resolved successfully before
// (the question log), and starter-pattern completions of a partial question.
type SuggestionService interface {
	Suggest(ctx context.Context, datasetID uuid.UUID, partial string) ([]string, error)
}

type suggestionService struct {
	datasets    repositories.DatasetRepository
	questionLog repositories.QuestionLogRepository
	vocab       SuggestionVocabulary
	logger      *zap.Logger
}

// NewSuggestionService creates a SuggestionService backed by the dataset
// repository and the question log. A nil question log disables the
// resolved-question source.
func NewSuggestionService(datasets repositories.DatasetRepository, questionLog repositories.QuestionLogRepository, vocab Vocabulary, logger *zap.Logger) SuggestionService {
	return &suggestionService{
		datasets:    datasets,
		questionLog: questionLog,
		vocab:       vocab.Suggestions,
		logger:      logger.Named("suggestion-service"),
	}
}

var _ SuggestionService = (*suggestionService)(nil)

// Suggest returns suggestions for the dataset. An empty partial returns the
// stored samples; a non-empty partial returns samples sharing a word with it
// plus completions for its starter pattern. Datasets without samples fall
// back to templates derived from the schema.
func (s *suggestionService) Suggest(ctx context.Context, datasetID uuid.UUID, partial string) ([]string, error) {
	dataset, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	partial = strings.TrimSpace(strings.ToLower(partial))
	samples := dataset.SampleQuestions
	resolved := s.resolvedQuestions(ctx, datasetID, samples)

	if partial == "" {
		out := append([]string{}, samples...)
		for _, question := range resolved {
			if len(out) >= emptyPartialLimit {
				break
			}
			out = append(out, question)
		}
		if len(out) > emptyPartialLimit {
			out = out[:emptyPartialLimit]
		}
		if len(out) == 0 {
			return schemaSuggestions(dataset), nil
		}
		return out, nil
	}

	var out []string
	matched := 0
	for _, sample := range samples {
		if matched >= matchedSampleLimit {
			break
		}
		if sharesWord(partial, sample) {
			out = append(out, sample)
			matched++
		}
	}

	matched = 0
	for _, question := range resolved {
		if matched >= matchedLogLimit {
			break
		}
		if sharesWord(partial, question) {
			out = append(out, question)
			matched++
		}
	}

	out = append(out, s.starterSuggestions(partial, dataset)...)
	out = dedupeStrings(out)

	if len(out) == 0 && len(samples) == 0 {
		out = schemaSuggestions(dataset)
	}

	s.logger.Debug("Built suggestions",
		zap.String("dataset_id", datasetID.String()),
		zap.Int("count", len(out)))
	return out, nil
}

// resolvedQuestions returns distinct questions that recently resolved
// successfully against the dataset, newest first, skipping ones already in
// the curated samples. Log failures degrade to an empty list; suggestions
// never fail a request over the log.
func (s *suggestionService) resolvedQuestions(ctx context.Context, datasetID uuid.UUID, samples []string) []string {
	if s.questionLog == nil {
		return nil
	}

	entries, err := s.questionLog.ListRecent(ctx, datasetID, models.QuestionLogFilters{
		SuccessOnly: true,
		Limit:       recentLogWindow,
	})
	if err != nil {
		s.logger.Debug("Question log unavailable for suggestions",
			zap.String("dataset_id", datasetID.String()),
			zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{}, len(samples)+len(entries))
	for _, sample := range samples {
		seen[strings.ToLower(sample)] = struct{}{}
	}

	var out []string
	for _, entry := range entries {
		question := strings.TrimSpace(entry.Question)
		if question == "" {
			continue
		}
		key := strings.ToLower(question)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, question)
	}
	return out
}

// starterSuggestions completes the partial from the first starter family it
// matches, filling dataset placeholders with the display name.
func (s *suggestionService) starterSuggestions(partial string, dataset *models.Dataset) []string {
	name := dataset.DisplayName
	if name == "" {
		name = dataset.Name
	}
	if name == "" {
		name = "the dataset"
	}

	for _, family := range s.vocab.Starters {
		if !starterMatches(partial, family) {
			continue
		}
		limit := len(family.Suggestions)
		if limit > starterSuggestionLimit {
			limit = starterSuggestionLimit
		}
		out := make([]string, 0, limit)
		for _, suggestion := range family.Suggestions[:limit] {
			if strings.Contains(suggestion, "%s") {
				suggestion = fmt.Sprintf(suggestion, name)
			}
			out = append(out, suggestion)
		}
		return out
	}
	return nil
}

func starterMatches(partial string, family StarterFamily) bool {
	for _, prefix := range family.Prefixes {
		if strings.HasPrefix(partial, prefix) {
			return true
		}
	}
	for _, term := range family.Contains {
		if strings.Contains(partial, term) {
			return true
		}
	}
	return false
}

// sharesWord reports whether any word of the partial longer than two
// characters appears in the sample.
func sharesWord(partial, sample string) bool {
	sample = strings.ToLower(sample)
	for _, word := range questionWords(partial) {
		if len(word) > 2 && strings.Contains(sample, word) {
			return true
		}
	}
	return false
}

// schemaSuggestions derives starter questions from the stored profile when
// the dataset has no curated samples.
func schemaSuggestions(dataset *models.Dataset) []string {
	out := []string{"How many records are there?"}
	schema := dataset.Profile
	if schema == nil {
		return out
	}

	if numeric := schema.NumericColumns(); len(numeric) > 0 {
		out = append(out, fmt.Sprintf("What is the average %s?", strings.ToLower(numeric[0].DisplayName())))
	}
	if categorical := schema.CategoricalColumns(); len(categorical) > 0 {
		out = append(out, fmt.Sprintf("Show me the breakdown by %s", strings.ToLower(categorical[0].DisplayName())))
	}
	if dates := schema.DateColumns(); len(dates) > 0 {
		out = append(out, fmt.Sprintf("Show trends over %s", strings.ToLower(dates[0].DisplayName())))
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
