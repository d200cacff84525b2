package services

import (
	"strings"
)

// ConversationDetector decides whether a message is small talk rather than a
// data question, and supplies the canned reply for it. Data wording always
// wins: a message mentioning columns, counting, or any other data indicator
// goes through the full pipeline even when it also says hello.
type ConversationDetector struct {
	vocab ConversationVocabulary
}

// NewConversationDetector creates a detector over the vocabulary's
// conversation tables.
func NewConversationDetector(vocab Vocabulary) *ConversationDetector {
	return &ConversationDetector{vocab: vocab.Conversation}
}

// IsConversational reports whether the message should bypass the pipeline.
// Data indicators win over everything; capability questions ("what are your
// capabilities") stay conversational even when they open like a query.
// Single-word patterns match whole words only, so "hi" does not hide inside
// "which"; multi-word patterns match as substrings.
func (d *ConversationDetector) IsConversational(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return false
	}

	if containsAny(m, d.vocab.DataIndicators) {
		return false
	}
	if containsAny(m, d.vocab.GeneralInfoTerms) {
		return true
	}
	if containsAny(m, d.vocab.BusinessTerms) {
		return false
	}
	for _, starter := range d.vocab.QueryStarters {
		if strings.HasPrefix(m, starter) {
			return false
		}
	}

	words := questionWords(m)
	for _, pattern := range d.vocab.Patterns {
		if strings.Contains(pattern, " ") {
			if strings.Contains(m, pattern) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == pattern {
				return true
			}
		}
	}

	if len(words) > 0 && len(words) <= 2 {
		all := true
		for _, w := range words {
			if !wordIn(w, d.vocab.Acknowledgements) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	return false
}

// Respond returns the canned reply for a conversational message.
func (d *ConversationDetector) Respond(message string) string {
	m := strings.ToLower(strings.TrimSpace(message))
	words := questionWords(m)

	switch {
	case wordIn("hi", words) || wordIn("hello", words) || wordIn("hey", words):
		return "Hello. Ask me a question about your data and I will run the analysis for you."
	case strings.Contains(m, "good morning"):
		return "Good morning. What would you like to know about your data?"
	case strings.Contains(m, "good afternoon"):
		return "Good afternoon. What would you like to know about your data?"
	case strings.Contains(m, "good evening"):
		return "Good evening. What would you like to know about your data?"
	case strings.Contains(m, "thank"):
		return "You're welcome. Happy to help with any other questions about your data."
	case strings.Contains(m, "help") || strings.Contains(m, "capabilities") || strings.Contains(m, "what can you do"):
		return "I answer questions about your datasets. Ask things like \"how many orders were placed last month\" or \"show me revenue by region\" and I will run the query and chart the result."
	case strings.Contains(m, "who are you") || strings.Contains(m, "what are you") || strings.Contains(m, "about yourself") || strings.Contains(m, "how you work") || strings.Contains(m, "how do you work"):
		return "I'm an analytics assistant. I turn plain-language questions into SQL, run them against your dataset, and come back with a chart and a short summary."
	case strings.Contains(m, "bye") || strings.Contains(m, "goodbye") || strings.Contains(m, "see you"):
		return "Goodbye. Come back any time you have questions about your data."
	default:
		return "I can help with questions about your data. Try asking about totals, trends, or comparisons in your dataset."
	}
}

func wordIn(word string, list []string) bool {
	for _, w := range list {
		if w == word {
			return true
		}
	}
	return false
}
