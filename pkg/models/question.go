package models

import "github.com/google/uuid"

// QuestionRequest is one incoming question against a dataset. PriorContext,
// when supplied by a conversation layer, is appended verbatim to the
// generation prompt and never parsed. QuestionID lets a client pick its own
// ID so it can subscribe to progress events before posting; zero means the
// service assigns one.
type QuestionRequest struct {
	Question     string    `json:"question"`
	QuestionID   uuid.UUID `json:"question_id,omitempty"`
	PriorContext string    `json:"prior_context,omitempty"`
}

// QuestionResponse is the complete outcome of resolving one question.
// Failures always carry Success=false plus Error; a response is never a
// partial success.
type QuestionResponse struct {
	Success       bool             `json:"success"`
	QuestionID    uuid.UUID        `json:"question_id"`
	Question      string           `json:"question"`
	Answer        string           `json:"answer,omitempty"`
	SQL           string           `json:"sql,omitempty"`
	Intent        *Intent          `json:"intent,omitempty"`
	Results       *ExecutionResult `json:"results,omitempty"`
	Visualization *Visualization   `json:"visualization,omitempty"`
	Insights      []string         `json:"insights,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// SuggestionsResponse is the payload for question suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
