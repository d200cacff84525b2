package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrSchemaNotFound    = errors.New("dataset schema not found")
	ErrSecurityViolation = errors.New("query rejected by safety guard")
	ErrPlanningFailed    = errors.New("query planning failed")
	ErrExecutionFailed   = errors.New("query execution failed")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnauthorized      = errors.New("unauthorized")
)
