package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a filter
// literal pulled out of a question.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal that failed the check
}

// CheckFilterLiteral uses libinjection to detect SQL injection patterns in
// one literal. Literals reach the pipeline from two directions: quoted
// fragments of the user's question, screened before they enter generation
// prompts, and single-quoted literals inside a candidate statement, screened
// by the guard before execution.
//
// Returns nil if no injection is detected, or an InjectionCheckResult with
// details about the detected pattern.
//
// Example:
//
//	// Safe literal - no injection
//	result := CheckFilterLiteral("north america")
//	// result == nil
//
//	// Injection attempt detected
//	result := CheckFilterLiteral("'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.Fingerprint == "s&1c" (or similar)
func CheckFilterLiteral(literal string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(literal)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Literal:     literal,
		}
	}

	return nil
}

// CheckFilterLiterals screens every extracted filter literal and returns a
// result for each one that looks like an injection attempt. Returns an empty
// slice when all literals are clean.
func CheckFilterLiterals(literals []string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, literal := range literals {
		if result := CheckFilterLiteral(literal); result != nil {
			results = append(results, result)
		}
	}
	return results
}
