package models

// PlanOrigin records which path produced a query plan.
type PlanOrigin string

const (
	PlanOriginGenerated PlanOrigin = "generated"
	PlanOriginFallback  PlanOrigin = "fallback"
)

// GuardState tracks a plan's progress through the safety guard. A plan whose
// state is not GuardAccepted must never reach the execution layer.
type GuardState string

const (
	GuardUnchecked GuardState = "unchecked"
	GuardAccepted  GuardState = "accepted"
	GuardRejected  GuardState = "rejected"
)

// QueryPlan is one candidate query: its text, where it came from, and
// whether the guard has accepted it. Plans are created, validated, and
// consumed once.
type QueryPlan struct {
	SQL        string     `json:"sql"`
	Origin     PlanOrigin `json:"origin"`
	GuardState GuardState `json:"guard_state"`
}

// Executable reports whether the plan may be handed to the execution layer.
func (p *QueryPlan) Executable() bool {
	return p.GuardState == GuardAccepted
}
