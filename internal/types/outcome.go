package types

import "time"

// ExecutionStats describes how the agent run went
type ExecutionStats struct {
	TotalSteps      int      `json:"total_steps"`
	DurationSeconds float64  `json:"duration_seconds"`
	IsDone          bool     `json:"is_done"`
	IsSuccessful    bool     `json:"is_successful"`
	Timeout         bool     `json:"timeout"`
	TimeoutSeconds  int      `json:"timeout_seconds,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// PersistenceStats counts what the gateway did for one search.
// Insert failures are swallowed by the orchestrator and only surface here and in logs.
type PersistenceStats struct {
	Expired       int64  `json:"expired"`
	Inserted      int64  `json:"inserted"`
	Failed        int    `json:"failed"`
	DateFallbacks int    `json:"date_fallbacks"`
	CleanupError  string `json:"cleanup_error,omitempty"`
}

// SearchOutcome is the result record of a single search request
type SearchOutcome struct {
	RapperName     string               `json:"rapper_name"`
	Success        bool                 `json:"success"`
	Performances   []PerformanceListing `json:"performances"`
	TotalCount     int                  `json:"total_count"`
	SearchTime     time.Time            `json:"search_time"`
	ExecutionStats ExecutionStats       `json:"execution_stats"`
	Persistence    *PersistenceStats    `json:"persistence,omitempty"`
	ErrorMessage   *string              `json:"error_message"`
}

// Fail marks the outcome as failed with the given message and drops any listings.
func (o *SearchOutcome) Fail(message string) *SearchOutcome {
	o.Success = false
	o.Performances = []PerformanceListing{}
	o.TotalCount = 0
	o.ErrorMessage = &message
	return o
}

// SubmissionAck is returned when a search is accepted for background execution
type SubmissionAck struct {
	Success     bool      `json:"success"`
	TaskID      string    `json:"task_id"`
	RapperName  string    `json:"rapper_name"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}
