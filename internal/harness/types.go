package harness

import "github.com/staltz/base/internal/trace"

// ReportedError is a sink error the runtime reported during a run.
type ReportedError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// RunID identifies the recorded run.
	RunID string `json:"run_id"`

	// Trace contains every recorded source and sink event in seq order.
	Trace []trace.Event `json:"trace"`

	// SinkErrors are the errors reported through the runtime's diagnostic
	// channel, in the order they surfaced.
	SinkErrors []ReportedError `json:"sink_errors"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:       true,
		RunID:      runID,
		Trace:      []trace.Event{},
		SinkErrors: []ReportedError{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Values returns the next values recorded for side and key, in order.
func (r *Result) Values(side trace.Side, key string) []any {
	values := []any{}
	for _, e := range r.Trace {
		if e.Stream == side && e.Key == key && e.Kind == trace.KindNext {
			values = append(values, e.Value)
		}
	}
	return values
}
