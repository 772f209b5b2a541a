package harness

import (
	"fmt"
	"strings"

	"github.com/staltz/base/internal/trace"
)

// Assertion types.
const (
	AssertSourceValues  = "source_values"
	AssertSinkValues    = "sink_values"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertCompleted     = "completed"
	AssertErrorReported = "error_reported"
)

// Assertion checks one property of the recorded run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Stream is "source" or "sink" for trace_contains, trace_count and
	// completed.
	Stream string `yaml:"stream,omitempty" json:"stream,omitempty"`

	// Key is the driver key the assertion is about.
	Key string `yaml:"key" json:"key"`

	// Values is the exact value sequence for source_values and sink_values.
	Values []any `yaml:"values,omitempty" json:"values,omitempty"`

	// Value narrows trace_contains and trace_count to next events carrying
	// it. Absent means any value.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Kind is next, error or complete. Defaults to next.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Count is the exact number of matches for trace_count.
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`

	// Message narrows error matches to this exact error text.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

func (a Assertion) kind() trace.Kind {
	if a.Kind == "" {
		return trace.KindNext
	}
	return trace.Kind(a.Kind)
}

func validateAssertion(i int, a *Assertion) error {
	where := fmt.Sprintf("assertions[%d]", i)
	if a.Key == "" {
		return fmt.Errorf("%s: key is required", where)
	}

	switch a.Kind {
	case "", string(trace.KindNext), string(trace.KindError), string(trace.KindComplete):
	default:
		return fmt.Errorf("%s: unknown kind %q", where, a.Kind)
	}

	needStream := false
	switch a.Type {
	case AssertSourceValues, AssertSinkValues:
		if a.Values == nil {
			return fmt.Errorf("%s: %s requires values", where, a.Type)
		}
	case AssertTraceContains, AssertCompleted:
		needStream = true
	case AssertTraceCount:
		needStream = true
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("%s: trace_count requires a non-negative count", where)
		}
	case AssertErrorReported:
	case "":
		return fmt.Errorf("%s: type is required", where)
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}

	if needStream {
		switch trace.Side(a.Stream) {
		case trace.SideSource, trace.SideSink:
		default:
			return fmt.Errorf("%s: stream must be source or sink, got %q", where, a.Stream)
		}
	}
	return nil
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}

	return buf.String()
}

// sameValue compares values by their canonical JSON form, so 3 from YAML
// and int64(3) from a driver are equal.
func sameValue(a, b any) bool {
	return trace.FormatValue(a) == trace.FormatValue(b)
}

// matches reports whether e is the event a describes.
func (a Assertion) matches(e trace.Event) bool {
	if string(e.Stream) != a.Stream || e.Key != a.Key || e.Kind != a.kind() {
		return false
	}
	switch e.Kind {
	case trace.KindNext:
		return a.Value == nil || sameValue(e.Value, a.Value)
	case trace.KindError:
		return a.Message == "" || e.Err == a.Message
	}
	return true
}

func (a Assertion) describe() string {
	desc := fmt.Sprintf("%s %s %s", a.Stream, a.Key, a.kind())
	if a.Value != nil {
		desc += " " + trace.FormatValue(a.Value)
	}
	if a.Message != "" {
		desc += " " + a.Message
	}
	return desc
}

func assertValues(result *Result, side trace.Side, a Assertion) error {
	actual := result.Values(side, a.Key)
	if sameValue(actual, a.Values) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s values %s", side, a.Key, trace.FormatValue(a.Values)),
		Actual:   trace.FormatValue(actual),
		Trace:    result.Trace,
	}
}

func assertTraceContains(result *Result, a Assertion) error {
	for _, e := range result.Trace {
		if a.matches(e) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: a.describe(),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

func assertTraceCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Trace {
		if a.matches(e) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d occurrences of %s", *a.Count, a.describe()),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertErrorReported(result *Result, a Assertion) error {
	var seen []string
	for _, r := range result.SinkErrors {
		if r.Key != a.Key {
			continue
		}
		if a.Message == "" || r.Message == a.Message {
			return nil
		}
		seen = append(seen, r.Message)
	}

	actual := "no errors reported"
	if len(seen) > 0 {
		actual = "reported: " + strings.Join(seen, "; ")
	}
	expected := fmt.Sprintf("error reported for %s", a.Key)
	if a.Message != "" {
		expected += fmt.Sprintf(" with message %q", a.Message)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertSourceValues:
			err = assertValues(result, trace.SideSource, a)
		case AssertSinkValues:
			err = assertValues(result, trace.SideSink, a)
		case AssertTraceContains:
			err = assertTraceContains(result, a)
		case AssertTraceCount:
			err = assertTraceCount(result, a)
		case AssertCompleted:
			a.Kind = string(trace.KindComplete)
			err = assertTraceContains(result, a)
		case AssertErrorReported:
			err = assertErrorReported(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
