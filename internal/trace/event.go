package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Side tells whether an event was seen on a source or on a sink.
type Side string

const (
	SideSource Side = "source"
	SideSink   Side = "sink"
)

// Kind is the stream event type.
type Kind string

const (
	KindNext     Kind = "next"
	KindError    Kind = "error"
	KindComplete Kind = "complete"
)

// Event is one observed stream event.
type Event struct {
	Seq    int64
	Stream Side
	Key    string
	Kind   Kind

	// Value is set for next events.
	Value any

	// Err is the error message for error events.
	Err string
}

// Map returns the object form of the event used for canonical encoding.
func (e Event) Map() map[string]any {
	m := map[string]any{
		"seq":    e.Seq,
		"stream": string(e.Stream),
		"key":    e.Key,
		"kind":   string(e.Kind),
	}
	switch e.Kind {
	case KindNext:
		m["value"] = e.Value
	case KindError:
		m["error"] = e.Err
	}
	return m
}

// MarshalCanonical encodes the event as a canonical JSON object.
func (e Event) MarshalCanonical() ([]byte, error) {
	b, err := MarshalCanonical(e.Map())
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	return b, nil
}

// String renders the event for humans:
//
//	3 sink other next "a"
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s %s %s", e.Seq, e.Stream, e.Key, e.Kind)
	switch e.Kind {
	case KindNext:
		b.WriteByte(' ')
		b.WriteString(FormatValue(e.Value))
	case KindError:
		b.WriteByte(' ')
		b.WriteString(e.Err)
	}
	return b.String()
}

// FormatValue renders v as canonical JSON, falling back to %v for values
// canonical JSON cannot hold.
func FormatValue(v any) string {
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Encode renders events as canonical JSON lines joined by newlines, with no
// trailing newline. This is the golden file format.
func Encode(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range events {
		if i > 0 {
			buf.WriteByte('\n')
		}
		line, err := e.MarshalCanonical()
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// DecodeValue parses one JSON value and normalizes it, so integers come
// back as int64.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return Normalize(v)
}

// Decode parses the output of Encode. Numbers that hold integers decode as
// int64.
func Decode(data []byte) ([]Event, error) {
	var events []Event
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()

		var raw struct {
			Seq    int64  `json:"seq"`
			Stream string `json:"stream"`
			Key    string `json:"key"`
			Kind   string `json:"kind"`
			Value  any    `json:"value"`
			Error  string `json:"error"`
		}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		value, err := Normalize(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		events = append(events, Event{
			Seq:    raw.Seq,
			Stream: Side(raw.Stream),
			Key:    raw.Key,
			Kind:   Kind(raw.Kind),
			Value:  value,
			Err:    raw.Error,
		})
	}
	return events, nil
}
