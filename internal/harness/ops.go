package harness

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/staltz/base/internal/stream"
	"github.com/staltz/base/internal/trace"
)

// OpSpec is one stream operator. Exactly one field is set.
type OpSpec struct {
	// Map applies a named function. Values of the wrong type pass through.
	Map string `yaml:"map,omitempty" json:"map,omitempty"`

	// TryMap applies a named function. Values of the wrong type terminate
	// the stream with an error.
	TryMap string `yaml:"try_map,omitempty" json:"try_map,omitempty"`

	// Prefix turns every value into prefix + its text form.
	Prefix *string `yaml:"prefix,omitempty" json:"prefix,omitempty"`

	// Filter keeps values matching a named predicate.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`

	Take      *int  `yaml:"take,omitempty" json:"take,omitempty"`
	Skip      *int  `yaml:"skip,omitempty" json:"skip,omitempty"`
	StartWith []any `yaml:"start_with,omitempty" json:"start_with,omitempty"`
	DelayMS   *int  `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`

	// Fail terminates the stream with an error when a value matches.
	Fail *FailSpec `yaml:"fail,omitempty" json:"fail,omitempty"`
}

// FailSpec raises Message as an error on the first value equal to When.
type FailSpec struct {
	When    any    `yaml:"when" json:"when"`
	Message string `yaml:"message" json:"message"`
}

// errWrongType marks a value a named function cannot handle.
var errWrongType = errors.New("wrong value type")

// mapFuncs are the functions available to map and try_map.
var mapFuncs = map[string]func(v any) (any, error){
	"identity": func(v any) (any, error) { return v, nil },
	"to_string": func(v any) (any, error) {
		return text(v), nil
	},
	"upper": func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errWrongType
		}
		return strings.ToUpper(s), nil
	},
	"char_code": func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, errWrongType
		}
		return int64([]rune(s)[0]), nil
	},
	"from_char_code": func(v any) (any, error) {
		n, ok := asInt(v)
		if !ok || n < 0 || n > math.MaxInt32 {
			return nil, errWrongType
		}
		return string(rune(n)), nil
	},
	"increment": func(v any) (any, error) {
		n, ok := asInt(v)
		if !ok {
			return nil, errWrongType
		}
		return n + 1, nil
	},
	"double": func(v any) (any, error) {
		n, ok := asInt(v)
		if !ok {
			return nil, errWrongType
		}
		return n * 2, nil
	},
}

// filterFuncs are the predicates available to filter.
var filterFuncs = map[string]func(v any) bool{
	"even": func(v any) bool {
		n, ok := asInt(v)
		return ok && n%2 == 0
	},
	"odd": func(v any) bool {
		n, ok := asInt(v)
		return ok && n%2 != 0
	},
	"non_empty": func(v any) bool {
		s, ok := v.(string)
		return ok && s != ""
	},
	"found": func(v any) bool {
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		found, _ := m["found"].(bool)
		return found
	},
}

// FuncNames returns the names usable in map and try_map, sorted.
func FuncNames() []string {
	return sortedKeys(mapFuncs)
}

// asInt converts the integer forms produced by YAML, JSON and the drivers.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return trace.FormatValue(v)
}

// opCount reports how many fields of op are set.
func opCount(op OpSpec) int {
	n := 0
	for _, set := range []bool{
		op.Map != "",
		op.TryMap != "",
		op.Prefix != nil,
		op.Filter != "",
		op.Take != nil,
		op.Skip != nil,
		op.StartWith != nil,
		op.DelayMS != nil,
		op.Fail != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func validateOps(path string, ops []OpSpec) error {
	for i, op := range ops {
		where := fmt.Sprintf("%s.ops[%d]", path, i)
		if n := opCount(op); n != 1 {
			return fmt.Errorf("%s: exactly one operator is required, got %d", where, n)
		}
		switch {
		case op.Map != "":
			if _, ok := mapFuncs[op.Map]; !ok {
				return fmt.Errorf("%s: unknown map function %q (have %s)", where, op.Map, strings.Join(FuncNames(), ", "))
			}
		case op.TryMap != "":
			if _, ok := mapFuncs[op.TryMap]; !ok {
				return fmt.Errorf("%s: unknown try_map function %q (have %s)", where, op.TryMap, strings.Join(FuncNames(), ", "))
			}
		case op.Filter != "":
			if _, ok := filterFuncs[op.Filter]; !ok {
				return fmt.Errorf("%s: unknown filter %q", where, op.Filter)
			}
		case op.Take != nil && *op.Take < 0:
			return fmt.Errorf("%s: take must be non-negative", where)
		case op.Skip != nil && *op.Skip < 0:
			return fmt.Errorf("%s: skip must be non-negative", where)
		case op.DelayMS != nil && *op.DelayMS < 0:
			return fmt.Errorf("%s: delay_ms must be non-negative", where)
		case op.Fail != nil && op.Fail.Message == "":
			return fmt.Errorf("%s: fail.message is required", where)
		}
	}
	return nil
}

// applyOps chains ops onto s. ops must have passed validateOps.
func applyOps(s *stream.Stream, ops []OpSpec) *stream.Stream {
	for _, op := range ops {
		s = applyOp(s, op)
	}
	return s
}

func applyOp(s *stream.Stream, op OpSpec) *stream.Stream {
	switch {
	case op.Map != "":
		f := mapFuncs[op.Map]
		return s.Map(func(v any) any {
			out, err := f(v)
			if err != nil {
				return v
			}
			return out
		})
	case op.TryMap != "":
		name, f := op.TryMap, mapFuncs[op.TryMap]
		return s.TryMap(func(v any) (any, error) {
			out, err := f(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %s", name, err, text(v))
			}
			return out, nil
		})
	case op.Prefix != nil:
		prefix := *op.Prefix
		return s.Map(func(v any) any { return prefix + text(v) })
	case op.Filter != "":
		return s.Filter(filterFuncs[op.Filter])
	case op.Take != nil:
		return s.Take(*op.Take)
	case op.Skip != nil:
		return s.Skip(*op.Skip)
	case op.StartWith != nil:
		return s.StartWith(op.StartWith...)
	case op.DelayMS != nil:
		return s.Delay(time.Duration(*op.DelayMS) * time.Millisecond)
	case op.Fail != nil:
		when := trace.FormatValue(op.Fail.When)
		msg := op.Fail.Message
		return s.TryMap(func(v any) (any, error) {
			if trace.FormatValue(v) == when {
				return nil, errors.New(msg)
			}
			return v, nil
		})
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
