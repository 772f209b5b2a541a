package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staltz/base/internal/stream"
	"github.com/staltz/base/internal/testutil"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func collectOps(t *testing.T, src *stream.Stream, ops []OpSpec) *testutil.Collector {
	t.Helper()
	c := testutil.NewCollector()
	sub := applyOps(src, ops).Subscribe(stream.Listener{Next: c.Next, Error: c.Error, Complete: c.Complete})
	t.Cleanup(sub.Unsubscribe)
	return c
}

func TestApplyOps(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		ops  []OpSpec
		want []any
	}{
		{"no ops", []any{1, 2}, nil, []any{1, 2}},
		{"increment", []any{1, 2}, []OpSpec{{Map: "increment"}}, []any{int64(2), int64(3)}},
		{"double float from json", []any{1.0, 2.0}, []OpSpec{{Map: "double"}}, []any{int64(2), int64(4)}},
		{"map passes wrong types through", []any{"x", 3}, []OpSpec{{Map: "increment"}}, []any{"x", int64(4)}},
		{"upper", []any{"ab"}, []OpSpec{{Map: "upper"}}, []any{"AB"}},
		{"to_string", []any{3, "s"}, []OpSpec{{Map: "to_string"}}, []any{"3", "s"}},
		{"char codes", []any{"A"}, []OpSpec{{Map: "char_code"}, {Map: "increment"}, {Map: "from_char_code"}}, []any{"B"}},
		{"prefix", []any{9, 19, 29}, []OpSpec{{Prefix: strp("a")}}, []any{"a9", "a19", "a29"}},
		{"filter even", []any{1, 2, 3, 4}, []OpSpec{{Filter: "even"}}, []any{2, 4}},
		{"filter odd", []any{1, 2, 3}, []OpSpec{{Filter: "odd"}}, []any{1, 3}},
		{"filter non_empty", []any{"", "a", 1}, []OpSpec{{Filter: "non_empty"}}, []any{"a"}},
		{"filter found", []any{map[string]any{"found": true}, map[string]any{"found": false}}, []OpSpec{{Filter: "found"}}, []any{map[string]any{"found": true}}},
		{"skip then take", []any{1, 2, "Correct", 4}, []OpSpec{{Skip: intp(2)}, {Take: intp(1)}}, []any{"Correct"}},
		{"start with", []any{"b"}, []OpSpec{{StartWith: []any{"a"}}}, []any{"a", "b"}},
		{"identity", []any{true}, []OpSpec{{Map: "identity"}}, []any{true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := collectOps(t, stream.FromSlice(tt.in), tt.ops)
			assert.Equal(t, tt.want, c.Values())
			assert.True(t, c.Completed())
		})
	}
}

func TestApplyOps_TryMapWrongType(t *testing.T) {
	c := collectOps(t, stream.Of(1, "x", 3), []OpSpec{{TryMap: "increment"}})

	assert.Equal(t, []any{int64(2)}, c.Values())
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, "increment: wrong value type: x", c.Errors()[0].Error())
}

func TestApplyOps_Fail(t *testing.T) {
	ops := []OpSpec{{Fail: &FailSpec{When: 2, Message: "malfunction"}}}
	c := collectOps(t, stream.Of(int64(1), int64(2), int64(3)), ops)

	assert.Equal(t, []any{int64(1)}, c.Values())
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, "malfunction", c.Errors()[0].Error())
}

func TestApplyOps_Delay(t *testing.T) {
	c := collectOps(t, stream.Of(1, 2), []OpSpec{{DelayMS: intp(1)}})

	require.True(t, c.WaitFor(time.Second, (*testutil.Collector).Completed))
	assert.Equal(t, []any{1, 2}, c.Values())
}

func TestValidateOps(t *testing.T) {
	tests := []struct {
		name    string
		ops     []OpSpec
		wantErr string
	}{
		{"empty op", []OpSpec{{}}, "exactly one operator is required, got 0"},
		{"unknown try_map", []OpSpec{{TryMap: "nope"}}, `unknown try_map function "nope"`},
		{"unknown filter", []OpSpec{{Filter: "nope"}}, `unknown filter "nope"`},
		{"negative take", []OpSpec{{Take: intp(-1)}}, "take must be non-negative"},
		{"negative skip", []OpSpec{{Skip: intp(-1)}}, "skip must be non-negative"},
		{"negative delay", []OpSpec{{DelayMS: intp(-1)}}, "delay_ms must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOps("main.x", tt.ops)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "main.x.ops[0]")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, validateOps("main.x", []OpSpec{{Map: "upper"}, {Take: intp(0)}, {StartWith: []any{}}}))
}

func TestFuncNames_Sorted(t *testing.T) {
	names := FuncNames()
	assert.Contains(t, names, "increment")
	assert.IsIncreasing(t, names)
}
