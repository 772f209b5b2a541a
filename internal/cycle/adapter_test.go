package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staltz/base/internal/stream"
)

func TestDefaultAdapter_Lifecycle(t *testing.T) {
	t.Cleanup(ClearDefaultAdapter)
	ClearDefaultAdapter()

	_, ok := DefaultAdapter[*stream.Stream]()
	assert.False(t, ok)

	SetDefaultAdapter[*stream.Stream](stream.Adapter{})
	a, ok := DefaultAdapter[*stream.Stream]()
	require.True(t, ok)
	assert.Equal(t, stream.Adapter{}, a)

	_, ok = DefaultAdapter[*fakeStream]()
	assert.False(t, ok, "default serves one stream type only")

	ClearDefaultAdapter()
	_, ok = DefaultAdapter[*stream.Stream]()
	assert.False(t, ok)
}

func TestNew_UsesDefaultAdapterWhenConfigHasNone(t *testing.T) {
	t.Cleanup(ClearDefaultAdapter)
	SetDefaultAdapter[*stream.Stream](stream.Adapter{})

	app := func(sources Sources[*stream.Stream]) (Sinks[*stream.Stream], error) { return nil, nil }
	drivers := Drivers[*stream.Stream]{
		"other": func(*stream.Stream, Sources[*stream.Stream]) (*stream.Stream, error) {
			return stream.Of("b"), nil
		},
	}

	w, err := New(app, drivers, Config[*stream.Stream]{Logger: quietLogger()})
	require.NoError(t, err)
	assert.True(t, w.Sources["other"].IsProxy())
}

func TestNew_ConfigAdapterOverridesDefault(t *testing.T) {
	t.Cleanup(ClearDefaultAdapter)
	SetDefaultAdapter[*fakeStream](brokenProxyAdapter{newFakeAdapter()})

	a := newFakeAdapter()
	app := func(Sources[*fakeStream]) (Sinks[*fakeStream], error) { return nil, nil }

	w, err := New(app, Drivers[*fakeStream]{"only": constDriver(&fakeStream{name: "src"})},
		Config[*fakeStream]{StreamAdapter: a, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, "empty-1", w.Sources["only"].name)
}

func TestNew_MissingAdapterWhenDefaultHasOtherType(t *testing.T) {
	t.Cleanup(ClearDefaultAdapter)
	SetDefaultAdapter[*stream.Stream](stream.Adapter{})

	app := func(Sources[*fakeStream]) (Sinks[*fakeStream], error) { return nil, nil }
	_, err := New(app, Drivers[*fakeStream]{"only": constDriver(&fakeStream{name: "src"})},
		Config[*fakeStream]{Logger: quietLogger()})
	assert.True(t, IsCode(err, ErrCodeMissingAdapter), "got %v", err)
}
