package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staltz/base/internal/testutil"
)

// collect subscribes a fresh collector to s.
func collect(s *Stream) (*testutil.Collector, *Subscription) {
	c := testutil.NewCollector()
	sub := s.Subscribe(Listener{Next: c.Next, Error: c.Error, Complete: c.Complete})
	return c, sub
}

func TestOf_EmitsSynchronouslyAndCompletes(t *testing.T) {
	c, sub := collect(Of(1, 2, 3))

	assert.Equal(t, []any{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
	assert.True(t, sub.Closed(), "terminal event tears the subscription down")
}

func TestFromSlice_CopiesInput(t *testing.T) {
	items := []any{"a", "b"}
	s := FromSlice(items)
	items[0] = "mutated"

	c, _ := collect(s)
	assert.Equal(t, []any{"a", "b"}, c.Values())
}

func TestStream_IsCold(t *testing.T) {
	s := Of("x")
	first, _ := collect(s)
	second, _ := collect(s)

	assert.Equal(t, []any{"x"}, first.Values())
	assert.Equal(t, []any{"x"}, second.Values())
}

func TestEmptyNeverThrow(t *testing.T) {
	empty, _ := collect(Empty())
	assert.Empty(t, empty.Values())
	assert.True(t, empty.Completed())

	never, sub := collect(Never())
	assert.False(t, never.Terminated())
	sub.Unsubscribe()

	boom := errors.New("boom")
	thrown, _ := collect(Throw(boom))
	require.Len(t, thrown.Errors(), 1)
	assert.ErrorIs(t, thrown.Errors()[0], boom)
}

func TestEmitter_DropsEventsAfterTermination(t *testing.T) {
	s := New(func(e *Emitter) {
		e.Next(1)
		e.Complete()
		e.Next(2)
		e.Error(errors.New("late"))
		e.Complete()
	})
	c, _ := collect(s)

	assert.Equal(t, []any{1}, c.Values())
	assert.Empty(t, c.Errors())
	assert.True(t, c.Completed())
}

func TestEmitter_DropsValuesSentAfterUnsubscribeReturns(t *testing.T) {
	emitters := make(chan *Emitter, 1)
	c, sub := collect(New(func(e *Emitter) { emitters <- e }))
	e := <-emitters

	e.Next(1)
	sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Next(2)
		e.Complete()
	}()
	<-done

	assert.Equal(t, []any{1}, c.Values())
	assert.False(t, c.Completed())
	assert.True(t, e.Closed())
}

func TestSubscription_TeardownsRunInReverseOnce(t *testing.T) {
	var order []int
	s := New(func(e *Emitter) {
		e.OnDispose(func() { order = append(order, 1) })
		e.OnDispose(func() { order = append(order, 2) })
	})
	sub := s.Subscribe(Listener{})

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, []int{2, 1}, order)
}

func TestSubscription_AddAfterCloseRunsImmediately(t *testing.T) {
	sub := newSubscription()
	sub.Unsubscribe()

	ran := false
	sub.add(func() { ran = true })
	assert.True(t, ran)
}

func TestSubscription_UnsubscribeFromListener(t *testing.T) {
	ready := make(chan *Subscription, 1)
	c := testutil.NewCollector()
	sub := Interval(time.Millisecond).Subscribe(Listener{
		Next: func(v any) {
			c.Next(v)
			(<-ready).Unsubscribe()
		},
	})
	ready <- sub

	require.True(t, c.WaitForValues(1, time.Second))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []any{0}, c.Values())
}

func TestInterval_StopsOnUnsubscribe(t *testing.T) {
	c, sub := collect(Interval(2 * time.Millisecond))
	require.True(t, c.WaitForValues(2, time.Second))
	sub.Unsubscribe()

	n := len(c.Values())
	time.Sleep(15 * time.Millisecond)
	assert.Len(t, c.Values(), n)
	assert.Equal(t, 0, c.Values()[0])
	assert.Equal(t, 1, c.Values()[1])
}
