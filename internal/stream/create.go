package stream

import (
	"sync"
	"time"
)

// Of emits each value in order, then completes.
func Of(values ...any) *Stream {
	return FromSlice(values)
}

// FromSlice emits the elements of values in order, then completes.
// The slice is copied.
func FromSlice(values []any) *Stream {
	items := make([]any, len(values))
	copy(items, values)
	return New(func(e *Emitter) {
		for _, v := range items {
			if e.Closed() {
				return
			}
			e.Next(v)
		}
		e.Complete()
	})
}

// Empty completes immediately without emitting.
func Empty() *Stream {
	return New(func(e *Emitter) {
		e.Complete()
	})
}

// Never neither emits nor terminates.
func Never() *Stream {
	return New(func(e *Emitter) {})
}

// Throw terminates immediately with err.
func Throw(err error) *Stream {
	return New(func(e *Emitter) {
		e.Error(err)
	})
}

// Interval emits 0, 1, 2, ... every period until unsubscribed.
func Interval(period time.Duration) *Stream {
	return New(func(e *Emitter) {
		done := make(chan struct{})
		var once sync.Once
		e.OnDispose(func() {
			once.Do(func() { close(done) })
		})

		go func() {
			ticker := time.NewTicker(period)
			defer ticker.Stop()

			for i := 0; ; i++ {
				select {
				case <-done:
					return
				case <-ticker.C:
				}
				if e.Closed() {
					return
				}
				e.Next(i)
			}
		}()
	})
}
