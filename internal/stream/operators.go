package stream

import "sync/atomic"

// Map transforms every value with f.
func (s *Stream) Map(f func(v any) any) *Stream {
	return New(func(e *Emitter) {
		s.pipe(e, forward(e, func(v any) {
			e.Next(f(v))
		}))
	})
}

// TryMap transforms every value with f. The first error returned by f
// terminates the stream with that error.
func (s *Stream) TryMap(f func(v any) (any, error)) *Stream {
	return New(func(e *Emitter) {
		s.pipe(e, forward(e, func(v any) {
			out, err := f(v)
			if err != nil {
				e.Error(err)
				return
			}
			e.Next(out)
		}))
	})
}

// Filter passes through the values for which keep returns true.
func (s *Stream) Filter(keep func(v any) bool) *Stream {
	return New(func(e *Emitter) {
		s.pipe(e, forward(e, func(v any) {
			if keep(v) {
				e.Next(v)
			}
		}))
	})
}

// Take emits the first n values and then completes. Take(0) completes
// without subscribing upstream.
func (s *Stream) Take(n int) *Stream {
	return New(func(e *Emitter) {
		if n <= 0 {
			e.Complete()
			return
		}
		var count atomic.Int64
		s.pipe(e, forward(e, func(v any) {
			c := count.Add(1)
			if c > int64(n) {
				return
			}
			e.Next(v)
			if c == int64(n) {
				e.Complete()
			}
		}))
	})
}

// Skip drops the first n values.
func (s *Stream) Skip(n int) *Stream {
	return New(func(e *Emitter) {
		var count atomic.Int64
		s.pipe(e, forward(e, func(v any) {
			if count.Add(1) > int64(n) {
				e.Next(v)
			}
		}))
	})
}

// StartWith emits values before subscribing upstream.
func (s *Stream) StartWith(values ...any) *Stream {
	items := make([]any, len(values))
	copy(items, values)
	return New(func(e *Emitter) {
		for _, v := range items {
			if e.Closed() {
				return
			}
			e.Next(v)
		}
		s.pipe(e, forward(e, e.Next))
	})
}

// Tap calls f with every value before passing it through unchanged.
func (s *Stream) Tap(f func(v any)) *Stream {
	return New(func(e *Emitter) {
		s.pipe(e, forward(e, func(v any) {
			f(v)
			e.Next(v)
		}))
	})
}

// Do calls the callbacks of l for every event before passing it through.
// Nil callbacks are skipped.
func (s *Stream) Do(l Listener) *Stream {
	return New(func(e *Emitter) {
		s.pipe(e, Listener{
			Next: func(v any) {
				if l.Next != nil {
					l.Next(v)
				}
				e.Next(v)
			},
			Error: func(err error) {
				if l.Error != nil {
					l.Error(err)
				}
				e.Error(err)
			},
			Complete: func() {
				if l.Complete != nil {
					l.Complete()
				}
				e.Complete()
			},
		})
	})
}
