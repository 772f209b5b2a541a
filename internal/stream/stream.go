package stream

import (
	"sync"
	"sync/atomic"
)

// Listener receives the events of one subscription.
// Any of the callbacks may be nil.
type Listener struct {
	Next     func(v any)
	Error    func(err error)
	Complete func()
}

// Subscription represents the running side of a subscribed stream.
//
// Unsubscribe runs the registered teardowns in reverse registration order.
// It is idempotent.
type Subscription struct {
	mu        sync.Mutex
	closed    bool
	teardowns []func()
}

func newSubscription() *Subscription {
	return &Subscription{}
}

// Closed reports whether the subscription has been torn down.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// add registers a teardown. If the subscription is already closed the
// teardown runs immediately.
func (s *Subscription) add(f func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f()
		return
	}
	s.teardowns = append(s.teardowns, f)
	s.mu.Unlock()
}

// Unsubscribe stops event delivery and releases every resource held by the
// subscription.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}

// Emitter is handed to a producer to push events to one subscriber.
//
// After Error or Complete, or once the subscription is closed, further
// calls are dropped.
type Emitter struct {
	l       Listener
	sub     *Subscription
	stopped atomic.Bool
}

// Next delivers a value.
//
// The closed check and the delivery are not atomic: a value that passed the
// check on one goroutine while another goroutine unsubscribes can still reach
// the listener. Any Next that starts after Unsubscribe returns is dropped.
func (e *Emitter) Next(v any) {
	if e.Closed() {
		return
	}
	if e.l.Next != nil {
		e.l.Next(v)
	}
}

// Error terminates the subscription with err.
func (e *Emitter) Error(err error) {
	if e.sub.Closed() || !e.stopped.CompareAndSwap(false, true) {
		return
	}
	if e.l.Error != nil {
		e.l.Error(err)
	}
	e.sub.Unsubscribe()
}

// Complete terminates the subscription normally.
func (e *Emitter) Complete() {
	if e.sub.Closed() || !e.stopped.CompareAndSwap(false, true) {
		return
	}
	if e.l.Complete != nil {
		e.l.Complete()
	}
	e.sub.Unsubscribe()
}

// Closed reports whether events will still be delivered.
// Long-running producers poll it to stop early.
func (e *Emitter) Closed() bool {
	return e.stopped.Load() || e.sub.Closed()
}

// OnDispose registers f to run when the subscription is torn down, either by
// Unsubscribe or by a terminal event. If the subscription is already torn
// down, f runs immediately.
func (e *Emitter) OnDispose(f func()) {
	e.sub.add(f)
}

// Stream is a cold, push-based sequence of values.
type Stream struct {
	produce func(e *Emitter)

	// proxy is set for placeholder streams created by NewProxy.
	proxy *proxy
}

// New creates a stream from a producer. The producer runs once per
// subscription, on the subscribing goroutine; it may emit synchronously or
// hand the emitter to a goroutine.
func New(produce func(e *Emitter)) *Stream {
	return &Stream{produce: produce}
}

// Subscribe starts the stream and delivers its events to l.
func (s *Stream) Subscribe(l Listener) *Subscription {
	sub := newSubscription()
	s.produce(&Emitter{l: l, sub: sub})
	return sub
}

// pipe subscribes s on behalf of the operator owning outer. The inner
// subscription is tied to outer before s starts producing, so a downstream
// that stops during a synchronous emission also stops s.
func (s *Stream) pipe(outer *Emitter, l Listener) {
	sub := newSubscription()
	outer.OnDispose(sub.Unsubscribe)
	if outer.Closed() {
		return
	}
	s.produce(&Emitter{l: l, sub: sub})
}

// forward builds a listener that relays terminal events to e and handles
// values with next.
func forward(e *Emitter, next func(v any)) Listener {
	return Listener{
		Next:     next,
		Error:    e.Error,
		Complete: e.Complete,
	}
}
