package testutil

import (
	"sync"
	"time"
)

// Collector records the events of a stream subscription.
//
// Its Next, Error and Complete methods match the callbacks of
// stream.Listener, and may be called from any goroutine.
type Collector struct {
	mu        sync.Mutex
	values    []any
	errs      []error
	completed bool
	changed   chan struct{}
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{changed: make(chan struct{}, 1)}
}

// Next records a value.
func (c *Collector) Next(v any) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
	c.notify()
}

// Error records a terminal error.
func (c *Collector) Error(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.notify()
}

// Complete records completion.
func (c *Collector) Complete() {
	c.mu.Lock()
	c.completed = true
	c.mu.Unlock()
	c.notify()
}

func (c *Collector) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Values returns a copy of the values received so far.
func (c *Collector) Values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Errors returns a copy of the errors received so far.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Completed reports whether completion was received.
func (c *Collector) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Terminated reports whether completion or an error was received.
func (c *Collector) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed || len(c.errs) > 0
}

// WaitFor blocks until cond holds or timeout elapses, and reports whether
// cond held.
func (c *Collector) WaitFor(timeout time.Duration, cond func(c *Collector) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if cond(c) {
			return true
		}
		select {
		case <-c.changed:
		case <-deadline.C:
			return cond(c)
		}
	}
}

// WaitForValues blocks until at least n values arrived or timeout elapses.
func (c *Collector) WaitForValues(n int, timeout time.Duration) bool {
	return c.WaitFor(timeout, func(c *Collector) bool {
		return len(c.Values()) >= n
	})
}
