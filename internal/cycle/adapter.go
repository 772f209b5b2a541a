package cycle

import "sync"

// Adapter is the capability set a stream library provides to the runtime.
// S is the library's stream handle type.
type Adapter[S any] interface {
	// MakeEmpty returns a new placeholder stream that emits nothing until
	// Imitate binds it.
	MakeEmpty() S

	// FromValue returns a stream of v. Slice values become a stream of
	// their elements.
	FromValue(v any) S

	// IsValid reports whether candidate is a usable stream of this library.
	IsValid(candidate any) bool

	// Imitate makes placeholder replay every event source emits from now on,
	// in source's order. onError is called once per error source emits,
	// before the error is forwarded. The returned function cuts the link and
	// must be idempotent.
	Imitate(placeholder, source S, onError func(err error)) (unlink func(), err error)

	// ObserveErrors returns a stream that behaves like s and calls onError
	// once per error s emits, before the error is forwarded. The runtime
	// hands drivers their sinks through it, so errors in a sink pipeline
	// are reported even when the driver never forwards them.
	ObserveErrors(s S, onError func(err error)) S
}

// Disposable is implemented by sources that hold resources beyond their
// subscriptions. Dispose is called once when the wiring is disposed.
type Disposable interface {
	Dispose()
}

// defaultAdapter is the process-wide fallback adapter. It is consulted at
// New time only when Config.StreamAdapter is nil.
var defaultAdapter struct {
	mu      sync.RWMutex
	adapter any
}

// SetDefaultAdapter registers a as the adapter used when a Config carries
// none. It replaces any previous default.
func SetDefaultAdapter[S any](a Adapter[S]) {
	defaultAdapter.mu.Lock()
	defer defaultAdapter.mu.Unlock()
	defaultAdapter.adapter = a
}

// DefaultAdapter returns the registered default adapter for stream type S.
// It reports false if none is registered or the registered one serves a
// different stream type.
func DefaultAdapter[S any]() (Adapter[S], bool) {
	defaultAdapter.mu.RLock()
	defer defaultAdapter.mu.RUnlock()

	a, ok := defaultAdapter.adapter.(Adapter[S])
	return a, ok
}

// ClearDefaultAdapter removes the registered default adapter.
func ClearDefaultAdapter() {
	defaultAdapter.mu.Lock()
	defer defaultAdapter.mu.Unlock()
	defaultAdapter.adapter = nil
}

// resolveAdapter picks the per-call adapter, falling back to the default.
func resolveAdapter[S any](a Adapter[S]) (Adapter[S], bool) {
	if a != nil {
		return a, true
	}
	return DefaultAdapter[S]()
}
