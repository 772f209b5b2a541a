package cycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State is the lifecycle state of a Wiring.
type State int

const (
	// StateBuilt means New returned and Run has not been called.
	StateBuilt State = iota
	// StateRunning means Run activated the imitation links.
	StateRunning
	// StateDisposed means dispose ran. Terminal.
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// State returns the current lifecycle state.
func (w *Wiring[S]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run activates the cycle: every proxy source starts forwarding the events
// of the source its driver returned. Links are made in sorted key order, on
// the calling goroutine; synchronous sources deliver before Run returns.
//
// The returned dispose function cuts every link in reverse order and then
// disposes sources implementing Disposable. It is idempotent and may be
// called from inside an event handler.
//
// Once dispose returns, no event emitted afterwards reaches a subscriber.
// Delivery across goroutines is best-effort: a value a timer goroutine was
// already handing over when dispose ran may still arrive. Disposing from
// inside a handler stops delivery at once.
//
// A wiring runs at most once: Run on a running wiring fails with
// ErrCodeAlreadyRunning, on a disposed one with ErrCodeAlreadyDisposed.
func (w *Wiring[S]) Run() (dispose func(), err error) {
	w.mu.Lock()
	switch w.state {
	case StateRunning:
		w.mu.Unlock()
		return nil, &Error{Code: ErrCodeAlreadyRunning, Message: "run() called on a wiring that is already running"}
	case StateDisposed:
		w.mu.Unlock()
		return nil, &Error{Code: ErrCodeAlreadyDisposed, Message: "run() called on a disposed wiring"}
	}
	w.state = StateRunning
	w.mu.Unlock()

	w.logger.Debug("cycle running", "drivers", len(w.keys))

	for _, key := range w.keys {
		unlink, err := w.adapter.Imitate(w.Sources[key], w.realSources[key], w.reporter.hook(key))
		if err != nil {
			w.dispose()
			return nil, &Error{
				Code:    ErrCodeImitation,
				Message: "stream adapter failed to bind proxy source",
				Key:     key,
				Err:     err,
			}
		}
		if !w.addLink(unlink) {
			// Disposed while activating, from inside an event handler.
			unlink()
			break
		}
	}

	return w.dispose, nil
}

// addLink records an unlink function. It reports false if the wiring is no
// longer running.
func (w *Wiring[S]) addLink(unlink func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateRunning {
		return false
	}
	if unlink != nil {
		w.links = append(w.links, unlink)
	}
	return true
}

// dispose tears the running cycle down. No lock is held while unlinking.
func (w *Wiring[S]) dispose() {
	w.mu.Lock()
	if w.state != StateRunning {
		w.mu.Unlock()
		return
	}
	w.state = StateDisposed
	links := w.links
	w.links = nil
	w.mu.Unlock()

	for i := len(links) - 1; i >= 0; i-- {
		links[i]()
	}
	for i := len(w.keys) - 1; i >= 0; i-- {
		if d, ok := any(w.realSources[w.keys[i]]).(Disposable); ok {
			d.Dispose()
		}
	}

	w.logger.Debug("cycle disposed", "links", len(links))
}

// errorReporter logs and forwards uncaught stream errors for one wiring.
//
// An error is observed twice when a driver passes its sink's error on to its
// source: once on the sink, once on the imitation link. It is reported on the
// first sighting only.
type errorReporter struct {
	logger      *slog.Logger
	onSinkError func(err *SinkError)

	mu   sync.Mutex
	seen map[string][]error
}

func newErrorReporter(logger *slog.Logger, onSinkError func(err *SinkError)) *errorReporter {
	return &errorReporter{
		logger:      logger,
		onSinkError: onSinkError,
		seen:        make(map[string][]error),
	}
}

// hook returns the error callback for one driver key.
func (r *errorReporter) hook(key string) func(err error) {
	return func(err error) {
		r.report(key, err)
	}
}

func (r *errorReporter) report(key string, err error) {
	if err == nil || !r.first(key, err) {
		return
	}
	r.logger.Error("uncaught error in sink", "driver", key, "error", err)
	if r.onSinkError != nil {
		r.onSinkError(&SinkError{Key: key, Err: err})
	}
}

// first records err under key and reports whether it had not been seen.
// errors.Is also catches a source error that wraps the sink error.
func (r *errorReporter) first(key string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, prev := range r.seen[key] {
		if errors.Is(err, prev) {
			return false
		}
	}
	r.seen[key] = append(r.seen[key], err)
	return true
}
