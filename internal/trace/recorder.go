package trace

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/staltz/base/internal/cycle"
	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/stream"
)

// Recorder collects the events of one run.
//
// Thread-safety: all methods are safe for concurrent use. Events can arrive
// from timer goroutines; the clock is read under the recorder lock so seq
// order matches append order.
type Recorder struct {
	runID string

	mu         sync.Mutex
	clock      SeqClock
	events     []Event
	sinkErrors []*cycle.SinkError
}

// NewRecorder creates a recorder for runID. A nil clock gets a fresh Clock.
func NewRecorder(runID string, clock SeqClock) *Recorder {
	if clock == nil {
		clock = NewClock()
	}
	return &Recorder{runID: runID, clock: clock}
}

// RunID returns the run this recorder belongs to.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) record(side Side, key string, kind Kind, value any, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		Seq:    r.clock.Next(),
		Stream: side,
		Key:    key,
		Kind:   kind,
		Value:  value,
		Err:    errMsg,
	})
}

// Listener returns a stream listener that records the events it receives
// under side and key.
func (r *Recorder) Listener(side Side, key string) stream.Listener {
	return stream.Listener{
		Next: func(v any) {
			r.record(side, key, KindNext, v, "")
		},
		Error: func(err error) {
			r.record(side, key, KindError, nil, err.Error())
		},
		Complete: func() {
			r.record(side, key, KindComplete, nil, "")
		},
	}
}

// Sink wraps a sink stream so that everything the driver receives from it
// is recorded.
func (r *Recorder) Sink(key string, s *stream.Stream) *stream.Stream {
	return s.Do(r.Listener(SideSink, key))
}

// WatchSources subscribes to every source in key order. The returned
// function unsubscribes them all.
func (r *Recorder) WatchSources(sources cycle.Sources[*stream.Stream]) (stop func()) {
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	subs := make([]*stream.Subscription, 0, len(keys))
	for _, k := range keys {
		subs = append(subs, sources[k].Subscribe(r.Listener(SideSource, k)))
	}
	return func() {
		for i := len(subs) - 1; i >= 0; i-- {
			subs[i].Unsubscribe()
		}
	}
}

// OnSinkError records an error reported by the runtime. It matches
// cycle.Config.OnSinkError.
func (r *Recorder) OnSinkError(err *cycle.SinkError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinkErrors = append(r.sinkErrors, err)
}

// Events returns a copy of the events recorded so far, in seq order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// SinkErrors returns a copy of the reported sink errors.
func (r *Recorder) SinkErrors() []*cycle.SinkError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*cycle.SinkError, len(r.sinkErrors))
	copy(out, r.sinkErrors)
	return out
}

// Persist writes the run and its events to st.
func (r *Recorder) Persist(ctx context.Context, st *store.Store, scenario string) error {
	if _, err := st.WriteRun(ctx, r.runID, scenario); err != nil {
		return fmt.Errorf("persist trace: %w", err)
	}

	events := r.Events()
	records := make([]store.EventRecord, 0, len(events))
	for _, e := range events {
		rec, err := ToRecord(e)
		if err != nil {
			return fmt.Errorf("persist trace: %w", err)
		}
		records = append(records, rec)
	}

	if err := st.WriteEvents(ctx, r.runID, records); err != nil {
		return fmt.Errorf("persist trace: %w", err)
	}
	return nil
}

// ToRecord converts an event to its stored form. Next values are stored as
// canonical JSON, error events store the message.
func ToRecord(e Event) (store.EventRecord, error) {
	rec := store.EventRecord{
		Seq:    e.Seq,
		Stream: string(e.Stream),
		Key:    e.Key,
		Kind:   string(e.Kind),
	}
	switch e.Kind {
	case KindNext:
		b, err := MarshalCanonical(e.Value)
		if err != nil {
			return store.EventRecord{}, fmt.Errorf("event %d: %w", e.Seq, err)
		}
		rec.Value = string(b)
	case KindError:
		rec.Value = e.Err
	}
	return rec, nil
}

// FromRecord is the inverse of ToRecord.
func FromRecord(rec store.EventRecord) (Event, error) {
	e := Event{
		Seq:    rec.Seq,
		Stream: Side(rec.Stream),
		Key:    rec.Key,
		Kind:   Kind(rec.Kind),
	}
	switch e.Kind {
	case KindNext:
		v, err := DecodeValue([]byte(rec.Value))
		if err != nil {
			return Event{}, fmt.Errorf("event %d: %w", rec.Seq, err)
		}
		e.Value = v
	case KindError:
		e.Err = rec.Value
	}
	return e, nil
}
