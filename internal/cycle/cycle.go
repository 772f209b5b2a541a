package cycle

import (
	"log/slog"
	"sort"
	"sync"
)

// Sources maps driver keys to source streams.
type Sources[S any] map[string]S

// Sinks maps output keys to sink streams.
type Sinks[S any] map[string]S

// Main is the application function. It is called exactly once, with the
// proxy sources, before any driver runs.
type Main[S any] func(sources Sources[S]) (Sinks[S], error)

// Driver turns a sink stream into a source stream. It also receives the
// proxies bundle so it can read back other drivers' sources; those proxies
// carry no data until Run.
type Driver[S any] func(sink S, sources Sources[S]) (S, error)

// Drivers maps driver keys to drivers.
type Drivers[S any] map[string]Driver[S]

// Config carries per-call options for New.
type Config[S any] struct {
	// StreamAdapter is the stream library adapter. When nil, the adapter
	// registered with SetDefaultAdapter is used.
	StreamAdapter Adapter[S]

	// Logger is the diagnostic channel for errors surfacing after Run.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// OnSinkError, if set, is called once for every reported SinkError.
	OnSinkError func(err *SinkError)
}

// Wiring is the result of New: the sinks main produced, the stable proxy
// sources, and the Run entry point.
//
// State transitions: StateBuilt → StateRunning → StateDisposed.
type Wiring[S any] struct {
	Sinks   Sinks[S]
	Sources Sources[S]

	adapter     Adapter[S]
	realSources map[string]S
	keys        []string // sorted driver keys
	logger      *slog.Logger
	reporter    *errorReporter

	mu    sync.Mutex
	state State
	links []func()
}

// New wires main and drivers together without starting any data flow.
//
// Validation happens before anything is created. Errors returned by main or
// a driver are passed through unchanged; no later driver is called.
func New[S any](main Main[S], drivers Drivers[S], cfg Config[S]) (*Wiring[S], error) {
	adapter, err := validate(main, drivers, cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	keys := sortedKeys(drivers)

	proxies, err := makeProxies(adapter, keys)
	if err != nil {
		return nil, err
	}

	sinks, err := main(proxies)
	if err != nil {
		return nil, err
	}

	reporter := newErrorReporter(logger, cfg.OnSinkError)
	realSources, err := callDrivers(adapter, drivers, keys, sinks, proxies, reporter)
	if err != nil {
		return nil, err
	}

	for key := range sinks {
		if _, ok := drivers[key]; !ok {
			logger.Debug("sink has no driver", "sink", key)
		}
	}
	logger.Debug("cycle wired", "drivers", len(keys), "sinks", len(sinks))

	return &Wiring[S]{
		Sinks:       sinks,
		Sources:     proxies,
		adapter:     adapter,
		realSources: realSources,
		keys:        keys,
		logger:      logger,
		reporter:    reporter,
		state:       StateBuilt,
	}, nil
}

// validate checks the argument contract in precedence order and resolves
// the adapter.
func validate[S any](main Main[S], drivers Drivers[S], cfg Config[S]) (Adapter[S], error) {
	if main == nil {
		return nil, newInvalidMainError()
	}
	if drivers == nil {
		return nil, newInvalidDriversError("")
	}
	for _, key := range sortedKeys(drivers) {
		if drivers[key] == nil {
			return nil, newInvalidDriversError(key)
		}
	}
	if len(drivers) == 0 {
		return nil, newEmptyDriversError()
	}
	adapter, ok := resolveAdapter(cfg.StreamAdapter)
	if !ok {
		return nil, newMissingAdapterError()
	}
	return adapter, nil
}

// makeProxies creates one independent placeholder per driver key.
func makeProxies[S any](adapter Adapter[S], keys []string) (Sources[S], error) {
	proxies := make(Sources[S], len(keys))
	for _, key := range keys {
		p := adapter.MakeEmpty()
		if !adapter.IsValid(p) {
			return nil, &Error{
				Code:    ErrCodeInvalidProxy,
				Message: "stream adapter returned an invalid placeholder stream",
				Key:     key,
			}
		}
		proxies[key] = p
	}
	return proxies, nil
}

// callDrivers calls every driver once, in key order, with its sink or an
// empty stream when main produced none for it. Each driver receives its sink
// wrapped by ObserveErrors so sink errors reach the reporter.
func callDrivers[S any](
	adapter Adapter[S],
	drivers Drivers[S],
	keys []string,
	sinks Sinks[S],
	proxies Sources[S],
	reporter *errorReporter,
) (map[string]S, error) {
	realSources := make(map[string]S, len(keys))
	for _, key := range keys {
		sink, ok := sinks[key]
		if !ok {
			sink = adapter.MakeEmpty()
		} else if !adapter.IsValid(sink) {
			return nil, &Error{
				Code:    ErrCodeInvalidSink,
				Message: "main returned a sink that is not a valid stream",
				Key:     key,
			}
		}

		sink = adapter.ObserveErrors(sink, reporter.hook(key))

		source, err := drivers[key](sink, proxies)
		if err != nil {
			return nil, err
		}
		if !adapter.IsValid(source) {
			return nil, &Error{
				Code:    ErrCodeInvalidSource,
				Message: "driver returned a source that is not a valid stream",
				Key:     key,
			}
		}
		realSources[key] = source
	}
	return realSources, nil
}

func sortedKeys[S any](drivers Drivers[S]) []string {
	keys := make([]string, 0, len(drivers))
	for k := range drivers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
