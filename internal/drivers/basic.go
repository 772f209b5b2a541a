package drivers

import (
	"log/slog"
	"time"

	"github.com/staltz/base/internal/cycle"
	"github.com/staltz/base/internal/stream"
)

// Const returns a driver that ignores its sink; its source emits values in
// order and completes.
func Const[S any](a cycle.Adapter[S], values ...any) cycle.Driver[S] {
	items := make([]any, len(values))
	copy(items, values)
	return func(_ S, _ cycle.Sources[S]) (S, error) {
		return a.FromValue(items), nil
	}
}

// Echo returns a driver whose source replays its sink through transform.
// A nil transform echoes values unchanged. An error from transform
// terminates the source with that error.
func Echo(transform func(v any) (any, error)) cycle.Driver[*stream.Stream] {
	return func(sink *stream.Stream, _ cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
		if transform == nil {
			return sink, nil
		}
		return sink.TryMap(transform), nil
	}
}

// Clock returns a driver that ignores its sink; its source emits 0, 1, 2,
// ... every period. A positive count completes the source after count ticks.
func Clock(period time.Duration, count int) cycle.Driver[*stream.Stream] {
	return func(_ *stream.Stream, _ cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
		ticks := stream.Interval(period)
		if count > 0 {
			ticks = ticks.Take(count)
		}
		return ticks, nil
	}
}

// Log returns a driver that logs every sink event at info level and
// re-emits the sink's values as its source.
func Log(logger *slog.Logger, name string) cycle.Driver[*stream.Stream] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(sink *stream.Stream, _ cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
		return sink.Do(stream.Listener{
			Next: func(v any) {
				logger.Info("sink value", "driver", name, "value", v)
			},
			Error: func(err error) {
				logger.Warn("sink failed", "driver", name, "error", err)
			},
			Complete: func() {
				logger.Debug("sink completed", "driver", name)
			},
		}), nil
	}
}
