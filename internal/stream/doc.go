// Package stream is a small push-based stream library used to drive the
// cycle runtime.
//
// A Stream is cold: nothing happens until Subscribe is called, and every
// subscription runs the producer again. Operators (Map, Take, Delay, ...)
// return new streams that subscribe to their upstream when they are
// subscribed themselves.
//
// # Proxies
//
// NewProxy returns a placeholder stream that multicasts to all of its
// subscribers and can later be bound to a real stream with Imitate. This is
// the stable-identity node the cycle runtime hands to main before any driver
// exists:
//
//	proxy := stream.NewProxy()
//	doubled := proxy.Map(func(v any) any { return v.(int) * 2 })
//	// ... later
//	link, err := proxy.Imitate(stream.Of(1, 2, 3), nil)
//	defer link.Unsubscribe()
//
// # Concurrency
//
// Synchronous producers (Of, FromSlice, StartWith) emit on the subscribing
// goroutine. Delay and Interval emit from their own worker goroutine, one
// per subscription, so events of a single subscription are never delivered
// concurrently. Listeners that are shared between subscriptions must guard
// their own state.
//
// Unsubscribe may be called from inside a listener of the very stream being
// unsubscribed; teardown never holds a lock while calling user code.
package stream
