// Package cycle resolves the circular data flow between an application
// function (main) and a set of drivers.
//
// main turns a bundle of source streams into a bundle of sink streams; each
// driver turns one sink stream into one source stream. Sources depend on
// sinks and sinks on sources, so the graph is cyclic by construction.
//
// ARCHITECTURE:
//
// Two-phase wiring:
//  1. New builds the graph synchronously. It creates one placeholder (proxy)
//     stream per driver key, calls main once with the proxies, then calls
//     every driver once with its sink. No data flows yet.
//  2. Run activates the graph: each proxy starts imitating the real source
//     its driver returned. The returned dispose function cuts every link.
//
// The proxies bundle is handed to the caller as Wiring.Sources. Its
// identity never changes; only what each proxy forwards from is bound at
// Run. main can therefore close over a source before that source exists.
//
// Stream library:
// The runtime knows nothing about a concrete stream type. Every stream
// operation goes through an Adapter[S], supplied in Config or registered
// as the process default with SetDefaultAdapter.
//
// Ordering:
//   - main is called before any driver
//   - drivers and imitate calls run in sorted key order
//   - event delivery order across sources belongs to the stream library
//
// Errors:
//   - argument contract violations return *Error before anything is built
//   - errors returned by main or a driver are returned unchanged
//   - errors flowing out of a source after Run are reported as *SinkError
//     (logged and passed to Config.OnSinkError) and never returned
package cycle
