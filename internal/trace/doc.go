// Package trace records what flows through a running cycle.
//
// A Recorder observes every proxy source (by subscribing to it) and every
// sink (through stream.Stream.Do), stamping each event with a logical
// sequence number. Sequence numbers come from a SeqClock, never from wall
// time, so a deterministic scenario produces an identical trace on every
// run.
//
// Traces serialize to canonical JSON (RFC 8785 key order, NFC strings, no
// HTML escaping) one event per line. That encoding is what golden files
// hold and what the store persists.
package trace
