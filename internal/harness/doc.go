// Package harness runs declarative cycle scenarios and checks what they did.
//
// A scenario file (YAML or CUE) names a set of drivers, the sinks main
// produces from their sources, and assertions over the recorded trace:
//
//	name: echo-roundtrip
//	description: echo returns what main sends
//	drivers:
//	  out:
//	    type: echo
//	main:
//	  out:
//	    values: ["a", "b"]
//	assertions:
//	  - type: source_values
//	    key: out
//	    values: ["a", "b"]
//
// Run wires the scenario with cycle.New and the reference stream adapter,
// records every source event and every sink event a driver consumes, runs
// for duration_ms, disposes, and keeps recording for settle_ms. Drivers
// that ignore their sink (const, clock) record no sink events.
//
// Traces are deterministic for synchronous scenarios: seq numbers come from
// a logical clock and the run id is fixed unless the caller supplies a
// generator. Timer-driven scenarios are deterministic in order but not in
// how many ticks fit into the duration, so their assertions should use
// take or count rather than open-ended clocks.
//
// Golden files hold the canonical JSON snapshot of a run (see Snapshot) and
// are compared with goldie.
package harness
