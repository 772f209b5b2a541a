// Package store provides SQLite-backed storage for recorded cycle runs and
// for the kv driver.
//
// Tables:
//   - runs: one row per recorded run, keyed by run id
//   - trace_events: the source and sink events of a run
//   - kv: key/value pairs served by the kv driver
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Queries
// returning several rows order by seq first and break ties on id or key
// with COLLATE BINARY, so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store holds event values as text. Callers serialize them first, the
// trace package with its canonical JSON encoder.
package store
