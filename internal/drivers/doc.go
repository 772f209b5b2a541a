// Package drivers holds ready-made cycle drivers.
//
// Const works with any stream library through its cycle.Adapter. The rest
// are built on internal/stream. Drivers that consume their sink forward
// the sink's errors into their source, which is how the runtime gets to
// report them.
package drivers
