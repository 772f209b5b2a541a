package stream

import "errors"

var (
	// ErrNotImitable is returned by Imitate on a stream not created by
	// NewProxy.
	ErrNotImitable = errors.New("stream: only proxy streams can imitate")

	// ErrAlreadyImitating is returned when a proxy is bound a second time.
	ErrAlreadyImitating = errors.New("stream: proxy is already imitating a stream")

	// ErrNilStream is returned when a nil stream is given where one is
	// required.
	ErrNilStream = errors.New("stream: nil stream")
)
