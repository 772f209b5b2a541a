package stream

import (
	"sync"
	"time"
)

// Delay shifts every value and the completion forward in time by d.
// Errors are not delayed.
//
// Each subscription owns one worker goroutine, so delayed values keep their
// emission order and are never delivered concurrently.
func (s *Stream) Delay(d time.Duration) *Stream {
	return New(func(e *Emitter) {
		q := newDelayQueue()
		e.OnDispose(q.Close)
		go q.drain(e)

		s.pipe(e, Listener{
			Next: func(v any) {
				q.Push(delayed{due: time.Now().Add(d), value: v})
			},
			Error: e.Error,
			Complete: func() {
				q.Push(delayed{due: time.Now().Add(d), complete: true})
			},
		})
	})
}

// delayed is one pending event in a delayQueue.
type delayed struct {
	due      time.Time
	value    any
	complete bool
}

// delayQueue is an unbounded FIFO of pending events with a coalescing
// signal channel, drained by a single goroutine.
//
// Items are pushed with non-decreasing due times, so the head is always the
// next one to fire.
type delayQueue struct {
	mu     sync.Mutex
	items  []delayed
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}
}

func newDelayQueue() *delayQueue {
	return &delayQueue{
		items:  make([]delayed, 0, 8),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends an item. Returns false if the queue is closed.
func (q *delayQueue) Push(item delayed) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// head returns the front item without removing it.
func (q *delayQueue) head() (delayed, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return delayed{}, false
	}
	return q.items[0], true
}

// pop removes the front item.
func (q *delayQueue) pop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}
	// Clear the slot so the value can be collected.
	q.items[0] = delayed{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
}

// Close drops pending items and stops the drain goroutine.
func (q *delayQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	close(q.done)
}

// drain delivers items to e when they fall due, until the queue is closed or
// a completion has been delivered.
func (q *delayQueue) drain(e *Emitter) {
	for {
		item, ok := q.head()
		if !ok {
			select {
			case <-q.done:
				return
			case <-q.signal:
				continue
			}
		}

		if wait := time.Until(item.due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-q.done:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		select {
		case <-q.done:
			return
		default:
		}
		q.pop()

		if item.complete {
			e.Complete()
			return
		}
		e.Next(item.value)
	}
}
