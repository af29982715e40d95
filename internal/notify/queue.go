package notify

import "sync/atomic"

// Queue is a bounded, non-blocking notification channel. A consumer (for
// example a UI toast renderer) drains C; when the buffer is full new
// notifications are dropped and counted.
type Queue struct {
	C <-chan Notification

	ch      chan Notification
	dropped atomic.Int64
}

// NewQueue creates a Queue buffering up to size notifications.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	ch := make(chan Notification, size)
	return &Queue{C: ch, ch: ch}
}

// Notify enqueues the message or drops it when the buffer is full.
func (q *Queue) Notify(kind Kind, message string) {
	select {
	case q.ch <- Notification{Kind: kind, Message: message}:
	default:
		q.dropped.Add(1)
	}
}

// Dropped reports how many notifications were discarded.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Drain returns all currently buffered notifications without blocking.
func (q *Queue) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-q.ch:
			out = append(out, n)
		default:
			return out
		}
	}
}
