// Package media holds helpers shared by the audio primitive backends.
package media

import (
	"sync"

	"github.com/osa030/podcastr/internal/app/surface"
)

// Queue is an unbounded event queue. Push never waits for the consumer, so
// a backend goroutine can report events while the consumer is blocked on a
// command to that same backend.
type Queue struct {
	in   chan surface.MediaEvent
	out  chan surface.MediaEvent
	done chan struct{}
	once sync.Once
}

// NewQueue creates a queue and starts its forwarding goroutine.
func NewQueue() *Queue {
	q := &Queue{
		in:   make(chan surface.MediaEvent),
		out:  make(chan surface.MediaEvent),
		done: make(chan struct{}),
	}
	go q.forward()
	return q
}

// Push enqueues ev. It returns false once the queue is closed.
func (q *Queue) Push(ev surface.MediaEvent) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.in <- ev:
		return true
	case <-q.done:
		return false
	}
}

// Events returns the consumer side of the queue. It is closed after Close.
func (q *Queue) Events() <-chan surface.MediaEvent {
	return q.out
}

// Close stops the queue and drops undelivered events.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

func (q *Queue) forward() {
	defer close(q.out)

	var pending []surface.MediaEvent
	for {
		var out chan surface.MediaEvent
		var next surface.MediaEvent
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case ev := <-q.in:
			pending = append(pending, ev)
		case out <- next:
			pending = pending[1:]
		case <-q.done:
			return
		}
	}
}
