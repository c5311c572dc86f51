package daemon

import (
	"errors"
	"sync"
	"time"
)

// ErrConsumerGone is returned by Push once the state owner has stopped.
var ErrConsumerGone = errors.New("command consumer gone")

// envelope is one raw payload relayed from the accept loop. receivedAt is
// stamped by the producer on the shared clock.
type envelope struct {
	id         string
	payload    string
	receivedAt time.Time
}

// commandQueue is an unbounded FIFO with any number of producers and a
// single consumer. Push never blocks on the consumer.
type commandQueue struct {
	mu     sync.Mutex
	items  []envelope
	closed bool
}

func newCommandQueue() *commandQueue {
	return &commandQueue{}
}

func (q *commandQueue) Push(e envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrConsumerGone
	}
	q.items = append(q.items, e)
	return nil
}

// TryPop removes the oldest envelope without waiting.
func (q *commandQueue) TryPop() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return envelope{}, false
	}
	e := q.items[0]
	q.items[0] = envelope{}
	q.items = q.items[1:]
	return e, true
}

func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the consumer as gone. Queued envelopes are dropped.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}
