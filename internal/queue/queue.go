package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Queue is an unbounded FIFO of byte messages shared between producer and
// consumer goroutines. The zero value is not usable; create queues with New.
type Queue struct {
	mu       sync.Mutex
	notEmpty *notEmpty

	head  *block
	tail  *block
	count int

	closed    bool
	destroyed bool

	opts   options
	logger zerolog.Logger
}

// New creates an empty queue.
func New(opts ...Option) (*Queue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("new queue: %w", err)
	}

	q := &Queue{
		opts:   o,
		logger: o.logger.With().Str("component", "msgq").Logger(),
	}
	q.notEmpty = newNotEmpty(&q.mu)
	return q, nil
}

// Send appends a copy of payload to the tail of the queue. Payloads longer
// than the maximum message size are truncated to it.
func (q *Queue) Send(payload []byte) error {
	if q == nil {
		return ErrInvalidArgument
	}
	if len(payload) == 0 {
		return q.fail("send", ErrInvalidArgument)
	}

	truncated := false
	if limit := q.opts.maxMessageSize; len(payload) > limit {
		q.logger.Debug().Int("len", len(payload)).Int("max", limit).Msg("message truncated")
		payload = payload[:limit]
		truncated = true
	}

	b, err := newBlock(q.opts.allocator, payload)
	if err != nil {
		if !errors.Is(err, ErrOutOfMemory) {
			err = fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
		return q.fail("send", err)
	}
	size := b.len()

	q.mu.Lock()
	if q.destroyed || q.closed {
		err := ErrClosed
		if q.destroyed {
			err = ErrInvalidArgument
		}
		q.mu.Unlock()
		b.free(q.opts.allocator)
		return q.fail("send", err)
	}

	if q.count == 0 {
		q.head = b
		q.tail = b
		q.count = 1
		q.notEmpty.signal()
	} else {
		q.tail.next = b
		q.tail = b
		q.count++
	}
	q.opts.metrics.Depth(q.count)
	q.mu.Unlock()

	q.opts.metrics.MessageSent(size, truncated)
	return nil
}

// Receive blocks until a message is available, copies it into buf and
// returns the number of bytes copied. A message longer than buf is
// truncated to len(buf); the remainder is discarded.
//
// Receive can only be released by a Send, Close or Destroy on the queue.
func (q *Queue) Receive(buf []byte) (int, error) {
	if q == nil {
		return 0, ErrInvalidArgument
	}
	start := time.Now()

	q.mu.Lock()
	for q.count == 0 && !q.closed && !q.destroyed {
		q.notEmpty.waitForever()
	}
	b, err := q.takeLocked()
	q.mu.Unlock()
	if err != nil {
		return 0, q.fail("receive", err)
	}

	return q.deliver(b, buf, start), nil
}

// ReceiveTimeout is Receive with a bounded wait. If the queue is empty it
// waits once, until a send wakes it or timeout elapses, and fails with
// ErrTimeout if the queue is still empty afterwards. A non-positive timeout
// does not wait at all.
func (q *Queue) ReceiveTimeout(buf []byte, timeout time.Duration) (int, error) {
	if q == nil {
		return 0, ErrInvalidArgument
	}
	start := time.Now()
	deadline := start.Add(timeout)

	q.mu.Lock()
	if q.count == 0 && !q.closed && !q.destroyed {
		// time spent acquiring mu counts against the deadline
		q.notEmpty.wait(time.Until(deadline))
	}
	if q.count == 0 && !q.closed && !q.destroyed {
		q.mu.Unlock()
		q.opts.metrics.ReceiveTimedOut()
		return 0, q.fail("receive_timeout", ErrTimeout)
	}
	b, err := q.takeLocked()
	q.mu.Unlock()
	if err != nil {
		return 0, q.fail("receive_timeout", err)
	}

	return q.deliver(b, buf, start), nil
}

// Clear discards every message except the most recent one. It fails with
// ErrQueueEmpty when there is nothing to keep.
func (q *Queue) Clear() error {
	if q == nil {
		return ErrInvalidArgument
	}

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return q.fail("clear", ErrInvalidArgument)
	}
	if q.count <= 0 {
		q.mu.Unlock()
		return q.fail("clear", ErrQueueEmpty)
	}

	dropped := 0
	for b := q.head; b != q.tail; {
		next := b.next
		b.free(q.opts.allocator)
		b = next
		dropped++
	}
	q.head = q.tail
	q.count = 1
	q.opts.metrics.Depth(q.count)
	q.mu.Unlock()

	q.opts.metrics.Cleared(dropped)
	q.logger.Debug().Int("dropped", dropped).Msg("queue cleared")
	return nil
}

// Count returns a snapshot of the number of queued messages.
func (q *Queue) Count() (int, error) {
	if q == nil {
		return 0, ErrInvalidArgument
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return 0, ErrInvalidArgument
	}
	return q.count, nil
}

// Len is Count without the error; an invalid queue has length 0.
func (q *Queue) Len() int {
	n, _ := q.Count()
	return n
}

// Closed reports whether Close or Destroy has been called.
func (q *Queue) Closed() bool {
	if q == nil {
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops the queue from accepting messages and wakes every blocked
// receiver. Receivers keep draining queued messages and get ErrClosed once
// the queue is empty.
func (q *Queue) Close() error {
	if q == nil {
		return ErrInvalidArgument
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.destroyed:
		return ErrInvalidArgument
	case q.closed:
		return ErrClosed
	}
	q.closed = true
	q.notEmpty.broadcast()
	q.logger.Debug().Int("pending", q.count).Msg("queue closed")
	return nil
}

// Destroy releases every queued message and invalidates the queue. Every
// later call on it fails with ErrInvalidArgument.
//
// Consumers must be quiesced before Destroy; a receiver still blocked at
// that point is woken and gets ErrInvalidArgument. Destroying twice is a
// caller error and is reported as ErrInvalidArgument.
func (q *Queue) Destroy() error {
	if q == nil {
		return ErrInvalidArgument
	}

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return q.fail("destroy", ErrInvalidArgument)
	}

	dropped := 0
	for b := q.head; b != nil; {
		next := b.next
		b.free(q.opts.allocator)
		b = next
		dropped++
	}
	q.head = nil
	q.tail = nil
	q.count = 0
	q.closed = true
	q.destroyed = true
	q.notEmpty.broadcast()
	q.opts.metrics.Depth(0)
	q.mu.Unlock()

	if dropped > 0 {
		q.opts.metrics.Cleared(dropped)
	}
	q.logger.Debug().Int("dropped", dropped).Msg("queue destroyed")
	return nil
}

// takeLocked detaches the head block. Caller holds mu.
func (q *Queue) takeLocked() (*block, error) {
	switch {
	case q.destroyed:
		return nil, ErrInvalidArgument
	case q.count == 0:
		return nil, ErrClosed
	}

	b := q.head
	if q.count == 1 {
		q.head = nil
		q.tail = nil
		q.count = 0
	} else {
		q.head = b.next
		q.count--
	}
	b.next = nil
	q.opts.metrics.Depth(q.count)

	// Send only signals on the empty to non-empty edge; hand the wakeup on
	// so a second blocked receiver sees the messages left behind.
	if q.count > 0 && q.notEmpty.waiting() > 0 {
		q.notEmpty.signal()
	}
	return b, nil
}

// deliver copies the popped block out and releases it. The block is no
// longer reachable from the queue, so mu is not held.
func (q *Queue) deliver(b *block, buf []byte, start time.Time) int {
	n := b.copyTo(buf)
	b.free(q.opts.allocator)
	q.opts.metrics.MessageReceived(time.Since(start))
	return n
}

func (q *Queue) fail(op string, err error) error {
	q.logger.Debug().Str("op", op).Err(err).Msg("queue operation failed")
	q.opts.metrics.OperationFailed(op, CodeOf(err).String())
	return err
}
