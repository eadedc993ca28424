// Package queue provides an in-process, goroutine-safe FIFO of byte messages
// with blocking and bounded-wait receive.
//
// Messages are stored as a singly linked chain of blocks owned by the queue.
// Send copies the payload into a fresh block before taking the lock, then
// links it at the tail. Receive detaches the head block under the lock and
// copies the payload into the caller's buffer after releasing it. All shared
// state (head, tail, count) is guarded by one non-reentrant mutex.
//
// # Ordering
//
// Messages are delivered strictly in the order their sends acquired the
// lock, across all producers and consumers.
//
// # Waiting
//
// Receive waits until a message is available. ReceiveTimeout waits at most
// once, until a monotonic deadline, and reports ErrTimeout if the queue is
// still empty. A send on an empty queue wakes one waiter; waiters always
// re-check the queue after waking.
//
// # Lifecycle
//
// Close wakes all receivers and makes them return ErrClosed once the queue
// is drained. Destroy releases every message and invalidates the queue;
// callers must stop their consumers before destroying it and must not
// destroy a queue twice.
package queue
