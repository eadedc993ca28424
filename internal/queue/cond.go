package queue

import (
	"sync"
	"time"
)

// notEmpty is a condition variable bound to the queue mutex that, unlike
// sync.Cond, supports a bounded wait. Waiters are woken in arrival order.
type notEmpty struct {
	l       sync.Locker
	waiters []chan struct{}
}

func newNotEmpty(l sync.Locker) *notEmpty {
	return &notEmpty{l: l}
}

// waitForever blocks until signalled. It must be called with l held and
// returns with l held.
func (c *notEmpty) waitForever() {
	c.park(nil)
}

// wait is waitForever bounded by timeout. It reports whether the waiter was
// signalled; false means the deadline passed first. A non-positive timeout
// returns false at once without releasing l.
func (c *notEmpty) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	return c.park(t.C)
}

// park queues the caller and sleeps until signalled or until expired fires.
// A nil expired never fires.
func (c *notEmpty) park(expired <-chan time.Time) bool {
	ch := make(chan struct{}, 1)
	c.waiters = append(c.waiters, ch)
	c.l.Unlock()

	signalled := true
	select {
	case <-ch:
	case <-expired:
		signalled = false
	}

	c.l.Lock()
	if !signalled && !c.remove(ch) {
		// signal raced with the deadline and already took us off the list
		signalled = true
	}
	return signalled
}

// signal wakes the oldest waiter, if any. Caller holds l.
func (c *notEmpty) signal() {
	if len(c.waiters) == 0 {
		return
	}
	ch := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	ch <- struct{}{}
}

// broadcast wakes every waiter. Caller holds l.
func (c *notEmpty) broadcast() {
	for _, ch := range c.waiters {
		ch <- struct{}{}
	}
	c.waiters = nil
}

func (c *notEmpty) waiting() int {
	return len(c.waiters)
}

func (c *notEmpty) remove(ch chan struct{}) bool {
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}
