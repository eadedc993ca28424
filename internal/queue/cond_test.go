package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotEmpty_SignalWakesOldestWaiter(t *testing.T) {
	var mu sync.Mutex
	c := newNotEmpty(&mu)

	order := make(chan int, 2)
	for i := 1; i <= 2; i++ {
		go func(id int) {
			mu.Lock()
			defer mu.Unlock()
			c.waitForever()
			order <- id
		}(i)
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return c.waiting() == i
		}, time.Second, time.Millisecond)
	}

	mu.Lock()
	c.signal()
	mu.Unlock()
	assert.Equal(t, 1, <-order)

	mu.Lock()
	c.signal()
	mu.Unlock()
	assert.Equal(t, 2, <-order)
}

func TestNotEmpty_WaitTimesOut(t *testing.T) {
	var mu sync.Mutex
	c := newNotEmpty(&mu)

	mu.Lock()
	start := time.Now()
	signalled := c.wait(30 * time.Millisecond)
	elapsed := time.Since(start)
	waiting := c.waiting()
	mu.Unlock()

	assert.False(t, signalled)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Equal(t, 0, waiting)
}

func TestNotEmpty_ExpiredTimeoutDoesNotPark(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"ZeroTimeout", 0},
		{"NegativeTimeout", -time.Second},
		{"DeadlinePassed", time.Until(time.Now().Add(-time.Millisecond))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var mu sync.Mutex
			cond := newNotEmpty(&mu)

			done := make(chan bool, 1)
			go func() {
				mu.Lock()
				defer mu.Unlock()
				done <- cond.wait(tc.timeout)
			}()
			select {
			case signalled := <-done:
				assert.False(t, signalled)
			case <-time.After(time.Second):
				t.Fatal("wait with an expired timeout blocked")
			}
			mu.Lock()
			assert.Equal(t, 0, cond.waiting())
			mu.Unlock()
		})
	}
}

func TestNotEmpty_SignalWithoutWaitersIsNoop(t *testing.T) {
	var mu sync.Mutex
	c := newNotEmpty(&mu)

	mu.Lock()
	c.signal()
	c.broadcast()
	mu.Unlock()

	mu.Lock()
	signalled := c.wait(5 * time.Millisecond)
	mu.Unlock()
	assert.False(t, signalled)
}

func TestNotEmpty_BroadcastWakesAll(t *testing.T) {
	const waiters = 4
	var mu sync.Mutex
	c := newNotEmpty(&mu)

	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			assert.True(t, c.wait(time.Minute))
		}()
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.waiting() == waiters
	}, time.Second, time.Millisecond)

	mu.Lock()
	c.broadcast()
	mu.Unlock()
	wg.Wait()
}
