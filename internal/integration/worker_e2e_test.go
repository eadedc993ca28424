package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgq/internal/queue"
	"msgq/internal/queueapi"
	"msgq/internal/telemetry"
	"msgq/internal/worker"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newInstrumentedQueue(t *testing.T) (*queue.Queue, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := telemetry.NewPrometheusMetrics(reg, "queue")
	require.NoError(t, err)
	q, err := queue.New(queue.WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Destroy() })
	return q, reg
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

// Producing a file then consuming it reproduces the input file byte for byte.
func TestWorkerEndToEnd_FileRoundTrip(t *testing.T) {
	q, reg := newInstrumentedQueue(t)
	ts := httptest.NewServer(queueapi.RegisterRoutes(q, reg, zerolog.Nop()))
	defer ts.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "input.txt")
	data := []byte("line1\nline2\nlast-no-nl")
	require.NoError(t, os.WriteFile(in, data, 0o644))

	ctx := context.Background()
	sent, err := worker.NewProducer(q, zerolog.Nop()).ProduceFile(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	code, body := get(t, ts.URL+"/queue")
	require.Equal(t, http.StatusOK, code)
	var status queueapi.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, queueapi.StatusResponse{Count: 3}, status)

	var out syncBuffer
	consumer := worker.NewConsumer(q, 100*time.Millisecond, 1024, zerolog.Nop())
	n, err := consumer.Consume(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, string(data), out.String())

	code, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	for _, want := range []string{
		"msgq_queue_messages_sent_total 3",
		"msgq_queue_messages_received_total 3",
		"msgq_queue_receive_timeouts_total 1",
		"msgq_queue_depth 0",
	} {
		assert.True(t, strings.Contains(body, want), "metrics missing %q", want)
	}
}

// A consumer started before any producer blocks on its first receive and
// picks up everything sent afterwards.
func TestWorkerEndToEnd_ConsumerFirst(t *testing.T) {
	q, _ := newInstrumentedQueue(t)
	ctx := context.Background()

	var out syncBuffer
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	consumer := worker.NewConsumer(q, 200*time.Millisecond, 64, zerolog.Nop())
	go func() {
		n, err := consumer.Consume(ctx, &out)
		done <- result{n, err}
	}()

	time.Sleep(50 * time.Millisecond)
	sent, err := worker.NewProducer(q, zerolog.Nop()).Produce(ctx, strings.NewReader("a\nb\nc\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 3, r.n)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
	assert.Equal(t, "a\nb\nc\n", out.String())
	assert.Equal(t, 0, q.Len())
}

// Clearing through the debug surface drops everything but the newest message.
func TestWorkerEndToEnd_ClearOverHTTP(t *testing.T) {
	q, reg := newInstrumentedQueue(t)
	ts := httptest.NewServer(queueapi.RegisterRoutes(q, reg, zerolog.Nop()))
	defer ts.Close()

	_, err := worker.NewProducer(q, zerolog.Nop()).Produce(context.Background(), strings.NewReader("old1\nold2\nnewest\n"))
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/queue/clear", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	buf := make([]byte, 64)
	n, err := q.ReceiveTimeout(buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "newest\n", string(buf[:n]))

	resp, err = http.Post(ts.URL+"/queue/clear", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, body := get(t, ts.URL+"/metrics")
	assert.True(t, strings.Contains(body, "msgq_queue_messages_cleared_total 2"), body)
}
