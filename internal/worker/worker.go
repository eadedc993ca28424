package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"msgq/internal/queue"
)

// Sender is the producer side of a queue.
type Sender interface {
	Send(payload []byte) error
}

// Receiver is the consumer side of a queue.
type Receiver interface {
	Receive(buf []byte) (int, error)
	ReceiveTimeout(buf []byte, timeout time.Duration) (int, error)
}

type Producer struct {
	Queue  Sender
	Logger zerolog.Logger
}

func NewProducer(q Sender, logger zerolog.Logger) *Producer {
	return &Producer{
		Queue:  q,
		Logger: logger.With().Str("component", "producer").Logger(),
	}
}

// Produce sends every line of r as one message, newline included. A last
// line without a trailing newline is still sent. It returns the number of
// messages sent.
func (p *Producer) Produce(ctx context.Context, r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				if err := p.send(line); err != nil {
					return sent, err
				}
				sent++
			}
			p.Logger.Debug().Int("messages", sent).Msg("input exhausted")
			return sent, nil
		}
		if err != nil {
			return sent, fmt.Errorf("read input: %w", err)
		}
		if err := p.send(line); err != nil {
			return sent, err
		}
		sent++
	}
}

// ProduceFile is Produce over the contents of the file at path.
func (p *Producer) ProduceFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return p.Produce(ctx, f)
}

func (p *Producer) send(line []byte) error {
	if err := p.Queue.Send(line); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

type Consumer struct {
	ID      string
	Queue   Receiver
	Timeout time.Duration
	BufSize int
	Logger  zerolog.Logger
}

func NewConsumer(q Receiver, timeout time.Duration, bufSize int, logger zerolog.Logger) *Consumer {
	id := uuid.NewString()
	return &Consumer{
		ID:      id,
		Queue:   q,
		Timeout: timeout,
		BufSize: bufSize,
		Logger:  logger.With().Str("component", "consumer").Str("consumer_id", id).Logger(),
	}
}

// Consume waits for a first message with a blocking receive, then keeps
// receiving with the configured timeout until one times out. Every message
// is written to w. ctx is checked between receives; the first receive can
// only be released by a message or by closing the queue.
//
// It returns the number of messages written. A queue closed while waiting
// ends consumption without error.
func (c *Consumer) Consume(ctx context.Context, w io.Writer) (int, error) {
	buf := make([]byte, c.BufSize)

	n, err := c.Queue.Receive(buf)
	if err != nil {
		return 0, c.finish(0, err)
	}
	if err := c.write(w, buf[:n]); err != nil {
		return 0, err
	}
	written := 1

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}
		n, err := c.Queue.ReceiveTimeout(buf, c.Timeout)
		if err != nil {
			return written, c.finish(written, err)
		}
		if err := c.write(w, buf[:n]); err != nil {
			return written, err
		}
		written++
	}
}

func (c *Consumer) write(w io.Writer, msg []byte) error {
	c.Logger.Debug().Int("bytes", len(msg)).Msg("message received")
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (c *Consumer) finish(written int, err error) error {
	switch {
	case errors.Is(err, queue.ErrTimeout):
		c.Logger.Info().Int("messages", written).Dur("timeout", c.Timeout).Msg("wait timeout")
		return nil
	case errors.Is(err, queue.ErrClosed):
		c.Logger.Info().Int("messages", written).Msg("queue closed")
		return nil
	default:
		return fmt.Errorf("receive message: %w", err)
	}
}
