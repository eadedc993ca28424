package queue

import (
	"github.com/rs/zerolog"

	"msgq/internal/telemetry"
)

// DefaultMaxMessageSize is the largest payload stored per message unless
// overridden with WithMaxMessageSize.
const DefaultMaxMessageSize = 4096

type options struct {
	maxMessageSize int
	logger         zerolog.Logger
	metrics        telemetry.Metrics
	allocator      Allocator
}

type Option func(*options)

// WithMaxMessageSize sets the length longer payloads are truncated to on Send.
func WithMaxMessageSize(n int) Option {
	return func(o *options) {
		o.maxMessageSize = n
	}
}

// WithLogger sets the logger used for debug output on failure and truncation paths.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the sink for queue events.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithAllocator sets where message payload buffers come from.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

func defaultOptions() options {
	return options{
		maxMessageSize: DefaultMaxMessageSize,
		logger:         zerolog.Nop(),
		metrics:        telemetry.NoOpMetrics{},
		allocator:      NewPoolAllocator(),
	}
}

func (o options) validate() error {
	if o.maxMessageSize <= 0 {
		return ErrInvalidArgument
	}
	if o.allocator == nil || o.metrics == nil {
		return ErrInvalidArgument
	}
	return nil
}
