package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

type (
	ServiceConfig struct {
		AppConfig   AppConfig         `json:"app_config"`
		Logging     LoggingConfig     `json:"logging"`
		Queue       QueueConfig       `json:"queue"`
		Worker      WorkerConfig      `json:"worker"`
		DebugServer DebugServerConfig `json:"debug_server"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"msgq-worker" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	LoggingConfig struct {
		Level  string `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
	}

	QueueConfig struct {
		MaxMessageSize int  `envconfig:"QUEUE_MAX_MESSAGE_SIZE" default:"4096" json:"max_message_size"`
		MetricsEnabled bool `envconfig:"QUEUE_METRICS_ENABLED" default:"true" json:"metrics_enabled"`
	}

	WorkerConfig struct {
		ReceiveTimeout time.Duration `envconfig:"WORKER_RECEIVE_TIMEOUT" default:"2s" json:"receive_timeout"`
		BufferSize     int           `envconfig:"WORKER_BUFFER_SIZE" default:"1024" json:"buffer_size"`
	}

	DebugServerConfig struct {
		Enabled         bool          `envconfig:"DEBUG_SERVER_ENABLED" default:"false" json:"enabled"`
		Addr            string        `envconfig:"DEBUG_SERVER_ADDR" default:":8080" json:"addr"`
		ShutdownTimeout time.Duration `envconfig:"DEBUG_SERVER_SHUTDOWN_TIMEOUT" default:"5s" json:"shutdown_timeout"`
	}
)

// Init config from environment variables.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.AppConfig.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.AppConfig.CommitSHA = CommitSHA
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ServiceConfig) Validate() error {
	if c.Queue.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid configuration: QUEUE_MAX_MESSAGE_SIZE must be positive, got %d", c.Queue.MaxMessageSize)
	}
	if c.Worker.BufferSize <= 0 {
		return fmt.Errorf("invalid configuration: WORKER_BUFFER_SIZE must be positive, got %d", c.Worker.BufferSize)
	}
	if c.Worker.ReceiveTimeout <= 0 {
		return fmt.Errorf("invalid configuration: WORKER_RECEIVE_TIMEOUT must be positive, got %s", c.Worker.ReceiveTimeout)
	}
	return nil
}
