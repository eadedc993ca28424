package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"msgq/internal/config"
	"msgq/internal/logger"
	"msgq/internal/queue"
	"msgq/internal/queueapi"
	"msgq/internal/telemetry"
	"msgq/internal/worker"
)

const (
	dirPerm        = 0o755
	defaultMessage = "hello from the msgq producer\n"
)

type flags struct {
	inPath  string
	outPath string
	message string
}

func main() {
	fl := parseFlags(os.Args[1:])

	cfg, err := config.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.AppConfig, cfg.Logging, os.Stderr)
	ctx, cancel := signalContext(context.Background(), log)
	defer cancel()

	if err := run(ctx, cfg, fl, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker failed")
		os.Exit(1)
	}
	log.Info().Msg("worker finished successfully")
}

func parseFlags(args []string) flags {
	var fl flags
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.StringVar(&fl.inPath, "in", "", "input file, one message per line (default: send -message once)")
	fs.StringVar(&fl.outPath, "out", "", "output file for received messages (default: stdout)")
	fs.StringVar(&fl.message, "message", defaultMessage, "message to send when -in is not set")
	fs.Parse(args)
	return fl
}

func run(ctx context.Context, cfg *config.ServiceConfig, fl flags, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	var metrics telemetry.Metrics = telemetry.NoOpMetrics{}
	if cfg.Queue.MetricsEnabled {
		m, err := telemetry.NewPrometheusMetrics(reg, "queue")
		if err != nil {
			return err
		}
		metrics = m
	}

	q, err := queue.New(
		queue.WithMaxMessageSize(cfg.Queue.MaxMessageSize),
		queue.WithLogger(log),
		queue.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := q.Destroy(); err != nil {
			log.Warn().Err(err).Msg("destroy queue")
		}
	}()

	if cfg.DebugServer.Enabled {
		stop := startDebugServer(cfg.DebugServer, queueapi.RegisterRoutes(q, reg, log), log)
		defer stop()
	}

	out, closeOut, err := openOutput(fl.outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	consumer := worker.NewConsumer(q, cfg.Worker.ReceiveTimeout, cfg.Worker.BufferSize, log)
	producer := worker.NewProducer(q, log)
	log.Info().
		Str("in", fl.inPath).
		Str("out", fl.outPath).
		Dur("receive_timeout", cfg.Worker.ReceiveTimeout).
		Str("consumer_id", consumer.ID).
		Msg("worker start")

	var consErr error
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		n, err := consumer.Consume(ctx, out)
		log.Info().Int("messages", n).Msg("consumer finished")
		consErr = err
	}()

	// a consumer stuck in its first blocking receive can only be released
	// by closing the queue
	go func() {
		select {
		case <-ctx.Done():
			log.Info().Msg("closing queue")
			_ = q.Close()
		case <-consumerDone:
		}
	}()

	sent, prodErr := produce(ctx, producer, fl)
	log.Info().Int("messages", sent).Msg("producer finished")
	if prodErr != nil || sent == 0 {
		_ = q.Close()
	}

	<-consumerDone
	return errors.Join(prodErr, consErr)
}

func produce(ctx context.Context, p *worker.Producer, fl flags) (int, error) {
	if fl.inPath != "" {
		return p.ProduceFile(ctx, fl.inPath)
	}
	return p.Produce(ctx, strings.NewReader(fl.message))
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func startDebugServer(cfg config.DebugServerConfig, h http.Handler, log zerolog.Logger) func() {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("debug server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("debug server")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("debug server shutdown")
		}
	}
}

func signalContext(parent context.Context, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("signal received: shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
