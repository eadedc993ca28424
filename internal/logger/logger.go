package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"msgq/internal/config"
)

// New builds the process logger. Unknown levels fall back to info; the
// "console" format writes human readable lines, anything else writes JSON.
func New(app config.AppConfig, cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", app.ServiceName).
		Str("version", app.ServiceVersion).
		Logger()
}
