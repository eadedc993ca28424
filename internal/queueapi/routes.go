package queueapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"msgq/internal/queue"
)

// RegisterRoutes builds the read-mostly debug surface for q. Messages are
// never sent or received over it.
func RegisterRoutes(q *queue.Queue, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := NewHandler(q, logger)
	e.Use(accessLog(h.Logger))
	e.GET("/healthz", h.Health)
	e.GET("/queue", h.Status)
	e.POST("/queue/clear", h.Clear)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return e
}

func accessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status_code", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("http request")
			return nil
		}
	}
}
