package queueapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"msgq/internal/queue"
)

type StatusResponse struct {
	Count  int  `json:"count"`
	Closed bool `json:"closed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	Queue  *queue.Queue
	Logger zerolog.Logger
}

func NewHandler(q *queue.Queue, logger zerolog.Logger) *Handler {
	return &Handler{
		Queue:  q,
		Logger: logger.With().Str("component", "queueapi").Logger(),
	}
}

func (h *Handler) Status(c echo.Context) error {
	n, err := h.Queue.Count()
	if err != nil {
		return h.error(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Count: n, Closed: h.Queue.Closed()})
}

func (h *Handler) Clear(c echo.Context) error {
	if err := h.Queue.Clear(); err != nil {
		return h.error(c, err)
	}
	h.Logger.Info().Msg("queue cleared via debug api")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Health(c echo.Context) error {
	if _, err := h.Queue.Count(); err != nil {
		return c.String(http.StatusServiceUnavailable, "queue unavailable")
	}
	return c.String(http.StatusOK, "ok")
}

func (h *Handler) error(c echo.Context, err error) error {
	code := queue.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, queue.ErrQueueEmpty):
		status = http.StatusConflict
	case errors.Is(err, queue.ErrInvalidArgument):
		status = http.StatusGone
	}
	h.Logger.Debug().Err(err).Str("code", code.String()).Int("status", status).Msg("request failed")
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: code.String()})
}
