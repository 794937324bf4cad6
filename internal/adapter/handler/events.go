package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/internal/infrastructure/events"

	"github.com/labstack/echo/v4"
)

// EventName is the SSE event type operation results are sent as.
const EventName = "onEvent"

// DefaultHeartbeat is the interval between keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

// EventSource opens subscriptions to operation results.
type EventSource interface {
	Subscribe() (*events.Subscription, error)
	SubscribeAfter(afterSeq uint64) (*events.Subscription, []domain.OperationResult, error)
}

// EventsHandler streams operation results as server-sent events.
type EventsHandler struct {
	source    EventSource
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewEventsHandler creates an SSE handler. heartbeat <= 0 selects
// DefaultHeartbeat.
func NewEventsHandler(source EventSource, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{source: source, heartbeat: heartbeat, logger: logger}
}

// Handle processes GET /events. A consumer resuming with Last-Event-ID (or
// the lastEventId query parameter) first receives the remembered results it
// missed.
func (h *EventsHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	resume, afterSeq, err := lastEventID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var (
		sub     *events.Subscription
		backlog []domain.OperationResult
	)
	if resume {
		sub, backlog, err = h.source.SubscribeAfter(afterSeq)
	} else {
		sub, err = h.source.Subscribe()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event stream unavailable")
	}
	defer sub.Close()

	w := c.Response().Writer
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		h.logger.ErrorContext(ctx, "response writer does not support flushing")
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	for _, result := range backlog {
		if err := writeEvent(c.Response(), result); err != nil {
			return nil
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.DebugContext(ctx, "event stream closed by client")
			return nil

		case <-heartbeat.C:
			if _, err := c.Response().Write([]byte(": heartbeat\n\n")); err != nil {
				h.logger.DebugContext(ctx, "client disconnected during heartbeat", "error", err)
				return nil
			}
			flusher.Flush()

		case result, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := writeEvent(c.Response(), result); err != nil {
				h.logger.DebugContext(ctx, "client disconnected", "error", err)
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w *echo.Response, result domain.OperationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", result.Seq, EventName, data)
	return err
}

func lastEventID(c echo.Context) (bool, uint64, error) {
	raw := c.Request().Header.Get("Last-Event-ID")
	if raw == "" {
		raw = c.QueryParam("lastEventId")
	}
	if raw == "" {
		return false, 0, nil
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("invalid last event id %q", raw)
	}
	return true, seq, nil
}
