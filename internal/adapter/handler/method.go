package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"b2c-hub/internal/adapter/channel"
	"b2c-hub/utils/logger"

	"github.com/labstack/echo/v4"
)

// DefaultMaxArgsBytes bounds the JSON arguments of one method call.
const DefaultMaxArgsBytes = 64 << 10

// MethodDispatcher runs one method call.
type MethodDispatcher interface {
	Handle(ctx context.Context, call channel.MethodCall) (any, *channel.MethodError)
}

// MethodHandler handles POST /methods/:method.
type MethodHandler struct {
	dispatcher MethodDispatcher
	maxBytes   int64
}

// NewMethodHandler creates a method handler. maxBytes <= 0 selects
// DefaultMaxArgsBytes.
func NewMethodHandler(d MethodDispatcher, maxBytes int64) *MethodHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArgsBytes
	}
	return &MethodHandler{dispatcher: d, maxBytes: maxBytes}
}

// methodResponse wraps a successful result. Asynchronous methods answer
// with a null result.
type methodResponse struct {
	Result any `json:"result"`
}

// Handle decodes the JSON arguments in the body and dispatches the call.
func (h *MethodHandler) Handle(c echo.Context) error {
	method := c.Param("method")
	ctx := logger.WithOperation(c.Request().Context(), method)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if int64(len(body)) > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, &channel.MethodError{
			Code:    channel.CodeInvalidArguments,
			Message: fmt.Sprintf("arguments exceed %d bytes", h.maxBytes),
		})
	}

	result, merr := h.dispatcher.Handle(ctx, channel.MethodCall{Method: method, Args: body})
	if merr != nil {
		return c.JSON(statusForMethodError(merr), merr)
	}
	return c.JSON(http.StatusOK, methodResponse{Result: result})
}
