package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/webhooks"
)

const (
	processingFailed = "Webhook processing failed"
	invalidSignature = "Invalid signature"
	invalidPayload   = "Invalid JSON payload"

	maxCallbackBytes = 1 << 20
)

type AckResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

type TestResponse struct {
	Message string `json:"message"`
	Body    any    `json:"body"`
}

// Callback acknowledges provider result callbacks. Any status other than 401
// from the processor, unreadable bodies included, is answered as a generic
// processing failure.
func Callback(handler webhooks.Handler, logger core.Logger, now func() time.Time) echo.HandlerFunc {
	if now == nil {
		now = core.SystemClock
	}
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if handler == nil {
			core.LogWithFields(ctx, logger, "error", "webhook handler is not configured", nil)
			return writeJSON(c, http.StatusInternalServerError, ErrorResponse{Error: processingFailed})
		}

		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBytes))
		if err != nil {
			logFailure(ctx, logger, c, err)
			return writeJSON(c, http.StatusInternalServerError, ErrorResponse{Error: processingFailed})
		}

		result, err := handler.Handle(ctx, core.InboundRequest{
			Surface: webhooks.SurfaceSmileID,
			Headers: flattenHeaders(c.Request().Header),
			Body:    body,
			Metadata: map[string]any{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_ip":  c.RealIP(),
			},
		})
		switch {
		case result.StatusCode == http.StatusUnauthorized:
			return writeJSON(c, http.StatusUnauthorized, ErrorResponse{Error: invalidSignature})
		case err != nil || result.StatusCode != http.StatusOK:
			logFailure(ctx, logger, c, err)
			return writeJSON(c, http.StatusInternalServerError, ErrorResponse{Error: processingFailed})
		}

		return writeJSON(c, http.StatusOK, AckResponse{
			Status:    "received",
			Message:   "Webhook processed successfully",
			Timestamp: core.FormatTimestamp(now()),
		})
	}
}

func Health(now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		return writeJSON(c, http.StatusOK, HealthResponse{
			Status:    "ok",
			Service:   ServiceName,
			Timestamp: core.FormatTimestamp(now()),
		})
	}
}

// TestEcho returns the decoded request body unchanged. An empty body echoes
// as an empty object.
func TestEcho(logger core.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBytes))
		if err != nil {
			return writeJSON(c, http.StatusBadRequest, ErrorResponse{Error: invalidPayload})
		}
		var body any = map[string]any{}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			if err := json.Unmarshal(trimmed, &body); err != nil {
				return writeJSON(c, http.StatusBadRequest, ErrorResponse{Error: invalidPayload})
			}
		}
		core.LogWithFields(c.Request().Context(), logger, "info", "test webhook received", map[string]any{
			"bytes": len(raw),
		})
		return writeJSON(c, http.StatusOK, TestResponse{Message: "Test webhook received", Body: body})
	}
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(key)] = values[0]
	}
	return out
}

func logFailure(ctx context.Context, logger core.Logger, c echo.Context, err error) {
	fields := map[string]any{
		"path":       c.Path(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["status"] = core.HTTPStatus(err)
	}
	core.LogWithFields(ctx, logger, "error", "webhook processing failed", fields)
}
