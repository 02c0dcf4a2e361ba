package remoteclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SpanHandle is returned by StartSpan and passed to EndSpan.
type SpanHandle struct {
	TraceID   string
	SpanID    string
	Name      string
	StartedAt time.Time
}

// StartSpan begins a best-effort telemetry span. Span writes never block
// the caller on network failure: see EndSpan/EmitEvent.
func (c *Client) StartSpan(name string) SpanHandle {
	return SpanHandle{
		TraceID:   uuid.NewString(),
		SpanID:    uuid.NewString(),
		Name:      name,
		StartedAt: time.Now(),
	}
}

// EndSpan writes a completed span record. Failures are logged, never
// surfaced — telemetry is never allowed to affect control flow.
func (c *Client) EndSpan(ctx context.Context, logger *slog.Logger, span SpanHandle, ok bool) {
	req := struct {
		TraceID    string `json:"trace_id"`
		SpanID     string `json:"span_id"`
		Name       string `json:"name"`
		DurationMs int64  `json:"duration_ms"`
		OK         bool   `json:"ok"`
	}{
		TraceID:    span.TraceID,
		SpanID:     span.SpanID,
		Name:       span.Name,
		DurationMs: time.Since(span.StartedAt).Milliseconds(),
		OK:         ok,
	}
	if err := c.doJSON(ctx, "end_span", http.MethodPost, "/telemetry/spans", req, nil); err != nil {
		logger.Debug("telemetry span write failed", slog.String("span", span.Name), slog.Any("error", err))
	}
}

// EmitEvent writes a best-effort telemetry event, independent of any span.
func (c *Client) EmitEvent(ctx context.Context, logger *slog.Logger, kind, message string) {
	req := struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{Kind: kind, Message: message}
	if err := c.doJSON(ctx, "emit_event", http.MethodPost, "/telemetry/events", req, nil); err != nil {
		logger.Debug("telemetry event write failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
