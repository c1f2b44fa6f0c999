package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// SessionMetrics holds the OpenTelemetry instruments for render sessions.
type SessionMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram

	messagesTotal  metric.Int64Counter
	messageBytes   metric.Int64Counter
	messageErrors  metric.Int64Counter
	renderDuration metric.Float64Histogram
}

// NewSessionMetrics registers the session instruments on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket render sessions"),
	)
	if err != nil {
		return nil, err
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of open WebSocket render sessions"),
	)
	if err != nil {
		return nil, err
	}

	connectionDuration, err := meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket render sessions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages"),
	)
	if err != nil {
		return nil, err
	}

	messageBytes, err := meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	messageErrors, err := meter.Int64Counter(
		"websocket_message_errors_total",
		metric.WithDescription("Total number of client messages answered with an error"),
	)
	if err != nil {
		return nil, err
	}

	renderDuration, err := meter.Float64Histogram(
		"websocket_render_duration_seconds",
		metric.WithDescription("Time from a render request to its reply"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		connectionsTotal:   connectionsTotal,
		connectionsActive:  connectionsActive,
		connectionDuration: connectionDuration,
		messagesTotal:      messagesTotal,
		messageBytes:       messageBytes,
		messageErrors:      messageErrors,
		renderDuration:     renderDuration,
	}, nil
}

// NoopSessionMetrics returns instruments that record nothing.
func NoopSessionMetrics() *SessionMetrics {
	m, _ := NewSessionMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// RecordConnection records a session opening.
func (m *SessionMetrics) RecordConnection(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records a session closing after duration.
func (m *SessionMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("disconnect_reason", reason)))
}

// RecordMessage records one frame moving in direction ("inbound" or "outbound").
func (m *SessionMetrics) RecordMessage(ctx context.Context, direction, messageType string, size int) {
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("message_type", messageType),
	)
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, int64(size), attrs)
}

// RecordMessageError records a client message rejected with code.
func (m *SessionMetrics) RecordMessageError(ctx context.Context, code string) {
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_code", code)))
}

// RecordRender records how long a render request took.
func (m *SessionMetrics) RecordRender(ctx context.Context, duration time.Duration, success bool) {
	m.renderDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", success)))
}
