package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	apierrors "salesdash/internal/errors"
	"salesdash/internal/exporter"
	"salesdash/internal/services"
	api "salesdash/pkg/contracts/api/v1"
	"salesdash/pkg/contracts/events"
)

// session serves one connection. Replies are written only from the read
// loop; pings and close frames go through WriteControl.
type session struct {
	id          string
	traceID     string
	conn        *websocket.Conn
	handler     *Handler
	logger      *slog.Logger
	connectedAt time.Time
	done        chan struct{}
}

func (s *session) run(ctx context.Context) {
	metrics := s.handler.metrics
	metrics.RecordConnection(ctx)
	s.logger.InfoContext(ctx, "websocket session opened",
		slog.String("remote_addr", s.conn.RemoteAddr().String()))

	reason := "client_closed"
	defer func() {
		close(s.done)
		s.conn.Close()
		duration := time.Since(s.connectedAt)
		metrics.RecordDisconnection(ctx, duration, reason)
		s.logger.InfoContext(ctx, "websocket session closed",
			slog.String("reason", reason),
			slog.Duration("duration", duration))
	}()

	pongWait := s.handler.pongWait
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	connect := events.NewMessage(events.MessageTypeConnect, "", s.traceID, events.ConnectData{
		SessionID: s.id,
		Title:     services.PageTitle,
	})
	if err := s.send(ctx, connect); err != nil {
		reason = "write_error"
		return
	}

	go s.ping(pongWait * 9 / 10)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = "read_error"
				s.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		reply, ok := s.handle(ctx, frame)
		if !ok {
			continue
		}
		if err := s.send(ctx, reply); err != nil {
			reason = "write_error"
			return
		}
	}
}

// handle answers one client frame. It reports false when no reply is due.
func (s *session) handle(ctx context.Context, frame []byte) (events.WebSocketMessage, bool) {
	metrics := s.handler.metrics

	var msg events.ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.RecordMessage(ctx, "inbound", "invalid", len(frame))
		return s.reject(ctx, "", events.ErrCodeInvalidFrame, "frame is not a JSON message", err.Error()), true
	}
	metrics.RecordMessage(ctx, "inbound", string(msg.Type), len(frame))

	switch msg.Type {
	case events.MessageTypeHeartbeat:
		return events.WebSocketMessage{}, false
	case events.MessageTypeRender:
		return s.render(ctx, msg), true
	default:
		return s.reject(ctx, msg.ID, events.ErrCodeUnsupportedType,
			fmt.Sprintf("unsupported message type %q", msg.Type), nil), true
	}
}

func (s *session) render(ctx context.Context, msg events.ClientMessage) events.WebSocketMessage {
	if msg.Selection == nil {
		return s.reject(ctx, msg.ID, events.ErrCodeValidation, "selection is required", nil)
	}
	if err := s.handler.validation.ValidateStruct(msg.Selection); err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			return s.reject(ctx, msg.ID, events.ErrCodeValidation, apiErr.Message, apiErr.Details)
		}
		return s.reject(ctx, msg.ID, events.ErrCodeValidation, err.Error(), nil)
	}
	sel, err := msg.Selection.ToSelection()
	if err != nil {
		return s.reject(ctx, msg.ID, events.ErrCodeValidation, err.Error(), nil)
	}

	start := time.Now()
	dash, err := s.handler.renderer.Render(ctx, sel)
	s.handler.metrics.RecordRender(ctx, time.Since(start), err == nil)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSelection):
			return s.reject(ctx, msg.ID, events.ErrCodeValidation, err.Error(), nil)
		case errors.Is(err, services.ErrTableNotLoaded):
			return s.reject(ctx, msg.ID, events.ErrCodeTableUnavailable, "sales table is not available", nil)
		default:
			s.logger.ErrorContext(ctx, "render failed", slog.String("error", err.Error()))
			return s.reject(ctx, msg.ID, events.ErrCodeServerError, "render failed", nil)
		}
	}

	resp := api.NewDashboardResponse(dash)
	resp.Metrics.Display = exporter.Display(dash.Metrics)
	return events.NewMessage(events.MessageTypeDashboard, msg.ID, s.traceID, resp)
}

func (s *session) reject(ctx context.Context, id, code, message string, details interface{}) events.WebSocketMessage {
	s.handler.metrics.RecordMessageError(ctx, code)
	s.logger.DebugContext(ctx, "client message rejected",
		slog.String("message_id", id),
		slog.String("code", code),
		slog.String("message", message))
	return events.NewErrorMessage(id, s.traceID, code, message, details)
}

func (s *session) send(ctx context.Context, msg events.WebSocketMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.WarnContext(ctx, "websocket write failed", slog.String("error", err.Error()))
		return err
	}
	s.handler.metrics.RecordMessage(ctx, "outbound", string(msg.Type), len(payload))
	return nil
}

func (s *session) ping(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *session) close(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
