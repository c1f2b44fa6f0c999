package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"salesdash/internal/config"
	"salesdash/internal/infrastructure"
	"salesdash/internal/middleware"
	"salesdash/pkg/contracts/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10
)

// Renderer produces a dashboard for a selection.
type Renderer interface {
	Render(ctx context.Context, sel domain.FilterSelection) (*domain.Dashboard, error)
}

// Handler upgrades requests to render sessions and tracks the open ones.
type Handler struct {
	renderer   Renderer
	validation *middleware.ValidationMiddleware
	upgrader   websocket.Upgrader
	pongWait   time.Duration
	metrics    *SessionMetrics
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewHandler creates a session handler. A nil metrics records nothing.
func NewHandler(renderer Renderer, validation *middleware.ValidationMiddleware, cfg config.WebSocketConfig, metrics *SessionMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = NoopSessionMetrics()
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}

	return &Handler{
		renderer:   renderer,
		validation: validation,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		pongWait: pongWait,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "websocket"),
		sessions: make(map[string]*session),
	}
}

// ServeHTTP upgrades the connection and serves the session until the peer
// goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	traceID := middleware.GetRequestID(r.Context())
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}
	ctx := infrastructure.WithTraceID(context.WithoutCancel(r.Context()), traceID)

	s := &session{
		id:          uuid.New().String(),
		traceID:     traceID,
		conn:        conn,
		handler:     h,
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	s.logger = h.logger.With(
		slog.String("session_id", s.id),
		slog.String("trace_id", traceID),
	)

	h.register(s)
	defer h.unregister(s)

	s.run(ctx)
}

// ActiveSessions returns the number of open sessions.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll sends a going-away close frame to every open session.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	open := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	for _, s := range open {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}
	if len(open) > 0 {
		h.logger.Info("websocket sessions closed", slog.Int("sessions", len(open)))
	}
}

func (h *Handler) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Handler) unregister(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}
