// Package events contains the message contracts of the interactive render
// session served over WebSocket.
package events

import (
	"time"

	api "salesdash/pkg/contracts/api/v1"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client messages
	MessageTypeRender    MessageType = "render"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// Server messages
	MessageTypeConnect   MessageType = "connect"
	MessageTypeDashboard MessageType = "dashboard"
	MessageTypeError     MessageType = "error"
)

// Error codes sent in error messages
const (
	ErrCodeInvalidFrame     = "INVALID_FRAME"
	ErrCodeUnsupportedType  = "UNSUPPORTED_TYPE"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeTableUnavailable = "TABLE_UNAVAILABLE"
	ErrCodeServerError      = "SERVER_ERROR"
)

// ClientMessage is a frame sent by the browser. ID is echoed in the reply.
type ClientMessage struct {
	ID        string             `json:"id,omitempty"`
	Type      MessageType        `json:"type"`
	Selection *api.RenderRequest `json:"selection,omitempty"`
}

// BaseMessage represents the base structure for all server messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete server message
type WebSocketMessage struct {
	BaseMessage
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorData  `json:"error,omitempty"`
}

// ErrorData describes why a client message could not be served.
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// ConnectData is sent once after the upgrade.
type ConnectData struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

// NewMessage builds a server message of type t replying to id.
func NewMessage(t MessageType, id, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        id,
			Type:      t,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// NewErrorMessage builds an error reply to id.
func NewErrorMessage(id, traceID, code, message string, details interface{}) WebSocketMessage {
	msg := NewMessage(MessageTypeError, id, traceID, nil)
	msg.Error = &ErrorData{Code: code, Message: message, Details: details}
	return msg
}
