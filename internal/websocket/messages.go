package websocket

import (
	"encoding/json"
	"time"

	"github.com/booking-sync/backend/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSyncCompleted       MessageType = "sync.completed"
	TypeSyncFailed          MessageType = "sync.failed"
	TypeAlert               MessageType = "alert"
	TypeStagedStatusChanged MessageType = "staged.status_changed"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncPayload is the payload for sync.completed and sync.failed events.
type SyncPayload struct {
	RunID       string             `json:"run_id"`
	UnitID      string             `json:"unit_id"`
	Platform    models.Platform    `json:"platform"`
	Outcome     models.SyncOutcome `json:"outcome"`
	Counts      models.SyncCounts  `json:"counts"`
	EventsFound int                `json:"events_found"`
	Error       string             `json:"error,omitempty"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// AlertPayload is the payload for alert events.
type AlertPayload struct {
	RunID    string          `json:"run_id,omitempty"`
	UnitID   string          `json:"unit_id"`
	Platform models.Platform `json:"platform"`
	Severity string          `json:"severity"` // info, warning, error
	Title    string          `json:"title"`
	Message  string          `json:"message"`
}

// StagedStatusPayload is the payload for staged.status_changed events.
type StagedStatusPayload struct {
	ID             string             `json:"id"`
	UnitID         string             `json:"unit_id"`
	Platform       models.Platform    `json:"platform"`
	UID            string             `json:"external_uid"`
	PreviousStatus models.StageStatus `json:"previous_status"`
	NewStatus      models.StageStatus `json:"new_status"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
