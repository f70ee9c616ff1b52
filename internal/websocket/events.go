package websocket

import (
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
// A nil broadcaster drops every event.
type EventBroadcaster struct {
	hub *Hub
	log *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, log *zap.Logger) *EventBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBroadcaster{hub: hub, log: log}
}

// BroadcastSyncRun sends sync.completed or sync.failed for a finished run,
// followed by one alert event per alert it raised.
func (b *EventBroadcaster) BroadcastSyncRun(run models.SyncRun) {
	if b == nil {
		return
	}

	msgType := TypeSyncCompleted
	if run.Outcome == models.OutcomeFailed {
		msgType = TypeSyncFailed
	}
	b.broadcast(NewMessage(msgType, SyncPayload{
		RunID:       run.ID,
		UnitID:      run.UnitID,
		Platform:    run.Platform,
		Outcome:     run.Outcome,
		Counts:      run.Counts,
		EventsFound: run.EventsFound,
		Error:       run.Error,
		FinishedAt:  run.FinishedAt,
	}))

	for _, a := range run.Alerts {
		b.BroadcastAlert(a)
	}
}

// BroadcastAlert sends an alert event.
func (b *EventBroadcaster) BroadcastAlert(a models.Alert) {
	if b == nil {
		return
	}
	b.broadcast(NewMessage(TypeAlert, AlertPayload{
		RunID:    a.RunID,
		UnitID:   a.UnitID,
		Platform: a.Platform,
		Severity: a.Severity,
		Title:    a.Title,
		Message:  a.Message,
	}))
}

// BroadcastStagedStatusChanged sends an operator review decision.
func (b *EventBroadcaster) BroadcastStagedStatusChanged(rec models.StagedRecord, previous models.StageStatus) {
	if b == nil {
		return
	}
	b.broadcast(NewMessage(TypeStagedStatusChanged, StagedStatusPayload{
		ID:             rec.ID,
		UnitID:         rec.UnitID,
		Platform:       rec.Platform,
		UID:            rec.UID,
		PreviousStatus: previous,
		NewStatus:      rec.Status,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error("encoding websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	b.hub.Broadcast(data)
}
