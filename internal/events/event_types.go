package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventIncidentDeleted EventType = "incident_deleted"
	EventUserCreated     EventType = "user_created"
	EventUserUpdated     EventType = "user_updated"
	EventUserDeleted     EventType = "user_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	RequestorID int64  `json:"requestor_id"`
}

// IncidentUpdatedPayload payload.
type IncidentUpdatedPayload struct {
	Columns []string `json:"columns"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterLoggingObserver subscribes a zap handler for every event type so
// domain activity shows up in the structured log.
func RegisterLoggingObserver(dispatcher Dispatcher, logger *zap.Logger) {
	types := []EventType{
		EventIncidentCreated,
		EventIncidentUpdated,
		EventIncidentDeleted,
		EventUserCreated,
		EventUserUpdated,
		EventUserDeleted,
	}
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, func(_ context.Context, event Event) error {
			logger.Info("domain event",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Int64("subject_id", event.SubjectID),
			)
			return nil
		})
	}
}
