package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "course-service"
	EventVersion = "1.0"
)

// Event is the envelope published for every domain notification
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NotificationEvent is the payload of notification.* events
type NotificationEvent struct {
	NotificationID uint   `json:"notification_id,omitempty"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	CourseID       *uint  `json:"course_id,omitempty"`
	EnrollmentID   *uint  `json:"enrollment_id,omitempty"`
}

// NotificationEventType namespaces a notification type for the event bus
func NotificationEventType(notificationType string) string {
	return "notification." + notificationType
}

// EventPublisher delivers events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
