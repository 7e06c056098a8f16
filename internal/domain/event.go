package domain

import (
	"context"
	"time"
)

// Event represents an occasion invitees are attached to.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEvent returns a new Event. ID is set by the repository on create.
func NewEvent(title string, description *string, location string, startTime, endTime time.Time, createdBy string, createdAt time.Time) *Event {
	return &Event{
		Title:       title,
		Description: description,
		Location:    location,
		StartTime:   startTime,
		EndTime:     endTime,
		CreatedBy:   createdBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// EventRepository defines storage operations for events. Deleting an event
// cascades deletion of its invitees (the event owns them).
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByCreator(ctx context.Context, userID string) ([]*Event, error)
	Update(ctx context.Context, id string, title, location, description *string, startTime, endTime *time.Time) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService defines organizer-facing event management. GetEvent is also
// used by the public confirmation page and performs no ownership check.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListMyEvents(ctx context.Context, callerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID, callerID string, title, location, description *string, startTime, endTime *time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, callerID string) error
}
