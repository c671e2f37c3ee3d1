package domain

import "time"

// EventType defines the type of domain event.
type EventType string

const (
	EventTemplateCreated           EventType = "TEMPLATE_CREATED"
	EventTemplateUpdated           EventType = "TEMPLATE_UPDATED"
	EventTemplateDeleted           EventType = "TEMPLATE_DELETED"
	EventTemplateDeletionRequested EventType = "TEMPLATE_DELETION_REQUESTED"
)

// DomainEvent records a change that has been committed to the store.
type DomainEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	TemplateID string    `json:"template_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Revision   string    `json:"revision,omitempty"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}
