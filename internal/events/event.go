// Package events defines the CRM domain events. The bus itself lives in
// platform/events; the aliases below keep callers on a single import.
package events

import (
	"salescrm_backend/platform/events"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Bus infrastructure, aliased from platform/events.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

type InMemoryBus = events.InMemoryBus

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus returns the process-local bus shared by the API and the
// scheduler binaries.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Notification Events
// =============================================================================

// NotificationRequested is published whenever a CRM service wants a user
// notified. Channels lists the transports besides the in-app inbox.
type NotificationRequested struct {
	BaseEvent
	UserID       uuid.UUID  `json:"userId"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Category     string     `json:"category"`
	ResourceType string     `json:"resourceType,omitempty"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	Channels     []string   `json:"channels,omitempty"`
}

func (e NotificationRequested) EventName() string { return "notification.requested" }

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }

// =============================================================================
// Lead Events
// =============================================================================

// LeadAssigned is published after a lead received an owner.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	AssigneeID uuid.UUID `json:"assigneeId"`
	LeadName   string    `json:"leadName"`
	LeadPhone  string    `json:"leadPhone"`
	Source     string    `json:"source"`
}

func (e LeadAssigned) EventName() string { return "crm.lead.assigned" }
