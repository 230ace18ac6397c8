package adapters

import (
	"context"

	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/events"
)

// BusNotificationSink publishes CRM notifications on the event bus, where the
// notification module picks them up.
type BusNotificationSink struct {
	bus events.Bus
}

func NewBusNotificationSink(bus events.Bus) *BusNotificationSink {
	return &BusNotificationSink{bus: bus}
}

// Notify publishes asynchronously and never fails.
func (s *BusNotificationSink) Notify(ctx context.Context, n ports.Notification) error {
	channels := make([]string, 0, len(n.Channels))
	for _, c := range n.Channels {
		channels = append(channels, string(c))
	}

	s.bus.Publish(ctx, events.NotificationRequested{
		BaseEvent:    events.NewBaseEvent(),
		UserID:       n.UserID,
		Title:        n.Title,
		Message:      n.Message,
		Category:     string(n.Category),
		ResourceType: n.ResourceType,
		ResourceID:   n.ResourceID,
		Channels:     channels,
	})
	return nil
}

var _ ports.NotificationSink = (*BusNotificationSink)(nil)
