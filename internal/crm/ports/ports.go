// Package ports defines the capabilities the CRM engine consumes from other
// modules. Implementations live in internal/adapters.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// NotificationCategory groups notifications for the inbox UI.
type NotificationCategory string

const (
	CategoryLeadAssigned     NotificationCategory = "lead_assigned"
	CategoryFollowUp         NotificationCategory = "follow_up"
	CategoryFollowUpReminder NotificationCategory = "follow_up_reminder"
	CategoryDailyDigest      NotificationCategory = "daily_digest"
	CategoryLeadMessage      NotificationCategory = "lead_message"
	CategoryLeadUnassigned   NotificationCategory = "lead_unassigned"
)

// DeliveryChannel is a transport a notification should use besides the inbox.
type DeliveryChannel string

const (
	DeliverInApp    DeliveryChannel = "in_app"
	DeliverWhatsApp DeliveryChannel = "whatsapp"
)

// Notification is a message for a single user.
type Notification struct {
	UserID       uuid.UUID
	Title        string
	Message      string
	Category     NotificationCategory
	ResourceType string
	ResourceID   *uuid.UUID
	Channels     []DeliveryChannel
}

// NotificationSink delivers notifications. Callers treat it as
// fire-and-forget: errors are logged, never propagated.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationSinkFunc adapts a function to NotificationSink.
type NotificationSinkFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotificationSinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// NoopNotificationSink drops every notification.
type NoopNotificationSink struct{}

// Notify does nothing.
func (NoopNotificationSink) Notify(context.Context, Notification) error { return nil }

// MessageSender sends a text from a sender identity to a recipient and
// returns the provider message id.
type MessageSender interface {
	SendMessage(ctx context.Context, from, to, text string) (string, error)
}
