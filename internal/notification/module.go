// Package notification provides event handlers for delivering notifications
// in response to domain events. CRM services publish NotificationRequested
// or LeadAssigned; this module writes the in-app inbox and queues WhatsApp
// deliveries in the outbox, which the scheduler drains.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/events"
	apphttp "salescrm_backend/internal/http"
	notifhandler "salescrm_backend/internal/notification/handler"
	"salescrm_backend/internal/notification/inapp"
	notificationoutbox "salescrm_backend/internal/notification/outbox"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxAttempts = 5
	resourceTypeLead   = "lead"
)

// OutboxStore persists outbound deliveries. *outbox.Repository implements it.
type OutboxStore interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (notificationoutbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// UserMessenger sends a WhatsApp text to an employee from a rotated channel.
type UserMessenger interface {
	SendToUser(ctx context.Context, userID uuid.UUID, text string) error
}

// whatsAppPayload is the outbox payload of KindWhatsApp records.
type whatsAppPayload struct {
	UserID uuid.UUID `json:"userId"`
	Text   string    `json:"text"`
}

type Module struct {
	inbox       *inapp.Service
	handler     *notifhandler.HTTPHandler
	outbox      OutboxStore
	messenger   UserMessenger
	log         *logger.Logger
	now         func() time.Time
	maxAttempts int
}

// New wires the module against PostgreSQL.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return NewWithStores(inapp.NewRepository(pool), notificationoutbox.New(pool), log)
}

// NewWithStores wires the module against explicit stores.
func NewWithStores(inbox inapp.Store, outbox OutboxStore, log *logger.Logger) *Module {
	svc := inapp.NewService(inbox, log)
	return &Module{
		inbox:       svc,
		handler:     notifhandler.NewHTTPHandler(svc),
		outbox:      outbox,
		log:         log,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
}

// SetUserMessenger injects WhatsApp delivery. Without it outbox records fail.
func (m *Module) SetUserMessenger(messenger UserMessenger) {
	m.messenger = messenger
}

func (m *Module) InApp() *inapp.Service { return m.inbox }

func (m *Module) Name() string { return "notification" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the module to the events it consumes.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NotificationRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.NotificationRequested)
		if !ok {
			return nil
		}
		return m.handleNotificationRequested(ctx, evt)
	}))
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.LeadAssigned)
		if !ok {
			return nil
		}
		return m.handleLeadAssigned(ctx, evt)
	}))
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.NotificationOutboxDue)
		if !ok {
			return nil
		}
		return m.handleOutboxDue(ctx, evt)
	}))
}

func (m *Module) handleNotificationRequested(ctx context.Context, e events.NotificationRequested) error {
	var errs []error

	if _, err := m.inbox.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        e.Title,
		Content:      e.Message,
		ResourceID:   e.ResourceID,
		ResourceType: e.ResourceType,
		Category:     e.Category,
	}); err != nil {
		errs = append(errs, fmt.Errorf("in-app: %w", err))
	}

	if slices.Contains(e.Channels, string(ports.DeliverWhatsApp)) {
		if err := m.queueWhatsApp(ctx, e.UserID, e.Title+"\n\n"+e.Message); err != nil {
			errs = append(errs, fmt.Errorf("whatsapp outbox: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	leadID := e.LeadID
	return m.handleNotificationRequested(ctx, events.NotificationRequested{
		BaseEvent:    e.BaseEvent,
		UserID:       e.AssigneeID,
		Title:        "New lead assigned",
		Message:      leadAssignedMessage(e),
		Category:     string(ports.CategoryLeadAssigned),
		ResourceType: resourceTypeLead,
		ResourceID:   &leadID,
		Channels:     []string{string(ports.DeliverInApp), string(ports.DeliverWhatsApp)},
	})
}

func leadAssignedMessage(e events.LeadAssigned) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\n", e.LeadName, e.LeadPhone)
	if e.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", strings.ToUpper(e.Source))
	}
	b.WriteString("\nPlease follow up with this lead as soon as possible.")
	return b.String()
}

func (m *Module) queueWhatsApp(ctx context.Context, userID uuid.UUID, text string) error {
	if m.outbox == nil {
		return errors.New("outbox not configured")
	}
	_, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     notificationoutbox.KindWhatsApp,
		Template: notificationoutbox.TemplateNotification,
		Payload:  whatsAppPayload{UserID: userID, Text: text},
		RunAt:    m.now().UTC(),
	})
	return err
}

// handleOutboxDue delivers one outbox record. Delivery failures are
// rescheduled on the record itself, so the task is never retried by asynq.
func (m *Module) handleOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if errors.Is(err, notificationoutbox.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	claimed, err := m.outbox.MarkProcessing(ctx, rec.ID)
	if err != nil || !claimed {
		return err
	}
	attempt := rec.Attempts + 1

	if rec.Kind != notificationoutbox.KindWhatsApp {
		return m.outbox.MarkFailed(ctx, rec.ID, "unsupported outbox kind "+rec.Kind)
	}

	var payload whatsAppPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return m.outbox.MarkFailed(ctx, rec.ID, "invalid payload: "+err.Error())
	}
	if m.messenger == nil {
		return m.outbox.MarkFailed(ctx, rec.ID, "whatsapp delivery not configured")
	}

	if err := m.messenger.SendToUser(ctx, payload.UserID, payload.Text); err != nil {
		msg := err.Error()
		if attempt >= m.maxAttempts {
			m.log.Warn("outbox delivery failed permanently", "outboxId", rec.ID, "attempts", attempt, "error", err)
			return m.outbox.MarkFailed(ctx, rec.ID, msg)
		}
		retryAt := m.now().UTC().Add(time.Duration(attempt*attempt) * time.Minute)
		m.log.Info("outbox delivery failed, rescheduled", "outboxId", rec.ID, "attempt", attempt, "retryAt", retryAt, "error", err)
		return m.outbox.MarkPending(ctx, rec.ID, retryAt, &msg)
	}

	return m.outbox.MarkSucceeded(ctx, rec.ID)
}
