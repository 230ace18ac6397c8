// Package messaging sends WhatsApp texts and starts calls through the rotated
// sender channels. A channel unit is reserved before the send and released if
// the gateway rejects it, so failed sends do not count against the daily limit.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	contactMethodWhatsApp = "whatsapp"
	contactMethodCall     = "call"

	defaultStatsDays = 30
	maxStatsDays     = 365
)

// ChannelReserver hands out sender channels. *channels.Service implements it.
type ChannelReserver interface {
	Reserve(ctx context.Context) (domain.Channel, error)
	Release(ctx context.Context, channelID uuid.UUID) error
}

type LeadStore interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time, method string) error
}

type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, params activity.RecordParams) (domain.Activity, error)
}

// TemplateSource resolves message templates. *templates.Service implements it.
type TemplateSource interface {
	Get(ctx context.Context, id uuid.UUID) (domain.WhatsAppTemplate, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// ChannelLister feeds the per-channel section of the usage stats.
type ChannelLister interface {
	List(ctx context.Context) ([]domain.Channel, error)
}

type Dependencies struct {
	Channels  ChannelReserver
	Sender    ports.MessageSender
	Leads     LeadStore
	Users     UserReader
	Activity  ActivityRecorder
	Templates TemplateSource
	Messages  repository.MessageLogStore
	Inventory ChannelLister
	Location  *time.Location
	Log       *logger.Logger
	Now       func() time.Time
}

type Service struct {
	channels  ChannelReserver
	sender    ports.MessageSender
	leads     LeadStore
	users     UserReader
	activity  ActivityRecorder
	templates TemplateSource
	messages  repository.MessageLogStore
	inventory ChannelLister
	location  *time.Location
	log       *logger.Logger
	now       func() time.Time
}

func New(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return &Service{
		channels:  deps.Channels,
		sender:    deps.Sender,
		leads:     deps.Leads,
		users:     deps.Users,
		activity:  deps.Activity,
		templates: deps.Templates,
		messages:  deps.Messages,
		inventory: deps.Inventory,
		location:  location,
		log:       deps.Log,
		now:       now,
	}
}

// SendToLeadParams carries either a free text or a template to render.
// A template takes precedence over Text.
type SendToLeadParams struct {
	Actor        domain.Actor
	LeadID       uuid.UUID
	Text         string
	TemplateID   *uuid.UUID
	TemplateUsed *string
}

type SendResult struct {
	MessageID string          `json:"messageId"`
	Channel   domain.Channel  `json:"channel"`
	Activity  domain.Activity `json:"activity"`
}

// SendToLead messages a lead and logs a completed whatsapp activity.
func (s *Service) SendToLead(ctx context.Context, params SendToLeadParams) (SendResult, error) {
	const op = "messaging.SendToLead"

	text := strings.TrimSpace(params.Text)
	if text == "" && params.TemplateID == nil {
		return SendResult{}, apperr.Validation("message or templateId is required").WithOp(op)
	}

	lead, err := s.leads.GetLead(ctx, params.LeadID)
	if err != nil {
		return SendResult{}, repository.Translate(op, "lead", err)
	}
	if !params.Actor.CanAccess(lead.AssignedTo) {
		return SendResult{}, apperr.Forbidden("not allowed to message this lead").WithOp(op)
	}

	templateUsed := params.TemplateUsed
	if params.TemplateID != nil {
		tpl, err := s.templates.Get(ctx, *params.TemplateID)
		if err != nil {
			return SendResult{}, err
		}
		if !tpl.IsActive {
			return SendResult{}, apperr.Validation("template is inactive").WithOp(op)
		}
		text = strings.TrimSpace(tpl.Render(domain.TemplateValuesFor(lead, s.senderName(ctx, params.Actor))))
		templateUsed = &tpl.Name
	}

	channel, messageID, err := s.send(ctx, op, lead.Phone, text)
	if err != nil {
		return SendResult{}, err
	}
	result := SendResult{MessageID: messageID, Channel: channel}

	ctx = context.WithoutCancel(ctx)
	var userID *uuid.UUID
	if !params.Actor.System {
		id := params.Actor.UserID
		userID = &id
	}
	recorded, err := s.activity.Record(ctx, activity.RecordParams{
		LeadID:       lead.ID,
		UserID:       userID,
		Type:         domain.ActivityWhatsApp,
		Status:       domain.ActivityCompleted,
		Notes:        text,
		TemplateUsed: templateUsed,
	})
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepActivity, result, err).WithOp(op)
	}
	result.Activity = recorded

	if params.TemplateID != nil {
		if err := s.templates.MarkUsed(ctx, *params.TemplateID); err != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, "template_usage", err, "templateId", *params.TemplateID)
		}
	}
	if err := s.leads.TouchLastContacted(ctx, lead.ID, s.now().UTC(), contactMethodWhatsApp); err != nil {
		s.log.WithContext(ctx).SideEffectFailed(op, "last_contacted", err, "leadId", lead.ID)
	}
	return result, nil
}

// senderName is the {{Employee_Name}} value. Lookup failures render the
// neutral fallback instead of failing the send.
func (s *Service) senderName(ctx context.Context, actor domain.Actor) string {
	if actor.System {
		return ""
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		s.log.WithContext(ctx).Warn("sender lookup failed", "userId", actor.UserID, "error", err)
		return ""
	}
	return user.Name
}

type CallResult struct {
	// Channel is the number the call is placed from.
	Channel  domain.Channel  `json:"channel"`
	To       string          `json:"to"`
	Activity domain.Activity `json:"activity"`
}

// InitiateCall reserves a sender channel for a call to the lead and logs an
// attempted call. The dialing itself happens on the employee's device.
func (s *Service) InitiateCall(ctx context.Context, actor domain.Actor, leadID uuid.UUID) (CallResult, error) {
	const op = "messaging.InitiateCall"

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return CallResult{}, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return CallResult{}, apperr.Forbidden("not allowed to call this lead").WithOp(op)
	}
	if strings.TrimSpace(lead.Phone) == "" {
		return CallResult{}, apperr.Validation("lead has no phone number").WithOp(op)
	}

	channel, err := s.channels.Reserve(ctx)
	if err != nil {
		return CallResult{}, err
	}
	result := CallResult{Channel: channel, To: lead.Phone}

	ctx = context.WithoutCancel(ctx)
	var userID *uuid.UUID
	if !actor.System {
		id := actor.UserID
		userID = &id
	}
	recorded, err := s.activity.Record(ctx, activity.RecordParams{
		LeadID: lead.ID,
		UserID: userID,
		Type:   domain.ActivityCall,
		Status: domain.ActivityAttempted,
		Notes:  fmt.Sprintf("Call initiated to %s from %s", lead.Phone, channel.Identifier),
	})
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepActivity, result, err).WithOp(op)
	}
	result.Activity = recorded

	if err := s.leads.TouchLastContacted(ctx, lead.ID, s.now().UTC(), contactMethodCall); err != nil {
		s.log.WithContext(ctx).SideEffectFailed(op, "last_contacted", err, "leadId", lead.ID)
	}
	return result, nil
}

// History lists the WhatsApp messages sent to a lead, newest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, leadID uuid.UUID) ([]domain.Activity, error) {
	const op = "messaging.History"

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return nil, apperr.Forbidden("not allowed to view this lead").WithOp(op)
	}

	items, err := s.messages.ListActivitiesForLeadByType(ctx, lead.ID, domain.ActivityWhatsApp)
	if err != nil {
		return nil, apperr.Storage(err).WithOp(op)
	}
	return items, nil
}

// Stats summarizes WhatsApp traffic over the last days days (30 when zero).
func (s *Service) Stats(ctx context.Context, actor domain.Actor, days int) (domain.MessageStats, error) {
	const op = "messaging.Stats"

	if !actor.Admin {
		return domain.MessageStats{}, apperr.Forbidden("only admins view message stats").WithOp(op)
	}
	if days == 0 {
		days = defaultStatsDays
	}
	if days < 1 || days > maxStatsDays {
		return domain.MessageStats{}, apperr.Validation(fmt.Sprintf("days must be between 1 and %d", maxStatsDays)).WithOp(op)
	}

	now := s.now().In(s.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	since := midnight.AddDate(0, 0, -(days - 1))

	stats, err := s.messages.MessageStats(ctx, since, s.location.String())
	if err != nil {
		return domain.MessageStats{}, apperr.Storage(err).WithOp(op)
	}
	channels, err := s.inventory.List(ctx)
	if err != nil {
		return domain.MessageStats{}, err
	}
	stats.Channels = channels
	return stats, nil
}

// SendToUser messages an employee, used for notification delivery.
func (s *Service) SendToUser(ctx context.Context, userID uuid.UUID, text string) error {
	const op = "messaging.SendToUser"

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return repository.Translate(op, "user", err)
	}
	if user.Phone == nil || strings.TrimSpace(*user.Phone) == "" {
		return apperr.Validation("user has no phone number").WithOp(op)
	}

	_, _, err = s.send(ctx, op, *user.Phone, text)
	return err
}

func (s *Service) send(ctx context.Context, op, to, text string) (domain.Channel, string, error) {
	channel, err := s.channels.Reserve(ctx)
	if err != nil {
		return domain.Channel{}, "", err
	}

	messageID, err := s.sender.SendMessage(ctx, channel.Identifier, to, text)
	if err != nil {
		if releaseErr := s.channels.Release(ctx, channel.ID); releaseErr != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, apperr.StepRelease, releaseErr, "channelId", channel.ID)
		}
		return domain.Channel{}, "", apperr.Wrap(apperr.KindInternal, "message delivery failed", err).WithOp(op)
	}
	return channel, messageID, nil
}
