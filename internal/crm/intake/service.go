// Package intake turns manual entries and inbound WhatsApp messages into
// assigned leads, and owns lead status changes.
package intake

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"salescrm_backend/internal/crm/activity"
	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/internal/events"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"
	"salescrm_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	replyNewLead      = "Thank you for contacting us! One of our representatives will get in touch with you shortly."
	replyExistingLead = "Thanks for your message! We're working on your request."
	maxNameLength     = 120
)

var introducedName = regexp.MustCompile(`(?i)(?:my name is|I am|I'm) ([A-Za-z\s]+)`)

// Assigner picks the next employee in the rotation.
type Assigner interface {
	AssignNext(ctx context.Context) (domain.User, error)
}

type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// FollowUpScheduler schedules the follow-ups that intake and status changes create.
type FollowUpScheduler interface {
	ScheduleFirst(ctx context.Context, lead domain.Lead, assigneeID uuid.UUID) (domain.FollowUp, error)
	ScheduleAfterStatusChange(ctx context.Context, lead domain.Lead, assigneeID uuid.UUID, followUpType domain.FollowUpType) (*domain.FollowUp, error)
	CancelOpenForLead(ctx context.Context, actor domain.Actor, lead domain.Lead) ([]domain.FollowUp, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, params activity.RecordParams) (domain.Activity, error)
}

type SettingsReader interface {
	Get(ctx context.Context) domain.Settings
}

// AdminLister finds who to alert when a lead could not be assigned.
type AdminLister interface {
	ListActiveAdmins(ctx context.Context) ([]domain.User, error)
}

type Dependencies struct {
	Leads     repository.LeadStore
	Inbound   repository.InboundMessageStore
	Users     UserReader
	Assigner  Assigner
	FollowUps FollowUpScheduler
	Activity  ActivityRecorder
	Settings  SettingsReader
	Admins    AdminLister
	Notifier  ports.NotificationSink
	Bus       events.Bus
	Log       *logger.Logger
}

type Service struct {
	leads     repository.LeadStore
	inbound   repository.InboundMessageStore
	users     UserReader
	assigner  Assigner
	followUps FollowUpScheduler
	activity  ActivityRecorder
	settings  SettingsReader
	admins    AdminLister
	notifier  ports.NotificationSink
	bus       events.Bus
	log       *logger.Logger
}

func New(deps Dependencies) *Service {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = ports.NoopNotificationSink{}
	}
	return &Service{
		leads:     deps.Leads,
		inbound:   deps.Inbound,
		users:     deps.Users,
		assigner:  deps.Assigner,
		followUps: deps.FollowUps,
		activity:  deps.Activity,
		settings:  deps.Settings,
		admins:    deps.Admins,
		notifier:  notifier,
		bus:       deps.Bus,
		log:       deps.Log,
	}
}

type CreateLeadParams struct {
	Actor        domain.Actor
	Name         string
	Phone        string
	Email        string
	Company      string
	InterestedIn string
	Message      string
	Source       string
	// AssigneeID bypasses the rotation. Employees may only name themselves.
	AssigneeID *uuid.UUID
}

// CreateResult is returned by CreateLead and ReceiveWhatsApp, and as the
// details of a partial failure.
type CreateResult struct {
	Lead     domain.Lead      `json:"lead"`
	FollowUp *domain.FollowUp `json:"followUp,omitempty"`
	// Unassigned is set when the rotation had no eligible employee and the
	// lead was stored without an owner. Admins are alerted.
	Unassigned bool `json:"unassigned,omitempty"`
}

// CreateLead stores a lead, assigns it and schedules its first follow-up.
func (s *Service) CreateLead(ctx context.Context, params CreateLeadParams) (CreateResult, error) {
	const op = "intake.CreateLead"

	if err := ctx.Err(); err != nil {
		return CreateResult{}, err
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return CreateResult{}, apperr.Validation("name is required").WithOp(op)
	}
	if !phone.IsValid(params.Phone) {
		return CreateResult{}, apperr.Validation("phone is not a valid number").WithOp(op)
	}
	source := domain.SourceManual
	if raw := strings.TrimSpace(params.Source); raw != "" {
		parsed, ok := domain.ParseLeadSource(raw)
		if !ok {
			return CreateResult{}, apperr.Validation("unknown lead source").WithOp(op)
		}
		source = parsed
	}

	assignee, noEligible, err := s.resolveAssignee(ctx, params.Actor, params.AssigneeID)
	if err != nil {
		return CreateResult{}, err
	}

	var createdBy *uuid.UUID
	if !params.Actor.System {
		id := params.Actor.UserID
		createdBy = &id
	}

	lead, err := s.leads.CreateLead(context.WithoutCancel(ctx), repository.CreateLeadParams{
		Name:         name,
		Phone:        phone.NormalizeE164(params.Phone),
		Email:        optional(params.Email),
		Company:      optional(params.Company),
		InterestedIn: optional(params.InterestedIn),
		Message:      optional(params.Message),
		Status:       domain.LeadStatusNew,
		AssignedTo:   assignee,
		Source:       source,
		CreatedBy:    createdBy,
	})
	if err != nil {
		return CreateResult{}, repository.Translate(op, "lead", err)
	}
	if lead.AssignedTo == nil {
		s.alertUnassigned(ctx, op, lead, noEligible)
		return CreateResult{Lead: lead, Unassigned: true}, nil
	}

	return s.afterCreate(ctx, op, params.Actor, lead)
}

// resolveAssignee falls back to the creator when the rotation has no eligible
// employee. Without a creator it returns nil and the lead is stored
// unassigned; noEligible carries the rotation error in both cases.
func (s *Service) resolveAssignee(ctx context.Context, actor domain.Actor, requested *uuid.UUID) (assignee *uuid.UUID, noEligible error, err error) {
	const op = "intake.resolveAssignee"

	if requested != nil && *requested != uuid.Nil {
		if !actor.Privileged() && *requested != actor.UserID {
			return nil, nil, apperr.Forbidden("only admins can assign leads to others").WithOp(op)
		}
		user, err := s.users.GetUser(ctx, *requested)
		if err != nil {
			return nil, nil, repository.Translate(op, "assignee", err)
		}
		if !user.IsActive {
			return nil, nil, apperr.Validation("assignee is not active").WithOp(op)
		}
		return &user.ID, nil, nil
	}

	var creator *uuid.UUID
	if !actor.System && actor.UserID != uuid.Nil {
		id := actor.UserID
		creator = &id
	}

	if !s.settings.Get(ctx).LeadRotationEnabled {
		return creator, nil, nil
	}

	next, err := s.assigner.AssignNext(ctx)
	if apperr.Is(err, apperr.KindNoEligibleAssignee) {
		s.log.WithContext(ctx).Warn("no employee available for lead assignment", "fallbackToCreator", creator != nil)
		return creator, err, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &next.ID, nil, nil
}

// afterCreate runs the steps that follow a committed lead insert.
func (s *Service) afterCreate(ctx context.Context, op string, actor domain.Actor, lead domain.Lead) (CreateResult, error) {
	result := CreateResult{Lead: lead}
	if lead.AssignedTo == nil {
		return result, nil
	}
	ctx = context.WithoutCancel(ctx)
	assignee := *lead.AssignedTo

	if *lead.AssignedTo != actor.UserID {
		s.publishAssigned(ctx, lead)
	}

	if !s.settings.Get(ctx).AutoFollowUpEnabled {
		return result, nil
	}
	first, err := s.followUps.ScheduleFirst(ctx, lead, assignee)
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepFollowUp, result, err).WithOp(op)
	}
	result.FollowUp = &first
	return result, nil
}

// alertUnassigned tells every active admin that a lead is waiting for an
// owner. Delivery problems are logged; the lead itself is already stored.
func (s *Service) alertUnassigned(ctx context.Context, op string, lead domain.Lead, cause error) {
	ctx = context.WithoutCancel(ctx)
	s.log.WithContext(ctx).Warn("lead stored without assignee", "leadId", lead.ID, "error", cause)
	if s.admins == nil {
		return
	}
	admins, err := s.admins.ListActiveAdmins(ctx)
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed(op, "list_admins", err, "leadId", lead.ID)
		return
	}
	leadID := lead.ID
	for _, admin := range admins {
		err := s.notifier.Notify(ctx, ports.Notification{
			UserID:       admin.ID,
			Title:        "Lead needs an owner",
			Message:      "No employee was available for " + lead.Name + " (" + lead.Phone + "). Assign the lead manually.",
			Category:     ports.CategoryLeadUnassigned,
			ResourceType: "lead",
			ResourceID:   &leadID,
			Channels:     []ports.DeliveryChannel{ports.DeliverInApp, ports.DeliverWhatsApp},
		})
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, "notify_admin", err, "leadId", lead.ID, "userId", admin.ID)
		}
	}
}

func (s *Service) publishAssigned(ctx context.Context, lead domain.Lead) {
	if s.bus == nil || lead.AssignedTo == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		AssigneeID: *lead.AssignedTo,
		LeadName:   lead.Name,
		LeadPhone:  lead.Phone,
		Source:     string(lead.Source),
	})
}

// InboundMessage is a message delivered by the WhatsApp provider webhook.
type InboundMessage struct {
	SID         string
	From        string
	Body        string
	ProfileName string
	// Status is set on delivery receipts, which carry no new content.
	Status string
}

type InboundOutcome string

const (
	InboundCreated   InboundOutcome = "created"
	InboundAppended  InboundOutcome = "appended"
	InboundDuplicate InboundOutcome = "duplicate"
	InboundIgnored   InboundOutcome = "ignored"
)

type InboundResult struct {
	Outcome InboundOutcome `json:"outcome"`
	Lead    *domain.Lead   `json:"lead,omitempty"`
	// Reply is the auto-response for the sender, empty when none is due.
	Reply string `json:"reply,omitempty"`
	// Unassigned reports a new lead stored without an owner.
	Unassigned bool `json:"unassigned,omitempty"`
}

// ReceiveWhatsApp creates a lead for an unknown sender or appends the message
// to the sender's existing lead. Redelivered messages are ignored by SID.
func (s *Service) ReceiveWhatsApp(ctx context.Context, msg InboundMessage) (InboundResult, error) {
	const op = "intake.ReceiveWhatsApp"

	if isStatusCallback(msg.Status) {
		return InboundResult{Outcome: InboundIgnored}, nil
	}
	if strings.TrimSpace(msg.From) == "" {
		return InboundResult{}, apperr.Validation("sender is required").WithOp(op)
	}
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return InboundResult{Outcome: InboundIgnored}, nil
	}
	from := phone.NormalizeE164(msg.From)

	ctx = context.WithoutCancel(ctx)
	if msg.SID != "" {
		claimed, err := s.inbound.ClaimInboundMessage(ctx, msg.SID, from, body)
		if err != nil {
			return InboundResult{}, repository.Translate(op, "message", err)
		}
		if !claimed {
			return InboundResult{Outcome: InboundDuplicate}, nil
		}
	}

	existing, err := s.leads.GetLeadByPhone(ctx, from)
	switch {
	case err == nil:
		updated, err := s.leads.AppendLeadMessage(ctx, existing.ID, body)
		if err != nil {
			return InboundResult{}, repository.Translate(op, "lead", err)
		}
		s.linkMessage(ctx, op, msg.SID, updated.ID)
		return InboundResult{Outcome: InboundAppended, Lead: &updated, Reply: replyExistingLead}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return InboundResult{}, repository.Translate(op, "lead", err)
	}

	actor := domain.SystemActor()
	assignee, noEligible, err := s.resolveAssignee(ctx, actor, nil)
	if err != nil {
		return InboundResult{}, err
	}

	var sid *string
	if msg.SID != "" {
		sid = &msg.SID
	}
	lead, err := s.leads.CreateLead(ctx, repository.CreateLeadParams{
		Name:       nameFromMessage(body, msg.ProfileName, from),
		Phone:      from,
		Message:    &body,
		MessageSID: sid,
		Status:     domain.LeadStatusNew,
		AssignedTo: assignee,
		Source:     domain.SourceWhatsApp,
	})
	if err != nil {
		return InboundResult{}, repository.Translate(op, "lead", err)
	}
	s.linkMessage(ctx, op, msg.SID, lead.ID)

	result := InboundResult{Outcome: InboundCreated, Lead: &lead, Reply: replyNewLead}
	if lead.AssignedTo == nil {
		s.alertUnassigned(ctx, op, lead, noEligible)
		result.Unassigned = true
		return result, nil
	}
	created, err := s.afterCreate(ctx, op, actor, lead)
	if err != nil {
		// The sender still gets the reply; the scheduling gap is logged.
		s.log.WithContext(ctx).SideEffectFailed(op, apperr.StepFollowUp, err, "leadId", lead.ID)
		return result, nil
	}
	result.Lead = &created.Lead
	return result, nil
}

func (s *Service) linkMessage(ctx context.Context, op, sid string, leadID uuid.UUID) {
	if sid == "" {
		return
	}
	if err := s.inbound.LinkInboundMessage(ctx, sid, leadID); err != nil {
		s.log.WithContext(ctx).SideEffectFailed(op, "link_message", err, "leadId", leadID)
	}
}

func isStatusCallback(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "delivered", "sent", "read", "failed", "undelivered":
		return true
	}
	return false
}

// nameFromMessage prefers a name the sender introduced themselves with, then
// the provider profile name, then the phone number.
func nameFromMessage(body, profileName, from string) string {
	if m := introducedName.FindStringSubmatch(body); m != nil {
		if name := strings.Join(strings.Fields(m[1]), " "); name != "" {
			if len(name) > maxNameLength {
				name = strings.TrimSpace(name[:maxNameLength])
			}
			return name
		}
	}
	if name := strings.TrimSpace(profileName); name != "" {
		return name
	}
	return from
}

type ChangeStatusParams struct {
	Status string
	Notes  string
}

// StatusChangeResult is returned by ChangeStatus and as partial failure details.
type StatusChangeResult struct {
	Lead     domain.Lead      `json:"lead"`
	Activity *domain.Activity `json:"activity,omitempty"`
	Next     *domain.FollowUp `json:"nextFollowUp,omitempty"`
	// Cancelled lists the open follow-ups closed because the lead was won or lost.
	Cancelled []domain.FollowUp `json:"cancelledFollowUps,omitempty"`
}

// ChangeStatus moves a lead to a new status, logs the change and schedules
// the next follow-up for open statuses. Closing a lead cancels its open
// follow-ups instead.
func (s *Service) ChangeStatus(ctx context.Context, actor domain.Actor, leadID uuid.UUID, params ChangeStatusParams) (StatusChangeResult, error) {
	const op = "intake.ChangeStatus"

	if err := ctx.Err(); err != nil {
		return StatusChangeResult{}, err
	}

	target, ok := domain.ParseLeadStatus(params.Status)
	if !ok {
		return StatusChangeResult{}, apperr.Validation("unknown lead status").WithOp(op)
	}

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return StatusChangeResult{}, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return StatusChangeResult{}, apperr.Forbidden("not allowed to change this lead").WithOp(op)
	}
	if lead.Status == target {
		return StatusChangeResult{Lead: lead}, nil
	}

	ctx = context.WithoutCancel(ctx)
	updated, err := s.leads.UpdateLeadStatus(ctx, lead.ID, lead.Status, target)
	if err != nil {
		return StatusChangeResult{}, repository.Translate(op, "lead", err)
	}
	result := StatusChangeResult{Lead: updated}

	note := domain.StatusChangeNote(lead.Status, target)
	if trimmed := strings.TrimSpace(params.Notes); trimmed != "" {
		note += ". Notes: " + trimmed
	}
	recorded, err := s.activity.Record(ctx, activity.RecordParams{
		LeadID: lead.ID,
		UserID: actingUser(actor, updated.AssignedTo),
		Type:   domain.ActivityNote,
		Status: domain.ActivityOther,
		Notes:  note,
	})
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepActivity, result, err).WithOp(op)
	}
	result.Activity = &recorded

	if target.IsTerminal() {
		cancelled, err := s.followUps.CancelOpenForLead(ctx, actor, updated)
		result.Cancelled = cancelled
		if err != nil {
			return result, apperr.PartialFailure(apperr.StepFollowUp, result, err).WithOp(op)
		}
		return result, nil
	}

	if updated.AssignedTo == nil {
		return result, nil
	}
	next, err := s.followUps.ScheduleAfterStatusChange(ctx, updated, *updated.AssignedTo, domain.FollowUpCall)
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepScheduleNext, result, err).WithOp(op)
	}
	result.Next = next
	return result, nil
}

// Get returns a lead the actor may see.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Lead, error) {
	const op = "intake.Get"

	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return domain.Lead{}, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return domain.Lead{}, apperr.Forbidden("not allowed to view this lead").WithOp(op)
	}
	return lead, nil
}

func actingUser(actor domain.Actor, owner *uuid.UUID) *uuid.UUID {
	if !actor.System && actor.UserID != uuid.Nil {
		id := actor.UserID
		return &id
	}
	return owner
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
