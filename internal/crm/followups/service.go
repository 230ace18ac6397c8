// Package followups implements the follow-up lifecycle: scheduling with
// supersede-then-create, completion driving lead status, rescheduling,
// snoozing and the overdue/today/upcoming views.
package followups

import (
	"context"
	"errors"
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
	defaultUpcomingDays = 7
	maxUpcomingDays     = 90
	// createAttempts covers a concurrent schedule for the same lead winning
	// the single-pending index between our supersede and insert.
	createAttempts = 2
)

// LeadStore is the lead access the scheduler needs.
type LeadStore interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, from, to domain.LeadStatus) (domain.Lead, error)
}

// UserReader resolves assignees.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// ActivityRecorder appends to the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, params activity.RecordParams) (domain.Activity, error)
}

// SettingsProvider exposes company settings.
type SettingsProvider interface {
	Get(ctx context.Context) domain.Settings
	IntervalDays(ctx context.Context, status domain.LeadStatus) (int, error)
}

type Dependencies struct {
	FollowUps repository.FollowUpStore
	Leads     LeadStore
	Users     UserReader
	Activity  ActivityRecorder
	Settings  SettingsProvider
	Notifier  ports.NotificationSink
	Calendar  domain.Calendar
	Log       *logger.Logger
}

type Service struct {
	followUps repository.FollowUpStore
	leads     LeadStore
	users     UserReader
	activity  ActivityRecorder
	settings  SettingsProvider
	notifier  ports.NotificationSink
	calendar  domain.Calendar
	log       *logger.Logger
}

func New(deps Dependencies) *Service {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = ports.NoopNotificationSink{}
	}
	return &Service{
		followUps: deps.FollowUps,
		leads:     deps.Leads,
		users:     deps.Users,
		activity:  deps.Activity,
		settings:  deps.Settings,
		notifier:  notifier,
		calendar:  deps.Calendar,
		log:       deps.Log,
	}
}

type ScheduleParams struct {
	Actor  domain.Actor
	LeadID uuid.UUID
	// AssigneeID defaults to the lead owner.
	AssigneeID *uuid.UUID
	Type       string
	// IntervalDays defaults to the settings table entry for the lead status.
	IntervalDays *int
	Notes        string
}

type CompleteParams struct {
	Notes   string
	Outcome string
}

type UpdateStatusParams struct {
	Status  string
	Outcome string
	Notes   string
}

type ListParams struct {
	Actor      domain.Actor
	AssigneeID *uuid.UUID
	// Days is the upcoming horizon; zero means seven days.
	Days int
}

// CompleteResult carries everything committed by Complete. On a partial
// failure it is returned as the error details.
type CompleteResult struct {
	FollowUp domain.FollowUp  `json:"followUp"`
	Lead     domain.Lead      `json:"lead"`
	Activity *domain.Activity `json:"activity,omitempty"`
	Next     *domain.FollowUp `json:"nextFollowUp,omitempty"`
}

// StatusResult carries everything committed by UpdateStatus.
type StatusResult struct {
	FollowUp domain.FollowUp  `json:"followUp"`
	Lead     domain.Lead      `json:"lead"`
	Activity *domain.Activity `json:"activity,omitempty"`
}

// Schedule creates the lead's next follow-up, superseding any pending one.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (domain.FollowUp, error) {
	const op = "followups.Schedule"

	if err := ctx.Err(); err != nil {
		return domain.FollowUp{}, err
	}

	followUpType, ok := domain.ParseFollowUpType(params.Type)
	if !ok {
		return domain.FollowUp{}, apperr.Validation("unknown follow-up type").WithOp(op)
	}
	if params.IntervalDays != nil && *params.IntervalDays < 1 {
		return domain.FollowUp{}, apperr.Validation("intervalDays must be at least 1").WithOp(op)
	}

	lead, err := s.leads.GetLead(ctx, params.LeadID)
	if err != nil {
		return domain.FollowUp{}, repository.Translate(op, "lead", err)
	}
	if !params.Actor.CanAccess(lead.AssignedTo) {
		return domain.FollowUp{}, apperr.Forbidden("not allowed to schedule follow-ups for this lead").WithOp(op)
	}
	if lead.Status.IsTerminal() {
		return domain.FollowUp{}, apperr.Validation("lead is closed").WithOp(op)
	}

	assigneeID, err := s.resolveAssignee(params.Actor, lead, params.AssigneeID)
	if err != nil {
		return domain.FollowUp{}, err
	}
	if _, err := s.users.GetUser(ctx, assigneeID); err != nil {
		return domain.FollowUp{}, repository.Translate(op, "assignee", err)
	}

	var days int
	if params.IntervalDays != nil {
		days = *params.IntervalDays
	} else {
		days = s.intervalFor(ctx, lead.Status)
	}

	return s.create(ctx, lead, assigneeID, followUpType, days, params.Notes)
}

// ScheduleFirst schedules the initial follow-up of a freshly assigned lead.
// Used by intake, where the caller already holds the lead.
func (s *Service) ScheduleFirst(ctx context.Context, lead domain.Lead, assigneeID uuid.UUID) (domain.FollowUp, error) {
	return s.create(ctx, lead, assigneeID, domain.FollowUpCall, s.intervalFor(ctx, lead.Status), "")
}

// ScheduleAfterStatusChange schedules the next follow-up once a lead reaches
// status, unless it is closed or auto follow-ups are disabled. It returns nil
// when nothing was scheduled.
func (s *Service) ScheduleAfterStatusChange(ctx context.Context, lead domain.Lead, assigneeID uuid.UUID, followUpType domain.FollowUpType) (*domain.FollowUp, error) {
	if lead.Status.IsTerminal() || !s.settings.Get(ctx).AutoFollowUpEnabled {
		return nil, nil
	}
	next, err := s.create(ctx, lead, assigneeID, followUpType, s.intervalFor(ctx, lead.Status), "")
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) resolveAssignee(actor domain.Actor, lead domain.Lead, requested *uuid.UUID) (uuid.UUID, error) {
	const op = "followups.Schedule"

	switch {
	case requested != nil && *requested != uuid.Nil:
		if !actor.Privileged() && *requested != actor.UserID {
			return uuid.Nil, apperr.Forbidden("only admins can assign follow-ups to others").WithOp(op)
		}
		return *requested, nil
	case lead.AssignedTo != nil:
		return *lead.AssignedTo, nil
	case !actor.System && actor.UserID != uuid.Nil:
		return actor.UserID, nil
	}
	return uuid.Nil, apperr.Validation("lead has no assignee").WithOp(op)
}

// intervalFor reads the settings table and degrades to the default interval
// when the status has no entry.
func (s *Service) intervalFor(ctx context.Context, status domain.LeadStatus) int {
	days, err := s.settings.IntervalDays(ctx, status)
	if err != nil {
		s.log.WithContext(ctx).Warn("follow-up interval not configured, using default",
			"leadStatus", status, "days", domain.DefaultFollowUpInterval, "error", err)
		return domain.DefaultFollowUpInterval
	}
	return days
}

func (s *Service) create(ctx context.Context, lead domain.Lead, assigneeID uuid.UUID, followUpType domain.FollowUpType, days int, notes string) (domain.FollowUp, error) {
	const op = "followups.create"

	ctx = context.WithoutCancel(ctx)
	scheduled := s.calendar.AddDays(s.calendar.Now(), days)

	var (
		created    domain.FollowUp
		superseded []uuid.UUID
		err        error
	)
	for attempt := 1; attempt <= createAttempts; attempt++ {
		created, superseded, err = s.followUps.CreateFollowUp(ctx, repository.CreateFollowUpParams{
			LeadID:       lead.ID,
			AssignedTo:   assigneeID,
			Scheduled:    scheduled,
			Type:         followUpType,
			IntervalDays: days,
			Notes:        optional(notes),
		})
		if !errors.Is(err, repository.ErrStale) {
			break
		}
	}
	if err != nil {
		return domain.FollowUp{}, repository.Translate(op, "follow-up", err)
	}

	if len(superseded) > 0 {
		s.log.WithContext(ctx).Info("superseded pending follow-ups",
			"leadId", lead.ID, "followUpId", created.ID, "superseded", len(superseded))
	}

	s.notify(ctx, op, ports.Notification{
		UserID:       assigneeID,
		Title:        "Follow-up scheduled",
		Message:      fmt.Sprintf("%s with %s on %s", followUpType, lead.Name, created.Scheduled.In(s.calendar.Location()).Format("Mon 2 Jan 15:04")),
		Category:     ports.CategoryFollowUp,
		ResourceType: "follow_up",
		ResourceID:   &created.ID,
	})
	return created, nil
}

// Complete closes a follow-up and applies its outcome to the lead. Steps after
// the follow-up update are reported as partial failures naming the step.
func (s *Service) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID, params CompleteParams) (CompleteResult, error) {
	const op = "followups.Complete"

	if err := ctx.Err(); err != nil {
		return CompleteResult{}, err
	}

	followUp, lead, err := s.loadMutable(ctx, op, actor, id)
	if err != nil {
		return CompleteResult{}, err
	}
	if lead.Status.IsTerminal() {
		return CompleteResult{}, apperr.Validation("lead is already " + string(lead.Status)).WithOp(op)
	}
	if followUp.SupersededBy != nil {
		return CompleteResult{}, apperr.Conflict("follow-up was replaced by " + followUp.SupersededBy.String()).WithOp(op)
	}

	ctx = context.WithoutCancel(ctx)
	completed, err := s.followUps.CompleteFollowUp(ctx, repository.CompleteFollowUpParams{
		ID:              followUp.ID,
		ExpectedVersion: followUp.Version,
		Outcome:         optional(params.Outcome),
		Notes:           optional(params.Notes),
		CompletedAt:     s.calendar.Now().UTC(),
	})
	if err != nil {
		return CompleteResult{}, repository.Translate(op, "follow-up", err)
	}
	result := CompleteResult{FollowUp: completed, Lead: lead}

	target := domain.StatusAfterCompletion(lead.Status, params.Outcome)
	note := "Follow-up completed"
	if target != lead.Status {
		updated, err := s.leads.UpdateLeadStatus(ctx, lead.ID, lead.Status, target)
		if err != nil {
			return result, apperr.PartialFailure(apperr.StepLeadStatus, result, repository.Translate(op, "lead", err)).WithOp(op)
		}
		result.Lead = updated
		note = domain.StatusChangeNote(lead.Status, target)
	}

	recorded, err := s.activity.Record(ctx, activity.RecordParams{
		LeadID: lead.ID,
		UserID: actorOrAssignee(actor, completed.AssignedTo),
		Type:   activity.TypeForFollowUp(completed.Type),
		Status: domain.ActivityCompleted,
		Notes:  withNotes(note, params.Notes),
	})
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepActivity, result, err).WithOp(op)
	}
	result.Activity = &recorded

	if result.Lead.Status.IsTerminal() {
		if _, err := s.CancelOpenForLead(ctx, actor, result.Lead); err != nil {
			return result, apperr.PartialFailure(apperr.StepFollowUp, result, err).WithOp(op)
		}
		return result, nil
	}

	assignee := completed.AssignedTo
	if result.Lead.AssignedTo != nil {
		assignee = *result.Lead.AssignedTo
	}
	next, err := s.ScheduleAfterStatusChange(ctx, result.Lead, assignee, completed.Type)
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepScheduleNext, result, err).WithOp(op)
	}
	result.Next = next

	return result, nil
}

// CancelOpenForLead cancels the open follow-ups of a lead that was closed,
// so no reminder fires and nothing stays overdue for a won or lost lead.
// Rows already superseded are history and are left alone.
func (s *Service) CancelOpenForLead(ctx context.Context, actor domain.Actor, lead domain.Lead) ([]domain.FollowUp, error) {
	const op = "followups.CancelOpenForLead"

	items, err := s.followUps.ListFollowUpsForLead(ctx, lead.ID)
	if err != nil {
		return nil, repository.Translate(op, "follow-up", err)
	}

	reason := "lead " + string(lead.Status)
	var cancelled []domain.FollowUp
	for _, item := range items {
		if item.Status.IsTerminal() || item.SupersededBy != nil {
			continue
		}
		updated, err := s.cancel(ctx, item, reason)
		if errors.Is(err, errAlreadyClosed) {
			continue
		}
		if err != nil {
			return cancelled, repository.Translate(op, "follow-up", err)
		}
		cancelled = append(cancelled, updated)

		if _, err := s.recordNote(ctx, actor, lead, updated, "Follow-up cancelled: "+reason); err != nil {
			return cancelled, apperr.PartialFailure(apperr.StepActivity, cancelled, err).WithOp(op)
		}
	}
	return cancelled, nil
}

var errAlreadyClosed = errors.New("follow-up already closed")

// cancel retries once on a version conflict, re-reading the row.
func (s *Service) cancel(ctx context.Context, item domain.FollowUp, reason string) (domain.FollowUp, error) {
	for attempt := 1; ; attempt++ {
		updated, err := s.followUps.UpdateFollowUpStatus(ctx, repository.UpdateFollowUpStatusParams{
			ID:              item.ID,
			ExpectedVersion: item.Version,
			Status:          domain.FollowUpCancelled,
			Outcome:         &reason,
		})
		if !errors.Is(err, repository.ErrStale) || attempt == createAttempts {
			return updated, err
		}
		item, err = s.followUps.GetFollowUp(ctx, item.ID)
		if err != nil {
			return domain.FollowUp{}, err
		}
		if item.Status.IsTerminal() || item.SupersededBy != nil {
			return domain.FollowUp{}, errAlreadyClosed
		}
	}
}

// Reschedule moves the follow-up to newDate and makes it the lead's sole
// active follow-up again.
func (s *Service) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, newDate time.Time) (domain.FollowUp, error) {
	const op = "followups.Reschedule"

	if err := ctx.Err(); err != nil {
		return domain.FollowUp{}, err
	}
	if newDate.IsZero() {
		return domain.FollowUp{}, apperr.Validation("date is required").WithOp(op)
	}
	if newDate.Before(s.calendar.Today()) {
		return domain.FollowUp{}, apperr.Validation("date must not be in the past").WithOp(op)
	}

	followUp, lead, err := s.loadMutable(ctx, op, actor, id)
	if err != nil {
		return domain.FollowUp{}, err
	}

	ctx = context.WithoutCancel(ctx)
	previous := followUp.Scheduled
	updated, _, err := s.followUps.ReactivateFollowUp(ctx, repository.ReactivateFollowUpParams{
		ID:              followUp.ID,
		ExpectedVersion: followUp.Version,
		Scheduled:       newDate,
		RescheduledFrom: &previous,
		CountReschedule: true,
	})
	if err != nil {
		return domain.FollowUp{}, repository.Translate(op, "follow-up", err)
	}

	note := fmt.Sprintf("Follow-up rescheduled from %s to %s", s.formatDay(previous), s.formatDay(newDate))
	if _, err := s.recordNote(ctx, actor, lead, updated, note); err != nil {
		return updated, apperr.PartialFailure(apperr.StepActivity, updated, err).WithOp(op)
	}

	s.notify(ctx, op, ports.Notification{
		UserID:       updated.AssignedTo,
		Title:        "Follow-up rescheduled",
		Message:      fmt.Sprintf("Follow-up with %s moved to %s", lead.Name, s.formatDay(newDate)),
		Category:     ports.CategoryFollowUp,
		ResourceType: "follow_up",
		ResourceID:   &updated.ID,
	})
	return updated, nil
}

// Snooze postpones the follow-up until a future instant, keeping it pending.
func (s *Service) Snooze(ctx context.Context, actor domain.Actor, id uuid.UUID, until time.Time) (domain.FollowUp, error) {
	const op = "followups.Snooze"

	if err := ctx.Err(); err != nil {
		return domain.FollowUp{}, err
	}
	if !until.After(s.calendar.Now()) {
		return domain.FollowUp{}, apperr.Validation("snooze time must be in the future").WithOp(op)
	}

	followUp, lead, err := s.loadMutable(ctx, op, actor, id)
	if err != nil {
		return domain.FollowUp{}, err
	}

	ctx = context.WithoutCancel(ctx)
	previous := followUp.Scheduled
	updated, _, err := s.followUps.ReactivateFollowUp(ctx, repository.ReactivateFollowUpParams{
		ID:              followUp.ID,
		ExpectedVersion: followUp.Version,
		Scheduled:       until,
		Snoozed:         true,
		SnoozedFrom:     &previous,
	})
	if err != nil {
		return domain.FollowUp{}, repository.Translate(op, "follow-up", err)
	}

	note := "Follow-up snoozed until " + until.In(s.calendar.Location()).Format("2006-01-02 15:04")
	if _, err := s.recordNote(ctx, actor, lead, updated, note); err != nil {
		return updated, apperr.PartialFailure(apperr.StepActivity, updated, err).WithOp(op)
	}
	return updated, nil
}

// UpdateStatus moves a follow-up to a non-completing status and applies the
// matching lead transition.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, params UpdateStatusParams) (StatusResult, error) {
	const op = "followups.UpdateStatus"

	if err := ctx.Err(); err != nil {
		return StatusResult{}, err
	}

	status, ok := domain.ParseFollowUpStatus(params.Status)
	if !ok || !domain.UpdatableFollowUpStatuses[status] {
		return StatusResult{}, apperr.Validation("status must be one of rescheduled, missed, cancelled, in-progress, on-hold").WithOp(op)
	}

	followUp, lead, err := s.loadMutable(ctx, op, actor, id)
	if err != nil {
		return StatusResult{}, err
	}

	ctx = context.WithoutCancel(ctx)
	updated, err := s.followUps.UpdateFollowUpStatus(ctx, repository.UpdateFollowUpStatusParams{
		ID:              followUp.ID,
		ExpectedVersion: followUp.Version,
		Status:          status,
		Outcome:         optional(params.Outcome),
		Notes:           optional(params.Notes),
	})
	if err != nil {
		return StatusResult{}, repository.Translate(op, "follow-up", err)
	}
	result := StatusResult{FollowUp: updated, Lead: lead}

	target := domain.StatusAfterFollowUpUpdate(lead.Status, status, params.Outcome)
	note := "Follow-up marked " + string(status)
	if target != lead.Status {
		changed, err := s.leads.UpdateLeadStatus(ctx, lead.ID, lead.Status, target)
		if err != nil {
			return result, apperr.PartialFailure(apperr.StepLeadStatus, result, repository.Translate(op, "lead", err)).WithOp(op)
		}
		result.Lead = changed
		note = domain.StatusChangeNote(lead.Status, target)
	}

	recorded, err := s.activity.Record(ctx, activity.RecordParams{
		LeadID: lead.ID,
		UserID: actorOrAssignee(actor, updated.AssignedTo),
		Type:   activity.TypeForFollowUp(updated.Type),
		Status: activityStatusFor(status),
		Notes:  withNotes(note, params.Notes),
	})
	if err != nil {
		return result, apperr.PartialFailure(apperr.StepActivity, result, err).WithOp(op)
	}
	result.Activity = &recorded
	return result, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.FollowUp, error) {
	const op = "followups.Get"

	followUp, err := s.followUps.GetFollowUp(ctx, id)
	if err != nil {
		return domain.FollowUp{}, repository.Translate(op, "follow-up", err)
	}
	if !actor.CanAccess(&followUp.AssignedTo) {
		return domain.FollowUp{}, apperr.Forbidden("not allowed to view this follow-up").WithOp(op)
	}
	return followUp, nil
}

// ListForLead returns the full follow-up history of a lead, newest first.
func (s *Service) ListForLead(ctx context.Context, actor domain.Actor, leadID uuid.UUID) ([]domain.FollowUp, error) {
	const op = "followups.ListForLead"

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return nil, apperr.Forbidden("not allowed to view this lead").WithOp(op)
	}

	items, err := s.followUps.ListFollowUpsForLead(ctx, leadID)
	if err != nil {
		return nil, repository.Translate(op, "follow-up", err)
	}
	return items, nil
}

func (s *Service) ListOverdue(ctx context.Context, params ListParams) ([]domain.FollowUp, error) {
	return s.list(ctx, "followups.ListOverdue", params, s.calendar.OverdueWindow())
}

func (s *Service) ListToday(ctx context.Context, params ListParams) ([]domain.FollowUp, error) {
	return s.list(ctx, "followups.ListToday", params, s.calendar.TodayWindow())
}

func (s *Service) ListUpcoming(ctx context.Context, params ListParams) ([]domain.FollowUp, error) {
	const op = "followups.ListUpcoming"

	days := params.Days
	if days == 0 {
		days = defaultUpcomingDays
	}
	if days < 1 || days > maxUpcomingDays {
		return nil, apperr.Validation(fmt.Sprintf("days must be between 1 and %d", maxUpcomingDays)).WithOp(op)
	}
	return s.list(ctx, op, params, s.calendar.UpcomingWindow(days))
}

func (s *Service) list(ctx context.Context, op string, params ListParams, window domain.Window) ([]domain.FollowUp, error) {
	items, err := s.followUps.ListFollowUps(ctx, repository.ListFollowUpsParams{
		AssigneeID: params.Actor.ScopeAssignee(params.AssigneeID),
		From:       window.From,
		To:         window.To,
	})
	if err != nil {
		return nil, repository.Translate(op, "follow-up", err)
	}
	return items, nil
}

// loadMutable fetches a follow-up and its lead for a mutation by actor.
func (s *Service) loadMutable(ctx context.Context, op string, actor domain.Actor, id uuid.UUID) (domain.FollowUp, domain.Lead, error) {
	followUp, err := s.followUps.GetFollowUp(ctx, id)
	if err != nil {
		return domain.FollowUp{}, domain.Lead{}, repository.Translate(op, "follow-up", err)
	}
	if !actor.CanAccess(&followUp.AssignedTo) {
		return domain.FollowUp{}, domain.Lead{}, apperr.Forbidden("only the assignee or an admin can change this follow-up").WithOp(op)
	}
	if followUp.Status.IsTerminal() {
		return domain.FollowUp{}, domain.Lead{}, apperr.Validation("follow-up is already " + string(followUp.Status)).WithOp(op)
	}

	lead, err := s.leads.GetLead(ctx, followUp.LeadID)
	if err != nil {
		return domain.FollowUp{}, domain.Lead{}, repository.Translate(op, "lead", err)
	}
	return followUp, lead, nil
}

func (s *Service) recordNote(ctx context.Context, actor domain.Actor, lead domain.Lead, followUp domain.FollowUp, note string) (domain.Activity, error) {
	return s.activity.Record(ctx, activity.RecordParams{
		LeadID: lead.ID,
		UserID: actorOrAssignee(actor, followUp.AssignedTo),
		Type:   domain.ActivityNote,
		Status: domain.ActivityOther,
		Notes:  note,
	})
}

func (s *Service) notify(ctx context.Context, op string, n ports.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.WithContext(ctx).SideEffectFailed(op, "notify", err, "userId", n.UserID)
	}
}

func (s *Service) formatDay(t time.Time) string {
	return t.In(s.calendar.Location()).Format("2006-01-02")
}

func actorOrAssignee(actor domain.Actor, assignee uuid.UUID) *uuid.UUID {
	if !actor.System && actor.UserID != uuid.Nil {
		id := actor.UserID
		return &id
	}
	return &assignee
}

func activityStatusFor(status domain.FollowUpStatus) domain.ActivityStatus {
	switch status {
	case domain.FollowUpMissed:
		return domain.ActivityNotAnswered
	case domain.FollowUpInProgress:
		return domain.ActivityConnected
	default:
		return domain.ActivityOther
	}
}

func withNotes(note, notes string) string {
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		return note + ". Notes: " + trimmed
	}
	return note
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
