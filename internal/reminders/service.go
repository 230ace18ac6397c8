// Package reminders runs the timer-driven side of follow-up scheduling:
// the per-minute reminder sweep and the morning digest.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/followups"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/internal/email"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	reminderBatchSize = 100
	digestLockTTL     = 26 * time.Hour
	digestLockPrefix  = "crm:daily-digest:"
	resourceTypeLead  = "lead"
)

type ReminderClaimer interface {
	ClaimDueReminders(ctx context.Context, dueBefore time.Time, limit int) ([]domain.FollowUp, error)
}

// FollowUpLister is the read side of the follow-up scheduler.
type FollowUpLister interface {
	ListToday(ctx context.Context, params followups.ListParams) ([]domain.FollowUp, error)
	ListOverdue(ctx context.Context, params followups.ListParams) ([]domain.FollowUp, error)
}

type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

type EmployeeLister interface {
	ListActiveEmployees(ctx context.Context) ([]domain.User, error)
}

type SettingsReader interface {
	Get(ctx context.Context) domain.Settings
}

// Lock guards the digest so only one scheduler instance sends it per day.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Dependencies struct {
	Reminders    ReminderClaimer
	FollowUps    FollowUpLister
	Leads        LeadReader
	Employees    EmployeeLister
	Settings     SettingsReader
	Notifier     ports.NotificationSink
	Email        email.Sender
	Lock         Lock
	Calendar     domain.Calendar
	Log          *logger.Logger
	DashboardURL string
	// Backoff builds the retry policy for reads; nil uses 3 exponential retries from 100ms.
	Backoff func() retry.Backoff
}

type Service struct {
	reminders    ReminderClaimer
	followUps    FollowUpLister
	leads        LeadReader
	employees    EmployeeLister
	settings     SettingsReader
	notifier     ports.NotificationSink
	email        email.Sender
	lock         Lock
	calendar     domain.Calendar
	log          *logger.Logger
	dashboardURL string
	backoff      func() retry.Backoff
}

func New(deps Dependencies) *Service {
	backoff := deps.Backoff
	if backoff == nil {
		backoff = func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
		}
	}
	mailer := deps.Email
	if mailer == nil {
		mailer = email.NoopSender{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = ports.NoopNotificationSink{}
	}
	return &Service{
		reminders:    deps.Reminders,
		followUps:    deps.FollowUps,
		leads:        deps.Leads,
		employees:    deps.Employees,
		settings:     deps.Settings,
		notifier:     notifier,
		email:        mailer,
		lock:         deps.Lock,
		calendar:     deps.Calendar,
		log:          deps.Log,
		dashboardURL: deps.DashboardURL,
		backoff:      backoff,
	}
}

// Sweep claims pending follow-ups due within the configured lead time and
// notifies their assignees. Each follow-up is reminded at most once.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	const op = "reminders.Sweep"

	settings := s.settings.Get(ctx)
	now := s.calendar.Now()
	dueBefore := now.Add(time.Duration(settings.ReminderLeadMinutes) * time.Minute)

	due, err := s.reminders.ClaimDueReminders(ctx, dueBefore.UTC(), reminderBatchSize)
	if err != nil {
		return 0, apperr.Storage(err).WithOp(op)
	}

	sent := 0
	for _, f := range due {
		lead, err := s.lead(ctx, f.LeadID)
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, "load_lead", err, "followUpId", f.ID)
			continue
		}

		leadID := lead.ID
		err = s.notifier.Notify(ctx, ports.Notification{
			UserID:       f.AssignedTo,
			Title:        "Follow-up reminder",
			Message:      reminderMessage(lead, f, minutesUntil(now, f.Scheduled)),
			Category:     ports.CategoryFollowUpReminder,
			ResourceType: resourceTypeLead,
			ResourceID:   &leadID,
			Channels:     []ports.DeliveryChannel{ports.DeliverInApp, ports.DeliverWhatsApp},
		})
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, "notify", err, "followUpId", f.ID)
			continue
		}
		sent++
	}

	if len(due) > 0 {
		s.log.WithContext(ctx).Info("follow-up reminders sent", "claimed", len(due), "sent", sent)
	}
	return sent, nil
}

func minutesUntil(now, scheduled time.Time) int {
	minutes := int(math.Ceil(scheduled.Sub(now).Minutes()))
	if minutes < 0 {
		return 0
	}
	return minutes
}

func reminderMessage(lead domain.Lead, f domain.FollowUp, minutes int) string {
	var b strings.Builder
	if minutes == 0 {
		b.WriteString("You have a follow-up due now with:\n\n")
	} else {
		fmt.Fprintf(&b, "You have a follow-up scheduled in %d minutes with:\n\n", minutes)
	}
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\n", lead.Name, lead.Phone)
	if lead.Company != nil {
		fmt.Fprintf(&b, "Company: %s\n", *lead.Company)
	}
	if lead.InterestedIn != nil {
		fmt.Fprintf(&b, "Interested in: %s\n", *lead.InterestedIn)
	}
	fmt.Fprintf(&b, "Type: %s", f.Type)
	if f.Notes != nil {
		fmt.Fprintf(&b, "\nNotes: %s", *f.Notes)
	}
	return b.String()
}

// SendDailyDigest sends every active employee with follow-ups today (or
// overdue) a summary, at most once per calendar day across instances.
// All reads happen before the day is claimed, so a store outage returns an
// error for the task queue to retry instead of burning the day's lock.
func (s *Service) SendDailyDigest(ctx context.Context) (int, error) {
	const op = "reminders.SendDailyDigest"

	today := s.calendar.Today()
	day := domain.DateKey(today)

	var employees []domain.User
	if err := s.read(ctx, func(ctx context.Context) (err error) {
		employees, err = s.employees.ListActiveEmployees(ctx)
		return err
	}); err != nil {
		return 0, apperr.Storage(err).WithOp(op)
	}

	digests := make([]pendingDigest, 0, len(employees))
	for _, employee := range employees {
		items, err := s.digestItems(ctx, employee.ID, today)
		if err != nil {
			return 0, apperr.Storage(fmt.Errorf("follow-ups for %s: %w", employee.ID, err)).WithOp(op)
		}
		if len(items) == 0 {
			continue
		}
		digests = append(digests, pendingDigest{
			employee: employee,
			data:     email.DigestData{EmployeeName: employee.Name, Day: day, Items: items, DashboardURL: s.dashboardURL},
		})
	}

	key := digestLockPrefix + day
	acquired, err := s.lock.Acquire(ctx, key, digestLockTTL)
	if err != nil {
		return 0, apperr.Storage(err).WithOp(op)
	}
	if !acquired {
		s.log.WithContext(ctx).Info("daily digest already sent", "day", day)
		return 0, nil
	}

	sent := 0
	var lastErr error
	for _, d := range digests {
		delivered := false
		if err := s.notifier.Notify(ctx, ports.Notification{
			UserID:   d.employee.ID,
			Title:    "Today's follow-ups",
			Message:  digestMessage(d.data),
			Category: ports.CategoryDailyDigest,
			Channels: []ports.DeliveryChannel{ports.DeliverInApp, ports.DeliverWhatsApp},
		}); err != nil {
			lastErr = err
			s.log.WithContext(ctx).SideEffectFailed(op, "notify", err, "userId", d.employee.ID)
		} else {
			delivered = true
		}
		if d.employee.Email != "" {
			if err := s.email.SendDailyDigest(ctx, d.employee.Email, d.data); err != nil {
				lastErr = err
				s.log.WithContext(ctx).SideEffectFailed(op, "email", err, "userId", d.employee.ID)
			} else {
				delivered = true
			}
		}
		if delivered {
			sent++
		}
	}

	if sent == 0 && lastErr != nil {
		if err := s.lock.Release(ctx, key); err != nil {
			s.log.WithContext(ctx).SideEffectFailed(op, "release_lock", err, "day", day)
		}
		return 0, apperr.Wrap(apperr.KindInternal, "daily digest not delivered", lastErr).WithOp(op)
	}

	s.log.WithContext(ctx).Info("daily digest sent", "day", day, "employees", sent)
	return sent, nil
}

type pendingDigest struct {
	employee domain.User
	data     email.DigestData
}

func (s *Service) digestItems(ctx context.Context, employeeID uuid.UUID, today time.Time) ([]email.DigestItem, error) {
	params := followups.ListParams{Actor: domain.SystemActor(), AssigneeID: &employeeID}

	var overdue, dueToday []domain.FollowUp
	if err := s.read(ctx, func(ctx context.Context) (err error) {
		overdue, err = s.followUps.ListOverdue(ctx, params)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.read(ctx, func(ctx context.Context) (err error) {
		dueToday, err = s.followUps.ListToday(ctx, params)
		return err
	}); err != nil {
		return nil, err
	}

	items := make([]email.DigestItem, 0, len(overdue)+len(dueToday))
	for _, f := range append(overdue, dueToday...) {
		item := email.DigestItem{
			Type:      string(f.Type),
			Scheduled: f.Scheduled.In(s.calendar.Location()),
			Overdue:   f.Scheduled.Before(today),
		}
		if lead, err := s.lead(ctx, f.LeadID); err == nil {
			item.LeadName, item.LeadPhone = lead.Name, lead.Phone
		} else {
			item.LeadName = "(unknown lead)"
		}
		items = append(items, item)
	}
	return items, nil
}

func digestMessage(d email.DigestData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Good morning %s, you have %d follow-ups for %s:\n", d.EmployeeName, len(d.Items), d.Day)
	for _, item := range d.Items {
		marker := ""
		if item.Overdue {
			marker = " (overdue)"
		}
		fmt.Fprintf(&b, "\n%s %s %s%s", item.Scheduled.Format("15:04"), item.Type, item.LeadName, marker)
	}
	return b.String()
}

func (s *Service) lead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	var lead domain.Lead
	err := s.read(ctx, func(ctx context.Context) (err error) {
		lead, err = s.leads.GetLead(ctx, id)
		return err
	})
	return lead, err
}

// read retries transient read failures with backoff. Missing rows and
// typed non-storage errors are returned immediately.
func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || !transient(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func transient(err error) bool {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch apperr.GetKind(err) {
	case apperr.KindUnknown, apperr.KindStorage:
		return true
	}
	return false
}
