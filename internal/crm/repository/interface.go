package repository

import (
	"context"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces
// =====================================

// UserStore reads employees and owns the round-robin cursor.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	// NextAssigneeCandidate returns the active employee with the oldest
	// last_lead_assigned (never-assigned first, ties by id).
	NextAssigneeCandidate(ctx context.Context) (domain.User, error)
	// ClaimAssignee moves the cursor of id to at only if it still equals
	// previous. It reports whether the claim won.
	ClaimAssignee(ctx context.Context, id uuid.UUID, previous *time.Time, at time.Time) (bool, error)
	ListActiveEmployees(ctx context.Context) ([]domain.User, error)
	ListActiveAdmins(ctx context.Context) ([]domain.User, error)
}

// LeadStore manages leads.
type LeadStore interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetLeadByPhone(ctx context.Context, phone string) (domain.Lead, error)
	// UpdateLeadStatus changes the status only if it still equals from.
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, from, to domain.LeadStatus) (domain.Lead, error)
	AssignLead(ctx context.Context, id uuid.UUID, userID uuid.UUID) (domain.Lead, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time, method string) error
	AppendLeadMessage(ctx context.Context, id uuid.UUID, text string) (domain.Lead, error)
}

// InboundMessageStore deduplicates provider webhook deliveries.
type InboundMessageStore interface {
	// ClaimInboundMessage records sid and reports false if it was seen before.
	ClaimInboundMessage(ctx context.Context, sid, fromPhone, body string) (bool, error)
	LinkInboundMessage(ctx context.Context, sid string, leadID uuid.UUID) error
}

// FollowUpStore manages follow-ups. Mutations of a single follow-up are
// compare-and-set on its version.
type FollowUpStore interface {
	GetFollowUp(ctx context.Context, id uuid.UUID) (domain.FollowUp, error)
	ListFollowUpsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUp, error)
	// CreateFollowUp supersedes the lead's pending follow-ups and inserts the
	// new pending one in a single transaction.
	CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (domain.FollowUp, []uuid.UUID, error)
	CompleteFollowUp(ctx context.Context, params CompleteFollowUpParams) (domain.FollowUp, error)
	UpdateFollowUpStatus(ctx context.Context, params UpdateFollowUpStatusParams) (domain.FollowUp, error)
	// ReactivateFollowUp makes the follow-up the lead's sole pending one.
	ReactivateFollowUp(ctx context.Context, params ReactivateFollowUpParams) (domain.FollowUp, []uuid.UUID, error)
	ListFollowUps(ctx context.Context, params ListFollowUpsParams) ([]domain.FollowUp, error)
	// ClaimDueReminders marks pending follow-ups due before dueBefore as
	// reminded and returns them. Each follow-up is claimed once.
	ClaimDueReminders(ctx context.Context, dueBefore time.Time, limit int) ([]domain.FollowUp, error)
}

// ActivityStore appends to the activity log.
type ActivityStore interface {
	CreateActivity(ctx context.Context, params CreateActivityParams) (domain.Activity, error)
	ListActivitiesForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Activity, error)
}

// MessageLogStore reads the outbound message trail kept in the activity log.
type MessageLogStore interface {
	ListActivitiesForLeadByType(ctx context.Context, leadID uuid.UUID, activityType domain.ActivityType) ([]domain.Activity, error)
	MessageStats(ctx context.Context, since time.Time, tz string) (domain.MessageStats, error)
}

// ChannelStore manages outbound channels and their usage counters.
type ChannelStore interface {
	GetChannel(ctx context.Context, id uuid.UUID) (domain.Channel, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	ListActiveChannels(ctx context.Context) ([]domain.Channel, error)
	CreateChannel(ctx context.Context, params CreateChannelParams) (domain.Channel, error)
	UpdateChannel(ctx context.Context, id uuid.UUID, params UpdateChannelParams) (domain.Channel, error)
	SetDefaultChannel(ctx context.Context, id uuid.UUID) (domain.Channel, error)
	// ResetStaleDailyCounts zeroes counters last reset before today.
	ResetStaleDailyCounts(ctx context.Context, today time.Time) (int64, error)
	ResetAllDailyCounts(ctx context.Context, today time.Time) (int64, error)
	// IncrementChannelUsage adds one use if the channel is active and under
	// its daily limit, returning ErrQuotaExhausted otherwise.
	IncrementChannelUsage(ctx context.Context, id uuid.UUID, today, at time.Time) (domain.Channel, error)
	ReleaseChannelUsage(ctx context.Context, id uuid.UUID, today time.Time) (bool, error)
}

// SettingsStore reads and writes the company settings row.
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// TemplateStore manages WhatsApp message templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (domain.WhatsAppTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]domain.WhatsAppTemplate, error)
	CreateTemplate(ctx context.Context, params CreateTemplateParams) (domain.WhatsAppTemplate, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, params UpdateTemplateParams) (domain.WhatsAppTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	IncrementTemplateUsage(ctx context.Context, id uuid.UUID) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	LeadStore
	InboundMessageStore
	FollowUpStore
	ActivityStore
	MessageLogStore
	ChannelStore
	SettingsStore
	TemplateStore
}

type CreateLeadParams struct {
	Name         string
	Phone        string
	Email        *string
	Company      *string
	InterestedIn *string
	Message      *string
	MessageSID   *string
	Status       domain.LeadStatus
	AssignedTo   *uuid.UUID
	Source       domain.LeadSource
	CreatedBy    *uuid.UUID
}

type CreateFollowUpParams struct {
	LeadID       uuid.UUID
	AssignedTo   uuid.UUID
	Scheduled    time.Time
	Type         domain.FollowUpType
	IntervalDays int
	Notes        *string
}

type CompleteFollowUpParams struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Outcome         *string
	Notes           *string
	CompletedAt     time.Time
}

type UpdateFollowUpStatusParams struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Status          domain.FollowUpStatus
	Outcome         *string
	Notes           *string
}

type ReactivateFollowUpParams struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Scheduled       time.Time
	Snoozed         bool
	SnoozedFrom     *time.Time
	RescheduledFrom *time.Time
	// CountReschedule increments reschedule_count.
	CountReschedule bool
}

type ListFollowUpsParams struct {
	AssigneeID *uuid.UUID
	From       time.Time
	To         time.Time
}

type CreateActivityParams struct {
	LeadID          uuid.UUID
	UserID          *uuid.UUID
	Type            domain.ActivityType
	Status          domain.ActivityStatus
	DurationSeconds *int
	Notes           *string
	TemplateUsed    *string
}

type CreateChannelParams struct {
	Identifier string
	Label      string
	DailyLimit int
	IsActive   bool
}

type UpdateChannelParams struct {
	Label      *string
	IsActive   *bool
	DailyLimit *int
}

type CreateTemplateParams struct {
	Name        string
	Description *string
	Content     string
	Category    domain.TemplateCategory
	Tags        []string
	IsActive    bool
	CreatedBy   *uuid.UUID
}

type UpdateTemplateParams struct {
	Name        *string
	Description *string
	Content     *string
	Category    *domain.TemplateCategory
	Tags        []string
	IsActive    *bool
}
