package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a sales prospect.
type Lead struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Email             *string    `json:"email,omitempty"`
	Company           *string    `json:"company,omitempty"`
	InterestedIn      *string    `json:"interestedIn,omitempty"`
	Message           *string    `json:"message,omitempty"`
	MessageSID        *string    `json:"messageSid,omitempty"`
	Status            LeadStatus `json:"status"`
	AssignedTo        *uuid.UUID `json:"assignedTo,omitempty"`
	Source            LeadSource `json:"source"`
	LastContacted     *time.Time `json:"lastContacted,omitempty"`
	LastContactMethod *string    `json:"lastContactMethod,omitempty"`
	CreatedBy         *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// FollowUp is a planned contact with a lead.
type FollowUp struct {
	ID              uuid.UUID      `json:"id"`
	LeadID          uuid.UUID      `json:"leadId"`
	AssignedTo      uuid.UUID      `json:"assignedTo"`
	Scheduled       time.Time      `json:"scheduled"`
	Type            FollowUpType   `json:"followUpType"`
	Status          FollowUpStatus `json:"status"`
	Outcome         *string        `json:"outcome,omitempty"`
	IntervalDays    int            `json:"interval"`
	Notes           *string        `json:"notes,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	Snoozed         bool           `json:"snoozed"`
	SnoozedFrom     *time.Time     `json:"snoozedFrom,omitempty"`
	RescheduledFrom *time.Time     `json:"rescheduledFrom,omitempty"`
	RescheduleCount int            `json:"rescheduleCount"`
	SupersededBy    *uuid.UUID     `json:"supersededBy,omitempty"`
	ReminderSentAt  *time.Time     `json:"reminderSentAt,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// IsActive reports whether this is the lead's open follow-up.
func (f FollowUp) IsActive() bool {
	return f.Status == FollowUpPending
}

// Activity is an immutable interaction record.
type Activity struct {
	ID              uuid.UUID      `json:"id"`
	LeadID          uuid.UUID      `json:"leadId"`
	UserID          *uuid.UUID     `json:"userId,omitempty"`
	Type            ActivityType   `json:"type"`
	Status          ActivityStatus `json:"status"`
	DurationSeconds *int           `json:"duration,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	TemplateUsed    *string        `json:"templateUsed,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Channel is an outbound sender identity.
type Channel struct {
	ID                  uuid.UUID  `json:"id"`
	Identifier          string     `json:"identifier"`
	Label               string     `json:"label"`
	IsActive            bool       `json:"isActive"`
	IsDefault           bool       `json:"isDefault"`
	MessageCount        int64      `json:"messageCount"`
	DailyCount          int        `json:"dailyCount"`
	DailyLimit          int        `json:"dailyLimit"`
	DailyCountResetDate *time.Time `json:"dailyCountResetDate,omitempty"`
	LastUsed            *time.Time `json:"lastUsed,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// HasCapacity reports whether the channel can take one more send today.
// The counter is considered zero when it was last reset before today.
func (c Channel) HasCapacity(today time.Time) bool {
	return c.EffectiveDailyCount(today) < c.DailyLimit
}

// EffectiveDailyCount is the daily count as of today. DailyCountResetDate is
// a calendar date, so the comparison is done on dates, not instants.
func (c Channel) EffectiveDailyCount(today time.Time) int {
	if c.DailyCountResetDate == nil || DateKey(*c.DailyCountResetDate) < DateKey(today) {
		return 0
	}
	return c.DailyCount
}

// DateKey formats the wall-clock date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// User is an employee or administrator.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            *string    `json:"phone,omitempty"`
	Role             Role       `json:"role"`
	IsActive         bool       `json:"isActive"`
	LastLeadAssigned *time.Time `json:"lastLeadAssigned,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ChannelUsage summarizes channel load for administrators.
type ChannelUsage struct {
	TotalChannels  int       `json:"totalChannels"`
	ActiveChannels int       `json:"activeChannels"`
	TotalMessages  int64     `json:"totalMessages"`
	SentToday      int       `json:"sentToday"`
	CapacityToday  int       `json:"capacityToday"`
	Channels       []Channel `json:"channels"`
}
