// Package transport holds the request bodies of the CRM HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Leads

type CreateLeadRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Phone        string     `json:"phone" validate:"required,phone"`
	Email        string     `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Company      string     `json:"company,omitempty" validate:"max=200"`
	InterestedIn string     `json:"interestedIn,omitempty" validate:"max=200"`
	Message      string     `json:"message,omitempty" validate:"max=5000"`
	Source       string     `json:"source,omitempty" validate:"omitempty,oneof=manual whatsapp website referral other"`
	AssigneeID   *uuid.UUID `json:"assignedTo,omitempty"`
}

type ChangeLeadStatusRequest struct {
	Status string `json:"status" validate:"required,max=40"`
	Notes  string `json:"notes,omitempty" validate:"max=2000"`
}

type SendWhatsAppRequest struct {
	Message      string     `json:"message" validate:"required_without=TemplateID,max=4096"`
	TemplateID   *uuid.UUID `json:"templateId,omitempty"`
	TemplateUsed *string    `json:"templateUsed,omitempty" validate:"omitempty,max=100"`
}

type RecordActivityRequest struct {
	Type         string  `json:"type" validate:"required,oneof=call whatsapp email meeting note"`
	Status       string  `json:"status" validate:"required,oneof=attempted connected not-answered completed other"`
	Duration     *int    `json:"duration,omitempty" validate:"omitempty,min=0"`
	Notes        string  `json:"notes,omitempty" validate:"max=5000"`
	TemplateUsed *string `json:"templateUsed,omitempty" validate:"omitempty,max=100"`
}

// Follow-ups

type ScheduleFollowUpRequest struct {
	LeadID       uuid.UUID  `json:"leadId" validate:"required"`
	AssigneeID   *uuid.UUID `json:"assignedTo,omitempty"`
	Type         string     `json:"followUpType,omitempty" validate:"max=20"`
	IntervalDays *int       `json:"interval,omitempty" validate:"omitempty,min=1,max=365"`
	Notes        string     `json:"notes,omitempty" validate:"max=5000"`
}

type CompleteFollowUpRequest struct {
	Outcome string `json:"outcome,omitempty" validate:"max=40"`
	Notes   string `json:"notes,omitempty" validate:"max=5000"`
}

type RescheduleFollowUpRequest struct {
	NewDate time.Time `json:"newDate" validate:"required"`
}

type SnoozeFollowUpRequest struct {
	SnoozeUntil time.Time `json:"snoozeUntil" validate:"required"`
}

type UpdateFollowUpStatusRequest struct {
	Status  string `json:"status" validate:"required,max=40"`
	Outcome string `json:"outcome,omitempty" validate:"max=40"`
	Notes   string `json:"notes,omitempty" validate:"max=5000"`
}

// Templates

type CreateTemplateRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=200"`
	Content     string   `json:"content" validate:"required,max=4096"`
	Category    string   `json:"category,omitempty" validate:"omitempty,oneof=greeting follow-up reminder promotion information other"`
	Tags        []string `json:"tags,omitempty" validate:"max=20,dive,max=40"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

type UpdateTemplateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=50"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=200"`
	Content     *string  `json:"content,omitempty" validate:"omitempty,max=4096"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,oneof=greeting follow-up reminder promotion information other"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=40"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

type MessageStatsQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// Channels

type CreateChannelRequest struct {
	Identifier string `json:"phoneNumber" validate:"required,phone"`
	Label      string `json:"label,omitempty" validate:"max=100"`
	DailyLimit int    `json:"dailyLimit,omitempty" validate:"omitempty,min=1,max=100000"`
	IsActive   *bool  `json:"isActive,omitempty"`
}

type UpdateChannelRequest struct {
	Label      *string `json:"label,omitempty" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"isActive,omitempty"`
	DailyLimit *int    `json:"dailyLimit,omitempty" validate:"omitempty,min=1,max=100000"`
}

// Settings

type UpdateSettingsRequest struct {
	RotationStrategy         *string        `json:"rotationStrategy,omitempty" validate:"omitempty,oneof=round-robin random least-used-today least-used-overall"`
	DefaultFollowUpIntervals map[string]int `json:"defaultFollowupIntervals,omitempty" validate:"omitempty,dive,keys,required,endkeys,min=1,max=365"`
	AutoFollowUpEnabled      *bool          `json:"autoFollowupEnabled,omitempty"`
	PreferDefaultNumber      *bool          `json:"preferDefaultNumber,omitempty"`
	NumberRotationEnabled    *bool          `json:"numberRotationEnabled,omitempty"`
	LeadRotationEnabled      *bool          `json:"leadRotationEnabled,omitempty"`
	ReminderLeadMinutes      *int           `json:"reminderLeadMinutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

// Webhooks

// WhatsAppWebhookRequest is the provider's form-encoded inbound callback.
type WhatsAppWebhookRequest struct {
	MessageSID  string `form:"MessageSid"`
	From        string `form:"From"`
	Body        string `form:"Body"`
	ProfileName string `form:"ProfileName"`
	SmsStatus   string `form:"SmsStatus"`
}
