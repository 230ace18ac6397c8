package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TemplateCategory string

const (
	TemplateGreeting    TemplateCategory = "greeting"
	TemplateFollowUp    TemplateCategory = "follow-up"
	TemplateReminder    TemplateCategory = "reminder"
	TemplatePromotion   TemplateCategory = "promotion"
	TemplateInformation TemplateCategory = "information"
	TemplateOther       TemplateCategory = "other"
)

func ParseTemplateCategory(s string) (TemplateCategory, bool) {
	switch c := TemplateCategory(strings.TrimSpace(s)); c {
	case TemplateGreeting, TemplateFollowUp, TemplateReminder, TemplatePromotion, TemplateInformation, TemplateOther:
		return c, true
	case "":
		return TemplateFollowUp, true
	}
	return "", false
}

// WhatsAppTemplate is a reusable message body with named placeholders.
type WhatsAppTemplate struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Content     string           `json:"content"`
	Category    TemplateCategory `json:"category"`
	Tags        []string         `json:"tags"`
	IsActive    bool             `json:"isActive"`
	CreatedBy   *uuid.UUID       `json:"createdBy,omitempty"`
	UsageCount  int64            `json:"usageCount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// TemplateValues fill the {{Customer_Name}}, {{Employee_Name}},
// {{Company_Name}} and {{Service_Name}} placeholders.
type TemplateValues struct {
	CustomerName string
	EmployeeName string
	CompanyName  string
	ServiceName  string
}

// TemplateValuesFor derives placeholder values from a lead and the sender's
// name. Missing lead fields fall back to neutral wording.
func TemplateValuesFor(lead Lead, employeeName string) TemplateValues {
	return TemplateValues{
		CustomerName: orDefault(lead.Name, "Customer"),
		EmployeeName: orDefault(employeeName, "our team"),
		CompanyName:  orDefault(deref(lead.Company), "your company"),
		ServiceName:  orDefault(deref(lead.InterestedIn), "our services"),
	}
}

// Render substitutes every occurrence of each placeholder. Unknown
// placeholders are left as written.
func (t WhatsAppTemplate) Render(v TemplateValues) string {
	return strings.NewReplacer(
		"{{Customer_Name}}", v.CustomerName,
		"{{Employee_Name}}", v.EmployeeName,
		"{{Company_Name}}", v.CompanyName,
		"{{Service_Name}}", v.ServiceName,
	).Replace(t.Content)
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MessageStats summarizes outbound WhatsApp traffic over a window.
type MessageStats struct {
	Since         time.Time       `json:"since"`
	TotalMessages int64           `json:"totalMessages"`
	ByDay         []DayCount      `json:"byDay"`
	ByUser        []UserCount     `json:"byUser"`
	ByTemplate    []TemplateCount `json:"byTemplate"`
	Channels      []Channel       `json:"channels"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type UserCount struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Count  int64     `json:"count"`
}

type TemplateCount struct {
	Template string `json:"template"`
	Count    int64  `json:"count"`
}
