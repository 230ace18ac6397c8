// Package domain holds the CRM entities, status vocabularies and the pure
// rules that map follow-up results onto lead statuses.
package domain

import "strings"

// LeadStatus is the canonical lead lifecycle vocabulary.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusQualified    LeadStatus = "qualified"
	LeadStatusNegotiating  LeadStatus = "negotiating"
	LeadStatusProposalSent LeadStatus = "proposal-sent"
	LeadStatusWon          LeadStatus = "won"
	LeadStatusLost         LeadStatus = "lost"
	LeadStatusOnHold       LeadStatus = "on-hold"
)

// LeadStatuses lists every canonical lead status.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusNegotiating,
	LeadStatusProposalSent,
	LeadStatusWon,
	LeadStatusLost,
	LeadStatusOnHold,
}

// legacyLeadStatuses maps spellings found in older records to the canonical set.
var legacyLeadStatuses = map[string]LeadStatus{
	"closed-won":    LeadStatusWon,
	"closed_won":    LeadStatusWon,
	"closed-lost":   LeadStatusLost,
	"closed_lost":   LeadStatusLost,
	"proposal":      LeadStatusProposalSent,
	"proposal_sent": LeadStatusProposalSent,
	"negotiation":   LeadStatusNegotiating,
	"in-progress":   LeadStatusContacted,
	"in_progress":   LeadStatusContacted,
	"on_hold":       LeadStatusOnHold,
	"onhold":        LeadStatusOnHold,
}

// ParseLeadStatus accepts canonical and legacy spellings, case-insensitively.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, status := range LeadStatuses {
		if string(status) == normalized {
			return status, true
		}
	}
	status, ok := legacyLeadStatuses[normalized]
	return status, ok
}

// IsTerminal reports whether the lead is closed.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusWon || s == LeadStatusLost
}

// FollowUpStatus is the follow-up state machine vocabulary.
type FollowUpStatus string

const (
	FollowUpPending     FollowUpStatus = "pending"
	FollowUpCompleted   FollowUpStatus = "completed"
	FollowUpRescheduled FollowUpStatus = "rescheduled"
	FollowUpMissed      FollowUpStatus = "missed"
	FollowUpCancelled   FollowUpStatus = "cancelled"
	FollowUpInProgress  FollowUpStatus = "in-progress"
	FollowUpOnHold      FollowUpStatus = "on-hold"
)

// IsTerminal reports whether no further transition is allowed.
func (s FollowUpStatus) IsTerminal() bool {
	return s == FollowUpCompleted || s == FollowUpCancelled
}

// ParseFollowUpStatus validates a follow-up status.
func ParseFollowUpStatus(raw string) (FollowUpStatus, bool) {
	switch status := FollowUpStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case FollowUpPending, FollowUpCompleted, FollowUpRescheduled, FollowUpMissed,
		FollowUpCancelled, FollowUpInProgress, FollowUpOnHold:
		return status, true
	}
	return "", false
}

// FollowUpType is the kind of contact planned.
type FollowUpType string

const (
	FollowUpCall     FollowUpType = "call"
	FollowUpWhatsApp FollowUpType = "whatsapp"
	FollowUpEmail    FollowUpType = "email"
	FollowUpMeeting  FollowUpType = "meeting"
	FollowUpOther    FollowUpType = "other"
)

// ParseFollowUpType defaults an empty value to call.
func ParseFollowUpType(raw string) (FollowUpType, bool) {
	switch t := FollowUpType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return FollowUpCall, true
	case FollowUpCall, FollowUpWhatsApp, FollowUpEmail, FollowUpMeeting, FollowUpOther:
		return t, true
	}
	return "", false
}

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityCall     ActivityType = "call"
	ActivityWhatsApp ActivityType = "whatsapp"
	ActivityEmail    ActivityType = "email"
	ActivityMeeting  ActivityType = "meeting"
	ActivityNote     ActivityType = "note"
)

// ActivityStatus records how an interaction went.
type ActivityStatus string

const (
	ActivityAttempted   ActivityStatus = "attempted"
	ActivityConnected   ActivityStatus = "connected"
	ActivityNotAnswered ActivityStatus = "not-answered"
	ActivityCompleted   ActivityStatus = "completed"
	ActivityOther       ActivityStatus = "other"
)

// ValidActivity reports whether the type/status pair is known.
func ValidActivity(t ActivityType, s ActivityStatus) bool {
	switch t {
	case ActivityCall, ActivityWhatsApp, ActivityEmail, ActivityMeeting, ActivityNote:
	default:
		return false
	}
	switch s {
	case ActivityAttempted, ActivityConnected, ActivityNotAnswered, ActivityCompleted, ActivityOther:
		return true
	}
	return false
}

// Role is a user role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// LeadSource records where a lead came from.
type LeadSource string

const (
	SourceManual   LeadSource = "manual"
	SourceWhatsApp LeadSource = "whatsapp"
	SourceWebsite  LeadSource = "website"
	SourceReferral LeadSource = "referral"
	SourceOther    LeadSource = "other"
)

// ParseLeadSource accepts a source case-insensitively.
func ParseLeadSource(raw string) (LeadSource, bool) {
	switch s := LeadSource(strings.ToLower(strings.TrimSpace(raw))); s {
	case SourceManual, SourceWhatsApp, SourceWebsite, SourceReferral, SourceOther:
		return s, true
	}
	return "", false
}
