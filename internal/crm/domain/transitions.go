package domain

import "fmt"

// outcomeStatuses are the completion outcomes that set the lead status directly.
var outcomeStatuses = map[LeadStatus]bool{
	LeadStatusQualified:    true,
	LeadStatusNegotiating:  true,
	LeadStatusProposalSent: true,
	LeadStatusWon:          true,
	LeadStatusLost:         true,
}

// OutcomeLeadStatus returns the lead status an outcome maps to, if any.
// Legacy spellings such as "closed-won" are accepted.
func OutcomeLeadStatus(outcome string) (LeadStatus, bool) {
	status, ok := ParseLeadStatus(outcome)
	if !ok || !outcomeStatuses[status] {
		return "", false
	}
	return status, true
}

// StatusAfterCompletion derives the lead status after a follow-up is completed.
// Without a mapped outcome a new lead becomes contacted and any other status
// is kept.
func StatusAfterCompletion(current LeadStatus, outcome string) LeadStatus {
	if mapped, ok := OutcomeLeadStatus(outcome); ok {
		return mapped
	}
	if current == LeadStatusNew {
		return LeadStatusContacted
	}
	return current
}

// StatusAfterFollowUpUpdate derives the lead status after a follow-up moves to
// a non-completed status. Closed leads never change here.
func StatusAfterFollowUpUpdate(current LeadStatus, status FollowUpStatus, outcome string) LeadStatus {
	if current.IsTerminal() {
		return current
	}

	switch status {
	case FollowUpRescheduled, FollowUpInProgress:
		if current == LeadStatusNew {
			return LeadStatusContacted
		}
	case FollowUpOnHold:
		return LeadStatusOnHold
	case FollowUpCancelled:
		if parsed, ok := ParseLeadStatus(outcome); ok && parsed == LeadStatusOnHold {
			return LeadStatusOnHold
		}
	}
	return current
}

// UpdatableFollowUpStatuses are the targets reachable through a plain status
// update. Completion and reactivation have dedicated operations.
var UpdatableFollowUpStatuses = map[FollowUpStatus]bool{
	FollowUpRescheduled: true,
	FollowUpMissed:      true,
	FollowUpCancelled:   true,
	FollowUpInProgress:  true,
	FollowUpOnHold:      true,
}

// StatusChangeNote is the activity note appended on every lead status change.
func StatusChangeNote(from, to LeadStatus) string {
	return fmt.Sprintf("Lead status changed from %s to %s", from, to)
}
