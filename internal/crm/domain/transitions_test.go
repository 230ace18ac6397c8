package domain

import "testing"

func TestStatusAfterCompletion(t *testing.T) {
	cases := []struct {
		current LeadStatus
		outcome string
		want    LeadStatus
	}{
		{LeadStatusNew, "", LeadStatusContacted},
		{LeadStatusNew, "left voicemail", LeadStatusContacted},
		{LeadStatusContacted, "", LeadStatusContacted},
		{LeadStatusOnHold, "", LeadStatusOnHold},
		{LeadStatusNew, "qualified", LeadStatusQualified},
		{LeadStatusContacted, "won", LeadStatusWon},
		{LeadStatusNegotiating, "lost", LeadStatusLost},
		{LeadStatusQualified, "proposal-sent", LeadStatusProposalSent},
		{LeadStatusQualified, "negotiating", LeadStatusNegotiating},
		{LeadStatusQualified, "closed-won", LeadStatusWon},
		{LeadStatusQualified, "Closed_Lost", LeadStatusLost},
		{LeadStatusContacted, "contacted", LeadStatusContacted},
		{LeadStatusNew, "on-hold", LeadStatusContacted},
	}

	for _, tc := range cases {
		if got := StatusAfterCompletion(tc.current, tc.outcome); got != tc.want {
			t.Errorf("StatusAfterCompletion(%q, %q) = %q, want %q", tc.current, tc.outcome, got, tc.want)
		}
	}
}

func TestStatusAfterFollowUpUpdate(t *testing.T) {
	cases := []struct {
		current LeadStatus
		status  FollowUpStatus
		outcome string
		want    LeadStatus
	}{
		{LeadStatusNew, FollowUpRescheduled, "", LeadStatusContacted},
		{LeadStatusNew, FollowUpInProgress, "", LeadStatusContacted},
		{LeadStatusQualified, FollowUpInProgress, "", LeadStatusQualified},
		{LeadStatusQualified, FollowUpOnHold, "", LeadStatusOnHold},
		{LeadStatusContacted, FollowUpCancelled, "on-hold", LeadStatusOnHold},
		{LeadStatusContacted, FollowUpCancelled, "", LeadStatusContacted},
		{LeadStatusNew, FollowUpMissed, "", LeadStatusNew},
		{LeadStatusWon, FollowUpOnHold, "", LeadStatusWon},
		{LeadStatusLost, FollowUpRescheduled, "", LeadStatusLost},
	}

	for _, tc := range cases {
		if got := StatusAfterFollowUpUpdate(tc.current, tc.status, tc.outcome); got != tc.want {
			t.Errorf("StatusAfterFollowUpUpdate(%q, %q, %q) = %q, want %q", tc.current, tc.status, tc.outcome, got, tc.want)
		}
	}
}

func TestParseLeadStatusLegacySpellings(t *testing.T) {
	cases := map[string]LeadStatus{
		"closed-won":  LeadStatusWon,
		"CLOSED-LOST": LeadStatusLost,
		"proposal":    LeadStatusProposalSent,
		"negotiation": LeadStatusNegotiating,
		"in_progress": LeadStatusContacted,
		" on_hold ":   LeadStatusOnHold,
		"new":         LeadStatusNew,
	}
	for raw, want := range cases {
		got, ok := ParseLeadStatus(raw)
		if !ok || got != want {
			t.Errorf("ParseLeadStatus(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}

	if _, ok := ParseLeadStatus("archived"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStatusChangeNote(t *testing.T) {
	got := StatusChangeNote(LeadStatusNew, LeadStatusQualified)
	if got != "Lead status changed from new to qualified" {
		t.Fatalf("unexpected note %q", got)
	}
}
