package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderDailyDigest(t *testing.T) {
	html, err := renderDailyDigest(DigestData{
		EmployeeName: "Alice",
		Day:          "2026-03-10",
		DashboardURL: "https://crm.example.com/followups",
		Items: []DigestItem{
			{LeadName: "Bob <Builder>", LeadPhone: "+12015550123", Type: "call", Scheduled: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)},
			{LeadName: "Carol", Type: "email", Scheduled: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), Overdue: true},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"Alice", "09:30", "Bob &lt;Builder&gt;", "1 of them are overdue", "You have 2 follow-ups", "https://crm.example.com/followups"} {
		if !strings.Contains(html, want) {
			t.Errorf("digest missing %q", want)
		}
	}
}

func TestMessageRejectsInvalidRecipient(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "crm@example.com", "Sales CRM")
	if _, err := s.message("not an address", "subject", "<p>hi</p>"); err == nil {
		t.Fatal("expected invalid recipient error")
	}
	if _, err := s.message("alice@example.com", "subject", "<p>hi</p>"); err != nil {
		t.Fatalf("message: %v", err)
	}
}
