package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// DigestItem is one follow-up line in the daily digest.
type DigestItem struct {
	LeadName  string
	LeadPhone string
	Type      string
	Scheduled time.Time
	Overdue   bool
}

// DigestData is the content of an employee's daily digest.
type DigestData struct {
	EmployeeName string
	Day          string
	Items        []DigestItem
	DashboardURL string
}

type dailyDigestEmailData struct {
	baseEmailData
	EmployeeName string
	Items        []DigestItem
	Overdue      int
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").Funcs(template.FuncMap{
		"clock": func(t time.Time) string { return t.Format("15:04") },
	}).ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderDailyDigest(d DigestData) (string, error) {
	overdue := 0
	for _, item := range d.Items {
		if item.Overdue {
			overdue++
		}
	}
	return renderEmailTemplate("daily_digest.html", dailyDigestEmailData{
		baseEmailData: baseEmailData{
			Title:      "Today's follow-ups",
			Heading:    fmt.Sprintf("Follow-ups for %s", d.Day),
			Subheading: fmt.Sprintf("You have %d follow-ups planned.", len(d.Items)),
			CTALabel:   "Open dashboard",
			CTAURL:     d.DashboardURL,
		},
		EmployeeName: d.EmployeeName,
		Items:        d.Items,
		Overdue:      overdue,
	})
}
