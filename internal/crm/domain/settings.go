package domain

import (
	"fmt"
	"strings"
)

// RotationStrategy orders eligible outbound channels.
type RotationStrategy string

const (
	StrategyRoundRobin        RotationStrategy = "round-robin"
	StrategyLeastUsedToday    RotationStrategy = "least-used-today"
	StrategyLeastUsedOverall  RotationStrategy = "least-used-overall"
	StrategyRandom            RotationStrategy = "random"
	DefaultFollowUpInterval                    = 2
	DefaultReminderLeadMinute                  = 15
)

// ParseRotationStrategy falls back to round-robin for unknown values.
func ParseRotationStrategy(raw string) RotationStrategy {
	switch s := RotationStrategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case StrategyRoundRobin, StrategyLeastUsedToday, StrategyLeastUsedOverall, StrategyRandom:
		return s
	}
	return StrategyRoundRobin
}

// Settings is the company-wide configuration consumed by the engine.
type Settings struct {
	RotationStrategy         RotationStrategy   `json:"rotationStrategy"`
	DefaultFollowUpIntervals map[LeadStatus]int `json:"defaultFollowupIntervals"`
	AutoFollowUpEnabled      bool               `json:"autoFollowupEnabled"`
	PreferDefaultNumber      bool               `json:"preferDefaultNumber"`
	NumberRotationEnabled    bool               `json:"numberRotationEnabled"`
	LeadRotationEnabled      bool               `json:"leadRotationEnabled"`
	ReminderLeadMinutes      int                `json:"reminderLeadMinutes"`
}

// DefaultSettings is used whenever no settings row exists.
func DefaultSettings() Settings {
	return Settings{
		RotationStrategy: StrategyRoundRobin,
		DefaultFollowUpIntervals: map[LeadStatus]int{
			LeadStatusNew:          1,
			LeadStatusContacted:    2,
			LeadStatusQualified:    3,
			LeadStatusProposalSent: 5,
			LeadStatusNegotiating:  2,
		},
		AutoFollowUpEnabled:   true,
		PreferDefaultNumber:   false,
		NumberRotationEnabled: true,
		LeadRotationEnabled:   true,
		ReminderLeadMinutes:   DefaultReminderLeadMinute,
	}
}

// ErrNoIntervalConfigured is returned by IntervalDays when the table has no
// usable entry for a status.
type ErrNoIntervalConfigured struct {
	Status LeadStatus
}

func (e ErrNoIntervalConfigured) Error() string {
	return fmt.Sprintf("no follow-up interval configured for lead status %q", e.Status)
}

// IntervalDays looks up the follow-up interval for status.
func (s Settings) IntervalDays(status LeadStatus) (int, error) {
	days, ok := s.DefaultFollowUpIntervals[status]
	if !ok || days <= 0 {
		return 0, ErrNoIntervalConfigured{Status: status}
	}
	return days, nil
}

// NormalizeIntervals converts a raw status->days table, folding legacy keys
// onto canonical statuses. Canonical keys win over legacy ones.
func NormalizeIntervals(raw map[string]int) map[LeadStatus]int {
	out := make(map[LeadStatus]int, len(raw))
	canonical := make(map[LeadStatus]bool, len(raw))
	for key, days := range raw {
		status, ok := ParseLeadStatus(key)
		if !ok || days <= 0 {
			continue
		}
		isCanonical := string(status) == strings.ToLower(strings.TrimSpace(key))
		if canonical[status] && !isCanonical {
			continue
		}
		out[status] = days
		if isCanonical {
			canonical[status] = true
		}
	}
	return out
}
