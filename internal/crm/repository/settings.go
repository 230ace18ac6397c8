package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"salescrm_backend/internal/crm/domain"

	"github.com/jackc/pgx/v5"
)

func scanSettings(row pgx.Row) (domain.Settings, error) {
	var s domain.Settings
	var strategy string
	var intervals []byte
	err := row.Scan(&strategy, &intervals, &s.AutoFollowUpEnabled, &s.PreferDefaultNumber,
		&s.NumberRotationEnabled, &s.LeadRotationEnabled, &s.ReminderLeadMinutes)
	if err != nil {
		return domain.Settings{}, notFound(err)
	}

	raw := map[string]int{}
	if len(intervals) > 0 {
		if err := json.Unmarshal(intervals, &raw); err != nil {
			return domain.Settings{}, fmt.Errorf("decode followup intervals: %w", err)
		}
	}
	s.RotationStrategy = domain.ParseRotationStrategy(strategy)
	s.DefaultFollowUpIntervals = domain.NormalizeIntervals(raw)
	return s, nil
}

func (r *Repository) GetSettings(ctx context.Context) (domain.Settings, error) {
	return scanSettings(r.pool.QueryRow(ctx, `
		SELECT rotation_strategy, default_followup_intervals, auto_followup_enabled, prefer_default_number,
			number_rotation_enabled, lead_rotation_enabled, reminder_lead_minutes
		FROM company_settings
		WHERE id = 1
	`))
}

func (r *Repository) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	raw := make(map[string]int, len(settings.DefaultFollowUpIntervals))
	for status, days := range settings.DefaultFollowUpIntervals {
		raw[string(status)] = days
	}
	intervals, err := json.Marshal(raw)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("encode followup intervals: %w", err)
	}

	return scanSettings(r.pool.QueryRow(ctx, `
		INSERT INTO company_settings (id, rotation_strategy, default_followup_intervals, auto_followup_enabled,
			prefer_default_number, number_rotation_enabled, lead_rotation_enabled, reminder_lead_minutes, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			rotation_strategy = EXCLUDED.rotation_strategy,
			default_followup_intervals = EXCLUDED.default_followup_intervals,
			auto_followup_enabled = EXCLUDED.auto_followup_enabled,
			prefer_default_number = EXCLUDED.prefer_default_number,
			number_rotation_enabled = EXCLUDED.number_rotation_enabled,
			lead_rotation_enabled = EXCLUDED.lead_rotation_enabled,
			reminder_lead_minutes = EXCLUDED.reminder_lead_minutes,
			updated_at = now()
		RETURNING rotation_strategy, default_followup_intervals, auto_followup_enabled, prefer_default_number,
			number_rotation_enabled, lead_rotation_enabled, reminder_lead_minutes
	`, string(settings.RotationStrategy), intervals, settings.AutoFollowUpEnabled, settings.PreferDefaultNumber,
		settings.NumberRotationEnabled, settings.LeadRotationEnabled, settings.ReminderLeadMinutes))
}
