package repository

import (
	"context"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListActivitiesForLeadByType returns one lead's activities of a single type,
// newest first.
func (r *Repository) ListActivitiesForLeadByType(ctx context.Context, leadID uuid.UUID, activityType domain.ActivityType) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE lead_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
	`, leadID, string(activityType))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
		return scanActivity(row)
	})
}

// MessageStats aggregates the whatsapp activities created since since. Days
// are bucketed in the tz time zone.
func (r *Repository) MessageStats(ctx context.Context, since time.Time, tz string) (domain.MessageStats, error) {
	stats := domain.MessageStats{
		Since:      since,
		ByDay:      []domain.DayCount{},
		ByUser:     []domain.UserCount{},
		ByTemplate: []domain.TemplateCount{},
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		SELECT count(*) FROM activities WHERE type = 'whatsapp' AND created_at >= $1
	`, since).QueryRow(func(row pgx.Row) error {
		return row.Scan(&stats.TotalMessages)
	})
	batch.Queue(`
		SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, count(*)
		FROM activities
		WHERE type = 'whatsapp' AND created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since, tz).Query(func(rows pgx.Rows) error {
		items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.DayCount])
		if err == nil {
			stats.ByDay = items
		}
		return err
	})
	batch.Queue(`
		SELECT u.id, u.name, u.email, count(*) AS sent
		FROM activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.type = 'whatsapp' AND a.created_at >= $1
		GROUP BY u.id, u.name, u.email
		ORDER BY sent DESC, u.name
	`, since).Query(func(rows pgx.Rows) error {
		items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.UserCount])
		if err == nil {
			stats.ByUser = items
		}
		return err
	})
	batch.Queue(`
		SELECT template_used, count(*) AS used
		FROM activities
		WHERE type = 'whatsapp' AND template_used IS NOT NULL AND created_at >= $1
		GROUP BY template_used
		ORDER BY used DESC, template_used
	`, since).Query(func(rows pgx.Rows) error {
		items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.TemplateCount])
		if err == nil {
			stats.ByTemplate = items
		}
		return err
	})

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return domain.MessageStats{}, err
	}
	return stats, nil
}
