package repository

import (
	"context"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `id, lead_id, user_id, type, status, duration_seconds, notes, template_used, created_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var a domain.Activity
	var activityType, status string
	err := row.Scan(&a.ID, &a.LeadID, &a.UserID, &activityType, &status, &a.DurationSeconds, &a.Notes, &a.TemplateUsed, &a.CreatedAt)
	if err != nil {
		return domain.Activity{}, notFound(err)
	}
	a.Type = domain.ActivityType(activityType)
	a.Status = domain.ActivityStatus(status)
	return a, nil
}

// CreateActivity appends an activity. An unknown lead or user is ErrNotFound.
func (r *Repository) CreateActivity(ctx context.Context, params CreateActivityParams) (domain.Activity, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx, `
		INSERT INTO activities (lead_id, user_id, type, status, duration_seconds, notes, template_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+activityColumns,
		params.LeadID, params.UserID, string(params.Type), string(params.Status),
		params.DurationSeconds, params.Notes, params.TemplateUsed,
	))
	if isForeignKeyViolation(err) {
		return domain.Activity{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) ListActivitiesForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
