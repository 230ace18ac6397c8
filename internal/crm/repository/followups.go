package repository

import (
	"context"
	"errors"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const followUpColumns = `id, lead_id, assigned_to, scheduled, follow_up_type, status, outcome, interval_days, notes,
	completed_at, snoozed, snoozed_from, rescheduled_from, reschedule_count, superseded_by, reminder_sent_at,
	version, created_at, updated_at`

func scanFollowUp(row pgx.Row) (domain.FollowUp, error) {
	var f domain.FollowUp
	var followUpType, status string
	err := row.Scan(
		&f.ID, &f.LeadID, &f.AssignedTo, &f.Scheduled, &followUpType, &status, &f.Outcome, &f.IntervalDays, &f.Notes,
		&f.CompletedAt, &f.Snoozed, &f.SnoozedFrom, &f.RescheduledFrom, &f.RescheduleCount, &f.SupersededBy, &f.ReminderSentAt,
		&f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return domain.FollowUp{}, notFound(err)
	}
	f.Type = domain.FollowUpType(followUpType)
	f.Status = domain.FollowUpStatus(status)
	return f, nil
}

func collectFollowUps(rows pgx.Rows) ([]domain.FollowUp, error) {
	defer rows.Close()

	items := make([]domain.FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (r *Repository) GetFollowUp(ctx context.Context, id uuid.UUID) (domain.FollowUp, error) {
	return scanFollowUp(r.pool.QueryRow(ctx, `SELECT `+followUpColumns+` FROM follow_ups WHERE id = $1`, id))
}

func (r *Repository) ListFollowUpsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM follow_ups
		WHERE lead_id = $1
		ORDER BY scheduled DESC, created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	return collectFollowUps(rows)
}

// lockLead serializes follow-up creation and reactivation per lead.
func lockLead(ctx context.Context, q queryer, leadID uuid.UUID) error {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM leads WHERE id = $1 FOR UPDATE`, leadID).Scan(&id)
	return notFound(err)
}

// supersedePending marks the lead's pending follow-ups other than replacement
// as rescheduled and points them at it.
func supersedePending(ctx context.Context, q queryer, leadID, replacement uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `
		UPDATE follow_ups
		SET status = 'rescheduled', superseded_by = $2, version = version + 1, updated_at = now()
		WHERE lead_id = $1 AND status = 'pending' AND id <> $2
		RETURNING id
	`, leadID, replacement)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (domain.FollowUp, []uuid.UUID, error) {
	newID := uuid.New()
	var created domain.FollowUp
	var superseded []uuid.UUID

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockLead(ctx, tx, params.LeadID); err != nil {
			return err
		}

		ids, err := supersedePending(ctx, tx, params.LeadID, newID)
		if err != nil {
			return err
		}
		superseded = ids

		created, err = scanFollowUp(tx.QueryRow(ctx, `
			INSERT INTO follow_ups (id, lead_id, assigned_to, scheduled, follow_up_type, status, interval_days, notes)
			VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)
			RETURNING `+followUpColumns,
			newID, params.LeadID, params.AssignedTo, params.Scheduled, string(params.Type), params.IntervalDays, params.Notes,
		))
		return err
	})
	switch {
	case isUniqueViolation(err):
		return domain.FollowUp{}, nil, ErrStale
	case isForeignKeyViolation(err):
		return domain.FollowUp{}, nil, ErrNotFound
	case err != nil:
		return domain.FollowUp{}, nil, err
	}
	return created, superseded, nil
}

func (r *Repository) CompleteFollowUp(ctx context.Context, params CompleteFollowUpParams) (domain.FollowUp, error) {
	f, err := scanFollowUp(r.pool.QueryRow(ctx, `
		UPDATE follow_ups
		SET status = 'completed',
			outcome = COALESCE($3, outcome),
			notes = COALESCE($4, notes),
			completed_at = $5,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status NOT IN ('completed', 'cancelled')
		RETURNING `+followUpColumns,
		params.ID, params.ExpectedVersion, params.Outcome, params.Notes, params.CompletedAt,
	))
	if errors.Is(err, ErrNotFound) {
		return domain.FollowUp{}, ErrStale
	}
	return f, err
}

func (r *Repository) UpdateFollowUpStatus(ctx context.Context, params UpdateFollowUpStatusParams) (domain.FollowUp, error) {
	f, err := scanFollowUp(r.pool.QueryRow(ctx, `
		UPDATE follow_ups
		SET status = $3,
			outcome = COALESCE($4, outcome),
			notes = COALESCE($5, notes),
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status NOT IN ('completed', 'cancelled')
		RETURNING `+followUpColumns,
		params.ID, params.ExpectedVersion, string(params.Status), params.Outcome, params.Notes,
	))
	if errors.Is(err, ErrNotFound) {
		return domain.FollowUp{}, ErrStale
	}
	return f, err
}

func (r *Repository) ReactivateFollowUp(ctx context.Context, params ReactivateFollowUpParams) (domain.FollowUp, []uuid.UUID, error) {
	var updated domain.FollowUp
	var superseded []uuid.UUID

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var leadID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT lead_id FROM follow_ups WHERE id = $1`, params.ID).Scan(&leadID)
		if err != nil {
			return notFound(err)
		}
		if err := lockLead(ctx, tx, leadID); err != nil {
			return err
		}

		ids, err := supersedePending(ctx, tx, leadID, params.ID)
		if err != nil {
			return err
		}
		superseded = ids

		updated, err = scanFollowUp(tx.QueryRow(ctx, `
			UPDATE follow_ups
			SET status = 'pending',
				scheduled = $3,
				snoozed = $4,
				snoozed_from = COALESCE($5, snoozed_from),
				rescheduled_from = COALESCE($6, rescheduled_from),
				reschedule_count = reschedule_count + CASE WHEN $7 THEN 1 ELSE 0 END,
				superseded_by = NULL,
				reminder_sent_at = NULL,
				version = version + 1,
				updated_at = now()
			WHERE id = $1 AND version = $2 AND status NOT IN ('completed', 'cancelled')
			RETURNING `+followUpColumns,
			params.ID, params.ExpectedVersion, params.Scheduled, params.Snoozed,
			params.SnoozedFrom, params.RescheduledFrom, params.CountReschedule,
		))
		if errors.Is(err, ErrNotFound) {
			return ErrStale
		}
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.FollowUp{}, nil, ErrStale
		}
		return domain.FollowUp{}, nil, err
	}
	return updated, superseded, nil
}

// ListFollowUps returns open follow-ups scheduled in [From, To). Completed,
// cancelled and superseded rows are excluded.
func (r *Repository) ListFollowUps(ctx context.Context, params ListFollowUpsParams) ([]domain.FollowUp, error) {
	var from *time.Time
	if !params.From.IsZero() {
		from = &params.From
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM follow_ups
		WHERE status NOT IN ('completed', 'cancelled')
			AND superseded_by IS NULL
			AND ($1::uuid IS NULL OR assigned_to = $1)
			AND ($2::timestamptz IS NULL OR scheduled >= $2)
			AND scheduled < $3
		ORDER BY scheduled ASC, id ASC
	`, params.AssigneeID, from, params.To)
	if err != nil {
		return nil, err
	}
	return collectFollowUps(rows)
}

func (r *Repository) ClaimDueReminders(ctx context.Context, dueBefore time.Time, limit int) ([]domain.FollowUp, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id
			FROM follow_ups
			WHERE status = 'pending' AND reminder_sent_at IS NULL AND scheduled <= $1
			ORDER BY scheduled ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE follow_ups f
		SET reminder_sent_at = now()
		FROM due
		WHERE f.id = due.id
		RETURNING `+prefixed("f.", followUpColumns),
		dueBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectFollowUps(rows)
}
